package services

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"mindscape-agent/internal/config"
	"mindscape-agent/internal/models"
	"mindscape-agent/pkg/logger"
	"mindscape-agent/pkg/utils"

	"github.com/pquerna/otp/totp"
	"go.uber.org/zap"
)

const (
	// BcryptCost is the cost parameter for bcrypt password hashing
	BcryptCost = 12

	// MaxFailedLoginAttempts is the number of failed attempts before lockout
	MaxFailedLoginAttempts = 5

	// LockoutDuration is the duration of the lockout after max failed attempts
	LockoutDuration = 30 * time.Minute
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountLocked      = errors.New("account is temporarily locked due to too many failed login attempts")
	ErrInvalidTOTP        = errors.New("invalid TOTP code")
)

// AuthService authenticates the single configured dashboard user. The
// password is hashed once at startup; lockout state lives in memory.
type AuthService struct {
	user         models.User
	passwordHash []byte
	totpSecret   string

	mu             sync.Mutex
	failedAttempts int
	lockedUntil    time.Time
	now            func() time.Time
}

// NewAuthService builds the login identity from cfg.Auth. When an encryption
// key is configured the TOTP secret is decrypted here.
func NewAuthService(cfg *config.Config) (*AuthService, error) {
	if cfg.Auth.Username == "" || cfg.Auth.Password == "" {
		return nil, errors.New("auth username and password are required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.Auth.Password), BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	secret := cfg.Auth.TOTPSecret
	if secret != "" && cfg.Auth.EncryptionKey != "" {
		secret, err = utils.DecryptSecret(secret, cfg.Auth.EncryptionKey)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt TOTP secret: %w", err)
		}
	}

	return &AuthService{
		user: models.User{
			ID:       cfg.Auth.UserID,
			Username: cfg.Auth.Username,
			Email:    cfg.Auth.Email,
			Name:     cfg.Auth.Name,
		},
		passwordHash: hash,
		totpSecret:   secret,
		now:          time.Now,
	}, nil
}

// TOTPEnabled reports whether logins require a second factor
func (s *AuthService) TOTPEnabled() bool {
	return s.totpSecret != ""
}

// User returns the configured identity
func (s *AuthService) User() models.User {
	return s.user
}

// Authenticate checks credentials and the TOTP code when one is configured
func (s *AuthService) Authenticate(username, password, totpCode string) (*models.User, error) {
	if err := s.checkLock(); err != nil {
		logger.Warn("Authentication failed - account locked",
			zap.String("username", username),
			zap.String("event_type", "account_locked"),
		)
		return nil, err
	}

	usernameOK := subtle.ConstantTimeCompare([]byte(username), []byte(s.user.Username)) == 1
	passwordErr := bcrypt.CompareHashAndPassword(s.passwordHash, []byte(password))
	if !usernameOK || passwordErr != nil {
		s.recordFailure()
		logger.Warn("Authentication failed - invalid credentials",
			zap.String("username", username),
			zap.String("event_type", "failed_login"),
		)
		return nil, ErrInvalidCredentials
	}

	if s.TOTPEnabled() {
		if totpCode == "" || !totp.Validate(totpCode, s.totpSecret) {
			s.recordFailure()
			logger.Warn("Authentication failed - TOTP validation failed",
				zap.String("user_id", s.user.ID),
				zap.String("event_type", "failed_totp_validation"),
			)
			return nil, ErrInvalidTOTP
		}
	}

	s.resetFailures()
	logger.Info("User authenticated",
		zap.String("user_id", s.user.ID),
		zap.String("event_type", "login"),
	)
	user := s.user
	return &user, nil
}

func (s *AuthService) checkLock() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.lockedUntil.IsZero() {
		return nil
	}
	if s.now().Before(s.lockedUntil) {
		return ErrAccountLocked
	}
	s.lockedUntil = time.Time{}
	s.failedAttempts = 0
	return nil
}

func (s *AuthService) recordFailure() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.failedAttempts++
	if s.failedAttempts >= MaxFailedLoginAttempts {
		s.lockedUntil = s.now().Add(LockoutDuration)
		logger.Warn("Account locked after repeated failures",
			zap.String("user_id", s.user.ID),
			zap.Int("failed_attempts", s.failedAttempts),
			zap.String("event_type", "account_locked"),
		)
	}
}

func (s *AuthService) resetFailures() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failedAttempts = 0
	s.lockedUntil = time.Time{}
}

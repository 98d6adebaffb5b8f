package services

import (
	"context"
	"errors"
	"fmt"

	"mindscape-agent/internal/db"
	"mindscape-agent/internal/models"
	"mindscape-agent/internal/phone"
	"mindscape-agent/internal/telnyx"
	"mindscape-agent/pkg/logger"

	"go.uber.org/zap"
)

var (
	// ErrNoActiveProfile is returned when the user has no active messaging profile
	ErrNoActiveProfile = errors.New("no active messaging profile")
	// ErrProfileExists is returned when a profile with the same sender number already exists
	ErrProfileExists = errors.New("messaging profile already exists")
)

// ProfileLister lists the messaging profiles configured at the carrier
type ProfileLister interface {
	ListMessagingProfiles(ctx context.Context) ([]telnyx.ProfilePayload, error)
}

// ProfileService manages the sender identities used for outbound messages
type ProfileService struct {
	repo    db.ProfileRepository
	carrier ProfileLister
}

// NewProfileService creates a new profile service. carrier may be nil.
func NewProfileService(repo db.ProfileRepository, carrier ProfileLister) *ProfileService {
	return &ProfileService{repo: repo, carrier: carrier}
}

func (s *ProfileService) List(ctx context.Context, user models.UserContext) ([]*models.MessagingProfile, error) {
	return s.repo.List(ctx, user.UserID)
}

// Active returns the user's active profile, or ErrNoActiveProfile
func (s *ProfileService) Active(ctx context.Context, user models.UserContext) (*models.MessagingProfile, error) {
	profile, err := s.repo.GetActive(ctx, user.UserID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, ErrNoActiveProfile
	}
	return profile, nil
}

// Create registers a new active profile whose sender number is req.ProfileID
func (s *ProfileService) Create(ctx context.Context, user models.UserContext, req models.CreateProfileRequest) (*models.MessagingProfile, error) {
	number, err := phone.Normalize(req.ProfileID)
	if err != nil {
		return nil, err
	}

	profile := models.NewMessagingProfile(number, req.Name, user.UserID)
	profile.WebhookURL = req.WebhookURL
	profile.WebhookFailoverURL = req.WebhookFailoverURL
	if err := s.repo.Create(ctx, profile); err != nil {
		if errors.Is(err, db.ErrDuplicate) {
			return nil, ErrProfileExists
		}
		return nil, err
	}

	logger.Info("Messaging profile created",
		zap.String("profile_id", profile.ProfileID),
		zap.String("user_id", user.UserID),
	)
	return profile, nil
}

// UpdatePhone changes the sender number of the user's active profile
func (s *ProfileService) UpdatePhone(ctx context.Context, user models.UserContext, phoneNumber string) (*models.MessagingProfile, error) {
	number, err := phone.Normalize(phoneNumber)
	if err != nil {
		return nil, err
	}

	n, err := s.repo.UpdateActivePhone(ctx, user.UserID, number)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, ErrNoActiveProfile
	}

	logger.Info("Messaging profile phone updated",
		zap.String("phone_number", number),
		zap.String("user_id", user.UserID),
	)
	return s.Active(ctx, user)
}

// Remote lists the profiles configured at the carrier
func (s *ProfileService) Remote(ctx context.Context) ([]telnyx.ProfilePayload, error) {
	if s.carrier == nil {
		return nil, telnyx.ErrMissingAPIKey
	}
	profiles, err := s.carrier.ListMessagingProfiles(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list carrier profiles: %w", err)
	}
	return profiles, nil
}

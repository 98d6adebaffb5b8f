package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"mindscape-agent/pkg/logger"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Development credentials. Production refuses to start with either.
const (
	defaultJWTSecret = "your-secret-key"
	defaultPassword  = "mindscape"
)

// Config holds all configuration settings
type Config struct {
	Env string `json:"env" yaml:"env"`

	Server struct {
		Port          int    `json:"port" yaml:"port"`
		Host          string `json:"host" yaml:"host"`
		PublicBaseURL string `json:"public_base_url" yaml:"public_base_url"`
		CORSOrigin    string `json:"cors_origin" yaml:"cors_origin"`
		ForceHTTPS    bool   `json:"force_https" yaml:"force_https"`
	} `json:"server" yaml:"server"`
	Database struct {
		Driver string `json:"driver" yaml:"driver"` // sqlite3 or pgx
		DSN    string `json:"dsn" yaml:"dsn"`
	} `json:"database" yaml:"database"`
	Redis struct {
		URL string `json:"url" yaml:"url"`
	} `json:"redis" yaml:"redis"`
	JWT struct {
		Secret      string        `json:"secret" yaml:"secret"`
		TokenExpiry time.Duration `json:"token_expiry" yaml:"token_expiry"`
	} `json:"jwt" yaml:"jwt"`
	Logging struct {
		Level string `json:"level" yaml:"level"`
		Path  string `json:"path" yaml:"path"`
	} `json:"logging" yaml:"logging"`
	Auth struct {
		UserID        string `json:"user_id" yaml:"user_id"`
		Username      string `json:"username" yaml:"username"`
		Password      string `json:"password" yaml:"password"`
		Email         string `json:"email" yaml:"email"`
		Name          string `json:"name" yaml:"name"`
		TOTPSecret    string `json:"totp_secret" yaml:"totp_secret"`
		EncryptionKey string `json:"encryption_key" yaml:"encryption_key"` // 32 bytes; when set TOTPSecret is AES-GCM ciphertext
	} `json:"auth" yaml:"auth"`
	Telnyx struct {
		APIKey             string        `json:"api_key" yaml:"api_key"`
		BaseURL            string        `json:"base_url" yaml:"base_url"`
		PublicKey          string        `json:"public_key" yaml:"public_key"` // base64 Ed25519 key used to verify webhooks
		SignatureTolerance time.Duration `json:"signature_tolerance" yaml:"signature_tolerance"`
		Timeout            time.Duration `json:"timeout" yaml:"timeout"`
	} `json:"telnyx" yaml:"telnyx"`
	Stream struct {
		HeartbeatInterval time.Duration `json:"heartbeat_interval" yaml:"heartbeat_interval"`
		BufferSize        int           `json:"buffer_size" yaml:"buffer_size"`
	} `json:"stream" yaml:"stream"`
	Inbound struct {
		Timezone string `json:"timezone" yaml:"timezone"` // IANA name used for business hours
	} `json:"inbound" yaml:"inbound"`
}

// LoadConfig loads configuration from a JSON or YAML file on top of DefaultConfig
func LoadConfig(path string) (*Config, error) {
	// Validate path to prevent directory traversal
	cleanPath := filepath.Clean(path)
	if !filepath.IsAbs(cleanPath) {
		return nil, fmt.Errorf("config path must be absolute")
	}

	// Check if file exists and is a regular file
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("config file error: %w", err)
	}
	if !fileInfo.Mode().IsRegular() {
		return nil, fmt.Errorf("config path is not a regular file")
	}

	file, err := os.Open(cleanPath)
	if err != nil {
		return nil, err
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			logger.Warn("Failed to close config file", zap.Error(closeErr))
		}
	}()

	config := DefaultConfig()
	switch strings.ToLower(filepath.Ext(cleanPath)) {
	case ".yaml", ".yml":
		if err := yaml.NewDecoder(file).Decode(config); err != nil {
			return nil, fmt.Errorf("decode yaml config: %w", err)
		}
	default:
		if err := json.NewDecoder(file).Decode(config); err != nil {
			return nil, fmt.Errorf("decode json config: %w", err)
		}
	}

	return config, nil
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	config := &Config{}
	config.Env = EnvDevelopment
	config.Server.Port = 8080
	config.Server.Host = "localhost"
	config.Server.PublicBaseURL = "http://localhost:8080"
	config.Database.Driver = "sqlite3"
	config.Database.DSN = "file:mindscape.db?cache=shared&mode=rwc&_foreign_keys=on"
	config.JWT.Secret = defaultJWTSecret
	config.JWT.TokenExpiry = 24 * time.Hour
	config.Logging.Level = "info"
	config.Logging.Path = "server.log"
	config.Auth.UserID = "mindscape-user-1"
	config.Auth.Username = "mindscape"
	config.Auth.Password = defaultPassword
	config.Auth.Email = "mindscape@example.com"
	config.Auth.Name = "Mindscape Agent"
	config.Telnyx.BaseURL = "https://api.telnyx.com/v2"
	config.Telnyx.SignatureTolerance = 300 * time.Second
	config.Telnyx.Timeout = 15 * time.Second
	config.Stream.HeartbeatInterval = 30 * time.Second
	config.Stream.BufferSize = 64
	config.Inbound.Timezone = "Local"
	return config
}

// ApplyEnv overlays environment variables onto cfg. A .env file in the
// working directory is loaded first when present.
func ApplyEnv(cfg *Config) error {
	_ = godotenv.Load()

	if v := os.Getenv("ENV"); v != "" {
		cfg.Env = v
	}
	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PORT %q: %w", v, err)
		}
		cfg.Server.Port = port
	}
	setString(&cfg.Server.PublicBaseURL, "PUBLIC_BASE_URL")
	setString(&cfg.Server.CORSOrigin, "CORS_ORIGIN")
	if v := os.Getenv("FORCE_HTTPS"); v != "" {
		force, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid FORCE_HTTPS %q: %w", v, err)
		}
		cfg.Server.ForceHTTPS = force
	}
	setString(&cfg.Database.Driver, "DATABASE_DRIVER")
	setString(&cfg.Database.DSN, "DATABASE_URL")
	setString(&cfg.Redis.URL, "REDIS_URL")
	setString(&cfg.JWT.Secret, "JWT_SECRET")
	setString(&cfg.Logging.Level, "LOG_LEVEL")
	setString(&cfg.Logging.Path, "LOG_PATH")
	setString(&cfg.Auth.UserID, "AUTH_USER_ID")
	setString(&cfg.Auth.Username, "AUTH_USERNAME")
	setString(&cfg.Auth.Password, "AUTH_PASSWORD")
	setString(&cfg.Auth.TOTPSecret, "AUTH_TOTP_SECRET")
	setString(&cfg.Auth.EncryptionKey, "AUTH_ENCRYPTION_KEY")
	setString(&cfg.Telnyx.APIKey, "TELNYX_API_KEY")
	setString(&cfg.Telnyx.BaseURL, "TELNYX_BASE_URL")
	setString(&cfg.Telnyx.PublicKey, "TELNYX_WEBHOOK_SIGNING_SECRET")
	setString(&cfg.Telnyx.PublicKey, "TELNYX_PUBLIC_KEY")
	setString(&cfg.Inbound.Timezone, "INBOUND_TIMEZONE")

	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// Validate checks the settings the server cannot start without
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return errors.New("invalid server port")
	}
	switch c.Database.Driver {
	case "sqlite3", "pgx":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return errors.New("database DSN is required")
	}
	if c.Auth.UserID == "" {
		return errors.New("auth user ID is required")
	}
	if c.Stream.HeartbeatInterval <= 0 {
		return errors.New("stream heartbeat interval must be positive")
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("invalid inbound timezone: %w", err)
	}
	if c.IsProduction() {
		if c.JWT.Secret == "" || c.JWT.Secret == defaultJWTSecret {
			return errors.New("JWT_SECRET must be set in production")
		}
		if c.Auth.Password == defaultPassword {
			return errors.New("AUTH_PASSWORD must be changed in production")
		}
	}
	return nil
}

// IsProduction reports whether the server runs in production mode
func (c *Config) IsProduction() bool {
	return c.Env == EnvProduction
}

// SignatureEnforced reports whether webhook signatures are checked.
// Only production with a configured public key enforces them.
func (c *Config) SignatureEnforced() bool {
	return c.IsProduction() && c.Telnyx.PublicKey != ""
}

// Location resolves the timezone used for business-hours checks
func (c *Config) Location() (*time.Location, error) {
	if c.Inbound.Timezone == "" || c.Inbound.Timezone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Inbound.Timezone)
}

package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"mindscape-agent/internal/models"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// SettingsRepository defines the interface for inbound settings data access
type SettingsRepository interface {
	GetByUserID(ctx context.Context, userID string) (*models.InboundSettings, error)
	Create(ctx context.Context, settings *models.InboundSettings) error
	Update(ctx context.Context, settings *models.InboundSettings) error
}

type settingsRepository struct {
	db *sqlx.DB
}

// NewSettingsRepository creates a new SettingsRepository
func NewSettingsRepository(db *sqlx.DB) SettingsRepository {
	return &settingsRepository{db: db}
}

const settingsColumns = `id, user_id, auto_reply_enabled, auto_reply_message, business_hours_only,
	business_hours_start, business_hours_end, business_days, keyword_filters, blocked_numbers,
	created_at, updated_at`

// GetByUserID returns nil, nil when the user has no settings row yet
func (r *settingsRepository) GetByUserID(ctx context.Context, userID string) (*models.InboundSettings, error) {
	if userID == "" {
		return nil, fmt.Errorf("user ID cannot be empty")
	}

	query := r.db.Rebind(`SELECT ` + settingsColumns + ` FROM inbound_settings WHERE user_id = ?`)

	settings := &models.InboundSettings{}
	err := r.db.GetContext(ctx, settings, query, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get inbound settings: %w", err)
	}
	return settings, nil
}

// Create inserts the settings row. A second row for the same user returns ErrDuplicate.
func (r *settingsRepository) Create(ctx context.Context, settings *models.InboundSettings) error {
	if settings == nil {
		return fmt.Errorf("settings cannot be nil")
	}
	if settings.UserID == "" {
		return fmt.Errorf("settings user ID is required")
	}

	if settings.ID == "" {
		settings.ID = uuid.New().String()
	}
	now := time.Now().Unix()
	if settings.CreatedAt == 0 {
		settings.CreatedAt = now
	}
	settings.UpdatedAt = now
	normalizeSettings(settings)

	query := r.db.Rebind(`
		INSERT INTO inbound_settings (` + settingsColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	_, err := r.db.ExecContext(ctx, query,
		settings.ID,
		settings.UserID,
		settings.AutoReplyEnabled,
		settings.AutoReplyMessage,
		settings.BusinessHoursOnly,
		settings.BusinessHoursStart,
		settings.BusinessHoursEnd,
		settings.BusinessDays,
		settings.KeywordFilters,
		settings.BlockedNumbers,
		settings.CreatedAt,
		settings.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create inbound settings: %w", translate(err))
	}
	return nil
}

// Update overwrites the user's settings row
func (r *settingsRepository) Update(ctx context.Context, settings *models.InboundSettings) error {
	if settings == nil {
		return fmt.Errorf("settings cannot be nil")
	}

	settings.UpdatedAt = time.Now().Unix()
	normalizeSettings(settings)

	query := r.db.Rebind(`
		UPDATE inbound_settings
		SET auto_reply_enabled = ?, auto_reply_message = ?, business_hours_only = ?,
			business_hours_start = ?, business_hours_end = ?, business_days = ?,
			keyword_filters = ?, blocked_numbers = ?, updated_at = ?
		WHERE user_id = ?
	`)
	result, err := r.db.ExecContext(ctx, query,
		settings.AutoReplyEnabled,
		settings.AutoReplyMessage,
		settings.BusinessHoursOnly,
		settings.BusinessHoursStart,
		settings.BusinessHoursEnd,
		settings.BusinessDays,
		settings.KeywordFilters,
		settings.BlockedNumbers,
		settings.UpdatedAt,
		settings.UserID,
	)
	if err != nil {
		return fmt.Errorf("failed to update inbound settings: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("inbound settings not found")
	}
	return nil
}

func normalizeSettings(s *models.InboundSettings) {
	if s.BusinessDays == nil {
		s.BusinessDays = models.IntList{}
	}
	if s.KeywordFilters == nil {
		s.KeywordFilters = models.StringList{}
	}
	if s.BlockedNumbers == nil {
		s.BlockedNumbers = models.StringList{}
	}
}

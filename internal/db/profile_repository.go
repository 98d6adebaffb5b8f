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

// ProfileRepository defines the interface for messaging profile data access
type ProfileRepository interface {
	Create(ctx context.Context, profile *models.MessagingProfile) error
	List(ctx context.Context, userID string) ([]*models.MessagingProfile, error)
	GetActive(ctx context.Context, userID string) (*models.MessagingProfile, error)
	GetByProfileID(ctx context.Context, profileID string) (*models.MessagingProfile, error)
	UpdateActivePhone(ctx context.Context, userID, phoneNumber string) (int64, error)
	MergeMetadata(ctx context.Context, profileID string, patch models.Metadata) (int64, error)
}

type profileRepository struct {
	db *sqlx.DB
}

// NewProfileRepository creates a new ProfileRepository
func NewProfileRepository(db *sqlx.DB) ProfileRepository {
	return &profileRepository{db: db}
}

const profileColumns = `id, profile_id, name, webhook_url, webhook_failover_url, is_active, user_id,
	metadata, created_at, updated_at`

func (r *profileRepository) Create(ctx context.Context, profile *models.MessagingProfile) error {
	if profile == nil {
		return fmt.Errorf("profile cannot be nil")
	}
	if profile.ProfileID == "" || profile.Name == "" || profile.UserID == "" {
		return fmt.Errorf("profile ID, name and user ID are required")
	}

	if profile.ID == "" {
		profile.ID = uuid.New().String()
	}
	if profile.Metadata == nil {
		profile.Metadata = models.Metadata{}
	}
	now := time.Now().Unix()
	if profile.CreatedAt == 0 {
		profile.CreatedAt = now
	}
	profile.UpdatedAt = now

	query := r.db.Rebind(`
		INSERT INTO messaging_profiles (` + profileColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	_, err := r.db.ExecContext(ctx, query,
		profile.ID,
		profile.ProfileID,
		profile.Name,
		profile.WebhookURL,
		profile.WebhookFailoverURL,
		profile.IsActive,
		profile.UserID,
		profile.Metadata,
		profile.CreatedAt,
		profile.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create messaging profile: %w", translate(err))
	}
	return nil
}

func (r *profileRepository) List(ctx context.Context, userID string) ([]*models.MessagingProfile, error) {
	query := r.db.Rebind(`
		SELECT ` + profileColumns + `
		FROM messaging_profiles
		WHERE user_id = ?
		ORDER BY created_at DESC
	`)

	profiles := []*models.MessagingProfile{}
	if err := r.db.SelectContext(ctx, &profiles, query, userID); err != nil {
		return nil, fmt.Errorf("failed to list messaging profiles: %w", err)
	}
	return profiles, nil
}

// GetActive returns the user's most recently updated active profile
func (r *profileRepository) GetActive(ctx context.Context, userID string) (*models.MessagingProfile, error) {
	return r.getOne(ctx, `user_id = ? AND is_active = ?`, userID, true)
}

// GetByProfileID finds the active profile that sends from profileID, regardless of owner
func (r *profileRepository) GetByProfileID(ctx context.Context, profileID string) (*models.MessagingProfile, error) {
	if profileID == "" {
		return nil, fmt.Errorf("profile ID cannot be empty")
	}
	return r.getOne(ctx, `profile_id = ? AND is_active = ?`, profileID, true)
}

// UpdateActivePhone points the user's active profiles at a new sender number
func (r *profileRepository) UpdateActivePhone(ctx context.Context, userID, phoneNumber string) (int64, error) {
	query := r.db.Rebind(`
		UPDATE messaging_profiles
		SET profile_id = ?, updated_at = ?
		WHERE user_id = ? AND is_active = ?
	`)
	result, err := r.db.ExecContext(ctx, query, phoneNumber, time.Now().Unix(), userID, true)
	if err != nil {
		return 0, fmt.Errorf("failed to update messaging profile phone: %w", translate(err))
	}
	return result.RowsAffected()
}

// MergeMetadata merges patch into the metadata of every profile sending from profileID
func (r *profileRepository) MergeMetadata(ctx context.Context, profileID string, patch models.Metadata) (int64, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	profiles := []*models.MessagingProfile{}
	query := tx.Rebind(`SELECT ` + profileColumns + ` FROM messaging_profiles WHERE profile_id = ?`)
	if err := tx.SelectContext(ctx, &profiles, query, profileID); err != nil {
		return 0, fmt.Errorf("failed to load messaging profiles: %w", err)
	}

	now := time.Now().Unix()
	update := tx.Rebind(`UPDATE messaging_profiles SET metadata = ?, updated_at = ? WHERE id = ?`)
	for _, p := range profiles {
		if _, err := tx.ExecContext(ctx, update, p.Metadata.Merge(patch), now, p.ID); err != nil {
			return 0, fmt.Errorf("failed to update messaging profile: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit profile update: %w", err)
	}
	return int64(len(profiles)), nil
}

func (r *profileRepository) getOne(ctx context.Context, where string, args ...interface{}) (*models.MessagingProfile, error) {
	query := r.db.Rebind(`SELECT ` + profileColumns + ` FROM messaging_profiles WHERE ` + where +
		` ORDER BY updated_at DESC LIMIT 1`)

	profile := &models.MessagingProfile{}
	err := r.db.GetContext(ctx, profile, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get messaging profile: %w", err)
	}
	return profile, nil
}

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

// ContactRepository defines the interface for contact data access
type ContactRepository interface {
	Create(ctx context.Context, contact *models.Contact) error
	GetByID(ctx context.Context, id, userID string) (*models.Contact, error)
	GetByPhone(ctx context.Context, phoneNumber, userID string) (*models.Contact, error)
	List(ctx context.Context, userID string, limit, offset int) ([]*models.Contact, error)
}

type contactRepository struct {
	db *sqlx.DB
}

// NewContactRepository creates a new ContactRepository
func NewContactRepository(db *sqlx.DB) ContactRepository {
	return &contactRepository{db: db}
}

const contactColumns = `id, phone_number, name, avatar_url, user_id, created_at, updated_at`

// Create inserts a contact. A clash on (phone_number, user_id) returns ErrDuplicate.
func (r *contactRepository) Create(ctx context.Context, contact *models.Contact) error {
	if contact == nil {
		return fmt.Errorf("contact cannot be nil")
	}
	if contact.PhoneNumber == "" || contact.UserID == "" {
		return fmt.Errorf("contact phone number and user ID are required")
	}

	if contact.ID == "" {
		contact.ID = uuid.New().String()
	}
	now := time.Now().Unix()
	if contact.CreatedAt == 0 {
		contact.CreatedAt = now
	}
	contact.UpdatedAt = now

	query := r.db.Rebind(`
		INSERT INTO contacts (` + contactColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	_, err := r.db.ExecContext(ctx, query,
		contact.ID,
		contact.PhoneNumber,
		contact.Name,
		contact.AvatarURL,
		contact.UserID,
		contact.CreatedAt,
		contact.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create contact: %w", translate(err))
	}
	return nil
}

// GetByID retrieves a contact owned by userID
func (r *contactRepository) GetByID(ctx context.Context, id, userID string) (*models.Contact, error) {
	if id == "" {
		return nil, fmt.Errorf("contact ID cannot be empty")
	}

	query := r.db.Rebind(`SELECT ` + contactColumns + ` FROM contacts WHERE id = ? AND user_id = ?`)

	contact := &models.Contact{}
	err := r.db.GetContext(ctx, contact, query, id, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get contact by ID: %w", err)
	}
	return contact, nil
}

// GetByPhone retrieves a contact by its canonical phone number
func (r *contactRepository) GetByPhone(ctx context.Context, phoneNumber, userID string) (*models.Contact, error) {
	if phoneNumber == "" {
		return nil, fmt.Errorf("phone number cannot be empty")
	}

	query := r.db.Rebind(`SELECT ` + contactColumns + ` FROM contacts WHERE phone_number = ? AND user_id = ?`)

	contact := &models.Contact{}
	err := r.db.GetContext(ctx, contact, query, phoneNumber, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get contact by phone: %w", err)
	}
	return contact, nil
}

// List returns the user's contacts ordered by most recently updated
func (r *contactRepository) List(ctx context.Context, userID string, limit, offset int) ([]*models.Contact, error) {
	if limit <= 0 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	query := r.db.Rebind(`
		SELECT ` + contactColumns + `
		FROM contacts
		WHERE user_id = ?
		ORDER BY updated_at DESC, created_at DESC
		LIMIT ? OFFSET ?
	`)

	contacts := []*models.Contact{}
	if err := r.db.SelectContext(ctx, &contacts, query, userID, limit, offset); err != nil {
		return nil, fmt.Errorf("failed to list contacts: %w", err)
	}
	return contacts, nil
}

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

// MessageRepository defines the interface for message data access
type MessageRepository interface {
	Create(ctx context.Context, msg *models.Message) error
	GetByID(ctx context.Context, id, userID string) (*models.Message, error)
	GetByCarrierID(ctx context.Context, carrierID, userID string) (*models.Message, error)
	UpdateByCarrierID(ctx context.Context, carrierID string, patch models.MessagePatch, userID string) (*models.Message, error)
	List(ctx context.Context, userID string, filter MessageFilter) ([]*models.Message, error)
}

// MessageFilter narrows List results. Zero values mean no restriction.
type MessageFilter struct {
	ContactID string
	Limit     int
	Offset    int
}

type messageRepository struct {
	db *sqlx.DB
}

// NewMessageRepository creates a new MessageRepository
func NewMessageRepository(db *sqlx.DB) MessageRepository {
	return &messageRepository{db: db}
}

const messageColumns = `id, telnyx_message_id, contact_id, direction, message_type, content, media_urls,
	status, from_number, to_number, user_id, metadata, created_at, updated_at`

// messageWithContact is a messages row joined with its contact.
type messageWithContact struct {
	models.Message
	ContactPhoneNumber string  `db:"contact_phone_number"`
	ContactName        *string `db:"contact_name"`
	ContactAvatarURL   *string `db:"contact_avatar_url"`
	ContactCreatedAt   int64   `db:"contact_created_at"`
	ContactUpdatedAt   int64   `db:"contact_updated_at"`
}

func (row *messageWithContact) toMessage() *models.Message {
	msg := row.Message
	msg.Contact = &models.Contact{
		ID:          msg.ContactID,
		PhoneNumber: row.ContactPhoneNumber,
		Name:        row.ContactName,
		AvatarURL:   row.ContactAvatarURL,
		UserID:      msg.UserID,
		CreatedAt:   row.ContactCreatedAt,
		UpdatedAt:   row.ContactUpdatedAt,
	}
	return &msg
}

// Create inserts a message. A repeated carrier message id returns ErrDuplicate.
func (r *messageRepository) Create(ctx context.Context, msg *models.Message) error {
	if msg == nil {
		return fmt.Errorf("message cannot be nil")
	}
	if msg.ContactID == "" || msg.UserID == "" {
		return fmt.Errorf("message contact ID and user ID are required")
	}
	if !msg.Status.IsValid() {
		return fmt.Errorf("invalid message status %q", msg.Status)
	}

	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	if msg.MediaURLs == nil {
		msg.MediaURLs = models.StringList{}
	}
	if msg.Metadata == nil {
		msg.Metadata = models.Metadata{}
	}
	now := time.Now().Unix()
	if msg.CreatedAt == 0 {
		msg.CreatedAt = now
	}
	msg.UpdatedAt = now

	query := r.db.Rebind(`
		INSERT INTO messages (` + messageColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	_, err := r.db.ExecContext(ctx, query,
		msg.ID,
		msg.CarrierMessageID,
		msg.ContactID,
		msg.Direction,
		msg.MessageType,
		msg.Content,
		msg.MediaURLs,
		msg.Status,
		msg.FromNumber,
		msg.ToNumber,
		msg.UserID,
		msg.Metadata,
		msg.CreatedAt,
		msg.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create message: %w", translate(err))
	}
	return nil
}

// GetByID retrieves a message owned by userID
func (r *messageRepository) GetByID(ctx context.Context, id, userID string) (*models.Message, error) {
	if id == "" {
		return nil, fmt.Errorf("message ID cannot be empty")
	}
	return r.getOne(ctx, r.db, `id = ? AND user_id = ?`, id, userID)
}

// GetByCarrierID retrieves a message by the carrier-assigned id
func (r *messageRepository) GetByCarrierID(ctx context.Context, carrierID, userID string) (*models.Message, error) {
	if carrierID == "" {
		return nil, fmt.Errorf("carrier message ID cannot be empty")
	}
	return r.getOne(ctx, r.db, `telnyx_message_id = ? AND user_id = ?`, carrierID, userID)
}

// UpdateByCarrierID applies patch to the message with the given carrier id.
// Metadata keys are merged into the stored map. Returns nil, nil when no such message exists.
func (r *messageRepository) UpdateByCarrierID(ctx context.Context, carrierID string, patch models.MessagePatch, userID string) (*models.Message, error) {
	if carrierID == "" {
		return nil, fmt.Errorf("carrier message ID cannot be empty")
	}
	if patch.Status != nil && !patch.Status.IsValid() {
		return nil, fmt.Errorf("invalid message status %q", *patch.Status)
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	msg, err := r.getOne(ctx, tx, `telnyx_message_id = ? AND user_id = ?`, carrierID, userID)
	if err != nil || msg == nil {
		return nil, err
	}

	if patch.Status != nil {
		msg.Status = *patch.Status
	}
	msg.Metadata = msg.Metadata.Merge(patch.Metadata)
	msg.UpdatedAt = time.Now().Unix()

	query := tx.Rebind(`UPDATE messages SET status = ?, metadata = ?, updated_at = ? WHERE id = ?`)
	if _, err := tx.ExecContext(ctx, query, msg.Status, msg.Metadata, msg.UpdatedAt, msg.ID); err != nil {
		return nil, fmt.Errorf("failed to update message: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit message update: %w", err)
	}
	return msg, nil
}

// List returns messages joined with their contacts, newest first
func (r *messageRepository) List(ctx context.Context, userID string, filter MessageFilter) ([]*models.Message, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := `
		SELECT m.id, m.telnyx_message_id, m.contact_id, m.direction, m.message_type, m.content,
			m.media_urls, m.status, m.from_number, m.to_number, m.user_id, m.metadata,
			m.created_at, m.updated_at,
			c.phone_number AS contact_phone_number,
			c.name AS contact_name,
			c.avatar_url AS contact_avatar_url,
			c.created_at AS contact_created_at,
			c.updated_at AS contact_updated_at
		FROM messages m
		JOIN contacts c ON c.id = m.contact_id
		WHERE m.user_id = ?`
	args := []interface{}{userID}
	if filter.ContactID != "" {
		query += ` AND m.contact_id = ?`
		args = append(args, filter.ContactID)
	}
	query += ` ORDER BY m.created_at DESC, m.id DESC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	var rows []messageWithContact
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	messages := make([]*models.Message, 0, len(rows))
	for i := range rows {
		messages = append(messages, rows[i].toMessage())
	}
	return messages, nil
}

func (r *messageRepository) getOne(ctx context.Context, q sqlx.QueryerContext, where string, args ...interface{}) (*models.Message, error) {
	query := r.db.Rebind(`SELECT ` + messageColumns + ` FROM messages WHERE ` + where)

	msg := &models.Message{}
	err := sqlx.GetContext(ctx, q, msg, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get message: %w", err)
	}
	return msg, nil
}

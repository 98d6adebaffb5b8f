package models

import (
	"time"

	"github.com/google/uuid"
)

// Contact is a remote party identified by a canonical phone number.
// (PhoneNumber, UserID) is unique.
type Contact struct {
	ID          string  `json:"id" db:"id"`
	PhoneNumber string  `json:"phone_number" db:"phone_number"`
	Name        *string `json:"name,omitempty" db:"name"`
	AvatarURL   *string `json:"avatar_url,omitempty" db:"avatar_url"`
	UserID      string  `json:"user_id" db:"user_id"`
	CreatedAt   int64   `json:"created_at" db:"created_at"`
	UpdatedAt   int64   `json:"updated_at" db:"updated_at"`
}

// CreateContactRequest represents the request body for creating a contact
type CreateContactRequest struct {
	PhoneNumber string  `json:"phone_number" binding:"required"`
	Name        *string `json:"name,omitempty"`
	AvatarURL   *string `json:"avatar_url,omitempty"`
}

// NewContact creates a Contact with a generated UUID and timestamps.
// phoneNumber must already be normalized.
func NewContact(phoneNumber, userID string, name *string) *Contact {
	now := time.Now().Unix()
	return &Contact{
		ID:          uuid.New().String(),
		PhoneNumber: phoneNumber,
		Name:        name,
		UserID:      userID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// DefaultContactName is the name given to contacts created from an inbound message
func DefaultContactName(phoneNumber string) string {
	return "Contact " + phoneNumber
}

// DisplayName returns the contact name, or the phone number when unnamed
func (c *Contact) DisplayName() string {
	if c.Name != nil && *c.Name != "" {
		return *c.Name
	}
	return c.PhoneNumber
}

package models

import (
	"time"

	"github.com/google/uuid"
)

// MessagingProfile is the carrier-side sender identity. ProfileID holds the
// phone number used as sender. One profile per user should be active.
type MessagingProfile struct {
	ID                 string   `json:"id" db:"id"`
	ProfileID          string   `json:"profile_id" db:"profile_id"`
	Name               string   `json:"name" db:"name"`
	WebhookURL         *string  `json:"webhook_url,omitempty" db:"webhook_url"`
	WebhookFailoverURL *string  `json:"webhook_failover_url,omitempty" db:"webhook_failover_url"`
	IsActive           bool     `json:"is_active" db:"is_active"`
	UserID             string   `json:"user_id" db:"user_id"`
	Metadata           Metadata `json:"metadata" db:"metadata"`
	CreatedAt          int64    `json:"created_at" db:"created_at"`
	UpdatedAt          int64    `json:"updated_at" db:"updated_at"`
}

// CreateProfileRequest represents the request body for creating a messaging profile
type CreateProfileRequest struct {
	ProfileID          string  `json:"profile_id" binding:"required"`
	Name               string  `json:"name" binding:"required"`
	WebhookURL         *string `json:"webhook_url,omitempty"`
	WebhookFailoverURL *string `json:"webhook_failover_url,omitempty"`
}

// NewMessagingProfile creates an active profile with a generated UUID
func NewMessagingProfile(profileID, name, userID string) *MessagingProfile {
	now := time.Now().Unix()
	return &MessagingProfile{
		ID:        uuid.New().String(),
		ProfileID: profileID,
		Name:      name,
		IsActive:  true,
		UserID:    userID,
		Metadata:  Metadata{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

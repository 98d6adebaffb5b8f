package handlers

import (
	"context"
	"time"

	"mindscape-agent/internal/db"
	"mindscape-agent/internal/models"
	"mindscape-agent/internal/telnyx"
	"mindscape-agent/internal/webhook"
)

// Authenticator defines the login contract used by AuthHandler
type Authenticator interface {
	Authenticate(username, password, totpCode string) (*models.User, error)
}

// MessageServiceInterface defines the contract for sending and listing messages
type MessageServiceInterface interface {
	Send(ctx context.Context, user models.UserContext, req models.SendMessageRequest) (*models.Message, error)
	List(ctx context.Context, user models.UserContext, filter db.MessageFilter) ([]*models.Message, error)
}

// ContactServiceInterface defines the contract for contact operations
type ContactServiceInterface interface {
	Create(ctx context.Context, user models.UserContext, req models.CreateContactRequest) (*models.Contact, error)
	Get(ctx context.Context, user models.UserContext, id string) (*models.Contact, error)
	List(ctx context.Context, user models.UserContext, limit, offset int) ([]*models.Contact, error)
}

// SettingsServiceInterface defines the contract for inbound settings operations
type SettingsServiceInterface interface {
	Get(ctx context.Context, user models.UserContext) (*models.InboundSettings, error)
	Update(ctx context.Context, user models.UserContext, req *models.UpdateInboundSettingsRequest) (*models.InboundSettings, error)
}

// ProfileServiceInterface defines the contract for messaging profile operations
type ProfileServiceInterface interface {
	List(ctx context.Context, user models.UserContext) ([]*models.MessagingProfile, error)
	Create(ctx context.Context, user models.UserContext, req models.CreateProfileRequest) (*models.MessagingProfile, error)
	UpdatePhone(ctx context.Context, user models.UserContext, phoneNumber string) (*models.MessagingProfile, error)
	Remote(ctx context.Context) ([]telnyx.ProfilePayload, error)
}

// EventProcessor handles parsed carrier webhook events
type EventProcessor interface {
	Process(ctx context.Context, ev telnyx.WebhookEvent) (webhook.Outcome, error)
}

// SignatureVerifier checks webhook signatures
type SignatureVerifier interface {
	Verify(body []byte, signatureB64, timestamp string, now time.Time) error
}

package models

import (
	"time"

	"github.com/google/uuid"
)

// Direction of a message relative to the dashboard user
type Direction string

const (
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
)

// MessageType is SMS, or MMS when media is attached
type MessageType string

const (
	MessageTypeSMS MessageType = "SMS"
	MessageTypeMMS MessageType = "MMS"
)

// MessageStatus is the delivery status of a message
type MessageStatus string

const (
	StatusPending   MessageStatus = "pending"
	StatusSent      MessageStatus = "sent"
	StatusDelivered MessageStatus = "delivered"
	StatusFailed    MessageStatus = "failed"
)

// Metadata keys written by the inbound pipeline and status updates
const (
	MetaIsOTP          = "is_otp"
	MetaReceivedAt     = "received_at"
	MetaMessageLength  = "message_length"
	MetaHasMedia       = "has_media"
	MetaCarrier        = "carrier"
	MetaWebhookID      = "telnyx_webhook_id"
	MetaCarrierStatus  = "telnyx_status"
	MetaFailureReason  = "failure_reason"
	MetaFinalStatus    = "final_status"
	MetaFinalizedAt    = "finalized_at"
	MetaIsTest         = "is_test"
	MetaLastWebhookAt  = "last_webhook_update"
	MetaCarrierProfile = "telnyx_profile_id"
)

// Message is a stored SMS/MMS. CarrierMessageID is unique when present and
// is the reconciliation key for carrier status events.
type Message struct {
	ID               string        `json:"id" db:"id"`
	CarrierMessageID *string       `json:"telnyx_message_id,omitempty" db:"telnyx_message_id"`
	ContactID        string        `json:"contact_id" db:"contact_id"`
	Direction        Direction     `json:"direction" db:"direction"`
	MessageType      MessageType   `json:"message_type" db:"message_type"`
	Content          string        `json:"content" db:"content"`
	MediaURLs        StringList    `json:"media_urls" db:"media_urls"`
	Status           MessageStatus `json:"status" db:"status"`
	FromNumber       string        `json:"from_number" db:"from_number"`
	ToNumber         string        `json:"to_number" db:"to_number"`
	UserID           string        `json:"user_id" db:"user_id"`
	Metadata         Metadata      `json:"metadata" db:"metadata"`
	CreatedAt        int64         `json:"created_at" db:"created_at"`
	UpdatedAt        int64         `json:"updated_at" db:"updated_at"`

	// Loaded separately, not a column
	Contact *Contact `json:"contact,omitempty" db:"-"`
}

// MessagePatch is a partial update applied to a message found by carrier id.
// A nil Status leaves the status unchanged; Metadata is merged key by key.
type MessagePatch struct {
	Status   *MessageStatus
	Metadata Metadata
}

// SendMessageRequest represents the request body for sending a message
type SendMessageRequest struct {
	To        string   `json:"to"`
	From      string   `json:"from"`
	Text      string   `json:"text"`
	MediaURLs []string `json:"media_urls"`
}

// NewMessage creates a Message with a generated UUID and timestamps
func NewMessage(direction Direction, contactID, userID string) *Message {
	now := time.Now().Unix()
	return &Message{
		ID:        uuid.New().String(),
		ContactID: contactID,
		Direction: direction,
		UserID:    userID,
		MediaURLs: StringList{},
		Metadata:  Metadata{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// TypeForMedia classifies a message as MMS iff it carries at least one media item
func TypeForMedia(mediaCount int) MessageType {
	if mediaCount > 0 {
		return MessageTypeMMS
	}
	return MessageTypeSMS
}

// IsValid reports whether s is one of the known statuses
func (s MessageStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusSent, StatusDelivered, StatusFailed:
		return true
	}
	return false
}

package telnyx

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"mindscape-agent/internal/models"
)

const (
	EventMessageReceived       = "message.received"
	EventMessageSent           = "message.sent"
	EventMessageDelivered      = "message.delivered"
	EventMessageDeliveryFailed = "message.delivery_failed"
	EventMessageFinalized      = "message.finalized"
	EventProfileUpdated        = "messaging_profile.updated"
)

var ErrMalformedWebhook = errors.New("malformed webhook payload")

// PhoneEndpoint is one side of a carrier message
type PhoneEndpoint struct {
	PhoneNumber string `json:"phone_number"`
	Carrier     string `json:"carrier,omitempty"`
	LineType    string `json:"line_type,omitempty"`
	Status      string `json:"status,omitempty"`
}

// Recipients accepts the carrier's "to" field as either a single object or an array.
type Recipients []PhoneEndpoint

func (r *Recipients) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*r = nil
		return nil
	}
	if data[0] == '[' {
		var list []PhoneEndpoint
		if err := json.Unmarshal(data, &list); err != nil {
			return err
		}
		*r = list
		return nil
	}
	var single PhoneEndpoint
	if err := json.Unmarshal(data, &single); err != nil {
		return err
	}
	*r = Recipients{single}
	return nil
}

// First returns the primary recipient number, or "" when there is none
func (r Recipients) First() string {
	if len(r) == 0 {
		return ""
	}
	return r[0].PhoneNumber
}

type Media struct {
	URL         string `json:"url"`
	ContentType string `json:"content_type,omitempty"`
	Size        int64  `json:"size,omitempty"`
}

// APIError is an entry of the carrier's "errors" array
type APIError struct {
	Code   string `json:"code"`
	Title  string `json:"title"`
	Detail string `json:"detail"`
}

// MessagePayload is the carrier's message record, used by webhooks and the send API.
type MessagePayload struct {
	ID                 string        `json:"id"`
	RecordType         string        `json:"record_type,omitempty"`
	Direction          string        `json:"direction,omitempty"`
	Type               string        `json:"type,omitempty"`
	MessageType        string        `json:"message_type,omitempty"`
	From               PhoneEndpoint `json:"from"`
	To                 Recipients    `json:"to"`
	Text               string        `json:"text,omitempty"`
	Media              []Media       `json:"media,omitempty"`
	Status             string        `json:"status,omitempty"`
	MessagingProfileID string        `json:"messaging_profile_id,omitempty"`
	ReceivedAt         string        `json:"received_at,omitempty"`
	SentAt             string        `json:"sent_at,omitempty"`
	DeliveredAt        string        `json:"delivered_at,omitempty"`
	FailedAt           string        `json:"failed_at,omitempty"`
	CompletedAt        string        `json:"completed_at,omitempty"`
	FinalizedAt        string        `json:"finalized_at,omitempty"`
	FailureReason      string        `json:"failure_reason,omitempty"`
	Errors             []APIError    `json:"errors,omitempty"`
}

// MediaURLs returns the media URLs in payload order
func (p *MessagePayload) MediaURLs() []string {
	urls := make([]string, 0, len(p.Media))
	for _, m := range p.Media {
		if m.URL != "" {
			urls = append(urls, m.URL)
		}
	}
	return urls
}

// Failure describes why delivery failed, defaulting to "Unknown"
func (p *MessagePayload) Failure() string {
	if p.FailureReason != "" {
		return p.FailureReason
	}
	for _, e := range p.Errors {
		if e.Detail != "" {
			return e.Detail
		}
		if e.Title != "" {
			return e.Title
		}
	}
	return "Unknown"
}

// ProfilePayload is the carrier's messaging profile record
type ProfilePayload struct {
	ID                 string `json:"id"`
	RecordType         string `json:"record_type,omitempty"`
	Name               string `json:"name,omitempty"`
	PhoneNumber        string `json:"phone_number,omitempty"`
	Enabled            bool   `json:"enabled"`
	WebhookURL         string `json:"webhook_url,omitempty"`
	WebhookFailoverURL string `json:"webhook_failover_url,omitempty"`
	CreatedAt          string `json:"created_at,omitempty"`
	UpdatedAt          string `json:"updated_at,omitempty"`
}

// WebhookEvent is one of MessageReceived, MessageStatusUpdate, MessageFinalized,
// ProfileUpdated or UnknownEvent.
type WebhookEvent interface {
	EventID() string
	EventType() string
	webhookEvent()
}

// Envelope carries the fields shared by every webhook delivery.
type Envelope struct {
	ID         string
	Type       string
	OccurredAt string
}

func (e Envelope) EventID() string { return e.ID }
func (e Envelope) EventType() string { return e.Type }
func (Envelope) webhookEvent() {}

type MessageReceived struct {
	Envelope
	Message MessagePayload
	// Simulated marks events injected locally rather than delivered by the carrier.
	Simulated bool
}

// MessageStatusUpdate covers message.sent, message.delivered and message.delivery_failed.
type MessageStatusUpdate struct {
	Envelope
	Status  models.MessageStatus
	Message MessagePayload
}

type MessageFinalized struct {
	Envelope
	Message MessagePayload
}

type ProfileUpdated struct {
	Envelope
	Profile ProfilePayload
}

// UnknownEvent is acknowledged and ignored.
type UnknownEvent struct {
	Envelope
	Payload json.RawMessage
}

type rawWebhook struct {
	Data struct {
		EventType  string          `json:"event_type"`
		ID         string          `json:"id"`
		OccurredAt string          `json:"occurred_at"`
		Payload    json.RawMessage `json:"payload"`
	} `json:"data"`
}

// ParseWebhook decodes a webhook body into its typed variant.
func ParseWebhook(body []byte) (WebhookEvent, error) {
	var raw rawWebhook
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedWebhook, err)
	}
	if raw.Data.EventType == "" {
		return nil, fmt.Errorf("%w: missing event_type", ErrMalformedWebhook)
	}

	env := Envelope{
		ID:         raw.Data.ID,
		Type:       raw.Data.EventType,
		OccurredAt: raw.Data.OccurredAt,
	}

	switch env.Type {
	case EventMessageReceived:
		msg, err := decodeMessage(raw.Data.Payload)
		if err != nil {
			return nil, err
		}
		return &MessageReceived{Envelope: env, Message: msg}, nil

	case EventMessageSent, EventMessageDelivered, EventMessageDeliveryFailed:
		msg, err := decodeMessage(raw.Data.Payload)
		if err != nil {
			return nil, err
		}
		return &MessageStatusUpdate{Envelope: env, Status: statusForEvent(env.Type), Message: msg}, nil

	case EventMessageFinalized:
		msg, err := decodeMessage(raw.Data.Payload)
		if err != nil {
			return nil, err
		}
		return &MessageFinalized{Envelope: env, Message: msg}, nil

	case EventProfileUpdated:
		var profile ProfilePayload
		if err := json.Unmarshal(raw.Data.Payload, &profile); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedWebhook, err)
		}
		return &ProfileUpdated{Envelope: env, Profile: profile}, nil

	default:
		return &UnknownEvent{Envelope: env, Payload: raw.Data.Payload}, nil
	}
}

func decodeMessage(data json.RawMessage) (MessagePayload, error) {
	var msg MessagePayload
	if len(data) == 0 {
		return msg, fmt.Errorf("%w: missing payload", ErrMalformedWebhook)
	}
	if err := json.Unmarshal(data, &msg); err != nil {
		return msg, fmt.Errorf("%w: %v", ErrMalformedWebhook, err)
	}
	return msg, nil
}

func statusForEvent(eventType string) models.MessageStatus {
	switch eventType {
	case EventMessageSent:
		return models.StatusSent
	case EventMessageDelivered:
		return models.StatusDelivered
	default:
		return models.StatusFailed
	}
}

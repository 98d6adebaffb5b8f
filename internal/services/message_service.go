package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"mindscape-agent/internal/db"
	"mindscape-agent/internal/events"
	"mindscape-agent/internal/metrics"
	"mindscape-agent/internal/models"
	"mindscape-agent/internal/phone"
	"mindscape-agent/internal/telnyx"
	"mindscape-agent/pkg/logger"

	"go.uber.org/zap"
)

var (
	// ErrMissingFields is returned when a send request has no recipient or no content
	ErrMissingFields = errors.New("missing required fields: to and text or media_urls")
	// ErrSendFailed wraps the carrier error when the carrier rejects a send
	ErrSendFailed = errors.New("failed to send message")
)

// MessageSender submits messages to the carrier
type MessageSender interface {
	SendMessage(ctx context.Context, req telnyx.SendMessageRequest) (*telnyx.MessagePayload, error)
}

// Publisher delivers events to live connections
type Publisher interface {
	Publish(ev events.Event) int
}

// MessageService sends outbound messages and lists the message history
type MessageService struct {
	messages  db.MessageRepository
	contacts  *ContactService
	profiles  *ProfileService
	carrier   MessageSender
	publisher Publisher

	webhookURL         string
	webhookFailoverURL string
}

// NewMessageService creates a new message service
func NewMessageService(messages db.MessageRepository, contacts *ContactService, profiles *ProfileService, carrier MessageSender, publisher Publisher) *MessageService {
	return &MessageService{
		messages:  messages,
		contacts:  contacts,
		profiles:  profiles,
		carrier:   carrier,
		publisher: publisher,
	}
}

// WithWebhookURLs sets the delivery-report URLs passed to the carrier on every send
func (s *MessageService) WithWebhookURLs(url, failoverURL string) *MessageService {
	s.webhookURL = url
	s.webhookFailoverURL = failoverURL
	return s
}

// Send submits a message through the carrier and records it. Nothing is
// stored when the carrier rejects the message.
func (s *MessageService) Send(ctx context.Context, user models.UserContext, req models.SendMessageRequest) (*models.Message, error) {
	req.To = strings.TrimSpace(req.To)
	req.From = strings.TrimSpace(req.From)
	mediaURLs := make([]string, 0, len(req.MediaURLs))
	for _, u := range req.MediaURLs {
		if u = strings.TrimSpace(u); u != "" {
			mediaURLs = append(mediaURLs, u)
		}
	}
	if req.To == "" || (strings.TrimSpace(req.Text) == "" && len(mediaURLs) == 0) {
		return nil, ErrMissingFields
	}

	to, err := phone.Normalize(req.To)
	if err != nil {
		return nil, err
	}

	fromInput := req.From
	if fromInput == "" {
		profile, err := s.profiles.Active(ctx, user)
		if err != nil {
			return nil, err
		}
		fromInput = profile.ProfileID
	}
	from, err := phone.Normalize(fromInput)
	if err != nil {
		return nil, err
	}

	contact, _, err := s.contacts.Resolve(ctx, user, to, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve contact: %w", err)
	}

	sent, err := s.carrier.SendMessage(ctx, telnyx.SendMessageRequest{
		From:               from,
		To:                 to,
		Text:               req.Text,
		MediaURLs:          mediaURLs,
		WebhookURL:         s.webhookURL,
		WebhookFailoverURL: s.webhookFailoverURL,
	})
	if err != nil {
		metrics.CarrierSends.WithLabelValues("error").Inc()
		logger.Error("Carrier rejected outbound message",
			zap.String("user_id", user.UserID),
			zap.String("to", to),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: %w", ErrSendFailed, err)
	}
	metrics.CarrierSends.WithLabelValues("ok").Inc()

	msg := models.NewMessage(models.DirectionOutbound, contact.ID, user.UserID)
	msg.MessageType = models.TypeForMedia(len(mediaURLs))
	msg.Content = req.Text
	msg.MediaURLs = models.StringList(mediaURLs)
	msg.Status = models.StatusSent
	msg.FromNumber = from
	msg.ToNumber = to
	msg.Metadata = models.Metadata{
		"sent_at": time.Now().UTC().Format(time.RFC3339),
	}
	if sent.ID != "" {
		carrierID := sent.ID
		msg.CarrierMessageID = &carrierID
	}
	if len(sent.To) > 0 && sent.To[0].Status != "" {
		msg.Metadata[models.MetaCarrierStatus] = sent.To[0].Status
	}

	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, fmt.Errorf("message sent but not recorded: %w", err)
	}
	msg.Contact = contact

	delivered := s.publisher.Publish(events.NewMessage(user.UserID, msg))
	logger.Info("Outbound message sent",
		zap.String("message_id", msg.ID),
		zap.String("user_id", user.UserID),
		zap.Int("delivered_to", delivered),
	)
	return msg, nil
}

// List returns messages with their contacts, newest first
func (s *MessageService) List(ctx context.Context, user models.UserContext, filter db.MessageFilter) ([]*models.Message, error) {
	return s.messages.List(ctx, user.UserID, filter)
}

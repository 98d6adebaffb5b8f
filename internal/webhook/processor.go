package webhook

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"mindscape-agent/internal/cache"
	"mindscape-agent/internal/db"
	"mindscape-agent/internal/events"
	"mindscape-agent/internal/metrics"
	"mindscape-agent/internal/models"
	"mindscape-agent/internal/phone"
	"mindscape-agent/internal/services"
	"mindscape-agent/internal/telnyx"
	"mindscape-agent/pkg/logger"

	"go.uber.org/zap"
)

// AutoReplier sends the configured auto-reply through the outbound path
type AutoReplier interface {
	Send(ctx context.Context, user models.UserContext, req models.SendMessageRequest) (*models.Message, error)
}

// Dependencies wires a Processor. Replay and Location are optional.
type Dependencies struct {
	Settings  *services.SettingsService
	Contacts  *services.ContactService
	Messages  db.MessageRepository
	Profiles  db.ProfileRepository
	Replier   AutoReplier
	Publisher services.Publisher
	Resolver  UserResolver
	Replay    cache.ReplayGuard
	Location  *time.Location
}

// Processor runs verified carrier events through the inbound pipeline and
// the status sub-machine.
type Processor struct {
	settings  *services.SettingsService
	contacts  *services.ContactService
	messages  db.MessageRepository
	profiles  db.ProfileRepository
	replier   AutoReplier
	publisher services.Publisher
	resolver  UserResolver
	replay    cache.ReplayGuard
	location  *time.Location
	now       func() time.Time
}

func NewProcessor(deps Dependencies) *Processor {
	loc := deps.Location
	if loc == nil {
		loc = time.Local
	}
	return &Processor{
		settings:  deps.Settings,
		contacts:  deps.Contacts,
		messages:  deps.Messages,
		profiles:  deps.Profiles,
		replier:   deps.Replier,
		publisher: deps.Publisher,
		resolver:  deps.Resolver,
		replay:    deps.Replay,
		location:  loc,
		now:       time.Now,
	}
}

// Process handles one event. Policy drops and unknown references are
// reported through Outcome; only infrastructure failures return an error.
func (p *Processor) Process(ctx context.Context, ev telnyx.WebhookEvent) (Outcome, error) {
	if ev == nil {
		return Outcome{}, errors.New("nil webhook event")
	}

	id := ev.EventID()
	if p.replay != nil && id != "" {
		seen, err := p.replay.MarkSeen(ctx, id)
		if err != nil {
			logger.Warn("Replay guard unavailable, processing anyway", zap.String("event_id", id), zap.Error(err))
		} else if seen {
			logger.Info("Skipping redelivered webhook", zap.String("event_id", id), zap.String("event_type", ev.EventType()))
			metrics.WebhookEvents.WithLabelValues(ev.EventType(), string(KindIgnored)).Inc()
			return ignored(ReasonDuplicate), nil
		}
	}

	outcome, err := p.dispatch(ctx, ev)
	if err != nil {
		if p.replay != nil && id != "" {
			if ferr := p.replay.Forget(ctx, id); ferr != nil {
				logger.Warn("Failed to release webhook id after error", zap.String("event_id", id), zap.Error(ferr))
			}
		}
		metrics.WebhookEvents.WithLabelValues(ev.EventType(), "error").Inc()
		return Outcome{}, err
	}

	metrics.WebhookEvents.WithLabelValues(ev.EventType(), string(outcome.Kind)).Inc()
	return outcome, nil
}

func (p *Processor) dispatch(ctx context.Context, ev telnyx.WebhookEvent) (Outcome, error) {
	switch e := ev.(type) {
	case *telnyx.MessageReceived:
		return p.handleInbound(ctx, e)
	case *telnyx.MessageStatusUpdate:
		return p.handleStatus(ctx, e)
	case *telnyx.MessageFinalized:
		return p.handleFinalized(ctx, e)
	case *telnyx.ProfileUpdated:
		return p.handleProfileUpdate(ctx, e)
	case *telnyx.UnknownEvent:
		logger.Info("Ignoring unhandled webhook event", zap.String("event_type", e.Type))
		return ignored(ReasonUnhandledType), nil
	default:
		logger.Warn("Ignoring unrecognized webhook variant", zap.String("event_type", ev.EventType()))
		return ignored(ReasonUnhandledType), nil
	}
}

func (p *Processor) drop(reason DropReason, fields ...zap.Field) Outcome {
	metrics.InboundDropped.WithLabelValues(string(reason)).Inc()
	logger.Info("Inbound message dropped", append([]zap.Field{zap.String("reason", string(reason))}, fields...)...)
	return dropped(reason)
}

func (p *Processor) handleInbound(ctx context.Context, e *telnyx.MessageReceived) (Outcome, error) {
	payload := e.Message

	from, err := phone.Normalize(payload.From.PhoneNumber)
	if err != nil {
		return p.drop(ReasonInvalidNumber, zap.String("from", payload.From.PhoneNumber)), nil
	}
	to, err := phone.Normalize(payload.To.First())
	if err != nil {
		return p.drop(ReasonInvalidNumber, zap.String("to", payload.To.First())), nil
	}

	user, err := p.resolver.Resolve(ctx, to)
	if err != nil {
		return Outcome{}, fmt.Errorf("failed to resolve owner of %s: %w", to, err)
	}

	settings, err := p.settings.Get(ctx, user)
	if err != nil {
		return Outcome{}, fmt.Errorf("failed to load inbound settings: %w", err)
	}

	if IsBlocked(settings, from) {
		return p.drop(ReasonBlocked, zap.String("from", from)), nil
	}
	if keyword, ok := MatchesKeyword(settings, payload.Text); ok {
		return p.drop(ReasonKeyword, zap.String("keyword", keyword)), nil
	}
	if settings.BusinessHoursOnly && !WithinBusinessHours(settings, p.now().In(p.location)) {
		return p.drop(ReasonOutsideHours, zap.String("from", from)), nil
	}

	name := models.DefaultContactName(from)
	contact, _, err := p.contacts.Resolve(ctx, user, from, &name)
	if err != nil {
		return Outcome{}, fmt.Errorf("failed to resolve contact: %w", err)
	}

	mediaURLs := payload.MediaURLs()
	isOTP := IsOTP(payload.Text)

	msg := models.NewMessage(models.DirectionInbound, contact.ID, user.UserID)
	msg.MessageType = models.TypeForMedia(len(payload.Media))
	msg.Content = payload.Text
	msg.MediaURLs = models.StringList(mediaURLs)
	msg.Status = models.StatusDelivered
	msg.FromNumber = from
	msg.ToNumber = to
	if payload.ID != "" {
		carrierID := payload.ID
		msg.CarrierMessageID = &carrierID
	}
	msg.Metadata = models.Metadata{
		models.MetaIsOTP:         isOTP,
		models.MetaReceivedAt:    p.now().UTC().Format(time.RFC3339),
		models.MetaMessageLength: utf8.RuneCountInString(payload.Text),
		models.MetaHasMedia:      len(payload.Media) > 0,
		models.MetaWebhookID:     e.ID,
	}
	if payload.From.Carrier != "" {
		msg.Metadata[models.MetaCarrier] = payload.From.Carrier
	}
	if e.Simulated {
		msg.Metadata[models.MetaIsTest] = true
	}

	if err := p.messages.Create(ctx, msg); err != nil {
		if errors.Is(err, db.ErrDuplicate) {
			logger.Info("Inbound message already stored", zap.String("telnyx_message_id", payload.ID))
			return ignored(ReasonDuplicate), nil
		}
		return Outcome{}, fmt.Errorf("failed to store inbound message: %w", err)
	}
	msg.Contact = contact

	delivered := p.publisher.Publish(events.MessageReceived(user.UserID, msg))
	if isOTP {
		p.publisher.Publish(events.OTPReceived(user.UserID, msg, ExtractOTP(payload.Text)))
	}
	logger.Info("Inbound message stored",
		zap.String("message_id", msg.ID),
		zap.String("user_id", user.UserID),
		zap.Bool("is_otp", isOTP),
		zap.Int("delivered_to", delivered),
	)

	if settings.AutoReplyEnabled && strings.TrimSpace(settings.AutoReplyMessage) != "" && p.replier != nil {
		_, err := p.replier.Send(ctx, user, models.SendMessageRequest{
			To:   from,
			From: to,
			Text: settings.AutoReplyMessage,
		})
		if err != nil {
			logger.Error("Auto-reply failed", zap.String("to", from), zap.Error(err))
		} else {
			logger.Info("Auto-reply sent", zap.String("to", from))
		}
	}

	return stored(msg), nil
}

// ownerOf resolves the user for a message we sent: our number is the sender
func (p *Processor) ownerOf(ctx context.Context, payload telnyx.MessagePayload) (models.UserContext, error) {
	ours, err := phone.Normalize(payload.From.PhoneNumber)
	if err != nil {
		ours = ""
	}
	return p.resolver.Resolve(ctx, ours)
}

func timestampOr(value string, now time.Time) string {
	if value != "" {
		return value
	}
	return now.UTC().Format(time.RFC3339)
}

func (p *Processor) handleStatus(ctx context.Context, e *telnyx.MessageStatusUpdate) (Outcome, error) {
	payload := e.Message
	if payload.ID == "" {
		return ignored(ReasonUnknownMessage), nil
	}

	user, err := p.ownerOf(ctx, payload)
	if err != nil {
		return Outcome{}, fmt.Errorf("failed to resolve message owner: %w", err)
	}

	now := p.now()
	status := e.Status
	meta := models.Metadata{models.MetaCarrierStatus: string(status)}
	switch status {
	case models.StatusSent:
		meta["sent_at"] = timestampOr(payload.SentAt, now)
	case models.StatusDelivered:
		meta["delivered_at"] = timestampOr(payload.DeliveredAt, now)
	case models.StatusFailed:
		meta["failed_at"] = timestampOr(payload.FailedAt, now)
		meta[models.MetaFailureReason] = payload.Failure()
	}

	msg, err := p.messages.UpdateByCarrierID(ctx, payload.ID, models.MessagePatch{Status: &status, Metadata: meta}, user.UserID)
	if err != nil {
		return Outcome{}, fmt.Errorf("failed to update message status: %w", err)
	}
	if msg == nil {
		logger.Info("Status update for unknown message", zap.String("telnyx_message_id", payload.ID), zap.String("status", string(status)))
		return ignored(ReasonUnknownMessage), nil
	}

	p.publisher.Publish(events.MessageStatus(user.UserID, msg))
	logger.Info("Message status updated",
		zap.String("message_id", msg.ID),
		zap.String("status", string(status)),
	)
	return updated(msg), nil
}

func (p *Processor) handleFinalized(ctx context.Context, e *telnyx.MessageFinalized) (Outcome, error) {
	payload := e.Message
	if payload.ID == "" {
		return ignored(ReasonUnknownMessage), nil
	}

	user, err := p.ownerOf(ctx, payload)
	if err != nil {
		return Outcome{}, fmt.Errorf("failed to resolve message owner: %w", err)
	}

	meta := models.Metadata{
		models.MetaFinalizedAt:   timestampOr(payload.FinalizedAt, p.now()),
		models.MetaCarrierStatus: "finalized",
		models.MetaFinalStatus:   payload.Status,
	}
	msg, err := p.messages.UpdateByCarrierID(ctx, payload.ID, models.MessagePatch{Metadata: meta}, user.UserID)
	if err != nil {
		return Outcome{}, fmt.Errorf("failed to finalize message: %w", err)
	}
	if msg == nil {
		return ignored(ReasonUnknownMessage), nil
	}

	logger.Info("Message finalized", zap.String("message_id", msg.ID), zap.String("final_status", payload.Status))
	return updated(msg), nil
}

func (p *Processor) handleProfileUpdate(ctx context.Context, e *telnyx.ProfileUpdated) (Outcome, error) {
	number, err := phone.Normalize(e.Profile.PhoneNumber)
	if err != nil {
		return ignored(ReasonUnknownProfile), nil
	}

	n, err := p.profiles.MergeMetadata(ctx, number, models.Metadata{
		models.MetaLastWebhookAt:  p.now().UTC().Format(time.RFC3339),
		models.MetaCarrierProfile: e.Profile.ID,
	})
	if err != nil {
		return Outcome{}, fmt.Errorf("failed to update messaging profile: %w", err)
	}
	if n == 0 {
		return ignored(ReasonUnknownProfile), nil
	}

	logger.Info("Messaging profile updated from webhook",
		zap.String("profile_id", number),
		zap.Int64("rows", n),
	)
	return Outcome{Kind: KindUpdated}, nil
}

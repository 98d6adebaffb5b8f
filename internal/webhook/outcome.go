package webhook

import "mindscape-agent/internal/models"

// Kind is what the processor did with a webhook event
type Kind string

const (
	KindStored  Kind = "stored"
	KindDropped Kind = "dropped"
	KindUpdated Kind = "updated"
	KindIgnored Kind = "ignored"
)

// DropReason explains why an event was acknowledged without effect
type DropReason string

const (
	ReasonNone           DropReason = ""
	ReasonInvalidNumber  DropReason = "invalid_number"
	ReasonBlocked        DropReason = "blocked_number"
	ReasonKeyword        DropReason = "keyword_filter"
	ReasonOutsideHours   DropReason = "outside_business_hours"
	ReasonUnknownMessage DropReason = "unknown_message"
	ReasonUnknownProfile DropReason = "unknown_profile"
	ReasonDuplicate      DropReason = "duplicate_delivery"
	ReasonUnhandledType  DropReason = "unhandled_event_type"
)

// Outcome is the soft result of processing one event. Hard failures are
// returned as errors instead.
type Outcome struct {
	Kind    Kind
	Reason  DropReason
	Message *models.Message
}

func stored(msg *models.Message) Outcome {
	return Outcome{Kind: KindStored, Message: msg}
}

func updated(msg *models.Message) Outcome {
	return Outcome{Kind: KindUpdated, Message: msg}
}

func dropped(reason DropReason) Outcome {
	return Outcome{Kind: KindDropped, Reason: reason}
}

func ignored(reason DropReason) Outcome {
	return Outcome{Kind: KindIgnored, Reason: reason}
}

package events

import (
	"encoding/json"
	"time"

	"mindscape-agent/internal/models"
)

const (
	TypeConnected       = "connected"
	TypeHeartbeat       = "heartbeat"
	TypeMessageReceived = "message.received"
	TypeMessageStatus   = "message.status"
	TypeOTPReceived     = "otp.received"
	TypeNewMessage      = "new_message"
)

// Event is a typed notification for live clients. On the wire it is a flat JSON
// object: {"type": ..., <payload keys>, "timestamp": <unix millis>}.
// UserID scopes delivery and is never serialized.
type Event struct {
	Type      string
	UserID    string
	Payload   map[string]interface{}
	Timestamp int64
}

// New builds an event stamped with the current time.
func New(eventType, userID string, payload map[string]interface{}) Event {
	return Event{
		Type:      eventType,
		UserID:    userID,
		Payload:   payload,
		Timestamp: time.Now().UnixMilli(),
	}
}

// IsControl reports whether the event is protocol-internal rather than a business event.
func (e Event) IsControl() bool {
	return e.Type == TypeConnected || e.Type == TypeHeartbeat
}

func (e Event) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(e.Payload)+2)
	for k, v := range e.Payload {
		out[k] = v
	}
	out["type"] = e.Type
	out["timestamp"] = e.Timestamp
	return json.Marshal(out)
}

func Connected(clientID string) Event {
	return New(TypeConnected, "", map[string]interface{}{"clientId": clientID})
}

func Heartbeat() Event {
	return New(TypeHeartbeat, "", nil)
}

// MessageReceived announces a stored inbound message joined with its contact.
func MessageReceived(userID string, msg *models.Message) Event {
	return New(TypeMessageReceived, userID, map[string]interface{}{
		"data": map[string]interface{}{"message": msg},
	})
}

// NewMessage announces a message the user just sent.
func NewMessage(userID string, msg *models.Message) Event {
	return New(TypeNewMessage, userID, map[string]interface{}{
		"data": map[string]interface{}{"message": msg},
	})
}

func MessageStatus(userID string, msg *models.Message) Event {
	data := map[string]interface{}{
		"message_id": msg.ID,
		"status":     msg.Status,
		"message":    msg,
	}
	if msg.CarrierMessageID != nil {
		data["telnyx_message_id"] = *msg.CarrierMessageID
	}
	return New(TypeMessageStatus, userID, map[string]interface{}{"data": data})
}

// OTPReceived carries the extracted one-time code alongside its message.
func OTPReceived(userID string, msg *models.Message, otp string) Event {
	ev := New(TypeOTPReceived, userID, nil)
	ev.Payload = map[string]interface{}{
		"data": map[string]interface{}{
			"message":   msg,
			"contact":   msg.Contact,
			"otp":       otp,
			"timestamp": ev.Timestamp,
		},
	}
	return ev
}

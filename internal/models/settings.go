package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// InboundSettings is the per-user policy applied to inbound messages.
// Exactly one row exists per user, created lazily with defaults.
type InboundSettings struct {
	ID                 string     `json:"id" db:"id"`
	UserID             string     `json:"user_id" db:"user_id"`
	AutoReplyEnabled   bool       `json:"auto_reply_enabled" db:"auto_reply_enabled"`
	AutoReplyMessage   string     `json:"auto_reply_message" db:"auto_reply_message"`
	BusinessHoursOnly  bool       `json:"business_hours_only" db:"business_hours_only"`
	BusinessHoursStart string     `json:"business_hours_start" db:"business_hours_start"` // HH:MM or HH:MM:SS
	BusinessHoursEnd   string     `json:"business_hours_end" db:"business_hours_end"`
	BusinessDays       IntList    `json:"business_days" db:"business_days"` // 0 = Sunday
	KeywordFilters     StringList `json:"keyword_filters" db:"keyword_filters"`
	BlockedNumbers     StringList `json:"blocked_numbers" db:"blocked_numbers"`
	CreatedAt          int64      `json:"created_at" db:"created_at"`
	UpdatedAt          int64      `json:"updated_at" db:"updated_at"`
}

// UpdateInboundSettingsRequest represents a partial settings update
type UpdateInboundSettingsRequest struct {
	AutoReplyEnabled   *bool     `json:"auto_reply_enabled,omitempty"`
	AutoReplyMessage   *string   `json:"auto_reply_message,omitempty"`
	BusinessHoursOnly  *bool     `json:"business_hours_only,omitempty"`
	BusinessHoursStart *string   `json:"business_hours_start,omitempty"`
	BusinessHoursEnd   *string   `json:"business_hours_end,omitempty"`
	BusinessDays       *[]int    `json:"business_days,omitempty"`
	KeywordFilters     *[]string `json:"keyword_filters,omitempty"`
	BlockedNumbers     *[]string `json:"blocked_numbers,omitempty"`
}

// DefaultInboundSettings returns the settings created on first use:
// nothing blocked, no keyword filters, business hours and auto-reply off.
func DefaultInboundSettings(userID string) *InboundSettings {
	now := time.Now().Unix()
	return &InboundSettings{
		ID:                 uuid.New().String(),
		UserID:             userID,
		AutoReplyEnabled:   false,
		AutoReplyMessage:   "",
		BusinessHoursOnly:  false,
		BusinessHoursStart: "09:00:00",
		BusinessHoursEnd:   "17:00:00",
		BusinessDays:       IntList{1, 2, 3, 4, 5},
		KeywordFilters:     StringList{},
		BlockedNumbers:     StringList{},
		CreatedAt:          now,
		UpdatedAt:          now,
	}
}

// Apply copies every non-nil field of req onto s
func (s *InboundSettings) Apply(req *UpdateInboundSettingsRequest) {
	if req.AutoReplyEnabled != nil {
		s.AutoReplyEnabled = *req.AutoReplyEnabled
	}
	if req.AutoReplyMessage != nil {
		s.AutoReplyMessage = *req.AutoReplyMessage
	}
	if req.BusinessHoursOnly != nil {
		s.BusinessHoursOnly = *req.BusinessHoursOnly
	}
	if req.BusinessHoursStart != nil {
		s.BusinessHoursStart = *req.BusinessHoursStart
	}
	if req.BusinessHoursEnd != nil {
		s.BusinessHoursEnd = *req.BusinessHoursEnd
	}
	if req.BusinessDays != nil {
		s.BusinessDays = IntList(*req.BusinessDays)
	}
	if req.KeywordFilters != nil {
		s.KeywordFilters = StringList(*req.KeywordFilters)
	}
	if req.BlockedNumbers != nil {
		s.BlockedNumbers = StringList(*req.BlockedNumbers)
	}
	s.UpdatedAt = time.Now().Unix()
}

// ParseClock parses an HH:MM or HH:MM:SS time of day into the offset from midnight
func ParseClock(value string) (time.Duration, error) {
	for _, layout := range []string{"15:04:05", "15:04"} {
		if t, err := time.Parse(layout, value); err == nil {
			return time.Duration(t.Hour())*time.Hour +
				time.Duration(t.Minute())*time.Minute +
				time.Duration(t.Second())*time.Second, nil
		}
	}
	return 0, fmt.Errorf("invalid time of day %q", value)
}

package webhook

import (
	"regexp"
	"strings"
	"time"

	"mindscape-agent/internal/models"
	"mindscape-agent/internal/phone"
	"mindscape-agent/pkg/logger"

	"go.uber.org/zap"
)

var (
	otpOnly     = regexp.MustCompile(`^\d{4,8}$`)
	otpCode     = regexp.MustCompile(`\b\d{4,8}\b`)
	otpKeywords = []string{"otp", "verification", "code"}
)

// IsBlocked reports whether from is on the blocklist
func IsBlocked(settings *models.InboundSettings, from string) bool {
	for _, blocked := range settings.BlockedNumbers {
		if phone.Equal(blocked, from) {
			return true
		}
	}
	return false
}

// MatchesKeyword returns the first filter keyword contained in text, ignoring case
func MatchesKeyword(settings *models.InboundSettings, text string) (string, bool) {
	lower := strings.ToLower(text)
	for _, keyword := range settings.KeywordFilters {
		k := strings.ToLower(strings.TrimSpace(keyword))
		if k != "" && strings.Contains(lower, k) {
			return keyword, true
		}
	}
	return "", false
}

// WithinBusinessHours reports whether now falls on a configured business day
// inside the [start, end) window. A window whose end is before its start
// spans midnight. Unparseable stored times disable the check.
func WithinBusinessHours(settings *models.InboundSettings, now time.Time) bool {
	start, err := models.ParseClock(settings.BusinessHoursStart)
	if err != nil {
		logger.Warn("Ignoring business hours with invalid start", zap.String("value", settings.BusinessHoursStart))
		return true
	}
	end, err := models.ParseClock(settings.BusinessHoursEnd)
	if err != nil {
		logger.Warn("Ignoring business hours with invalid end", zap.String("value", settings.BusinessHoursEnd))
		return true
	}

	weekday := int(now.Weekday())
	onDay := false
	for _, d := range settings.BusinessDays {
		if d == weekday {
			onDay = true
			break
		}
	}
	if !onDay {
		return false
	}

	offset := time.Duration(now.Hour())*time.Hour +
		time.Duration(now.Minute())*time.Minute +
		time.Duration(now.Second())*time.Second

	if start <= end {
		return offset >= start && offset < end
	}
	return offset >= start || offset < end
}

// IsOTP reports whether text looks like a one-time passcode
func IsOTP(text string) bool {
	trimmed := strings.TrimSpace(text)
	if otpOnly.MatchString(trimmed) {
		return true
	}
	lower := strings.ToLower(trimmed)
	for _, k := range otpKeywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}

// ExtractOTP returns the first 4-8 digit run in text, or the trimmed text when there is none
func ExtractOTP(text string) string {
	trimmed := strings.TrimSpace(text)
	if code := otpCode.FindString(trimmed); code != "" {
		return code
	}
	return trimmed
}

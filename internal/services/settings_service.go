package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"mindscape-agent/internal/db"
	"mindscape-agent/internal/models"
	"mindscape-agent/internal/phone"
	"mindscape-agent/pkg/logger"

	"go.uber.org/zap"
)

// ErrInvalidSettings is returned when an inbound settings update fails validation
var ErrInvalidSettings = errors.New("invalid inbound settings")

// SettingsService manages the per-user inbound message policy
type SettingsService struct {
	repo db.SettingsRepository
}

// NewSettingsService creates a new settings service
func NewSettingsService(repo db.SettingsRepository) *SettingsService {
	return &SettingsService{repo: repo}
}

// Get loads the user's inbound settings, creating the defaults on first use
func (s *SettingsService) Get(ctx context.Context, user models.UserContext) (*models.InboundSettings, error) {
	settings, err := s.repo.GetByUserID(ctx, user.UserID)
	if err != nil {
		return nil, err
	}
	if settings != nil {
		return settings, nil
	}

	settings = models.DefaultInboundSettings(user.UserID)
	err = s.repo.Create(ctx, settings)
	if errors.Is(err, db.ErrDuplicate) {
		settings, err = s.repo.GetByUserID(ctx, user.UserID)
		if err != nil {
			return nil, err
		}
		if settings == nil {
			return nil, fmt.Errorf("inbound settings for %s vanished after duplicate insert", user.UserID)
		}
		return settings, nil
	}
	if err != nil {
		return nil, err
	}

	logger.Info("Created default inbound settings", zap.String("user_id", user.UserID))
	return settings, nil
}

// Update applies a partial update. Blocked numbers are stored in canonical
// form so they compare equal to normalized senders.
func (s *SettingsService) Update(ctx context.Context, user models.UserContext, req *models.UpdateInboundSettingsRequest) (*models.InboundSettings, error) {
	if req == nil {
		return nil, fmt.Errorf("%w: empty update", ErrInvalidSettings)
	}

	settings, err := s.Get(ctx, user)
	if err != nil {
		return nil, err
	}

	if req.BlockedNumbers != nil {
		blocked := make([]string, 0, len(*req.BlockedNumbers))
		for _, raw := range *req.BlockedNumbers {
			number, err := phone.Normalize(raw)
			if err != nil {
				return nil, fmt.Errorf("%w: blocked number %q", ErrInvalidSettings, raw)
			}
			blocked = append(blocked, number)
		}
		req.BlockedNumbers = &blocked
	}
	if req.KeywordFilters != nil {
		keywords := make([]string, 0, len(*req.KeywordFilters))
		for _, k := range *req.KeywordFilters {
			if k = strings.TrimSpace(k); k != "" {
				keywords = append(keywords, k)
			}
		}
		req.KeywordFilters = &keywords
	}

	settings.Apply(req)
	if err := validateSettings(settings); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, settings); err != nil {
		return nil, err
	}

	logger.Info("Inbound settings updated", zap.String("user_id", user.UserID))
	return settings, nil
}

func validateSettings(settings *models.InboundSettings) error {
	start, err := models.ParseClock(settings.BusinessHoursStart)
	if err != nil {
		return fmt.Errorf("%w: business_hours_start: %v", ErrInvalidSettings, err)
	}
	end, err := models.ParseClock(settings.BusinessHoursEnd)
	if err != nil {
		return fmt.Errorf("%w: business_hours_end: %v", ErrInvalidSettings, err)
	}
	// end before start is an overnight window
	if settings.BusinessHoursOnly && start == end {
		return fmt.Errorf("%w: business hours start and end must differ", ErrInvalidSettings)
	}
	for _, day := range settings.BusinessDays {
		if day < 0 || day > 6 {
			return fmt.Errorf("%w: business day %d out of range", ErrInvalidSettings, day)
		}
	}
	if settings.AutoReplyEnabled && strings.TrimSpace(settings.AutoReplyMessage) == "" {
		return fmt.Errorf("%w: auto-reply message is required when auto-reply is enabled", ErrInvalidSettings)
	}
	return nil
}

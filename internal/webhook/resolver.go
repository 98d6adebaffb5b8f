package webhook

import (
	"context"

	"mindscape-agent/internal/db"
	"mindscape-agent/internal/models"
)

// UserResolver maps one of our numbers to the user that owns it
type UserResolver interface {
	Resolve(ctx context.Context, ourNumber string) (models.UserContext, error)
}

// ProfileResolver finds the owner through the active messaging profile whose
// sender number is ourNumber, falling back to a default user.
type ProfileResolver struct {
	profiles db.ProfileRepository
	fallback models.UserContext
}

func NewProfileResolver(profiles db.ProfileRepository, fallback models.UserContext) *ProfileResolver {
	return &ProfileResolver{profiles: profiles, fallback: fallback}
}

func (r *ProfileResolver) Resolve(ctx context.Context, ourNumber string) (models.UserContext, error) {
	if ourNumber == "" {
		return r.fallback, nil
	}
	profile, err := r.profiles.GetByProfileID(ctx, ourNumber)
	if err != nil {
		return models.UserContext{}, err
	}
	if profile == nil {
		return r.fallback, nil
	}
	return models.NewUserContext(profile.UserID), nil
}

package services

import (
	"context"
	"errors"
	"fmt"

	"mindscape-agent/internal/db"
	"mindscape-agent/internal/models"
	"mindscape-agent/internal/phone"
	"mindscape-agent/pkg/logger"

	"go.uber.org/zap"
)

var (
	// ErrContactExists is returned when creating a contact whose number is already saved
	ErrContactExists = errors.New("contact already exists")
	// ErrContactNotFound is returned when a contact does not exist for the user
	ErrContactNotFound = errors.New("contact not found")
)

// ContactService manages the user's address book
type ContactService struct {
	repo db.ContactRepository
}

// NewContactService creates a new contact service
func NewContactService(repo db.ContactRepository) *ContactService {
	return &ContactService{repo: repo}
}

// Resolve returns the contact for an already normalized number, creating it
// when missing. A concurrent creator winning the unique constraint is not an
// error: the row it inserted is returned instead.
func (s *ContactService) Resolve(ctx context.Context, user models.UserContext, phoneNumber string, name *string) (*models.Contact, bool, error) {
	contact, err := s.repo.GetByPhone(ctx, phoneNumber, user.UserID)
	if err != nil {
		return nil, false, err
	}
	if contact != nil {
		return contact, false, nil
	}

	contact = models.NewContact(phoneNumber, user.UserID, name)
	err = s.repo.Create(ctx, contact)
	if errors.Is(err, db.ErrDuplicate) {
		logger.Debug("Contact created concurrently, re-reading",
			zap.String("phone_number", phoneNumber),
			zap.String("user_id", user.UserID),
		)
		contact, err = s.repo.GetByPhone(ctx, phoneNumber, user.UserID)
		if err != nil {
			return nil, false, err
		}
		if contact == nil {
			return nil, false, fmt.Errorf("contact %s vanished after duplicate insert", phoneNumber)
		}
		return contact, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return contact, true, nil
}

// Create saves a new contact from user input
func (s *ContactService) Create(ctx context.Context, user models.UserContext, req models.CreateContactRequest) (*models.Contact, error) {
	number, err := phone.Normalize(req.PhoneNumber)
	if err != nil {
		return nil, err
	}

	contact := models.NewContact(number, user.UserID, req.Name)
	contact.AvatarURL = req.AvatarURL
	if err := s.repo.Create(ctx, contact); err != nil {
		if errors.Is(err, db.ErrDuplicate) {
			return nil, ErrContactExists
		}
		return nil, err
	}

	logger.Info("Contact created",
		zap.String("contact_id", contact.ID),
		zap.String("user_id", user.UserID),
	)
	return contact, nil
}

// Get returns a single contact
func (s *ContactService) Get(ctx context.Context, user models.UserContext, id string) (*models.Contact, error) {
	contact, err := s.repo.GetByID(ctx, id, user.UserID)
	if err != nil {
		return nil, err
	}
	if contact == nil {
		return nil, ErrContactNotFound
	}
	return contact, nil
}

// List returns the user's contacts, most recently updated first
func (s *ContactService) List(ctx context.Context, user models.UserContext, limit, offset int) ([]*models.Contact, error) {
	return s.repo.List(ctx, user.UserID, limit, offset)
}

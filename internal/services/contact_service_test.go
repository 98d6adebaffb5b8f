package services

import (
	"context"
	"sync"
	"testing"

	"mindscape-agent/internal/db"
	"mindscape-agent/internal/models"
	"mindscape-agent/internal/phone"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContactService_Create(t *testing.T) {
	s := setupTestServices(t)
	ctx := context.Background()
	name := "Bob"

	contact, err := s.contacts.Create(ctx, testUser, models.CreateContactRequest{PhoneNumber: "(555) 123-4567", Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "+15551234567", contact.PhoneNumber)
	assert.Equal(t, "Bob", contact.DisplayName())

	_, err = s.contacts.Create(ctx, testUser, models.CreateContactRequest{PhoneNumber: "555-123-4567"})
	assert.ErrorIs(t, err, ErrContactExists)

	_, err = s.contacts.Create(ctx, testUser, models.CreateContactRequest{PhoneNumber: "nope"})
	assert.ErrorIs(t, err, phone.ErrInvalidPhoneNumber)

	// Same number under another user is a different contact
	_, err = s.contacts.Create(ctx, models.NewUserContext("user-2"), models.CreateContactRequest{PhoneNumber: "5551234567"})
	assert.NoError(t, err)
}

func TestContactService_Get(t *testing.T) {
	s := setupTestServices(t)
	ctx := context.Background()

	created, err := s.contacts.Create(ctx, testUser, models.CreateContactRequest{PhoneNumber: "+15551234567"})
	require.NoError(t, err)

	got, err := s.contacts.Get(ctx, testUser, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)

	_, err = s.contacts.Get(ctx, models.NewUserContext("user-2"), created.ID)
	assert.ErrorIs(t, err, ErrContactNotFound)
}

func TestContactService_Resolve(t *testing.T) {
	s := setupTestServices(t)
	ctx := context.Background()
	name := models.DefaultContactName("+15551234567")

	first, created, err := s.contacts.Resolve(ctx, testUser, "+15551234567", &name)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "Contact +15551234567", first.DisplayName())

	second, created, err := s.contacts.Resolve(ctx, testUser, "+15551234567", nil)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
}

func TestContactService_ResolveConcurrent(t *testing.T) {
	s := setupTestServices(t)
	ctx := context.Background()

	const workers = 8
	ids := make([]string, workers)
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			contact, _, err := s.contacts.Resolve(ctx, testUser, "+15557654321", nil)
			errs[i] = err
			if contact != nil {
				ids[i] = contact.ID
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < workers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, ids[0], ids[i])
	}

	contacts, err := s.contacts.List(ctx, testUser, 0, 0)
	require.NoError(t, err)
	assert.Len(t, contacts, 1)
}

// staleContacts reports the first lookup as a miss, as if another writer
// inserted the row between our read and our insert.
type staleContacts struct {
	db.ContactRepository
	missed bool
}

func (r *staleContacts) GetByPhone(ctx context.Context, phoneNumber, userID string) (*models.Contact, error) {
	if !r.missed {
		r.missed = true
		return nil, nil
	}
	return r.ContactRepository.GetByPhone(ctx, phoneNumber, userID)
}

func TestContactService_ResolveLosesInsertRace(t *testing.T) {
	database := db.SetupTestDB(t)
	repo := db.NewContactRepository(database.DB())
	ctx := context.Background()

	name := "Alice"
	existing := models.NewContact("+15557654321", testUser.UserID, &name)
	require.NoError(t, repo.Create(ctx, existing))

	svc := NewContactService(&staleContacts{ContactRepository: repo})
	contact, created, err := svc.Resolve(ctx, testUser, "+15557654321", nil)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, existing.ID, contact.ID)
	assert.Equal(t, "Alice", contact.DisplayName())

	contacts, err := repo.List(ctx, testUser.UserID, 0, 0)
	require.NoError(t, err)
	assert.Len(t, contacts, 1)
}

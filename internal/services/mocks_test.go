package services

import (
	"context"
	"sync"
	"testing"

	"mindscape-agent/internal/db"
	"mindscape-agent/internal/events"
	"mindscape-agent/internal/models"
	"mindscape-agent/internal/telnyx"

	"github.com/stretchr/testify/mock"
)

// MockSender is a mock implementation of MessageSender
type MockSender struct {
	mock.Mock
}

func (m *MockSender) SendMessage(ctx context.Context, req telnyx.SendMessageRequest) (*telnyx.MessagePayload, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*telnyx.MessagePayload), args.Error(1)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(ev events.Event) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return 1
}

func (p *recordingPublisher) published() []events.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]events.Event(nil), p.events...)
}

type testServices struct {
	database  *db.Database
	contacts  *ContactService
	settings  *SettingsService
	profiles  *ProfileService
	messages  *MessageService
	sender    *MockSender
	publisher *recordingPublisher
}

func setupTestServices(t *testing.T) *testServices {
	t.Helper()
	database := db.SetupTestDB(t)
	sender := &MockSender{}
	publisher := &recordingPublisher{}

	contacts := NewContactService(db.NewContactRepository(database.DB()))
	profiles := NewProfileService(db.NewProfileRepository(database.DB()), nil)
	return &testServices{
		database:  database,
		contacts:  contacts,
		settings:  NewSettingsService(db.NewSettingsRepository(database.DB())),
		profiles:  profiles,
		messages:  NewMessageService(db.NewMessageRepository(database.DB()), contacts, profiles, sender, publisher),
		sender:    sender,
		publisher: publisher,
	}
}

var testUser = models.NewUserContext("user-1")

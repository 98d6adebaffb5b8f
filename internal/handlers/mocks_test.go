package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"mindscape-agent/internal/db"
	"mindscape-agent/internal/models"
	"mindscape-agent/internal/telnyx"
	"mindscape-agent/internal/webhook"
	"mindscape-agent/pkg/middleware"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var testUser = models.NewUserContext("user-1")

// MockAuthenticator is a mock implementation of Authenticator
type MockAuthenticator struct {
	mock.Mock
}

func (m *MockAuthenticator) Authenticate(username, password, totpCode string) (*models.User, error) {
	args := m.Called(username, password, totpCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

// MockMessageService is a mock implementation of MessageServiceInterface
type MockMessageService struct {
	mock.Mock
}

func (m *MockMessageService) Send(ctx context.Context, user models.UserContext, req models.SendMessageRequest) (*models.Message, error) {
	args := m.Called(user, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Message), args.Error(1)
}

func (m *MockMessageService) List(ctx context.Context, user models.UserContext, filter db.MessageFilter) ([]*models.Message, error) {
	args := m.Called(user, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Message), args.Error(1)
}

// MockContactService is a mock implementation of ContactServiceInterface
type MockContactService struct {
	mock.Mock
}

func (m *MockContactService) Create(ctx context.Context, user models.UserContext, req models.CreateContactRequest) (*models.Contact, error) {
	args := m.Called(user, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Contact), args.Error(1)
}

func (m *MockContactService) Get(ctx context.Context, user models.UserContext, id string) (*models.Contact, error) {
	args := m.Called(user, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Contact), args.Error(1)
}

func (m *MockContactService) List(ctx context.Context, user models.UserContext, limit, offset int) ([]*models.Contact, error) {
	args := m.Called(user, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Contact), args.Error(1)
}

// MockSettingsService is a mock implementation of SettingsServiceInterface
type MockSettingsService struct {
	mock.Mock
}

func (m *MockSettingsService) Get(ctx context.Context, user models.UserContext) (*models.InboundSettings, error) {
	args := m.Called(user)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.InboundSettings), args.Error(1)
}

func (m *MockSettingsService) Update(ctx context.Context, user models.UserContext, req *models.UpdateInboundSettingsRequest) (*models.InboundSettings, error) {
	args := m.Called(user, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.InboundSettings), args.Error(1)
}

// MockProfileService is a mock implementation of ProfileServiceInterface
type MockProfileService struct {
	mock.Mock
}

func (m *MockProfileService) List(ctx context.Context, user models.UserContext) ([]*models.MessagingProfile, error) {
	args := m.Called(user)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.MessagingProfile), args.Error(1)
}

func (m *MockProfileService) Create(ctx context.Context, user models.UserContext, req models.CreateProfileRequest) (*models.MessagingProfile, error) {
	args := m.Called(user, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.MessagingProfile), args.Error(1)
}

func (m *MockProfileService) UpdatePhone(ctx context.Context, user models.UserContext, phoneNumber string) (*models.MessagingProfile, error) {
	args := m.Called(user, phoneNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.MessagingProfile), args.Error(1)
}

func (m *MockProfileService) Remote(ctx context.Context) ([]telnyx.ProfilePayload, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]telnyx.ProfilePayload), args.Error(1)
}

// MockProcessor is a mock implementation of EventProcessor
type MockProcessor struct {
	mock.Mock
}

func (m *MockProcessor) Process(ctx context.Context, ev telnyx.WebhookEvent) (webhook.Outcome, error) {
	args := m.Called(ev)
	return args.Get(0).(webhook.Outcome), args.Error(1)
}

// MockVerifier is a mock implementation of SignatureVerifier
type MockVerifier struct {
	mock.Mock
}

func (m *MockVerifier) Verify(body []byte, signatureB64, timestamp string, now time.Time) error {
	args := m.Called(signatureB64, timestamp)
	return args.Error(0)
}

// newTestEngine returns a gin engine whose requests run as testUser
func newTestEngine() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(middleware.UserContextKey, testUser)
		c.Next()
	})
	return r
}

func doJSON(t *testing.T, r http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

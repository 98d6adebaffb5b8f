package router

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"mindscape-agent/internal/cache"
	"mindscape-agent/internal/config"
	"mindscape-agent/internal/db"
	"mindscape-agent/internal/events"
	"mindscape-agent/internal/handlers"
	"mindscape-agent/internal/models"
	"mindscape-agent/internal/services"
	"mindscape-agent/internal/telnyx"
	"mindscape-agent/internal/webhook"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCarrier struct {
	mu   sync.Mutex
	sent []telnyx.SendMessageRequest
}

func (f *fakeCarrier) SendMessage(_ context.Context, req telnyx.SendMessageRequest) (*telnyx.MessagePayload, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, req)
	return &telnyx.MessagePayload{
		ID: "carrier-" + req.To,
		To: telnyx.Recipients{{PhoneNumber: req.To, Status: "queued"}},
	}, nil
}

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.JWT.Secret = "router-test-secret"
	cfg.Auth.UserID = "user-1"
	cfg.Auth.Username = "mindscape"
	cfg.Auth.Password = "correct-horse"
	return cfg
}

type testStack struct {
	router      *Router
	broadcaster *events.Broadcaster
	carrier     *fakeCarrier
}

func newTestStack(t *testing.T, cfg *config.Config) *testStack {
	t.Helper()
	gin.SetMode(gin.TestMode)

	database := db.SetupTestDB(t)
	broadcaster := events.NewBroadcaster()
	carrier := &fakeCarrier{}

	messageRepo := db.NewMessageRepository(database.DB())
	profileRepo := db.NewProfileRepository(database.DB())
	contacts := services.NewContactService(db.NewContactRepository(database.DB()))
	settings := services.NewSettingsService(db.NewSettingsRepository(database.DB()))
	profiles := services.NewProfileService(profileRepo, nil)
	messages := services.NewMessageService(messageRepo, contacts, profiles, carrier, broadcaster)

	auth, err := services.NewAuthService(cfg)
	require.NoError(t, err)

	processor := webhook.NewProcessor(webhook.Dependencies{
		Settings:  settings,
		Contacts:  contacts,
		Messages:  messageRepo,
		Profiles:  profileRepo,
		Replier:   messages,
		Publisher: broadcaster,
		Resolver:  webhook.NewProfileResolver(profileRepo, models.NewUserContext(cfg.Auth.UserID)),
		Replay:    cache.NewMemoryReplayGuard(time.Minute),
	})

	r := NewRouter(cfg, Handlers{
		Health:      handlers.NewHealthHandler(database, broadcaster, "test"),
		Auth:        handlers.NewAuthHandler(cfg, auth),
		Webhook:     handlers.NewWebhookHandler(processor, nil),
		Events:      handlers.NewEventsHandler(broadcaster, time.Minute, 8, "*"),
		Messages:    handlers.NewMessageHandler(messages),
		Contacts:    handlers.NewContactHandler(contacts),
		Settings:    handlers.NewSettingsHandler(settings),
		Profiles:    handlers.NewProfileHandler(profiles),
		TestInbound: handlers.NewTestInboundHandler(processor),
	})
	return &testStack{router: r, broadcaster: broadcaster, carrier: carrier}
}

func (s *testStack) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testStack) login(t *testing.T) string {
	t.Helper()
	w := s.do(t, http.MethodPost, "/api/auth/login", "", models.LoginRequest{Username: "mindscape", Password: "correct-horse"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func TestRouter_PublicEndpoints(t *testing.T) {
	s := newTestStack(t, testConfig())

	w := s.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	w = s.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "mindscape_http_requests_total")

	w = s.do(t, http.MethodGet, "/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"Not found"}`, w.Body.String())

	w = s.do(t, http.MethodDelete, "/health", "", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestRouter_ProtectedRoutesRequireToken(t *testing.T) {
	s := newTestStack(t, testConfig())

	for _, path := range []string{"/api/messages", "/api/contacts", "/api/settings/inbound", "/api/messaging-profiles", "/api/events"} {
		w := s.do(t, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
	}
}

func TestRouter_SendAndList(t *testing.T) {
	s := newTestStack(t, testConfig())
	token := s.login(t)

	w := s.do(t, http.MethodPost, "/api/messages/send", token, models.SendMessageRequest{
		To:   "(555) 111-2222",
		From: "+13076249136",
		Text: "hello",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var sent struct {
		Success  bool   `json:"success"`
		TelnyxID string `json:"telnyx_id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sent))
	assert.True(t, sent.Success)
	assert.Equal(t, "carrier-+15551112222", sent.TelnyxID)

	w = s.do(t, http.MethodGet, "/api/messages", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var list struct {
		Messages []models.Message `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list.Messages, 1)
	assert.Equal(t, models.DirectionOutbound, list.Messages[0].Direction)
	require.NotNil(t, list.Messages[0].Contact)
	assert.Equal(t, "+15551112222", list.Messages[0].Contact.PhoneNumber)
}

func TestRouter_WebhookInboundThenStatus(t *testing.T) {
	s := newTestStack(t, testConfig())
	token := s.login(t)

	inbound := `{"data":{"event_type":"message.received","id":"evt-1","payload":{"id":"in-1","from":{"phone_number":"+15551112222"},"to":[{"phone_number":"+13076249136"}],"text":"Your code is 482913"}}}`
	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/telnyx", strings.NewReader(inbound))
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"received":true}`, w.Body.String())

	w = s.do(t, http.MethodGet, "/api/messages", token, nil)
	var list struct {
		Messages []models.Message `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list.Messages, 1)
	assert.Equal(t, models.DirectionInbound, list.Messages[0].Direction)
	assert.Equal(t, true, list.Messages[0].Metadata[models.MetaIsOTP])

	// Unknown carrier ids are acknowledged without effect
	status := `{"data":{"event_type":"message.delivered","id":"evt-2","payload":{"id":"unknown","from":{"phone_number":"+13076249136"},"to":[{"phone_number":"+15551112222"}]}}}`
	req = httptest.NewRequest(http.MethodPost, "/api/webhooks/telnyx", strings.NewReader(status))
	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_TestInboundOnlyOutsideProduction(t *testing.T) {
	dev := newTestStack(t, testConfig())
	token := dev.login(t)

	body := handlers.SimulateInboundRequest{FromNumber: "5551112222", ToNumber: "3076249136", MessageText: "ping"}
	w := dev.do(t, http.MethodPost, "/api/test/inbound", token, body)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())

	prodCfg := testConfig()
	prodCfg.Env = config.EnvProduction
	prod := newTestStack(t, prodCfg)
	token = prod.login(t)

	w = prod.do(t, http.MethodPost, "/api/test/inbound", token, body)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouter_ForceHTTPSExemptsWebhook(t *testing.T) {
	cfg := testConfig()
	cfg.Server.ForceHTTPS = true
	s := newTestStack(t, cfg)

	w := s.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusPermanentRedirect, w.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/telnyx", strings.NewReader(`{"data":{"event_type":"message.finalized","id":"evt-9","payload":{"id":"x"}}}`))
	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

package telnyx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"mindscape-agent/internal/phone"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_SendMessage(t *testing.T) {
	var received SendMessageRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/messages", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"id":"msg-123","record_type":"message","direction":"outbound",
			"type":"SMS","from":{"phone_number":"+13076249136"},
			"to":[{"phone_number":"+15559998888","status":"queued"}],"text":"Hi"}}`))
	}))
	defer server.Close()

	client := NewClient("test-key", server.URL, time.Second)
	msg, err := client.SendMessage(context.Background(), SendMessageRequest{
		From: "(307) 624-9136",
		To:   "5559998888",
		Text: "Hi",
	})
	require.NoError(t, err)
	require.NotNil(t, msg)
	assert.Equal(t, "msg-123", msg.ID)
	assert.Equal(t, "+15559998888", msg.To.First())
	assert.Equal(t, "queued", msg.To[0].Status)

	assert.Equal(t, "+13076249136", received.From)
	assert.Equal(t, "+15559998888", received.To)
	assert.Equal(t, "Hi", received.Text)
	assert.Nil(t, received.MediaURLs)
}

func TestClient_SendMessageCarrierError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"errors":[{"code":"40310","title":"Invalid 'to' address","detail":"The 'to' address is not valid"}]}`))
	}))
	defer server.Close()

	client := NewClient("test-key", server.URL, time.Second)
	msg, err := client.SendMessage(context.Background(), SendMessageRequest{
		From: "+13076249136",
		To:   "+15559998888",
		Text: "Hi",
	})
	assert.Nil(t, msg)

	var carrierErr *CarrierError
	require.True(t, errors.As(err, &carrierErr))
	assert.Equal(t, http.StatusUnprocessableEntity, carrierErr.StatusCode)
	assert.Equal(t, "The 'to' address is not valid", carrierErr.Detail)
	assert.Contains(t, err.Error(), "422")
}

func TestClient_SendMessageUnknownErrorBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`oops`))
	}))
	defer server.Close()

	client := NewClient("test-key", server.URL, time.Second)
	_, err := client.SendMessage(context.Background(), SendMessageRequest{From: "+13076249136", To: "+15559998888", Text: "Hi"})

	var carrierErr *CarrierError
	require.True(t, errors.As(err, &carrierErr))
	assert.Equal(t, "Unknown error", carrierErr.Detail)
}

func TestClient_SendMessageValidation(t *testing.T) {
	client := NewClient("", "http://127.0.0.1:0", time.Second)
	_, err := client.SendMessage(context.Background(), SendMessageRequest{From: "+13076249136", To: "+15559998888"})
	assert.ErrorIs(t, err, ErrMissingAPIKey)

	client = NewClient("test-key", "http://127.0.0.1:0", time.Second)
	_, err = client.SendMessage(context.Background(), SendMessageRequest{From: "+13076249136", To: "12"})
	assert.ErrorIs(t, err, phone.ErrInvalidPhoneNumber)
}

func TestClient_ListMessagingProfiles(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/messaging_profiles", r.URL.Path)
		_, _ = w.Write([]byte(`{"data":[{"id":"prof-1","name":"Main","enabled":true,"webhook_url":"https://example.com/hook"}]}`))
	}))
	defer server.Close()

	client := NewClient("test-key", server.URL+"/", time.Second)
	profiles, err := client.ListMessagingProfiles(context.Background())
	require.NoError(t, err)
	require.Len(t, profiles, 1)
	assert.Equal(t, "prof-1", profiles[0].ID)
	assert.True(t, profiles[0].Enabled)
	assert.Equal(t, "https://example.com/hook", profiles[0].WebhookURL)
}

func TestNewClientDefaults(t *testing.T) {
	client := NewClient("key", "", 0)
	assert.Equal(t, DefaultBaseURL, client.baseURL)
	assert.Equal(t, 15*time.Second, client.httpClient.Timeout)
}

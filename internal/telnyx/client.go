package telnyx

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"mindscape-agent/internal/phone"
	"mindscape-agent/pkg/logger"

	"go.uber.org/zap"
)

const DefaultBaseURL = "https://api.telnyx.com/v2"

var ErrMissingAPIKey = errors.New("telnyx API key is not configured")

// CarrierError is a non-2xx response from the carrier API.
type CarrierError struct {
	StatusCode int
	Detail     string
}

func (e *CarrierError) Error() string {
	return fmt.Sprintf("telnyx API error (status %d): %s", e.StatusCode, e.Detail)
}

type SendMessageRequest struct {
	From               string   `json:"from"`
	To                 string   `json:"to"`
	Text               string   `json:"text,omitempty"`
	MediaURLs          []string `json:"media_urls,omitempty"`
	WebhookURL         string   `json:"webhook_url,omitempty"`
	WebhookFailoverURL string   `json:"webhook_failover_url,omitempty"`
}

// Client calls the carrier's REST API.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

func NewClient(apiKey, baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// SendMessage submits an outbound SMS/MMS. Both numbers are normalized before sending.
func (c *Client) SendMessage(ctx context.Context, req SendMessageRequest) (*MessagePayload, error) {
	if c.apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	from, err := phone.Normalize(req.From)
	if err != nil {
		return nil, fmt.Errorf("invalid sender: %w", err)
	}
	to, err := phone.Normalize(req.To)
	if err != nil {
		return nil, fmt.Errorf("invalid recipient: %w", err)
	}
	req.From = from
	req.To = to

	logger.Debug("Sending message via carrier",
		zap.String("from", req.From),
		zap.String("to", req.To),
		zap.Int("media", len(req.MediaURLs)),
	)

	var result struct {
		Data MessagePayload `json:"data"`
	}
	if err := c.do(ctx, http.MethodPost, "/messages", req, &result); err != nil {
		return nil, err
	}
	return &result.Data, nil
}

// ListMessagingProfiles returns the messaging profiles configured on the carrier account.
func (c *Client) ListMessagingProfiles(ctx context.Context) ([]ProfilePayload, error) {
	if c.apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	var result struct {
		Data []ProfilePayload `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/messaging_profiles", nil, &result); err != nil {
		return nil, err
	}
	return result.Data, nil
}

func (c *Client) do(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("telnyx request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("failed to read telnyx response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &CarrierError{StatusCode: resp.StatusCode, Detail: errorDetail(respBody)}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to decode telnyx response: %w", err)
	}
	return nil
}

func errorDetail(body []byte) string {
	var errResp struct {
		Errors []APIError `json:"errors"`
	}
	if err := json.Unmarshal(body, &errResp); err == nil && len(errResp.Errors) > 0 {
		if errResp.Errors[0].Detail != "" {
			return errResp.Errors[0].Detail
		}
		if errResp.Errors[0].Title != "" {
			return errResp.Errors[0].Title
		}
	}
	return "Unknown error"
}

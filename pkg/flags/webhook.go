package flags

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// WebhookPayload is the JSON body posted by WebhookSink.
type WebhookPayload struct {
	Assets []string  `json:"assets"`
	Time   time.Time `json:"time"`
}

// WebhookSink posts raised flags to an HTTP endpoint.
type WebhookSink struct {
	url    string
	token  string
	client *http.Client
}

// NewWebhookSink creates a webhook sink. An empty token sends no Authorization header.
func NewWebhookSink(url, token string, timeout time.Duration) *WebhookSink {
	return &WebhookSink{url: url, token: token, client: &http.Client{Timeout: timeout}}
}

// Raise implements Sink.
func (s *WebhookSink) Raise(ctx context.Context, assets []common.Address) error {
	body, err := json.Marshal(WebhookPayload{Assets: hexes(assets), Time: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("failed to encode webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to post webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("%w: %d: %s", ErrUnexpectedStatus, resp.StatusCode, string(msg))
	}
	return nil
}

func newWebhookFromConfig(_ context.Context, config map[string]interface{}) (Sink, error) {
	url, _ := config["url"].(string)
	if url == "" {
		return nil, fmt.Errorf("%w: url is required", ErrInvalidConfig)
	}
	var token string
	if env, ok := config["token_env"].(string); ok && env != "" {
		token = os.Getenv(env)
	}
	timeout := 5 * time.Second
	if ms, ok := config["timeout_ms"].(int); ok && ms > 0 {
		timeout = time.Duration(ms) * time.Millisecond
	}
	return NewWebhookSink(url, token, timeout), nil
}

func init() {
	Register("webhook", newWebhookFromConfig)
}

package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrUnexpectedStatusCode is returned when the webhook endpoint answers
// outside the 2xx range.
var ErrUnexpectedStatusCode = errors.New("unexpected status code")

// Webhook POSTs the whole batch as JSON to an HTTP endpoint.
type Webhook struct {
	client *http.Client
	url    string
	token  string
}

// NewWebhook creates a webhook sink. A non-empty token is attached as a
// bearer Authorization header.
func NewWebhook(url, token string) *Webhook {
	return &Webhook{
		client: &http.Client{Timeout: 30 * time.Second},
		url:    url,
		token:  token,
	}
}

// Write posts the batch and checks for a 2xx answer.
func (w *Webhook) Write(ctx context.Context, batch *Batch) error {
	body, err := json.Marshal(batch)
	if err != nil {
		return fmt.Errorf("failed to marshal batch: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	if w.token != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", w.token))
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}

	defer resp.Body.Close()

	// Drain so the connection can be reused.
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1024*1024))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: %d", ErrUnexpectedStatusCode, resp.StatusCode)
	}

	return nil
}

// Close is a no-op; each Write is a standalone request.
func (w *Webhook) Close() error {
	return nil
}

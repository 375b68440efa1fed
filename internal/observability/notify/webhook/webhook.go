// Package webhook delivers dispatch failure notifications to a generic JSON
// webhook (ops channel).
package webhook

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

	"github.com/arkline/erp-api/internal/observability/notify"
)

// Config captures webhook sink behaviour.
type Config struct {
	URL        string
	Timeout    time.Duration
	RetryLimit int
	Client     *http.Client
}

// Client posts dispatch failures to a webhook with bounded linear backoff.
type Client struct {
	url        string
	retryLimit int
	client     *http.Client
}

var _ notify.Sink = (*Client)(nil)

// NewClient builds a webhook sink. Callers should pass a validated config.
func NewClient(cfg Config) (*Client, error) {
	url := strings.TrimSpace(cfg.URL)
	if url == "" {
		return nil, errors.New("webhook url is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	retries := cfg.RetryLimit
	if retries < 0 {
		retries = 0
	}
	hc := cfg.Client
	if hc == nil {
		hc = &http.Client{Timeout: timeout}
	}

	return &Client{
		url:        url,
		retryLimit: retries,
		client:     hc,
	}, nil
}

// SendDispatchFailure posts the payload as JSON.
func (c *Client) SendDispatchFailure(ctx context.Context, payload notify.DispatchFailurePayload) error {
	if payload.OccurredAt.IsZero() {
		payload.OccurredAt = time.Now()
	}
	if payload.Severity == "" {
		payload.Severity = notify.SeverityWarning
	}

	body, err := json.Marshal(map[string]any{
		"event":       "dispatch_failure",
		"dispatch_id": payload.DispatchID,
		"invoice_id":  payload.InvoiceID,
		"kind":        payload.Kind,
		"recipient":   payload.Recipient,
		"attempts":    payload.Attempts,
		"error":       payload.Error,
		"error_code":  payload.ErrorCode,
		"severity":    payload.Severity,
		"occurred_at": payload.OccurredAt.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("encode webhook payload: %w", err)
	}

	attempts := c.retryLimit + 1
	var lastErr error
	for attempt := range attempts {
		lastErr = c.post(ctx, body)
		if lastErr == nil {
			return nil
		}
		if attempt < attempts-1 {
			// Linear backoff to avoid thundering retries.
			delay := time.Duration(attempt+1) * 200 * time.Millisecond
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				if !timer.Stop() {
					<-timer.C
				}
				return ctx.Err()
			case <-timer.C:
			}
		}
	}
	return lastErr
}

func (c *Client) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("webhook returned %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	return nil
}

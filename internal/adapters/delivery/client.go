// Package delivery contains the HTTP client for the mail relay service. The
// relay owns SMTP; this side only submits rendered messages and classifies
// failures as timeout versus transport.
package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	apperrors "github.com/arkline/erp-api/internal/errors"
	"github.com/arkline/erp-api/internal/ports"
)

// Config groups settings for Client.
type Config struct {
	// BaseURL is the mail relay root, e.g. http://mailrelay:8190.
	BaseURL string

	// Token, when set, is sent as a bearer credential.
	Token string

	// HTTPClient overrides the transport; nil uses http.DefaultClient. The
	// caller's context carries the per-send deadline.
	HTTPClient *http.Client
}

// Client submits messages to the relay's send endpoint. It performs no
// retries; retry policy belongs to the dispatch queue.
type Client struct {
	baseURL string
	token   string
	httpc   *http.Client
}

var _ ports.DeliveryClient = (*Client)(nil)

// NewClient constructs a Client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, apperrors.New(apperrors.ErrCodeConfiguration, "mail relay base URL is required")
	}
	httpc := cfg.HTTPClient
	if httpc == nil {
		httpc = http.DefaultClient
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.Token,
		httpc:   httpc,
	}, nil
}

// sendResponse mirrors the relay's reply envelope: success carries the
// provider message id, failure carries the upstream error text.
type sendResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	MessageID string `json:"messageId"`
	Error     string `json:"error"`
}

// Send posts the message to the relay. A context deadline surfaces as
// delivery_timeout; every other failure as delivery_transport.
func (c *Client) Send(ctx context.Context, msg ports.EmailMessage) (string, error) {
	body, err := json.Marshal(msg)
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.ErrCodeInternal, "encode relay request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/send-email", bytes.NewReader(body))
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.ErrCodeInternal, "build relay request")
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", apperrors.
				Wrap(err, apperrors.ErrCodeDeliveryTimeout, "mail relay did not respond in time").
				WithRemediation("check the relay's SMTP upstream; slow upstreams stall the whole send")
		}
		return "", apperrors.Wrap(err, apperrors.ErrCodeDeliveryTransport, "mail relay unreachable")
	}
	defer resp.Body.Close()

	raw, readErr := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if readErr != nil {
		return "", apperrors.Wrap(readErr, apperrors.ErrCodeDeliveryTransport, "read relay response")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail := relayErrorDetail(raw)
		return "", apperrors.Newf(apperrors.ErrCodeDeliveryTransport,
			"mail relay rejected the message: status %d: %s", resp.StatusCode, detail)
	}

	var out sendResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", apperrors.Wrap(err, apperrors.ErrCodeDeliveryTransport, "decode relay response")
	}
	if !out.Success {
		detail := out.Error
		if detail == "" {
			detail = "relay reported failure without detail"
		}
		return "", apperrors.Newf(apperrors.ErrCodeDeliveryTransport, "mail relay reported failure: %s", detail)
	}
	return out.MessageID, nil
}

func relayErrorDetail(raw []byte) string {
	var re sendResponse
	if err := json.Unmarshal(raw, &re); err == nil && re.Error != "" {
		return re.Error
	}
	detail := strings.TrimSpace(string(raw))
	if len(detail) > 200 {
		detail = detail[:200]
	}
	if detail == "" {
		detail = "no response body"
	}
	return fmt.Sprintf("%q", detail)
}

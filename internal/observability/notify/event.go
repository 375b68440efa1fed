// Package notify defines the ops notification contract for dispatch
// failures. Sinks are an operator channel, never part of the delivery path.
package notify

import (
	"context"
	"time"
)

// Severity constants recognised by downstream sinks.
const (
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// DispatchFailurePayload captures the canonical data emitted when an
// outbound notification fails.
type DispatchFailurePayload struct {
	DispatchID string
	InvoiceID  string
	Kind       string
	Recipient  string
	Attempts   int
	Error      string
	ErrorCode  string
	Severity   string
	OccurredAt time.Time
}

// Sink describes a destination capable of consuming dispatch failure
// notifications.
type Sink interface {
	SendDispatchFailure(ctx context.Context, payload DispatchFailurePayload) error
}

// SinkFunc adapts a function to the Sink interface (useful for tests).
type SinkFunc func(ctx context.Context, payload DispatchFailurePayload) error

// SendDispatchFailure implements the Sink interface.
func (f SinkFunc) SendDispatchFailure(ctx context.Context, payload DispatchFailurePayload) error {
	if f == nil {
		return nil
	}
	return f(ctx, payload)
}

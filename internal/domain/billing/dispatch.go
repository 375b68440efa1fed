package billing

import "time"

// DispatchKind names the business event behind an outbound notification.
type DispatchKind string

const (
	DispatchKindInvoiceCreated  DispatchKind = "invoice_created"
	DispatchKindInvoiceReminder DispatchKind = "invoice_reminder"
	DispatchKindClientWelcome   DispatchKind = "client_welcome"
	DispatchKindPasswordReset   DispatchKind = "password_reset"
)

// DispatchStatus is the observable state of a queued notification. Queueing a
// dispatch gives every send a durable, queryable record instead of an
// untracked goroutine.
type DispatchStatus string

const (
	DispatchStatusPending DispatchStatus = "pending"
	DispatchStatusSent    DispatchStatus = "sent"
	DispatchStatusFailed  DispatchStatus = "failed"
)

// Dispatch is one queued outbound notification. InvoiceID is empty for kinds
// that are not invoice-backed (client welcome, password reset). Delivery is
// at-least-once:
// re-enqueueing the same invoice produces a new row and a new send.
type Dispatch struct {
	ID        string         `json:"id"         db:"id"`
	InvoiceID *string        `json:"invoice_id" db:"invoice_id"`
	Kind      DispatchKind   `json:"kind"       db:"kind"`
	Status    DispatchStatus `json:"status"     db:"status"`
	Recipient string         `json:"recipient"  db:"recipient"`
	Attempts  int            `json:"attempts"   db:"attempts"`
	LastError *string        `json:"last_error" db:"last_error"`
	MessageID *string        `json:"message_id" db:"message_id"`
	CreatedAt time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt *time.Time     `json:"updated_at" db:"updated_at"`
}

// Invoice is the persisted invoice record. Snapshot carries the full billing
// view serialized as JSON; the row-level columns exist for querying.
type Invoice struct {
	ID        string          `json:"id"         db:"id"`
	Number    string          `json:"number"     db:"number"`
	ClientID  string          `json:"client_id"  db:"client_id"`
	CompanyID string          `json:"company_id" db:"company_id"`
	Status    InvoiceStatus   `json:"status"     db:"status"`
	Total     float64         `json:"total"      db:"total"`
	Snapshot  InvoiceSnapshot `json:"snapshot"   db:"snapshot"`
	IssuedAt  time.Time       `json:"issued_at"  db:"issued_at"`
	DueAt     *time.Time      `json:"due_at"     db:"due_at"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt *time.Time      `json:"updated_at" db:"updated_at"`
}

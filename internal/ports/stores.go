package ports

import (
	"context"
	"encoding/base64"
	"time"

	"github.com/arkline/erp-api/internal/domain/billing"
	"github.com/arkline/erp-api/internal/domain/identity"
)

// Store implementations map their backend's "no rows" condition to an
// AppError with code not_found; callers branch with apperrors.IsNotFound.

// StaffDirectory provides lookups and writes for staff/admin profiles.
type StaffDirectory interface {
	// GetByEmail matches case-insensitively on the stored email.
	GetByEmail(ctx context.Context, email string) (*identity.StaffProfile, error)
	GetByID(ctx context.Context, id string) (*identity.StaffProfile, error)
	Insert(ctx context.Context, profile *identity.StaffProfile) (*identity.StaffProfile, error)
}

// ClientDirectory provides lookups and repairs for client profiles.
type ClientDirectory interface {
	// GetActiveByPrincipalID matches principal_id with is_active = true.
	GetActiveByPrincipalID(ctx context.Context, principalID string) (*identity.ClientProfile, error)
	// GetActiveByEmail matches case-insensitively with is_active = true.
	GetActiveByEmail(ctx context.Context, email string) (*identity.ClientProfile, error)
	// SetPrincipalID backfills a missing principal link on a client row.
	SetPrincipalID(ctx context.Context, clientID, principalID string) error
	Insert(ctx context.Context, profile *identity.ClientProfile) (*identity.ClientProfile, error)
}

// CompanyDirectory provides the company attachment used at registration.
type CompanyDirectory interface {
	// FirstActive returns any active company, oldest first.
	FirstActive(ctx context.Context) (*identity.Company, error)
	Insert(ctx context.Context, name string) (*identity.Company, error)
}

// InvoiceStore persists invoices and their post-dispatch status updates.
type InvoiceStore interface {
	Create(ctx context.Context, inv *billing.Invoice) (*billing.Invoice, error)
	GetByID(ctx context.Context, id string) (*billing.Invoice, error)
	// MarkSent moves the invoice to sent (or reminder_sent) status. It is a
	// follow-up write decoupled from delivery; failures do not undo a send.
	MarkSent(ctx context.Context, id string, reminder bool) error
	// ListDueForReminder returns unpaid invoices whose due date has passed.
	ListDueForReminder(ctx context.Context, asOf time.Time, limit int) ([]*billing.Invoice, error)
}

// DispatchStore is the durable queue behind the notification pipeline.
type DispatchStore interface {
	Enqueue(ctx context.Context, d *billing.Dispatch) (*billing.Dispatch, error)
	// ClaimNext atomically claims the oldest pending dispatch, incrementing
	// its attempt counter. Returns not_found when the queue is empty.
	ClaimNext(ctx context.Context) (*billing.Dispatch, error)
	MarkSent(ctx context.Context, id, messageID string) error
	MarkFailed(ctx context.Context, id, reason string) error
	// LatestForInvoice returns the most recent dispatch for an invoice.
	LatestForInvoice(ctx context.Context, invoiceID string) (*billing.Dispatch, error)
}

// Attachment is a base64-encoded file carried on an outbound message.
type Attachment struct {
	Filename    string `json:"filename"`
	Content     string `json:"content"`
	ContentType string `json:"contentType"`
	Encoding    string `json:"encoding"`
}

// NewPDFAttachment wraps rendered PDF bytes as a base64 attachment.
func NewPDFAttachment(filename string, content []byte) Attachment {
	return Attachment{
		Filename:    filename,
		Content:     base64.StdEncoding.EncodeToString(content),
		ContentType: "application/pdf",
		Encoding:    "base64",
	}
}

// EmailMessage is the payload submitted to the delivery transport.
type EmailMessage struct {
	To          string       `json:"to"`
	Subject     string       `json:"subject"`
	HTML        string       `json:"html"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// DeliveryClient submits a rendered message to the mail relay. It performs no
// retries; retry policy, if any, belongs to the caller.
type DeliveryClient interface {
	// Send returns the provider message id on success. Timeouts surface as
	// delivery_timeout and transport failures as delivery_transport.
	Send(ctx context.Context, msg EmailMessage) (string, error)
}

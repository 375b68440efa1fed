package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/arkline/erp-api/internal/domain/billing"
	apperrors "github.com/arkline/erp-api/internal/errors"
	"github.com/arkline/erp-api/internal/ports"
)

// InvoiceServiceOptions groups dependencies for InvoiceService.
type InvoiceServiceOptions struct {
	Store    ports.InvoiceStore
	Dispatch *Dispatcher
	Logger   *slog.Logger
}

// InvoiceService persists invoices and hands notification work to the
// dispatch queue. Persistence and notification are deliberately decoupled:
// a queue hiccup never fails or rolls back the write.
type InvoiceService struct {
	store    ports.InvoiceStore
	dispatch *Dispatcher
	logger   *slog.Logger
}

// NewInvoiceService constructs an InvoiceService.
func NewInvoiceService(opts InvoiceServiceOptions) *InvoiceService {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &InvoiceService{
		store:    opts.Store,
		dispatch: opts.Dispatch,
		logger:   logger.With("component", "invoices"),
	}
}

// CreateInvoiceInput groups parameters for creating an invoice.
type CreateInvoiceInput struct {
	ClientID  string
	CompanyID string
	Snapshot  billing.InvoiceSnapshot
	DueAt     *time.Time

	// Notify queues the invoice-created notification after the write.
	Notify bool
}

// CreateResult reports the persisted invoice plus whether the notification
// was queued. Queued is false either because Notify was off or because the
// enqueue failed; the invoice itself is committed either way.
type CreateResult struct {
	Invoice *billing.Invoice
	Queued  bool
}

// Create validates and persists the invoice, then queues the notification.
func (s *InvoiceService) Create(ctx context.Context, in CreateInvoiceInput) (*CreateResult, error) {
	if strings.TrimSpace(in.Snapshot.Number) == "" {
		return nil, apperrors.New(apperrors.ErrCodeValidation, "invoice number is required")
	}
	if in.ClientID == "" {
		return nil, apperrors.New(apperrors.ErrCodeValidation, "client id is required")
	}
	if len(in.Snapshot.Items) == 0 {
		return nil, apperrors.New(apperrors.ErrCodeValidation, "at least one line item is required")
	}

	inv, err := s.store.Create(ctx, &billing.Invoice{
		Number:    in.Snapshot.Number,
		ClientID:  in.ClientID,
		CompanyID: in.CompanyID,
		Snapshot:  in.Snapshot,
		Total:     in.Snapshot.Total,
		IssuedAt:  in.Snapshot.IssuedAt,
		DueAt:     in.DueAt,
	})
	if err != nil {
		return nil, err
	}

	result := &CreateResult{Invoice: inv}
	if in.Notify {
		if _, enqErr := s.dispatch.EnqueueInvoiceCreated(ctx, inv); enqErr != nil {
			// The invoice is committed; the queue failure is reported out of
			// band, never to the creating request as a failure.
			s.logger.ErrorContext(ctx, "invoice notification enqueue failed",
				"invoice_id", inv.ID, "err", enqErr)
		} else {
			result.Queued = true
		}
	}
	return result, nil
}

// Get returns one invoice by id.
func (s *InvoiceService) Get(ctx context.Context, id string) (*billing.Invoice, error) {
	return s.store.GetByID(ctx, id)
}

// Send queues a fresh invoice-created notification for an existing invoice.
// Each call produces a new dispatch row and a new send.
func (s *InvoiceService) Send(ctx context.Context, id string) (*billing.Dispatch, error) {
	inv, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.dispatch.EnqueueInvoiceCreated(ctx, inv)
}

// DeliveryStatus returns the latest dispatch row for an invoice.
func (s *InvoiceService) DeliveryStatus(ctx context.Context, id string) (*billing.Dispatch, error) {
	return s.dispatch.Status(ctx, id)
}

package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/arkline/erp-api/internal/domain/billing"
	apperrors "github.com/arkline/erp-api/internal/errors"
	"github.com/arkline/erp-api/internal/observability/notify"
	"github.com/arkline/erp-api/internal/ports"
)

const (
	// deliveryTimeout bounds one relay call. The request is cancellable;
	// hitting this deadline surfaces as delivery_timeout, distinct from
	// transport failures.
	deliveryTimeout = 30 * time.Second

	defaultPollInterval = 2 * time.Second
)

// DocumentRenderer renders the invoice PDF from a snapshot.
type DocumentRenderer interface {
	RenderInvoicePDF(snap billing.InvoiceSnapshot) ([]byte, error)
}

// EmailComposer builds the outbound message for a dispatch. The HTML body
// must embed the snapshot's own computed totals; composers never recompute.
type EmailComposer interface {
	ComposeInvoice(kind billing.DispatchKind, snap billing.InvoiceSnapshot) (subject, html string, err error)
	ComposeWelcome(recipient string) (subject, html string, err error)
	ComposePasswordReset(recipient string) (subject, html string, err error)
}

// DispatcherOptions groups dependencies for Dispatcher.
type DispatcherOptions struct {
	Store    ports.DispatchStore
	Invoices ports.InvoiceStore
	Delivery ports.DeliveryClient
	Renderer DocumentRenderer
	Composer EmailComposer
	Sinks    []notify.Sink

	PollInterval time.Duration
	Logger       *slog.Logger
}

// Dispatcher is the tracked notification queue. Enqueue writes a pending row
// and returns immediately; Run claims rows and performs the render-then-send
// flow off the critical path. Delivery is at-least-once: re-enqueueing the
// same invoice produces a new send.
type Dispatcher struct {
	store    ports.DispatchStore
	invoices ports.InvoiceStore
	delivery ports.DeliveryClient
	renderer DocumentRenderer
	composer EmailComposer
	sinks    []notify.Sink
	poll     time.Duration
	logger   *slog.Logger
}

// NewDispatcher constructs a Dispatcher.
func NewDispatcher(opts DispatcherOptions) *Dispatcher {
	poll := opts.PollInterval
	if poll <= 0 {
		poll = defaultPollInterval
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		store:    opts.Store,
		invoices: opts.Invoices,
		delivery: opts.Delivery,
		renderer: opts.Renderer,
		composer: opts.Composer,
		sinks:    opts.Sinks,
		poll:     poll,
		logger:   logger.With("component", "dispatcher"),
	}
}

// EnqueueInvoiceCreated queues the invoice-created notification. The caller's
// transaction has already committed; a queue failure never rolls it back.
func (d *Dispatcher) EnqueueInvoiceCreated(ctx context.Context, inv *billing.Invoice) (*billing.Dispatch, error) {
	return d.enqueueInvoice(ctx, inv, billing.DispatchKindInvoiceCreated)
}

// EnqueueReminder queues an overdue-invoice reminder.
func (d *Dispatcher) EnqueueReminder(ctx context.Context, inv *billing.Invoice) (*billing.Dispatch, error) {
	return d.enqueueInvoice(ctx, inv, billing.DispatchKindInvoiceReminder)
}

func (d *Dispatcher) enqueueInvoice(ctx context.Context, inv *billing.Invoice, kind billing.DispatchKind) (*billing.Dispatch, error) {
	if inv == nil {
		return nil, apperrors.New(apperrors.ErrCodeValidation, "invoice is required")
	}
	recipient := inv.Snapshot.BilledTo.Email
	if recipient == "" {
		return nil, apperrors.New(apperrors.ErrCodeValidation, "invoice snapshot has no recipient email")
	}
	queued, err := d.store.Enqueue(ctx, &billing.Dispatch{
		InvoiceID: &inv.ID,
		Kind:      kind,
		Recipient: recipient,
	})
	if err != nil {
		return nil, err
	}
	d.logger.InfoContext(ctx, "queued dispatch",
		"dispatch_id", queued.ID, "invoice_id", inv.ID, "kind", kind)
	return queued, nil
}

// EnqueueWelcome queues a client welcome notification.
func (d *Dispatcher) EnqueueWelcome(ctx context.Context, recipient string) (*billing.Dispatch, error) {
	return d.enqueueAccountNotice(ctx, recipient, billing.DispatchKindClientWelcome)
}

// EnqueuePasswordReset queues the notice sent after a password change.
func (d *Dispatcher) EnqueuePasswordReset(ctx context.Context, recipient string) (*billing.Dispatch, error) {
	return d.enqueueAccountNotice(ctx, recipient, billing.DispatchKindPasswordReset)
}

func (d *Dispatcher) enqueueAccountNotice(ctx context.Context, recipient string, kind billing.DispatchKind) (*billing.Dispatch, error) {
	if recipient == "" {
		return nil, apperrors.New(apperrors.ErrCodeValidation, "recipient is required")
	}
	return d.store.Enqueue(ctx, &billing.Dispatch{
		Kind:      kind,
		Recipient: recipient,
	})
}

// Status returns the latest dispatch row for an invoice.
func (d *Dispatcher) Status(ctx context.Context, invoiceID string) (*billing.Dispatch, error) {
	return d.store.LatestForInvoice(ctx, invoiceID)
}

// Run processes the queue until ctx is cancelled. An empty queue sleeps one
// poll interval; a claimed dispatch is processed to completion.
func (d *Dispatcher) Run(ctx context.Context) error {
	d.logger.InfoContext(ctx, "dispatcher started", "poll_interval", d.poll)
	for {
		select {
		case <-ctx.Done():
			d.logger.InfoContext(ctx, "dispatcher stopped")
			return ctx.Err()
		default:
		}

		claimed, err := d.store.ClaimNext(ctx)
		if err != nil {
			if !apperrors.IsNotFound(err) {
				d.logger.ErrorContext(ctx, "claim failed", "err", err)
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(d.poll):
			}
			continue
		}

		d.process(ctx, claimed)
	}
}

// ProcessOne claims and processes a single dispatch. Used by tests and by
// callers that drive the queue manually.
func (d *Dispatcher) ProcessOne(ctx context.Context) error {
	claimed, err := d.store.ClaimNext(ctx)
	if err != nil {
		return err
	}
	d.process(ctx, claimed)
	return nil
}

// process runs the render-then-send flow for one dispatch. Each step fails
// independently; failures finalize the row and fan out to the ops sinks but
// never propagate to the triggering request.
func (d *Dispatcher) process(ctx context.Context, dispatch *billing.Dispatch) {
	msg, err := d.buildMessage(ctx, dispatch)
	if err != nil {
		d.fail(ctx, dispatch, err)
		return
	}

	sendCtx, cancel := context.WithTimeout(ctx, deliveryTimeout)
	messageID, sendErr := d.delivery.Send(sendCtx, msg)
	cancel()
	if sendErr != nil {
		d.fail(ctx, dispatch, sendErr)
		return
	}

	if markErr := d.store.MarkSent(ctx, dispatch.ID, messageID); markErr != nil {
		d.logger.ErrorContext(ctx, "dispatch sent but status update failed",
			"dispatch_id", dispatch.ID, "message_id", messageID, "err", markErr)
	}

	// The invoice status write is a decoupled follow-up; its failure does
	// not undo the send.
	if dispatch.InvoiceID != nil {
		reminder := dispatch.Kind == billing.DispatchKindInvoiceReminder
		if invErr := d.invoices.MarkSent(ctx, *dispatch.InvoiceID, reminder); invErr != nil {
			d.logger.WarnContext(ctx, "invoice status update failed after send",
				"invoice_id", *dispatch.InvoiceID, "err", invErr)
		}
	}

	d.logger.InfoContext(ctx, "dispatch delivered",
		"dispatch_id", dispatch.ID, "kind", dispatch.Kind, "message_id", messageID)
}

func (d *Dispatcher) buildMessage(ctx context.Context, dispatch *billing.Dispatch) (ports.EmailMessage, error) {
	switch dispatch.Kind {
	case billing.DispatchKindClientWelcome:
		subject, html, err := d.composer.ComposeWelcome(dispatch.Recipient)
		if err != nil {
			return ports.EmailMessage{}, apperrors.Wrap(err, apperrors.ErrCodeInternal, "compose welcome email")
		}
		return ports.EmailMessage{To: dispatch.Recipient, Subject: subject, HTML: html}, nil
	case billing.DispatchKindPasswordReset:
		subject, html, err := d.composer.ComposePasswordReset(dispatch.Recipient)
		if err != nil {
			return ports.EmailMessage{}, apperrors.Wrap(err, apperrors.ErrCodeInternal, "compose password reset email")
		}
		return ports.EmailMessage{To: dispatch.Recipient, Subject: subject, HTML: html}, nil
	}

	if dispatch.InvoiceID == nil {
		return ports.EmailMessage{}, apperrors.New(apperrors.ErrCodeValidation, "invoice dispatch has no invoice id")
	}
	inv, err := d.invoices.GetByID(ctx, *dispatch.InvoiceID)
	if err != nil {
		return ports.EmailMessage{}, err
	}

	pdf, renderErr := d.renderer.RenderInvoicePDF(inv.Snapshot)
	if renderErr != nil {
		return ports.EmailMessage{}, apperrors.Wrap(renderErr, apperrors.ErrCodeInternal, "render invoice pdf")
	}

	subject, html, composeErr := d.composer.ComposeInvoice(dispatch.Kind, inv.Snapshot)
	if composeErr != nil {
		return ports.EmailMessage{}, apperrors.Wrap(composeErr, apperrors.ErrCodeInternal, "compose invoice email")
	}

	return ports.EmailMessage{
		To:      dispatch.Recipient,
		Subject: subject,
		HTML:    html,
		Attachments: []ports.Attachment{
			ports.NewPDFAttachment("invoice-"+inv.Number+".pdf", pdf),
		},
	}, nil
}

// fail finalizes the dispatch row and notifies the ops sinks.
func (d *Dispatcher) fail(ctx context.Context, dispatch *billing.Dispatch, cause error) {
	d.logger.ErrorContext(ctx, "dispatch failed",
		"dispatch_id", dispatch.ID, "kind", dispatch.Kind, "attempts", dispatch.Attempts, "err", cause)

	if markErr := d.store.MarkFailed(ctx, dispatch.ID, cause.Error()); markErr != nil {
		d.logger.ErrorContext(ctx, "failed to record dispatch failure",
			"dispatch_id", dispatch.ID, "err", markErr)
	}

	payload := notify.DispatchFailurePayload{
		DispatchID: dispatch.ID,
		Kind:       string(dispatch.Kind),
		Recipient:  dispatch.Recipient,
		Attempts:   dispatch.Attempts,
		Error:      cause.Error(),
		ErrorCode:  string(apperrors.GetCode(cause)),
		Severity:   notify.SeverityWarning,
		OccurredAt: time.Now(),
	}
	if dispatch.InvoiceID != nil {
		payload.InvoiceID = *dispatch.InvoiceID
	}
	for _, sink := range d.sinks {
		if sinkErr := sink.SendDispatchFailure(ctx, payload); sinkErr != nil {
			d.logger.WarnContext(ctx, "ops sink notification failed", "err", sinkErr)
		}
	}
}

// Package scheduler runs the periodic jobs that feed the dispatch queue,
// currently just the overdue-invoice reminder sweep.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/arkline/erp-api/internal/domain/billing"
	apperrors "github.com/arkline/erp-api/internal/errors"
	"github.com/arkline/erp-api/internal/ports"
)

const (
	// defaultSchedule sweeps once a day at 08:00 server time.
	defaultSchedule = "0 8 * * *"

	defaultBatchLimit = 50
)

// ReminderQueue is the slice of the dispatcher the sweep needs.
type ReminderQueue interface {
	EnqueueReminder(ctx context.Context, inv *billing.Invoice) (*billing.Dispatch, error)
}

// ReminderOptions groups dependencies for Reminder.
type ReminderOptions struct {
	Invoices ports.InvoiceStore
	Queue    ReminderQueue

	// Schedule is a standard 5-field cron expression.
	Schedule   string
	BatchLimit int
	Logger     *slog.Logger
}

// Reminder periodically queues reminder notifications for unpaid invoices
// past their due date. Each sweep only enqueues; rendering and delivery stay
// on the dispatcher's worker.
type Reminder struct {
	invoices ports.InvoiceStore
	queue    ReminderQueue
	schedule string
	limit    int
	logger   *slog.Logger
	cron     *cron.Cron
}

// NewReminder constructs a Reminder. The schedule is validated eagerly so a
// bad expression fails at startup, not at first tick.
func NewReminder(opts ReminderOptions) (*Reminder, error) {
	schedule := opts.Schedule
	if schedule == "" {
		schedule = defaultSchedule
	}
	if _, err := cron.ParseStandard(schedule); err != nil {
		return nil, apperrors.Wrapf(err, apperrors.ErrCodeConfiguration, "invalid reminder schedule %q", schedule)
	}
	limit := opts.BatchLimit
	if limit <= 0 {
		limit = defaultBatchLimit
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Reminder{
		invoices: opts.Invoices,
		queue:    opts.Queue,
		schedule: schedule,
		limit:    limit,
		logger:   logger.With("component", "reminder"),
	}, nil
}

// Run installs the cron entry and blocks until ctx is cancelled.
func (r *Reminder) Run(ctx context.Context) error {
	r.cron = cron.New()
	if _, err := r.cron.AddFunc(r.schedule, func() { r.Sweep(ctx) }); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeConfiguration, "install reminder schedule")
	}
	r.cron.Start()
	r.logger.InfoContext(ctx, "reminder scheduler started", "schedule", r.schedule)

	<-ctx.Done()
	stopped := r.cron.Stop()
	// Let an in-flight sweep finish before reporting shutdown.
	<-stopped.Done()
	r.logger.Info("reminder scheduler stopped")
	return ctx.Err()
}

// Sweep queues a reminder for every overdue invoice, up to the batch limit.
// One bad invoice does not stop the rest of the batch.
func (r *Reminder) Sweep(ctx context.Context) {
	due, err := r.invoices.ListDueForReminder(ctx, time.Now(), r.limit)
	if err != nil {
		r.logger.ErrorContext(ctx, "overdue invoice listing failed", "err", err)
		return
	}
	if len(due) == 0 {
		return
	}

	queued := 0
	for _, inv := range due {
		if _, enqErr := r.queue.EnqueueReminder(ctx, inv); enqErr != nil {
			r.logger.WarnContext(ctx, "reminder enqueue failed",
				"invoice_id", inv.ID, "number", inv.Number, "err", enqErr)
			continue
		}
		queued++
	}
	r.logger.InfoContext(ctx, "reminder sweep complete", "overdue", len(due), "queued", queued)
}

package data

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/arkline/erp-api/internal/data/pgxutil"
	"github.com/arkline/erp-api/internal/domain/billing"
	apperrors "github.com/arkline/erp-api/internal/errors"
	"github.com/arkline/erp-api/internal/ports"
)

const dispatchColumns = `id, invoice_id, kind, status, recipient, attempts,
	last_error, message_id, created_at, updated_at`

// DispatchRepo is the durable queue behind the notification pipeline.
type DispatchRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

var _ ports.DispatchStore = (*DispatchRepo)(nil)

// NewDispatchRepo creates a DispatchRepo with the real time provider.
func NewDispatchRepo(db *sql.DB) *DispatchRepo {
	return &DispatchRepo{DB: db, timeProvider: &RealTimeProvider{}}
}

// NewDispatchRepoWithTimeProvider creates a DispatchRepo with a custom time provider (useful for tests).
func NewDispatchRepoWithTimeProvider(db *sql.DB, tp TimeProvider) *DispatchRepo {
	return &DispatchRepo{DB: db, timeProvider: tp}
}

// Enqueue inserts a pending dispatch row. Enqueueing the same invoice twice
// produces two rows; delivery is at-least-once by design of the callers.
func (r *DispatchRepo) Enqueue(ctx context.Context, d *billing.Dispatch) (*billing.Dispatch, error) {
	if d == nil {
		return nil, apperrors.New(apperrors.ErrCodeValidation, "dispatch is required")
	}
	if d.Recipient == "" {
		return nil, apperrors.New(apperrors.ErrCodeValidation, "dispatch recipient is required")
	}
	createdAt := r.timeProvider.Now().UTC()

	var out billing.Dispatch
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			INSERT INTO dispatches (invoice_id, kind, status, recipient, created_at)
			VALUES ($1, $2, $3, $4, $5) RETURNING `+dispatchColumns,
			d.InvoiceID, d.Kind, billing.DispatchStatusPending, d.Recipient, createdAt)
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[billing.Dispatch])
		return err
	}); err != nil {
		return nil, mapWriteErr(err, "dispatch")
	}
	return &out, nil
}

// ClaimNext atomically claims the oldest pending dispatch and increments its
// attempt counter. SKIP LOCKED keeps concurrent workers from double-claiming.
func (r *DispatchRepo) ClaimNext(ctx context.Context) (*billing.Dispatch, error) {
	claimedAt := r.timeProvider.Now().UTC()

	var out billing.Dispatch
	if err := pgxutil.WithPgxTx(ctx, r.DB, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `
			UPDATE dispatches SET attempts = attempts + 1, updated_at = $1
			WHERE id = (
				SELECT id FROM dispatches
				WHERE status = $2
				ORDER BY created_at ASC
				FOR UPDATE SKIP LOCKED
				LIMIT 1
			) RETURNING `+dispatchColumns,
			claimedAt, billing.DispatchStatusPending)
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[billing.Dispatch])
		return err
	}); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.New(apperrors.ErrCodeNotFound, "no pending dispatch")
		}
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to claim dispatch")
	}
	return &out, nil
}

// MarkSent finalizes a dispatch with the relay's message id.
func (r *DispatchRepo) MarkSent(ctx context.Context, id, messageID string) error {
	return r.finalize(ctx, id, `
		UPDATE dispatches SET status = $1, message_id = $2, last_error = NULL, updated_at = $3
		WHERE id = $4`,
		billing.DispatchStatusSent, messageID)
}

// MarkFailed finalizes a dispatch with the failure reason.
func (r *DispatchRepo) MarkFailed(ctx context.Context, id, reason string) error {
	return r.finalize(ctx, id, `
		UPDATE dispatches SET status = $1, last_error = $2, updated_at = $3
		WHERE id = $4`,
		billing.DispatchStatusFailed, reason)
}

// LatestForInvoice returns the most recent dispatch row for an invoice.
func (r *DispatchRepo) LatestForInvoice(ctx context.Context, invoiceID string) (*billing.Dispatch, error) {
	var out billing.Dispatch
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			SELECT `+dispatchColumns+` FROM dispatches
			WHERE invoice_id = $1 ORDER BY created_at DESC LIMIT 1`,
			invoiceID)
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[billing.Dispatch])
		return err
	}); err != nil {
		return nil, mapReadErr(err, "dispatch")
	}
	return &out, nil
}

func (r *DispatchRepo) finalize(ctx context.Context, id, query string, status billing.DispatchStatus, detail string) error {
	updatedAt := r.timeProvider.Now().UTC()
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		tag, err := conn.Exec(ctx, query, status, detail, updatedAt, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return pgx.ErrNoRows
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.New(apperrors.ErrCodeNotFound, "dispatch not found")
		}
		return mapWriteErr(err, "dispatch")
	}
	return nil
}

package data

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/arkline/erp-api/internal/data/pgxutil"
	"github.com/arkline/erp-api/internal/domain/billing"
	apperrors "github.com/arkline/erp-api/internal/errors"
	"github.com/arkline/erp-api/internal/ports"
)

const invoiceColumns = `id, number, client_id, company_id, status, total,
	snapshot, issued_at, due_at, created_at, updated_at`

// InvoiceRepo provides database operations for invoices.
type InvoiceRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

var _ ports.InvoiceStore = (*InvoiceRepo)(nil)

// NewInvoiceRepo creates an InvoiceRepo with the real time provider.
func NewInvoiceRepo(db *sql.DB) *InvoiceRepo {
	return &InvoiceRepo{DB: db, timeProvider: &RealTimeProvider{}}
}

// NewInvoiceRepoWithTimeProvider creates an InvoiceRepo with a custom time provider (useful for tests).
func NewInvoiceRepoWithTimeProvider(db *sql.DB, tp TimeProvider) *InvoiceRepo {
	return &InvoiceRepo{DB: db, timeProvider: tp}
}

// Create inserts an invoice. Status defaults to draft and total is taken from
// the snapshot so row-level queries agree with the rendered document.
func (r *InvoiceRepo) Create(ctx context.Context, inv *billing.Invoice) (*billing.Invoice, error) {
	if inv == nil {
		return nil, apperrors.New(apperrors.ErrCodeValidation, "invoice is required")
	}
	status := inv.Status
	if status == "" {
		status = billing.InvoiceStatusDraft
	}
	issuedAt := inv.IssuedAt
	if issuedAt.IsZero() {
		issuedAt = r.timeProvider.Now().UTC()
	}
	createdAt := r.timeProvider.Now().UTC()

	var out billing.Invoice
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			INSERT INTO invoices (
				number, client_id, company_id, status, total, snapshot,
				issued_at, due_at, created_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			RETURNING `+invoiceColumns,
			inv.Number,
			inv.ClientID,
			inv.CompanyID,
			status,
			inv.Snapshot.Total,
			inv.Snapshot,
			issuedAt,
			inv.DueAt,
			createdAt,
		)
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[billing.Invoice])
		return err
	}); err != nil {
		return nil, mapWriteErr(err, "invoice")
	}
	return &out, nil
}

// GetByID retrieves an invoice by primary key.
func (r *InvoiceRepo) GetByID(ctx context.Context, id string) (*billing.Invoice, error) {
	var out billing.Invoice
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx,
			`SELECT `+invoiceColumns+` FROM invoices WHERE id = $1`, id)
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[billing.Invoice])
		return err
	}); err != nil {
		return nil, mapReadErr(err, "invoice")
	}
	return &out, nil
}

// MarkSent records a completed delivery on the invoice row. It never moves a
// paid invoice backwards.
func (r *InvoiceRepo) MarkSent(ctx context.Context, id string, reminder bool) error {
	status := billing.InvoiceStatusSent
	if reminder {
		status = billing.InvoiceStatusReminderSent
	}
	updatedAt := r.timeProvider.Now().UTC()

	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		tag, err := conn.Exec(ctx, `
			UPDATE invoices SET status = $1, updated_at = $2
			WHERE id = $3 AND status <> $4`,
			status, updatedAt, id, billing.InvoiceStatusPaid)
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
			return apperrors.New(apperrors.ErrCodeNotFound, "invoice not found or already paid")
		}
		return mapWriteErr(err, "invoice")
	}
	return nil
}

// ListDueForReminder returns unpaid invoices past their due date that have not
// yet had a reminder sent.
func (r *InvoiceRepo) ListDueForReminder(ctx context.Context, asOf time.Time, limit int) ([]*billing.Invoice, error) {
	if limit <= 0 {
		limit = 50
	}

	var rowsOut []billing.Invoice
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			SELECT `+invoiceColumns+` FROM invoices
			WHERE due_at IS NOT NULL AND due_at < $1 AND status = $2
			ORDER BY due_at ASC LIMIT $3`,
			asOf.UTC(), billing.InvoiceStatusSent, limit)
		if err != nil {
			return err
		}
		defer rows.Close()
		rowsOut, err = pgx.CollectRows(rows, pgx.RowToStructByName[billing.Invoice])
		return err
	}); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to list due invoices")
	}

	res := make([]*billing.Invoice, len(rowsOut))
	for i := range rowsOut {
		res[i] = &rowsOut[i]
	}
	return res, nil
}

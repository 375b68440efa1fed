package data

import (
	"context"
	"database/sql"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/arkline/erp-api/internal/data/pgxutil"
	"github.com/arkline/erp-api/internal/domain/identity"
	apperrors "github.com/arkline/erp-api/internal/errors"
	"github.com/arkline/erp-api/internal/ports"
)

const companyColumns = `id, name, is_active, created_at, updated_at`

// CompanyRepo provides database operations for companies.
type CompanyRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

var _ ports.CompanyDirectory = (*CompanyRepo)(nil)

// NewCompanyRepo creates a CompanyRepo with the real time provider.
func NewCompanyRepo(db *sql.DB) *CompanyRepo {
	return &CompanyRepo{DB: db, timeProvider: &RealTimeProvider{}}
}

// NewCompanyRepoWithTimeProvider creates a CompanyRepo with a custom time provider (useful for tests).
func NewCompanyRepoWithTimeProvider(db *sql.DB, tp TimeProvider) *CompanyRepo {
	return &CompanyRepo{DB: db, timeProvider: tp}
}

// FirstActive returns the oldest active company. Registration attaches new
// clients to it when no explicit company is given.
func (r *CompanyRepo) FirstActive(ctx context.Context) (*identity.Company, error) {
	var out identity.Company
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			SELECT `+companyColumns+` FROM companies
			WHERE is_active = TRUE ORDER BY created_at ASC LIMIT 1`)
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[identity.Company])
		return err
	}); err != nil {
		return nil, mapReadErr(err, "company")
	}
	return &out, nil
}

// Insert creates a company.
func (r *CompanyRepo) Insert(ctx context.Context, name string) (*identity.Company, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.New(apperrors.ErrCodeValidation, "company name is required")
	}

	createdAt := r.timeProvider.Now().UTC()
	var out identity.Company
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			INSERT INTO companies (name, is_active, created_at)
			VALUES ($1, TRUE, $2) RETURNING `+companyColumns,
			name, createdAt)
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[identity.Company])
		return err
	}); err != nil {
		return nil, mapWriteErr(err, "company")
	}
	return &out, nil
}

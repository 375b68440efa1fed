package data

import (
	"context"
	"database/sql"

	"github.com/jackc/pgx/v5"

	"github.com/arkline/erp-api/internal/data/pgxutil"
	"github.com/arkline/erp-api/internal/domain/identity"
	"github.com/arkline/erp-api/internal/ports"
)

const staffColumns = `id, principal_id, email, role, company_id, is_banned,
	first_name, last_name, job_title, created_at, updated_at`

// StaffRepo provides database operations for staff and admin profiles.
type StaffRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

var _ ports.StaffDirectory = (*StaffRepo)(nil)

// NewStaffRepo creates a StaffRepo with the real time provider.
func NewStaffRepo(db *sql.DB) *StaffRepo {
	return &StaffRepo{DB: db, timeProvider: &RealTimeProvider{}}
}

// NewStaffRepoWithTimeProvider creates a StaffRepo with a custom time provider (useful for tests).
func NewStaffRepoWithTimeProvider(db *sql.DB, tp TimeProvider) *StaffRepo {
	return &StaffRepo{DB: db, timeProvider: tp}
}

// GetByEmail retrieves a staff profile matching the email case-insensitively.
func (r *StaffRepo) GetByEmail(ctx context.Context, email string) (*identity.StaffProfile, error) {
	return r.getOne(ctx,
		`SELECT `+staffColumns+` FROM staff_profiles WHERE lower(email) = lower($1)`,
		identity.NormalizeEmail(email))
}

// GetByID retrieves a staff profile by primary key.
func (r *StaffRepo) GetByID(ctx context.Context, id string) (*identity.StaffProfile, error) {
	return r.getOne(ctx,
		`SELECT `+staffColumns+` FROM staff_profiles WHERE id = $1`, id)
}

// Insert creates a staff profile row. The caller supplies the id when the row
// should mirror an auth principal; an empty id lets the database generate one.
func (r *StaffRepo) Insert(ctx context.Context, profile *identity.StaffProfile) (*identity.StaffProfile, error) {
	createdAt := r.timeProvider.Now().UTC()

	var out identity.StaffProfile
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		var id any
		if profile.ID != "" {
			id = profile.ID
		}
		rows, err := conn.Query(ctx, `
			INSERT INTO staff_profiles (
				id, principal_id, email, role, company_id, is_banned,
				first_name, last_name, job_title, created_at
			) VALUES (
				COALESCE($1::uuid, gen_random_uuid()), $2, $3, $4, $5, $6, $7, $8, $9, $10
			) RETURNING `+staffColumns,
			id,
			profile.PrincipalID,
			identity.NormalizeEmail(profile.Email),
			profile.Role,
			profile.CompanyID,
			profile.IsBanned,
			profile.FirstName,
			profile.LastName,
			profile.JobTitle,
			createdAt,
		)
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[identity.StaffProfile])
		return err
	}); err != nil {
		return nil, mapWriteErr(err, "staff profile")
	}
	return &out, nil
}

func (r *StaffRepo) getOne(ctx context.Context, query string, args ...any) (*identity.StaffProfile, error) {
	var out identity.StaffProfile
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[identity.StaffProfile])
		return err
	}); err != nil {
		return nil, mapReadErr(err, "staff profile")
	}
	return &out, nil
}

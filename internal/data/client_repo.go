package data

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/arkline/erp-api/internal/data/pgxutil"
	"github.com/arkline/erp-api/internal/domain/identity"
	apperrors "github.com/arkline/erp-api/internal/errors"
	"github.com/arkline/erp-api/internal/ports"
)

const clientColumns = `id, principal_id, company_id, email, name, phone,
	address, assigned_to, is_active, created_at, updated_at`

// ClientRepo provides database operations for client profiles.
type ClientRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

var _ ports.ClientDirectory = (*ClientRepo)(nil)

// NewClientRepo creates a ClientRepo with the real time provider.
func NewClientRepo(db *sql.DB) *ClientRepo {
	return &ClientRepo{DB: db, timeProvider: &RealTimeProvider{}}
}

// NewClientRepoWithTimeProvider creates a ClientRepo with a custom time provider (useful for tests).
func NewClientRepoWithTimeProvider(db *sql.DB, tp TimeProvider) *ClientRepo {
	return &ClientRepo{DB: db, timeProvider: tp}
}

// GetActiveByPrincipalID retrieves the active client linked to a principal.
func (r *ClientRepo) GetActiveByPrincipalID(ctx context.Context, principalID string) (*identity.ClientProfile, error) {
	return r.getOne(ctx,
		`SELECT `+clientColumns+` FROM client_profiles
		 WHERE principal_id = $1 AND is_active = TRUE`,
		principalID)
}

// GetActiveByEmail retrieves the active client matching the email
// case-insensitively. Used when the principal link is missing.
func (r *ClientRepo) GetActiveByEmail(ctx context.Context, email string) (*identity.ClientProfile, error) {
	return r.getOne(ctx,
		`SELECT `+clientColumns+` FROM client_profiles
		 WHERE lower(email) = lower($1) AND is_active = TRUE
		 ORDER BY created_at ASC LIMIT 1`,
		identity.NormalizeEmail(email))
}

// SetPrincipalID backfills the principal link on a client row.
func (r *ClientRepo) SetPrincipalID(ctx context.Context, clientID, principalID string) error {
	updatedAt := r.timeProvider.Now().UTC()
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		tag, err := conn.Exec(ctx, `
			UPDATE client_profiles SET principal_id = $1, updated_at = $2 WHERE id = $3`,
			principalID, updatedAt, clientID)
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
			return apperrors.New(apperrors.ErrCodeNotFound, "client profile not found")
		}
		return mapWriteErr(err, "client profile")
	}
	return nil
}

// Insert creates a client profile row.
func (r *ClientRepo) Insert(ctx context.Context, profile *identity.ClientProfile) (*identity.ClientProfile, error) {
	createdAt := r.timeProvider.Now().UTC()

	var out identity.ClientProfile
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			INSERT INTO client_profiles (
				principal_id, company_id, email, name, phone, address,
				assigned_to, is_active, created_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			RETURNING `+clientColumns,
			profile.PrincipalID,
			profile.CompanyID,
			identity.NormalizeEmail(profile.Email),
			profile.Name,
			profile.Phone,
			profile.Address,
			profile.AssignedTo,
			profile.IsActive,
			createdAt,
		)
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[identity.ClientProfile])
		return err
	}); err != nil {
		return nil, mapWriteErr(err, "client profile")
	}
	return &out, nil
}

func (r *ClientRepo) getOne(ctx context.Context, query string, args ...any) (*identity.ClientProfile, error) {
	var out identity.ClientProfile
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[identity.ClientProfile])
		return err
	}); err != nil {
		return nil, mapReadErr(err, "client profile")
	}
	return &out, nil
}

package data

import (
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	apperrors "github.com/arkline/erp-api/internal/errors"
)

// mapReadErr converts pgx read failures into application errors. No-row
// results become not_found so callers can branch without importing pgx.
func mapReadErr(err error, what string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.New(apperrors.ErrCodeNotFound, what+" not found")
	}
	return apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to get "+what)
}

// mapWriteErr converts pgx write failures. Unique violations become conflict
// with a message naming the constraint's subject.
func mapWriteErr(err error, what string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.UniqueViolation:
			return apperrors.New(apperrors.ErrCodeConflict, what+" already exists")
		case pgerrcode.ForeignKeyViolation:
			return apperrors.New(apperrors.ErrCodeValidation,
				fmt.Sprintf("%s references a missing row (%s)", what, pgErr.ConstraintName))
		}
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.New(apperrors.ErrCodeNotFound, what+" not found")
	}
	return apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to write "+what)
}

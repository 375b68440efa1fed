package data

import (
	"context"
	"database/sql"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arkline/erp-api/internal/domain/identity"
	apperrors "github.com/arkline/erp-api/internal/errors"
	"github.com/arkline/erp-api/internal/testutil"
)

func mustCreateCompany(t *testing.T, db *sql.DB) *identity.Company {
	t.Helper()
	company, err := NewCompanyRepo(db).Insert(context.Background(), "Arkline Ltd")
	require.NoError(t, err)
	return company
}

func TestClientRepo_InsertAndLookups(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	repo := NewClientRepo(db)
	ctx := context.Background()
	company := mustCreateCompany(t, db)

	principalID := uuid.NewString()
	created, err := repo.Insert(ctx, testutil.NewClientProfile().
		WithCompanyID(company.ID).
		WithEmail("Ama@Example.com").
		WithPrincipalID(principalID).
		Build())
	require.NoError(t, err)
	assert.Equal(t, "ama@example.com", created.Email)
	assert.True(t, created.IsActive)

	byPrincipal, err := repo.GetActiveByPrincipalID(ctx, principalID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, byPrincipal.ID)

	byEmail, err := repo.GetActiveByEmail(ctx, "AMA@example.com")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byEmail.ID)
}

func TestClientRepo_InactiveExcluded(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	repo := NewClientRepo(db)
	ctx := context.Background()
	company := mustCreateCompany(t, db)

	principalID := uuid.NewString()
	_, err := repo.Insert(ctx, testutil.NewClientProfile().
		WithCompanyID(company.ID).
		WithEmail("gone@example.com").
		WithPrincipalID(principalID).
		Inactive().
		Build())
	require.NoError(t, err)

	_, err = repo.GetActiveByPrincipalID(ctx, principalID)
	assert.True(t, apperrors.IsNotFound(err))

	_, err = repo.GetActiveByEmail(ctx, "gone@example.com")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestClientRepo_SetPrincipalID(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	repo := NewClientRepo(db)
	ctx := context.Background()
	company := mustCreateCompany(t, db)

	created, err := repo.Insert(ctx, testutil.NewClientProfile().
		WithCompanyID(company.ID).
		WithEmail("ama@example.com").
		Build())
	require.NoError(t, err)
	assert.Nil(t, created.PrincipalID)

	principalID := uuid.NewString()
	require.NoError(t, repo.SetPrincipalID(ctx, created.ID, principalID))

	got, err := repo.GetActiveByPrincipalID(ctx, principalID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)

	// Missing row maps to not_found.
	err = repo.SetPrincipalID(ctx, uuid.NewString(), principalID)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestCompanyRepo_FirstActive(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	repo := NewCompanyRepo(db)
	ctx := context.Background()

	_, err := repo.FirstActive(ctx)
	assert.True(t, apperrors.IsNotFound(err))

	first, err := NewCompanyRepoWithTimeProvider(db,
		NewFixedTimeProvider(mustParseTime(t, "2026-01-01T00:00:00Z"))).Insert(ctx, "First Ltd")
	require.NoError(t, err)

	_, err = NewCompanyRepoWithTimeProvider(db,
		NewFixedTimeProvider(mustParseTime(t, "2026-02-01T00:00:00Z"))).Insert(ctx, "Second Ltd")
	require.NoError(t, err)

	got, err := repo.FirstActive(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)
}

func TestCompanyRepo_InsertValidation(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	_, err := NewCompanyRepo(db).Insert(context.Background(), "   ")
	assert.True(t, apperrors.IsValidation(err))
}

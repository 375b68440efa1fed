package data

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arkline/erp-api/internal/domain/identity"
	apperrors "github.com/arkline/erp-api/internal/errors"
	"github.com/arkline/erp-api/internal/testutil"
)

func TestStaffRepo_InsertAndGet(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	repo := NewStaffRepo(db)
	ctx := context.Background()

	principalID := uuid.NewString()
	created, err := repo.Insert(ctx, testutil.NewStaffProfile().
		WithID(principalID).
		WithPrincipalID(principalID).
		WithEmail("Kofi@Example.com").
		Build())
	require.NoError(t, err)
	assert.Equal(t, principalID, created.ID)
	assert.Equal(t, "kofi@example.com", created.Email)
	assert.Equal(t, identity.RoleStaff, created.Role)
	assert.False(t, created.IsBanned)

	byID, err := repo.GetByID(ctx, principalID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, byID.ID)

	// Email lookup is case-insensitive.
	byEmail, err := repo.GetByEmail(ctx, "KOFI@example.com")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byEmail.ID)
}

func TestStaffRepo_InsertGeneratesID(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	repo := NewStaffRepo(db)

	created, err := repo.Insert(context.Background(), testutil.NewStaffProfile().Build())
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
}

func TestStaffRepo_NotFound(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	repo := NewStaffRepo(db)
	ctx := context.Background()

	_, err := repo.GetByEmail(ctx, "missing@example.com")
	assert.True(t, apperrors.IsNotFound(err))

	_, err = repo.GetByID(ctx, uuid.NewString())
	assert.True(t, apperrors.IsNotFound(err))
}

func TestStaffRepo_DuplicateEmailConflict(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	repo := NewStaffRepo(db)
	ctx := context.Background()

	_, err := repo.Insert(ctx, testutil.NewStaffProfile().WithEmail("dupe@example.com").Build())
	require.NoError(t, err)

	_, err = repo.Insert(ctx, testutil.NewStaffProfile().WithEmail("DUPE@example.com").Build())
	assert.True(t, apperrors.IsConflict(err), "got %v", err)
}

package redis

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arkline/erp-api/internal/domain/identity"
	"github.com/arkline/erp-api/internal/ports"
	"github.com/arkline/erp-api/internal/testutil"
)

// setupTestRedis creates a Redis client for testing.
// Tests will be skipped if Redis is not available.
func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	return testutil.SetupTestRedis(t)
}

func TestSessionStore_SaveAndGet(t *testing.T) {
	client := setupTestRedis(t)
	defer client.Close()

	store := NewSessionStore(client)
	ctx := context.Background()

	session := identity.Session{
		ID:        "test-session-1",
		UserID:    "user-123",
		Email:     "user@example.com",
		Role:      identity.RoleStaff,
		FirstName: "Ama",
		LastName:  "Mensah",
		ExpiresAt: time.Now().Add(30 * time.Minute),
	}

	err := store.Save(ctx, session)
	require.NoError(t, err)

	retrieved, err := store.Get(ctx, "test-session-1")
	require.NoError(t, err)
	assert.Equal(t, session.ID, retrieved.ID)
	assert.Equal(t, session.UserID, retrieved.UserID)
	assert.Equal(t, session.Email, retrieved.Email)
	assert.Equal(t, session.Role, retrieved.Role)
	assert.WithinDuration(t, session.ExpiresAt, retrieved.ExpiresAt, time.Second)
}

func TestSessionStore_GetNonExistent(t *testing.T) {
	client := setupTestRedis(t)
	defer client.Close()

	store := NewSessionStore(client)
	ctx := context.Background()

	_, err := store.Get(ctx, "non-existent")
	assert.ErrorIs(t, err, ports.ErrSessionNotFound)
}

func TestSessionStore_RejectsExpired(t *testing.T) {
	client := setupTestRedis(t)
	defer client.Close()

	store := NewSessionStore(client)
	ctx := context.Background()

	session := identity.Session{
		ID:        "expired-session",
		UserID:    "user-123",
		ExpiresAt: time.Now().Add(-time.Minute),
	}

	err := store.Save(ctx, session)
	assert.Error(t, err)
}

func TestSessionStore_Delete(t *testing.T) {
	client := setupTestRedis(t)
	defer client.Close()

	store := NewSessionStore(client)
	ctx := context.Background()

	session := identity.Session{
		ID:        "delete-me",
		UserID:    "user-123",
		ExpiresAt: time.Now().Add(time.Hour),
	}
	require.NoError(t, store.Save(ctx, session))

	require.NoError(t, store.Delete(ctx, "delete-me"))

	_, err := store.Get(ctx, "delete-me")
	assert.ErrorIs(t, err, ports.ErrSessionNotFound)

	// Deleting a missing session is not an error.
	assert.NoError(t, store.Delete(ctx, "delete-me"))
}

func TestSessionStore_CustomPrefix(t *testing.T) {
	client := setupTestRedis(t)
	defer client.Close()

	store := NewSessionStoreWithPrefix(client, "erp:sess:")
	ctx := context.Background()

	session := identity.Session{
		ID:        "prefixed",
		UserID:    "user-123",
		ExpiresAt: time.Now().Add(time.Hour),
	}
	require.NoError(t, store.Save(ctx, session))

	exists, err := client.Exists(ctx, "erp:sess:prefixed").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), exists)
}

package session

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"curricula/internal/auth/models"
	"curricula/internal/auth/roles"
	"curricula/internal/auth/store/user"
	"curricula/pkg/platform/sentinel"
)

func newStores(t *testing.T) (*user.InMemoryStore, *InMemoryStore, *models.Identity) {
	t.Helper()
	users := user.NewMemory()
	identity := &models.Identity{
		ID:       uuid.New(),
		Email:    "s@example.com",
		IsActive: true,
		Profile: &models.Profile{
			ID:       uuid.New(),
			FullName: "Session User",
			Email:    "s@example.com",
			Role:     roles.Student,
		},
	}
	require.NoError(t, users.Create(context.Background(), identity))
	return users, NewMemory(users), identity
}

func TestCreateGeneratesOpaqueToken(t *testing.T) {
	_, store, identity := newStores(t)
	ctx := context.Background()

	sess, err := store.Create(ctx, identity.ID, models.ClientMeta{IP: "10.0.0.1", UserAgent: "test-agent"})
	require.NoError(t, err)

	assert.Len(t, sess.RefreshToken, 128) // 64 random bytes, hex-encoded
	assert.Equal(t, identity.ID, sess.IdentityID)
	assert.WithinDuration(t, time.Now().Add(RefreshTokenTTL), sess.ExpiresAt, time.Minute)

	other, err := store.Create(ctx, identity.ID, models.ClientMeta{})
	require.NoError(t, err)
	assert.NotEqual(t, sess.RefreshToken, other.RefreshToken)
}

func TestFindByTokenJoinsIdentity(t *testing.T) {
	_, store, identity := newStores(t)
	ctx := context.Background()

	sess, err := store.Create(ctx, identity.ID, models.ClientMeta{})
	require.NoError(t, err)

	found, err := store.FindByToken(ctx, sess.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, sess.ID, found.Session.ID)
	assert.Equal(t, identity.Email, found.Identity.Email)
	require.NotNil(t, found.Identity.Profile)
	assert.Equal(t, roles.Student, found.Identity.Profile.Role)

	_, err = store.FindByToken(ctx, "unknown-token")
	require.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestRotateReplacesTokenOnSameRow(t *testing.T) {
	_, store, identity := newStores(t)
	ctx := context.Background()

	sess, err := store.Create(ctx, identity.ID, models.ClientMeta{})
	require.NoError(t, err)

	newToken, err := NewRefreshToken()
	require.NoError(t, err)
	newExpiry := Expiry(time.Now())

	require.NoError(t, store.Rotate(ctx, sess.ID, sess.RefreshToken, newToken, newExpiry))

	// Old token gone, new token resolves to the same session id.
	_, err = store.FindByToken(ctx, sess.RefreshToken)
	require.ErrorIs(t, err, sentinel.ErrNotFound)

	found, err := store.FindByToken(ctx, newToken)
	require.NoError(t, err)
	assert.Equal(t, sess.ID, found.Session.ID)

	// Rotating with the consumed token fails; no second row appears.
	anotherToken, err := NewRefreshToken()
	require.NoError(t, err)
	err = store.Rotate(ctx, sess.ID, sess.RefreshToken, anotherToken, newExpiry)
	require.ErrorIs(t, err, sentinel.ErrNotFound)
}

// TestRotateConcurrentSingleWinner drives many rotations of the same token in
// parallel; the conditional update admits exactly one winner.
func TestRotateConcurrentSingleWinner(t *testing.T) {
	_, store, identity := newStores(t)
	ctx := context.Background()

	sess, err := store.Create(ctx, identity.ID, models.ClientMeta{})
	require.NoError(t, err)

	const goroutines = 32
	var wg sync.WaitGroup
	var wins, losses atomic.Int32

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			newToken, err := NewRefreshToken()
			if err != nil {
				return
			}
			err = store.Rotate(ctx, sess.ID, sess.RefreshToken, newToken, Expiry(time.Now()))
			if err == nil {
				wins.Add(1)
			} else {
				losses.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
	assert.Equal(t, int32(goroutines-1), losses.Load())
}

func TestDeleteByTokenIsIdempotent(t *testing.T) {
	_, store, identity := newStores(t)
	ctx := context.Background()

	sess, err := store.Create(ctx, identity.ID, models.ClientMeta{})
	require.NoError(t, err)

	n, err := store.DeleteByToken(ctx, sess.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = store.DeleteByToken(ctx, sess.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestDeleteAllForIdentity(t *testing.T) {
	users, store, identity := newStores(t)
	ctx := context.Background()

	other := &models.Identity{
		ID:      uuid.New(),
		Email:   "other@example.com",
		Profile: &models.Profile{ID: uuid.New(), FullName: "Other", Email: "other@example.com", Role: roles.Teacher},
	}
	require.NoError(t, users.Create(ctx, other))

	var mine []*models.Session
	for i := 0; i < 3; i++ {
		sess, err := store.Create(ctx, identity.ID, models.ClientMeta{})
		require.NoError(t, err)
		mine = append(mine, sess)
	}
	kept, err := store.Create(ctx, other.ID, models.ClientMeta{})
	require.NoError(t, err)

	n, err := store.DeleteAllForIdentity(ctx, identity.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	for _, sess := range mine {
		_, err := store.FindByToken(ctx, sess.RefreshToken)
		require.ErrorIs(t, err, sentinel.ErrNotFound)
	}

	// The other identity's session survives.
	_, err = store.FindByToken(ctx, kept.RefreshToken)
	require.NoError(t, err)
}

package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/financeflow/internal/models"
)

func setupStore(t *testing.T, ttl time.Duration) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewStore(client, ttl), mr
}

func TestStore_SaveAndLoad(t *testing.T) {
	store, mr := setupStore(t, 0)
	ctx := context.Background()

	_, found, err := store.Load(ctx)
	require.NoError(t, err)
	assert.False(t, found)

	user := models.NewUser("alice", "alice@example.com", "hash")
	user.Categories = []models.Category{{Name: "Food", Subcategories: []string{"Dining"}}}
	require.NoError(t, store.Save(ctx, &Profile{User: *user, Token: "token-1"}))

	assert.Equal(t, user.ID, mustGet(t, mr, "session:current"))
	assert.True(t, mr.Exists("session:profile:"+user.ID))
	assert.NotContains(t, mustGet(t, mr, "session:profile:"+user.ID), "hash")

	p, found, err := store.Load(ctx)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "token-1", p.Token)
	assert.Equal(t, "alice", p.User.Username)
	assert.Equal(t, user.Categories, p.User.Categories)
	assert.False(t, p.SavedAt.IsZero())

	// Saving another user switches the current session.
	bob := models.NewUser("bob", "bob@example.com", "hash")
	require.NoError(t, store.Save(ctx, &Profile{User: *bob}))
	p, _, err = store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, bob.ID, p.User.ID)

	require.NoError(t, store.Clear(ctx))
	_, found, err = store.Load(ctx)
	require.NoError(t, err)
	assert.False(t, found)
	assert.True(t, mr.Exists("session:profile:"+user.ID), "other profiles are kept")
}

func TestStore_TTL(t *testing.T) {
	store, mr := setupStore(t, time.Hour)
	ctx := context.Background()

	user := models.NewUser("alice", "alice@example.com", "hash")
	require.NoError(t, store.Save(ctx, &Profile{User: *user}))
	assert.Equal(t, time.Hour, mr.TTL("session:current"))

	mr.FastForward(2 * time.Hour)
	_, found, err := store.Load(ctx)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestStore_Errors(t *testing.T) {
	store, mr := setupStore(t, 0)
	ctx := context.Background()

	require.Error(t, store.Save(ctx, &Profile{}), "profile without a user id")

	require.NoError(t, mr.Set("session:current", "ghost"))
	_, found, err := store.Load(ctx)
	require.NoError(t, err)
	assert.False(t, found, "dangling pointer")

	require.NoError(t, mr.Set("session:profile:ghost", "{not json"))
	_, _, err = store.Load(ctx)
	require.Error(t, err)

	mr.Close()
	_, _, err = store.Load(ctx)
	require.Error(t, err)
}

func mustGet(t *testing.T, mr *miniredis.Miniredis, key string) string {
	t.Helper()
	v, err := mr.Get(key)
	require.NoError(t, err)
	return v
}

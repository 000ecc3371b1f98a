package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/mmynk/financeflow/internal/auth"
	"github.com/mmynk/financeflow/internal/calculator"
	"github.com/mmynk/financeflow/internal/models"
	"github.com/mmynk/financeflow/internal/server"
	"github.com/mmynk/financeflow/internal/service"
	"github.com/mmynk/financeflow/internal/session"
	"github.com/mmynk/financeflow/internal/storage/sqlite"
	"github.com/mmynk/financeflow/pkg/api"
)

// countingTransport counts RemoveFriend calls that reach the network.
type countingTransport struct {
	removals atomic.Int32
}

func (t *countingTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	if strings.HasSuffix(r.URL.Path, "/RemoveFriend") {
		t.removals.Add(1)
	}
	return http.DefaultTransport.RoundTrip(r)
}

type testEnv struct {
	url       string
	transport *countingTransport
	redis     *redis.Client
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store, err := sqlite.New(filepath.Join(t.TempDir(), "client.db"))
	require.NoError(t, err)

	jwtManager := auth.NewJWTManager("0123456789abcdef0123456789abcdef", time.Hour)
	authenticator := auth.NewPasswordAuthenticator(store).WithCost(bcrypt.MinCost)
	aggregator := calculator.NewAggregator()
	srv := httptest.NewServer(server.NewRouter(server.Config{
		JWTManager:   jwtManager,
		Auth:         service.NewAuthService(authenticator, jwtManager, nil),
		Profile:      service.NewProfileService(store, authenticator),
		Ledger:       service.NewLedgerService(store, aggregator, 0),
		Friend:       service.NewFriendService(store, aggregator),
		Notification: service.NewNotificationService(store, aggregator),
	}))

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	t.Cleanup(func() {
		_ = rdb.Close()
		srv.Close()
		store.Close()
	})
	return &testEnv{url: srv.URL, transport: &countingTransport{}, redis: rdb}
}

func (e *testEnv) newClient(store ProfileStore) *Client {
	return New(&http.Client{Transport: e.transport}, e.url, store, nil)
}

func (e *testEnv) signup(t *testing.T, name string) *Client {
	t.Helper()
	c := e.newClient(nil)
	_, err := c.Signup(context.Background(), name, name+"@example.com", name+"-password")
	require.NoError(t, err)
	return c
}

func pending(t *testing.T, c *Client, kind models.NotificationType) models.Notification {
	t.Helper()
	inbox, err := c.Notifications(context.Background())
	require.NoError(t, err)
	for _, n := range inbox {
		if n.Type == kind && !n.IsResolved {
			return n
		}
	}
	t.Fatalf("no unresolved %s notification", kind)
	return models.Notification{}
}

func TestClient_NotSignedIn(t *testing.T) {
	env := setupTestEnv(t)
	c := env.newClient(nil)

	_, err := c.FetchHistory(context.Background())
	assert.ErrorIs(t, err, ErrNotSignedIn)
	assert.ErrorIs(t, c.RemoveFriend(context.Background(), "someone"), ErrNotSignedIn)

	ok, err := c.Restore(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestClient_SessionRoundTrip(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	store := session.NewStore(env.redis, 0)

	first := env.newClient(store)
	_, err := first.Signup(ctx, "alice", "alice@example.com", "alice-password")
	require.NoError(t, err)
	_, err = first.UpdateProfile(ctx, api.ProfileUpdate{Theme: ptr("emerald")}, "")
	require.NoError(t, err)

	// A second process picks up the stored session.
	second := env.newClient(store)
	ok, err := second.Restore(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "alice", second.User().Username)
	assert.Equal(t, "emerald", second.User().Theme)

	user, err := second.RefreshProfile(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.User().ID, user.ID)
}

func TestClient_RemoveFriendGuard(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	alice := env.signup(t, "alice")
	bob := env.signup(t, "bob")

	_, err := alice.SendFriendRequest(ctx, "bob")
	require.NoError(t, err)
	require.NoError(t, bob.HandleAction(ctx, pending(t, bob, models.NotifyFriendRequest).ID, api.ActionApproveFriend, 0))

	bobID := bob.User().ID
	loan, err := alice.SaveTransaction(ctx, models.Record{Type: models.KindMoneyGiven, FriendID: bobID, Amount: 60})
	require.NoError(t, err)

	balance, err := alice.Balance(ctx, bobID)
	require.NoError(t, err)
	assert.Equal(t, 60.0, balance)

	ledger, err := alice.FriendLedger(ctx, bobID)
	require.NoError(t, err)
	require.Len(t, ledger.TheyOwe, 1)
	assert.Equal(t, loan.ID, ledger.TheyOwe[0].Header().ID)
	assert.Equal(t, 60.0, ledger.Net)

	err = alice.RemoveFriend(ctx, bobID)
	require.True(t, errors.Is(err, ErrOutstandingDues), "got %v", err)
	assert.Zero(t, env.transport.removals.Load(), "guarded removal must not reach the server")

	_, err = alice.SaveTransaction(ctx, models.Record{Type: models.KindHePaidBack, FriendID: bobID, Amount: 60})
	require.NoError(t, err)

	require.NoError(t, alice.RemoveFriend(ctx, bobID))
	assert.Equal(t, int32(1), env.transport.removals.Load())

	friends, err := alice.FetchFriends(ctx, api.FilterAll, "")
	require.NoError(t, err)
	assert.Empty(t, friends.Friends)
}

func ptr[T any](v T) *T { return &v }

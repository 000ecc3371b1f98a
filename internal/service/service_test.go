package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/mmynk/financeflow/internal/auth"
	"github.com/mmynk/financeflow/internal/calculator"
	"github.com/mmynk/financeflow/internal/models"
	"github.com/mmynk/financeflow/internal/server"
	"github.com/mmynk/financeflow/internal/storage/sqlite"
	"github.com/mmynk/financeflow/pkg/api"
	"github.com/mmynk/financeflow/pkg/api/apiconnect"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type testEnv struct {
	url   string
	store *sqlite.SQLiteStore
}

// setupTestServer starts the full router over a temporary database.
func setupTestServer(t *testing.T) *testEnv {
	t.Helper()

	store, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err, "failed to create store")

	jwtManager := auth.NewJWTManager(testSecret, time.Hour)
	authenticator := auth.NewPasswordAuthenticator(store).WithCost(bcrypt.MinCost)
	aggregator := calculator.NewAggregator()

	router := server.NewRouter(server.Config{
		JWTManager:     jwtManager,
		AllowedOrigins: []string{"*"},
		Health:         store.Ping,
		Auth:           NewAuthService(authenticator, jwtManager, nil),
		Profile:        NewProfileService(store, authenticator),
		Ledger:         NewLedgerService(store, aggregator, 0),
		Friend:         NewFriendService(store, aggregator),
		Notification:   NewNotificationService(store, aggregator),
	})
	srv := httptest.NewServer(router)

	t.Cleanup(func() {
		srv.Close()
		store.Close()
	})
	return &testEnv{url: srv.URL, store: store}
}

// actor is a signed-in test user with authenticated clients.
type actor struct {
	ID       string
	Name     string
	Password string
	Profile  apiconnect.ProfileServiceClient
	Ledger   apiconnect.LedgerServiceClient
	Friends  apiconnect.FriendServiceClient
	Inbox    apiconnect.NotificationServiceClient
}

func bearer(token string) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			req.Header().Set("Authorization", "Bearer "+token)
			return next(ctx, req)
		}
	}
}

func (e *testEnv) authClient() apiconnect.AuthServiceClient {
	return apiconnect.NewAuthServiceClient(http.DefaultClient, e.url)
}

func (e *testEnv) signup(t *testing.T, name string) *actor {
	t.Helper()
	password := name + "-password"
	resp, err := e.authClient().Signup(context.Background(), connect.NewRequest(&api.SignupRequest{
		Username: name,
		Email:    name + "@example.com",
		Password: password,
	}))
	require.NoError(t, err, "signup %s", name)

	opt := connect.WithInterceptors(bearer(resp.Msg.Token))
	return &actor{
		ID:       resp.Msg.User.ID,
		Name:     name,
		Password: password,
		Profile:  apiconnect.NewProfileServiceClient(http.DefaultClient, e.url, opt),
		Ledger:   apiconnect.NewLedgerServiceClient(http.DefaultClient, e.url, opt),
		Friends:  apiconnect.NewFriendServiceClient(http.DefaultClient, e.url, opt),
		Inbox:    apiconnect.NewNotificationServiceClient(http.DefaultClient, e.url, opt),
	}
}

// pending returns the newest unresolved notification of the given type.
func (a *actor) pending(t *testing.T, kind models.NotificationType) models.Notification {
	t.Helper()
	resp, err := a.Inbox.FetchNotifications(context.Background(), connect.NewRequest(&api.FetchNotificationsRequest{}))
	require.NoError(t, err)
	for _, n := range resp.Msg.Notifications {
		if n.Type == kind && !n.IsResolved {
			return n
		}
	}
	t.Fatalf("%s has no unresolved %s notification", a.Name, kind)
	return models.Notification{}
}

func (a *actor) act(t *testing.T, n models.Notification, action string, amount float64) {
	t.Helper()
	_, err := a.Inbox.HandleAction(context.Background(), connect.NewRequest(&api.HandleActionRequest{
		NotificationID: n.ID,
		Action:         action,
		Amount:         amount,
	}))
	require.NoError(t, err, "%s %s on %s", a.Name, action, n.Type)
}

func (a *actor) save(t *testing.T, record models.Record) models.Record {
	t.Helper()
	resp, err := a.Ledger.SaveTransaction(context.Background(), connect.NewRequest(&api.SaveTransactionRequest{Transaction: record}))
	require.NoError(t, err, "save %s", record.Type)
	return resp.Msg.Transaction
}

func (a *actor) trySave(record models.Record) error {
	_, err := a.Ledger.SaveTransaction(context.Background(), connect.NewRequest(&api.SaveTransactionRequest{Transaction: record}))
	return err
}

func (a *actor) friend(t *testing.T, friendID string) models.Friend {
	t.Helper()
	resp, err := a.Friends.FetchFriends(context.Background(), connect.NewRequest(&api.FetchFriendsRequest{}))
	require.NoError(t, err)
	for _, f := range resp.Msg.Friends {
		if f.ID == friendID {
			return f
		}
	}
	t.Fatalf("%s is not a friend of %s", friendID, a.Name)
	return models.Friend{}
}

func (a *actor) entry(t *testing.T, id string) models.Record {
	t.Helper()
	resp, err := a.Ledger.FetchHistory(context.Background(), connect.NewRequest(&api.FetchHistoryRequest{}))
	require.NoError(t, err)
	for _, r := range resp.Msg.Transactions {
		if r.ID == id {
			return r
		}
	}
	t.Fatalf("%s cannot see entry %s", a.Name, id)
	return models.Record{}
}

// befriend sends a request from a to b and accepts it as b.
func befriend(t *testing.T, a, b *actor) {
	t.Helper()
	_, err := a.Friends.SendFriendRequest(context.Background(), connect.NewRequest(&api.SendFriendRequestRequest{
		UsernameOrEmail: b.Name,
	}))
	require.NoError(t, err)
	b.act(t, b.pending(t, models.NotifyFriendRequest), api.ActionApproveFriend, 0)
}

func requireCode(t *testing.T, want connect.Code, err error) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, want, connect.CodeOf(err), "error: %v", err)
}

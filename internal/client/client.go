// Package client is a typed FinanceFlow client. It keeps the signed-in user's
// profile in a ProfileStore and re-derives friend balances from the fetched
// history so destructive actions can be checked before they are sent.
package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"connectrpc.com/connect"

	"github.com/mmynk/financeflow/internal/calculator"
	"github.com/mmynk/financeflow/internal/models"
	"github.com/mmynk/financeflow/internal/session"
	"github.com/mmynk/financeflow/pkg/api"
	"github.com/mmynk/financeflow/pkg/api/apiconnect"
)

var (
	ErrNotSignedIn     = errors.New("not signed in")
	ErrOutstandingDues = errors.New("friend cannot be removed while dues are outstanding")
)

// ProfileStore persists the session between runs.
type ProfileStore interface {
	Save(ctx context.Context, p *session.Profile) error
	Load(ctx context.Context) (*session.Profile, bool, error)
}

// Client talks to a FinanceFlow server on behalf of one user.
type Client struct {
	auth    apiconnect.AuthServiceClient
	profile apiconnect.ProfileServiceClient
	ledger  apiconnect.LedgerServiceClient
	friends apiconnect.FriendServiceClient
	inbox   apiconnect.NotificationServiceClient

	store      ProfileStore
	aggregator *calculator.Aggregator

	mu    sync.RWMutex
	user  *models.User
	token string
}

// New creates a client for the server at baseURL. store may be nil, in which
// case the session lives only as long as the client.
func New(httpClient connect.HTTPClient, baseURL string, store ProfileStore, aggregator *calculator.Aggregator) *Client {
	if aggregator == nil {
		aggregator = calculator.NewAggregator()
	}
	c := &Client{store: store, aggregator: aggregator}
	opt := connect.WithInterceptors(c.bearer())
	c.auth = apiconnect.NewAuthServiceClient(httpClient, baseURL)
	c.profile = apiconnect.NewProfileServiceClient(httpClient, baseURL, opt)
	c.ledger = apiconnect.NewLedgerServiceClient(httpClient, baseURL, opt)
	c.friends = apiconnect.NewFriendServiceClient(httpClient, baseURL, opt)
	c.inbox = apiconnect.NewNotificationServiceClient(httpClient, baseURL, opt)
	return c
}

func (c *Client) bearer() connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			c.mu.RLock()
			token := c.token
			c.mu.RUnlock()
			if token == "" {
				return nil, ErrNotSignedIn
			}
			req.Header().Set("Authorization", "Bearer "+token)
			return next(ctx, req)
		}
	}
}

// User returns a copy of the signed-in user's profile, or nil.
func (c *Client) User() *models.User {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.user == nil {
		return nil
	}
	u := *c.user
	return &u
}

// Restore loads the stored session. It reports whether one was found.
func (c *Client) Restore(ctx context.Context) (bool, error) {
	if c.store == nil {
		return false, nil
	}
	p, ok, err := c.store.Load(ctx)
	if err != nil || !ok {
		return false, err
	}

	c.mu.Lock()
	c.user, c.token = &p.User, p.Token
	c.mu.Unlock()
	slog.Debug("Session restored", "user_id", p.User.ID)
	return true, nil
}

// Signup creates an account and signs in.
func (c *Client) Signup(ctx context.Context, username, email, password string) (*models.User, error) {
	resp, err := c.auth.Signup(ctx, connect.NewRequest(&api.SignupRequest{
		Username: username,
		Email:    email,
		Password: password,
	}))
	if err != nil {
		return nil, err
	}
	return c.signIn(ctx, resp.Msg)
}

// Login signs in with a username or email.
func (c *Client) Login(ctx context.Context, usernameOrEmail, password string) (*models.User, error) {
	resp, err := c.auth.Login(ctx, connect.NewRequest(&api.LoginRequest{
		UsernameOrEmail: usernameOrEmail,
		Password:        password,
	}))
	if err != nil {
		return nil, err
	}
	return c.signIn(ctx, resp.Msg)
}

func (c *Client) signIn(ctx context.Context, resp *api.AuthResponse) (*models.User, error) {
	c.mu.Lock()
	c.token = resp.Token
	c.mu.Unlock()
	if err := c.setUser(ctx, resp.User); err != nil {
		return nil, err
	}
	return c.User(), nil
}

// setUser replaces the cached profile and writes the session.
func (c *Client) setUser(ctx context.Context, user *models.User) error {
	if user == nil {
		return errors.New("server returned no user")
	}
	c.mu.Lock()
	c.user = user
	p := &session.Profile{User: *user, Token: c.token}
	c.mu.Unlock()

	if c.store == nil {
		return nil
	}
	if err := c.store.Save(ctx, p); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// RefreshProfile re-reads the profile from the server.
func (c *Client) RefreshProfile(ctx context.Context) (*models.User, error) {
	resp, err := c.profile.GetProfile(ctx, connect.NewRequest(&api.GetProfileRequest{}))
	if err != nil {
		return nil, err
	}
	if err := c.setUser(ctx, resp.Msg.User); err != nil {
		return nil, err
	}
	return c.User(), nil
}

// UpdateProfile applies updates. currentPassword is required for email,
// password and phone number changes.
func (c *Client) UpdateProfile(ctx context.Context, updates api.ProfileUpdate, currentPassword string) (*models.User, error) {
	resp, err := c.profile.UpdateProfile(ctx, connect.NewRequest(&api.UpdateProfileRequest{
		Updates:         updates,
		CurrentPassword: currentPassword,
	}))
	if err != nil {
		return nil, err
	}
	if err := c.setUser(ctx, resp.Msg.User); err != nil {
		return nil, err
	}
	return c.User(), nil
}

// FetchHistory returns every entry visible to the user, newest first.
func (c *Client) FetchHistory(ctx context.Context) ([]models.Record, error) {
	resp, err := c.ledger.FetchHistory(ctx, connect.NewRequest(&api.FetchHistoryRequest{}))
	if err != nil {
		return nil, err
	}
	return resp.Msg.Transactions, nil
}

// history fetches and decodes the user's entries.
func (c *Client) history(ctx context.Context) ([]models.Entry, error) {
	records, err := c.FetchHistory(ctx)
	if err != nil {
		return nil, err
	}
	entries := make([]models.Entry, 0, len(records))
	for _, r := range records {
		e, err := models.DecodeRecord(r)
		if err != nil {
			return nil, fmt.Errorf("failed to decode entry %s: %w", r.ID, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// SaveTransaction stores a new entry and returns it as saved.
func (c *Client) SaveTransaction(ctx context.Context, record models.Record) (models.Record, error) {
	resp, err := c.ledger.SaveTransaction(ctx, connect.NewRequest(&api.SaveTransactionRequest{Transaction: record}))
	if err != nil {
		return models.Record{}, err
	}
	return resp.Msg.Transaction, nil
}

// FetchFriends lists friends matching filter and search.
func (c *Client) FetchFriends(ctx context.Context, filter, search string) (*api.FetchFriendsResponse, error) {
	resp, err := c.friends.FetchFriends(ctx, connect.NewRequest(&api.FetchFriendsRequest{
		Filter: filter,
		Search: search,
	}))
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}

// SendFriendRequest asks another user to become a friend.
func (c *Client) SendFriendRequest(ctx context.Context, usernameOrEmail string) (models.Friend, error) {
	resp, err := c.friends.SendFriendRequest(ctx, connect.NewRequest(&api.SendFriendRequestRequest{
		UsernameOrEmail: usernameOrEmail,
	}))
	if err != nil {
		return models.Friend{}, err
	}
	return resp.Msg.Friend, nil
}

// Notifications returns the inbox, newest first.
func (c *Client) Notifications(ctx context.Context) ([]models.Notification, error) {
	resp, err := c.inbox.FetchNotifications(ctx, connect.NewRequest(&api.FetchNotificationsRequest{}))
	if err != nil {
		return nil, err
	}
	return resp.Msg.Notifications, nil
}

// HandleAction resolves a notification.
func (c *Client) HandleAction(ctx context.Context, notificationID, action string, amount float64) error {
	_, err := c.inbox.HandleAction(ctx, connect.NewRequest(&api.HandleActionRequest{
		NotificationID: notificationID,
		Action:         action,
		Amount:         amount,
	}))
	return err
}

// Balance is what friendID owes the user, derived from the fetched history.
// Negative means the user owes the friend.
func (c *Client) Balance(ctx context.Context, friendID string) (float64, error) {
	user := c.User()
	if user == nil {
		return 0, ErrNotSignedIn
	}
	history, err := c.history(ctx)
	if err != nil {
		return 0, err
	}
	return c.aggregator.NetBalance(history, user.ID, friendID), nil
}

// FriendLedger builds the drill-down view with one friend from the fetched
// history.
func (c *Client) FriendLedger(ctx context.Context, friendID string) (calculator.Ledger, error) {
	user := c.User()
	if user == nil {
		return calculator.Ledger{}, ErrNotSignedIn
	}
	history, err := c.history(ctx)
	if err != nil {
		return calculator.Ledger{}, err
	}
	return c.aggregator.FriendLedger(history, user.ID, friendID), nil
}

// RemoveFriend disconnects a friend. It refuses without contacting the server
// while anything is owed in either direction.
func (c *Client) RemoveFriend(ctx context.Context, friendID string) error {
	balance, err := c.Balance(ctx, friendID)
	if err != nil {
		return err
	}
	if !calculator.RemovalGuard(balance) {
		return fmt.Errorf("%w: balance is %.2f", ErrOutstandingDues, balance)
	}
	_, err = c.friends.RemoveFriend(ctx, connect.NewRequest(&api.RemoveFriendRequest{FriendID: friendID}))
	return err
}

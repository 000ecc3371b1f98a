package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"connectrpc.com/connect"

	"github.com/mmynk/financeflow/internal/calculator"
	"github.com/mmynk/financeflow/internal/middleware"
	"github.com/mmynk/financeflow/internal/models"
	"github.com/mmynk/financeflow/internal/storage"
	"github.com/mmynk/financeflow/pkg/api"
	"github.com/mmynk/financeflow/pkg/api/apiconnect"
)

const (
	friendSettled = "Settled"
	friendPending = "Pending"

	searchLimit = 20
)

var _ apiconnect.FriendServiceHandler = (*FriendService)(nil)

// FriendService implements the Connect FriendService.
type FriendService struct {
	store      storage.Store
	aggregator *calculator.Aggregator
}

// NewFriendService creates a new FriendService.
func NewFriendService(store storage.Store, aggregator *calculator.Aggregator) *FriendService {
	if aggregator == nil {
		aggregator = calculator.NewAggregator()
	}
	return &FriendService{store: store, aggregator: aggregator}
}

// FetchFriends lists the caller's accepted friends with their balances, plus
// the friend requests waiting for the caller.
func (s *FriendService) FetchFriends(ctx context.Context, req *connect.Request[api.FetchFriendsRequest]) (*connect.Response[api.FetchFriendsResponse], error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}

	switch req.Msg.Filter {
	case api.FilterAll, api.FilterOwe, api.FilterGet, api.FilterSettled:
	default:
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("unknown filter %q", req.Msg.Filter))
	}

	friendships, err := s.store.ListFriendships(ctx, userID)
	if err != nil {
		return nil, toConnectError("FetchFriends failed", err, "user_id", userID)
	}
	history, err := s.store.ListEntries(ctx, userID)
	if err != nil {
		return nil, toConnectError("FetchFriends failed", err, "user_id", userID)
	}

	ids := make([]string, len(friendships))
	for i, f := range friendships {
		ids[i] = f.Other(userID)
	}
	users, err := s.store.GetUsersByIDs(ctx, ids)
	if err != nil {
		return nil, toConnectError("FetchFriends failed", err, "user_id", userID)
	}

	resp := &api.FetchFriendsResponse{Friends: []models.Friend{}, Requests: []models.Friend{}}
	var balances []calculator.FriendBalance
	search := strings.ToLower(strings.TrimSpace(req.Msg.Search))

	for _, f := range friendships {
		friendID := f.Other(userID)
		friend := models.Friend{ID: friendID}
		if u, ok := users[friendID]; ok {
			friend.Name = u.Username
			friend.Email = u.Email
		}

		if f.Status != models.FriendshipAccepted {
			if f.RequestedBy != userID {
				friend.Status = friendPending
				resp.Requests = append(resp.Requests, friend)
			}
			continue
		}

		friend.Balance = s.aggregator.NetBalance(history, userID, friendID)
		friend.Status = friendPending
		if friend.Balance == 0 {
			friend.Status = friendSettled
		}
		balances = append(balances, calculator.FriendBalance{FriendID: friendID, NetBalance: friend.Balance})

		if search != "" && !strings.Contains(strings.ToLower(friend.Name), search) {
			continue
		}
		if matchesFilter(friend.Balance, req.Msg.Filter) {
			resp.Friends = append(resp.Friends, friend)
		}
	}

	summary := calculator.Summarize(balances)
	resp.TotalOwed = summary.TotalOwed
	resp.TotalOwing = summary.TotalOwing

	slog.Info("FetchFriends successful",
		"user_id", userID,
		"friends", len(resp.Friends),
		"requests", len(resp.Requests),
	)
	return connect.NewResponse(resp), nil
}

func matchesFilter(balance float64, filter string) bool {
	switch filter {
	case api.FilterOwe:
		return balance < 0
	case api.FilterGet:
		return balance > 0
	case api.FilterSettled:
		return balance == 0
	}
	return true
}

// SendFriendRequest asks another user, found by username or email, to become
// the caller's friend. A pending request from that user is accepted instead.
func (s *FriendService) SendFriendRequest(ctx context.Context, req *connect.Request[api.SendFriendRequestRequest]) (*connect.Response[api.SendFriendRequestResponse], error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info("SendFriendRequest request received", "user_id", userID, "login", req.Msg.UsernameOrEmail)

	target, err := s.store.GetUserByLogin(ctx, strings.TrimSpace(req.Msg.UsernameOrEmail))
	if err != nil {
		return nil, toConnectError("SendFriendRequest failed", err, "login", req.Msg.UsernameOrEmail)
	}
	if target.ID == userID {
		return nil, toConnectError("SendFriendRequest rejected", ErrSelfFriend, "user_id", userID)
	}

	friend := models.Friend{ID: target.ID, Name: target.Username, Email: target.Email, Status: friendPending}

	existing, err := s.store.GetFriendship(ctx, userID, target.ID)
	switch {
	case err == nil:
		if existing.Status == models.FriendshipPending && existing.RequestedBy == target.ID {
			if err := s.store.SetFriendshipStatus(ctx, userID, target.ID, models.FriendshipAccepted); err != nil {
				return nil, toConnectError("SendFriendRequest failed", err, "user_id", userID)
			}
			friend.Status = friendSettled
			slog.Info("Crossed friend requests accepted", "user_id", userID, "friend_id", target.ID)
			return connect.NewResponse(&api.SendFriendRequestResponse{Friend: friend}), nil
		}
		return nil, toConnectError("SendFriendRequest rejected",
			fmt.Errorf("friendship with %s: %w", target.Username, storage.ErrAlreadyExists), "user_id", userID)
	case !errors.Is(err, storage.ErrNotFound):
		return nil, toConnectError("SendFriendRequest failed", err, "user_id", userID)
	}

	if err := s.store.CreateFriendship(ctx, &models.Friendship{
		UserA:       userID,
		UserB:       target.ID,
		Status:      models.FriendshipPending,
		RequestedBy: userID,
	}); err != nil {
		return nil, toConnectError("SendFriendRequest failed", err, "user_id", userID)
	}

	notify(ctx, s.store, &models.Notification{
		TargetUserID: target.ID,
		SenderID:     userID,
		SenderName:   middleware.GetUsername(ctx),
		Type:         models.NotifyFriendRequest,
		Message:      "wants to be your friend",
	})

	slog.Info("Friend request sent", "user_id", userID, "friend_id", target.ID)
	return connect.NewResponse(&api.SendFriendRequestResponse{Friend: friend}), nil
}

// RemoveFriend disconnects the caller from a friend. It is refused while any
// amount is owed in either direction.
func (s *FriendService) RemoveFriend(ctx context.Context, req *connect.Request[api.RemoveFriendRequest]) (*connect.Response[api.RemoveFriendResponse], error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}
	friendID := req.Msg.FriendID

	if _, err := s.store.GetFriendship(ctx, userID, friendID); err != nil {
		return nil, toConnectError("RemoveFriend failed", err, "user_id", userID, "friend_id", friendID)
	}

	history, err := s.store.ListEntries(ctx, userID)
	if err != nil {
		return nil, toConnectError("RemoveFriend failed", err, "user_id", userID)
	}
	balance := s.aggregator.NetBalance(history, userID, friendID)
	if !calculator.RemovalGuard(balance) {
		return nil, toConnectError("RemoveFriend rejected",
			fmt.Errorf("%w: balance %.2f", ErrOutstandingDues, balance),
			"user_id", userID, "friend_id", friendID)
	}

	if err := s.store.DeleteFriendship(ctx, userID, friendID); err != nil {
		return nil, toConnectError("RemoveFriend failed", err, "user_id", userID, "friend_id", friendID)
	}

	slog.Info("Friend removed", "user_id", userID, "friend_id", friendID)
	return connect.NewResponse(&api.RemoveFriendResponse{}), nil
}

// SearchUsers finds other users by username or email.
func (s *FriendService) SearchUsers(ctx context.Context, req *connect.Request[api.SearchUsersRequest]) (*connect.Response[api.SearchUsersResponse], error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}

	resp := &api.SearchUsersResponse{Users: []api.UserSummary{}}
	query := strings.TrimSpace(req.Msg.Query)
	if query == "" {
		return connect.NewResponse(resp), nil
	}

	users, err := s.store.SearchUsers(ctx, query, searchLimit)
	if err != nil {
		return nil, toConnectError("SearchUsers failed", err, "user_id", userID)
	}
	for _, u := range users {
		if u.ID == userID {
			continue
		}
		resp.Users = append(resp.Users, api.UserSummary{
			ID:       u.ID,
			Username: u.Username,
			Email:    u.Email,
			PhotoURL: u.PhotoURL,
		})
	}
	return connect.NewResponse(resp), nil
}

package service

import (
	"context"
	"errors"
	"log/slog"

	"connectrpc.com/connect"

	"github.com/mmynk/financeflow/internal/auth"
	"github.com/mmynk/financeflow/internal/middleware"
	"github.com/mmynk/financeflow/internal/models"
	"github.com/mmynk/financeflow/internal/storage"
)

var (
	ErrUnbalancedSplit      = errors.New("split shares do not add up to the total")
	ErrCreatorNotInSplit    = errors.New("split must include its creator")
	ErrPayerNotInSplit      = errors.New("split payer must be a participant")
	ErrDuplicateParticipant = errors.New("split lists a participant twice")
	ErrNotFriends           = errors.New("users are not friends")
	ErrSelfFriend           = errors.New("cannot befriend yourself")
	ErrOutstandingDues      = errors.New("friend cannot be removed while dues are outstanding")
	ErrNotYourNotification  = errors.New("notification belongs to another user")
	ErrAlreadyResolved      = errors.New("notification is already resolved")
	ErrInvalidAction        = errors.New("action does not apply to this notification")
	ErrInvalidAmount        = errors.New("amount must be positive")
	ErrInvalidWindow        = errors.New("invalid dashboard window")
	ErrInvalidProfile       = errors.New("invalid profile update")
)

// codeOf maps domain and storage errors to Connect codes.
func codeOf(err error) connect.Code {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return connect.CodeNotFound
	case errors.Is(err, storage.ErrAlreadyExists), errors.Is(err, auth.ErrUserExists):
		return connect.CodeAlreadyExists
	case errors.Is(err, auth.ErrInvalidCredentials):
		return connect.CodeUnauthenticated
	case errors.Is(err, ErrNotYourNotification):
		return connect.CodePermissionDenied
	case errors.Is(err, ErrNotFriends), errors.Is(err, ErrOutstandingDues), errors.Is(err, ErrAlreadyResolved):
		return connect.CodeFailedPrecondition
	case errors.Is(err, ErrUnbalancedSplit), errors.Is(err, ErrCreatorNotInSplit),
		errors.Is(err, ErrPayerNotInSplit), errors.Is(err, ErrDuplicateParticipant),
		errors.Is(err, ErrSelfFriend), errors.Is(err, ErrInvalidAction),
		errors.Is(err, ErrInvalidAmount), errors.Is(err, ErrInvalidWindow),
		errors.Is(err, ErrInvalidProfile),
		errors.Is(err, auth.ErrWeakPassword), errors.Is(err, auth.ErrInvalidUsername),
		errors.Is(err, auth.ErrInvalidEmail),
		errors.Is(err, models.ErrUnknownKind), errors.Is(err, models.ErrMissingFriend),
		errors.Is(err, models.ErrMissingParticipants), errors.Is(err, models.ErrNegativeAmount):
		return connect.CodeInvalidArgument
	}
	return connect.CodeInternal
}

// toConnectError logs err and wraps it with the matching Connect code.
func toConnectError(msg string, err error, args ...any) error {
	code := codeOf(err)
	args = append(args, "error", err)
	if code == connect.CodeInternal {
		slog.Error(msg, args...)
	} else {
		slog.Warn(msg, args...)
	}
	return connect.NewError(code, err)
}

// currentUser returns the authenticated user ID set by the auth interceptor.
func currentUser(ctx context.Context) (string, error) {
	userID := middleware.GetUserID(ctx)
	if userID == "" {
		return "", connect.NewError(connect.CodeUnauthenticated, auth.ErrMissingToken)
	}
	return userID, nil
}

// notify delivers a notification. Delivery failures are logged and do not fail
// the request that triggered them.
func notify(ctx context.Context, store storage.NotificationStore, n *models.Notification) {
	if err := store.CreateNotification(ctx, n); err != nil {
		slog.Error("Failed to create notification",
			"type", n.Type,
			"target_user_id", n.TargetUserID,
			"error", err,
		)
	}
}

// requireFriends checks that userA and userB have an accepted friendship.
func requireFriends(ctx context.Context, store storage.FriendStore, userA, userB string) error {
	f, err := store.GetFriendship(ctx, userA, userB)
	if errors.Is(err, storage.ErrNotFound) {
		return ErrNotFriends
	}
	if err != nil {
		return err
	}
	if f.Status != models.FriendshipAccepted {
		return ErrNotFriends
	}
	return nil
}

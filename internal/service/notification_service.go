package service

import (
	"context"
	"fmt"
	"log/slog"

	"connectrpc.com/connect"

	"github.com/mmynk/financeflow/internal/calculator"
	"github.com/mmynk/financeflow/internal/middleware"
	"github.com/mmynk/financeflow/internal/models"
	"github.com/mmynk/financeflow/internal/storage"
	"github.com/mmynk/financeflow/pkg/api"
	"github.com/mmynk/financeflow/pkg/api/apiconnect"
)

var _ apiconnect.NotificationServiceHandler = (*NotificationService)(nil)

// NotificationService implements the Connect NotificationService.
type NotificationService struct {
	store      storage.Store
	aggregator *calculator.Aggregator
}

// NewNotificationService creates a new NotificationService.
func NewNotificationService(store storage.Store, aggregator *calculator.Aggregator) *NotificationService {
	if aggregator == nil {
		aggregator = calculator.NewAggregator()
	}
	return &NotificationService{store: store, aggregator: aggregator}
}

// FetchNotifications returns the caller's inbox, newest first.
func (s *NotificationService) FetchNotifications(ctx context.Context, req *connect.Request[api.FetchNotificationsRequest]) (*connect.Response[api.FetchNotificationsResponse], error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}

	inbox, err := s.store.ListNotifications(ctx, userID)
	if err != nil {
		return nil, toConnectError("FetchNotifications failed", err, "user_id", userID)
	}

	resp := &api.FetchNotificationsResponse{Notifications: make([]models.Notification, 0, len(inbox))}
	for _, n := range inbox {
		resp.Notifications = append(resp.Notifications, *n)
		if !n.IsResolved {
			resp.Unread++
		}
	}
	return connect.NewResponse(resp), nil
}

// HandleAction resolves a notification in the caller's inbox by performing
// the chosen action on the friendship or entry it refers to.
func (s *NotificationService) HandleAction(ctx context.Context, req *connect.Request[api.HandleActionRequest]) (*connect.Response[api.HandleActionResponse], error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info("HandleAction request received",
		"user_id", userID,
		"notification_id", req.Msg.NotificationID,
		"action", req.Msg.Action,
	)

	n, err := s.store.GetNotification(ctx, req.Msg.NotificationID)
	if err != nil {
		return nil, toConnectError("HandleAction failed", err, "notification_id", req.Msg.NotificationID)
	}
	if n.TargetUserID != userID {
		return nil, toConnectError("HandleAction rejected", ErrNotYourNotification, "notification_id", n.ID, "user_id", userID)
	}
	if n.IsResolved {
		return nil, toConnectError("HandleAction rejected", ErrAlreadyResolved, "notification_id", n.ID)
	}

	// Only the caller that flips is_resolved performs the action.
	claimed, err := s.store.ClaimNotification(ctx, n.ID)
	if err != nil {
		return nil, toConnectError("HandleAction failed", err, "notification_id", n.ID)
	}
	if !claimed {
		return nil, toConnectError("HandleAction rejected", ErrAlreadyResolved, "notification_id", n.ID)
	}

	if err := s.perform(ctx, n, req.Msg.Action, req.Msg.Amount); err != nil {
		if rerr := s.store.ReopenNotification(ctx, n.ID); rerr != nil {
			slog.Error("Failed to reopen notification", "notification_id", n.ID, "error", rerr)
		}
		return nil, toConnectError("HandleAction failed", err,
			"notification_id", n.ID,
			"type", n.Type,
			"action", req.Msg.Action,
		)
	}
	n.IsRead, n.IsResolved = true, true

	slog.Info("Notification resolved", "notification_id", n.ID, "action", req.Msg.Action)
	return connect.NewResponse(&api.HandleActionResponse{Notification: *n}), nil
}

func (s *NotificationService) perform(ctx context.Context, n *models.Notification, action string, amount float64) error {
	switch n.Type {
	case models.NotifyFriendRequest:
		switch action {
		case api.ActionApproveFriend:
			return s.store.SetFriendshipStatus(ctx, n.SenderID, n.TargetUserID, models.FriendshipAccepted)
		case api.ActionReject:
			if err := s.store.DeleteFriendship(ctx, n.SenderID, n.TargetUserID); err != nil {
				return err
			}
			s.reply(ctx, n, models.NotifyFriendRequestRejected, "declined your friend request", 0, 0)
			return nil
		}

	case models.NotifyTransactionApproval:
		switch action {
		case api.ActionApprove:
			return s.setStatus(ctx, n.TransactionID, models.StatusApproved)
		case api.ActionReject:
			if err := s.setStatus(ctx, n.TransactionID, models.StatusRejected); err != nil {
				return err
			}
			s.reply(ctx, n, models.NotifySystem, "rejected your transaction", n.Amount, 0)
			return nil
		}

	case models.NotifyReminder:
		if action == api.ActionAlreadyPaid {
			return s.claimPaid(ctx, n, amount)
		}

	case models.NotifyPaymentConfirmation:
		switch action {
		case api.ActionReceived:
			return s.confirmReceived(ctx, n, amount)
		case api.ActionNotReceived:
			return s.denyReceived(ctx, n)
		}

	case models.NotifyFriendRequestRejected, models.NotifySystem:
		// Informational only; any action dismisses them.
		return nil
	}
	return fmt.Errorf("%w: %q on %s", ErrInvalidAction, action, n.Type)
}

// reply notifies the sender of n on behalf of its target.
func (s *NotificationService) reply(ctx context.Context, n *models.Notification, kind models.NotificationType, message string, amount, remaining float64) {
	notify(ctx, s.store, &models.Notification{
		TargetUserID:    n.SenderID,
		SenderID:        n.TargetUserID,
		SenderName:      middleware.GetUsername(ctx),
		Type:            kind,
		Message:         message,
		TransactionID:   n.TransactionID,
		Amount:          amount,
		RemainingAmount: remaining,
	})
}

func (s *NotificationService) setStatus(ctx context.Context, entryID string, status models.Status) error {
	entry, err := s.store.GetEntry(ctx, entryID)
	if err != nil {
		return err
	}
	entry.Header().Status = status
	return s.store.UpdateEntry(ctx, entry)
}

func (s *NotificationService) split(ctx context.Context, entryID string) (*models.Split, error) {
	entry, err := s.store.GetEntry(ctx, entryID)
	if err != nil {
		return nil, err
	}
	split, ok := entry.(*models.Split)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not a split", ErrInvalidAction, entryID)
	}
	return split, nil
}

// claimPaid handles "already paid" on a split reminder: the payer is asked to
// confirm the payment. A zero amount claims the full reminder amount.
func (s *NotificationService) claimPaid(ctx context.Context, n *models.Notification, amount float64) error {
	if amount == 0 {
		amount = n.Amount
	}
	if amount <= 0 {
		return ErrInvalidAmount
	}
	split, err := s.split(ctx, n.TransactionID)
	if err != nil {
		return err
	}
	share, ok := split.Share(n.TargetUserID)
	if !ok {
		return fmt.Errorf("%w: not a participant of %s", ErrInvalidAction, split.ID)
	}
	owed := calculator.RoundCents(share.Share - share.PaidAmount)
	if owed <= 0 {
		return fmt.Errorf("%w: share of %s is already paid", ErrInvalidAction, split.ID)
	}
	amount = min(calculator.RoundCents(amount), owed)

	s.reply(ctx, n, models.NotifyPaymentConfirmation, "says they paid their share", amount,
		calculator.RoundCents(owed-amount))
	return nil
}

// confirmReceived completes a payment the sender of n claims to have made.
func (s *NotificationService) confirmReceived(ctx context.Context, n *models.Notification, amount float64) error {
	entry, err := s.store.GetEntry(ctx, n.TransactionID)
	if err != nil {
		return err
	}

	switch e := entry.(type) {
	case *models.Split:
		if amount == 0 {
			amount = n.Amount
		}
		if amount <= 0 {
			return ErrInvalidAmount
		}
		split, remaining, err := paySplitShare(ctx, s.store, e.ID, n.SenderID, amount)
		if err != nil {
			return err
		}
		if remaining > 0 {
			notify(ctx, s.store, &models.Notification{
				TargetUserID:    n.SenderID,
				SenderID:        n.TargetUserID,
				SenderName:      middleware.GetUsername(ctx),
				Type:            models.NotifyReminder,
				Message:         splitMessage(split),
				TransactionID:   split.ID,
				Amount:          remaining,
				RemainingAmount: remaining,
			})
		}
		return nil

	case *models.Repayment:
		if e.FromFriend || e.CreatorID != n.SenderID {
			return fmt.Errorf("%w: repayment %s needs no confirmation", ErrInvalidAction, e.ID)
		}
		if e.Status == models.StatusCompleted {
			return fmt.Errorf("%w: repayment %s", ErrAlreadyResolved, e.ID)
		}
		e.Status = models.StatusCompleted
		_, err := settleLoans(ctx, s.store, s.aggregator, e.CreatorID, e.FriendID, e.Amount, e)
		return err
	}
	return fmt.Errorf("%w: %s cannot be confirmed", ErrInvalidAction, entry.Kind())
}

// denyReceived rejects a claimed repayment, or reminds a split participant
// that their share is still open.
func (s *NotificationService) denyReceived(ctx context.Context, n *models.Notification) error {
	entry, err := s.store.GetEntry(ctx, n.TransactionID)
	if err != nil {
		return err
	}

	switch e := entry.(type) {
	case *models.Repayment:
		e.Status = models.StatusRejected
		if err := s.store.UpdateEntry(ctx, e); err != nil {
			return err
		}
		s.reply(ctx, n, models.NotifySystem, "did not receive your payment", e.Amount, 0)
		return nil

	case *models.Split:
		share, ok := e.Share(n.SenderID)
		if !ok {
			return fmt.Errorf("%w: sender is not part of split %s", ErrInvalidAction, e.ID)
		}
		owed := calculator.RoundCents(share.Share - share.PaidAmount)
		s.reply(ctx, n, models.NotifyReminder, "did not receive your payment for the split", owed, owed)
		return nil
	}
	return fmt.Errorf("%w: %s cannot be confirmed", ErrInvalidAction, entry.Kind())
}

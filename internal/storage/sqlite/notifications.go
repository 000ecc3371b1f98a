package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/financeflow/internal/models"
)

const notificationColumns = `id, target_user_id, sender_id, sender_name, type, message,
	transaction_id, amount, remaining_amount, created_at, is_read, is_resolved`

// CreateNotification adds a notification to the target user's inbox.
func (s *SQLiteStore) CreateNotification(ctx context.Context, n *models.Notification) error {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	if n.Timestamp == 0 {
		n.Timestamp = time.Now().UnixMilli()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO notifications (`+notificationColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		n.ID, n.TargetUserID, n.SenderID, n.SenderName, string(n.Type), n.Message,
		nullable(n.TransactionID), n.Amount, n.RemainingAmount, n.Timestamp, n.IsRead, n.IsResolved,
	)
	if err != nil {
		return fmt.Errorf("failed to insert notification: %w", err)
	}
	return nil
}

// GetNotification retrieves a notification by ID.
func (s *SQLiteStore) GetNotification(ctx context.Context, id string) (*models.Notification, error) {
	n, err := scanNotification(s.db.QueryRowContext(ctx,
		`SELECT `+notificationColumns+` FROM notifications WHERE id = ?`, id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("notification", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get notification: %w", err)
	}
	return n, nil
}

// ListNotifications retrieves a user's inbox, newest first.
func (s *SQLiteStore) ListNotifications(ctx context.Context, userID string) ([]*models.Notification, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+notificationColumns+` FROM notifications
		 WHERE target_user_id = ? ORDER BY created_at DESC, rowid DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	var notifications []*models.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		notifications = append(notifications, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate notifications: %w", err)
	}
	return notifications, nil
}

// ClaimNotification marks a notification as read and resolved unless it
// already was. It reports whether this call resolved it, so only one of
// several concurrent callers acts on the notification.
func (s *SQLiteStore) ClaimNotification(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		"UPDATE notifications SET is_read = 1, is_resolved = 1 WHERE id = ? AND is_resolved = 0", id,
	)
	if err != nil {
		return false, fmt.Errorf("failed to claim notification: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to claim notification: %w", err)
	}
	if n > 0 {
		return true, nil
	}
	if _, err := s.GetNotification(ctx, id); err != nil {
		return false, err
	}
	return false, nil
}

// ReopenNotification undoes a claim whose action failed.
func (s *SQLiteStore) ReopenNotification(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE notifications SET is_resolved = 0 WHERE id = ?", id,
	)
	if err != nil {
		return fmt.Errorf("failed to reopen notification: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound("notification", id)
	}
	return nil
}

func scanNotification(row scanner) (*models.Notification, error) {
	n := &models.Notification{}
	var (
		kind          string
		transactionID sql.NullString
	)
	err := row.Scan(&n.ID, &n.TargetUserID, &n.SenderID, &n.SenderName, &kind, &n.Message,
		&transactionID, &n.Amount, &n.RemainingAmount, &n.Timestamp, &n.IsRead, &n.IsResolved)
	if err != nil {
		return nil, err
	}
	n.Type = models.NotificationType(kind)
	n.TransactionID = transactionID.String
	return n, nil
}

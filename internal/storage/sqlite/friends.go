package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mmynk/financeflow/internal/models"
	"github.com/mmynk/financeflow/internal/storage"
)

// CreateFriendship persists a new friendship request.
// Returns storage.ErrAlreadyExists if the pair is already linked.
func (s *SQLiteStore) CreateFriendship(ctx context.Context, f *models.Friendship) error {
	if f.CreatedAt == 0 {
		f.CreatedAt = time.Now().Unix()
	}
	a, b := orderedPair(f.UserA, f.UserB)

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO friendships (user_a, user_b, status, requested_by, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		a, b, string(f.Status), f.RequestedBy, f.CreatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("friendship %s/%s: %w", a, b, storage.ErrAlreadyExists)
	}
	if err != nil {
		return fmt.Errorf("failed to insert friendship: %w", err)
	}
	return nil
}

// GetFriendship retrieves the friendship between two users.
func (s *SQLiteStore) GetFriendship(ctx context.Context, userA, userB string) (*models.Friendship, error) {
	a, b := orderedPair(userA, userB)
	f, err := scanFriendship(s.db.QueryRowContext(ctx,
		`SELECT user_a, user_b, status, requested_by, created_at
		 FROM friendships WHERE user_a = ? AND user_b = ?`,
		a, b,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("friendship", a+"/"+b)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get friendship: %w", err)
	}
	return f, nil
}

// ListFriendships retrieves all friendships of a user, pending or accepted.
func (s *SQLiteStore) ListFriendships(ctx context.Context, userID string) ([]*models.Friendship, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_a, user_b, status, requested_by, created_at
		 FROM friendships WHERE user_a = ? OR user_b = ?
		 ORDER BY created_at`,
		userID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list friendships: %w", err)
	}
	defer rows.Close()

	var friendships []*models.Friendship
	for rows.Next() {
		f, err := scanFriendship(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan friendship: %w", err)
		}
		friendships = append(friendships, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate friendships: %w", err)
	}
	return friendships, nil
}

// SetFriendshipStatus updates the status of an existing friendship.
func (s *SQLiteStore) SetFriendshipStatus(ctx context.Context, userA, userB string, status models.FriendshipStatus) error {
	a, b := orderedPair(userA, userB)
	res, err := s.db.ExecContext(ctx,
		"UPDATE friendships SET status = ? WHERE user_a = ? AND user_b = ?",
		string(status), a, b,
	)
	if err != nil {
		return fmt.Errorf("failed to update friendship: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound("friendship", a+"/"+b)
	}
	return nil
}

// DeleteFriendship removes the friendship between two users.
func (s *SQLiteStore) DeleteFriendship(ctx context.Context, userA, userB string) error {
	a, b := orderedPair(userA, userB)
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM friendships WHERE user_a = ? AND user_b = ?",
		a, b,
	)
	if err != nil {
		return fmt.Errorf("failed to delete friendship: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound("friendship", a+"/"+b)
	}
	return nil
}

func scanFriendship(row scanner) (*models.Friendship, error) {
	f := &models.Friendship{}
	var status string
	if err := row.Scan(&f.UserA, &f.UserB, &status, &f.RequestedBy, &f.CreatedAt); err != nil {
		return nil, err
	}
	f.Status = models.FriendshipStatus(status)
	return f, nil
}

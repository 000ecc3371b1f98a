// Package session persists the signed-in user's profile in Redis so a client
// can pick up where it left off after a restart.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mmynk/financeflow/internal/models"
)

const (
	// KeyPrefix is the prefix for stored profiles.
	KeyPrefix = "session:"

	currentKey = KeyPrefix + "current"
)

// Profile is what a client keeps between runs.
type Profile struct {
	User    models.User `json:"user"`
	Token   string      `json:"token"`
	SavedAt time.Time   `json:"savedAt"`
}

// Store is a Redis-backed profile store.
type Store struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewStore creates a profile store. A zero ttl keeps profiles until cleared.
func NewStore(client *redis.Client, ttl time.Duration) *Store {
	return &Store{
		client: client,
		ttl:    ttl,
		logger: slog.Default().With("component", "session"),
	}
}

func profileKey(userID string) string {
	return fmt.Sprintf("%sprofile:%s", KeyPrefix, userID)
}

// Save stores the profile and marks it as the current session.
func (s *Store) Save(ctx context.Context, p *Profile) error {
	if p.User.ID == "" {
		return errors.New("profile has no user id")
	}
	p.SavedAt = time.Now().UTC()

	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal profile: %w", err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, profileKey(p.User.ID), data, s.ttl)
		pipe.Set(ctx, currentKey, p.User.ID, s.ttl)
		return nil
	})
	if err != nil {
		s.logger.Error("session error", "operation", "save", "user_id", p.User.ID, "error", err)
		return fmt.Errorf("failed to save profile: %w", err)
	}
	return nil
}

// Load returns the current session's profile. The boolean is false when no
// session is stored.
func (s *Store) Load(ctx context.Context) (*Profile, bool, error) {
	userID, err := s.client.Get(ctx, currentKey).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get current session: %w", err)
	}

	val, err := s.client.Get(ctx, profileKey(userID)).Result()
	if err == redis.Nil {
		s.logger.Debug("session points at a missing profile", "user_id", userID)
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get profile: %w", err)
	}

	var p Profile
	if err := json.Unmarshal([]byte(val), &p); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal profile: %w", err)
	}
	return &p, true, nil
}

// Clear forgets the current session.
func (s *Store) Clear(ctx context.Context) error {
	userID, err := s.client.Get(ctx, currentKey).Result()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to get current session: %w", err)
	}
	if err := s.client.Del(ctx, currentKey, profileKey(userID)).Err(); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

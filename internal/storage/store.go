// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"

	"github.com/mmynk/financeflow/internal/models"
)

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists is returned when a unique key is already taken.
	ErrAlreadyExists = errors.New("already exists")
)

// UserStore persists user accounts and profiles.
type UserStore interface {
	// CreateUser persists a new user. Username and email must be unique.
	CreateUser(ctx context.Context, user *models.User) error

	// GetUserByID retrieves a user by ID. Returns ErrNotFound if missing.
	GetUserByID(ctx context.Context, id string) (*models.User, error)

	// GetUserByLogin retrieves a user by username or email.
	// Returns ErrNotFound if neither matches.
	GetUserByLogin(ctx context.Context, login string) (*models.User, error)

	// GetUsersByIDs returns the users that exist, keyed by ID.
	GetUsersByIDs(ctx context.Context, ids []string) (map[string]*models.User, error)

	// UpdateUser replaces the stored profile, including categories.
	UpdateUser(ctx context.Context, user *models.User) error

	// SearchUsers finds users whose username or email contains query.
	SearchUsers(ctx context.Context, query string, limit int) ([]*models.User, error)
}

// EntryStore persists transaction history.
type EntryStore interface {
	// SaveEntry persists a new entry. ID and Timestamp are filled in when empty.
	SaveEntry(ctx context.Context, entry models.Entry) error

	// GetEntry retrieves an entry by ID. Returns ErrNotFound if missing.
	GetEntry(ctx context.Context, id string) (models.Entry, error)

	// UpdateEntry stores the status and paid amounts of an existing entry.
	UpdateEntry(ctx context.Context, entry models.Entry) error

	// UpdateEntries is UpdateEntry for several entries, applied atomically.
	UpdateEntries(ctx context.Context, entries ...models.Entry) error

	// ListEntries returns every entry the user created, is the friend of, paid
	// for or participates in, oldest first.
	ListEntries(ctx context.Context, userID string) ([]models.Entry, error)
}

// FriendStore persists friendships.
type FriendStore interface {
	CreateFriendship(ctx context.Context, f *models.Friendship) error

	// GetFriendship returns the friendship between two users in either order.
	GetFriendship(ctx context.Context, userA, userB string) (*models.Friendship, error)

	// ListFriendships returns every friendship the user is part of.
	ListFriendships(ctx context.Context, userID string) ([]*models.Friendship, error)

	SetFriendshipStatus(ctx context.Context, userA, userB string, status models.FriendshipStatus) error
	DeleteFriendship(ctx context.Context, userA, userB string) error
}

// NotificationStore persists user inboxes.
type NotificationStore interface {
	CreateNotification(ctx context.Context, n *models.Notification) error
	GetNotification(ctx context.Context, id string) (*models.Notification, error)

	// ListNotifications returns the user's inbox, newest first.
	ListNotifications(ctx context.Context, userID string) ([]*models.Notification, error)

	// ClaimNotification marks a notification read and resolved. It returns
	// false when the notification was already resolved, and ErrNotFound when
	// it does not exist.
	ClaimNotification(ctx context.Context, id string) (bool, error)

	// ReopenNotification marks a claimed notification unresolved again.
	ReopenNotification(ctx context.Context, id string) error
}

// Store defines the full persistence surface used by the services.
// This abstraction allows swapping storage backends without changing the
// service layer.
type Store interface {
	UserStore
	EntryStore
	FriendStore
	NotificationStore

	// Close releases any resources held by the store.
	Close() error
}

package models

import (
	"time"

	"github.com/google/uuid"
)

// AppearanceMode is the light/dark preference of a profile.
type AppearanceMode string

const (
	AppearanceLight AppearanceMode = "light"
	AppearanceDark  AppearanceMode = "dark"
)

// Category is a user-defined spending category.
type Category struct {
	Name          string   `json:"name"`
	Subcategories []string `json:"subcategories"`
}

// User represents a registered user account and its profile settings.
type User struct {
	// ID is the unique identifier for the user (UUID format).
	ID string `json:"id"`

	// Username is the unique handle used to log in and to find friends.
	Username string `json:"username"`

	// Email is the user's email address (unique). It can be used to log in.
	Email string `json:"email"`

	// PasswordHash is the bcrypt hash of the user's password.
	PasswordHash string `json:"-"`

	PhoneNumber string `json:"phoneNumber,omitempty"`
	UPIID       string `json:"upiId,omitempty"`
	PhotoURL    string `json:"photoURL,omitempty"`

	// IsVerified is set once the phone number and UPI id were confirmed.
	IsVerified bool `json:"isVerified"`

	// Budget is the monthly spending limit. Zero means no limit.
	Budget float64 `json:"budget"`

	Theme       string         `json:"theme"`
	Mode        AppearanceMode `json:"mode"`
	StylePreset string         `json:"stylePreset"`
	Categories  []Category     `json:"categories"`

	// CreatedAt is the Unix timestamp when the user account was created.
	CreatedAt int64 `json:"createdAt"`

	// UpdatedAt is the Unix timestamp of the last profile change.
	UpdatedAt int64 `json:"updatedAt"`
}

// NewUser creates a new user with a generated ID and default appearance.
func NewUser(username, email, passwordHash string) *User {
	now := time.Now().Unix()
	return &User{
		ID:           uuid.New().String(),
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		Theme:        "indigo",
		Mode:         AppearanceLight,
		StylePreset:  "modern",
		Categories:   []Category{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

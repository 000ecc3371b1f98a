package auth

import (
	"context"

	"github.com/mmynk/financeflow/internal/models"
)

// Authenticator defines the interface for authentication implementations.
// This abstraction allows swapping between different auth methods (password, passkeys, OAuth, etc.)
// without changing the service layer code.
type Authenticator interface {
	// Register creates a new user account with the given username, email and credential.
	// Returns the created user or an error if registration fails.
	Register(ctx context.Context, username, email, credential string) (*models.User, error)

	// Authenticate verifies the credential of the user identified by username
	// or email and returns the user if successful.
	Authenticate(ctx context.Context, login, credential string) (*models.User, error)

	// Verify checks a credential against an already loaded user. It is used to
	// confirm sensitive profile changes.
	Verify(user *models.User, credential string) error

	// Hash turns a new credential into its stored form.
	Hash(credential string) (string, error)

	// ValidateCredential checks if the credential meets the implementation's requirements.
	ValidateCredential(credential string) error
}

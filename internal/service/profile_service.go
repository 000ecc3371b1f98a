package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"connectrpc.com/connect"

	"github.com/mmynk/financeflow/internal/auth"
	"github.com/mmynk/financeflow/internal/models"
	"github.com/mmynk/financeflow/internal/storage"
	"github.com/mmynk/financeflow/pkg/api"
	"github.com/mmynk/financeflow/pkg/api/apiconnect"
)

var _ apiconnect.ProfileServiceHandler = (*ProfileService)(nil)

// ProfileService implements the ProfileService RPC interface.
type ProfileService struct {
	store         storage.UserStore
	authenticator auth.Authenticator
}

// NewProfileService creates a new ProfileService.
func NewProfileService(store storage.UserStore, authenticator auth.Authenticator) *ProfileService {
	return &ProfileService{store: store, authenticator: authenticator}
}

// GetProfile returns the caller's profile.
func (s *ProfileService) GetProfile(ctx context.Context, req *connect.Request[api.GetProfileRequest]) (*connect.Response[api.ProfileResponse], error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}

	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, toConnectError("GetProfile failed", err, "user_id", userID)
	}
	return connect.NewResponse(&api.ProfileResponse{User: user}), nil
}

// UpdateProfile applies a partial profile update. Changing the email, password
// or phone number requires the current password.
func (s *ProfileService) UpdateProfile(ctx context.Context, req *connect.Request[api.UpdateProfileRequest]) (*connect.Response[api.ProfileResponse], error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info("UpdateProfile request received", "user_id", userID, "sensitive", req.Msg.Updates.Sensitive())

	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, toConnectError("UpdateProfile failed", err, "user_id", userID)
	}

	if req.Msg.Updates.Sensitive() {
		if err := s.authenticator.Verify(user, req.Msg.CurrentPassword); err != nil {
			slog.Warn("Password check failed", "user_id", userID)
			return nil, connect.NewError(connect.CodePermissionDenied, fmt.Errorf("password check failed: %w", err))
		}
	}

	if err := s.apply(user, req.Msg.Updates); err != nil {
		return nil, toConnectError("UpdateProfile rejected", err, "user_id", userID)
	}
	user.UpdatedAt = time.Now().Unix()

	if err := s.store.UpdateUser(ctx, user); err != nil {
		return nil, toConnectError("UpdateProfile failed", err, "user_id", userID)
	}

	slog.Info("Profile updated", "user_id", userID)
	return connect.NewResponse(&api.ProfileResponse{User: user}), nil
}

func (s *ProfileService) apply(user *models.User, u api.ProfileUpdate) error {
	if u.Username != nil {
		username := strings.TrimSpace(*u.Username)
		if err := auth.ValidateUsername(username); err != nil {
			return err
		}
		user.Username = username
	}
	if u.Email != nil {
		email := strings.TrimSpace(*u.Email)
		if err := auth.ValidateEmail(email); err != nil {
			return err
		}
		user.Email = email
	}
	if u.Password != nil {
		hashed, err := s.authenticator.Hash(*u.Password)
		if err != nil {
			return err
		}
		user.PasswordHash = hashed
	}
	if u.PhoneNumber != nil {
		user.PhoneNumber = strings.TrimSpace(*u.PhoneNumber)
	}
	if u.UPIID != nil {
		user.UPIID = strings.TrimSpace(*u.UPIID)
	}
	if u.PhotoURL != nil {
		user.PhotoURL = *u.PhotoURL
	}
	if u.IsVerified != nil {
		if *u.IsVerified && (user.PhoneNumber == "" || user.UPIID == "") {
			return fmt.Errorf("%w: verification needs a phone number and UPI id", ErrInvalidProfile)
		}
		user.IsVerified = *u.IsVerified
	}
	if u.Budget != nil {
		if *u.Budget < 0 {
			return fmt.Errorf("%w: budget cannot be negative", ErrInvalidProfile)
		}
		user.Budget = *u.Budget
	}
	if u.Theme != nil {
		user.Theme = *u.Theme
	}
	if u.Mode != nil {
		switch *u.Mode {
		case models.AppearanceLight, models.AppearanceDark:
			user.Mode = *u.Mode
		default:
			return fmt.Errorf("%w: unknown mode %q", ErrInvalidProfile, *u.Mode)
		}
	}
	if u.StylePreset != nil {
		user.StylePreset = *u.StylePreset
	}
	if u.Categories != nil {
		seen := make(map[string]bool, len(u.Categories))
		for _, c := range u.Categories {
			name := strings.TrimSpace(c.Name)
			if name == "" || seen[name] {
				return fmt.Errorf("%w: category names must be unique and non-empty", ErrInvalidProfile)
			}
			seen[name] = true
		}
		user.Categories = u.Categories
	}
	return nil
}

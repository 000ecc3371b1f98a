// Package api defines the request and response messages of the FinanceFlow
// Connect services. Messages travel as JSON; see package apiconnect for the
// handlers and clients.
package api

import (
	"github.com/mmynk/financeflow/internal/calculator"
	"github.com/mmynk/financeflow/internal/models"
)

// Notification actions accepted by NotificationService.HandleAction.
const (
	ActionApproveFriend = "approve_friend"
	ActionApprove       = "approve"
	ActionReject        = "reject"
	ActionAlreadyPaid   = "already_paid"
	ActionReceived      = "received"
	ActionNotReceived   = "not_received"
)

// Friend filters accepted by FriendService.FetchFriends.
const (
	FilterAll     = ""
	FilterOwe     = "owe" // friends the user owes
	FilterGet     = "get" // friends who owe the user
	FilterSettled = "settled"
)

// ---- AuthService ----

type SignupRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	UsernameOrEmail string `json:"usernameOrEmail"`
	Password        string `json:"password"`
}

type AuthResponse struct {
	User  *models.User `json:"user"`
	Token string       `json:"token"`
}

// ---- ProfileService ----

type GetProfileRequest struct{}

type ProfileResponse struct {
	User *models.User `json:"user"`
}

// ProfileUpdate lists the fields to change. Nil fields are left as they are.
type ProfileUpdate struct {
	Username    *string                `json:"username,omitempty"`
	Email       *string                `json:"email,omitempty"`
	Password    *string                `json:"password,omitempty"`
	PhoneNumber *string                `json:"phoneNumber,omitempty"`
	UPIID       *string                `json:"upiId,omitempty"`
	PhotoURL    *string                `json:"photoURL,omitempty"`
	IsVerified  *bool                  `json:"isVerified,omitempty"`
	Budget      *float64               `json:"budget,omitempty"`
	Theme       *string                `json:"theme,omitempty"`
	Mode        *models.AppearanceMode `json:"mode,omitempty"`
	StylePreset *string                `json:"stylePreset,omitempty"`
	Categories  []models.Category      `json:"categories,omitempty"`
}

// Sensitive reports whether the update touches a field that requires the
// current password: email, password or phone number.
func (u ProfileUpdate) Sensitive() bool {
	return u.Email != nil || u.Password != nil || u.PhoneNumber != nil
}

type UpdateProfileRequest struct {
	Updates         ProfileUpdate `json:"updates"`
	CurrentPassword string        `json:"currentPassword,omitempty"`
}

// ---- LedgerService ----

type SaveTransactionRequest struct {
	Transaction models.Record `json:"transaction"`
}

type SaveTransactionResponse struct {
	Transaction models.Record `json:"transaction"`
	// Unapplied is the part of a repayment that exceeded the open loans.
	Unapplied float64 `json:"unapplied,omitempty"`
}

type FetchHistoryRequest struct{}

type FetchHistoryResponse struct {
	Transactions []models.Record `json:"transactions"`
}

type FetchDashboardRequest struct {
	// Window is one of "", Today, Yesterday, 7D, 30D, Custom.
	Window string `json:"window,omitempty"`
	// From and To are YYYY-MM-DD dates used by the Custom window.
	From string `json:"from,omitempty"`
	To   string `json:"to,omitempty"`
}

type FetchDashboardResponse struct {
	Stats    calculator.Stats       `json:"stats"`
	CashFlow []calculator.DailyFlow `json:"cashFlow"`
	Recent   []models.Record        `json:"recent"`
	Summary  calculator.Summary     `json:"summary"`
	// BudgetUsed is this month's spending as a share of the budget, 0 without a budget.
	BudgetUsed float64 `json:"budgetUsed"`
}

// ShareEdit sets one participant's share by hand.
type ShareEdit struct {
	ParticipantID string  `json:"participantId"`
	Value         float64 `json:"value"`
}

// PreviewSplitRequest carries the current split editor state and at most one
// edit to apply to it. The caller is always a participant.
type PreviewSplitRequest struct {
	Total        float64            `json:"total"`
	Participants []string           `json:"participants"`
	Mode         string             `json:"mode,omitempty"`
	Locked       []string           `json:"locked,omitempty"`
	Shares       map[string]float64 `json:"shares,omitempty"`

	SetShare *ShareEdit `json:"setShare,omitempty"`
	Toggle   string     `json:"toggle,omitempty"`
}

type PreviewSplitResponse struct {
	Mode     string                 `json:"mode"`
	Lines    []calculator.ShareLine `json:"lines"`
	Locked   []string               `json:"locked"`
	Sum      float64                `json:"sum"`
	Balanced bool                   `json:"balanced"`
}

type FriendLedgerRequest struct {
	FriendID string `json:"friendId"`
}

type FriendLedgerResponse struct {
	FriendID     string          `json:"friendId"`
	Activity     []models.Record `json:"activity"`
	IOwe         []models.Record `json:"iOwe"`
	TheyOwe      []models.Record `json:"theyOwe"`
	TotalIOwe    float64         `json:"totalIOwe"`
	TotalTheyOwe float64         `json:"totalTheyOwe"`
	Net          float64         `json:"net"`
}

// ---- FriendService ----

type FetchFriendsRequest struct {
	Filter string `json:"filter,omitempty"`
	// Search keeps friends whose name contains it, case-insensitively.
	Search string `json:"search,omitempty"`
}

type FetchFriendsResponse struct {
	Friends []models.Friend `json:"friends"`
	// Requests are incoming friend requests awaiting approval.
	Requests   []models.Friend `json:"requests"`
	TotalOwed  float64         `json:"totalOwed"`
	TotalOwing float64         `json:"totalOwing"`
}

type SendFriendRequestRequest struct {
	UsernameOrEmail string `json:"usernameOrEmail"`
}

type SendFriendRequestResponse struct {
	Friend models.Friend `json:"friend"`
}

type RemoveFriendRequest struct {
	FriendID string `json:"friendId"`
}

type RemoveFriendResponse struct{}

type SearchUsersRequest struct {
	Query string `json:"query"`
}

// UserSummary is the public view of another user.
type UserSummary struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	PhotoURL string `json:"photoURL,omitempty"`
}

type SearchUsersResponse struct {
	Users []UserSummary `json:"users"`
}

// ---- NotificationService ----

type FetchNotificationsRequest struct{}

type FetchNotificationsResponse struct {
	Notifications []models.Notification `json:"notifications"`
	Unread        int                   `json:"unread"`
}

type HandleActionRequest struct {
	NotificationID string  `json:"notificationId"`
	Action         string  `json:"action"`
	Amount         float64 `json:"amount,omitempty"`
}

type HandleActionResponse struct {
	Notification models.Notification `json:"notification"`
}

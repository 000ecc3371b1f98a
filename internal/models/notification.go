package models

// NotificationType tells the client which actions a notification offers.
type NotificationType string

const (
	NotifyFriendRequest         NotificationType = "FriendRequest"
	NotifyFriendRequestRejected NotificationType = "FriendRequestRejected"
	NotifyTransactionApproval   NotificationType = "TransactionApproval"
	NotifyPaymentConfirmation   NotificationType = "PaymentConfirmation"
	NotifyReminder              NotificationType = "Reminder"
	NotifySystem                NotificationType = "System"
)

// Notification is an item in a user's inbox.
type Notification struct {
	// ID is the unique identifier for the notification (UUID format).
	ID string `json:"id"`

	// TargetUserID is the inbox owner.
	TargetUserID string `json:"targetUserId"`

	// SenderID is the user whose action produced the notification.
	SenderID   string `json:"senderId"`
	SenderName string `json:"senderName"`

	Type    NotificationType `json:"type"`
	Message string           `json:"message"`

	// TransactionID links approval, reminder and confirmation notifications to
	// the entry they act on.
	TransactionID string `json:"transactionId,omitempty"`

	// Amount is the money involved, if any.
	Amount float64 `json:"amount,omitempty"`

	// RemainingAmount is what is still outstanding after a partial payment.
	RemainingAmount float64 `json:"remainingAmount,omitempty"`

	// Timestamp is when the notification was created, in Unix milliseconds.
	Timestamp int64 `json:"timestamp"`

	IsRead     bool `json:"isRead"`
	IsResolved bool `json:"isResolved"`
}

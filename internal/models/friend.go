package models

// FriendshipStatus is the state of a connection between two users.
type FriendshipStatus string

const (
	FriendshipPending  FriendshipStatus = "Pending"
	FriendshipAccepted FriendshipStatus = "Accepted"
)

// Friendship links two users. The pair is unordered; RequestedBy records who
// sent the request.
type Friendship struct {
	UserA       string
	UserB       string
	Status      FriendshipStatus
	RequestedBy string

	// CreatedAt is the Unix timestamp when the request was sent.
	CreatedAt int64
}

// Other returns the member of the pair that is not userID.
func (f Friendship) Other(userID string) string {
	if f.UserA == userID {
		return f.UserB
	}
	return f.UserA
}

// Friend is a friend summary as shown in the friend directory.
type Friend struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`

	// Balance is positive when the friend owes the user and negative when the
	// user owes the friend.
	Balance float64 `json:"balance"`

	// Status is "Settled" when Balance is zero and "Pending" otherwise.
	Status string `json:"status"`
}

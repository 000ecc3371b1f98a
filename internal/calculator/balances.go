package calculator

import (
	"cmp"
	"slices"

	"github.com/shopspring/decimal"

	"github.com/mmynk/financeflow/internal/models"
)

// Classification places an entry on one side of a friend balance.
type Classification int

const (
	// Neutral entries do not move the balance (income, expense, repayments, splits).
	Neutral Classification = iota
	// Debt means the user owes the friend.
	Debt
	// Credit means the friend owes the user.
	Credit
)

func (c Classification) String() string {
	switch c {
	case Debt:
		return "Debt"
	case Credit:
		return "Credit"
	default:
		return "Neutral"
	}
}

// DefaultSettledStatuses are the statuses after which an entry no longer
// counts as outstanding.
var DefaultSettledStatuses = []models.Status{models.StatusCompleted, models.StatusRejected}

// FriendBalance is the derived net balance with one counterparty.
// Positive means the friend owes the user.
type FriendBalance struct {
	FriendID   string  `json:"friendId"`
	NetBalance float64 `json:"netBalance"`
}

// Summary totals a user's balances across all friends.
type Summary struct {
	TotalOwed  float64         `json:"totalOwed"`  // total others owe the user
	TotalOwing float64         `json:"totalOwing"` // total the user owes others
	Friends    []FriendBalance `json:"friends"`
}

// Ledger is the per-friend drill-down view.
type Ledger struct {
	FriendID string

	// Activity holds every entry between the pair, newest first.
	Activity []models.Entry
	IOwe     []models.Entry
	TheyOwe  []models.Entry

	TotalIOwe    float64
	TotalTheyOwe float64
	Net          float64
}

// Aggregator derives friend balances from transaction history.
// It holds no state besides its settled-status policy and is safe for
// concurrent use.
type Aggregator struct {
	settled map[models.Status]bool
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithSettledStatuses replaces the statuses treated as settled.
func WithSettledStatuses(statuses ...models.Status) Option {
	return func(a *Aggregator) {
		a.settled = make(map[models.Status]bool, len(statuses))
		for _, s := range statuses {
			a.settled[s] = true
		}
	}
}

// NewAggregator creates an Aggregator using DefaultSettledStatuses unless
// overridden.
func NewAggregator(opts ...Option) *Aggregator {
	a := &Aggregator{}
	WithSettledStatuses(DefaultSettledStatuses...)(a)
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// IsSettled reports whether the entry no longer contributes to any balance.
func (a *Aggregator) IsSettled(e models.Entry) bool {
	return a.settled[e.Header().Status]
}

// Classify decides whether entry is a debt or a credit of userID towards
// friendID.
func Classify(e models.Entry, userID, friendID string) Classification {
	if userID == friendID {
		return Neutral
	}
	switch v := e.(type) {
	case *models.MoneyGiven:
		if v.CreatorID == userID && v.FriendID == friendID {
			return Credit
		}
		if v.CreatorID == friendID && v.FriendID == userID {
			return Debt
		}
	case *models.MoneyTaken:
		if v.CreatorID == userID && v.FriendID == friendID {
			return Debt
		}
		if v.CreatorID == friendID && v.FriendID == userID {
			return Credit
		}
	}
	return Neutral
}

// Outstanding is what remains unpaid on a loan: amount minus paid amount,
// never negative. Other entries have nothing outstanding.
func Outstanding(e models.Entry) float64 {
	if _, _, ok := models.Debtor(e); !ok {
		return 0
	}
	rest := dec(e.Header().Amount).Sub(dec(models.PaidAmount(e)))
	if rest.IsNegative() {
		return 0
	}
	return cents(rest)
}

// Involves reports whether an entry belongs to the activity between userID and
// friendID.
func Involves(e models.Entry, userID, friendID string) bool {
	if split, ok := e.(*models.Split); ok {
		return split.Involves(userID) && split.Involves(friendID)
	}
	friend := models.FriendOf(e)
	if friend == "" {
		return false
	}
	creator := e.Header().CreatorID
	return (creator == userID && friend == friendID) || (creator == friendID && friend == userID)
}

// NetBalance returns what friendID owes userID, net of what userID owes
// friendID, over all entries that are not settled. Positive means the friend
// owes the user.
func (a *Aggregator) NetBalance(history []models.Entry, userID, friendID string) float64 {
	net := decimal.Zero
	for _, e := range history {
		if a.IsSettled(e) {
			continue
		}
		switch Classify(e, userID, friendID) {
		case Credit:
			net = net.Add(dec(Outstanding(e)))
		case Debt:
			net = net.Sub(dec(Outstanding(e)))
		}
	}
	return cents(net)
}

// FriendLedger builds the drill-down view of the entries between userID and
// friendID.
func (a *Aggregator) FriendLedger(history []models.Entry, userID, friendID string) Ledger {
	ledger := Ledger{FriendID: friendID}
	owe, get := decimal.Zero, decimal.Zero

	for _, e := range history {
		if !Involves(e, userID, friendID) {
			continue
		}
		ledger.Activity = append(ledger.Activity, e)

		switch Classify(e, userID, friendID) {
		case Debt:
			ledger.IOwe = append(ledger.IOwe, e)
			if !a.IsSettled(e) {
				owe = owe.Add(dec(Outstanding(e)))
			}
		case Credit:
			ledger.TheyOwe = append(ledger.TheyOwe, e)
			if !a.IsSettled(e) {
				get = get.Add(dec(Outstanding(e)))
			}
		}
	}

	newestFirst := func(x, y models.Entry) int {
		return y.Header().Timestamp.Compare(x.Header().Timestamp)
	}
	slices.SortStableFunc(ledger.Activity, newestFirst)
	slices.SortStableFunc(ledger.IOwe, newestFirst)
	slices.SortStableFunc(ledger.TheyOwe, newestFirst)

	ledger.TotalIOwe = cents(owe)
	ledger.TotalTheyOwe = cents(get)
	ledger.Net = cents(get.Sub(owe))
	return ledger
}

// Balances computes the net balance with every counterparty that appears in a
// loan involving userID, sorted by friend ID.
func (a *Aggregator) Balances(history []models.Entry, userID string) []FriendBalance {
	nets := make(map[string]decimal.Decimal)
	for _, e := range history {
		debtor, creditor, ok := models.Debtor(e)
		if !ok {
			continue
		}
		var friendID string
		switch userID {
		case debtor:
			friendID = creditor
		case creditor:
			friendID = debtor
		default:
			continue
		}
		net := nets[friendID]
		if a.IsSettled(e) {
			nets[friendID] = net
			continue
		}
		switch Classify(e, userID, friendID) {
		case Credit:
			net = net.Add(dec(Outstanding(e)))
		case Debt:
			net = net.Sub(dec(Outstanding(e)))
		}
		nets[friendID] = net
	}

	balances := make([]FriendBalance, 0, len(nets))
	for friendID, net := range nets {
		balances = append(balances, FriendBalance{FriendID: friendID, NetBalance: cents(net)})
	}
	slices.SortFunc(balances, func(x, y FriendBalance) int {
		return cmp.Compare(x.FriendID, y.FriendID)
	})
	return balances
}

// Summarize totals balances into what the user is owed and what they owe.
func Summarize(balances []FriendBalance) Summary {
	owed, owing := decimal.Zero, decimal.Zero
	for _, b := range balances {
		if b.NetBalance > 0 {
			owed = owed.Add(dec(b.NetBalance))
		} else if b.NetBalance < 0 {
			owing = owing.Sub(dec(b.NetBalance))
		}
	}
	return Summary{
		TotalOwed:  cents(owed),
		TotalOwing: cents(owing),
		Friends:    balances,
	}
}

// RemovalGuard reports whether a friend may be disconnected: only when nothing
// is owed in either direction.
func RemovalGuard(balance float64) bool {
	return balance == 0
}

package calculator

import (
	"cmp"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmynk/financeflow/internal/models"
)

// Stats are the dashboard totals for one user.
type Stats struct {
	Cash       float64 `json:"cash"`    // net cash movement
	Online     float64 `json:"online"`  // net online movement
	Pending    float64 `json:"pending"` // outstanding amounts awaiting approval or payment
	Incoming   float64 `json:"incoming"`
	Outgoing   float64 `json:"outgoing"`
	MoneyGiven float64 `json:"moneyGiven"`
	MoneyTaken float64 `json:"moneyTaken"`
}

// DailyFlow is one point of the cash-flow chart.
type DailyFlow struct {
	Date    string  `json:"date"` // YYYY-MM-DD
	Inflow  float64 `json:"inflow"`
	Outflow float64 `json:"outflow"`
}

// Window is a dashboard time filter.
type Window string

const (
	WindowAll       Window = ""
	WindowToday     Window = "Today"
	WindowYesterday Window = "Yesterday"
	Window7D        Window = "7D"
	Window30D       Window = "30D"
	WindowCustom    Window = "Custom"
)

// viewFrom returns the kind of a friend-directed entry as seen by userID.
// A loan the friend gave to the user is money the user took, and so on.
func viewFrom(e models.Entry, userID string) (models.Kind, bool) {
	if e.Header().CreatorID == userID {
		return e.Kind(), true
	}
	if models.FriendOf(e) != userID {
		return "", false
	}
	switch e.Kind() {
	case models.KindMoneyGiven:
		return models.KindMoneyTaken, true
	case models.KindMoneyTaken:
		return models.KindMoneyGiven, true
	case models.KindHePaidBack:
		return models.KindIPaidBack, true
	case models.KindIPaidBack:
		return models.KindHePaidBack, true
	}
	return "", false
}

// Dashboard computes the totals shown on a user's dashboard.
//
// Cash and online balances only move for entries that were not rejected and
// are no longer pending; pending friend entries are counted in Pending instead.
func (a *Aggregator) Dashboard(history []models.Entry, userID string) Stats {
	var cash, online, pending, incoming, outgoing, given, taken decimal.Decimal

	for _, e := range history {
		h := e.Header()
		if h.Status == models.StatusRejected {
			continue
		}

		if split, ok := e.(*models.Split); ok {
			for _, d := range SplitDebts(split) {
				if d.From == userID || d.To == userID {
					pending = pending.Add(dec(d.Amount))
				}
			}
			if split.PayerID == userID {
				outgoing = outgoing.Add(dec(h.Amount))
				cash, online = move(cash, online, h.Mode, dec(h.Amount).Neg())
			}
			continue
		}

		kind, ok := viewFrom(e, userID)
		if !ok {
			continue
		}
		amount := dec(h.Amount)
		if h.Status == models.StatusPending {
			pending = pending.Add(amount)
			continue
		}
		if !a.IsSettled(e) {
			if open := Outstanding(e); open > 0 {
				pending = pending.Add(dec(open))
			}
		}

		switch kind {
		case models.KindIncome:
			incoming = incoming.Add(amount)
			cash, online = move(cash, online, h.Mode, amount)
		case models.KindExpense:
			outgoing = outgoing.Add(amount)
			cash, online = move(cash, online, h.Mode, amount.Neg())
		case models.KindMoneyGiven:
			given = given.Add(amount)
			cash, online = move(cash, online, h.Mode, amount.Neg())
		case models.KindMoneyTaken:
			taken = taken.Add(amount)
			cash, online = move(cash, online, h.Mode, amount)
		case models.KindHePaidBack:
			cash, online = move(cash, online, h.Mode, amount)
		case models.KindIPaidBack:
			cash, online = move(cash, online, h.Mode, amount.Neg())
		}
	}

	return Stats{
		Cash:       cents(cash),
		Online:     cents(online),
		Pending:    cents(pending),
		Incoming:   cents(incoming),
		Outgoing:   cents(outgoing),
		MoneyGiven: cents(given),
		MoneyTaken: cents(taken),
	}
}

func move(cash, online decimal.Decimal, mode models.PaymentMode, delta decimal.Decimal) (decimal.Decimal, decimal.Decimal) {
	if mode == models.ModeCash {
		return cash.Add(delta), online
	}
	return cash, online.Add(delta)
}

// CashFlow groups inflows (income, money taken) and outflows (expense, money
// given) by calendar day, oldest day first.
func CashFlow(history []models.Entry, userID string, loc *time.Location) []DailyFlow {
	if loc == nil {
		loc = time.UTC
	}
	type flow struct{ in, out decimal.Decimal }
	days := make(map[string]*flow)

	for _, e := range history {
		kind, ok := viewFrom(e, userID)
		if !ok || e.Header().Status == models.StatusRejected {
			continue
		}
		day := e.Header().Timestamp.In(loc).Format(time.DateOnly)
		f, exists := days[day]
		if !exists {
			f = &flow{}
			days[day] = f
		}
		amount := dec(e.Header().Amount)
		switch kind {
		case models.KindIncome, models.KindMoneyTaken:
			f.in = f.in.Add(amount)
		case models.KindExpense, models.KindMoneyGiven:
			f.out = f.out.Add(amount)
		}
	}

	flows := make([]DailyFlow, 0, len(days))
	for day, f := range days {
		flows = append(flows, DailyFlow{Date: day, Inflow: cents(f.in), Outflow: cents(f.out)})
	}
	slices.SortFunc(flows, func(x, y DailyFlow) int {
		return cmp.Compare(x.Date, y.Date)
	})
	return flows
}

// FilterWindow keeps the entries whose timestamp falls inside window, measured
// from now. For WindowCustom, from and to are dates and the whole of the to day
// is included. Unknown windows keep everything.
func FilterWindow(history []models.Entry, window Window, now, from, to time.Time) []models.Entry {
	loc := now.Location()
	startOfDay := func(t time.Time) time.Time {
		y, m, d := t.In(loc).Date()
		return time.Date(y, m, d, 0, 0, 0, 0, loc)
	}

	var keep func(t time.Time) bool
	switch window {
	case WindowToday:
		start := startOfDay(now)
		keep = func(t time.Time) bool { return !t.Before(start) && t.Before(start.AddDate(0, 0, 1)) }
	case WindowYesterday:
		start := startOfDay(now).AddDate(0, 0, -1)
		keep = func(t time.Time) bool { return !t.Before(start) && t.Before(start.AddDate(0, 0, 1)) }
	case Window7D:
		keep = func(t time.Time) bool { return now.Sub(t) < 7*24*time.Hour }
	case Window30D:
		keep = func(t time.Time) bool { return now.Sub(t) < 30*24*time.Hour }
	case WindowCustom:
		if from.IsZero() || to.IsZero() {
			return history
		}
		start := startOfDay(from)
		end := startOfDay(to).Add(24*time.Hour - time.Second)
		keep = func(t time.Time) bool { return !t.Before(start) && !t.After(end) }
	default:
		return history
	}

	var filtered []models.Entry
	for _, e := range history {
		if keep(e.Header().Timestamp) {
			filtered = append(filtered, e)
		}
	}
	return filtered
}

// MonthlySpend is what userID spent in the calendar month containing now:
// their expenses plus their own share of every split they are part of.
// Rejected entries do not count.
func MonthlySpend(history []models.Entry, userID string, now time.Time) float64 {
	y, m, _ := now.Date()
	start := time.Date(y, m, 1, 0, 0, 0, 0, now.Location())
	end := start.AddDate(0, 1, 0)

	spent := decimal.Zero
	for _, e := range history {
		h := e.Header()
		if h.Status == models.StatusRejected || h.Timestamp.Before(start) || !h.Timestamp.Before(end) {
			continue
		}
		switch v := e.(type) {
		case *models.Expense:
			if v.CreatorID == userID {
				spent = spent.Add(dec(v.Amount))
			}
		case *models.Split:
			if share, ok := v.Share(userID); ok {
				spent = spent.Add(dec(share.Share))
			}
		}
	}
	return cents(spent)
}

// BudgetUsed is spent as a fraction of budget, rounded to cents. It is 0
// when no budget is set.
func BudgetUsed(spent, budget float64) float64 {
	if budget <= 0 {
		return 0
	}
	return cents(dec(spent).Div(dec(budget)))
}

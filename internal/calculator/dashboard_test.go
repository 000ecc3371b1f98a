package calculator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/financeflow/internal/models"
)

func TestDashboard(t *testing.T) {
	cash := func(b models.Base) models.Base {
		b.Mode = models.ModeCash
		return b
	}

	history := []models.Entry{
		&models.Income{Base: base("i1", "me", 1000, models.StatusCompleted, 0)},
		&models.Expense{Base: cash(base("e1", "me", 200, models.StatusCompleted, 1))},
		given("g1", "me", "bob", 100, 40, models.StatusApproved, 2),
		given("g2", "bob", "me", 50, 0, models.StatusPending, 3), // pending money taken
		&models.Expense{Base: base("e2", "me", 75, models.StatusRejected, 4)},
		&models.Repayment{Base: base("r1", "me", 25, models.StatusCompleted, 5), FriendID: "bob", FromFriend: true},
		&models.Split{
			Base:    base("s1", "me", 90, models.StatusPending, 6),
			PayerID: "me",
			Participants: []models.SplitShare{
				{UserID: "me", Share: 30},
				{UserID: "bob", Share: 30},
				{UserID: "cat", Share: 30, PaidAmount: 30},
			},
		},
		&models.Income{Base: base("other", "zed", 5000, models.StatusCompleted, 7)},
	}

	stats := NewAggregator().Dashboard(history, "me")
	assert.Equal(t, Stats{
		Cash:       -200,
		Online:     1000 - 100 + 25 - 90,
		Pending:    50 + 60 + 30,
		Incoming:   1000,
		Outgoing:   200 + 90,
		MoneyGiven: 100,
		MoneyTaken: 0,
	}, stats)
}

func TestCashFlow(t *testing.T) {
	history := []models.Entry{
		&models.Expense{Base: base("e1", "me", 20, models.StatusCompleted, 1)},
		&models.Income{Base: base("i1", "me", 100, models.StatusCompleted, 0)},
		&models.Income{Base: base("i2", "me", 50, models.StatusCompleted, 1)},
		given("g1", "bob", "me", 10, 0, models.StatusApproved, 1), // seen as money taken
		&models.Expense{Base: base("e2", "me", 5, models.StatusRejected, 1)},
	}

	flows := CashFlow(history, "me", time.UTC)
	require.Len(t, flows, 2)
	assert.Equal(t, DailyFlow{Date: "2026-03-01", Inflow: 100}, flows[0])
	assert.Equal(t, DailyFlow{Date: "2026-03-02", Inflow: 60, Outflow: 20}, flows[1])
}

func TestFilterWindow(t *testing.T) {
	now := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)
	at := func(id string, ts time.Time) models.Entry {
		return &models.Expense{Base: models.Base{ID: id, CreatorID: "me", Timestamp: ts}}
	}
	history := []models.Entry{
		at("today", now.Add(-2*time.Hour)),
		at("yesterday", now.Add(-20*time.Hour)),
		at("week", now.AddDate(0, 0, -5)),
		at("month", now.AddDate(0, 0, -20)),
		at("old", now.AddDate(0, 0, -60)),
	}

	ids := func(entries []models.Entry) []string {
		var out []string
		for _, e := range entries {
			out = append(out, e.Header().ID)
		}
		return out
	}

	tests := []struct {
		window   Window
		from, to time.Time
		want     []string
	}{
		{window: WindowToday, want: []string{"today"}},
		{window: WindowYesterday, want: []string{"yesterday"}},
		{window: Window7D, want: []string{"today", "yesterday", "week"}},
		{window: Window30D, want: []string{"today", "yesterday", "week", "month"}},
		{window: WindowAll, want: []string{"today", "yesterday", "week", "month", "old"}},
		{
			window: WindowCustom,
			from:   now.AddDate(0, 0, -21),
			to:     now.AddDate(0, 0, -5),
			want:   []string{"week", "month"},
		},
	}

	for _, tt := range tests {
		t.Run(string(tt.window), func(t *testing.T) {
			assert.Equal(t, tt.want, ids(FilterWindow(history, tt.window, now, tt.from, tt.to)))
		})
	}
}

func TestMonthlySpend(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	on := func(e models.Entry, ts time.Time) models.Entry {
		e.Header().Timestamp = ts
		return e
	}

	history := []models.Entry{
		on(&models.Expense{Base: models.Base{ID: "e1", CreatorID: "me", Amount: 120, Status: models.StatusCompleted}}, now.AddDate(0, 0, -3)),
		on(&models.Expense{Base: models.Base{ID: "e2", CreatorID: "me", Amount: 80, Status: models.StatusCompleted}}, now.AddDate(0, -1, 0)),
		on(&models.Expense{Base: models.Base{ID: "e3", CreatorID: "me", Amount: 50, Status: models.StatusRejected}}, now),
		on(&models.Expense{Base: models.Base{ID: "e4", CreatorID: "bob", Amount: 70, Status: models.StatusCompleted}}, now),
		on(&models.Split{
			Base:    models.Base{ID: "s1", CreatorID: "bob", Amount: 90, Status: models.StatusPending},
			PayerID: "bob",
			Participants: []models.SplitShare{
				{UserID: "bob", Share: 45, PaidAmount: 45},
				{UserID: "me", Share: 45},
			},
		}, now.AddDate(0, 0, -1)),
	}

	spent := MonthlySpend(history, "me", now)
	assert.Equal(t, 165.0, spent)
	assert.Equal(t, 0.33, BudgetUsed(spent, 500))
	assert.Equal(t, 0.0, BudgetUsed(spent, 0))
}

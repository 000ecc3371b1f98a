package calculator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/financeflow/internal/models"
)

func TestAllocateRepayment(t *testing.T) {
	history := []models.Entry{
		given("new", "alice", "bob", 50, 0, models.StatusApproved, 5),
		given("old", "alice", "bob", 30, 10, models.StatusApproved, 1),
		given("done", "alice", "bob", 99, 0, models.StatusCompleted, 0),
		taken("mine", "bob", "alice", 40, 0, models.StatusPending, 3), // bob took from alice
		given("reverse", "bob", "alice", 70, 0, models.StatusPending, 2),
	}
	agg := NewAggregator()

	t.Run("oldest loan is paid first", func(t *testing.T) {
		allocs, left := agg.AllocateRepayment(history, "bob", "alice", 30)
		require.Len(t, allocs, 2)
		assert.Equal(t, Allocation{EntryID: "old", Applied: 20, PaidAmount: 30, FullyPaid: true}, allocs[0])
		assert.Equal(t, Allocation{EntryID: "mine", Applied: 10, PaidAmount: 10, FullyPaid: false}, allocs[1])
		assert.Equal(t, 0.0, left)
	})

	t.Run("overpayment is returned", func(t *testing.T) {
		allocs, left := agg.AllocateRepayment(history, "bob", "alice", 200)
		require.Len(t, allocs, 3)
		for _, a := range allocs {
			assert.True(t, a.FullyPaid, a.EntryID)
		}
		assert.Equal(t, 90.0, left)
	})

	t.Run("nothing to allocate", func(t *testing.T) {
		allocs, left := agg.AllocateRepayment(history, "carol", "alice", 25)
		assert.Empty(t, allocs)
		assert.Equal(t, 25.0, left)

		allocs, left = agg.AllocateRepayment(history, "bob", "alice", -5)
		assert.Empty(t, allocs)
		assert.Equal(t, 0.0, left)
	})
}

func TestSplitDebts(t *testing.T) {
	split := &models.Split{
		Base:    base("s1", "alice", 90, models.StatusPending, 0),
		PayerID: "alice",
		Participants: []models.SplitShare{
			{UserID: "alice", Share: 30},
			{UserID: "bob", Share: 30, PaidAmount: 10},
			{UserID: "carol", Share: 30, PaidAmount: 30},
		},
	}

	assert.Equal(t, []DebtEdge{{From: "bob", To: "alice", Amount: 20}}, SplitDebts(split))
	assert.False(t, SplitSettled(split))

	split.Participants[1].PaidAmount = 30
	assert.Empty(t, SplitDebts(split))
	assert.True(t, SplitSettled(split))
}

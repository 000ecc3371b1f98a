package calculator

import (
	"slices"

	"github.com/shopspring/decimal"

	"github.com/mmynk/financeflow/internal/models"
)

// Allocation is the part of a repayment applied to one loan.
type Allocation struct {
	EntryID    string
	Applied    float64
	PaidAmount float64 // the loan's paid amount after this repayment
	FullyPaid  bool
}

// DebtEdge represents a debt from one person to another.
type DebtEdge struct {
	From   string // Person who owes
	To     string // Person who is owed
	Amount float64
}

// AllocateRepayment spreads a repayment from debtorID to creditorID over the
// outstanding loans between them, oldest first. It returns one allocation per
// loan touched and whatever could not be applied.
func (a *Aggregator) AllocateRepayment(history []models.Entry, debtorID, creditorID string, amount float64) ([]Allocation, float64) {
	var loans []models.Entry
	for _, e := range history {
		debtor, creditor, ok := models.Debtor(e)
		if !ok || debtor != debtorID || creditor != creditorID {
			continue
		}
		if a.IsSettled(e) || Outstanding(e) <= 0 {
			continue
		}
		loans = append(loans, e)
	}
	slices.SortStableFunc(loans, func(x, y models.Entry) int {
		return x.Header().Timestamp.Compare(y.Header().Timestamp)
	})

	left := dec(nonNegative(amount))
	var allocations []Allocation
	for _, loan := range loans {
		if !left.IsPositive() {
			break
		}
		open := dec(Outstanding(loan))
		applied := decimal.Min(open, left)
		paid := dec(models.PaidAmount(loan)).Add(applied)
		allocations = append(allocations, Allocation{
			EntryID:    loan.Header().ID,
			Applied:    cents(applied),
			PaidAmount: cents(paid),
			FullyPaid:  applied.Equal(open),
		})
		left = left.Sub(applied)
	}
	return allocations, cents(left)
}

// SplitDebts lists what each participant still owes the payer of a split.
// The payer's own share is not a debt.
func SplitDebts(s *models.Split) []DebtEdge {
	var edges []DebtEdge
	for _, p := range s.Participants {
		if p.UserID == s.PayerID {
			continue
		}
		rest := dec(p.Share).Sub(dec(p.PaidAmount))
		if !rest.IsPositive() {
			continue
		}
		edges = append(edges, DebtEdge{From: p.UserID, To: s.PayerID, Amount: cents(rest)})
	}
	return edges
}

// SplitSettled reports whether every non-payer participant has paid their share.
func SplitSettled(s *models.Split) bool {
	return len(SplitDebts(s)) == 0
}

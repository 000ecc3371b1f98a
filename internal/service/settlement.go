package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mmynk/financeflow/internal/calculator"
	"github.com/mmynk/financeflow/internal/models"
	"github.com/mmynk/financeflow/internal/storage"
)

// settleMu serializes read-modify-write cycles on paid amounts.
var settleMu sync.Mutex

// settleLoans applies a repayment from debtorID to creditorID to their
// outstanding loans, oldest first, and stores the new paid amounts. Loans that
// are paid in full are marked Completed. Entries in also are written in the
// same transaction as the loans. It returns the unapplied remainder.
func settleLoans(ctx context.Context, store storage.EntryStore, agg *calculator.Aggregator, debtorID, creditorID string, amount float64, also ...models.Entry) (float64, error) {
	settleMu.Lock()
	defer settleMu.Unlock()

	history, err := store.ListEntries(ctx, creditorID)
	if err != nil {
		return 0, fmt.Errorf("failed to load history: %w", err)
	}

	allocations, leftover := agg.AllocateRepayment(history, debtorID, creditorID, amount)
	byID := make(map[string]models.Entry, len(history))
	for _, e := range history {
		byID[e.Header().ID] = e
	}

	updates := append([]models.Entry(nil), also...)
	for _, a := range allocations {
		loan := byID[a.EntryID]
		switch v := loan.(type) {
		case *models.MoneyGiven:
			v.PaidAmount = a.PaidAmount
		case *models.MoneyTaken:
			v.PaidAmount = a.PaidAmount
		default:
			continue
		}
		if a.FullyPaid {
			loan.Header().Status = models.StatusCompleted
		}
		updates = append(updates, loan)
	}
	if len(updates) > 0 {
		if err := store.UpdateEntries(ctx, updates...); err != nil {
			return 0, fmt.Errorf("failed to update loans: %w", err)
		}
	}

	slog.Info("Repayment allocated",
		"debtor_id", debtorID,
		"creditor_id", creditorID,
		"amount", amount,
		"loans", len(allocations),
		"leftover", leftover,
	)
	if leftover > 0 {
		slog.Warn("Repayment exceeds outstanding loans",
			"debtor_id", debtorID,
			"creditor_id", creditorID,
			"unapplied", leftover,
		)
	}
	return leftover, nil
}

// paySplitShare records a payment by participantID towards their share of
// split splitID. The payment is capped at what is still owed. The split is
// Completed once every non-payer participant has paid. It returns the stored
// split and what the participant still owes.
func paySplitShare(ctx context.Context, store storage.EntryStore, splitID, participantID string, amount float64) (*models.Split, float64, error) {
	settleMu.Lock()
	defer settleMu.Unlock()

	entry, err := store.GetEntry(ctx, splitID)
	if err != nil {
		return nil, 0, err
	}
	split, ok := entry.(*models.Split)
	if !ok {
		return nil, 0, fmt.Errorf("%w: %s is not a split", ErrInvalidAction, splitID)
	}
	share, ok := split.Share(participantID)
	if !ok {
		return nil, 0, fmt.Errorf("%w: %s is not part of split %s", ErrInvalidAction, participantID, split.ID)
	}

	owed := calculator.RoundCents(share.Share - share.PaidAmount)
	if owed < 0 {
		owed = 0
	}
	share.PaidAmount = calculator.RoundCents(share.PaidAmount + min(amount, owed))
	if calculator.SplitSettled(split) {
		split.Status = models.StatusCompleted
	}

	if err := store.UpdateEntry(ctx, split); err != nil {
		return nil, 0, fmt.Errorf("failed to update split %s: %w", split.ID, err)
	}
	return split, calculator.RoundCents(share.Share - share.PaidAmount), nil
}

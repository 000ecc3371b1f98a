package calculator

import (
	"slices"

	"github.com/shopspring/decimal"
)

// SplitMode selects how a bill total is divided.
type SplitMode string

const (
	SplitEqual  SplitMode = "Equal"
	SplitCustom SplitMode = "Custom"
)

const (
	// DefaultBalanceTolerance is how far the sum of shares may drift from the
	// total before a split is considered unbalanced.
	DefaultBalanceTolerance = 0.5

	// StrictBalanceTolerance is the cent-level alternative.
	StrictBalanceTolerance = 0.01
)

// ShareLine is one participant's allocated amount, in selection order.
type ShareLine struct {
	ParticipantID string  `json:"participantId"`
	Amount        float64 `json:"amount"`
	Locked        bool    `json:"locked"`
}

// ComputeShares allocates total among participantIDs.
//
// In Equal mode every participant gets total/count rounded to cents and locked
// is ignored. In Custom mode locked participants keep their previous share and
// the free participants split what is left of the total equally, never below
// zero. If every participant is locked the previous shares are returned as-is.
// The result holds exactly the given participants.
func ComputeShares(total float64, participantIDs []string, mode SplitMode, locked []string, previous map[string]float64) map[string]float64 {
	shares := make(map[string]float64, len(participantIDs))
	if len(participantIDs) == 0 {
		return shares
	}

	if mode != SplitCustom {
		each := cents(dec(total).Div(decimal.NewFromInt(int64(len(participantIDs)))))
		for _, id := range participantIDs {
			shares[id] = each
		}
		return shares
	}

	var free []string
	lockedSum := decimal.Zero
	for _, id := range participantIDs {
		shares[id] = previous[id]
		if slices.Contains(locked, id) {
			lockedSum = lockedSum.Add(dec(previous[id]))
		} else {
			free = append(free, id)
		}
	}
	if len(free) == 0 {
		return shares
	}

	remaining := dec(total).Sub(lockedSum)
	if remaining.IsNegative() {
		remaining = decimal.Zero
	}
	each := cents(remaining.Div(decimal.NewFromInt(int64(len(free)))))
	for _, id := range free {
		shares[id] = each
	}
	return shares
}

// BillSplit is the state of a split being edited. Every method returns a new
// value and leaves the receiver untouched, so a BillSplit can be kept as an
// immutable snapshot between edits.
type BillSplit struct {
	Total float64
	Mode  SplitMode

	// Self is the initiating user. Self is always selected.
	Self string

	// Selected is the ordered participant list.
	Selected []string

	Shares map[string]float64

	// Locked holds manually overridden participants, earliest lock first.
	Locked []string

	Tolerance float64
}

// NewBillSplit starts an Equal split of total with only self selected.
// A non-positive tolerance selects DefaultBalanceTolerance.
func NewBillSplit(self string, total, tolerance float64) BillSplit {
	if tolerance <= 0 {
		tolerance = DefaultBalanceTolerance
	}
	b := BillSplit{
		Total:     nonNegative(total),
		Mode:      SplitEqual,
		Self:      self,
		Selected:  []string{self},
		Tolerance: tolerance,
	}
	return b.recompute()
}

func (b BillSplit) clone() BillSplit {
	n := b
	n.Selected = slices.Clone(b.Selected)
	n.Locked = slices.Clone(b.Locked)
	n.Shares = make(map[string]float64, len(b.Shares))
	for id, v := range b.Shares {
		n.Shares[id] = v
	}
	return n
}

func (b BillSplit) recompute() BillSplit {
	if b.Mode != SplitCustom {
		b.Locked = nil
	}
	b.Shares = ComputeShares(b.Total, b.Selected, b.Mode, b.Locked, b.Shares)
	return b
}

// SetTotal changes the bill total and reallocates in the current mode.
func (b BillSplit) SetTotal(total float64) BillSplit {
	n := b.clone()
	n.Total = nonNegative(total)
	return n.recompute()
}

// SetMode switches between Equal and Custom. Equal clears all locks.
func (b BillSplit) SetMode(mode SplitMode) BillSplit {
	n := b.clone()
	n.Mode = mode
	return n.recompute()
}

// SetManualShare overrides one participant's share and locks it. The other
// free participants absorb the remainder. If the lock would leave nobody free,
// the earliest lock is released so the total can still be rebalanced.
// Unknown participants are ignored.
func (b BillSplit) SetManualShare(participantID string, value float64) BillSplit {
	if !b.IsSelected(participantID) {
		return b
	}
	n := b.clone()
	n.Mode = SplitCustom
	n.Shares[participantID] = nonNegative(value)
	if !slices.Contains(n.Locked, participantID) {
		n.Locked = append(n.Locked, participantID)
	}
	if len(n.Locked) >= len(n.Selected) {
		n.Locked = n.Locked[1:]
	}
	return n.recompute()
}

// ToggleParticipant adds or removes a participant. Self cannot be removed.
// Any change of composition drops all manual overrides.
func (b BillSplit) ToggleParticipant(participantID string) BillSplit {
	if participantID == "" || participantID == b.Self {
		return b
	}
	n := b.clone()
	if i := slices.Index(n.Selected, participantID); i >= 0 {
		n.Selected = slices.Delete(n.Selected, i, i+1)
	} else {
		n.Selected = append(n.Selected, participantID)
	}
	n.Locked = nil
	return n.recompute()
}

// IsSelected reports whether the participant is part of the split.
func (b BillSplit) IsSelected(participantID string) bool {
	return slices.Contains(b.Selected, participantID)
}

// IsLocked reports whether the participant's share was set manually.
func (b BillSplit) IsLocked(participantID string) bool {
	return slices.Contains(b.Locked, participantID)
}

// Sum is the total of all selected shares.
func (b BillSplit) Sum() float64 {
	sum := decimal.Zero
	for _, id := range b.Selected {
		sum = sum.Add(dec(b.Shares[id]))
	}
	return cents(sum)
}

// IsBalanced reports whether the shares add up to the total within tolerance.
// Callers must not save an unbalanced split.
func (b BillSplit) IsBalanced() bool {
	tolerance := b.Tolerance
	if tolerance <= 0 {
		tolerance = DefaultBalanceTolerance
	}
	diff := dec(b.Sum()).Sub(dec(b.Total)).Abs()
	return diff.LessThan(dec(tolerance))
}

// Lines returns the allocation in selection order.
func (b BillSplit) Lines() []ShareLine {
	lines := make([]ShareLine, len(b.Selected))
	for i, id := range b.Selected {
		lines[i] = ShareLine{
			ParticipantID: id,
			Amount:        b.Shares[id],
			Locked:        b.IsLocked(id),
		}
	}
	return lines
}

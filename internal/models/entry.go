package models

import (
	"errors"
	"fmt"
	"time"
)

// Kind is the transaction type as stored and sent over the wire.
type Kind string

const (
	KindIncome     Kind = "Income"
	KindExpense    Kind = "Expense"
	KindMoneyGiven Kind = "Money Given"
	KindMoneyTaken Kind = "Money Taken"
	KindHePaidBack Kind = "He Paid Back"
	KindIPaidBack  Kind = "I Paid Back"
	KindSplit      Kind = "Split"
)

// Status is the lifecycle state of an entry.
type Status string

const (
	StatusPending   Status = "Pending"
	StatusApproved  Status = "Approved"
	StatusRejected  Status = "Rejected"
	StatusCompleted Status = "Completed"
	StatusPaid      Status = "Paid"
)

// PaymentMode records how money moved.
type PaymentMode string

const (
	ModeCash   PaymentMode = "Cash"
	ModeOnline PaymentMode = "Online"
)

var (
	ErrUnknownKind         = errors.New("unknown transaction type")
	ErrMissingFriend       = errors.New("friend is required for this transaction type")
	ErrMissingParticipants = errors.New("split requires at least one participant")
	ErrNegativeAmount      = errors.New("amount cannot be negative")
)

// Base holds the fields shared by every entry variant.
type Base struct {
	ID          string
	CreatorID   string
	Amount      float64
	Mode        PaymentMode
	Category    string
	Subcategory string
	Notes       string
	Status      Status
	Timestamp   time.Time
}

// Header returns the shared fields. It is promoted to every variant.
func (b *Base) Header() *Base { return b }

// Entry is one row of transaction history.
// The concrete type is one of *Income, *Expense, *MoneyGiven, *MoneyTaken,
// *Repayment or *Split.
type Entry interface {
	Header() *Base
	Kind() Kind
	isEntry()
}

// Income is money the user received.
type Income struct{ Base }

// Expense is money the user spent.
type Expense struct{ Base }

// MoneyGiven is a loan from the creator to FriendID.
type MoneyGiven struct {
	Base
	FriendID   string
	PaidAmount float64
}

// MoneyTaken is a loan from FriendID to the creator.
type MoneyTaken struct {
	Base
	FriendID   string
	PaidAmount float64
}

// Repayment records money paid back between the creator and FriendID.
// FromFriend means the friend paid the creator ("He Paid Back"); otherwise the
// creator paid the friend ("I Paid Back").
type Repayment struct {
	Base
	FriendID   string
	FromFriend bool
}

// SplitShare is one participant's part of a split bill.
type SplitShare struct {
	UserID     string  `json:"userId"`
	Name       string  `json:"name,omitempty"`
	Share      float64 `json:"share"`
	PaidAmount float64 `json:"paidAmount"`
}

// Split is a bill paid by PayerID and divided among Participants.
type Split struct {
	Base
	PayerID      string
	Participants []SplitShare
}

func (*Income) Kind() Kind     { return KindIncome }
func (*Expense) Kind() Kind    { return KindExpense }
func (*MoneyGiven) Kind() Kind { return KindMoneyGiven }
func (*MoneyTaken) Kind() Kind { return KindMoneyTaken }
func (*Split) Kind() Kind      { return KindSplit }

func (r *Repayment) Kind() Kind {
	if r.FromFriend {
		return KindHePaidBack
	}
	return KindIPaidBack
}

func (*Income) isEntry()     {}
func (*Expense) isEntry()    {}
func (*MoneyGiven) isEntry() {}
func (*MoneyTaken) isEntry() {}
func (*Repayment) isEntry()  {}
func (*Split) isEntry()      {}

// Share returns the participant's share entry, if present.
func (s *Split) Share(userID string) (*SplitShare, bool) {
	for i := range s.Participants {
		if s.Participants[i].UserID == userID {
			return &s.Participants[i], true
		}
	}
	return nil, false
}

// Involves reports whether userID is the payer or a participant.
func (s *Split) Involves(userID string) bool {
	if s.PayerID == userID || s.CreatorID == userID {
		return true
	}
	_, ok := s.Share(userID)
	return ok
}

// FriendOf returns the counterparty of a friend-directed entry, or "" for
// Income, Expense and Split.
func FriendOf(e Entry) string {
	switch v := e.(type) {
	case *MoneyGiven:
		return v.FriendID
	case *MoneyTaken:
		return v.FriendID
	case *Repayment:
		return v.FriendID
	}
	return ""
}

// PaidAmount returns the settled part of a loan, or 0 for other variants.
func PaidAmount(e Entry) float64 {
	switch v := e.(type) {
	case *MoneyGiven:
		return v.PaidAmount
	case *MoneyTaken:
		return v.PaidAmount
	}
	return 0
}

// Debtor returns who owes whom for a loan entry. ok is false for other variants.
func Debtor(e Entry) (debtor, creditor string, ok bool) {
	switch v := e.(type) {
	case *MoneyGiven:
		return v.FriendID, v.CreatorID, true
	case *MoneyTaken:
		return v.CreatorID, v.FriendID, true
	}
	return "", "", false
}

// Record is the flat wire and storage shape of an entry.
type Record struct {
	ID           string       `json:"id"`
	CreatorID    string       `json:"creatorId"`
	Type         Kind         `json:"type"`
	Amount       float64      `json:"amount"`
	PaidAmount   float64      `json:"paidAmount"`
	Mode         PaymentMode  `json:"mode,omitempty"`
	Category     string       `json:"category,omitempty"`
	Subcategory  string       `json:"subcategory,omitempty"`
	Notes        string       `json:"notes,omitempty"`
	Timestamp    time.Time    `json:"timestamp"`
	Status       Status       `json:"status,omitempty"`
	PayerID      string       `json:"payerId,omitempty"`
	FriendID     string       `json:"friendId,omitempty"`
	Participants []SplitShare `json:"participants,omitempty"`
}

// DecodeRecord converts a wire record into its entry variant.
// Fields that do not belong to the variant are dropped.
func DecodeRecord(r Record) (Entry, error) {
	if r.Amount < 0 || r.PaidAmount < 0 {
		return nil, ErrNegativeAmount
	}
	base := Base{
		ID:          r.ID,
		CreatorID:   r.CreatorID,
		Amount:      r.Amount,
		Mode:        r.Mode,
		Category:    r.Category,
		Subcategory: r.Subcategory,
		Notes:       r.Notes,
		Status:      r.Status,
		Timestamp:   r.Timestamp,
	}

	switch r.Type {
	case KindIncome:
		return &Income{Base: base}, nil
	case KindExpense:
		return &Expense{Base: base}, nil
	case KindMoneyGiven, KindMoneyTaken, KindHePaidBack, KindIPaidBack:
		if r.FriendID == "" {
			return nil, fmt.Errorf("%w: %s", ErrMissingFriend, r.Type)
		}
		switch r.Type {
		case KindMoneyGiven:
			return &MoneyGiven{Base: base, FriendID: r.FriendID, PaidAmount: r.PaidAmount}, nil
		case KindMoneyTaken:
			return &MoneyTaken{Base: base, FriendID: r.FriendID, PaidAmount: r.PaidAmount}, nil
		default:
			return &Repayment{Base: base, FriendID: r.FriendID, FromFriend: r.Type == KindHePaidBack}, nil
		}
	case KindSplit:
		if len(r.Participants) == 0 {
			return nil, ErrMissingParticipants
		}
		payer := r.PayerID
		if payer == "" {
			payer = r.CreatorID
		}
		participants := make([]SplitShare, len(r.Participants))
		copy(participants, r.Participants)
		return &Split{Base: base, PayerID: payer, Participants: participants}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownKind, r.Type)
}

// EncodeEntry flattens an entry into its wire record.
func EncodeEntry(e Entry) Record {
	h := e.Header()
	r := Record{
		ID:          h.ID,
		CreatorID:   h.CreatorID,
		Type:        e.Kind(),
		Amount:      h.Amount,
		Mode:        h.Mode,
		Category:    h.Category,
		Subcategory: h.Subcategory,
		Notes:       h.Notes,
		Timestamp:   h.Timestamp,
		Status:      h.Status,
	}
	switch v := e.(type) {
	case *MoneyGiven:
		r.FriendID = v.FriendID
		r.PaidAmount = v.PaidAmount
	case *MoneyTaken:
		r.FriendID = v.FriendID
		r.PaidAmount = v.PaidAmount
	case *Repayment:
		r.FriendID = v.FriendID
	case *Split:
		r.PayerID = v.PayerID
		r.Participants = make([]SplitShare, len(v.Participants))
		copy(r.Participants, v.Participants)
		for _, p := range v.Participants {
			r.PaidAmount += p.PaidAmount
		}
	}
	return r
}

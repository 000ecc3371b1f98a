package service

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"connectrpc.com/connect"

	"github.com/mmynk/financeflow/internal/calculator"
	"github.com/mmynk/financeflow/internal/middleware"
	"github.com/mmynk/financeflow/internal/models"
	"github.com/mmynk/financeflow/internal/storage"
	"github.com/mmynk/financeflow/pkg/api"
	"github.com/mmynk/financeflow/pkg/api/apiconnect"
)

// recentLimit is how many entries the dashboard lists as recent activity.
const recentLimit = 5

var _ apiconnect.LedgerServiceHandler = (*LedgerService)(nil)

// LedgerService implements the Connect LedgerService.
type LedgerService struct {
	store      storage.Store
	aggregator *calculator.Aggregator
	tolerance  float64
	now        func() time.Time
}

// NewLedgerService creates a new LedgerService. A non-positive tolerance
// selects calculator.DefaultBalanceTolerance.
func NewLedgerService(store storage.Store, aggregator *calculator.Aggregator, tolerance float64) *LedgerService {
	if aggregator == nil {
		aggregator = calculator.NewAggregator()
	}
	if tolerance <= 0 {
		tolerance = calculator.DefaultBalanceTolerance
	}
	return &LedgerService{
		store:      store,
		aggregator: aggregator,
		tolerance:  tolerance,
		now:        time.Now,
	}
}

// SaveTransaction validates and stores a new entry created by the caller, then
// notifies the counterparties that have to act on it.
func (s *LedgerService) SaveTransaction(ctx context.Context, req *connect.Request[api.SaveTransactionRequest]) (*connect.Response[api.SaveTransactionResponse], error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}

	record := req.Msg.Transaction
	slog.Info("SaveTransaction request received",
		"user_id", userID,
		"type", record.Type,
		"amount", record.Amount,
	)

	record.ID = ""
	record.CreatorID = userID
	record.PaidAmount = 0
	if record.Timestamp.IsZero() {
		record.Timestamp = s.now()
	}
	record.Timestamp = record.Timestamp.UTC()
	if record.Mode == "" {
		record.Mode = models.ModeCash
	}
	if record.Amount <= 0 {
		return nil, toConnectError("SaveTransaction rejected", ErrInvalidAmount, "user_id", userID)
	}

	entry, err := models.DecodeRecord(record)
	if err != nil {
		return nil, toConnectError("SaveTransaction rejected", err, "user_id", userID)
	}

	unapplied, err := s.save(ctx, userID, entry)
	if err != nil {
		return nil, toConnectError("SaveTransaction failed", err, "user_id", userID, "type", record.Type)
	}

	slog.Info("Transaction saved",
		"transaction_id", entry.Header().ID,
		"type", entry.Kind(),
		"status", entry.Header().Status,
	)
	return connect.NewResponse(&api.SaveTransactionResponse{
		Transaction: models.EncodeEntry(entry),
		Unapplied:   unapplied,
	}), nil
}

func (s *LedgerService) save(ctx context.Context, userID string, entry models.Entry) (float64, error) {
	h := entry.Header()
	sender := middleware.GetUsername(ctx)

	switch e := entry.(type) {
	case *models.Income, *models.Expense:
		h.Status = models.StatusCompleted
		return 0, s.store.SaveEntry(ctx, entry)

	case *models.MoneyGiven, *models.MoneyTaken:
		friendID := models.FriendOf(e)
		if err := s.checkFriend(ctx, userID, friendID); err != nil {
			return 0, err
		}
		h.Status = models.StatusPending
		if err := s.store.SaveEntry(ctx, entry); err != nil {
			return 0, err
		}
		notify(ctx, s.store, &models.Notification{
			TargetUserID:  friendID,
			SenderID:      userID,
			SenderName:    sender,
			Type:          models.NotifyTransactionApproval,
			Message:       loanMessage(e),
			TransactionID: h.ID,
			Amount:        h.Amount,
		})
		return 0, nil

	case *models.Repayment:
		if err := s.checkFriend(ctx, userID, e.FriendID); err != nil {
			return 0, err
		}
		if e.FromFriend {
			h.Status = models.StatusCompleted
			if err := s.store.SaveEntry(ctx, entry); err != nil {
				return 0, err
			}
			return settleLoans(ctx, s.store, s.aggregator, e.FriendID, userID, h.Amount)
		}
		h.Status = models.StatusPending
		if err := s.store.SaveEntry(ctx, entry); err != nil {
			return 0, err
		}
		notify(ctx, s.store, &models.Notification{
			TargetUserID:  e.FriendID,
			SenderID:      userID,
			SenderName:    sender,
			Type:          models.NotifyPaymentConfirmation,
			Message:       "says they paid you back",
			TransactionID: h.ID,
			Amount:        h.Amount,
		})
		return 0, nil

	case *models.Split:
		if err := s.prepareSplit(ctx, userID, e); err != nil {
			return 0, err
		}
		h.Status = models.StatusPending
		if err := s.store.SaveEntry(ctx, entry); err != nil {
			return 0, err
		}
		payerName := sender
		if payer, ok := e.Share(e.PayerID); ok && payer.Name != "" {
			payerName = payer.Name
		}
		for _, debt := range calculator.SplitDebts(e) {
			notify(ctx, s.store, &models.Notification{
				TargetUserID:    debt.From,
				SenderID:        e.PayerID,
				SenderName:      payerName,
				Type:            models.NotifyReminder,
				Message:         splitMessage(e),
				TransactionID:   h.ID,
				Amount:          debt.Amount,
				RemainingAmount: debt.Amount,
			})
		}
		return 0, nil
	}
	return 0, fmt.Errorf("%w: %s", models.ErrUnknownKind, entry.Kind())
}

func loanMessage(e models.Entry) string {
	if e.Kind() == models.KindMoneyGiven {
		return "says they lent you money"
	}
	return "says they borrowed money from you"
}

func splitMessage(s *models.Split) string {
	if s.Notes != "" {
		return fmt.Sprintf("split %q with you", s.Notes)
	}
	return "split a bill with you"
}

func (s *LedgerService) checkFriend(ctx context.Context, userID, friendID string) error {
	if friendID == userID {
		return ErrSelfFriend
	}
	return requireFriends(ctx, s.store, userID, friendID)
}

// prepareSplit validates a new split and fills in participant names and the
// payer's own paid share. Shares that are all zero are divided equally.
func (s *LedgerService) prepareSplit(ctx context.Context, userID string, split *models.Split) error {
	ids := make([]string, 0, len(split.Participants))
	shares := make(map[string]float64, len(split.Participants))
	for _, p := range split.Participants {
		if slices.Contains(ids, p.UserID) {
			return fmt.Errorf("%w: %s", ErrDuplicateParticipant, p.UserID)
		}
		if p.Share < 0 {
			return models.ErrNegativeAmount
		}
		ids = append(ids, p.UserID)
		shares[p.UserID] = p.Share
	}
	if !slices.Contains(ids, userID) {
		return ErrCreatorNotInSplit
	}
	if !slices.Contains(ids, split.PayerID) {
		return ErrPayerNotInSplit
	}
	for _, id := range ids {
		if id == userID {
			continue
		}
		if err := requireFriends(ctx, s.store, userID, id); err != nil {
			return fmt.Errorf("%w: %s", err, id)
		}
	}

	mode := calculator.SplitCustom
	allZero := !slices.ContainsFunc(ids, func(id string) bool { return shares[id] != 0 })
	if allZero {
		mode = calculator.SplitEqual
	}
	bill := calculator.NewBillSplit(userID, split.Amount, s.tolerance)
	bill.Mode = mode
	bill.Selected = ids
	bill.Shares = calculator.ComputeShares(split.Amount, ids, mode, ids, shares)
	if !bill.IsBalanced() {
		return fmt.Errorf("%w: shares sum to %.2f, total is %.2f", ErrUnbalancedSplit, bill.Sum(), split.Amount)
	}

	users, err := s.store.GetUsersByIDs(ctx, ids)
	if err != nil {
		return err
	}
	for i := range split.Participants {
		p := &split.Participants[i]
		p.Share = bill.Shares[p.UserID]
		p.PaidAmount = 0
		if p.UserID == split.PayerID {
			p.PaidAmount = p.Share
		}
		if u, ok := users[p.UserID]; ok {
			p.Name = u.Username
		}
	}
	return nil
}

// FetchHistory returns every entry visible to the caller, newest first.
func (s *LedgerService) FetchHistory(ctx context.Context, req *connect.Request[api.FetchHistoryRequest]) (*connect.Response[api.FetchHistoryResponse], error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}

	history, err := s.store.ListEntries(ctx, userID)
	if err != nil {
		return nil, toConnectError("FetchHistory failed", err, "user_id", userID)
	}

	slog.Info("FetchHistory successful", "user_id", userID, "count", len(history))
	return connect.NewResponse(&api.FetchHistoryResponse{Transactions: newestFirst(history, 0)}), nil
}

// newestFirst encodes entries in reverse order, keeping at most limit when
// limit is positive.
func newestFirst(entries []models.Entry, limit int) []models.Record {
	records := make([]models.Record, 0, len(entries))
	for i := len(entries) - 1; i >= 0; i-- {
		if limit > 0 && len(records) == limit {
			break
		}
		records = append(records, models.EncodeEntry(entries[i]))
	}
	return records
}

// FetchDashboard computes the caller's dashboard for a time window. Friend
// balances always cover the full history.
func (s *LedgerService) FetchDashboard(ctx context.Context, req *connect.Request[api.FetchDashboardRequest]) (*connect.Response[api.FetchDashboardResponse], error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}

	window := calculator.Window(req.Msg.Window)
	var from, to time.Time
	switch window {
	case calculator.WindowAll, calculator.WindowToday, calculator.WindowYesterday,
		calculator.Window7D, calculator.Window30D:
	case calculator.WindowCustom:
		from, err = time.Parse(time.DateOnly, req.Msg.From)
		if err == nil {
			to, err = time.Parse(time.DateOnly, req.Msg.To)
		}
		if err != nil || to.Before(from) {
			return nil, toConnectError("FetchDashboard rejected",
				fmt.Errorf("%w: custom range %q..%q", ErrInvalidWindow, req.Msg.From, req.Msg.To), "user_id", userID)
		}
	default:
		return nil, toConnectError("FetchDashboard rejected",
			fmt.Errorf("%w: %q", ErrInvalidWindow, req.Msg.Window), "user_id", userID)
	}

	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, toConnectError("FetchDashboard failed", err, "user_id", userID)
	}
	history, err := s.store.ListEntries(ctx, userID)
	if err != nil {
		return nil, toConnectError("FetchDashboard failed", err, "user_id", userID)
	}

	now := s.now().UTC()
	filtered := calculator.FilterWindow(history, window, now, from, to)
	resp := &api.FetchDashboardResponse{
		Stats:      s.aggregator.Dashboard(filtered, userID),
		CashFlow:   calculator.CashFlow(filtered, userID, time.UTC),
		Recent:     newestFirst(filtered, recentLimit),
		Summary:    calculator.Summarize(s.aggregator.Balances(history, userID)),
		BudgetUsed: calculator.BudgetUsed(calculator.MonthlySpend(history, userID, now), user.Budget),
	}

	slog.Info("FetchDashboard successful", "user_id", userID, "window", window, "entries", len(filtered))
	return connect.NewResponse(resp), nil
}

// PreviewSplit applies one edit to a split being composed and returns the new
// allocation. The caller is always a participant.
func (s *LedgerService) PreviewSplit(ctx context.Context, req *connect.Request[api.PreviewSplitRequest]) (*connect.Response[api.PreviewSplitResponse], error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}
	msg := req.Msg

	bill := calculator.NewBillSplit(userID, msg.Total, s.tolerance)
	for _, id := range msg.Participants {
		if id != "" && !bill.IsSelected(id) {
			bill.Selected = append(bill.Selected, id)
		}
	}
	if calculator.SplitMode(msg.Mode) == calculator.SplitCustom {
		bill.Mode = calculator.SplitCustom
		bill.Shares = make(map[string]float64, len(bill.Selected))
		for _, id := range bill.Selected {
			bill.Shares[id] = msg.Shares[id]
		}
		for _, id := range msg.Locked {
			if bill.IsSelected(id) && !bill.IsLocked(id) {
				bill.Locked = append(bill.Locked, id)
			}
		}
	}

	switch {
	case msg.SetShare != nil:
		bill = bill.SetManualShare(msg.SetShare.ParticipantID, msg.SetShare.Value)
	case msg.Toggle != "":
		bill = bill.ToggleParticipant(msg.Toggle)
	default:
		bill = bill.SetTotal(msg.Total)
	}

	locked := bill.Locked
	if locked == nil {
		locked = []string{}
	}
	return connect.NewResponse(&api.PreviewSplitResponse{
		Mode:     string(bill.Mode),
		Lines:    bill.Lines(),
		Locked:   locked,
		Sum:      bill.Sum(),
		Balanced: bill.IsBalanced(),
	}), nil
}

// FriendLedger returns the drill-down view of the caller's entries with one
// friend.
func (s *LedgerService) FriendLedger(ctx context.Context, req *connect.Request[api.FriendLedgerRequest]) (*connect.Response[api.FriendLedgerResponse], error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}
	if req.Msg.FriendID == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, models.ErrMissingFriend)
	}

	history, err := s.store.ListEntries(ctx, userID)
	if err != nil {
		return nil, toConnectError("FriendLedger failed", err, "user_id", userID)
	}

	ledger := s.aggregator.FriendLedger(history, userID, req.Msg.FriendID)
	return connect.NewResponse(&api.FriendLedgerResponse{
		FriendID:     ledger.FriendID,
		Activity:     encodeAll(ledger.Activity),
		IOwe:         encodeAll(ledger.IOwe),
		TheyOwe:      encodeAll(ledger.TheyOwe),
		TotalIOwe:    ledger.TotalIOwe,
		TotalTheyOwe: ledger.TotalTheyOwe,
		Net:          ledger.Net,
	}), nil
}

func encodeAll(entries []models.Entry) []models.Record {
	records := make([]models.Record, len(entries))
	for i, e := range entries {
		records[i] = models.EncodeEntry(e)
	}
	return records
}

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/financeflow/internal/models"
)

const entryColumns = `e.id, e.creator_id, e.type, e.amount, e.paid_amount, e.mode, e.category,
	e.subcategory, e.notes, e.status, e.friend_id, e.payer_id, e.created_at`

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func scanRecord(row scanner) (models.Record, error) {
	var (
		r         models.Record
		kind      string
		mode      string
		status    string
		friendID  sql.NullString
		payerID   sql.NullString
		createdAt int64
	)
	err := row.Scan(&r.ID, &r.CreatorID, &kind, &r.Amount, &r.PaidAmount, &mode, &r.Category,
		&r.Subcategory, &r.Notes, &status, &friendID, &payerID, &createdAt)
	if err != nil {
		return r, err
	}
	r.Type = models.Kind(kind)
	r.Mode = models.PaymentMode(mode)
	r.Status = models.Status(status)
	r.FriendID = friendID.String
	r.PayerID = payerID.String
	r.Timestamp = time.UnixMilli(createdAt).UTC()
	return r, nil
}

// SaveEntry persists a new entry, including split shares.
func (s *SQLiteStore) SaveEntry(ctx context.Context, entry models.Entry) error {
	h := entry.Header()
	if h.ID == "" {
		h.ID = uuid.New().String()
	}
	if h.Timestamp.IsZero() {
		h.Timestamp = time.Now().UTC()
	}
	r := models.EncodeEntry(entry)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO entries (id, creator_id, type, amount, paid_amount, mode, category, subcategory,
		 notes, status, friend_id, payer_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.CreatorID, string(r.Type), r.Amount, r.PaidAmount, string(r.Mode), r.Category,
		r.Subcategory, r.Notes, string(r.Status), nullable(r.FriendID), nullable(r.PayerID),
		r.Timestamp.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert entry: %w", err)
	}

	for i, p := range r.Participants {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO split_shares (entry_id, position, user_id, name, share, paid_amount)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			r.ID, i, p.UserID, p.Name, p.Share, p.PaidAmount,
		); err != nil {
			return fmt.Errorf("failed to insert split share: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetEntry retrieves an entry by ID.
func (s *SQLiteStore) GetEntry(ctx context.Context, id string) (models.Entry, error) {
	r, err := scanRecord(s.db.QueryRowContext(ctx,
		`SELECT `+entryColumns+` FROM entries e WHERE e.id = ?`, id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("entry", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get entry: %w", err)
	}

	records := []models.Record{r}
	if err := s.attachShares(ctx, records); err != nil {
		return nil, err
	}
	return decode(records[0])
}

// UpdateEntry stores the status and paid amounts of an existing entry.
// Other fields are immutable once saved.
func (s *SQLiteStore) UpdateEntry(ctx context.Context, entry models.Entry) error {
	return s.UpdateEntries(ctx, entry)
}

// UpdateEntries stores the status and paid amounts of several entries in one
// transaction. Either all of them are written or none is.
func (s *SQLiteStore) UpdateEntries(ctx context.Context, entries ...models.Entry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, entry := range entries {
		if err := updateEntry(ctx, tx, models.EncodeEntry(entry)); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func updateEntry(ctx context.Context, tx *sql.Tx, r models.Record) error {
	res, err := tx.ExecContext(ctx,
		"UPDATE entries SET status = ?, paid_amount = ? WHERE id = ?",
		string(r.Status), r.PaidAmount, r.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update entry: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound("entry", r.ID)
	}

	for _, p := range r.Participants {
		if _, err := tx.ExecContext(ctx,
			"UPDATE split_shares SET paid_amount = ? WHERE entry_id = ? AND user_id = ?",
			p.PaidAmount, r.ID, p.UserID,
		); err != nil {
			return fmt.Errorf("failed to update split share: %w", err)
		}
	}
	return nil
}

// ListEntries returns the history visible to a user, oldest first.
func (s *SQLiteStore) ListEntries(ctx context.Context, userID string) ([]models.Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+entryColumns+` FROM entries e
		 WHERE e.creator_id = ? OR e.friend_id = ? OR e.payer_id = ?
		    OR EXISTS (SELECT 1 FROM split_shares s WHERE s.entry_id = e.id AND s.user_id = ?)
		 ORDER BY e.created_at, e.rowid`,
		userID, userID, userID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list entries: %w", err)
	}

	var records []models.Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		records = append(records, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate entries: %w", err)
	}

	if err := s.attachShares(ctx, records); err != nil {
		return nil, err
	}

	entries := make([]models.Entry, 0, len(records))
	for _, r := range records {
		e, err := decode(r)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// attachShares loads split shares for the split records in place.
func (s *SQLiteStore) attachShares(ctx context.Context, records []models.Record) error {
	index := make(map[string]int)
	var args []any
	for i, r := range records {
		if r.Type == models.KindSplit {
			index[r.ID] = i
			args = append(args, r.ID)
		}
	}
	if len(args) == 0 {
		return nil
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT entry_id, user_id, name, share, paid_amount FROM split_shares
		 WHERE entry_id IN (`+placeholders(len(args))+`)
		 ORDER BY entry_id, position`,
		args...,
	)
	if err != nil {
		return fmt.Errorf("failed to get split shares: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			entryID string
			p       models.SplitShare
		)
		if err := rows.Scan(&entryID, &p.UserID, &p.Name, &p.Share, &p.PaidAmount); err != nil {
			return fmt.Errorf("failed to scan split share: %w", err)
		}
		r := &records[index[entryID]]
		r.Participants = append(r.Participants, p)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate split shares: %w", err)
	}
	return nil
}

func decode(r models.Record) (models.Entry, error) {
	e, err := models.DecodeRecord(r)
	if err != nil {
		return nil, fmt.Errorf("failed to decode entry %s: %w", r.ID, err)
	}
	return e, nil
}

package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/mmynk/financeflow/internal/models"
	"github.com/mmynk/financeflow/internal/storage"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func mustCreateUser(t *testing.T, store *SQLiteStore, username string) *models.User {
	t.Helper()
	user := models.NewUser(username, username+"@example.com", "hash")
	if err := store.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("CreateUser(%s) failed: %v", username, err)
	}
	return user
}

func TestUsers(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	alice := models.NewUser("alice", "Alice@Example.com", "hash")
	alice.Categories = []models.Category{
		{Name: "Food", Subcategories: []string{"Groceries", "Dining"}},
		{Name: "Travel", Subcategories: []string{}},
	}
	if err := store.CreateUser(ctx, alice); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	t.Run("GetUserByLogin accepts username or email", func(t *testing.T) {
		for _, login := range []string{"alice", "alice@example.com"} {
			got, err := store.GetUserByLogin(ctx, login)
			if err != nil {
				t.Fatalf("GetUserByLogin(%q) failed: %v", login, err)
			}
			if got.ID != alice.ID {
				t.Errorf("GetUserByLogin(%q) = %s, want %s", login, got.ID, alice.ID)
			}
		}
	})

	t.Run("categories round trip in order", func(t *testing.T) {
		got, err := store.GetUserByID(ctx, alice.ID)
		if err != nil {
			t.Fatalf("GetUserByID failed: %v", err)
		}
		if len(got.Categories) != 2 || got.Categories[0].Name != "Food" || got.Categories[1].Name != "Travel" {
			t.Fatalf("categories = %+v", got.Categories)
		}
		if subs := got.Categories[0].Subcategories; len(subs) != 2 || subs[0] != "Groceries" {
			t.Errorf("subcategories = %v", subs)
		}
		if got.Mode != models.AppearanceLight || got.Theme != "indigo" {
			t.Errorf("appearance = %s/%s", got.Mode, got.Theme)
		}
	})

	t.Run("duplicate username is rejected", func(t *testing.T) {
		dup := models.NewUser("alice", "other@example.com", "hash")
		if err := store.CreateUser(ctx, dup); !errors.Is(err, storage.ErrAlreadyExists) {
			t.Errorf("CreateUser() error = %v, want ErrAlreadyExists", err)
		}
	})

	t.Run("UpdateUser replaces profile and categories", func(t *testing.T) {
		alice.PhoneNumber = "555-0100"
		alice.IsVerified = true
		alice.Budget = 1200
		alice.Mode = models.AppearanceDark
		alice.Categories = []models.Category{{Name: "Rent", Subcategories: []string{"Flat"}}}
		if err := store.UpdateUser(ctx, alice); err != nil {
			t.Fatalf("UpdateUser failed: %v", err)
		}

		got, err := store.GetUserByID(ctx, alice.ID)
		if err != nil {
			t.Fatalf("GetUserByID failed: %v", err)
		}
		if got.PhoneNumber != "555-0100" || !got.IsVerified || got.Budget != 1200 || got.Mode != models.AppearanceDark {
			t.Errorf("profile not updated: %+v", got)
		}
		if len(got.Categories) != 1 || got.Categories[0].Subcategories[0] != "Flat" {
			t.Errorf("categories = %+v", got.Categories)
		}
	})

	t.Run("missing user", func(t *testing.T) {
		if _, err := store.GetUserByID(ctx, "nope"); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("GetUserByID() error = %v, want ErrNotFound", err)
		}
		ghost := models.NewUser("ghost", "ghost@example.com", "hash")
		if err := store.UpdateUser(ctx, ghost); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("UpdateUser() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("SearchUsers and GetUsersByIDs", func(t *testing.T) {
		bob := mustCreateUser(t, store, "bob")
		mustCreateUser(t, store, "bobby")

		found, err := store.SearchUsers(ctx, "BOB", 10)
		if err != nil {
			t.Fatalf("SearchUsers failed: %v", err)
		}
		if len(found) != 2 || found[0].Username != "bob" {
			t.Errorf("SearchUsers() = %d users", len(found))
		}

		users, err := store.GetUsersByIDs(ctx, []string{alice.ID, bob.ID, "missing"})
		if err != nil {
			t.Fatalf("GetUsersByIDs failed: %v", err)
		}
		if len(users) != 2 || users[bob.ID].Username != "bob" {
			t.Errorf("GetUsersByIDs() = %v", users)
		}
	})
}

func TestEntries(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	alice := mustCreateUser(t, store, "alice")
	bob := mustCreateUser(t, store, "bob")
	carol := mustCreateUser(t, store, "carol")
	ts := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)

	loan := &models.MoneyGiven{
		Base: models.Base{
			CreatorID: alice.ID, Amount: 200, Mode: models.ModeOnline,
			Status: models.StatusPending, Timestamp: ts,
		},
		FriendID: bob.ID,
	}
	split := &models.Split{
		Base: models.Base{
			CreatorID: carol.ID, Amount: 90, Mode: models.ModeCash,
			Status: models.StatusPending, Timestamp: ts.Add(time.Hour), Category: "Food",
		},
		PayerID: carol.ID,
		Participants: []models.SplitShare{
			{UserID: carol.ID, Name: "carol", Share: 30, PaidAmount: 30},
			{UserID: alice.ID, Name: "alice", Share: 30},
			{UserID: bob.ID, Name: "bob", Share: 30},
		},
	}
	private := &models.Expense{
		Base: models.Base{CreatorID: bob.ID, Amount: 5, Status: models.StatusCompleted, Timestamp: ts},
	}

	for _, e := range []models.Entry{loan, split, private} {
		if err := store.SaveEntry(ctx, e); err != nil {
			t.Fatalf("SaveEntry(%s) failed: %v", e.Kind(), err)
		}
		if e.Header().ID == "" {
			t.Fatal("Expected entry ID to be generated")
		}
	}

	t.Run("GetEntry returns the variant", func(t *testing.T) {
		got, err := store.GetEntry(ctx, split.ID)
		if err != nil {
			t.Fatalf("GetEntry failed: %v", err)
		}
		s, ok := got.(*models.Split)
		if !ok {
			t.Fatalf("GetEntry() returned %T, want *models.Split", got)
		}
		if len(s.Participants) != 3 || s.Participants[1].UserID != alice.ID || s.Category != "Food" {
			t.Errorf("split = %+v", s)
		}
		if !s.Timestamp.Equal(split.Timestamp) {
			t.Errorf("timestamp = %v, want %v", s.Timestamp, split.Timestamp)
		}
	})

	t.Run("ListEntries includes friend and participant entries", func(t *testing.T) {
		got, err := store.ListEntries(ctx, alice.ID)
		if err != nil {
			t.Fatalf("ListEntries failed: %v", err)
		}
		if len(got) != 2 || got[0].Header().ID != loan.ID || got[1].Header().ID != split.ID {
			t.Errorf("ListEntries(alice) = %d entries", len(got))
		}

		got, err = store.ListEntries(ctx, bob.ID)
		if err != nil {
			t.Fatalf("ListEntries failed: %v", err)
		}
		if len(got) != 3 {
			t.Errorf("ListEntries(bob) = %d entries, want 3", len(got))
		}
	})

	t.Run("UpdateEntry stores status and paid amounts", func(t *testing.T) {
		loan.PaidAmount = 150
		loan.Status = models.StatusApproved
		if err := store.UpdateEntry(ctx, loan); err != nil {
			t.Fatalf("UpdateEntry failed: %v", err)
		}
		split.Participants[2].PaidAmount = 30
		if err := store.UpdateEntry(ctx, split); err != nil {
			t.Fatalf("UpdateEntry failed: %v", err)
		}

		got, _ := store.GetEntry(ctx, loan.ID)
		if models.PaidAmount(got) != 150 || got.Header().Status != models.StatusApproved {
			t.Errorf("loan = %+v", got)
		}
		gotSplit, _ := store.GetEntry(ctx, split.ID)
		if share, _ := gotSplit.(*models.Split).Share(bob.ID); share.PaidAmount != 30 {
			t.Errorf("bob paid = %v, want 30", share.PaidAmount)
		}
	})

	t.Run("UpdateEntries writes all or nothing", func(t *testing.T) {
		loan.PaidAmount = 200
		loan.Status = models.StatusCompleted
		missing := &models.Expense{Base: models.Base{ID: "nonexistent-id", Status: models.StatusCompleted}}
		if err := store.UpdateEntries(ctx, loan, missing); !errors.Is(err, storage.ErrNotFound) {
			t.Fatalf("UpdateEntries() error = %v, want ErrNotFound", err)
		}
		got, _ := store.GetEntry(ctx, loan.ID)
		if models.PaidAmount(got) != 150 || got.Header().Status != models.StatusApproved {
			t.Errorf("loan after failed batch = %+v", got)
		}

		split.Status = models.StatusCompleted
		if err := store.UpdateEntries(ctx, loan, split); err != nil {
			t.Fatalf("UpdateEntries failed: %v", err)
		}
		got, _ = store.GetEntry(ctx, loan.ID)
		gotSplit, _ := store.GetEntry(ctx, split.ID)
		if models.PaidAmount(got) != 200 || gotSplit.Header().Status != models.StatusCompleted {
			t.Errorf("loan = %+v, split = %+v", got, gotSplit)
		}
	})

	t.Run("GetEntry returns ErrNotFound", func(t *testing.T) {
		if _, err := store.GetEntry(ctx, "nonexistent-id"); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("GetEntry() error = %v, want ErrNotFound", err)
		}
	})
}

func TestFriendships(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	alice := mustCreateUser(t, store, "alice")
	bob := mustCreateUser(t, store, "bob")

	f := &models.Friendship{UserA: bob.ID, UserB: alice.ID, Status: models.FriendshipPending, RequestedBy: bob.ID}
	if err := store.CreateFriendship(ctx, f); err != nil {
		t.Fatalf("CreateFriendship failed: %v", err)
	}

	dup := &models.Friendship{UserA: alice.ID, UserB: bob.ID, Status: models.FriendshipPending, RequestedBy: alice.ID}
	if err := store.CreateFriendship(ctx, dup); !errors.Is(err, storage.ErrAlreadyExists) {
		t.Errorf("CreateFriendship() duplicate error = %v, want ErrAlreadyExists", err)
	}

	if err := store.SetFriendshipStatus(ctx, alice.ID, bob.ID, models.FriendshipAccepted); err != nil {
		t.Fatalf("SetFriendshipStatus failed: %v", err)
	}

	got, err := store.GetFriendship(ctx, alice.ID, bob.ID)
	if err != nil {
		t.Fatalf("GetFriendship failed: %v", err)
	}
	if got.Status != models.FriendshipAccepted || got.RequestedBy != bob.ID || got.Other(alice.ID) != bob.ID {
		t.Errorf("friendship = %+v", got)
	}

	list, err := store.ListFriendships(ctx, bob.ID)
	if err != nil || len(list) != 1 {
		t.Fatalf("ListFriendships() = %v, %v", list, err)
	}

	if err := store.DeleteFriendship(ctx, bob.ID, alice.ID); err != nil {
		t.Fatalf("DeleteFriendship failed: %v", err)
	}
	if _, err := store.GetFriendship(ctx, alice.ID, bob.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("GetFriendship() after delete error = %v, want ErrNotFound", err)
	}
}

func TestNotifications(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	alice := mustCreateUser(t, store, "alice")
	bob := mustCreateUser(t, store, "bob")

	older := &models.Notification{
		TargetUserID: alice.ID, SenderID: bob.ID, SenderName: "bob",
		Type: models.NotifyFriendRequest, Message: "bob sent you a friend request", Timestamp: 1000,
	}
	newer := &models.Notification{
		TargetUserID: alice.ID, SenderID: bob.ID, SenderName: "bob",
		Type: models.NotifyTransactionApproval, TransactionID: "tx-1", Amount: 40, Timestamp: 2000,
	}
	for _, n := range []*models.Notification{older, newer} {
		if err := store.CreateNotification(ctx, n); err != nil {
			t.Fatalf("CreateNotification failed: %v", err)
		}
	}

	list, err := store.ListNotifications(ctx, alice.ID)
	if err != nil {
		t.Fatalf("ListNotifications failed: %v", err)
	}
	if len(list) != 2 || list[0].ID != newer.ID || list[0].TransactionID != "tx-1" {
		t.Fatalf("ListNotifications() = %+v", list)
	}

	claimed, err := store.ClaimNotification(ctx, older.ID)
	if err != nil || !claimed {
		t.Fatalf("ClaimNotification() = %v, %v, want true", claimed, err)
	}
	got, err := store.GetNotification(ctx, older.ID)
	if err != nil {
		t.Fatalf("GetNotification failed: %v", err)
	}
	if !got.IsResolved || !got.IsRead || got.TransactionID != "" {
		t.Errorf("notification = %+v", got)
	}

	claimed, err = store.ClaimNotification(ctx, older.ID)
	if err != nil || claimed {
		t.Errorf("second ClaimNotification() = %v, %v, want false", claimed, err)
	}

	if err := store.ReopenNotification(ctx, older.ID); err != nil {
		t.Fatalf("ReopenNotification failed: %v", err)
	}
	claimed, err = store.ClaimNotification(ctx, older.ID)
	if err != nil || !claimed {
		t.Errorf("ClaimNotification() after reopen = %v, %v, want true", claimed, err)
	}

	if _, err := store.ClaimNotification(ctx, "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("ClaimNotification() error = %v, want ErrNotFound", err)
	}
	if err := store.ReopenNotification(ctx, "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("ReopenNotification() error = %v, want ErrNotFound", err)
	}
}

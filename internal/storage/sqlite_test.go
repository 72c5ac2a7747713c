package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/Veraticus/balance-snapshots/internal/common"
	"github.com/Veraticus/balance-snapshots/internal/date"
	"github.com/Veraticus/balance-snapshots/internal/model"
	"github.com/shopspring/decimal"
)

// Helper function to create test storage.
func createTestStorage(t *testing.T) (*SQLiteStorage, func()) {
	t.Helper()
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	store, err := NewSQLiteStorage(dbPath)
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}

	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		t.Fatalf("Failed to migrate: %v", err)
	}

	return store, func() { _ = store.Close() }
}

// createTestAccount inserts an account owned by ownerID and returns it.
func createTestAccount(t *testing.T, store *SQLiteStorage, ownerID, name string) *model.Account {
	t.Helper()
	account := &model.Account{
		ID:      model.NewAccountID(),
		OwnerID: ownerID,
		Name:    name,
		Visible: true,
	}
	if err := store.CreateAccount(context.Background(), account); err != nil {
		t.Fatalf("Failed to create account: %v", err)
	}
	return account
}

func snapshotAt(accountID, on, balance string, source model.SnapshotSource) model.BalanceSnapshot {
	return model.BalanceSnapshot{
		AccountID:  accountID,
		Date:       date.MustParse(on),
		Balance:    decimal.RequireFromString(balance),
		Source:     source,
		Note:       "test",
		RecordedBy: "user-1",
	}
}

func TestNewSQLiteStorage_EmptyPath(t *testing.T) {
	_, err := NewSQLiteStorage("  ")
	if !errors.Is(err, common.ErrValidation) {
		t.Errorf("Expected validation error, got %v", err)
	}
}

func TestSQLiteStorage_Accounts(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	checking := createTestAccount(t, store, "user-1", "Checking")
	createTestAccount(t, store, "user-1", "Savings")
	createTestAccount(t, store, "user-2", "Joint")

	got, err := store.GetAccount(ctx, checking.ID)
	if err != nil {
		t.Fatalf("Failed to get account: %v", err)
	}
	if got.OwnerID != "user-1" || got.Name != "Checking" || !got.Visible {
		t.Errorf("Unexpected account: %+v", got)
	}
	if got.CreatedAt.IsZero() {
		t.Error("Expected created_at to be populated")
	}

	all, err := store.ListAccounts(ctx)
	if err != nil {
		t.Fatalf("Failed to list accounts: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("Expected 3 accounts, got %d", len(all))
	}

	owned, err := store.ListAccountsByOwner(ctx, "user-1")
	if err != nil {
		t.Fatalf("Failed to list owned accounts: %v", err)
	}
	if len(owned) != 2 {
		t.Errorf("Expected 2 owned accounts, got %d", len(owned))
	}

	_, err = store.GetAccount(ctx, model.NewAccountID())
	if !errors.Is(err, common.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for missing account, got %v", err)
	}

	err = store.CreateAccount(ctx, &model.Account{ID: "Alice", OwnerID: "user-1", Name: "Legacy"})
	if !errors.Is(err, ErrInvalidAccount) {
		t.Errorf("Expected ErrInvalidAccount for non-uuid id, got %v", err)
	}
}

func TestSQLiteStorage_AutomationPreference(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	pref, err := store.GetAutomationPreference(ctx, "user-1")
	if err != nil {
		t.Fatalf("Failed to get preference: %v", err)
	}
	if pref.Enabled {
		t.Error("Expected unknown user to have automation disabled")
	}

	if err := store.SetAutomationPreference(ctx, "user-1", true); err != nil {
		t.Fatalf("Failed to set preference: %v", err)
	}
	pref, err = store.GetAutomationPreference(ctx, "user-1")
	if err != nil {
		t.Fatalf("Failed to get preference: %v", err)
	}
	if !pref.Enabled {
		t.Error("Expected automation enabled")
	}

	if err := store.SetAutomationPreference(ctx, "user-1", false); err != nil {
		t.Fatalf("Failed to clear preference: %v", err)
	}
	pref, _ = store.GetAutomationPreference(ctx, "user-1")
	if pref.Enabled {
		t.Error("Expected automation disabled after toggle off")
	}
}

func TestSQLiteStorage_TransactionRollback(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	account := createTestAccount(t, store, "user-1", "Checking")
	manual := snapshotAt(account.ID, "2024-01-10", "1000", model.SourceManual)
	if err := store.UpsertSnapshot(ctx, &manual); err != nil {
		t.Fatalf("Failed to seed snapshot: %v", err)
	}

	tx, err := store.BeginTx(ctx)
	if err != nil {
		t.Fatalf("Failed to begin transaction: %v", err)
	}

	update := snapshotAt(account.ID, "2024-01-10", "5", model.SourceManual)
	if err := tx.UpsertSnapshot(ctx, &update); err != nil {
		t.Fatalf("Failed to upsert in transaction: %v", err)
	}
	inTx, err := tx.GetLatestSnapshot(ctx, account.ID)
	if err != nil {
		t.Fatalf("Failed to read in transaction: %v", err)
	}
	if !inTx.Balance.Equal(decimal.NewFromInt(5)) {
		t.Errorf("Expected transaction to see its own write, got %s", inTx.Balance)
	}

	if err := tx.Rollback(); err != nil {
		t.Fatalf("Failed to rollback: %v", err)
	}

	latest, err := store.GetLatestSnapshot(ctx, account.ID)
	if err != nil {
		t.Fatalf("Failed to read latest: %v", err)
	}
	if !latest.Balance.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("Expected rollback to keep 1000, got %s", latest.Balance)
	}
}

func TestSQLiteStorage_TransactionCommit(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	tx, err := store.BeginTx(ctx)
	if err != nil {
		t.Fatalf("Failed to begin transaction: %v", err)
	}

	account := &model.Account{ID: model.NewAccountID(), OwnerID: "user-9", Name: "Brokerage"}
	if err := tx.CreateAccount(ctx, account); err != nil {
		t.Fatalf("Failed to create account in transaction: %v", err)
	}
	if err := tx.SetAutomationPreference(ctx, "user-9", true); err != nil {
		t.Fatalf("Failed to set preference in transaction: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("Failed to commit: %v", err)
	}

	if _, err := store.GetAccount(ctx, account.ID); err != nil {
		t.Errorf("Expected committed account, got %v", err)
	}
	pref, err := store.GetAutomationPreference(ctx, "user-9")
	if err != nil || !pref.Enabled {
		t.Errorf("Expected committed preference, got %+v, %v", pref, err)
	}
}

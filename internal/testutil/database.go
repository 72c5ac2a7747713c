// Package testutil provides database fixtures shared by the engine and CLI
// tests: a migrated SQLite database per test and a fluent builder for
// seeding accounts, manual readings, and income.
package testutil

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/Veraticus/balance-snapshots/internal/date"
	"github.com/Veraticus/balance-snapshots/internal/model"
	"github.com/Veraticus/balance-snapshots/internal/service"
	"github.com/Veraticus/balance-snapshots/internal/storage"
	"github.com/shopspring/decimal"
)

// DefaultOwner owns accounts created without an explicit owner.
const DefaultOwner = "user-owner"

// SetupTestDB creates a migrated database in the test's temp directory.
// It is closed when the test finishes.
func SetupTestDB(t *testing.T) *storage.SQLiteStorage {
	t.Helper()

	db, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	t.Cleanup(func() {
		if closeErr := db.Close(); closeErr != nil {
			t.Logf("Failed to close database: %v", closeErr)
		}
	})

	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	return db
}

// AddAccount creates a visible account for owner and returns its id.
func AddAccount(t *testing.T, store service.Store, owner string) string {
	t.Helper()

	account := &model.Account{
		ID:      model.NewAccountID(),
		OwnerID: owner,
		Name:    "Checking",
		Visible: true,
	}
	if err := store.CreateAccount(context.Background(), account); err != nil {
		t.Fatalf("failed to create account: %v", err)
	}
	return account.ID
}

// AddManual upserts a manual reading recorded by DefaultOwner.
func AddManual(t *testing.T, store service.Store, accountID, on, balance string) {
	t.Helper()

	snap := &model.BalanceSnapshot{
		AccountID:  accountID,
		Date:       date.MustParse(on),
		Balance:    decimal.RequireFromString(balance),
		Source:     model.SourceManual,
		RecordedBy: DefaultOwner,
	}
	if err := store.UpsertSnapshot(context.Background(), snap); err != nil {
		t.Fatalf("failed to record manual snapshot: %v", err)
	}
}

// AddIncome saves an income entry and returns it.
func AddIncome(t *testing.T, store service.Store, accountID, on, amount string) *model.IncomeEntry {
	t.Helper()

	entry := &model.IncomeEntry{
		ID:           model.NewIncomeID(),
		AccountID:    accountID,
		Amount:       decimal.RequireFromString(amount),
		ReceivedDate: date.MustParse(on),
	}
	if err := store.SaveIncomeEntry(context.Background(), entry); err != nil {
		t.Fatalf("failed to save income: %v", err)
	}
	return entry
}

// History renders an account's snapshots as "date source balance" lines,
// oldest first.
func History(t *testing.T, store service.Store, accountID string) []string {
	t.Helper()

	snapshots, err := store.ListSnapshots(context.Background(), accountID)
	if err != nil {
		t.Fatalf("failed to list snapshots: %v", err)
	}

	lines := make([]string, 0, len(snapshots))
	for _, snap := range snapshots {
		lines = append(lines, fmt.Sprintf("%s %s %s", snap.Date, snap.Source, snap.Balance.StringFixed(2)))
	}
	return lines
}

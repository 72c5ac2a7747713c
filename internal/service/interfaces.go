// Package service defines the interfaces for all application services.
package service

import (
	"context"

	"github.com/Veraticus/balance-snapshots/internal/date"
	"github.com/Veraticus/balance-snapshots/internal/model"
)

// AccountStore reads and writes accounts.
type AccountStore interface {
	CreateAccount(ctx context.Context, account *model.Account) error
	GetAccount(ctx context.Context, id string) (*model.Account, error)
	ListAccounts(ctx context.Context) ([]model.Account, error)
	ListAccountsByOwner(ctx context.Context, ownerID string) ([]model.Account, error)
}

// SnapshotStore persists dated balance snapshots, one per account and day.
type SnapshotStore interface {
	// UpsertSnapshot inserts a snapshot or fully replaces the one on the same date.
	UpsertSnapshot(ctx context.Context, snapshot *model.BalanceSnapshot) error
	// InsertSnapshots inserts a batch of snapshots.
	InsertSnapshots(ctx context.Context, snapshots []model.BalanceSnapshot) error
	DeleteSnapshotsBySource(ctx context.Context, accountID string, source model.SnapshotSource) (int64, error)
	DeleteSnapshot(ctx context.Context, accountID string, on date.Date) error
	// GetLatestSnapshot returns the snapshot with the greatest date, any source.
	GetLatestSnapshot(ctx context.Context, accountID string) (*model.BalanceSnapshot, error)
	GetLatestSnapshotBySource(ctx context.Context, accountID string, source model.SnapshotSource) (*model.BalanceSnapshot, error)
	ListSnapshots(ctx context.Context, accountID string) ([]model.BalanceSnapshot, error)
}

// IncomeStore persists income entries.
type IncomeStore interface {
	SaveIncomeEntry(ctx context.Context, entry *model.IncomeEntry) error
	GetIncomeEntry(ctx context.Context, id string) (*model.IncomeEntry, error)
	DeleteIncomeEntry(ctx context.Context, id string) error
	ListIncome(ctx context.Context, accountID string) ([]model.IncomeEntry, error)
	// ListIncomeAfter returns entries received strictly after the given day, oldest first.
	ListIncomeAfter(ctx context.Context, accountID string, after date.Date) ([]model.IncomeEntry, error)
}

// PreferenceStore reads and writes per-user automation preferences.
type PreferenceStore interface {
	// GetAutomationPreference returns a disabled preference for unknown users.
	GetAutomationPreference(ctx context.Context, userID string) (*model.AutomationPreference, error)
	SetAutomationPreference(ctx context.Context, userID string, enabled bool) error
}

// Store groups the operations available both on the database and inside a transaction.
type Store interface {
	AccountStore
	SnapshotStore
	IncomeStore
	PreferenceStore
}

// Storage defines the contract for our persistence layer.
type Storage interface {
	Store

	// Database management
	Migrate(ctx context.Context) error
	BeginTx(ctx context.Context) (Transaction, error)
	Close() error
}

// Transaction represents a database transaction.
type Transaction interface {
	Store
	Commit() error
	Rollback() error
}

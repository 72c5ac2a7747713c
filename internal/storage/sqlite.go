package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Veraticus/balance-snapshots/internal/date"
	"github.com/Veraticus/balance-snapshots/internal/model"
	"github.com/Veraticus/balance-snapshots/internal/service"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteStorage implements the Storage interface using SQLite.
type SQLiteStorage struct {
	db     *sql.DB
	dbPath string
}

// queryable is an interface satisfied by both *sql.DB and *sql.Tx.
type queryable interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
}

// NewSQLiteStorage creates a new SQLite storage instance.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if err := validateString(dbPath, "dbPath"); err != nil {
		return nil, err
	}

	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A single connection also serializes transactions across goroutines.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &SQLiteStorage{
		db:     db,
		dbPath: dbPath,
	}, nil
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *SQLiteStorage) Path() string {
	return s.dbPath
}

// NewBackupManager creates a backup manager for this storage instance.
func (s *SQLiteStorage) NewBackupManager() (*BackupManager, error) {
	return NewBackupManager(s.db, s.dbPath)
}

// BeginTx starts a new database transaction.
func (s *SQLiteStorage) BeginTx(ctx context.Context) (service.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	return &sqliteTransaction{
		tx:      tx,
		storage: s,
	}, nil
}

// sqliteTransaction wraps sql.Tx to implement service.Transaction.
type sqliteTransaction struct {
	tx      *sql.Tx
	storage *SQLiteStorage
}

func (t *sqliteTransaction) Commit() error {
	return t.tx.Commit()
}

func (t *sqliteTransaction) Rollback() error {
	return t.tx.Rollback()
}

// Transaction methods delegate to the main storage with the transaction.

func (t *sqliteTransaction) CreateAccount(ctx context.Context, account *model.Account) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateAccount(account); err != nil {
		return err
	}
	return t.storage.createAccountTx(ctx, t.tx, account)
}

func (t *sqliteTransaction) GetAccount(ctx context.Context, id string) (*model.Account, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}
	return t.storage.getAccountTx(ctx, t.tx, id)
}

func (t *sqliteTransaction) ListAccounts(ctx context.Context) ([]model.Account, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return t.storage.listAccountsTx(ctx, t.tx, "")
}

func (t *sqliteTransaction) ListAccountsByOwner(ctx context.Context, ownerID string) ([]model.Account, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(ownerID, "ownerID"); err != nil {
		return nil, err
	}
	return t.storage.listAccountsTx(ctx, t.tx, ownerID)
}

func (t *sqliteTransaction) UpsertSnapshot(ctx context.Context, snapshot *model.BalanceSnapshot) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateSnapshot(snapshot); err != nil {
		return err
	}
	return t.storage.upsertSnapshotTx(ctx, t.tx, snapshot)
}

func (t *sqliteTransaction) InsertSnapshots(ctx context.Context, snapshots []model.BalanceSnapshot) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateSnapshots(snapshots); err != nil {
		return err
	}
	return t.storage.insertSnapshotsTx(ctx, t.tx, snapshots)
}

func (t *sqliteTransaction) DeleteSnapshotsBySource(ctx context.Context, accountID string, source model.SnapshotSource) (int64, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	if err := validateString(accountID, "accountID"); err != nil {
		return 0, err
	}
	return t.storage.deleteSnapshotsBySourceTx(ctx, t.tx, accountID, source)
}

func (t *sqliteTransaction) DeleteSnapshot(ctx context.Context, accountID string, on date.Date) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(accountID, "accountID"); err != nil {
		return err
	}
	return t.storage.deleteSnapshotTx(ctx, t.tx, accountID, on)
}

func (t *sqliteTransaction) GetLatestSnapshot(ctx context.Context, accountID string) (*model.BalanceSnapshot, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(accountID, "accountID"); err != nil {
		return nil, err
	}
	return t.storage.getLatestSnapshotTx(ctx, t.tx, accountID, "")
}

func (t *sqliteTransaction) GetLatestSnapshotBySource(ctx context.Context, accountID string, source model.SnapshotSource) (*model.BalanceSnapshot, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(accountID, "accountID"); err != nil {
		return nil, err
	}
	if err := validateString(string(source), "source"); err != nil {
		return nil, err
	}
	return t.storage.getLatestSnapshotTx(ctx, t.tx, accountID, source)
}

func (t *sqliteTransaction) ListSnapshots(ctx context.Context, accountID string) ([]model.BalanceSnapshot, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(accountID, "accountID"); err != nil {
		return nil, err
	}
	return t.storage.listSnapshotsTx(ctx, t.tx, accountID)
}

func (t *sqliteTransaction) SaveIncomeEntry(ctx context.Context, entry *model.IncomeEntry) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateIncomeEntry(entry); err != nil {
		return err
	}
	return t.storage.saveIncomeEntryTx(ctx, t.tx, entry)
}

func (t *sqliteTransaction) GetIncomeEntry(ctx context.Context, id string) (*model.IncomeEntry, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}
	return t.storage.getIncomeEntryTx(ctx, t.tx, id)
}

func (t *sqliteTransaction) DeleteIncomeEntry(ctx context.Context, id string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}
	return t.storage.deleteIncomeEntryTx(ctx, t.tx, id)
}

func (t *sqliteTransaction) ListIncome(ctx context.Context, accountID string) ([]model.IncomeEntry, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(accountID, "accountID"); err != nil {
		return nil, err
	}
	return t.storage.listIncomeTx(ctx, t.tx, accountID, date.Date{})
}

func (t *sqliteTransaction) ListIncomeAfter(ctx context.Context, accountID string, after date.Date) ([]model.IncomeEntry, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(accountID, "accountID"); err != nil {
		return nil, err
	}
	if after.IsZero() {
		return nil, fmt.Errorf("%w: after", ErrZeroDate)
	}
	return t.storage.listIncomeTx(ctx, t.tx, accountID, after)
}

func (t *sqliteTransaction) GetAutomationPreference(ctx context.Context, userID string) (*model.AutomationPreference, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(userID, "userID"); err != nil {
		return nil, err
	}
	return t.storage.getAutomationPreferenceTx(ctx, t.tx, userID)
}

func (t *sqliteTransaction) SetAutomationPreference(ctx context.Context, userID string, enabled bool) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(userID, "userID"); err != nil {
		return err
	}
	return t.storage.setAutomationPreferenceTx(ctx, t.tx, userID, enabled)
}

var (
	_ service.Storage     = (*SQLiteStorage)(nil)
	_ service.Transaction = (*sqliteTransaction)(nil)
)

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Veraticus/balance-snapshots/internal/common"
	"github.com/Veraticus/balance-snapshots/internal/date"
	"github.com/Veraticus/balance-snapshots/internal/model"
)

const snapshotColumns = `id, account_id, date, balance, source, note, recorded_by, created_at`

// UpsertSnapshot writes a snapshot, fully replacing any existing snapshot for
// the same account and date.
func (s *SQLiteStorage) UpsertSnapshot(ctx context.Context, snapshot *model.BalanceSnapshot) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateSnapshot(snapshot); err != nil {
		return err
	}
	return s.upsertSnapshotTx(ctx, s.db, snapshot)
}

func (s *SQLiteStorage) upsertSnapshotTx(ctx context.Context, q queryable, snapshot *model.BalanceSnapshot) error {
	// Replacement, not accumulation: the last write for a day wins.
	_, err := q.ExecContext(ctx, `
		INSERT INTO balance_snapshots (account_id, date, balance, source, note, recorded_by)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(account_id, date) DO UPDATE SET
			balance = excluded.balance,
			source = excluded.source,
			note = excluded.note,
			recorded_by = excluded.recorded_by,
			created_at = CURRENT_TIMESTAMP`,
		snapshot.AccountID,
		snapshot.Date,
		snapshot.Balance.String(),
		string(snapshot.Source),
		snapshot.Note,
		snapshot.RecordedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert snapshot for %s on %s: %w", snapshot.AccountID, snapshot.Date, err)
	}
	return nil
}

// InsertSnapshots writes a batch of snapshots atomically. Like UpsertSnapshot,
// each row replaces whatever the account already holds on that day.
func (s *SQLiteStorage) InsertSnapshots(ctx context.Context, snapshots []model.BalanceSnapshot) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateSnapshots(snapshots); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := s.insertSnapshotsTx(ctx, tx, snapshots); err != nil {
		return err
	}

	return tx.Commit()
}

func (s *SQLiteStorage) insertSnapshotsTx(ctx context.Context, q queryable, snapshots []model.BalanceSnapshot) error {
	stmt, err := q.PrepareContext(ctx, `
		INSERT INTO balance_snapshots (account_id, date, balance, source, note, recorded_by)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(account_id, date) DO UPDATE SET
			balance = excluded.balance,
			source = excluded.source,
			note = excluded.note,
			recorded_by = excluded.recorded_by,
			created_at = CURRENT_TIMESTAMP`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, snap := range snapshots {
		_, err := stmt.ExecContext(ctx,
			snap.AccountID,
			snap.Date,
			snap.Balance.String(),
			string(snap.Source),
			snap.Note,
			snap.RecordedBy,
		)
		if err != nil {
			return fmt.Errorf("failed to insert snapshot for %s on %s: %w", snap.AccountID, snap.Date, err)
		}
	}

	return nil
}

// DeleteSnapshotsBySource removes every snapshot of an account with the given source.
func (s *SQLiteStorage) DeleteSnapshotsBySource(ctx context.Context, accountID string, source model.SnapshotSource) (int64, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	if err := validateString(accountID, "accountID"); err != nil {
		return 0, err
	}
	return s.deleteSnapshotsBySourceTx(ctx, s.db, accountID, source)
}

func (s *SQLiteStorage) deleteSnapshotsBySourceTx(ctx context.Context, q queryable, accountID string, source model.SnapshotSource) (int64, error) {
	result, err := q.ExecContext(ctx,
		`DELETE FROM balance_snapshots WHERE account_id = ? AND source = ?`,
		accountID, string(source))
	if err != nil {
		return 0, fmt.Errorf("failed to delete %s snapshots: %w", source, err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted snapshots: %w", err)
	}
	return deleted, nil
}

// DeleteSnapshot removes the snapshot of an account on a given day.
func (s *SQLiteStorage) DeleteSnapshot(ctx context.Context, accountID string, on date.Date) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(accountID, "accountID"); err != nil {
		return err
	}
	return s.deleteSnapshotTx(ctx, s.db, accountID, on)
}

func (s *SQLiteStorage) deleteSnapshotTx(ctx context.Context, q queryable, accountID string, on date.Date) error {
	if on.IsZero() {
		return fmt.Errorf("%w: date", ErrZeroDate)
	}

	result, err := q.ExecContext(ctx,
		`DELETE FROM balance_snapshots WHERE account_id = ? AND date = ?`,
		accountID, on)
	if err != nil {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to count deleted snapshots: %w", err)
	}
	if deleted == 0 {
		return fmt.Errorf("snapshot %s on %s: %w", accountID, on, common.ErrNotFound)
	}
	return nil
}

// GetLatestSnapshot returns the most recent snapshot of any source.
func (s *SQLiteStorage) GetLatestSnapshot(ctx context.Context, accountID string) (*model.BalanceSnapshot, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(accountID, "accountID"); err != nil {
		return nil, err
	}
	return s.getLatestSnapshotTx(ctx, s.db, accountID, "")
}

// GetLatestSnapshotBySource returns the most recent snapshot with the given source.
func (s *SQLiteStorage) GetLatestSnapshotBySource(ctx context.Context, accountID string, source model.SnapshotSource) (*model.BalanceSnapshot, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(accountID, "accountID"); err != nil {
		return nil, err
	}
	if err := validateString(string(source), "source"); err != nil {
		return nil, err
	}
	return s.getLatestSnapshotTx(ctx, s.db, accountID, source)
}

// getLatestSnapshotTx walks the (account_id, date) index backwards. Dates are
// unique per account so there is never a tie to break.
func (s *SQLiteStorage) getLatestSnapshotTx(ctx context.Context, q queryable, accountID string, source model.SnapshotSource) (*model.BalanceSnapshot, error) {
	query := `SELECT ` + snapshotColumns + ` FROM balance_snapshots WHERE account_id = ?`
	args := []any{accountID}

	if source != "" {
		query += " AND source = ?"
		args = append(args, string(source))
	}
	query += " ORDER BY date DESC LIMIT 1"

	snap, err := scanSnapshot(q.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		if source != "" {
			return nil, fmt.Errorf("no %s snapshot for account %s: %w", source, accountID, common.ErrNotFound)
		}
		return nil, fmt.Errorf("no snapshot for account %s: %w", accountID, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query latest snapshot: %w", err)
	}
	return snap, nil
}

// ListSnapshots returns an account's snapshots in ascending date order.
func (s *SQLiteStorage) ListSnapshots(ctx context.Context, accountID string) ([]model.BalanceSnapshot, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(accountID, "accountID"); err != nil {
		return nil, err
	}
	return s.listSnapshotsTx(ctx, s.db, accountID)
}

func (s *SQLiteStorage) listSnapshotsTx(ctx context.Context, q queryable, accountID string) ([]model.BalanceSnapshot, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT `+snapshotColumns+` FROM balance_snapshots WHERE account_id = ? ORDER BY date ASC`,
		accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var snapshots []model.BalanceSnapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		snapshots = append(snapshots, *snap)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating snapshots: %w", err)
	}
	return snapshots, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(row scanner) (*model.BalanceSnapshot, error) {
	var snap model.BalanceSnapshot
	var source string
	var note, recordedBy sql.NullString

	err := row.Scan(
		&snap.ID,
		&snap.AccountID,
		&snap.Date,
		&snap.Balance,
		&source,
		&note,
		&recordedBy,
		&snap.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	snap.Source = model.SnapshotSource(source)
	snap.Note = note.String
	snap.RecordedBy = recordedBy.String
	return &snap, nil
}

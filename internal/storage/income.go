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

const incomeColumns = `id, account_id, amount, received_date, description, created_at`

// SaveIncomeEntry inserts an income entry or replaces the entry with the same id.
func (s *SQLiteStorage) SaveIncomeEntry(ctx context.Context, entry *model.IncomeEntry) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateIncomeEntry(entry); err != nil {
		return err
	}
	return s.saveIncomeEntryTx(ctx, s.db, entry)
}

func (s *SQLiteStorage) saveIncomeEntryTx(ctx context.Context, q queryable, entry *model.IncomeEntry) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO income_entries (id, account_id, amount, received_date, description)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			account_id = excluded.account_id,
			amount = excluded.amount,
			received_date = excluded.received_date,
			description = excluded.description`,
		entry.ID,
		entry.AccountID,
		entry.Amount.String(),
		entry.ReceivedDate,
		entry.Description,
	)
	if err != nil {
		return fmt.Errorf("failed to save income entry %s: %w", entry.ID, err)
	}
	return nil
}

// GetIncomeEntry returns an income entry by id.
func (s *SQLiteStorage) GetIncomeEntry(ctx context.Context, id string) (*model.IncomeEntry, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}
	return s.getIncomeEntryTx(ctx, s.db, id)
}

func (s *SQLiteStorage) getIncomeEntryTx(ctx context.Context, q queryable, id string) (*model.IncomeEntry, error) {
	entry, err := scanIncome(q.QueryRowContext(ctx,
		`SELECT `+incomeColumns+` FROM income_entries WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("income entry %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query income entry: %w", err)
	}
	return entry, nil
}

// DeleteIncomeEntry removes an income entry.
func (s *SQLiteStorage) DeleteIncomeEntry(ctx context.Context, id string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}
	return s.deleteIncomeEntryTx(ctx, s.db, id)
}

func (s *SQLiteStorage) deleteIncomeEntryTx(ctx context.Context, q queryable, id string) error {
	result, err := q.ExecContext(ctx, `DELETE FROM income_entries WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete income entry: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to count deleted income entries: %w", err)
	}
	if deleted == 0 {
		return fmt.Errorf("income entry %s: %w", id, common.ErrNotFound)
	}
	return nil
}

// ListIncome returns every income entry of an account, oldest first.
func (s *SQLiteStorage) ListIncome(ctx context.Context, accountID string) ([]model.IncomeEntry, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(accountID, "accountID"); err != nil {
		return nil, err
	}
	return s.listIncomeTx(ctx, s.db, accountID, date.Date{})
}

// ListIncomeAfter returns income received strictly after the given day, oldest first.
func (s *SQLiteStorage) ListIncomeAfter(ctx context.Context, accountID string, after date.Date) ([]model.IncomeEntry, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(accountID, "accountID"); err != nil {
		return nil, err
	}
	if after.IsZero() {
		return nil, fmt.Errorf("%w: after", ErrZeroDate)
	}
	return s.listIncomeTx(ctx, s.db, accountID, after)
}

// listIncomeTx lists income for an account; a zero after date means no lower bound.
func (s *SQLiteStorage) listIncomeTx(ctx context.Context, q queryable, accountID string, after date.Date) ([]model.IncomeEntry, error) {
	query := `SELECT ` + incomeColumns + ` FROM income_entries WHERE account_id = ?`
	args := []any{accountID}

	if !after.IsZero() {
		query += " AND received_date > ?"
		args = append(args, after)
	}
	query += " ORDER BY received_date ASC, created_at ASC, id ASC"

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query income entries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []model.IncomeEntry
	for rows.Next() {
		entry, err := scanIncome(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan income entry: %w", err)
		}
		entries = append(entries, *entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating income entries: %w", err)
	}
	return entries, nil
}

func scanIncome(row scanner) (*model.IncomeEntry, error) {
	var entry model.IncomeEntry
	var description sql.NullString

	err := row.Scan(
		&entry.ID,
		&entry.AccountID,
		&entry.Amount,
		&entry.ReceivedDate,
		&description,
		&entry.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	entry.Description = description.String
	return &entry, nil
}

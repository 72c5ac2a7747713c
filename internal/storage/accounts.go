package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Veraticus/balance-snapshots/internal/common"
	"github.com/Veraticus/balance-snapshots/internal/model"
)

// CreateAccount inserts a new account.
func (s *SQLiteStorage) CreateAccount(ctx context.Context, account *model.Account) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateAccount(account); err != nil {
		return err
	}
	return s.createAccountTx(ctx, s.db, account)
}

func (s *SQLiteStorage) createAccountTx(ctx context.Context, q queryable, account *model.Account) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO accounts (id, owner_id, name, is_visible)
		VALUES (?, ?, ?, ?)`,
		account.ID, account.OwnerID, account.Name, account.Visible,
	)
	if err != nil {
		return fmt.Errorf("failed to create account %s: %w", account.ID, err)
	}

	slog.Debug("created account", "account_id", account.ID, "owner_id", account.OwnerID)
	return nil
}

// GetAccount returns an account by id.
func (s *SQLiteStorage) GetAccount(ctx context.Context, id string) (*model.Account, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}
	return s.getAccountTx(ctx, s.db, id)
}

func (s *SQLiteStorage) getAccountTx(ctx context.Context, q queryable, id string) (*model.Account, error) {
	var account model.Account
	err := q.QueryRowContext(ctx, `
		SELECT id, owner_id, name, is_visible, created_at
		FROM accounts
		WHERE id = ?`, id,
	).Scan(&account.ID, &account.OwnerID, &account.Name, &account.Visible, &account.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("account %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query account: %w", err)
	}

	return &account, nil
}

// ListAccounts returns every account ordered by name.
func (s *SQLiteStorage) ListAccounts(ctx context.Context) ([]model.Account, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.listAccountsTx(ctx, s.db, "")
}

// ListAccountsByOwner returns the accounts owned by a user.
func (s *SQLiteStorage) ListAccountsByOwner(ctx context.Context, ownerID string) ([]model.Account, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(ownerID, "ownerID"); err != nil {
		return nil, err
	}
	return s.listAccountsTx(ctx, s.db, ownerID)
}

func (s *SQLiteStorage) listAccountsTx(ctx context.Context, q queryable, ownerID string) ([]model.Account, error) {
	query := `
		SELECT id, owner_id, name, is_visible, created_at
		FROM accounts`
	args := []any{}

	if ownerID != "" {
		query += " WHERE owner_id = ?"
		args = append(args, ownerID)
	}
	query += " ORDER BY name, id"

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var accounts []model.Account
	for rows.Next() {
		var account model.Account
		if err := rows.Scan(&account.ID, &account.OwnerID, &account.Name, &account.Visible, &account.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, account)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating accounts: %w", err)
	}

	return accounts, nil
}

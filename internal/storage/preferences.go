package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Veraticus/balance-snapshots/internal/model"
)

// GetAutomationPreference returns a user's automation preference. Users who
// never set one get a disabled preference.
func (s *SQLiteStorage) GetAutomationPreference(ctx context.Context, userID string) (*model.AutomationPreference, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(userID, "userID"); err != nil {
		return nil, err
	}
	return s.getAutomationPreferenceTx(ctx, s.db, userID)
}

func (s *SQLiteStorage) getAutomationPreferenceTx(ctx context.Context, q queryable, userID string) (*model.AutomationPreference, error) {
	pref := model.AutomationPreference{UserID: userID}
	err := q.QueryRowContext(ctx, `
		SELECT enabled, updated_at
		FROM automation_preferences
		WHERE user_id = ?`, userID,
	).Scan(&pref.Enabled, &pref.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return &pref, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query automation preference: %w", err)
	}
	return &pref, nil
}

// SetAutomationPreference stores a user's automation preference.
func (s *SQLiteStorage) SetAutomationPreference(ctx context.Context, userID string, enabled bool) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(userID, "userID"); err != nil {
		return err
	}
	return s.setAutomationPreferenceTx(ctx, s.db, userID, enabled)
}

func (s *SQLiteStorage) setAutomationPreferenceTx(ctx context.Context, q queryable, userID string, enabled bool) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO automation_preferences (user_id, enabled)
		VALUES (?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			enabled = excluded.enabled,
			updated_at = CURRENT_TIMESTAMP`,
		userID, enabled,
	)
	if err != nil {
		return fmt.Errorf("failed to save automation preference: %w", err)
	}
	return nil
}

// Package storage provides the data persistence layer for balance snapshots.
package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/Veraticus/balance-snapshots/internal/common"
	"github.com/Veraticus/balance-snapshots/internal/model"
)

// Validation errors. All of them match common.ErrValidation.
var (
	ErrNilContext       = fmt.Errorf("%w: context cannot be nil", common.ErrValidation)
	ErrEmptyString      = fmt.Errorf("%w: string parameter cannot be empty", common.ErrValidation)
	ErrNilParameter     = fmt.Errorf("%w: parameter cannot be nil", common.ErrValidation)
	ErrEmptySlice       = fmt.Errorf("%w: slice cannot be empty", common.ErrValidation)
	ErrZeroDate         = fmt.Errorf("%w: date cannot be zero", common.ErrValidation)
	ErrInvalidAccount   = fmt.Errorf("%w: invalid account", common.ErrValidation)
	ErrInvalidSnapshot  = fmt.Errorf("%w: invalid balance snapshot", common.ErrValidation)
	ErrInvalidIncome    = fmt.Errorf("%w: invalid income entry", common.ErrValidation)
	ErrDuplicateSnapDay = fmt.Errorf("%w: duplicate snapshot date in batch", common.ErrValidation)
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateAccount validates an account before insert.
func validateAccount(account *model.Account) error {
	if account == nil {
		return fmt.Errorf("%w: account", ErrNilParameter)
	}
	if ref, ok := model.AccountRef(account.ID); !ok || ref != account.ID {
		return fmt.Errorf("%w: id %q is not a canonical account id", ErrInvalidAccount, account.ID)
	}
	if strings.TrimSpace(account.OwnerID) == "" {
		return fmt.Errorf("%w: missing owner", ErrInvalidAccount)
	}
	if strings.TrimSpace(account.Name) == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidAccount)
	}
	return nil
}

// validateSnapshot validates a single snapshot.
func validateSnapshot(snapshot *model.BalanceSnapshot) error {
	if snapshot == nil {
		return fmt.Errorf("%w: snapshot", ErrNilParameter)
	}
	if strings.TrimSpace(snapshot.AccountID) == "" {
		return fmt.Errorf("%w: missing account ID", ErrInvalidSnapshot)
	}
	if snapshot.Date.IsZero() {
		return fmt.Errorf("%w: missing date", ErrInvalidSnapshot)
	}
	if strings.TrimSpace(string(snapshot.Source)) == "" {
		return fmt.Errorf("%w: missing source", ErrInvalidSnapshot)
	}
	return nil
}

// validateSnapshots validates a batch; a batch may not contain the same
// account and date twice.
func validateSnapshots(snapshots []model.BalanceSnapshot) error {
	if snapshots == nil {
		return fmt.Errorf("%w: snapshots", ErrNilParameter)
	}
	if len(snapshots) == 0 {
		return fmt.Errorf("%w: snapshots", ErrEmptySlice)
	}

	seen := make(map[string]bool, len(snapshots))
	for i := range snapshots {
		if err := validateSnapshot(&snapshots[i]); err != nil {
			return fmt.Errorf("snapshot at index %d: %w", i, err)
		}
		key := snapshots[i].AccountID + "@" + snapshots[i].Date.String()
		if seen[key] {
			return fmt.Errorf("%w: %s", ErrDuplicateSnapDay, key)
		}
		seen[key] = true
	}
	return nil
}

// validateIncomeEntry validates an income entry.
func validateIncomeEntry(entry *model.IncomeEntry) error {
	if entry == nil {
		return fmt.Errorf("%w: income entry", ErrNilParameter)
	}
	if strings.TrimSpace(entry.ID) == "" {
		return fmt.Errorf("%w: missing ID", ErrInvalidIncome)
	}
	if strings.TrimSpace(entry.AccountID) == "" {
		return fmt.Errorf("%w: missing account ID", ErrInvalidIncome)
	}
	if entry.ReceivedDate.IsZero() {
		return fmt.Errorf("%w: missing received date", ErrInvalidIncome)
	}
	return nil
}

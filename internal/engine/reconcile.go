package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Veraticus/balance-snapshots/internal/common"
	"github.com/Veraticus/balance-snapshots/internal/date"
	"github.com/Veraticus/balance-snapshots/internal/model"
	"github.com/Veraticus/balance-snapshots/internal/service"
)

// ReconcileResult summarizes a rebuild of an account's derived snapshots.
type ReconcileResult struct {
	CheckpointDate date.Date
	AccountID      string
	Removed        int64
	Derived        int
	HasCheckpoint  bool
}

// Reconcile discards every income-derived snapshot of the account and
// rebuilds them from the latest manual snapshot and the income received
// after it. The rebuild is atomic: on failure the previous derived set is
// left untouched. An account without a manual snapshot ends up with no
// derived snapshots.
func (e *Engine) Reconcile(ctx context.Context, accountID, actorUserID string) error {
	_, err := e.ReconcileWithResult(ctx, accountID, actorUserID)
	return err
}

// ReconcileWithResult is Reconcile returning what the rebuild did.
func (e *Engine) ReconcileWithResult(ctx context.Context, accountID, actorUserID string) (*ReconcileResult, error) {
	if err := requireID(accountID, "account id"); err != nil {
		return nil, err
	}
	if err := requireID(actorUserID, "actor user id"); err != nil {
		return nil, err
	}

	unlock := e.locks.lock(accountID)
	defer unlock()

	return e.reconcileLocked(ctx, accountID, actorUserID)
}

// reconcileLocked expects the caller to hold the account lock.
func (e *Engine) reconcileLocked(ctx context.Context, accountID, actorUserID string) (*ReconcileResult, error) {
	var result *ReconcileResult
	err := e.inTx(ctx, "reconcile", func(tx service.Transaction) error {
		var err error
		result, err = rebuild(ctx, tx, accountID, actorUserID)
		return err
	})
	if err != nil {
		return nil, err
	}

	if result.HasCheckpoint {
		slog.Info("Reconciled account",
			"account_id", accountID,
			"checkpoint", result.CheckpointDate.String(),
			"removed", result.Removed,
			"derived", result.Derived)
	} else {
		slog.Debug("No manual snapshot, derived snapshots cleared",
			"account_id", accountID,
			"removed", result.Removed)
	}

	return result, nil
}

func rebuild(ctx context.Context, store service.Store, accountID, actorUserID string) (*ReconcileResult, error) {
	if _, err := store.GetAccount(ctx, accountID); err != nil {
		return nil, storeError("load account", err)
	}

	result := &ReconcileResult{AccountID: accountID}

	removed, err := store.DeleteSnapshotsBySource(ctx, accountID, model.SourceIncome)
	if err != nil {
		return nil, storeError("delete derived snapshots", err)
	}
	result.Removed = removed
	slog.Debug("Removed derived snapshots", "account_id", accountID, "count", removed)

	checkpoint, err := store.GetLatestSnapshotBySource(ctx, accountID, model.SourceManual)
	if errors.Is(err, common.ErrNotFound) {
		return result, nil
	}
	if err != nil {
		return nil, storeError("load checkpoint", err)
	}
	result.HasCheckpoint = true
	result.CheckpointDate = checkpoint.Date

	income, err := store.ListIncomeAfter(ctx, accountID, checkpoint.Date)
	if err != nil {
		return nil, storeError("load income", err)
	}
	slog.Debug("Replaying income",
		"account_id", accountID,
		"checkpoint", checkpoint.Date.String(),
		"entries", len(income))

	derived := Replay(*checkpoint, income, actorUserID)
	if len(derived) == 0 {
		return result, nil
	}

	if err := store.InsertSnapshots(ctx, derived); err != nil {
		return nil, storeError("insert derived snapshots", err)
	}
	result.Derived = len(derived)

	return result, nil
}

// OnIncomeChanged reconciles the accounts touched by an income edit whose
// owners have automation enabled. An edit that moves income between accounts
// passes both ids.
func (e *Engine) OnIncomeChanged(ctx context.Context, actorUserID string, accountIDs ...string) error {
	return e.ReconcileIfAutomated(ctx, actorUserID, accountIDs...)
}

// ReconcileIfAutomated reconciles each distinct account whose owner has
// automation enabled and skips the rest.
func (e *Engine) ReconcileIfAutomated(ctx context.Context, actorUserID string, accountIDs ...string) error {
	seen := make(map[string]bool, len(accountIDs))
	for _, accountID := range accountIDs {
		if accountID == "" || seen[accountID] {
			continue
		}
		seen[accountID] = true

		enabled, err := automationEnabled(ctx, e.storage, accountID)
		if err != nil {
			return err
		}
		if !enabled {
			slog.Debug("Automation disabled, skipping reconcile", "account_id", accountID)
			continue
		}

		if err := e.Reconcile(ctx, accountID, actorUserID); err != nil {
			return fmt.Errorf("failed to reconcile account %s: %w", accountID, err)
		}
	}
	return nil
}

// ReconcileOwned reconciles every account owned by userID. progress, when
// set, is called after each account.
func (e *Engine) ReconcileOwned(ctx context.Context, userID string, progress func(done, total int)) error {
	if err := requireID(userID, "user id"); err != nil {
		return err
	}

	accounts, err := e.storage.ListAccountsByOwner(ctx, userID)
	if err != nil {
		return storeError("list accounts", err)
	}

	for i, account := range accounts {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := e.Reconcile(ctx, account.ID, userID); err != nil {
			return fmt.Errorf("failed to reconcile account %s: %w", account.ID, err)
		}
		if progress != nil {
			progress(i+1, len(accounts))
		}
	}
	return nil
}

func automationEnabled(ctx context.Context, store service.Store, accountID string) (bool, error) {
	account, err := store.GetAccount(ctx, accountID)
	if err != nil {
		return false, storeError("load account", err)
	}
	pref, err := store.GetAutomationPreference(ctx, account.OwnerID)
	if err != nil {
		return false, storeError("load automation preference", err)
	}
	return pref.Enabled, nil
}

package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/Veraticus/balance-snapshots/internal/common"
	"github.com/Veraticus/balance-snapshots/internal/model"
	"github.com/Veraticus/balance-snapshots/internal/service"
	"github.com/shopspring/decimal"
)

// ComputeDeltas returns the balance adjustment per account for a charge edit.
// The old charge is refunded to its account and the new charge is taken from
// its account; amounts are used as absolute values. Labels that are not
// account ids are ignored, and ids are keyed by their canonical form. A deletion is newPaidBy "" with a zero amount.
func ComputeDeltas(oldPaidBy, newPaidBy string, oldAmount, newAmount decimal.Decimal) map[string]decimal.Decimal {
	deltas := make(map[string]decimal.Decimal)

	if id, ok := model.AccountRef(oldPaidBy); ok {
		deltas[id] = deltas[id].Add(oldAmount.Abs())
	}
	if id, ok := model.AccountRef(newPaidBy); ok {
		deltas[id] = deltas[id].Sub(newAmount.Abs())
	}

	return deltas
}

// ApplyDelta records a manual snapshot dated today holding the account's
// latest balance plus delta. A zero delta does nothing. When the actor owns
// the account and has automation enabled, the account is reconciled before
// the lock is released.
func (e *Engine) ApplyDelta(ctx context.Context, accountID, actorUserID string, delta decimal.Decimal, note string) error {
	if delta.IsZero() {
		return nil
	}
	if err := requireID(accountID, "account id"); err != nil {
		return err
	}
	if err := requireID(actorUserID, "actor user id"); err != nil {
		return err
	}

	unlock := e.locks.lock(accountID)
	defer unlock()

	var reconcile bool
	err := e.inTx(ctx, "apply delta", func(tx service.Transaction) error {
		account, err := tx.GetAccount(ctx, accountID)
		if err != nil {
			return storeError("load account", err)
		}

		latest, err := tx.GetLatestSnapshot(ctx, accountID)
		if err != nil {
			return storeError("load latest snapshot", err)
		}

		adjusted := model.BalanceSnapshot{
			AccountID:  accountID,
			Date:       e.today(),
			Balance:    latest.Balance.Add(delta),
			Source:     model.SourceManual,
			Note:       note,
			RecordedBy: actorUserID,
		}
		if err := tx.UpsertSnapshot(ctx, &adjusted); err != nil {
			return storeError("write adjustment", err)
		}

		slog.Debug("Applied balance delta",
			"account_id", accountID,
			"delta", delta.String(),
			"from", latest.Balance.String(),
			"to", adjusted.Balance.String(),
			"date", adjusted.Date.String())

		if account.OwnerID != actorUserID {
			return nil
		}
		pref, err := tx.GetAutomationPreference(ctx, account.OwnerID)
		if err != nil {
			return storeError("load automation preference", err)
		}
		reconcile = pref.Enabled
		return nil
	})
	if err != nil {
		return err
	}

	if !reconcile {
		return nil
	}
	if _, err := e.reconcileLocked(ctx, accountID, actorUserID); err != nil {
		return fmt.Errorf("failed to reconcile after delta: %w", err)
	}
	return nil
}

// ApplyChargeChange computes the deltas for a charge edit and applies them
// in account id order. It stops at the first failure; deltas applied before
// it stay applied.
func (e *Engine) ApplyChargeChange(ctx context.Context, actorUserID string, change model.ChargeChange, note string) (map[string]decimal.Decimal, error) {
	deltas := ComputeDeltas(change.OldPaidBy, change.NewPaidBy, change.OldAmount, change.NewAmount)

	accountIDs := make([]string, 0, len(deltas))
	for accountID := range deltas {
		accountIDs = append(accountIDs, accountID)
	}
	sort.Strings(accountIDs)

	for i, accountID := range accountIDs {
		if err := e.ApplyDelta(ctx, accountID, actorUserID, deltas[accountID], note); err != nil {
			if i > 0 {
				common.LogError(err, "Charge change partially applied", common.Fields{
					"applied": accountIDs[:i],
					"failed":  accountID,
				})
			}
			return deltas, fmt.Errorf("failed to apply delta to account %s: %w", accountID, err)
		}
	}

	return deltas, nil
}

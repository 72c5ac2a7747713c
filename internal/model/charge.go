package model

import (
	"fmt"

	"github.com/Veraticus/balance-snapshots/internal/common"
	"github.com/shopspring/decimal"
)

// ChargeChange describes how a transaction's charge moved between accounts.
// A created transaction has an empty OldPaidBy and zero OldAmount; a deleted
// one has an empty NewPaidBy and zero NewAmount.
type ChargeChange struct {
	OldAmount decimal.Decimal
	NewAmount decimal.Decimal
	OldPaidBy string
	NewPaidBy string
}

// DeletedCharge returns the change that reverses a transaction entirely.
func DeletedCharge(paidBy string, amount decimal.Decimal) ChargeChange {
	return ChargeChange{OldPaidBy: paidBy, OldAmount: amount}
}

// CreatedCharge returns the change for a newly recorded transaction.
func CreatedCharge(paidBy string, amount decimal.Decimal) ChargeChange {
	return ChargeChange{NewPaidBy: paidBy, NewAmount: amount}
}

// ValidateAmount rejects non-positive transaction amounts. It runs before a
// charge reaches the balance engine.
func ValidateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("%w: amount must be positive, got %s", common.ErrValidation, amount)
	}
	return nil
}

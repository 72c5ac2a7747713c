package model

import (
	"time"

	"github.com/Veraticus/balance-snapshots/internal/date"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// IncomeEntry is a dated amount credited to one account.
type IncomeEntry struct {
	CreatedAt    time.Time
	ReceivedDate date.Date
	Amount       decimal.Decimal
	ID           string
	AccountID    string
	Description  string
}

// NewIncomeID returns a fresh income entry identifier.
func NewIncomeID() string {
	return uuid.NewString()
}

package model

import (
	"time"

	"github.com/Veraticus/balance-snapshots/internal/date"
	"github.com/shopspring/decimal"
)

// SnapshotSource tags where a balance snapshot came from.
type SnapshotSource string

const (
	// SourceManual marks a reading entered by a user or by a delta adjustment.
	// Manual snapshots are treated as ground truth.
	SourceManual SnapshotSource = "manual"
	// SourceIncome marks a snapshot derived by replaying income after the
	// latest manual snapshot. These are rebuilt from scratch, never edited.
	SourceIncome SnapshotSource = "income"
)

// IncomeSnapshotNote is written on every derived income snapshot.
const IncomeSnapshotNote = "Auto-calculated from income received after the last manual balance"

// BalanceSnapshot is the balance of an account at the end of a day.
// There is at most one snapshot per account and date.
type BalanceSnapshot struct {
	CreatedAt  time.Time
	Date       date.Date
	Balance    decimal.Decimal
	AccountID  string
	Source     SnapshotSource
	Note       string
	RecordedBy string
	ID         int64
}

// IsManual reports whether the snapshot is an authoritative reading.
func (s BalanceSnapshot) IsManual() bool {
	return s.Source == SourceManual
}

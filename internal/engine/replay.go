package engine

import (
	"sort"

	"github.com/Veraticus/balance-snapshots/internal/date"
	"github.com/Veraticus/balance-snapshots/internal/model"
	"github.com/shopspring/decimal"
)

// Replay layers income on top of a manual checkpoint. Income on or before the
// checkpoint date is ignored; same-day income is summed into one snapshot.
// The result is ordered by date and carries a running balance.
func Replay(checkpoint model.BalanceSnapshot, income []model.IncomeEntry, actorUserID string) []model.BalanceSnapshot {
	totals := make(map[date.Date]decimal.Decimal)
	days := make([]date.Date, 0, len(income))

	for _, entry := range income {
		day := entry.ReceivedDate
		if !day.After(checkpoint.Date) {
			continue
		}
		if sum, ok := totals[day]; ok {
			totals[day] = sum.Add(entry.Amount)
			continue
		}
		totals[day] = entry.Amount
		days = append(days, day)
	}

	sort.Slice(days, func(i, j int) bool {
		return days[i].Before(days[j])
	})

	derived := make([]model.BalanceSnapshot, 0, len(days))
	running := checkpoint.Balance
	for _, day := range days {
		running = running.Add(totals[day])
		derived = append(derived, model.BalanceSnapshot{
			AccountID:  checkpoint.AccountID,
			Date:       day,
			Balance:    running,
			Source:     model.SourceIncome,
			Note:       model.IncomeSnapshotNote,
			RecordedBy: actorUserID,
		})
	}

	return derived
}

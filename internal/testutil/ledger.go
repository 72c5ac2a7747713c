package testutil

import (
	"context"
	"fmt"
	"testing"

	"github.com/Veraticus/balance-snapshots/internal/date"
	"github.com/Veraticus/balance-snapshots/internal/model"
	"github.com/Veraticus/balance-snapshots/internal/service"
	"github.com/shopspring/decimal"
)

// Ledger is a fluent builder for seeding accounts, manual readings, and
// income. Accounts are referred to by a test-local name until Build
// assigns real ids.
//
// Example:
//
//	ids := testutil.NewLedger(t).
//		WithAccount("checking", testutil.DefaultOwner).
//		WithManual("checking", "2024-01-10", "1000").
//		WithIncome("checking", "2024-01-12", "50").
//		MustBuild(db)
type Ledger struct {
	t        *testing.T
	accounts []ledgerAccount
	manual   []ledgerEntry
	income   []ledgerEntry
}

type ledgerAccount struct {
	name  string
	owner string
}

type ledgerEntry struct {
	account string
	on      string
	amount  string
}

// NewLedger starts an empty ledger.
func NewLedger(t *testing.T) *Ledger {
	t.Helper()
	return &Ledger{t: t}
}

// WithAccount adds an account owned by owner.
func (l *Ledger) WithAccount(name, owner string) *Ledger {
	l.accounts = append(l.accounts, ledgerAccount{name: name, owner: owner})
	return l
}

// WithManual adds a manual reading of balance on the given day.
func (l *Ledger) WithManual(account, on, balance string) *Ledger {
	l.manual = append(l.manual, ledgerEntry{account: account, on: on, amount: balance})
	return l
}

// WithIncome adds an income entry received on the given day.
func (l *Ledger) WithIncome(account, on, amount string) *Ledger {
	l.income = append(l.income, ledgerEntry{account: account, on: on, amount: amount})
	return l
}

// Build writes the ledger to store in a single transaction and returns the
// account ids keyed by name.
func (l *Ledger) Build(ctx context.Context, store service.Storage) (map[string]string, error) {
	tx, err := store.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	ids, err := l.write(ctx, tx)
	if err != nil {
		_ = tx.Rollback()
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit ledger: %w", err)
	}
	return ids, nil
}

// MustBuild is Build that fails the test on error.
func (l *Ledger) MustBuild(store service.Storage) map[string]string {
	l.t.Helper()
	ids, err := l.Build(context.Background(), store)
	if err != nil {
		l.t.Fatalf("failed to build ledger: %v", err)
	}
	return ids
}

func (l *Ledger) write(ctx context.Context, tx service.Transaction) (map[string]string, error) {
	ids := make(map[string]string, len(l.accounts))
	for _, a := range l.accounts {
		if _, dup := ids[a.name]; dup {
			return nil, fmt.Errorf("account %q declared twice", a.name)
		}
		account := &model.Account{
			ID:      model.NewAccountID(),
			OwnerID: a.owner,
			Name:    a.name,
			Visible: true,
		}
		if err := tx.CreateAccount(ctx, account); err != nil {
			return nil, fmt.Errorf("failed to create account %q: %w", a.name, err)
		}
		ids[a.name] = account.ID
	}

	resolve := func(e ledgerEntry) (string, date.Date, decimal.Decimal, error) {
		id, ok := ids[e.account]
		if !ok {
			return "", date.Date{}, decimal.Zero, fmt.Errorf("unknown account %q", e.account)
		}
		on, err := date.Parse(e.on)
		if err != nil {
			return "", date.Date{}, decimal.Zero, err
		}
		amount, err := decimal.NewFromString(e.amount)
		if err != nil {
			return "", date.Date{}, decimal.Zero, fmt.Errorf("invalid amount %q: %w", e.amount, err)
		}
		return id, on, amount, nil
	}

	for _, e := range l.manual {
		id, on, balance, err := resolve(e)
		if err != nil {
			return nil, err
		}
		snap := &model.BalanceSnapshot{
			AccountID:  id,
			Date:       on,
			Balance:    balance,
			Source:     model.SourceManual,
			RecordedBy: DefaultOwner,
		}
		if err := tx.UpsertSnapshot(ctx, snap); err != nil {
			return nil, fmt.Errorf("failed to record reading for %q: %w", e.account, err)
		}
	}

	for _, e := range l.income {
		id, on, amount, err := resolve(e)
		if err != nil {
			return nil, err
		}
		entry := &model.IncomeEntry{
			ID:           model.NewIncomeID(),
			AccountID:    id,
			Amount:       amount,
			ReceivedDate: on,
		}
		if err := tx.SaveIncomeEntry(ctx, entry); err != nil {
			return nil, fmt.Errorf("failed to save income for %q: %w", e.account, err)
		}
	}

	return ids, nil
}

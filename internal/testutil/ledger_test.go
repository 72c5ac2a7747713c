package testutil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedgerBuild(t *testing.T) {
	db := SetupTestDB(t)

	ids := NewLedger(t).
		WithAccount("checking", DefaultOwner).
		WithAccount("savings", "someone-else").
		WithManual("checking", "2024-01-10", "1000").
		WithIncome("checking", "2024-01-12", "50").
		WithIncome("savings", "2024-01-13", "5").
		MustBuild(db)

	require.Len(t, ids, 2)
	assert.Equal(t, []string{"2024-01-10 manual 1000.00"}, History(t, db, ids["checking"]))

	income, err := db.ListIncome(context.Background(), ids["savings"])
	require.NoError(t, err)
	require.Len(t, income, 1)
	assert.Equal(t, "5", income[0].Amount.String())

	account, err := db.GetAccount(context.Background(), ids["savings"])
	require.NoError(t, err)
	assert.Equal(t, "someone-else", account.OwnerID)
}

func TestLedgerBuildRollsBack(t *testing.T) {
	db := SetupTestDB(t)

	_, err := NewLedger(t).
		WithAccount("checking", DefaultOwner).
		WithIncome("missing", "2024-01-12", "50").
		Build(context.Background(), db)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown account "missing"`)

	accounts, err := db.ListAccounts(context.Background())
	require.NoError(t, err)
	assert.Empty(t, accounts)
}

func TestFixtureHelpers(t *testing.T) {
	db := SetupTestDB(t)

	id := AddAccount(t, db, DefaultOwner)
	AddManual(t, db, id, "2024-01-10", "10")
	AddManual(t, db, id, "2024-01-10", "12.5")
	entry := AddIncome(t, db, id, "2024-01-11", "1")

	assert.Equal(t, []string{"2024-01-10 manual 12.50"}, History(t, db, id))

	stored, err := db.GetIncomeEntry(context.Background(), entry.ID)
	require.NoError(t, err)
	assert.Equal(t, id, stored.AccountID)
}

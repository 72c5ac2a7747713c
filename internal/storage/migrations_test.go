package storage

import (
	"context"
	"testing"

	"github.com/Veraticus/balance-snapshots/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrate_ReachesExpectedVersion(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	version, err := store.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, ExpectedSchemaVersion, version)

	// Running again is a no-op.
	require.NoError(t, store.Migrate(ctx))
}

func TestMigrate_CreatesSnapshotIndexes(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()

	for _, name := range []string{
		"idx_balance_snapshots_account_date",
		"idx_balance_snapshots_account_source_date",
		"idx_income_entries_account_date",
	} {
		var count int
		err := store.db.QueryRow(`
			SELECT COUNT(*) FROM sqlite_master
			WHERE type='index' AND name=?`, name).Scan(&count)
		require.NoError(t, err)
		assert.Equal(t, 1, count, "index %s missing", name)
	}
}

func TestMigrate_UniqueSnapshotPerDay(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	account := createTestAccount(t, store, "user-1", "Checking")
	_, err := store.db.ExecContext(ctx, `
		INSERT INTO balance_snapshots (account_id, date, balance, source)
		VALUES (?, '2024-01-10', '1', 'manual')`, account.ID)
	require.NoError(t, err)

	_, err = store.db.ExecContext(ctx, `
		INSERT INTO balance_snapshots (account_id, date, balance, source)
		VALUES (?, '2024-01-10', '2', 'income')`, account.ID)
	assert.Error(t, err, "second row on the same day must violate the unique index")
}

func TestMigrate_SnapshotsCascadeWithAccount(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	account := createTestAccount(t, store, "user-1", "Checking")
	snap := snapshotAt(account.ID, "2024-01-10", "1000", model.SourceManual)
	require.NoError(t, store.UpsertSnapshot(ctx, &snap))

	_, err := store.db.ExecContext(ctx, `DELETE FROM accounts WHERE id = ?`, account.ID)
	require.NoError(t, err)

	snapshots, err := store.ListSnapshots(ctx, account.ID)
	require.NoError(t, err)
	assert.Empty(t, snapshots)
}

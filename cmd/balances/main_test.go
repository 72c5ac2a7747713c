package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Veraticus/balance-snapshots/internal/common"
	"github.com/Veraticus/balance-snapshots/internal/date"
	"github.com/Veraticus/balance-snapshots/internal/model"
	"github.com/Veraticus/balance-snapshots/internal/storage"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testUser = "alice"

// testEnv is a database file shared by the commands run in one test.
type testEnv struct {
	t      *testing.T
	dbPath string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	return &testEnv{t: t, dbPath: filepath.Join(t.TempDir(), "balances.db")}
}

// run executes the CLI with the given arguments and returns stdout.
func (e *testEnv) run(args ...string) (string, error) {
	e.t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(""))
	cmd.SetArgs(append([]string{"--db", e.dbPath, "--as", testUser, "--log-level", "error"}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func (e *testEnv) mustRun(args ...string) string {
	e.t.Helper()
	out, err := e.run(args...)
	require.NoError(e.t, err, "balances %s", strings.Join(args, " "))
	return out
}

// withStore opens the database directly; it is closed before returning so
// the next command gets the file to itself.
func (e *testEnv) withStore(fn func(ctx context.Context, store *storage.SQLiteStorage)) {
	e.t.Helper()
	ctx := context.Background()
	store, err := storage.NewSQLiteStorage(e.dbPath)
	require.NoError(e.t, err)
	defer func() { require.NoError(e.t, store.Close()) }()
	require.NoError(e.t, store.Migrate(ctx))
	fn(ctx, store)
}

// addAccount creates an account through the CLI and returns its id.
func (e *testEnv) addAccount(name string) string {
	e.t.Helper()
	out := e.mustRun("accounts", "add", name)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	id := strings.TrimSpace(lines[len(lines)-1])
	require.True(e.t, model.IsAccountRef(id), "unexpected account id %q", id)
	return id
}

func (e *testEnv) snapshots(accountID string) []model.BalanceSnapshot {
	e.t.Helper()
	var snaps []model.BalanceSnapshot
	e.withStore(func(ctx context.Context, store *storage.SQLiteStorage) {
		var err error
		snaps, err = store.ListSnapshots(ctx, accountID)
		require.NoError(e.t, err)
	})
	return snaps
}

func TestVersion(t *testing.T) {
	env := newTestEnv(t)
	out := env.mustRun("version")
	assert.Equal(t, "balances dev\n", out)
}

func TestMigrateStatus(t *testing.T) {
	env := newTestEnv(t)

	out := env.mustRun("migrate", "--status")
	assert.Contains(t, out, "Current version: 0")
	assert.Contains(t, out, "migration(s) pending")

	out = env.mustRun("migrate")
	assert.Contains(t, out, "Database at schema version")

	out = env.mustRun("migrate", "--status")
	assert.NotContains(t, out, "pending")
}

func TestAccountsAddAndList(t *testing.T) {
	env := newTestEnv(t)
	id := env.addAccount("Checking")

	env.mustRun("snapshot", "set", id, "1000", "--date", "2024-01-10")

	out := env.mustRun("accounts", "list")
	assert.Contains(t, out, "Checking")
	assert.Contains(t, out, "$1,000.00")
}

func TestReconcileCommand(t *testing.T) {
	env := newTestEnv(t)
	id := env.addAccount("Checking")

	env.mustRun("snapshot", "set", id, "1000", "--date", "2024-01-10")
	env.mustRun("income", "add", id, "100", "--date", "2024-01-12")
	env.mustRun("income", "add", id, "75", "--date", "2024-01-15")

	// Automation is off, so nothing is derived until reconcile runs.
	require.Len(t, env.snapshots(id), 1)

	out := env.mustRun("reconcile", id)
	assert.Contains(t, out, "Rebuilt 2 derived snapshots from the 2024-01-10 reading")

	snaps := env.snapshots(id)
	require.Len(t, snaps, 3)
	assert.Equal(t, model.SourceIncome, snaps[2].Source)
	assert.True(t, decimal.RequireFromString("1175").Equal(snaps[2].Balance))

	// Running it again changes nothing.
	env.mustRun("reconcile", id)
	assert.Len(t, env.snapshots(id), 3)
}

func TestReconcileAllTakesBackup(t *testing.T) {
	env := newTestEnv(t)
	first := env.addAccount("Checking")
	second := env.addAccount("Savings")

	env.mustRun("snapshot", "set", first, "500", "--date", "2024-01-10")
	env.mustRun("income", "add", first, "50", "--date", "2024-01-11")

	out := env.mustRun("reconcile", "--all")
	assert.Contains(t, out, "auto-reconcile-")
	assert.Contains(t, out, "Reconciled 2 accounts, 1 derived snapshots")

	assert.Len(t, env.snapshots(first), 2)
	assert.Empty(t, env.snapshots(second))

	out = env.mustRun("backup", "list")
	assert.Contains(t, out, "auto")
}

func TestReconcileArguments(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.run("reconcile")
	require.Error(t, err)

	_, err = env.run("reconcile", "some-id", "--all")
	require.Error(t, err)

	_, err = env.run("reconcile", model.NewAccountID())
	require.Error(t, err)
	var userErr *common.UserError
	require.ErrorAs(t, err, &userErr)
	assert.Contains(t, userErr.UserMessage, "not found")
}

func TestAutomationDerivesOnIncome(t *testing.T) {
	env := newTestEnv(t)
	id := env.addAccount("Checking")

	env.mustRun("snapshot", "set", id, "1000", "--date", "2024-01-10")
	env.mustRun("income", "add", id, "100", "--date", "2024-01-12")

	out := env.mustRun("automation", "set", testUser, "on")
	assert.Contains(t, out, "Automation on for alice")
	assert.Len(t, env.snapshots(id), 2, "turning automation on reconciles existing accounts")

	env.mustRun("income", "add", id, "25", "--date", "2024-01-13")
	snaps := env.snapshots(id)
	require.Len(t, snaps, 3)
	assert.True(t, decimal.RequireFromString("1125").Equal(snaps[2].Balance))

	out = env.mustRun("automation", "show", testUser)
	assert.Contains(t, out, "on")

	_, err := env.run("automation", "set", testUser, "maybe")
	require.Error(t, err)
}

func TestChargeCommand(t *testing.T) {
	env := newTestEnv(t)
	from := env.addAccount("Checking")
	to := env.addAccount("Card")

	env.mustRun("snapshot", "set", from, "1000", "--date", "2024-01-10")
	env.mustRun("snapshot", "set", to, "200", "--date", "2024-01-10")

	out := env.mustRun("charge",
		"--old-paid-by", from, "--old-amount", "40",
		"--new-paid-by", to, "--new-amount", "40")
	assert.Contains(t, out, "$40.00")
	assert.Contains(t, out, "-$40.00")

	env.withStore(func(ctx context.Context, store *storage.SQLiteStorage) {
		latest, err := store.GetLatestSnapshot(ctx, from)
		require.NoError(t, err)
		assert.Equal(t, date.Today(), latest.Date)
		assert.True(t, decimal.RequireFromString("1040").Equal(latest.Balance))

		latest, err = store.GetLatestSnapshot(ctx, to)
		require.NoError(t, err)
		assert.True(t, decimal.RequireFromString("160").Equal(latest.Balance))
	})
}

func TestChargeCommandValidation(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.run("charge")
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrValidation))

	_, err = env.run("charge", "--new-paid-by", model.NewAccountID(), "--new-amount", "-5")
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrValidation))

	out := env.mustRun("charge", "--old-paid-by", "Alice", "--old-amount", "10")
	assert.Contains(t, out, "No account balances affected")
}

func TestBackupCommands(t *testing.T) {
	env := newTestEnv(t)
	id := env.addAccount("Checking")
	env.mustRun("snapshot", "set", id, "1000", "--date", "2024-01-10")

	out := env.mustRun("backup", "create", "--tag", "before", "-d", "first reading")
	assert.Contains(t, out, "Created backup before")
	assert.Contains(t, out, "first reading")

	env.mustRun("snapshot", "set", id, "1200", "--date", "2024-01-11")
	require.Len(t, env.snapshots(id), 2)

	out = env.mustRun("backup", "list")
	assert.Contains(t, out, "before")

	out = env.mustRun("backup", "restore", "before", "--force")
	assert.Contains(t, out, "Restored from backup before")
	assert.Len(t, env.snapshots(id), 1)

	// Without --force and with no answer on stdin nothing is deleted.
	out = env.mustRun("backup", "delete", "before")
	assert.Contains(t, out, "Deletion cancelled")

	env.mustRun("backup", "delete", "before", "--force")
	out = env.mustRun("backup", "list")
	assert.Contains(t, out, "No backups found")
}

func TestSnapshotCommands(t *testing.T) {
	env := newTestEnv(t)
	id := env.addAccount("Checking")

	env.mustRun("snapshot", "set", id, "1000", "--date", "2024-01-10", "--note", "statement")
	env.mustRun("snapshot", "set", id, "990", "--date", "2024-01-10")

	snaps := env.snapshots(id)
	require.Len(t, snaps, 1, "same-day reading replaces the earlier one")
	assert.True(t, decimal.RequireFromString("990").Equal(snaps[0].Balance))
	assert.Equal(t, testUser, snaps[0].RecordedBy)

	out := env.mustRun("snapshot", "list", id)
	assert.Contains(t, out, "2024-01-10")
	assert.Contains(t, out, "$990.00")

	env.mustRun("snapshot", "delete", id, "2024-01-10")
	assert.Empty(t, env.snapshots(id))

	_, err := env.run("snapshot", "delete", id, "2024-01-10")
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrNotFound))

	_, err = env.run("snapshot", "set", id, "abc")
	require.Error(t, err)
}

const statementOFX = `OFXHEADER:100
DATA:OFXSGML
VERSION:102
SECURITY:NONE
ENCODING:USASCII
CHARSET:1252
COMPRESSION:NONE
OLDFILEUID:NONE
NEWFILEUID:NONE

<OFX>
<SIGNONMSGSRSV1>
<SONRS>
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<DTSERVER>20240120120000[0:GMT]
<LANGUAGE>ENG
</SONRS>
</SIGNONMSGSRSV1>
<BANKMSGSRSV1>
<STMTTRNRS>
<TRNUID>1
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<STMTRS>
<CURDEF>USD
<BANKACCTFROM>
<BANKID>123456789
<ACCTID>555000111
<ACCTTYPE>CHECKING
</BANKACCTFROM>
<BANKTRANLIST>
<DTSTART>20240101120000[0:GMT]
<DTEND>20240120120000[0:GMT]
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20240111120000[0:GMT]
<TRNAMT>-30.00
<FITID>20240111A
<NAME>GROCERY OUTLET
</STMTTRN>
<STMTTRN>
<TRNTYPE>DIRECTDEP
<DTPOSTED>20240112120000[0:GMT]
<TRNAMT>2500.00
<FITID>20240112A
<NAME>DIRECT DEPOSIT ACME CORP
</STMTTRN>
</BANKTRANLIST>
<LEDGERBAL>
<BALAMT>1000.00
<DTASOF>20240110120000[0:GMT]
</LEDGERBAL>
</STMTRS>
</STMTTRNRS>
</BANKMSGSRSV1>
</OFX>`

func TestIncomeImport(t *testing.T) {
	env := newTestEnv(t)
	id := env.addAccount("Checking")
	env.mustRun("automation", "set", testUser, "on")

	file := filepath.Join(t.TempDir(), "checking.ofx")
	require.NoError(t, os.WriteFile(file, []byte(statementOFX), 0o600))

	out := env.mustRun("income", "import", file, "--account", id, "--with-balance")
	assert.Contains(t, out, "Imported 1 income entries from statement 555000111")

	snaps := env.snapshots(id)
	require.Len(t, snaps, 2)
	assert.Equal(t, model.SourceManual, snaps[0].Source)
	assert.True(t, decimal.RequireFromString("1000").Equal(snaps[0].Balance))
	assert.Equal(t, model.SourceIncome, snaps[1].Source)
	assert.True(t, decimal.RequireFromString("3500").Equal(snaps[1].Balance))

	// Importing the same statement again does not duplicate income.
	env.mustRun("income", "import", file, "--account", id)
	env.withStore(func(ctx context.Context, store *storage.SQLiteStorage) {
		income, err := store.ListIncome(ctx, id)
		require.NoError(t, err)
		assert.Len(t, income, 1)
	})
	assert.Len(t, env.snapshots(id), 2)
}

func TestIncomeEditMovesBetweenAccounts(t *testing.T) {
	env := newTestEnv(t)
	from := env.addAccount("Checking")
	to := env.addAccount("Savings")
	env.mustRun("automation", "set", testUser, "on")

	env.mustRun("snapshot", "set", from, "100", "--date", "2024-01-10")
	env.mustRun("snapshot", "set", to, "200", "--date", "2024-01-10")

	out := env.mustRun("income", "add", from, "10", "--date", "2024-01-11")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	incomeID := strings.TrimSpace(lines[len(lines)-1])
	require.Len(t, env.snapshots(from), 2)

	env.mustRun("income", "edit", incomeID, "--account", to)
	assert.Len(t, env.snapshots(from), 1, "derived snapshot follows the income")
	moved := env.snapshots(to)
	require.Len(t, moved, 2)
	assert.True(t, decimal.RequireFromString("210").Equal(moved[1].Balance))

	out = env.mustRun("income", "list", to)
	assert.Contains(t, out, "$10.00")

	env.mustRun("income", "delete", incomeID)
	assert.Len(t, env.snapshots(to), 1)
}

func TestFormatFileSize(t *testing.T) {
	tests := []struct {
		want string
		size int64
	}{
		{"0 B", 0},
		{"512 B", 512},
		{"1.0 KB", 1024},
		{"1.5 KB", 1536},
		{"2.0 MB", 2 * 1024 * 1024},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatFileSize(tt.size))
	}
}

func TestParseDecimal(t *testing.T) {
	d, err := parseDecimal("", "amount")
	require.NoError(t, err)
	assert.True(t, d.IsZero())

	d, err = parseDecimal("12.34", "amount")
	require.NoError(t, err)
	assert.Equal(t, "12.34", d.String())

	_, err = parseDecimal("twelve", "amount")
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrValidation))
	var userErr *common.UserError
	require.ErrorAs(t, err, &userErr)
	assert.Contains(t, userErr.UserMessage, `Invalid amount "twelve"`)
}

func TestFriendly(t *testing.T) {
	assert.NoError(t, friendly(nil, "x"))

	err := friendly(common.ErrNotFound, "account 1")
	var userErr *common.UserError
	require.ErrorAs(t, err, &userErr)
	assert.Equal(t, "account 1: not found", userErr.UserMessage)
	assert.True(t, errors.Is(err, common.ErrNotFound))

	err = friendly(common.ErrValidation, "amount")
	require.ErrorAs(t, err, &userErr)
	assert.Equal(t, "amount: invalid input", userErr.UserMessage)

	plain := errors.New("disk on fire")
	assert.Equal(t, plain, friendly(plain, "x"))
}

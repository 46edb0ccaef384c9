package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/heraerp/heraerp-prd-sub011/internal/config"
	"github.com/heraerp/heraerp-prd-sub011/internal/db"
	"github.com/heraerp/heraerp-prd-sub011/internal/logger"
	"github.com/heraerp/heraerp-prd-sub011/internal/testutil"
)

type cliClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *cliClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *cliClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func testConfig(path string) *config.Config {
	return &config.Config{
		DB:        config.DBConfig{Path: path},
		Retention: 30 * 24 * time.Hour,
		Sweep:     config.SweepConfig{Interval: time.Hour},
		Trial:     config.TrialConfig{Duration: 30 * 24 * time.Hour, CacheTTL: time.Minute},
		Migration: config.MigrationConfig{MaxSizeBytes: 100 * 1024 * 1024},
		Log:       logger.Config{Level: "warn", Format: "json", Output: "stderr"},
		Daemon:    config.DaemonConfig{Addr: "127.0.0.1:0"},
	}
}

// testApp returns an App over an in-memory store shared by every command
// run against it.
func testApp(t *testing.T) (*App, *cliClock) {
	t.Helper()
	clock := &cliClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	app := NewApp()
	app.Config = testConfig(db.MemoryPath)
	app.Logger = zap.NewNop()
	app.Now = clock.Now
	app.IsInteractive = func() bool { return false }
	app.Attach(testutil.NewTestStore(t, testutil.WithClock(clock.Now)))
	return app, clock
}

func executeCmd(t *testing.T, app *App, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd(app)
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}

func mustExecute(t *testing.T, app *App, args ...string) string {
	t.Helper()
	out, err := executeCmd(t, app, args...)
	require.NoError(t, err, out)
	return out
}

func seedOrg(t *testing.T, app *App) {
	t.Helper()
	mustExecute(t, app, "org", "create", "--name", "Mario's Pizza", "--code", "MARIO", "--business", "restaurant")
}

// --- Records ---

func TestOrgCreateAndList(t *testing.T) {
	app, _ := testApp(t)
	seedOrg(t, app)

	out := mustExecute(t, app, "org", "list")
	assert.Contains(t, out, "MARIO")
	assert.Contains(t, out, "trial")
	assert.Contains(t, out, "restaurant")
}

func TestOrgCreate_RequiresName(t *testing.T) {
	app, _ := testApp(t)
	_, err := executeCmd(t, app, "org", "create", "--code", "X")
	assert.Error(t, err)
}

func TestEntityCreate_ResolvesOrgByCode(t *testing.T) {
	app, _ := testApp(t)
	seedOrg(t, app)

	mustExecute(t, app, "entity", "create", "--org", "mario", "--type", "product",
		"--name", "Margherita", "--smart-code", "HERA.REST.MENU.ITEM.v1")

	out := mustExecute(t, app, "entity", "list", "--org", "MARIO")
	assert.Contains(t, out, "Margherita")
	assert.Contains(t, out, "HERA.REST.MENU.ITEM.v1")

	out = mustExecute(t, app, "entity", "list", "--org", "MARIO", "--type", "customer")
	assert.Contains(t, out, "No entities.")
}

func TestEntityCreate_UnknownOrg(t *testing.T) {
	app, _ := testApp(t)
	_, err := executeCmd(t, app, "entity", "create", "--org", "NOPE", "--type", "product", "--name", "X")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "organization not found")
}

func TestFieldSetAndList_KeepsVersions(t *testing.T) {
	app, _ := testApp(t)
	seedOrg(t, app)
	mustExecute(t, app, "entity", "create", "--org", "MARIO", "--type", "product", "--name", "Margherita")

	data, err := app.Data(t.Context())
	require.NoError(t, err)
	orgs, err := data.ListOrganizations(t.Context())
	require.NoError(t, err)
	entities, err := data.ListOrganizationEntities(t.Context(), orgs[0].ID)
	require.NoError(t, err)
	id := entities[0].ID

	mustExecute(t, app, "field", "set", id, "price", "12.50", "--type", "number")
	mustExecute(t, app, "field", "set", id[:8], "price", "13", "--type", "number", "--org", "MARIO")

	out := mustExecute(t, app, "field", "list", id)
	assert.Contains(t, out, "v1")
	assert.Contains(t, out, "v2")
	assert.Contains(t, out, "12.5")

	out = mustExecute(t, app, "field", "list", id, "--name", "price", "--latest")
	assert.Contains(t, out, "v2")
	assert.NotContains(t, out, "v1")

	_, err = executeCmd(t, app, "field", "set", id, "price", "x", "--type", "money")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid field type")
}

func TestRelCreateAndList(t *testing.T) {
	app, _ := testApp(t)
	seedOrg(t, app)
	mustExecute(t, app, "entity", "create", "--org", "MARIO", "--type", "category", "--name", "Pizzas")
	mustExecute(t, app, "entity", "create", "--org", "MARIO", "--type", "product", "--name", "Margherita")

	data, err := app.Data(t.Context())
	require.NoError(t, err)
	orgs, err := data.ListOrganizations(t.Context())
	require.NoError(t, err)
	cats, err := data.GetEntities(t.Context(), "category", orgs[0].ID)
	require.NoError(t, err)
	prods, err := data.GetEntities(t.Context(), "product", orgs[0].ID)
	require.NoError(t, err)

	out := mustExecute(t, app, "rel", "create", cats[0].ID, prods[0].ID, "--type", "parent_of")
	assert.Contains(t, out, "parent_of")

	out = mustExecute(t, app, "rel", "list", prods[0].ID)
	assert.Contains(t, out, "parent_of")

	out = mustExecute(t, app, "rel", "list", "--org", "MARIO", "--type", "parent_of")
	assert.Contains(t, out, "parent_of")
	out = mustExecute(t, app, "rel", "list", "--org", "MARIO", "--type", "sells")
	assert.Contains(t, out, "No relationships.")

	_, err = executeCmd(t, app, "rel", "list")
	assert.ErrorContains(t, err, "--org with --type")
}

func TestTxnCreate_SumsLines(t *testing.T) {
	app, _ := testApp(t)
	seedOrg(t, app)

	out := mustExecute(t, app, "txn", "create", "--org", "MARIO", "--type", "sale", "--number", "S-1",
		"--line", "Margherita:2:12.50", "--line", "Espresso:1:3")
	assert.Contains(t, out, "28.00 USD")
	assert.Contains(t, out, "2 lines")

	out = mustExecute(t, app, "txn", "list", "--org", "MARIO")
	assert.Contains(t, out, "S-1")

	out = mustExecute(t, app, "txn", "lines", "S-1", "--org", "MARIO")
	assert.Contains(t, out, "Espresso")
	assert.Contains(t, out, "25.00")

	data, err := app.Data(t.Context())
	require.NoError(t, err)
	org, err := data.GetOrganizationByCode(t.Context(), "MARIO")
	require.NoError(t, err)
	txns, err := data.GetTransactions(t.Context(), org.ID, "", 0)
	require.NoError(t, err)
	require.Len(t, txns, 1)
	out = mustExecute(t, app, "txn", "lines", txns[0].ID, "--org", "MARIO")
	assert.Contains(t, out, "Margherita")

	_, err = executeCmd(t, app, "txn", "lines", "S-404", "--org", "MARIO")
	assert.ErrorContains(t, err, "transaction not found")
}

func TestTxnCreate_BadLine(t *testing.T) {
	app, _ := testApp(t)
	seedOrg(t, app)

	_, err := executeCmd(t, app, "txn", "create", "--org", "MARIO", "--type", "sale", "--line", "Margherita:two:12")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid quantity")
}

func TestParseLine(t *testing.T) {
	l, err := parseLine("Pizza: large:1:9.5")
	require.NoError(t, err)
	assert.Equal(t, "Pizza: large", l.Description)
	assert.Equal(t, "1", l.Quantity.String())
	assert.Equal(t, "9.5", l.UnitPrice.String())

	_, err = parseLine("just a name")
	assert.Error(t, err)
}

// --- Storage ---

func TestStatsAndSyncPending(t *testing.T) {
	app, _ := testApp(t)

	out := mustExecute(t, app, "sync", "pending")
	assert.Contains(t, out, "Sync queue is empty.")

	seedOrg(t, app)
	out = mustExecute(t, app, "stats")
	assert.Contains(t, out, db.StoreOrganizations)
	assert.Contains(t, out, "total")

	out = mustExecute(t, app, "sync", "pending")
	assert.Contains(t, out, db.StoreOrganizations)
	assert.Contains(t, out, "create")
}

func TestSyncStatus_CountsPending(t *testing.T) {
	app, _ := testApp(t)
	seedOrg(t, app)
	mustExecute(t, app, "entity", "create", "--org", "MARIO", "--type", "product", "--name", "Margherita")

	out := mustExecute(t, app, "sync", "status")
	assert.Contains(t, out, "pending")
	assert.Contains(t, out, "2")
	assert.Contains(t, out, "synced")
	assert.Contains(t, out, "failed")

	data, err := app.Data(t.Context())
	require.NoError(t, err)
	items, err := data.PendingSync(t.Context(), 0)
	require.NoError(t, err)
	require.Len(t, items, 2)

	out = mustExecute(t, app, "sync", "ack", items[0].ID, items[1].ID)
	assert.Contains(t, out, "Marked 2 items synced")
	out = mustExecute(t, app, "sync", "pending")
	assert.Contains(t, out, "Sync queue is empty.")

	_, err = executeCmd(t, app, "sync", "ack", "nope", "--failed")
	assert.Error(t, err)
}

func TestExport_WritesFile(t *testing.T) {
	app, _ := testApp(t)
	seedOrg(t, app)

	path := filepath.Join(t.TempDir(), "export.json")
	mustExecute(t, app, "export", "--out", path)

	body, err := os.ReadFile(path)
	require.NoError(t, err)
	var decoded map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(body, &decoded))
	assert.Contains(t, decoded, "core_organizations")
	assert.Contains(t, decoded, "universal_transaction_lines")
	assert.Contains(t, string(decoded["core_organizations"]), "MARIO")
}

func TestSweep_RemovesExpired(t *testing.T) {
	app, clock := testApp(t)
	seedOrg(t, app)

	clock.Advance(31 * 24 * time.Hour)
	out := mustExecute(t, app, "sweep")
	assert.Contains(t, out, "1 expired records removed")

	out = mustExecute(t, app, "org", "list")
	assert.Contains(t, out, "No organizations.")
}

func TestDBDelete_NonInteractiveNeedsYes(t *testing.T) {
	app, _ := testApp(t)
	_, err := executeCmd(t, app, "db", "delete")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--yes")
}

func TestDBDelete_DeclinedConfirmation(t *testing.T) {
	app, _ := testApp(t)
	app.IsInteractive = func() bool { return true }
	var asked string
	app.Confirm = func(title, description string) (bool, error) {
		asked = title
		return false, nil
	}

	out := mustExecute(t, app, "db", "delete")
	assert.Equal(t, "Delete local database?", asked)
	assert.Contains(t, out, "Cancelled.")
}

func TestDBDelete_RemovesFileAfterClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hera.db")
	app := NewApp()
	app.Config = testConfig(path)
	app.Logger = zap.NewNop()

	mustExecute(t, app, "init")
	_, err := os.Stat(path)
	require.NoError(t, err)

	out := mustExecute(t, app, "db", "delete", "--yes")
	assert.Contains(t, out, "Deleted")
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestDBDelete_BlockedWhileOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hera.db")
	testutil.NewTestStore(t, testutil.WithPath(path))

	app := NewApp()
	app.Config = testConfig(path)
	app.Logger = zap.NewNop()

	_, err := executeCmd(t, app, "db", "delete", "--yes")
	require.Error(t, err)
	assert.ErrorIs(t, err, db.ErrDeleteBlocked)
}

// --- Trial ---

func TestTrialLifecycle(t *testing.T) {
	app, clock := testApp(t)
	seedOrg(t, app)

	out := mustExecute(t, app, "trial", "start", "--org", "MARIO")
	assert.Contains(t, out, "30 days left")

	out = mustExecute(t, app, "trial", "track", "pos", "--org", "MARIO")
	assert.Contains(t, out, "Recorded pos")

	clock.Advance(24 * time.Hour)
	out = mustExecute(t, app, "trial", "status", "--org", "MARIO")
	assert.Contains(t, out, "29 days left")
	assert.Contains(t, out, "restaurant")
	assert.Contains(t, out, "1 events")

	out = mustExecute(t, app, "trial", "metrics", "--org", "MARIO")
	assert.Contains(t, out, "pos")
	assert.Contains(t, out, "no_business_data")

	out = mustExecute(t, app, "trial", "extend", "--org", "MARIO", "--days", "5")
	assert.Contains(t, out, "34 days left")

	out = mustExecute(t, app, "trial", "convert", "--org", "MARIO")
	assert.Contains(t, out, "CONVERTED")

	_, err := executeCmd(t, app, "trial", "extend", "--org", "MARIO")
	assert.Error(t, err)
}

func TestTrialListAndDiscard(t *testing.T) {
	app, _ := testApp(t)
	seedOrg(t, app)

	out := mustExecute(t, app, "trial", "list")
	assert.Contains(t, out, "No trials.")

	mustExecute(t, app, "trial", "start", "--org", "MARIO")
	out = mustExecute(t, app, "trial", "list")
	assert.Contains(t, out, "restaurant")
	assert.Contains(t, out, "ACTIVE")

	_, err := executeCmd(t, app, "trial", "discard", "--org", "MARIO")
	assert.ErrorContains(t, err, "pass --yes")

	out = mustExecute(t, app, "trial", "discard", "--org", "MARIO", "--yes")
	assert.Contains(t, out, "Discarded trial")
	out = mustExecute(t, app, "trial", "list")
	assert.Contains(t, out, "No trials.")

	out = mustExecute(t, app, "org", "list")
	assert.Contains(t, out, "MARIO", "records outlive the trial")
}

func TestTrialTrack_WithoutTrialIsNotRecorded(t *testing.T) {
	app, _ := testApp(t)
	seedOrg(t, app)

	out := mustExecute(t, app, "trial", "track", "pos", "--org", "MARIO")
	assert.Contains(t, out, "Not recorded: no trial")
}

func TestTrialOffers_FromFlags(t *testing.T) {
	app, _ := testApp(t)

	out := mustExecute(t, app, "trial", "offers", "--days", "2", "--usage", "150")
	assert.Contains(t, out, "Last chance")
	assert.Contains(t, out, "Enterprise")
}

func TestTrialPrepare_WritesProductionPackage(t *testing.T) {
	app, _ := testApp(t)
	seedOrg(t, app)
	mustExecute(t, app, "entity", "create", "--org", "MARIO", "--type", "product",
		"--name", "Margherita", "--smart-code", "HERA.REST.MENU.ITEM.v1")

	out := mustExecute(t, app, "trial", "validate", "--org", "MARIO")
	assert.Contains(t, out, "passed")

	path := filepath.Join(t.TempDir(), "migration", "pkg.json")
	out = mustExecute(t, app, "trial", "prepare", "--org", "MARIO", "--out", path)
	assert.Contains(t, out, "ready")

	body, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"organization_type": "production"`)
	assert.NotContains(t, string(body), "expires_at")
}

func TestTrialStatus_UnknownTrial(t *testing.T) {
	app, _ := testApp(t)
	seedOrg(t, app)

	_, err := executeCmd(t, app, "trial", "status", "--org", "MARIO")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "trial not found")
}

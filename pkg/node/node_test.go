package node

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fortiblox/X1-Bulldozer/internal/types"
	"github.com/fortiblox/X1-Bulldozer/pkg/accounts"
	"github.com/fortiblox/X1-Bulldozer/pkg/blockstore"
)

func testConfig(t *testing.T) Config {
	cfg := DefaultConfig()
	cfg.DataDir = t.TempDir()
	cfg.RPC.Enabled = false
	cfg.Journal.NoSync = true
	cfg.Journal.PruneSchedule = ""
	cfg.Snapshot.Schedule = ""
	return cfg
}

func startNode(t *testing.T, cfg Config) *Node {
	logger, _ := test.NewNullLogger()
	n, err := New(cfg, logrus.NewEntry(logger))
	require.NoError(t, err)
	require.NoError(t, n.Start(context.Background()))
	t.Cleanup(func() {
		if n.running.Load() {
			n.Stop()
		}
	})
	return n
}

func airdrops(t *testing.T, n *Node, count int) {
	for i := 0; i < count; i++ {
		to := types.Pubkey{byte(n.Executor().Slot() + 1)}
		res, err := n.Executor().Airdrop(context.Background(), to, 1_000_000_000)
		require.NoError(t, err)
		require.Nil(t, res.Err)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "./data", cfg.DataDir)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.True(t, cfg.RPC.Enabled)
	assert.Equal(t, ":8899", cfg.RPC.Addr)
	assert.Equal(t, uint64(150), cfg.Runtime.MaxBlockhashAge)
	assert.Equal(t, blockstore.DefaultRetainSlots, cfg.Journal.RetainSlots)
	assert.Equal(t, 3, cfg.Snapshot.Retain)
	assert.NoError(t, cfg.Validate())
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		valid  bool
	}{
		{name: "defaults", modify: func(*Config) {}, valid: true},
		{name: "missing data dir", modify: func(c *Config) { c.DataDir = "" }},
		{name: "missing rpc addr", modify: func(c *Config) { c.RPC.Addr = "" }},
		{name: "rpc disabled without addr", modify: func(c *Config) { c.RPC.Enabled = false; c.RPC.Addr = "" }, valid: true},
		{name: "retention inside blockhash age", modify: func(c *Config) { c.Journal.RetainSlots = 100 }},
		{name: "retention disabled", modify: func(c *Config) { c.Journal.RetainSlots = 0 }, valid: true},
		{name: "snapshots in memory", modify: func(c *Config) { c.InMemory = true }},
		{name: "in memory without snapshots", modify: func(c *Config) { c.InMemory = true; c.Snapshot.Schedule = "" }, valid: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(&cfg)
			err := cfg.Validate()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.True(t, errors.Is(err, ErrConfigInvalid), "got %v", err)
			}
		})
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bulldozer.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
data_dir: /var/lib/bulldozer
log_format: json
rpc:
  addr: 127.0.0.1:9000
  send_rate: 5
journal:
  retain_slots: 1000
`), 0644))

	t.Setenv("BULLDOZER_RPC_ADDR", "0.0.0.0:7000")
	t.Setenv("BULLDOZER_SNAPSHOT_RETAIN", "7")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/bulldozer", cfg.DataDir)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "0.0.0.0:7000", cfg.RPC.Addr)
	assert.Equal(t, float64(5), cfg.RPC.SendRate)
	assert.Equal(t, uint64(1000), cfg.Journal.RetainSlots)
	assert.Equal(t, 7, cfg.Snapshot.Retain)
	assert.Equal(t, DefaultConfig().Runtime, cfg.Runtime)
}

func TestLoadConfigErrors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("journal:\n  retain_slots: 10\n"), 0644))
	_, err = LoadConfig(path)
	assert.True(t, errors.Is(err, ErrConfigInvalid))
}

func TestNewNode(t *testing.T) {
	n, err := New(testConfig(t), nil)
	require.NoError(t, err)
	assert.False(t, n.Status().IsRunning)

	cfg := testConfig(t)
	cfg.DataDir = ""
	_, err = New(cfg, nil)
	assert.True(t, errors.Is(err, ErrConfigInvalid))
}

func TestNodeNotRunningErrors(t *testing.T) {
	n, err := New(testConfig(t), nil)
	require.NoError(t, err)

	assert.Equal(t, ErrNotRunning, n.Stop())
	_, err = n.Snapshot()
	assert.Equal(t, ErrNotRunning, err)
	_, err = n.Prune()
	assert.Equal(t, ErrNotRunning, err)
}

func TestNodeLifecycle(t *testing.T) {
	cfg := testConfig(t)
	cfg.RPC.Enabled = true
	cfg.RPC.Addr = "127.0.0.1:0"
	n := startNode(t, cfg)

	assert.Equal(t, ErrAlreadyRunning, n.Start(context.Background()))

	status := n.Status()
	assert.True(t, status.IsRunning)
	assert.Equal(t, uint64(0), status.Slot)
	assert.Equal(t, n.Executor().Faucet(), status.Faucet)
	assert.Equal(t, uint64(1), status.AccountsCount)
	assert.Equal(t, "127.0.0.1:0", status.RPCAddr)
	require.NotNil(t, status.JournalStats)
	assert.Equal(t, uint64(1), status.JournalStats.BlockCount)

	airdrops(t, n, 2)
	assert.Equal(t, uint64(2), n.Status().Slot)

	require.NoError(t, n.Stop())
	assert.False(t, n.Status().IsRunning)
	assert.Equal(t, ErrNotRunning, n.Stop())
}

func TestNodeRestartKeepsLedger(t *testing.T) {
	cfg := testConfig(t)

	n := startNode(t, cfg)
	airdrops(t, n, 3)
	blockhash := n.Status().Blockhash
	require.NoError(t, n.Stop())

	n = startNode(t, cfg)
	status := n.Status()
	assert.Equal(t, uint64(3), status.Slot)
	assert.Equal(t, blockhash, status.Blockhash)
	assert.Equal(t, uint64(4), status.AccountsCount)
}

func TestInMemoryNodeStartsFresh(t *testing.T) {
	cfg := testConfig(t)
	cfg.InMemory = true

	n := startNode(t, cfg)
	airdrops(t, n, 2)
	require.NoError(t, n.Stop())

	n = startNode(t, cfg)
	assert.Equal(t, uint64(0), n.Status().Slot)
	require.NoError(t, n.Stop())

	entries, err := os.ReadDir(cfg.DataDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSnapshot(t *testing.T) {
	cfg := testConfig(t)
	cfg.Snapshot.Retain = 2
	n := startNode(t, cfg)

	var paths []string
	for i := 0; i < 3; i++ {
		airdrops(t, n, 1)
		path, err := n.Snapshot()
		require.NoError(t, err)
		require.NotEmpty(t, path)
		paths = append(paths, path)

		header, err := accounts.GetSnapshotHeader(path)
		require.NoError(t, err)
		assert.Equal(t, uint64(i+1), header.Slot)
		assert.Equal(t, uint64(i+2), header.AccountsCount)
	}

	// Unchanged slot writes nothing.
	path, err := n.Snapshot()
	require.NoError(t, err)
	assert.Empty(t, path)
	assert.Equal(t, uint64(3), n.Status().LastSnapshot)

	assert.NoFileExists(t, paths[0])
	assert.FileExists(t, paths[1])
	assert.FileExists(t, paths[2])

	restored := accounts.NewMemoryDB()
	require.NoError(t, restored.LoadSnapshot(paths[2]))
	assert.Equal(t, uint64(3), restored.GetSlot())
	acct, err := restored.GetAccount(types.Pubkey{1})
	require.NoError(t, err)
	assert.Equal(t, uint64(1_000_000_000), acct.Lamports)
}

func TestPrune(t *testing.T) {
	cfg := testConfig(t)
	cfg.Runtime.MaxBlockhashAge = 2
	cfg.Journal.RetainSlots = 3
	n := startNode(t, cfg)

	airdrops(t, n, 6)

	pruned, err := n.Prune()
	require.NoError(t, err)
	assert.Equal(t, uint64(3), pruned)

	stats := n.Status().JournalStats
	assert.Equal(t, uint64(3), stats.OldestSlot)
	assert.Equal(t, uint64(6), stats.LatestSlot)

	pruned, err = n.Prune()
	require.NoError(t, err)
	assert.Zero(t, pruned)

	// Recent blockhashes survive pruning.
	airdrops(t, n, 1)
}

func TestInvalidSchedule(t *testing.T) {
	cfg := testConfig(t)
	cfg.Snapshot.Schedule = "not a schedule"

	logger, _ := test.NewNullLogger()
	n, err := New(cfg, logrus.NewEntry(logger))
	require.NoError(t, err)

	err = n.Start(context.Background())
	assert.True(t, errors.Is(err, ErrInitFailed))
	assert.False(t, n.Status().IsRunning)
}

func TestConfigureLogging(t *testing.T) {
	defer logrus.SetFormatter(logrus.StandardLogger().Formatter)
	defer logrus.SetLevel(logrus.GetLevel())

	cfg := DefaultConfig()
	cfg.LogLevel = "DEBUG"
	cfg.LogFormat = "json"
	ConfigureLogging(cfg)

	assert.Equal(t, logrus.DebugLevel, logrus.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, logrus.StandardLogger().Formatter)
}

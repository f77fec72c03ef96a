// Package node assembles a bulldozer ledger node.
//
// The Node ties together all components:
// - AccountsDB (BadgerDB) holding ledger state
// - the bbolt journal holding every executed transaction
// - the runtime executor sequencing transactions one slot at a time
// - the JSON-RPC server
// - cron jobs that snapshot state and prune the journal
package node

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/fortiblox/X1-Bulldozer/internal/types"
	"github.com/fortiblox/X1-Bulldozer/pkg/accounts"
	"github.com/fortiblox/X1-Bulldozer/pkg/blockstore"
	"github.com/fortiblox/X1-Bulldozer/pkg/rpc"
	"github.com/fortiblox/X1-Bulldozer/pkg/runtime"
)

// Node errors.
var (
	ErrAlreadyRunning = errors.New("node is already running")
	ErrNotRunning     = errors.New("node is not running")
	ErrConfigInvalid  = errors.New("invalid node configuration")
	ErrInitFailed     = errors.New("node initialization failed")
)

// Node represents a running bulldozer ledger.
type Node struct {
	config Config
	log    *logrus.Entry

	// Core components
	journal   *blockstore.BoltStore
	accounts  *accounts.BadgerDB
	executor  *runtime.Executor
	rpcServer *rpc.Server
	registry  *prometheus.Registry
	scheduler *cron.Cron
	tempDir   string

	// State management
	running      atomic.Bool
	startTime    time.Time
	lastSnapshot atomic.Uint64
	lastError    error
	lastErrorMu  sync.RWMutex

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Status is a point-in-time view of the node.
type Status struct {
	IsRunning     bool
	Uptime        time.Duration
	Slot          uint64
	Blockhash     types.Hash
	Faucet        types.Pubkey
	AccountsCount uint64
	JournalStats  *blockstore.Stats
	LastSnapshot  uint64
	RPCAddr       string
	LastError     error
}

// New creates a node with the given configuration. Storage is not opened
// until Start is called.
func New(config Config, log *logrus.Entry) (*Node, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Node{
		config: config,
		log:    log.WithField("type", "node"),
	}, nil
}

// ConfigureLogging applies the configured level and format to the
// standard logger.
func ConfigureLogging(config Config) {
	if strings.EqualFold(config.LogFormat, "json") {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	level, err := logrus.ParseLevel(strings.ToLower(config.LogLevel))
	if err != nil {
		logrus.StandardLogger().WithField("log_level", config.LogLevel).Warn("unknown log level, ignoring")
	} else {
		logrus.SetLevel(level)
	}
	logrus.SetOutput(os.Stdout)
}

// Start opens storage, starts the RPC server and schedules maintenance
// jobs. It returns once the node is serving.
func (n *Node) Start(ctx context.Context) error {
	if !n.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	n.startTime = time.Now()

	if err := n.initialize(); err != nil {
		n.closeStorage()
		n.running.Store(false)
		return errors.Wrapf(ErrInitFailed, "%v", err)
	}

	ctx, n.cancel = context.WithCancel(ctx)
	if n.rpcServer != nil {
		n.wg.Add(1)
		go func() {
			defer n.wg.Done()
			if err := n.rpcServer.Start(ctx); err != nil {
				n.setLastError(errors.Wrap(err, "rpc server"))
				n.log.WithError(err).Error("rpc server stopped")
			}
		}()
	}
	n.scheduler.Start()

	n.log.WithFields(logrus.Fields{
		"slot":      n.executor.Slot(),
		"blockhash": n.executor.LatestBlockhash(),
		"faucet":    n.executor.Faucet(),
	}).Info("node started")
	return nil
}

// initialize sets up storage, the executor, the RPC server and the
// maintenance schedule.
func (n *Node) initialize() error {
	if err := os.MkdirAll(n.config.DataDir, 0755); err != nil {
		return errors.Wrap(err, "create data directory")
	}

	journalDir := filepath.Join(n.config.DataDir, "journal")
	if n.config.InMemory {
		// An in-memory ledger starts from genesis, so its journal must too.
		dir, err := os.MkdirTemp(n.config.DataDir, "journal-")
		if err != nil {
			return errors.Wrap(err, "create journal directory")
		}
		n.tempDir = dir
		journalDir = dir
	}
	journalConfig := blockstore.DefaultConfig(filepath.Join(journalDir, "journal.db"))
	journalConfig.NoSync = n.config.Journal.NoSync
	journalConfig.RetainSlots = n.config.Journal.RetainSlots
	journal, err := blockstore.Open(journalConfig)
	if err != nil {
		return errors.Wrap(err, "open journal")
	}
	n.journal = journal

	accountsConfig := accounts.DefaultBadgerDBConfig(filepath.Join(n.config.DataDir, "accounts"))
	accountsConfig.InMemory = n.config.InMemory
	accountsConfig.Logger = n.log.WithField("type", "accounts/badger")
	accts, err := accounts.NewBadgerDB(accountsConfig)
	if err != nil {
		return errors.Wrap(err, "open accounts database")
	}
	n.accounts = accts

	n.registry = prometheus.NewRegistry()
	n.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	execConfig := runtime.DefaultConfig()
	execConfig.ComputeUnitLimit = n.config.Runtime.ComputeUnitLimit
	execConfig.MaxBlockhashAge = n.config.Runtime.MaxBlockhashAge
	execConfig.FaucetLamports = n.config.Runtime.FaucetLamports
	execConfig.FaucetSeed = n.config.Runtime.FaucetSeed
	executor, err := runtime.NewExecutor(accts, journal, execConfig, runtime.NewMetrics(n.registry), n.log)
	if err != nil {
		return errors.Wrap(err, "create executor")
	}
	n.executor = executor
	if err := n.checkConsistency(); err != nil {
		return err
	}

	if n.config.RPC.Enabled {
		rpcConfig := rpc.DefaultConfig()
		rpcConfig.Addr = n.config.RPC.Addr
		rpcConfig.LogRequests = n.config.RPC.LogRequests
		rpcConfig.EnableCORS = n.config.RPC.EnableCORS
		rpcConfig.SendRate = n.config.RPC.SendRate
		rpcConfig.SendBurst = n.config.RPC.SendBurst
		rpcConfig.MaxAirdropLamports = n.config.RPC.MaxAirdropLamports
		n.rpcServer = rpc.New(rpcConfig, accts, journal, executor, n.registry, n.log)
	}

	return n.schedule()
}

// checkConsistency refuses to run when ledger state is ahead of the
// journal. State behind the journal means the slot metadata was not
// committed before an unclean exit; account writes are already durable.
func (n *Node) checkConsistency() error {
	stateSlot := n.accounts.GetSlot()
	journalSlot := n.journal.GetLatestSlot()
	switch {
	case stateSlot > journalSlot:
		return errors.Errorf("accounts at slot %d but journal at slot %d", stateSlot, journalSlot)
	case stateSlot < journalSlot:
		n.log.WithFields(logrus.Fields{
			"accounts_slot": stateSlot,
			"journal_slot":  journalSlot,
		}).Warn("accounts slot behind journal, advancing")
		if err := n.accounts.SetSlot(journalSlot); err != nil {
			return err
		}
		return n.accounts.Commit()
	}
	return nil
}

// schedule registers the maintenance cron jobs.
func (n *Node) schedule() error {
	n.scheduler = cron.New()

	if spec := n.config.Snapshot.Schedule; spec != "" {
		_, err := n.scheduler.AddFunc(spec, func() {
			if _, err := n.Snapshot(); err != nil {
				n.setLastError(err)
				n.log.WithError(err).Warn("snapshot failed")
			}
		})
		if err != nil {
			return errors.Wrap(err, "invalid snapshot schedule")
		}
	}

	if spec := n.config.Journal.PruneSchedule; spec != "" && n.config.Journal.RetainSlots > 0 {
		_, err := n.scheduler.AddFunc(spec, func() {
			if _, err := n.Prune(); err != nil {
				n.setLastError(err)
				n.log.WithError(err).Warn("journal prune failed")
			}
		})
		if err != nil {
			return errors.Wrap(err, "invalid prune schedule")
		}
	}
	return nil
}

func (n *Node) snapshotDir() string {
	return filepath.Join(n.config.DataDir, "snapshots")
}

// Snapshot writes the accounts state at the current slot and removes
// snapshots beyond the retention count. It returns the new file's path, or
// an empty path when the slot has not moved since the last snapshot.
func (n *Node) Snapshot() (string, error) {
	if !n.running.Load() {
		return "", ErrNotRunning
	}
	if err := os.MkdirAll(n.snapshotDir(), 0755); err != nil {
		return "", errors.Wrap(err, "create snapshot directory")
	}

	var path string
	err := n.executor.Pause(func() error {
		slot := n.accounts.GetSlot()
		if slot == n.lastSnapshot.Load() && slot != 0 {
			return nil
		}
		tmp := filepath.Join(n.snapshotDir(), "snapshot.tmp")
		if err := n.accounts.CreateSnapshot(tmp); err != nil {
			os.Remove(tmp)
			return err
		}
		header, err := accounts.GetSnapshotHeader(tmp)
		if err != nil {
			return err
		}
		path = filepath.Join(n.snapshotDir(), accounts.SnapshotFilename(header.Slot, header.AccountsHash))
		if err := os.Rename(tmp, path); err != nil {
			return err
		}
		n.lastSnapshot.Store(slot)
		return nil
	})
	if err != nil || path == "" {
		return "", errors.Wrap(err, "create snapshot")
	}

	n.log.WithField("path", path).Info("wrote snapshot")
	return path, n.pruneSnapshots()
}

// pruneSnapshots keeps the newest Retain snapshots.
func (n *Node) pruneSnapshots() error {
	if n.config.Snapshot.Retain <= 0 {
		return nil
	}
	paths, err := filepath.Glob(filepath.Join(n.snapshotDir(), "snapshot-*.x1bd"))
	if err != nil {
		return err
	}

	type entry struct {
		path string
		slot uint64
	}
	var entries []entry
	for _, p := range paths {
		header, err := accounts.GetSnapshotHeader(p)
		if err != nil {
			n.log.WithError(err).WithField("path", p).Warn("skipping unreadable snapshot")
			continue
		}
		entries = append(entries, entry{path: p, slot: header.Slot})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].slot > entries[j].slot })

	for i := n.config.Snapshot.Retain; i < len(entries); i++ {
		if err := os.Remove(entries[i].path); err != nil {
			return errors.Wrap(err, "remove old snapshot")
		}
	}
	return nil
}

// Prune drops journal slots older than the retention window.
func (n *Node) Prune() (uint64, error) {
	if !n.running.Load() {
		return 0, ErrNotRunning
	}
	pruned, err := n.journal.Prune(n.config.Journal.RetainSlots)
	if err != nil {
		return pruned, errors.Wrap(err, "prune journal")
	}
	if pruned > 0 {
		n.log.WithField("slots", pruned).Info("pruned journal")
	}
	return pruned, nil
}

// closeStorage closes all storage backends.
func (n *Node) closeStorage() {
	if n.accounts != nil {
		if err := n.accounts.Close(); err != nil {
			n.log.WithError(err).Warn("failed to close accounts database")
		}
		n.accounts = nil
	}
	if n.journal != nil {
		if err := n.journal.Close(); err != nil {
			n.log.WithError(err).Warn("failed to close journal")
		}
		n.journal = nil
	}
	if n.tempDir != "" {
		os.RemoveAll(n.tempDir)
		n.tempDir = ""
	}
}

// Stop gracefully stops the node.
func (n *Node) Stop() error {
	if !n.running.Load() {
		return ErrNotRunning
	}

	<-n.scheduler.Stop().Done()

	if n.cancel != nil {
		n.cancel()
	}
	if n.rpcServer != nil {
		if err := n.rpcServer.Stop(); err != nil {
			n.log.WithError(err).Warn("rpc shutdown")
		}
	}
	n.wg.Wait()

	// Pending transactions finish before storage closes.
	err := n.executor.Pause(func() error {
		if err := n.accounts.Commit(); err != nil {
			return err
		}
		return n.journal.Sync()
	})
	n.closeStorage()

	n.running.Store(false)
	n.log.Info("node stopped")
	return err
}

// Executor returns the node's transaction executor.
func (n *Node) Executor() *runtime.Executor {
	return n.executor
}

// Status returns the current node status.
func (n *Node) Status() *Status {
	status := &Status{
		IsRunning:    n.running.Load(),
		LastSnapshot: n.lastSnapshot.Load(),
		LastError:    n.getLastError(),
	}
	if !status.IsRunning {
		return status
	}

	status.Uptime = time.Since(n.startTime)
	status.Slot = n.executor.Slot()
	status.Blockhash = n.executor.LatestBlockhash()
	status.Faucet = n.executor.Faucet()
	status.AccountsCount, _ = n.accounts.AccountsCount()
	status.JournalStats, _ = n.journal.GetStats()
	if n.rpcServer != nil {
		status.RPCAddr = n.config.RPC.Addr
	}
	return status
}

func (n *Node) setLastError(err error) {
	n.lastErrorMu.Lock()
	n.lastError = err
	n.lastErrorMu.Unlock()
}

func (n *Node) getLastError() error {
	n.lastErrorMu.RLock()
	defer n.lastErrorMu.RUnlock()
	return n.lastError
}

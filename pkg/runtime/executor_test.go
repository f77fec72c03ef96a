package runtime

import (
	"context"
	"crypto/ed25519"
	"path/filepath"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fortiblox/X1-Bulldozer/internal/types"
	"github.com/fortiblox/X1-Bulldozer/pkg/accounts"
	"github.com/fortiblox/X1-Bulldozer/pkg/blockstore"
	"github.com/fortiblox/X1-Bulldozer/pkg/svm"
	"github.com/fortiblox/X1-Bulldozer/pkg/svm/programs/system"
)

type testEnv struct {
	executor *Executor
	accounts *accounts.MemoryDB
	journal  *blockstore.BoltStore
	metrics  *Metrics
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	journal, err := blockstore.Open(blockstore.DefaultConfig(filepath.Join(t.TempDir(), "journal.db")))
	require.NoError(t, err)
	t.Cleanup(func() { journal.Close() })

	db := accounts.NewMemoryDB()
	cfg := DefaultConfig()
	cfg.FaucetLamports = 1_000_000_000_000
	cfg.Clock = func() time.Time { return time.Unix(1_700_000_000, 0) }

	logger, _ := test.NewNullLogger()
	metrics := NewMetrics(prometheus.NewRegistry())
	executor, err := NewExecutor(db, journal, cfg, metrics, logger.WithField("test", t.Name()))
	require.NoError(t, err)
	return &testEnv{executor: executor, accounts: db, journal: journal, metrics: metrics}
}

func (env *testEnv) balance(t *testing.T, pubkey types.Pubkey) uint64 {
	acc, err := env.accounts.GetAccount(pubkey)
	if errors.Is(err, accounts.ErrAccountNotFound) {
		return 0
	}
	require.NoError(t, err)
	return acc.Lamports
}

func (env *testEnv) signed(t *testing.T, payer ed25519.PrivateKey, ixs ...svm.Instruction) *Transaction {
	t.Helper()
	tx, err := NewTransaction(address(payer), env.executor.LatestBlockhash(), ixs...)
	require.NoError(t, err)
	require.NoError(t, tx.Sign(payer))
	return tx
}

func TestGenesis(t *testing.T) {
	env := newTestEnv(t)
	assert.EqualValues(t, 0, env.executor.Slot())
	assert.False(t, env.executor.LatestBlockhash().IsZero())
	assert.EqualValues(t, 1_000_000_000_000, env.balance(t, env.executor.Faucet()))

	block, err := env.journal.GetBlock(0)
	require.NoError(t, err)
	assert.Empty(t, block.Transactions)
}

func TestAirdropAndTransfer(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	walletKey := testKey("wallet")
	wallet := address(walletKey)

	res, err := env.executor.Airdrop(ctx, wallet, 5_000_000)
	require.NoError(t, err)
	require.Nil(t, res.Err)
	assert.EqualValues(t, 1, res.Slot)
	assert.EqualValues(t, 5_000_000, env.balance(t, wallet))
	assert.Contains(t, res.ModifiedAccounts, wallet)

	dest := types.Pubkey{42}
	res, err = env.executor.Execute(ctx, env.signed(t, walletKey, system.NewTransferInstruction(wallet, dest, 1_000)))
	require.NoError(t, err)
	require.Nil(t, res.Err)
	assert.EqualValues(t, 2, res.Slot)
	assert.EqualValues(t, 1_000, env.balance(t, dest))
	assert.Equal(t, res.Blockhash, env.executor.LatestBlockhash())
	assert.Equal(t, []string{
		"Program 11111111111111111111111111111111 invoke [1]",
		"Program log: Transfer: success",
		"Program 11111111111111111111111111111111 consumed 150 of 199280 compute units",
		"Program 11111111111111111111111111111111 success",
	}, res.Logs)

	status, err := env.journal.GetTransactionStatus(res.Signature)
	require.NoError(t, err)
	assert.EqualValues(t, 2, status.Slot)
	assert.Equal(t, blockstore.CommitmentFinalized, status.ConfirmationStatus)

	stored, err := env.journal.GetTransaction(res.Signature)
	require.NoError(t, err)
	assert.Equal(t, []uint64{5_000_000, 0, 0}, stored.Meta.PreBalances)
	assert.Equal(t, []uint64{4_999_000, 1_000, 0}, stored.Meta.PostBalances)

	assert.EqualValues(t, 2, testutil.ToFloat64(env.metrics.transactions.WithLabelValues("success")))
}

func TestFailedTransactionLeavesState(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	walletKey := testKey("wallet")
	wallet := address(walletKey)
	_, err := env.executor.Airdrop(ctx, wallet, 1_000)
	require.NoError(t, err)

	// The first transfer succeeds in isolation; the second overdraws, so
	// neither may land.
	tx := env.signed(t, walletKey,
		system.NewTransferInstruction(wallet, types.Pubkey{1}, 600),
		system.NewTransferInstruction(wallet, types.Pubkey{2}, 600),
	)
	res, err := env.executor.Execute(ctx, tx)
	require.NoError(t, err)
	require.NotNil(t, res.Err)
	assert.Equal(t, 1, res.Err.InstructionIndex)
	assert.Equal(t, "InsufficientFunds", res.Err.Name)
	assert.Empty(t, res.ModifiedAccounts)

	assert.EqualValues(t, 1_000, env.balance(t, wallet))
	assert.EqualValues(t, 0, env.balance(t, types.Pubkey{1}))

	// Failed transactions are journaled with their error.
	status, err := env.journal.GetTransactionStatus(res.Signature)
	require.NoError(t, err)
	require.NotNil(t, status.Err)
	assert.Equal(t, "InsufficientFunds", status.Err.Name)
	assert.EqualValues(t, 1, testutil.ToFloat64(env.metrics.transactions.WithLabelValues("failed")))
}

func TestRejectedTransactions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	walletKey := testKey("wallet")
	wallet := address(walletKey)
	_, err := env.executor.Airdrop(ctx, wallet, 1_000)
	require.NoError(t, err)

	tx := env.signed(t, walletKey, system.NewTransferInstruction(wallet, types.Pubkey{1}, 10))
	_, err = env.executor.Execute(ctx, tx)
	require.NoError(t, err)

	_, err = env.executor.Execute(ctx, tx)
	assert.ErrorIs(t, err, ErrAlreadyProcessed)

	stale, err := NewTransaction(wallet, types.Hash{0xde, 0xad}, system.NewTransferInstruction(wallet, types.Pubkey{1}, 10))
	require.NoError(t, err)
	require.NoError(t, stale.Sign(walletKey))
	_, err = env.executor.Execute(ctx, stale)
	assert.ErrorIs(t, err, ErrBlockhashNotFound)

	forged := env.signed(t, walletKey, system.NewTransferInstruction(wallet, types.Pubkey{1}, 11))
	forged.Signatures[0][0] ^= 0xff
	_, err = env.executor.Execute(ctx, forged)
	assert.ErrorIs(t, err, ErrSignatureVerification)

	assert.EqualValues(t, 2, env.executor.Slot())
	assert.EqualValues(t, 3, testutil.ToFloat64(env.metrics.transactions.WithLabelValues("rejected")))
}

func TestBlockhashExpires(t *testing.T) {
	env := newTestEnv(t)
	env.executor.config.MaxBlockhashAge = 2
	ctx := context.Background()
	walletKey := testKey("wallet")
	wallet := address(walletKey)

	old := env.executor.LatestBlockhash()
	for i := 0; i < 3; i++ {
		_, err := env.executor.Airdrop(ctx, wallet, 1_000)
		require.NoError(t, err)
	}

	tx, err := NewTransaction(wallet, old, system.NewTransferInstruction(wallet, types.Pubkey{1}, 10))
	require.NoError(t, err)
	require.NoError(t, tx.Sign(walletKey))
	_, err = env.executor.Execute(ctx, tx)
	assert.ErrorIs(t, err, ErrBlockhashNotFound)
}

func TestUnknownProgram(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	walletKey := testKey("wallet")
	wallet := address(walletKey)
	_, err := env.executor.Airdrop(ctx, wallet, 1_000)
	require.NoError(t, err)

	res, err := env.executor.Execute(ctx, env.signed(t, walletKey, svm.Instruction{
		ProgramID: types.Pubkey{0xaa},
		Accounts:  []svm.AccountMeta{svm.Writable(wallet, true)},
	}))
	require.NoError(t, err)
	require.NotNil(t, res.Err)
	assert.Equal(t, "UnsupportedProgramId", res.Err.Name)
}

func TestReadonlyAccountModified(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	walletKey := testKey("wallet")
	wallet := address(walletKey)
	_, err := env.executor.Airdrop(ctx, wallet, 1_000)
	require.NoError(t, err)

	thief := &stealingProgram{id: types.Pubkey{0xbb}}
	env.executor.Register(thief)

	victim := types.Pubkey{5}
	require.NoError(t, env.accounts.SetAccount(victim, &accounts.Account{Lamports: 50, Owner: types.SystemProgramAddr}))

	res, err := env.executor.Execute(ctx, env.signed(t, walletKey, svm.Instruction{
		ProgramID: thief.id,
		Accounts:  []svm.AccountMeta{svm.ReadOnly(victim, false), svm.Writable(wallet, true)},
	}))
	require.NoError(t, err)
	require.NotNil(t, res.Err)
	assert.Equal(t, "ReadonlyAccountModified", res.Err.Name)
	assert.EqualValues(t, 50, env.balance(t, victim))
}

func TestUnbalancedTransaction(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	walletKey := testKey("wallet")
	wallet := address(walletKey)
	_, err := env.executor.Airdrop(ctx, wallet, 1_000)
	require.NoError(t, err)

	minter := &mintingProgram{id: types.Pubkey{0xcc}}
	env.executor.Register(minter)

	res, err := env.executor.Execute(ctx, env.signed(t, walletKey, svm.Instruction{
		ProgramID: minter.id,
		Accounts:  []svm.AccountMeta{svm.Writable(wallet, true)},
	}))
	require.NoError(t, err)
	require.NotNil(t, res.Err)
	assert.Equal(t, "UnbalancedTransaction", res.Err.Name)
	assert.Equal(t, -1, res.Err.InstructionIndex)
	assert.EqualValues(t, 1_000, env.balance(t, wallet))
}

func TestExecutorLogsFailures(t *testing.T) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	journal, err := blockstore.Open(blockstore.DefaultConfig(filepath.Join(t.TempDir(), "journal.db")))
	require.NoError(t, err)
	defer journal.Close()

	executor, err := NewExecutor(accounts.NewMemoryDB(), journal, DefaultConfig(), nil, logrus.NewEntry(logger))
	require.NoError(t, err)

	_, err = executor.Airdrop(context.Background(), types.Pubkey{1}, 1)
	assert.ErrorIs(t, err, ErrFaucetDisabled)

	walletKey := testKey("empty")
	tx, err := NewTransaction(address(walletKey), executor.LatestBlockhash(),
		system.NewTransferInstruction(address(walletKey), types.Pubkey{1}, 10))
	require.NoError(t, err)
	require.NoError(t, tx.Sign(walletKey))

	res, err := executor.Execute(context.Background(), tx)
	require.NoError(t, err)
	require.NotNil(t, res.Err)

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, "transaction failed", entry.Message)
	assert.Equal(t, "InsufficientFunds", entry.Data["error"])
}

// stealingProgram moves lamports out of its first account regardless of
// permissions.
type stealingProgram struct{ id types.Pubkey }

func (p *stealingProgram) ID() types.Pubkey { return p.id }
func (p *stealingProgram) Process(ctx svm.InvokeContext, _ []byte) error {
	from, _ := ctx.GetAccount(0)
	to, _ := ctx.GetAccount(1)
	from.Lamports -= 10
	to.Lamports += 10
	return nil
}

// mintingProgram credits lamports out of nowhere.
type mintingProgram struct{ id types.Pubkey }

func (p *mintingProgram) ID() types.Pubkey { return p.id }
func (p *mintingProgram) Process(ctx svm.InvokeContext, _ []byte) error {
	acc, err := ctx.GetAccount(0)
	if err != nil {
		return err
	}
	acc.Lamports += 1
	return nil
}

package blockstore

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fortiblox/X1-Bulldozer/internal/types"
)

func openTestStore(t *testing.T) *BoltStore {
	t.Helper()
	store, err := Open(DefaultConfig(filepath.Join(t.TempDir(), "journal.db")))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func testBlock(slot uint64, sig byte, keys ...types.Pubkey) *Block {
	block := &Block{
		Slot:              slot,
		Blockhash:         types.Hash{byte(slot), 1},
		PreviousBlockhash: types.Hash{byte(slot - 1), 1},
		BlockTime:         1_700_000_000 + int64(slot),
	}
	if slot > 0 {
		block.ParentSlot = slot - 1
	}
	if sig != 0 {
		block.Transactions = []Transaction{{
			Signature:   types.Signature{sig},
			Signatures:  []types.Signature{{sig}},
			Raw:         []byte{1, 2, 3},
			AccountKeys: keys,
			Meta: &TransactionMeta{
				LogMessages:          []string{"Program log: Instruction: CreateWorkspace"},
				ComputeUnitsConsumed: 1000,
			},
		}}
	}
	return block
}

func TestPutAndGetBlock(t *testing.T) {
	store := openTestStore(t)
	alice := types.Pubkey{1}

	require.NoError(t, store.PutBlock(testBlock(0, 0)))
	require.NoError(t, store.PutBlock(testBlock(1, 9, alice)))
	assert.ErrorIs(t, store.PutBlock(testBlock(1, 8)), ErrSlotExists)

	block, err := store.GetBlock(1)
	require.NoError(t, err)
	require.Len(t, block.Transactions, 1)
	assert.EqualValues(t, 1, block.Transactions[0].Slot)
	assert.True(t, store.HasBlock(1))

	_, err = store.GetBlock(5)
	assert.ErrorIs(t, err, ErrBlockNotFound)

	meta, err := store.GetSlotMeta(1)
	require.NoError(t, err)
	assert.Equal(t, CommitmentFinalized, meta.Commitment)
	assert.EqualValues(t, 1, meta.TransactionCount)

	assert.EqualValues(t, 1, store.GetLatestSlot())
	assert.Equal(t, types.Hash{1, 1}, store.GetLatestBlockhash())

	slot, err := store.GetBlockhashSlot(types.Hash{1, 1})
	require.NoError(t, err)
	assert.EqualValues(t, 1, slot)
	_, err = store.GetBlockhashSlot(types.Hash{7})
	assert.ErrorIs(t, err, ErrBlockhashNotFound)
}

func TestTransactionIndexes(t *testing.T) {
	store := openTestStore(t)
	alice, bob := types.Pubkey{1}, types.Pubkey{2}

	require.NoError(t, store.PutBlock(testBlock(1, 10, alice)))
	failed := testBlock(2, 20, alice, bob)
	failed.Transactions[0].Meta.Err = &TransactionError{InstructionIndex: 0, Code: 6024, Name: "CantDeleteWorkspaceWithApplications"}
	require.NoError(t, store.PutBlock(failed))
	require.NoError(t, store.PutBlock(testBlock(3, 30, bob)))

	assert.True(t, store.HasSignature(types.Signature{20}))
	assert.False(t, store.HasSignature(types.Signature{99}))

	status, err := store.GetTransactionStatus(types.Signature{20})
	require.NoError(t, err)
	assert.EqualValues(t, 2, status.Slot)
	require.NotNil(t, status.Err)
	assert.EqualValues(t, 6024, status.Err.Code)
	assert.Nil(t, status.Confirmations)

	txn, err := store.GetTransaction(types.Signature{10})
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, txn.Raw)

	_, err = store.GetTransaction(types.Signature{99})
	assert.ErrorIs(t, err, ErrTransactionNotFound)

	infos, err := store.GetSignaturesForAddress(alice, nil)
	require.NoError(t, err)
	require.Len(t, infos, 2)
	assert.Equal(t, types.Signature{20}, infos[0].Signature, "newest first")
	assert.Equal(t, types.Signature{10}, infos[1].Signature)

	until := uint64(2)
	infos, err = store.GetSignaturesForAddress(bob, &SignatureQueryOptions{Until: &until})
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.EqualValues(t, 3, infos[0].Slot)

	infos, err = store.GetSignaturesForAddress(types.Pubkey{3}, nil)
	require.NoError(t, err)
	assert.Empty(t, infos)
}

func TestPrune(t *testing.T) {
	store := openTestStore(t)
	for slot := uint64(1); slot <= 10; slot++ {
		require.NoError(t, store.PutBlock(testBlock(slot, byte(slot), types.Pubkey{1})))
	}

	pruned, err := store.Prune(4)
	require.NoError(t, err)
	assert.EqualValues(t, 5, pruned)
	assert.EqualValues(t, 6, store.GetOldestSlot())

	assert.False(t, store.HasBlock(5))
	assert.True(t, store.HasBlock(6))
	assert.False(t, store.HasSignature(types.Signature{5}))
	_, err = store.GetBlockhashSlot(types.Hash{5, 1})
	assert.ErrorIs(t, err, ErrBlockhashNotFound)

	infos, err := store.GetSignaturesForAddress(types.Pubkey{1}, nil)
	require.NoError(t, err)
	assert.Len(t, infos, 5)

	stats, err := store.GetStats()
	require.NoError(t, err)
	assert.EqualValues(t, 5, stats.BlockCount)
	assert.EqualValues(t, 5, stats.TransactionCount)

	pruned, err = store.Prune(100)
	require.NoError(t, err)
	assert.Zero(t, pruned)
}

func TestReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	store, err := Open(DefaultConfig(path))
	require.NoError(t, err)
	require.NoError(t, store.PutBlock(testBlock(0, 0)))
	require.NoError(t, store.PutBlock(testBlock(1, 1, types.Pubkey{1})))
	require.NoError(t, store.Close())

	_, err = store.GetBlock(1)
	assert.ErrorIs(t, err, ErrClosed)

	store, err = Open(DefaultConfig(path))
	require.NoError(t, err)
	defer store.Close()

	assert.EqualValues(t, 1, store.GetLatestSlot())
	assert.Equal(t, types.Hash{1, 1}, store.GetLatestBlockhash())
	stats, err := store.GetStats()
	require.NoError(t, err)
	assert.EqualValues(t, 2, stats.BlockCount)
	assert.EqualValues(t, 1, stats.TransactionCount)
	assert.Positive(t, stats.DatabaseSize)
}

func TestSlotKeys(t *testing.T) {
	assert.EqualValues(t, 42, DecodeSlotKey(EncodeSlotKey(42)))
	assert.Zero(t, DecodeSlotKey([]byte{1}))

	addr, slot, sig := DecodeAddressSignatureKey(EncodeAddressSignatureKey(types.Pubkey{4}, 7, types.Signature{5}))
	assert.Equal(t, types.Pubkey{4}, addr)
	assert.EqualValues(t, 7, slot)
	assert.Equal(t, types.Signature{5}, sig)
}

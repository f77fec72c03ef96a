package accounts

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fortiblox/X1-Bulldozer/internal/types"
)

func testPubkey(b byte) types.Pubkey {
	var p types.Pubkey
	for i := range p {
		p[i] = b
	}
	return p
}

func TestAccountSerialization(t *testing.T) {
	account := &Account{
		Lamports:   1000000000,
		Data:       []byte("test data"),
		Owner:      types.BulldozerProgramAddr,
		Executable: false,
		RentEpoch:  100,
	}

	restored, err := DeserializeAccount(account.Serialize())
	require.NoError(t, err)
	assert.Equal(t, account, restored)

	_, err = DeserializeAccount([]byte{1, 2, 3})
	assert.ErrorIs(t, err, ErrInvalidData)
}

func testDB(t *testing.T, db DB) {
	a, b, c := testPubkey(3), testPubkey(1), testPubkey(2)

	require.NoError(t, db.SetAccount(a, &Account{Lamports: 10, Owner: types.SystemProgramAddr}))

	exists, err := db.HasAccount(a)
	require.NoError(t, err)
	assert.True(t, exists)

	// A batch mixing creates, an update and a delete.
	err = db.WriteBatch([]AccountEntry{
		{Pubkey: b, Account: &Account{Lamports: 20, Data: []byte{1}}},
		{Pubkey: c, Account: &Account{Lamports: 30}},
		{Pubkey: a, Account: &Account{}},
	})
	require.NoError(t, err)

	_, err = db.GetAccount(a)
	assert.ErrorIs(t, err, ErrAccountNotFound)

	count, err := db.AccountsCount()
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)

	var visited []types.Pubkey
	err = db.IterateAccounts(func(pubkey types.Pubkey, _ *Account) error {
		visited = append(visited, pubkey)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []types.Pubkey{b, c}, visited)

	acc, err := db.GetAccount(b)
	require.NoError(t, err)
	acc.Data[0] = 9
	again, err := db.GetAccount(b)
	require.NoError(t, err)
	assert.Equal(t, byte(1), again.Data[0], "stored data must not alias returned copies")

	require.NoError(t, db.DeleteAccount(b))
	count, err = db.AccountsCount()
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	require.NoError(t, db.SetSlot(100))
	assert.EqualValues(t, 100, db.GetSlot())
}

func TestMemoryDB(t *testing.T) {
	db := NewMemoryDB()
	defer db.Close()
	testDB(t, db)
}

func TestBadgerDB(t *testing.T) {
	cfg := DefaultBadgerDBConfig("")
	cfg.InMemory = true
	db, err := NewBadgerDB(cfg)
	require.NoError(t, err)
	defer db.Close()
	testDB(t, db)
}

func TestBadgerDBReopen(t *testing.T) {
	dir := t.TempDir()
	db, err := NewBadgerDB(DefaultBadgerDBConfig(dir))
	require.NoError(t, err)

	require.NoError(t, db.SetAccount(testPubkey(7), &Account{Lamports: 5}))
	require.NoError(t, db.SetSlot(42))
	require.NoError(t, db.Close())

	db, err = NewBadgerDB(DefaultBadgerDBConfig(dir))
	require.NoError(t, err)
	defer db.Close()

	assert.EqualValues(t, 42, db.GetSlot())
	count, err := db.AccountsCount()
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

func TestAccountHash(t *testing.T) {
	account := &Account{Lamports: 1000000000, Data: []byte("data"), Owner: types.SystemProgramAddr}

	h1 := ComputeAccountHash(testPubkey(1), account)
	h2 := ComputeAccountHash(testPubkey(1), account)
	assert.Equal(t, h1, h2)
	assert.False(t, h1.IsZero())

	assert.NotEqual(t, h1, ComputeAccountHash(testPubkey(2), account))
	assert.True(t, ComputeAccountHash(testPubkey(1), &Account{}).IsZero())
}

func TestMerkleRoot(t *testing.T) {
	assert.True(t, ComputeMerkleRoot(nil).IsZero())

	hashes := []types.Hash{{1}, {2}, {3}}
	root := ComputeMerkleRoot(hashes)
	assert.False(t, root.IsZero())
	assert.NotEqual(t, root, ComputeMerkleRoot([]types.Hash{{3}, {2}, {1}}))
}

func TestDeltaHashOrderIndependent(t *testing.T) {
	entries := []AccountEntry{
		{Pubkey: testPubkey(2), Account: &Account{Lamports: 1}},
		{Pubkey: testPubkey(1), Account: &Account{Lamports: 2}},
	}
	reversed := []AccountEntry{entries[1], entries[0]}
	assert.Equal(t, ComputeDeltaHash(entries), ComputeDeltaHash(reversed))
}

func TestBlockhashChains(t *testing.T) {
	in := BlockhashInput{ParentBlockhash: types.Hash{1}, Slot: 1}
	first := ComputeBlockhash(in)
	in.Slot = 2
	assert.NotEqual(t, first, ComputeBlockhash(in))
}

func TestSnapshotRoundTrip(t *testing.T) {
	src := NewMemoryDB()
	for i := byte(1); i <= 5; i++ {
		require.NoError(t, src.SetAccount(testPubkey(i), &Account{
			Lamports: uint64(i) * 1000,
			Data:     []byte{i, i, i},
			Owner:    types.BulldozerProgramAddr,
		}))
	}
	require.NoError(t, src.SetSlot(12))

	path := filepath.Join(t.TempDir(), SnapshotFilename(12, types.Hash{9}))
	require.NoError(t, src.CreateSnapshot(path))

	header, err := GetSnapshotHeader(path)
	require.NoError(t, err)
	assert.EqualValues(t, 12, header.Slot)
	assert.EqualValues(t, 5, header.AccountsCount)

	cfg := DefaultBadgerDBConfig("")
	cfg.InMemory = true
	dst, err := NewBadgerDB(cfg)
	require.NoError(t, err)
	defer dst.Close()

	require.NoError(t, dst.SetAccount(testPubkey(99), &Account{Lamports: 1}))
	require.NoError(t, dst.LoadSnapshot(path))

	assert.EqualValues(t, 12, dst.GetSlot())
	_, err = dst.GetAccount(testPubkey(99))
	assert.ErrorIs(t, err, ErrAccountNotFound)

	srcHash, err := ComputeAccountsHash(src)
	require.NoError(t, err)
	dstHash, err := ComputeAccountsHash(dst)
	require.NoError(t, err)
	assert.Equal(t, srcHash, dstHash)
}

func TestLoadMissingSnapshot(t *testing.T) {
	db := NewMemoryDB()
	err := db.LoadSnapshot(filepath.Join(t.TempDir(), "missing"))
	assert.ErrorIs(t, err, ErrSnapshotNotFound)
}

func TestAccountClone(t *testing.T) {
	original := &Account{Lamports: 1, Data: []byte{1, 2, 3}}
	clone := original.Clone()
	clone.Data[0] = 9
	assert.Equal(t, byte(1), original.Data[0])
	assert.Nil(t, (*Account)(nil).Clone())
}

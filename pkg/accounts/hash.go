package accounts

import (
	"encoding/binary"
	"sort"

	"github.com/fortiblox/X1-Bulldozer/internal/types"
)

// ComputeAccountHash computes the BLAKE3 hash of a single account:
// BLAKE3(lamports || rent_epoch || data || executable || owner || pubkey)
//
// A zero account hashes to the zero hash so that deletions are visible in
// delta hashes without a stored record.
func ComputeAccountHash(pubkey types.Pubkey, account *Account) types.Hash {
	if account == nil || account.IsZero() {
		return types.Hash{}
	}

	head := make([]byte, 16)
	binary.LittleEndian.PutUint64(head[0:], account.Lamports)
	binary.LittleEndian.PutUint64(head[8:], account.RentEpoch)

	exec := []byte{0}
	if account.Executable {
		exec[0] = 1
	}

	return types.ComputeHash(head, account.Data, exec, account.Owner[:], pubkey[:])
}

// ComputeAccountsHash computes the Merkle root over every account in the
// database, ordered by pubkey.
func ComputeAccountsHash(db DB) (types.Hash, error) {
	var hashes []types.Hash
	err := db.IterateAccounts(func(pubkey types.Pubkey, account *Account) error {
		hashes = append(hashes, ComputeAccountHash(pubkey, account))
		return nil
	})
	if err != nil {
		return types.Hash{}, err
	}
	return ComputeMerkleRoot(hashes), nil
}

// ComputeDeltaHash computes the Merkle root over a set of modified accounts.
// Entries are sorted by pubkey first so the result does not depend on the
// order in which the instructions touched them.
func ComputeDeltaHash(entries []AccountEntry) types.Hash {
	if len(entries) == 0 {
		return types.Hash{}
	}

	sorted := make([]AccountEntry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Pubkey.Compare(sorted[j].Pubkey) < 0
	})

	hashes := make([]types.Hash, len(sorted))
	for i, e := range sorted {
		hashes[i] = ComputeAccountHash(e.Pubkey, e.Account)
	}
	return ComputeMerkleRoot(hashes)
}

// ComputeMerkleRoot computes a binary Merkle root of a list of hashes.
//
// Tree structure:
// - Leaf: BLAKE3(0x00 || hash)
// - Node: BLAKE3(0x01 || left || right)
// - If odd number of nodes, last node is paired with zero hash
func ComputeMerkleRoot(hashes []types.Hash) types.Hash {
	if len(hashes) == 0 {
		return types.Hash{}
	}

	level := make([]types.Hash, len(hashes))
	for i, h := range hashes {
		level[i] = types.ComputeHash([]byte{0x00}, h[:])
	}

	for len(level) > 1 {
		next := make([]types.Hash, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			left := level[i]
			var right types.Hash
			if i+1 < len(level) {
				right = level[i+1]
			}
			next[i/2] = types.ComputeHash([]byte{0x01}, left[:], right[:])
		}
		level = next
	}

	return level[0]
}

// BlockhashInput contains the inputs for computing a slot's blockhash.
type BlockhashInput struct {
	ParentBlockhash   types.Hash
	AccountsDeltaHash types.Hash
	Slot              uint64
	Signature         types.Signature
}

// ComputeBlockhash chains a slot to its parent:
// BLAKE3(parent_blockhash || accounts_delta_hash || slot || signature)
func ComputeBlockhash(in BlockhashInput) types.Hash {
	slot := make([]byte, 8)
	binary.LittleEndian.PutUint64(slot, in.Slot)
	return types.ComputeHash(in.ParentBlockhash[:], in.AccountsDeltaHash[:], slot, in.Signature[:])
}

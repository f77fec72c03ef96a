// Package blockstore is the ledger journal: every executed transaction is
// stored in a single-transaction block keyed by slot, indexed by signature,
// by the addresses it touched and by its blockhash.
//
// The journal uses BoltDB for persistent storage, providing ACID guarantees
// for the sequencer and cheap reads for the RPC server.
package blockstore

import (
	"encoding/binary"

	"github.com/fortiblox/X1-Bulldozer/internal/types"
)

// CommitmentLevel represents the confirmation status of a block.
type CommitmentLevel uint8

const (
	// CommitmentProcessed indicates the block was executed but not yet
	// written to the journal.
	CommitmentProcessed CommitmentLevel = iota

	// CommitmentConfirmed is accepted for compatibility with Solana clients.
	CommitmentConfirmed

	// CommitmentFinalized indicates the block is journaled. A single
	// sequencer never forks, so stored blocks are final.
	CommitmentFinalized
)

// String returns the string representation of the commitment level.
func (c CommitmentLevel) String() string {
	switch c {
	case CommitmentProcessed:
		return "processed"
	case CommitmentConfirmed:
		return "confirmed"
	case CommitmentFinalized:
		return "finalized"
	default:
		return "unknown"
	}
}

// SlotMeta contains metadata about a slot in the journal.
type SlotMeta struct {
	Slot              uint64
	ParentSlot        uint64
	BlockTime         int64
	Commitment        CommitmentLevel
	TransactionCount  uint64
	Blockhash         types.Hash
	PreviousBlockhash types.Hash
}

// Block is one slot of the ledger.
type Block struct {
	// Slot is the slot number.
	Slot uint64

	// ParentSlot is the parent slot number.
	ParentSlot uint64

	// Blockhash chains this slot to its parent and the state it produced.
	Blockhash types.Hash

	// PreviousBlockhash links to the parent block.
	PreviousBlockhash types.Hash

	// BlockTime is the Unix timestamp the slot was produced at.
	BlockTime int64

	// Transactions executed in this slot. Genesis has none.
	Transactions []Transaction
}

// Transaction is a journaled transaction.
type Transaction struct {
	// Signature is the first signature, used as the transaction ID.
	Signature types.Signature

	// Signatures contains all signatures on this transaction.
	Signatures []types.Signature

	// Raw is the transaction in wire form.
	Raw []byte

	// AccountKeys lists all accounts referenced by this transaction.
	AccountKeys []types.Pubkey

	// Meta contains execution metadata.
	Meta *TransactionMeta

	// Slot is the slot this transaction was included in.
	Slot uint64
}

// TransactionMeta contains metadata about transaction execution.
type TransactionMeta struct {
	// Err contains the error if the transaction failed, nil on success.
	Err *TransactionError

	// PreBalances are account balances before execution.
	PreBalances []uint64

	// PostBalances are account balances after execution.
	PostBalances []uint64

	// LogMessages contains program log output.
	LogMessages []string

	// ComputeUnitsConsumed is the total compute units used.
	ComputeUnitsConsumed uint64
}

// TransactionError describes why a transaction failed.
type TransactionError struct {
	// InstructionIndex is the failing instruction.
	InstructionIndex int `json:"instructionIndex"`

	// Code is the program error number, zero for runtime failures.
	Code uint32 `json:"code"`

	// Name identifies the error.
	Name string `json:"name"`

	// Message is a human-readable error description.
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *TransactionError) Error() string {
	return e.Message
}

// TransactionStatus stores the execution status of a transaction.
type TransactionStatus struct {
	// Slot is the slot the transaction was processed in.
	Slot uint64

	// Signature is the transaction signature.
	Signature types.Signature

	// Err is the error if execution failed.
	Err *TransactionError

	// ConfirmationStatus is the commitment level.
	ConfirmationStatus CommitmentLevel

	// Confirmations is the number of slots built on top of this one.
	// Nil for finalized transactions.
	Confirmations *uint64
}

// SignatureInfo is stored in the address-to-signature index.
type SignatureInfo struct {
	Signature types.Signature
	Slot      uint64
	Err       *TransactionError
	BlockTime int64
}

// SignatureQueryOptions configures signature queries.
type SignatureQueryOptions struct {
	// Limit is the maximum number of signatures to return.
	Limit int

	// Until stops the walk at slots at or below this one.
	Until *uint64
}

// Stats contains journal statistics.
type Stats struct {
	LatestSlot       uint64
	OldestSlot       uint64
	BlockCount       uint64
	TransactionCount uint64
	DatabaseSize     int64
}

// EncodeSlotKey encodes a slot number as a big-endian 8-byte key.
// Big-endian ensures proper lexicographic ordering.
func EncodeSlotKey(slot uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, slot)
	return key
}

// DecodeSlotKey decodes a slot number from a big-endian 8-byte key.
func DecodeSlotKey(key []byte) uint64 {
	if len(key) < 8 {
		return 0
	}
	return binary.BigEndian.Uint64(key)
}

// EncodeAddressSignatureKey encodes an address index key.
// Format: [32-byte address][8-byte slot big-endian][64-byte signature]
func EncodeAddressSignatureKey(addr types.Pubkey, slot uint64, sig types.Signature) []byte {
	key := make([]byte, 0, types.PubkeySize+8+types.SignatureSize)
	key = append(key, addr[:]...)
	key = append(key, EncodeSlotKey(slot)...)
	return append(key, sig[:]...)
}

// DecodeAddressSignatureKey decodes an address index key.
func DecodeAddressSignatureKey(key []byte) (types.Pubkey, uint64, types.Signature) {
	var (
		addr types.Pubkey
		sig  types.Signature
	)
	if len(key) < types.PubkeySize+8+types.SignatureSize {
		return addr, 0, sig
	}
	copy(addr[:], key[:types.PubkeySize])
	slot := binary.BigEndian.Uint64(key[types.PubkeySize:])
	copy(sig[:], key[types.PubkeySize+8:])
	return addr, slot, sig
}

// DefaultRetainSlots is the number of slots prune keeps by default.
const DefaultRetainSlots uint64 = 864_000

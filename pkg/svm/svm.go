// Package svm defines the execution surface shared by native programs:
// the per-instruction invoke context, account views, compute metering and
// the Rent and Clock sysvars.
//
// Programs never touch storage. The runtime loads every account a
// transaction declares into an AccountInfo working copy, hands the copies
// to the program through an InvokeContext, and persists them only if the
// whole transaction succeeds.
package svm

import (
	"github.com/pkg/errors"

	"github.com/fortiblox/X1-Bulldozer/internal/types"
)

var (
	// ErrNotEnoughAccountKeys is returned when an instruction references a
	// missing account index.
	ErrNotEnoughAccountKeys = errors.New("insufficient account keys for instruction")

	// ErrInvalidInstruction is returned for malformed instructions.
	ErrInvalidInstruction = errors.New("invalid instruction")

	// ErrUnsupportedProgram is returned when no native program is registered
	// for an instruction's program ID.
	ErrUnsupportedProgram = errors.New("unsupported program id")
)

// AccountMeta describes an account referenced by an instruction.
type AccountMeta struct {
	Pubkey     types.Pubkey
	IsSigner   bool
	IsWritable bool
}

// Writable returns a writable account meta.
func Writable(pubkey types.Pubkey, signer bool) AccountMeta {
	return AccountMeta{Pubkey: pubkey, IsSigner: signer, IsWritable: true}
}

// ReadOnly returns a read-only account meta.
func ReadOnly(pubkey types.Pubkey, signer bool) AccountMeta {
	return AccountMeta{Pubkey: pubkey, IsSigner: signer}
}

// Instruction is a single program invocation inside a transaction.
type Instruction struct {
	ProgramID types.Pubkey
	Accounts  []AccountMeta
	Data      []byte
}

// AccountInfo is the mutable view of an account during execution.
type AccountInfo struct {
	Key        types.Pubkey
	Owner      types.Pubkey
	Lamports   uint64
	Data       []byte
	Executable bool
	RentEpoch  uint64
	IsSigner   bool
	IsWritable bool
}

// IsUninitialized reports whether the account holds nothing and is still
// owned by the System Program.
func (a *AccountInfo) IsUninitialized() bool {
	return a.Lamports == 0 && a.IsUnallocated()
}

// IsUnallocated reports whether the account carries no data and is still
// owned by the System Program. It may hold lamports.
func (a *AccountInfo) IsUnallocated() bool {
	return len(a.Data) == 0 && a.Owner == types.SystemProgramAddr
}

// InvokeContext is the request context handed to a program for one instruction.
type InvokeContext interface {
	// ProgramID returns the program being invoked.
	ProgramID() types.Pubkey

	// NumAccounts returns the number of accounts passed to the instruction.
	NumAccounts() int

	// GetAccount returns the account at index within the instruction.
	GetAccount(index int) (*AccountInfo, error)

	// Rent returns the rent sysvar.
	Rent() Rent

	// Clock returns the clock sysvar.
	Clock() Clock

	// Meter returns the transaction's compute meter.
	Meter() *ComputeMeter

	// Log appends a program log line.
	Log(msg string)
}

// Program is a natively executed program.
type Program interface {
	// ID returns the program address.
	ID() types.Pubkey

	// Process executes one instruction.
	Process(ctx InvokeContext, data []byte) error
}

// Rent parameters.
const (
	// DefaultLamportsPerByteYear is the rent rate.
	DefaultLamportsPerByteYear = uint64(3480)

	// DefaultExemptionThreshold is the number of years of rent an account
	// must hold to be exempt.
	DefaultExemptionThreshold = uint64(2)

	// AccountStorageOverhead is charged on top of the data length.
	AccountStorageOverhead = uint64(128)
)

// Rent is the rent sysvar.
type Rent struct {
	LamportsPerByteYear uint64
	ExemptionThreshold  uint64
}

// DefaultRent returns the network rent parameters.
func DefaultRent() Rent {
	return Rent{
		LamportsPerByteYear: DefaultLamportsPerByteYear,
		ExemptionThreshold:  DefaultExemptionThreshold,
	}
}

// MinimumBalance returns the rent-exempt minimum for an account of dataLen bytes.
func (r Rent) MinimumBalance(dataLen int) uint64 {
	return (AccountStorageOverhead + uint64(dataLen)) * r.LamportsPerByteYear * r.ExemptionThreshold
}

// IsExempt reports whether lamports cover the rent-exempt minimum.
func (r Rent) IsExempt(lamports uint64, dataLen int) bool {
	return lamports >= r.MinimumBalance(dataLen)
}

// Clock is the clock sysvar.
type Clock struct {
	Slot          uint64
	UnixTimestamp int64
}

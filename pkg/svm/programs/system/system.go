// Package system implements the System Program subset the ledger needs:
// creating accounts, assigning ownership, allocating space and
// transferring lamports. Wallets fund workspace budgets with Transfer.
//
// The lamport movement helpers are exported so that other native programs
// can perform the same checked operations on their working copies, the way
// an on-chain program would invoke the System Program.
package system

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/fortiblox/X1-Bulldozer/internal/types"
	"github.com/fortiblox/X1-Bulldozer/pkg/svm"
)

// Instruction discriminants.
const (
	InstructionCreateAccount = iota
	InstructionAssign
	InstructionTransfer
	InstructionAllocate = 8
)

// Error types.
var (
	ErrInvalidInstructionData   = errors.New("invalid instruction data")
	ErrInsufficientFunds        = errors.New("insufficient funds")
	ErrAccountAlreadyInUse      = errors.New("account already in use")
	ErrInvalidAccountOwner      = errors.New("invalid account owner")
	ErrAccountNotRentExempt     = errors.New("account not rent exempt")
	ErrMissingRequiredSignature = errors.New("missing required signature")
	ErrAccountNotWritable       = errors.New("account not writable")
	ErrAccountDataTooSmall      = errors.New("account data too small")
	ErrAccountDataTooLarge      = errors.New("account data too large")
	ErrLamportOverflow          = errors.New("lamport overflow")
)

// MaxAccountDataSize is the maximum account data size.
const MaxAccountDataSize = 10 * 1024 * 1024

// Processor executes System Program instructions.
type Processor struct{}

// NewProcessor creates a new System Program processor.
func NewProcessor() *Processor {
	return &Processor{}
}

// ID implements svm.Program.
func (p *Processor) ID() types.Pubkey {
	return types.SystemProgramAddr
}

// Process executes a System Program instruction.
func (p *Processor) Process(ctx svm.InvokeContext, data []byte) error {
	if len(data) < 4 {
		return ErrInvalidInstructionData
	}
	if err := ctx.Meter().Consume(svm.CUSystemProgramDefault); err != nil {
		return err
	}

	switch binary.LittleEndian.Uint32(data[:4]) {
	case InstructionCreateAccount:
		return p.processCreateAccount(ctx, data[4:])
	case InstructionAssign:
		return p.processAssign(ctx, data[4:])
	case InstructionTransfer:
		return p.processTransfer(ctx, data[4:])
	case InstructionAllocate:
		return p.processAllocate(ctx, data[4:])
	default:
		return ErrInvalidInstructionData
	}
}

// processCreateAccount creates a new account.
// Accounts: [0] funder (signer, writable), [1] new account (signer, writable).
func (p *Processor) processCreateAccount(ctx svm.InvokeContext, data []byte) error {
	// lamports (8) + space (8) + owner (32)
	if len(data) < 48 {
		return ErrInvalidInstructionData
	}

	lamports := binary.LittleEndian.Uint64(data[0:8])
	space := binary.LittleEndian.Uint64(data[8:16])
	var owner types.Pubkey
	copy(owner[:], data[16:48])

	funder, err := ctx.GetAccount(0)
	if err != nil {
		return err
	}
	newAccount, err := ctx.GetAccount(1)
	if err != nil {
		return err
	}
	if !newAccount.IsSigner {
		return ErrMissingRequiredSignature
	}

	if lamports < ctx.Rent().MinimumBalance(int(space)) {
		return ErrAccountNotRentExempt
	}
	if err := CreateAccount(funder, newAccount, lamports, space, owner); err != nil {
		return err
	}

	ctx.Log("CreateAccount: success")
	return nil
}

// processAssign changes the owner of an account.
func (p *Processor) processAssign(ctx svm.InvokeContext, data []byte) error {
	if len(data) < 32 {
		return ErrInvalidInstructionData
	}

	account, err := ctx.GetAccount(0)
	if err != nil {
		return err
	}
	if !account.IsSigner {
		return ErrMissingRequiredSignature
	}
	if account.Owner != types.SystemProgramAddr {
		return ErrInvalidAccountOwner
	}

	copy(account.Owner[:], data[0:32])

	ctx.Log("Assign: success")
	return nil
}

// processTransfer transfers lamports between accounts.
// Accounts: [0] from (signer, writable), [1] to (writable).
func (p *Processor) processTransfer(ctx svm.InvokeContext, data []byte) error {
	if len(data) < 8 {
		return ErrInvalidInstructionData
	}
	lamports := binary.LittleEndian.Uint64(data[0:8])

	from, err := ctx.GetAccount(0)
	if err != nil {
		return err
	}
	to, err := ctx.GetAccount(1)
	if err != nil {
		return err
	}
	if len(from.Data) > 0 {
		return errors.New("from must not carry data")
	}

	if err := Transfer(from, to, lamports); err != nil {
		return err
	}

	ctx.Log("Transfer: success")
	return nil
}

// processAllocate allocates space in an account.
func (p *Processor) processAllocate(ctx svm.InvokeContext, data []byte) error {
	if len(data) < 8 {
		return ErrInvalidInstructionData
	}
	space := binary.LittleEndian.Uint64(data[0:8])
	if space > MaxAccountDataSize {
		return ErrAccountDataTooLarge
	}

	account, err := ctx.GetAccount(0)
	if err != nil {
		return err
	}
	if !account.IsSigner {
		return ErrMissingRequiredSignature
	}
	if account.Owner != types.SystemProgramAddr {
		return ErrInvalidAccountOwner
	}
	if len(account.Data) > 0 {
		return ErrAccountAlreadyInUse
	}

	account.Data = make([]byte, space)

	ctx.Log("Allocate: success")
	return nil
}

// Transfer moves lamports from a signer-controlled system account.
func Transfer(from, to *svm.AccountInfo, lamports uint64) error {
	if !from.IsSigner {
		return ErrMissingRequiredSignature
	}
	if !from.IsWritable || !to.IsWritable {
		return ErrAccountNotWritable
	}
	if from.Owner != types.SystemProgramAddr {
		return ErrInvalidAccountOwner
	}
	if from.Lamports < lamports {
		return ErrInsufficientFunds
	}
	if to.Lamports > ^uint64(0)-lamports {
		return ErrLamportOverflow
	}

	from.Lamports -= lamports
	to.Lamports += lamports
	return nil
}

// CreateAccount funds, allocates and assigns an unused account in one step.
// The funder must sign; the caller decides whether the new address must
// sign too (program-derived addresses cannot).
func CreateAccount(funder, newAccount *svm.AccountInfo, lamports, space uint64, owner types.Pubkey) error {
	if space > MaxAccountDataSize {
		return ErrAccountDataTooLarge
	}
	if !newAccount.IsWritable {
		return ErrAccountNotWritable
	}
	if !newAccount.IsUninitialized() {
		return ErrAccountAlreadyInUse
	}
	if err := Transfer(funder, newAccount, lamports); err != nil {
		return err
	}

	newAccount.Data = make([]byte, space)
	newAccount.Owner = owner
	return nil
}

// InitAccount brings an unallocated account up to lamports, then allocates
// and assigns it. Lamports the account already holds count toward the
// target, so the funder only pays the shortfall.
func InitAccount(funder, account *svm.AccountInfo, lamports, space uint64, owner types.Pubkey) error {
	if space > MaxAccountDataSize {
		return ErrAccountDataTooLarge
	}
	if !account.IsWritable {
		return ErrAccountNotWritable
	}
	if !account.IsUnallocated() {
		return ErrAccountAlreadyInUse
	}
	if account.Lamports < lamports {
		if err := Transfer(funder, account, lamports-account.Lamports); err != nil {
			return err
		}
	}

	account.Data = make([]byte, space)
	account.Owner = owner
	return nil
}

// NewTransferInstruction builds a Transfer instruction.
func NewTransferInstruction(from, to types.Pubkey, lamports uint64) svm.Instruction {
	data := make([]byte, 12)
	binary.LittleEndian.PutUint32(data[0:4], InstructionTransfer)
	binary.LittleEndian.PutUint64(data[4:12], lamports)

	return svm.Instruction{
		ProgramID: types.SystemProgramAddr,
		Accounts: []svm.AccountMeta{
			svm.Writable(from, true),
			svm.Writable(to, false),
		},
		Data: data,
	}
}

// NewCreateAccountInstruction builds a CreateAccount instruction.
func NewCreateAccountInstruction(funder, newAccount types.Pubkey, lamports, space uint64, owner types.Pubkey) svm.Instruction {
	data := make([]byte, 52)
	binary.LittleEndian.PutUint32(data[0:4], InstructionCreateAccount)
	binary.LittleEndian.PutUint64(data[4:12], lamports)
	binary.LittleEndian.PutUint64(data[12:20], space)
	copy(data[20:52], owner[:])

	return svm.Instruction{
		ProgramID: types.SystemProgramAddr,
		Accounts: []svm.AccountMeta{
			svm.Writable(funder, true),
			svm.Writable(newAccount, true),
		},
		Data: data,
	}
}

var _ svm.Program = (*Processor)(nil)

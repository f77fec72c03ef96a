package system

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fortiblox/X1-Bulldozer/internal/types"
	"github.com/fortiblox/X1-Bulldozer/pkg/svm"
)

type testContext struct {
	accounts []*svm.AccountInfo
	meter    *svm.ComputeMeter
	logs     []string
}

func newTestContext(accounts ...*svm.AccountInfo) *testContext {
	return &testContext{accounts: accounts, meter: svm.NewComputeMeter(svm.CUDefault)}
}

func (c *testContext) ProgramID() types.Pubkey { return types.SystemProgramAddr }
func (c *testContext) NumAccounts() int        { return len(c.accounts) }
func (c *testContext) Rent() svm.Rent          { return svm.DefaultRent() }
func (c *testContext) Clock() svm.Clock        { return svm.Clock{} }
func (c *testContext) Meter() *svm.ComputeMeter {
	return c.meter
}
func (c *testContext) Log(msg string) { c.logs = append(c.logs, msg) }
func (c *testContext) GetAccount(i int) (*svm.AccountInfo, error) {
	if i >= len(c.accounts) {
		return nil, svm.ErrNotEnoughAccountKeys
	}
	return c.accounts[i], nil
}

func wallet(b byte, lamports uint64) *svm.AccountInfo {
	return &svm.AccountInfo{
		Key:        types.Pubkey{b},
		Owner:      types.SystemProgramAddr,
		Lamports:   lamports,
		IsSigner:   true,
		IsWritable: true,
	}
}

func TestTransfer(t *testing.T) {
	from := wallet(1, 1000)
	to := wallet(2, 0)
	to.IsSigner = false

	ix := NewTransferInstruction(from.Key, to.Key, 400)
	ctx := newTestContext(from, to)
	require.NoError(t, NewProcessor().Process(ctx, ix.Data))

	assert.EqualValues(t, 600, from.Lamports)
	assert.EqualValues(t, 400, to.Lamports)
	assert.Contains(t, ctx.logs, "Transfer: success")

	err := NewProcessor().Process(newTestContext(from, to), NewTransferInstruction(from.Key, to.Key, 601).Data)
	assert.ErrorIs(t, err, ErrInsufficientFunds)

	from.IsSigner = false
	err = NewProcessor().Process(newTestContext(from, to), ix.Data)
	assert.ErrorIs(t, err, ErrMissingRequiredSignature)
}

func TestCreateAccount(t *testing.T) {
	rent := svm.DefaultRent()
	funder := wallet(1, 10_000_000)
	fresh := wallet(2, 0)

	lamports := rent.MinimumBalance(64)
	ix := NewCreateAccountInstruction(funder.Key, fresh.Key, lamports, 64, types.BulldozerProgramAddr)
	require.NoError(t, NewProcessor().Process(newTestContext(funder, fresh), ix.Data))

	assert.Equal(t, types.BulldozerProgramAddr, fresh.Owner)
	assert.Len(t, fresh.Data, 64)
	assert.Equal(t, lamports, fresh.Lamports)

	err := NewProcessor().Process(newTestContext(funder, fresh), ix.Data)
	assert.ErrorIs(t, err, ErrAccountAlreadyInUse)

	short := NewCreateAccountInstruction(funder.Key, types.Pubkey{3}, lamports-1, 64, types.BulldozerProgramAddr)
	err = NewProcessor().Process(newTestContext(funder, wallet(3, 0)), short.Data)
	assert.ErrorIs(t, err, ErrAccountNotRentExempt)
}

func TestInitAccountTopsUpExistingLamports(t *testing.T) {
	rent := svm.DefaultRent()
	required := rent.MinimumBalance(64)
	funder := wallet(1, 10_000_000)
	dusted := wallet(2, 1)
	dusted.IsSigner = false

	require.NoError(t, InitAccount(funder, dusted, required, 64, types.BulldozerProgramAddr))
	assert.Equal(t, required, dusted.Lamports)
	assert.Equal(t, 10_000_000-(required-1), funder.Lamports)
	assert.Equal(t, types.BulldozerProgramAddr, dusted.Owner)
	assert.Len(t, dusted.Data, 64)

	// Allocated or assigned accounts stay in use.
	assert.ErrorIs(t, InitAccount(funder, dusted, required, 64, types.BulldozerProgramAddr), ErrAccountAlreadyInUse)
	allocated := wallet(3, 0)
	allocated.Data = make([]byte, 8)
	assert.ErrorIs(t, InitAccount(funder, allocated, required, 64, types.BulldozerProgramAddr), ErrAccountAlreadyInUse)

	// Already rent exempt: nothing is drawn from the funder.
	rich := wallet(4, required+5)
	before := funder.Lamports
	require.NoError(t, InitAccount(funder, rich, required, 64, types.BulldozerProgramAddr))
	assert.Equal(t, required+5, rich.Lamports)
	assert.Equal(t, before, funder.Lamports)
}

func TestAllocateAndAssign(t *testing.T) {
	account := wallet(1, 0)
	data := make([]byte, 12)
	data[0] = InstructionAllocate
	data[4] = 16
	require.NoError(t, NewProcessor().Process(newTestContext(account), data))
	assert.Len(t, account.Data, 16)

	assign := make([]byte, 36)
	assign[0] = InstructionAssign
	copy(assign[4:], types.BulldozerProgramAddr[:])
	require.NoError(t, NewProcessor().Process(newTestContext(account), assign))
	assert.Equal(t, types.BulldozerProgramAddr, account.Owner)

	err := NewProcessor().Process(newTestContext(account), assign)
	assert.ErrorIs(t, err, ErrInvalidAccountOwner)
}

func TestUnknownInstruction(t *testing.T) {
	err := NewProcessor().Process(newTestContext(), []byte{99, 0, 0, 0})
	assert.ErrorIs(t, err, ErrInvalidInstructionData)
}

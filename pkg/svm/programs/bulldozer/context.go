package bulldozer

import (
	"math"

	"github.com/pkg/errors"

	"github.com/fortiblox/X1-Bulldozer/internal/types"
	"github.com/fortiblox/X1-Bulldozer/pkg/svm"
	"github.com/fortiblox/X1-Bulldozer/pkg/svm/pda"
	"github.com/fortiblox/X1-Bulldozer/pkg/svm/programs/system"
)

// request carries one instruction's accounts, sysvars and meter. Handlers
// read and write only through it.
type request struct {
	invoke svm.InvokeContext
	meter  *svm.ComputeMeter
	rent   svm.Rent
	now    int64
}

func newRequest(ctx svm.InvokeContext) *request {
	return &request{
		invoke: ctx,
		meter:  ctx.Meter(),
		rent:   ctx.Rent(),
		now:    ctx.Clock().UnixTimestamp,
	}
}

func (r *request) account(i int) (*svm.AccountInfo, error) {
	acc, err := r.invoke.GetAccount(i)
	if err != nil {
		return nil, ErrAccountNotEnoughKeys
	}
	return acc, nil
}

func (r *request) signer(i int) (*svm.AccountInfo, error) {
	acc, err := r.account(i)
	if err != nil {
		return nil, err
	}
	if !acc.IsSigner {
		return nil, ErrAccountNotSigner
	}
	return acc, nil
}

func (r *request) mut(i int) (*svm.AccountInfo, error) {
	acc, err := r.account(i)
	if err != nil {
		return nil, err
	}
	if !acc.IsWritable {
		return nil, ErrAccountNotMutable
	}
	return acc, nil
}

func (r *request) signerMut(i int) (*svm.AccountInfo, error) {
	acc, err := r.signer(i)
	if err != nil {
		return nil, err
	}
	if !acc.IsWritable {
		return nil, ErrAccountNotMutable
	}
	return acc, nil
}

// optional returns nil when the slot holds the program's own address.
func (r *request) optional(i int) (*svm.AccountInfo, error) {
	acc, err := r.account(i)
	if err != nil {
		return nil, err
	}
	if acc.Key == types.BulldozerProgramAddr {
		return nil, nil
	}
	return acc, nil
}

// load decodes a program-owned record.
func (r *request) load(acc *svm.AccountInfo, rec Record) error {
	if acc.Owner != types.BulldozerProgramAddr {
		if acc.IsUnallocated() {
			return ErrAccountNotInitialized
		}
		return ErrAccountOwnedByWrongProgram
	}
	if len(acc.Data) == 0 {
		return ErrAccountNotInitialized
	}
	return rec.Unmarshal(acc.Data)
}

// store writes rec into acc. The record must fit the allocated space exactly.
func (r *request) store(acc *svm.AccountInfo, rec Record) error {
	data := rec.Marshal()
	if len(data) != len(acc.Data) {
		return ErrInvalidRealloc
	}
	if err := r.meter.Consume(uint64(len(data)) * svm.CUAccountDataPerByte); err != nil {
		return err
	}
	copy(acc.Data, data)
	return nil
}

// derive checks acc against the canonical address for seeds and returns its bump.
func (r *request) derive(acc *svm.AccountInfo, seeds [][]byte) (uint8, error) {
	addr, bump, err := pda.FindProgramAddress(seeds, types.BulldozerProgramAddr, r.meter)
	if err != nil {
		return 0, err
	}
	if addr != acc.Key {
		return 0, ErrConstraintSeeds
	}
	return bump, nil
}

// verify checks acc against seeds with a stored bump.
func (r *request) verify(acc *svm.AccountInfo, seeds [][]byte, bump uint8) error {
	ok, err := pda.VerifyProgramAddress(acc.Key, seeds, bump, types.BulldozerProgramAddr, r.meter)
	if err != nil {
		return err
	}
	if !ok {
		return ErrConstraintSeeds
	}
	return nil
}

// loadAt checks acc against seeds and a bump held by the parent record,
// then decodes it.
func (r *request) loadAt(acc *svm.AccountInfo, rec Record, seeds [][]byte, bump uint8) error {
	if err := r.verify(acc, seeds, bump); err != nil {
		return err
	}
	return r.load(acc, rec)
}

// createPaid allocates a record paid for by a signing wallet. Lamports
// already sent to the address reduce what the payer owes.
func (r *request) createPaid(payer, acc *svm.AccountInfo, space int) error {
	if !acc.IsWritable {
		return ErrAccountNotMutable
	}
	lamports := r.rent.MinimumBalance(space)
	if err := system.InitAccount(payer, acc, lamports, uint64(space), types.BulldozerProgramAddr); err != nil {
		return systemError(err)
	}
	return nil
}

// allocation is one record a budget pays for.
type allocation struct {
	acc   *svm.AccountInfo
	space int
}

// createFromBudget allocates records out of a workspace budget. The budget
// must stay rent exempt after paying for all of them. Lamports already held
// by a target count toward its rent.
func (r *request) createFromBudget(budget *svm.AccountInfo, allocs ...allocation) error {
	var total uint64
	for _, a := range allocs {
		if !a.acc.IsWritable {
			return ErrAccountNotMutable
		}
		if !a.acc.IsUnallocated() {
			return ErrAccountAlreadyInUse
		}
		if required := r.rent.MinimumBalance(a.space); a.acc.Lamports < required {
			total += required - a.acc.Lamports
		}
	}
	if err := r.chargeBudget(budget, total); err != nil {
		return err
	}

	for _, a := range allocs {
		if required := r.rent.MinimumBalance(a.space); a.acc.Lamports < required {
			a.acc.Lamports = required
		}
		a.acc.Data = make([]byte, a.space)
		a.acc.Owner = types.BulldozerProgramAddr
	}
	return nil
}

func (r *request) chargeBudget(budget *svm.AccountInfo, amount uint64) error {
	if !budget.IsWritable {
		return ErrAccountNotMutable
	}
	reserve := r.rent.MinimumBalance(len(budget.Data))
	if budget.Lamports < amount || budget.Lamports-amount < reserve {
		return ErrBudgetHasUnsufficientFunds
	}
	budget.Lamports -= amount
	return nil
}

// resize grows or shrinks a budget-funded record, settling the rent
// difference with the budget.
func (r *request) resize(acc, budget *svm.AccountInfo, space int) error {
	if space > system.MaxAccountDataSize {
		return ErrInvalidRealloc
	}
	current := r.rent.MinimumBalance(len(acc.Data))
	required := r.rent.MinimumBalance(space)
	switch {
	case required > current:
		if err := r.chargeBudget(budget, required-current); err != nil {
			return err
		}
		acc.Lamports += required - current
	case required < current:
		refund := current - required
		if acc.Lamports < refund {
			return ErrInvalidRealloc
		}
		acc.Lamports -= refund
		budget.Lamports += refund
	}

	data := make([]byte, space)
	copy(data, acc.Data)
	acc.Data = data
	return nil
}

// close empties acc into dest. The runtime deletes zeroed accounts.
func (r *request) close(acc, dest *svm.AccountInfo) error {
	if !acc.IsWritable || !dest.IsWritable {
		return ErrAccountNotMutable
	}
	if dest.Lamports > math.MaxUint64-acc.Lamports {
		return system.ErrLamportOverflow
	}
	dest.Lamports += acc.Lamports
	acc.Lamports = 0
	acc.Data = nil
	acc.Owner = types.SystemProgramAddr
	return nil
}

func systemError(err error) error {
	switch {
	case errors.Is(err, system.ErrAccountAlreadyInUse):
		return ErrAccountAlreadyInUse
	case errors.Is(err, system.ErrInsufficientFunds):
		return ErrInsufficientFunds
	case errors.Is(err, system.ErrMissingRequiredSignature):
		return ErrAccountNotSigner
	case errors.Is(err, system.ErrAccountNotWritable):
		return ErrAccountNotMutable
	default:
		return err
	}
}

func increment(counter *uint32) error {
	if *counter == math.MaxUint32 {
		return ErrStatsCounterOutOfRange
	}
	*counter++
	return nil
}

func decrement(counter *uint32) error {
	if *counter == 0 {
		return ErrStatsCounterOutOfRange
	}
	*counter--
	return nil
}

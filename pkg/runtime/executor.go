// Package runtime executes transactions against ledger state: it verifies
// signatures, runs native programs over working copies of the accounts a
// transaction declares, commits the result atomically and journals every
// transaction in its own slot.
package runtime

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"crypto/sha256"
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/fortiblox/X1-Bulldozer/internal/types"
	"github.com/fortiblox/X1-Bulldozer/pkg/accounts"
	"github.com/fortiblox/X1-Bulldozer/pkg/blockstore"
	"github.com/fortiblox/X1-Bulldozer/pkg/svm"
	"github.com/fortiblox/X1-Bulldozer/pkg/svm/programs/bulldozer"
	"github.com/fortiblox/X1-Bulldozer/pkg/svm/programs/system"
)

var (
	// ErrAlreadyProcessed is returned for a signature the journal already holds.
	ErrAlreadyProcessed = errors.New("this transaction has already been processed")

	// ErrBlockhashNotFound is returned when the recent blockhash is unknown
	// or older than the configured age.
	ErrBlockhashNotFound = errors.New("blockhash not found")

	// ErrFaucetDisabled is returned by Airdrop when no faucet was funded.
	ErrFaucetDisabled = errors.New("faucet disabled")

	errReadonlyModified = errors.New("instruction modified data of a read-only account")
)

// Runtime failure names reported in TransactionError.Name.
const (
	errNameUnbalanced         = "UnbalancedTransaction"
	errNameReadonlyModified   = "ReadonlyAccountModified"
	errNameUnsupportedProgram = "UnsupportedProgramId"
	errNameComputeExceeded    = "ComputationalBudgetExceeded"
	errNameInstructionError   = "InstructionError"
)

var systemErrorNames = map[error]string{
	system.ErrInvalidInstructionData:   "InvalidInstructionData",
	system.ErrInsufficientFunds:        "InsufficientFunds",
	system.ErrAccountAlreadyInUse:      "AccountAlreadyInUse",
	system.ErrInvalidAccountOwner:      "InvalidAccountOwner",
	system.ErrAccountNotRentExempt:     "AccountNotRentExempt",
	system.ErrMissingRequiredSignature: "MissingRequiredSignature",
	system.ErrAccountNotWritable:       "AccountNotWritable",
	system.ErrAccountDataTooLarge:      "InvalidRealloc",
	system.ErrLamportOverflow:          "ArithmeticOverflow",
	svm.ErrNotEnoughAccountKeys:        "NotEnoughAccountKeys",
}

// Config holds executor configuration.
type Config struct {
	// ComputeUnitLimit is the per-transaction compute budget.
	ComputeUnitLimit uint64

	// MaxBlockhashAge is how many slots a recent blockhash stays usable.
	MaxBlockhashAge uint64

	// FaucetLamports funds the faucet at genesis. Zero disables Airdrop.
	FaucetLamports uint64

	// FaucetSeed derives the faucet keypair.
	FaucetSeed string

	// Clock supplies block times. Defaults to time.Now.
	Clock func() time.Time
}

// DefaultConfig returns the default executor configuration.
func DefaultConfig() Config {
	return Config{
		ComputeUnitLimit: svm.CUDefault,
		MaxBlockhashAge:  150,
		FaucetSeed:       "bulldozer-faucet",
		Clock:            time.Now,
	}
}

// Result is the outcome of one executed transaction.
type Result struct {
	Signature            types.Signature
	Slot                 uint64
	Blockhash            types.Hash
	Err                  *blockstore.TransactionError
	ComputeUnitsConsumed uint64
	Logs                 []string
	ModifiedAccounts     []types.Pubkey
}

// Code returns the program error code of a failed transaction.
func (r *Result) Code() uint32 {
	if r.Err == nil {
		return 0
	}
	return r.Err.Code
}

// Executor runs transactions one at a time, each in its own slot.
type Executor struct {
	mu sync.Mutex

	accounts accounts.DB
	journal  blockstore.Store
	programs map[types.Pubkey]svm.Program
	config   Config
	faucet   ed25519.PrivateKey
	metrics  *Metrics
	log      *logrus.Entry
}

// NewExecutor creates an executor and writes the genesis slot into an
// empty journal.
func NewExecutor(db accounts.DB, journal blockstore.Store, config Config, metrics *Metrics, log *logrus.Entry) (*Executor, error) {
	if config.ComputeUnitLimit == 0 {
		config.ComputeUnitLimit = svm.CUDefault
	}
	if config.Clock == nil {
		config.Clock = time.Now
	}
	if log == nil {
		log = logrus.StandardLogger().WithField("type", "runtime/executor")
	}

	seed := sha256.Sum256([]byte(config.FaucetSeed))
	e := &Executor{
		accounts: db,
		journal:  journal,
		programs: make(map[types.Pubkey]svm.Program),
		config:   config,
		faucet:   ed25519.NewKeyFromSeed(seed[:]),
		metrics:  metrics,
		log:      log,
	}
	e.Register(system.NewProcessor())
	e.Register(bulldozer.NewProcessor())

	if !journal.HasBlock(0) && journal.GetLatestSlot() == 0 {
		if err := e.genesis(); err != nil {
			return nil, errors.Wrap(err, "write genesis")
		}
	}
	return e, nil
}

// Register adds a native program.
func (e *Executor) Register(program svm.Program) {
	e.programs[program.ID()] = program
}

// Faucet returns the faucet address.
func (e *Executor) Faucet() types.Pubkey {
	return types.PubkeyFromPublicKey(e.faucet.Public().(ed25519.PublicKey))
}

// LatestBlockhash returns the blockhash new transactions should reference.
func (e *Executor) LatestBlockhash() types.Hash {
	return e.journal.GetLatestBlockhash()
}

// Slot returns the latest journaled slot.
func (e *Executor) Slot() uint64 {
	return e.journal.GetLatestSlot()
}

// IsBlockhashValid reports whether hash is recent enough to be referenced
// by a new transaction.
func (e *Executor) IsBlockhashValid(hash types.Hash) bool {
	slot, err := e.journal.GetBlockhashSlot(hash)
	return err == nil && e.journal.GetLatestSlot()-slot <= e.config.MaxBlockhashAge
}

// LastValidSlot returns the last slot at which the latest blockhash is
// still accepted.
func (e *Executor) LastValidSlot() uint64 {
	return e.journal.GetLatestSlot() + e.config.MaxBlockhashAge
}

// Pause runs fn while no transaction executes, so that fn observes state
// and journal at the same slot.
func (e *Executor) Pause(fn func() error) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return fn()
}

// Rent returns the rent parameters programs run with.
func (e *Executor) Rent() svm.Rent {
	return svm.DefaultRent()
}

func (e *Executor) genesis() error {
	var entries []accounts.AccountEntry
	if e.config.FaucetLamports > 0 {
		entries = append(entries, accounts.AccountEntry{
			Pubkey:  e.Faucet(),
			Account: &accounts.Account{Lamports: e.config.FaucetLamports, Owner: types.SystemProgramAddr},
		})
		if err := e.accounts.WriteBatch(entries); err != nil {
			return err
		}
	}
	if err := e.accounts.SetSlot(0); err != nil {
		return err
	}
	if err := e.accounts.Commit(); err != nil {
		return err
	}

	blockhash := accounts.ComputeBlockhash(accounts.BlockhashInput{
		AccountsDeltaHash: accounts.ComputeDeltaHash(entries),
	})
	e.log.WithField("blockhash", blockhash).Info("wrote genesis")
	return e.journal.PutBlock(&blockstore.Block{
		Slot:      0,
		Blockhash: blockhash,
		BlockTime: e.config.Clock().Unix(),
	})
}

// Airdrop transfers lamports from the faucet to a wallet.
func (e *Executor) Airdrop(ctx context.Context, to types.Pubkey, lamports uint64) (*Result, error) {
	if e.config.FaucetLamports == 0 {
		return nil, ErrFaucetDisabled
	}
	tx, err := NewTransaction(e.Faucet(), e.LatestBlockhash(), system.NewTransferInstruction(e.Faucet(), to, lamports))
	if err != nil {
		return nil, err
	}
	if err := tx.Sign(e.faucet); err != nil {
		return nil, err
	}
	return e.Execute(ctx, tx)
}

// loadedAccount is a working copy and the state it was loaded with.
type loadedAccount struct {
	info     *svm.AccountInfo
	original accounts.Account
}

func (l *loadedAccount) changed() bool {
	return l.info.Lamports != l.original.Lamports ||
		l.info.Owner != l.original.Owner ||
		!bytes.Equal(l.info.Data, l.original.Data)
}

// Execute runs tx. Program failures are reported in the Result and leave
// state untouched; a returned error means the transaction was rejected
// before execution and was not journaled.
func (e *Executor) Execute(ctx context.Context, tx *Transaction) (*Result, error) {
	result, err := e.execute(ctx, tx)
	if err != nil {
		e.metrics.rejected()
		e.log.WithError(err).WithField("signature", tx.Signature()).Debug("transaction rejected")
		return nil, err
	}
	e.metrics.observe(result)

	entry := e.log.WithFields(logrus.Fields{
		"signature": result.Signature,
		"slot":      result.Slot,
		"cu":        result.ComputeUnitsConsumed,
	})
	if result.Err != nil {
		entry.WithFields(logrus.Fields{
			"instruction": result.Err.InstructionIndex,
			"code":        result.Err.Code,
			"error":       result.Err.Name,
		}).Info("transaction failed")
	} else {
		entry.Debug("transaction executed")
	}
	return result, nil
}

func (e *Executor) execute(ctx context.Context, tx *Transaction) (*Result, error) {
	if err := tx.Sanitize(); err != nil {
		return nil, err
	}
	msg := &tx.Message

	meter := svm.NewComputeMeter(e.config.ComputeUnitLimit)
	if err := meter.Consume(svm.CUSignatureVerify * uint64(len(tx.Signatures))); err != nil {
		return nil, err
	}
	if err := tx.VerifySignatures(); err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	sig := tx.Signature()
	if e.journal.HasSignature(sig) {
		return nil, ErrAlreadyProcessed
	}
	if !e.IsBlockhashValid(msg.RecentBlockhash) {
		return nil, ErrBlockhashNotFound
	}
	latest := e.journal.GetLatestSlot()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	loaded, err := e.loadAccounts(msg)
	if err != nil {
		return nil, err
	}

	slot := latest + 1
	now := e.config.Clock()
	result := &Result{Signature: sig, Slot: slot}
	clock := svm.Clock{Slot: slot, UnixTimestamp: now.Unix()}

	for i := range msg.Instructions {
		if txErr := e.executeInstruction(i, msg, loaded, clock, meter, &result.Logs); txErr != nil {
			result.Err = txErr
			break
		}
	}
	if result.Err == nil {
		result.Err = checkBalances(loaded)
	}
	result.ComputeUnitsConsumed = meter.Consumed()

	var entries []accounts.AccountEntry
	if result.Err == nil {
		for i, l := range loaded {
			if !msg.IsWritable(i) || !l.changed() {
				continue
			}
			entries = append(entries, accounts.AccountEntry{
				Pubkey: l.info.Key,
				Account: &accounts.Account{
					Lamports:   l.info.Lamports,
					Data:       l.info.Data,
					Owner:      l.info.Owner,
					Executable: l.info.Executable,
					RentEpoch:  l.info.RentEpoch,
				},
			})
			result.ModifiedAccounts = append(result.ModifiedAccounts, l.info.Key)
		}
		if err := e.accounts.WriteBatch(entries); err != nil {
			return nil, errors.Wrap(err, "commit accounts")
		}
	}
	if err := e.accounts.SetSlot(slot); err != nil {
		return nil, errors.Wrap(err, "advance slot")
	}

	parent := e.journal.GetLatestBlockhash()
	result.Blockhash = accounts.ComputeBlockhash(accounts.BlockhashInput{
		ParentBlockhash:   parent,
		AccountsDeltaHash: accounts.ComputeDeltaHash(entries),
		Slot:              slot,
		Signature:         sig,
	})

	meta := &blockstore.TransactionMeta{
		Err:                  result.Err,
		LogMessages:          result.Logs,
		ComputeUnitsConsumed: result.ComputeUnitsConsumed,
	}
	for _, l := range loaded {
		meta.PreBalances = append(meta.PreBalances, l.original.Lamports)
		if result.Err == nil {
			meta.PostBalances = append(meta.PostBalances, l.info.Lamports)
		} else {
			meta.PostBalances = append(meta.PostBalances, l.original.Lamports)
		}
	}

	err = e.journal.PutBlock(&blockstore.Block{
		Slot:              slot,
		ParentSlot:        latest,
		Blockhash:         result.Blockhash,
		PreviousBlockhash: parent,
		BlockTime:         now.Unix(),
		Transactions: []blockstore.Transaction{{
			Signature:   sig,
			Signatures:  tx.Signatures,
			Raw:         tx.Serialize(),
			AccountKeys: msg.AccountKeys,
			Meta:        meta,
		}},
	})
	if err != nil {
		return nil, errors.Wrapf(err, "journal slot %d", slot)
	}
	return result, nil
}

// loadAccounts loads every key of the message once. Instructions naming the
// same key share the same working copy.
func (e *Executor) loadAccounts(msg *Message) ([]*loadedAccount, error) {
	loaded := make([]*loadedAccount, len(msg.AccountKeys))
	for i, key := range msg.AccountKeys {
		stored, err := e.accounts.GetAccount(key)
		switch {
		case errors.Is(err, accounts.ErrAccountNotFound):
			stored = &accounts.Account{Owner: types.SystemProgramAddr}
		case err != nil:
			return nil, errors.Wrapf(err, "load account %s", key)
		}

		loaded[i] = &loadedAccount{
			info: &svm.AccountInfo{
				Key:        key,
				Owner:      stored.Owner,
				Lamports:   stored.Lamports,
				Data:       append([]byte(nil), stored.Data...),
				Executable: stored.Executable,
				RentEpoch:  stored.RentEpoch,
				IsSigner:   msg.IsSigner(i),
				IsWritable: msg.IsWritable(i),
			},
			original: *stored,
		}
	}
	return loaded, nil
}

// executeInstruction runs one instruction and returns its failure, if any.
func (e *Executor) executeInstruction(
	index int,
	msg *Message,
	loaded []*loadedAccount,
	clock svm.Clock,
	meter *svm.ComputeMeter,
	logs *[]string,
) *blockstore.TransactionError {
	ix := msg.Instructions[index]
	programID := msg.AccountKeys[ix.ProgramIDIndex]

	*logs = append(*logs, fmt.Sprintf("Program %s invoke [1]", programID))
	program, ok := e.programs[programID]
	if !ok {
		*logs = append(*logs, fmt.Sprintf("Program %s failed: %v", programID, svm.ErrUnsupportedProgram))
		return &blockstore.TransactionError{
			InstructionIndex: index,
			Name:             errNameUnsupportedProgram,
			Message:          svm.ErrUnsupportedProgram.Error(),
		}
	}

	ctx := &invokeContext{
		programID: programID,
		accounts:  make([]*svm.AccountInfo, len(ix.AccountIndexes)),
		rent:      e.Rent(),
		clock:     clock,
		meter:     meter,
		logs:      logs,
	}
	for i, idx := range ix.AccountIndexes {
		ctx.accounts[i] = loaded[idx].info
	}

	before := meter.Consumed()
	err := program.Process(ctx, ix.Data)
	if err == nil {
		for _, idx := range ix.AccountIndexes {
			if !msg.IsWritable(int(idx)) && loaded[idx].changed() {
				err = errors.Wrapf(errReadonlyModified, "%s", loaded[idx].info.Key)
				break
			}
		}
	}
	*logs = append(*logs, fmt.Sprintf("Program %s consumed %d of %d compute units",
		programID, meter.Consumed()-before, meter.Limit()-before))

	if err == nil {
		*logs = append(*logs, fmt.Sprintf("Program %s success", programID))
		return nil
	}

	txErr := &blockstore.TransactionError{InstructionIndex: index, Message: err.Error()}
	var pe *bulldozer.Error
	switch {
	case errors.As(err, &pe):
		txErr.Code = pe.Code
		txErr.Name = pe.Name
		*logs = append(*logs, "Program log: AnchorError occurred. "+pe.Error())
		*logs = append(*logs, fmt.Sprintf("Program %s failed: custom program error: %#x", programID, pe.Code))
		return txErr
	case errors.Is(err, svm.ErrComputeExceeded):
		txErr.Name = errNameComputeExceeded
	case errors.Is(err, errReadonlyModified):
		txErr.Name = errNameReadonlyModified
	default:
		txErr.Name = errNameInstructionError
		for sentinel, name := range systemErrorNames {
			if errors.Is(err, sentinel) {
				txErr.Name = name
				break
			}
		}
	}
	*logs = append(*logs, fmt.Sprintf("Program %s failed: %v", programID, err))
	return txErr
}

// checkBalances verifies that execution moved lamports without creating
// or destroying any.
func checkBalances(loaded []*loadedAccount) *blockstore.TransactionError {
	var pre, post uint64
	for _, l := range loaded {
		pre += l.original.Lamports
		post += l.info.Lamports
	}
	if pre != post {
		return &blockstore.TransactionError{
			InstructionIndex: -1,
			Name:             errNameUnbalanced,
			Message:          fmt.Sprintf("sum of account balances before and after transaction do not match: %d != %d", pre, post),
		}
	}
	return nil
}

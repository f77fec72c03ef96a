package bulldozer

import (
	"github.com/fortiblox/X1-Bulldozer/internal/types"
	"github.com/fortiblox/X1-Bulldozer/pkg/svm"
)

func (r *request) loadInstructionAccount(acc, wsAcc *svm.AccountInfo) (*InstructionAccount, error) {
	account := &InstructionAccount{}
	if err := r.load(acc, account); err != nil {
		return nil, err
	}
	if account.Workspace != wsAcc.Key {
		return nil, ErrInstructionAccountDoesNotBelongToWorkspace
	}
	return account, nil
}

// loadSibling loads an instruction account that must share owner's
// workspace, application and instruction. missing is returned when the slot
// holds no record.
func (r *request) loadSibling(acc *svm.AccountInfo, owner *InstructionAccount, missing *Error) (*InstructionAccount, error) {
	if acc.IsUnallocated() {
		return nil, missing
	}
	sibling := &InstructionAccount{}
	if err := r.load(acc, sibling); err != nil {
		return nil, err
	}
	return sibling, checkSibling(sibling, owner.Workspace, owner.Application, owner.Instruction)
}

func checkSibling(account *InstructionAccount, workspace, application, instruction types.Pubkey) error {
	switch {
	case account.Workspace != workspace:
		return ErrInstructionAccountDoesNotBelongToWorkspace
	case account.Application != application:
		return ErrInstructionAccountDoesNotBelongToApplication
	case account.Instruction != instruction:
		return ErrInstructionAccountDoesNotBelongToInstruction
	}
	return nil
}

// accountRefs are the optional accounts that accompany an AccountDto.
type accountRefs struct {
	collection *svm.AccountInfo
	payer      *svm.AccountInfo
	close      *svm.AccountInfo
}

func (r *request) optionalRefs(first int) (accountRefs, error) {
	var refs accountRefs
	var err error
	if refs.collection, err = r.optional(first); err != nil {
		return refs, err
	}
	if refs.payer, err = r.optional(first + 1); err != nil {
		return refs, err
	}
	if refs.close, err = r.optional(first + 2); err != nil {
		return refs, err
	}
	return refs, nil
}

// applyAccountDto validates dto against refs and writes the resulting kind,
// modifier and references into account. self is the account's own address.
func (r *request) applyAccountDto(account *InstructionAccount, self types.Pubkey, dto *AccountDto, refs accountRefs) error {
	if err := validateName(dto.Name); err != nil {
		return err
	}

	account.Collection = nil
	switch AccountKindID(dto.Kind) {
	case AccountKindDocument:
		if refs.collection == nil {
			return ErrMissingCollectionAccount
		}
		collection := &Collection{}
		if err := r.load(refs.collection, collection); err != nil {
			return err
		}
		if collection.Workspace != account.Workspace {
			return ErrCollectionDoesNotBelongToWorkspace
		}
		if collection.Application != account.Application {
			return ErrCollectionDoesNotBelongToApplication
		}
		key := refs.collection.Key
		account.Collection = &key
	case AccountKindSigner, AccountKindAccount:
	default:
		return ErrInvalidAccountKind
	}
	account.Kind = AccountKindID(dto.Kind)

	account.Modifier, account.Payer, account.Close, account.Space = nil, nil, nil, nil
	if dto.Modifier == nil {
		account.Name = dto.Name
		return nil
	}
	modifier := AccountModifierID(*dto.Modifier)
	switch modifier {
	case AccountModifierInit:
		if refs.payer == nil {
			return ErrMissingPayerAccount
		}
		if dto.Space == nil {
			return ErrMissingAccountSpace
		}
		if refs.payer.Key == self {
			return ErrAccountReferencesItself
		}
		payer, err := r.loadSibling(refs.payer, account, ErrMissingPayerAccount)
		if err != nil {
			return err
		}
		if payer.Kind != AccountKindSigner {
			return ErrPayerMustBeSigner
		}
		key := refs.payer.Key
		space := *dto.Space
		account.Payer = &key
		account.Space = &space
	case AccountModifierMut:
		if refs.close != nil {
			if refs.close.Key == self {
				return ErrAccountReferencesItself
			}
			if _, err := r.loadSibling(refs.close, account, ErrMissingCloseAccount); err != nil {
				return err
			}
			key := refs.close.Key
			account.Close = &key
		}
	default:
		return ErrInvalidAccountModifier
	}
	account.Modifier = &modifier
	account.Name = dto.Name
	return nil
}

// createInstructionAccount accounts:
//
//	 [0] authority         (signer)
//	 [1] workspace
//	 [2] application
//	 [3] instruction
//	 [4] account           (signer, writable)
//	 [5] account stats     (writable, pda)
//	 [6] user
//	 [7] collaborator
//	 [8] budget            (writable)
//	 [9] instruction stats (writable)
//	[10] collection        (optional)
//	[11] payer             (optional)
//	[12] close             (optional)
func createInstructionAccount(r *request, dto *AccountDto) error {
	authority, err := r.signer(0)
	if err != nil {
		return err
	}
	accountAcc, err := r.signerMut(4)
	if err != nil {
		return err
	}
	wsAcc, err := r.account(1)
	if err != nil {
		return err
	}
	appAcc, err := r.account(2)
	if err != nil {
		return err
	}
	instructionAcc, err := r.account(3)
	if err != nil {
		return err
	}
	accountStatsAcc, err := r.mut(5)
	if err != nil {
		return err
	}
	userAcc, err := r.account(6)
	if err != nil {
		return err
	}
	collaboratorAcc, err := r.account(7)
	if err != nil {
		return err
	}
	budgetAcc, err := r.account(8)
	if err != nil {
		return err
	}
	statsAcc, err := r.mut(9)
	if err != nil {
		return err
	}
	refs, err := r.optionalRefs(10)
	if err != nil {
		return err
	}

	ws := &Workspace{}
	if err := r.load(wsAcc, ws); err != nil {
		return err
	}
	if _, err := r.loadApplication(appAcc, wsAcc); err != nil {
		return err
	}
	instruction, err := r.loadInstructionOf(instructionAcc, wsAcc, appAcc)
	if err != nil {
		return err
	}
	accountStatsBump, err := r.derive(accountStatsAcc, instructionAccountStatsSeeds(accountAcc.Key))
	if err != nil {
		return err
	}
	if err := r.checkBudget(budgetAcc, wsAcc, ws); err != nil {
		return err
	}
	stats := &InstructionStats{}
	if err := r.loadAt(statsAcc, stats, instructionStatsSeeds(instructionAcc.Key), instruction.StatsBump); err != nil {
		return err
	}
	if _, err := r.approvedMember(authority.Key, wsAcc.Key, userAcc, collaboratorAcc); err != nil {
		return err
	}

	account := &InstructionAccount{
		Authority:   authority.Key,
		Workspace:   wsAcc.Key,
		Application: appAcc.Key,
		Instruction: instructionAcc.Key,
		CreatedAt:   r.now,
		UpdatedAt:   r.now,
		StatsBump:   accountStatsBump,
	}
	if err := r.applyAccountDto(account, accountAcc.Key, dto, refs); err != nil {
		return err
	}
	if err := increment(&stats.QuantityOfAccounts); err != nil {
		return err
	}

	if err := r.createFromBudget(budgetAcc,
		allocation{acc: accountAcc, space: InstructionAccountSize},
		allocation{acc: accountStatsAcc, space: InstructionAccountStatsSize},
	); err != nil {
		return err
	}
	if err := r.store(accountAcc, account); err != nil {
		return err
	}
	if err := r.store(accountStatsAcc, &InstructionAccountStats{Bump: accountStatsBump}); err != nil {
		return err
	}
	return r.store(statsAcc, stats)
}

// updateInstructionAccount accounts:
//
//	[0] authority    (signer)
//	[1] workspace
//	[2] account      (writable)
//	[3] user
//	[4] collaborator
//	[5] collection   (optional)
//	[6] payer        (optional)
//	[7] close        (optional)
func updateInstructionAccount(r *request, dto *AccountDto) error {
	authority, err := r.signer(0)
	if err != nil {
		return err
	}
	wsAcc, err := r.account(1)
	if err != nil {
		return err
	}
	accountAcc, err := r.mut(2)
	if err != nil {
		return err
	}
	userAcc, err := r.account(3)
	if err != nil {
		return err
	}
	collaboratorAcc, err := r.account(4)
	if err != nil {
		return err
	}
	refs, err := r.optionalRefs(5)
	if err != nil {
		return err
	}

	account, err := r.loadInstructionAccount(accountAcc, wsAcc)
	if err != nil {
		return err
	}
	if _, err := r.approvedMember(authority.Key, wsAcc.Key, userAcc, collaboratorAcc); err != nil {
		return err
	}
	if err := r.applyAccountDto(account, accountAcc.Key, dto, refs); err != nil {
		return err
	}

	account.UpdatedAt = r.now
	return r.store(accountAcc, account)
}

// deleteInstructionAccount accounts:
//
//	[0] authority         (signer)
//	[1] workspace
//	[2] instruction
//	[3] account           (writable)
//	[4] account stats     (writable)
//	[5] user
//	[6] collaborator
//	[7] budget            (writable)
//	[8] instruction stats (writable)
func deleteInstructionAccount(r *request) error {
	authority, err := r.signer(0)
	if err != nil {
		return err
	}
	wsAcc, err := r.account(1)
	if err != nil {
		return err
	}
	instructionAcc, err := r.account(2)
	if err != nil {
		return err
	}
	accountAcc, err := r.mut(3)
	if err != nil {
		return err
	}
	accountStatsAcc, err := r.mut(4)
	if err != nil {
		return err
	}
	userAcc, err := r.account(5)
	if err != nil {
		return err
	}
	collaboratorAcc, err := r.account(6)
	if err != nil {
		return err
	}
	budgetAcc, err := r.account(7)
	if err != nil {
		return err
	}
	statsAcc, err := r.mut(8)
	if err != nil {
		return err
	}

	ws := &Workspace{}
	if err := r.load(wsAcc, ws); err != nil {
		return err
	}
	instruction, err := r.loadInstruction(instructionAcc, wsAcc)
	if err != nil {
		return err
	}
	account, err := r.loadInstructionAccount(accountAcc, wsAcc)
	if err != nil {
		return err
	}
	if account.Instruction != instructionAcc.Key {
		return ErrInstructionAccountDoesNotBelongToInstruction
	}
	accountStats := &InstructionAccountStats{}
	if err := r.loadAt(accountStatsAcc, accountStats, instructionAccountStatsSeeds(accountAcc.Key), account.StatsBump); err != nil {
		return err
	}
	if err := r.checkBudget(budgetAcc, wsAcc, ws); err != nil {
		return err
	}
	stats := &InstructionStats{}
	if err := r.loadAt(statsAcc, stats, instructionStatsSeeds(instructionAcc.Key), instruction.StatsBump); err != nil {
		return err
	}
	if _, err := r.approvedMember(authority.Key, wsAcc.Key, userAcc, collaboratorAcc); err != nil {
		return err
	}
	if accountStats.QuantityOfRelations > 0 {
		return ErrCantDeleteAccountWithRelations
	}

	if err := decrement(&stats.QuantityOfAccounts); err != nil {
		return err
	}
	if err := r.store(statsAcc, stats); err != nil {
		return err
	}
	if err := r.close(accountStatsAcc, budgetAcc); err != nil {
		return err
	}
	return r.close(accountAcc, budgetAcc)
}

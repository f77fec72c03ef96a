package bulldozer

import (
	"github.com/fortiblox/X1-Bulldozer/internal/types"
	"github.com/fortiblox/X1-Bulldozer/pkg/svm"
)

// Builders assemble instructions for clients and tests. Required program
// addresses are derived from the supplied keys.

// mustFind derives a program address. Derivation only fails when no bump
// in 0..255 is off curve.
func mustFind(seeds [][]byte) types.Pubkey {
	addr, _, err := findAddress(seeds, nil)
	if err != nil {
		panic(err)
	}
	return addr
}

func userAddress(authority types.Pubkey) types.Pubkey {
	return mustFind(userSeeds(authority))
}

func memberAddresses(authority, workspace types.Pubkey) (user, collaborator types.Pubkey) {
	user = userAddress(authority)
	return user, mustFind(collaboratorSeeds(workspace, user))
}

func optionalMeta(key *types.Pubkey) svm.AccountMeta {
	if key == nil {
		return svm.ReadOnly(types.BulldozerProgramAddr, false)
	}
	return svm.ReadOnly(*key, false)
}

func newInstruction(name string, args instructionArgs, metas ...svm.AccountMeta) svm.Instruction {
	w := newArgWriter(instructionDiscriminator(name))
	if args != nil {
		args.write(w)
	}
	return svm.Instruction{
		ProgramID: types.BulldozerProgramAddr,
		Accounts:  metas,
		Data:      w.buf,
	}
}

func NewCreateUserInstruction(authority types.Pubkey, args *UserArgs) svm.Instruction {
	return newInstruction(InstructionCreateUser, args,
		svm.Writable(authority, true),
		svm.Writable(userAddress(authority), false),
	)
}

func NewUpdateUserInstruction(authority types.Pubkey, args *UserArgs) svm.Instruction {
	return newInstruction(InstructionUpdateUser, args,
		svm.ReadOnly(authority, true),
		svm.Writable(userAddress(authority), false),
	)
}

func NewDeleteUserInstruction(authority types.Pubkey) svm.Instruction {
	return newInstruction(InstructionDeleteUser, nil,
		svm.Writable(authority, true),
		svm.Writable(userAddress(authority), false),
	)
}

// WorkspaceInstructionAccounts names the workspace an admin or member acts on.
type WorkspaceInstructionAccounts struct {
	Authority types.Pubkey
	Workspace types.Pubkey
}

func NewCreateWorkspaceInstruction(accounts *WorkspaceInstructionAccounts, args *NameArgs) svm.Instruction {
	user, collaborator := memberAddresses(accounts.Authority, accounts.Workspace)
	return newInstruction(InstructionCreateWorkspace, args,
		svm.Writable(accounts.Authority, true),
		svm.Writable(accounts.Workspace, true),
		svm.ReadOnly(user, false),
		svm.Writable(mustFind(workspaceStatsSeeds(accounts.Workspace)), false),
		svm.Writable(collaborator, false),
		svm.Writable(mustFind(budgetSeeds(accounts.Workspace)), false),
	)
}

func NewUpdateWorkspaceInstruction(accounts *WorkspaceInstructionAccounts, args *NameArgs) svm.Instruction {
	user, collaborator := memberAddresses(accounts.Authority, accounts.Workspace)
	return newInstruction(InstructionUpdateWorkspace, args,
		svm.ReadOnly(accounts.Authority, true),
		svm.Writable(accounts.Workspace, false),
		svm.ReadOnly(user, false),
		svm.ReadOnly(collaborator, false),
	)
}

func NewDeleteWorkspaceInstruction(accounts *WorkspaceInstructionAccounts) svm.Instruction {
	user, collaborator := memberAddresses(accounts.Authority, accounts.Workspace)
	return newInstruction(InstructionDeleteWorkspace, nil,
		svm.Writable(accounts.Authority, true),
		svm.Writable(accounts.Workspace, false),
		svm.ReadOnly(user, false),
		svm.Writable(collaborator, false),
		svm.Writable(mustFind(workspaceStatsSeeds(accounts.Workspace)), false),
		svm.Writable(mustFind(budgetSeeds(accounts.Workspace)), false),
	)
}

func NewDepositToBudgetInstruction(accounts *WorkspaceInstructionAccounts, args *DepositArgs) svm.Instruction {
	return newInstruction(InstructionDepositToBudget, args,
		svm.Writable(accounts.Authority, true),
		svm.ReadOnly(accounts.Workspace, false),
		svm.Writable(mustFind(budgetSeeds(accounts.Workspace)), false),
	)
}

// CollaboratorInstructionAccounts names a workspace member by wallet.
type CollaboratorInstructionAccounts struct {
	Authority types.Pubkey
	Workspace types.Pubkey
	Member    types.Pubkey
}

func NewCreateCollaboratorInstruction(accounts *CollaboratorInstructionAccounts) svm.Instruction {
	user, collaborator := memberAddresses(accounts.Member, accounts.Workspace)
	return newInstruction(InstructionCreateCollaborator, nil,
		svm.Writable(accounts.Authority, true),
		svm.ReadOnly(accounts.Workspace, false),
		svm.ReadOnly(user, false),
		svm.Writable(collaborator, false),
		svm.Writable(mustFind(workspaceStatsSeeds(accounts.Workspace)), false),
	)
}

func NewRequestCollaboratorStatusInstruction(accounts *WorkspaceInstructionAccounts) svm.Instruction {
	user, collaborator := memberAddresses(accounts.Authority, accounts.Workspace)
	return newInstruction(InstructionRequestCollaboratorStatus, nil,
		svm.Writable(accounts.Authority, true),
		svm.ReadOnly(accounts.Workspace, false),
		svm.ReadOnly(user, false),
		svm.Writable(collaborator, false),
		svm.Writable(mustFind(workspaceStatsSeeds(accounts.Workspace)), false),
	)
}

func NewRetryCollaboratorStatusRequestInstruction(accounts *WorkspaceInstructionAccounts) svm.Instruction {
	user, collaborator := memberAddresses(accounts.Authority, accounts.Workspace)
	return newInstruction(InstructionRetryCollaboratorStatusRequest, nil,
		svm.ReadOnly(accounts.Authority, true),
		svm.ReadOnly(accounts.Workspace, false),
		svm.ReadOnly(user, false),
		svm.Writable(collaborator, false),
	)
}

func NewUpdateCollaboratorInstruction(accounts *CollaboratorInstructionAccounts, args *CollaboratorStatusArgs) svm.Instruction {
	_, collaborator := memberAddresses(accounts.Member, accounts.Workspace)
	return newInstruction(InstructionUpdateCollaborator, args,
		svm.ReadOnly(accounts.Authority, true),
		svm.ReadOnly(accounts.Workspace, false),
		svm.Writable(collaborator, false),
	)
}

func NewDeleteCollaboratorInstruction(accounts *CollaboratorInstructionAccounts) svm.Instruction {
	_, collaborator := memberAddresses(accounts.Member, accounts.Workspace)
	return newInstruction(InstructionDeleteCollaborator, nil,
		svm.Writable(accounts.Authority, true),
		svm.ReadOnly(accounts.Workspace, false),
		svm.Writable(collaborator, false),
		svm.Writable(mustFind(workspaceStatsSeeds(accounts.Workspace)), false),
	)
}

type ApplicationInstructionAccounts struct {
	Authority   types.Pubkey
	Workspace   types.Pubkey
	Application types.Pubkey
}

func NewCreateApplicationInstruction(accounts *ApplicationInstructionAccounts, args *NameArgs) svm.Instruction {
	user, collaborator := memberAddresses(accounts.Authority, accounts.Workspace)
	return newInstruction(InstructionCreateApplication, args,
		svm.ReadOnly(accounts.Authority, true),
		svm.ReadOnly(accounts.Workspace, false),
		svm.Writable(accounts.Application, true),
		svm.Writable(mustFind(applicationStatsSeeds(accounts.Application)), false),
		svm.ReadOnly(user, false),
		svm.ReadOnly(collaborator, false),
		svm.Writable(mustFind(budgetSeeds(accounts.Workspace)), false),
		svm.Writable(mustFind(workspaceStatsSeeds(accounts.Workspace)), false),
	)
}

func NewUpdateApplicationInstruction(accounts *ApplicationInstructionAccounts, args *NameArgs) svm.Instruction {
	user, collaborator := memberAddresses(accounts.Authority, accounts.Workspace)
	return newInstruction(InstructionUpdateApplication, args,
		svm.ReadOnly(accounts.Authority, true),
		svm.ReadOnly(accounts.Workspace, false),
		svm.Writable(accounts.Application, false),
		svm.ReadOnly(user, false),
		svm.ReadOnly(collaborator, false),
	)
}

func NewDeleteApplicationInstruction(accounts *ApplicationInstructionAccounts) svm.Instruction {
	user, collaborator := memberAddresses(accounts.Authority, accounts.Workspace)
	return newInstruction(InstructionDeleteApplication, nil,
		svm.ReadOnly(accounts.Authority, true),
		svm.ReadOnly(accounts.Workspace, false),
		svm.Writable(accounts.Application, false),
		svm.Writable(mustFind(applicationStatsSeeds(accounts.Application)), false),
		svm.ReadOnly(user, false),
		svm.ReadOnly(collaborator, false),
		svm.Writable(mustFind(budgetSeeds(accounts.Workspace)), false),
		svm.Writable(mustFind(workspaceStatsSeeds(accounts.Workspace)), false),
	)
}

type CollectionInstructionAccounts struct {
	Authority   types.Pubkey
	Workspace   types.Pubkey
	Application types.Pubkey
	Collection  types.Pubkey
}

func NewCreateCollectionInstruction(accounts *CollectionInstructionAccounts, args *NameArgs) svm.Instruction {
	user, collaborator := memberAddresses(accounts.Authority, accounts.Workspace)
	return newInstruction(InstructionCreateCollection, args,
		svm.ReadOnly(accounts.Authority, true),
		svm.ReadOnly(accounts.Workspace, false),
		svm.ReadOnly(accounts.Application, false),
		svm.Writable(accounts.Collection, true),
		svm.Writable(mustFind(collectionStatsSeeds(accounts.Collection)), false),
		svm.ReadOnly(user, false),
		svm.ReadOnly(collaborator, false),
		svm.Writable(mustFind(budgetSeeds(accounts.Workspace)), false),
		svm.Writable(mustFind(applicationStatsSeeds(accounts.Application)), false),
	)
}

func NewUpdateCollectionInstruction(accounts *CollectionInstructionAccounts, args *NameArgs) svm.Instruction {
	user, collaborator := memberAddresses(accounts.Authority, accounts.Workspace)
	return newInstruction(InstructionUpdateCollection, args,
		svm.ReadOnly(accounts.Authority, true),
		svm.ReadOnly(accounts.Workspace, false),
		svm.Writable(accounts.Collection, false),
		svm.ReadOnly(user, false),
		svm.ReadOnly(collaborator, false),
	)
}

func NewDeleteCollectionInstruction(accounts *CollectionInstructionAccounts) svm.Instruction {
	user, collaborator := memberAddresses(accounts.Authority, accounts.Workspace)
	return newInstruction(InstructionDeleteCollection, nil,
		svm.ReadOnly(accounts.Authority, true),
		svm.ReadOnly(accounts.Workspace, false),
		svm.ReadOnly(accounts.Application, false),
		svm.Writable(accounts.Collection, false),
		svm.Writable(mustFind(collectionStatsSeeds(accounts.Collection)), false),
		svm.ReadOnly(user, false),
		svm.ReadOnly(collaborator, false),
		svm.Writable(mustFind(budgetSeeds(accounts.Workspace)), false),
		svm.Writable(mustFind(applicationStatsSeeds(accounts.Application)), false),
	)
}

type CollectionAttributeInstructionAccounts struct {
	Authority   types.Pubkey
	Workspace   types.Pubkey
	Application types.Pubkey
	Collection  types.Pubkey
	Attribute   types.Pubkey
}

func NewCreateCollectionAttributeInstruction(accounts *CollectionAttributeInstructionAccounts, dto *AttributeDto) svm.Instruction {
	user, collaborator := memberAddresses(accounts.Authority, accounts.Workspace)
	return newInstruction(InstructionCreateCollectionAttribute, dto,
		svm.ReadOnly(accounts.Authority, true),
		svm.ReadOnly(accounts.Workspace, false),
		svm.ReadOnly(accounts.Application, false),
		svm.ReadOnly(accounts.Collection, false),
		svm.Writable(accounts.Attribute, true),
		svm.ReadOnly(user, false),
		svm.ReadOnly(collaborator, false),
		svm.Writable(mustFind(budgetSeeds(accounts.Workspace)), false),
		svm.Writable(mustFind(collectionStatsSeeds(accounts.Collection)), false),
	)
}

func NewUpdateCollectionAttributeInstruction(accounts *CollectionAttributeInstructionAccounts, dto *AttributeDto) svm.Instruction {
	user, collaborator := memberAddresses(accounts.Authority, accounts.Workspace)
	return newInstruction(InstructionUpdateCollectionAttribute, dto,
		svm.ReadOnly(accounts.Authority, true),
		svm.ReadOnly(accounts.Workspace, false),
		svm.Writable(accounts.Attribute, false),
		svm.ReadOnly(user, false),
		svm.ReadOnly(collaborator, false),
	)
}

func NewDeleteCollectionAttributeInstruction(accounts *CollectionAttributeInstructionAccounts) svm.Instruction {
	user, collaborator := memberAddresses(accounts.Authority, accounts.Workspace)
	return newInstruction(InstructionDeleteCollectionAttribute, nil,
		svm.ReadOnly(accounts.Authority, true),
		svm.ReadOnly(accounts.Workspace, false),
		svm.ReadOnly(accounts.Collection, false),
		svm.Writable(accounts.Attribute, false),
		svm.ReadOnly(user, false),
		svm.ReadOnly(collaborator, false),
		svm.Writable(mustFind(budgetSeeds(accounts.Workspace)), false),
		svm.Writable(mustFind(collectionStatsSeeds(accounts.Collection)), false),
	)
}

type InstructionInstructionAccounts struct {
	Authority   types.Pubkey
	Workspace   types.Pubkey
	Application types.Pubkey
	Instruction types.Pubkey
}

func NewCreateInstructionInstruction(accounts *InstructionInstructionAccounts, args *NameArgs) svm.Instruction {
	user, collaborator := memberAddresses(accounts.Authority, accounts.Workspace)
	return newInstruction(InstructionCreateInstruction, args,
		svm.ReadOnly(accounts.Authority, true),
		svm.ReadOnly(accounts.Workspace, false),
		svm.ReadOnly(accounts.Application, false),
		svm.Writable(accounts.Instruction, true),
		svm.Writable(mustFind(instructionStatsSeeds(accounts.Instruction)), false),
		svm.ReadOnly(user, false),
		svm.ReadOnly(collaborator, false),
		svm.Writable(mustFind(budgetSeeds(accounts.Workspace)), false),
		svm.Writable(mustFind(applicationStatsSeeds(accounts.Application)), false),
	)
}

func NewUpdateInstructionInstruction(accounts *InstructionInstructionAccounts, args *NameArgs) svm.Instruction {
	user, collaborator := memberAddresses(accounts.Authority, accounts.Workspace)
	return newInstruction(InstructionUpdateInstruction, args,
		svm.ReadOnly(accounts.Authority, true),
		svm.ReadOnly(accounts.Workspace, false),
		svm.Writable(accounts.Instruction, false),
		svm.ReadOnly(user, false),
		svm.ReadOnly(collaborator, false),
	)
}

func NewUpdateInstructionBodyInstruction(accounts *InstructionInstructionAccounts, args *BodyArgs) svm.Instruction {
	user, collaborator := memberAddresses(accounts.Authority, accounts.Workspace)
	return newInstruction(InstructionUpdateInstructionBody, args,
		svm.ReadOnly(accounts.Authority, true),
		svm.ReadOnly(accounts.Workspace, false),
		svm.Writable(accounts.Instruction, false),
		svm.ReadOnly(user, false),
		svm.ReadOnly(collaborator, false),
		svm.Writable(mustFind(budgetSeeds(accounts.Workspace)), false),
	)
}

func NewDeleteInstructionInstruction(accounts *InstructionInstructionAccounts) svm.Instruction {
	user, collaborator := memberAddresses(accounts.Authority, accounts.Workspace)
	return newInstruction(InstructionDeleteInstruction, nil,
		svm.ReadOnly(accounts.Authority, true),
		svm.ReadOnly(accounts.Workspace, false),
		svm.ReadOnly(accounts.Application, false),
		svm.Writable(accounts.Instruction, false),
		svm.Writable(mustFind(instructionStatsSeeds(accounts.Instruction)), false),
		svm.ReadOnly(user, false),
		svm.ReadOnly(collaborator, false),
		svm.Writable(mustFind(budgetSeeds(accounts.Workspace)), false),
		svm.Writable(mustFind(applicationStatsSeeds(accounts.Application)), false),
	)
}

type InstructionArgumentInstructionAccounts struct {
	Authority   types.Pubkey
	Workspace   types.Pubkey
	Application types.Pubkey
	Instruction types.Pubkey
	Argument    types.Pubkey
}

func NewCreateInstructionArgumentInstruction(accounts *InstructionArgumentInstructionAccounts, dto *AttributeDto) svm.Instruction {
	user, collaborator := memberAddresses(accounts.Authority, accounts.Workspace)
	return newInstruction(InstructionCreateInstructionArgument, dto,
		svm.ReadOnly(accounts.Authority, true),
		svm.ReadOnly(accounts.Workspace, false),
		svm.ReadOnly(accounts.Application, false),
		svm.ReadOnly(accounts.Instruction, false),
		svm.Writable(accounts.Argument, true),
		svm.ReadOnly(user, false),
		svm.ReadOnly(collaborator, false),
		svm.Writable(mustFind(budgetSeeds(accounts.Workspace)), false),
		svm.Writable(mustFind(instructionStatsSeeds(accounts.Instruction)), false),
	)
}

func NewUpdateInstructionArgumentInstruction(accounts *InstructionArgumentInstructionAccounts, dto *AttributeDto) svm.Instruction {
	user, collaborator := memberAddresses(accounts.Authority, accounts.Workspace)
	return newInstruction(InstructionUpdateInstructionArgument, dto,
		svm.ReadOnly(accounts.Authority, true),
		svm.ReadOnly(accounts.Workspace, false),
		svm.Writable(accounts.Argument, false),
		svm.ReadOnly(user, false),
		svm.ReadOnly(collaborator, false),
	)
}

func NewDeleteInstructionArgumentInstruction(accounts *InstructionArgumentInstructionAccounts) svm.Instruction {
	user, collaborator := memberAddresses(accounts.Authority, accounts.Workspace)
	return newInstruction(InstructionDeleteInstructionArgument, nil,
		svm.ReadOnly(accounts.Authority, true),
		svm.ReadOnly(accounts.Workspace, false),
		svm.ReadOnly(accounts.Instruction, false),
		svm.Writable(accounts.Argument, false),
		svm.ReadOnly(user, false),
		svm.ReadOnly(collaborator, false),
		svm.Writable(mustFind(budgetSeeds(accounts.Workspace)), false),
		svm.Writable(mustFind(instructionStatsSeeds(accounts.Instruction)), false),
	)
}

// InstructionAccountInstructionAccounts names an instruction account and
// its optional references. Nil references are sent as the program address.
type InstructionAccountInstructionAccounts struct {
	Authority   types.Pubkey
	Workspace   types.Pubkey
	Application types.Pubkey
	Instruction types.Pubkey
	Account     types.Pubkey
	Collection  *types.Pubkey
	Payer       *types.Pubkey
	Close       *types.Pubkey
}

func NewCreateInstructionAccountInstruction(accounts *InstructionAccountInstructionAccounts, dto *AccountDto) svm.Instruction {
	user, collaborator := memberAddresses(accounts.Authority, accounts.Workspace)
	return newInstruction(InstructionCreateInstructionAccount, dto,
		svm.ReadOnly(accounts.Authority, true),
		svm.ReadOnly(accounts.Workspace, false),
		svm.ReadOnly(accounts.Application, false),
		svm.ReadOnly(accounts.Instruction, false),
		svm.Writable(accounts.Account, true),
		svm.Writable(mustFind(instructionAccountStatsSeeds(accounts.Account)), false),
		svm.ReadOnly(user, false),
		svm.ReadOnly(collaborator, false),
		svm.Writable(mustFind(budgetSeeds(accounts.Workspace)), false),
		svm.Writable(mustFind(instructionStatsSeeds(accounts.Instruction)), false),
		optionalMeta(accounts.Collection),
		optionalMeta(accounts.Payer),
		optionalMeta(accounts.Close),
	)
}

func NewUpdateInstructionAccountInstruction(accounts *InstructionAccountInstructionAccounts, dto *AccountDto) svm.Instruction {
	user, collaborator := memberAddresses(accounts.Authority, accounts.Workspace)
	return newInstruction(InstructionUpdateInstructionAccount, dto,
		svm.ReadOnly(accounts.Authority, true),
		svm.ReadOnly(accounts.Workspace, false),
		svm.Writable(accounts.Account, false),
		svm.ReadOnly(user, false),
		svm.ReadOnly(collaborator, false),
		optionalMeta(accounts.Collection),
		optionalMeta(accounts.Payer),
		optionalMeta(accounts.Close),
	)
}

func NewDeleteInstructionAccountInstruction(accounts *InstructionAccountInstructionAccounts) svm.Instruction {
	user, collaborator := memberAddresses(accounts.Authority, accounts.Workspace)
	return newInstruction(InstructionDeleteInstructionAccount, nil,
		svm.ReadOnly(accounts.Authority, true),
		svm.ReadOnly(accounts.Workspace, false),
		svm.ReadOnly(accounts.Instruction, false),
		svm.Writable(accounts.Account, false),
		svm.Writable(mustFind(instructionAccountStatsSeeds(accounts.Account)), false),
		svm.ReadOnly(user, false),
		svm.ReadOnly(collaborator, false),
		svm.Writable(mustFind(budgetSeeds(accounts.Workspace)), false),
		svm.Writable(mustFind(instructionStatsSeeds(accounts.Instruction)), false),
	)
}

type InstructionRelationInstructionAccounts struct {
	Authority   types.Pubkey
	Workspace   types.Pubkey
	Application types.Pubkey
	Instruction types.Pubkey
	From        types.Pubkey
	To          types.Pubkey
}

func NewCreateInstructionRelationInstruction(accounts *InstructionRelationInstructionAccounts) svm.Instruction {
	user, collaborator := memberAddresses(accounts.Authority, accounts.Workspace)
	return newInstruction(InstructionCreateInstructionRelation, nil,
		svm.ReadOnly(accounts.Authority, true),
		svm.ReadOnly(accounts.Workspace, false),
		svm.ReadOnly(accounts.Application, false),
		svm.ReadOnly(accounts.Instruction, false),
		svm.Writable(mustFind(instructionRelationSeeds(accounts.From, accounts.To)), false),
		svm.ReadOnly(accounts.From, false),
		svm.ReadOnly(accounts.To, false),
		svm.Writable(mustFind(instructionAccountStatsSeeds(accounts.From)), false),
		svm.Writable(mustFind(instructionAccountStatsSeeds(accounts.To)), false),
		svm.ReadOnly(user, false),
		svm.ReadOnly(collaborator, false),
		svm.Writable(mustFind(budgetSeeds(accounts.Workspace)), false),
	)
}

func NewUpdateInstructionRelationInstruction(accounts *InstructionRelationInstructionAccounts) svm.Instruction {
	user, collaborator := memberAddresses(accounts.Authority, accounts.Workspace)
	return newInstruction(InstructionUpdateInstructionRelation, nil,
		svm.ReadOnly(accounts.Authority, true),
		svm.ReadOnly(accounts.Workspace, false),
		svm.ReadOnly(accounts.Instruction, false),
		svm.Writable(mustFind(instructionRelationSeeds(accounts.From, accounts.To)), false),
		svm.ReadOnly(accounts.From, false),
		svm.ReadOnly(accounts.To, false),
		svm.ReadOnly(user, false),
		svm.ReadOnly(collaborator, false),
	)
}

func NewDeleteInstructionRelationInstruction(accounts *InstructionRelationInstructionAccounts) svm.Instruction {
	user, collaborator := memberAddresses(accounts.Authority, accounts.Workspace)
	return newInstruction(InstructionDeleteInstructionRelation, nil,
		svm.ReadOnly(accounts.Authority, true),
		svm.ReadOnly(accounts.Workspace, false),
		svm.ReadOnly(accounts.Instruction, false),
		svm.Writable(mustFind(instructionRelationSeeds(accounts.From, accounts.To)), false),
		svm.ReadOnly(accounts.From, false),
		svm.ReadOnly(accounts.To, false),
		svm.Writable(mustFind(instructionAccountStatsSeeds(accounts.From)), false),
		svm.Writable(mustFind(instructionAccountStatsSeeds(accounts.To)), false),
		svm.ReadOnly(user, false),
		svm.ReadOnly(collaborator, false),
		svm.Writable(mustFind(budgetSeeds(accounts.Workspace)), false),
	)
}

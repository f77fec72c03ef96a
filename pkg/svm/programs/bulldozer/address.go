package bulldozer

import (
	"github.com/fortiblox/X1-Bulldozer/internal/types"
	"github.com/fortiblox/X1-Bulldozer/pkg/svm"
	"github.com/fortiblox/X1-Bulldozer/pkg/svm/pda"
)

var (
	UserPrefix                    = []byte("user")
	BudgetPrefix                  = []byte("budget")
	WorkspaceStatsPrefix          = []byte("workspace_stats")
	CollaboratorPrefix            = []byte("collaborator")
	ApplicationStatsPrefix        = []byte("application_stats")
	CollectionStatsPrefix         = []byte("collection_stats")
	InstructionStatsPrefix        = []byte("instruction_stats")
	InstructionAccountStatsPrefix = []byte("instruction_account_stats")
	InstructionRelationPrefix     = []byte("instruction_relation")
)

func userSeeds(authority types.Pubkey) [][]byte {
	return [][]byte{UserPrefix, authority.Bytes()}
}

func budgetSeeds(workspace types.Pubkey) [][]byte {
	return [][]byte{BudgetPrefix, workspace.Bytes()}
}

func workspaceStatsSeeds(workspace types.Pubkey) [][]byte {
	return [][]byte{WorkspaceStatsPrefix, workspace.Bytes()}
}

func collaboratorSeeds(workspace, user types.Pubkey) [][]byte {
	return [][]byte{CollaboratorPrefix, workspace.Bytes(), user.Bytes()}
}

func applicationStatsSeeds(application types.Pubkey) [][]byte {
	return [][]byte{ApplicationStatsPrefix, application.Bytes()}
}

func collectionStatsSeeds(collection types.Pubkey) [][]byte {
	return [][]byte{CollectionStatsPrefix, collection.Bytes()}
}

func instructionStatsSeeds(instruction types.Pubkey) [][]byte {
	return [][]byte{InstructionStatsPrefix, instruction.Bytes()}
}

func instructionAccountStatsSeeds(account types.Pubkey) [][]byte {
	return [][]byte{InstructionAccountStatsPrefix, account.Bytes()}
}

func instructionRelationSeeds(from, to types.Pubkey) [][]byte {
	return [][]byte{InstructionRelationPrefix, from.Bytes(), to.Bytes()}
}

func findAddress(seeds [][]byte, meter *svm.ComputeMeter) (types.Pubkey, uint8, error) {
	return pda.FindProgramAddress(seeds, types.BulldozerProgramAddr, meter)
}

// GetUserAddress returns the profile address of a wallet.
func GetUserAddress(authority types.Pubkey) (types.Pubkey, uint8, error) {
	return findAddress(userSeeds(authority), nil)
}

// GetBudgetAddress returns the budget address of a workspace.
func GetBudgetAddress(workspace types.Pubkey) (types.Pubkey, uint8, error) {
	return findAddress(budgetSeeds(workspace), nil)
}

// GetWorkspaceStatsAddress returns the stats address of a workspace.
func GetWorkspaceStatsAddress(workspace types.Pubkey) (types.Pubkey, uint8, error) {
	return findAddress(workspaceStatsSeeds(workspace), nil)
}

// GetCollaboratorAddress returns the membership address of a user in a workspace.
func GetCollaboratorAddress(workspace, user types.Pubkey) (types.Pubkey, uint8, error) {
	return findAddress(collaboratorSeeds(workspace, user), nil)
}

func GetApplicationStatsAddress(application types.Pubkey) (types.Pubkey, uint8, error) {
	return findAddress(applicationStatsSeeds(application), nil)
}

func GetCollectionStatsAddress(collection types.Pubkey) (types.Pubkey, uint8, error) {
	return findAddress(collectionStatsSeeds(collection), nil)
}

func GetInstructionStatsAddress(instruction types.Pubkey) (types.Pubkey, uint8, error) {
	return findAddress(instructionStatsSeeds(instruction), nil)
}

func GetInstructionAccountStatsAddress(account types.Pubkey) (types.Pubkey, uint8, error) {
	return findAddress(instructionAccountStatsSeeds(account), nil)
}

// GetInstructionRelationAddress returns the address of the edge from -> to.
func GetInstructionRelationAddress(from, to types.Pubkey) (types.Pubkey, uint8, error) {
	return findAddress(instructionRelationSeeds(from, to), nil)
}

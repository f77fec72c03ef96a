package bulldozer

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Codes are part of the wire contract and must never move.
var stableCodes = map[uint32]string{
	101:  "InstructionFallbackNotFound",
	102:  "InstructionDidNotDeserialize",
	2001: "ConstraintHasOne",
	2006: "ConstraintSeeds",
	3001: "AccountDiscriminatorNotFound",
	3002: "AccountDiscriminatorMismatch",
	3003: "AccountDidNotDeserialize",
	3005: "AccountNotEnoughKeys",
	3006: "AccountNotMutable",
	3007: "AccountOwnedByWrongProgram",
	3010: "AccountNotSigner",
	3012: "AccountNotInitialized",
	3100: "AccountAlreadyInUse",
	3101: "InsufficientFunds",
	3102: "InvalidRealloc",
	6000: "InvalidAttributeKind",
	6001: "InvalidAttributeModifier",
	6002: "InvalidAccountKind",
	6003: "InvalidAccountModifier",
	6004: "MissingCollectionAccount",
	6005: "MissingPayerAccount",
	6006: "MissingCloseAccount",
	6007: "MissingAccountSpace",
	6008: "NameTooLong",
	6009: "BodyTooLong",
	6010: "MissingMaxLength",
	6011: "MissingMax",
	6012: "MissingModifierSize",
	6013: "CantDeleteCollectionWithAttributes",
	6014: "CantDeleteAccountWithRelations",
	6015: "CantRelateAccountToItself",
	6016: "CantDeleteInstructionWithArguments",
	6017: "PayerMustBeSigner",
	6018: "CantDeleteInstructionWithAccounts",
	6019: "AccountReferencesItself",
	6020: "CantDeleteApplicationWithCollections",
	6021: "InvalidName",
	6022: "CantDeleteApplicationWithInstructions",
	6023: "InvalidDepositAmount",
	6024: "CantDeleteWorkspaceWithApplications",
	6025: "CantDeleteWorkspaceWithCollaborators",
	6026: "InvalidCollaboratorStatus",
	6027: "BudgetHasUnsufficientFunds",
	6028: "CollaboratorStatusNotRejected",
	6029: "CollaboratorStatusNotApproved",
	6030: "CollaboratorDoesNotBelongToWorkspace",
	6031: "CollaboratorDoesNotBelongToUser",
	6032: "StatsCounterOutOfRange",
	6033: "ApplicationDoesNotBelongToWorkspace",
	6034: "CollectionDoesNotBelongToWorkspace",
	6035: "CollectionDoesNotBelongToApplication",
	6036: "AttributeDoesNotBelongToWorkspace",
	6037: "AttributeDoesNotBelongToCollection",
	6038: "InstructionDoesNotBelongToWorkspace",
	6039: "InstructionDoesNotBelongToApplication",
	6040: "ArgumentDoesNotBelongToWorkspace",
	6041: "ArgumentDoesNotBelongToInstruction",
	6042: "InstructionAccountDoesNotBelongToInstruction",
	6043: "InstructionAccountDoesNotBelongToWorkspace",
	6044: "InstructionAccountDoesNotBelongToApplication",
	6045: "OnlyWorkspaceAdminCanUpdate",
	6046: "OnlyWorkspaceAdminCanDelete",
	6047: "OnlyWorkspaceAdminCanUpdateCollaborator",
	6048: "OnlyWorkspaceAdminCanDeleteCollaborator",
	6049: "OnlyWorkspaceAdminCanCreateCollaborator",
	6050: "CantDeleteAdminCollaborator",
	6051: "CantUpdateAdminCollaborator",
	6052: "RelationDoesNotBelongToInstruction",
	6053: "UrlTooLong",
}

func TestErrorCodesStable(t *testing.T) {
	catalog := Catalog()
	require.Len(t, catalog, len(stableCodes))
	for _, e := range catalog {
		assert.Equal(t, stableCodes[e.Code], e.Name, "code %d", e.Code)
	}
	for i := 1; i < len(catalog); i++ {
		assert.Less(t, catalog[i-1].Code, catalog[i].Code)
	}
}

func TestCodeOf(t *testing.T) {
	code, ok := CodeOf(errors.Wrap(ErrBudgetHasUnsufficientFunds, "create collection"))
	assert.True(t, ok)
	assert.EqualValues(t, 6027, code)

	_, ok = CodeOf(errors.New("plain"))
	assert.False(t, ok)

	e, ok := ErrorFromCode(3012)
	require.True(t, ok)
	assert.Same(t, ErrAccountNotInitialized, e)
	assert.Contains(t, e.Error(), "Error Number: 3012")
}

func TestInstructionNames(t *testing.T) {
	names := InstructionNames()
	assert.Len(t, names, 34)
	assert.Len(t, routes, 34)

	assert.Equal(t, "CreateInstructionRelation", title(InstructionCreateInstructionRelation))
	assert.Equal(t, "DepositToBudget", title(InstructionDepositToBudget))

	d := instructionDiscriminator(InstructionUpdateInstructionBody)
	name, ok := InstructionName(append(d[:], 1, 2, 3))
	assert.True(t, ok)
	assert.Equal(t, InstructionUpdateInstructionBody, name)

	_, ok = InstructionName([]byte{1})
	assert.False(t, ok)
}

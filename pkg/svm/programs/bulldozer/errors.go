package bulldozer

import (
	"fmt"
	"sort"

	"github.com/pkg/errors"
)

// Error is a numbered program failure. Codes are stable: a code is never
// reassigned to a different condition.
type Error struct {
	Code uint32
	Name string
	Msg  string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("Error Code: %s. Error Number: %d. Error Message: %s.", e.Name, e.Code, e.Msg)
}

var catalog = map[uint32]*Error{}

func newError(code uint32, name, msg string) *Error {
	if _, ok := catalog[code]; ok {
		panic(fmt.Sprintf("duplicate program error code %d", code))
	}
	e := &Error{Code: code, Name: name, Msg: msg}
	catalog[code] = e
	return e
}

// Framework errors. Numbers follow the Anchor framework where one exists.
var (
	ErrInstructionFallbackNotFound  = newError(101, "InstructionFallbackNotFound", "Fallback functions are not supported")
	ErrInstructionDidNotDeserialize = newError(102, "InstructionDidNotDeserialize", "The program could not deserialize the given instruction")

	ErrConstraintHasOne = newError(2001, "ConstraintHasOne", "A has one constraint was violated")
	ErrConstraintSeeds  = newError(2006, "ConstraintSeeds", "A seeds constraint was violated")

	ErrAccountDiscriminatorNotFound = newError(3001, "AccountDiscriminatorNotFound", "No 8 byte discriminator was found on the account")
	ErrAccountDiscriminatorMismatch = newError(3002, "AccountDiscriminatorMismatch", "8 byte discriminator did not match what was expected")
	ErrAccountDidNotDeserialize     = newError(3003, "AccountDidNotDeserialize", "Failed to deserialize the account")
	ErrAccountNotEnoughKeys         = newError(3005, "AccountNotEnoughKeys", "Not enough account keys given to the instruction")
	ErrAccountNotMutable            = newError(3006, "AccountNotMutable", "The given account is not mutable")
	ErrAccountOwnedByWrongProgram   = newError(3007, "AccountOwnedByWrongProgram", "The given account is owned by a different program than expected")
	ErrAccountNotSigner             = newError(3010, "AccountNotSigner", "The given account did not sign")
	ErrAccountNotInitialized        = newError(3012, "AccountNotInitialized", "The program expected this account to be already initialized")
	ErrAccountAlreadyInUse          = newError(3100, "AccountAlreadyInUse", "The account is already initialized")
	ErrInsufficientFunds            = newError(3101, "InsufficientFunds", "The paying account has insufficient lamports")
	ErrInvalidRealloc               = newError(3102, "InvalidRealloc", "The account could not be resized")
)

// Program errors.
var (
	ErrInvalidAttributeKind     = newError(6000, "InvalidAttributeKind", "Invalid attribute kind")
	ErrInvalidAttributeModifier = newError(6001, "InvalidAttributeModifier", "Invalid attribute modifier")
	ErrInvalidAccountKind       = newError(6002, "InvalidAccountKind", "Invalid account kind")
	ErrInvalidAccountModifier   = newError(6003, "InvalidAccountModifier", "Invalid account modifier")
	ErrMissingCollectionAccount = newError(6004, "MissingCollectionAccount", "Document accounts require a collection")
	ErrMissingPayerAccount      = newError(6005, "MissingPayerAccount", "Init accounts require a payer")
	ErrMissingCloseAccount      = newError(6006, "MissingCloseAccount", "Close target was named but not supplied")
	ErrMissingAccountSpace      = newError(6007, "MissingAccountSpace", "Init accounts require space")
	ErrNameTooLong              = newError(6008, "NameTooLong", "Name exceeds the maximum length")
	ErrBodyTooLong              = newError(6009, "BodyTooLong", "Body exceeds the maximum length")
	ErrMissingMaxLength         = newError(6010, "MissingMaxLength", "String attributes require max length")
	ErrMissingMax               = newError(6011, "MissingMax", "Number attributes require max")
	ErrMissingModifierSize      = newError(6012, "MissingModifierSize", "Array and vector modifiers require size")

	ErrCantDeleteCollectionWithAttributes    = newError(6013, "CantDeleteCollectionWithAttributes", "Cannot delete collection with attributes")
	ErrCantDeleteAccountWithRelations        = newError(6014, "CantDeleteAccountWithRelations", "Cannot delete account with relations")
	ErrCantRelateAccountToItself             = newError(6015, "CantRelateAccountToItself", "Relation endpoints must differ")
	ErrCantDeleteInstructionWithArguments    = newError(6016, "CantDeleteInstructionWithArguments", "Cannot delete instruction with arguments")
	ErrPayerMustBeSigner                     = newError(6017, "PayerMustBeSigner", "Payer must reference a signer account")
	ErrCantDeleteInstructionWithAccounts     = newError(6018, "CantDeleteInstructionWithAccounts", "Cannot delete instruction with accounts")
	ErrAccountReferencesItself               = newError(6019, "AccountReferencesItself", "Payer or close cannot reference the account itself")
	ErrCantDeleteApplicationWithCollections  = newError(6020, "CantDeleteApplicationWithCollections", "Cannot delete application with collections")
	ErrInvalidName                           = newError(6021, "InvalidName", "Name must be non-empty UTF-8")
	ErrCantDeleteApplicationWithInstructions = newError(6022, "CantDeleteApplicationWithInstructions", "Cannot delete application with instructions")
	ErrInvalidDepositAmount                  = newError(6023, "InvalidDepositAmount", "Deposit amount must be positive")
	ErrCantDeleteWorkspaceWithApplications   = newError(6024, "CantDeleteWorkspaceWithApplications", "Cannot delete workspace with applications")
	ErrCantDeleteWorkspaceWithCollaborators  = newError(6025, "CantDeleteWorkspaceWithCollaborators", "Cannot delete workspace with collaborators")
	ErrInvalidCollaboratorStatus             = newError(6026, "InvalidCollaboratorStatus", "Invalid collaborator status")
	ErrBudgetHasUnsufficientFunds            = newError(6027, "BudgetHasUnsufficientFunds", "Budget has insufficient funds")
	ErrCollaboratorStatusNotRejected         = newError(6028, "CollaboratorStatusNotRejected", "Only rejected requests can be retried")
	ErrCollaboratorStatusNotApproved         = newError(6029, "CollaboratorStatusNotApproved", "Collaborator status is not approved")
	ErrCollaboratorDoesNotBelongToWorkspace  = newError(6030, "CollaboratorDoesNotBelongToWorkspace", "Collaborator does not belong to workspace")
	ErrCollaboratorDoesNotBelongToUser       = newError(6031, "CollaboratorDoesNotBelongToUser", "Collaborator does not belong to user")
	ErrStatsCounterOutOfRange                = newError(6032, "StatsCounterOutOfRange", "Stats counter would overflow or go negative")

	ErrApplicationDoesNotBelongToWorkspace          = newError(6033, "ApplicationDoesNotBelongToWorkspace", "Application does not belong to workspace")
	ErrCollectionDoesNotBelongToWorkspace           = newError(6034, "CollectionDoesNotBelongToWorkspace", "Collection does not belong to workspace")
	ErrCollectionDoesNotBelongToApplication         = newError(6035, "CollectionDoesNotBelongToApplication", "Collection does not belong to application")
	ErrAttributeDoesNotBelongToWorkspace            = newError(6036, "AttributeDoesNotBelongToWorkspace", "Attribute does not belong to workspace")
	ErrAttributeDoesNotBelongToCollection           = newError(6037, "AttributeDoesNotBelongToCollection", "Attribute does not belong to collection")
	ErrInstructionDoesNotBelongToWorkspace          = newError(6038, "InstructionDoesNotBelongToWorkspace", "Instruction does not belong to workspace")
	ErrInstructionDoesNotBelongToApplication        = newError(6039, "InstructionDoesNotBelongToApplication", "Instruction does not belong to application")
	ErrArgumentDoesNotBelongToWorkspace             = newError(6040, "ArgumentDoesNotBelongToWorkspace", "Argument does not belong to workspace")
	ErrArgumentDoesNotBelongToInstruction           = newError(6041, "ArgumentDoesNotBelongToInstruction", "Argument does not belong to instruction")
	ErrInstructionAccountDoesNotBelongToInstruction = newError(6042, "InstructionAccountDoesNotBelongToInstruction", "Instruction account does not belong to instruction")
	ErrInstructionAccountDoesNotBelongToWorkspace   = newError(6043, "InstructionAccountDoesNotBelongToWorkspace", "Instruction account does not belong to workspace")
	ErrInstructionAccountDoesNotBelongToApplication = newError(6044, "InstructionAccountDoesNotBelongToApplication", "Instruction account does not belong to application")

	ErrOnlyWorkspaceAdminCanUpdate             = newError(6045, "OnlyWorkspaceAdminCanUpdate", "Only the workspace admin can update it")
	ErrOnlyWorkspaceAdminCanDelete             = newError(6046, "OnlyWorkspaceAdminCanDelete", "Only the workspace admin can delete it")
	ErrOnlyWorkspaceAdminCanUpdateCollaborator = newError(6047, "OnlyWorkspaceAdminCanUpdateCollaborator", "Only the workspace admin can update collaborators")
	ErrOnlyWorkspaceAdminCanDeleteCollaborator = newError(6048, "OnlyWorkspaceAdminCanDeleteCollaborator", "Only the workspace admin can delete collaborators")
	ErrOnlyWorkspaceAdminCanCreateCollaborator = newError(6049, "OnlyWorkspaceAdminCanCreateCollaborator", "Only the workspace admin can create collaborators")
	ErrCantDeleteAdminCollaborator             = newError(6050, "CantDeleteAdminCollaborator", "The admin collaborator is removed with its workspace")
	ErrCantUpdateAdminCollaborator             = newError(6051, "CantUpdateAdminCollaborator", "The admin collaborator status cannot change")
	ErrRelationDoesNotBelongToInstruction      = newError(6052, "RelationDoesNotBelongToInstruction", "Relation does not belong to instruction")
	ErrUrlTooLong                              = newError(6053, "UrlTooLong", "URL exceeds the maximum length")
)

// ErrorFromCode returns the catalog entry for code.
func ErrorFromCode(code uint32) (*Error, bool) {
	e, ok := catalog[code]
	return e, ok
}

// CodeOf extracts the program error code from err, following wrapped causes.
func CodeOf(err error) (uint32, bool) {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Code, true
	}
	return 0, false
}

// Catalog returns every program error ordered by code.
func Catalog() []*Error {
	out := make([]*Error, 0, len(catalog))
	for _, e := range catalog {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

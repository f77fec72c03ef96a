// Package bulldozer implements the schema program: workspaces, their
// budgets and collaborators, and the applications, collections,
// instructions, arguments, accounts and relations that describe another
// program's interface.
//
// Every record is a program-owned account. Instructions are dispatched by
// an 8 byte discriminator followed by borsh-style arguments, and every
// failure is a numbered *Error from the catalog.
package bulldozer

import (
	"strings"

	"github.com/fortiblox/X1-Bulldozer/internal/types"
	"github.com/fortiblox/X1-Bulldozer/pkg/svm"
)

// Instruction names. Each discriminator is sha256("global:<name>")[:8].
const (
	InstructionCreateUser                     = "create_user"
	InstructionUpdateUser                     = "update_user"
	InstructionDeleteUser                     = "delete_user"
	InstructionCreateWorkspace                = "create_workspace"
	InstructionUpdateWorkspace                = "update_workspace"
	InstructionDeleteWorkspace                = "delete_workspace"
	InstructionDepositToBudget                = "deposit_to_budget"
	InstructionCreateCollaborator             = "create_collaborator"
	InstructionRequestCollaboratorStatus      = "request_collaborator_status"
	InstructionRetryCollaboratorStatusRequest = "retry_collaborator_status_request"
	InstructionUpdateCollaborator             = "update_collaborator"
	InstructionDeleteCollaborator             = "delete_collaborator"
	InstructionCreateApplication              = "create_application"
	InstructionUpdateApplication              = "update_application"
	InstructionDeleteApplication              = "delete_application"
	InstructionCreateCollection               = "create_collection"
	InstructionUpdateCollection               = "update_collection"
	InstructionDeleteCollection               = "delete_collection"
	InstructionCreateCollectionAttribute      = "create_collection_attribute"
	InstructionUpdateCollectionAttribute      = "update_collection_attribute"
	InstructionDeleteCollectionAttribute      = "delete_collection_attribute"
	InstructionCreateInstruction              = "create_instruction"
	InstructionUpdateInstruction              = "update_instruction"
	InstructionUpdateInstructionBody          = "update_instruction_body"
	InstructionDeleteInstruction              = "delete_instruction"
	InstructionCreateInstructionArgument      = "create_instruction_argument"
	InstructionUpdateInstructionArgument      = "update_instruction_argument"
	InstructionDeleteInstructionArgument      = "delete_instruction_argument"
	InstructionCreateInstructionAccount       = "create_instruction_account"
	InstructionUpdateInstructionAccount       = "update_instruction_account"
	InstructionDeleteInstructionAccount       = "delete_instruction_account"
	InstructionCreateInstructionRelation      = "create_instruction_relation"
	InstructionUpdateInstructionRelation      = "update_instruction_relation"
	InstructionDeleteInstructionRelation      = "delete_instruction_relation"
)

type handlerFunc func(r *request, data []byte) error

func withArgs[T any, PT interface {
	*T
	instructionArgs
}](fn func(*request, PT) error) handlerFunc {
	return func(r *request, data []byte) error {
		args := PT(new(T))
		if err := decodeArgs(data, args); err != nil {
			return err
		}
		return fn(r, args)
	}
}

func withoutArgs(fn func(*request) error) handlerFunc {
	return func(r *request, data []byte) error {
		if err := decodeArgs(data, noArgs{}); err != nil {
			return err
		}
		return fn(r)
	}
}

var handlers = map[string]handlerFunc{
	InstructionCreateUser:                     withArgs(createUser),
	InstructionUpdateUser:                     withArgs(updateUser),
	InstructionDeleteUser:                     withoutArgs(deleteUser),
	InstructionCreateWorkspace:                withArgs(createWorkspace),
	InstructionUpdateWorkspace:                withArgs(updateWorkspace),
	InstructionDeleteWorkspace:                withoutArgs(deleteWorkspace),
	InstructionDepositToBudget:                withArgs(depositToBudget),
	InstructionCreateCollaborator:             withoutArgs(createCollaborator),
	InstructionRequestCollaboratorStatus:      withoutArgs(requestCollaboratorStatus),
	InstructionRetryCollaboratorStatusRequest: withoutArgs(retryCollaboratorStatusRequest),
	InstructionUpdateCollaborator:             withArgs(updateCollaborator),
	InstructionDeleteCollaborator:             withoutArgs(deleteCollaborator),
	InstructionCreateApplication:              withArgs(createApplication),
	InstructionUpdateApplication:              withArgs(updateApplication),
	InstructionDeleteApplication:              withoutArgs(deleteApplication),
	InstructionCreateCollection:               withArgs(createCollection),
	InstructionUpdateCollection:               withArgs(updateCollection),
	InstructionDeleteCollection:               withoutArgs(deleteCollection),
	InstructionCreateCollectionAttribute:      withArgs(createCollectionAttribute),
	InstructionUpdateCollectionAttribute:      withArgs(updateCollectionAttribute),
	InstructionDeleteCollectionAttribute:      withoutArgs(deleteCollectionAttribute),
	InstructionCreateInstruction:              withArgs(createInstruction),
	InstructionUpdateInstruction:              withArgs(updateInstruction),
	InstructionUpdateInstructionBody:          withArgs(updateInstructionBody),
	InstructionDeleteInstruction:              withoutArgs(deleteInstruction),
	InstructionCreateInstructionArgument:      withArgs(createInstructionArgument),
	InstructionUpdateInstructionArgument:      withArgs(updateInstructionArgument),
	InstructionDeleteInstructionArgument:      withoutArgs(deleteInstructionArgument),
	InstructionCreateInstructionAccount:       withArgs(createInstructionAccount),
	InstructionUpdateInstructionAccount:       withArgs(updateInstructionAccount),
	InstructionDeleteInstructionAccount:       withoutArgs(deleteInstructionAccount),
	InstructionCreateInstructionRelation:      withoutArgs(createInstructionRelation),
	InstructionUpdateInstructionRelation:      withoutArgs(updateInstructionRelation),
	InstructionDeleteInstructionRelation:      withoutArgs(deleteInstructionRelation),
}

type route struct {
	name   string
	title  string
	handle handlerFunc
}

var routes = map[discriminator]route{}

func init() {
	for name, h := range handlers {
		routes[instructionDiscriminator(name)] = route{name: name, title: title(name), handle: h}
	}
}

// title turns create_user into CreateUser.
func title(name string) string {
	var sb strings.Builder
	for _, part := range strings.Split(name, "_") {
		if part == "" {
			continue
		}
		sb.WriteString(strings.ToUpper(part[:1]))
		sb.WriteString(part[1:])
	}
	return sb.String()
}

// InstructionName returns the name of the instruction encoded in data.
func InstructionName(data []byte) (string, bool) {
	if len(data) < discriminatorSize {
		return "", false
	}
	var d discriminator
	copy(d[:], data)
	rt, ok := routes[d]
	return rt.name, ok
}

// InstructionNames lists every instruction the program accepts.
func InstructionNames() []string {
	names := make([]string, 0, len(handlers))
	for name := range handlers {
		names = append(names, name)
	}
	return names
}

// Processor executes schema program instructions.
type Processor struct{}

// NewProcessor creates a new schema program processor.
func NewProcessor() *Processor {
	return &Processor{}
}

// ID implements svm.Program.
func (p *Processor) ID() types.Pubkey {
	return types.BulldozerProgramAddr
}

// Process implements svm.Program.
func (p *Processor) Process(ctx svm.InvokeContext, data []byte) error {
	if len(data) < discriminatorSize {
		return ErrInstructionFallbackNotFound
	}
	var d discriminator
	copy(d[:], data)
	rt, ok := routes[d]
	if !ok {
		return ErrInstructionFallbackNotFound
	}
	if err := ctx.Meter().Consume(svm.CUBulldozerProgramDefault); err != nil {
		return err
	}

	ctx.Log("Instruction: " + rt.title)
	return rt.handle(newRequest(ctx), data[discriminatorSize:])
}

var _ svm.Program = (*Processor)(nil)

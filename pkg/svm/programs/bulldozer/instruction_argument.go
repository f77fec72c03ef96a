package bulldozer

import "github.com/fortiblox/X1-Bulldozer/pkg/svm"

func (r *request) loadInstructionArgument(acc, wsAcc *svm.AccountInfo) (*InstructionArgument, error) {
	argument := &InstructionArgument{}
	if err := r.load(acc, argument); err != nil {
		return nil, err
	}
	if argument.Workspace != wsAcc.Key {
		return nil, ErrArgumentDoesNotBelongToWorkspace
	}
	return argument, nil
}

// createInstructionArgument accounts:
//
//	[0] authority         (signer)
//	[1] workspace
//	[2] application
//	[3] instruction
//	[4] argument          (signer, writable)
//	[5] user
//	[6] collaborator
//	[7] budget            (writable)
//	[8] instruction stats (writable)
func createInstructionArgument(r *request, dto *AttributeDto) error {
	authority, err := r.signer(0)
	if err != nil {
		return err
	}
	argumentAcc, err := r.signerMut(4)
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
	if _, err := r.loadApplication(appAcc, wsAcc); err != nil {
		return err
	}
	instruction, err := r.loadInstructionOf(instructionAcc, wsAcc, appAcc)
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
	argument := &InstructionArgument{
		Authority:   authority.Key,
		Workspace:   wsAcc.Key,
		Application: appAcc.Key,
		Instruction: instructionAcc.Key,
		Name:        dto.Name,
		CreatedAt:   r.now,
		UpdatedAt:   r.now,
	}
	if err := argument.apply(dto); err != nil {
		return err
	}
	if err := increment(&stats.QuantityOfArguments); err != nil {
		return err
	}

	if err := r.createFromBudget(budgetAcc, allocation{acc: argumentAcc, space: InstructionArgumentSize}); err != nil {
		return err
	}
	if err := r.store(argumentAcc, argument); err != nil {
		return err
	}
	return r.store(statsAcc, stats)
}

// updateInstructionArgument accounts:
//
//	[0] authority    (signer)
//	[1] workspace
//	[2] argument     (writable)
//	[3] user
//	[4] collaborator
func updateInstructionArgument(r *request, dto *AttributeDto) error {
	authority, err := r.signer(0)
	if err != nil {
		return err
	}
	wsAcc, err := r.account(1)
	if err != nil {
		return err
	}
	argumentAcc, err := r.mut(2)
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

	argument, err := r.loadInstructionArgument(argumentAcc, wsAcc)
	if err != nil {
		return err
	}
	if _, err := r.approvedMember(authority.Key, wsAcc.Key, userAcc, collaboratorAcc); err != nil {
		return err
	}
	if err := argument.apply(dto); err != nil {
		return err
	}

	argument.Name = dto.Name
	argument.UpdatedAt = r.now
	return r.store(argumentAcc, argument)
}

// deleteInstructionArgument accounts:
//
//	[0] authority         (signer)
//	[1] workspace
//	[2] instruction
//	[3] argument          (writable)
//	[4] user
//	[5] collaborator
//	[6] budget            (writable)
//	[7] instruction stats (writable)
func deleteInstructionArgument(r *request) error {
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
	argumentAcc, err := r.mut(3)
	if err != nil {
		return err
	}
	userAcc, err := r.account(4)
	if err != nil {
		return err
	}
	collaboratorAcc, err := r.account(5)
	if err != nil {
		return err
	}
	budgetAcc, err := r.account(6)
	if err != nil {
		return err
	}
	statsAcc, err := r.mut(7)
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
	argument, err := r.loadInstructionArgument(argumentAcc, wsAcc)
	if err != nil {
		return err
	}
	if argument.Instruction != instructionAcc.Key {
		return ErrArgumentDoesNotBelongToInstruction
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

	if err := decrement(&stats.QuantityOfArguments); err != nil {
		return err
	}
	if err := r.store(statsAcc, stats); err != nil {
		return err
	}
	return r.close(argumentAcc, budgetAcc)
}

package bulldozer

import "github.com/fortiblox/X1-Bulldozer/pkg/svm"

func (r *request) loadInstruction(acc, wsAcc *svm.AccountInfo) (*Instruction, error) {
	instruction := &Instruction{}
	if err := r.load(acc, instruction); err != nil {
		return nil, err
	}
	if instruction.Workspace != wsAcc.Key {
		return nil, ErrInstructionDoesNotBelongToWorkspace
	}
	return instruction, nil
}

// loadInstructionOf loads an instruction and checks it belongs to the
// application at appAcc.
func (r *request) loadInstructionOf(acc, wsAcc, appAcc *svm.AccountInfo) (*Instruction, error) {
	instruction, err := r.loadInstruction(acc, wsAcc)
	if err != nil {
		return nil, err
	}
	if instruction.Application != appAcc.Key {
		return nil, ErrInstructionDoesNotBelongToApplication
	}
	return instruction, nil
}

// createInstruction accounts:
//
//	[0] authority         (signer)
//	[1] workspace
//	[2] application
//	[3] instruction       (signer, writable)
//	[4] instruction stats (writable, pda)
//	[5] user
//	[6] collaborator
//	[7] budget            (writable)
//	[8] application stats (writable)
func createInstruction(r *request, args *NameArgs) error {
	authority, err := r.signer(0)
	if err != nil {
		return err
	}
	instructionAcc, err := r.signerMut(3)
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
	statsAcc, err := r.mut(4)
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
	appStatsAcc, err := r.mut(8)
	if err != nil {
		return err
	}

	ws := &Workspace{}
	if err := r.load(wsAcc, ws); err != nil {
		return err
	}
	app, err := r.loadApplication(appAcc, wsAcc)
	if err != nil {
		return err
	}
	statsBump, err := r.derive(statsAcc, instructionStatsSeeds(instructionAcc.Key))
	if err != nil {
		return err
	}
	if err := r.checkBudget(budgetAcc, wsAcc, ws); err != nil {
		return err
	}
	appStats := &ApplicationStats{}
	if err := r.loadAt(appStatsAcc, appStats, applicationStatsSeeds(appAcc.Key), app.StatsBump); err != nil {
		return err
	}
	if _, err := r.approvedMember(authority.Key, wsAcc.Key, userAcc, collaboratorAcc); err != nil {
		return err
	}
	if err := validateName(args.Name); err != nil {
		return err
	}
	if err := increment(&appStats.QuantityOfInstructions); err != nil {
		return err
	}

	if err := r.createFromBudget(budgetAcc,
		allocation{acc: instructionAcc, space: InstructionSize(0)},
		allocation{acc: statsAcc, space: InstructionStatsSize},
	); err != nil {
		return err
	}
	if err := r.store(instructionAcc, &Instruction{
		Authority:   authority.Key,
		Workspace:   wsAcc.Key,
		Application: appAcc.Key,
		Name:        args.Name,
		CreatedAt:   r.now,
		UpdatedAt:   r.now,
		StatsBump:   statsBump,
	}); err != nil {
		return err
	}
	if err := r.store(statsAcc, &InstructionStats{Bump: statsBump}); err != nil {
		return err
	}
	return r.store(appStatsAcc, appStats)
}

// updateInstruction accounts:
//
//	[0] authority    (signer)
//	[1] workspace
//	[2] instruction  (writable)
//	[3] user
//	[4] collaborator
func updateInstruction(r *request, args *NameArgs) error {
	authority, err := r.signer(0)
	if err != nil {
		return err
	}
	wsAcc, err := r.account(1)
	if err != nil {
		return err
	}
	instructionAcc, err := r.mut(2)
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

	instruction, err := r.loadInstruction(instructionAcc, wsAcc)
	if err != nil {
		return err
	}
	if _, err := r.approvedMember(authority.Key, wsAcc.Key, userAcc, collaboratorAcc); err != nil {
		return err
	}
	if err := validateName(args.Name); err != nil {
		return err
	}

	instruction.Name = args.Name
	instruction.UpdatedAt = r.now
	return r.store(instructionAcc, instruction)
}

// updateInstructionBody accounts:
//
//	[0] authority    (signer)
//	[1] workspace
//	[2] instruction  (writable)
//	[3] user
//	[4] collaborator
//	[5] budget       (writable)
//
// The record is resized to the new body. Growth is paid by the budget and
// shrinkage is refunded to it.
func updateInstructionBody(r *request, args *BodyArgs) error {
	authority, err := r.signer(0)
	if err != nil {
		return err
	}
	wsAcc, err := r.account(1)
	if err != nil {
		return err
	}
	instructionAcc, err := r.mut(2)
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
	budgetAcc, err := r.account(5)
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
	if err := r.checkBudget(budgetAcc, wsAcc, ws); err != nil {
		return err
	}
	if _, err := r.approvedMember(authority.Key, wsAcc.Key, userAcc, collaboratorAcc); err != nil {
		return err
	}
	if err := validateBody(args.Body); err != nil {
		return err
	}

	if err := r.resize(instructionAcc, budgetAcc, InstructionSize(len(args.Body))); err != nil {
		return err
	}
	instruction.Body = args.Body
	instruction.UpdatedAt = r.now
	return r.store(instructionAcc, instruction)
}

// deleteInstruction accounts:
//
//	[0] authority         (signer)
//	[1] workspace
//	[2] application
//	[3] instruction       (writable)
//	[4] instruction stats (writable)
//	[5] user
//	[6] collaborator
//	[7] budget            (writable)
//	[8] application stats (writable)
func deleteInstruction(r *request) error {
	authority, err := r.signer(0)
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
	instructionAcc, err := r.mut(3)
	if err != nil {
		return err
	}
	statsAcc, err := r.mut(4)
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
	appStatsAcc, err := r.mut(8)
	if err != nil {
		return err
	}

	ws := &Workspace{}
	if err := r.load(wsAcc, ws); err != nil {
		return err
	}
	app, err := r.loadApplication(appAcc, wsAcc)
	if err != nil {
		return err
	}
	instruction, err := r.loadInstructionOf(instructionAcc, wsAcc, appAcc)
	if err != nil {
		return err
	}
	stats := &InstructionStats{}
	if err := r.loadAt(statsAcc, stats, instructionStatsSeeds(instructionAcc.Key), instruction.StatsBump); err != nil {
		return err
	}
	if err := r.checkBudget(budgetAcc, wsAcc, ws); err != nil {
		return err
	}
	appStats := &ApplicationStats{}
	if err := r.loadAt(appStatsAcc, appStats, applicationStatsSeeds(appAcc.Key), app.StatsBump); err != nil {
		return err
	}
	if _, err := r.approvedMember(authority.Key, wsAcc.Key, userAcc, collaboratorAcc); err != nil {
		return err
	}
	if stats.QuantityOfArguments > 0 {
		return ErrCantDeleteInstructionWithArguments
	}
	if stats.QuantityOfAccounts > 0 {
		return ErrCantDeleteInstructionWithAccounts
	}

	if err := decrement(&appStats.QuantityOfInstructions); err != nil {
		return err
	}
	if err := r.store(appStatsAcc, appStats); err != nil {
		return err
	}
	if err := r.close(statsAcc, budgetAcc); err != nil {
		return err
	}
	return r.close(instructionAcc, budgetAcc)
}

package bulldozer

import "github.com/fortiblox/X1-Bulldozer/pkg/svm"

// loadEndpoint loads one side of a relation and checks it belongs to instruction.
func (r *request) loadEndpoint(acc *svm.AccountInfo, instruction *Instruction, instructionAcc *svm.AccountInfo) (*InstructionAccount, error) {
	endpoint := &InstructionAccount{}
	if err := r.load(acc, endpoint); err != nil {
		return nil, err
	}
	if err := checkSibling(endpoint, instruction.Workspace, instruction.Application, instructionAcc.Key); err != nil {
		return nil, err
	}
	return endpoint, nil
}

// createInstructionRelation accounts:
//
//	 [0] authority    (signer)
//	 [1] workspace
//	 [2] application
//	 [3] instruction
//	 [4] relation     (writable, pda "instruction_relation" + from + to)
//	 [5] from
//	 [6] to
//	 [7] from stats   (writable)
//	 [8] to stats     (writable)
//	 [9] user
//	[10] collaborator
//	[11] budget       (writable)
func createInstructionRelation(r *request) error {
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
	instructionAcc, err := r.account(3)
	if err != nil {
		return err
	}
	relationAcc, err := r.mut(4)
	if err != nil {
		return err
	}
	fromAcc, err := r.account(5)
	if err != nil {
		return err
	}
	toAcc, err := r.account(6)
	if err != nil {
		return err
	}
	fromStatsAcc, err := r.mut(7)
	if err != nil {
		return err
	}
	toStatsAcc, err := r.mut(8)
	if err != nil {
		return err
	}
	userAcc, err := r.account(9)
	if err != nil {
		return err
	}
	collaboratorAcc, err := r.account(10)
	if err != nil {
		return err
	}
	budgetAcc, err := r.account(11)
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
	if fromAcc.Key == toAcc.Key {
		return ErrCantRelateAccountToItself
	}
	from, err := r.loadEndpoint(fromAcc, instruction, instructionAcc)
	if err != nil {
		return err
	}
	to, err := r.loadEndpoint(toAcc, instruction, instructionAcc)
	if err != nil {
		return err
	}
	bump, err := r.derive(relationAcc, instructionRelationSeeds(fromAcc.Key, toAcc.Key))
	if err != nil {
		return err
	}
	fromStats := &InstructionAccountStats{}
	if err := r.loadAt(fromStatsAcc, fromStats, instructionAccountStatsSeeds(fromAcc.Key), from.StatsBump); err != nil {
		return err
	}
	toStats := &InstructionAccountStats{}
	if err := r.loadAt(toStatsAcc, toStats, instructionAccountStatsSeeds(toAcc.Key), to.StatsBump); err != nil {
		return err
	}
	if err := r.checkBudget(budgetAcc, wsAcc, ws); err != nil {
		return err
	}
	if _, err := r.approvedMember(authority.Key, wsAcc.Key, userAcc, collaboratorAcc); err != nil {
		return err
	}
	if err := increment(&fromStats.QuantityOfRelations); err != nil {
		return err
	}
	if err := increment(&toStats.QuantityOfRelations); err != nil {
		return err
	}

	if err := r.createFromBudget(budgetAcc, allocation{acc: relationAcc, space: InstructionRelationSize}); err != nil {
		return err
	}
	if err := r.store(relationAcc, &InstructionRelation{
		Authority:   authority.Key,
		Workspace:   wsAcc.Key,
		Application: appAcc.Key,
		Instruction: instructionAcc.Key,
		From:        fromAcc.Key,
		To:          toAcc.Key,
		CreatedAt:   r.now,
		UpdatedAt:   r.now,
		Bump:        bump,
	}); err != nil {
		return err
	}
	if err := r.store(fromStatsAcc, fromStats); err != nil {
		return err
	}
	return r.store(toStatsAcc, toStats)
}

// loadRelation loads a relation of instruction addressed by its endpoints.
func (r *request) loadRelation(acc, instructionAcc, fromAcc, toAcc *svm.AccountInfo) (*InstructionRelation, error) {
	relation := &InstructionRelation{}
	if err := r.load(acc, relation); err != nil {
		return nil, err
	}
	if relation.Instruction != instructionAcc.Key {
		return nil, ErrRelationDoesNotBelongToInstruction
	}
	if err := r.verify(acc, instructionRelationSeeds(fromAcc.Key, toAcc.Key), relation.Bump); err != nil {
		return nil, err
	}
	return relation, nil
}

// updateInstructionRelation accounts:
//
//	[0] authority    (signer)
//	[1] workspace
//	[2] instruction
//	[3] relation     (writable)
//	[4] from
//	[5] to
//	[6] user
//	[7] collaborator
//
// Relations carry no payload: the endpoints are re-validated and
// updatedAt is refreshed.
func updateInstructionRelation(r *request) error {
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
	relationAcc, err := r.mut(3)
	if err != nil {
		return err
	}
	fromAcc, err := r.account(4)
	if err != nil {
		return err
	}
	toAcc, err := r.account(5)
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

	instruction, err := r.loadInstruction(instructionAcc, wsAcc)
	if err != nil {
		return err
	}
	relation, err := r.loadRelation(relationAcc, instructionAcc, fromAcc, toAcc)
	if err != nil {
		return err
	}
	if _, err := r.loadEndpoint(fromAcc, instruction, instructionAcc); err != nil {
		return err
	}
	if _, err := r.loadEndpoint(toAcc, instruction, instructionAcc); err != nil {
		return err
	}
	if _, err := r.approvedMember(authority.Key, wsAcc.Key, userAcc, collaboratorAcc); err != nil {
		return err
	}

	relation.UpdatedAt = r.now
	return r.store(relationAcc, relation)
}

// deleteInstructionRelation accounts:
//
//	 [0] authority    (signer)
//	 [1] workspace
//	 [2] instruction
//	 [3] relation     (writable)
//	 [4] from
//	 [5] to
//	 [6] from stats   (writable)
//	 [7] to stats     (writable)
//	 [8] user
//	 [9] collaborator
//	[10] budget       (writable)
func deleteInstructionRelation(r *request) error {
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
	relationAcc, err := r.mut(3)
	if err != nil {
		return err
	}
	fromAcc, err := r.account(4)
	if err != nil {
		return err
	}
	toAcc, err := r.account(5)
	if err != nil {
		return err
	}
	fromStatsAcc, err := r.mut(6)
	if err != nil {
		return err
	}
	toStatsAcc, err := r.mut(7)
	if err != nil {
		return err
	}
	userAcc, err := r.account(8)
	if err != nil {
		return err
	}
	collaboratorAcc, err := r.account(9)
	if err != nil {
		return err
	}
	budgetAcc, err := r.account(10)
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
	if _, err := r.loadRelation(relationAcc, instructionAcc, fromAcc, toAcc); err != nil {
		return err
	}
	from, err := r.loadEndpoint(fromAcc, instruction, instructionAcc)
	if err != nil {
		return err
	}
	to, err := r.loadEndpoint(toAcc, instruction, instructionAcc)
	if err != nil {
		return err
	}
	fromStats := &InstructionAccountStats{}
	if err := r.loadAt(fromStatsAcc, fromStats, instructionAccountStatsSeeds(fromAcc.Key), from.StatsBump); err != nil {
		return err
	}
	toStats := &InstructionAccountStats{}
	if err := r.loadAt(toStatsAcc, toStats, instructionAccountStatsSeeds(toAcc.Key), to.StatsBump); err != nil {
		return err
	}
	if err := r.checkBudget(budgetAcc, wsAcc, ws); err != nil {
		return err
	}
	if _, err := r.approvedMember(authority.Key, wsAcc.Key, userAcc, collaboratorAcc); err != nil {
		return err
	}

	if err := decrement(&fromStats.QuantityOfRelations); err != nil {
		return err
	}
	if err := decrement(&toStats.QuantityOfRelations); err != nil {
		return err
	}
	if err := r.store(fromStatsAcc, fromStats); err != nil {
		return err
	}
	if err := r.store(toStatsAcc, toStats); err != nil {
		return err
	}
	return r.close(relationAcc, budgetAcc)
}

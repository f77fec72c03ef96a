package bulldozer

import (
	"github.com/fortiblox/X1-Bulldozer/pkg/svm"
	"github.com/fortiblox/X1-Bulldozer/pkg/svm/programs/system"
)

// createWorkspace accounts:
//
//	[0] authority       (signer, writable)
//	[1] workspace       (signer, writable)
//	[2] user
//	[3] workspace stats (writable, pda)
//	[4] collaborator    (writable, pda)
//	[5] budget          (writable, pda)
//
// The creator becomes the approved admin collaborator. Every account is
// paid for by the authority.
func createWorkspace(r *request, args *NameArgs) error {
	authority, err := r.signerMut(0)
	if err != nil {
		return err
	}
	wsAcc, err := r.signerMut(1)
	if err != nil {
		return err
	}
	userAcc, err := r.account(2)
	if err != nil {
		return err
	}
	statsAcc, err := r.mut(3)
	if err != nil {
		return err
	}
	collaboratorAcc, err := r.mut(4)
	if err != nil {
		return err
	}
	budgetAcc, err := r.mut(5)
	if err != nil {
		return err
	}

	user := &User{}
	if err := r.load(userAcc, user); err != nil {
		return err
	}
	if err := r.verify(userAcc, userSeeds(authority.Key), user.Bump); err != nil {
		return err
	}
	statsBump, err := r.derive(statsAcc, workspaceStatsSeeds(wsAcc.Key))
	if err != nil {
		return err
	}
	collaboratorBump, err := r.derive(collaboratorAcc, collaboratorSeeds(wsAcc.Key, userAcc.Key))
	if err != nil {
		return err
	}
	budgetBump, err := r.derive(budgetAcc, budgetSeeds(wsAcc.Key))
	if err != nil {
		return err
	}
	if err := validateName(args.Name); err != nil {
		return err
	}

	for _, a := range []allocation{
		{acc: wsAcc, space: WorkspaceSize},
		{acc: statsAcc, space: WorkspaceStatsSize},
		{acc: collaboratorAcc, space: CollaboratorSize},
		{acc: budgetAcc, space: BudgetSize},
	} {
		if err := r.createPaid(authority, a.acc, a.space); err != nil {
			return err
		}
	}

	if err := r.store(wsAcc, &Workspace{
		Authority:  authority.Key,
		Name:       args.Name,
		CreatedAt:  r.now,
		UpdatedAt:  r.now,
		BudgetBump: budgetBump,
		StatsBump:  statsBump,
	}); err != nil {
		return err
	}
	if err := r.store(statsAcc, &WorkspaceStats{
		QuantityOfCollaborators: 1,
		Bump:                    statsBump,
	}); err != nil {
		return err
	}
	if err := r.store(collaboratorAcc, &Collaborator{
		Authority: authority.Key,
		Workspace: wsAcc.Key,
		User:      userAcc.Key,
		Status:    CollaboratorStatusApproved,
		IsAdmin:   true,
		CreatedAt: r.now,
		UpdatedAt: r.now,
		Bump:      collaboratorBump,
	}); err != nil {
		return err
	}
	return r.store(budgetAcc, &Budget{
		Authority: authority.Key,
		Workspace: wsAcc.Key,
		CreatedAt: r.now,
		UpdatedAt: r.now,
		Bump:      budgetBump,
	})
}

// updateWorkspace accounts:
//
//	[0] authority    (signer)
//	[1] workspace    (writable)
//	[2] user
//	[3] collaborator
func updateWorkspace(r *request, args *NameArgs) error {
	authority, err := r.signer(0)
	if err != nil {
		return err
	}
	wsAcc, err := r.mut(1)
	if err != nil {
		return err
	}
	userAcc, err := r.account(2)
	if err != nil {
		return err
	}
	collaboratorAcc, err := r.account(3)
	if err != nil {
		return err
	}

	ws := &Workspace{}
	if err := r.load(wsAcc, ws); err != nil {
		return err
	}
	if _, err := r.membership(authority.Key, wsAcc.Key, userAcc, collaboratorAcc); err != nil {
		return err
	}
	if err := requireAdmin(ws, authority.Key, ErrOnlyWorkspaceAdminCanUpdate); err != nil {
		return err
	}
	if err := validateName(args.Name); err != nil {
		return err
	}

	ws.Name = args.Name
	ws.UpdatedAt = r.now
	return r.store(wsAcc, ws)
}

// deleteWorkspace accounts:
//
//	[0] authority       (signer, writable)
//	[1] workspace       (writable)
//	[2] user
//	[3] collaborator    (writable, the admin's)
//	[4] workspace stats (writable)
//	[5] budget          (writable)
//
// The workspace, its stats, its budget and the admin collaborator are all
// closed into the authority.
func deleteWorkspace(r *request) error {
	authority, err := r.signerMut(0)
	if err != nil {
		return err
	}
	wsAcc, err := r.mut(1)
	if err != nil {
		return err
	}
	userAcc, err := r.account(2)
	if err != nil {
		return err
	}
	collaboratorAcc, err := r.mut(3)
	if err != nil {
		return err
	}
	statsAcc, err := r.mut(4)
	if err != nil {
		return err
	}
	budgetAcc, err := r.mut(5)
	if err != nil {
		return err
	}

	ws := &Workspace{}
	if err := r.load(wsAcc, ws); err != nil {
		return err
	}
	stats := &WorkspaceStats{}
	if err := r.loadAt(statsAcc, stats, workspaceStatsSeeds(wsAcc.Key), ws.StatsBump); err != nil {
		return err
	}
	if err := r.verify(budgetAcc, budgetSeeds(wsAcc.Key), ws.BudgetBump); err != nil {
		return err
	}
	if _, err := r.membership(authority.Key, wsAcc.Key, userAcc, collaboratorAcc); err != nil {
		return err
	}
	if err := requireAdmin(ws, authority.Key, ErrOnlyWorkspaceAdminCanDelete); err != nil {
		return err
	}
	if stats.QuantityOfApplications > 0 {
		return ErrCantDeleteWorkspaceWithApplications
	}
	if stats.QuantityOfCollaborators > 1 {
		return ErrCantDeleteWorkspaceWithCollaborators
	}

	for _, acc := range []*svm.AccountInfo{collaboratorAcc, statsAcc, budgetAcc, wsAcc} {
		if err := r.close(acc, authority); err != nil {
			return err
		}
	}
	return nil
}

// depositToBudget accounts:
//
//	[0] authority (signer, writable)
//	[1] workspace
//	[2] budget    (writable)
//
// Any wallet may fund any workspace.
func depositToBudget(r *request, args *DepositArgs) error {
	authority, err := r.signerMut(0)
	if err != nil {
		return err
	}
	wsAcc, err := r.account(1)
	if err != nil {
		return err
	}
	budgetAcc, err := r.mut(2)
	if err != nil {
		return err
	}

	ws := &Workspace{}
	if err := r.load(wsAcc, ws); err != nil {
		return err
	}
	budget := &Budget{}
	if err := r.loadAt(budgetAcc, budget, budgetSeeds(wsAcc.Key), ws.BudgetBump); err != nil {
		return err
	}
	if args.Amount == 0 {
		return ErrInvalidDepositAmount
	}

	if err := system.Transfer(authority, budgetAcc, args.Amount); err != nil {
		return systemError(err)
	}
	budget.UpdatedAt = r.now
	return r.store(budgetAcc, budget)
}

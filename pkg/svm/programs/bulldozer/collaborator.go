package bulldozer

import (
	"github.com/fortiblox/X1-Bulldozer/internal/types"
	"github.com/fortiblox/X1-Bulldozer/pkg/svm"
)

// newCollaborator allocates and writes a collaborator record paid for by
// payer, and counts it in the workspace stats.
func (r *request) newCollaborator(payer, wsAcc, userAcc, collaboratorAcc, statsAcc *svm.AccountInfo, owner types.Pubkey, stats *WorkspaceStats, status CollaboratorStatus) error {
	bump, err := r.derive(collaboratorAcc, collaboratorSeeds(wsAcc.Key, userAcc.Key))
	if err != nil {
		return err
	}
	if err := increment(&stats.QuantityOfCollaborators); err != nil {
		return err
	}
	if err := r.createPaid(payer, collaboratorAcc, CollaboratorSize); err != nil {
		return err
	}
	if err := r.store(collaboratorAcc, &Collaborator{
		Authority: owner,
		Workspace: wsAcc.Key,
		User:      userAcc.Key,
		Status:    status,
		CreatedAt: r.now,
		UpdatedAt: r.now,
		Bump:      bump,
	}); err != nil {
		return err
	}
	return r.store(statsAcc, stats)
}

// createCollaborator accounts:
//
//	[0] authority       (signer, writable, workspace admin)
//	[1] workspace
//	[2] user            (the invited profile)
//	[3] collaborator    (writable, pda)
//	[4] workspace stats (writable)
//
// The admin pays for the record and it starts approved.
func createCollaborator(r *request) error {
	authority, err := r.signerMut(0)
	if err != nil {
		return err
	}
	wsAcc, err := r.account(1)
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

	ws := &Workspace{}
	if err := r.load(wsAcc, ws); err != nil {
		return err
	}
	user := &User{}
	if err := r.load(userAcc, user); err != nil {
		return err
	}
	stats := &WorkspaceStats{}
	if err := r.loadAt(statsAcc, stats, workspaceStatsSeeds(wsAcc.Key), ws.StatsBump); err != nil {
		return err
	}
	if err := requireAdmin(ws, authority.Key, ErrOnlyWorkspaceAdminCanCreateCollaborator); err != nil {
		return err
	}

	return r.newCollaborator(authority, wsAcc, userAcc, collaboratorAcc, statsAcc, user.Authority, stats, CollaboratorStatusApproved)
}

// requestCollaboratorStatus accounts:
//
//	[0] authority       (signer, writable)
//	[1] workspace
//	[2] user            (the signer's profile)
//	[3] collaborator    (writable, pda)
//	[4] workspace stats (writable)
//
// The requester pays for a pending membership.
func requestCollaboratorStatus(r *request) error {
	authority, err := r.signerMut(0)
	if err != nil {
		return err
	}
	wsAcc, err := r.account(1)
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

	ws := &Workspace{}
	if err := r.load(wsAcc, ws); err != nil {
		return err
	}
	user := &User{}
	if err := r.load(userAcc, user); err != nil {
		return err
	}
	if err := r.verify(userAcc, userSeeds(authority.Key), user.Bump); err != nil {
		return err
	}
	stats := &WorkspaceStats{}
	if err := r.loadAt(statsAcc, stats, workspaceStatsSeeds(wsAcc.Key), ws.StatsBump); err != nil {
		return err
	}

	return r.newCollaborator(authority, wsAcc, userAcc, collaboratorAcc, statsAcc, authority.Key, stats, CollaboratorStatusPending)
}

// retryCollaboratorStatusRequest accounts:
//
//	[0] authority    (signer)
//	[1] workspace
//	[2] user
//	[3] collaborator (writable)
func retryCollaboratorStatusRequest(r *request) error {
	authority, err := r.signer(0)
	if err != nil {
		return err
	}
	wsAcc, err := r.account(1)
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

	ws := &Workspace{}
	if err := r.load(wsAcc, ws); err != nil {
		return err
	}
	m, err := r.membership(authority.Key, wsAcc.Key, userAcc, collaboratorAcc)
	if err != nil {
		return err
	}
	if m.collaborator.Status != CollaboratorStatusRejected {
		return ErrCollaboratorStatusNotRejected
	}

	m.collaborator.Status = CollaboratorStatusPending
	m.collaborator.UpdatedAt = r.now
	return r.store(collaboratorAcc, m.collaborator)
}

// updateCollaborator accounts:
//
//	[0] authority    (signer, workspace admin)
//	[1] workspace
//	[2] collaborator (writable)
func updateCollaborator(r *request, args *CollaboratorStatusArgs) error {
	authority, err := r.signer(0)
	if err != nil {
		return err
	}
	wsAcc, err := r.account(1)
	if err != nil {
		return err
	}
	collaboratorAcc, err := r.mut(2)
	if err != nil {
		return err
	}

	ws := &Workspace{}
	if err := r.load(wsAcc, ws); err != nil {
		return err
	}
	collaborator, err := r.loadCollaborator(collaboratorAcc, wsAcc.Key)
	if err != nil {
		return err
	}
	if err := requireAdmin(ws, authority.Key, ErrOnlyWorkspaceAdminCanUpdateCollaborator); err != nil {
		return err
	}
	status, err := ParseCollaboratorStatus(args.Status)
	if err != nil {
		return err
	}
	if collaborator.IsAdmin {
		return ErrCantUpdateAdminCollaborator
	}

	collaborator.Status = status
	collaborator.UpdatedAt = r.now
	return r.store(collaboratorAcc, collaborator)
}

// deleteCollaborator accounts:
//
//	[0] authority       (signer, writable, workspace admin)
//	[1] workspace
//	[2] collaborator    (writable)
//	[3] workspace stats (writable)
//
// The record's rent goes to the admin.
func deleteCollaborator(r *request) error {
	authority, err := r.signerMut(0)
	if err != nil {
		return err
	}
	wsAcc, err := r.account(1)
	if err != nil {
		return err
	}
	collaboratorAcc, err := r.mut(2)
	if err != nil {
		return err
	}
	statsAcc, err := r.mut(3)
	if err != nil {
		return err
	}

	ws := &Workspace{}
	if err := r.load(wsAcc, ws); err != nil {
		return err
	}
	collaborator, err := r.loadCollaborator(collaboratorAcc, wsAcc.Key)
	if err != nil {
		return err
	}
	stats := &WorkspaceStats{}
	if err := r.loadAt(statsAcc, stats, workspaceStatsSeeds(wsAcc.Key), ws.StatsBump); err != nil {
		return err
	}
	if err := requireAdmin(ws, authority.Key, ErrOnlyWorkspaceAdminCanDeleteCollaborator); err != nil {
		return err
	}
	if collaborator.IsAdmin {
		return ErrCantDeleteAdminCollaborator
	}

	if err := decrement(&stats.QuantityOfCollaborators); err != nil {
		return err
	}
	if err := r.store(statsAcc, stats); err != nil {
		return err
	}
	return r.close(collaboratorAcc, authority)
}

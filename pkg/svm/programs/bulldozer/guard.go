package bulldozer

import (
	"github.com/fortiblox/X1-Bulldozer/internal/types"
	"github.com/fortiblox/X1-Bulldozer/pkg/svm"
)

// member is a signer's resolved membership in a workspace.
type member struct {
	user         *User
	collaborator *Collaborator
}

// membership resolves the signer's user profile and its collaborator
// record for workspace. Either missing yields ErrAccountNotInitialized.
func (r *request) membership(authority, workspace types.Pubkey, userAcc, collaboratorAcc *svm.AccountInfo) (*member, error) {
	user := &User{}
	if err := r.load(userAcc, user); err != nil {
		return nil, err
	}
	if err := r.verify(userAcc, userSeeds(authority), user.Bump); err != nil {
		return nil, err
	}

	collaborator, err := r.loadCollaborator(collaboratorAcc, workspace)
	if err != nil {
		return nil, err
	}
	if collaborator.User != userAcc.Key {
		return nil, ErrCollaboratorDoesNotBelongToUser
	}
	if err := r.verify(collaboratorAcc, collaboratorSeeds(workspace, userAcc.Key), collaborator.Bump); err != nil {
		return nil, err
	}
	return &member{user: user, collaborator: collaborator}, nil
}

// approvedMember is membership restricted to approved collaborators. Every
// workspace-scoped write goes through it.
func (r *request) approvedMember(authority, workspace types.Pubkey, userAcc, collaboratorAcc *svm.AccountInfo) (*member, error) {
	m, err := r.membership(authority, workspace, userAcc, collaboratorAcc)
	if err != nil {
		return nil, err
	}
	if m.collaborator.Status != CollaboratorStatusApproved {
		return nil, ErrCollaboratorStatusNotApproved
	}
	return m, nil
}

// requireAdmin fails with denied unless authority administers ws.
func requireAdmin(ws *Workspace, authority types.Pubkey, denied *Error) error {
	if ws.Authority != authority {
		return denied
	}
	return nil
}

func (r *request) loadCollaborator(acc *svm.AccountInfo, workspace types.Pubkey) (*Collaborator, error) {
	collaborator := &Collaborator{}
	if err := r.load(acc, collaborator); err != nil {
		return nil, err
	}
	if collaborator.Workspace != workspace {
		return nil, ErrCollaboratorDoesNotBelongToWorkspace
	}
	return collaborator, nil
}

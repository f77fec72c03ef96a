package bulldozer

import "github.com/fortiblox/X1-Bulldozer/pkg/svm"

func (r *request) loadApplication(acc, wsAcc *svm.AccountInfo) (*Application, error) {
	app := &Application{}
	if err := r.load(acc, app); err != nil {
		return nil, err
	}
	if app.Workspace != wsAcc.Key {
		return nil, ErrApplicationDoesNotBelongToWorkspace
	}
	return app, nil
}

// createApplication accounts:
//
//	[0] authority         (signer)
//	[1] workspace
//	[2] application       (signer, writable)
//	[3] application stats (writable, pda)
//	[4] user
//	[5] collaborator
//	[6] budget            (writable)
//	[7] workspace stats   (writable)
func createApplication(r *request, args *NameArgs) error {
	authority, err := r.signer(0)
	if err != nil {
		return err
	}
	appAcc, err := r.signerMut(2)
	if err != nil {
		return err
	}
	wsAcc, err := r.account(1)
	if err != nil {
		return err
	}
	appStatsAcc, err := r.mut(3)
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
	wsStatsAcc, err := r.mut(7)
	if err != nil {
		return err
	}

	ws := &Workspace{}
	if err := r.load(wsAcc, ws); err != nil {
		return err
	}
	appStatsBump, err := r.derive(appStatsAcc, applicationStatsSeeds(appAcc.Key))
	if err != nil {
		return err
	}
	if err := r.checkBudget(budgetAcc, wsAcc, ws); err != nil {
		return err
	}
	wsStats := &WorkspaceStats{}
	if err := r.loadAt(wsStatsAcc, wsStats, workspaceStatsSeeds(wsAcc.Key), ws.StatsBump); err != nil {
		return err
	}
	if _, err := r.approvedMember(authority.Key, wsAcc.Key, userAcc, collaboratorAcc); err != nil {
		return err
	}
	if err := validateName(args.Name); err != nil {
		return err
	}
	if err := increment(&wsStats.QuantityOfApplications); err != nil {
		return err
	}

	if err := r.createFromBudget(budgetAcc,
		allocation{acc: appAcc, space: ApplicationSize},
		allocation{acc: appStatsAcc, space: ApplicationStatsSize},
	); err != nil {
		return err
	}
	if err := r.store(appAcc, &Application{
		Authority: authority.Key,
		Workspace: wsAcc.Key,
		Name:      args.Name,
		CreatedAt: r.now,
		UpdatedAt: r.now,
		StatsBump: appStatsBump,
	}); err != nil {
		return err
	}
	if err := r.store(appStatsAcc, &ApplicationStats{Bump: appStatsBump}); err != nil {
		return err
	}
	return r.store(wsStatsAcc, wsStats)
}

// updateApplication accounts:
//
//	[0] authority    (signer)
//	[1] workspace
//	[2] application  (writable)
//	[3] user
//	[4] collaborator
func updateApplication(r *request, args *NameArgs) error {
	authority, err := r.signer(0)
	if err != nil {
		return err
	}
	wsAcc, err := r.account(1)
	if err != nil {
		return err
	}
	appAcc, err := r.mut(2)
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

	app, err := r.loadApplication(appAcc, wsAcc)
	if err != nil {
		return err
	}
	if _, err := r.approvedMember(authority.Key, wsAcc.Key, userAcc, collaboratorAcc); err != nil {
		return err
	}
	if err := validateName(args.Name); err != nil {
		return err
	}

	app.Name = args.Name
	app.UpdatedAt = r.now
	return r.store(appAcc, app)
}

// deleteApplication accounts:
//
//	[0] authority         (signer)
//	[1] workspace
//	[2] application       (writable)
//	[3] application stats (writable)
//	[4] user
//	[5] collaborator
//	[6] budget            (writable)
//	[7] workspace stats   (writable)
func deleteApplication(r *request) error {
	authority, err := r.signer(0)
	if err != nil {
		return err
	}
	wsAcc, err := r.account(1)
	if err != nil {
		return err
	}
	appAcc, err := r.mut(2)
	if err != nil {
		return err
	}
	appStatsAcc, err := r.mut(3)
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
	wsStatsAcc, err := r.mut(7)
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
	appStats := &ApplicationStats{}
	if err := r.loadAt(appStatsAcc, appStats, applicationStatsSeeds(appAcc.Key), app.StatsBump); err != nil {
		return err
	}
	if err := r.checkBudget(budgetAcc, wsAcc, ws); err != nil {
		return err
	}
	wsStats := &WorkspaceStats{}
	if err := r.loadAt(wsStatsAcc, wsStats, workspaceStatsSeeds(wsAcc.Key), ws.StatsBump); err != nil {
		return err
	}
	if _, err := r.approvedMember(authority.Key, wsAcc.Key, userAcc, collaboratorAcc); err != nil {
		return err
	}
	if appStats.QuantityOfCollections > 0 {
		return ErrCantDeleteApplicationWithCollections
	}
	if appStats.QuantityOfInstructions > 0 {
		return ErrCantDeleteApplicationWithInstructions
	}

	if err := decrement(&wsStats.QuantityOfApplications); err != nil {
		return err
	}
	if err := r.store(wsStatsAcc, wsStats); err != nil {
		return err
	}
	if err := r.close(appStatsAcc, budgetAcc); err != nil {
		return err
	}
	return r.close(appAcc, budgetAcc)
}

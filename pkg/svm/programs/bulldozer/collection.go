package bulldozer

import "github.com/fortiblox/X1-Bulldozer/pkg/svm"

func (r *request) loadCollection(acc, wsAcc *svm.AccountInfo) (*Collection, error) {
	collection := &Collection{}
	if err := r.load(acc, collection); err != nil {
		return nil, err
	}
	if collection.Workspace != wsAcc.Key {
		return nil, ErrCollectionDoesNotBelongToWorkspace
	}
	return collection, nil
}

// createCollection accounts:
//
//	[0] authority         (signer)
//	[1] workspace
//	[2] application
//	[3] collection        (signer, writable)
//	[4] collection stats  (writable, pda)
//	[5] user
//	[6] collaborator
//	[7] budget            (writable)
//	[8] application stats (writable)
func createCollection(r *request, args *NameArgs) error {
	authority, err := r.signer(0)
	if err != nil {
		return err
	}
	collectionAcc, err := r.signerMut(3)
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
	statsBump, err := r.derive(statsAcc, collectionStatsSeeds(collectionAcc.Key))
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
	if err := increment(&appStats.QuantityOfCollections); err != nil {
		return err
	}

	if err := r.createFromBudget(budgetAcc,
		allocation{acc: collectionAcc, space: CollectionSize},
		allocation{acc: statsAcc, space: CollectionStatsSize},
	); err != nil {
		return err
	}
	if err := r.store(collectionAcc, &Collection{
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
	if err := r.store(statsAcc, &CollectionStats{Bump: statsBump}); err != nil {
		return err
	}
	return r.store(appStatsAcc, appStats)
}

// updateCollection accounts:
//
//	[0] authority    (signer)
//	[1] workspace
//	[2] collection   (writable)
//	[3] user
//	[4] collaborator
func updateCollection(r *request, args *NameArgs) error {
	authority, err := r.signer(0)
	if err != nil {
		return err
	}
	wsAcc, err := r.account(1)
	if err != nil {
		return err
	}
	collectionAcc, err := r.mut(2)
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

	collection, err := r.loadCollection(collectionAcc, wsAcc)
	if err != nil {
		return err
	}
	if _, err := r.approvedMember(authority.Key, wsAcc.Key, userAcc, collaboratorAcc); err != nil {
		return err
	}
	if err := validateName(args.Name); err != nil {
		return err
	}

	collection.Name = args.Name
	collection.UpdatedAt = r.now
	return r.store(collectionAcc, collection)
}

// deleteCollection accounts:
//
//	[0] authority         (signer)
//	[1] workspace
//	[2] application
//	[3] collection        (writable)
//	[4] collection stats  (writable)
//	[5] user
//	[6] collaborator
//	[7] budget            (writable)
//	[8] application stats (writable)
func deleteCollection(r *request) error {
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
	collectionAcc, err := r.mut(3)
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
	collection, err := r.loadCollection(collectionAcc, wsAcc)
	if err != nil {
		return err
	}
	if collection.Application != appAcc.Key {
		return ErrCollectionDoesNotBelongToApplication
	}
	stats := &CollectionStats{}
	if err := r.loadAt(statsAcc, stats, collectionStatsSeeds(collectionAcc.Key), collection.StatsBump); err != nil {
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
	if stats.QuantityOfAttributes > 0 {
		return ErrCantDeleteCollectionWithAttributes
	}

	if err := decrement(&appStats.QuantityOfCollections); err != nil {
		return err
	}
	if err := r.store(appStatsAcc, appStats); err != nil {
		return err
	}
	if err := r.close(statsAcc, budgetAcc); err != nil {
		return err
	}
	return r.close(collectionAcc, budgetAcc)
}

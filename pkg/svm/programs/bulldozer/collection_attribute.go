package bulldozer

import "github.com/fortiblox/X1-Bulldozer/pkg/svm"

func (r *request) loadCollectionAttribute(acc, wsAcc *svm.AccountInfo) (*CollectionAttribute, error) {
	attribute := &CollectionAttribute{}
	if err := r.load(acc, attribute); err != nil {
		return nil, err
	}
	if attribute.Workspace != wsAcc.Key {
		return nil, ErrAttributeDoesNotBelongToWorkspace
	}
	return attribute, nil
}

// createCollectionAttribute accounts:
//
//	[0] authority        (signer)
//	[1] workspace
//	[2] application
//	[3] collection
//	[4] attribute        (signer, writable)
//	[5] user
//	[6] collaborator
//	[7] budget           (writable)
//	[8] collection stats (writable)
func createCollectionAttribute(r *request, dto *AttributeDto) error {
	authority, err := r.signer(0)
	if err != nil {
		return err
	}
	attributeAcc, err := r.signerMut(4)
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
	collectionAcc, err := r.account(3)
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
	collection, err := r.loadCollection(collectionAcc, wsAcc)
	if err != nil {
		return err
	}
	if collection.Application != appAcc.Key {
		return ErrCollectionDoesNotBelongToApplication
	}
	if err := r.checkBudget(budgetAcc, wsAcc, ws); err != nil {
		return err
	}
	stats := &CollectionStats{}
	if err := r.loadAt(statsAcc, stats, collectionStatsSeeds(collectionAcc.Key), collection.StatsBump); err != nil {
		return err
	}
	if _, err := r.approvedMember(authority.Key, wsAcc.Key, userAcc, collaboratorAcc); err != nil {
		return err
	}
	attribute := &CollectionAttribute{
		Authority:   authority.Key,
		Workspace:   wsAcc.Key,
		Application: appAcc.Key,
		Collection:  collectionAcc.Key,
		Name:        dto.Name,
		CreatedAt:   r.now,
		UpdatedAt:   r.now,
	}
	if err := attribute.apply(dto); err != nil {
		return err
	}
	if err := increment(&stats.QuantityOfAttributes); err != nil {
		return err
	}

	if err := r.createFromBudget(budgetAcc, allocation{acc: attributeAcc, space: CollectionAttributeSize}); err != nil {
		return err
	}
	if err := r.store(attributeAcc, attribute); err != nil {
		return err
	}
	return r.store(statsAcc, stats)
}

// updateCollectionAttribute accounts:
//
//	[0] authority    (signer)
//	[1] workspace
//	[2] attribute    (writable)
//	[3] user
//	[4] collaborator
func updateCollectionAttribute(r *request, dto *AttributeDto) error {
	authority, err := r.signer(0)
	if err != nil {
		return err
	}
	wsAcc, err := r.account(1)
	if err != nil {
		return err
	}
	attributeAcc, err := r.mut(2)
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

	attribute, err := r.loadCollectionAttribute(attributeAcc, wsAcc)
	if err != nil {
		return err
	}
	if _, err := r.approvedMember(authority.Key, wsAcc.Key, userAcc, collaboratorAcc); err != nil {
		return err
	}
	if err := attribute.apply(dto); err != nil {
		return err
	}

	attribute.Name = dto.Name
	attribute.UpdatedAt = r.now
	return r.store(attributeAcc, attribute)
}

// deleteCollectionAttribute accounts:
//
//	[0] authority        (signer)
//	[1] workspace
//	[2] collection
//	[3] attribute        (writable)
//	[4] user
//	[5] collaborator
//	[6] budget           (writable)
//	[7] collection stats (writable)
func deleteCollectionAttribute(r *request) error {
	authority, err := r.signer(0)
	if err != nil {
		return err
	}
	wsAcc, err := r.account(1)
	if err != nil {
		return err
	}
	collectionAcc, err := r.account(2)
	if err != nil {
		return err
	}
	attributeAcc, err := r.mut(3)
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
	collection, err := r.loadCollection(collectionAcc, wsAcc)
	if err != nil {
		return err
	}
	attribute, err := r.loadCollectionAttribute(attributeAcc, wsAcc)
	if err != nil {
		return err
	}
	if attribute.Collection != collectionAcc.Key {
		return ErrAttributeDoesNotBelongToCollection
	}
	if err := r.checkBudget(budgetAcc, wsAcc, ws); err != nil {
		return err
	}
	stats := &CollectionStats{}
	if err := r.loadAt(statsAcc, stats, collectionStatsSeeds(collectionAcc.Key), collection.StatsBump); err != nil {
		return err
	}
	if _, err := r.approvedMember(authority.Key, wsAcc.Key, userAcc, collaboratorAcc); err != nil {
		return err
	}

	if err := decrement(&stats.QuantityOfAttributes); err != nil {
		return err
	}
	if err := r.store(statsAcc, stats); err != nil {
		return err
	}
	return r.close(attributeAcc, budgetAcc)
}

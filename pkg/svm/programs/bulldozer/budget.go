package bulldozer

import "github.com/fortiblox/X1-Bulldozer/pkg/svm"

// checkBudget verifies budgetAcc is the budget of the workspace at wsAcc.
func (r *request) checkBudget(budgetAcc, wsAcc *svm.AccountInfo, ws *Workspace) error {
	if !budgetAcc.IsWritable {
		return ErrAccountNotMutable
	}
	return r.verify(budgetAcc, budgetSeeds(wsAcc.Key), ws.BudgetBump)
}

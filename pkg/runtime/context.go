package runtime

import (
	"github.com/fortiblox/X1-Bulldozer/internal/types"
	"github.com/fortiblox/X1-Bulldozer/pkg/svm"
)

// invokeContext is the svm.InvokeContext handed to a program for one
// instruction. Accounts point at the transaction's shared working copies.
type invokeContext struct {
	programID types.Pubkey
	accounts  []*svm.AccountInfo
	rent      svm.Rent
	clock     svm.Clock
	meter     *svm.ComputeMeter
	logs      *[]string
}

func (c *invokeContext) ProgramID() types.Pubkey  { return c.programID }
func (c *invokeContext) NumAccounts() int         { return len(c.accounts) }
func (c *invokeContext) Rent() svm.Rent           { return c.rent }
func (c *invokeContext) Clock() svm.Clock         { return c.clock }
func (c *invokeContext) Meter() *svm.ComputeMeter { return c.meter }

// GetAccount returns the account at the given index.
func (c *invokeContext) GetAccount(index int) (*svm.AccountInfo, error) {
	if index < 0 || index >= len(c.accounts) {
		return nil, svm.ErrNotEnoughAccountKeys
	}
	return c.accounts[index], nil
}

// Log records a program log line.
func (c *invokeContext) Log(msg string) {
	*c.logs = append(*c.logs, "Program log: "+msg)
}

var _ svm.InvokeContext = (*invokeContext)(nil)

package domain

import (
	customerdomain "github.com/smallbiznis/collecta/internal/customer/domain"
	ledgerdomain "github.com/smallbiznis/collecta/internal/ledger/domain"
)

// AccountBalance is a computed snapshot of what a customer owes. It is derived
// fresh on every planning pass and never persisted or cached across runs.
type AccountBalance struct {
	Currency       string
	Balance        int64
	PastDueBalance int64
	// Age is days since the oldest contributing open item became outstanding.
	Age int
	// PastDueAge is days since the oldest overdue component passed its due
	// date; nil when nothing is past due.
	PastDueAge *int
	// Invoices lists the contributing open items in issue-date order.
	Invoices []ledgerdomain.OpenItem
}

// Zero reports whether the snapshot carries nothing to chase.
func (b AccountBalance) Zero() bool {
	return b.Balance == 0 && len(b.Invoices) == 0
}

// ChasingEvent is the planner's ephemeral output for one customer: the step
// due now and the step the cursor should advance to.
type ChasingEvent struct {
	Customer customerdomain.Customer
	Balance  AccountBalance
	// Step is the last due step in the cascade, the one to execute.
	Step Step
	// NextStep is the first not-yet-due step after Step, nil when the cadence
	// is exhausted.
	NextStep *Step
}

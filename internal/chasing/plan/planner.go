// Package plan decides which chasing step is due for each customer of a
// cadence, collapsing cascades of consecutively-due steps into a single event.
package plan

import (
	"context"

	"github.com/smallbiznis/collecta/internal/chasing/balance"
	chasingdomain "github.com/smallbiznis/collecta/internal/chasing/domain"
	customerdomain "github.com/smallbiznis/collecta/internal/customer/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const defaultCurrency = "USD"

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	Customers customerdomain.Repository
	Balances  *balance.Generator
}

// Planner produces at most one ChasingEvent per customer per pass.
type Planner struct {
	db        *gorm.DB
	log       *zap.Logger
	customers customerdomain.Repository
	balances  *balance.Generator
}

func New(p Params) *Planner {
	return &Planner{
		db:        p.DB,
		log:       p.Log.Named("chasing.plan"),
		customers: p.Customers,
		balances:  p.Balances,
	}
}

// Plan evaluates every customer whose cursor points into the cadence. A bad
// balance read for one customer skips that customer, never the pass.
func (p *Planner) Plan(ctx context.Context, cadence *chasingdomain.Cadence) ([]chasingdomain.ChasingEvent, error) {
	if cadence == nil || len(cadence.Steps) == 0 {
		return nil, nil
	}

	customers, err := p.customers.ListForChasing(ctx, p.db, cadence.OrgID, cadence.ID)
	if err != nil {
		return nil, err
	}

	var events []chasingdomain.ChasingEvent
	for _, customer := range customers {
		event, ok := p.planCustomer(ctx, cadence, customer)
		if ok {
			events = append(events, event)
		}
	}
	return events, nil
}

func (p *Planner) planCustomer(ctx context.Context, cadence *chasingdomain.Cadence, customer customerdomain.Customer) (chasingdomain.ChasingEvent, bool) {
	var event chasingdomain.ChasingEvent

	if customer.NextChaseStep == nil {
		return event, false
	}
	cursor := cadence.StepByID(*customer.NextChaseStep)
	if cursor == nil {
		// Stale cursor from a cadence edit; the lifecycle listener or the
		// next assignment will repair it.
		p.log.Debug("cursor points outside cadence, skipping",
			zap.String("customer_id", customer.ID.String()),
			zap.String("cadence_id", cadence.ID.String()),
		)
		return event, false
	}

	currency := customer.Currency
	if currency == "" {
		currency = defaultCurrency
	}
	snapshot, err := p.balances.Generate(ctx, customer, currency)
	if err != nil {
		p.log.Warn("balance generation failed, skipping customer",
			zap.String("customer_id", customer.ID.String()),
			zap.Error(err),
		)
		return event, false
	}
	if len(snapshot.Invoices) == 0 {
		return event, false
	}
	if cadence.MinBalance != nil && snapshot.Balance < *cadence.MinBalance {
		return event, false
	}

	lastDue, next := p.cascade(cadence, cursor, snapshot)
	if lastDue == nil {
		return event, false
	}

	return chasingdomain.ChasingEvent{
		Customer: customer,
		Balance:  snapshot,
		Step:     *lastDue,
		NextStep: next,
	}, true
}

// cascade walks forward from the cursor while steps stay due, returning the
// last due step and the first step after it that is not yet due. A step with
// an invalid schedule is treated as never due, ending the cascade there.
func (p *Planner) cascade(cadence *chasingdomain.Cadence, cursor *chasingdomain.Step, snapshot chasingdomain.AccountBalance) (*chasingdomain.Step, *chasingdomain.Step) {
	var lastDue *chasingdomain.Step
	step := cursor
	for step != nil {
		schedule, err := chasingdomain.ParseSchedule(step.Schedule)
		if err != nil {
			p.log.Warn("invalid step schedule, treating as never due",
				zap.String("step_id", step.ID.String()),
				zap.String("schedule", step.Schedule),
			)
			break
		}
		if !schedule.Due(snapshot) {
			break
		}
		lastDue = step
		step = cadence.StepAfter(step.ID)
	}
	return lastDue, step
}

// Package assign selects which cadence, if any, applies to a customer.
package assign

import (
	"context"

	chasingdomain "github.com/smallbiznis/collecta/internal/chasing/domain"
	"github.com/smallbiznis/collecta/internal/chasing/condition"
	customerdomain "github.com/smallbiznis/collecta/internal/customer/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	Repo      chasingdomain.Repository
	Evaluator *condition.Evaluator
}

// Assigner applies the tenant's assignment policy: conditional cadences in
// creation order, first match wins; otherwise the default cadence.
type Assigner struct {
	db        *gorm.DB
	log       *zap.Logger
	repo      chasingdomain.Repository
	evaluator *condition.Evaluator
}

func New(p Params) *Assigner {
	return &Assigner{
		db:        p.DB,
		log:       p.Log.Named("chasing.assign"),
		repo:      p.Repo,
		evaluator: p.Evaluator,
	}
}

// Assign returns the cadence that applies to the customer, or nil when none
// does. Invalid conditions are treated as non-matching, never as errors.
func (a *Assigner) Assign(ctx context.Context, customer customerdomain.Customer) (*chasingdomain.Cadence, error) {
	conditional, err := a.repo.ListConditionalCadences(ctx, a.db, customer.OrgID)
	if err != nil {
		return nil, err
	}

	view := customer.View()
	for i := range conditional {
		cadence := &conditional[i]
		if cadence.AssignmentConditions == "" {
			continue
		}
		if a.evaluator.Matches(cadence.AssignmentConditions, view) {
			return cadence, nil
		}
	}

	return a.repo.FindDefaultCadence(ctx, a.db, customer.OrgID)
}

// Apply stamps the assignment onto the customer: the cadence id and, unless
// chasing is disabled for the customer, a cursor at the cadence's first step.
func Apply(customer *customerdomain.Customer, cadence *chasingdomain.Cadence) {
	if customer == nil {
		return
	}
	if cadence == nil {
		customer.ChasingCadenceID = nil
		customer.NextChaseStep = nil
		return
	}
	cadenceID := cadence.ID
	customer.ChasingCadenceID = &cadenceID
	customer.NextChaseStep = nil
	if !customer.Chase {
		return
	}
	if first := cadence.FirstStep(); first != nil {
		stepID := first.ID
		customer.NextChaseStep = &stepID
	}
}

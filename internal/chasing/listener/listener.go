// Package listener restarts a customer's cadence whenever a balance-affecting
// invoice event occurs.
package listener

import (
	"context"

	chasingdomain "github.com/smallbiznis/collecta/internal/chasing/domain"
	"github.com/smallbiznis/collecta/internal/clock"
	customerdomain "github.com/smallbiznis/collecta/internal/customer/domain"
	"github.com/smallbiznis/collecta/internal/events"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	Clock     clock.Clock
	Cadences  chasingdomain.Repository
	Customers customerdomain.Repository
}

// Listener consumes invoice lifecycle events.
type Listener struct {
	db        *gorm.DB
	log       *zap.Logger
	clock     clock.Clock
	cadences  chasingdomain.Repository
	customers customerdomain.Repository
}

func New(p Params) *Listener {
	return &Listener{
		db:        p.DB,
		log:       p.Log.Named("chasing.listener"),
		clock:     p.Clock,
		cadences:  p.Cadences,
		customers: p.Customers,
	}
}

// Register subscribes the listener to the event bus.
func (l *Listener) Register(bus *events.Bus) {
	bus.Subscribe(l.Handle)
}

// Handle resolves open statistics for the invoice and resets the customer's
// cursor to the first step of their cadence. A genuine payment marks prior
// chasing as payment-responsible; a close or delete without payment does not.
func (l *Listener) Handle(ctx context.Context, event events.InvoiceEvent) error {
	now := l.clock.Now()

	if event.InvoiceID != 0 {
		if err := l.cadences.ResolveStatistics(ctx, l.db, event.OrgID, event.InvoiceID, event.Paid(), now); err != nil {
			return err
		}
	}

	customer, err := l.customers.FindByID(ctx, l.db, event.OrgID, event.CustomerID)
	if err != nil {
		return err
	}
	if customer == nil || customer.ChasingCadenceID == nil || !customer.Chase {
		return nil
	}

	cadence, err := l.cadences.FindCadence(ctx, l.db, event.OrgID, *customer.ChasingCadenceID)
	if err != nil {
		return err
	}
	if cadence == nil {
		return nil
	}

	first := cadence.FirstStep()
	if first == nil {
		return l.customers.UpdateNextChaseStep(ctx, l.db, event.OrgID, customer.ID, nil)
	}
	firstID := first.ID
	l.log.Debug("resetting chase cursor",
		zap.String("customer_id", customer.ID.String()),
		zap.String("step_id", firstID.String()),
		zap.String("event_type", event.Type),
	)
	return l.customers.UpdateNextChaseStep(ctx, l.db, event.OrgID, customer.ID, &firstID)
}

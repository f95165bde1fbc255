// Package run executes chasing plans: it serializes runs per cadence through
// the TTL lock, dispatches collection actions, records the audit trail and
// advances customer cursors.
package run

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	chasingdomain "github.com/smallbiznis/collecta/internal/chasing/domain"
	"github.com/smallbiznis/collecta/internal/chasing/lock"
	"github.com/smallbiznis/collecta/internal/chasing/plan"
	"github.com/smallbiznis/collecta/internal/clock"
	"github.com/smallbiznis/collecta/internal/config"
	customerdomain "github.com/smallbiznis/collecta/internal/customer/domain"
	ledgerdomain "github.com/smallbiznis/collecta/internal/ledger/domain"
	obsmetrics "github.com/smallbiznis/collecta/internal/observability/metrics"
	"github.com/smallbiznis/collecta/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Clock     clock.Clock
	Config    config.Config
	Cadences  chasingdomain.Repository
	Customers customerdomain.Repository
	Planner   *plan.Planner
	Locker    *lock.Locker
	Senders   chasingdomain.Senders
}

// Executor runs `chase` for one cadence at a time.
type Executor struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	clock     clock.Clock
	lockTTL   time.Duration
	cadences  chasingdomain.Repository
	customers customerdomain.Repository
	planner   *plan.Planner
	locker    *lock.Locker
	senders   chasingdomain.Senders
}

func New(p Params) *Executor {
	return &Executor{
		db:        p.DB,
		log:       p.Log.Named("chasing.run"),
		genID:     p.GenID,
		clock:     p.Clock,
		lockTTL:   p.Config.Chasing.LockTTL,
		cadences:  p.Cadences,
		customers: p.Customers,
		planner:   p.Planner,
		locker:    p.Locker,
		senders:   p.Senders,
	}
}

// Chase runs one chasing pass for the cadence. It is idempotent and safe to
// invoke repeatedly: the cadence lock serializes concurrent attempts (a loser
// no-ops), and the completed-step guard prevents duplicate side effects.
func (e *Executor) Chase(ctx context.Context, orgID, cadenceID snowflake.ID) error {
	start := e.clock.Now()
	chasingMetrics := obsmetrics.Chasing()

	cadence, err := e.cadences.FindCadence(ctx, e.db, orgID, cadenceID)
	if err != nil {
		return err
	}
	if cadence == nil {
		return chasingdomain.ErrCadenceNotFound
	}
	log := e.log.With(
		zap.String("cadence_id", cadence.ID.String()),
		zap.String("org_id", orgID.String()),
	)

	cadenceLock := e.locker.ForCadence(cadence.ID)
	acquired, err := cadenceLock.Acquire(ctx, e.lockTTL)
	if err != nil {
		chasingMetrics.IncRun(obsmetrics.RunOutcomeError)
		return err
	}
	if !acquired {
		// Another runner owns this cadence; not an error, a normal skip.
		log.Info("cadence locked by another runner, skipping")
		chasingMetrics.IncRun(obsmetrics.RunOutcomeLockContended)
		return nil
	}
	defer func() {
		if err := cadenceLock.Release(ctx); err != nil {
			log.Warn("failed to release cadence lock", zap.Error(err))
		}
	}()

	events, err := e.planner.Plan(ctx, cadence)
	if err != nil {
		chasingMetrics.IncRun(obsmetrics.RunOutcomeError)
		chasingMetrics.ObserveRunDuration(obsmetrics.RunOutcomeError, time.Since(start))
		return err
	}
	chasingMetrics.IncPlannedEvents(len(events))

	for _, event := range events {
		if err := e.processEvent(ctx, cadence, event); err != nil {
			// The cursor was not advanced; the same step retries next run.
			log.Warn("chasing event failed, customer will be retried",
				zap.String("customer_id", event.Customer.ID.String()),
				zap.String("step_id", event.Step.ID.String()),
				zap.Error(err),
			)
		}
	}

	chasingMetrics.IncRun(obsmetrics.RunOutcomeCompleted)
	chasingMetrics.ObserveRunDuration(obsmetrics.RunOutcomeCompleted, time.Since(start))
	log.Info("chasing run completed",
		zap.Int("events", len(events)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return nil
}

// processEvent executes one customer's due step and advances the cursor. Any
// failure leaves the cursor untouched so the step is retried next run.
func (e *Executor) processEvent(ctx context.Context, cadence *chasingdomain.Cadence, event chasingdomain.ChasingEvent) error {
	orgID := cadence.OrgID
	customer := event.Customer
	step := event.Step
	chasingMetrics := obsmetrics.Chasing()

	completed, err := e.cadences.StepCompleted(ctx, e.db, orgID, cadence.ID, customer.ID, step.ID)
	if err != nil {
		return err
	}

	now := e.clock.Now()
	if !completed {
		// One action and one statistic per contributing invoice.
		for _, item := range event.Balance.Invoices {
			request := chasingdomain.ActionRequest{
				Customer: customer,
				Balance:  event.Balance,
				Invoices: []ledgerdomain.OpenItem{item},
				Step:     step,
			}
			if err := e.senders.Dispatch(ctx, request); err != nil {
				chasingMetrics.IncDeliveryFailure(string(step.Action))
				return err
			}
			chasingMetrics.IncAction(string(step.Action))

			attempts, err := e.cadences.LastAttempts(ctx, e.db, orgID, customer.ID, item.Invoice.ID)
			if err != nil {
				return err
			}
			statistic := chasingdomain.ChasingStatistic{
				ID:         e.genID.Generate(),
				OrgID:      orgID,
				CadenceID:  cadence.ID,
				StepID:     step.ID,
				CustomerID: customer.ID,
				InvoiceID:  item.Invoice.ID,
				Channel:    step.Action,
				Attempts:   attempts + 1,
				CreatedAt:  now,
				UpdatedAt:  now,
			}
			if err := e.cadences.InsertStatistic(ctx, e.db, &statistic); err != nil {
				return err
			}
		}

		record := chasingdomain.CompletedChasingStep{
			ID:          e.genID.Generate(),
			OrgID:       orgID,
			CadenceID:   cadence.ID,
			CustomerID:  customer.ID,
			StepID:      step.ID,
			CompletedAt: now,
			CreatedAt:   now,
		}
		// The unique index on (cadence, customer, step) can race with a
		// concurrent runner whose lock expired mid-run; losing that race
		// means the step is already recorded, which is the desired state.
		if err := e.cadences.InsertCompletedStep(ctx, e.db, &record); err != nil && !db.IsDuplicateKeyErr(err) {
			return err
		}
	}

	var next *snowflake.ID
	if event.NextStep != nil {
		nextID := event.NextStep.ID
		next = &nextID
	}
	return e.customers.UpdateNextChaseStep(ctx, e.db, orgID, customer.ID, next)
}

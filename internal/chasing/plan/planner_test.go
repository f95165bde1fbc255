package plan

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/collecta/internal/chasing/balance"
	chasingdomain "github.com/smallbiznis/collecta/internal/chasing/domain"
	"github.com/smallbiznis/collecta/internal/clock"
	customerdomain "github.com/smallbiznis/collecta/internal/customer/domain"
	customerrepository "github.com/smallbiznis/collecta/internal/customer/repository"
	ledgerdomain "github.com/smallbiznis/collecta/internal/ledger/domain"
	ledgerrepository "github.com/smallbiznis/collecta/internal/ledger/repository"
	"github.com/smallbiznis/collecta/pkg/db"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func daysAgo(days int) time.Time {
	return testNow.AddDate(0, 0, -days)
}

func newTestPlanner(t *testing.T) (*Planner, *gorm.DB) {
	t.Helper()
	conn, err := db.NewTest()
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	err = conn.AutoMigrate(
		&customerdomain.Customer{},
		&ledgerdomain.Invoice{},
		&ledgerdomain.InvoiceApplication{},
		&ledgerdomain.PendingTransaction{},
		&ledgerdomain.PaymentPlan{},
		&ledgerdomain.Installment{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}

	generator := balance.New(balance.Params{
		DB:    conn,
		Log:   zap.NewNop(),
		Repo:  ledgerrepository.Provide(),
		Clock: clock.NewFakeClock(testNow),
	})
	planner := New(Params{
		DB:        conn,
		Log:       zap.NewNop(),
		Customers: customerrepository.Provide(),
		Balances:  generator,
	})
	return planner, conn
}

// threeStepCadence builds reminder -> warning -> escalation gated at
// age 0 / 30 / 60 days.
func threeStepCadence() *chasingdomain.Cadence {
	return &chasingdomain.Cadence{
		ID:    1,
		OrgID: 9,
		Name:  "standard",
		Steps: []chasingdomain.Step{
			{ID: 11, OrgID: 9, CadenceID: 1, Name: "reminder", Position: 1, Schedule: "age:0", Action: chasingdomain.ActionEmail},
			{ID: 12, OrgID: 9, CadenceID: 1, Name: "warning", Position: 2, Schedule: "age:30", Action: chasingdomain.ActionEmail},
			{ID: 13, OrgID: 9, CadenceID: 1, Name: "escalation", Position: 3, Schedule: "age:60", Action: chasingdomain.ActionEscalate},
		},
	}
}

func seedChaseCustomer(t *testing.T, conn *gorm.DB, id snowflake.ID, cursor snowflake.ID) {
	t.Helper()
	cadenceID := snowflake.ID(1)
	customer := customerdomain.Customer{
		ID: id, OrgID: 9, Name: "Globex", Email: "ap@globex.test",
		Currency: "USD", Chase: true,
		ChasingCadenceID: &cadenceID,
	}
	if cursor != 0 {
		customer.NextChaseStep = &cursor
	}
	if err := conn.Create(&customer).Error; err != nil {
		t.Fatalf("seed customer: %v", err)
	}
}

func seedOpenInvoice(t *testing.T, conn *gorm.DB, id, customerID snowflake.ID, amount int64, issuedDaysAgo int) {
	t.Helper()
	invoice := ledgerdomain.Invoice{
		ID: id, OrgID: 9, CustomerID: customerID,
		Status: ledgerdomain.InvoiceStatusOpen, TotalAmount: amount, Currency: "USD",
		IssuedAt: daysAgo(issuedDaysAgo), DueAt: daysAgo(issuedDaysAgo - 30),
	}
	if err := conn.Create(&invoice).Error; err != nil {
		t.Fatalf("seed invoice: %v", err)
	}
}

func TestPlanCollapsesCascadeIntoOneEvent(t *testing.T) {
	planner, conn := newTestPlanner(t)
	cadence := threeStepCadence()

	// Age 40: reminder and warning are both due, escalation is not. The
	// customer gets exactly one event executing the last due step.
	seedChaseCustomer(t, conn, 100, 11)
	seedOpenInvoice(t, conn, 500, 100, 10000, 40)

	events, err := planner.Plan(context.Background(), cadence)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("events = %d, want 1", len(events))
	}
	event := events[0]
	if event.Step.ID != 12 {
		t.Fatalf("event step = %d, want warning (12)", event.Step.ID)
	}
	if event.NextStep == nil || event.NextStep.ID != 13 {
		t.Fatalf("next step = %+v, want escalation (13)", event.NextStep)
	}
	if event.Balance.Balance != 10000 {
		t.Fatalf("event balance = %d, want 10000", event.Balance.Balance)
	}
}

func TestPlanExhaustsCadence(t *testing.T) {
	planner, conn := newTestPlanner(t)
	cadence := threeStepCadence()

	seedChaseCustomer(t, conn, 100, 11)
	seedOpenInvoice(t, conn, 500, 100, 10000, 90)

	events, err := planner.Plan(context.Background(), cadence)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("events = %d, want 1", len(events))
	}
	if events[0].Step.ID != 13 {
		t.Fatalf("event step = %d, want escalation (13)", events[0].Step.ID)
	}
	if events[0].NextStep != nil {
		t.Fatalf("next step = %+v, want nil at cadence end", events[0].NextStep)
	}
}

func TestPlanCursorNotYetDue(t *testing.T) {
	planner, conn := newTestPlanner(t)
	cadence := threeStepCadence()

	// Cursor already advanced to escalation; at age 40 it is not due yet.
	seedChaseCustomer(t, conn, 100, 13)
	seedOpenInvoice(t, conn, 500, 100, 10000, 40)

	events, err := planner.Plan(context.Background(), cadence)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if len(events) != 0 {
		t.Fatalf("events = %d, want 0", len(events))
	}
}

func TestPlanSkipsCustomersWithoutOpenInvoices(t *testing.T) {
	planner, conn := newTestPlanner(t)
	cadence := threeStepCadence()

	seedChaseCustomer(t, conn, 100, 11)

	events, err := planner.Plan(context.Background(), cadence)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if len(events) != 0 {
		t.Fatalf("events = %d, want 0 without open invoices", len(events))
	}
}

func TestPlanMinBalanceGate(t *testing.T) {
	planner, conn := newTestPlanner(t)
	cadence := threeStepCadence()
	minBalance := int64(50000)
	cadence.MinBalance = &minBalance

	seedChaseCustomer(t, conn, 100, 11)
	seedOpenInvoice(t, conn, 500, 100, 10000, 40)

	events, err := planner.Plan(context.Background(), cadence)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if len(events) != 0 {
		t.Fatalf("events = %d, want 0 below the cadence minimum balance", len(events))
	}

	*cadence.MinBalance = 10000
	events, err = planner.Plan(context.Background(), cadence)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("events = %d, want 1 at the cadence minimum balance", len(events))
	}
}

func TestPlanIgnoresChaseDisabledCustomers(t *testing.T) {
	planner, conn := newTestPlanner(t)
	cadence := threeStepCadence()

	cadenceID := snowflake.ID(1)
	cursor := snowflake.ID(11)
	customer := customerdomain.Customer{
		ID: 100, OrgID: 9, Name: "Globex", Email: "ap@globex.test",
		Currency: "USD", Chase: false,
		ChasingCadenceID: &cadenceID,
		NextChaseStep:    &cursor,
	}
	if err := conn.Create(&customer).Error; err != nil {
		t.Fatalf("seed customer: %v", err)
	}
	seedOpenInvoice(t, conn, 500, 100, 10000, 40)

	events, err := planner.Plan(context.Background(), cadence)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if len(events) != 0 {
		t.Fatalf("events = %d, want 0 for chase-disabled customers", len(events))
	}
}

func TestPlanStaleCursorIsSkipped(t *testing.T) {
	planner, conn := newTestPlanner(t)
	cadence := threeStepCadence()

	// Cursor points at a step that no longer exists in the cadence.
	seedChaseCustomer(t, conn, 100, 999)
	seedOpenInvoice(t, conn, 500, 100, 10000, 40)

	events, err := planner.Plan(context.Background(), cadence)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if len(events) != 0 {
		t.Fatalf("events = %d, want 0 for a stale cursor", len(events))
	}
}

func TestPlanInvalidScheduleEndsCascade(t *testing.T) {
	planner, conn := newTestPlanner(t)
	cadence := threeStepCadence()
	cadence.Steps[1].Schedule = "sometime"

	seedChaseCustomer(t, conn, 100, 11)
	seedOpenInvoice(t, conn, 500, 100, 10000, 90)

	events, err := planner.Plan(context.Background(), cadence)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("events = %d, want 1", len(events))
	}
	if events[0].Step.ID != 11 {
		t.Fatalf("event step = %d, want reminder (11): invalid schedules end the cascade", events[0].Step.ID)
	}
	if events[0].NextStep == nil || events[0].NextStep.ID != 12 {
		t.Fatalf("next step = %+v, want the invalid step (12) so it is revisited", events[0].NextStep)
	}
}

func TestPlanEmptyCadence(t *testing.T) {
	planner, _ := newTestPlanner(t)

	events, err := planner.Plan(context.Background(), &chasingdomain.Cadence{ID: 1, OrgID: 9})
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if events != nil {
		t.Fatalf("events = %v, want nil for an empty cadence", events)
	}

	events, err = planner.Plan(context.Background(), nil)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if events != nil {
		t.Fatalf("events = %v, want nil for a nil cadence", events)
	}
}

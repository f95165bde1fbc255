package listener

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	chasingdomain "github.com/smallbiznis/collecta/internal/chasing/domain"
	chasingrepository "github.com/smallbiznis/collecta/internal/chasing/repository"
	"github.com/smallbiznis/collecta/internal/clock"
	customerdomain "github.com/smallbiznis/collecta/internal/customer/domain"
	customerrepository "github.com/smallbiznis/collecta/internal/customer/repository"
	"github.com/smallbiznis/collecta/internal/events"
	"github.com/smallbiznis/collecta/pkg/db"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestListener(t *testing.T) (*Listener, *gorm.DB) {
	t.Helper()
	conn, err := db.NewTest()
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	err = conn.AutoMigrate(
		&customerdomain.Customer{},
		&chasingdomain.Cadence{},
		&chasingdomain.Step{},
		&chasingdomain.ChasingStatistic{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}

	listener := New(Params{
		DB:        conn,
		Log:       zap.NewNop(),
		Clock:     clock.NewFakeClock(testNow),
		Cadences:  chasingrepository.Provide(),
		Customers: customerrepository.Provide(),
	})
	return listener, conn
}

func seedCadenceWithSteps(t *testing.T, conn *gorm.DB) {
	t.Helper()
	ctx := context.Background()
	repo := chasingrepository.Provide()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cadence := chasingdomain.Cadence{
		ID: 1, OrgID: 9, Name: "standard", TimeOfDay: "08:00",
		AssignmentMode: chasingdomain.AssignmentModeDefault,
		CreatedAt:      base, UpdatedAt: base,
	}
	if err := repo.InsertCadence(ctx, conn, &cadence); err != nil {
		t.Fatalf("seed cadence: %v", err)
	}
	steps := []chasingdomain.Step{
		{ID: 11, OrgID: 9, CadenceID: 1, Name: "reminder", Position: 1, Schedule: "age:0", Action: chasingdomain.ActionEmail, CreatedAt: base},
		{ID: 12, OrgID: 9, CadenceID: 1, Name: "warning", Position: 2, Schedule: "age:30", Action: chasingdomain.ActionEmail, CreatedAt: base},
	}
	for i := range steps {
		if err := repo.InsertStep(ctx, conn, &steps[i]); err != nil {
			t.Fatalf("seed step: %v", err)
		}
	}
}

func seedCustomerAtStep(t *testing.T, conn *gorm.DB, cursor *snowflake.ID, chase bool) {
	t.Helper()
	cadenceID := snowflake.ID(1)
	customer := customerdomain.Customer{
		ID: 100, OrgID: 9, Name: "Globex", Email: "ap@globex.test",
		Currency: "USD", Chase: chase,
		ChasingCadenceID: &cadenceID,
		NextChaseStep:    cursor,
	}
	if err := conn.Create(&customer).Error; err != nil {
		t.Fatalf("seed customer: %v", err)
	}
}

func seedOpenStatistic(t *testing.T, conn *gorm.DB, id, invoiceID snowflake.ID) {
	t.Helper()
	statistic := chasingdomain.ChasingStatistic{
		ID: id, OrgID: 9, CadenceID: 1, StepID: 11,
		CustomerID: 100, InvoiceID: invoiceID,
		Channel: chasingdomain.ActionEmail, Attempts: 1,
		CreatedAt: testNow.AddDate(0, 0, -5), UpdatedAt: testNow.AddDate(0, 0, -5),
	}
	if err := chasingrepository.Provide().InsertStatistic(context.Background(), conn, &statistic); err != nil {
		t.Fatalf("seed statistic: %v", err)
	}
}

func loadStatistic(t *testing.T, conn *gorm.DB, id snowflake.ID) chasingdomain.ChasingStatistic {
	t.Helper()
	var statistic chasingdomain.ChasingStatistic
	err := conn.Raw(`SELECT * FROM chasing_statistics WHERE id = ?`, id).Scan(&statistic).Error
	if err != nil {
		t.Fatalf("load statistic: %v", err)
	}
	return statistic
}

func cursorOf(t *testing.T, conn *gorm.DB) *snowflake.ID {
	t.Helper()
	customer, err := customerrepository.Provide().FindByID(context.Background(), conn, 9, 100)
	if err != nil || customer == nil {
		t.Fatalf("find customer: %v", err)
	}
	return customer.NextChaseStep
}

func TestPaidInvoiceResolvesStatisticsAndResetsCursor(t *testing.T) {
	listener, conn := newTestListener(t)
	seedCadenceWithSteps(t, conn)
	cursor := snowflake.ID(12)
	seedCustomerAtStep(t, conn, &cursor, true)
	seedOpenStatistic(t, conn, 9001, 500)
	seedOpenStatistic(t, conn, 9002, 501)

	err := listener.Handle(context.Background(), events.InvoiceEvent{
		Type: events.EventInvoicePaid, OrgID: 9, CustomerID: 100, InvoiceID: 500,
	})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}

	resolved := loadStatistic(t, conn, 9001)
	if resolved.PaymentResponsible == nil || !*resolved.PaymentResponsible {
		t.Fatalf("statistic for paid invoice = %v, want payment_responsible true", resolved.PaymentResponsible)
	}
	untouched := loadStatistic(t, conn, 9002)
	if untouched.PaymentResponsible != nil {
		t.Fatal("statistics for other invoices must stay unresolved")
	}

	if got := cursorOf(t, conn); got == nil || *got != 11 {
		t.Fatalf("cursor = %v, want reset to first step (11)", got)
	}
}

func TestDeletedInvoiceResolvesWithoutPaymentCredit(t *testing.T) {
	listener, conn := newTestListener(t)
	seedCadenceWithSteps(t, conn)
	cursor := snowflake.ID(12)
	seedCustomerAtStep(t, conn, &cursor, true)
	seedOpenStatistic(t, conn, 9001, 500)

	err := listener.Handle(context.Background(), events.InvoiceEvent{
		Type: events.EventInvoiceDeleted, OrgID: 9, CustomerID: 100, InvoiceID: 500,
	})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}

	resolved := loadStatistic(t, conn, 9001)
	if resolved.PaymentResponsible == nil || *resolved.PaymentResponsible {
		t.Fatalf("statistic = %v, want payment_responsible false for a delete", resolved.PaymentResponsible)
	}
}

func TestResolutionDoesNotOverwritePriorVerdicts(t *testing.T) {
	listener, conn := newTestListener(t)
	seedCadenceWithSteps(t, conn)
	cursor := snowflake.ID(12)
	seedCustomerAtStep(t, conn, &cursor, true)
	seedOpenStatistic(t, conn, 9001, 500)

	paid := events.InvoiceEvent{Type: events.EventInvoicePaid, OrgID: 9, CustomerID: 100, InvoiceID: 500}
	if err := listener.Handle(context.Background(), paid); err != nil {
		t.Fatalf("Handle paid: %v", err)
	}
	deleted := events.InvoiceEvent{Type: events.EventInvoiceDeleted, OrgID: 9, CustomerID: 100, InvoiceID: 500}
	if err := listener.Handle(context.Background(), deleted); err != nil {
		t.Fatalf("Handle deleted: %v", err)
	}

	resolved := loadStatistic(t, conn, 9001)
	if resolved.PaymentResponsible == nil || !*resolved.PaymentResponsible {
		t.Fatal("a later delete must not overwrite an earlier payment verdict")
	}
}

func TestChaseDisabledCustomerKeepsCursor(t *testing.T) {
	listener, conn := newTestListener(t)
	seedCadenceWithSteps(t, conn)
	cursor := snowflake.ID(12)
	seedCustomerAtStep(t, conn, &cursor, false)

	err := listener.Handle(context.Background(), events.InvoiceEvent{
		Type: events.EventInvoicePaid, OrgID: 9, CustomerID: 100, InvoiceID: 500,
	})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}

	if got := cursorOf(t, conn); got == nil || *got != 12 {
		t.Fatalf("cursor = %v, want untouched (12) for chase-disabled customer", got)
	}
}

func TestUnknownCustomerIsIgnored(t *testing.T) {
	listener, conn := newTestListener(t)
	seedCadenceWithSteps(t, conn)

	err := listener.Handle(context.Background(), events.InvoiceEvent{
		Type: events.EventInvoicePaid, OrgID: 9, CustomerID: 404, InvoiceID: 500,
	})
	if err != nil {
		t.Fatalf("Handle for unknown customer: %v", err)
	}
}

func TestListenerSubscribesThroughBus(t *testing.T) {
	listener, conn := newTestListener(t)
	seedCadenceWithSteps(t, conn)
	cursor := snowflake.ID(12)
	seedCustomerAtStep(t, conn, &cursor, true)

	bus := events.NewBus(zap.NewNop())
	listener.Register(bus)
	bus.Publish(context.Background(), events.InvoiceEvent{
		Type: events.EventInstallmentPaid, OrgID: 9, CustomerID: 100, InvoiceID: 500, InstallmentID: 700,
	})

	if got := cursorOf(t, conn); got == nil || *got != 11 {
		t.Fatalf("cursor = %v, want reset via bus delivery", got)
	}
}

package assign

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/collecta/internal/chasing/condition"
	chasingdomain "github.com/smallbiznis/collecta/internal/chasing/domain"
	chasingrepository "github.com/smallbiznis/collecta/internal/chasing/repository"
	customerdomain "github.com/smallbiznis/collecta/internal/customer/domain"
	"github.com/smallbiznis/collecta/pkg/db"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func newTestAssigner(t *testing.T) (*Assigner, *gorm.DB) {
	t.Helper()
	conn, err := db.NewTest()
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := conn.AutoMigrate(&chasingdomain.Cadence{}, &chasingdomain.Step{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	assigner := New(Params{
		DB:        conn,
		Log:       zap.NewNop(),
		Repo:      chasingrepository.Provide(),
		Evaluator: condition.NewEvaluator(zap.NewNop(), time.Minute),
	})
	return assigner, conn
}

func seedCadence(t *testing.T, conn *gorm.DB, cadence chasingdomain.Cadence) {
	t.Helper()
	if err := conn.Create(&cadence).Error; err != nil {
		t.Fatalf("seed cadence: %v", err)
	}
}

func TestAssignFirstMatchingConditionalWins(t *testing.T) {
	assigner, conn := newTestAssigner(t)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	seedCadence(t, conn, chasingdomain.Cadence{
		ID: 1, OrgID: 9, Name: "enterprise", TimeOfDay: "08:00",
		AssignmentMode:       chasingdomain.AssignmentModeConditional,
		AssignmentConditions: "customer.metadata.tier == 'enterprise'",
		CreatedAt:            base, UpdatedAt: base,
	})
	seedCadence(t, conn, chasingdomain.Cadence{
		ID: 2, OrgID: 9, Name: "domestic", TimeOfDay: "08:00",
		AssignmentMode:       chasingdomain.AssignmentModeConditional,
		AssignmentConditions: "customer.country == 'US'",
		CreatedAt:            base.Add(time.Minute), UpdatedAt: base.Add(time.Minute),
	})
	seedCadence(t, conn, chasingdomain.Cadence{
		ID: 3, OrgID: 9, Name: "catch-all-us", TimeOfDay: "08:00",
		AssignmentMode:       chasingdomain.AssignmentModeConditional,
		AssignmentConditions: "customer.country == 'US'",
		CreatedAt:            base.Add(2 * time.Minute), UpdatedAt: base.Add(2 * time.Minute),
	})

	customer := customerdomain.Customer{ID: 100, OrgID: 9, Country: "US", Metadata: datatypes.JSONMap{}}
	cadence, err := assigner.Assign(context.Background(), customer)
	if err != nil {
		t.Fatalf("Assign: %v", err)
	}
	if cadence == nil || cadence.ID != 2 {
		t.Fatalf("Assign picked %+v, want cadence 2 (first match in creation order)", cadence)
	}
}

func TestAssignFallsBackToDefault(t *testing.T) {
	assigner, conn := newTestAssigner(t)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	seedCadence(t, conn, chasingdomain.Cadence{
		ID: 1, OrgID: 9, Name: "domestic", TimeOfDay: "08:00",
		AssignmentMode:       chasingdomain.AssignmentModeConditional,
		AssignmentConditions: "customer.country == 'US'",
		CreatedAt:            base, UpdatedAt: base,
	})
	seedCadence(t, conn, chasingdomain.Cadence{
		ID: 2, OrgID: 9, Name: "default", TimeOfDay: "08:00",
		AssignmentMode: chasingdomain.AssignmentModeDefault,
		CreatedAt:      base.Add(time.Minute), UpdatedAt: base.Add(time.Minute),
	})

	customer := customerdomain.Customer{ID: 100, OrgID: 9, Country: "DE"}
	cadence, err := assigner.Assign(context.Background(), customer)
	if err != nil {
		t.Fatalf("Assign: %v", err)
	}
	if cadence == nil || cadence.ID != 2 {
		t.Fatalf("Assign picked %+v, want the default cadence", cadence)
	}
}

func TestAssignNoCadenceApplies(t *testing.T) {
	assigner, conn := newTestAssigner(t)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	seedCadence(t, conn, chasingdomain.Cadence{
		ID: 1, OrgID: 9, Name: "domestic", TimeOfDay: "08:00",
		AssignmentMode:       chasingdomain.AssignmentModeConditional,
		AssignmentConditions: "customer.country == 'US'",
		CreatedAt:            base, UpdatedAt: base,
	})

	customer := customerdomain.Customer{ID: 100, OrgID: 9, Country: "DE"}
	cadence, err := assigner.Assign(context.Background(), customer)
	if err != nil {
		t.Fatalf("Assign: %v", err)
	}
	if cadence != nil {
		t.Fatalf("Assign = %+v, want nil", cadence)
	}
}

func TestAssignBrokenConditionIsNonMatching(t *testing.T) {
	assigner, conn := newTestAssigner(t)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	seedCadence(t, conn, chasingdomain.Cadence{
		ID: 1, OrgID: 9, Name: "broken", TimeOfDay: "08:00",
		AssignmentMode:       chasingdomain.AssignmentModeConditional,
		AssignmentConditions: "customer.country ==",
		CreatedAt:            base, UpdatedAt: base,
	})
	seedCadence(t, conn, chasingdomain.Cadence{
		ID: 2, OrgID: 9, Name: "default", TimeOfDay: "08:00",
		AssignmentMode: chasingdomain.AssignmentModeDefault,
		CreatedAt:      base.Add(time.Minute), UpdatedAt: base.Add(time.Minute),
	})

	customer := customerdomain.Customer{ID: 100, OrgID: 9, Country: "US"}
	cadence, err := assigner.Assign(context.Background(), customer)
	if err != nil {
		t.Fatalf("Assign: %v", err)
	}
	if cadence == nil || cadence.ID != 2 {
		t.Fatalf("broken condition should fall through to default, got %+v", cadence)
	}
}

func TestApplySetsCursorToFirstStep(t *testing.T) {
	cadence := &chasingdomain.Cadence{
		ID: 5,
		Steps: []chasingdomain.Step{
			{ID: 51, Position: 1},
			{ID: 52, Position: 2},
		},
	}
	customer := customerdomain.Customer{ID: 100, Chase: true}

	Apply(&customer, cadence)

	if customer.ChasingCadenceID == nil || *customer.ChasingCadenceID != 5 {
		t.Fatalf("ChasingCadenceID = %v, want 5", customer.ChasingCadenceID)
	}
	if customer.NextChaseStep == nil || *customer.NextChaseStep != 51 {
		t.Fatalf("NextChaseStep = %v, want 51", customer.NextChaseStep)
	}
}

func TestApplyChaseDisabledLeavesCursorEmpty(t *testing.T) {
	cadence := &chasingdomain.Cadence{
		ID:    5,
		Steps: []chasingdomain.Step{{ID: 51, Position: 1}},
	}
	customer := customerdomain.Customer{ID: 100, Chase: false}

	Apply(&customer, cadence)

	if customer.ChasingCadenceID == nil || *customer.ChasingCadenceID != 5 {
		t.Fatalf("ChasingCadenceID = %v, want 5", customer.ChasingCadenceID)
	}
	if customer.NextChaseStep != nil {
		t.Fatalf("NextChaseStep = %v, want nil when chasing is disabled", customer.NextChaseStep)
	}
}

func TestApplyNilCadenceClearsAssignment(t *testing.T) {
	cadenceID := snowflake.ID(5)
	stepID := snowflake.ID(51)
	customer := customerdomain.Customer{
		ID: 100, Chase: true,
		ChasingCadenceID: &cadenceID,
		NextChaseStep:    &stepID,
	}

	Apply(&customer, nil)

	if customer.ChasingCadenceID != nil || customer.NextChaseStep != nil {
		t.Fatalf("nil cadence should clear assignment, got %+v", customer)
	}
}

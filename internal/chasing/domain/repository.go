package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Repository persists cadences, steps and the chasing audit trail.
type Repository interface {
	InsertCadence(ctx context.Context, db *gorm.DB, cadence *Cadence) error
	InsertStep(ctx context.Context, db *gorm.DB, step *Step) error

	// FindCadence loads a cadence with its steps in authoritative order.
	FindCadence(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*Cadence, error)
	// ListCadences loads every cadence of the org, steps included, in
	// creation order.
	ListCadences(ctx context.Context, db *gorm.DB, orgID snowflake.ID) ([]Cadence, error)
	// ListConditionalCadences returns CONDITIONAL cadences in creation order;
	// order matters for deterministic first-match assignment.
	ListConditionalCadences(ctx context.Context, db *gorm.DB, orgID snowflake.ID) ([]Cadence, error)
	// FindDefaultCadence returns the org's DEFAULT cadence, if any.
	FindDefaultCadence(ctx context.Context, db *gorm.DB, orgID snowflake.ID) (*Cadence, error)

	// StepCompleted reports whether the step already fired for the customer.
	StepCompleted(ctx context.Context, db *gorm.DB, orgID, cadenceID, customerID, stepID snowflake.ID) (bool, error)
	InsertCompletedStep(ctx context.Context, db *gorm.DB, completed *CompletedChasingStep) error

	// LastAttempts returns the highest attempt count recorded for the
	// customer's invoice across all prior statistics, zero when none exist.
	LastAttempts(ctx context.Context, db *gorm.DB, orgID, customerID, invoiceID snowflake.ID) (int, error)
	InsertStatistic(ctx context.Context, db *gorm.DB, statistic *ChasingStatistic) error
	// ResolveStatistics stamps payment_responsible on the customer's open
	// statistics for the given invoice.
	ResolveStatistics(ctx context.Context, db *gorm.DB, orgID, invoiceID snowflake.ID, paymentResponsible bool, now time.Time) error
}

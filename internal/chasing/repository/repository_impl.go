package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/collecta/internal/chasing/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertCadence(ctx context.Context, db *gorm.DB, cadence *domain.Cadence) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO chasing_cadences (id, org_id, name, time_of_day, min_balance,
		                               assignment_mode, assignment_conditions, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		cadence.ID,
		cadence.OrgID,
		cadence.Name,
		cadence.TimeOfDay,
		cadence.MinBalance,
		cadence.AssignmentMode,
		cadence.AssignmentConditions,
		cadence.CreatedAt,
		cadence.UpdatedAt,
	).Error
}

func (r *repo) InsertStep(ctx context.Context, db *gorm.DB, step *domain.Step) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO chasing_steps (id, org_id, cadence_id, name, position, schedule,
		                            action, template_id, assigned_user_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		step.ID,
		step.OrgID,
		step.CadenceID,
		step.Name,
		step.Position,
		step.Schedule,
		step.Action,
		step.TemplateID,
		step.AssignedUserID,
		step.CreatedAt,
	).Error
}

func (r *repo) FindCadence(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*domain.Cadence, error) {
	var cadence domain.Cadence
	err := db.WithContext(ctx).Raw(
		`SELECT id, org_id, name, time_of_day, min_balance, assignment_mode,
		        assignment_conditions, created_at, updated_at
		 FROM chasing_cadences WHERE org_id = ? AND id = ?`,
		orgID,
		id,
	).Scan(&cadence).Error
	if err != nil {
		return nil, err
	}
	if cadence.ID == 0 {
		return nil, nil
	}
	if err := r.attachSteps(ctx, db, orgID, []*domain.Cadence{&cadence}); err != nil {
		return nil, err
	}
	return &cadence, nil
}

func (r *repo) ListCadences(ctx context.Context, db *gorm.DB, orgID snowflake.ID) ([]domain.Cadence, error) {
	return r.listCadences(ctx, db,
		`SELECT id, org_id, name, time_of_day, min_balance, assignment_mode,
		        assignment_conditions, created_at, updated_at
		 FROM chasing_cadences
		 WHERE org_id = ?
		 ORDER BY created_at ASC, id ASC`,
		orgID,
	)
}

func (r *repo) ListConditionalCadences(ctx context.Context, db *gorm.DB, orgID snowflake.ID) ([]domain.Cadence, error) {
	return r.listCadences(ctx, db,
		`SELECT id, org_id, name, time_of_day, min_balance, assignment_mode,
		        assignment_conditions, created_at, updated_at
		 FROM chasing_cadences
		 WHERE org_id = ? AND assignment_mode = ?
		 ORDER BY created_at ASC, id ASC`,
		orgID,
		domain.AssignmentModeConditional,
	)
}

func (r *repo) FindDefaultCadence(ctx context.Context, db *gorm.DB, orgID snowflake.ID) (*domain.Cadence, error) {
	cadences, err := r.listCadences(ctx, db,
		`SELECT id, org_id, name, time_of_day, min_balance, assignment_mode,
		        assignment_conditions, created_at, updated_at
		 FROM chasing_cadences
		 WHERE org_id = ? AND assignment_mode = ?
		 ORDER BY created_at ASC, id ASC
		 LIMIT 1`,
		orgID,
		domain.AssignmentModeDefault,
	)
	if err != nil {
		return nil, err
	}
	if len(cadences) == 0 {
		return nil, nil
	}
	return &cadences[0], nil
}

func (r *repo) listCadences(ctx context.Context, db *gorm.DB, query string, args ...any) ([]domain.Cadence, error) {
	var cadences []domain.Cadence
	if err := db.WithContext(ctx).Raw(query, args...).Scan(&cadences).Error; err != nil {
		return nil, err
	}
	if len(cadences) == 0 {
		return nil, nil
	}
	refs := make([]*domain.Cadence, 0, len(cadences))
	for i := range cadences {
		refs = append(refs, &cadences[i])
	}
	if err := r.attachSteps(ctx, db, cadences[0].OrgID, refs); err != nil {
		return nil, err
	}
	return cadences, nil
}

// attachSteps loads the authoritative step order for each cadence. Position
// first, creation id as tie-break, so the order is total and deterministic.
func (r *repo) attachSteps(ctx context.Context, db *gorm.DB, orgID snowflake.ID, cadences []*domain.Cadence) error {
	ids := make([]snowflake.ID, 0, len(cadences))
	byID := make(map[snowflake.ID]*domain.Cadence, len(cadences))
	for _, cadence := range cadences {
		ids = append(ids, cadence.ID)
		byID[cadence.ID] = cadence
	}

	var steps []domain.Step
	err := db.WithContext(ctx).Raw(
		`SELECT id, org_id, cadence_id, name, position, schedule, action,
		        template_id, assigned_user_id, created_at
		 FROM chasing_steps
		 WHERE org_id = ? AND cadence_id IN ?
		 ORDER BY cadence_id, position ASC, id ASC`,
		orgID,
		ids,
	).Scan(&steps).Error
	if err != nil {
		return err
	}
	for _, step := range steps {
		if cadence, ok := byID[step.CadenceID]; ok {
			cadence.Steps = append(cadence.Steps, step)
		}
	}
	return nil
}

func (r *repo) StepCompleted(ctx context.Context, db *gorm.DB, orgID, cadenceID, customerID, stepID snowflake.ID) (bool, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(1) FROM completed_chasing_steps
		 WHERE org_id = ? AND cadence_id = ? AND customer_id = ? AND step_id = ?`,
		orgID,
		cadenceID,
		customerID,
		stepID,
	).Scan(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repo) InsertCompletedStep(ctx context.Context, db *gorm.DB, completed *domain.CompletedChasingStep) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO completed_chasing_steps (id, org_id, cadence_id, customer_id, step_id, completed_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		completed.ID,
		completed.OrgID,
		completed.CadenceID,
		completed.CustomerID,
		completed.StepID,
		completed.CompletedAt,
		completed.CreatedAt,
	).Error
}

func (r *repo) LastAttempts(ctx context.Context, db *gorm.DB, orgID, customerID, invoiceID snowflake.ID) (int, error) {
	var attempts *int
	err := db.WithContext(ctx).Raw(
		`SELECT MAX(attempts) FROM chasing_statistics
		 WHERE org_id = ? AND customer_id = ? AND invoice_id = ?`,
		orgID,
		customerID,
		invoiceID,
	).Scan(&attempts).Error
	if err != nil {
		return 0, err
	}
	if attempts == nil {
		return 0, nil
	}
	return *attempts, nil
}

func (r *repo) InsertStatistic(ctx context.Context, db *gorm.DB, statistic *domain.ChasingStatistic) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO chasing_statistics (id, org_id, cadence_id, step_id, customer_id, invoice_id,
		                                 channel, attempts, payment_responsible, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		statistic.ID,
		statistic.OrgID,
		statistic.CadenceID,
		statistic.StepID,
		statistic.CustomerID,
		statistic.InvoiceID,
		statistic.Channel,
		statistic.Attempts,
		statistic.PaymentResponsible,
		statistic.CreatedAt,
		statistic.UpdatedAt,
	).Error
}

func (r *repo) ResolveStatistics(ctx context.Context, db *gorm.DB, orgID, invoiceID snowflake.ID, paymentResponsible bool, now time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE chasing_statistics
		 SET payment_responsible = ?, updated_at = ?
		 WHERE org_id = ? AND invoice_id = ? AND payment_responsible IS NULL`,
		paymentResponsible,
		now,
		orgID,
		invoiceID,
	).Error
}

package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/collecta/internal/customer/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, customer *domain.Customer) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO customers (id, org_id, name, email, currency, country, auto_pay, chase,
		                        chasing_cadence_id, next_chase_step, assigned_user_id, metadata,
		                        created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		customer.ID,
		customer.OrgID,
		customer.Name,
		customer.Email,
		customer.Currency,
		customer.Country,
		customer.AutoPay,
		customer.Chase,
		customer.ChasingCadenceID,
		customer.NextChaseStep,
		customer.AssignedUserID,
		customer.Metadata,
		customer.CreatedAt,
		customer.UpdatedAt,
	).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, customer *domain.Customer) error {
	return db.WithContext(ctx).Exec(
		`UPDATE customers
		 SET name = ?, email = ?, currency = ?, country = ?, auto_pay = ?, chase = ?,
		     chasing_cadence_id = ?, next_chase_step = ?, assigned_user_id = ?,
		     metadata = ?, updated_at = ?
		 WHERE org_id = ? AND id = ?`,
		customer.Name,
		customer.Email,
		customer.Currency,
		customer.Country,
		customer.AutoPay,
		customer.Chase,
		customer.ChasingCadenceID,
		customer.NextChaseStep,
		customer.AssignedUserID,
		customer.Metadata,
		customer.UpdatedAt,
		customer.OrgID,
		customer.ID,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*domain.Customer, error) {
	var customer domain.Customer
	err := db.WithContext(ctx).Raw(
		`SELECT id, org_id, name, email, currency, country, auto_pay, chase,
		        chasing_cadence_id, next_chase_step, assigned_user_id, metadata,
		        created_at, updated_at
		 FROM customers WHERE org_id = ? AND id = ?`,
		orgID,
		id,
	).Scan(&customer).Error
	if err != nil {
		return nil, err
	}
	if customer.ID == 0 {
		return nil, nil
	}
	return &customer, nil
}

func (r *repo) ListForChasing(ctx context.Context, db *gorm.DB, orgID, cadenceID snowflake.ID) ([]domain.Customer, error) {
	var customers []domain.Customer
	err := db.WithContext(ctx).Raw(
		`SELECT id, org_id, name, email, currency, country, auto_pay, chase,
		        chasing_cadence_id, next_chase_step, assigned_user_id, metadata,
		        created_at, updated_at
		 FROM customers
		 WHERE org_id = ? AND chasing_cadence_id = ? AND chase = ? AND next_chase_step IS NOT NULL
		 ORDER BY id ASC`,
		orgID,
		cadenceID,
		true,
	).Scan(&customers).Error
	if err != nil {
		return nil, err
	}
	return customers, nil
}

func (r *repo) UpdateNextChaseStep(ctx context.Context, db *gorm.DB, orgID, customerID snowflake.ID, stepID *snowflake.ID) error {
	return db.WithContext(ctx).Exec(
		`UPDATE customers SET next_chase_step = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE org_id = ? AND id = ?`,
		stepID,
		orgID,
		customerID,
	).Error
}

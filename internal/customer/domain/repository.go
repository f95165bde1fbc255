package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, customer *Customer) error
	Update(ctx context.Context, db *gorm.DB, customer *Customer) error
	FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*Customer, error)
	// ListForChasing returns customers assigned to the cadence with chasing
	// enabled and a non-null cursor, in a stable order.
	ListForChasing(ctx context.Context, db *gorm.DB, orgID, cadenceID snowflake.ID) ([]Customer, error)
	// UpdateNextChaseStep persists the cursor; nil clears it at cadence end.
	UpdateNextChaseStep(ctx context.Context, db *gorm.DB, orgID, customerID snowflake.ID, stepID *snowflake.ID) error
}

package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Repository is the ledger query capability consumed by the balance generator.
type Repository interface {
	// OpenItems returns the customer's open invoices in increasing issue-date
	// order, with applied/pending amounts netted and any active installment
	// schedule attached. Draft, void, paid and closed invoices are excluded.
	OpenItems(ctx context.Context, db *gorm.DB, orgID, customerID snowflake.ID, currency string) ([]OpenItem, error)
}

// Package balance computes AccountBalance snapshots from the receivables
// ledger. Snapshots are derived fresh on every planning pass so they always
// reflect the latest ledger state.
package balance

import (
	"context"
	"time"

	chasingdomain "github.com/smallbiznis/collecta/internal/chasing/domain"
	"github.com/smallbiznis/collecta/internal/clock"
	customerdomain "github.com/smallbiznis/collecta/internal/customer/domain"
	ledgerdomain "github.com/smallbiznis/collecta/internal/ledger/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	Repo  ledgerdomain.Repository
	Clock clock.Clock
}

// Generator aggregates a customer's open items into one balance snapshot.
type Generator struct {
	db    *gorm.DB
	log   *zap.Logger
	repo  ledgerdomain.Repository
	clock clock.Clock
}

func New(p Params) *Generator {
	return &Generator{
		db:    p.DB,
		log:   p.Log.Named("chasing.balance"),
		repo:  p.Repo,
		clock: p.Clock,
	}
}

// Generate builds the AccountBalance for one customer in one currency.
// Auto-pay customers are always reported with a zero balance and zero age.
func (g *Generator) Generate(ctx context.Context, customer customerdomain.Customer, currency string) (chasingdomain.AccountBalance, error) {
	snapshot := chasingdomain.AccountBalance{Currency: currency}
	if customer.AutoPay {
		return snapshot, nil
	}

	items, err := g.repo.OpenItems(ctx, g.db, customer.OrgID, customer.ID, currency)
	if err != nil {
		return snapshot, err
	}

	now := g.clock.Now()
	for _, item := range items {
		outstanding := item.Outstanding()
		if outstanding <= 0 {
			continue
		}

		snapshot.Balance += outstanding
		snapshot.Invoices = append(snapshot.Invoices, item)

		if age := daysSince(now, item.Invoice.IssuedAt); age > snapshot.Age {
			snapshot.Age = age
		}

		pastDueAmount, pastDueSince := pastDuePosture(item, now)
		if pastDueAmount <= 0 {
			continue
		}
		snapshot.PastDueBalance += pastDueAmount
		age := daysSince(now, pastDueSince)
		if snapshot.PastDueAge == nil || age > *snapshot.PastDueAge {
			snapshot.PastDueAge = &age
		}
	}

	return snapshot, nil
}

// pastDuePosture returns the overdue portion of an open item and the due date
// of its oldest overdue component. With an active payment plan the installment
// schedule governs; otherwise the invoice due date does.
func pastDuePosture(item ledgerdomain.OpenItem, now time.Time) (int64, time.Time) {
	if !item.HasPlan() {
		if item.Invoice.DueAt.Before(now) {
			return item.Outstanding(), item.Invoice.DueAt
		}
		return 0, time.Time{}
	}

	var amount int64
	var oldest time.Time
	for _, installment := range item.Installments {
		if !installment.Unpaid() || !installment.DueAt.Before(now) {
			continue
		}
		amount += installment.Amount
		if oldest.IsZero() || installment.DueAt.Before(oldest) {
			oldest = installment.DueAt
		}
	}
	if outstanding := item.Outstanding(); amount > outstanding {
		amount = outstanding
	}
	return amount, oldest
}

func daysSince(now, t time.Time) int {
	if t.IsZero() || !t.Before(now) {
		return 0
	}
	return int(now.Sub(t).Hours() / 24)
}

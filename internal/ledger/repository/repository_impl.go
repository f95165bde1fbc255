package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/collecta/internal/ledger/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

type amountRow struct {
	InvoiceID snowflake.ID
	Total     int64
}

func (r *repo) OpenItems(ctx context.Context, db *gorm.DB, orgID, customerID snowflake.ID, currency string) ([]domain.OpenItem, error) {
	var invoices []domain.Invoice
	err := db.WithContext(ctx).Raw(
		`SELECT id, org_id, customer_id, status, total_amount, currency,
		        issued_at, due_at, paid_at, metadata, created_at, updated_at
		 FROM invoices
		 WHERE org_id = ? AND customer_id = ? AND currency = ? AND status = ?
		 ORDER BY issued_at ASC, id ASC`,
		orgID,
		customerID,
		currency,
		domain.InvoiceStatusOpen,
	).Scan(&invoices).Error
	if err != nil {
		return nil, err
	}
	if len(invoices) == 0 {
		return nil, nil
	}

	ids := make([]snowflake.ID, 0, len(invoices))
	for _, invoice := range invoices {
		ids = append(ids, invoice.ID)
	}

	applied, err := r.sumByInvoice(ctx, db,
		`SELECT invoice_id, SUM(amount) AS total
		 FROM invoice_applications
		 WHERE org_id = ? AND invoice_id IN ?
		 GROUP BY invoice_id`,
		orgID, ids,
	)
	if err != nil {
		return nil, err
	}

	pending, err := r.sumByInvoice(ctx, db,
		`SELECT invoice_id, SUM(amount) AS total
		 FROM pending_transactions
		 WHERE org_id = ? AND invoice_id IN ? AND status = ?
		 GROUP BY invoice_id`,
		orgID, ids, domain.PendingTransactionStatusPending,
	)
	if err != nil {
		return nil, err
	}

	installments, err := r.activeInstallments(ctx, db, orgID, ids)
	if err != nil {
		return nil, err
	}

	items := make([]domain.OpenItem, 0, len(invoices))
	for _, invoice := range invoices {
		items = append(items, domain.OpenItem{
			Invoice:       invoice,
			AppliedAmount: applied[invoice.ID],
			PendingAmount: pending[invoice.ID],
			Installments:  installments[invoice.ID],
		})
	}
	return items, nil
}

func (r *repo) sumByInvoice(ctx context.Context, db *gorm.DB, query string, args ...any) (map[snowflake.ID]int64, error) {
	var rows []amountRow
	if err := db.WithContext(ctx).Raw(query, args...).Scan(&rows).Error; err != nil {
		return nil, err
	}
	totals := make(map[snowflake.ID]int64, len(rows))
	for _, row := range rows {
		totals[row.InvoiceID] = row.Total
	}
	return totals, nil
}

type installmentRow struct {
	domain.Installment
	InvoiceID snowflake.ID
}

func (r *repo) activeInstallments(ctx context.Context, db *gorm.DB, orgID snowflake.ID, invoiceIDs []snowflake.ID) (map[snowflake.ID][]domain.Installment, error) {
	var rows []installmentRow
	err := db.WithContext(ctx).Raw(
		`SELECT i.id, i.org_id, i.payment_plan_id, i.position, i.amount,
		        i.due_at, i.paid_at, i.created_at, p.invoice_id
		 FROM installments i
		 JOIN payment_plans p ON p.id = i.payment_plan_id
		 WHERE p.org_id = ? AND p.invoice_id IN ? AND p.status = ?
		 ORDER BY p.invoice_id, i.position ASC`,
		orgID,
		invoiceIDs,
		domain.PaymentPlanStatusActive,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	grouped := make(map[snowflake.ID][]domain.Installment)
	for _, row := range rows {
		grouped[row.InvoiceID] = append(grouped[row.InvoiceID], row.Installment)
	}
	return grouped, nil
}

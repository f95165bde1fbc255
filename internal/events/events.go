// Package events defines the invoice lifecycle events consumed by the chasing
// engine. The invoice boundary publishes these explicitly instead of relying on
// ORM save hooks.
package events

import "github.com/bwmarrin/snowflake"

// Invoice lifecycle event types.
const (
	EventInvoicePaid     = "invoice_paid"
	EventInvoiceClosed   = "invoice_closed"
	EventInvoiceDeleted  = "invoice_deleted"
	EventInstallmentPaid = "installment_paid"
)

// InvoiceEvent captures a balance-affecting invoice transition.
type InvoiceEvent struct {
	Type          string
	OrgID         snowflake.ID
	CustomerID    snowflake.ID
	InvoiceID     snowflake.ID
	InstallmentID snowflake.ID
}

// Paid reports whether the event represents a genuine payment, as opposed to a
// close or delete that cleared the balance without money moving.
func (e InvoiceEvent) Paid() bool {
	return e.Type == EventInvoicePaid || e.Type == EventInstallmentPaid
}

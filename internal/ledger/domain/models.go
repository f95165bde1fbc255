// Package domain contains the receivables ledger models the chasing engine
// reads. Invoice generation and payment collection live outside this service;
// these tables are the queryable projection of that ledger.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// InvoiceStatus represents invoice lifecycle states.
type InvoiceStatus string

const (
	InvoiceStatusDraft  InvoiceStatus = "DRAFT"
	InvoiceStatusOpen   InvoiceStatus = "OPEN"
	InvoiceStatusPaid   InvoiceStatus = "PAID"
	InvoiceStatusVoid   InvoiceStatus = "VOID"
	InvoiceStatusClosed InvoiceStatus = "CLOSED"
)

// Invoice is a receivable owed by a customer.
type Invoice struct {
	ID          snowflake.ID      `gorm:"primaryKey"`
	OrgID       snowflake.ID      `gorm:"not null;index"`
	CustomerID  snowflake.ID      `gorm:"not null;index"`
	Status      InvoiceStatus     `gorm:"type:text;not null;default:'DRAFT'"`
	TotalAmount int64             `gorm:"not null;default:0"`
	Currency    string            `gorm:"type:text;not null"`
	IssuedAt    time.Time         `gorm:"not null"`
	DueAt       time.Time         `gorm:"not null"`
	PaidAt      *time.Time        `gorm:""`
	Metadata    datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'"`
	CreatedAt   time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt   time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Invoice) TableName() string { return "invoices" }

// ApplicationKind distinguishes what reduced an invoice balance.
type ApplicationKind string

const (
	ApplicationKindPayment    ApplicationKind = "PAYMENT"
	ApplicationKindCreditNote ApplicationKind = "CREDIT_NOTE"
)

// InvoiceApplication records a payment or credit note applied to an invoice.
type InvoiceApplication struct {
	ID        snowflake.ID    `gorm:"primaryKey"`
	OrgID     snowflake.ID    `gorm:"not null;index"`
	InvoiceID snowflake.ID    `gorm:"not null;index"`
	Kind      ApplicationKind `gorm:"type:text;not null"`
	Amount    int64           `gorm:"not null"`
	AppliedAt time.Time       `gorm:"not null"`
	CreatedAt time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (InvoiceApplication) TableName() string { return "invoice_applications" }

// PendingTransactionStatus tracks an in-flight charge.
type PendingTransactionStatus string

const (
	PendingTransactionStatusPending PendingTransactionStatus = "PENDING"
	PendingTransactionStatusSettled PendingTransactionStatus = "SETTLED"
	PendingTransactionStatusFailed  PendingTransactionStatus = "FAILED"
)

// PendingTransaction is money already promised against an invoice but not yet
// settled; it reduces the outstanding amount the chaser considers collectible.
type PendingTransaction struct {
	ID        snowflake.ID             `gorm:"primaryKey"`
	OrgID     snowflake.ID             `gorm:"not null;index"`
	InvoiceID snowflake.ID             `gorm:"not null;index"`
	Status    PendingTransactionStatus `gorm:"type:text;not null;default:'PENDING'"`
	Amount    int64                    `gorm:"not null"`
	CreatedAt time.Time                `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (PendingTransaction) TableName() string { return "pending_transactions" }

// PaymentPlanStatus tracks an installment agreement.
type PaymentPlanStatus string

const (
	PaymentPlanStatusActive    PaymentPlanStatus = "ACTIVE"
	PaymentPlanStatusCompleted PaymentPlanStatus = "COMPLETED"
	PaymentPlanStatusCanceled  PaymentPlanStatus = "CANCELED"
)

// PaymentPlan splits an invoice into scheduled installments. While a plan is
// active, installment due dates replace the invoice due date for aging.
type PaymentPlan struct {
	ID        snowflake.ID      `gorm:"primaryKey"`
	OrgID     snowflake.ID      `gorm:"not null;index"`
	InvoiceID snowflake.ID      `gorm:"not null;index"`
	Status    PaymentPlanStatus `gorm:"type:text;not null;default:'ACTIVE'"`
	CreatedAt time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (PaymentPlan) TableName() string { return "payment_plans" }

// Installment is one scheduled slice of a payment plan.
type Installment struct {
	ID            snowflake.ID `gorm:"primaryKey"`
	OrgID         snowflake.ID `gorm:"not null;index"`
	PaymentPlanID snowflake.ID `gorm:"not null;index"`
	Position      int          `gorm:"not null"`
	Amount        int64        `gorm:"not null"`
	DueAt         time.Time    `gorm:"not null"`
	PaidAt        *time.Time   `gorm:""`
	CreatedAt     time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Installment) TableName() string { return "installments" }

// Unpaid reports whether the installment still owes money.
func (i Installment) Unpaid() bool { return i.PaidAt == nil }

// OpenItem is one open invoice with everything the balance generator needs:
// the netting amounts and, when a plan is active, the installment schedule.
type OpenItem struct {
	Invoice       Invoice
	AppliedAmount int64
	PendingAmount int64
	Installments  []Installment
}

// Outstanding is the collectible remainder of the invoice.
func (item OpenItem) Outstanding() int64 {
	remaining := item.Invoice.TotalAmount - item.AppliedAmount - item.PendingAmount
	if remaining < 0 {
		return 0
	}
	return remaining
}

// HasPlan reports whether an active installment schedule governs aging.
func (item OpenItem) HasPlan() bool { return len(item.Installments) > 0 }

package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type Customer struct {
	ID       snowflake.ID      `gorm:"primaryKey" json:"id"`
	OrgID    snowflake.ID      `gorm:"not null;index" json:"organization_id"`
	Name     string            `gorm:"not null" json:"name"`
	Email    string            `gorm:"not null" json:"email"`
	Currency string            `gorm:"column:currency" json:"currency,omitempty"`
	Country  string            `gorm:"column:country" json:"country,omitempty"`
	// AutoPay customers settle themselves; the chaser reports them with a
	// zero balance and never contacts them.
	AutoPay bool `gorm:"not null;default:false" json:"auto_pay"`
	// Chase pauses or enables collection outreach for this customer.
	Chase bool `gorm:"not null;default:true" json:"chase"`
	// ChasingCadenceID is the assigned cadence, nil when unassigned.
	ChasingCadenceID *snowflake.ID `gorm:"index" json:"chasing_cadence_id,omitempty"`
	// NextChaseStep is the cursor: the step this customer is next evaluated
	// against. Nil means no further steps are pending.
	NextChaseStep  *snowflake.ID     `gorm:"index" json:"next_chase_step,omitempty"`
	AssignedUserID *snowflake.ID     `gorm:"" json:"assigned_user_id,omitempty"`
	Metadata       datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"metadata,omitempty"`
	CreatedAt      time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt      time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Customer) TableName() string { return "customers" }

// View exposes the customer as the read-only mapping the condition evaluator
// interprets, rooted under "customer".
func (c Customer) View() map[string]any {
	metadata := map[string]any{}
	for key, value := range c.Metadata {
		metadata[key] = value
	}
	return map[string]any{
		"customer": map[string]any{
			"name":     c.Name,
			"email":    c.Email,
			"currency": c.Currency,
			"country":  c.Country,
			"auto_pay": c.AutoPay,
			"chase":    c.Chase,
			"metadata": metadata,
		},
	}
}

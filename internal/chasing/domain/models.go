// Package domain contains the chasing (dunning) models: cadences, steps,
// statistics and the completed-step audit trail.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// AssignmentMode controls how a cadence is matched to customers.
type AssignmentMode string

const (
	AssignmentModeNone        AssignmentMode = "NONE"
	AssignmentModeDefault     AssignmentMode = "DEFAULT"
	AssignmentModeConditional AssignmentMode = "CONDITIONAL"
)

// ActionType is the collection channel a step fires on.
type ActionType string

const (
	ActionMail     ActionType = "MAIL"
	ActionEmail    ActionType = "EMAIL"
	ActionSms      ActionType = "SMS"
	ActionPhone    ActionType = "PHONE"
	ActionEscalate ActionType = "ESCALATE"
)

// Cadence is a tenant-owned, ordered sequence of collection steps.
type Cadence struct {
	ID             snowflake.ID   `gorm:"primaryKey"`
	OrgID          snowflake.ID   `gorm:"not null;index"`
	Name           string         `gorm:"not null"`
	TimeOfDay      string         `gorm:"type:text;not null;default:'08:00'"`
	MinBalance     *int64         `gorm:""`
	AssignmentMode AssignmentMode `gorm:"type:text;not null;default:'NONE'"`
	// AssignmentConditions holds the boolean expression evaluated against a
	// customer when AssignmentMode is CONDITIONAL.
	AssignmentConditions string    `gorm:"type:text"`
	CreatedAt            time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt            time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`

	// Steps is the authoritative order, loaded by the repository. It is
	// re-read on every planning pass so mid-flight cadence edits cannot
	// desynchronize customer cursors from step identity.
	Steps []Step `gorm:"-"`
}

func (Cadence) TableName() string { return "chasing_cadences" }

// FirstStep returns the opening step, or nil for an empty cadence.
func (c *Cadence) FirstStep() *Step {
	if c == nil || len(c.Steps) == 0 {
		return nil
	}
	return &c.Steps[0]
}

// StepByID resolves a step by identity within the cadence.
func (c *Cadence) StepByID(id snowflake.ID) *Step {
	if c == nil {
		return nil
	}
	for i := range c.Steps {
		if c.Steps[i].ID == id {
			return &c.Steps[i]
		}
	}
	return nil
}

// StepAfter returns the step following the given one in the authoritative
// order, or nil when the cadence is exhausted or the step is unknown.
func (c *Cadence) StepAfter(id snowflake.ID) *Step {
	if c == nil {
		return nil
	}
	for i := range c.Steps {
		if c.Steps[i].ID == id && i+1 < len(c.Steps) {
			return &c.Steps[i+1]
		}
	}
	return nil
}

// Step is one collection action gated by an age or past-due-age threshold.
// Identity is stable across cadence edits; position only orders siblings.
type Step struct {
	ID             snowflake.ID  `gorm:"primaryKey"`
	OrgID          snowflake.ID  `gorm:"not null;index"`
	CadenceID      snowflake.ID  `gorm:"not null;index"`
	Name           string        `gorm:"not null"`
	Position       int           `gorm:"not null"`
	Schedule       string        `gorm:"type:text"`
	Action         ActionType    `gorm:"type:text;not null"`
	TemplateID     string        `gorm:"type:text"`
	AssignedUserID *snowflake.ID `gorm:""`
	CreatedAt      time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Step) TableName() string { return "chasing_steps" }

// ChasingStatistic is one audit row per (customer, invoice, step) action
// attempt. PaymentResponsible stays null until an invoice lifecycle event
// resolves whether the chase produced a payment.
type ChasingStatistic struct {
	ID                 snowflake.ID `gorm:"primaryKey"`
	OrgID              snowflake.ID `gorm:"not null;index"`
	CadenceID          snowflake.ID `gorm:"not null;index"`
	StepID             snowflake.ID `gorm:"not null;index"`
	CustomerID         snowflake.ID `gorm:"not null;index"`
	InvoiceID          snowflake.ID `gorm:"not null;index"`
	Channel            ActionType   `gorm:"type:text;not null"`
	Attempts           int          `gorm:"not null;default:1"`
	PaymentResponsible *bool        `gorm:""`
	CreatedAt          time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt          time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (ChasingStatistic) TableName() string { return "chasing_statistics" }

// CompletedChasingStep records that a step fired for a customer. It doubles as
// the idempotency guard against re-firing the same step on a re-run.
type CompletedChasingStep struct {
	ID          snowflake.ID `gorm:"primaryKey"`
	OrgID       snowflake.ID `gorm:"not null;index"`
	CadenceID   snowflake.ID `gorm:"not null;uniqueIndex:ux_completed_step,priority:1"`
	CustomerID  snowflake.ID `gorm:"not null;uniqueIndex:ux_completed_step,priority:2"`
	StepID      snowflake.ID `gorm:"not null;uniqueIndex:ux_completed_step,priority:3"`
	CompletedAt time.Time    `gorm:"not null"`
	CreatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (CompletedChasingStep) TableName() string { return "completed_chasing_steps" }

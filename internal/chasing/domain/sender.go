package domain

import (
	"context"
	"fmt"

	customerdomain "github.com/smallbiznis/collecta/internal/customer/domain"
	ledgerdomain "github.com/smallbiznis/collecta/internal/ledger/domain"
)

// ActionRequest carries everything a delivery collaborator needs to render and
// send one collection action.
type ActionRequest struct {
	Customer customerdomain.Customer
	Balance  AccountBalance
	Invoices []ledgerdomain.OpenItem
	Step     Step
}

// One capability per action type. Implementations live outside this service
// (email/SMS gateways, print-and-post, CRM escalation) and own their own
// timeout and retry discipline.
type (
	MailSender interface {
		SendMail(ctx context.Context, req ActionRequest) error
	}
	EmailSender interface {
		SendEmail(ctx context.Context, templateID string, req ActionRequest) error
	}
	SmsSender interface {
		SendSms(ctx context.Context, templateID string, req ActionRequest) error
	}
	PhoneNotifier interface {
		NotifyAssignedUser(ctx context.Context, req ActionRequest) error
	}
	Escalator interface {
		Escalate(ctx context.Context, req ActionRequest) error
	}
)

// Senders bundles the delivery capabilities and routes by step action.
type Senders struct {
	Mail       MailSender
	Email      EmailSender
	Sms        SmsSender
	Phone      PhoneNotifier
	Escalation Escalator
}

// Dispatch routes the request to the capability for the step's action type.
func (s Senders) Dispatch(ctx context.Context, req ActionRequest) error {
	switch req.Step.Action {
	case ActionMail:
		if s.Mail == nil {
			return fmt.Errorf("%w: %s", ErrSenderUnavailable, req.Step.Action)
		}
		return s.Mail.SendMail(ctx, req)
	case ActionEmail:
		if s.Email == nil {
			return fmt.Errorf("%w: %s", ErrSenderUnavailable, req.Step.Action)
		}
		return s.Email.SendEmail(ctx, req.Step.TemplateID, req)
	case ActionSms:
		if s.Sms == nil {
			return fmt.Errorf("%w: %s", ErrSenderUnavailable, req.Step.Action)
		}
		return s.Sms.SendSms(ctx, req.Step.TemplateID, req)
	case ActionPhone:
		if s.Phone == nil {
			return fmt.Errorf("%w: %s", ErrSenderUnavailable, req.Step.Action)
		}
		return s.Phone.NotifyAssignedUser(ctx, req)
	case ActionEscalate:
		if s.Escalation == nil {
			return fmt.Errorf("%w: %s", ErrSenderUnavailable, req.Step.Action)
		}
		return s.Escalation.Escalate(ctx, req)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownAction, req.Step.Action)
	}
}

// Package sender holds the default delivery wiring. Real gateways (email,
// SMS, print-and-post, CRM escalation) live outside this service; LogSenders
// stands in for them in development and as the fx default.
package sender

import (
	"context"

	"github.com/smallbiznis/collecta/internal/chasing/domain"
	"go.uber.org/zap"
)

// LogSenders satisfies every delivery capability by logging the action.
type LogSenders struct {
	log *zap.Logger
}

func NewLogSenders(log *zap.Logger) *LogSenders {
	return &LogSenders{log: log.Named("chasing.sender")}
}

// Bundle returns the capability bundle backed by this sender.
func (s *LogSenders) Bundle() domain.Senders {
	return domain.Senders{
		Mail:       s,
		Email:      s,
		Sms:        s,
		Phone:      s,
		Escalation: s,
	}
}

func (s *LogSenders) SendMail(ctx context.Context, req domain.ActionRequest) error {
	s.logAction("mail", "", req)
	return nil
}

func (s *LogSenders) SendEmail(ctx context.Context, templateID string, req domain.ActionRequest) error {
	s.logAction("email", templateID, req)
	return nil
}

func (s *LogSenders) SendSms(ctx context.Context, templateID string, req domain.ActionRequest) error {
	s.logAction("sms", templateID, req)
	return nil
}

func (s *LogSenders) NotifyAssignedUser(ctx context.Context, req domain.ActionRequest) error {
	s.logAction("phone", "", req)
	return nil
}

func (s *LogSenders) Escalate(ctx context.Context, req domain.ActionRequest) error {
	s.logAction("escalate", "", req)
	return nil
}

func (s *LogSenders) logAction(channel, templateID string, req domain.ActionRequest) {
	fields := []zap.Field{
		zap.String("channel", channel),
		zap.String("customer_id", req.Customer.ID.String()),
		zap.String("step", req.Step.Name),
		zap.Int64("balance", req.Balance.Balance),
		zap.Int("invoices", len(req.Invoices)),
	}
	if templateID != "" {
		fields = append(fields, zap.String("template_id", templateID))
	}
	s.log.Info("collection action dispatched", fields...)
}

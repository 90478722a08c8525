package notification

import (
	"context"

	"github.com/lostfound-api/internal/domain"
)

type mailer interface {
	SendEmail(to, subject, body string) error
}

type smsSender interface {
	SendSMS(ctx context.Context, to, message string) error
}

// EmailChannel mails every notification to recipients that have an address.
type EmailChannel struct{ mailer mailer }

func NewEmailChannel(m mailer) *EmailChannel { return &EmailChannel{mailer: m} }

func (c *EmailChannel) Name() string { return "email" }

func (c *EmailChannel) Deliver(_ context.Context, to *domain.User, n *domain.Notification) error {
	if to.Email == "" {
		return nil
	}
	return c.mailer.SendEmail(to.Email, n.Title, n.Content)
}

// SMSChannel texts audit results only; other types stay in-app.
type SMSChannel struct{ sender smsSender }

func NewSMSChannel(s smsSender) *SMSChannel { return &SMSChannel{sender: s} }

func (c *SMSChannel) Name() string { return "sms" }

func (c *SMSChannel) Deliver(ctx context.Context, to *domain.User, n *domain.Notification) error {
	if to.Phone == "" || n.Type != domain.NotificationAudit {
		return nil
	}
	return c.sender.SendSMS(ctx, to.Phone, n.Title+": "+n.Content)
}

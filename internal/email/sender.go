// Package email delivers birthday reminder mail over SMTP, with a logged
// simulation fallback when no SMTP server is configured.
package email

import (
	"context"

	"crm_backend/platform/config"
	"crm_backend/platform/logger"
)

// BirthdayReminder carries everything the template needs.
type BirthdayReminder struct {
	ContactID    string
	ContactName  string
	BirthdayDate string
	OwnerName    string
}

// Sender delivers birthday reminder emails to the tenant.
type Sender interface {
	SendBirthdayReminder(ctx context.Context, toEmail string, reminder BirthdayReminder) error
	// Simulated reports whether sends are logged instead of delivered.
	Simulated() bool
}

// NewSender picks the SMTP sender when configured, otherwise the simulated
// one. Matches the original behavior of degrading to log-only delivery.
func NewSender(cfg config.MailConfig, log *logger.Logger) Sender {
	if cfg.GetSMTPHost() == "" {
		log.Warn("SMTP not configured; birthday emails will be simulated")
		return &SimulatedSender{log: log}
	}
	return NewSMTPSender(cfg)
}

// SimulatedSender logs instead of sending.
type SimulatedSender struct {
	log *logger.Logger
}

func (s *SimulatedSender) SendBirthdayReminder(_ context.Context, toEmail string, reminder BirthdayReminder) error {
	s.log.Info("simulated birthday email",
		"to", toEmail,
		"contact_id", reminder.ContactID,
		"contact_name", reminder.ContactName,
	)
	return nil
}

func (s *SimulatedSender) Simulated() bool { return true }

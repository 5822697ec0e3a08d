// Package notifier orchestrates birthday reminder delivery: it sweeps
// upcoming birthdays, fans out to email and WhatsApp concurrently, and
// suppresses duplicates through the notification log.
package notifier

import (
	"context"
	"fmt"
	"time"

	"crm_backend/internal/contacts/birthday"
	contactsrepo "crm_backend/internal/contacts/repository"
	"crm_backend/internal/email"
	"crm_backend/internal/whatsapp"
	"crm_backend/platform/logger"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Delivery channels recorded in the notification log.
const (
	ChannelEmail    = "email"
	ChannelWhatsApp = "whatsapp"
)

// LogStore tracks sent notifications and resolves reminder recipients.
type LogStore interface {
	AlreadyLogged(ctx context.Context, contactID uuid.UUID, kind, channel string, day time.Time) (bool, error)
	RecordLog(ctx context.Context, contactID uuid.UUID, kind, channel string, day time.Time, info string) error
	OwnerContact(ctx context.Context, userID uuid.UUID) (email, name string, err error)
}

// ContactSource provides the birthday sweep.
type ContactSource interface {
	BirthdaysOnAnyTenant(ctx context.Context, month, day int) ([]contactsrepo.Contact, error)
}

// Config carries the dispatcher knobs.
type Config struct {
	// LookaheadDays extends the sweep past today, so reminders go out in
	// advance. Zero means same-day only.
	LookaheadDays int
	// FallbackEmail overrides the owner's address when set.
	FallbackEmail string
	// WhatsAppTo is the gateway destination number. Empty disables the
	// WhatsApp channel.
	WhatsAppTo string
}

type Dispatcher struct {
	contacts ContactSource
	store    LogStore
	mail     email.Sender
	wa       whatsapp.Sender
	cfg      Config
	log      *logger.Logger
}

func NewDispatcher(contacts ContactSource, store LogStore, mail email.Sender, wa whatsapp.Sender, cfg Config, log *logger.Logger) *Dispatcher {
	return &Dispatcher{contacts: contacts, store: store, mail: mail, wa: wa, cfg: cfg, log: log}
}

// DispatchBirthdayReminders sweeps every day in the lookahead window and
// sends at most one reminder per (contact, channel, celebrated day).
// Failed channels stay unlogged, so the next run retries them.
func (d *Dispatcher) DispatchBirthdayReminders(ctx context.Context, now time.Time) error {
	var firstErr error

	for offset := 0; offset <= d.cfg.LookaheadDays; offset++ {
		target := now.AddDate(0, 0, offset)
		for _, day := range birthday.MatchDays(target) {
			contacts, err := d.contacts.BirthdaysOnAnyTenant(ctx, int(day.Month), day.Day)
			if err != nil {
				return err
			}
			for _, contact := range contacts {
				if err := d.dispatchContact(ctx, contact, target); err != nil && firstErr == nil {
					firstErr = err
				}
			}
		}
	}
	return firstErr
}

func (d *Dispatcher) dispatchContact(ctx context.Context, contact contactsrepo.Contact, celebrated time.Time) error {
	ownerEmail, ownerName, err := d.store.OwnerContact(ctx, contact.UserID)
	if err != nil {
		// Inactive owners are skipped, not failed.
		d.log.Warn("skipping reminder, owner unavailable", "contact_id", contact.ID, "error", err)
		return nil
	}
	if d.cfg.FallbackEmail != "" {
		ownerEmail = d.cfg.FallbackEmail
	}

	reminder := email.BirthdayReminder{
		ContactID:    contact.ID.String(),
		ContactName:  contactName(contact),
		BirthdayDate: celebrated.Format("02/01"),
		OwnerName:    ownerName,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return d.sendOnce(gctx, contact.ID, ChannelEmail, celebrated, func() error {
			return d.mail.SendBirthdayReminder(gctx, ownerEmail, reminder)
		}, d.mail.Simulated())
	})

	if d.cfg.WhatsAppTo != "" {
		message := fmt.Sprintf("🎂 Lembrete: %s faz aniversário em %s!", reminder.ContactName, reminder.BirthdayDate)
		g.Go(func() error {
			return d.sendOnce(gctx, contact.ID, ChannelWhatsApp, celebrated, func() error {
				return d.wa.SendMessage(gctx, d.cfg.WhatsAppTo, message)
			}, d.wa.Simulated())
		})
	}

	return g.Wait()
}

// sendOnce skips already-delivered notifications, runs the send, and
// records the log entry only on success.
func (d *Dispatcher) sendOnce(ctx context.Context, contactID uuid.UUID, channel string, day time.Time, send func() error, simulated bool) error {
	logged, err := d.store.AlreadyLogged(ctx, contactID, KindBirthday, channel, day)
	if err != nil {
		return err
	}
	if logged {
		return nil
	}

	sendErr := send()
	d.log.ReminderDispatch(channel, contactID.String(), simulated, sendErr)
	if sendErr != nil {
		return sendErr
	}

	info := "sent"
	if simulated {
		info = "simulated"
	}
	return d.store.RecordLog(ctx, contactID, KindBirthday, channel, day, info)
}

func contactName(c contactsrepo.Contact) string {
	if c.LastName == "" {
		return c.FirstName
	}
	return c.FirstName + " " + c.LastName
}

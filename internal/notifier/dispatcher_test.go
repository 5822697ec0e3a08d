package notifier

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	contactsrepo "crm_backend/internal/contacts/repository"
	"crm_backend/internal/email"
	"crm_backend/platform/logger"

	"github.com/google/uuid"
)

type fakeContacts struct {
	byDay map[string][]contactsrepo.Contact
}

func dayKey(month, day int) string { return fmt.Sprintf("%02d-%02d", month, day) }

func (f *fakeContacts) BirthdaysOnAnyTenant(_ context.Context, month, day int) ([]contactsrepo.Contact, error) {
	return f.byDay[dayKey(month, day)], nil
}

type fakeStore struct {
	mu     sync.Mutex
	logs   map[string]bool
	owners map[uuid.UUID]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{logs: make(map[string]bool), owners: make(map[uuid.UUID]string)}
}

func (f *fakeStore) key(contactID uuid.UUID, kind, channel string, day time.Time) string {
	return contactID.String() + "|" + kind + "|" + channel + "|" + day.Format("2006-01-02")
}

func (f *fakeStore) AlreadyLogged(_ context.Context, contactID uuid.UUID, kind, channel string, day time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.logs[f.key(contactID, kind, channel, day)], nil
}

func (f *fakeStore) RecordLog(_ context.Context, contactID uuid.UUID, kind, channel string, day time.Time, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logs[f.key(contactID, kind, channel, day)] = true
	return nil
}

func (f *fakeStore) OwnerContact(_ context.Context, userID uuid.UUID) (string, string, error) {
	email, ok := f.owners[userID]
	if !ok {
		return "", "", errors.New("owner not found")
	}
	return email, "Owner", nil
}

type fakeMail struct {
	mu    sync.Mutex
	sent  []string
	fail  bool
}

func (f *fakeMail) SendBirthdayReminder(_ context.Context, toEmail string, _ email.BirthdayReminder) error {
	if f.fail {
		return errors.New("smtp down")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, toEmail)
	return nil
}

func (f *fakeMail) Simulated() bool { return false }

type fakeWhatsApp struct {
	mu   sync.Mutex
	sent []string
}

func (f *fakeWhatsApp) SendMessage(_ context.Context, toPhone, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, toPhone)
	return nil
}

func (f *fakeWhatsApp) Simulated() bool { return false }

func testContact(owner uuid.UUID, month time.Month, day int) contactsrepo.Contact {
	return contactsrepo.Contact{
		ID:        uuid.New(),
		UserID:    owner,
		FirstName: "Ana",
		LastName:  "Silva",
		BirthDate: time.Date(1990, month, day, 0, 0, 0, 0, time.UTC),
	}
}

func newDispatcher(contacts *fakeContacts, store *fakeStore, mail *fakeMail, wa *fakeWhatsApp, cfg Config) *Dispatcher {
	return NewDispatcher(contacts, store, mail, wa, cfg, logger.New("test"))
}

func TestDispatchSendsBothChannelsOnce(t *testing.T) {
	owner := uuid.New()
	contact := testContact(owner, time.June, 18)

	contacts := &fakeContacts{byDay: map[string][]contactsrepo.Contact{
		dayKey(6, 18): {contact},
	}}
	store := newFakeStore()
	store.owners[owner] = "owner@example.com"
	mail := &fakeMail{}
	wa := &fakeWhatsApp{}

	d := newDispatcher(contacts, store, mail, wa, Config{LookaheadDays: 0, WhatsAppTo: "+5511999990000"})
	now := time.Date(2026, time.June, 18, 0, 0, 0, 0, time.UTC)

	if err := d.DispatchBirthdayReminders(context.Background(), now); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if len(mail.sent) != 1 || mail.sent[0] != "owner@example.com" {
		t.Fatalf("expected one email to the owner, got %v", mail.sent)
	}
	if len(wa.sent) != 1 {
		t.Fatalf("expected one whatsapp message, got %v", wa.sent)
	}

	// Second sweep is suppressed by the notification log.
	if err := d.DispatchBirthdayReminders(context.Background(), now); err != nil {
		t.Fatalf("second dispatch: %v", err)
	}
	if len(mail.sent) != 1 || len(wa.sent) != 1 {
		t.Fatalf("duplicate sends: mail=%d wa=%d", len(mail.sent), len(wa.sent))
	}
}

func TestDispatchLookaheadCoversUpcomingDays(t *testing.T) {
	owner := uuid.New()
	contact := testContact(owner, time.June, 21)

	contacts := &fakeContacts{byDay: map[string][]contactsrepo.Contact{
		dayKey(6, 21): {contact},
	}}
	store := newFakeStore()
	store.owners[owner] = "owner@example.com"
	mail := &fakeMail{}
	wa := &fakeWhatsApp{}

	d := newDispatcher(contacts, store, mail, wa, Config{LookaheadDays: 3})
	now := time.Date(2026, time.June, 18, 0, 0, 0, 0, time.UTC)

	if err := d.DispatchBirthdayReminders(context.Background(), now); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if len(mail.sent) != 1 {
		t.Fatalf("birthday three days out should be included, got %v", mail.sent)
	}
	if len(wa.sent) != 0 {
		t.Fatal("whatsapp channel should be disabled without a destination")
	}
}

func TestDispatchLeapDayFallback(t *testing.T) {
	owner := uuid.New()
	leapContact := testContact(owner, time.February, 29)
	leapContact.BirthDate = time.Date(1992, time.February, 29, 0, 0, 0, 0, time.UTC)

	contacts := &fakeContacts{byDay: map[string][]contactsrepo.Contact{
		dayKey(2, 29): {leapContact},
	}}
	store := newFakeStore()
	store.owners[owner] = "owner@example.com"
	mail := &fakeMail{}
	wa := &fakeWhatsApp{}

	d := newDispatcher(contacts, store, mail, wa, Config{})
	// 2026 is not a leap year; Feb 28 stands in for Feb 29.
	now := time.Date(2026, time.February, 28, 0, 0, 0, 0, time.UTC)

	if err := d.DispatchBirthdayReminders(context.Background(), now); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if len(mail.sent) != 1 {
		t.Fatalf("leap-day birthday should be celebrated on Feb 28, got %v", mail.sent)
	}
}

func TestDispatchFailedSendIsRetriedNextRun(t *testing.T) {
	owner := uuid.New()
	contact := testContact(owner, time.June, 18)

	contacts := &fakeContacts{byDay: map[string][]contactsrepo.Contact{
		dayKey(6, 18): {contact},
	}}
	store := newFakeStore()
	store.owners[owner] = "owner@example.com"
	mail := &fakeMail{fail: true}
	wa := &fakeWhatsApp{}

	d := newDispatcher(contacts, store, mail, wa, Config{})
	now := time.Date(2026, time.June, 18, 0, 0, 0, 0, time.UTC)

	if err := d.DispatchBirthdayReminders(context.Background(), now); err == nil {
		t.Fatal("expected error from failed email send")
	}

	// The failure is not logged, so the next run tries again.
	mail.fail = false
	if err := d.DispatchBirthdayReminders(context.Background(), now); err != nil {
		t.Fatalf("retry dispatch: %v", err)
	}
	if len(mail.sent) != 1 {
		t.Fatalf("expected successful retry, got %v", mail.sent)
	}
}

func TestDispatchSkipsContactsWithUnknownOwner(t *testing.T) {
	contact := testContact(uuid.New(), time.June, 18)

	contacts := &fakeContacts{byDay: map[string][]contactsrepo.Contact{
		dayKey(6, 18): {contact},
	}}
	store := newFakeStore() // no owners registered
	mail := &fakeMail{}
	wa := &fakeWhatsApp{}

	d := newDispatcher(contacts, store, mail, wa, Config{})
	now := time.Date(2026, time.June, 18, 0, 0, 0, 0, time.UTC)

	if err := d.DispatchBirthdayReminders(context.Background(), now); err != nil {
		t.Fatalf("missing owner should not fail the sweep: %v", err)
	}
	if len(mail.sent) != 0 {
		t.Fatalf("no sends expected, got %v", mail.sent)
	}
}

func TestDispatchFallbackEmailOverridesOwner(t *testing.T) {
	owner := uuid.New()
	contact := testContact(owner, time.June, 18)

	contacts := &fakeContacts{byDay: map[string][]contactsrepo.Contact{
		dayKey(6, 18): {contact},
	}}
	store := newFakeStore()
	store.owners[owner] = "owner@example.com"
	mail := &fakeMail{}
	wa := &fakeWhatsApp{}

	d := newDispatcher(contacts, store, mail, wa, Config{FallbackEmail: "inbox@agency.example"})
	now := time.Date(2026, time.June, 18, 0, 0, 0, 0, time.UTC)

	if err := d.DispatchBirthdayReminders(context.Background(), now); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if len(mail.sent) != 1 || mail.sent[0] != "inbox@agency.example" {
		t.Fatalf("fallback address should win, got %v", mail.sent)
	}
}

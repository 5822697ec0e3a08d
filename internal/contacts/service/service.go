package service

import (
	"context"
	"strings"
	"time"

	"crm_backend/internal/contacts/birthday"
	"crm_backend/internal/contacts/repository"
	"crm_backend/internal/events"
	"crm_backend/platform/apperr"
	"crm_backend/platform/config"
	"crm_backend/platform/logger"
	"crm_backend/platform/phone"

	"github.com/google/uuid"
)

type Service struct {
	repo repository.ContactRepository
	cfg  config.PhoneConfig
	bus  events.Bus
	log  *logger.Logger
}

func New(repo repository.ContactRepository, cfg config.PhoneConfig, bus events.Bus, log *logger.Logger) *Service {
	return &Service{repo: repo, cfg: cfg, bus: bus, log: log}
}

// Input carries the writable contact fields. Pointer fields are optional;
// empty strings clear the value.
type Input struct {
	FirstName string
	LastName  string
	BirthDate time.Time
	Email     *string
	Phone     *string
}

func (s *Service) Create(ctx context.Context, userID uuid.UUID, in Input) (repository.Contact, error) {
	if err := validateInput(in); err != nil {
		return repository.Contact{}, err
	}

	contact, err := s.repo.Create(ctx, repository.Contact{
		UserID:    userID,
		FirstName: strings.TrimSpace(in.FirstName),
		LastName:  strings.TrimSpace(in.LastName),
		BirthDate: in.BirthDate,
		Email:     normalizeEmail(in.Email),
		Phone:     s.normalizePhone(in.Phone),
	})
	if err != nil {
		return repository.Contact{}, err
	}

	s.bus.Publish(ctx, events.ContactCreated{
		BaseEvent: events.NewBaseEvent(),
		TenantID:  userID,
		ContactID: contact.ID,
	})

	return contact, nil
}

func (s *Service) Update(ctx context.Context, userID, contactID uuid.UUID, in Input) (repository.Contact, error) {
	if err := validateInput(in); err != nil {
		return repository.Contact{}, err
	}

	return s.repo.Update(ctx, repository.Contact{
		ID:        contactID,
		UserID:    userID,
		FirstName: strings.TrimSpace(in.FirstName),
		LastName:  strings.TrimSpace(in.LastName),
		BirthDate: in.BirthDate,
		Email:     normalizeEmail(in.Email),
		Phone:     s.normalizePhone(in.Phone),
	})
}

func (s *Service) Delete(ctx context.Context, userID, contactID uuid.UUID) error {
	return s.repo.Delete(ctx, userID, contactID)
}

func (s *Service) Get(ctx context.Context, userID, contactID uuid.UUID) (repository.Contact, error) {
	return s.repo.Get(ctx, userID, contactID)
}

func (s *Service) List(ctx context.Context, userID uuid.UUID) ([]repository.Contact, error) {
	return s.repo.List(ctx, userID)
}

// BirthdaysToday returns the tenant's contacts celebrating today, honoring
// the Feb 29 fallback in non-leap years.
func (s *Service) BirthdaysToday(ctx context.Context, userID uuid.UUID, now time.Time) ([]repository.Contact, error) {
	var out []repository.Contact
	for _, day := range birthday.MatchDays(now) {
		batch, err := s.repo.BirthdaysOn(ctx, userID, int(day.Month), day.Day)
		if err != nil {
			return nil, err
		}
		out = append(out, batch...)
	}
	if out == nil {
		out = []repository.Contact{}
	}
	return out, nil
}

func validateInput(in Input) error {
	if strings.TrimSpace(in.FirstName) == "" {
		return apperr.Validation("first name is required")
	}
	if in.BirthDate.IsZero() {
		return apperr.Validation("birth date is required")
	}
	if in.BirthDate.After(time.Now()) {
		return apperr.Validation("birth date cannot be in the future")
	}
	return nil
}

func normalizeEmail(email *string) *string {
	if email == nil {
		return nil
	}
	trimmed := strings.ToLower(strings.TrimSpace(*email))
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func (s *Service) normalizePhone(raw *string) *string {
	if raw == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*raw)
	if trimmed == "" {
		return nil
	}
	normalized := phone.NormalizeE164(trimmed, s.cfg.GetDefaultPhoneRegion())
	return &normalized
}

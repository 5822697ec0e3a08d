package service

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"crm_backend/internal/events"
	"crm_backend/internal/kanban/domain"
	"crm_backend/internal/kanban/repository"
	"crm_backend/internal/kanban/seed"
	"crm_backend/platform/apperr"
	"crm_backend/platform/logger"

	"github.com/google/uuid"
)

const (
	moveRetryAttempts = 3
	moveRetryBaseWait = 25 * time.Millisecond

	noteMaxLen = 2000
)

type Service struct {
	repo repository.BoardRepository
	bus  events.Bus
	log  *logger.Logger
}

func New(repo repository.BoardRepository, bus events.Bus, log *logger.Logger) *Service {
	return &Service{repo: repo, bus: bus, log: log}
}

// StageInput is a stage definition from the API.
type StageInput struct {
	Key       string
	Label     string
	SortOrder int
	WipLimit  *int
	IsClosed  bool
}

// ensureStages lazily seeds the default pipeline for tenants without one.
func (s *Service) ensureStages(ctx context.Context, userID uuid.UUID) error {
	count, err := s.repo.CountStages(ctx, userID)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	return s.SeedDefaultStages(ctx, userID)
}

// SeedDefaultStages applies the embedded pipeline definition to the tenant.
// Idempotent: existing stages with matching keys are updated, not duplicated.
func (s *Service) SeedDefaultStages(ctx context.Context, userID uuid.UUID) error {
	defaults, err := seed.DefaultStages()
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "load default stages", err).WithOp("kanban.service.SeedDefaultStages")
	}

	stages := make([]repository.Stage, 0, len(defaults))
	for _, d := range defaults {
		stages = append(stages, repository.Stage{
			UserID:    userID,
			Key:       d.Key,
			Label:     d.Label,
			SortOrder: d.SortOrder,
			WipLimit:  d.WipLimit,
			IsClosed:  d.IsClosed,
		})
	}
	return s.repo.UpsertStages(ctx, userID, stages)
}

func (s *Service) ListStages(ctx context.Context, userID uuid.UUID) ([]repository.Stage, error) {
	if err := s.ensureStages(ctx, userID); err != nil {
		return nil, err
	}
	return s.repo.ListStages(ctx, userID)
}

// UpsertStages filters out entries with a blank key instead of failing the
// whole batch, then applies the remainder in one transaction. A batch with
// no usable entries is a no-op.
func (s *Service) UpsertStages(ctx context.Context, userID uuid.UUID, inputs []StageInput) error {
	stages := FilterStageInputs(userID, inputs)
	if len(stages) == 0 {
		return nil
	}
	return s.repo.UpsertStages(ctx, userID, stages)
}

// FilterStageInputs drops entries whose key is blank after trimming and
// normalizes the rest. Exposed for testing.
func FilterStageInputs(userID uuid.UUID, inputs []StageInput) []repository.Stage {
	stages := make([]repository.Stage, 0, len(inputs))
	for _, in := range inputs {
		key := strings.TrimSpace(in.Key)
		if key == "" {
			continue
		}
		label := strings.TrimSpace(in.Label)
		if label == "" {
			label = key
		}
		stages = append(stages, repository.Stage{
			UserID:    userID,
			Key:       key,
			Label:     label,
			SortOrder: in.SortOrder,
			WipLimit:  in.WipLimit,
			IsClosed:  in.IsClosed,
		})
	}
	return stages
}

// Move relocates a lead, retrying the transaction on serialization
// failures and deadlocks before giving up with a conflict.
func (s *Service) Move(ctx context.Context, userID, contactID uuid.UUID, toStage string, requested *int) (repository.MoveResult, error) {
	toStage = strings.TrimSpace(toStage)
	if toStage == "" {
		return repository.MoveResult{}, apperr.Validation("target stage is required")
	}

	if err := s.ensureStages(ctx, userID); err != nil {
		return repository.MoveResult{}, err
	}

	exists, err := s.repo.StageExists(ctx, userID, toStage)
	if err != nil {
		return repository.MoveResult{}, err
	}
	if !exists {
		return repository.MoveResult{}, apperr.NotFound("stage not found")
	}

	var result repository.MoveResult
	for attempt := 1; ; attempt++ {
		result, err = s.repo.Move(ctx, userID, contactID, toStage, requested)
		if err == nil {
			break
		}
		if !repository.Retriable(err) || attempt >= moveRetryAttempts {
			if repository.Retriable(err) {
				return repository.MoveResult{}, apperr.Wrap(apperr.KindConflict, "board changed concurrently, retry", err)
			}
			return repository.MoveResult{}, err
		}

		wait := moveRetryBaseWait * time.Duration(attempt)
		s.log.Warn("retrying lead move after conflict", "attempt", attempt, "contact_id", contactID)
		select {
		case <-ctx.Done():
			return repository.MoveResult{}, ctx.Err()
		case <-time.After(wait):
		}
	}

	if result.Moved && result.FromStage != result.Stage {
		s.bus.Publish(ctx, events.LeadStageChanged{
			BaseEvent: events.NewBaseEvent(),
			TenantID:  userID,
			ContactID: contactID,
			FromStage: result.FromStage,
			ToStage:   result.Stage,
			Position:  result.Position,
		})
	}

	return result, nil
}

// ListLeads backfills missing assignments into the default stage, then
// returns the filtered board.
func (s *Service) ListLeads(ctx context.Context, userID uuid.UUID, f repository.Filters) ([]repository.Lead, error) {
	if err := s.ensureStages(ctx, userID); err != nil {
		return nil, err
	}

	defaultStage, err := s.repo.DefaultStage(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.BackfillAssignments(ctx, userID, defaultStage); err != nil {
		return nil, err
	}

	return s.repo.ListLeads(ctx, userID, f)
}

// ensureOnBoard lazily adopts leads that were never listed or moved into
// the default stage, so timeline operations work on any existing contact.
func (s *Service) ensureOnBoard(ctx context.Context, userID, contactID uuid.UUID) error {
	_, err := s.repo.GetAssignment(ctx, userID, contactID)
	if err == nil {
		return nil
	}
	if apperr.GetKind(err) != apperr.KindNotFound {
		return err
	}

	if err := s.ensureStages(ctx, userID); err != nil {
		return err
	}
	defaultStage, err := s.repo.DefaultStage(ctx, userID)
	if err != nil {
		return err
	}
	return s.repo.EnsureAssigned(ctx, userID, contactID, defaultStage)
}

func (s *Service) Timeline(ctx context.Context, userID, contactID uuid.UUID) ([]domain.TimelineEvent, error) {
	if err := s.ensureOnBoard(ctx, userID, contactID); err != nil {
		return nil, err
	}
	return s.repo.ListTimeline(ctx, userID, contactID)
}

func (s *Service) AddNote(ctx context.Context, userID, contactID uuid.UUID, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return apperr.Validation("note text is required")
	}
	if utf8.RuneCountInString(text) > noteMaxLen {
		return apperr.Validation("note text exceeds 2000 characters")
	}

	if err := s.ensureOnBoard(ctx, userID, contactID); err != nil {
		return err
	}

	payload, err := domain.EncodePayload(domain.EventNote, domain.NotePayload{Text: text})
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "encode note", err)
	}
	return s.repo.AppendEvent(ctx, userID, contactID, domain.EventNote, payload)
}

func (s *Service) AddFollowUp(ctx context.Context, userID, contactID uuid.UUID, date time.Time, channel string) error {
	if date.IsZero() {
		return apperr.Validation("follow-up date is required")
	}
	if !domain.ValidChannel(channel) {
		return apperr.Validation("channel must be email, whatsapp or call")
	}

	if err := s.ensureOnBoard(ctx, userID, contactID); err != nil {
		return err
	}

	payload, err := domain.EncodePayload(domain.EventFollowUp, domain.FollowUpPayload{Date: date, Channel: channel})
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "encode follow-up", err)
	}
	return s.repo.AppendEvent(ctx, userID, contactID, domain.EventFollowUp, payload)
}

// HandleContactCreated assigns freshly created contacts to the default
// stage so they show up on the board immediately.
func (s *Service) HandleContactCreated(ctx context.Context, event events.Event) error {
	created, ok := event.(events.ContactCreated)
	if !ok {
		return nil
	}

	if err := s.ensureStages(ctx, created.TenantID); err != nil {
		return err
	}
	defaultStage, err := s.repo.DefaultStage(ctx, created.TenantID)
	if err != nil {
		return err
	}
	return s.repo.EnsureAssigned(ctx, created.TenantID, created.ContactID, defaultStage)
}

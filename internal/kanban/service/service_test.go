package service

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"crm_backend/internal/events"
	"crm_backend/internal/kanban/domain"
	"crm_backend/internal/kanban/repository"
	"crm_backend/platform/apperr"
	"crm_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

// fakeRepo implements repository.BoardRepository in memory for service tests.
type fakeRepo struct {
	stages      []repository.Stage
	assignments map[uuid.UUID]repository.Assignment
	appended    []string

	moveErrs   []error
	moveCalls  int
	moveResult repository.MoveResult
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{assignments: make(map[uuid.UUID]repository.Assignment)}
}

func (f *fakeRepo) ListStages(_ context.Context, _ uuid.UUID) ([]repository.Stage, error) {
	return f.stages, nil
}

func (f *fakeRepo) UpsertStages(_ context.Context, _ uuid.UUID, stages []repository.Stage) error {
	for _, s := range stages {
		replaced := false
		for i := range f.stages {
			if f.stages[i].Key == s.Key {
				f.stages[i] = s
				replaced = true
			}
		}
		if !replaced {
			f.stages = append(f.stages, s)
		}
	}
	return nil
}

func (f *fakeRepo) CountStages(_ context.Context, _ uuid.UUID) (int, error) {
	return len(f.stages), nil
}

func (f *fakeRepo) DefaultStage(_ context.Context, _ uuid.UUID) (string, error) {
	if len(f.stages) == 0 {
		return "", apperr.NotFound("no stages configured")
	}
	return f.stages[0].Key, nil
}

func (f *fakeRepo) StageExists(_ context.Context, _ uuid.UUID, key string) (bool, error) {
	for _, s := range f.stages {
		if s.Key == key {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRepo) GetAssignment(_ context.Context, _, contactID uuid.UUID) (repository.Assignment, error) {
	a, ok := f.assignments[contactID]
	if !ok {
		return repository.Assignment{}, apperr.NotFound("lead is not on the board")
	}
	return a, nil
}

func (f *fakeRepo) EnsureAssigned(_ context.Context, userID, contactID uuid.UUID, stageKey string) error {
	if _, ok := f.assignments[contactID]; ok {
		return nil
	}
	f.assignments[contactID] = repository.Assignment{UserID: userID, ContactID: contactID, StageKey: stageKey}
	return nil
}

func (f *fakeRepo) BackfillAssignments(_ context.Context, _ uuid.UUID, _ string) error {
	return nil
}

func (f *fakeRepo) Move(_ context.Context, _, _ uuid.UUID, _ string, _ *int) (repository.MoveResult, error) {
	f.moveCalls++
	if len(f.moveErrs) > 0 {
		err := f.moveErrs[0]
		f.moveErrs = f.moveErrs[1:]
		if err != nil {
			return repository.MoveResult{}, err
		}
	}
	return f.moveResult, nil
}

func (f *fakeRepo) AppendEvent(_ context.Context, _, _ uuid.UUID, eventType string, _ json.RawMessage) error {
	f.appended = append(f.appended, eventType)
	return nil
}

func (f *fakeRepo) ListTimeline(_ context.Context, _, _ uuid.UUID) ([]domain.TimelineEvent, error) {
	return nil, nil
}

func (f *fakeRepo) ListLeads(_ context.Context, _ uuid.UUID, _ repository.Filters) ([]repository.Lead, error) {
	return nil, nil
}

var _ repository.BoardRepository = (*fakeRepo)(nil)

// nopBus discards published events.
type nopBus struct{}

func (nopBus) Publish(context.Context, events.Event)          {}
func (nopBus) PublishSync(context.Context, events.Event) error { return nil }
func (nopBus) Subscribe(string, events.Handler)               {}

func newService(repo *fakeRepo) *Service {
	return New(repo, nopBus{}, logger.New("test"))
}

func seededRepo() *fakeRepo {
	repo := newFakeRepo()
	repo.stages = []repository.Stage{
		{Key: "new", SortOrder: 0},
		{Key: "won", SortOrder: 1},
	}
	return repo
}

func retriableErr() error {
	return &pgconn.PgError{Code: "40001"}
}

func TestMoveRetriesOnSerializationFailure(t *testing.T) {
	repo := seededRepo()
	repo.moveErrs = []error{retriableErr(), nil}
	repo.moveResult = repository.MoveResult{FromStage: "new", Stage: "won", Position: 0, Moved: true}

	svc := newService(repo)
	result, err := svc.Move(context.Background(), uuid.New(), uuid.New(), "won", nil)
	if err != nil {
		t.Fatalf("move should succeed after retry: %v", err)
	}
	if repo.moveCalls != 2 {
		t.Fatalf("expected 2 attempts, got %d", repo.moveCalls)
	}
	if result.Stage != "won" {
		t.Fatalf("result stage = %q, want won", result.Stage)
	}
}

func TestMoveGivesUpWithConflictAfterRetries(t *testing.T) {
	repo := seededRepo()
	repo.moveErrs = []error{retriableErr(), retriableErr(), retriableErr()}

	svc := newService(repo)
	_, err := svc.Move(context.Background(), uuid.New(), uuid.New(), "won", nil)
	if err == nil {
		t.Fatal("expected conflict after exhausting retries")
	}
	if apperr.GetKind(err) != apperr.KindConflict {
		t.Fatalf("expected KindConflict, got %v", apperr.GetKind(err))
	}
	if repo.moveCalls != 3 {
		t.Fatalf("expected 3 attempts, got %d", repo.moveCalls)
	}
}

func TestMoveDoesNotRetryDomainErrors(t *testing.T) {
	repo := seededRepo()
	repo.moveErrs = []error{apperr.NotFound("lead is not on the board")}

	svc := newService(repo)
	_, err := svc.Move(context.Background(), uuid.New(), uuid.New(), "won", nil)
	if apperr.GetKind(err) != apperr.KindNotFound {
		t.Fatalf("expected KindNotFound, got %v", err)
	}
	if repo.moveCalls != 1 {
		t.Fatalf("domain errors must not be retried, got %d attempts", repo.moveCalls)
	}
}

func TestMoveRejectsBlankAndUnknownStage(t *testing.T) {
	repo := seededRepo()
	svc := newService(repo)

	_, err := svc.Move(context.Background(), uuid.New(), uuid.New(), "  ", nil)
	if apperr.GetKind(err) != apperr.KindValidation {
		t.Fatalf("blank stage should be a validation error, got %v", err)
	}

	_, err = svc.Move(context.Background(), uuid.New(), uuid.New(), "archived", nil)
	if apperr.GetKind(err) != apperr.KindNotFound {
		t.Fatalf("unknown stage should be not found, got %v", err)
	}
	if repo.moveCalls != 0 {
		t.Fatal("precondition failures must not reach the repository")
	}
}

func TestFilterStageInputsSkipsBlankKeys(t *testing.T) {
	userID := uuid.New()
	stages := FilterStageInputs(userID, []StageInput{
		{Key: "new", Label: "New", SortOrder: 0},
		{Key: "   ", Label: "ghost"},
		{Key: "", Label: "also ghost"},
		{Key: " won ", SortOrder: 1},
	})

	if len(stages) != 2 {
		t.Fatalf("expected 2 surviving stages, got %d", len(stages))
	}
	if stages[1].Key != "won" {
		t.Fatalf("keys should be trimmed, got %q", stages[1].Key)
	}
	if stages[1].Label != "won" {
		t.Fatalf("blank label should fall back to key, got %q", stages[1].Label)
	}
}

func TestUpsertStagesAllBlankIsNoOp(t *testing.T) {
	repo := seededRepo()
	svc := newService(repo)

	err := svc.UpsertStages(context.Background(), uuid.New(), []StageInput{{Key: "  "}, {Key: ""}})
	if err != nil {
		t.Fatalf("batch with only blank keys should be skipped silently, got %v", err)
	}
	if len(repo.stages) != 2 {
		t.Fatalf("degenerate batch must not change stages, got %d", len(repo.stages))
	}
}

func TestListStagesSeedsDefaultPipeline(t *testing.T) {
	repo := newFakeRepo()
	svc := newService(repo)

	stages, err := svc.ListStages(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("list stages: %v", err)
	}
	if len(stages) != 6 {
		t.Fatalf("expected seeded default pipeline of 6 stages, got %d", len(stages))
	}
	if stages[0].Key != "new" {
		t.Fatalf("first default stage should be new, got %q", stages[0].Key)
	}
}

func TestAddNoteValidation(t *testing.T) {
	repo := seededRepo()
	contactID := uuid.New()
	repo.assignments[contactID] = repository.Assignment{ContactID: contactID, StageKey: "new"}

	svc := newService(repo)
	ctx := context.Background()
	userID := uuid.New()

	if err := svc.AddNote(ctx, userID, contactID, "   "); apperr.GetKind(err) != apperr.KindValidation {
		t.Fatalf("blank note should fail validation, got %v", err)
	}

	long := make([]byte, noteMaxLen+1)
	for i := range long {
		long[i] = 'x'
	}
	if err := svc.AddNote(ctx, userID, contactID, string(long)); apperr.GetKind(err) != apperr.KindValidation {
		t.Fatalf("oversized note should fail validation, got %v", err)
	}

	if err := svc.AddNote(ctx, userID, contactID, "called, will decide by friday"); err != nil {
		t.Fatalf("valid note rejected: %v", err)
	}
	if len(repo.appended) != 1 || repo.appended[0] != domain.EventNote {
		t.Fatalf("expected one note event, got %v", repo.appended)
	}
}

func TestAddNoteCountsRunesNotBytes(t *testing.T) {
	repo := seededRepo()
	contactID := uuid.New()
	repo.assignments[contactID] = repository.Assignment{ContactID: contactID, StageKey: "new"}

	svc := newService(repo)
	ctx := context.Background()
	userID := uuid.New()

	// 2000 two-byte runes is 4000 bytes but still within the limit.
	if err := svc.AddNote(ctx, userID, contactID, strings.Repeat("é", noteMaxLen)); err != nil {
		t.Fatalf("note at the rune limit rejected: %v", err)
	}
	if err := svc.AddNote(ctx, userID, contactID, strings.Repeat("é", noteMaxLen+1)); apperr.GetKind(err) != apperr.KindValidation {
		t.Fatalf("note over the rune limit should fail validation, got %v", err)
	}
}

func TestAddNoteAdoptsUnlistedLead(t *testing.T) {
	repo := seededRepo()
	svc := newService(repo)
	contactID := uuid.New()

	err := svc.AddNote(context.Background(), uuid.New(), contactID, "hello")
	if err != nil {
		t.Fatalf("note on a never-listed lead should adopt it, got %v", err)
	}

	a, ok := repo.assignments[contactID]
	if !ok {
		t.Fatal("lead was not adopted onto the board")
	}
	if a.StageKey != "new" {
		t.Fatalf("adopted lead should land in the default stage, got %q", a.StageKey)
	}
	if len(repo.appended) != 1 || repo.appended[0] != domain.EventNote {
		t.Fatalf("expected one note event, got %v", repo.appended)
	}
}

func TestTimelineAdoptsUnlistedLead(t *testing.T) {
	repo := seededRepo()
	svc := newService(repo)
	contactID := uuid.New()

	if _, err := svc.Timeline(context.Background(), uuid.New(), contactID); err != nil {
		t.Fatalf("timeline on a never-listed lead should adopt it, got %v", err)
	}
	if _, ok := repo.assignments[contactID]; !ok {
		t.Fatal("lead was not adopted onto the board")
	}
}

func TestAddFollowUpValidation(t *testing.T) {
	repo := seededRepo()
	contactID := uuid.New()
	repo.assignments[contactID] = repository.Assignment{ContactID: contactID, StageKey: "new"}

	svc := newService(repo)
	ctx := context.Background()
	userID := uuid.New()
	when := time.Date(2026, 9, 10, 9, 0, 0, 0, time.UTC)

	if err := svc.AddFollowUp(ctx, userID, contactID, time.Time{}, domain.ChannelEmail); apperr.GetKind(err) != apperr.KindValidation {
		t.Fatalf("zero date should fail validation, got %v", err)
	}
	if err := svc.AddFollowUp(ctx, userID, contactID, when, "fax"); apperr.GetKind(err) != apperr.KindValidation {
		t.Fatalf("unknown channel should fail validation, got %v", err)
	}
	if err := svc.AddFollowUp(ctx, userID, contactID, when, domain.ChannelCall); err != nil {
		t.Fatalf("valid follow-up rejected: %v", err)
	}
}

func TestHandleContactCreatedAssignsDefaultStage(t *testing.T) {
	repo := newFakeRepo()
	svc := newService(repo)

	tenantID := uuid.New()
	contactID := uuid.New()
	err := svc.HandleContactCreated(context.Background(), events.ContactCreated{
		BaseEvent: events.NewBaseEvent(),
		TenantID:  tenantID,
		ContactID: contactID,
	})
	if err != nil {
		t.Fatalf("handle contact created: %v", err)
	}

	a, ok := repo.assignments[contactID]
	if !ok {
		t.Fatal("contact was not assigned")
	}
	if a.StageKey != "new" {
		t.Fatalf("contact should land in the default stage, got %q", a.StageKey)
	}
}

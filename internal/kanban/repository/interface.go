package repository

import (
	"context"
	"encoding/json"

	"crm_backend/internal/kanban/domain"

	"github.com/google/uuid"
)

// BoardRepository defines the interface for kanban data operations.
type BoardRepository interface {
	ListStages(ctx context.Context, userID uuid.UUID) ([]Stage, error)
	UpsertStages(ctx context.Context, userID uuid.UUID, stages []Stage) error
	CountStages(ctx context.Context, userID uuid.UUID) (int, error)
	DefaultStage(ctx context.Context, userID uuid.UUID) (string, error)
	StageExists(ctx context.Context, userID uuid.UUID, key string) (bool, error)

	GetAssignment(ctx context.Context, userID, contactID uuid.UUID) (Assignment, error)
	EnsureAssigned(ctx context.Context, userID, contactID uuid.UUID, stageKey string) error
	BackfillAssignments(ctx context.Context, userID uuid.UUID, defaultStage string) error

	Move(ctx context.Context, userID, contactID uuid.UUID, toStage string, requested *int) (MoveResult, error)

	AppendEvent(ctx context.Context, userID, contactID uuid.UUID, eventType string, payload json.RawMessage) error
	ListTimeline(ctx context.Context, userID, contactID uuid.UUID) ([]domain.TimelineEvent, error)

	ListLeads(ctx context.Context, userID uuid.UUID, f Filters) ([]Lead, error)
}

// Ensure Repository implements BoardRepository
var _ BoardRepository = (*Repository)(nil)

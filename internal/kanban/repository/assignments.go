package repository

import (
	"context"
	"errors"

	"crm_backend/internal/kanban/domain"
	"crm_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const getAssignmentQuery = `
	SELECT user_id, contact_id, stage_key, position
	FROM contact_stages
	WHERE user_id = $1 AND contact_id = $2
`

// GetAssignment returns the contact's current stage placement.
func (r *Repository) GetAssignment(ctx context.Context, userID, contactID uuid.UUID) (Assignment, error) {
	const op = "kanban.repository.GetAssignment"

	var a Assignment
	err := r.pool.QueryRow(ctx, getAssignmentQuery, userID, contactID).Scan(
		&a.UserID, &a.ContactID, &a.StageKey, &a.Position,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Assignment{}, apperr.NotFound("lead is not on the board").WithOp(op)
		}
		return Assignment{}, internalErr("get assignment", op, err)
	}
	return a, nil
}

// EnsureAssigned places the contact at the end of the given stage unless it
// already has an assignment. The initial stage entry is recorded on the
// timeline only when a row was actually inserted.
func (r *Repository) EnsureAssigned(ctx context.Context, userID, contactID uuid.UUID, stageKey string) error {
	const op = "kanban.repository.EnsureAssigned"

	err := r.inTx(ctx, func(tx pgx.Tx) error {
		return ensureAssignedTx(ctx, tx, userID, contactID, stageKey)
	})
	if err != nil {
		if isForeignKeyViolation(err) {
			return apperr.NotFound("contact not found").WithOp(op)
		}
		return internalErr("ensure assigned", op, err)
	}
	return nil
}

// adoptLeadTx lazily creates the lead's assignment in the board's default
// stage, appended after the stage's current tail, and returns the locked
// placement. Runs inside the caller's transaction so a subsequent move
// commits atomically with the adoption.
func adoptLeadTx(ctx context.Context, tx pgx.Tx, userID, contactID uuid.UUID) (string, int, error) {
	const op = "kanban.repository.adoptLeadTx"

	var stageKey string
	err := tx.QueryRow(ctx, defaultStageQuery, userID).Scan(&stageKey)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", 0, apperr.NotFound("no stages configured").WithOp(op)
		}
		return "", 0, err
	}

	if err := ensureAssignedTx(ctx, tx, userID, contactID, stageKey); err != nil {
		if isForeignKeyViolation(err) {
			return "", 0, apperr.NotFound("contact not found").WithOp(op)
		}
		return "", 0, err
	}

	// Re-read under lock: a concurrent adoption may have won the insert.
	var position int
	err = tx.QueryRow(ctx, lockMoverQuery, userID, contactID).Scan(&stageKey, &position)
	if err != nil {
		return "", 0, err
	}
	return stageKey, position, nil
}

// ensureAssignedTx appends the contact to stageKey at position COUNT(*),
// keeping the stage contiguous. ON CONFLICT keeps existing assignments
// untouched; RETURNING tells us whether this call created the row.
func ensureAssignedTx(ctx context.Context, tx pgx.Tx, userID, contactID uuid.UUID, stageKey string) error {
	var inserted uuid.UUID
	err := tx.QueryRow(ctx, `
		INSERT INTO contact_stages (user_id, contact_id, stage_key, position)
		SELECT $1, $2, $3, count(*)
		FROM contact_stages
		WHERE user_id = $1 AND stage_key = $3
		ON CONFLICT (user_id, contact_id) DO NOTHING
		RETURNING contact_id
	`, userID, contactID, stageKey).Scan(&inserted)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Already assigned; nothing to record.
			return nil
		}
		return err
	}

	payload, err := domain.EncodePayload(domain.EventStageChanged, domain.StageChangedPayload{To: stageKey})
	if err != nil {
		return err
	}
	return appendEventTx(ctx, tx, userID, contactID, domain.EventStageChanged, payload)
}

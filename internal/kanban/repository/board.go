package repository

import (
	"context"
	"errors"
	"sort"

	"crm_backend/internal/kanban/domain"
	"crm_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// lockStagesQuery takes row locks on every assignment in the affected
// stages. Deterministic (stage_key, position) order keeps concurrent movers
// acquiring locks in the same sequence.
const lockStagesQuery = `
	SELECT contact_id, stage_key, position
	FROM contact_stages
	WHERE user_id = $1 AND stage_key = ANY($2)
	ORDER BY stage_key, position
	FOR UPDATE
`

// lockMoverQuery pins the moving lead's own row before anything else; its
// current stage decides which ranges to lock next.
const lockMoverQuery = `
	SELECT stage_key, position
	FROM contact_stages
	WHERE user_id = $1 AND contact_id = $2
	FOR UPDATE
`

// MoveResult reports where the lead ended up.
type MoveResult struct {
	FromStage string
	Stage     string
	Position  int
	// Moved is false when the request was a same-slot no-op.
	Moved bool
}

// Move relocates a lead within or across stages in a single transaction,
// shifting neighbors so every affected stage keeps contiguous positions
// 0..n-1. The caller retries when the returned error is Retriable.
func (r *Repository) Move(ctx context.Context, userID, contactID uuid.UUID, toStage string, requested *int) (MoveResult, error) {
	const op = "kanban.repository.Move"

	var result MoveResult
	err := r.inTx(ctx, func(tx pgx.Tx) error {
		// Lock the mover first; its stage tells us which ranges to lock.
		var fromStage string
		var fromPos int
		err := tx.QueryRow(ctx, lockMoverQuery, userID, contactID).Scan(&fromStage, &fromPos)
		if err != nil {
			if !errors.Is(err, pgx.ErrNoRows) {
				return err
			}
			// Leads created before their first listing have no assignment
			// yet; adopt them into the default stage inside this
			// transaction and move from there.
			fromStage, fromPos, err = adoptLeadTx(ctx, tx, userID, contactID)
			if err != nil {
				return err
			}
		}

		stages := []string{fromStage}
		if toStage != fromStage {
			stages = append(stages, toStage)
		}
		sort.Strings(stages)

		targetCount, err := lockAndCountTarget(ctx, tx, userID, contactID, stages, toStage)
		if err != nil {
			return err
		}

		plan := domain.PlanMove(fromStage, fromPos, toStage, requested, targetCount)
		result = MoveResult{FromStage: fromStage, Stage: plan.Stage, Position: plan.Position, Moved: !plan.NoOp}
		if plan.NoOp {
			return nil
		}

		for _, shift := range plan.Shifts {
			if err := applyShift(ctx, tx, userID, contactID, shift); err != nil {
				return err
			}
		}

		_, err = tx.Exec(ctx, `
			UPDATE contact_stages
			SET stage_key = $3, position = $4
			WHERE user_id = $1 AND contact_id = $2
		`, userID, contactID, plan.Stage, plan.Position)
		if err != nil {
			return err
		}

		payload, err := domain.EncodePayload(domain.EventStageChanged, domain.StageChangedPayload{
			From: fromStage,
			To:   plan.Stage,
		})
		if err != nil {
			return err
		}
		return appendEventTx(ctx, tx, userID, contactID, domain.EventStageChanged, payload)
	})
	if err != nil {
		if Retriable(err) || errors.As(err, new(*apperr.Error)) {
			return MoveResult{}, err
		}
		return MoveResult{}, apperr.Wrap(apperr.KindInternal, "move lead", err).WithOp(op)
	}
	return result, nil
}

// lockAndCountTarget locks every assignment row in the given stages and
// returns how many leads the target stage holds, excluding the mover.
func lockAndCountTarget(ctx context.Context, tx pgx.Tx, userID, mover uuid.UUID, stages []string, toStage string) (int, error) {
	rows, err := tx.Query(ctx, lockStagesQuery, userID, stages)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	count := 0
	for rows.Next() {
		var contactID uuid.UUID
		var stageKey string
		var position int
		if err := rows.Scan(&contactID, &stageKey, &position); err != nil {
			return 0, err
		}
		if stageKey == toStage && contactID != mover {
			count++
		}
	}
	return count, rows.Err()
}

// applyShift runs one range shift as a single UPDATE. The deferred unique
// constraint on (user_id, stage_key, position) tolerates the transient
// duplicates this creates mid-transaction.
func applyShift(ctx context.Context, tx pgx.Tx, userID, mover uuid.UUID, shift domain.Shift) error {
	if shift.HasUpper {
		_, err := tx.Exec(ctx, `
			UPDATE contact_stages
			SET position = position + $5
			WHERE user_id = $1 AND stage_key = $2 AND contact_id <> $6
			  AND position >= $3 AND position <= $4
		`, userID, shift.Stage, shift.Lower, shift.Upper, shift.Delta, mover)
		return err
	}
	_, err := tx.Exec(ctx, `
		UPDATE contact_stages
		SET position = position + $4
		WHERE user_id = $1 AND stage_key = $2 AND contact_id <> $5
		  AND position >= $3
	`, userID, shift.Stage, shift.Lower, shift.Delta, mover)
	return err
}

package repository

import (
	"context"
	"errors"

	"crm_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const stageColumns = `id, user_id, key, label, sort_order, wip_limit, is_closed`

const listStagesQuery = `
	SELECT ` + stageColumns + `
	FROM kanban_stages
	WHERE user_id = $1
	ORDER BY sort_order, key
`

// defaultStageQuery picks the stage new leads land in: the first column of
// the board by (sort_order, key).
const defaultStageQuery = `
	SELECT key
	FROM kanban_stages
	WHERE user_id = $1
	ORDER BY sort_order, key
	LIMIT 1
`

const stageExistsQuery = `
	SELECT EXISTS (
		SELECT 1 FROM kanban_stages WHERE user_id = $1 AND key = $2
	)
`

func (r *Repository) ListStages(ctx context.Context, userID uuid.UUID) ([]Stage, error) {
	const op = "kanban.repository.ListStages"

	rows, err := r.pool.Query(ctx, listStagesQuery, userID)
	if err != nil {
		return nil, internalErr("list stages", op, err)
	}
	defer rows.Close()

	stages := make([]Stage, 0)
	for rows.Next() {
		var s Stage
		if err := rows.Scan(&s.ID, &s.UserID, &s.Key, &s.Label, &s.SortOrder, &s.WipLimit, &s.IsClosed); err != nil {
			return nil, internalErr("scan stage", op, err)
		}
		stages = append(stages, s)
	}
	if err := rows.Err(); err != nil {
		return nil, internalErr("iterate stages", op, err)
	}
	return stages, nil
}

// DefaultStage returns the key of the board's first stage.
func (r *Repository) DefaultStage(ctx context.Context, userID uuid.UUID) (string, error) {
	const op = "kanban.repository.DefaultStage"

	var key string
	err := r.pool.QueryRow(ctx, defaultStageQuery, userID).Scan(&key)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", apperr.NotFound("no stages configured").WithOp(op)
		}
		return "", internalErr("default stage", op, err)
	}
	return key, nil
}

func (r *Repository) StageExists(ctx context.Context, userID uuid.UUID, key string) (bool, error) {
	const op = "kanban.repository.StageExists"

	var exists bool
	if err := r.pool.QueryRow(ctx, stageExistsQuery, userID, key).Scan(&exists); err != nil {
		return false, internalErr("stage exists", op, err)
	}
	return exists, nil
}

// UpsertStages inserts or updates the given stage definitions in one
// transaction. Stages absent from the input are left untouched: removing a
// stage would orphan its assignments, so the registry only grows or edits.
func (r *Repository) UpsertStages(ctx context.Context, userID uuid.UUID, stages []Stage) error {
	const op = "kanban.repository.UpsertStages"

	err := r.inTx(ctx, func(tx pgx.Tx) error {
		for _, s := range stages {
			_, err := tx.Exec(ctx, `
				INSERT INTO kanban_stages (user_id, key, label, sort_order, wip_limit, is_closed)
				VALUES ($1, $2, $3, $4, $5, $6)
				ON CONFLICT (user_id, key) DO UPDATE
				SET label = EXCLUDED.label,
				    sort_order = EXCLUDED.sort_order,
				    wip_limit = EXCLUDED.wip_limit,
				    is_closed = EXCLUDED.is_closed
			`, userID, s.Key, s.Label, s.SortOrder, s.WipLimit, s.IsClosed)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return internalErr("upsert stages", op, err)
	}
	return nil
}

// CountStages reports how many stages the tenant has configured.
func (r *Repository) CountStages(ctx context.Context, userID uuid.UUID) (int, error) {
	const op = "kanban.repository.CountStages"

	var count int
	err := r.pool.QueryRow(ctx, `SELECT count(*) FROM kanban_stages WHERE user_id = $1`, userID).Scan(&count)
	if err != nil {
		return 0, internalErr("count stages", op, err)
	}
	return count, nil
}

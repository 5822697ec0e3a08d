package repository

import (
	"context"
	"encoding/json"

	"crm_backend/internal/kanban/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const listTimelineQuery = `
	SELECT id, contact_id, event_type, payload, created_at
	FROM timeline_events
	WHERE user_id = $1 AND contact_id = $2
	ORDER BY created_at DESC, id DESC
`

func appendEventTx(ctx context.Context, tx pgx.Tx, userID, contactID uuid.UUID, eventType string, payload json.RawMessage) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO timeline_events (user_id, contact_id, event_type, payload)
		VALUES ($1, $2, $3, $4)
	`, userID, contactID, eventType, payload)
	return err
}

// AppendEvent records a timeline entry outside any larger transaction.
func (r *Repository) AppendEvent(ctx context.Context, userID, contactID uuid.UUID, eventType string, payload json.RawMessage) error {
	const op = "kanban.repository.AppendEvent"

	_, err := r.pool.Exec(ctx, `
		INSERT INTO timeline_events (user_id, contact_id, event_type, payload)
		VALUES ($1, $2, $3, $4)
	`, userID, contactID, eventType, payload)
	if err != nil {
		return internalErr("append timeline event", op, err)
	}
	return nil
}

// ListTimeline returns the lead's history newest first.
func (r *Repository) ListTimeline(ctx context.Context, userID, contactID uuid.UUID) ([]domain.TimelineEvent, error) {
	const op = "kanban.repository.ListTimeline"

	rows, err := r.pool.Query(ctx, listTimelineQuery, userID, contactID)
	if err != nil {
		return nil, internalErr("list timeline", op, err)
	}
	defer rows.Close()

	events := make([]domain.TimelineEvent, 0)
	for rows.Next() {
		var ev domain.TimelineEvent
		if err := rows.Scan(&ev.ID, &ev.ContactID, &ev.Type, &ev.Payload, &ev.CreatedAt); err != nil {
			return nil, internalErr("scan timeline event", op, err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, internalErr("iterate timeline", op, err)
	}
	return events, nil
}

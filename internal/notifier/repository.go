package notifier

import (
	"context"
	"errors"
	"time"

	"crm_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// KindBirthday is the only notification kind today.
const KindBirthday = "birthday"

const alreadyLoggedQuery = `
	SELECT EXISTS (
		SELECT 1 FROM notification_logs
		WHERE contact_id = $1 AND kind = $2 AND channel = $3 AND log_date = $4
	)
`

const ownerEmailQuery = `
	SELECT email, name
	FROM users
	WHERE id = $1 AND is_active
`

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// AlreadyLogged reports whether this notification was recorded for the day.
func (r *Repository) AlreadyLogged(ctx context.Context, contactID uuid.UUID, kind, channel string, day time.Time) (bool, error) {
	const op = "notifier.repository.AlreadyLogged"

	var exists bool
	err := r.pool.QueryRow(ctx, alreadyLoggedQuery, contactID, kind, channel, day.Format("2006-01-02")).Scan(&exists)
	if err != nil {
		return false, apperr.Wrap(apperr.KindInternal, "check notification log", err).WithOp(op)
	}
	return exists, nil
}

// RecordLog marks the notification as sent. The unique constraint makes a
// duplicate record a silent no-op, so a crashed run cannot double-send more
// than once.
func (r *Repository) RecordLog(ctx context.Context, contactID uuid.UUID, kind, channel string, day time.Time, info string) error {
	const op = "notifier.repository.RecordLog"

	_, err := r.pool.Exec(ctx, `
		INSERT INTO notification_logs (contact_id, kind, channel, log_date, info)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (contact_id, kind, channel, log_date) DO NOTHING
	`, contactID, kind, channel, day.Format("2006-01-02"), info)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "record notification log", err).WithOp(op)
	}
	return nil
}

// OwnerContact returns the tenant's email and name for reminder delivery.
func (r *Repository) OwnerContact(ctx context.Context, userID uuid.UUID) (email, name string, err error) {
	const op = "notifier.repository.OwnerContact"

	err = r.pool.QueryRow(ctx, ownerEmailQuery, userID).Scan(&email, &name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", "", apperr.NotFound("owner not found or inactive").WithOp(op)
		}
		return "", "", apperr.Wrap(apperr.KindInternal, "get owner", err).WithOp(op)
	}
	return email, name, nil
}

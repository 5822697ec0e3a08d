// Package repository implements kanban persistence on Postgres. The move
// transaction is the critical piece: it locks both affected stages, applies
// range shifts from the planned move, and records the timeline entry, all
// inside one transaction so positions stay contiguous under concurrency.
package repository

import (
	"context"
	"errors"
	"time"

	"crm_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres SQLSTATEs that signal a transaction worth retrying.
const (
	serializationFailureCode = "40001"
	deadlockDetectedCode     = "40P01"
)

const foreignKeyViolationCode = "23503"

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Stage is a tenant's pipeline column.
type Stage struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Key       string
	Label     string
	SortOrder int
	WipLimit  *int
	IsClosed  bool
}

// Assignment places a contact in a stage at a position.
type Assignment struct {
	UserID    uuid.UUID
	ContactID uuid.UUID
	StageKey  string
	Position  int
}

// Lead is a contact joined with its stage assignment for board listings.
type Lead struct {
	ContactID uuid.UUID
	FirstName string
	LastName  string
	BirthDate time.Time
	Email     *string
	Phone     *string
	StageKey  string
	Position  int
}

// Retriable reports whether the error is a serialization failure or
// deadlock, i.e. worth retrying with the same inputs.
func Retriable(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == serializationFailureCode || pgErr.Code == deadlockDetectedCode
}

// isForeignKeyViolation reports whether the error is a foreign key violation,
// which on contact_stages means the referenced contact does not exist.
func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolationCode
}

// inTx runs fn inside a transaction with rollback on error.
func (r *Repository) inTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func internalErr(message, op string, err error) error {
	if errors.As(err, new(*apperr.Error)) {
		return err
	}
	return apperr.Wrap(apperr.KindInternal, message, err).WithOp(op)
}

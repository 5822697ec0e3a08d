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

// Postgres unique_violation.
const uniqueViolationCode = "23505"

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type User struct {
	ID           uuid.UUID
	Email        string
	PasswordHash string
	Name         string
	Role         string
	IsActive     bool
	CreatedAt    time.Time
}

const userColumns = `id, email, password_hash, name, role, is_active, created_at`

const getUserByEmailQuery = `
	SELECT ` + userColumns + `
	FROM users
	WHERE lower(email) = lower($1)
`

const getUserByIDQuery = `
	SELECT ` + userColumns + `
	FROM users
	WHERE id = $1
`

func (r *Repository) CreateUser(ctx context.Context, email, passwordHash, name, role string) (User, error) {
	const op = "auth.repository.CreateUser"

	var user User
	err := r.pool.QueryRow(ctx, `
		INSERT INTO users (email, password_hash, name, role)
		VALUES (lower($1), $2, $3, $4)
		RETURNING `+userColumns+`
	`, email, passwordHash, name, role).Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.Name,
		&user.Role,
		&user.IsActive,
		&user.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return User{}, apperr.Wrap(apperr.KindConflict, "email already registered", err).WithOp(op)
		}
		return User{}, apperr.Wrap(apperr.KindInternal, "create user", err).WithOp(op)
	}

	return user, nil
}

func (r *Repository) GetUserByEmail(ctx context.Context, email string) (User, error) {
	const op = "auth.repository.GetUserByEmail"

	user, err := r.scanUser(r.pool.QueryRow(ctx, getUserByEmailQuery, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, apperr.Wrap(apperr.KindNotFound, "user not found", err).WithOp(op)
		}
		return User{}, apperr.Wrap(apperr.KindInternal, "get user by email", err).WithOp(op)
	}
	return user, nil
}

func (r *Repository) GetUserByID(ctx context.Context, userID uuid.UUID) (User, error) {
	const op = "auth.repository.GetUserByID"

	user, err := r.scanUser(r.pool.QueryRow(ctx, getUserByIDQuery, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, apperr.Wrap(apperr.KindNotFound, "user not found", err).WithOp(op)
		}
		return User{}, apperr.Wrap(apperr.KindInternal, "get user by id", err).WithOp(op)
	}
	return user, nil
}

// EnsureAdmin inserts the bootstrap admin account when no user holds the
// email yet. The existing row wins on conflict so restarts never rotate a
// changed password back.
func (r *Repository) EnsureAdmin(ctx context.Context, email, passwordHash, name string) error {
	const op = "auth.repository.EnsureAdmin"

	_, err := r.pool.Exec(ctx, `
		INSERT INTO users (email, password_hash, name, role)
		VALUES (lower($1), $2, $3, 'admin')
		ON CONFLICT (email) DO NOTHING
	`, email, passwordHash, name)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "ensure admin", err).WithOp(op)
	}
	return nil
}

func (r *Repository) scanUser(row pgx.Row) (User, error) {
	var user User
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.Name,
		&user.Role,
		&user.IsActive,
		&user.CreatedAt,
	)
	return user, err
}

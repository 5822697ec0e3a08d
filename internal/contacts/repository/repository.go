package repository

import (
	"context"
	"errors"
	"time"

	"crm_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type Contact struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	FirstName string
	LastName  string
	BirthDate time.Time
	Email     *string
	Phone     *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

const contactColumns = `id, user_id, first_name, last_name, birth_date, email, phone, created_at, updated_at`

const listContactsQuery = `
	SELECT ` + contactColumns + `
	FROM contacts
	WHERE user_id = $1
	ORDER BY first_name, last_name, id
`

const getContactQuery = `
	SELECT ` + contactColumns + `
	FROM contacts
	WHERE user_id = $1 AND id = $2
`

// birthdaysOnQuery matches on calendar month and day so the birth year is
// ignored. Backed by the expression index on contacts.
const birthdaysOnQuery = `
	SELECT ` + contactColumns + `
	FROM contacts
	WHERE user_id = $1
	  AND EXTRACT(MONTH FROM birth_date) = $2
	  AND EXTRACT(DAY FROM birth_date) = $3
	ORDER BY first_name, last_name, id
`

// birthdaysOnAnyTenantQuery is the reminder sweep: it crosses tenants on
// purpose because the scheduler dispatches for every account.
const birthdaysOnAnyTenantQuery = `
	SELECT ` + contactColumns + `
	FROM contacts
	WHERE EXTRACT(MONTH FROM birth_date) = $1
	  AND EXTRACT(DAY FROM birth_date) = $2
	ORDER BY user_id, first_name, last_name, id
`

func (r *Repository) Create(ctx context.Context, c Contact) (Contact, error) {
	const op = "contacts.repository.Create"

	err := r.pool.QueryRow(ctx, `
		INSERT INTO contacts (user_id, first_name, last_name, birth_date, email, phone)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+contactColumns+`
	`, c.UserID, c.FirstName, c.LastName, c.BirthDate, c.Email, c.Phone).Scan(
		&c.ID, &c.UserID, &c.FirstName, &c.LastName, &c.BirthDate, &c.Email, &c.Phone, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return Contact{}, apperr.Wrap(apperr.KindInternal, "create contact", err).WithOp(op)
	}
	return c, nil
}

func (r *Repository) Update(ctx context.Context, c Contact) (Contact, error) {
	const op = "contacts.repository.Update"

	err := r.pool.QueryRow(ctx, `
		UPDATE contacts
		SET first_name = $3, last_name = $4, birth_date = $5, email = $6, phone = $7, updated_at = now()
		WHERE user_id = $1 AND id = $2
		RETURNING `+contactColumns+`
	`, c.UserID, c.ID, c.FirstName, c.LastName, c.BirthDate, c.Email, c.Phone).Scan(
		&c.ID, &c.UserID, &c.FirstName, &c.LastName, &c.BirthDate, &c.Email, &c.Phone, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Contact{}, apperr.NotFound("contact not found").WithOp(op)
		}
		return Contact{}, apperr.Wrap(apperr.KindInternal, "update contact", err).WithOp(op)
	}
	return c, nil
}

func (r *Repository) Delete(ctx context.Context, userID, contactID uuid.UUID) error {
	const op = "contacts.repository.Delete"

	tag, err := r.pool.Exec(ctx, `DELETE FROM contacts WHERE user_id = $1 AND id = $2`, userID, contactID)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "delete contact", err).WithOp(op)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("contact not found").WithOp(op)
	}
	return nil
}

func (r *Repository) Get(ctx context.Context, userID, contactID uuid.UUID) (Contact, error) {
	const op = "contacts.repository.Get"

	c, err := scanContact(r.pool.QueryRow(ctx, getContactQuery, userID, contactID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Contact{}, apperr.NotFound("contact not found").WithOp(op)
		}
		return Contact{}, apperr.Wrap(apperr.KindInternal, "get contact", err).WithOp(op)
	}
	return c, nil
}

func (r *Repository) List(ctx context.Context, userID uuid.UUID) ([]Contact, error) {
	const op = "contacts.repository.List"

	rows, err := r.pool.Query(ctx, listContactsQuery, userID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "list contacts", err).WithOp(op)
	}
	defer rows.Close()

	return collectContacts(rows, op)
}

// BirthdaysOn returns the tenant's contacts whose birthday falls on the
// given month and day.
func (r *Repository) BirthdaysOn(ctx context.Context, userID uuid.UUID, month, day int) ([]Contact, error) {
	const op = "contacts.repository.BirthdaysOn"

	rows, err := r.pool.Query(ctx, birthdaysOnQuery, userID, month, day)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "list birthdays", err).WithOp(op)
	}
	defer rows.Close()

	return collectContacts(rows, op)
}

// BirthdaysOnAnyTenant returns contacts across all tenants whose birthday
// falls on the given month and day. Used by the reminder dispatcher.
func (r *Repository) BirthdaysOnAnyTenant(ctx context.Context, month, day int) ([]Contact, error) {
	const op = "contacts.repository.BirthdaysOnAnyTenant"

	rows, err := r.pool.Query(ctx, birthdaysOnAnyTenantQuery, month, day)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "sweep birthdays", err).WithOp(op)
	}
	defer rows.Close()

	return collectContacts(rows, op)
}

func scanContact(row pgx.Row) (Contact, error) {
	var c Contact
	err := row.Scan(&c.ID, &c.UserID, &c.FirstName, &c.LastName, &c.BirthDate, &c.Email, &c.Phone, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func collectContacts(rows pgx.Rows, op string) ([]Contact, error) {
	contacts := make([]Contact, 0)
	for rows.Next() {
		var c Contact
		if err := rows.Scan(&c.ID, &c.UserID, &c.FirstName, &c.LastName, &c.BirthDate, &c.Email, &c.Phone, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "scan contact", err).WithOp(op)
		}
		contacts = append(contacts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "iterate contacts", err).WithOp(op)
	}
	return contacts, nil
}

package repository

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Filters narrow a board listing. Zero values mean "no constraint";
// all present filters apply conjunctively.
type Filters struct {
	Stage    string
	Text     string
	DateFrom *time.Time
	DateTo   *time.Time
}

const listLeadsBaseQuery = `
	SELECT c.id, c.first_name, c.last_name, c.birth_date, c.email, c.phone,
	       cs.stage_key, cs.position
	FROM contact_stages cs
	JOIN contacts c ON c.user_id = cs.user_id AND c.id = cs.contact_id
	WHERE cs.user_id = $1
`

const listLeadsOrder = ` ORDER BY cs.stage_key, cs.position, c.id`

// BackfillAssignments appends every unassigned contact of the tenant to the
// default stage, numbering them after the stage's current tail so positions
// stay contiguous. Each new assignment gets its initial timeline entry.
func (r *Repository) BackfillAssignments(ctx context.Context, userID uuid.UUID, defaultStage string) error {
	const op = "kanban.repository.BackfillAssignments"

	err := r.inTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			WITH missing AS (
				SELECT c.id
				FROM contacts c
				WHERE c.user_id = $1
				  AND NOT EXISTS (
					SELECT 1 FROM contact_stages cs
					WHERE cs.user_id = c.user_id AND cs.contact_id = c.id
				  )
				ORDER BY c.created_at, c.id
			), assigned AS (
				INSERT INTO contact_stages (user_id, contact_id, stage_key, position)
				SELECT $1, m.id, $2,
				       (SELECT count(*) FROM contact_stages cs
				        WHERE cs.user_id = $1 AND cs.stage_key = $2)
				       + row_number() OVER () - 1
				FROM missing m
				ON CONFLICT (user_id, contact_id) DO NOTHING
				RETURNING contact_id
			)
			INSERT INTO timeline_events (user_id, contact_id, event_type, payload)
			SELECT $1, a.contact_id, 'stage_changed', jsonb_build_object('to', $2::text)
			FROM assigned a
		`, userID, defaultStage)
		return err
	})
	if err != nil {
		return internalErr("backfill assignments", op, err)
	}
	return nil
}

// ListLeads returns the tenant's board, optionally filtered. Assignments
// must already be backfilled; the service layer handles that.
func (r *Repository) ListLeads(ctx context.Context, userID uuid.UUID, f Filters) ([]Lead, error) {
	const op = "kanban.repository.ListLeads"

	query, args := buildLeadsQuery(userID, f)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, internalErr("list leads", op, err)
	}
	defer rows.Close()

	leads := make([]Lead, 0)
	for rows.Next() {
		var l Lead
		if err := rows.Scan(&l.ContactID, &l.FirstName, &l.LastName, &l.BirthDate, &l.Email, &l.Phone, &l.StageKey, &l.Position); err != nil {
			return nil, internalErr("scan lead", op, err)
		}
		leads = append(leads, l)
	}
	if err := rows.Err(); err != nil {
		return nil, internalErr("iterate leads", op, err)
	}
	return leads, nil
}

// buildLeadsQuery assembles the filtered listing. Text matches first name,
// last name, and email case-insensitively; when the term contains digits it
// also matches a digit-substring of the phone.
func buildLeadsQuery(userID uuid.UUID, f Filters) (string, []any) {
	var sb strings.Builder
	sb.WriteString(listLeadsBaseQuery)

	args := []any{userID}

	if f.Stage != "" {
		args = append(args, f.Stage)
		sb.WriteString(` AND cs.stage_key = $` + strconv.Itoa(len(args)))
	}

	if term := strings.TrimSpace(f.Text); term != "" {
		args = append(args, "%"+term+"%")
		idx := strconv.Itoa(len(args))
		sb.WriteString(` AND (c.first_name ILIKE $` + idx +
			` OR c.last_name ILIKE $` + idx +
			` OR c.email ILIKE $` + idx)

		if digits := digitsOf(term); digits != "" {
			args = append(args, "%"+digits+"%")
			sb.WriteString(` OR regexp_replace(coalesce(c.phone, ''), '\D', '', 'g') LIKE $` + strconv.Itoa(len(args)))
		}
		sb.WriteString(`)`)
	}

	// created_at bounds are date-only and inclusive.
	if f.DateFrom != nil {
		args = append(args, f.DateFrom.Format("2006-01-02"))
		sb.WriteString(` AND c.created_at::date >= $` + strconv.Itoa(len(args)))
	}
	if f.DateTo != nil {
		args = append(args, f.DateTo.Format("2006-01-02"))
		sb.WriteString(` AND c.created_at::date <= $` + strconv.Itoa(len(args)))
	}

	sb.WriteString(listLeadsOrder)
	return sb.String(), args
}

func digitsOf(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

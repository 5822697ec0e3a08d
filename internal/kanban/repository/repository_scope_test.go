package repository

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestLockQueryOrdersDeterministically(t *testing.T) {
	lowered := strings.ToLower(lockStagesQuery)

	if !strings.Contains(lowered, "order by stage_key, position") {
		t.Fatal("lock query must order by (stage_key, position)")
	}
	if !strings.Contains(lowered, "for update") {
		t.Fatal("lock query must take row locks")
	}
	if !strings.Contains(lowered, "user_id = $1") {
		t.Fatal("lock query must be tenant-scoped")
	}
}

func TestMoverLockIsScopedAndExclusive(t *testing.T) {
	lowered := strings.ToLower(lockMoverQuery)

	if !strings.Contains(lowered, "user_id = $1 and contact_id = $2") {
		t.Fatal("mover lock must be scoped to tenant and contact")
	}
	if !strings.Contains(lowered, "for update") {
		t.Fatal("mover lock must take a row lock")
	}
}

func TestStageListingIsTenantScopedAndOrdered(t *testing.T) {
	lowered := strings.ToLower(listStagesQuery)

	if !strings.Contains(lowered, "user_id = $1") {
		t.Fatal("stage listing must be tenant-scoped")
	}
	if !strings.Contains(lowered, "order by sort_order, key") {
		t.Fatal("stage listing must tie-break by key")
	}
}

func TestDefaultStagePicksFirstByOrder(t *testing.T) {
	lowered := strings.ToLower(defaultStageQuery)

	if !strings.Contains(lowered, "order by sort_order, key") || !strings.Contains(lowered, "limit 1") {
		t.Fatal("default stage must be the first by (sort_order, key)")
	}
}

func TestTimelineListingNewestFirst(t *testing.T) {
	lowered := strings.ToLower(listTimelineQuery)

	if !strings.Contains(lowered, "order by created_at desc") {
		t.Fatal("timeline must list newest first")
	}
	if !strings.Contains(lowered, "user_id = $1 and contact_id = $2") {
		t.Fatal("timeline must be scoped to tenant and contact")
	}
}

func TestRetriableRecognizesSerializationFailures(t *testing.T) {
	cases := []struct {
		code string
		want bool
	}{
		{"40001", true},
		{"40P01", true},
		{"23505", false},
		{"", false},
	}
	for _, tc := range cases {
		err := error(&pgconn.PgError{Code: tc.code})
		if got := Retriable(err); got != tc.want {
			t.Fatalf("Retriable(%q) = %v, want %v", tc.code, got, tc.want)
		}
	}
	if Retriable(nil) {
		t.Fatal("nil error should not be retriable")
	}
}

func TestForeignKeyViolationDetection(t *testing.T) {
	if !isForeignKeyViolation(&pgconn.PgError{Code: "23503"}) {
		t.Fatal("23503 is a foreign key violation")
	}
	if isForeignKeyViolation(&pgconn.PgError{Code: "40001"}) {
		t.Fatal("serialization failure is not a foreign key violation")
	}
	if isForeignKeyViolation(nil) {
		t.Fatal("nil error is not a foreign key violation")
	}
}

func TestBuildLeadsQueryNoFilters(t *testing.T) {
	userID := uuid.New()
	query, args := buildLeadsQuery(userID, Filters{})

	if len(args) != 1 || args[0] != userID {
		t.Fatalf("expected only the tenant argument, got %v", args)
	}
	if !strings.Contains(strings.ToLower(query), "order by cs.stage_key, cs.position, c.id") {
		t.Fatal("board listing must order by stage, position, contact id")
	}
}

func TestBuildLeadsQueryStageFilter(t *testing.T) {
	query, args := buildLeadsQuery(uuid.New(), Filters{Stage: "qualifying"})

	if len(args) != 2 || args[1] != "qualifying" {
		t.Fatalf("expected stage argument, got %v", args)
	}
	if !strings.Contains(query, "cs.stage_key = $2") {
		t.Fatalf("stage filter missing from query:\n%s", query)
	}
}

func TestBuildLeadsQueryTextFilterMatchesNamesAndEmail(t *testing.T) {
	query, args := buildLeadsQuery(uuid.New(), Filters{Text: "ana"})

	if len(args) != 2 || args[1] != "%ana%" {
		t.Fatalf("expected wildcard text argument, got %v", args)
	}
	for _, fragment := range []string{"c.first_name ILIKE $2", "c.last_name ILIKE $2", "c.email ILIKE $2"} {
		if !strings.Contains(query, fragment) {
			t.Fatalf("text filter missing %q:\n%s", fragment, query)
		}
	}
	if strings.Contains(query, "c.phone") {
		t.Fatal("non-numeric term should not match against the phone column")
	}
}

func TestBuildLeadsQueryNumericTermAlsoMatchesPhone(t *testing.T) {
	query, args := buildLeadsQuery(uuid.New(), Filters{Text: "(11) 98765"})

	if len(args) != 3 {
		t.Fatalf("expected text and digits arguments, got %v", args)
	}
	if args[2] != "%1198765%" {
		t.Fatalf("digits argument = %v, want %%1198765%%", args[2])
	}
	if !strings.Contains(query, "regexp_replace(coalesce(c.phone, ''), '\\D', '', 'g') LIKE $3") {
		t.Fatalf("phone digit match missing:\n%s", query)
	}
}

func TestBuildLeadsQueryDateBoundsAreInclusiveDateOnly(t *testing.T) {
	from := time.Date(2026, 1, 10, 15, 30, 0, 0, time.UTC)
	to := time.Date(2026, 1, 20, 8, 0, 0, 0, time.UTC)
	query, args := buildLeadsQuery(uuid.New(), Filters{DateFrom: &from, DateTo: &to})

	if len(args) != 3 {
		t.Fatalf("expected two date arguments, got %v", args)
	}
	if args[1] != "2026-01-10" || args[2] != "2026-01-20" {
		t.Fatalf("date arguments should be date-only strings, got %v", args)
	}
	if !strings.Contains(query, "c.created_at::date >= $2") || !strings.Contains(query, "c.created_at::date <= $3") {
		t.Fatalf("inclusive date bounds missing:\n%s", query)
	}
}

func TestBuildLeadsQueryCombinedFilters(t *testing.T) {
	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	query, args := buildLeadsQuery(uuid.New(), Filters{Stage: "won", Text: "silva", DateFrom: &from})

	if len(args) != 4 {
		t.Fatalf("expected 4 arguments, got %v", args)
	}
	for _, fragment := range []string{"cs.stage_key = $2", "ILIKE $3", "c.created_at::date >= $4"} {
		if !strings.Contains(query, fragment) {
			t.Fatalf("combined query missing %q:\n%s", fragment, query)
		}
	}
}

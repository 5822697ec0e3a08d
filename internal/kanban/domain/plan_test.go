package domain

import (
	"reflect"
	"testing"
)

func intPtr(v int) *int { return &v }

// board is a test double: stage key -> ordered slice of lead ids, index = position.
type board map[string][]string

// applyPlan mutates the board the way the repository applies a MovePlan,
// then verifies every stage is still contiguous from zero.
func applyPlan(t *testing.T, b board, lead string, plan MovePlan) {
	t.Helper()

	if plan.NoOp {
		return
	}

	// Remove the lead from wherever it currently sits.
	for stage, leads := range b {
		for i, id := range leads {
			if id == lead {
				b[stage] = append(append([]string{}, leads[:i]...), leads[i+1:]...)
			}
		}
	}

	// Insert at the planned slot.
	target := b[plan.Stage]
	if plan.Position > len(target) {
		t.Fatalf("plan places lead at %d but stage %q holds %d leads", plan.Position, plan.Stage, len(target))
	}
	out := append([]string{}, target[:plan.Position]...)
	out = append(out, lead)
	out = append(out, target[plan.Position:]...)
	b[plan.Stage] = out
}

func TestPlanMoveSameStageEarlier(t *testing.T) {
	plan := PlanMove("qualifying", 3, "qualifying", intPtr(1), 4)

	if plan.NoOp {
		t.Fatal("expected a real move, got no-op")
	}
	want := []Shift{{Stage: "qualifying", Lower: 1, Upper: 2, HasUpper: true, Delta: +1}}
	if !reflect.DeepEqual(plan.Shifts, want) {
		t.Fatalf("shifts = %+v, want %+v", plan.Shifts, want)
	}
	if plan.Position != 1 {
		t.Fatalf("position = %d, want 1", plan.Position)
	}

	b := board{"qualifying": {"a", "b", "c", "d", "e"}}
	applyPlan(t, b, "d", plan)
	if got, want := b["qualifying"], []string{"a", "d", "b", "c", "e"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("board = %v, want %v", got, want)
	}
}

func TestPlanMoveSameStageLater(t *testing.T) {
	plan := PlanMove("new", 0, "new", intPtr(2), 3)

	want := []Shift{{Stage: "new", Lower: 1, Upper: 2, HasUpper: true, Delta: -1}}
	if !reflect.DeepEqual(plan.Shifts, want) {
		t.Fatalf("shifts = %+v, want %+v", plan.Shifts, want)
	}

	b := board{"new": {"a", "b", "c", "d"}}
	applyPlan(t, b, "a", plan)
	if got, want := b["new"], []string{"b", "c", "a", "d"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("board = %v, want %v", got, want)
	}
}

func TestPlanMoveSamePositionIsNoOp(t *testing.T) {
	plan := PlanMove("won", 2, "won", intPtr(2), 5)
	if !plan.NoOp {
		t.Fatal("expected no-op when target equals current position")
	}
	if len(plan.Shifts) != 0 {
		t.Fatalf("no-op plan carries shifts: %+v", plan.Shifts)
	}
}

func TestPlanMoveCrossStage(t *testing.T) {
	plan := PlanMove("new", 1, "qualifying", intPtr(0), 2)

	want := []Shift{
		{Stage: "new", Lower: 2, Delta: -1},
		{Stage: "qualifying", Lower: 0, Delta: +1},
	}
	if !reflect.DeepEqual(plan.Shifts, want) {
		t.Fatalf("shifts = %+v, want %+v", plan.Shifts, want)
	}

	b := board{
		"new":        {"a", "b", "c"},
		"qualifying": {"x", "y"},
	}
	applyPlan(t, b, "b", plan)
	if got, want := b["new"], []string{"a", "c"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("source stage = %v, want %v", got, want)
	}
	if got, want := b["qualifying"], []string{"b", "x", "y"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("target stage = %v, want %v", got, want)
	}
}

func TestPlanMoveAppendsWhenPositionOmitted(t *testing.T) {
	plan := PlanMove("new", 0, "won", nil, 3)
	if plan.Position != 3 {
		t.Fatalf("position = %d, want 3 (append)", plan.Position)
	}
}

func TestPlanMoveClampsOutOfRange(t *testing.T) {
	cases := []struct {
		name      string
		requested int
		want      int
	}{
		{"negative clamps to zero", -5, 0},
		{"huge clamps to count", 9999, 3},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			plan := PlanMove("new", 0, "won", intPtr(tc.requested), 3)
			if plan.Position != tc.want {
				t.Fatalf("position = %d, want %d", plan.Position, tc.want)
			}
		})
	}
}

func TestPlanMoveClampToEndOfSameStage(t *testing.T) {
	// Five leads in the stage; the mover is excluded from targetCount, so
	// the last reachable slot is 4.
	plan := PlanMove("new", 1, "new", intPtr(100), 4)
	if plan.Position != 4 {
		t.Fatalf("position = %d, want 4", plan.Position)
	}

	b := board{"new": {"a", "b", "c", "d", "e"}}
	applyPlan(t, b, "b", plan)
	if got, want := b["new"], []string{"a", "c", "d", "e", "b"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("board = %v, want %v", got, want)
	}
}

func TestPlanMoveShiftsNeverCoverMover(t *testing.T) {
	// Same-stage shifts must exclude the moving lead's own row, otherwise
	// the single-UPDATE shift would displace it twice.
	plan := PlanMove("new", 2, "new", intPtr(0), 4)
	for _, s := range plan.Shifts {
		if s.Lower <= 2 && (!s.HasUpper || s.Upper >= 2) {
			t.Fatalf("shift %+v covers the mover's position 2", s)
		}
	}
}

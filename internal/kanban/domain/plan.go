// Package domain holds the pure kanban board rules: how a lead move is
// planned and what the timeline payloads look like. Nothing here touches
// storage, so the invariant-critical logic is testable in isolation.
package domain

// Shift describes a positional adjustment to apply to every assignment of a
// stage whose position falls inside the range. Lower is inclusive; Upper is
// inclusive and only meaningful when HasUpper is true.
type Shift struct {
	Stage    string
	Lower    int
	Upper    int
	HasUpper bool
	Delta    int
}

// MovePlan is the outcome of planning a move: the final stage and position
// for the lead plus the shifts that keep both affected stages contiguous.
type MovePlan struct {
	// NoOp is true when the lead already sits at the requested slot.
	// No shifts run and no timeline entry is recorded.
	NoOp bool
	// Stage and Position are the lead's final placement.
	Stage    string
	Position int
	// Shifts are applied before the lead's own row is updated. The shifted
	// ranges never include the moving lead itself.
	Shifts []Shift
}

// PlanMove computes the placement and shifts for moving a lead.
//
// fromStage/fromPos is the lead's current assignment. targetCount is the
// number of leads currently in toStage, excluding the lead itself when it is
// already there. requested is the caller's desired position or nil to append;
// out-of-range values clamp to [0, targetCount] rather than failing, so stale
// client hints still land somewhere sensible.
func PlanMove(fromStage string, fromPos int, toStage string, requested *int, targetCount int) MovePlan {
	target := targetCount
	if requested != nil {
		target = clamp(*requested, 0, targetCount)
	}

	if fromStage == toStage {
		return planSameStage(toStage, fromPos, target)
	}

	return MovePlan{
		Stage:    toStage,
		Position: target,
		Shifts: []Shift{
			// Close the gap the lead leaves behind.
			{Stage: fromStage, Lower: fromPos + 1, Delta: -1},
			// Open a slot at the landing position.
			{Stage: toStage, Lower: target, Delta: +1},
		},
	}
}

func planSameStage(stage string, fromPos, target int) MovePlan {
	if target == fromPos {
		return MovePlan{NoOp: true, Stage: stage, Position: fromPos}
	}

	plan := MovePlan{Stage: stage, Position: target}
	if target < fromPos {
		// Moving earlier: everything in [target, fromPos) steps forward.
		plan.Shifts = []Shift{{Stage: stage, Lower: target, Upper: fromPos - 1, HasUpper: true, Delta: +1}}
	} else {
		// Moving later: everything in (fromPos, target] steps back.
		plan.Shifts = []Shift{{Stage: stage, Lower: fromPos + 1, Upper: target, HasUpper: true, Delta: -1}}
	}
	return plan
}

func clamp(value, lo, hi int) int {
	if value < lo {
		return lo
	}
	if value > hi {
		return hi
	}
	return value
}

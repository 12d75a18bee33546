// internal/choreo/timeline.go
package choreo

import (
	"github.com/jason-s-yu/tabletop/internal/layout"
	"github.com/jason-s-yu/tabletop/internal/models"
)

// Fold runs steps through the reducer up front. The result has one more
// element than steps: element i is the state after the first i steps.
func Fold(initial State, steps []Step, lookup CardLookup) []State {
	out := make([]State, 0, len(steps)+1)
	out = append(out, initial)
	st := initial
	for _, step := range steps {
		st = ApplyStep(st, step, lookup)
		out = append(out, st)
	}
	return out
}

// Timeline is a pre-folded sequence that can be scrubbed without timers.
type Timeline struct {
	Steps  []Step
	States []State

	lookup CardLookup
	cursor int
}

// NewTimeline folds steps from initial.
func NewTimeline(initial State, steps []Step, lookup CardLookup) *Timeline {
	return &Timeline{
		Steps:  steps,
		States: Fold(initial, steps, lookup),
		lookup: lookup,
	}
}

// BuildDealTimeline folds the initial deal of snap from the all-in-deck shape.
// Hands given only as a count are dealt face-down stand-ins.
func BuildDealTimeline(snap models.Snapshot) (*Timeline, *Registry) {
	reg := NewRegistry(snap.AllCards())
	initial, _ := Provision(NewIdleState(reg.IDs(), len(snap.Seats)), snap, reg)
	bound, _ := BindFaceDown(initial, snap, reg)
	return NewTimeline(initial, BuildInitialDeal(bound), reg), reg
}

// Len is the number of positions, one more than the number of steps.
func (t *Timeline) Len() int { return len(t.States) }

func (t *Timeline) Cursor() int { return t.cursor }

// Current is the state at the cursor.
func (t *Timeline) Current() State { return t.States[t.cursor] }

// Last is the step that produced the current state, nil at position 0.
func (t *Timeline) Last() Step {
	if t.cursor == 0 {
		return nil
	}
	return t.Steps[t.cursor-1]
}

// Seek moves the cursor, clamped to the timeline.
func (t *Timeline) Seek(i int) State {
	t.cursor = clamp(i, 0, len(t.States)-1)
	return t.Current()
}

func (t *Timeline) Forward() State { return t.Seek(t.cursor + 1) }
func (t *Timeline) Back() State    { return t.Seek(t.cursor - 1) }

// Frames projects every position of the timeline.
func (t *Timeline) Frames(g layout.Geometry) []Frame {
	out := make([]Frame, len(t.States))
	for i, st := range t.States {
		out[i] = Project(st, t.lookup, g)
		out[i].Step = int64(i)
	}
	return out
}

// Extend plans snap against the last position and appends the result, the
// way a choreographer would play it: a play is followed by whatever draws the
// same snapshot still holds. A resync appends one jump position whose step is
// nil. reg must be the lookup the timeline was built with.
func (t *Timeline) Extend(snap models.Snapshot, reg *Registry) []PlanKind {
	reg.Upsert(snap.AllCards()...)
	var kinds []PlanKind
	for {
		last := t.States[len(t.States)-1]
		if st, added := Provision(last, snap, reg); added {
			t.Steps = append(t.Steps, nil)
			t.States = append(t.States, st)
			last = st
		}
		p := BuildPlan(last, snap, reg)
		kinds = append(kinds, p.Kind)

		switch p.Kind {
		case PlanNone:
			return kinds
		case PlanResync:
			bound, _ := BindFaceDown(last, snap, reg)
			t.Steps = append(t.Steps, nil)
			t.States = append(t.States, Derive(bound, reg))
			return kinds
		}
		t.Steps = append(t.Steps, p.Steps...)
		t.States = append(t.States, Fold(last, p.Steps, reg)[1:]...)
		if p.Kind != PlanPlay {
			return kinds
		}
		snap.Events = nil
	}
}

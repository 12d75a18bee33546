package choreo

import (
	"github.com/google/uuid"
	"github.com/jason-s-yu/tabletop/internal/models"
)

// PlanKind says which builder produced a plan.
type PlanKind string

const (
	PlanNone   PlanKind = "none"
	PlanDeal   PlanKind = "deal"
	PlanTurn   PlanKind = "turn"
	PlanPlay   PlanKind = "play"
	PlanDraw   PlanKind = "draw"
	PlanEvents PlanKind = "events"
	PlanResync PlanKind = "resync"
)

// Plan is an ordered list of steps built for one authoritative change. A
// resync plan has no steps; the caller applies Derive directly.
type Plan struct {
	Kind  PlanKind
	Steps []Step
}

// BuildPlan compares the last committed state with a snapshot and picks the
// choreography for the difference. Deal, draw and event plans are checked by
// folding them through the reducer; a play plan only has to reproduce the
// discard pile, since the snapshot may also hold draws that are planned once
// the play has finished. Anything that cannot be attributed becomes a resync.
// Count-only hands are bound to face-down ids first; a deck too small to
// fill them means a resync, so callers Provision before planning.
func BuildPlan(prev State, snap models.Snapshot, lookup CardLookup) Plan {
	snap, short := BindFaceDown(prev, snap, lookup)
	if short > 0 {
		return Plan{Kind: PlanResync}
	}
	if prev.Phase == PhaseIdle {
		if maxHandLen(snap) == 0 && len(snap.Discard) == 0 {
			return Plan{Kind: PlanNone}
		}
		steps := BuildInitialDeal(snap)
		if Matches(fold(prev, steps, lookup), snap) {
			return Plan{Kind: PlanDeal, Steps: steps}
		}
		return Plan{Kind: PlanResync}
	}

	if Matches(prev, snap) {
		if TurnMatches(prev, snap) {
			return Plan{Kind: PlanNone}
		}
		return Plan{Kind: PlanTurn, Steps: BuildTurn(snap)}
	}

	if hasCardEvents(snap.Events) {
		if steps, ok := BuildFromEvents(prev, snap, lookup); ok && Matches(fold(prev, steps, lookup), snap) {
			return Plan{Kind: PlanEvents, Steps: steps}
		}
	}

	if len(snap.Discard) > prev.DiscardLen() {
		if steps, ok := BuildPlay(prev, snap); ok && discardMatches(fold(prev, steps, lookup), snap) {
			return Plan{Kind: PlanPlay, Steps: steps}
		}
		return Plan{Kind: PlanResync}
	}

	if steps, ok := BuildDraw(prev, snap, lookup); ok && Matches(fold(prev, steps, lookup), snap) {
		return Plan{Kind: PlanDraw, Steps: steps}
	}
	return Plan{Kind: PlanResync}
}

func hasCardEvents(events []models.Event) bool {
	for _, ev := range events {
		if ev.Type == models.EventCardPlayed || ev.Type == models.EventCardDrawn {
			return true
		}
	}
	return false
}

func discardMatches(st State, snap models.Snapshot) bool {
	if st.DiscardFloat != uuid.Nil || len(st.Discard) != len(snap.Discard) {
		return false
	}
	for i, c := range snap.Discard {
		if st.Discard[i] != c.ID {
			return false
		}
	}
	return true
}

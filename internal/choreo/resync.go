package choreo

import (
	"slices"

	"github.com/google/uuid"
	"github.com/jason-s-yu/tabletop/internal/models"
)

// Derive builds the steady-state arrangement of a snapshot directly, with no
// intermediate animation. Every id in the registry ends up in exactly one
// zone: ids the snapshot does not place are put in the deck, and an id the
// snapshot places twice keeps its first position. Count-only hands take ids
// the snapshot names nowhere, minting stand-ins in reg when those run out.
func Derive(snap models.Snapshot, reg *Registry) State {
	st := NewIdleState(nil, len(snap.Seats))
	st.Phase = PhasePlaying
	st.CurrentPlayer = snap.CurrentPlayer
	st.Direction = snap.Direction

	placed := make(map[uuid.UUID]bool, reg.Len())
	take := func(id uuid.UUID) bool {
		if placed[id] || !reg.Known(id) {
			return false
		}
		placed[id] = true
		return true
	}

	for seat, s := range snap.Seats {
		ids := make([]uuid.UUID, 0, len(s.Hand))
		for _, c := range s.Hand {
			if take(c.ID) {
				ids = append(ids, c.ID)
			}
		}
		st.Hands[seat] = SortHand(ids, reg)
		st.SpreadProgress += len(ids)
	}
	for _, c := range snap.Discard {
		if take(c.ID) {
			st.Discard = append(st.Discard, c.ID)
		}
	}
	if hasCountOnly(snap) {
		taken := named(snap)
		var free []uuid.UUID
		for _, id := range reg.IDs() {
			if !placed[id] && !taken[id] {
				free = append(free, id)
			}
		}
		for seat, s := range snap.Seats {
			if !s.CountOnly() {
				continue
			}
			if len(free) < s.Count {
				free = append(free, reg.AddStandIns(snap.GameID, s.Count-len(free))...)
			}
			ids := make([]uuid.UUID, 0, s.Count)
			for _, id := range free[:s.Count] {
				if take(id) {
					ids = append(ids, id)
				}
			}
			free = free[s.Count:]
			st.Hands[seat] = SortHand(ids, reg)
			st.SpreadProgress += len(ids)
		}
	}
	for _, c := range snap.DrawPile {
		if take(c.ID) {
			st.Deck = append(st.Deck, c.ID)
		}
	}
	for _, id := range reg.IDs() {
		if take(id) {
			st.Deck = append(st.Deck, id)
		}
	}
	return st
}

// Matches reports whether st shows exactly the card arrangement of snap:
// same hands (as sets, or by size for count-only hands), same discard order,
// nothing in flight or stacked. The deck is implied by conservation.
func Matches(st State, snap models.Snapshot) bool {
	if st.DiscardFloat != uuid.Nil || st.DrawFloat != uuid.Nil {
		return false
	}
	if len(st.Hands) != len(snap.Seats) {
		return false
	}
	for seat, s := range snap.Seats {
		if len(st.Fronts[seat]) > 0 || len(st.Staging[seat]) > 0 {
			return false
		}
		if s.CountOnly() {
			if len(st.Hands[seat]) != s.Count {
				return false
			}
			continue
		}
		if !sameSet(st.Hands[seat], s.Hand) {
			return false
		}
	}
	if len(st.Discard) != len(snap.Discard) {
		return false
	}
	for i, c := range snap.Discard {
		if st.Discard[i] != c.ID {
			return false
		}
	}
	return true
}

// TurnMatches reports whether the committed turn fields agree with snap.
func TurnMatches(st State, snap models.Snapshot) bool {
	return st.CurrentPlayer == snap.CurrentPlayer && st.Direction == snap.Direction
}

func sameSet(ids []uuid.UUID, cards []models.Card) bool {
	if len(ids) != len(cards) {
		return false
	}
	for _, c := range cards {
		if !slices.Contains(ids, c.ID) {
			return false
		}
	}
	return true
}

// fold applies steps in order and returns the final state.
func fold(st State, steps []Step, lookup CardLookup) State {
	for _, step := range steps {
		st = ApplyStep(st, step, lookup)
	}
	return st
}

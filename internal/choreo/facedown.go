package choreo

import (
	"slices"

	"github.com/google/uuid"
	"github.com/jason-s-yu/tabletop/internal/models"
)

// Hands given only as a count are filled with face-down ids before planning.
// Which id sits in such a hand is invisible, just like which id leaves the
// deck on a draw, so any id the snapshot does not name elsewhere will do.

func hasCountOnly(snap models.Snapshot) bool {
	for _, s := range snap.Seats {
		if s.CountOnly() {
			return true
		}
	}
	return false
}

// faceDownSeat reports whether the seat's hand may hold ids the snapshot
// does not name.
func faceDownSeat(s models.SeatSnapshot) bool {
	return s.Hidden || s.Count > 0
}

// named is every id the snapshot places by name.
func named(snap models.Snapshot) map[uuid.UUID]bool {
	out := make(map[uuid.UUID]bool, len(snap.DrawPile)+len(snap.Discard)+len(snap.Seats)*8)
	for _, c := range snap.AllCards() {
		out[c.ID] = true
	}
	return out
}

// faceDownPool lists the deck ids a count-only hand may take, nearest the
// top first. Real cards come before stand-ins.
func faceDownPool(prev State, snap models.Snapshot, lookup CardLookup) []uuid.UUID {
	taken := named(snap)
	var cards, stands []uuid.UUID
	for i := len(prev.Deck) - 1; i >= 0; i-- {
		id := prev.Deck[i]
		if taken[id] {
			continue
		}
		if _, ok := lookup.Card(id); ok {
			cards = append(cards, id)
		} else {
			stands = append(stands, id)
		}
	}
	return append(cards, stands...)
}

// BindFaceDown fills every count-only hand of snap with ids from prev: the
// unnamed ids the seat already holds, in hand order, then ids popped off the
// top of the deck. It also returns how many ids the deck was short; the
// bound snapshot is only complete when that is zero. Snapshots without
// count-only hands are returned as they are.
func BindFaceDown(prev State, snap models.Snapshot, lookup CardLookup) (models.Snapshot, int) {
	if !hasCountOnly(snap) {
		return snap, 0
	}
	taken := named(snap)
	pool := faceDownPool(prev, snap, lookup)

	out := snap
	out.Seats = slices.Clone(snap.Seats)
	short := 0
	for seat, s := range snap.Seats {
		if !s.CountOnly() {
			continue
		}
		ids := make([]uuid.UUID, 0, s.Count)
		if seat < len(prev.Hands) {
			for _, id := range prev.Hands[seat] {
				if len(ids) < s.Count && !taken[id] {
					ids = append(ids, id)
				}
			}
		}
		for len(ids) < s.Count && len(pool) > 0 {
			ids = append(ids, pool[0])
			pool = pool[1:]
		}
		short += s.Count - len(ids)

		hand := make([]models.Card, len(ids))
		for i, id := range ids {
			hand[i] = models.Card{ID: id}
			if c, ok := lookup.Card(id); ok {
				hand[i] = c
			}
		}
		out.Seats[seat].Hand = hand
	}
	return out, short
}

// Provision returns prev with enough stand-ins at the bottom of its deck for
// BindFaceDown to fill every count-only hand of snap. New stand-ins are
// recorded in reg. It reports whether any were added.
func Provision(prev State, snap models.Snapshot, reg *Registry) (State, bool) {
	_, short := BindFaceDown(prev, snap, reg)
	if short == 0 {
		return prev, false
	}
	st := prev.Clone()
	st.Deck = append(reg.AddStandIns(snap.GameID, short), st.Deck...)
	return st, true
}

// standInFor picks the id a card revealed out of seat's hidden hand stands
// in for: the last id in hand that bound does not name.
func standInFor(hand []uuid.UUID, taken map[uuid.UUID]bool) uuid.UUID {
	for i := len(hand) - 1; i >= 0; i-- {
		if !taken[hand[i]] {
			return hand[i]
		}
	}
	return uuid.Nil
}

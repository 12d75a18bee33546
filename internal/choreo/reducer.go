package choreo

import (
	"slices"

	"github.com/google/uuid"
)

// ApplyStep returns the state after step. It is pure and total: it never
// mutates prev, never panics, and returns prev unchanged when the step names
// a card the lookup does not know or that is not where the step expects it.
func ApplyStep(prev State, step Step, lookup CardLookup) State {
	if step == nil {
		return prev
	}
	return step.apply(prev, lookup)
}

func known(lookup CardLookup, id uuid.UUID) bool {
	if lookup == nil || id == uuid.Nil {
		return false
	}
	return lookup.Known(id)
}

func (s SetPhase) apply(prev State, _ CardLookup) State {
	next := prev.Clone()
	next.Phase = s.Phase
	if s.Phase == PhasePlaying {
		next.SelectedCard = uuid.Nil
		next.LiftingCard = uuid.Nil
		next.PlayingSeat = NoSeat
		next.DrawingSeat = NoSeat
		next.DrawInsertIndex = NoSeat
	}
	if s.Turn != nil {
		next.CurrentPlayer = s.Turn.CurrentPlayer
		next.Direction = s.Turn.Direction
	}
	return next
}

func (s Deal) apply(prev State, lookup CardLookup) State {
	if !known(lookup, s.CardID) || !prev.validSeat(s.Seat) || !prev.InDeck(s.CardID) {
		return prev
	}
	next := prev.Clone()
	next.Deck, _ = removeID(next.Deck, s.CardID)
	next.Fronts[s.Seat] = append(next.Fronts[s.Seat], s.CardID)
	return next
}

func (RevealPickup) apply(prev State, _ CardLookup) State {
	next := prev.Clone()
	for seat := range next.Fronts {
		next.Staging[seat] = append(next.Staging[seat], next.Fronts[seat]...)
		next.Fronts[seat] = []uuid.UUID{}
	}
	return next
}

func (RevealTurn) apply(prev State, lookup CardLookup) State {
	for _, staged := range prev.Staging {
		for _, id := range staged {
			if !known(lookup, id) {
				return prev
			}
		}
	}
	next := prev.Clone()
	for seat := range next.Staging {
		hand := append(next.Hands[seat], next.Staging[seat]...)
		next.Hands[seat] = SortHand(hand, lookup)
		next.Staging[seat] = []uuid.UUID{}
	}
	return next
}

func (SpreadCard) apply(prev State, _ CardLookup) State {
	next := prev.Clone()
	next.SpreadProgress++
	return next
}

func (s DiscardLift) apply(prev State, lookup CardLookup) State {
	if !known(lookup, s.CardID) || prev.DiscardFloat != uuid.Nil || !prev.InDeck(s.CardID) {
		return prev
	}
	next := prev.Clone()
	next.Deck, _ = removeID(next.Deck, s.CardID)
	next.DiscardFloat = s.CardID
	return next
}

func (DiscardFlip) apply(prev State, _ CardLookup) State { return prev }
func (DiscardMove) apply(prev State, _ CardLookup) State { return prev }

func (DiscardDrop) apply(prev State, _ CardLookup) State {
	if prev.DiscardFloat == uuid.Nil {
		return prev
	}
	next := prev.Clone()
	next.Discard = append(next.Discard, next.DiscardFloat)
	next.DiscardFloat = uuid.Nil
	return next
}

// PlayGap with a Stand first reveals the card out of a face-down hand: the
// card takes the stand-in's slot and the stand-in goes to the deck where the
// card was, or onto the top if the card was not on the table yet.
func (s PlayGap) apply(prev State, lookup CardLookup) State {
	if !known(lookup, s.CardID) || !prev.validSeat(s.Seat) {
		return prev
	}
	var next State
	if s.Stand != uuid.Nil {
		var ok bool
		if next, ok = revealStandIn(prev, s.Seat, s.Stand, s.CardID); !ok {
			return prev
		}
	} else {
		if !slices.Contains(prev.Hands[s.Seat], s.CardID) {
			return prev
		}
		next = prev.Clone()
	}
	next.SelectedCard = s.CardID
	next.PlayingSeat = s.Seat
	return next
}

func revealStandIn(prev State, seat int, stand, id uuid.UUID) (State, bool) {
	slot := slices.Index(prev.Hands[seat], stand)
	if slot < 0 {
		return prev, false
	}
	at := slices.Index(prev.Deck, id)
	if at < 0 && slices.Contains(prev.CardIDs(), id) {
		return prev, false
	}
	next := prev.Clone()
	next.Hands[seat][slot] = id
	if at >= 0 {
		next.Deck[at] = stand
	} else {
		next.Deck = append(next.Deck, stand)
	}
	return next, true
}

func (s PlayLift) apply(prev State, lookup CardLookup) State {
	if !known(lookup, s.CardID) {
		return prev
	}
	next := prev.Clone()
	next.LiftingCard = s.CardID
	return next
}

func (s PlayMove) apply(prev State, lookup CardLookup) State {
	if !known(lookup, s.CardID) || !prev.validSeat(s.Seat) || prev.DiscardFloat != uuid.Nil {
		return prev
	}
	next := prev.Clone()
	hand, ok := removeID(next.Hands[s.Seat], s.CardID)
	if !ok {
		return prev
	}
	next.Hands[s.Seat] = hand
	next.DiscardFloat = s.CardID
	return next
}

func (PlayRotate) apply(prev State, _ CardLookup) State { return prev }

func (PlayDrop) apply(prev State, _ CardLookup) State {
	if prev.DiscardFloat == uuid.Nil {
		return prev
	}
	next := prev.Clone()
	next.Discard = append(next.Discard, next.DiscardFloat)
	next.DiscardFloat = uuid.Nil
	next.PlayingSeat = NoSeat
	return next
}

// DrawLift takes the drawn card out of the deck wherever it sits. The deck is
// face down, so which id leaves it is invisible: to the viewer the top card
// rises and turns out to be the drawn one.
func (s DrawLift) apply(prev State, lookup CardLookup) State {
	if !known(lookup, s.CardID) || !prev.validSeat(s.Seat) || prev.DrawFloat != uuid.Nil || !prev.InDeck(s.CardID) {
		return prev
	}
	next := prev.Clone()
	next.Deck, _ = removeID(next.Deck, s.CardID)
	next.DrawFloat = s.CardID
	next.DrawingSeat = s.Seat
	return next
}

func (DrawMove) apply(prev State, _ CardLookup) State { return prev }

func (s DrawGap) apply(prev State, _ CardLookup) State {
	if !prev.validSeat(s.Seat) {
		return prev
	}
	next := prev.Clone()
	next.DrawingSeat = s.Seat
	next.DrawInsertIndex = clamp(s.Index, 0, len(next.Hands[s.Seat]))
	return next
}

// DrawDrop splices the floating card into the hand. The seat and index
// markers stay set until the closing phase step clears them.
func (s DrawDrop) apply(prev State, _ CardLookup) State {
	if prev.DrawFloat == uuid.Nil || !prev.validSeat(s.Seat) {
		return prev
	}
	next := prev.Clone()
	hand := next.Hands[s.Seat]
	at := len(hand)
	if next.DrawInsertIndex >= 0 {
		at = clamp(next.DrawInsertIndex, 0, len(hand))
	}
	next.Hands[s.Seat] = slices.Insert(hand, at, next.DrawFloat)
	next.DrawFloat = uuid.Nil
	return next
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

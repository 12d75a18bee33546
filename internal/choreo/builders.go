package choreo

import (
	"slices"

	"github.com/google/uuid"
	"github.com/jason-s-yu/tabletop/internal/models"
)

func closingTurn(snap models.Snapshot) SetPhase {
	return SetPhase{
		Phase: PhasePlaying,
		Turn:  &Turn{CurrentPlayer: snap.CurrentPlayer, Direction: snap.Direction},
	}
}

func maxHandLen(snap models.Snapshot) int {
	n := 0
	for _, seat := range snap.Seats {
		n = max(n, seat.Size())
	}
	return n
}

// BuildInitialDeal choreographs a fresh game from the all-in-deck shape:
// round-robin deals in authoritative hand order, the reveal, one spread step
// per dealt card, the starting discard, and the closing phase step. Hands
// given only as a count must be bound with BindFaceDown first; they are
// skipped otherwise.
func BuildInitialDeal(snap models.Snapshot) []Step {
	rounds := maxHandLen(snap)
	steps := []Step{SetPhase{Phase: PhaseDealing}}
	dealt := 0
	for round := 0; round < rounds; round++ {
		for seat, s := range snap.Seats {
			if round < len(s.Hand) {
				steps = append(steps, Deal{CardID: s.Hand[round].ID, Seat: seat})
				dealt++
			}
		}
	}

	steps = append(steps,
		SetPhase{Phase: PhaseRevealing},
		RevealPickup{},
		RevealTurn{},
		SetPhase{Phase: PhaseSpreading},
	)
	for i := 0; i < dealt; i++ {
		steps = append(steps, SpreadCard{})
	}

	for _, c := range snap.Discard {
		steps = append(steps, discardChain(c.ID)...)
	}
	return append(steps, closingTurn(snap))
}

func discardChain(id uuid.UUID) []Step {
	return []Step{
		SetPhase{Phase: PhaseDiscardLift},
		DiscardLift{CardID: id},
		SetPhase{Phase: PhaseDiscardFlip},
		DiscardFlip{},
		SetPhase{Phase: PhaseDiscardMove},
		DiscardMove{},
		DiscardDrop{},
	}
}

func playChain(id uuid.UUID, seat int, stand uuid.UUID) []Step {
	return []Step{
		SetPhase{Phase: PhasePlayGap},
		PlayGap{CardID: id, Seat: seat, Stand: stand},
		SetPhase{Phase: PhasePlayLift},
		PlayLift{CardID: id},
		SetPhase{Phase: PhasePlayMove},
		PlayMove{CardID: id, Seat: seat},
		SetPhase{Phase: PhasePlayRotate},
		PlayRotate{},
		PlayDrop{},
	}
}

func drawChain(id uuid.UUID, seat, index int) []Step {
	return []Step{
		SetPhase{Phase: PhaseDrawLift},
		DrawLift{CardID: id, Seat: seat},
		SetPhase{Phase: PhaseDrawMove},
		DrawMove{},
		SetPhase{Phase: PhaseDrawGap},
		DrawGap{Seat: seat, Index: index},
		SetPhase{Phase: PhaseDrawDrop},
		DrawDrop{Seat: seat},
	}
}

// BuildPlay choreographs cards that joined the discard pile since prev. Each
// new discard must be found in some seat's hand, or revealed out of a hidden
// hand that holds an id snap no longer names. If any cannot be attributed,
// or prev's pile is not a prefix of the new one, ok is false and the caller
// resyncs.
func BuildPlay(prev State, snap models.Snapshot) (steps []Step, ok bool) {
	if prev.DiscardFloat != uuid.Nil || len(snap.Discard) <= len(prev.Discard) {
		return nil, false
	}
	for i, id := range prev.Discard {
		if snap.Discard[i].ID != id {
			return nil, false
		}
	}

	taken := named(snap)
	hands := cloneSeats(prev.Hands)
	for _, c := range snap.Discard[len(prev.Discard):] {
		seat, stand := NoSeat, uuid.Nil
		for s, hand := range hands {
			if slices.Contains(hand, c.ID) {
				seat = s
				break
			}
		}
		if seat == NoSeat {
			seat, stand = revealSeat(hands, snap, taken)
		}
		if seat == NoSeat {
			return nil, false
		}
		if stand != uuid.Nil {
			hands[seat], _ = removeID(hands[seat], stand)
		} else {
			hands[seat], _ = removeID(hands[seat], c.ID)
		}
		steps = append(steps, playChain(c.ID, seat, stand)...)
	}
	return append(steps, closingTurn(snap)), true
}

// BuildDraw choreographs hands that grew since prev. Each new card is placed
// at its sorted slot in a projection of the hand that already holds the cards
// drawn before it, so the final hand is sorted no matter the draw order.
func BuildDraw(prev State, snap models.Snapshot, lookup CardLookup) (steps []Step, ok bool) {
	if len(snap.Seats) != len(prev.Hands) {
		return nil, false
	}
	for seat, s := range snap.Seats {
		held := prev.Hands[seat]
		if len(s.Hand) < len(held) {
			return nil, false
		}

		var drawn []models.Card
		for _, c := range s.Hand {
			if !slices.Contains(held, c.ID) {
				drawn = append(drawn, c)
			}
		}
		if len(drawn) != len(s.Hand)-len(held) {
			// something left the hand too; not a pure draw
			return nil, false
		}

		virtual := slices.Clone(held)
		for _, c := range drawn {
			if !prev.InDeck(c.ID) {
				return nil, false
			}
			// face-down ids have no slot of their own; they go to the end
			at := len(virtual)
			if face, ok := lookup.Card(c.ID); ok {
				at = InsertionIndex(virtual, face, lookup)
			}
			virtual = slices.Insert(virtual, at, c.ID)
			steps = append(steps, drawChain(c.ID, seat, at)...)
		}
	}
	if len(steps) == 0 {
		return nil, false
	}
	return append(steps, closingTurn(snap)), true
}

// BuildTurn is the plan for a snapshot that only moved the turn: the closing
// phase step alone.
func BuildTurn(snap models.Snapshot) []Step {
	return []Step{closingTurn(snap)}
}

// BuildFromEvents follows the event log in order, which lets it choreograph
// sequences a diff cannot attribute, such as a card drawn and then played in
// the same turn. It simulates each chain through the reducer so later events
// see the effects of earlier ones. A draw into a hidden hand may leave the
// card id out; a face-down id is taken off the deck for it.
func BuildFromEvents(prev State, snap models.Snapshot, lookup CardLookup) (steps []Step, ok bool) {
	virtual := prev
	taken := named(snap)
	pool := faceDownPool(prev, snap, lookup)
	for i, ev := range snap.Events {
		var chain []Step
		switch ev.Type {
		case models.EventCardPlayed:
			seat, stand := virtual.HandOwner(ev.CardID), uuid.Nil
			if seat == NoSeat && virtual.validSeat(ev.Seat) && ev.Seat < len(snap.Seats) && faceDownSeat(snap.Seats[ev.Seat]) {
				seat, stand = ev.Seat, standInFor(virtual.Hands[ev.Seat], taken)
				if stand == uuid.Nil {
					return nil, false
				}
			}
			if seat == NoSeat || (ev.Seat >= 0 && ev.Seat != seat) {
				return nil, false
			}
			chain = playChain(ev.CardID, seat, stand)
		case models.EventCardDrawn:
			id := ev.CardID
			if id == uuid.Nil && virtual.validSeat(ev.Seat) && ev.Seat < len(snap.Seats) && faceDownSeat(snap.Seats[ev.Seat]) {
				id = nextFaceDown(virtual, ev.Seat, snap.Seats[ev.Seat], snap.Events[i+1:], pool)
			}
			if !known(lookup, id) || !virtual.validSeat(ev.Seat) || !virtual.InDeck(id) {
				return nil, false
			}
			at := len(virtual.Hands[ev.Seat])
			if card, ok := lookup.Card(id); ok {
				at = InsertionIndex(virtual.Hands[ev.Seat], card, lookup)
			}
			chain = drawChain(id, ev.Seat, at)
		default:
			continue
		}
		for _, step := range chain {
			virtual = ApplyStep(virtual, step, lookup)
		}
		steps = append(steps, chain...)
	}
	if len(steps) == 0 {
		return nil, false
	}
	return append(steps, closingTurn(snap)), true
}

// revealSeat finds the hidden hand a card nobody holds was played from: the
// first face-down seat still holding an id snap does not name.
func revealSeat(hands [][]uuid.UUID, snap models.Snapshot, taken map[uuid.UUID]bool) (int, uuid.UUID) {
	for seat, s := range snap.Seats {
		if seat >= len(hands) || !faceDownSeat(s) {
			continue
		}
		if stand := standInFor(hands[seat], taken); stand != uuid.Nil {
			return seat, stand
		}
	}
	return NoSeat, uuid.Nil
}

// nextFaceDown picks the deck id an anonymous draw into a hidden seat takes:
// one the bound hand already expects, else a card the seat goes on to play
// straight from the deck, else the top of the pool.
func nextFaceDown(st State, seatIndex int, seat models.SeatSnapshot, later []models.Event, pool []uuid.UUID) uuid.UUID {
	for _, c := range seat.Hand {
		if st.InDeck(c.ID) {
			return c.ID
		}
	}
	for _, ev := range later {
		if ev.Type == models.EventCardPlayed && ev.Seat == seatIndex && st.InDeck(ev.CardID) {
			return ev.CardID
		}
	}
	for _, id := range pool {
		if st.InDeck(id) {
			return id
		}
	}
	return uuid.Nil
}

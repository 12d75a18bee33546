package choreo

import (
	"github.com/google/uuid"
	"github.com/jason-s-yu/tabletop/internal/layout"
	"github.com/jason-s-yu/tabletop/internal/models"
)

// Zone names the logical location a target was placed from.
type Zone string

const (
	ZoneDeck         Zone = "deck"
	ZoneDiscard      Zone = "discard"
	ZoneDiscardFloat Zone = "discard_float"
	ZoneFront        Zone = "front"
	ZoneStaging      Zone = "staging"
	ZoneHand         Zone = "hand"
	ZoneDrawFloat    Zone = "draw_float"
)

// Target is where one card should be heading. The renderer interpolates
// toward it; a target is never a jump.
type Target struct {
	CardID    uuid.UUID        `json:"card_id"`
	Face      *models.Card     `json:"face,omitempty"`
	Zone      Zone             `json:"zone"`
	Seat      int              `json:"seat"`
	Index     int              `json:"index"`
	Placement layout.Placement `json:"placement"`
}

// Frame is the flat projection of one committed state.
type Frame struct {
	Phase         Phase            `json:"phase"`
	Step          int64            `json:"step"`
	CurrentPlayer string           `json:"current_player"`
	Direction     models.Direction `json:"direction"`
	Targets       []Target         `json:"targets"`
}

// Masked returns a copy of the frame with faces removed from every card that
// is lying face down, so the frame can be sent to viewers.
func (f Frame) Masked() Frame {
	out := f
	out.Targets = make([]Target, len(f.Targets))
	for i, t := range f.Targets {
		if !t.Placement.FaceUp {
			t.Face = nil
		}
		out.Targets[i] = t
	}
	return out
}

func floatStage(p Phase) layout.FloatStage {
	switch p {
	case PhaseDiscardLift:
		return layout.StageLift
	case PhaseDiscardFlip:
		return layout.StageFlip
	case PhasePlayRotate:
		return layout.StageRotate
	}
	return layout.StageMove
}

// Project lays out every card of st. It only reads st.
func Project(st State, lookup CardLookup, g layout.Geometry) Frame {
	f := Frame{
		Phase:         st.Phase,
		CurrentPlayer: st.CurrentPlayer,
		Direction:     st.Direction,
		Targets:       make([]Target, 0, len(st.Deck)+len(st.Discard)+16),
	}
	add := func(id uuid.UUID, zone Zone, seat, index int, p layout.Placement) {
		t := Target{CardID: id, Zone: zone, Seat: seat, Index: index, Placement: p}
		if lookup != nil {
			if c, ok := lookup.Card(id); ok {
				t.Face = &c
			}
		}
		f.Targets = append(f.Targets, t)
	}

	for i, id := range st.Deck {
		add(id, ZoneDeck, NoSeat, i, layout.Deck(i))
	}
	for i, id := range st.Discard {
		add(id, ZoneDiscard, NoSeat, i, layout.Discard(i))
	}
	if st.DiscardFloat != uuid.Nil {
		add(st.DiscardFloat, ZoneDiscardFloat, st.PlayingSeat, len(st.Discard),
			layout.DiscardFloat(floatStage(st.Phase), len(st.Discard)))
	}

	for seat := range st.Hands {
		for i, id := range st.Fronts[seat] {
			add(id, ZoneFront, seat, i, g.Front(i, seat))
		}
		for i, id := range st.Staging[seat] {
			add(id, ZoneStaging, seat, i, g.Staging(i, seat))
		}
		projectHand(st, g, seat, add)
	}

	if st.DrawFloat != uuid.Nil {
		stage := layout.StageMove
		if st.Phase == PhaseDrawLift {
			stage = layout.StageLift
		}
		add(st.DrawFloat, ZoneDrawFloat, st.DrawingSeat, st.DrawInsertIndex,
			g.DrawFloat(stage, st.DrawingSeat, len(st.Deck)))
	}
	return f
}

func projectHand(st State, g layout.Geometry, seat int, add func(uuid.UUID, Zone, int, int, layout.Placement)) {
	hand := st.Hands[seat]

	// a card on its way in holds its slot open
	gap := NoSeat
	if st.DrawFloat != uuid.Nil && st.DrawingSeat == seat && st.DrawInsertIndex >= 0 &&
		(st.Phase == PhaseDrawGap || st.Phase == PhaseDrawDrop) {
		gap = clamp(st.DrawInsertIndex, 0, len(hand))
	}
	count := len(hand)
	if gap >= 0 {
		count++
	}

	spread := count
	if st.Phase == PhaseRevealing || st.Phase == PhaseSpreading {
		spread = min(seatSpread(st.Hands, seat, st.SpreadProgress), count)
	}

	part := NoSeat
	if st.PlayingSeat == seat && st.SelectedCard != uuid.Nil {
		for i, id := range hand {
			if id == st.SelectedCard {
				part = i
				break
			}
		}
	}

	for i, id := range hand {
		slot := i
		if gap >= 0 && i >= gap {
			slot++
		}
		p := layout.HandParams{
			Count:  count,
			Spread: spread,
			Part:   part,
			Lifted: id == st.LiftingCard,
			FaceUp: g.IsLocal(seat),
		}
		add(id, ZoneHand, seat, i, g.Hand(slot, seat, p))
	}
}

// seatSpread is how many of seat's cards are spread after progress spread
// steps. The steps reach the hands round-robin, the way the deal did.
func seatSpread(hands [][]uuid.UUID, seat, progress int) int {
	n := 0
	for round := 0; progress > 0; round++ {
		dealt := false
		for s, hand := range hands {
			if round >= len(hand) {
				continue
			}
			if progress == 0 {
				return n
			}
			dealt = true
			progress--
			if s == seat {
				n++
			}
		}
		if !dealt {
			break
		}
	}
	return n
}

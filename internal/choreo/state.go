// Package choreo turns authoritative card-game snapshots into ordered,
// timer-driven sequences of visual states. It owns where each card visually
// belongs and in what order that may change; it never decides legality and
// never renders.
package choreo

import (
	"slices"

	"github.com/google/uuid"
	"github.com/jason-s-yu/tabletop/internal/models"
)

// Phase is the engine's current stage within a sequence.
type Phase string

const (
	PhaseIdle        Phase = "idle"
	PhaseDealing     Phase = "dealing"
	PhaseRevealing   Phase = "revealing"
	PhaseSpreading   Phase = "spreading"
	PhaseDiscardLift Phase = "discard-lift"
	PhaseDiscardFlip Phase = "discard-flip"
	PhaseDiscardMove Phase = "discard-move"
	PhasePlayGap     Phase = "play-gap"
	PhasePlayLift    Phase = "play-lift"
	PhasePlayMove    Phase = "play-move"
	PhasePlayRotate  Phase = "play-rotate"
	PhaseDrawLift    Phase = "draw-lift"
	PhaseDrawMove    Phase = "draw-move"
	PhaseDrawGap     Phase = "draw-gap"
	PhaseDrawDrop    Phase = "draw-drop"
	PhasePlaying     Phase = "playing"
)

// NoSeat marks an unset seat or index pointer.
const NoSeat = -1

// State is one committed visual arrangement: which zone every card is in,
// plus the transient pointers of whatever is in motion.
//
// States are values. The reducer never mutates its input; anything reading a
// State must not mutate it either. Use Clone before editing.
type State struct {
	Phase Phase `json:"phase"`

	Deck         []uuid.UUID   `json:"deck"`
	Discard      []uuid.UUID   `json:"discard"`
	DiscardFloat uuid.UUID     `json:"discard_float"`
	Fronts       [][]uuid.UUID `json:"fronts"`
	Staging      [][]uuid.UUID `json:"staging"`
	Hands        [][]uuid.UUID `json:"hands"`
	DrawFloat    uuid.UUID     `json:"draw_float"`

	SelectedCard    uuid.UUID `json:"selected_card"`
	LiftingCard     uuid.UUID `json:"lifting_card"`
	PlayingSeat     int       `json:"playing_seat"`
	DrawingSeat     int       `json:"drawing_seat"`
	DrawInsertIndex int       `json:"draw_insert_index"`
	SpreadProgress  int       `json:"spread_progress"`

	// Held stale until the phase step that closes a sequence commits them.
	CurrentPlayer string           `json:"current_player"`
	Direction     models.Direction `json:"direction"`
}

// NewIdleState puts every card in the deck and leaves the seats empty. It is
// both the shape a game starts from and the shape a teardown returns to.
func NewIdleState(deck []uuid.UUID, seats int) State {
	st := State{
		Phase:           PhaseIdle,
		Deck:            slices.Clone(deck),
		Discard:         []uuid.UUID{},
		Fronts:          emptySeats(seats),
		Staging:         emptySeats(seats),
		Hands:           emptySeats(seats),
		PlayingSeat:     NoSeat,
		DrawingSeat:     NoSeat,
		DrawInsertIndex: NoSeat,
		Direction:       models.DirectionClockwise,
	}
	if st.Deck == nil {
		st.Deck = []uuid.UUID{}
	}
	return st
}

func emptySeats(n int) [][]uuid.UUID {
	out := make([][]uuid.UUID, n)
	for i := range out {
		out[i] = []uuid.UUID{}
	}
	return out
}

func cloneSeats(in [][]uuid.UUID) [][]uuid.UUID {
	out := make([][]uuid.UUID, len(in))
	for i, s := range in {
		out[i] = slices.Clone(s)
		if out[i] == nil {
			out[i] = []uuid.UUID{}
		}
	}
	return out
}

// Clone returns a deep copy safe to edit.
func (s State) Clone() State {
	c := s
	c.Deck = slices.Clone(s.Deck)
	c.Discard = slices.Clone(s.Discard)
	c.Fronts = cloneSeats(s.Fronts)
	c.Staging = cloneSeats(s.Staging)
	c.Hands = cloneSeats(s.Hands)
	return c
}

// Seats is the number of seats the state was laid out for.
func (s State) Seats() int {
	return len(s.Hands)
}

func (s State) validSeat(seat int) bool {
	return seat >= 0 && seat < len(s.Hands)
}

// HandOwner returns the seat whose hand holds id, or NoSeat.
func (s State) HandOwner(id uuid.UUID) int {
	for seat, hand := range s.Hands {
		if slices.Contains(hand, id) {
			return seat
		}
	}
	return NoSeat
}

// InDeck reports whether id is currently in the deck zone.
func (s State) InDeck(id uuid.UUID) bool {
	return slices.Contains(s.Deck, id)
}

// DiscardLen counts the discard pile including a card floating onto it.
func (s State) DiscardLen() int {
	n := len(s.Discard)
	if s.DiscardFloat != uuid.Nil {
		n++
	}
	return n
}

// CardIDs lists every card id in every zone. A valid state holds each id once.
func (s State) CardIDs() []uuid.UUID {
	out := make([]uuid.UUID, 0, len(s.Deck)+len(s.Discard)+8)
	out = append(out, s.Deck...)
	out = append(out, s.Discard...)
	for _, seats := range [][][]uuid.UUID{s.Fronts, s.Staging, s.Hands} {
		for _, zone := range seats {
			out = append(out, zone...)
		}
	}
	if s.DiscardFloat != uuid.Nil {
		out = append(out, s.DiscardFloat)
	}
	if s.DrawFloat != uuid.Nil {
		out = append(out, s.DrawFloat)
	}
	return out
}

func removeID(list []uuid.UUID, id uuid.UUID) ([]uuid.UUID, bool) {
	i := slices.Index(list, id)
	if i < 0 {
		return list, false
	}
	return slices.Delete(list, i, i+1), true
}

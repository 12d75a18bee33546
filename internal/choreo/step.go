package choreo

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/jason-s-yu/tabletop/internal/models"
)

// StepKind is the tag of a Step.
type StepKind string

const (
	KindDeal         StepKind = "deal"
	KindRevealPickup StepKind = "reveal_pickup"
	KindRevealTurn   StepKind = "reveal_turn"
	KindSpreadCard   StepKind = "spread_card"
	KindDiscardLift  StepKind = "discard_lift"
	KindDiscardFlip  StepKind = "discard_flip"
	KindDiscardMove  StepKind = "discard_move"
	KindDiscardDrop  StepKind = "discard_drop"
	KindPlayGap      StepKind = "play_gap"
	KindPlayLift     StepKind = "play_lift"
	KindPlayMove     StepKind = "play_move"
	KindPlayRotate   StepKind = "play_rotate"
	KindPlayDrop     StepKind = "play_drop"
	KindDrawLift     StepKind = "draw_lift"
	KindDrawMove     StepKind = "draw_move"
	KindDrawGap      StepKind = "draw_gap"
	KindDrawDrop     StepKind = "draw_drop"
	KindPhase        StepKind = "phase"
)

// Step is one atomic, schedulable transition. The set of steps is closed:
// every variant lives in this package and carries its own reducer, so a new
// variant does not compile until it says how it changes a State.
type Step interface {
	Kind() StepKind
	apply(prev State, lookup CardLookup) State
}

// Turn carries the authoritative turn fields a closing phase step commits.
type Turn struct {
	CurrentPlayer string           `json:"current_player"`
	Direction     models.Direction `json:"direction"`
}

type (
	Deal struct {
		CardID uuid.UUID
		Seat   int
	}
	RevealPickup struct{}
	RevealTurn   struct{}
	SpreadCard   struct{}

	DiscardLift struct{ CardID uuid.UUID }
	DiscardFlip struct{}
	DiscardMove struct{}
	DiscardDrop struct{}

	// PlayGap names a Stand when the card is played out of a hand the
	// snapshot gives only as a count.
	PlayGap struct {
		CardID uuid.UUID
		Seat   int
		Stand  uuid.UUID
	}
	PlayLift struct{ CardID uuid.UUID }
	PlayMove struct {
		CardID uuid.UUID
		Seat   int
	}
	PlayRotate struct{}
	PlayDrop   struct{}

	DrawLift struct {
		CardID uuid.UUID
		Seat   int
	}
	DrawMove struct{}
	DrawGap  struct {
		Seat  int
		Index int
	}
	DrawDrop struct{ Seat int }

	// SetPhase replaces the phase. Turn is nil except on the step that closes
	// a sequence.
	SetPhase struct {
		Phase Phase
		Turn  *Turn
	}
)

func (Deal) Kind() StepKind         { return KindDeal }
func (RevealPickup) Kind() StepKind { return KindRevealPickup }
func (RevealTurn) Kind() StepKind   { return KindRevealTurn }
func (SpreadCard) Kind() StepKind   { return KindSpreadCard }
func (DiscardLift) Kind() StepKind  { return KindDiscardLift }
func (DiscardFlip) Kind() StepKind  { return KindDiscardFlip }
func (DiscardMove) Kind() StepKind  { return KindDiscardMove }
func (DiscardDrop) Kind() StepKind  { return KindDiscardDrop }
func (PlayGap) Kind() StepKind      { return KindPlayGap }
func (PlayLift) Kind() StepKind     { return KindPlayLift }
func (PlayMove) Kind() StepKind     { return KindPlayMove }
func (PlayRotate) Kind() StepKind   { return KindPlayRotate }
func (PlayDrop) Kind() StepKind     { return KindPlayDrop }
func (DrawLift) Kind() StepKind     { return KindDrawLift }
func (DrawMove) Kind() StepKind     { return KindDrawMove }
func (DrawGap) Kind() StepKind      { return KindDrawGap }
func (DrawDrop) Kind() StepKind     { return KindDrawDrop }
func (SetPhase) Kind() StepKind     { return KindPhase }

// Envelope is the flat wire form of a Step, used by the journal and the
// timeline endpoint.
type Envelope struct {
	Kind   StepKind  `json:"kind"`
	CardID uuid.UUID `json:"card_id,omitempty"`
	Stand  uuid.UUID `json:"stand,omitempty"`
	Seat   *int      `json:"seat,omitempty"`
	Index  *int      `json:"index,omitempty"`
	Phase  Phase     `json:"phase,omitempty"`
	Turn   *Turn     `json:"turn,omitempty"`
}

func intPtr(v int) *int { return &v }

// Wrap flattens a step into its envelope.
func Wrap(step Step) Envelope {
	e := Envelope{Kind: step.Kind()}
	switch s := step.(type) {
	case Deal:
		e.CardID, e.Seat = s.CardID, intPtr(s.Seat)
	case DiscardLift:
		e.CardID = s.CardID
	case PlayGap:
		e.CardID, e.Seat, e.Stand = s.CardID, intPtr(s.Seat), s.Stand
	case PlayLift:
		e.CardID = s.CardID
	case PlayMove:
		e.CardID, e.Seat = s.CardID, intPtr(s.Seat)
	case DrawLift:
		e.CardID, e.Seat = s.CardID, intPtr(s.Seat)
	case DrawGap:
		e.Seat, e.Index = intPtr(s.Seat), intPtr(s.Index)
	case DrawDrop:
		e.Seat = intPtr(s.Seat)
	case SetPhase:
		e.Phase, e.Turn = s.Phase, s.Turn
	}
	return e
}

// Unwrap rebuilds the step an envelope describes.
func (e Envelope) Unwrap() (Step, error) {
	seat := func() (int, error) {
		if e.Seat == nil {
			return 0, fmt.Errorf("step %s: missing seat", e.Kind)
		}
		return *e.Seat, nil
	}

	switch e.Kind {
	case KindDeal, KindPlayGap, KindPlayMove, KindDrawLift:
		s, err := seat()
		if err != nil {
			return nil, err
		}
		switch e.Kind {
		case KindDeal:
			return Deal{CardID: e.CardID, Seat: s}, nil
		case KindPlayGap:
			return PlayGap{CardID: e.CardID, Seat: s, Stand: e.Stand}, nil
		case KindPlayMove:
			return PlayMove{CardID: e.CardID, Seat: s}, nil
		default:
			return DrawLift{CardID: e.CardID, Seat: s}, nil
		}
	case KindRevealPickup:
		return RevealPickup{}, nil
	case KindRevealTurn:
		return RevealTurn{}, nil
	case KindSpreadCard:
		return SpreadCard{}, nil
	case KindDiscardLift:
		return DiscardLift{CardID: e.CardID}, nil
	case KindDiscardFlip:
		return DiscardFlip{}, nil
	case KindDiscardMove:
		return DiscardMove{}, nil
	case KindDiscardDrop:
		return DiscardDrop{}, nil
	case KindPlayLift:
		return PlayLift{CardID: e.CardID}, nil
	case KindPlayRotate:
		return PlayRotate{}, nil
	case KindPlayDrop:
		return PlayDrop{}, nil
	case KindDrawMove:
		return DrawMove{}, nil
	case KindDrawGap:
		s, err := seat()
		if err != nil {
			return nil, err
		}
		if e.Index == nil {
			return nil, fmt.Errorf("step %s: missing index", e.Kind)
		}
		return DrawGap{Seat: s, Index: *e.Index}, nil
	case KindDrawDrop:
		s, err := seat()
		if err != nil {
			return nil, err
		}
		return DrawDrop{Seat: s}, nil
	case KindPhase:
		return SetPhase{Phase: e.Phase, Turn: e.Turn}, nil
	}
	return nil, fmt.Errorf("unknown step kind %q", e.Kind)
}

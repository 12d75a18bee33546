// Package layout holds the pure placement law of every zone a card can be in.
// All functions are deterministic: the same arguments always produce the same
// Placement, which lets the renderer re-project any committed state and lets
// timelines be scrubbed without drift.
//
// Callers bound indices against the current zone length; querying an index
// past the end of a zone is never meaningful.
package layout

import "math"

const (
	CardThickness    = 0.006
	FaceNormalOffset = 0.002

	DeckRollJitter   = 0.08
	DiscardScatter   = 0.07
	DiscardYawJitter = 0.6

	FrontRadius   = 0.95
	StagingRadius = 1.25
	HandRadius    = 1.6

	LocalHandSpacing    = 0.26
	OpponentHandSpacing = 0.12
	PartWidth           = 0.14

	HandTilt    = 1.15
	LiftHeight  = 0.22
	FloatHeight = 0.35
)

var (
	DeckPosition    = Vec3{X: -0.42}
	DiscardPosition = Vec3{X: 0.42}
)

// FloatStage is the leg of a floating card's trip that is being shown.
type FloatStage int

const (
	StageLift FloatStage = iota
	StageFlip
	StageMove
	StageRotate
)

// Geometry is the seating arrangement. The local seat sits at the near edge
// of the table (+Z); the others are spaced evenly around it.
type Geometry struct {
	Seats     int
	LocalSeat int
}

// angle is the seat's bearing around the table center.
func (g Geometry) angle(seat int) float64 {
	n := g.Seats
	if n <= 0 {
		n = 1
	}
	rel := ((seat-g.LocalSeat)%n + n) % n
	return 2 * math.Pi * float64(rel) / float64(n)
}

// anchor is the point at the given radius in front of the seat.
func (g Geometry) anchor(seat int, radius float64) Vec3 {
	a := g.angle(seat)
	return Vec3{X: radius * math.Sin(a), Z: radius * math.Cos(a)}
}

// tangent is the seat's left-to-right axis.
func (g Geometry) tangent(seat int) Vec3 {
	a := g.angle(seat)
	return Vec3{X: math.Cos(a), Z: -math.Sin(a)}
}

// normal points from the seat toward the table center.
func (g Geometry) normal(seat int) Vec3 {
	a := g.angle(seat)
	return Vec3{X: -math.Sin(a), Z: -math.Cos(a)}
}

// IsLocal reports whether seat is the controlled seat.
func (g Geometry) IsLocal(seat int) bool {
	return seat == g.LocalSeat
}

// Deck stacks face down at a fixed point with a little roll jitter per card.
func Deck(index int) Placement {
	return Placement{
		Position: DeckPosition.Add(Vec3{Y: float64(index) * CardThickness}),
		Roll:     centered(index) * DeckRollJitter,
	}
}

// Discard stacks face up with a seeded scatter so the pile visibly fans.
func Discard(index int) Placement {
	dx := centered(2*index+1) * DiscardScatter
	dz := centered(2*index+2) * DiscardScatter
	return Placement{
		Position: DiscardPosition.Add(Vec3{X: dx, Y: float64(index) * CardThickness, Z: dz}),
		Yaw:      centered(3*index+7) * DiscardYawJitter,
		FaceUp:   true,
	}
}

// DiscardFloat is the single card travelling onto the discard pile, either
// from the deck (the starting discard) or from a hand (a play). pileLen is the
// current discard length so the card hovers above the pile top.
func DiscardFloat(stage FloatStage, pileLen int) Placement {
	switch stage {
	case StageLift:
		return Placement{Position: DeckPosition.Add(Vec3{Y: FloatHeight})}
	case StageFlip:
		return Placement{Position: DeckPosition.Add(Vec3{Y: FloatHeight}), FaceUp: true}
	case StageMove:
		top := float64(pileLen) * CardThickness
		return Placement{Position: DiscardPosition.Add(Vec3{Y: top + FloatHeight}), FaceUp: true}
	default:
		top := float64(pileLen) * CardThickness
		return Placement{
			Position: DiscardPosition.Add(Vec3{Y: top + FloatHeight/2}),
			Yaw:      centered(3*pileLen+7) * DiscardYawJitter,
			FaceUp:   true,
		}
	}
}

// Front is the per-seat stack cards are dealt onto, face down.
func (g Geometry) Front(index, seat int) Placement {
	pos := g.anchor(seat, FrontRadius).Add(Vec3{Y: float64(index) * CardThickness})
	return Placement{Position: pos, Yaw: g.angle(seat), Roll: centered(1000+index) * DeckRollJitter}
}

// Staging is the stack a seat has picked up, raised off the table.
func (g Geometry) Staging(index, seat int) Placement {
	pos := g.anchor(seat, StagingRadius).Add(Vec3{Y: LiftHeight + float64(index)*CardThickness})
	return Placement{Position: pos, Yaw: g.angle(seat)}
}

// HandParams describes how a seat's hand is currently being laid out.
type HandParams struct {
	// Count is the number of slots, including one held open for an arriving card.
	Count int
	// Spread is how many slots have fanned out; slots at or past it stay
	// stacked at the seat center.
	Spread int
	// Part is the slot whose neighbours move apart, -1 for none.
	Part int
	// Lifted raises the card out of the hand.
	Lifted bool
	FaceUp bool
}

// Hand spreads cards along the seat's tangent, centered on the seat. The
// controlled seat spreads wider than opponents. Upright cards step along the
// face normal by depth so neighbours never share a plane.
func (g Geometry) Hand(slot, seat int, p HandParams) Placement {
	spacing := OpponentHandSpacing
	if g.IsLocal(seat) {
		spacing = LocalHandSpacing
	}

	offset := 0.0
	if slot < p.Spread {
		offset = spacing * (float64(slot) - float64(p.Count-1)/2)
		if p.Part >= 0 {
			switch {
			case slot < p.Part:
				offset -= PartWidth / 2
			case slot > p.Part:
				offset += PartWidth / 2
			}
		}
	}

	pos := g.anchor(seat, HandRadius).
		Add(g.tangent(seat).Scale(offset)).
		Add(g.normal(seat).Scale(float64(slot) * FaceNormalOffset)).
		Add(Vec3{Y: 0.1})
	if p.Lifted {
		pos = pos.Add(Vec3{Y: LiftHeight})
	}
	return Placement{
		Position: pos,
		Yaw:      g.angle(seat),
		Tilt:     HandTilt,
		FaceUp:   p.FaceUp,
	}
}

// DrawFloat is the card travelling from the deck to a seat's hand.
func (g Geometry) DrawFloat(stage FloatStage, seat, deckLen int) Placement {
	if stage == StageLift {
		top := float64(deckLen) * CardThickness
		return Placement{Position: DeckPosition.Add(Vec3{Y: top + FloatHeight})}
	}
	pos := g.anchor(seat, StagingRadius).Add(Vec3{Y: FloatHeight})
	return Placement{
		Position: pos,
		Yaw:      g.angle(seat),
		Tilt:     HandTilt / 2,
		FaceUp:   g.IsLocal(seat),
	}
}

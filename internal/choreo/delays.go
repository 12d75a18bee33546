package choreo

import "time"

// DelayTable is how long the scheduler waits after committing a step of each
// kind before taking the next one. Phase steps never wait.
type DelayTable map[StepKind]time.Duration

// DefaultDelays returns the stock timing, from 15ms for the spread stagger
// up to 600ms for a card settling on the discard pile.
func DefaultDelays() DelayTable {
	ms := time.Millisecond
	return DelayTable{
		KindDeal:         70 * ms,
		KindRevealPickup: 400 * ms,
		KindRevealTurn:   450 * ms,
		KindSpreadCard:   15 * ms,
		KindDiscardLift:  250 * ms,
		KindDiscardFlip:  250 * ms,
		KindDiscardMove:  300 * ms,
		KindDiscardDrop:  600 * ms,
		KindPlayGap:      120 * ms,
		KindPlayLift:     180 * ms,
		KindPlayMove:     300 * ms,
		KindPlayRotate:   200 * ms,
		KindPlayDrop:     600 * ms,
		KindDrawLift:     200 * ms,
		KindDrawMove:     300 * ms,
		KindDrawGap:      150 * ms,
		KindDrawDrop:     400 * ms,
		KindPhase:        0,
	}
}

// Scaled returns a copy with every delay multiplied by f. A factor of zero
// drains sequences without waiting, which tests rely on.
func (d DelayTable) Scaled(f float64) DelayTable {
	out := make(DelayTable, len(d))
	for k, v := range d {
		out[k] = time.Duration(float64(v) * f)
	}
	return out
}

// For returns the wait after a step of kind k.
func (d DelayTable) For(k StepKind) time.Duration {
	if k == KindPhase {
		return 0
	}
	return d[k]
}

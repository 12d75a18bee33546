package choreo

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/tabletop/internal/models"
	"github.com/stretchr/testify/assert"
)

// manualClock fires timers only when the test advances it.
type manualClock struct {
	mu     sync.Mutex
	now    time.Duration
	timers []*manualTimer
}

type manualTimer struct {
	clock   *manualClock
	at      time.Duration
	f       func()
	stopped bool
	fired   bool
}

func (t *manualTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

func (c *manualClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &manualTimer{clock: c, at: c.now + d, f: f}
	c.timers = append(c.timers, t)
	return t
}

// next pops the earliest live timer due at or before limit.
func (c *manualClock) next(limit time.Duration, bounded bool) *manualTimer {
	c.mu.Lock()
	defer c.mu.Unlock()
	var best *manualTimer
	for _, t := range c.timers {
		if t.stopped || t.fired || (bounded && t.at > limit) {
			continue
		}
		if best == nil || t.at < best.at {
			best = t
		}
	}
	if best != nil {
		best.fired = true
		c.now = max(c.now, best.at)
	}
	return best
}

// Advance moves time forward by d, firing due timers in deadline order.
func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now + d
	c.mu.Unlock()
	for t := c.next(target, true); t != nil; t = c.next(target, true) {
		t.f()
	}
	c.mu.Lock()
	c.now = max(c.now, target)
	c.mu.Unlock()
}

// RunAll fires timers until none are left and returns how many fired.
func (c *manualClock) RunAll() int {
	n := 0
	for t := c.next(0, false); t != nil; t = c.next(0, false) {
		t.f()
		n++
		if n > 100000 {
			panic("manualClock: timers never settle")
		}
	}
	return n
}

func (c *manualClock) Live() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

func newCard(v models.Value, col models.Color) models.Card {
	return models.Card{ID: uuid.New(), Value: v, Color: models.ColorPtr(col)}
}

func newWild() models.Card {
	return models.Card{ID: uuid.New(), Value: models.ValueWild}
}

// fixtureDeck builds n colored cards cycling through colors and values, plus
// two wilds at the end.
func fixtureDeck(n int) []models.Card {
	out := make([]models.Card, 0, n+2)
	for i := 0; i < n; i++ {
		out = append(out, newCard(models.Value(i%10), models.Colors[i%len(models.Colors)]))
	}
	return append(out, newWild(), newWild())
}

// dealtSnapshot deals perSeat cards to each seat from a fresh fixture deck,
// flips one discard and leaves the rest in the draw pile.
func dealtSnapshot(seats, perSeat int) models.Snapshot {
	deck := fixtureDeck(40)
	snap := models.Snapshot{
		GameID:        uuid.New(),
		CurrentPlayer: "p0",
		Direction:     models.DirectionClockwise,
		Seats:         make([]models.SeatSnapshot, seats),
	}
	next := 0
	for s := range snap.Seats {
		snap.Seats[s].Name = fmt.Sprintf("p%d", s)
	}
	for round := 0; round < perSeat; round++ {
		for s := range snap.Seats {
			snap.Seats[s].Hand = append(snap.Seats[s].Hand, deck[next])
			next++
		}
	}
	snap.Discard = []models.Card{deck[next]}
	next++
	snap.DrawPile = append([]models.Card(nil), deck[next:]...)
	snap.DrawCount = len(snap.DrawPile)
	return snap
}

// cloneSnapshot copies the zones so a test can edit the next snapshot freely.
func cloneSnapshot(s models.Snapshot) models.Snapshot {
	out := s
	out.Seats = make([]models.SeatSnapshot, len(s.Seats))
	for i, seat := range s.Seats {
		out.Seats[i] = seat
		out.Seats[i].Hand = append([]models.Card(nil), seat.Hand...)
	}
	out.Discard = append([]models.Card(nil), s.Discard...)
	out.DrawPile = append([]models.Card(nil), s.DrawPile...)
	out.Events = nil
	return out
}

// playFrom moves the card at index i of seat's hand onto the discard pile.
func playFrom(s models.Snapshot, seat, i int) (models.Snapshot, models.Card) {
	next := cloneSnapshot(s)
	c := next.Seats[seat].Hand[i]
	next.Seats[seat].Hand = append(next.Seats[seat].Hand[:i:i], next.Seats[seat].Hand[i+1:]...)
	next.Discard = append(next.Discard, c)
	return next, c
}

// drawTo moves the top of the draw pile into seat's hand.
func drawTo(s models.Snapshot, seat int) (models.Snapshot, models.Card) {
	next := cloneSnapshot(s)
	c := next.DrawPile[0]
	next.DrawPile = next.DrawPile[1:]
	next.DrawCount = len(next.DrawPile)
	next.Seats[seat].Hand = append(next.Seats[seat].Hand, c)
	return next, c
}

func cardIDs(cards []models.Card) []uuid.UUID {
	out := make([]uuid.UUID, len(cards))
	for i, c := range cards {
		out[i] = c.ID
	}
	return out
}

func assertConserved(t *testing.T, want []uuid.UUID, st State) {
	t.Helper()
	assert.ElementsMatch(t, want, st.CardIDs(), "every card must sit in exactly one zone (phase %s)", st.Phase)
}

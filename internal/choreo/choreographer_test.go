package choreo

import (
	"io"
	"sync"
	"testing"
	"time"

	"github.com/jason-s-yu/tabletop/internal/layout"
	"github.com/jason-s-yu/tabletop/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type frameSink struct {
	mu     sync.Mutex
	frames []Frame
	steps  []Applied
}

func (f *frameSink) onFrame(fr Frame) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frames = append(f.frames, fr)
}

func (f *frameSink) onStep(a Applied) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.steps = append(f.steps, a)
}

func (f *frameSink) stepCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.steps)
}

func quietLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

// setupChoreographer builds a choreographer that drains every sequence
// synchronously unless a clock is given.
func setupChoreographer(t *testing.T, clock Clock) (*Choreographer, *frameSink) {
	t.Helper()
	sink := &frameSink{}
	delays := DefaultDelays().Scaled(0)
	if clock != nil {
		delays = DefaultDelays()
	}
	c := NewChoreographer(Config{
		Geometry: layout.Geometry{LocalSeat: 0},
		Clock:    clock,
		Delays:   delays,
		Logger:   quietLogger(),
		OnFrame:  sink.onFrame,
		OnStep:   sink.onStep,
	})
	t.Cleanup(c.Dispose)
	return c, sink
}

func TestChoreographerDealsFirstSnapshot(t *testing.T) {
	c, sink := setupChoreographer(t, nil)
	snap := dealtSnapshot(3, 7)

	require.NoError(t, c.Push(snap))
	assert.False(t, c.Animating())
	assert.True(t, Matches(c.State(), snap))
	assert.Equal(t, len(BuildInitialDeal(snap)), sink.stepCount())

	f := c.Frame()
	assert.Len(t, f.Targets, len(snap.AllCards()))
	assert.Equal(t, int64(sink.stepCount()), f.Step)
}

func TestChoreographerPlaysThenDraws(t *testing.T) {
	c, _ := setupChoreographer(t, nil)
	snap := dealtSnapshot(3, 5)
	require.NoError(t, c.Push(snap))

	next, _ := playFrom(snap, 0, 1)
	next.CurrentPlayer = "p1"
	require.NoError(t, c.Push(next))
	assert.True(t, Matches(c.State(), next))
	assert.Equal(t, "p1", c.State().CurrentPlayer)

	// a play and a draw in one snapshot run as two sequences
	both, _ := playFrom(next, 1, 0)
	both, _ = drawTo(both, 2)
	both, _ = drawTo(both, 2)
	both.CurrentPlayer = "p0"
	require.NoError(t, c.Push(both))
	st := c.State()
	assert.True(t, Matches(st, both))
	assert.Equal(t, "p0", st.CurrentPlayer)
	assert.Equal(t, PhasePlaying, st.Phase)
}

func TestChoreographerCoalescesSnapshotsDuringSequence(t *testing.T) {
	clock := &manualClock{}
	c, _ := setupChoreographer(t, clock)
	snap := dealtSnapshot(2, 4)

	require.NoError(t, c.Push(snap))
	require.True(t, c.Animating())

	next, played := playFrom(snap, 1, 0)
	require.NoError(t, c.Push(next))
	assert.NotContains(t, c.State().Discard, played.ID, "no diff while the deal is running")

	later, _ := drawTo(next, 0)
	require.NoError(t, c.Push(later))

	clock.RunAll()
	assert.False(t, c.Animating())
	assert.True(t, Matches(c.State(), later))
}

func TestChoreographerNewGameResets(t *testing.T) {
	clock := &manualClock{}
	c, _ := setupChoreographer(t, clock)
	first := dealtSnapshot(2, 4)
	require.NoError(t, c.Push(first))
	clock.Advance(300 * time.Millisecond)
	require.True(t, c.Animating())

	second := dealtSnapshot(3, 3)
	require.NoError(t, c.Push(second))
	clock.RunAll()

	st := c.State()
	assert.Equal(t, 3, st.Seats())
	assert.True(t, Matches(st, second))
	assertConserved(t, cardIDs(second.AllCards()), st)
}

func TestChoreographerResetReturnsAllCardsToDeck(t *testing.T) {
	clock := &manualClock{}
	c, _ := setupChoreographer(t, clock)
	snap := dealtSnapshot(3, 5)
	require.NoError(t, c.Push(snap))
	clock.Advance(time.Second)

	c.Reset()
	assert.False(t, c.Animating())
	assert.Equal(t, 0, clock.Live())

	st := c.State()
	assert.ElementsMatch(t, cardIDs(snap.AllCards()), st.Deck)
	assert.Empty(t, st.Discard)
	for seat := range st.Hands {
		assert.Empty(t, st.Hands[seat])
	}

	// the same game is dealt again from scratch
	require.NoError(t, c.Push(snap))
	clock.RunAll()
	assert.True(t, Matches(c.State(), snap))
}

func TestChoreographerUnattributedSnapshotResyncs(t *testing.T) {
	c, sink := setupChoreographer(t, nil)
	snap := dealtSnapshot(2, 4)
	require.NoError(t, c.Push(snap))
	before := sink.stepCount()

	next := cloneSnapshot(snap)
	next.Seats[0].Hand = next.Seats[0].Hand[1:]
	require.NoError(t, c.Push(next))

	assert.Equal(t, before, sink.stepCount(), "a resync jumps without steps")
	assert.True(t, Matches(c.State(), next))
}

func TestChoreographerExactMode(t *testing.T) {
	c, sink := setupChoreographer(t, nil)
	c.SetExact(true)
	snap := dealtSnapshot(2, 4)

	require.NoError(t, c.Push(snap))
	next, _ := playFrom(snap, 0, 0)
	require.NoError(t, c.Push(next))

	assert.Zero(t, sink.stepCount())
	assert.True(t, Matches(c.State(), next))
}

func TestChoreographerResyncDuringSequence(t *testing.T) {
	clock := &manualClock{}
	c, _ := setupChoreographer(t, clock)
	snap := dealtSnapshot(2, 4)
	require.NoError(t, c.Push(snap))
	require.True(t, c.Animating())

	c.Resync()
	assert.False(t, c.Animating())
	assert.True(t, Matches(c.State(), snap))
	assert.Zero(t, clock.RunAll())
}

func TestChoreographerDisposed(t *testing.T) {
	c, _ := setupChoreographer(t, nil)
	c.Dispose()
	assert.ErrorIs(t, c.Push(dealtSnapshot(2, 2)), ErrDisposed)
}

func TestChoreographerUpsertsWildColor(t *testing.T) {
	c, _ := setupChoreographer(t, nil)
	snap := dealtSnapshot(2, 3)
	wild := snap.DrawPile[len(snap.DrawPile)-1]
	require.True(t, wild.Value.IsWild())
	require.NoError(t, c.Push(snap))

	// the wild is drawn, played and its color chosen
	next := cloneSnapshot(snap)
	next.DrawPile = next.DrawPile[:len(next.DrawPile)-1]
	chosen := wild
	chosen.Color = models.ColorPtr(models.ColorGreen)
	next.Discard = append(next.Discard, chosen)
	next.Events = []models.Event{
		{Type: models.EventCardDrawn, Seat: 1, CardID: wild.ID},
		{Type: models.EventCardPlayed, Seat: 1, CardID: wild.ID},
	}
	require.NoError(t, c.Push(next))

	got, ok := c.Registry().Card(wild.ID)
	require.True(t, ok)
	require.NotNil(t, got.Color)
	assert.Equal(t, models.ColorGreen, *got.Color)
	assert.True(t, Matches(c.State(), next))
}

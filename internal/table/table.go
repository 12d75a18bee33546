// internal/table/table.go
package table

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/tabletop/internal/choreo"
	"github.com/jason-s-yu/tabletop/internal/layout"
	"github.com/jason-s-yu/tabletop/internal/models"
	"github.com/jason-s-yu/tabletop/internal/sim"
	"github.com/sirupsen/logrus"
)

// ErrDemoRunning is returned when a demo feed is started twice on a table.
var ErrDemoRunning = errors.New("table: demo already running")

// Journal receives every committed step. Implementations must not block.
type Journal interface {
	Record(rec models.StepRecord)
}

// Options configures a new Table. Zero values fall back to the choreographer
// defaults.
type Options struct {
	Geometry layout.Geometry
	Clock    choreo.Clock
	Delays   choreo.DelayTable
	Journal  Journal
	Logger   *logrus.Entry
}

// Table is one hosted card table: a choreographer fed by whoever holds the
// feeder token, and a set of viewers receiving frames.
type Table struct {
	ID        uuid.UUID
	CreatedAt time.Time

	Choreographer *choreo.Choreographer
	Journal       Journal

	log *logrus.Entry
	seq atomic.Int64

	// Mu guards BroadcastFn, the game id and the demo feed.
	Mu sync.Mutex
	// BroadcastFn is called with the frame of every commit. If nil, no
	// broadcast is done.
	BroadcastFn func(f choreo.Frame)

	gameID     uuid.UUID
	demoCancel context.CancelFunc
	demoGen    uint64
}

// New builds an empty table. Nothing is dealt until the first Push.
func New(id uuid.UUID, opts Options) *Table {
	if opts.Logger == nil {
		opts.Logger = logrus.NewEntry(logrus.StandardLogger())
	}
	t := &Table{
		ID:        id,
		CreatedAt: time.Now(),
		Journal:   opts.Journal,
		log:       opts.Logger.WithField("table_id", id),
	}
	t.Choreographer = choreo.NewChoreographer(choreo.Config{
		Geometry: opts.Geometry,
		Clock:    opts.Clock,
		Delays:   opts.Delays,
		Logger:   t.log,
		OnFrame:  t.onFrame,
		OnStep:   t.onStep,
	})
	return t
}

func (t *Table) onFrame(f choreo.Frame) {
	t.Mu.Lock()
	fn := t.BroadcastFn
	t.Mu.Unlock()
	if fn != nil {
		fn(f)
	}
}

func (t *Table) onStep(a choreo.Applied) {
	if t.Journal == nil {
		return
	}
	data, err := json.Marshal(choreo.Wrap(a.Step))
	if err != nil {
		t.log.WithError(err).Warn("failed to encode step")
		return
	}
	t.Journal.Record(models.StepRecord{
		TableID:   t.ID,
		GameID:    t.GameID(),
		Seq:       t.seq.Add(1),
		Index:     a.Index,
		Kind:      string(a.Step.Kind()),
		Phase:     string(a.State.Phase),
		Step:      data,
		Timestamp: time.Now().UnixMilli(),
	})
}

// SetBroadcast replaces the frame sink.
func (t *Table) SetBroadcast(fn func(f choreo.Frame)) {
	t.Mu.Lock()
	t.BroadcastFn = fn
	t.Mu.Unlock()
}

// GameID is the game of the latest pushed snapshot.
func (t *Table) GameID() uuid.UUID {
	t.Mu.Lock()
	defer t.Mu.Unlock()
	return t.gameID
}

// Push forwards an authoritative snapshot to the choreographer.
func (t *Table) Push(snap models.Snapshot) error {
	t.Mu.Lock()
	t.gameID = snap.GameID
	t.Mu.Unlock()
	if err := t.Choreographer.Push(snap); err != nil {
		return fmt.Errorf("push snapshot to table %s: %w", t.ID, err)
	}
	return nil
}

// Frame is the projection of the committed state.
func (t *Table) Frame() choreo.Frame {
	return t.Choreographer.Frame()
}

// Timeline folds the initial deal of the current game. It returns false when
// the table has not seen a snapshot yet.
func (t *Table) Timeline(g layout.Geometry) ([]choreo.Frame, bool) {
	snap, ok := t.Choreographer.Latest()
	if !ok {
		return nil, false
	}
	tl, _ := choreo.BuildDealTimeline(snap)
	if g.Seats == 0 {
		g.Seats = len(snap.Seats)
	}
	return tl.Frames(g), true
}

// StartDemo feeds the table from a simulated game, one automatic turn every
// interval, until the game ends or ctx is cancelled. viewer is the seat whose
// hand the snapshots reveal.
func (t *Table) StartDemo(ctx context.Context, players []string, seed int64, viewer int, interval time.Duration) error {
	t.Mu.Lock()
	if t.demoCancel != nil {
		t.Mu.Unlock()
		return ErrDemoRunning
	}
	ctx, cancel := context.WithCancel(ctx)
	t.demoCancel = cancel
	t.demoGen++
	gen := t.demoGen
	t.Mu.Unlock()

	g := sim.New(players, seed)
	if err := t.Push(g.Snapshot(viewer)); err != nil {
		t.stopDemo(gen)
		return err
	}
	t.log.WithFields(logrus.Fields{
		"game_id": g.ID,
		"players": len(players),
		"seed":    seed,
	}).Info("demo feed started")

	go t.runDemo(ctx, gen, g, viewer, interval)
	return nil
}

func (t *Table) runDemo(ctx context.Context, gen uint64, g *sim.Game, viewer int, interval time.Duration) {
	defer t.stopDemo(gen)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		if err := g.Auto(); err != nil {
			t.log.WithError(err).Debug("demo feed finished")
			return
		}
		if err := t.Push(g.Snapshot(viewer)); err != nil {
			return
		}
		if over, winner := g.Over(); over {
			t.log.WithField("winner", g.Players[winner]).Info("demo game over")
			return
		}
	}
}

// stopDemo cancels the feed started as gen; 0 cancels whatever runs.
func (t *Table) stopDemo(gen uint64) {
	t.Mu.Lock()
	defer t.Mu.Unlock()
	if t.demoCancel != nil && (gen == 0 || gen == t.demoGen) {
		t.demoCancel()
		t.demoCancel = nil
	}
}

// StopDemo cancels a running demo feed, if any.
func (t *Table) StopDemo() { t.stopDemo(0) }

// DemoRunning reports whether a demo feed is attached.
func (t *Table) DemoRunning() bool {
	t.Mu.Lock()
	defer t.Mu.Unlock()
	return t.demoCancel != nil
}

// Close stops the demo feed and disposes the choreographer.
func (t *Table) Close() {
	t.stopDemo(0)
	t.Choreographer.Dispose()
}

// internal/choreo/choreographer.go
package choreo

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/jason-s-yu/tabletop/internal/layout"
	"github.com/jason-s-yu/tabletop/internal/models"
	"github.com/sirupsen/logrus"
)

// Config wires a Choreographer. Every field is optional.
type Config struct {
	Geometry layout.Geometry
	Clock    Clock
	Delays   DelayTable
	Logger   *logrus.Entry

	// OnFrame receives the projection of every committed state.
	OnFrame func(Frame)
	// OnStep receives every committed step.
	OnStep func(Applied)
}

// Choreographer owns the visual side of one table: the card registry, the
// scheduler and the latest authoritative snapshot. Snapshots may arrive at
// any time; they are only compared against committed state once the running
// sequence has drained, so a card takes part in at most one sequence at once.
type Choreographer struct {
	cfg      Config
	log      *logrus.Entry
	registry *Registry
	sched    *Scheduler
	steps    atomic.Int64

	mu            sync.Mutex
	gameID        uuid.UUID
	seats         int
	started       bool
	pending       *models.Snapshot
	pendingSeq    uint64
	pendingEvents []models.Event
	latest        *models.Snapshot
	exact         bool
	evaluating    bool
	again         bool
	disposed      bool
}

// NewChoreographer builds an idle choreographer with no game.
func NewChoreographer(cfg Config) *Choreographer {
	if cfg.Logger == nil {
		cfg.Logger = logrus.NewEntry(logrus.StandardLogger())
	}
	if cfg.Geometry.Seats == 0 {
		cfg.Geometry.Seats = 1
	}
	c := &Choreographer{
		cfg:      cfg,
		log:      cfg.Logger,
		registry: NewRegistry(nil),
	}
	c.sched = NewScheduler(NewIdleState(nil, 0), c.registry, SchedulerConfig{
		Clock:    cfg.Clock,
		Delays:   cfg.Delays,
		OnStep:   c.onStep,
		OnCommit: c.onCommit,
		OnIdle:   c.evaluate,
	})
	return c
}

func (c *Choreographer) onStep(a Applied) {
	c.steps.Add(1)
	if c.cfg.OnStep != nil {
		c.cfg.OnStep(a)
	}
}

func (c *Choreographer) onCommit(st State) {
	if c.cfg.OnFrame == nil {
		return
	}
	f := Project(st, c.registry, c.geometry(st))
	f.Step = c.steps.Load()
	c.cfg.OnFrame(f)
}

func (c *Choreographer) geometry(st State) layout.Geometry {
	g := c.cfg.Geometry
	if st.Seats() > 0 {
		g.Seats = st.Seats()
	}
	return g
}

// Push hands over a new authoritative snapshot. A snapshot for a different
// game, or with a different seat count, tears the table down and deals the
// new game from scratch. Events accumulate until a sequence is planned, so
// snapshots that arrive during a sequence are coalesced without losing their
// event log.
func (c *Choreographer) Push(snap models.Snapshot) error {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return ErrDisposed
	}
	if !c.started || snap.GameID != c.gameID || len(snap.Seats) != c.seats {
		c.log.WithFields(logrus.Fields{
			"game_id": snap.GameID,
			"seats":   len(snap.Seats),
		}).Info("new game, resetting table")
		c.registry.Reset(snap.AllCards())
		c.gameID = snap.GameID
		c.seats = len(snap.Seats)
		c.started = true
		c.pendingEvents = nil
		c.sched.Reset(NewIdleState(c.registry.IDs(), c.seats))
	} else if added := c.registry.Upsert(snap.AllCards()...); added > 0 {
		c.log.WithField("added", added).Debug("snapshot introduced unseen cards")
	}

	s := snap
	c.pending = &s
	c.pendingSeq++
	c.latest = &s
	c.pendingEvents = append(c.pendingEvents, snap.Events...)
	c.mu.Unlock()

	c.evaluate()
	return nil
}

// evaluate plans the pending snapshot once nothing is draining. Calls made
// while an evaluation is already running are folded into it.
func (c *Choreographer) evaluate() {
	c.mu.Lock()
	if c.evaluating {
		c.again = true
		c.mu.Unlock()
		return
	}
	c.evaluating = true
	defer func() {
		c.evaluating = false
		c.mu.Unlock()
	}()

	for {
		c.again = false
		if c.disposed || c.pending == nil || c.sched.Animating() {
			return
		}
		snap := *c.pending
		snap.Events = c.pendingEvents
		seq := c.pendingSeq
		exact := c.exact
		c.mu.Unlock()

		done := c.plan(snap, exact)

		c.mu.Lock()
		if done && c.pendingSeq == seq {
			c.pending = nil
		}
		if !c.again {
			return
		}
	}
}

// plan schedules the choreography for snap. It reports whether the committed
// state will match snap once the sequence drains; a play leaves any draws in
// the same snapshot for the next evaluation.
func (c *Choreographer) plan(snap models.Snapshot, exact bool) bool {
	log := c.log.WithField("game_id", snap.GameID)
	prev := c.sched.State()
	if st, added := Provision(prev, snap, c.registry); added {
		if err := c.sched.Replace(st); err != nil {
			log.WithError(err).Debug("stand-ins deferred")
			return false
		}
		prev = st
	}
	bound, _ := BindFaceDown(prev, snap, c.registry)

	var p Plan
	if exact {
		p = Plan{Kind: PlanResync}
		if Matches(prev, bound) && TurnMatches(prev, bound) {
			p.Kind = PlanNone
		}
	} else {
		p = BuildPlan(prev, snap, c.registry)
	}

	switch p.Kind {
	case PlanNone:
		c.consumeEvents(len(snap.Events))
		return true
	case PlanResync:
		if !exact {
			log.WithField("phase", prev.Phase).Warn("snapshot could not be attributed, resyncing")
		}
		c.consumeEvents(len(snap.Events))
		if err := c.sched.Replace(Derive(bound, c.registry)); err != nil {
			log.WithError(err).Debug("resync deferred")
			return false
		}
		return true
	}

	log.WithFields(logrus.Fields{
		"plan":  p.Kind,
		"steps": len(p.Steps),
	}).Debug("scheduling sequence")
	c.consumeEvents(len(snap.Events))
	if err := c.sched.Run(p.Steps); err != nil {
		log.WithError(err).Debug("sequence deferred")
		return false
	}
	return p.Kind != PlanPlay
}

func (c *Choreographer) consumeEvents(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if n >= len(c.pendingEvents) {
		c.pendingEvents = nil
		return
	}
	c.pendingEvents = c.pendingEvents[n:]
}

// Resync drops whatever is in flight and jumps straight to the latest
// snapshot.
func (c *Choreographer) Resync() {
	c.mu.Lock()
	if c.disposed || c.latest == nil {
		c.mu.Unlock()
		return
	}
	snap := *c.latest
	c.pending = nil
	c.pendingEvents = nil
	bound, short := BindFaceDown(c.sched.State(), snap, c.registry)
	if short > 0 {
		bound = snap
	}
	c.sched.Reset(Derive(bound, c.registry))
	c.mu.Unlock()

	c.log.WithField("game_id", snap.GameID).Info("resynced to latest snapshot")
}

// Reset tears the table down mid-sequence if need be: timers are cancelled,
// the queue is dropped and every card goes back to the deck. The next
// snapshot is dealt from scratch.
func (c *Choreographer) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed {
		return
	}
	c.started = false
	c.pending = nil
	c.pendingEvents = nil
	c.sched.Reset(NewIdleState(c.registry.IDs(), c.seats))
}

// Dispose stops all timers for good.
func (c *Choreographer) Dispose() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disposed = true
	c.pending = nil
	c.sched.Dispose()
}

// SetExact switches between animated plans and direct resync of every
// snapshot.
func (c *Choreographer) SetExact(exact bool) {
	c.mu.Lock()
	c.exact = exact
	c.mu.Unlock()
}

// State is a copy of the committed state.
func (c *Choreographer) State() State { return c.sched.State() }

// Animating reports whether a sequence is draining.
func (c *Choreographer) Animating() bool { return c.sched.Animating() }

// Frame projects the committed state.
func (c *Choreographer) Frame() Frame {
	st := c.sched.State()
	f := Project(st, c.registry, c.geometry(st))
	f.Step = c.steps.Load()
	return f
}

// Targets is the flat target list of the committed state.
func (c *Choreographer) Targets() []Target { return c.Frame().Targets }

// Latest returns the last snapshot pushed, if any.
func (c *Choreographer) Latest() (models.Snapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.latest == nil {
		return models.Snapshot{}, false
	}
	return *c.latest, true
}

// Registry exposes the card lookup of the current game.
func (c *Choreographer) Registry() *Registry { return c.registry }

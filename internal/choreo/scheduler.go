// internal/choreo/scheduler.go
package choreo

import (
	"errors"
	"slices"
	"sync"
	"time"
)

var (
	// ErrBusy is returned when a sequence is started while another is draining.
	ErrBusy = errors.New("choreo: a sequence is already draining")
	// ErrDisposed is returned by a scheduler that has been torn down for good.
	ErrDisposed = errors.New("choreo: scheduler disposed")
)

// Timer is a pending callback that can be cancelled.
type Timer interface {
	Stop() bool
}

// Clock schedules callbacks. The system clock is backed by time.AfterFunc;
// tests substitute a manual clock.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type systemClock struct{}

func (systemClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// SystemClock is the wall-clock Clock.
var SystemClock Clock = systemClock{}

// Applied is one step the scheduler committed. Index counts steps from the
// start of the current sequence.
type Applied struct {
	Index int
	Step  Step
	State State
}

// SchedulerConfig wires a scheduler to its clock and observers. Observers run
// outside the scheduler lock but serialized with each other; they must not
// call Reset or Dispose.
type SchedulerConfig struct {
	Clock  Clock
	Delays DelayTable

	// OnStep sees every applied step in order with the state right after it.
	OnStep func(Applied)
	// OnCommit sees each state observers may display: after a phase step
	// together with the step it chains into, after any other step, and after
	// a reset or direct replace.
	OnCommit func(State)
	// OnIdle runs when a sequence has fully drained.
	OnIdle func()
}

// Scheduler drains one sequence of steps at a time through the reducer,
// waiting a per-kind delay between steps. It owns the committed state; nobody
// else writes it.
type Scheduler struct {
	mu       sync.Mutex
	notifyMu sync.Mutex

	cfg    SchedulerConfig
	lookup CardLookup

	state     State
	queue     []Step
	animating bool
	timer     Timer
	gen       uint64
	applied   int
	disposed  bool
}

// NewScheduler builds an idle scheduler committed to initial.
func NewScheduler(initial State, lookup CardLookup, cfg SchedulerConfig) *Scheduler {
	if cfg.Clock == nil {
		cfg.Clock = SystemClock
	}
	if cfg.Delays == nil {
		cfg.Delays = DefaultDelays()
	}
	return &Scheduler{cfg: cfg, lookup: lookup, state: initial}
}

// Run starts draining steps. The first step, and any phase steps chained
// behind it, commit before Run returns; the rest follow on the clock.
func (s *Scheduler) Run(steps []Step) error {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return ErrDisposed
	}
	if s.animating {
		s.mu.Unlock()
		return ErrBusy
	}
	if len(steps) == 0 {
		s.mu.Unlock()
		return nil
	}
	s.queue = slices.Clone(steps)
	s.animating = true
	s.applied = 0
	gen := s.gen
	s.mu.Unlock()

	s.drain(gen)
	return nil
}

func (s *Scheduler) drain(gen uint64) {
	for {
		wait, more := s.processNext(gen)
		if !more {
			return
		}
		if wait <= 0 {
			continue
		}
		s.mu.Lock()
		if gen == s.gen && !s.disposed {
			s.timer = s.cfg.Clock.AfterFunc(wait, func() { s.drain(gen) })
		}
		s.mu.Unlock()
		return
	}
}

// processNext pops and commits the head of the queue. A phase step is chained
// straight into the step behind it so a phase and its first consequence are
// never shown as two separate frames. It reports the wait before the next
// call, and false once the sequence is over or was cancelled.
func (s *Scheduler) processNext(gen uint64) (time.Duration, bool) {
	s.mu.Lock()
	if s.disposed || gen != s.gen {
		s.mu.Unlock()
		return 0, false
	}
	s.timer = nil

	if len(s.queue) == 0 {
		finished := s.animating
		s.animating = false
		onIdle := s.cfg.OnIdle
		s.mu.Unlock()
		if finished && onIdle != nil {
			onIdle()
		}
		return 0, false
	}

	var batch []Applied
	var last Step
	for len(s.queue) > 0 {
		last = s.queue[0]
		s.queue = s.queue[1:]
		s.state = ApplyStep(s.state, last, s.lookup)
		batch = append(batch, Applied{Index: s.applied, Step: last, State: s.state})
		s.applied++
		if last.Kind() != KindPhase {
			break
		}
	}
	committed := s.state
	s.mu.Unlock()

	s.notify(gen, batch, committed)
	return s.cfg.Delays.For(last.Kind()), true
}

func (s *Scheduler) notify(gen uint64, batch []Applied, committed State) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	stale := gen != s.gen
	s.mu.Unlock()
	if stale {
		return
	}
	if s.cfg.OnStep != nil {
		for _, a := range batch {
			s.cfg.OnStep(a)
		}
	}
	if s.cfg.OnCommit != nil {
		s.cfg.OnCommit(committed)
	}
}

// Reset cancels the pending timer, drops the queue and commits st. It is safe
// to call at any point of a sequence; a step already in progress is discarded
// rather than shown.
func (s *Scheduler) Reset(st State) {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return
	}
	s.cancelLocked()
	s.state = st
	gen := s.gen
	s.mu.Unlock()

	s.notify(gen, nil, st)
}

// Replace commits st directly when nothing is draining.
func (s *Scheduler) Replace(st State) error {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return ErrDisposed
	}
	if s.animating {
		s.mu.Unlock()
		return ErrBusy
	}
	s.state = st
	gen := s.gen
	s.mu.Unlock()

	s.notify(gen, nil, st)
	return nil
}

// Dispose stops the scheduler for good.
func (s *Scheduler) Dispose() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelLocked()
	s.disposed = true
}

func (s *Scheduler) cancelLocked() {
	s.gen++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.queue = nil
	s.animating = false
	s.applied = 0
}

// State returns a copy of the last committed state.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Animating reports whether a sequence is draining.
func (s *Scheduler) Animating() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.animating
}

// Pending is the number of steps still queued.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

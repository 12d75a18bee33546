// cmd/stage/stage.go
package main

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/jason-s-yu/tabletop/internal/choreo"
	"github.com/jason-s-yu/tabletop/internal/layout"
	"github.com/jason-s-yu/tabletop/internal/models"
	"github.com/jason-s-yu/tabletop/internal/sim"
)

// world extent drawn on screen, in table units
const tableSpan = 4.4

type stage struct {
	screen tcell.Screen
	delays choreo.DelayTable

	players []string
	seed    int64
	viewer  int
	reveal  bool

	game *sim.Game
	tl   *choreo.Timeline
	reg  *choreo.Registry
	geom layout.Geometry

	playing     bool
	lastAdvance time.Time
	message     string
}

func newStage(screen tcell.Screen, players []string, seed int64, viewer int, reveal bool, delays choreo.DelayTable) *stage {
	s := &stage{
		screen:  screen,
		delays:  delays,
		players: players,
		seed:    seed,
		viewer:  viewer,
		reveal:  reveal,
	}
	s.restart()
	return s
}

// restart deals a fresh game from the same seed.
func (s *stage) restart() {
	s.game = sim.New(s.players, s.seed)
	s.tl, s.reg = choreo.BuildDealTimeline(s.game.Snapshot(s.viewer))
	s.geom = layout.Geometry{Seats: len(s.players), LocalSeat: s.viewer}
	s.playing = false
	s.message = "dealt"
}

// nextTurn plays one automatic turn and appends its choreography.
func (s *stage) nextTurn() bool {
	if over, _ := s.game.Over(); over {
		s.message = "game over"
		return false
	}
	if err := s.game.Auto(); err != nil {
		s.message = err.Error()
		return false
	}
	kinds := s.tl.Extend(s.game.Snapshot(s.viewer), s.reg)
	s.message = fmt.Sprintf("planned %v", kinds)
	return true
}

// delay is how long the current position is held during playback.
func (s *stage) delay() time.Duration {
	last := s.tl.Last()
	if last == nil {
		return 0
	}
	return s.delays.For(last.Kind())
}

// tick advances playback; it reports whether anything changed.
func (s *stage) tick(now time.Time) bool {
	if !s.playing || now.Sub(s.lastAdvance) < s.delay() {
		return false
	}
	s.lastAdvance = now
	if s.tl.Cursor() == s.tl.Len()-1 && !s.nextTurn() {
		s.playing = false
		return true
	}
	s.tl.Forward()
	return true
}

// handleKey applies one key press. It returns false to quit.
func (s *stage) handleKey(ev *tcell.EventKey) bool {
	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return false
	case tcell.KeyRight:
		s.tl.Forward()
	case tcell.KeyLeft:
		s.tl.Back()
	case tcell.KeyHome:
		s.tl.Seek(0)
	case tcell.KeyEnd:
		s.tl.Seek(s.tl.Len() - 1)
	case tcell.KeyRune:
		switch ev.Rune() {
		case 'q':
			return false
		case ' ':
			s.playing = !s.playing
			s.lastAdvance = time.Time{}
		case 'n':
			start := s.tl.Len()
			if s.nextTurn() {
				s.tl.Seek(start)
			}
		case 'r':
			s.restart()
		case 'v':
			s.reveal = !s.reveal
		}
	}
	return true
}

func (s *stage) frame() choreo.Frame {
	f := choreo.Project(s.tl.Current(), s.reg, s.geom)
	f.Step = int64(s.tl.Cursor())
	if !s.reveal {
		f = f.Masked()
	}
	return f
}

func (s *stage) draw() {
	s.screen.Clear()
	w, h := s.screen.Size()
	f := s.frame()

	targets := append([]choreo.Target(nil), f.Targets...)
	sort.SliceStable(targets, func(i, j int) bool {
		return targets[i].Placement.Position.Y < targets[j].Placement.Position.Y
	})

	sx := float64(w-2) / tableSpan
	sy := float64(h-3) / tableSpan
	for _, t := range targets {
		x := w/2 + int(t.Placement.Position.X*sx) - 1
		y := (h-2)/2 + int(t.Placement.Position.Z*sy)
		label, style := cardGlyph(t)
		drawText(s.screen, x, y, label, style)
	}

	step := "start"
	if last := s.tl.Last(); last != nil {
		step = string(last.Kind())
	} else if s.tl.Cursor() > 0 {
		step = "resync"
	}
	status := fmt.Sprintf(" %d/%d  %-14s %-13s turn:%s  %s", s.tl.Cursor(), s.tl.Len()-1, step, f.Phase, f.CurrentPlayer, s.message)
	drawText(s.screen, 0, h-2, status, tcell.StyleDefault.Reverse(true))
	drawText(s.screen, 0, h-1, " [space] play  [<-/->] step  [n] next turn  [v] reveal  [r] restart  [q] quit", tcell.StyleDefault.Dim(true))
	s.screen.Show()
}

func (s *stage) run() {
	ticker := time.NewTicker(16 * time.Millisecond)
	defer ticker.Stop()

	events := make(chan tcell.Event, 100)
	go func() {
		for {
			ev := s.screen.PollEvent()
			if ev == nil {
				return
			}
			events <- ev
		}
	}()

	s.draw()
	for {
		select {
		case ev := <-events:
			switch ev := ev.(type) {
			case *tcell.EventKey:
				if !s.handleKey(ev) {
					return
				}
			case *tcell.EventResize:
				s.screen.Sync()
			}
			s.draw()
		case now := <-ticker.C:
			if s.tick(now) {
				s.draw()
			}
		}
	}
}

func drawText(screen tcell.Screen, x, y int, text string, style tcell.Style) {
	for _, r := range text {
		screen.SetContent(x, y, r, nil, style)
		x++
	}
}

var colorStyles = map[models.Color]tcell.Color{
	models.ColorRed:    tcell.ColorRed,
	models.ColorYellow: tcell.ColorYellow,
	models.ColorGreen:  tcell.ColorGreen,
	models.ColorBlue:   tcell.ColorBlue,
}

var valueGlyphs = map[models.Value]string{
	models.ValueSkip:         "s",
	models.ValueReverse:      "r",
	models.ValueDrawTwo:      "+",
	models.ValueWild:         "*",
	models.ValueWildDrawFour: "4",
}

// cardGlyph is the two-cell label of a target: color initial and value for a
// visible face, a shaded block otherwise.
func cardGlyph(t choreo.Target) (string, tcell.Style) {
	if t.Face == nil {
		return "▓▓", tcell.StyleDefault.Foreground(tcell.ColorGray)
	}
	c := t.Face
	v, ok := valueGlyphs[c.Value]
	if !ok {
		v = c.Value.String()
	}
	if c.Color == nil {
		return "W" + v, tcell.StyleDefault.Foreground(tcell.ColorWhite).Bold(true)
	}
	return strings.ToUpper(c.Color.String()[:1]) + v, tcell.StyleDefault.Foreground(colorStyles[*c.Color]).Bold(true)
}

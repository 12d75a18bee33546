// cmd/stage/main.go is a terminal scrubber for choreography timelines. It
// deals a simulated game and lets you step through every committed state.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/jason-s-yu/tabletop/internal/choreo"
	"github.com/jason-s-yu/tabletop/internal/config"
	_ "github.com/joho/godotenv/autoload"
)

func main() {
	cfg := config.Load()

	players := flag.String("players", "north,east,south,west", "comma separated seat names")
	seed := flag.Int64("seed", time.Now().UnixNano(), "shuffle seed")
	seat := flag.Int("seat", cfg.LocalSeat, "seat shown face up")
	reveal := flag.Bool("reveal", false, "show every face")
	scale := flag.Float64("speed", 1, "playback delay multiplier")
	flag.Parse()

	names := strings.Split(*players, ",")
	if len(names) < 2 {
		fmt.Fprintln(os.Stderr, "need at least two players")
		os.Exit(2)
	}
	if *seat < 0 || *seat >= len(names) {
		*seat = 0
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		os.Exit(1)
	}
	if err := screen.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		os.Exit(1)
	}
	defer screen.Fini()

	s := newStage(screen, names, *seed, *seat, *reveal, choreo.DefaultDelays().Scaled(*scale))
	s.run()
}

// internal/sim/game.go
package sim

import (
	"errors"
	"fmt"
	"math/rand"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/jason-s-yu/tabletop/internal/models"
)

// HandSize is the number of cards dealt to each seat.
const HandSize = 7

var (
	ErrGameOver    = errors.New("game is over")
	ErrNotYourTurn = errors.New("not your turn")
	ErrNotInHand   = errors.New("card not in hand")
	ErrNotPlayable = errors.New("card cannot be played on the discard")
	ErrEmptyPile   = errors.New("no cards left to draw")
)

// Game is a small authoritative shedding game used to feed tables with
// snapshots. It checks turn order and matching but none of the finer rules.
type Game struct {
	mu sync.Mutex

	ID      uuid.UUID
	Players []string

	rng       *rand.Rand
	hands     [][]models.Card
	drawPile  []models.Card
	discard   []models.Card
	current   int
	direction models.Direction
	events    []models.Event
	over      bool
	winner    int
}

// New shuffles a fresh deck with seed, deals HandSize cards round-robin and
// flips the first discard. A wild draw four is never the first discard.
func New(players []string, seed int64) *Game {
	g := &Game{
		ID:        uuid.New(),
		Players:   slices.Clone(players),
		rng:       rand.New(rand.NewSource(seed)),
		hands:     make([][]models.Card, len(players)),
		direction: models.DirectionClockwise,
		winner:    -1,
	}
	deck := NewDeck()
	shuffle(g.rng, deck)

	for round := 0; round < HandSize; round++ {
		for seat := range g.hands {
			g.hands[seat] = append(g.hands[seat], deck[0])
			deck = deck[1:]
		}
	}
	for i, c := range deck {
		if c.Value != models.ValueWildDrawFour {
			g.discard = []models.Card{c}
			deck = slices.Delete(deck, i, i+1)
			break
		}
	}
	g.drawPile = deck
	g.events = []models.Event{{Type: models.EventGameStarted, Seat: -1}}
	return g
}

// Snapshot renders the game as seen from viewer and drains the event log.
// Hands other than the viewer's are marked hidden; a negative viewer sees
// everything.
func (g *Game) Snapshot(viewer int) models.Snapshot {
	g.mu.Lock()
	defer g.mu.Unlock()

	snap := models.Snapshot{
		GameID:        g.ID,
		CurrentPlayer: g.Players[g.current],
		Direction:     g.direction,
		Phase:         "playing",
		Seats:         make([]models.SeatSnapshot, len(g.hands)),
		Discard:       slices.Clone(g.discard),
		DrawPile:      slices.Clone(g.drawPile),
		DrawCount:     len(g.drawPile),
		Events:        g.events,
	}
	if g.over {
		snap.Phase = "ended"
	}
	for seat, hand := range g.hands {
		snap.Seats[seat] = models.SeatSnapshot{
			Name:   g.Players[seat],
			Hand:   slices.Clone(hand),
			Hidden: viewer >= 0 && viewer != seat,
		}
	}
	if !g.over {
		for _, c := range g.playableLocked(g.current) {
			snap.Playable = append(snap.Playable, c.ID)
		}
	}
	g.events = nil
	return snap
}

// CountSnapshot is Snapshot with every hidden hand reduced to its size, as an
// authority that keeps hands secret would send it. Draws into those hands
// lose their card id.
func (g *Game) CountSnapshot(viewer int) models.Snapshot {
	snap := g.Snapshot(viewer)
	for i, seat := range snap.Seats {
		if seat.Hidden {
			snap.Seats[i].Count = len(seat.Hand)
			snap.Seats[i].Hand = nil
		}
	}
	for i, ev := range snap.Events {
		if ev.Type == models.EventCardDrawn && ev.Seat >= 0 && ev.Seat < len(snap.Seats) && snap.Seats[ev.Seat].Hidden {
			snap.Events[i].CardID = uuid.Nil
		}
	}
	return snap
}

func (g *Game) top() models.Card {
	return g.discard[len(g.discard)-1]
}

func (g *Game) playableLocked(seat int) []models.Card {
	var out []models.Card
	for _, c := range g.hands[seat] {
		if CanPlay(c, g.top()) {
			out = append(out, c)
		}
	}
	return out
}

// Current is the seat whose turn it is.
func (g *Game) Current() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.current
}

// Over reports whether the game has ended and which seat won.
func (g *Game) Over() (bool, int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.over, g.winner
}

// Play moves a card from seat's hand to the discard and applies its effect.
// chosen is the color a wild becomes; it is ignored for colored cards.
func (g *Game) Play(seat int, cardID uuid.UUID, chosen models.Color) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.playLocked(seat, cardID, chosen)
}

func (g *Game) checkTurn(seat int) error {
	if g.over {
		return ErrGameOver
	}
	if seat != g.current {
		return fmt.Errorf("seat %d: %w", seat, ErrNotYourTurn)
	}
	return nil
}

func (g *Game) playLocked(seat int, cardID uuid.UUID, chosen models.Color) error {
	if err := g.checkTurn(seat); err != nil {
		return err
	}
	i := slices.IndexFunc(g.hands[seat], func(c models.Card) bool { return c.ID == cardID })
	if i < 0 {
		return fmt.Errorf("card %s: %w", cardID, ErrNotInHand)
	}
	c := g.hands[seat][i]
	if !CanPlay(c, g.top()) {
		return fmt.Errorf("%s on %s: %w", c, g.top(), ErrNotPlayable)
	}

	g.hands[seat] = slices.Delete(g.hands[seat], i, i+1)
	if c.Value.IsWild() {
		c.Color = models.ColorPtr(chosen)
	}
	g.discard = append(g.discard, c)
	g.events = append(g.events, models.Event{Type: models.EventCardPlayed, Seat: seat, CardID: c.ID})

	if len(g.hands[seat]) == 0 {
		g.over = true
		g.winner = seat
		g.events = append(g.events, models.Event{Type: models.EventGameEnded, Seat: seat})
		return nil
	}

	switch c.Value {
	case models.ValueSkip:
		g.advance(2)
	case models.ValueReverse:
		g.direction = g.direction.Reverse()
		if len(g.Players) == 2 {
			g.advance(2)
		} else {
			g.advance(1)
		}
	case models.ValueDrawTwo:
		g.penalize(g.next(1), 2)
		g.advance(2)
	case models.ValueWildDrawFour:
		g.penalize(g.next(1), 4)
		g.advance(2)
	default:
		g.advance(1)
	}
	return nil
}

// penalize draws n cards into seat, stopping quietly if the piles run dry.
func (g *Game) penalize(seat, n int) {
	for i := 0; i < n; i++ {
		if _, err := g.drawLocked(seat); err != nil {
			return
		}
	}
}

// Draw takes the top of the draw pile into seat's hand. The turn does not
// pass; the seat may play the drawn card or Pass.
func (g *Game) Draw(seat int) (models.Card, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.checkTurn(seat); err != nil {
		return models.Card{}, err
	}
	return g.drawLocked(seat)
}

func (g *Game) drawLocked(seat int) (models.Card, error) {
	if len(g.drawPile) == 0 {
		g.refill()
	}
	if len(g.drawPile) == 0 {
		return models.Card{}, ErrEmptyPile
	}
	c := g.drawPile[0]
	g.drawPile = g.drawPile[1:]
	g.hands[seat] = append(g.hands[seat], c)
	g.events = append(g.events, models.Event{Type: models.EventCardDrawn, Seat: seat, CardID: c.ID})
	return c, nil
}

// refill turns everything under the top discard back into a shuffled draw
// pile. Wilds lose their chosen color.
func (g *Game) refill() {
	if len(g.discard) < 2 {
		return
	}
	under := g.discard[:len(g.discard)-1]
	g.discard = []models.Card{g.top()}
	for i := range under {
		if under[i].Value.IsWild() {
			under[i].Color = nil
		}
	}
	shuffle(g.rng, under)
	g.drawPile = append(g.drawPile, under...)
}

// Pass ends seat's turn without playing.
func (g *Game) Pass(seat int) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.checkTurn(seat); err != nil {
		return err
	}
	g.advance(1)
	return nil
}

func (g *Game) next(n int) int {
	step := 1
	if g.direction == models.DirectionCounterClockwise {
		step = -1
	}
	p := len(g.Players)
	return ((g.current+step*n)%p + p) % p
}

func (g *Game) advance(n int) {
	g.current = g.next(n)
	g.events = append(g.events, models.Event{Type: models.EventTurnChanged, Seat: g.current})
}

// Auto plays one turn for the current seat: the first playable card, or a
// draw that is played if it fits, or a pass.
func (g *Game) Auto() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.over {
		return ErrGameOver
	}
	seat := g.current
	if playable := g.playableLocked(seat); len(playable) > 0 {
		return g.playLocked(seat, playable[0].ID, g.favoriteColor(seat))
	}
	c, err := g.drawLocked(seat)
	if err == nil && CanPlay(c, g.top()) {
		return g.playLocked(seat, c.ID, g.favoriteColor(seat))
	}
	g.advance(1)
	return nil
}

// favoriteColor is the color seat holds most of, red when it holds none.
func (g *Game) favoriteColor(seat int) models.Color {
	counts := make([]int, len(models.Colors))
	for _, c := range g.hands[seat] {
		if c.Color != nil {
			counts[*c.Color]++
		}
	}
	best := models.ColorRed
	for _, color := range models.Colors {
		if counts[color] > counts[best] {
			best = color
		}
	}
	return best
}

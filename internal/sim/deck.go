// internal/sim/deck.go
package sim

import (
	"math/rand"

	"github.com/google/uuid"
	"github.com/jason-s-yu/tabletop/internal/models"
)

// NewDeck builds the 108-card deck: per color one zero, two of every other
// number and two of each action card, then four wilds and four wild draw
// fours. Ids are fresh.
func NewDeck() []models.Card {
	deck := make([]models.Card, 0, 108)
	add := func(v models.Value, c *models.Color) {
		cid, _ := uuid.NewRandom()
		deck = append(deck, models.Card{ID: cid, Value: v, Color: c})
	}
	for _, color := range models.Colors {
		add(models.ValueZero, models.ColorPtr(color))
		for v := models.ValueOne; v <= models.ValueDrawTwo; v++ {
			add(v, models.ColorPtr(color))
			add(v, models.ColorPtr(color))
		}
	}
	for i := 0; i < 4; i++ {
		add(models.ValueWild, nil)
		add(models.ValueWildDrawFour, nil)
	}
	return deck
}

// shuffle permutes cards in place with r.
func shuffle(r *rand.Rand, cards []models.Card) {
	r.Shuffle(len(cards), func(i, j int) {
		cards[i], cards[j] = cards[j], cards[i]
	})
}

// CanPlay reports whether c may go on top of the discard. An unchosen wild
// on top accepts anything.
func CanPlay(c, top models.Card) bool {
	if c.Value.IsWild() || top.Color == nil {
		return true
	}
	if c.Color != nil && *c.Color == *top.Color {
		return true
	}
	return c.Value == top.Value
}

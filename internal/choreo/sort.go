package choreo

import (
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/jason-s-yu/tabletop/internal/models"
)

// compareCards orders a hand: colored cards before wilds, then by color, then
// by value. Ids break remaining ties so the order is total.
func compareCards(a, b models.Card) int {
	if aw, bw := a.Value.IsWild(), b.Value.IsWild(); aw != bw {
		if aw {
			return 1
		}
		return -1
	}
	if ac, bc := colorRank(a), colorRank(b); ac != bc {
		return ac - bc
	}
	if a.Value != b.Value {
		return int(a.Value) - int(b.Value)
	}
	return strings.Compare(a.ID.String(), b.ID.String())
}

func colorRank(c models.Card) int {
	if c.Color == nil {
		return len(models.Colors)
	}
	return int(*c.Color)
}

// SortHand returns ids in hand order. Ids the lookup does not know sort last,
// keeping their relative order.
func SortHand(ids []uuid.UUID, lookup CardLookup) []uuid.UUID {
	out := slices.Clone(ids)
	slices.SortStableFunc(out, func(a, b uuid.UUID) int {
		ca, okA := lookup.Card(a)
		cb, okB := lookup.Card(b)
		switch {
		case okA && okB:
			return compareCards(ca, cb)
		case okA:
			return -1
		case okB:
			return 1
		}
		return 0
	})
	return out
}

// InsertionIndex is where card lands in an already sorted hand: after every
// card that sorts before it.
func InsertionIndex(hand []uuid.UUID, card models.Card, lookup CardLookup) int {
	for i, id := range hand {
		held, ok := lookup.Card(id)
		if !ok || compareCards(card, held) < 0 {
			return i
		}
	}
	return len(hand)
}

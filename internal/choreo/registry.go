package choreo

import (
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/jason-s-yu/tabletop/internal/models"
)

// CardLookup resolves card ids. Known reports whether an id is an entity of
// the game at all; a step naming an unknown id is a no-op. Card returns the
// face, which face-down stand-ins do not have.
type CardLookup interface {
	Card(id uuid.UUID) (models.Card, bool)
	Known(id uuid.UUID) bool
}

// Registry is the set of cards that exist in one game. Ids are stable for the
// life of the game; a wild card's color may be filled in by a later snapshot.
//
// Besides real cards it holds face-down stand-ins: entities with no face that
// fill hands the snapshot only gives as a count.
type Registry struct {
	mu       sync.RWMutex
	order    []uuid.UUID
	cards    map[uuid.UUID]models.Card
	standIns map[uuid.UUID]bool
}

// NewRegistry builds a registry from the cards of a game, keeping first-seen order.
func NewRegistry(cards []models.Card) *Registry {
	r := &Registry{}
	r.Reset(cards)
	return r
}

// Reset replaces the whole card set, as happens when a new game starts.
func (r *Registry) Reset(cards []models.Card) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.order = make([]uuid.UUID, 0, len(cards))
	r.cards = make(map[uuid.UUID]models.Card, len(cards))
	r.standIns = make(map[uuid.UUID]bool)
	for _, c := range cards {
		r.upsertLocked(c)
	}
}

// Upsert records new cards and refreshes known ones. It returns how many ids
// were not known before.
func (r *Registry) Upsert(cards ...models.Card) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	added := 0
	for _, c := range cards {
		if r.upsertLocked(c) {
			added++
		}
	}
	return added
}

func (r *Registry) upsertLocked(c models.Card) bool {
	if c.ID == uuid.Nil || r.standIns[c.ID] {
		return false
	}
	_, known := r.cards[c.ID]
	if !known {
		r.order = append(r.order, c.ID)
	}
	r.cards[c.ID] = c
	return !known
}

func (r *Registry) Card(id uuid.UUID) (models.Card, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.cards[id]
	return c, ok
}

// Known reports whether id belongs to this game, stand-ins included.
func (r *Registry) Known(id uuid.UUID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.cards[id]
	return ok || r.standIns[id]
}

// StandIn reports whether id is a face-down stand-in.
func (r *Registry) StandIn(id uuid.UUID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.standIns[id]
}

// AddStandIns records n more face-down stand-ins and returns their ids. Ids
// derive from the game id and a running index, so two registries fed the same
// snapshots agree on them.
func (r *Registry) AddStandIns(game uuid.UUID, n int) []uuid.UUID {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]uuid.UUID, 0, n)
	for i := 0; i < n; i++ {
		id := uuid.NewSHA1(game, []byte(fmt.Sprintf("stand-in/%d", len(r.standIns))))
		r.standIns[id] = true
		r.order = append(r.order, id)
		out = append(out, id)
	}
	return out
}

// IDs returns every id in first-seen order.
func (r *Registry) IDs() []uuid.UUID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.order)
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

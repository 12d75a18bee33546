// internal/models/snapshot.go
package models

import "github.com/google/uuid"

// Direction is the order in which turns pass around the table.
type Direction string

const (
	DirectionClockwise        Direction = "clockwise"
	DirectionCounterClockwise Direction = "counter_clockwise"
)

// Reverse returns the opposite direction.
func (d Direction) Reverse() Direction {
	if d == DirectionCounterClockwise {
		return DirectionClockwise
	}
	return DirectionCounterClockwise
}

// EventType names an entry in the authoritative event log.
type EventType string

const (
	EventGameStarted EventType = "game_started"
	EventCardPlayed  EventType = "card_played"
	EventCardDrawn   EventType = "card_drawn"
	EventTurnChanged EventType = "turn_changed"
	EventGameEnded   EventType = "game_ended"
)

// Event is one entry of the discrete log delivered alongside a snapshot.
// Seat is -1 when the event is not tied to a seat.
type Event struct {
	Type   EventType `json:"type"`
	Seat   int       `json:"seat"`
	CardID uuid.UUID `json:"card_id,omitempty"`
}

// SeatSnapshot is one seat's authoritative hand. A hidden hand either still
// carries its cards, in which case only their faces are suppressed, or is
// given as a bare Count with Hand left empty.
type SeatSnapshot struct {
	Name   string `json:"name"`
	Hand   []Card `json:"hand"`
	Count  int    `json:"count,omitempty"`
	Hidden bool   `json:"hidden,omitempty"`
}

// CountOnly reports whether the hand is known only by its size.
func (s SeatSnapshot) CountOnly() bool {
	return len(s.Hand) == 0 && s.Count > 0
}

// Size is the number of cards the seat holds.
func (s SeatSnapshot) Size() int {
	if s.CountOnly() {
		return s.Count
	}
	return len(s.Hand)
}

// Snapshot is the authoritative game state pushed by the rule engine.
// Discard is ordered oldest first. DrawPile may be omitted after the first
// snapshot of a game; cards not found in any other zone are assumed to be in it.
type Snapshot struct {
	GameID        uuid.UUID      `json:"game_id"`
	CurrentPlayer string         `json:"current_player"`
	Direction     Direction      `json:"direction"`
	Phase         string         `json:"phase,omitempty"`
	Seats         []SeatSnapshot `json:"seats"`
	Discard       []Card         `json:"discard"`
	DrawPile      []Card         `json:"draw_pile,omitempty"`
	DrawCount     int            `json:"draw_count"`
	Playable      []uuid.UUID    `json:"playable,omitempty"`
	Events        []Event        `json:"events,omitempty"`
}

// AllCards returns every card the snapshot names, draw pile first, then
// hands in seat order, then the discard pile. Count-only hands name none.
func (s Snapshot) AllCards() []Card {
	out := make([]Card, 0, len(s.DrawPile)+len(s.Discard)+len(s.Seats)*8)
	out = append(out, s.DrawPile...)
	for _, seat := range s.Seats {
		out = append(out, seat.Hand...)
	}
	out = append(out, s.Discard...)
	return out
}

// DiscardTop returns the newest discard, if any.
func (s Snapshot) DiscardTop() (Card, bool) {
	if len(s.Discard) == 0 {
		return Card{}, false
	}
	return s.Discard[len(s.Discard)-1], true
}

// SeatByName returns the index of the seat with the given name, or -1.
func (s Snapshot) SeatByName(name string) int {
	for i, seat := range s.Seats {
		if seat.Name == name {
			return i
		}
	}
	return -1
}

package models

import (
	"encoding/json"

	"github.com/google/uuid"
)

// StepRecord is one committed choreography step as kept by the step journal.
// Seq counts every step a table has committed; Index restarts with each
// sequence. Step holds the step envelope as JSON.
type StepRecord struct {
	TableID   uuid.UUID       `json:"table_id"`
	GameID    uuid.UUID       `json:"game_id"`
	Seq       int64           `json:"seq"`
	Index     int             `json:"index"`
	Kind      string          `json:"kind"`
	Phase     string          `json:"phase"`
	Step      json.RawMessage `json:"step"`
	Timestamp int64           `json:"timestamp"`
}

// internal/handlers/table.go
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/tabletop/internal/auth"
	"github.com/jason-s-yu/tabletop/internal/choreo"
	"github.com/jason-s-yu/tabletop/internal/table"
)

type createTableResponse struct {
	TableID     uuid.UUID `json:"table_id"`
	FeederToken string    `json:"feeder_token"`
	ViewerToken string    `json:"viewer_token"`
}

// CreateTableHandler handles POST /table/create. It returns the new table id
// with one feeder and one viewer token.
func CreateTableHandler(s *TableServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		t := s.CreateTable()

		feeder, err := auth.CreateJWT(t.ID, auth.RoleFeeder)
		if err != nil {
			s.CloseTable(t.ID)
			http.Error(w, "failed to issue token", http.StatusInternalServerError)
			return
		}
		viewer, err := auth.CreateJWT(t.ID, auth.RoleViewer)
		if err != nil {
			s.CloseTable(t.ID)
			http.Error(w, "failed to issue token", http.StatusInternalServerError)
			return
		}
		s.Logger.WithField("table_id", t.ID).Info("table created")
		writeJSON(w, http.StatusCreated, createTableResponse{
			TableID:     t.ID,
			FeederToken: feeder,
			ViewerToken: viewer,
		})
	}
}

type tableSummary struct {
	TableID     uuid.UUID    `json:"table_id"`
	GameID      uuid.UUID    `json:"game_id"`
	Phase       choreo.Phase `json:"phase"`
	Animating   bool         `json:"animating"`
	DemoRunning bool         `json:"demo_running"`
	Viewers     int          `json:"viewers"`
	CreatedAt   time.Time    `json:"created_at"`
}

// ListTablesHandler handles GET /table/list.
func ListTablesHandler(s *TableServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		tables := s.Store.List()
		out := make([]tableSummary, 0, len(tables))
		for _, t := range tables {
			sum := tableSummary{
				TableID:     t.ID,
				GameID:      t.GameID(),
				Phase:       t.Choreographer.State().Phase,
				Animating:   t.Choreographer.Animating(),
				DemoRunning: t.DemoRunning(),
				CreatedAt:   t.CreatedAt,
			}
			if hub := s.hub(t.ID); hub != nil {
				sum.Viewers = hub.size()
			}
			out = append(out, sum)
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// TimelineHandler handles GET /table/timeline/{id}: every frame of the
// current game's initial deal. Viewers get masked frames.
func TimelineHandler(s *TableServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		t, claims, ok := s.authorize(w, r, "/table/timeline/", auth.RoleViewer)
		if !ok {
			return
		}
		frames, ok := t.Timeline(s.Geometry)
		if !ok {
			http.Error(w, "table has no game yet", http.StatusConflict)
			return
		}
		if claims.Role != auth.RoleFeeder {
			for i := range frames {
				frames[i] = frames[i].Masked()
			}
		}
		writeJSON(w, http.StatusOK, frames)
	}
}

type demoRequest struct {
	Players    []string `json:"players"`
	Seed       *int64   `json:"seed"`
	IntervalMs int      `json:"interval_ms"`
}

// DemoHandler handles /table/demo/{id}. POST starts a simulated game feeding
// the table, DELETE stops it. Feeder only.
func DemoHandler(s *TableServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost && r.Method != http.MethodDelete {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		t, _, ok := s.authorize(w, r, "/table/demo/", auth.RoleFeeder)
		if !ok {
			return
		}
		if r.Method == http.MethodDelete {
			t.StopDemo()
			w.WriteHeader(http.StatusNoContent)
			return
		}

		var req demoRequest
		if r.ContentLength != 0 {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, "invalid JSON", http.StatusBadRequest)
				return
			}
		}
		if len(req.Players) == 0 {
			req.Players = []string{"north", "east", "south", "west"}
		}
		if len(req.Players) < 2 || len(req.Players) > 10 {
			http.Error(w, "a demo needs 2 to 10 players", http.StatusBadRequest)
			return
		}
		seed := time.Now().UnixNano()
		if req.Seed != nil {
			seed = *req.Seed
		}
		interval := 1500 * time.Millisecond
		if req.IntervalMs > 0 {
			interval = time.Duration(req.IntervalMs) * time.Millisecond
		}

		viewer := s.Geometry.LocalSeat
		if viewer >= len(req.Players) {
			viewer = 0
		}
		err := t.StartDemo(s.ctx, req.Players, seed, viewer, interval)
		switch {
		case errors.Is(err, table.ErrDemoRunning):
			http.Error(w, "demo already running", http.StatusConflict)
			return
		case err != nil:
			http.Error(w, fmt.Sprintf("failed to start demo: %v", err), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]interface{}{
			"game_id": t.GameID(),
			"seed":    seed,
		})
	}
}

// CloseTableHandler handles POST /table/close/{id}. Feeder only.
func CloseTableHandler(s *TableServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		t, _, ok := s.authorize(w, r, "/table/close/", auth.RoleFeeder)
		if !ok {
			return
		}
		s.CloseTable(t.ID)
		s.Logger.WithField("table_id", t.ID).Info("table closed")
		w.WriteHeader(http.StatusNoContent)
	}
}

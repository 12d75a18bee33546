// internal/handlers/table_ws.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/jason-s-yu/tabletop/internal/auth"
	"github.com/jason-s-yu/tabletop/internal/choreo"
	"github.com/jason-s-yu/tabletop/internal/middleware"
	"github.com/jason-s-yu/tabletop/internal/models"
	"github.com/jason-s-yu/tabletop/internal/table"
	"github.com/sirupsen/logrus"
)

// TableMessage is an inbound websocket message. Only feeders may send
// anything other than ping.
type TableMessage struct {
	Type string `json:"type"`

	// Snapshot is set for "snapshot".
	Snapshot *models.Snapshot `json:"snapshot,omitempty"`
	// Exact is set for "exact" and toggles resync-per-snapshot mode.
	Exact *bool `json:"exact,omitempty"`
}

// TableWSHandler upgrades GET /table/ws/{id}. The connection first receives
// the current frame, then one frame per commit.
func TableWSHandler(s *TableServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t, claims, ok := s.authorize(w, r, "/table/ws/", auth.RoleViewer)
		if !ok {
			return
		}
		hub := s.hub(t.ID)
		if hub == nil {
			http.Error(w, "table not found", http.StatusNotFound)
			return
		}

		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{"table"},
			OriginPatterns: []string{"*"},
		})
		if err != nil {
			s.Logger.Warnf("WebSocket accept error for table %s: %v", t.ID, err)
			return
		}
		defer c.Close(websocket.StatusInternalError, "internal server error")

		if c.Subprotocol() != "table" {
			c.Close(BadSubprotocolError, "client must use the 'table' subprotocol")
			return
		}
		middleware.LogWebSocketConnect(s.Logger, r.RemoteAddr, t.ID.String(), string(claims.Role))

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		client := newWSClient(c, claims.Role)
		hub.add(client)
		defer hub.remove(client)

		// the client is in the hub before the frame is read, so a broadcast
		// racing the join is either newer than it or replaces nothing
		f := t.Frame()
		if claims.Role != auth.RoleFeeder {
			f = f.Masked()
		}
		if msg, err := encodeFrame(f); err == nil {
			client.offerInitial(msg)
		}

		go func() {
			if err := client.writeLoop(ctx); err != nil && ctx.Err() == nil {
				s.Logger.WithError(err).WithField("table_id", t.ID).Debug("frame write failed")
			}
			cancel()
		}()

		err = readTableMessages(ctx, c, t, claims, s.Logger)
		middleware.LogWebSocketDisconnect(s.Logger, r.RemoteAddr, t.ID.String(), err)
		c.Close(websocket.StatusNormalClosure, "")
	}
}

// readTableMessages handles inbound messages until the connection fails or
// ctx ends. Clean closes return nil.
func readTableMessages(ctx context.Context, c *websocket.Conn, t *table.Table, claims auth.Claims, logger *logrus.Logger) error {
	log := logger.WithFields(logrus.Fields{"table_id": t.ID, "role": claims.Role})
	for {
		msgType, data, err := c.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway || ctx.Err() != nil {
				return nil
			}
			return err
		}
		if msgType != websocket.MessageText {
			log.Warn("ignoring non-text message")
			continue
		}
		if claims.ExpiresAt != nil && time.Now().After(claims.ExpiresAt.Time) {
			c.Close(InvalidAuthTokenError, "token expired")
			return nil
		}

		var msg TableMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			sendWsError(ctx, c, "Invalid JSON format.")
			continue
		}
		log.Debugf("received %q", msg.Type)

		if msg.Type == "ping" {
			sendWsMessage(ctx, c, map[string]string{"type": "pong"})
			continue
		}
		if claims.Role != auth.RoleFeeder {
			sendWsError(ctx, c, "viewers cannot control the table")
			continue
		}

		switch msg.Type {
		case "snapshot":
			if msg.Snapshot == nil {
				sendWsError(ctx, c, "snapshot message without snapshot")
				continue
			}
			if err := t.Push(*msg.Snapshot); err != nil {
				if errors.Is(err, choreo.ErrDisposed) {
					c.Close(TableClosedError, "table closed")
					return nil
				}
				sendWsError(ctx, c, err.Error())
			}
		case "resync":
			t.Choreographer.Resync()
		case "reset":
			t.Choreographer.Reset()
		case "exact":
			if msg.Exact == nil {
				sendWsError(ctx, c, "exact message without exact flag")
				continue
			}
			t.Choreographer.SetExact(*msg.Exact)
		default:
			sendWsError(ctx, c, fmt.Sprintf("Unknown message type: %s", msg.Type))
		}
	}
}

// sendWsMessage marshals message and writes it with a timeout.
func sendWsMessage(ctx context.Context, c *websocket.Conn, message interface{}) {
	data, err := json.Marshal(message)
	if err != nil {
		return
	}
	writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	_ = c.Write(writeCtx, websocket.MessageText, data)
}

func sendWsError(ctx context.Context, c *websocket.Conn, message string) {
	sendWsMessage(ctx, c, map[string]string{"type": "error", "message": message})
}

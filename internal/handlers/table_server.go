// internal/handlers/table_server.go
package handlers

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/jason-s-yu/tabletop/internal/auth"
	"github.com/jason-s-yu/tabletop/internal/choreo"
	"github.com/jason-s-yu/tabletop/internal/layout"
	"github.com/jason-s-yu/tabletop/internal/table"
	"github.com/sirupsen/logrus"
)

// TableServer hosts tables and the websocket clients watching them.
type TableServer struct {
	Store    *table.TableStore
	Logger   *logrus.Logger
	Geometry layout.Geometry
	Delays   choreo.DelayTable
	Journal  table.Journal

	// ctx outlives requests; demo feeds run under it.
	ctx    context.Context
	cancel context.CancelFunc

	mu   sync.Mutex
	hubs map[uuid.UUID]*tableHub
}

// NewTableServer builds a server with an empty store. A nil delay table uses
// the default delays.
func NewTableServer(logger *logrus.Logger, g layout.Geometry, delays choreo.DelayTable, journal table.Journal) *TableServer {
	ctx, cancel := context.WithCancel(context.Background())
	return &TableServer{
		Store:    table.NewTableStore(),
		Logger:   logger,
		Geometry: g,
		Delays:   delays,
		Journal:  journal,
		ctx:      ctx,
		cancel:   cancel,
		hubs:     make(map[uuid.UUID]*tableHub),
	}
}

// CreateTable registers a new table and wires its frames to a hub.
func (s *TableServer) CreateTable() *table.Table {
	hub := &tableHub{clients: make(map[*wsClient]struct{}), logger: s.Logger}
	t := table.New(uuid.New(), table.Options{
		Geometry: s.Geometry,
		Delays:   s.Delays,
		Journal:  s.Journal,
		Logger:   logrus.NewEntry(s.Logger),
	})
	t.SetBroadcast(hub.broadcast)

	s.mu.Lock()
	s.hubs[t.ID] = hub
	s.mu.Unlock()
	s.Store.Add(t)
	return t
}

// CloseTable drops a table and disconnects its clients.
func (s *TableServer) CloseTable(id uuid.UUID) {
	s.Store.Delete(id)
	s.mu.Lock()
	hub := s.hubs[id]
	delete(s.hubs, id)
	s.mu.Unlock()
	if hub != nil {
		hub.closeAll()
	}
}

func (s *TableServer) hub(id uuid.UUID) *tableHub {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hubs[id]
}

// Shutdown stops demo feeds and closes every table.
func (s *TableServer) Shutdown() {
	s.cancel()
	for _, t := range s.Store.List() {
		s.CloseTable(t.ID)
	}
}

// frameMessage is the outbound form of a frame.
type frameMessage struct {
	Type string `json:"type"`
	choreo.Frame
}

func encodeFrame(f choreo.Frame) ([]byte, error) {
	return json.Marshal(frameMessage{Type: "frame", Frame: f})
}

type tableHub struct {
	logger *logrus.Logger

	mu      sync.Mutex
	clients map[*wsClient]struct{}
}

func (h *tableHub) add(c *wsClient) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

func (h *tableHub) remove(c *wsClient) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
}

func (h *tableHub) size() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// broadcast hands f to every client. Feeders get the full frame, viewers the
// masked one.
func (h *tableHub) broadcast(f choreo.Frame) {
	h.mu.Lock()
	clients := make([]*wsClient, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()
	if len(clients) == 0 {
		return
	}

	var full, masked []byte
	for _, c := range clients {
		var err error
		if c.role == auth.RoleFeeder {
			if full == nil {
				full, err = encodeFrame(f)
			}
			c.offer(full)
		} else {
			if masked == nil {
				masked, err = encodeFrame(f.Masked())
			}
			c.offer(masked)
		}
		if err != nil {
			h.logger.WithError(err).Error("failed to encode frame")
			return
		}
	}
}

func (h *tableHub) closeAll() {
	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[*wsClient]struct{})
	h.mu.Unlock()
	for c := range clients {
		c.conn.Close(websocket.StatusGoingAway, "table closed")
	}
}

// wsClient keeps only the newest undelivered frame; frames carry the whole
// table, so a slow reader skips intermediate ones instead of queueing them.
type wsClient struct {
	conn *websocket.Conn
	role auth.Role

	mu      sync.Mutex
	next    []byte
	offered bool
	wake    chan struct{}
}

func newWSClient(conn *websocket.Conn, role auth.Role) *wsClient {
	return &wsClient{conn: conn, role: role, wake: make(chan struct{}, 1)}
}

func (c *wsClient) offer(msg []byte) {
	if msg == nil {
		return
	}
	c.mu.Lock()
	c.next = msg
	c.offered = true
	c.mu.Unlock()
	c.notify()
}

// offerInitial queues the frame read when the client joined. A broadcast
// that got in first is at least as new, so it is kept instead.
func (c *wsClient) offerInitial(msg []byte) {
	if msg == nil {
		return
	}
	c.mu.Lock()
	if c.offered {
		c.mu.Unlock()
		return
	}
	c.next = msg
	c.offered = true
	c.mu.Unlock()
	c.notify()
}

func (c *wsClient) notify() {
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// writeLoop delivers offered frames until ctx ends or a write fails.
func (c *wsClient) writeLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.wake:
		}
		c.mu.Lock()
		msg := c.next
		c.next = nil
		c.mu.Unlock()
		if msg == nil {
			continue
		}
		writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := c.conn.Write(writeCtx, websocket.MessageText, msg)
		cancel()
		if err != nil {
			return err
		}
	}
}

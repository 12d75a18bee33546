// internal/handlers/table_test.go
package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/jason-s-yu/tabletop/internal/auth"
	"github.com/jason-s-yu/tabletop/internal/choreo"
	"github.com/jason-s-yu/tabletop/internal/layout"
	"github.com/jason-s-yu/tabletop/internal/sim"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestServer runs the table routes with instant sequences.
func setupTestServer(t *testing.T) (*TableServer, *httptest.Server) {
	t.Helper()
	require.NoError(t, auth.Init(time.Hour))
	logger, _ := test.NewNullLogger()

	s := NewTableServer(logger, layout.Geometry{LocalSeat: 0}, choreo.DefaultDelays().Scaled(0), nil)
	srv := httptest.NewServer(Routes(s))
	t.Cleanup(func() {
		s.Shutdown()
		srv.Close()
	})
	return s, srv
}

func createTable(t *testing.T, srv *httptest.Server) createTableResponse {
	t.Helper()
	resp, err := http.Post(srv.URL+"/table/create", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var out createTableResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func dial(t *testing.T, srv *httptest.Server, tableID uuid.UUID, token string) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/table/ws/" + tableID.String() + "?token=" + token
	c, _, err := websocket.Dial(ctx, url, &websocket.DialOptions{Subprotocols: []string{"table"}})
	require.NoError(t, err)
	c.SetReadLimit(1 << 22)
	t.Cleanup(func() { c.Close(websocket.StatusNormalClosure, "") })
	return c
}

type inbound struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	choreo.Frame
}

// readUntil reads messages until match accepts one.
func readUntil(t *testing.T, c *websocket.Conn, match func(inbound) bool) inbound {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for {
		_, data, err := c.Read(ctx)
		require.NoError(t, err)
		var msg inbound
		require.NoError(t, json.Unmarshal(data, &msg))
		if match(msg) {
			return msg
		}
	}
}

func send(t *testing.T, c *websocket.Conn, v interface{}) {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	require.NoError(t, c.Write(ctx, websocket.MessageText, data))
}

func authedRequest(t *testing.T, method, url, token string, body []byte) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, bytes.NewReader(body))
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestCreateTableIssuesTokens(t *testing.T) {
	s, srv := setupTestServer(t)
	out := createTable(t, srv)

	_, err := s.Store.Get(out.TableID)
	require.NoError(t, err)

	feeder, err := auth.AuthenticateJWT(out.FeederToken)
	require.NoError(t, err)
	assert.Equal(t, auth.RoleFeeder, feeder.Role)
	assert.Equal(t, out.TableID, feeder.TableID)

	viewer, err := auth.AuthenticateJWT(out.ViewerToken)
	require.NoError(t, err)
	assert.Equal(t, auth.RoleViewer, viewer.Role)
}

func TestCreateTableRejectsGet(t *testing.T) {
	_, srv := setupTestServer(t)
	resp := authedRequest(t, http.MethodGet, srv.URL+"/table/create", "", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestTimelineAccess(t *testing.T) {
	_, srv := setupTestServer(t)
	a := createTable(t, srv)
	b := createTable(t, srv)
	url := srv.URL + "/table/timeline/" + a.TableID.String()

	assert.Equal(t, http.StatusUnauthorized, authedRequest(t, http.MethodGet, url, "", nil).StatusCode)
	assert.Equal(t, http.StatusUnauthorized, authedRequest(t, http.MethodGet, url, "garbage", nil).StatusCode)
	assert.Equal(t, http.StatusForbidden, authedRequest(t, http.MethodGet, url, b.ViewerToken, nil).StatusCode)
	assert.Equal(t, http.StatusConflict, authedRequest(t, http.MethodGet, url, a.ViewerToken, nil).StatusCode)
	assert.Equal(t, http.StatusBadRequest, authedRequest(t, http.MethodGet, srv.URL+"/table/timeline/nope", a.ViewerToken, nil).StatusCode)
	assert.Equal(t, http.StatusNotFound, authedRequest(t, http.MethodGet, srv.URL+"/table/timeline/"+uuid.NewString(), a.ViewerToken, nil).StatusCode)
}

func TestFeederDrivesViewers(t *testing.T) {
	_, srv := setupTestServer(t)
	tbl := createTable(t, srv)

	feeder := dial(t, srv, tbl.TableID, tbl.FeederToken)
	viewer := dial(t, srv, tbl.TableID, tbl.ViewerToken)

	first := readUntil(t, viewer, func(m inbound) bool { return m.Type == "frame" })
	assert.Empty(t, first.Targets)

	g := sim.New([]string{"ana", "bo", "cy"}, 11)
	send(t, feeder, TableMessage{Type: "snapshot", Snapshot: ptr(g.Snapshot(0))})

	dealt := func(m inbound) bool {
		return m.Type == "frame" && len(m.Targets) == 108 && m.Phase == choreo.PhasePlaying
	}
	vf := readUntil(t, viewer, dealt)
	ff := readUntil(t, feeder, dealt)
	assert.Equal(t, "ana", vf.CurrentPlayer)

	for _, tg := range vf.Targets {
		if tg.Placement.FaceUp {
			assert.NotNil(t, tg.Face, "face-up card %s", tg.CardID)
		} else {
			assert.Nil(t, tg.Face, "face-down card %s leaked to viewer", tg.CardID)
		}
	}
	for _, tg := range ff.Targets {
		assert.NotNil(t, tg.Face)
	}

	// timeline is available once a game is on the table
	resp := authedRequest(t, http.MethodGet, srv.URL+"/table/timeline/"+tbl.TableID.String(), tbl.ViewerToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var frames []choreo.Frame
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&frames))
	assert.Len(t, frames, len(choreo.BuildInitialDeal(g.Snapshot(0)))+1)
}

func TestViewerCannotControl(t *testing.T) {
	_, srv := setupTestServer(t)
	tbl := createTable(t, srv)
	viewer := dial(t, srv, tbl.TableID, tbl.ViewerToken)

	send(t, viewer, TableMessage{Type: "reset"})
	msg := readUntil(t, viewer, func(m inbound) bool { return m.Type == "error" })
	assert.Contains(t, msg.Message, "viewers")

	send(t, viewer, map[string]string{"type": "ping"})
	readUntil(t, viewer, func(m inbound) bool { return m.Type == "pong" })
}

func TestFeederControlMessages(t *testing.T) {
	s, srv := setupTestServer(t)
	tbl := createTable(t, srv)
	feeder := dial(t, srv, tbl.TableID, tbl.FeederToken)

	send(t, feeder, TableMessage{Type: "snapshot"})
	readUntil(t, feeder, func(m inbound) bool { return m.Type == "error" })
	send(t, feeder, TableMessage{Type: "dance"})
	msg := readUntil(t, feeder, func(m inbound) bool { return m.Type == "error" })
	assert.Contains(t, msg.Message, "dance")

	g := sim.New([]string{"ana", "bo"}, 4)
	send(t, feeder, TableMessage{Type: "snapshot", Snapshot: ptr(g.Snapshot(0))})
	readUntil(t, feeder, func(m inbound) bool { return m.Phase == choreo.PhasePlaying && len(m.Targets) == 108 })

	send(t, feeder, TableMessage{Type: "reset"})
	readUntil(t, feeder, func(m inbound) bool { return m.Type == "frame" && m.Phase == choreo.PhaseIdle })

	tb, err := s.Store.Get(tbl.TableID)
	require.NoError(t, err)
	for _, id := range tb.Choreographer.State().Hands {
		assert.Empty(t, id)
	}
}

func TestBadSubprotocol(t *testing.T) {
	_, srv := setupTestServer(t)
	tbl := createTable(t, srv)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/table/ws/" + tbl.TableID.String() + "?token=" + tbl.ViewerToken
	c, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	defer c.CloseNow()

	_, _, err = c.Read(ctx)
	assert.Equal(t, websocket.StatusCode(BadSubprotocolError), websocket.CloseStatus(err))
}

func TestDemoLifecycle(t *testing.T) {
	s, srv := setupTestServer(t)
	tbl := createTable(t, srv)
	url := srv.URL + "/table/demo/" + tbl.TableID.String()
	body := []byte(`{"players":["ana","bo"],"seed":9,"interval_ms":5}`)

	assert.Equal(t, http.StatusForbidden, authedRequest(t, http.MethodPost, url, tbl.ViewerToken, body).StatusCode)
	assert.Equal(t, http.StatusBadRequest, authedRequest(t, http.MethodPost, url, tbl.FeederToken, []byte(`{"players":["solo"]}`)).StatusCode)

	require.Equal(t, http.StatusAccepted, authedRequest(t, http.MethodPost, url, tbl.FeederToken, body).StatusCode)
	assert.Equal(t, http.StatusConflict, authedRequest(t, http.MethodPost, url, tbl.FeederToken, body).StatusCode)

	tb, err := s.Store.Get(tbl.TableID)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, tb.GameID())

	resp := authedRequest(t, http.MethodGet, srv.URL+"/table/list", "", nil)
	var list []tableSummary
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	require.Len(t, list, 1)
	assert.Equal(t, tbl.TableID, list[0].TableID)

	assert.Equal(t, http.StatusNoContent, authedRequest(t, http.MethodDelete, url, tbl.FeederToken, nil).StatusCode)
	assert.False(t, tb.DemoRunning())
}

func TestCloseTableDisconnects(t *testing.T) {
	s, srv := setupTestServer(t)
	tbl := createTable(t, srv)
	viewer := dial(t, srv, tbl.TableID, tbl.ViewerToken)
	readUntil(t, viewer, func(m inbound) bool { return m.Type == "frame" })

	resp := authedRequest(t, http.MethodPost, srv.URL+"/table/close/"+tbl.TableID.String(), tbl.FeederToken, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	_, err := s.Store.Get(tbl.TableID)
	assert.Error(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	_, _, err = viewer.Read(ctx)
	assert.Equal(t, websocket.StatusGoingAway, websocket.CloseStatus(err))
}

func ptr[T any](v T) *T { return &v }

func pendingFrame(t *testing.T, c *wsClient) choreo.Frame {
	t.Helper()
	c.mu.Lock()
	msg := c.next
	c.mu.Unlock()
	require.NotNil(t, msg, "nothing queued")
	var out choreo.Frame
	require.NoError(t, json.Unmarshal(msg, &out))
	return out
}

func TestJoinFrameDoesNotOverwriteBroadcast(t *testing.T) {
	logger, _ := test.NewNullLogger()
	s := NewTableServer(logger, layout.Geometry{LocalSeat: 0}, choreo.DefaultDelays().Scaled(0), nil)
	t.Cleanup(s.Shutdown)
	tbl := s.CreateTable()
	hub := s.hub(tbl.ID)

	client := newWSClient(nil, auth.RoleViewer)
	hub.add(client)
	t.Cleanup(func() { hub.remove(client) })

	// the join reads the idle frame, then a snapshot lands before it is queued
	initial := tbl.Frame()
	require.Equal(t, choreo.PhaseIdle, initial.Phase)
	require.NoError(t, tbl.Push(sim.New([]string{"ana", "bo"}, 5).Snapshot(0)))

	msg, err := encodeFrame(initial.Masked())
	require.NoError(t, err)
	client.offerInitial(msg)

	f := pendingFrame(t, client)
	assert.Equal(t, choreo.PhasePlaying, f.Phase)
	assert.Greater(t, f.Step, initial.Step)
}

func TestJoinFrameQueuedWhenNothingElseIs(t *testing.T) {
	client := newWSClient(nil, auth.RoleViewer)
	msg, err := encodeFrame(choreo.Frame{Phase: choreo.PhaseIdle})
	require.NoError(t, err)

	client.offerInitial(msg)
	assert.Equal(t, choreo.PhaseIdle, pendingFrame(t, client).Phase)
	assert.Len(t, client.wake, 1)

	later, err := encodeFrame(choreo.Frame{Phase: choreo.PhasePlaying, Step: 3})
	require.NoError(t, err)
	client.offer(later)
	assert.Equal(t, choreo.PhasePlaying, pendingFrame(t, client).Phase, "broadcasts always replace the pending frame")
}

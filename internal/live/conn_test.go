package live_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"yuva/server/internal/live"
)

type testServer struct {
	url     string
	queries chan string
	conns   chan *live.Conn
	ended   chan struct{}
}

func newTestServer(t *testing.T) *testServer {
	ts := &testServer{
		queries: make(chan string, 4),
		conns:   make(chan *live.Conn, 1),
		ended:   make(chan struct{}),
	}
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conn := live.NewConn(ws, zap.NewNop())
		conn.OnQuery(func(q string) { ts.queries <- q })
		ts.conns <- conn
		conn.Run()
		close(ts.ended)
	}))
	t.Cleanup(srv.Close)
	ts.url = "ws" + strings.TrimPrefix(srv.URL, "http")
	return ts
}

func dial(t *testing.T, url string) *websocket.Conn {
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { ws.Close() })
	return ws
}

func readEvent(t *testing.T, ws *websocket.Conn) map[string]any {
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, raw, err := ws.ReadMessage()
	require.NoError(t, err)
	var event map[string]any
	require.NoError(t, json.Unmarshal(raw, &event))
	return event
}

func TestConn_HeartbeatIsAcknowledged(t *testing.T) {
	ts := newTestServer(t)
	ws := dial(t, ts.url)

	require.NoError(t, ws.WriteJSON(live.Event{Op: live.OpHeartbeat}))

	event := readEvent(t, ws)
	assert.Equal(t, live.OpHeartbeatAck, event["op"])
}

func TestConn_QueryReachesHandler(t *testing.T) {
	ts := newTestServer(t)
	ws := dial(t, ts.url)

	require.NoError(t, ws.WriteJSON(live.Event{Op: live.OpQuery, Data: live.QueryData{Q: "kedi"}}))

	select {
	case q := <-ts.queries:
		assert.Equal(t, "kedi", q)
	case <-time.After(2 * time.Second):
		t.Fatal("query not delivered")
	}
}

func TestConn_InvalidFramesAreIgnored(t *testing.T) {
	ts := newTestServer(t)
	ws := dial(t, ts.url)

	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte("not json")))
	require.NoError(t, ws.WriteJSON(live.Event{Op: "bogus"}))
	require.NoError(t, ws.WriteJSON(live.Event{Op: live.OpHeartbeat}))

	event := readEvent(t, ws)
	assert.Equal(t, live.OpHeartbeatAck, event["op"])
}

func TestConn_SendDeliversSequencedFrames(t *testing.T) {
	ts := newTestServer(t)
	ws := dial(t, ts.url)
	conn := <-ts.conns

	conn.Send(live.OpListings, map[string]any{"loading": true})
	conn.Send(live.OpListings, map[string]any{"loading": false})

	first := readEvent(t, ws)
	second := readEvent(t, ws)
	assert.Equal(t, live.OpListings, first["op"])
	assert.Equal(t, true, first["d"].(map[string]any)["loading"])
	assert.Equal(t, false, second["d"].(map[string]any)["loading"])
	assert.Less(t, first["seq"].(float64), second["seq"].(float64))
}

func TestConn_RunEndsWhenClientLeaves(t *testing.T) {
	ts := newTestServer(t)
	ws := dial(t, ts.url)
	conn := <-ts.conns

	require.NoError(t, ws.Close())

	select {
	case <-ts.ended:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return")
	}
	select {
	case <-conn.Done():
	default:
		t.Fatal("connection not marked done")
	}

	// Sending after close is a no-op.
	conn.Send(live.OpInbox, nil)
}

package feed

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/freeeve/gridpursuit/internal/train"
)

func dialHub(t *testing.T, h *Hub) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { ws.Close() })
	// Registration happens just after the handshake; give it a moment.
	time.Sleep(50 * time.Millisecond)
	return ws
}

func readEvent(t *testing.T, ws *websocket.Conn) Event {
	t.Helper()
	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := ws.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var ev Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		t.Fatalf("unmarshal %q: %v", payload, err)
	}
	return ev
}

func TestHub_BroadcastsIterations(t *testing.T) {
	h := NewHub()
	ws := dialHub(t, h)

	h.ObserveIteration(train.IterationStats{Iteration: 7, MaxValueDelta: 0.25, ChangedActions: 12})

	ev := readEvent(t, ws)
	if ev.Type != EventIteration {
		t.Fatalf("event type: got %q", ev.Type)
	}
	data, ok := ev.Data.(map[string]any)
	if !ok {
		t.Fatalf("event data: got %T", ev.Data)
	}
	if data["iteration"] != float64(7) {
		t.Errorf("iteration: got %v", data["iteration"])
	}
	if data["changed_actions"] != float64(12) {
		t.Errorf("changed actions: got %v", data["changed_actions"])
	}
}

func TestHub_FinishClosesConnections(t *testing.T) {
	h := NewHub()
	ws := dialHub(t, h)

	h.Finish("converged", train.IterationStats{Iteration: 3})

	ev := readEvent(t, ws)
	if ev.Type != EventFinished {
		t.Fatalf("event type: got %q", ev.Type)
	}
	data, ok := ev.Data.(map[string]any)
	if !ok {
		t.Fatalf("event data: got %T", ev.Data)
	}
	if data["outcome"] != "converged" {
		t.Errorf("outcome: got %v", data["outcome"])
	}

	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := ws.ReadMessage(); err == nil {
		t.Error("connection should close after the finished event")
	}
}

func TestHub_BroadcastWithoutSubscribers(t *testing.T) {
	h := NewHub()
	// Nothing to assert beyond not panicking or blocking.
	h.ObserveIteration(train.IterationStats{Iteration: 1})
	h.Finish("converged", train.IterationStats{Iteration: 1})
}

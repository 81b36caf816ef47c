package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/wricardo/ludo-arena/game/gameerr"
	"github.com/wricardo/ludo-arena/game/service"
	"github.com/wricardo/ludo-arena/game/syncer"
)

func quietLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// fakeActions records the calls a socket makes
type fakeActions struct {
	mu      sync.Mutex
	calls   []string
	ids     []string
	moveErr error
}

func (f *fakeActions) record(ctx context.Context, call string) (*service.ActionResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
	f.ids = append(f.ids, service.ActionIDFromContext(ctx))
	return &service.ActionResult{}, nil
}

func (f *fakeActions) Join(ctx context.Context, gameID, playerID string) (*service.ActionResult, error) {
	return f.record(ctx, "join:"+playerID)
}

func (f *fakeActions) Start(ctx context.Context, gameID, playerID string) (*service.ActionResult, error) {
	return f.record(ctx, "start:"+playerID)
}

func (f *fakeActions) Roll(ctx context.Context, gameID, playerID string) (*service.ActionResult, error) {
	return f.record(ctx, "roll:"+playerID)
}

func (f *fakeActions) Move(ctx context.Context, gameID, playerID string, pawnIndex int) (*service.ActionResult, error) {
	if f.moveErr != nil {
		return nil, f.moveErr
	}
	return f.record(ctx, "move:"+playerID)
}

func (f *fakeActions) Resign(ctx context.Context, gameID, playerID string) (*service.ActionResult, error) {
	return f.record(ctx, "resign:"+playerID)
}

func (f *fakeActions) Pass(ctx context.Context, gameID, playerID string) (*service.ActionResult, error) {
	return f.record(ctx, "pass:"+playerID)
}

func (f *fakeActions) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func newTestClient(hub *Hub, gameID, playerID string) *Client {
	return &Client{
		hub:      hub,
		gameID:   gameID,
		playerID: playerID,
		send:     make(chan []byte, sendBuffer),
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("Condition not met within timeout")
}

func readEvent(t *testing.T, ch <-chan []byte) syncer.Event {
	t.Helper()
	select {
	case data := <-ch:
		var ev syncer.Event
		if err := json.Unmarshal(data, &ev); err != nil {
			t.Fatalf("Failed to unmarshal event: %v", err)
		}
		return ev
	case <-time.After(time.Second):
		t.Fatal("No message received within timeout")
	}
	return syncer.Event{}
}

func startHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub(WithLogger(quietLogger()))
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(cancel)
	return hub
}

func TestNewHub(t *testing.T) {
	hub := NewHub()

	if hub == nil {
		t.Fatal("NewHub() returned nil")
	}
	if hub.games == nil {
		t.Error("Hub games map is nil")
	}
	if hub.presence == nil {
		t.Error("Hub presence registry is nil")
	}
}

func TestHubRegisterClient(t *testing.T) {
	hub := NewHub(WithLogger(quietLogger()))
	client := newTestClient(hub, "g1", "ana")

	hub.registerClient(client)

	if hub.ClientCount("g1") != 1 {
		t.Errorf("Expected 1 client in game, got %d", hub.ClientCount("g1"))
	}
	if !hub.presence.IsOnline("g1", "ana") {
		t.Error("Player should be online after registering")
	}
}

func TestHubUnregisterClient(t *testing.T) {
	hub := NewHub(WithLogger(quietLogger()))
	client := newTestClient(hub, "g1", "ana")

	hub.registerClient(client)
	hub.unregisterClient(client)

	if _, exists := hub.games["g1"]; exists {
		t.Error("Game should have been cleaned up after last client unregistered")
	}
	if hub.presence.IsOnline("g1", "ana") {
		t.Error("Player should be offline")
	}
	if _, ok := <-client.send; ok {
		t.Error("Send channel should be closed")
	}

	// second unregister is a no-op
	hub.unregisterClient(client)
}

func TestHubPlayerDisconnected(t *testing.T) {
	hub := NewHub(WithLogger(quietLogger()))
	ana1 := newTestClient(hub, "g1", "ana")
	ana2 := newTestClient(hub, "g1", "ana")
	bo := newTestClient(hub, "g1", "bo")

	hub.registerClient(ana1)
	hub.registerClient(ana2)
	hub.registerClient(bo)

	// ana still has a socket open
	hub.unregisterClient(ana1)
	select {
	case <-bo.send:
		t.Fatal("No disconnect event expected while another socket is open")
	default:
	}

	hub.unregisterClient(ana2)
	ev := readEvent(t, bo.send)
	if ev.Name != syncer.EventPlayerDisconnected {
		t.Fatalf("Expected %s, got %s", syncer.EventPlayerDisconnected, ev.Name)
	}
	var data syncer.PlayerDisconnectedData
	if err := ev.Decode(&data); err != nil {
		t.Fatal(err)
	}
	if data.PlayerID != "ana" {
		t.Errorf("Expected ana, got %s", data.PlayerID)
	}
}

func TestHubBroadcast(t *testing.T) {
	hub := startHub(t)
	inGame := newTestClient(hub, "g1", "ana")
	otherGame := newTestClient(hub, "g2", "bo")
	hub.register <- inGame
	hub.register <- otherGame

	ev, err := syncer.NewEvent(syncer.EventDiceRolled, "g1", 4, syncer.DiceRolledData{GameID: "g1", PlayerID: "ana", Value: 6, Version: 4})
	if err != nil {
		t.Fatal(err)
	}
	hub.Broadcast("g1", ev)

	got := readEvent(t, inGame.send)
	if got.Name != syncer.EventDiceRolled || got.Version != 4 {
		t.Errorf("Unexpected event %+v", got)
	}

	select {
	case <-otherGame.send:
		t.Error("Client in another game should not receive the event")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHubBroadcastNeverBlocks(t *testing.T) {
	hub := NewHub(WithLogger(quietLogger()))
	ev := syncer.PlayerDisconnected("g1", "ana")

	done := make(chan struct{})
	go func() {
		for i := 0; i < sendBuffer*2; i++ {
			hub.Broadcast("g1", ev)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Broadcast blocked without a running hub")
	}
}

func TestHubDropsSlowClient(t *testing.T) {
	hub := NewHub(WithLogger(quietLogger()))
	slow := &Client{hub: hub, gameID: "g1", playerID: "ana", send: make(chan []byte)}
	hub.registerClient(slow)

	hub.deliver(outbound{gameID: "g1", data: []byte(`{}`)})

	if hub.ClientCount("g1") != 0 {
		t.Error("Slow client should have been dropped")
	}
}

func newWSServer(t *testing.T, hub *Hub, actions Actions) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		hub.ServeWS(w, r, q.Get("game"), q.Get("player"), actions)
	}))
	t.Cleanup(server.Close)
	return server
}

func dial(t *testing.T, server *httptest.Server, gameID, playerID string) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "?game=" + gameID + "&player=" + playerID
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Failed to connect to WebSocket: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readConn(t *testing.T, conn *websocket.Conn) syncer.Event {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("Failed to read WebSocket message: %v", err)
	}
	var ev syncer.Event
	if err := json.Unmarshal(data, &ev); err != nil {
		t.Fatalf("Failed to unmarshal message: %v", err)
	}
	return ev
}

func TestWebSocketUpgrade(t *testing.T) {
	hub := startHub(t)
	server := newWSServer(t, hub, &fakeActions{})

	conn := dial(t, server, "ws-test", "ana")
	waitFor(t, func() bool { return hub.ClientCount("ws-test") == 1 })

	if online := hub.Online("ws-test"); len(online) != 1 || online[0].PlayerID != "ana" {
		t.Errorf("Expected ana online, got %+v", online)
	}

	conn.Close()
	waitFor(t, func() bool { return hub.ClientCount("ws-test") == 0 })
}

func TestWebSocketMessageReceive(t *testing.T) {
	hub := startHub(t)
	server := newWSServer(t, hub, &fakeActions{})

	conn := dial(t, server, "msg-test", "ana")
	waitFor(t, func() bool { return hub.ClientCount("msg-test") == 1 })

	ev, _ := syncer.NewEvent(syncer.EventTurnPassed, "msg-test", 7, syncer.TurnPassedData{GameID: "msg-test", PlayerID: "ana", NextTurn: "bo", Version: 7})
	hub.Broadcast("msg-test", ev)

	got := readConn(t, conn)
	if got.Name != syncer.EventTurnPassed || got.GameID != "msg-test" {
		t.Errorf("Unexpected event %+v", got)
	}
	var data syncer.TurnPassedData
	if err := got.Decode(&data); err != nil {
		t.Fatal(err)
	}
	if data.NextTurn != "bo" {
		t.Errorf("Expected next turn bo, got %s", data.NextTurn)
	}
}

func TestWebSocketInboundActions(t *testing.T) {
	hub := startHub(t)
	actions := &fakeActions{}
	server := newWSServer(t, hub, actions)

	conn := dial(t, server, "g1", "ana")
	waitFor(t, func() bool { return hub.ClientCount("g1") == 1 })

	msgs := []string{
		`{"action":"join"}`,
		`{"action":"start"}`,
		`{"action":"roll","action_id":"a-1"}`,
		`{"action":"move","pawn_index":2}`,
		`{"action":"pass"}`,
		`{"action":"resign"}`,
	}
	for _, m := range msgs {
		if err := conn.WriteMessage(websocket.TextMessage, []byte(m)); err != nil {
			t.Fatal(err)
		}
	}

	waitFor(t, func() bool { return len(actions.Calls()) == len(msgs) })
	want := []string{"join:ana", "start:ana", "roll:ana", "move:ana", "pass:ana", "resign:ana"}
	for i, call := range actions.Calls() {
		if call != want[i] {
			t.Errorf("Call %d: expected %s, got %s", i, want[i], call)
		}
	}
	actions.mu.Lock()
	if actions.ids[2] != "a-1" {
		t.Errorf("Expected action id a-1 on roll, got %q", actions.ids[2])
	}
	actions.mu.Unlock()
}

func TestWebSocketMoveErrorOnlyToSender(t *testing.T) {
	hub := startHub(t)
	actions := &fakeActions{moveErr: gameerr.State("it is not your turn")}
	server := newWSServer(t, hub, actions)

	sender := dial(t, server, "g1", "ana")
	other := dial(t, server, "g1", "bo")
	waitFor(t, func() bool { return hub.ClientCount("g1") == 2 })

	tests := []struct {
		name    string
		msg     string
		wantIdx *int
		wantMsg string
	}{
		{"rejected move", `{"action":"move","pawn_index":3}`, intPtr(3), "not your turn"},
		{"missing pawn", `{"action":"move"}`, nil, "pawn_index is required"},
		{"unknown action", `{"action":"dance"}`, nil, "unknown action"},
		{"malformed", `{not json`, nil, "invalid message"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := sender.WriteMessage(websocket.TextMessage, []byte(tt.msg)); err != nil {
				t.Fatal(err)
			}
			ev := readConn(t, sender)
			if ev.Name != syncer.EventMoveError {
				t.Fatalf("Expected move-error, got %s", ev.Name)
			}
			var data syncer.MoveErrorData
			if err := ev.Decode(&data); err != nil {
				t.Fatal(err)
			}
			if !strings.Contains(data.Message, tt.wantMsg) {
				t.Errorf("Expected message containing %q, got %q", tt.wantMsg, data.Message)
			}
			if (tt.wantIdx == nil) != (data.PawnIndex == nil) || (tt.wantIdx != nil && *tt.wantIdx != *data.PawnIndex) {
				t.Errorf("Unexpected pawn index %v", data.PawnIndex)
			}
		})
	}

	other.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	if _, _, err := other.ReadMessage(); err == nil {
		t.Error("Other client should not receive move errors")
	} else {
		var netErr interface{ Timeout() bool }
		if !errors.As(err, &netErr) || !netErr.Timeout() {
			t.Errorf("Expected read timeout, got %v", err)
		}
	}
}

func TestHubRunStops(t *testing.T) {
	hub := NewHub(WithLogger(quietLogger()))
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()

	server := newWSServer(t, hub, &fakeActions{})
	conn := dial(t, server, "g1", "ana")
	waitFor(t, func() bool { return hub.ClientCount("g1") == 1 })

	cancel()
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}

	conn.SetReadDeadline(time.Now().Add(time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("Expected connection to be closed on shutdown")
	}
	if hub.presence.IsOnline("g1", "ana") {
		t.Error("Presence should be cleared on shutdown")
	}
}

func intPtr(v int) *int { return &v }

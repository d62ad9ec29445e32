package api

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/grayrack/idc-core/internal/alerting"
	"github.com/grayrack/idc-core/internal/infrastructure/config"
	"github.com/grayrack/idc-core/internal/infrastructure/logging"
	"github.com/grayrack/idc-core/internal/monitor"
)

// ─── Hub unit tests ─────────────────────────────────────────────────────

func testHub(t *testing.T) *Hub {
	t.Helper()
	log := logging.New(config.LoggingConfig{Level: "error", Format: "text", Output: "stdout"}, "test")
	return NewHub(config.WebSocketConfig{SendBuffer: 16}, log)
}

func testClient(hub *Hub) *WSClient {
	return &WSClient{
		hub:  hub,
		send: make(chan []byte, 16),
	}
}

func TestHub_RegisterUnregister(t *testing.T) {
	hub := testHub(t)

	c1 := testClient(hub)
	c2 := testClient(hub)
	hub.Register(c1)
	hub.Register(c2)

	if got := hub.ClientCount(); got != 2 {
		t.Errorf("ClientCount() = %d, want 2", got)
	}

	hub.Unregister(c1)
	if got := hub.ClientCount(); got != 1 {
		t.Errorf("ClientCount() after unregister = %d, want 1", got)
	}

	// Unregistering twice must not panic or double-close.
	hub.Unregister(c1)
	if got := hub.ClientCount(); got != 1 {
		t.Errorf("ClientCount() after double unregister = %d, want 1", got)
	}
}

func TestHub_Broadcast(t *testing.T) {
	hub := testHub(t)

	c1 := testClient(hub)
	c2 := testClient(hub)
	hub.Register(c1)
	hub.Register(c2)

	sample := &monitor.Sample{ServerID: "srv-ws1", CPUUsage: 73.5}
	hub.Broadcast(WSTypeMonitor, sample)

	for i, c := range []*WSClient{c1, c2} {
		select {
		case raw := <-c.send:
			var msg wsFrame
			if err := json.Unmarshal(raw, &msg); err != nil {
				t.Fatalf("client %d: unmarshal: %v", i, err)
			}
			if msg.Type != WSTypeMonitor {
				t.Errorf("client %d: type = %q, want %q", i, msg.Type, WSTypeMonitor)
			}
		case <-time.After(time.Second):
			t.Fatalf("client %d: no broadcast received", i)
		}
	}
}

func TestHub_BroadcastSkipsFullClient(t *testing.T) {
	hub := testHub(t)

	full := &WSClient{hub: hub, send: make(chan []byte)} // unbuffered, never drained
	ok := testClient(hub)
	hub.Register(full)
	hub.Register(ok)

	// Must not block even though one client cannot accept the frame.
	done := make(chan struct{})
	go func() {
		hub.Broadcast(WSTypeNotification, map[string]string{"message": "hello"})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Broadcast blocked on a full client")
	}

	select {
	case <-ok.send:
	case <-time.After(time.Second):
		t.Fatal("healthy client did not receive the frame")
	}
}

func TestHub_NotifyAlert(t *testing.T) {
	hub := testHub(t)

	c := testClient(hub)
	hub.Register(c)

	alert := &alerting.History{
		ID:       "alr-test1",
		ServerID: "srv-ws1",
		Level:    alerting.LevelCritical,
		Message:  "cpu_usage above threshold",
	}
	hub.NotifyAlert(alert)

	select {
	case raw := <-c.send:
		var msg wsFrame
		if err := json.Unmarshal(raw, &msg); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if msg.Type != WSTypeAlert {
			t.Errorf("type = %q, want %q", msg.Type, WSTypeAlert)
		}
		var payload alerting.History
		if err := json.Unmarshal(msg.Data, &payload); err != nil {
			t.Fatalf("unmarshal payload: %v", err)
		}
		if payload.ID != "alr-test1" {
			t.Errorf("alert id = %q, want alr-test1", payload.ID)
		}
	case <-time.After(time.Second):
		t.Fatal("no alert frame received")
	}
}

func TestHub_RunClosesClientsOnCancel(t *testing.T) {
	hub := testHub(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(done)
	}()

	c := testClient(hub)
	hub.Register(c)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}

	if got := hub.ClientCount(); got != 0 {
		t.Errorf("ClientCount() after shutdown = %d, want 0", got)
	}
}

// ─── WebSocket integration tests (real listener) ────────────────────────

// testServerWithRealListener starts the full HTTP server on a fixed port
// so websocket.DefaultDialer can reach it.
func testServerWithRealListener(t *testing.T, port int) *Server {
	t.Helper()

	cfg := testConfig()
	cfg.Server.Port = port
	cfg.Server.Timeouts = config.ServerTimeoutConfig{Read: 30, Write: 30, Idle: 30}
	srv := testServerWithConfig(t, cfg)

	if err := srv.Start(context.Background()); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	t.Cleanup(func() { srv.Close() })

	// Give the listener a moment to come up.
	time.Sleep(100 * time.Millisecond)
	return srv
}

// wsFrame decodes a pushed frame with the payload left raw.
type wsFrame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func readFrame(t *testing.T, conn *websocket.Conn) wsFrame {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	var msg wsFrame
	if err := json.Unmarshal(raw, &msg); err != nil {
		t.Fatalf("unmarshal frame: %v", err)
	}
	return msg
}

func TestWebSocket_ConnectedFrame(t *testing.T) {
	srv := testServerWithRealListener(t, 19080)

	url := fmt.Sprintf("ws://127.0.0.1:%d/api/ws", 19080)
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	msg := readFrame(t, conn)
	if msg.Type != WSTypeConnected {
		t.Errorf("first frame type = %q, want %q", msg.Type, WSTypeConnected)
	}

	if got := srv.hub.ClientCount(); got != 1 {
		t.Errorf("ClientCount() = %d, want 1", got)
	}
}

func TestWebSocket_BroadcastDelivery(t *testing.T) {
	srv := testServerWithRealListener(t, 19081)

	url := fmt.Sprintf("ws://127.0.0.1:%d/api/ws", 19081)
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	readFrame(t, conn) // connected

	sample := &monitor.Sample{ServerID: "srv-live", CPUUsage: 88.2, Timestamp: time.Now().UTC()}
	srv.hub.Broadcast(WSTypeMonitor, sample)

	msg := readFrame(t, conn)
	if msg.Type != WSTypeMonitor {
		t.Fatalf("frame type = %q, want %q", msg.Type, WSTypeMonitor)
	}
	var payload monitor.Sample
	if err := json.Unmarshal(msg.Data, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload.ServerID != "srv-live" {
		t.Errorf("serverId = %q, want srv-live", payload.ServerID)
	}
}

func TestWebSocket_PingPong(t *testing.T) {
	testServerWithRealListener(t, 19082)

	url := fmt.Sprintf("ws://127.0.0.1:%d/api/ws", 19082)
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	readFrame(t, conn) // connected

	ping := []byte(`{"type":"ping"}`)
	if err := conn.WriteMessage(websocket.TextMessage, ping); err != nil {
		t.Fatalf("WriteMessage: %v", err)
	}

	msg := readFrame(t, conn)
	if msg.Type != WSTypePong {
		t.Errorf("reply type = %q, want %q", msg.Type, WSTypePong)
	}
}

func TestWebSocket_TokenQueryParam(t *testing.T) {
	srv := testServerWithRealListener(t, 19083)

	token, _ := login(t, srv.buildRouter(), "admin", "admin123!")

	url := fmt.Sprintf("ws://127.0.0.1:%d/api/ws?token=%s", 19083, token)
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial with token: %v", err)
	}
	defer conn.Close()

	readFrame(t, conn) // connected

	srv.hub.mu.RLock()
	var username string
	for c := range srv.hub.clients {
		username = c.username
	}
	srv.hub.mu.RUnlock()

	if username != "admin" {
		t.Errorf("client username = %q, want admin", username)
	}
}

func TestWebSocket_InvalidTokenStillConnects(t *testing.T) {
	srv := testServerWithRealListener(t, 19084)

	url := fmt.Sprintf("ws://127.0.0.1:%d/api/ws?token=garbage", 19084)
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	msg := readFrame(t, conn)
	if msg.Type != WSTypeConnected {
		t.Errorf("frame type = %q, want %q", msg.Type, WSTypeConnected)
	}

	if got := srv.hub.ClientCount(); got != 1 {
		t.Errorf("ClientCount() = %d, want 1", got)
	}
}

func TestWebSocket_ConfiguredPath(t *testing.T) {
	cfg := testConfig()
	cfg.Server.Port = 19085
	cfg.Server.Timeouts = config.ServerTimeoutConfig{Read: 30, Write: 30, Idle: 30}
	cfg.WebSocket.Path = "/realtime"
	srv := testServerWithConfig(t, cfg)

	if err := srv.Start(context.Background()); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	t.Cleanup(func() { srv.Close() })
	time.Sleep(100 * time.Millisecond)

	conn, _, err := websocket.DefaultDialer.Dial("ws://127.0.0.1:19085/realtime", nil)
	if err != nil {
		t.Fatalf("Dial configured path: %v", err)
	}
	defer conn.Close()

	msg := readFrame(t, conn)
	if msg.Type != WSTypeConnected {
		t.Errorf("frame type = %q, want %q", msg.Type, WSTypeConnected)
	}

	// The default mount must not exist when a custom path is configured.
	_, resp, err := websocket.DefaultDialer.Dial("ws://127.0.0.1:19085/api/ws", nil)
	if err == nil {
		t.Error("Dial default path should fail when a custom path is configured")
	}
	if resp != nil {
		resp.Body.Close()
	}
}

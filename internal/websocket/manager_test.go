package websocket

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// wsEchoServer upgrades connections and echoes every text frame back.
func wsEchoServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		up := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
		conn, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			msgType, payload, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if err := conn.WriteMessage(msgType, payload); err != nil {
				return
			}
		}
	}))
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func TestManagerBackoffSchedule(t *testing.T) {
	m := NewManager("ws://unused", zap.NewNop())

	want := []time.Duration{
		1000 * time.Millisecond,
		2000 * time.Millisecond,
		3000 * time.Millisecond,
		4000 * time.Millisecond,
		5000 * time.Millisecond,
	}
	for i, expected := range want {
		if got := m.delayFor(i + 1); got != expected {
			t.Errorf("delayFor(%d) = %v, want %v", i+1, got, expected)
		}
	}
}

func TestManagerConnectAndEcho(t *testing.T) {
	server := wsEchoServer(t)
	defer server.Close()

	m := NewManager(wsURL(server), zap.NewNop())
	defer m.Disconnect()

	received := make(chan []byte, 1)
	m.OnMessage(MessageTypeUserMoved, func(payload []byte) {
		received <- payload
	})

	if err := m.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	if m.State() != StateConnected {
		t.Fatalf("State = %q, want connected", m.State())
	}

	if err := m.Send(map[string]string{"type": "user_moved", "room": "lobby"}); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	select {
	case payload := <-received:
		if !strings.Contains(string(payload), "user_moved") {
			t.Errorf("Unexpected payload: %s", payload)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Echoed message not dispatched within timeout")
	}
}

func TestManagerConnectIdempotent(t *testing.T) {
	server := wsEchoServer(t)
	defer server.Close()

	dials := 0
	var mu sync.Mutex
	dialer := func(ctx context.Context, url string) (*websocket.Conn, error) {
		mu.Lock()
		dials++
		mu.Unlock()
		return gorillaDialer(ctx, url)
	}

	m := NewManager(wsURL(server), zap.NewNop(), WithDialer(dialer))
	defer m.Disconnect()

	m.Connect(context.Background())
	m.Connect(context.Background())
	m.Connect(context.Background())

	mu.Lock()
	defer mu.Unlock()
	if dials != 1 {
		t.Errorf("Dial count = %d, want 1", dials)
	}
}

func TestManagerGivesUpAfterBudget(t *testing.T) {
	dials := 0
	var mu sync.Mutex
	dialer := func(ctx context.Context, url string) (*websocket.Conn, error) {
		mu.Lock()
		dials++
		mu.Unlock()
		return nil, errors.New("connection refused")
	}

	states := make(chan ConnState, 32)
	m := NewManager("ws://unreachable", zap.NewNop(),
		WithDialer(dialer),
		WithBackoff(time.Millisecond),
		WithStateListener(func(s ConnState) { states <- s }))

	if err := m.Connect(context.Background()); err == nil {
		t.Fatal("Expected connect error")
	}

	deadline := time.After(2 * time.Second)
	for m.State() != StateGaveUp {
		select {
		case <-deadline:
			t.Fatalf("Never gave up; state = %q, dials = %d", m.State(), dials)
		case <-time.After(5 * time.Millisecond):
		}
	}

	// Initial dial plus five reconnect attempts.
	mu.Lock()
	if dials != 6 {
		t.Errorf("Dial count = %d, want 6", dials)
	}
	mu.Unlock()

	sawReconnecting := false
	for {
		select {
		case s := <-states:
			if s == StateReconnecting {
				sawReconnecting = true
			}
		default:
			if !sawReconnecting {
				t.Error("Expected a reconnecting state transition")
			}
			return
		}
	}
}

func TestManagerConnectAfterGiveUpStartsFresh(t *testing.T) {
	server := wsEchoServer(t)
	defer server.Close()

	fail := true
	var mu sync.Mutex
	dialer := func(ctx context.Context, url string) (*websocket.Conn, error) {
		mu.Lock()
		failing := fail
		mu.Unlock()
		if failing {
			return nil, errors.New("connection refused")
		}
		return gorillaDialer(ctx, url)
	}

	m := NewManager(wsURL(server), zap.NewNop(),
		WithDialer(dialer),
		WithBackoff(time.Millisecond),
		WithMaxAttempts(2))
	defer m.Disconnect()

	m.Connect(context.Background())
	deadline := time.After(2 * time.Second)
	for m.State() != StateGaveUp {
		select {
		case <-deadline:
			t.Fatalf("Never gave up; state = %q", m.State())
		case <-time.After(5 * time.Millisecond):
		}
	}

	mu.Lock()
	fail = false
	mu.Unlock()

	if err := m.Connect(context.Background()); err != nil {
		t.Fatalf("Fresh connect after give-up failed: %v", err)
	}
	if m.State() != StateConnected {
		t.Errorf("State = %q, want connected", m.State())
	}
}

func TestManagerSendWhenDisconnected(t *testing.T) {
	m := NewManager("ws://unused", zap.NewNop())

	err := m.Send(map[string]string{"type": "voice_command"})
	if !errors.Is(err, ErrNotConnected) {
		t.Errorf("Expected ErrNotConnected, got %v", err)
	}
}

func TestManagerHandlerTable(t *testing.T) {
	m := NewManager("ws://unused", zap.NewNop())

	var got string
	m.OnMessage(MessageTypeUserJoined, func([]byte) { got = "first" })
	m.OnMessage(MessageTypeUserJoined, func([]byte) { got = "second" })

	m.dispatch([]byte(`{"type": "user_joined"}`))
	if got != "second" {
		t.Errorf("Expected last-registered handler, got %q", got)
	}

	types := m.RegisteredTypes()
	if len(types) != 1 || types[0] != MessageTypeUserJoined {
		t.Errorf("RegisteredTypes = %v, want [user_joined]", types)
	}

	m.OffMessage(MessageTypeUserJoined)
	if len(m.RegisteredTypes()) != 0 {
		t.Error("Expected empty handler table after OffMessage")
	}

	// No handler: silently dropped.
	m.dispatch([]byte(`{"type": "user_joined"}`))
	m.dispatch([]byte(`not json`))
}

func TestManagerDisconnectDuringDialWins(t *testing.T) {
	server := wsEchoServer(t)
	defer server.Close()

	dialing := make(chan struct{})
	release := make(chan struct{})
	dialer := func(ctx context.Context, url string) (*websocket.Conn, error) {
		close(dialing)
		<-release
		return gorillaDialer(ctx, url)
	}

	m := NewManager(wsURL(server), zap.NewNop(), WithDialer(dialer))

	done := make(chan struct{})
	go func() {
		m.Connect(context.Background())
		close(done)
	}()

	<-dialing
	m.Disconnect()
	close(release)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Connect did not return")
	}

	if got := m.State(); got != StateDisconnected {
		t.Fatalf("State = %q, want disconnected after racing Disconnect", got)
	}
	if err := m.Send(map[string]string{"type": "voice_command"}); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Expected ErrNotConnected, got %v", err)
	}
}

func TestManagerDisconnectCancelsReconnect(t *testing.T) {
	dials := 0
	var mu sync.Mutex
	dialer := func(ctx context.Context, url string) (*websocket.Conn, error) {
		mu.Lock()
		dials++
		mu.Unlock()
		return nil, errors.New("connection refused")
	}

	m := NewManager("ws://unreachable", zap.NewNop(),
		WithDialer(dialer),
		WithBackoff(50*time.Millisecond))

	m.Connect(context.Background())
	m.Disconnect()

	mu.Lock()
	before := dials
	mu.Unlock()

	time.Sleep(150 * time.Millisecond)

	mu.Lock()
	after := dials
	mu.Unlock()
	if after != before {
		t.Errorf("Reconnect fired after Disconnect: %d -> %d dials", before, after)
	}
	if m.State() != StateDisconnected {
		t.Errorf("State = %q, want disconnected", m.State())
	}
}

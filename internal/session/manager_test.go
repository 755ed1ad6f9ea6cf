package session

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"

	"automc/client/internal/protocol"
	"automc/client/internal/settings"
	"automc/client/internal/transport"
)

type fakeInbound struct {
	mu     sync.Mutex
	msgs   []string
	resets int
}

func (f *fakeInbound) Enqueue(raw string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, raw)
	return true
}

func (f *fakeInbound) Reset() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resets++
	return 0
}

func (f *fakeInbound) all() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.msgs...)
}

type fakeJournal struct {
	mu      sync.Mutex
	entries []string
}

func (f *fakeJournal) Record(direction, msgType, detail string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, direction+":"+msgType)
}

func (f *fakeJournal) has(entry string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.entries {
		if e == entry {
			return true
		}
	}
	return false
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func newFakeManager(t *testing.T) (*Manager, *transport.FakeSocket, *transport.FakeDialer, *fakeInbound, *settings.Store) {
	t.Helper()
	sock := transport.NewFakeSocket()
	dialer := &transport.FakeDialer{Socket: sock}
	in := &fakeInbound{}
	store := settings.NewStore()
	m := NewManager(Options{
		Dialer:        dialer,
		Settings:      store,
		Inbound:       in,
		PlayerUUID:    "u1",
		PlayerName:    "steve",
		ClientVersion: "test",
	})
	t.Cleanup(m.Disconnect)
	return m, sock, dialer, in, store
}

func TestManager_HandshakeIsFirstFrame(t *testing.T) {
	m, sock, dialer, _, _ := newFakeManager(t)
	m.Connect("127.0.0.1:8765", "pw")
	waitFor(t, "connected", m.IsConnected)

	if urls := dialer.URLs(); len(urls) != 1 || urls[0] != "ws://127.0.0.1:8765" {
		t.Fatalf("unexpected dial urls %v", urls)
	}
	if !m.Send(protocol.NewProgress("a1", protocol.StatusOK, "")) {
		t.Fatal("send should be accepted while connected")
	}
	waitFor(t, "two frames", func() bool { return len(sock.Written()) == 2 })

	var hello protocol.Handshake
	if err := json.Unmarshal([]byte(sock.Written()[0]), &hello); err != nil {
		t.Fatalf("decode handshake: %v", err)
	}
	if hello.Type != protocol.TypeHandshake || hello.Seq != 1 || hello.PlayerUUID != "u1" || hello.Password != "pw" {
		t.Fatalf("unexpected handshake %+v", hello)
	}
	if !strings.Contains(sock.Written()[1], `"progress_update"`) {
		t.Fatalf("unexpected second frame %s", sock.Written()[1])
	}
}

func TestManager_ConnectIgnoredUnlessDisconnected(t *testing.T) {
	m, _, dialer, _, _ := newFakeManager(t)
	m.Connect("127.0.0.1:1", "pw")
	waitFor(t, "connected", m.IsConnected)
	m.Connect("127.0.0.1:2", "pw")
	time.Sleep(20 * time.Millisecond)
	if n := len(dialer.URLs()); n != 1 {
		t.Fatalf("expected a single dial, got %d", n)
	}
}

func TestManager_DialFailureStaysDisconnected(t *testing.T) {
	in := &fakeInbound{}
	m := NewManager(Options{
		Dialer:   &transport.FakeDialer{Err: errors.New("refused")},
		Settings: settings.NewStore(),
		Inbound:  in,
	})
	m.Connect("127.0.0.1:9", "pw")
	waitFor(t, "disconnected", func() bool { return m.State() == StateDisconnected })
	if m.Send(protocol.NewProgress("a1", protocol.StatusOK, "")) {
		t.Fatal("send without a session must be dropped")
	}

	m.Connect("", "pw")
	if m.State() != StateDisconnected {
		t.Fatal("empty address must be rejected synchronously")
	}
}

func TestManager_SettingsBypassPump(t *testing.T) {
	m, sock, _, in, store := newFakeManager(t)
	m.Connect("127.0.0.1:8765", "pw")
	waitFor(t, "connected", m.IsConnected)

	sock.EmitText(`{"type":"settings_update","settings":{"message_pump_queue_cap":50}}`)
	sock.EmitText(`{"type":"chat_send","text":"hi"}`)
	sock.EmitText(`garbage`)
	waitFor(t, "two enqueued frames", func() bool { return len(in.all()) == 2 })

	if n, ok := store.PumpQueueCap(); !ok || n != 50 {
		t.Fatalf("settings should be applied on the reader, got %d ok=%v", n, ok)
	}
	for _, raw := range in.all() {
		if strings.Contains(raw, "settings_update") {
			t.Fatal("settings frames must not reach the pump")
		}
	}
}

func TestManager_DisconnectIsIdempotent(t *testing.T) {
	m, sock, _, _, _ := newFakeManager(t)
	m.Connect("127.0.0.1:8765", "pw")
	waitFor(t, "connected", m.IsConnected)

	m.Disconnect()
	m.Disconnect()
	if m.IsConnected() || !sock.Closed() {
		t.Fatalf("expected closed socket, connected=%v closed=%v", m.IsConnected(), sock.Closed())
	}
	if m.Send(protocol.NewProgress("a1", protocol.StatusOK, "")) {
		t.Fatal("send after disconnect must be dropped")
	}
}

func TestManager_BackendCloseTearsDown(t *testing.T) {
	m, sock, _, in, _ := newFakeManager(t)
	journal := &fakeJournal{}
	m.opts.Journal = journal
	m.Connect("127.0.0.1:8765", "pw")
	waitFor(t, "connected", m.IsConnected)

	_ = sock.Close()
	waitFor(t, "teardown", func() bool { return m.State() == StateDisconnected })
	if !journal.has("out:handshake") || !journal.has("event:disconnected") {
		t.Fatalf("unexpected journal %v", journal.entries)
	}
	in.mu.Lock()
	resets := in.resets
	in.mu.Unlock()
	if resets == 0 {
		t.Fatal("expected queued inbound frames reset on teardown")
	}
}

func TestManager_DisconnectClearsPendingTelemetry(t *testing.T) {
	m, _, _, in, store := newFakeManager(t)
	if err := store.ApplyJSON([]byte(`{"telemetry_interval_ms":10}`)); err != nil {
		t.Fatalf("apply: %v", err)
	}
	m.Connect("127.0.0.1:8765", "pw")
	waitFor(t, "connected", m.IsConnected)
	waitFor(t, "heartbeat fired", m.telemetryDue.Load)

	m.Disconnect()
	if m.TakeTelemetryDue() {
		t.Fatal("a heartbeat from the ended session must not carry over")
	}
	in.mu.Lock()
	resets := in.resets
	in.mu.Unlock()
	if resets == 0 {
		t.Fatal("expected queued inbound frames reset on disconnect")
	}
}

func TestManager_WriteErrorTearsDown(t *testing.T) {
	m, sock, _, _, _ := newFakeManager(t)
	sock.FailWrites(errors.New("broken pipe"))
	m.Connect("127.0.0.1:8765", "pw")
	waitFor(t, "teardown after handshake write", func() bool {
		return m.State() == StateDisconnected && sock.Closed()
	})
}

// stuckSocket accepts no writes until the session is cancelled.
type stuckSocket struct {
	*transport.FakeSocket
}

func (s stuckSocket) WriteText(ctx context.Context, text string) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestManager_OutboundBufferFullDrops(t *testing.T) {
	sock := stuckSocket{transport.NewFakeSocket()}
	m := NewManager(Options{
		Dialer:         &transport.FakeDialer{Socket: sock},
		Settings:       settings.NewStore(),
		Inbound:        &fakeInbound{},
		OutboundBuffer: 2,
	})
	defer m.Disconnect()
	m.Connect("127.0.0.1:8765", "pw")
	waitFor(t, "connected", m.IsConnected)

	waitFor(t, "writer holding the handshake", func() bool {
		m.mu.Lock()
		defer m.mu.Unlock()
		return m.sess != nil && len(m.sess.out) == 0
	})
	accepted := 0
	for i := 0; i < 5; i++ {
		if m.Send(protocol.NewProgress("a", protocol.StatusOK, "")) {
			accepted++
		}
	}
	if accepted != 2 {
		t.Fatalf("expected 2 accepted frames, got %d", accepted)
	}
}

func TestManager_HeartbeatWaitsForInterval(t *testing.T) {
	m, _, _, _, store := newFakeManager(t)
	m.Connect("127.0.0.1:8765", "pw")
	waitFor(t, "connected", m.IsConnected)

	time.Sleep(2 * telemetryRecheck)
	if m.TakeTelemetryDue() {
		t.Fatal("telemetry must not be due while the interval is unset")
	}
	if err := store.ApplyJSON([]byte(`{"telemetry_interval_ms":10}`)); err != nil {
		t.Fatalf("apply: %v", err)
	}
	waitFor(t, "telemetry due", m.TakeTelemetryDue)
	if m.TakeTelemetryDue() {
		t.Fatal("due flag should reset after being taken")
	}
}

func TestManager_RealWebSocketRoundTrip(t *testing.T) {
	got := make(chan string, 4)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer func() { _ = c.CloseNow() }()
		ctx := r.Context()
		_, data, err := c.Read(ctx)
		if err != nil {
			return
		}
		got <- string(data)
		_ = c.Write(ctx, websocket.MessageText, []byte(`{"type":"plan","request_id":"r1","steps":[]}`))
		_, _, _ = c.Read(ctx)
	}))
	defer srv.Close()

	in := &fakeInbound{}
	var connectedTo string
	var mu sync.Mutex
	m := NewManager(Options{
		Settings:   settings.NewStore(),
		Inbound:    in,
		PlayerUUID: "u1",
		OnConnected: func(address string) {
			mu.Lock()
			connectedTo = address
			mu.Unlock()
		},
	})
	defer m.Disconnect()
	m.Connect(strings.TrimPrefix(srv.URL, "http://"), "secret")

	select {
	case first := <-got:
		if !strings.Contains(first, `"type":"handshake"`) || !strings.Contains(first, `"password":"secret"`) {
			t.Fatalf("unexpected first frame %s", first)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("backend never received the handshake")
	}
	waitFor(t, "plan enqueued", func() bool { return len(in.all()) == 1 })
	waitFor(t, "OnConnected", func() bool {
		mu.Lock()
		defer mu.Unlock()
		return connectedTo == strings.TrimPrefix(srv.URL, "http://")
	})
}

func TestManager_BinaryFrameIsDroppedNotFatal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer func() { _ = c.CloseNow() }()
		ctx := r.Context()
		if _, _, err := c.Read(ctx); err != nil {
			return
		}
		_ = c.Write(ctx, websocket.MessageBinary, []byte{0x01, 0x02, 0x03})
		_ = c.Write(ctx, websocket.MessageText, []byte(`{"type":"plan","request_id":"r2","steps":[]}`))
		_, _, _ = c.Read(ctx)
	}))
	defer srv.Close()

	in := &fakeInbound{}
	m := NewManager(Options{Settings: settings.NewStore(), Inbound: in, PlayerUUID: "u1"})
	defer m.Disconnect()
	m.Connect(strings.TrimPrefix(srv.URL, "http://"), "pw")

	waitFor(t, "text frame after binary enqueued", func() bool { return len(in.all()) == 1 })
	if !m.IsConnected() {
		t.Fatal("binary frame must not tear the session down")
	}
	if !strings.Contains(in.all()[0], `"request_id":"r2"`) {
		t.Fatalf("unexpected frame %s", in.all()[0])
	}
}

func TestState_String(t *testing.T) {
	if StateConnecting.String() != "connecting" || StateConnected.String() != "connected" || StateDisconnected.String() != "disconnected" {
		t.Fatal("unexpected state names")
	}
}

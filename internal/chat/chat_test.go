package chat

import (
	"strings"
	"sync"
	"testing"
	"time"

	"automc/client/internal/host"
	"automc/client/internal/protocol"
	"automc/client/internal/settings"
)

type fakeSubmitter struct {
	lines  []string
	routes []host.Route
}

func (f *fakeSubmitter) SubmitChat(text string, route host.Route) {
	f.lines = append(f.lines, text)
	f.routes = append(f.routes, route)
}

type fakeHUD struct{ lines []string }

func (f *fakeHUD) ShowLocal(text string) { f.lines = append(f.lines, text) }

type fakeSession struct {
	mu          sync.Mutex
	connected   bool
	connects    []string
	disconnects int
	sent        []any
}

func (f *fakeSession) IsConnected() bool { return f.connected }
func (f *fakeSession) Connect(address, credential string) {
	f.connects = append(f.connects, address+"|"+credential)
}
func (f *fakeSession) Disconnect() { f.disconnects++ }
func (f *fakeSession) Send(v any) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, v)
	return true
}

func newStore(t *testing.T, raw string) *settings.Store {
	t.Helper()
	s := settings.NewStore()
	if raw != "" {
		if err := s.ApplyJSON([]byte(raw)); err != nil {
			t.Fatalf("apply settings: %v", err)
		}
	}
	return s
}

func TestSanitize(t *testing.T) {
	got := Sanitize("  hi\r\nthere\n@everyone  ", 0)
	if got != "hi  there @everyοne" {
		t.Fatalf("unexpected sanitize output %q", got)
	}
	if got := Sanitize("héllo wörld", 4); got != "héll" {
		t.Fatalf("expected rune truncation, got %q", got)
	}
}

func TestLimiter_RefusesWhenDisabledOrUnset(t *testing.T) {
	sub := &fakeSubmitter{}
	for _, raw := range []string{
		``,
		`{"chat_bridge_enabled":false,"chat_bridge_rate_limit_per_sec":5}`,
		`{"chat_bridge_enabled":true}`,
	} {
		l := NewLimiter(newStore(t, raw), sub, nil)
		if l.TrySend("hello") {
			t.Fatalf("settings %s: expected refusal", raw)
		}
	}
	if len(sub.lines) != 0 {
		t.Fatalf("nothing should be submitted, got %v", sub.lines)
	}
}

func TestLimiter_MinimumInterval(t *testing.T) {
	sub := &fakeSubmitter{}
	l := NewLimiter(newStore(t, `{"chat_bridge_enabled":true,"chat_bridge_rate_limit_per_sec":2}`), sub, nil)
	now := time.Unix(1000, 0)
	l.now = func() time.Time { return now }

	if !l.TrySend("one") {
		t.Fatal("first send should pass")
	}
	now = now.Add(499 * time.Millisecond)
	if l.TrySend("two") {
		t.Fatal("send inside 500ms must be refused")
	}
	now = now.Add(1 * time.Millisecond)
	if !l.TrySend("three") {
		t.Fatal("send at 500ms should pass")
	}
	// a refused attempt must not move the window
	now = now.Add(250 * time.Millisecond)
	_ = l.TrySend("four")
	now = now.Add(250 * time.Millisecond)
	if !l.TrySend("five") {
		t.Fatal("refusal must not reset the last-send time")
	}
	if strings.Join(sub.lines, ",") != "one,three,five" {
		t.Fatalf("unexpected submissions %v", sub.lines)
	}
}

func TestLimiter_ZeroRateHasNoInterval(t *testing.T) {
	sub := &fakeSubmitter{}
	l := NewLimiter(newStore(t, `{"chat_bridge_enabled":true,"chat_bridge_rate_limit_per_sec":0}`), sub, nil)
	for i := 0; i < 5; i++ {
		if !l.TrySend("x") {
			t.Fatalf("send %d refused with rate 0", i)
		}
	}
}

func TestLimiter_SanitizesAndRoutes(t *testing.T) {
	sub := &fakeSubmitter{}
	l := NewLimiter(newStore(t, `{"chat_bridge_enabled":true,"chat_bridge_rate_limit_per_sec":0,"chat_max_length":8,"command_prefix":"#"}`), sub, nil)
	l.TrySend("#goto 1 2 3")
	l.TrySend("hello\nworld")
	if sub.lines[0] != "#goto 1 " || sub.routes[0] != host.RouteIntercepted {
		t.Fatalf("unexpected command submission %q %v", sub.lines[0], sub.routes[0])
	}
	if sub.lines[1] != "hello wo" || sub.routes[1] != host.RouteDirect {
		t.Fatalf("unexpected chat submission %q %v", sub.lines[1], sub.routes[1])
	}
}

func newInterceptor(t *testing.T, sess *fakeSession, hud *fakeHUD, raw string) *Interceptor {
	t.Helper()
	return NewInterceptor(InterceptorDeps{
		Session:      sess,
		Settings:     newStore(t, raw),
		HUD:          hud,
		PlayerUUID:   "player-1",
		NewRequestID: func() string { return "req-1" },
	})
}

func TestInterceptor_Disconnected(t *testing.T) {
	sess := &fakeSession{}
	hud := &fakeHUD{}
	i := newInterceptor(t, sess, hud, "")

	if !i.Intercept("!connect 127.0.0.1:8765 s3cret") {
		t.Fatal("!connect must be swallowed")
	}
	if len(sess.connects) != 1 || sess.connects[0] != "127.0.0.1:8765|s3cret" {
		t.Fatalf("unexpected connect calls %v", sess.connects)
	}
	if !i.Intercept("!connect 127.0.0.1:8765") {
		t.Fatal("bad !connect must be swallowed")
	}
	if !i.Intercept("!status") {
		t.Fatal("commands while disconnected must be swallowed")
	}
	if i.Intercept("hello world") {
		t.Fatal("plain chat should pass through")
	}
	want := []string{
		"Connecting to 127.0.0.1:8765...",
		"Usage: !connect <ip:port> <password>",
		"A backend connection is required. Use !connect <ip:port> <password>.",
	}
	if strings.Join(hud.lines, "|") != strings.Join(want, "|") {
		t.Fatalf("unexpected hud lines %v", hud.lines)
	}
}

func TestInterceptor_ConnectedForwardsCommands(t *testing.T) {
	sess := &fakeSession{connected: true}
	hud := &fakeHUD{}
	i := newInterceptor(t, sess, hud, `{"command_prefix":"#","ack_on_command":true,"feedback_prefix":"> "}`)

	if !i.Intercept("!echo !echo hi") {
		t.Fatal("command must be swallowed")
	}
	if !i.Intercept("#mine stone") {
		t.Fatal("prefixed command must be swallowed")
	}
	if i.Intercept("just chatting") {
		t.Fatal("plain chat must pass through")
	}
	if len(sess.sent) != 2 {
		t.Fatalf("expected 2 commands sent, got %d", len(sess.sent))
	}
	cmd := sess.sent[0].(protocol.Command)
	if cmd.Type != protocol.TypeCommand || cmd.Text != "!echo hi" || cmd.RequestID != "req-1" || cmd.PlayerUUID != "player-1" {
		t.Fatalf("unexpected command %+v", cmd)
	}
	if strings.Join(hud.lines, "|") != "> !echo hi|> #mine stone" {
		t.Fatalf("unexpected ack lines %v", hud.lines)
	}

	if !i.Intercept("!connect 1.2.3.4:1 pw") || hud.lines[len(hud.lines)-1] != "Already connected; use !disconnect first." {
		t.Fatalf("expected already-connected hint, got %v", hud.lines)
	}
	if !i.Intercept("!disconnect") || sess.disconnects != 1 {
		t.Fatal("expected disconnect")
	}
}

func TestInterceptor_MatchesWholeCommandTokens(t *testing.T) {
	sess := &fakeSession{connected: true}
	hud := &fakeHUD{}
	i := newInterceptor(t, sess, hud, "")

	if !i.Intercept("!connectivity check") || !i.Intercept("!disconnected") {
		t.Fatal("bang commands are still swallowed")
	}
	if sess.disconnects != 0 || len(hud.lines) != 0 {
		t.Fatalf("longer words must not act as !connect/!disconnect, disconnects=%d hud=%v", sess.disconnects, hud.lines)
	}
	if len(sess.sent) != 2 || sess.sent[0].(protocol.Command).Text != "!connectivity check" {
		t.Fatalf("expected both forwarded as commands, got %v", sess.sent)
	}

	off := &fakeSession{}
	offHUD := &fakeHUD{}
	j := newInterceptor(t, off, offHUD, "")
	j.Intercept("!connectx 1.2.3.4:1 pw")
	j.Intercept("!connect")
	if len(off.connects) != 0 {
		t.Fatalf("unexpected connect calls %v", off.connects)
	}
	want := "A backend connection is required. Use !connect <ip:port> <password>.|Usage: !connect <ip:port> <password>"
	if strings.Join(offHUD.lines, "|") != want {
		t.Fatalf("unexpected hud lines %v", offHUD.lines)
	}
}

func TestInterceptor_FreshRequestIDs(t *testing.T) {
	sess := &fakeSession{connected: true}
	i := NewInterceptor(InterceptorDeps{Session: sess, Settings: settings.NewStore(), HUD: &fakeHUD{}})
	i.Intercept("!a")
	i.Intercept("!b")
	a := sess.sent[0].(protocol.Command).RequestID
	b := sess.sent[1].(protocol.Command).RequestID
	if a == "" || a == b {
		t.Fatalf("expected distinct request ids, got %q %q", a, b)
	}
}

func TestForwarder(t *testing.T) {
	sess := &fakeSession{}
	f := NewForwarder(sess, "p1")
	f.now = func() time.Time { return time.Unix(0, 0) }
	if f.OnGameMessage("<bob> hi") {
		t.Fatal("ordinary chat should not be forwarded")
	}
	if !f.OnGameMessage("[Baritone] Path found") {
		t.Fatal("baritone line should be forwarded")
	}
	ev := sess.sent[0].(protocol.ChatEvent)
	if ev.Type != protocol.TypeChatEvent || ev.PlayerUUID != "p1" || ev.TS != "1970-01-01T00:00:00Z" {
		t.Fatalf("unexpected event %+v", ev)
	}
}

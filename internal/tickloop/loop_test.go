package tickloop

import (
	"context"
	"strings"
	"testing"
	"time"

	"automc/client/internal/automation"
	"automc/client/internal/host"
	"automc/client/internal/hoststate"
	"automc/client/internal/inventory"
	"automc/client/internal/progress"
	"automc/client/internal/protocol"
	"automc/client/internal/pump"
	"automc/client/internal/router"
	"automc/client/internal/settings"
)

type fakeSession struct {
	connected    bool
	due          bool
	disconnected int
	sent         []any
}

func (f *fakeSession) IsConnected() bool { return f.connected }
func (f *fakeSession) Disconnect()       { f.connected = false; f.disconnected++ }
func (f *fakeSession) Send(v any) bool   { f.sent = append(f.sent, v); return true }
func (f *fakeSession) TakeTelemetryDue() bool {
	due := f.due
	f.due = false
	return due
}

func (f *fakeSession) types() []string {
	out := make([]string, 0, len(f.sent))
	for _, v := range f.sent {
		out = append(out, protocol.TypeOf(v))
	}
	return out
}

// recorder captures the order in which the loop calls its collaborators.
type recorder struct {
	calls []string
	gen   uint64
}

func (r *recorder) InWorld() bool            { return true }
func (r *recorder) ScreenGeneration() uint64 { return r.gen }
func (r *recorder) DrainAndDispatch(dispatch func(string)) int {
	r.calls = append(r.calls, "drain")
	return 0
}
func (r *recorder) HandleMessage(string) {}
func (r *recorder) OnScreenOpen()        { r.calls = append(r.calls, "snapshot") }
func (r *recorder) Forget()              { r.calls = append(r.calls, "forget") }
func (r *recorder) Tick() bool           { r.calls = append(r.calls, "tick"); return false }
func (r *recorder) Telemetry() (map[string]any, bool) {
	r.calls = append(r.calls, "telemetry")
	return map[string]any{}, true
}

type stage struct {
	name string
	r    *recorder
}

func (s stage) Tick() bool { s.r.calls = append(s.r.calls, s.name); return false }
func (s stage) Clear() int { s.r.calls = append(s.r.calls, "clear"); return 0 }

func TestLoop_StableOrder(t *testing.T) {
	r := &recorder{}
	sess := &fakeSession{connected: true}
	l := New(Deps{
		Session:   sess,
		World:     r,
		Pump:      r,
		Router:    r,
		Watcher:   r,
		Queue:     stage{name: "queue", r: r},
		Telemetry: r,
	})
	r.gen++
	sess.due = true
	l.Tick()

	want := []string{"drain", "snapshot", "tick", "queue", "telemetry"}
	if strings.Join(r.calls, ",") != strings.Join(want, ",") {
		t.Fatalf("expected order %v, got %v", want, r.calls)
	}

	r.calls = nil
	l.Tick()
	if strings.Join(r.calls, ",") != "drain,tick,queue" {
		t.Fatalf("unchanged screen and no heartbeat, got %v", r.calls)
	}
}

func TestLoop_EndToEnd(t *testing.T) {
	h := host.NewHeadless(host.HeadlessOptions{PlayerUUID: "u1"})
	store := settings.NewStore()
	if err := store.ApplyJSON([]byte(`{"message_pump_queue_cap":16,"message_pump_max_per_tick":4,"inventory_diff_debounce_ms":0}`)); err != nil {
		t.Fatalf("apply: %v", err)
	}
	sess := &fakeSession{connected: true}
	reporter := progress.NewReporter(sess, nil)
	crafter := automation.NewCrafter(h, nil)
	queue := automation.NewQueue(h, crafter, reporter, nil)
	builder := hoststate.NewBuilder(h, store)
	p := pump.New(store, nil)
	rt := router.New(router.Deps{
		Settings:   store,
		HUD:        h,
		Reporter:   reporter,
		Sender:     sess,
		State:      builder,
		Queue:      queue,
		PlayerUUID: "u1",
	})
	watcher := inventory.NewWatcher(inventory.WatcherDeps{Screens: h, Sender: sess, Settings: store, PlayerUUID: "u1"})
	l := New(Deps{
		Session:    sess,
		World:      h,
		Pump:       p,
		Router:     rt,
		Watcher:    watcher,
		Queue:      queue,
		Telemetry:  builder,
		PlayerUUID: "u1",
	})

	p.Enqueue(`{"type":"state_request","request_id":"r1","selector":["dim"]}`)
	h.OpenStorage("chest", [3]int{4, 64, 4}, 27)
	sess.due = true
	st := l.Tick()
	if st.Dispatched != 1 || !st.ScreenOpened || !st.Telemetry {
		t.Fatalf("unexpected stats %+v", st)
	}
	got := strings.Join(sess.types(), ",")
	if got != "state_response,inventory_snapshot,telemetry_update" {
		t.Fatalf("unexpected outbound order %s", got)
	}

	h.SetContainerSlot(0, host.ItemStack{ID: "minecraft:cobblestone", Count: 3})
	st = l.Tick()
	if !st.DiffSent {
		t.Fatalf("expected a diff after the slot changed, stats %+v", st)
	}

	h.LeaveWorld()
	st = l.Tick()
	if !st.Disconnected || sess.disconnected != 1 {
		t.Fatalf("expected auto-disconnect after leaving the world, stats %+v", st)
	}
	if st = l.Tick(); st.Disconnected {
		t.Fatal("disconnect should fire once")
	}
}

func TestLoop_SessionEndClearsPendingAutomation(t *testing.T) {
	h := host.NewHeadless(host.HeadlessOptions{PlayerUUID: "u1"})
	sess := &fakeSession{connected: true}
	reporter := progress.NewReporter(sess, nil)
	queue := automation.NewQueue(h, automation.NewCrafter(h, nil), reporter, nil)
	r := &recorder{}
	l := New(Deps{
		Session:   sess,
		World:     r,
		Pump:      r,
		Router:    r,
		Watcher:   r,
		Queue:     queue,
		Telemetry: r,
	})

	queue.Enqueue(automation.Request{ActionID: "a1", RecipeID: "minecraft:wooden_pickaxe", Count: 1})
	l.Tick()
	if queue.Len() != 1 {
		t.Fatal("request should wait while connected and no table is open")
	}

	sess.connected = false
	l.Tick()
	if queue.Len() != 0 {
		t.Fatalf("expected queue cleared after the session ended, len=%d", queue.Len())
	}
	if len(sess.sent) != 0 {
		t.Fatalf("clearing must not report progress, sent %v", sess.types())
	}
}

func TestLoop_RunStopsOnCancel(t *testing.T) {
	r := &recorder{}
	l := New(Deps{
		Session:   &fakeSession{},
		World:     r,
		Pump:      r,
		Router:    r,
		Watcher:   r,
		Queue:     stage{name: "queue", r: r},
		Telemetry: r,
		Interval:  time.Millisecond,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	if err := l.Run(ctx); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(r.calls) == 0 {
		t.Fatal("expected at least one tick")
	}
}

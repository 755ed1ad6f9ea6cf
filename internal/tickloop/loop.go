// Package tickloop drives every piece of work that must run on the single
// host-owned thread, in a fixed order per tick.
package tickloop

import (
	"context"
	"log/slog"
	"time"

	"automc/client/internal/logging"
	"automc/client/internal/protocol"
)

const DefaultInterval = 50 * time.Millisecond

type Session interface {
	IsConnected() bool
	Disconnect()
	TakeTelemetryDue() bool
	Send(v any) bool
}

type World interface {
	InWorld() bool
	ScreenGeneration() uint64
}

type Pump interface {
	DrainAndDispatch(dispatch func(raw string)) int
}

type Router interface {
	HandleMessage(raw string)
}

type Watcher interface {
	OnScreenOpen()
	Tick() bool
	Forget()
}

type Automation interface {
	Tick() bool
	Clear() int
}

type Telemetry interface {
	Telemetry() (map[string]any, bool)
}

type Deps struct {
	Session    Session
	World      World
	Pump       Pump
	Router     Router
	Watcher    Watcher
	Queue      Automation
	Telemetry  Telemetry
	PlayerUUID string
	// Interval is the tick period; zero means DefaultInterval.
	Interval time.Duration
	Logger   *slog.Logger
}

// Stats counts what one tick did.
type Stats struct {
	Dispatched   int
	ScreenOpened bool
	DiffSent     bool
	Automated    bool
	Telemetry    bool
	Disconnected bool
}

type Loop struct {
	deps    Deps
	logger  *slog.Logger
	now     func() time.Time
	lastGen   uint64
	ticks     uint64
	inWorld   bool
	connected bool
}

func New(deps Deps) *Loop {
	if deps.Interval <= 0 {
		deps.Interval = DefaultInterval
	}
	l := &Loop{deps: deps, logger: logging.Module(deps.Logger, "tickloop"), now: time.Now}
	l.lastGen = deps.World.ScreenGeneration()
	l.inWorld = deps.World.InWorld()
	l.connected = deps.Session.IsConnected()
	return l
}

// Run ticks until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	ticker := time.NewTicker(l.deps.Interval)
	defer ticker.Stop()
	l.logger.Info("tick loop started", "interval", l.deps.Interval.String())
	for {
		select {
		case <-ctx.Done():
			l.logger.Info("tick loop stopped", "ticks", l.ticks)
			return nil
		case <-ticker.C:
			l.Tick()
		}
	}
}

// Tick runs one pass: leave-world disconnect, inbound drain, screen-open
// snapshot, inventory diff, automation queue, telemetry.
func (l *Loop) Tick() Stats {
	l.ticks++
	var st Stats

	inWorld := l.deps.World.InWorld()
	if !inWorld && l.deps.Session.IsConnected() {
		l.logger.Info("left world, disconnecting")
		l.deps.Session.Disconnect()
		st.Disconnected = true
	}
	if l.inWorld && !inWorld {
		l.deps.Watcher.Forget()
	}
	l.inWorld = inWorld

	connected := l.deps.Session.IsConnected()
	if l.connected && !connected {
		if n := l.deps.Queue.Clear(); n > 0 {
			l.logger.Info("session ended, dropped pending automation", "count", n)
		}
	}
	l.connected = connected

	st.Dispatched = l.deps.Pump.DrainAndDispatch(l.deps.Router.HandleMessage)

	if gen := l.deps.World.ScreenGeneration(); gen != l.lastGen {
		l.lastGen = gen
		l.deps.Watcher.OnScreenOpen()
		st.ScreenOpened = true
	}
	st.DiffSent = l.deps.Watcher.Tick()
	st.Automated = l.deps.Queue.Tick()

	if l.deps.Session.TakeTelemetryDue() {
		if state, ok := l.deps.Telemetry.Telemetry(); ok {
			st.Telemetry = l.deps.Session.Send(protocol.NewTelemetry(l.deps.PlayerUUID, state, l.now()))
		}
	}
	return st
}

// Package session owns the backend connection: dialing, the handshake, the
// reader and writer goroutines and the telemetry heartbeat.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"automc/client/internal/logging"
	"automc/client/internal/protocol"
	"automc/client/internal/settings"
	"automc/client/internal/transport"
)

type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

const defaultOutboundBuffer = 256

var (
	dialTimeout  = 10 * time.Second
	writeTimeout = 10 * time.Second
	// telemetryRecheck is how often an unset interval is looked at again; it
	// is also the shortest heartbeat period.
	telemetryRecheck = 250 * time.Millisecond
)

// Inbound receives every frame that is not applied out of band. Reset
// drops frames still queued from a session that has ended.
type Inbound interface {
	Enqueue(raw string) bool
	Reset() int
}

// Recorder is the optional frame journal.
type Recorder interface {
	Record(direction, msgType, detail string)
}

type Options struct {
	Dialer        transport.Dialer
	Settings      *settings.Store
	Inbound       Inbound
	Journal       Recorder
	PlayerUUID    string
	PlayerName    string
	ClientVersion string
	Capabilities  map[string]any
	// OutboundBuffer bounds frames waiting for the writer. Zero means 256.
	OutboundBuffer int
	// OnConnected runs on the dial goroutine after the handshake is queued.
	OnConnected func(address string)
	Logger      *slog.Logger
}

// Manager is safe for concurrent use. At most one session exists at a time.
type Manager struct {
	opts   Options
	logger *slog.Logger

	mu    sync.Mutex
	state State
	gen   uint64
	sess  *session
	dials sync.WaitGroup
	// dialCancel aborts an in-flight dial.
	dialCancel context.CancelFunc

	telemetryDue atomic.Bool
}

type session struct {
	id     string
	url    string
	sock   transport.Socket
	ctx    context.Context
	cancel context.CancelFunc
	out    chan string
	wg     sync.WaitGroup
	closed atomic.Bool
}

func NewManager(opts Options) *Manager {
	if opts.OutboundBuffer <= 0 {
		opts.OutboundBuffer = defaultOutboundBuffer
	}
	if opts.Dialer == nil {
		opts.Dialer = transport.WSDialer{}
	}
	return &Manager{opts: opts, logger: logging.Module(opts.Logger, "session")}
}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Manager) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state == StateConnected && m.sess != nil && !m.sess.closed.Load()
}

// Connect starts an asynchronous dial. It is a no-op unless disconnected;
// failures are logged and leave the manager disconnected.
func (m *Manager) Connect(address, credential string) {
	url, err := transport.NormalizeURL(address)
	if err != nil {
		m.logger.Warn("connect rejected", "address", address, "err", err)
		return
	}

	m.mu.Lock()
	if m.state != StateDisconnected {
		m.mu.Unlock()
		m.logger.Info("connect ignored", "state", m.state.String())
		return
	}
	m.gen++
	gen := m.gen
	ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
	m.dialCancel = cancel
	m.state = StateConnecting
	m.dials.Add(1)
	m.mu.Unlock()

	m.logger.Info("connecting", "url", url)
	go func() {
		defer m.dials.Done()
		defer cancel()
		m.dial(ctx, gen, url, address, credential)
	}()
}

func (m *Manager) dial(ctx context.Context, gen uint64, url, address, credential string) {
	sock, err := m.opts.Dialer.Dial(ctx, url)
	if err != nil {
		m.logger.Warn("dial failed", "url", url, "err", err)
		m.mu.Lock()
		if m.gen == gen {
			m.state = StateDisconnected
			m.dialCancel = nil
		}
		m.mu.Unlock()
		return
	}

	sessCtx, sessCancel := context.WithCancel(context.Background())
	s := &session{
		id:     uuid.NewString(),
		url:    url,
		sock:   sock,
		ctx:    sessCtx,
		cancel: sessCancel,
		out:    make(chan string, m.opts.OutboundBuffer),
	}
	hello, err := json.Marshal(protocol.NewHandshake(
		m.opts.PlayerUUID, m.opts.PlayerName, credential, m.opts.ClientVersion, m.opts.Capabilities))
	if err != nil {
		m.logger.Error("handshake encode failed", "err", err)
		sessCancel()
		_ = sock.Close()
		m.mu.Lock()
		if m.gen == gen {
			m.state = StateDisconnected
		}
		m.mu.Unlock()
		return
	}
	s.out <- string(hello)

	m.mu.Lock()
	if m.gen != gen {
		// Disconnect won the race.
		m.mu.Unlock()
		sessCancel()
		_ = sock.Close()
		return
	}
	m.sess = s
	m.state = StateConnected
	m.dialCancel = nil
	s.wg.Add(3)
	go m.writeLoop(s)
	go m.readLoop(s)
	go m.heartbeat(s)
	m.mu.Unlock()

	m.record("out", protocol.TypeHandshake, s.id)
	m.logger.Info("connected", "url", url, "session_id", s.id)
	if m.opts.OnConnected != nil {
		m.opts.OnConnected(address)
	}
}

// Disconnect is idempotent. It waits for the session goroutines to exit,
// so it must not be called from them.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	m.gen++
	s := m.sess
	cancel := m.dialCancel
	was := m.state
	m.sess = nil
	m.dialCancel = nil
	m.state = StateDisconnected
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if s != nil {
		s.stop()
		s.wg.Wait()
	}
	m.dials.Wait()
	m.endSession()
	if was != StateDisconnected {
		m.record("event", "disconnected", "requested")
		m.logger.Info("disconnected", "reason", "requested")
	}
}

// Close is Disconnect with an error result for shutdown hooks.
func (m *Manager) Close() error {
	m.Disconnect()
	return nil
}

// Send queues v for the writer without blocking. It reports whether the
// frame was accepted.
func (m *Manager) Send(v any) bool {
	typ := protocol.TypeOf(v)
	m.mu.Lock()
	s := m.sess
	connected := m.state == StateConnected
	m.mu.Unlock()
	if s == nil || !connected {
		m.logger.Debug("send dropped: no session", "type", typ)
		return false
	}

	raw, err := json.Marshal(v)
	if err != nil {
		m.logger.Warn("send dropped: encode failed", "type", typ, "err", err)
		return false
	}
	select {
	case <-s.ctx.Done():
		return false
	default:
	}
	select {
	case s.out <- string(raw):
		m.record("out", typ, "")
		return true
	default:
		m.logger.Warn("send dropped: outbound buffer full", "type", typ, "buffer", cap(s.out))
		return false
	}
}

// TakeTelemetryDue reports whether the heartbeat fired since the last call.
func (m *Manager) TakeTelemetryDue() bool {
	return m.telemetryDue.Swap(false)
}

func (m *Manager) writeLoop(s *session) {
	defer s.wg.Done()
	for {
		select {
		case <-s.ctx.Done():
			return
		case text := <-s.out:
			ctx, cancel := context.WithTimeout(s.ctx, writeTimeout)
			err := s.sock.WriteText(ctx, text)
			cancel()
			if err != nil {
				if s.ctx.Err() == nil {
					m.logger.Warn("write failed", "session_id", s.id, "err", err)
					m.teardown(s, "write failed")
				}
				return
			}
		}
	}
}

func (m *Manager) readLoop(s *session) {
	defer s.wg.Done()
	for {
		text, err := s.sock.ReadText(s.ctx)
		if err != nil {
			if s.ctx.Err() != nil {
				return
			}
			if errors.Is(err, transport.ErrNonText) {
				m.logger.Debug("dropped frame", "session_id", s.id, "err", err)
				m.record("in", "", err.Error())
				continue
			}
			if errors.Is(err, io.EOF) {
				m.logger.Info("backend closed connection", "session_id", s.id)
				m.teardown(s, "closed by backend")
			} else {
				m.logger.Warn("read failed", "session_id", s.id, "err", err)
				m.teardown(s, "read failed")
			}
			return
		}
		if s.ctx.Err() != nil {
			return
		}
		m.onInbound(text)
	}
}

func (m *Manager) onInbound(text string) {
	typ, err := protocol.PeekType([]byte(text))
	if err != nil {
		m.record("in", "", err.Error())
	} else {
		m.record("in", typ, "")
	}
	if err == nil && protocol.IsSettings(typ) {
		env, derr := protocol.Decode([]byte(text))
		if derr != nil {
			m.logger.Warn("settings decode failed", "err", derr)
			return
		}
		upd := env.(protocol.SettingsUpdate)
		if aerr := m.opts.Settings.Apply(upd.Settings); aerr != nil {
			m.logger.Warn("settings partially applied", "type", typ, "err", aerr)
		} else {
			m.logger.Info("settings applied", "type", typ, "keys", len(upd.Settings))
		}
		return
	}
	m.opts.Inbound.Enqueue(text)
}

func (m *Manager) heartbeat(s *session) {
	defer s.wg.Done()
	for {
		interval, ok := m.opts.Settings.TelemetryInterval()
		wait := telemetryRecheck
		armed := ok && interval > 0
		if armed && interval > wait {
			wait = interval
		}
		t := time.NewTimer(wait)
		select {
		case <-s.ctx.Done():
			t.Stop()
			return
		case <-t.C:
		}
		if armed && s.ctx.Err() == nil {
			m.telemetryDue.Store(true)
		}
	}
}

// teardown is the error path used by session goroutines. Unlike Disconnect
// it does not wait for them.
func (m *Manager) teardown(s *session, reason string) {
	m.mu.Lock()
	if m.sess != s {
		m.mu.Unlock()
		return
	}
	m.gen++
	m.sess = nil
	m.state = StateDisconnected
	m.mu.Unlock()

	s.stop()
	m.endSession()
	m.record("event", "disconnected", reason)
	m.logger.Info("disconnected", "session_id", s.id, "reason", reason)
}

// endSession clears per-session state the next session must not inherit.
func (m *Manager) endSession() {
	m.telemetryDue.Store(false)
	if m.opts.Inbound == nil {
		return
	}
	if n := m.opts.Inbound.Reset(); n > 0 {
		m.logger.Debug("dropped queued frames from ended session", "count", n)
	}
}

func (s *session) stop() {
	if s.closed.Swap(true) {
		return
	}
	s.cancel()
	_ = s.sock.Close()
}

func (m *Manager) record(direction, msgType, detail string) {
	if m.opts.Journal != nil {
		m.opts.Journal.Record(direction, msgType, detail)
	}
}

package chat

import (
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"automc/client/internal/host"
	"automc/client/internal/logging"
	"automc/client/internal/protocol"
	"automc/client/internal/settings"
)

const (
	bangPrefix    = "!"
	connectCmd    = "!connect"
	disconnectCmd = "!disconnect"
	echoCmd       = "!echo "
)

// Session is the part of the session manager the interceptor drives.
type Session interface {
	IsConnected() bool
	Connect(address, credential string)
	Disconnect()
	Send(v any) bool
}

type InterceptorDeps struct {
	Session    Session
	Settings   *settings.Store
	HUD        host.HUD
	PlayerUUID string
	Logger     *slog.Logger
	// NewRequestID defaults to uuid.NewString.
	NewRequestID func() string
}

// Interceptor inspects chat typed by the local player before it reaches
// public chat. Commands go to the backend as command envelopes.
type Interceptor struct {
	deps   InterceptorDeps
	logger *slog.Logger
}

func NewInterceptor(deps InterceptorDeps) *Interceptor {
	if deps.NewRequestID == nil {
		deps.NewRequestID = uuid.NewString
	}
	return &Interceptor{deps: deps, logger: logging.Module(deps.Logger, "chat_interceptor")}
}

// Intercept reports whether the message was consumed. When it returns false
// the host should send the message to public chat unchanged.
func (i *Interceptor) Intercept(message string) bool {
	if message == "" {
		return false
	}
	if !i.deps.Session.IsConnected() {
		return i.interceptDisconnected(message)
	}

	if isCommandToken(message, connectCmd) {
		i.deps.HUD.ShowLocal("Already connected; use !disconnect first.")
		return true
	}
	if isCommandToken(message, disconnectCmd) {
		i.deps.Session.Disconnect()
		i.deps.HUD.ShowLocal("Disconnected.")
		return true
	}
	if !i.isCommand(message) {
		return false
	}

	text := collapseEcho(message)
	cmd := protocol.NewCommand(i.deps.NewRequestID(), text, i.deps.PlayerUUID)
	i.deps.Session.Send(cmd)
	i.logger.Info("command forwarded", "request_id", cmd.RequestID)
	if ack, ok := i.deps.Settings.AckOnCommand(); ok && ack {
		prefix, _ := i.deps.Settings.FeedbackPrefix()
		i.deps.HUD.ShowLocal(prefix + text)
	}
	return true
}

// interceptDisconnected allows only the bootstrap command; any other bang
// command gets a hint and plain chat passes through.
func (i *Interceptor) interceptDisconnected(message string) bool {
	if isCommandToken(message, connectCmd) {
		parts := strings.Fields(strings.TrimPrefix(message, connectCmd))
		if len(parts) < 2 {
			i.deps.HUD.ShowLocal("Usage: !connect <ip:port> <password>")
			return true
		}
		addr := parts[0]
		password := strings.Join(parts[1:], " ")
		i.deps.Session.Connect(addr, password)
		i.deps.HUD.ShowLocal("Connecting to " + addr + "...")
		return true
	}
	if strings.HasPrefix(message, bangPrefix) {
		i.deps.HUD.ShowLocal("A backend connection is required. Use !connect <ip:port> <password>.")
		return true
	}
	return false
}

// isCommandToken matches cmd as a whole word, so "!connectivity" is not
// "!connect".
func isCommandToken(message, cmd string) bool {
	return message == cmd || strings.HasPrefix(message, cmd+" ")
}

func (i *Interceptor) isCommand(message string) bool {
	if strings.HasPrefix(message, bangPrefix) {
		return true
	}
	prefix, ok := i.deps.Settings.CommandPrefix()
	return ok && prefix != "" && strings.HasPrefix(message, prefix)
}

// collapseEcho turns "!echo !echo !echo hi" into "!echo hi".
func collapseEcho(text string) string {
	if !strings.HasPrefix(text, echoCmd) {
		return text
	}
	payload := strings.TrimSpace(strings.TrimPrefix(text, echoCmd))
	for strings.HasPrefix(payload, echoCmd) {
		payload = strings.TrimSpace(strings.TrimPrefix(payload, echoCmd))
	}
	return echoCmd + payload
}

package router

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"automc/client/internal/hoststate"
	"automc/client/internal/logging"
	"automc/client/internal/protocol"
	"automc/client/internal/settings"
)

type Sender interface {
	Send(v any) bool
}

type ChatSender interface {
	TrySend(text string) bool
}

type LocalDisplay interface {
	ShowLocal(text string)
}

type Executor interface {
	Execute(req protocol.ActionRequest)
}

type Reporter interface {
	Report(actionID, status, note string)
}

type StateBuilder interface {
	Build() map[string]any
}

type Canceller interface {
	Cancel(actionID string) int
}

type Deps struct {
	Settings   *settings.Store
	Chat       ChatSender
	HUD        LocalDisplay
	Executor   Executor
	Reporter   Reporter
	Sender     Sender
	State      StateBuilder
	Queue      Canceller
	PlayerUUID string
	Logger     *slog.Logger
}

// Router dispatches one decoded backend frame to exactly one handler. It
// runs on the tick goroutine.
type Router struct {
	deps   Deps
	logger *slog.Logger
}

func New(deps Deps) *Router {
	return &Router{deps: deps, logger: logging.Module(deps.Logger, "router")}
}

// HandleMessage never panics and never returns an error: malformed frames
// and handler failures are logged and dropped.
func (r *Router) HandleMessage(raw string) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("handler panic", "err", fmt.Sprint(rec))
		}
	}()

	env, err := protocol.Decode([]byte(raw))
	if err != nil {
		if errors.Is(err, protocol.ErrMissingType) {
			r.logger.Debug("message without type dropped")
		} else {
			r.logger.Warn("message decode failed", "err", err)
		}
		return
	}

	switch m := env.(type) {
	case protocol.ChatSend:
		r.handleChatSend(m)
	case protocol.ActionRequest:
		r.handleAction(m)
	case protocol.Plan:
		r.logger.Info("plan received", "request_id", m.RequestID, "plan_id", m.PlanID, "steps", m.StepCount)
	case protocol.StateRequest:
		r.handleStateRequest(m)
	case protocol.SettingsUpdate:
		if err := r.deps.Settings.Apply(m.Settings); err != nil {
			r.logger.Warn("settings partially applied", "type", m.EnvelopeType(), "err", err)
		}
	case protocol.Cancel:
		n := r.deps.Queue.Cancel(m.Target())
		r.logger.Info("cancel", "target", m.Target(), "removed", n)
	default:
		r.logger.Debug("unknown message type ignored", "type", env.EnvelopeType())
	}
}

func (r *Router) handleChatSend(m protocol.ChatSend) {
	text := m.Text
	if strings.TrimSpace(text) == "" {
		r.logger.Debug("empty chat_send ignored", "request_id", m.RequestID)
		return
	}
	if prefix, ok := r.deps.Settings.CommandPrefix(); ok && prefix != "" && strings.HasPrefix(text, prefix) {
		sent := r.deps.Chat.TrySend(text)
		r.logger.Info("chat_send command", "request_id", m.RequestID, "sent", sent)
		return
	}
	if echo, ok := r.deps.Settings.EchoPublicDefault(); ok && echo {
		sent := r.deps.Chat.TrySend(text)
		r.logger.Info("chat_send public", "request_id", m.RequestID, "sent", sent)
		return
	}
	r.deps.HUD.ShowLocal(text)
	r.logger.Debug("chat_send shown locally", "request_id", m.RequestID)
}

func (r *Router) handleAction(m protocol.ActionRequest) {
	if m.Mode != protocol.ModeChatBridge {
		r.deps.Executor.Execute(m)
		return
	}
	if m.ChatText == "" {
		r.deps.Reporter.Report(m.ActionID, protocol.StatusFail, "empty chat_text")
		return
	}
	if r.deps.Chat.TrySend(m.ChatText) {
		r.deps.Reporter.Report(m.ActionID, protocol.StatusOK, "")
		return
	}
	r.deps.Reporter.Report(m.ActionID, protocol.StatusSkipped, "rate limited")
}

func (r *Router) handleStateRequest(m protocol.StateRequest) {
	state := hoststate.Select(r.deps.State.Build(), m.Selector)
	r.deps.Sender.Send(protocol.NewStateResponse(m.RequestID, r.deps.PlayerUUID, state))
}

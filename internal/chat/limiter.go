package chat

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	"automc/client/internal/host"
	"automc/client/internal/logging"
	"automc/client/internal/settings"
)

// Limiter is the single gate for outbound chat requested by the backend.
// It allows at most one send per 1000/rate milliseconds.
type Limiter struct {
	settings  *settings.Store
	submitter host.ChatSubmitter
	logger    *slog.Logger
	now       func() time.Time

	mu       sync.Mutex
	lastSend time.Time
}

func NewLimiter(store *settings.Store, submitter host.ChatSubmitter, logger *slog.Logger) *Limiter {
	return &Limiter{
		settings:  store,
		submitter: submitter,
		logger:    logging.Module(logger, "chat"),
		now:       time.Now,
	}
}

// TrySend reports whether text was handed to the host. A false return is a
// normal outcome: the bridge is disabled, unconfigured, or rate limited.
func (l *Limiter) TrySend(text string) bool {
	enabled, ok := l.settings.ChatBridgeEnabled()
	if !ok || !enabled {
		l.logger.Debug("chat send refused", "reason", "chat bridge disabled")
		return false
	}
	rate, ok := l.settings.ChatBridgeRatePerSec()
	if !ok {
		l.logger.Debug("chat send refused", "reason", "rate limit unset")
		return false
	}

	l.mu.Lock()
	now := l.now()
	if rate > 0 && !l.lastSend.IsZero() {
		minInterval := time.Duration(1000/rate) * time.Millisecond
		if now.Sub(l.lastSend) < minInterval {
			l.mu.Unlock()
			l.logger.Debug("chat send refused", "reason", "rate limited")
			return false
		}
	}
	l.lastSend = now
	l.mu.Unlock()

	maxLen, _ := l.settings.ChatMaxLength()
	safe := Sanitize(text, maxLen)
	l.submitter.SubmitChat(safe, l.route(safe))
	return true
}

func (l *Limiter) route(text string) host.Route {
	if prefix, ok := l.settings.CommandPrefix(); ok && prefix != "" && strings.HasPrefix(text, prefix) {
		return host.RouteIntercepted
	}
	return host.RouteDirect
}

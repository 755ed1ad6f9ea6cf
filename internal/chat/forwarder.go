package chat

import (
	"strings"
	"time"

	"automc/client/internal/protocol"
)

var automationSources = []string{"baritone", "wurst"}

type Sender interface {
	Send(v any) bool
}

// Forwarder relays incoming game lines produced by automation mods to the
// backend as chat events.
type Forwarder struct {
	sender     Sender
	playerUUID string
	now        func() time.Time
}

func NewForwarder(sender Sender, playerUUID string) *Forwarder {
	return &Forwarder{sender: sender, playerUUID: playerUUID, now: time.Now}
}

// OnGameMessage reports whether the line was forwarded.
func (f *Forwarder) OnGameMessage(text string) bool {
	if !ShouldForward(text) {
		return false
	}
	return f.sender.Send(protocol.NewChatEvent(f.playerUUID, text, f.now()))
}

func ShouldForward(text string) bool {
	if text == "" {
		return false
	}
	lower := strings.ToLower(text)
	for _, src := range automationSources {
		if strings.Contains(lower, src) {
			return true
		}
	}
	return false
}

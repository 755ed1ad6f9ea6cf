package automation

import (
	"log/slog"

	"automc/client/internal/host"
	"automc/client/internal/logging"
	"automc/client/internal/protocol"
)

// Request is a craft waiting for a crafting table screen.
type Request struct {
	ActionID string
	RecipeID string
	Count    int
}

type Reporter interface {
	Report(actionID, status, note string)
}

// Queue holds requests until the crafting table UI is open. Only the head
// is looked at, once per tick, and it is attempted exactly once. A request
// waits indefinitely; the backend can withdraw it with Cancel.
//
// Queue is confined to the tick goroutine.
type Queue struct {
	screens  host.ScreenProvider
	crafter  *Crafter
	reporter Reporter
	logger   *slog.Logger

	pending []Request
}

func NewQueue(screens host.ScreenProvider, crafter *Crafter, reporter Reporter, logger *slog.Logger) *Queue {
	return &Queue{
		screens:  screens,
		crafter:  crafter,
		reporter: reporter,
		logger:   logging.Module(logger, "automation"),
	}
}

func (q *Queue) Enqueue(r Request) {
	q.pending = append(q.pending, r)
	q.logger.Info("craft deferred until crafting table opens", "action_id", r.ActionID, "recipe", r.RecipeID, "queued", len(q.pending))
}

// Tick services the head if its precondition holds and reports whether it
// did.
func (q *Queue) Tick() bool {
	if len(q.pending) == 0 || !q.screens.CraftingTableOpen() {
		return false
	}
	head := q.pending[0]
	q.pending[0] = Request{}
	q.pending = q.pending[1:]

	res := q.crafter.Craft(Grid3x3, head.RecipeID, head.Count)
	q.reporter.Report(head.ActionID, res.Status, res.Note)
	return true
}

// Cancel removes every pending request for actionID and reports each as
// cancelled. It returns how many were removed.
func (q *Queue) Cancel(actionID string) int {
	if actionID == "" {
		return 0
	}
	kept := q.pending[:0]
	removed := 0
	for _, r := range q.pending {
		if r.ActionID == actionID {
			removed++
			continue
		}
		kept = append(kept, r)
	}
	clear(q.pending[len(kept):])
	q.pending = kept
	for i := 0; i < removed; i++ {
		q.reporter.Report(actionID, protocol.StatusCancelled, "cancelled while waiting for crafting table")
	}
	return removed
}

// Clear drops every pending request without reporting. The tick loop calls
// it when the session ends.
func (q *Queue) Clear() int {
	n := len(q.pending)
	clear(q.pending)
	q.pending = q.pending[:0]
	return n
}

func (q *Queue) Len() int {
	return len(q.pending)
}

func (q *Queue) Pending() []Request {
	return append([]Request(nil), q.pending...)
}

package progress

import (
	"log/slog"

	"automc/client/internal/logging"
	"automc/client/internal/protocol"
)

type Sender interface {
	Send(v any) bool
}

// Journal receives a copy of every outcome.
type Journal interface {
	Report(actionID, status, note string)
}

// Reporter sends progress_update envelopes for backend-requested actions.
type Reporter struct {
	sender  Sender
	journal Journal
	logger  *slog.Logger
}

func NewReporter(sender Sender, logger *slog.Logger) *Reporter {
	return &Reporter{sender: sender, logger: logging.Module(logger, "progress")}
}

func (r *Reporter) SetJournal(j Journal) {
	r.journal = j
}

func (r *Reporter) Report(actionID, status, note string) {
	sent := r.sender.Send(protocol.NewProgress(actionID, status, note))
	if r.journal != nil {
		r.journal.Report(actionID, status, note)
	}
	r.logger.Info("progress_update", "action_id", actionID, "status", status, "note", note, "sent", sent)
}

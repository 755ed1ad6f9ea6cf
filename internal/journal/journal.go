// Package journal keeps a local sqlite record of backend traffic and
// action outcomes for later inspection with `automc journal list`.
package journal

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"gorm.io/gorm"

	dbmodel "automc/client/internal/db"
	"automc/client/internal/logging"
)

const (
	DirectionIn       = "in"
	DirectionOut      = "out"
	DirectionEvent    = "event"
	DirectionProgress = "progress"

	defaultBuffer = 512
	batchSize     = 64
)

var errNotInitialized = errors.New("journal is not initialized")

type Entry struct {
	ID        int64
	At        time.Time
	Direction string
	Type      string
	ActionID  string
	Status    string
	Detail    string
}

// Journal buffers entries in memory and writes them from Run so callers on
// the network or tick goroutines never wait on disk.
type Journal struct {
	db     *gorm.DB
	logger *slog.Logger
	now    func() time.Time
	ch     chan dbmodel.JournalEntry
}

// New uses gdb without taking ownership of it.
func New(gdb *gorm.DB, logger *slog.Logger) (*Journal, error) {
	if gdb == nil {
		return nil, errors.New("db is required")
	}
	return &Journal{
		db:     gdb,
		logger: logging.Module(logger, "journal"),
		now:    time.Now,
		ch:     make(chan dbmodel.JournalEntry, defaultBuffer),
	}, nil
}

// Record queues a frame or session event. It drops when the buffer is full.
func (j *Journal) Record(direction, msgType, detail string) {
	j.enqueue(dbmodel.JournalEntry{Direction: direction, MsgType: msgType, Detail: detail})
}

// Report journals a progress outcome.
func (j *Journal) Report(actionID, status, note string) {
	j.enqueue(dbmodel.JournalEntry{
		Direction: DirectionProgress,
		MsgType:   "progress_update",
		ActionID:  actionID,
		Status:    status,
		Detail:    note,
	})
}

func (j *Journal) enqueue(row dbmodel.JournalEntry) {
	if j == nil {
		return
	}
	row.CreatedAt = j.now().UTC().UnixMilli()
	select {
	case j.ch <- row:
	default:
		j.logger.Warn("journal buffer full, entry dropped", "type", row.MsgType)
	}
}

// Run writes queued entries until ctx is cancelled, then flushes what is
// left.
func (j *Journal) Run(ctx context.Context) error {
	if j == nil || j.db == nil {
		return errNotInitialized
	}
	for {
		select {
		case <-ctx.Done():
			return j.Flush(context.Background())
		case row := <-j.ch:
			j.flush(j.drain([]dbmodel.JournalEntry{row}))
		}
	}
}

// Flush synchronously writes everything queued so far. Shutdown calls it
// after the session is gone so its final events are kept.
func (j *Journal) Flush(ctx context.Context) error {
	if j == nil || j.db == nil {
		return errNotInitialized
	}
	for rows := j.drain(nil); len(rows) > 0; rows = j.drain(nil) {
		j.flush(rows)
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	return nil
}

func (j *Journal) drain(rows []dbmodel.JournalEntry) []dbmodel.JournalEntry {
	for len(rows) < batchSize {
		select {
		case row := <-j.ch:
			rows = append(rows, row)
		default:
			return rows
		}
	}
	return rows
}

func (j *Journal) flush(rows []dbmodel.JournalEntry) {
	if len(rows) == 0 {
		return
	}
	if err := j.db.CreateInBatches(rows, batchSize).Error; err != nil {
		j.logger.Warn("journal write failed", "err", err, "rows", len(rows))
	}
}

// List returns the newest entries first.
func (j *Journal) List(limit int) ([]Entry, error) {
	if j == nil || j.db == nil {
		return nil, errNotInitialized
	}
	if limit <= 0 {
		limit = 20
	}
	rows := make([]dbmodel.JournalEntry, 0, limit)
	if err := j.db.Order("id DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(rows))
	for _, row := range rows {
		out = append(out, Entry{
			ID:        row.ID,
			At:        time.UnixMilli(row.CreatedAt).UTC(),
			Direction: row.Direction,
			Type:      row.MsgType,
			ActionID:  row.ActionID,
			Status:    row.Status,
			Detail:    row.Detail,
		})
	}
	return out, nil
}

func (j *Journal) Clear() error {
	if j == nil || j.db == nil {
		return errNotInitialized
	}
	return j.db.Where("1 = 1").Delete(&dbmodel.JournalEntry{}).Error
}

package pump

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"automc/client/internal/logging"
)

// Limits supplies the queue cap and per-tick batch size. Either may be
// absent, in which case the pump refuses to do that half of its job.
type Limits interface {
	PumpQueueCap() (int, bool)
	PumpMaxPerTick() (int, bool)
}

// Pump moves raw inbound frames from network goroutines to the tick
// goroutine. Enqueue is safe from any goroutine; Drain must only be called
// from the tick goroutine.
type Pump struct {
	limits Limits
	logger *slog.Logger

	mu    sync.Mutex
	queue []string

	dropped atomic.Int64
}

func New(limits Limits, logger *slog.Logger) *Pump {
	return &Pump{limits: limits, logger: logging.Module(logger, "pump")}
}

// Enqueue appends raw unless the cap is unset or already reached. It never
// blocks and reports whether the frame was kept.
func (p *Pump) Enqueue(raw string) bool {
	limit, ok := p.limits.PumpQueueCap()
	if !ok {
		p.drop("queue cap unset")
		return false
	}
	p.mu.Lock()
	if len(p.queue) >= limit {
		p.mu.Unlock()
		p.drop("queue full")
		return false
	}
	p.queue = append(p.queue, raw)
	p.mu.Unlock()
	return true
}

// DrainAndDispatch pops at most one batch in arrival order and hands each
// frame to dispatch. A panicking dispatch is logged and the batch continues.
// It returns the number of frames taken off the queue.
func (p *Pump) DrainAndDispatch(dispatch func(raw string)) int {
	batchSize, ok := p.limits.PumpMaxPerTick()
	if !ok || batchSize <= 0 {
		return 0
	}
	p.mu.Lock()
	n := len(p.queue)
	if n > batchSize {
		n = batchSize
	}
	if n == 0 {
		p.mu.Unlock()
		return 0
	}
	batch := make([]string, n)
	copy(batch, p.queue[:n])
	rest := copy(p.queue, p.queue[n:])
	clear(p.queue[rest:])
	p.queue = p.queue[:rest]
	p.mu.Unlock()

	for _, raw := range batch {
		p.dispatchOne(dispatch, raw)
	}
	return n
}

func (p *Pump) dispatchOne(dispatch func(string), raw string) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Warn("message handling error", "err", fmt.Sprint(r))
		}
	}()
	dispatch(raw)
}

// Reset discards every queued frame and reports how many were dropped. Safe
// from any goroutine.
func (p *Pump) Reset() int {
	p.mu.Lock()
	n := len(p.queue)
	clear(p.queue)
	p.queue = p.queue[:0]
	p.mu.Unlock()
	return n
}

func (p *Pump) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queue)
}

func (p *Pump) Dropped() int64 {
	return p.dropped.Load()
}

func (p *Pump) drop(reason string) {
	total := p.dropped.Add(1)
	// Only the first drop and every 100th after are logged to avoid a storm.
	if total == 1 || total%100 == 0 {
		p.logger.Warn("inbound message dropped", "reason", reason, "dropped_total", total)
	}
}

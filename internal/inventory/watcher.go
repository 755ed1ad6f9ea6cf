package inventory

import (
	"log/slog"
	"time"

	"automc/client/internal/host"
	"automc/client/internal/logging"
	"automc/client/internal/protocol"
	"automc/client/internal/settings"
)

type Sender interface {
	Send(v any) bool
}

type WatcherDeps struct {
	Screens    host.ScreenProvider
	Sender     Sender
	Settings   *settings.Store
	PlayerUUID string
	// Eligible classifies container kinds; defaults to host.IsStorageContainer.
	Eligible func(kind string) bool
	Logger   *slog.Logger
}

// Watcher emits a full snapshot when a storage screen opens and debounced
// diffs while it stays open. It runs on the tick goroutine only.
type Watcher struct {
	deps   WatcherDeps
	logger *slog.Logger
	now    func() time.Time

	byHandler map[int]Snapshot
	versions  map[Key]int64
	lastDiff  time.Time
}

func NewWatcher(deps WatcherDeps) *Watcher {
	if deps.Eligible == nil {
		deps.Eligible = host.IsStorageContainer
	}
	return &Watcher{
		deps:      deps,
		logger:    logging.Module(deps.Logger, "inventory"),
		now:       time.Now,
		byHandler: map[int]Snapshot{},
		versions:  map[Key]int64{},
	}
}

// OnScreenOpen sends the full snapshot and restarts the debounce window so
// the next tick may diff immediately.
func (w *Watcher) OnScreenOpen() {
	w.lastDiff = time.Time{}
	c, ok := w.deps.Screens.OpenContainer()
	if !ok {
		return
	}
	snap, ok := w.capture(c)
	if !ok {
		return
	}
	w.byHandler[c.SyncID] = snap
	w.deps.Sender.Send(protocol.NewInventorySnapshot(w.deps.PlayerUUID, snap.Payload()))
	w.logger.Debug("inventory snapshot sent", "sync_id", c.SyncID, "version", snap.Version, "slots", len(snap.Slots))
}

// Tick reports whether a diff was emitted.
func (w *Watcher) Tick() bool {
	if !w.deps.Settings.Applied() {
		return false
	}
	debounce, ok := w.deps.Settings.InventoryDiffDebounce()
	if !ok {
		return false
	}
	c, ok := w.deps.Screens.OpenContainer()
	if !ok {
		return false
	}
	now := w.now()
	if !w.lastDiff.IsZero() && now.Sub(w.lastDiff) < debounce {
		return false
	}
	snap, ok := w.capture(c)
	if !ok {
		return false
	}
	prev, ok := w.byHandler[c.SyncID]
	w.byHandler[c.SyncID] = snap
	if !ok {
		return false
	}
	if prev.Version == snap.Version && prev.Hash == snap.Hash {
		return false
	}
	// a version-only change still goes out so from_version always names
	// the last version the backend received
	adds, removes := Diff(prev, snap)
	w.deps.Sender.Send(protocol.NewInventoryDiff(
		w.deps.PlayerUUID,
		protocol.ContainerKey{Dim: snap.Key.Dim, Pos: snap.Key.Pos},
		prev.Version, snap.Version, adds, removes,
	))
	w.lastDiff = now
	w.logger.Debug("inventory diff sent", "sync_id", c.SyncID, "adds", len(adds), "removes", len(removes))
	return true
}

// Forget drops per-handler state, e.g. after leaving the world.
func (w *Watcher) Forget() {
	clear(w.byHandler)
	w.lastDiff = time.Time{}
}

func (w *Watcher) capture(c host.Container) (Snapshot, bool) {
	if !c.HasPos || c.Dim == "" || !w.deps.Eligible(c.Kind) {
		return Snapshot{}, false
	}
	key := Key{Dim: c.Dim, Pos: c.Pos}
	snap := Build(c, w.versions[key], w.now())
	w.versions[key] = snap.Version
	return snap, true
}

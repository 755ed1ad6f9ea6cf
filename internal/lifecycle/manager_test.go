package lifecycle

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"
)

func TestManager_ContextCancelRunsShutdown(t *testing.T) {
	mgr := NewManager(nil)
	steps := make([]string, 0, 4)
	var mu sync.Mutex
	appendStep := func(v string) {
		mu.Lock()
		steps = append(steps, v)
		mu.Unlock()
	}

	mgr.AddRun("tick", func(ctx context.Context) error {
		<-ctx.Done()
		appendStep("run-tick-stopped")
		return nil
	})
	mgr.AddShutdown("close-db", func(context.Context) error {
		appendStep("shutdown-db")
		return nil
	})

	parent, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- mgr.StartAndWait(parent)
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()

	if err := <-done; err != nil {
		t.Fatalf("StartAndWait should not fail: %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if !slices.Contains(steps, "run-tick-stopped") {
		t.Fatalf("missing run stop marker: %#v", steps)
	}
	if !slices.Contains(steps, "shutdown-db") {
		t.Fatalf("missing shutdown marker: %#v", steps)
	}
}

func TestManager_RunErrorTriggersShutdown(t *testing.T) {
	mgr := NewManager(nil)
	runErr := errors.New("boom")
	shutdownCalled := 0

	mgr.AddRun("tick", func(context.Context) error {
		return runErr
	})
	mgr.AddShutdown("close-db", func(context.Context) error {
		shutdownCalled++
		return nil
	})

	err := mgr.StartAndWait(context.Background())
	if !errors.Is(err, runErr) {
		t.Fatalf("expected run error, got %v", err)
	}
	if shutdownCalled != 1 {
		t.Fatalf("expected shutdown called once, got %d", shutdownCalled)
	}
}

func TestManager_ShutdownErrorsAreJoinedInOrder(t *testing.T) {
	mgr := NewManager(nil)
	order := []string{}
	errA := errors.New("disconnect failed")
	errB := errors.New("close failed")
	mgr.AddShutdown("disconnect", func(context.Context) error {
		order = append(order, "disconnect")
		return errA
	})
	mgr.AddShutdown("close-db", func(context.Context) error {
		order = append(order, "close-db")
		return errB
	})
	mgr.AddShutdown("skipped-nil", nil)

	err := mgr.StartAndWait(context.Background())
	if !errors.Is(err, errA) || !errors.Is(err, errB) {
		t.Fatalf("expected both shutdown errors, got %v", err)
	}
	if !slices.Equal(order, []string{"disconnect", "close-db"}) {
		t.Fatalf("unexpected shutdown order %v", order)
	}
}

package tui

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestShutdownManager_Order(t *testing.T) {
	var order []string
	sm := NewShutdownManager()
	sm.StopReceivers = func(ctx context.Context) error {
		if _, ok := ctx.Deadline(); !ok {
			t.Error("receiver stop context has no deadline")
		}
		order = append(order, "receivers")
		return nil
	}
	sm.StopPipeline = func() error {
		order = append(order, "pipeline")
		return nil
	}
	sm.StopServer = func(context.Context) error {
		order = append(order, "server")
		return nil
	}
	sm.Cleanup = func() error {
		order = append(order, "cleanup")
		return nil
	}

	if err := sm.Shutdown(); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}

	want := []string{"receivers", "pipeline", "server", "cleanup"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("step %d = %s, want %s", i, order[i], want[i])
		}
	}
}

func TestShutdownManager_ContinuesAfterError(t *testing.T) {
	errPipeline := errors.New("drain timed out")
	cleaned := false

	sm := NewShutdownManager()
	sm.StopPipeline = func() error { return errPipeline }
	sm.Cleanup = func() error {
		cleaned = true
		return nil
	}

	err := sm.Shutdown()
	if !errors.Is(err, errPipeline) {
		t.Errorf("Shutdown error = %v, want %v", err, errPipeline)
	}
	if !cleaned {
		t.Error("cleanup skipped after pipeline error")
	}
}

func TestShutdownManager_RunsOnce(t *testing.T) {
	calls := 0
	sm := NewShutdownManager()
	sm.Cleanup = func() error {
		calls++
		return nil
	}

	_ = sm.Shutdown()
	_ = sm.Shutdown()
	if calls != 1 {
		t.Errorf("cleanup ran %d times, want 1", calls)
	}
}

func TestShutdownManager_DrainTimeoutBoundsReceivers(t *testing.T) {
	sm := NewShutdownManager()
	sm.DrainTimeout = 20 * time.Millisecond
	sm.StopReceivers = func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}

	start := time.Now()
	err := sm.Shutdown()
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Shutdown error = %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Shutdown took %v", elapsed)
	}
}

package tui

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ShutdownManager stops camwatch components in order: receivers first so
// no new samples arrive, then the pipeline so queued alerts drain, then the
// HTTP server, then cleanup. It runs at most once; later calls return the
// first result.
type ShutdownManager struct {
	// DrainTimeout bounds receiver and server shutdown.
	DrainTimeout time.Duration

	// StopReceivers stops the detection receivers.
	StopReceivers func(ctx context.Context) error

	// StopPipeline stops sample processing and waits for dispatch to drain.
	StopPipeline func() error

	// StopServer stops the metrics and API server.
	StopServer func(ctx context.Context) error

	// Cleanup releases remaining resources such as the audit log.
	Cleanup func() error

	once sync.Once
	err  error
}

// NewShutdownManager creates a ShutdownManager with a 5-second drain timeout.
func NewShutdownManager() *ShutdownManager {
	return &ShutdownManager{
		DrainTimeout: 5 * time.Second,
	}
}

// Shutdown runs every configured step even when an earlier one fails and
// returns the joined errors.
func (sm *ShutdownManager) Shutdown() error {
	sm.once.Do(func() {
		sm.err = sm.shutdown()
	})
	return sm.err
}

func (sm *ShutdownManager) shutdown() error {
	var errs []error

	if sm.StopReceivers != nil {
		ctx, cancel := context.WithTimeout(context.Background(), sm.DrainTimeout)
		errs = append(errs, sm.StopReceivers(ctx))
		cancel()
	}

	if sm.StopPipeline != nil {
		errs = append(errs, sm.StopPipeline())
	}

	if sm.StopServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), sm.DrainTimeout)
		errs = append(errs, sm.StopServer(ctx))
		cancel()
	}

	if sm.Cleanup != nil {
		errs = append(errs, sm.Cleanup())
	}

	return errors.Join(errs...)
}

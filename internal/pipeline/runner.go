package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/nixlim/camwatch/internal/detection"
	"github.com/nixlim/camwatch/internal/logging"
	"github.com/nixlim/camwatch/internal/monitoring"
)

// DefaultShutdownTimeout bounds how long Run waits for pending deliveries.
const DefaultShutdownTimeout = 10 * time.Second

// Clock selects the time a sample is evaluated at.
type Clock int

const (
	// ClockWall evaluates every sample at the current wall-clock time.
	ClockWall Clock = iota
	// ClockSample evaluates every sample at its own timestamp, so recorded
	// input replays with its original timing.
	ClockSample
)

// Runner routes samples to detectors by source ID. One goroutine owns all
// evaluators; receivers fan in through the samples channel.
type Runner struct {
	detectors       map[string]*Detector
	ids             []string
	dispatcher      *Dispatcher
	metrics         *monitoring.Metrics
	logger          logging.Logger
	clock           Clock
	wall            func() time.Time
	shutdownTimeout time.Duration

	unknown map[string]bool
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

func WithRunnerLogger(l logging.Logger) RunnerOption {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

func WithRunnerMetrics(m *monitoring.Metrics) RunnerOption {
	return func(r *Runner) {
		if m != nil {
			r.metrics = m
		}
	}
}

// WithClock selects the evaluation clock. wall is used by ClockWall and
// defaults to time.Now.
func WithClock(c Clock, wall func() time.Time) RunnerOption {
	return func(r *Runner) {
		r.clock = c
		if wall != nil {
			r.wall = wall
		}
	}
}

func WithShutdownTimeout(d time.Duration) RunnerOption {
	return func(r *Runner) {
		if d > 0 {
			r.shutdownTimeout = d
		}
	}
}

// NewRunner creates a runner. Detector IDs must be unique.
func NewRunner(detectors []*Detector, dispatcher *Dispatcher, opts ...RunnerOption) (*Runner, error) {
	if len(detectors) == 0 {
		return nil, errors.New("at least one detector is required")
	}
	if dispatcher == nil {
		return nil, errors.New("dispatcher is required")
	}

	r := &Runner{
		detectors:       make(map[string]*Detector, len(detectors)),
		dispatcher:      dispatcher,
		metrics:         dispatcher.metrics,
		logger:          logging.Discard(),
		wall:            time.Now,
		shutdownTimeout: DefaultShutdownTimeout,
		unknown:         make(map[string]bool),
	}
	for _, d := range detectors {
		if _, dup := r.detectors[d.ID]; dup {
			return nil, fmt.Errorf("duplicate detector id %q", d.ID)
		}
		r.detectors[d.ID] = d
		r.ids = append(r.ids, d.ID)
	}
	sort.Strings(r.ids)

	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Run processes samples until ctx is cancelled or samples is closed, then
// drains the dispatcher. Samples already buffered when ctx is cancelled are
// still handled. Undelivered alerts are logged and recorded, not
// retried.
func (r *Runner) Run(ctx context.Context, samples <-chan detection.Sample) error {
	r.dispatcher.Start(ctx)
	r.logger.WithField("detectors", len(r.detectors)).Info("pipeline started")

loop:
	for {
		select {
		case <-ctx.Done():
			r.drainBuffered(samples)
			break loop
		case s, ok := <-samples:
			if !ok {
				break loop
			}
			r.handle(s)
		}
	}

	r.logger.Info("pipeline stopping, draining deliveries")
	if err := r.dispatcher.Shutdown(r.shutdownTimeout); err != nil {
		return err
	}
	r.logger.Info("pipeline stopped")
	return nil
}

// drainBuffered handles the samples already queued on samples when Run is
// cancelled, without waiting for more.
func (r *Runner) drainBuffered(samples <-chan detection.Sample) {
	for n := len(samples); n > 0; n-- {
		select {
		case s, ok := <-samples:
			if !ok {
				return
			}
			r.handle(s)
		default:
			return
		}
	}
}

func (r *Runner) handle(s detection.Sample) {
	d, ok := r.detectors[s.Source]
	if !ok {
		if !r.unknown[s.Source] {
			r.unknown[s.Source] = true
			r.logger.WithField("detector", s.Source).Warn("sample from unknown detector ignored")
		}
		return
	}

	now := r.wall()
	if r.clock == ClockSample {
		now = s.Timestamp
	}

	obs := d.Observe(s, now)
	r.metrics.ObserveSample(d.ID, obs.Outcome)
	if obs.Outcome != monitoring.SampleThrottled {
		r.metrics.SetWindowSize(d.ID, obs.Decision.Stats.WindowSize)
	}
	if obs.Fired {
		r.dispatcher.Submit(obs.Alert)
	}
}

// Statuses snapshots every detector, ordered by ID. Safe to call while
// Run is active.
func (r *Runner) Statuses() []Status {
	out := make([]Status, 0, len(r.ids))
	for _, id := range r.ids {
		out = append(out, r.detectors[id].Status())
	}
	return out
}

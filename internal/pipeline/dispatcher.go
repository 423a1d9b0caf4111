package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nixlim/camwatch/internal/alerts"
	"github.com/nixlim/camwatch/internal/delivery"
	"github.com/nixlim/camwatch/internal/events"
	"github.com/nixlim/camwatch/internal/logging"
	"github.com/nixlim/camwatch/internal/monitoring"
	"github.com/nixlim/camwatch/internal/storage"
)

// Dispatcher defaults.
const (
	DefaultQueueSize = 64
	DefaultWorkers   = 4
)

// ErrShutdownTimeout is returned by Shutdown when in-flight deliveries did
// not finish in time.
var ErrShutdownTimeout = errors.New("dispatcher shutdown timed out")

// Deliverer sends one alert downstream.
type Deliverer interface {
	Deliver(ctx context.Context, alert alerts.Alert) delivery.Result
}

// DispatcherConfig sizes the queue and worker pool.
type DispatcherConfig struct {
	QueueSize int
	Workers   int
}

// Dispatcher records fired alerts and hands them to a fixed pool of
// delivery workers through a bounded queue. Submit never blocks: an alert
// that does not fit in the queue is recorded as dropped.
type Dispatcher struct {
	cfg       DispatcherConfig
	deliverer Deliverer
	audit     storage.AuditLog
	metrics   *monitoring.Metrics
	activity  *events.RingBuffer
	notifier  alerts.Notifier
	logger    logging.Logger
	now       func() time.Time

	queue   chan alerts.Alert
	group   *errgroup.Group
	workCtx context.Context
	cancel  context.CancelFunc

	mu      sync.Mutex
	started bool
	closed  bool
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

func WithAuditLog(a storage.AuditLog) DispatcherOption {
	return func(d *Dispatcher) {
		if a != nil {
			d.audit = a
		}
	}
}

func WithMetrics(m *monitoring.Metrics) DispatcherOption {
	return func(d *Dispatcher) {
		if m != nil {
			d.metrics = m
		}
	}
}

func WithActivity(b *events.RingBuffer) DispatcherOption {
	return func(d *Dispatcher) {
		if b != nil {
			d.activity = b
		}
	}
}

func WithNotifier(n alerts.Notifier) DispatcherOption {
	return func(d *Dispatcher) {
		if n != nil {
			d.notifier = n
		}
	}
}

func WithDispatcherLogger(l logging.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

func WithDispatcherClock(now func() time.Time) DispatcherOption {
	return func(d *Dispatcher) {
		if now != nil {
			d.now = now
		}
	}
}

// NewDispatcher creates a dispatcher. A nil deliverer disables delivery:
// alerts are still recorded, with status skipped.
func NewDispatcher(cfg DispatcherConfig, deliverer Deliverer, opts ...DispatcherOption) *Dispatcher {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultQueueSize
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	d := &Dispatcher{
		cfg:       cfg,
		deliverer: deliverer,
		audit:     storage.NewMemoryLog(storage.DefaultMemoryCapacity),
		metrics:   monitoring.NewMetrics("dev"),
		activity:  events.NewRingBuffer(500),
		notifier:  alerts.NopNotifier{},
		logger:    logging.Discard(),
		now:       time.Now,
		queue:     make(chan alerts.Alert, cfg.QueueSize),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Start launches the workers. Deliveries keep running after ctx is
// cancelled until Shutdown gives up on them.
func (d *Dispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started {
		return
	}
	d.started = true

	d.workCtx, d.cancel = context.WithCancel(context.WithoutCancel(ctx))
	d.group = new(errgroup.Group)
	for range d.cfg.Workers {
		d.group.Go(d.worker)
	}
}

// Submit records a fired alert and queues it for delivery. It returns
// false when the alert was dropped.
func (d *Dispatcher) Submit(a alerts.Alert) bool {
	det := a.Metadata.DetectorID
	log := d.logger.WithFields(logging.Fields{"detector": det, "alert_id": a.ID})

	d.audit.RecordAlert(a)
	d.activity.Add(events.FormatFired(a))
	d.metrics.AlertFired(det, a.Metadata.AlertType)
	d.notifier.Notify(a)
	log.WithField("confidence", a.How.ConfidenceScore).Info("ALERT: " + alerts.Summary(a))

	if d.deliverer == nil {
		d.finish(a, storage.Outcome{AlertID: a.ID, Status: storage.StatusSkipped, At: d.now()})
		d.activity.Add(events.FormatSkipped(a, d.now()))
		return true
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		d.drop(a, "dispatcher is shut down")
		return false
	}
	select {
	case d.queue <- a:
		d.metrics.SetQueueDepth(len(d.queue))
		return true
	default:
		d.drop(a, "delivery queue full")
		return false
	}
}

func (d *Dispatcher) drop(a alerts.Alert, reason string) {
	d.logger.WithFields(logging.Fields{
		"detector": a.Metadata.DetectorID,
		"alert_id": a.ID,
	}).Warn("alert dropped: " + reason)
	d.finish(a, storage.Outcome{AlertID: a.ID, Status: storage.StatusDropped, Error: reason, At: d.now()})
	d.activity.Add(events.FormatDropped(a, d.now()))
}

func (d *Dispatcher) finish(a alerts.Alert, o storage.Outcome) {
	d.audit.RecordOutcome(o)
	d.metrics.DeliveryResult(a.Metadata.DetectorID, string(o.Status))
}

func (d *Dispatcher) worker() error {
	for a := range d.queue {
		d.metrics.SetQueueDepth(len(d.queue))
		if d.workCtx.Err() != nil {
			d.abandon(a, delivery.Result{})
			continue
		}
		d.deliver(a)
	}
	return nil
}

func (d *Dispatcher) deliver(a alerts.Alert) {
	res := d.deliverer.Deliver(d.workCtx, a)
	if !res.Delivered && d.workCtx.Err() != nil {
		d.abandon(a, res)
		return
	}

	at := d.now()
	d.finish(a, storage.OutcomeFromResult(a.ID, res, at))
	d.activity.Add(events.FormatResult(a, res, at))
}

// abandon records an alert that shutdown prevented from being delivered.
func (d *Dispatcher) abandon(a alerts.Alert, res delivery.Result) {
	d.logger.WithFields(logging.Fields{
		"detector": a.Metadata.DetectorID,
		"alert_id": a.ID,
	}).Warn("alert undelivered at shutdown")

	o := storage.Outcome{
		AlertID:    a.ID,
		Status:     storage.StatusAbandoned,
		StatusCode: res.StatusCode,
		Attempts:   res.Attempts,
		Error:      "undelivered at shutdown",
		At:         d.now(),
	}
	d.finish(a, o)
	d.activity.Add(events.FormatResult(a, res, o.At))
}

// QueueDepth returns the number of alerts waiting for a worker.
func (d *Dispatcher) QueueDepth() int {
	return len(d.queue)
}

// QueueCapacity returns the queue bound.
func (d *Dispatcher) QueueCapacity() int {
	return cap(d.queue)
}

// Shutdown stops accepting alerts and waits up to timeout for queued and
// in-flight deliveries. On timeout the remaining deliveries are cancelled
// and recorded as abandoned.
func (d *Dispatcher) Shutdown(timeout time.Duration) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	close(d.queue)
	started := d.started
	d.mu.Unlock()

	if !started {
		for a := range d.queue {
			d.abandon(a, delivery.Result{})
		}
		return nil
	}

	done := make(chan error, 1)
	go func() { done <- d.group.Wait() }()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case err := <-done:
		d.cancel()
		return err
	case <-timer.C:
		d.cancel()
		<-done
		d.logger.WithField("timeout", timeout).Warn("dispatcher shutdown timed out")
		return fmt.Errorf("%w after %v", ErrShutdownTimeout, timeout)
	}
}

// AttemptObserver returns a delivery attempt observer that records each
// attempt in the audit log and metrics.
func AttemptObserver(audit storage.AuditLog, metrics *monitoring.Metrics) func(delivery.Attempt) {
	return func(at delivery.Attempt) {
		if audit != nil {
			audit.RecordAttempt(at)
		}
		if metrics != nil {
			metrics.DeliveryAttempt(at.StatusCode, at.Duration)
		}
	}
}

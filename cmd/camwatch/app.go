package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nixlim/camwatch/internal/alerts"
	"github.com/nixlim/camwatch/internal/api"
	"github.com/nixlim/camwatch/internal/config"
	"github.com/nixlim/camwatch/internal/delivery"
	"github.com/nixlim/camwatch/internal/detection"
	"github.com/nixlim/camwatch/internal/events"
	"github.com/nixlim/camwatch/internal/logging"
	"github.com/nixlim/camwatch/internal/monitoring"
	"github.com/nixlim/camwatch/internal/pipeline"
	"github.com/nixlim/camwatch/internal/receiver"
	"github.com/nixlim/camwatch/internal/storage"
	"github.com/nixlim/camwatch/internal/tui"
)

const (
	activityBufferSize = 1000
	sampleBufferSize   = 256
)

// pipelineHandle tracks a running Runner so it can be stopped from any
// shutdown path, including after it has already returned.
type pipelineHandle struct {
	cancel context.CancelFunc
	done   chan struct{}
	err    error
}

func startPipeline(ctx context.Context, runner *pipeline.Runner, samples <-chan detection.Sample) *pipelineHandle {
	ctx, cancel := context.WithCancel(ctx)
	h := &pipelineHandle{cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(h.done)
		h.err = runner.Run(ctx, samples)
	}()
	return h
}

func (h *pipelineHandle) stop() error {
	h.cancel()
	<-h.done
	return h.err
}

// openLogOutput returns the writer for the structured logger. The TUI owns
// the terminal, so in TUI mode logs go to cfg.File or a file in the temp
// directory.
func openLogOutput(cfg config.LoggingConfig, tuiMode bool) (io.Writer, func() error, error) {
	path := cfg.File
	if path == "" && tuiMode {
		path = filepath.Join(os.TempDir(), "camwatch.log")
	}
	if path == "" {
		return os.Stderr, func() error { return nil }, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, nil, fmt.Errorf("creating log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file %q: %w", path, err)
	}
	return f, f.Close, nil
}

func buildDetectors(cfg config.Config) ([]*pipeline.Detector, error) {
	var detectors []*pipeline.Detector
	var errs []error
	for _, dc := range cfg.EnabledDetectors() {
		d, err := pipeline.DetectorFromConfig(dc)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		detectors = append(detectors, d)
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	if len(detectors) == 0 {
		return nil, errors.New("no enabled detectors configured")
	}
	return detectors, nil
}

// buildDeliverer returns the webhook client, or nil when no URL is set so
// the dispatcher records alerts as skipped.
func buildDeliverer(cfg config.WebhookConfig, audit storage.AuditLog, metrics *monitoring.Metrics, logger logging.Logger) *delivery.Client {
	if cfg.URL == "" {
		logger.Warn("no webhook url configured; alerts will be logged but not sent")
		return nil
	}
	return delivery.NewClient(webhookConfig(cfg),
		delivery.WithLogger(logger),
		delivery.WithAttemptObserver(pipeline.AttemptObserver(audit, metrics)),
	)
}

func probeWebhook(ctx context.Context, client *delivery.Client, url string, tracker *monitoring.ProbeTracker, activity *events.RingBuffer, logger logging.Logger) {
	ok := client.Probe(ctx)
	now := time.Now()
	tracker.Record(ok, now)
	activity.Add(events.FormatProbe(url, ok, now))
	if !ok {
		logger.WithField("url", url).Warn("webhook probe failed; continuing, alerts will be retried per delivery")
		return
	}
	logger.WithField("url", url).Info("webhook reachable")
}

func run(cfg config.Config, opts runOptions) error {
	logOut, closeLog, err := openLogOutput(cfg.Logging, opts.tui)
	if err != nil {
		return err
	}
	logger := logging.New(logOut, cfg.Logging.Level, cfg.Logging.Format)

	detectors, err := buildDetectors(cfg)
	if err != nil {
		_ = closeLog()
		return fmt.Errorf("detector config: %w", err)
	}

	store, persistent, err := storage.NewStore(cfg.Storage, logger)
	if err != nil {
		_ = closeLog()
		return fmt.Errorf("storage: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics := monitoring.NewMetrics(version)
	activity := events.NewRingBuffer(activityBufferSize)
	probe := &monitoring.ProbeTracker{}

	client := buildDeliverer(cfg.Webhook, store, metrics, logger)
	var deliverer pipeline.Deliverer
	if client != nil {
		deliverer = client
		if cfg.Webhook.ProbeOnStart {
			probeWebhook(ctx, client, cfg.Webhook.URL, probe, activity, logger)
		}
	}

	dispatcher := pipeline.NewDispatcher(
		pipeline.DispatcherConfig{QueueSize: cfg.Dispatch.QueueSize, Workers: cfg.Dispatch.Workers},
		deliverer,
		pipeline.WithAuditLog(store),
		pipeline.WithMetrics(metrics),
		pipeline.WithActivity(activity),
		pipeline.WithNotifier(alerts.NewPlatformNotifier(cfg.Notifications.SystemNotify, logger)),
		pipeline.WithDispatcherLogger(logger),
	)

	clock := pipeline.ClockWall
	if opts.replayPath != "" {
		clock = pipeline.ClockSample
	}
	runner, err := pipeline.NewRunner(detectors, dispatcher,
		pipeline.WithRunnerLogger(logger),
		pipeline.WithRunnerMetrics(metrics),
		pipeline.WithClock(clock, time.Now),
		pipeline.WithShutdownTimeout(cfg.Dispatch.ShutdownTimeout()),
	)
	if err != nil {
		_ = store.Close()
		_ = closeLog()
		return err
	}

	samples := make(chan detection.Sample, sampleBufferSize)
	sink := receiver.ChanSink(samples)
	pipe := startPipeline(ctx, runner, samples)

	shutdownMgr := tui.NewShutdownManager()
	var cleanups []func() error

	if opts.replayPath == "" && cfg.Receiver.Enabled {
		recvOpts := []receiver.Option{receiver.WithLogger(logger)}
		if cfg.Receiver.DebugLog != "" {
			debugFile, err := os.OpenFile(cfg.Receiver.DebugLog, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
			if err != nil {
				logger.WithError(err).Warn("cannot open receiver debug log; continuing without it")
			} else {
				cleanups = append(cleanups, debugFile.Close)
				recvOpts = append(recvOpts, receiver.WithDebugLogger(receiver.NewFileLogger(debugFile)))
			}
		}

		grpcRecv := receiver.NewGRPCReceiver(cfg.Receiver, sink, recvOpts...)
		httpRecv := receiver.NewHTTPReceiver(cfg.Receiver, sink, recvOpts...)
		if err := grpcRecv.Start(ctx); err != nil {
			_ = pipe.stop()
			_ = store.Close()
			_ = closeLog()
			return fmt.Errorf("starting gRPC receiver: %w", err)
		}
		if err := httpRecv.Start(ctx); err != nil {
			grpcRecv.Stop()
			_ = pipe.stop()
			_ = store.Close()
			_ = closeLog()
			return fmt.Errorf("starting HTTP receiver: %w", err)
		}
		logger.WithFields(logging.Fields{"grpc": grpcRecv.Addr().String(), "http": httpRecv.Addr().String()}).Info("receivers listening")

		shutdownMgr.StopReceivers = func(context.Context) error {
			grpcRecv.Stop()
			httpRecv.Stop()
			return nil
		}
	}

	shutdownMgr.StopPipeline = pipe.stop

	if cfg.Metrics.Enabled {
		health := monitoring.NewHealthChecker("camwatch", version)
		health.AddCheck("dispatch_queue", monitoring.QueueHealthCheck(dispatcher.QueueDepth, dispatcher.QueueCapacity()))
		health.AddCheck("webhook_probe", probe.Check)
		if h, ok := store.(storage.History); ok {
			health.AddCheck("audit_log", monitoring.CounterHealthCheck("audit writes dropped", h.DroppedWrites))
		}

		server := monitoring.NewServer(cfg.Metrics.Addr, metrics, health, logger)
		if opts.replayPath == "" {
			receiver.NewJSONIngest(sink, receiver.WithLogger(logger)).RegisterRoutes(server.Router())
		}
		api.NewHandlers(store, activity, runner).RegisterRoutes(server.Router())

		if err := server.Start(); err != nil {
			logger.WithError(err).Warn("metrics server not started")
		} else {
			logger.WithField("addr", server.Addr().String()).Info("metrics and API listening")
			shutdownMgr.StopServer = server.Shutdown
		}
	}

	shutdownMgr.Cleanup = func() error {
		errs := []error{store.Close()}
		for _, c := range cleanups {
			errs = append(errs, c())
		}
		errs = append(errs, closeLog())
		return errors.Join(errs...)
	}

	replayDone := make(chan struct{})
	if opts.replayPath != "" {
		go func() {
			defer close(replayDone)
			n, err := receiver.ReplayFile(ctx, opts.replayPath, sink, receiver.ReplayOptions{
				Pace:   opts.pace,
				Speed:  opts.speed,
				Logger: logger,
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.WithError(err).Error("replay stopped")
			}
			logger.WithField("samples", n).Info("replay finished")
			close(samples)
			<-pipe.done
		}()
	}

	if opts.tui {
		return runDashboard(ctx, shutdownMgr, persistent, runner, activity, store, dispatcher)
	}

	if opts.replayPath != "" {
		select {
		case <-replayDone:
		case <-ctx.Done():
			<-replayDone
		}
	} else {
		<-ctx.Done()
	}
	logger.Info("shutting down")
	return shutdownMgr.Shutdown()
}

func runDashboard(ctx context.Context, shutdownMgr *tui.ShutdownManager, persistent bool, runner *pipeline.Runner, activity *events.RingBuffer, store storage.AuditLog, dispatcher *pipeline.Dispatcher) error {
	modelOpts := []tui.ModelOption{
		tui.WithDetectorProvider(runner),
		tui.WithEventProvider(activity),
		tui.WithAlertProvider(store),
		tui.WithQueueProvider(dispatcher),
		tui.WithPersistenceFlag(persistent),
		tui.WithOnShutdown(func() { _ = shutdownMgr.Shutdown() }),
	}
	if h, ok := store.(storage.History); ok {
		modelOpts = append(modelOpts, tui.WithHistoryProvider(h))
	}

	p := tea.NewProgram(tui.NewModel(modelOpts...), tea.WithAltScreen())

	go func() {
		<-ctx.Done()
		_ = shutdownMgr.Shutdown()
		p.Quit()
	}()

	if _, err := p.Run(); err != nil {
		_ = shutdownMgr.Shutdown()
		return err
	}
	return shutdownMgr.Shutdown()
}

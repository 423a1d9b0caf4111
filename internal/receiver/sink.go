// Package receiver adapts upstream detectors to the pipeline. It accepts
// detection samples as OTLP log records over gRPC and HTTP, as plain JSON
// through the HTTP API, and from JSONL replay files, and hands each
// sample to a Sink.
package receiver

import (
	"context"
	"time"

	"github.com/nixlim/camwatch/internal/detection"
	"github.com/nixlim/camwatch/internal/logging"
)

// Sink accepts samples for evaluation. Submit blocks until the sample is
// taken or ctx is done.
type Sink interface {
	Submit(ctx context.Context, s detection.Sample) error
}

// ChanSink delivers samples on a channel.
type ChanSink chan<- detection.Sample

// Submit sends s on the channel.
func (c ChanSink) Submit(ctx context.Context, s detection.Sample) error {
	select {
	case c <- s:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Option configures a receiver.
type Option func(*options)

type options struct {
	logger logging.Logger
	debug  Logger
	now    func() time.Time
}

// WithLogger sets the operational logger.
func WithLogger(l logging.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithDebugLogger records every received sample to l.
func WithDebugLogger(l Logger) Option {
	return func(o *options) {
		if l != nil {
			o.debug = l
		}
	}
}

// WithClock sets the clock used to stamp samples that carry no timestamp.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{
		logger: logging.Discard(),
		debug:  NopLogger{},
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

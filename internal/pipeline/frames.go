package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/nixlim/camwatch/internal/detection"
	"github.com/nixlim/camwatch/internal/events"
	"github.com/nixlim/camwatch/internal/logging"
	"github.com/nixlim/camwatch/internal/monitoring"
)

// FramePump drives an in-process Producer: it pulls frames from Source,
// produces at most one sample per frame and sends it to Out. Producer
// errors and panics are logged and the frame is skipped.
type FramePump struct {
	DetectorID string
	Source     detection.FrameSource
	Producer   detection.Producer
	Out        chan<- detection.Sample

	// MaxFrames stops the pump after that many frames; zero means no limit.
	MaxFrames int

	Logger   logging.Logger
	Metrics  *monitoring.Metrics
	Activity *events.RingBuffer
}

// Run pumps frames until the source is exhausted, MaxFrames is reached or
// ctx is cancelled. It returns nil on io.EOF.
func (p *FramePump) Run(ctx context.Context) error {
	logger := p.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	log := logger.WithField("detector", p.DetectorID)

	for frames := 0; p.MaxFrames == 0 || frames < p.MaxFrames; frames++ {
		frame, err := p.Source.Next(ctx)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		s, ok, err := p.produce(ctx, frame)
		if err != nil {
			log.WithError(err).Warn("detection failed, frame skipped")
			if p.Metrics != nil {
				p.Metrics.UpstreamError(p.DetectorID)
			}
			if p.Activity != nil {
				p.Activity.Add(events.FormatUpstreamError(p.DetectorID, err, frame.Timestamp))
			}
			continue
		}
		if !ok {
			continue
		}
		if s.Source == "" {
			s = detection.NewSample(p.DetectorID, s.Score, s.Box, s.Timestamp, s.Detail)
		}

		select {
		case p.Out <- s:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// produce calls the Producer, turning a panic into an error for this frame.
func (p *FramePump) produce(ctx context.Context, frame detection.Frame) (s detection.Sample, ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			s, ok, err = detection.Sample{}, false, fmt.Errorf("producer panic: %v", r)
		}
	}()
	return p.Producer.Produce(ctx, frame)
}

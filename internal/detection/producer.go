package detection

import (
	"context"
	"image"
	"time"
)

// Frame is one unit of upstream input handed to a Producer.
type Frame struct {
	Source    string
	Image     image.Image
	Timestamp time.Time
}

// Producer turns a frame into at most one sample. It returns ok=false when
// nothing in the frame met the producer's minimum score. Errors are
// upstream failures; callers drop the frame and continue.
type Producer interface {
	Produce(ctx context.Context, frame Frame) (s Sample, ok bool, err error)
}

// ProducerFunc adapts a function to the Producer interface.
type ProducerFunc func(ctx context.Context, frame Frame) (Sample, bool, error)

// Produce calls f.
func (f ProducerFunc) Produce(ctx context.Context, frame Frame) (Sample, bool, error) {
	return f(ctx, frame)
}

// FrameSource yields frames until it is exhausted or ctx is cancelled.
// Next returns io.EOF when no more frames are available.
type FrameSource interface {
	Next(ctx context.Context) (Frame, error)
}

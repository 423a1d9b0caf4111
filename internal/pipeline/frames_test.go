package pipeline

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/nixlim/camwatch/internal/detection"
	"github.com/nixlim/camwatch/internal/events"
)

type sliceSource struct {
	frames []detection.Frame
	err    error
}

func (s *sliceSource) Next(context.Context) (detection.Frame, error) {
	if len(s.frames) == 0 {
		if s.err != nil {
			return detection.Frame{}, s.err
		}
		return detection.Frame{}, io.EOF
	}
	f := s.frames[0]
	s.frames = s.frames[1:]
	return f, nil
}

func framesAt(t0 time.Time, n int) []detection.Frame {
	out := make([]detection.Frame, n)
	for i := range out {
		out[i] = detection.Frame{Source: "rtsp", Timestamp: t0.Add(time.Duration(i) * time.Second)}
	}
	return out
}

func TestFramePump_SkipsErrorsAndEmptyFrames(t *testing.T) {
	t0 := time.Date(2025, 3, 1, 22, 0, 0, 0, time.UTC)
	calls := 0
	producer := detection.ProducerFunc(func(_ context.Context, f detection.Frame) (detection.Sample, bool, error) {
		calls++
		switch calls {
		case 2:
			return detection.Sample{}, false, errors.New("inference timeout")
		case 3:
			return detection.Sample{}, false, nil
		}
		return detection.NewSample("", 0.7, nil, f.Timestamp, nil), true, nil
	})

	out := make(chan detection.Sample, 10)
	activity := events.NewRingBuffer(10)
	pump := &FramePump{
		DetectorID: "cam-1",
		Source:     &sliceSource{frames: framesAt(t0, 4)},
		Producer:   producer,
		Out:        out,
		Activity:   activity,
	}
	if err := pump.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	close(out)

	var got []detection.Sample
	for s := range out {
		got = append(got, s)
	}
	if len(got) != 2 {
		t.Fatalf("samples: want 2, got %d", len(got))
	}
	for _, s := range got {
		if s.Source != "cam-1" {
			t.Errorf("sample source = %q, want detector ID filled in", s.Source)
		}
	}
	if n := len(activity.ListByType(events.TypeUpstreamError)); n != 1 {
		t.Errorf("upstream error events: want 1, got %d", n)
	}
}

func TestFramePump_MaxFrames(t *testing.T) {
	out := make(chan detection.Sample, 10)
	pump := &FramePump{
		DetectorID: "cam-1",
		Source:     &sliceSource{frames: framesAt(time.Now(), 10)},
		Producer: detection.ProducerFunc(func(_ context.Context, f detection.Frame) (detection.Sample, bool, error) {
			return detection.NewSample("cam-1", 0.5, nil, f.Timestamp, nil), true, nil
		}),
		Out:       out,
		MaxFrames: 3,
	}
	if err := pump.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(out) != 3 {
		t.Errorf("samples: want 3, got %d", len(out))
	}
}

func TestFramePump_SourceError(t *testing.T) {
	boom := errors.New("stream lost")
	pump := &FramePump{
		DetectorID: "cam-1",
		Source:     &sliceSource{err: boom},
		Producer: detection.ProducerFunc(func(context.Context, detection.Frame) (detection.Sample, bool, error) {
			return detection.Sample{}, false, nil
		}),
		Out: make(chan detection.Sample),
	}
	if err := pump.Run(context.Background()); !errors.Is(err, boom) {
		t.Errorf("Run = %v, want %v", err, boom)
	}
}

func TestFramePump_RecoversFromProducerPanic(t *testing.T) {
	t0 := time.Date(2025, 3, 1, 22, 0, 0, 0, time.UTC)
	calls := 0
	producer := detection.ProducerFunc(func(_ context.Context, f detection.Frame) (detection.Sample, bool, error) {
		calls++
		if calls == 2 {
			var m map[string]int
			m["boom"]++
		}
		return detection.NewSample("cam-1", 0.6, nil, f.Timestamp, nil), true, nil
	})

	out := make(chan detection.Sample, 10)
	activity := events.NewRingBuffer(10)
	pump := &FramePump{
		DetectorID: "cam-1",
		Source:     &sliceSource{frames: framesAt(t0, 3)},
		Producer:   producer,
		Out:        out,
		Activity:   activity,
	}
	if err := pump.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(out) != 2 {
		t.Errorf("samples: want 2 around the panicking frame, got %d", len(out))
	}
	if n := len(activity.ListByType(events.TypeUpstreamError)); n != 1 {
		t.Errorf("upstream error events: want 1, got %d", n)
	}
}

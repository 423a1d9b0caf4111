package receiver

import (
	"context"
	"sync"
	"testing"
	"time"

	commonpb "go.opentelemetry.io/proto/otlp/common/v1"

	"github.com/nixlim/camwatch/internal/detection"
)

// recordingSink collects submitted samples.
type recordingSink struct {
	mu      sync.Mutex
	samples []detection.Sample
	err     error
}

func (s *recordingSink) Submit(_ context.Context, sample detection.Sample) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.samples = append(s.samples, sample)
	return nil
}

func (s *recordingSink) all() []detection.Sample {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]detection.Sample(nil), s.samples...)
}

func strKV(key, v string) *commonpb.KeyValue {
	return &commonpb.KeyValue{Key: key, Value: &commonpb.AnyValue{Value: &commonpb.AnyValue_StringValue{StringValue: v}}}
}

func dblKV(key string, v float64) *commonpb.KeyValue {
	return &commonpb.KeyValue{Key: key, Value: &commonpb.AnyValue{Value: &commonpb.AnyValue_DoubleValue{DoubleValue: v}}}
}

func intKV(key string, v int64) *commonpb.KeyValue {
	return &commonpb.KeyValue{Key: key, Value: &commonpb.AnyValue{Value: &commonpb.AnyValue_IntValue{IntValue: v}}}
}

func fixedClock(ts time.Time) func() time.Time {
	return func() time.Time { return ts }
}

func mustFloat(t *testing.T, got, want float64) {
	t.Helper()
	if got != want {
		t.Errorf("want %v, got %v", want, got)
	}
}

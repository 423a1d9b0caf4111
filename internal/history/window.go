// Package history keeps the recent, time-ordered detection samples of a
// single detector instance. The window is bounded by age, not by count.
package history

import (
	"sort"
	"time"

	"github.com/nixlim/camwatch/internal/detection"
)

// DefaultRetention is how long samples are kept when no retention is given.
const DefaultRetention = 60 * time.Second

// Window is a time-ordered store of samples. It is not safe for concurrent
// use; it is owned by exactly one evaluator.
type Window struct {
	retention time.Duration
	samples   []detection.Sample
}

// NewWindow creates a Window that keeps samples younger than retention.
// A non-positive retention falls back to DefaultRetention.
func NewWindow(retention time.Duration) *Window {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &Window{retention: retention}
}

// Retention returns the configured retention duration.
func (w *Window) Retention() time.Duration {
	return w.retention
}

// Insert adds s in timestamp order. Samples with equal timestamps keep
// their arrival order, so out-of-order producers never break ordering.
func (w *Window) Insert(s detection.Sample) {
	i := sort.Search(len(w.samples), func(i int) bool {
		return w.samples[i].Timestamp.After(s.Timestamp)
	})
	w.samples = append(w.samples, detection.Sample{})
	copy(w.samples[i+1:], w.samples[i:])
	w.samples[i] = s
}

// Prune drops every sample with timestamp <= now - retention.
func (w *Window) Prune(now time.Time) {
	cutoff := now.Add(-w.retention)
	i := sort.Search(len(w.samples), func(i int) bool {
		return w.samples[i].Timestamp.After(cutoff)
	})
	if i == 0 {
		return
	}
	n := copy(w.samples, w.samples[i:])
	clear(w.samples[n:])
	w.samples = w.samples[:n]
}

// Since returns the samples with timestamp > cutoff that satisfy keep,
// oldest first. A nil keep accepts every sample.
func (w *Window) Since(cutoff time.Time, keep func(detection.Sample) bool) []detection.Sample {
	i := sort.Search(len(w.samples), func(i int) bool {
		return w.samples[i].Timestamp.After(cutoff)
	})
	var result []detection.Sample
	for _, s := range w.samples[i:] {
		if keep == nil || keep(s) {
			result = append(result, s)
		}
	}
	return result
}

// Len returns the number of retained samples.
func (w *Window) Len() int {
	return len(w.samples)
}

// Samples returns a copy of the retained samples, oldest first.
func (w *Window) Samples() []detection.Sample {
	if len(w.samples) == 0 {
		return nil
	}
	out := make([]detection.Sample, len(w.samples))
	copy(out, w.samples)
	return out
}

package events

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func makeEvent(detector, eventType, formatted string) FormattedEvent {
	return FormattedEvent{
		DetectorID: detector,
		EventType:  eventType,
		Formatted:  formatted,
		Timestamp:  time.Now(),
	}
}

func formattedOf(evts []FormattedEvent) []string {
	out := make([]string, len(evts))
	for i, e := range evts {
		out[i] = e.Formatted
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestRingBuffer_Order(t *testing.T) {
	tests := []struct {
		name     string
		capacity int
		adds     int
		want     []string
	}{
		{"partial fill", 5, 2, []string{"event-0", "event-1"}},
		{"exactly full", 3, 3, []string{"event-0", "event-1", "event-2"}},
		{"one eviction", 3, 4, []string{"event-1", "event-2", "event-3"}},
		{"wraps several times", 3, 10, []string{"event-7", "event-8", "event-9"}},
		{"capacity one", 1, 2, []string{"event-1"}},
		{"zero capacity clamps to one", 0, 1, []string{"event-0"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := NewRingBuffer(tt.capacity)
			for i := range tt.adds {
				buf.Add(makeEvent("cam-1", TypeFired, fmt.Sprintf("event-%d", i)))
			}

			got := formattedOf(buf.ListAll())
			if !equalStrings(got, tt.want) {
				t.Errorf("ListAll = %v, want %v", got, tt.want)
			}
			if buf.Len() != len(tt.want) {
				t.Errorf("Len = %d, want %d", buf.Len(), len(tt.want))
			}
		})
	}
}

func TestRingBuffer_Empty(t *testing.T) {
	buf := NewRingBuffer(10)

	if all := buf.ListAll(); all != nil {
		t.Errorf("expected nil for empty buffer, got %v", all)
	}
	if buf.Len() != 0 || buf.Cap() != 10 {
		t.Errorf("Len/Cap = %d/%d, want 0/10", buf.Len(), buf.Cap())
	}
}

func TestRingBuffer_ListByDetector(t *testing.T) {
	buf := NewRingBuffer(10)
	buf.Add(makeEvent("cam-1", TypeFired, "c1-1"))
	buf.Add(makeEvent("cam-2", TypeFired, "c2-1"))
	buf.Add(makeEvent("cam-1", TypeFailed, "c1-2"))
	buf.Add(makeEvent("cam-3", TypeDelivered, "c3-1"))
	buf.Add(makeEvent("cam-2", TypeFired, "c2-2"))

	tests := []struct {
		detector string
		want     []string
	}{
		{"cam-1", []string{"c1-1", "c1-2"}},
		{"cam-2", []string{"c2-1", "c2-2"}},
		{"cam-4", []string{}},
	}
	for _, tt := range tests {
		got := formattedOf(buf.ListByDetector(tt.detector))
		if !equalStrings(got, tt.want) {
			t.Errorf("ListByDetector(%s) = %v, want %v", tt.detector, got, tt.want)
		}
	}
}

func TestRingBuffer_ListByType(t *testing.T) {
	buf := NewRingBuffer(10)
	buf.Add(makeEvent("cam-1", TypeFired, "fired-1"))
	buf.Add(makeEvent("cam-1", TypeFailed, "failed-1"))
	buf.Add(makeEvent("cam-2", TypeFired, "fired-2"))
	buf.Add(makeEvent("cam-2", TypeDelivered, "delivered-1"))

	if got := formattedOf(buf.ListByType(TypeFired)); !equalStrings(got, []string{"fired-1", "fired-2"}) {
		t.Errorf("fired = %v", got)
	}
	if n := len(buf.ListByType(TypeFailed)); n != 1 {
		t.Errorf("expected 1 delivery_failed event, got %d", n)
	}
	if n := len(buf.ListByType(TypeProbe)); n != 0 {
		t.Errorf("expected 0 probe events, got %d", n)
	}
}

func TestRingBuffer_FilterAfterWrap(t *testing.T) {
	buf := NewRingBuffer(4)
	for i := range 6 {
		det := "cam-1"
		if i%2 == 1 {
			det = "cam-2"
		}
		buf.Add(makeEvent(det, TypeFired, fmt.Sprintf("event-%d", i)))
	}

	if got := formattedOf(buf.ListByDetector("cam-2")); !equalStrings(got, []string{"event-3", "event-5"}) {
		t.Errorf("cam-2 after wrap = %v", got)
	}
}

func TestRingBuffer_ConcurrentAccess(t *testing.T) {
	buf := NewRingBuffer(100)
	var wg sync.WaitGroup

	for i := range 50 {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			buf.Add(makeEvent(fmt.Sprintf("cam-%d", n%5), TypeFired, fmt.Sprintf("event-%d", n)))
		}(i)
	}
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			buf.ListAll()
			buf.ListByDetector("cam-0")
			buf.ListByType(TypeFired)
			buf.Len()
		}()
	}
	wg.Wait()

	if buf.Len() != 50 {
		t.Errorf("expected len=50, got %d", buf.Len())
	}
}

func TestRingBuffer_LargeEviction(t *testing.T) {
	buf := NewRingBuffer(1000)
	for i := range 1001 {
		buf.Add(makeEvent("cam-1", TypeFired, fmt.Sprintf("event-%d", i)))
	}

	all := buf.ListAll()
	if len(all) != 1000 {
		t.Fatalf("expected 1000 events, got %d", len(all))
	}
	if all[0].Formatted != "event-1" || all[999].Formatted != "event-1000" {
		t.Errorf("first/last = %q/%q", all[0].Formatted, all[999].Formatted)
	}
}

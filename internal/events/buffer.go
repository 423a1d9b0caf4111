// Package events keeps a bounded, in-memory feed of recent pipeline
// activity for the dashboard and the HTTP API.
package events

import "sync"

// RingBuffer holds the most recent FormattedEvents up to a fixed capacity,
// evicting the oldest on overflow. It is safe for concurrent use.
type RingBuffer struct {
	mu    sync.RWMutex
	items []FormattedEvent
	next  int  // slot the next Add writes to
	full  bool // every slot holds an event
}

// NewRingBuffer creates a RingBuffer. Capacities below 1 are raised to 1.
func NewRingBuffer(capacity int) *RingBuffer {
	return &RingBuffer{items: make([]FormattedEvent, max(capacity, 1))}
}

// Add appends e, overwriting the oldest event when the buffer is full.
func (rb *RingBuffer) Add(e FormattedEvent) {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	rb.items[rb.next] = e
	rb.next++
	if rb.next == len(rb.items) {
		rb.next = 0
		rb.full = true
	}
}

// ListAll returns every buffered event, oldest first. It returns nil when
// the buffer is empty.
func (rb *RingBuffer) ListAll() []FormattedEvent {
	return rb.filter(nil)
}

// ListByDetector returns the events of one detector, oldest first.
func (rb *RingBuffer) ListByDetector(detectorID string) []FormattedEvent {
	return rb.filter(func(e FormattedEvent) bool { return e.DetectorID == detectorID })
}

// ListByType returns the events of one type (one of the Type constants),
// oldest first.
func (rb *RingBuffer) ListByType(eventType string) []FormattedEvent {
	return rb.filter(func(e FormattedEvent) bool { return e.EventType == eventType })
}

// Len returns the number of buffered events.
func (rb *RingBuffer) Len() int {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	return rb.lenLocked()
}

func (rb *RingBuffer) Cap() int {
	return len(rb.items)
}

func (rb *RingBuffer) lenLocked() int {
	if rb.full {
		return len(rb.items)
	}
	return rb.next
}

// filter walks the buffer oldest first and keeps the events match accepts;
// a nil match keeps everything.
func (rb *RingBuffer) filter(match func(FormattedEvent) bool) []FormattedEvent {
	rb.mu.RLock()
	defer rb.mu.RUnlock()

	n := rb.lenLocked()
	if n == 0 {
		return nil
	}

	start := 0
	if rb.full {
		start = rb.next
	}

	var out []FormattedEvent
	if match == nil {
		out = make([]FormattedEvent, 0, n)
	}
	for i := range n {
		e := rb.items[(start+i)%len(rb.items)]
		if match == nil || match(e) {
			out = append(out, e)
		}
	}
	return out
}

package events

import "sync"

// DefaultRecorderCapacity bounds the in-memory event log when no explicit
// capacity is supplied.
const DefaultRecorderCapacity = 1024

// Recorder is an Emitter that retains the most recent events in memory so RPC
// consumers can poll them. Older events are dropped once capacity is reached.
type Recorder struct {
	mu       sync.Mutex
	capacity int
	events   []Event
}

// NewRecorder creates a bounded in-memory event log.
func NewRecorder(capacity int) *Recorder {
	if capacity <= 0 {
		capacity = DefaultRecorderCapacity
	}
	return &Recorder{capacity: capacity}
}

// Emit implements the Emitter interface.
func (r *Recorder) Emit(evt Event) {
	if r == nil || evt == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
	if len(r.events) > r.capacity {
		r.events = r.events[len(r.events)-r.capacity:]
	}
}

// Recent returns up to limit of the most recent events, newest last. A
// non-positive limit returns everything retained.
func (r *Recorder) Recent(limit int) []Event {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	start := 0
	if limit > 0 && len(r.events) > limit {
		start = len(r.events) - limit
	}
	out := make([]Event, len(r.events)-start)
	copy(out, r.events[start:])
	return out
}

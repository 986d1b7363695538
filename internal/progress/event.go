// Package progress carries state-change events from session operations to
// whoever renders them. Emitters never block the operation that emits.
package progress

import (
	"sync"
	"time"
)

// Status indicates the state of an operation.
type Status string

const (
	StatusRunning Status = "running"
	StatusDone    Status = "done"
	StatusError   Status = "error"
	// StatusAborted marks an operation the user cancelled.
	StatusAborted Status = "aborted"
)

// Event describes one state change. Op names the operation ("discover",
// "connect", "notify", ...); Message is the display text, if any.
type Event struct {
	Session   string
	Op        string
	Message   string
	Status    Status
	Timestamp time.Time
	Metadata  map[string]string
}

// Emitter receives events.
type Emitter interface {
	Emit(Event)
}

// ChanEmitter emits events to a channel.
type ChanEmitter struct {
	Ch chan<- Event
}

// Emit sends the event to the channel (non-blocking; drops if full).
func (e *ChanEmitter) Emit(ev Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	select {
	case e.Ch <- ev:
	default:
	}
}

// Discard drops every event.
var Discard Emitter = discard{}

type discard struct{}

func (discard) Emit(Event) {}

// Recorder keeps every event in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// Emit appends ev.
func (r *Recorder) Emit(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

// Events returns a copy of everything emitted so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

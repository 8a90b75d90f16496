package stats

import (
	"sync/atomic"
	"time"
)

// Event is emitted once per forwarded, non-tunnel request.
type Event struct {
	// Method is the HTTP method of the forwarded request.
	Method string

	// Path is the request path (no query).
	Path string

	// At is the time the request was dispatched.
	At time.Time
}

// Sender is the producer side of the stats channel. Sends never block the
// proxy: when the buffer is full, or after Close, the event is dropped and
// counted. Consumers may drain, drop, or coalesce freely.
type Sender struct {
	ch      chan Event
	dropped atomic.Int64
	closed  atomic.Bool
}

// NewSender creates a sender with the given buffer capacity.
func NewSender(buffer int) *Sender {
	if buffer <= 0 {
		buffer = 1
	}
	return &Sender{ch: make(chan Event, buffer)}
}

// TrySend offers an event to the channel. It reports whether the event was
// accepted; a false return is never an error condition for the caller.
func (s *Sender) TrySend(ev Event) bool {
	if s.closed.Load() {
		s.dropped.Add(1)
		return false
	}
	select {
	case s.ch <- ev:
		return true
	default:
		s.dropped.Add(1)
		return false
	}
}

// Events returns the consumer side of the channel.
func (s *Sender) Events() <-chan Event {
	return s.ch
}

// Dropped returns the number of events discarded because no buffer space
// was available.
func (s *Sender) Dropped() int64 {
	return s.dropped.Load()
}

// Close stops accepting events. Subsequent TrySend calls are counted as
// drops. The channel itself stays open so that concurrent producers can
// never hit a closed-channel panic; consumers stop via their own context.
func (s *Sender) Close() {
	s.closed.Store(true)
}

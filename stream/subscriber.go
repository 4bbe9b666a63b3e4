package stream

import (
	"sync"
	"sync/atomic"
)

type sendResult int

const (
	sendDelivered sendResult = iota
	sendFiltered
	sendDropped
)

// Subscriber receives events from the topics it is subscribed to. Sends
// never block the tracker: when the buffer is full the event is dropped
// and counted.
type Subscriber struct {
	id     string
	ch     chan *Event
	filter atomic.Pointer[func(*Event) bool]

	dropped atomic.Int64

	mu     sync.RWMutex
	closed bool
}

// NewSubscriber creates a subscriber with the given buffer size.
func NewSubscriber(id string, bufferSize int) *Subscriber {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	return &Subscriber{
		id: id,
		ch: make(chan *Event, bufferSize),
	}
}

// ID returns the subscriber identifier.
func (s *Subscriber) ID() string { return s.id }

// C returns the event channel. It is closed when the subscriber is removed
// or the broker shuts down.
func (s *Subscriber) C() <-chan *Event { return s.ch }

// Dropped returns the number of events lost to a full buffer.
func (s *Subscriber) Dropped() int64 { return s.dropped.Load() }

// SetFilter installs a predicate; only matching events are delivered.
func (s *Subscriber) SetFilter(fn func(*Event) bool) {
	if fn == nil {
		s.filter.Store(nil)
		return
	}
	s.filter.Store(&fn)
}

func (s *Subscriber) send(evt *Event) sendResult {
	if fn := s.filter.Load(); fn != nil && !(*fn)(evt) {
		return sendFiltered
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return sendFiltered
	}
	select {
	case s.ch <- evt:
		return sendDelivered
	default:
		s.dropped.Add(1)
		return sendDropped
	}
}

// Close closes the event channel. Safe to call multiple times.
func (s *Subscriber) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
}

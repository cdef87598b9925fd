package download

import (
	"sync"
	"time"

	"mvault/internal/store"
)

// Event records a candidate status change.
type Event struct {
	CandidateID int64
	From        store.Status
	To          store.Status
	Message     string
	At          time.Time
}

// Bus fans status-change events out to a single consumer channel. Publishing
// never blocks the pipeline: when the consumer lags the oldest event is
// dropped.
type Bus struct {
	mu     sync.Mutex
	ch     chan Event
	closed bool
}

// NewBus creates a bus with the given buffer capacity.
func NewBus(capacity int) *Bus {
	if capacity <= 0 {
		capacity = 64
	}
	return &Bus{ch: make(chan Event, capacity)}
}

// Publish delivers an event, dropping the oldest buffered one when full.
func (b *Bus) Publish(event Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	if event.At.IsZero() {
		event.At = time.Now()
	}
	for {
		select {
		case b.ch <- event:
			return
		default:
			select {
			case <-b.ch:
			default:
			}
		}
	}
}

// Events returns the consumer channel. It is closed by Close.
func (b *Bus) Events() <-chan Event {
	return b.ch
}

// Close closes the consumer channel. Publish becomes a no-op.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	close(b.ch)
}

package notify

import (
	"context"
	"errors"
	"sync"

	domain "github.com/oshokin/alarm-conditions/internal/domain/alarm"
	"github.com/oshokin/alarm-conditions/internal/logger"
)

// DefaultBuffer is the per-subscriber buffer used when none is requested.
const DefaultBuffer = 64

// ErrClosed is returned by Subscribe after Close.
var ErrClosed = errors.New("broadcaster closed")

// Broadcaster delivers every published record to all current subscribers.
type Broadcaster struct {
	// mu guards every field below.
	mu sync.Mutex
	// subscribers maps subscription ids to their channels.
	subscribers map[uint64]chan domain.EventRecord
	// nextID is the id of the next subscription.
	nextID uint64
	// evicted counts subscribers dropped for being too slow.
	evicted uint64
	// closed is set by Close.
	closed bool
}

// NewBroadcaster creates an open broadcaster without subscribers.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		subscribers: make(map[uint64]chan domain.EventRecord),
	}
}

// Publish hands rec to every subscriber without blocking.
func (b *Broadcaster) Publish(ctx context.Context, rec domain.EventRecord) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}

	for id, ch := range b.subscribers {
		select {
		case ch <- *rec.Clone():
		default:
			delete(b.subscribers, id)
			close(ch)
			b.evicted++

			logger.WarnKV(ctx, "Evicted slow subscriber", "subscription", id, "alarm", rec.Identity)
		}
	}
}

// Subscribe registers a subscriber whose channel is preloaded with initial.
// buffer is the room left for live records; values below one use DefaultBuffer.
// The returned function cancels the subscription and is safe to call more than once.
func (b *Broadcaster) Subscribe(buffer int, initial []domain.EventRecord) (<-chan domain.EventRecord, func(), error) {
	if buffer < 1 {
		buffer = DefaultBuffer
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, nil, ErrClosed
	}

	ch := make(chan domain.EventRecord, buffer+len(initial))
	for i := range initial {
		ch <- *initial[i].Clone()
	}

	id := b.nextID
	b.nextID++
	b.subscribers[id] = ch

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()

		if current, ok := b.subscribers[id]; ok && current == ch {
			delete(b.subscribers, id)
			close(ch)
		}
	}

	return ch, cancel, nil
}

// Subscribers returns the number of live subscriptions.
func (b *Broadcaster) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return len(b.subscribers)
}

// Evicted returns how many subscribers were dropped for being too slow.
func (b *Broadcaster) Evicted() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.evicted
}

// Close closes every subscriber channel and rejects new subscriptions.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}

	b.closed = true

	for id, ch := range b.subscribers {
		delete(b.subscribers, id)
		close(ch)
	}
}

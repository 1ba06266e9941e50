// Package events delivers probe results to subscribers outside of the
// supervisor: in-process through a Hub, or over Redis pub/sub through a
// Publisher. Both are pingwatch.Sinks and never block a probe loop.
package events

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/digineo/pingwatch"
)

const defaultBuffer = 64

// ErrDropped is returned by Emit if an event could not be queued for
// at least one receiver.
var ErrDropped = errors.New("event dropped")

// Hub fans out events to all of its subscribers. A subscriber whose
// buffer is full misses the event.
type Hub struct {
	buffer  int
	subs    map[uuid.UUID]*Subscription
	closed  bool
	dropped atomic.Uint64
	mtx     sync.RWMutex
}

// Subscription receives the events of a Hub until it is closed.
type Subscription struct {
	ID uuid.UUID
	C  <-chan pingwatch.Event

	c   chan pingwatch.Event
	hub *Hub
}

// NewHub creates a Hub. Every subscriber buffers up to buffer events.
func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	return &Hub{
		buffer: buffer,
		subs:   make(map[uuid.UUID]*Subscription),
	}
}

// Subscribe registers a new subscriber. The channel of a subscription
// to a closed Hub is closed right away.
func (h *Hub) Subscribe() *Subscription {
	c := make(chan pingwatch.Event, h.buffer)
	sub := &Subscription{ID: uuid.New(), C: c, c: c, hub: h}

	h.mtx.Lock()
	defer h.mtx.Unlock()

	if h.closed {
		close(c)
		return sub
	}
	h.subs[sub.ID] = sub
	return sub
}

// Close unsubscribes s and closes its channel. It is safe to call Close
// more than once.
func (s *Subscription) Close() {
	h := s.hub
	h.mtx.Lock()
	defer h.mtx.Unlock()

	if _, found := h.subs[s.ID]; found {
		delete(h.subs, s.ID)
		close(s.c)
	}
}

// Emit queues the event of r for every subscriber.
func (h *Hub) Emit(r pingwatch.Result) error {
	ev := r.Event()
	missed := 0

	h.mtx.RLock()
	for _, sub := range h.subs {
		select {
		case sub.c <- ev:
		default:
			missed++
		}
	}
	h.mtx.RUnlock()

	if missed > 0 {
		h.dropped.Add(uint64(missed))
		return fmt.Errorf("%w for %d subscribers", ErrDropped, missed)
	}
	return nil
}

// Len returns the number of subscribers.
func (h *Hub) Len() int {
	h.mtx.RLock()
	defer h.mtx.RUnlock()
	return len(h.subs)
}

// Dropped returns the number of events subscribers have missed.
func (h *Hub) Dropped() uint64 {
	return h.dropped.Load()
}

// Close closes all subscriptions, later ones are closed immediately.
func (h *Hub) Close() {
	h.mtx.Lock()
	defer h.mtx.Unlock()

	h.closed = true
	for id, sub := range h.subs {
		delete(h.subs, id)
		close(sub.c)
	}
}

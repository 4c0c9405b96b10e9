// Package events provides the in-process notification channel that pushes
// "new message" signals to connected clients. The bus is owned by the
// application context and injected where needed; it carries no payload, at
// most once, with no replay: subscribers re-query the latest messages on
// each signal.
package events

import "sync"

// Signal is the empty notification value.
type Signal struct{}

// Bus fans a signal out to all current subscribers. Publish never blocks: a
// subscriber that has not drained its previous signal simply coalesces the
// two.
type Bus struct {
	mu     sync.Mutex
	subs   map[int]chan Signal
	nextID int
	closed bool
}

func NewBus() *Bus {
	return &Bus{subs: make(map[int]chan Signal)}
}

// Subscribe registers a listener. The returned cancel function must be
// called when the listener goes away; it is safe to call more than once.
func (b *Bus) Subscribe() (<-chan Signal, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Signal, 1)
	if b.closed {
		close(ch)
		return ch, func() {}
	}

	id := b.nextID
	b.nextID++
	b.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			if _, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(ch)
			}
			b.mu.Unlock()
		})
	}
	return ch, cancel
}

// Publish signals every current subscriber. Listeners that joined after the
// call, or that are not draining, miss or coalesce it.
func (b *Bus) Publish() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	for _, ch := range b.subs {
		select {
		case ch <- Signal{}:
		default:
		}
	}
}

// Close shuts the bus down and closes all subscriber channels.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}

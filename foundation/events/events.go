// Package events allows for the registering and receiving of events.
package events

import (
	"fmt"
	"sync"
)

// Events maintains a mapping of unique id and channels so goroutines
// can register and receive ledger events.
type Events struct {
	m  map[string]chan string
	mu sync.RWMutex
}

// New constructs an events for registering and receiving events.
func New() *Events {
	return &Events{
		m: make(map[string]chan string),
	}
}

// Shutdown closes and removes all channels that were provided by
// the call to Acquire.
func (evt *Events) Shutdown() {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	for id, ch := range evt.m {
		delete(evt.m, id)
		close(ch)
	}
}

// Acquire takes a unique id and returns a channel that can be used
// to receive events.
func (evt *Events) Acquire(id string) chan string {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	if ch, exists := evt.m[id]; exists {
		return ch
	}

	// A subscriber that has fallen this far behind starts missing
	// events rather than blocking the ledger.
	const messageBuffer = 100

	evt.m[id] = make(chan string, messageBuffer)
	return evt.m[id]
}

// Release closes and removes the channel that was provided by
// the call to Acquire.
func (evt *Events) Release(id string) error {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	ch, exists := evt.m[id]
	if !exists {
		return fmt.Errorf("id %q does not exist", id)
	}

	delete(evt.m, id)
	close(ch)
	return nil
}

// Signal formats the event and sends it to every registered channel.
// Signal will not block waiting for a receiver on any given channel.
func (evt *Events) Signal(v string, args ...any) {
	evt.mu.RLock()
	defer evt.mu.RUnlock()

	msg := fmt.Sprintf(v, args...)

	for _, ch := range evt.m {
		select {
		case ch <- msg:
		default:
		}
	}
}

// Package events fans node activity out to websocket subscribers.
package events

import (
	"fmt"
	"sync"
	"time"
)

// Event is a single timestamped node activity message as it travels to a
// subscriber.
type Event struct {
	At      time.Time `json:"at"`
	Message string    `json:"message"`
}

// Events maintains a mapping of unique id and channels so goroutines
// can register and receive events.
type Events struct {
	subscribers map[string]chan Event
	mu          sync.RWMutex
}

// New constructs an events for registering and receiving events.
func New() *Events {
	return &Events{
		subscribers: make(map[string]chan Event),
	}
}

// Shutdown closes and removes all channels that were provided by
// the call to Acquire.
func (evt *Events) Shutdown() {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	for id, ch := range evt.subscribers {
		delete(evt.subscribers, id)
		close(ch)
	}
}

// Acquire takes a unique id and returns a channel that can be used
// to receive events.
func (evt *Events) Acquire(id string) chan Event {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	ch, exists := evt.subscribers[id]
	if exists {
		return ch
	}

	// An event is dropped if a websocket receiver is not ready to
	// receive. This buffer gives a slow receiver a fighting chance.
	const eventBuffer = 100

	evt.subscribers[id] = make(chan Event, eventBuffer)
	return evt.subscribers[id]
}

// Release closes and removes the channel that was provided by
// the call to Acquire.
func (evt *Events) Release(id string) error {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	ch, exists := evt.subscribers[id]
	if !exists {
		return fmt.Errorf("id %q does not exist", id)
	}

	delete(evt.subscribers, id)
	close(ch)
	return nil
}

// Send stamps the message and signals it to every registered channel. Send
// will not block waiting for a receiver on any given channel.
func (evt *Events) Send(message string) {
	evt.mu.RLock()
	defer evt.mu.RUnlock()

	e := Event{
		At:      time.Now().UTC(),
		Message: message,
	}

	for _, ch := range evt.subscribers {
		select {
		case ch <- e:
		default:
		}
	}
}

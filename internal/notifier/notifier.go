// Package notifier fans weave events out to any number of listeners.
package notifier

import (
	"sync"
	"time"
)

// Event describes one finished weave of a watched module.
type Event struct {
	Input   string
	Output  string
	Outcome string
	Err     error
	At      time.Time
}

// Notifier broadcasts events to subscribed listeners. A listener that is
// still holding an undelivered event misses newer ones until it reads.
type Notifier struct {
	mu        sync.RWMutex
	listeners map[chan Event]struct{}
	last      *Event
}

// New creates a new Notifier instance.
func New() *Notifier {
	return &Notifier{
		listeners: make(map[chan Event]struct{}),
	}
}

// Subscribe returns a channel that receives events.
// The caller must call Unsubscribe when done.
func (n *Notifier) Subscribe() chan Event {
	ch := make(chan Event, 1)
	n.mu.Lock()
	n.listeners[ch] = struct{}{}
	n.mu.Unlock()
	return ch
}

// Unsubscribe removes a listener channel and closes it. Unknown channels are
// ignored.
func (n *Notifier) Unsubscribe(ch chan Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if _, ok := n.listeners[ch]; !ok {
		return
	}
	delete(n.listeners, ch)
	close(ch)
}

// Broadcast sends ev to all listeners without blocking.
func (n *Notifier) Broadcast(ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}

	n.mu.Lock()
	n.last = &ev
	n.mu.Unlock()

	n.mu.RLock()
	defer n.mu.RUnlock()
	for ch := range n.listeners {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Last returns the most recent event, if any.
func (n *Notifier) Last() (Event, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	if n.last == nil {
		return Event{}, false
	}
	return *n.last, true
}

// Len returns the number of subscribed listeners.
func (n *Notifier) Len() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.listeners)
}

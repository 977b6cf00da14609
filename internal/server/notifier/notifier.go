// Package notifier fans out workspace reload events to SSE listeners.
package notifier

import "sync"

// Event describes one workspace reload.
type Event struct {
	// Generation increases with every published event.
	Generation uint64
	// Err is set when the reload failed and the previous workspace is still
	// in use.
	Err error
}

// Notifier delivers the latest event to every subscriber. A slow subscriber
// only ever sees the newest event, never a backlog.
type Notifier struct {
	mu        sync.RWMutex
	listeners map[chan Event]struct{}
	gen       uint64
}

// New creates a new Notifier instance.
func New() *Notifier {
	return &Notifier{
		listeners: make(map[chan Event]struct{}),
	}
}

// Subscribe returns a channel receiving reload events.
// The caller must call Unsubscribe when done.
func (n *Notifier) Subscribe() chan Event {
	ch := make(chan Event, 1)
	n.mu.Lock()
	n.listeners[ch] = struct{}{}
	n.mu.Unlock()
	return ch
}

// Unsubscribe removes a listener channel and closes it.
func (n *Notifier) Unsubscribe(ch chan Event) {
	n.mu.Lock()
	if _, ok := n.listeners[ch]; ok {
		delete(n.listeners, ch)
		close(ch)
	}
	n.mu.Unlock()
}

// Publish sends a reload event carrying err to all listeners and returns it.
func (n *Notifier) Publish(err error) Event {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.gen++
	ev := Event{Generation: n.gen, Err: err}
	for ch := range n.listeners {
		// Drop a pending event the listener has not read yet.
		select {
		case <-ch:
		default:
		}
		ch <- ev
	}
	return ev
}

// Len returns the number of subscribers.
func (n *Notifier) Len() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.listeners)
}

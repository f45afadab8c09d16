package authreq

import "sync"

// Notifier is the realtime change-notification boundary: an event per status
// change, delivered at-least-once. Subscribers re-read the row rather than
// trusting the payload, so duplicate or dropped events are harmless.
type Notifier interface {
	Publish(requestID string, status Status)
	// Subscribe returns a channel of status events for one request and an
	// unsubscribe func. The channel closes on unsubscribe.
	Subscribe(requestID string) (<-chan Status, func())
}

type memoryNotifier struct {
	mu   sync.Mutex
	subs map[string]map[int]chan Status
	next int
}

// NewMemoryNotifier fans events out in process. Slow subscribers drop
// events instead of blocking the publisher; the polling fallback covers them.
func NewMemoryNotifier() Notifier {
	return &memoryNotifier{subs: make(map[string]map[int]chan Status)}
}

func (n *memoryNotifier) Publish(requestID string, status Status) {
	n.mu.Lock()
	defer n.mu.Unlock()

	for _, ch := range n.subs[requestID] {
		select {
		case ch <- status:
		default:
		}
	}
}

func (n *memoryNotifier) Subscribe(requestID string) (<-chan Status, func()) {
	n.mu.Lock()
	defer n.mu.Unlock()

	ch := make(chan Status, 4)
	id := n.next
	n.next++
	if n.subs[requestID] == nil {
		n.subs[requestID] = make(map[int]chan Status)
	}
	n.subs[requestID][id] = ch

	unsubscribe := func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		if sub, ok := n.subs[requestID][id]; ok {
			delete(n.subs[requestID], id)
			if len(n.subs[requestID]) == 0 {
				delete(n.subs, requestID)
			}
			close(sub)
		}
	}
	return ch, unsubscribe
}

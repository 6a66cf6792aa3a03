// Package notify is a best-effort in-process change feed. Mutating tool
// calls publish a TaskChange to every subscriber of the affected user;
// slow subscribers lose events rather than block the turn.
package notify

import (
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// TaskChange describes one committed task mutation.
type TaskChange struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	Tool       string    `json:"tool"`
	TaskID     string    `json:"task_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

type subscriber struct {
	userID string
	ch     chan TaskChange
}

// Notifier fans task changes out to per-user subscribers.
type Notifier struct {
	mu          sync.RWMutex
	bufSize     int
	subscribers map[string]*subscriber
}

// NewNotifier creates a notifier whose subscriber channels buffer bufSize
// events before dropping.
func NewNotifier(bufSize int) *Notifier {
	if bufSize <= 0 {
		bufSize = 16
	}
	return &Notifier{
		bufSize:     bufSize,
		subscribers: make(map[string]*subscriber),
	}
}

// Subscribe registers a listener for one user's task changes. The returned
// cancel func closes the channel and releases the registration; it is safe
// to call more than once.
func (n *Notifier) Subscribe(userID string) (<-chan TaskChange, func()) {
	id := ulid.Make().String()
	sub := &subscriber{userID: userID, ch: make(chan TaskChange, n.bufSize)}

	n.mu.Lock()
	n.subscribers[id] = sub
	n.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			n.mu.Lock()
			if s, ok := n.subscribers[id]; ok {
				close(s.ch)
				delete(n.subscribers, id)
			}
			n.mu.Unlock()
		})
	}
	return sub.ch, cancel
}

// Publish delivers a change to every subscriber of change.UserID. Delivery
// is non-blocking: a subscriber with a full buffer misses the event.
func (n *Notifier) Publish(change TaskChange) {
	if change.ID == "" {
		change.ID = ulid.Make().String()
	}
	if change.OccurredAt.IsZero() {
		change.OccurredAt = time.Now()
	}

	n.mu.RLock()
	defer n.mu.RUnlock()
	for _, sub := range n.subscribers {
		if sub.userID != change.UserID {
			continue
		}
		select {
		case sub.ch <- change:
		default:
			// buffer full, drop event for this subscriber
		}
	}
}

// SubscriberCount reports how many listeners a user currently has.
func (n *Notifier) SubscriberCount(userID string) int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	count := 0
	for _, sub := range n.subscribers {
		if sub.userID == userID {
			count++
		}
	}
	return count
}

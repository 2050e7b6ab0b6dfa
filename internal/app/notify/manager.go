package notify

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Manager manages notification subscriptions and broadcasting.
// Publishing never blocks: subscribers that cannot keep up lose
// notifications rather than stalling the control loop.
type Manager struct {
	mu          sync.RWMutex
	subscribers map[string]chan Notification
	seq         uint64
}

// NewManager creates a new notification manager.
func NewManager() *Manager {
	return &Manager{
		subscribers: make(map[string]chan Notification),
	}
}

// Subscribe adds a new subscriber and returns its ID and channel.
// The channel holds up to buffer pending notifications.
func (m *Manager) Subscribe(buffer int) (string, <-chan Notification) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := uuid.New().String()
	ch := make(chan Notification, buffer)
	m.subscribers[id] = ch
	return id, ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (m *Manager) Unsubscribe(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if ch, ok := m.subscribers[id]; ok {
		delete(m.subscribers, id)
		close(ch)
	}
}

// Publish assigns a sequence number and timestamp, then delivers the
// notification to all subscribers without blocking.
func (m *Manager) Publish(n Notification) {
	m.mu.Lock()
	m.seq++
	n.Seq = m.seq
	m.mu.Unlock()

	if n.At.IsZero() {
		n.At = time.Now()
	}

	// Sends stay under the read lock so Unsubscribe cannot close a
	// channel mid-send. Sends never block, so the lock is held briefly.
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, ch := range m.subscribers {
		select {
		case ch <- n:
		default:
			// Subscriber buffer full, drop
		}
	}
}

// SubscriberCount returns the number of active subscribers.
func (m *Manager) SubscriberCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.subscribers)
}

// Close removes all subscribers and closes their channels.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, ch := range m.subscribers {
		delete(m.subscribers, id)
		close(ch)
	}
}

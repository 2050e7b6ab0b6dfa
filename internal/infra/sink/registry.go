package sink

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// receiver is one attached stream client.
type receiver struct {
	id       string
	remote   string
	joinedAt time.Time
	frames   chan []int16
	done     chan struct{}
}

// receiverRegistry manages attached receivers with thread-safe access.
type receiverRegistry struct {
	mu        sync.RWMutex
	receivers map[string]*receiver
}

// newReceiverRegistry creates an empty registry.
func newReceiverRegistry() *receiverRegistry {
	return &receiverRegistry{
		receivers: make(map[string]*receiver),
	}
}

// join adds a new receiver and returns it.
func (r *receiverRegistry) join(remote string, buffer int) *receiver {
	r.mu.Lock()
	defer r.mu.Unlock()

	rc := &receiver{
		id:       uuid.New().String(),
		remote:   remote,
		joinedAt: time.Now(),
		frames:   make(chan []int16, buffer),
		done:     make(chan struct{}),
	}
	r.receivers[rc.id] = rc
	return rc
}

// leave removes a receiver and signals it to stop.
func (r *receiverRegistry) leave(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if rc, ok := r.receivers[id]; ok {
		delete(r.receivers, id)
		close(rc.done)
	}
}

// count returns the number of attached receivers.
func (r *receiverRegistry) count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.receivers)
}

// broadcast fans a frame out to all receivers. Receivers that cannot
// keep up lose the frame rather than stalling the broadcast.
func (r *receiverRegistry) broadcast(frame []int16) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, rc := range r.receivers {
		select {
		case rc.frames <- frame:
		default:
			// Receiver too slow, drop frame to keep the broadcast moving
		}
	}
}

// closeAll removes every receiver and signals them to stop.
func (r *receiverRegistry) closeAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, rc := range r.receivers {
		delete(r.receivers, id)
		close(rc.done)
	}
}

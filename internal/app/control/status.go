package control

import (
	"sync"
	"time"
)

// Status is a point-in-time snapshot of the player.
type Status struct {
	State       string    `json:"state"`
	TrackIndex  int       `json:"track_index"`
	TrackName   string    `json:"track_name"`
	CatalogSize int       `json:"catalog_size"`
	Connected   bool      `json:"connected"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// StatusBoard publishes player status snapshots with thread-safe access.
// The control loop writes after every applied event, other goroutines
// (status endpoints) read.
type StatusBoard struct {
	mu     sync.RWMutex
	status Status
}

// NewStatusBoard creates an empty status board.
func NewStatusBoard() *StatusBoard {
	return &StatusBoard{
		status: Status{State: StateStopped.String()},
	}
}

// Set replaces the published snapshot, stamping it with the current time.
func (b *StatusBoard) Set(s Status) {
	b.mu.Lock()
	defer b.mu.Unlock()
	s.UpdatedAt = time.Now()
	b.status = s
}

// Get returns the published snapshot.
func (b *StatusBoard) Get() Status {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.status
}

// SetConnected updates only the connectivity flag.
func (b *StatusBoard) SetConnected(connected bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.status.Connected != connected {
		b.status.Connected = connected
		b.status.UpdatedAt = time.Now()
	}
}

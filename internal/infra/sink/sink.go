package sink

import (
	"context"

	"github.com/cockroachdb/errors"
)

// ErrClosed indicates an operation on a closed sink.
var ErrClosed = errors.New("sink is closed")

// Sink is the transport carrying audio frames to the receiver and
// control commands back from it.
type Sink interface {
	// Start brings the transport up. It returns once the sink is ready
	// to accept receivers; serving continues in the background until
	// ctx is cancelled or Close is called.
	Start(ctx context.Context) error

	// IsConnected reports whether a receiver is currently attached.
	// Consulted by the control machine as a playback guard.
	IsConnected() bool

	// SetCommandHandler registers the callback for receiver commands.
	// The callback may run on any goroutine and must only enqueue,
	// never act on the player directly.
	SetCommandHandler(handler func(Command))

	// WriteFrame delivers one PCM frame to the receiver. It may block
	// while the transport drains, but never longer than about one
	// frame duration. Frames written while no receiver is attached
	// are discarded.
	WriteFrame(pcm []int16) error

	// Close tears the transport down.
	Close() error
}

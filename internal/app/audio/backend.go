// Package audio provides the track delivery backends.
package audio

import (
	"github.com/osa030/walkbox/internal/domain/track"
)

// PCM stream format shared by backends and sinks. Frames are fixed-size
// interleaved stereo int16 blocks of FrameMs duration.
const (
	SampleRate   = 44100
	NumChannels  = 2
	FrameMs      = 20
	FrameSamples = SampleRate * FrameMs / 1000 // Samples per channel per frame
	FrameLen     = FrameSamples * NumChannels  // Interleaved values per frame
)

// FrameWriter receives PCM frames produced by a backend. WriteFrame may
// block briefly while the transport drains, but never longer than about
// one frame duration.
type FrameWriter interface {
	WriteFrame(pcm []int16) error
}

// Backend is the capability surface shared by all delivery backends.
// Backends are owned and driven by the control loop goroutine.
type Backend interface {
	// Load starts delivering the given track from its beginning,
	// unpaused. Any previous track is stopped first. Returns false
	// when the track cannot be opened or decoded.
	Load(tr track.Track) bool

	// Stop ends delivery of the current track. Safe to call at any
	// time, including when nothing is loaded.
	Stop()

	// SetPaused suspends or resumes delivery without unloading.
	SetPaused(paused bool)

	// IsPaused reports whether delivery is suspended.
	IsPaused() bool

	// IsHealthy reports whether the backend can still deliver audio.
	// A false result while a track is playing is treated by the
	// control loop like the track having ended.
	IsHealthy() bool

	// Close releases backend resources.
	Close() error
}

// PullBackend is a backend driven by the control loop: each Advance call
// performs one bounded unit of decode-and-deliver work.
type PullBackend interface {
	Backend

	// Advance delivers the next chunk of the current track. Returns
	// false exactly once, when the track is exhausted, after which the
	// backend is stopped.
	Advance() bool
}

// PushBackend is a backend that paces itself on an internal goroutine.
// Tick is called every control loop iteration regardless of state and
// only performs housekeeping.
type PushBackend interface {
	Backend

	Tick()
}

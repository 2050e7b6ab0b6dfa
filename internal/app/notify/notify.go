// Package notify provides the advisory notification broadcaster.
package notify

import (
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"
)

// Kind represents a notification kind.
type Kind int

const (
	TrackStarted    Kind = iota // A track started playing
	TrackFinished               // A track played to completion
	LoadFailed                  // A track could not be loaded
	PlaybackStopped             // Playback was stopped
	PlaybackPaused              // Playback was paused
	PlaybackResumed             // Playback resumed from pause
	StorageFatal                // Storage became unusable
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	switch k {
	case TrackStarted:
		return "track_started"
	case TrackFinished:
		return "track_finished"
	case LoadFailed:
		return "load_failed"
	case PlaybackStopped:
		return "playback_stopped"
	case PlaybackPaused:
		return "playback_paused"
	case PlaybackResumed:
		return "playback_resumed"
	case StorageFatal:
		return "storage_fatal"
	default:
		return "unknown"
	}
}

// ParseKind parses the string form of a kind.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "track_started":
		return TrackStarted, nil
	case "track_finished":
		return TrackFinished, nil
	case "load_failed":
		return LoadFailed, nil
	case "playback_stopped":
		return PlaybackStopped, nil
	case "playback_paused":
		return PlaybackPaused, nil
	case "playback_resumed":
		return PlaybackResumed, nil
	case "storage_fatal":
		return StorageFatal, nil
	default:
		return 0, errors.Newf("unknown notification kind: %q", s)
	}
}

// MarshalJSON encodes the kind as its string form.
func (k Kind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// UnmarshalJSON decodes the kind from its string form.
func (k *Kind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseKind(s)
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Notification represents a single advisory event.
type Notification struct {
	Seq       uint64    `json:"seq"`
	Kind      Kind      `json:"kind"`
	TrackName string    `json:"track_name,omitempty"`
	Detail    string    `json:"detail,omitempty"`
	At        time.Time `json:"at"`
}

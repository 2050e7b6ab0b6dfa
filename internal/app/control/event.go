package control

// Event represents a playback control event. Events from all sources
// (buttons, remote commands, track completion) funnel into this single
// vocabulary before reaching the machine.
type Event int

const (
	EventPlayOrResume Event = iota // Start playback or resume from pause
	EventPauseToggle               // Toggle between playing and paused
	EventNext                      // Move to the next track
	EventPrev                      // Move to the previous track
	EventStop                      // Stop playback
	EventTrackEnded                // Current track finished on its own
)

// String returns the string representation of the event.
func (e Event) String() string {
	switch e {
	case EventPlayOrResume:
		return "play_or_resume"
	case EventPauseToggle:
		return "pause_toggle"
	case EventNext:
		return "next"
	case EventPrev:
		return "prev"
	case EventStop:
		return "stop"
	case EventTrackEnded:
		return "track_ended"
	default:
		return "unknown"
	}
}

package control

import (
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/walkbox/internal/app/audio"
	"github.com/osa030/walkbox/internal/app/notify"
	"github.com/osa030/walkbox/internal/domain/catalog"
	"github.com/osa030/walkbox/internal/domain/track"
)

// Machine owns the catalog cursor and playback state, applies control
// events one at a time, and commands the delivery backend. Events that
// fail their guard are absorbed silently. Not safe for concurrent use:
// all events arrive on the control loop goroutine.
type Machine struct {
	catalog   *catalog.Catalog
	backend   audio.Backend
	connected func() bool
	notifier  *notify.Manager

	cursor int
	state  State
}

// NewMachine creates a machine positioned at the start of the catalog.
// connected reports sink connectivity and may be nil when the sink is
// always reachable. notifier may be nil.
func NewMachine(cat *catalog.Catalog, backend audio.Backend, connected func() bool, notifier *notify.Manager) *Machine {
	if connected == nil {
		connected = func() bool { return true }
	}
	return &Machine{
		catalog:   cat,
		backend:   backend,
		connected: connected,
		notifier:  notifier,
		state:     StateStopped,
	}
}

// Apply processes a single control event.
func (m *Machine) Apply(ev Event) {
	zlog.Debug().Msgf("control: event=%s state=%s cursor=%d", ev, m.state, m.cursor)

	switch ev {
	case EventPlayOrResume:
		m.playOrResume()
	case EventPauseToggle:
		m.pauseToggle()
	case EventNext:
		m.next(true)
	case EventPrev:
		m.prev()
	case EventStop:
		m.stop()
	case EventTrackEnded:
		m.trackEnded()
	}
}

// State returns the current playback state.
func (m *Machine) State() State {
	return m.state
}

// Cursor returns the current catalog position.
func (m *Machine) Cursor() int {
	return m.cursor
}

// CurrentTrack returns the track at the cursor. The second return value
// is false when the catalog is empty.
func (m *Machine) CurrentTrack() (track.Track, bool) {
	if m.catalog.IsEmpty() {
		return track.Track{}, false
	}
	return m.catalog.At(m.cursor), true
}

func (m *Machine) playOrResume() {
	switch m.state {
	case StatePlaying:
		// Already playing
	case StatePaused:
		m.backend.SetPaused(false)
		m.state = StatePlaying
		zlog.Info().Msgf("control: resumed: track=%s", m.currentName())
		m.publish(notify.PlaybackResumed, m.currentName(), "")
	case StateStopped:
		if m.catalog.IsEmpty() {
			zlog.Debug().Msg("control: play ignored, catalog is empty")
			return
		}
		if !m.connected() {
			zlog.Debug().Msg("control: play ignored, sink not connected")
			return
		}
		m.load(m.cursor)
	}
}

func (m *Machine) pauseToggle() {
	if m.state == StateStopped {
		zlog.Debug().Msg("control: pause ignored, not playing")
		return
	}

	// Direction comes from the machine's own state. The backend's paused
	// flag can trail behind it (a push pump that finished but has not been
	// reaped yet) and must not decide the toggle.
	paused := m.state == StatePlaying
	m.backend.SetPaused(paused)
	if paused {
		m.state = StatePaused
		zlog.Info().Msgf("control: paused: track=%s", m.currentName())
		m.publish(notify.PlaybackPaused, m.currentName(), "")
	} else {
		m.state = StatePlaying
		zlog.Info().Msgf("control: resumed: track=%s", m.currentName())
		m.publish(notify.PlaybackResumed, m.currentName(), "")
	}
}

// next moves playback forward. When stopped it re-plays the current
// position without advancing. Track completion relaxes the connection
// guard so playback can roll on even while the sink reports degraded.
func (m *Machine) next(requireConnected bool) {
	if m.catalog.IsEmpty() {
		zlog.Debug().Msg("control: next ignored, catalog is empty")
		return
	}
	if requireConnected && !m.connected() {
		zlog.Debug().Msg("control: next ignored, sink not connected")
		return
	}

	if m.state == StateStopped {
		m.load(m.cursor)
		return
	}

	m.cursor = (m.cursor + 1) % m.catalog.Len()
	m.load(m.cursor)
}

// prev moves playback backward. Unlike next, prev while stopped does
// nothing at all.
func (m *Machine) prev() {
	if m.catalog.IsEmpty() {
		zlog.Debug().Msg("control: prev ignored, catalog is empty")
		return
	}
	if m.state == StateStopped {
		zlog.Debug().Msg("control: prev ignored, not playing")
		return
	}
	if !m.connected() {
		zlog.Debug().Msg("control: prev ignored, sink not connected")
		return
	}

	n := m.catalog.Len()
	m.cursor = (m.cursor - 1 + n) % n
	m.load(m.cursor)
}

func (m *Machine) stop() {
	if m.state == StateStopped {
		return
	}

	m.backend.Stop()
	m.state = StateStopped
	zlog.Info().Msgf("control: stopped: track=%s", m.currentName())
	m.publish(notify.PlaybackStopped, m.currentName(), "")
}

func (m *Machine) trackEnded() {
	if m.state != StatePlaying {
		zlog.Debug().Msg("control: track end ignored, not playing")
		return
	}

	finished := m.currentName()
	zlog.Info().Msgf("control: track finished: name=%s", finished)
	m.publish(notify.TrackFinished, finished, "")
	m.next(false)
}

// load stops any current playback and starts the track at position i.
// A load failure leaves the machine stopped with the cursor in place,
// there is no automatic retry.
func (m *Machine) load(i int) {
	if m.state != StateStopped {
		m.backend.Stop()
		m.state = StateStopped
	}

	tr := m.catalog.At(i)
	if !m.backend.Load(tr) {
		zlog.Warn().Msgf("control: failed to load track: name=%s", tr.Name)
		m.publish(notify.LoadFailed, tr.Name, "track could not be loaded")
		return
	}

	m.state = StatePlaying
	zlog.Info().Msgf("control: playing: index=%d name=%s", i, tr.Name)
	m.publish(notify.TrackStarted, tr.Name, "")
}

func (m *Machine) currentName() string {
	if m.catalog.IsEmpty() {
		return ""
	}
	return m.catalog.At(m.cursor).Name
}

func (m *Machine) publish(kind notify.Kind, trackName, detail string) {
	if m.notifier == nil {
		return
	}
	m.notifier.Publish(notify.Notification{Kind: kind, TrackName: trackName, Detail: detail})
}

// Package engine runs the player's cooperative control loop.
package engine

import (
	"context"
	"time"

	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/walkbox/internal/app/audio"
	"github.com/osa030/walkbox/internal/app/control"
	"github.com/osa030/walkbox/internal/app/input"
	"github.com/osa030/walkbox/internal/domain/catalog"
	"github.com/osa030/walkbox/internal/infra/sink"
)

// ButtonSource supplies debounced local button events.
type ButtonSource interface {
	Poll(now time.Time) (control.Event, bool)
}

// CommandSource supplies queued remote transport commands.
type CommandSource interface {
	TryNext() (sink.Command, bool)
}

// Engine drives the control machine from a single polling loop. Each
// tick polls local buttons first, then drains queued remote commands,
// then lets the backend report track completion. All player mutation
// happens on the loop goroutine.
type Engine struct {
	machine *control.Machine
	backend audio.Backend
	buttons ButtonSource
	remote  CommandSource
	board   *control.StatusBoard
	catalog *catalog.Catalog

	connected func() bool
	interval  time.Duration
}

// Config carries the engine collaborators. Buttons, Remote, Board and
// Connected are optional.
type Config struct {
	Machine   *control.Machine
	Backend   audio.Backend
	Buttons   ButtonSource
	Remote    CommandSource
	Board     *control.StatusBoard
	Catalog   *catalog.Catalog
	Connected func() bool
	Interval  time.Duration
}

// New creates an engine.
func New(cfg Config) *Engine {
	connected := cfg.Connected
	if connected == nil {
		connected = func() bool { return true }
	}
	interval := cfg.Interval
	if interval <= 0 {
		interval = 5 * time.Millisecond
	}

	return &Engine{
		machine:   cfg.Machine,
		backend:   cfg.Backend,
		buttons:   cfg.Buttons,
		remote:    cfg.Remote,
		board:     cfg.Board,
		catalog:   cfg.Catalog,
		connected: connected,
		interval:  interval,
	}
}

// Run executes the control loop until ctx is cancelled. Playback is
// stopped before returning.
func (e *Engine) Run(ctx context.Context) error {
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	zlog.Info().Msgf("engine: control loop started: interval=%s", e.interval)

	for {
		select {
		case <-ctx.Done():
			zlog.Info().Msg("engine: control loop stopping")
			e.machine.Apply(control.EventStop)
			e.publishStatus()
			return nil
		case now := <-ticker.C:
			e.tick(now)
		}
	}
}

// tick runs one loop iteration. A panicking tick must not kill the loop.
func (e *Engine) tick(now time.Time) {
	defer func() {
		if r := recover(); r != nil {
			zlog.Error().Msgf("engine: tick panicked: %v", r)
		}
	}()

	applied := false

	// Local controls take precedence.
	if e.buttons != nil {
		if ev, ok := e.buttons.Poll(now); ok {
			e.machine.Apply(ev)
			applied = true
		}
	}

	// Then queued remote commands, oldest first.
	if e.remote != nil {
		for {
			cmd, ok := e.remote.TryNext()
			if !ok {
				break
			}
			if ev, mapped := input.MapCommand(cmd); mapped {
				e.machine.Apply(ev)
				applied = true
			}
		}
	}

	// Track completion comes last, after the state above settled.
	switch b := e.backend.(type) {
	case audio.PullBackend:
		if e.machine.State() == control.StatePlaying && !b.Advance() {
			e.machine.Apply(control.EventTrackEnded)
			applied = true
		}
	case audio.PushBackend:
		b.Tick()
	}

	// A backend that lost its health while playing counts as track
	// completion, which also covers push backends finishing a track.
	if e.machine.State() == control.StatePlaying && !e.backend.IsHealthy() {
		e.machine.Apply(control.EventTrackEnded)
		applied = true
	}

	if applied {
		e.publishStatus()
	} else if e.board != nil {
		e.board.SetConnected(e.connected())
	}
}

func (e *Engine) publishStatus() {
	if e.board == nil {
		return
	}

	st := control.Status{
		State:      e.machine.State().String(),
		TrackIndex: e.machine.Cursor(),
		Connected:  e.connected(),
	}
	if e.catalog != nil {
		st.CatalogSize = e.catalog.Len()
	}
	if tr, ok := e.machine.CurrentTrack(); ok {
		st.TrackName = tr.Name
	}
	e.board.Set(st)
}

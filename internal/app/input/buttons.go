// Package input adapts local buttons and remote transport commands
// into control events.
package input

import (
	"time"

	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/walkbox/internal/app/control"
	"github.com/osa030/walkbox/internal/infra/config"
)

// LineReader reports the level of one physical input line.
type LineReader interface {
	// Level reports whether the line is currently active (pressed).
	Level() bool
	Close() error
}

// lineState runs the debounce and press-length machine for one line.
type lineState struct {
	reader  LineReader
	short   control.Event
	long    control.Event
	hasLong bool

	raw       bool
	rawSince  time.Time
	stable    bool
	pressedAt time.Time
	longFired bool
}

// Buttons polls the physical button lines and turns debounced presses
// into control events. A short press of the next button skips forward,
// holding it stops playback. The prev button only knows one gesture.
// Not safe for concurrent use: the control loop owns it.
type Buttons struct {
	lines     []*lineState
	pending   []control.Event
	debounce  time.Duration
	longPress time.Duration
}

// NewButtons creates the button poller. Either reader may be nil when
// the corresponding device is not configured.
func NewButtons(cfg config.ButtonsConfig, next, prev LineReader) *Buttons {
	b := &Buttons{
		debounce:  cfg.Debounce(),
		longPress: cfg.LongPress(),
	}
	if next != nil {
		b.lines = append(b.lines, &lineState{
			reader:  next,
			short:   control.EventNext,
			long:    control.EventStop,
			hasLong: true,
		})
	}
	if prev != nil {
		b.lines = append(b.lines, &lineState{
			reader: prev,
			short:  control.EventPrev,
		})
	}
	return b
}

// Poll samples every line and returns the next fired event, if any.
// Events fired by different lines in the same poll are handed out one
// per call, oldest first.
func (b *Buttons) Poll(now time.Time) (control.Event, bool) {
	for _, line := range b.lines {
		b.pollLine(line, now)
	}

	if len(b.pending) == 0 {
		return 0, false
	}
	ev := b.pending[0]
	b.pending = b.pending[1:]
	return ev, true
}

func (b *Buttons) pollLine(line *lineState, now time.Time) {
	level := line.reader.Level()
	if level != line.raw {
		line.raw = level
		line.rawSince = now
	}

	// The raw level must hold for the debounce window before the
	// stable level follows it.
	if level != line.stable && now.Sub(line.rawSince) >= b.debounce {
		line.stable = level
		if level {
			line.pressedAt = now
			line.longFired = false
		} else if !line.longFired {
			b.fire(line.short)
		}
	}

	if line.stable && line.hasLong && !line.longFired && now.Sub(line.pressedAt) >= b.longPress {
		line.longFired = true
		b.fire(line.long)
	}
}

func (b *Buttons) fire(ev control.Event) {
	zlog.Debug().Msgf("input: button event: %s", ev)
	b.pending = append(b.pending, ev)
}

// Close closes every line reader.
func (b *Buttons) Close() {
	for _, line := range b.lines {
		if err := line.reader.Close(); err != nil {
			zlog.Warn().Msgf("input: failed to close button line: %v", err)
		}
	}
}

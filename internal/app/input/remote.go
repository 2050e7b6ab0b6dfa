package input

import (
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/walkbox/internal/app/control"
	"github.com/osa030/walkbox/internal/infra/sink"
)

const defaultRemoteCapacity = 8

// Remote is the bounded mailbox between the sink's command callback
// and the control loop. Offer runs on transport goroutines and only
// enqueues; the loop drains with TryNext on its own schedule.
type Remote struct {
	commands chan sink.Command
}

// NewRemote creates a mailbox holding up to capacity pending commands.
func NewRemote(capacity int) *Remote {
	if capacity <= 0 {
		capacity = defaultRemoteCapacity
	}
	return &Remote{
		commands: make(chan sink.Command, capacity),
	}
}

// Offer enqueues a command without blocking. When the mailbox is full
// the new command is dropped whole; pending commands are never
// collapsed, so a queued stop followed by a queued play still runs
// as two commands.
func (r *Remote) Offer(cmd sink.Command) {
	select {
	case r.commands <- cmd:
	default:
		zlog.Warn().Msgf("input: remote mailbox full, dropping command: %s", cmd)
	}
}

// TryNext dequeues the oldest pending command without blocking.
func (r *Remote) TryNext() (sink.Command, bool) {
	select {
	case cmd := <-r.commands:
		return cmd, true
	default:
		return 0, false
	}
}

// Pending returns the number of queued commands.
func (r *Remote) Pending() int {
	return len(r.commands)
}

// MapCommand translates a transport command into a control event. The
// second return value is false for commands outside the vocabulary.
func MapCommand(cmd sink.Command) (control.Event, bool) {
	switch cmd {
	case sink.CommandStop:
		return control.EventStop, true
	case sink.CommandPlay:
		return control.EventPlayOrResume, true
	case sink.CommandPause:
		return control.EventPauseToggle, true
	case sink.CommandSeekForward:
		return control.EventNext, true
	case sink.CommandSeekBackward:
		return control.EventPrev, true
	default:
		return 0, false
	}
}

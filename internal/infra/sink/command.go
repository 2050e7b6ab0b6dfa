// Package sink provides the wireless audio sink transports.
package sink

import (
	"strings"

	"github.com/cockroachdb/errors"
)

// Command is a transport control command arriving from the connected
// receiver. The vocabulary is fixed: receivers cannot express anything
// beyond these five.
type Command int

const (
	CommandStop Command = iota
	CommandPlay
	CommandPause
	CommandSeekForward
	CommandSeekBackward
)

// String returns the wire form of the command.
func (c Command) String() string {
	switch c {
	case CommandStop:
		return "stop"
	case CommandPlay:
		return "play"
	case CommandPause:
		return "pause"
	case CommandSeekForward:
		return "seek_forward"
	case CommandSeekBackward:
		return "seek_backward"
	default:
		return "unknown"
	}
}

// ParseCommand parses the wire form of a command.
func ParseCommand(s string) (Command, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "stop":
		return CommandStop, nil
	case "play":
		return CommandPlay, nil
	case "pause":
		return CommandPause, nil
	case "seek_forward":
		return CommandSeekForward, nil
	case "seek_backward":
		return CommandSeekBackward, nil
	default:
		return 0, errors.Newf("unknown command: %q", s)
	}
}

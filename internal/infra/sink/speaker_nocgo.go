//go:build !((linux && cgo) || windows || darwin)

package sink

import "github.com/cockroachdb/errors"

// NewSpeaker reports that the local speaker is unavailable on this
// platform. The HTTP sink remains the portable choice.
func NewSpeaker(settings map[string]any) (Sink, error) {
	return nil, errors.New("speaker sink requires cgo on this platform")
}

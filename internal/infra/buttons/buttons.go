// Package buttons reads physical button levels from Linux input event
// devices.
package buttons

import (
	"encoding/binary"
	"io"
	"os"
	"sync/atomic"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
)

const evKey = 0x01

// inputEvent mirrors the kernel input_event layout on 64-bit platforms.
type inputEvent struct {
	Sec   int64
	Usec  int64
	Type  uint16
	Code  uint16
	Value int32
}

// EvdevReader tracks the level of one key on an input event device.
// A background goroutine consumes device events; Level is safe to
// call from the control loop.
type EvdevReader struct {
	device  string
	keyCode uint16
	src     io.ReadCloser
	level   atomic.Bool
}

// Open opens an input device and starts watching the given key code.
func Open(device string, keyCode uint16) (*EvdevReader, error) {
	f, err := os.Open(device)
	if err != nil {
		return nil, errors.Wrapf(err, "opening input device %s", device)
	}
	return newReader(device, f, keyCode), nil
}

func newReader(device string, src io.ReadCloser, keyCode uint16) *EvdevReader {
	r := &EvdevReader{
		device:  device,
		keyCode: keyCode,
		src:     src,
	}
	go r.watch()
	return r
}

// Level reports whether the key is currently held down.
func (r *EvdevReader) Level() bool {
	return r.level.Load()
}

// Close stops the watcher.
func (r *EvdevReader) Close() error {
	return r.src.Close()
}

// watch consumes device events until the source closes. The level is
// released on exit so a vanished device cannot leave a button stuck.
func (r *EvdevReader) watch() {
	for {
		var ev inputEvent
		if err := binary.Read(r.src, binary.LittleEndian, &ev); err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrClosedPipe) && !errors.Is(err, os.ErrClosed) {
				zlog.Warn().Msgf("buttons: device read failed: device=%s err=%v", r.device, err)
			}
			r.level.Store(false)
			return
		}

		if ev.Type != evKey || ev.Code != r.keyCode {
			continue
		}

		switch ev.Value {
		case 0:
			r.level.Store(false)
		case 1:
			r.level.Store(true)
		}
		// Autorepeat (2) leaves the level alone
	}
}

// Stub is a line that never reports pressed. Used when a configured
// input device cannot be opened so the player still runs without
// local buttons.
type Stub struct{}

func (Stub) Level() bool { return false }

func (Stub) Close() error { return nil }

package buttons

import (
	"encoding/binary"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const evSyn = 0x00

func writeEvent(t *testing.T, w io.Writer, typ, code uint16, value int32) {
	t.Helper()
	require.NoError(t, binary.Write(w, binary.LittleEndian, inputEvent{Type: typ, Code: code, Value: value}))
}

func TestEvdevReader_TracksKeyLevel(t *testing.T) {
	pr, pw := io.Pipe()
	r := newReader("test-device", pr, 115)
	defer r.Close()

	assert.False(t, r.Level())

	writeEvent(t, pw, evKey, 115, 1)
	assert.Eventually(t, r.Level, time.Second, time.Millisecond)

	// Pipe writes return once the watcher consumed the previous
	// event, so after the spacer the autorepeat has been processed.
	writeEvent(t, pw, evKey, 115, 2)
	writeEvent(t, pw, evSyn, 0, 0)
	assert.True(t, r.Level(), "autorepeat must not release the key")

	writeEvent(t, pw, evKey, 115, 0)
	assert.Eventually(t, func() bool { return !r.Level() }, time.Second, time.Millisecond)
}

func TestEvdevReader_IgnoresOtherKeys(t *testing.T) {
	pr, pw := io.Pipe()
	r := newReader("test-device", pr, 115)
	defer r.Close()

	writeEvent(t, pw, evKey, 114, 1)
	writeEvent(t, pw, evSyn, 0, 0)
	assert.False(t, r.Level())
}

func TestEvdevReader_IgnoresNonKeyEvents(t *testing.T) {
	pr, pw := io.Pipe()
	r := newReader("test-device", pr, 115)
	defer r.Close()

	writeEvent(t, pw, evSyn, 115, 1)
	writeEvent(t, pw, evSyn, 0, 0)
	assert.False(t, r.Level())
}

func TestEvdevReader_CloseReleasesLevel(t *testing.T) {
	pr, pw := io.Pipe()
	r := newReader("test-device", pr, 115)

	writeEvent(t, pw, evKey, 115, 1)
	assert.Eventually(t, r.Level, time.Second, time.Millisecond)

	require.NoError(t, r.Close())
	assert.Eventually(t, func() bool { return !r.Level() }, time.Second, time.Millisecond)
}

func TestOpen_MissingDevice(t *testing.T) {
	_, err := Open("/dev/input/does-not-exist", 115)
	assert.Error(t, err)
}

func TestStub(t *testing.T) {
	s := Stub{}
	assert.False(t, s.Level())
	assert.NoError(t, s.Close())
}

package audio

import (
	"bytes"
	"encoding/binary"
	"sync"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/osa030/walkbox/internal/domain/track"
)

// writeWAV writes a PCM16 stereo WAV file with the given number of
// samples per channel onto the test filesystem and returns its track.
func writeWAV(t *testing.T, fsys afero.Fs, path string, samples int, sampleRate uint32) track.Track {
	t.Helper()

	var buf bytes.Buffer
	dataLen := uint32(samples * NumChannels * 2)

	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+dataLen))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(&buf, binary.LittleEndian, uint16(NumChannels))
	binary.Write(&buf, binary.LittleEndian, sampleRate)
	binary.Write(&buf, binary.LittleEndian, sampleRate*NumChannels*2)
	binary.Write(&buf, binary.LittleEndian, uint16(NumChannels*2))
	binary.Write(&buf, binary.LittleEndian, uint16(16))
	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, dataLen)
	for i := 0; i < samples; i++ {
		v := int16(i % 1000)
		binary.Write(&buf, binary.LittleEndian, v) // left
		binary.Write(&buf, binary.LittleEndian, v) // right
	}

	require.NoError(t, afero.WriteFile(fsys, path, buf.Bytes(), 0644))
	return track.New(path, int64(buf.Len()))
}

// fakeFrameWriter records delivered frames. Safe for concurrent use.
type fakeFrameWriter struct {
	mu     sync.Mutex
	frames [][]int16
	err    error
}

func (w *fakeFrameWriter) WriteFrame(pcm []int16) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	frame := make([]int16, len(pcm))
	copy(frame, pcm)
	w.frames = append(w.frames, frame)
	return nil
}

func (w *fakeFrameWriter) frameCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.frames)
}

func (w *fakeFrameWriter) sampleCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	total := 0
	for _, f := range w.frames {
		total += len(f) / NumChannels
	}
	return total
}

func (w *fakeFrameWriter) setErr(err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.err = err
}

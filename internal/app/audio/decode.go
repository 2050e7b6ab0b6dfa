package audio

import (
	"github.com/cockroachdb/errors"
	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/wav"
	"github.com/spf13/afero"

	"github.com/osa030/walkbox/internal/domain/track"
)

// openStream opens and decodes a track from storage. The caller owns the
// returned closer.
func openStream(fsys afero.Fs, tr track.Track) (beep.StreamSeekCloser, beep.Format, error) {
	f, err := fsys.Open(tr.Path)
	if err != nil {
		return nil, beep.Format{}, errors.Wrapf(err, "opening %s", tr.Name)
	}

	var stream beep.StreamSeekCloser
	var format beep.Format
	switch tr.Ext {
	case ".wav":
		stream, format, err = wav.Decode(f)
	case ".mp3":
		stream, format, err = mp3.Decode(f)
	default:
		f.Close()
		return nil, beep.Format{}, errors.Newf("unsupported audio format: %s", tr.Ext)
	}
	if err != nil {
		f.Close()
		return nil, beep.Format{}, errors.Wrapf(err, "decoding %s", tr.Name)
	}
	return stream, format, nil
}

// normalize resamples a decoded stream to the delivery sample rate when
// the source rate differs.
func normalize(s beep.Streamer, format beep.Format) beep.Streamer {
	if format.SampleRate == beep.SampleRate(SampleRate) {
		return s
	}
	return beep.Resample(4, format.SampleRate, beep.SampleRate(SampleRate), s)
}

// frameToPCM converts n beep samples into interleaved stereo int16 PCM,
// clipping out-of-range values.
func frameToPCM(samples [][2]float64, n int) []int16 {
	pcm := make([]int16, n*NumChannels)
	for i := 0; i < n; i++ {
		pcm[2*i] = clipSample(samples[i][0])
		pcm[2*i+1] = clipSample(samples[i][1])
	}
	return pcm
}

// clipSample converts a float64 sample to int16 with clipping.
func clipSample(v float64) int16 {
	if v > 1.0 {
		v = 1.0
	} else if v < -1.0 {
		v = -1.0
	}
	return int16(v * 32767)
}

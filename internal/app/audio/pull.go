package audio

import (
	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/gopxl/beep/v2"
	"github.com/mitchellh/mapstructure"
	zlog "github.com/rs/zerolog/log"
	"github.com/spf13/afero"

	"github.com/osa030/walkbox/internal/domain/track"
)

// PullConfig holds pull backend settings.
type PullConfig struct {
	FramesPerAdvance int `yaml:"frames_per_advance" mapstructure:"frames_per_advance" default:"1" validate:"gte=1,lte=50"`
}

// Pull is the control-loop-driven delivery backend. Each Advance call
// decodes a bounded number of frames and hands them to the frame writer.
// Not safe for concurrent use: the control loop owns it.
type Pull struct {
	fsys   afero.Fs
	out    FrameWriter
	config *PullConfig

	stream    beep.StreamSeekCloser
	streamer  beep.Streamer
	buf       [][2]float64
	trackName string
	loaded    bool
	paused    bool
	healthy   bool
}

// NewPull creates a pull backend from decoded settings.
func NewPull(fsys afero.Fs, out FrameWriter, settings map[string]any) (*Pull, error) {
	var config PullConfig
	if err := mapstructure.Decode(settings, &config); err != nil {
		return nil, errors.Wrap(err, "failed to decode settings")
	}
	if err := defaults.Set(&config); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}
	if err := validator.New().Struct(config); err != nil {
		return nil, errors.Wrap(err, "validation failed")
	}

	return &Pull{
		fsys:    fsys,
		out:     out,
		config:  &config,
		buf:     make([][2]float64, FrameSamples),
		healthy: true,
	}, nil
}

// Load opens and decodes the track, replacing any current one.
func (p *Pull) Load(tr track.Track) bool {
	p.Stop()

	stream, format, err := openStream(p.fsys, tr)
	if err != nil {
		zlog.Warn().Msgf("audio: load failed: track=%s err=%v", tr.Name, err)
		return false
	}

	p.stream = stream
	p.streamer = normalize(stream, format)
	p.trackName = tr.Name
	p.loaded = true
	p.paused = false
	p.healthy = true
	zlog.Debug().Msgf("audio: loaded track: name=%s rate=%d", tr.Name, format.SampleRate)
	return true
}

// Stop releases the current track. Safe to call repeatedly.
func (p *Pull) Stop() {
	if !p.loaded {
		return
	}
	if err := p.stream.Close(); err != nil {
		zlog.Debug().Msgf("audio: stream close failed: track=%s err=%v", p.trackName, err)
	}
	p.stream = nil
	p.streamer = nil
	p.loaded = false
	p.paused = false
}

// Advance decodes and delivers up to the configured number of frames.
// Returns false once when the track is exhausted.
func (p *Pull) Advance() bool {
	if !p.loaded {
		return false
	}
	if p.paused {
		return true
	}

	for i := 0; i < p.config.FramesPerAdvance; i++ {
		n, ok := p.streamer.Stream(p.buf)
		if n > 0 {
			if err := p.out.WriteFrame(frameToPCM(p.buf, n)); err != nil {
				zlog.Warn().Msgf("audio: frame write failed: track=%s err=%v", p.trackName, err)
				p.healthy = false
				return true
			}
		}
		if !ok {
			if err := p.stream.Err(); err != nil {
				zlog.Warn().Msgf("audio: decode error: track=%s err=%v", p.trackName, err)
			} else {
				zlog.Debug().Msgf("audio: track drained: name=%s", p.trackName)
			}
			p.Stop()
			return false
		}
	}
	return true
}

// SetPaused suspends or resumes delivery.
func (p *Pull) SetPaused(paused bool) {
	p.paused = paused
}

// IsPaused reports whether delivery is suspended.
func (p *Pull) IsPaused() bool {
	return p.paused
}

// IsHealthy reports whether frames are still being accepted downstream.
func (p *Pull) IsHealthy() bool {
	return p.healthy
}

// Close releases backend resources.
func (p *Pull) Close() error {
	p.Stop()
	return nil
}

package audio

import (
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/gopxl/beep/v2"
	"github.com/mitchellh/mapstructure"
	zlog "github.com/rs/zerolog/log"
	"github.com/spf13/afero"

	"github.com/osa030/walkbox/internal/domain/track"
)

// PushConfig holds push backend settings.
type PushConfig struct {
	PaceMs int `yaml:"pace_ms" mapstructure:"pace_ms" default:"20" validate:"gte=1,lte=100"`
}

// Pace returns the pump interval as a duration.
func (c PushConfig) Pace() time.Duration {
	return time.Duration(c.PaceMs) * time.Millisecond
}

// Push is the self-pacing delivery backend. Each loaded track is pumped
// to the frame writer by an internal goroutine. Track completion and
// delivery failures both surface through IsHealthy turning false, the
// pump never touches playback state itself.
type Push struct {
	fsys   afero.Fs
	out    FrameWriter
	config *PushConfig

	mu        sync.Mutex
	stream    beep.StreamSeekCloser
	streamer  beep.Streamer
	trackName string
	loaded    bool
	paused    bool
	healthy   bool
	cancel    chan struct{}
	pumpDone  chan struct{}
}

// NewPush creates a push backend from decoded settings.
func NewPush(fsys afero.Fs, out FrameWriter, settings map[string]any) (*Push, error) {
	var config PushConfig
	if err := mapstructure.Decode(settings, &config); err != nil {
		return nil, errors.Wrap(err, "failed to decode settings")
	}
	if err := defaults.Set(&config); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}
	if err := validator.New().Struct(config); err != nil {
		return nil, errors.Wrap(err, "validation failed")
	}

	return &Push{
		fsys:    fsys,
		out:     out,
		config:  &config,
		healthy: true,
	}, nil
}

// Load opens and decodes the track and starts its pump.
func (s *Push) Load(tr track.Track) bool {
	s.Stop()

	stream, format, err := openStream(s.fsys, tr)
	if err != nil {
		zlog.Warn().Msgf("audio: load failed: track=%s err=%v", tr.Name, err)
		return false
	}
	streamer := normalize(stream, format)

	cancel := make(chan struct{})
	done := make(chan struct{})

	s.mu.Lock()
	s.stream = stream
	s.streamer = streamer
	s.trackName = tr.Name
	s.loaded = true
	s.paused = false
	s.healthy = true
	s.cancel = cancel
	s.pumpDone = done
	s.mu.Unlock()

	go s.pump(cancel, done, stream, streamer, tr.Name)
	zlog.Debug().Msgf("audio: loaded track: name=%s rate=%d", tr.Name, format.SampleRate)
	return true
}

// Stop cancels the pump and releases the current track. Safe to call
// repeatedly.
func (s *Push) Stop() {
	s.mu.Lock()
	if !s.loaded {
		s.mu.Unlock()
		return
	}
	cancel, done := s.cancel, s.pumpDone
	s.mu.Unlock()

	close(cancel)
	<-done

	s.mu.Lock()
	s.releaseLocked()
	s.mu.Unlock()
}

// Tick reaps a pump that finished on its own, releasing the decoder.
// Called every control loop iteration.
func (s *Push) Tick() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pumpDone == nil {
		return
	}
	select {
	case <-s.pumpDone:
		s.releaseLocked()
	default:
	}
}

// releaseLocked closes the decoder and clears track state.
// Must be called with s.mu held.
func (s *Push) releaseLocked() {
	if s.stream != nil {
		if err := s.stream.Close(); err != nil {
			zlog.Debug().Msgf("audio: stream close failed: track=%s err=%v", s.trackName, err)
		}
	}
	s.stream = nil
	s.streamer = nil
	s.loaded = false
	s.paused = false
	s.cancel = nil
	s.pumpDone = nil
}

// SetPaused suspends or resumes the pump.
func (s *Push) SetPaused(paused bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paused = paused
}

// IsPaused reports whether the pump is suspended.
func (s *Push) IsPaused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paused
}

// IsHealthy reports whether the pump is still delivering. Turns false
// when the track completes or delivery fails.
func (s *Push) IsHealthy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.healthy
}

// Close stops the pump and releases backend resources.
func (s *Push) Close() error {
	s.Stop()
	return nil
}

// pump delivers frames at the configured pace until the track drains,
// delivery fails, or cancel is closed.
func (s *Push) pump(cancel, done chan struct{}, stream beep.StreamSeekCloser, streamer beep.Streamer, name string) {
	defer close(done)

	ticker := time.NewTicker(s.config.Pace())
	defer ticker.Stop()
	buf := make([][2]float64, FrameSamples)

	for {
		select {
		case <-cancel:
			return
		case <-ticker.C:
			s.mu.Lock()
			if s.paused {
				s.mu.Unlock()
				continue
			}
			n, ok := streamer.Stream(buf)
			if n > 0 {
				if err := s.out.WriteFrame(frameToPCM(buf, n)); err != nil {
					zlog.Warn().Msgf("audio: frame write failed: track=%s err=%v", name, err)
					s.healthy = false
					s.mu.Unlock()
					return
				}
			}
			if !ok {
				if err := stream.Err(); err != nil {
					zlog.Warn().Msgf("audio: decode error: track=%s err=%v", name, err)
				} else {
					zlog.Debug().Msgf("audio: track drained: name=%s", name)
				}
				s.healthy = false
				s.mu.Unlock()
				return
			}
			s.mu.Unlock()
		}
	}
}

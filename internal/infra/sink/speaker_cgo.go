//go:build (linux && cgo) || windows || darwin

package sink

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/speaker"
	"github.com/mitchellh/mapstructure"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/walkbox/internal/app/audio"
)

// SpeakerConfig holds local speaker sink settings.
type SpeakerConfig struct {
	BufferMs    int `yaml:"buffer_ms" mapstructure:"buffer_ms" default:"100" validate:"gte=20,lte=1000"`
	FrameBuffer int `yaml:"frame_buffer" mapstructure:"frame_buffer" default:"16" validate:"gte=1,lte=256"`
}

// SpeakerSink plays PCM through the local audio device. There is no
// remote receiver, so the command handler is never invoked and the
// sink counts as connected once started.
type SpeakerSink struct {
	config *SpeakerConfig
	frames chan []int16

	closeOnce sync.Once
	done      chan struct{}
}

// NewSpeaker creates a local speaker sink from decoded settings.
func NewSpeaker(settings map[string]any) (*SpeakerSink, error) {
	var config SpeakerConfig
	if err := mapstructure.Decode(settings, &config); err != nil {
		return nil, errors.Wrap(err, "failed to decode settings")
	}
	if err := defaults.Set(&config); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}
	if err := validator.New().Struct(config); err != nil {
		return nil, errors.Wrap(err, "validation failed")
	}

	return &SpeakerSink{
		config: &config,
		frames: make(chan []int16, config.FrameBuffer),
		done:   make(chan struct{}),
	}, nil
}

// Start initializes the audio device and begins draining frames.
func (s *SpeakerSink) Start(ctx context.Context) error {
	sr := beep.SampleRate(audio.SampleRate)
	if err := speaker.Init(sr, sr.N(time.Duration(s.config.BufferMs)*time.Millisecond)); err != nil {
		return errors.Wrap(err, "initializing speaker")
	}
	speaker.Play(&speakerStreamer{frames: s.frames, done: s.done})

	go func() {
		select {
		case <-ctx.Done():
			_ = s.Close()
		case <-s.done:
		}
	}()

	zlog.Info().Msgf("sink: speaker initialized: sample_rate=%d buffer_ms=%d", audio.SampleRate, s.config.BufferMs)
	return nil
}

// IsConnected reports true: the local device has no detach state.
func (s *SpeakerSink) IsConnected() bool {
	return true
}

// SetCommandHandler is a no-op: the local device sends no commands.
func (s *SpeakerSink) SetCommandHandler(handler func(Command)) {}

// WriteFrame queues one PCM frame for the device. Blocks at most about
// one frame duration when the device buffer is saturated, then drops.
func (s *SpeakerSink) WriteFrame(pcm []int16) error {
	select {
	case <-s.done:
		return ErrClosed
	default:
	}

	select {
	case s.frames <- pcm:
		return nil
	default:
	}

	select {
	case s.frames <- pcm:
		return nil
	case <-s.done:
		return ErrClosed
	case <-time.After(frameDuration()):
		zlog.Debug().Msg("sink: frame dropped, speaker saturated")
		return nil
	}
}

// Close stops the streamer and shuts the device down.
func (s *SpeakerSink) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)
		speaker.Close()
	})
	return nil
}

// speakerStreamer adapts the frame channel to a beep streamer. The
// speaker goroutine owns pending, so no locking is needed. Gaps in
// the frame supply play as silence.
type speakerStreamer struct {
	frames  <-chan []int16
	done    <-chan struct{}
	pending []int16
}

func (q *speakerStreamer) Stream(samples [][2]float64) (int, bool) {
	select {
	case <-q.done:
		return 0, false
	default:
	}

	for i := range samples {
		if len(q.pending) < audio.NumChannels {
			select {
			case frame := <-q.frames:
				q.pending = frame
			default:
				samples[i][0] = 0
				samples[i][1] = 0
				continue
			}
		}
		samples[i][0] = float64(q.pending[0]) / 32768
		samples[i][1] = float64(q.pending[1]) / 32768
		q.pending = q.pending[audio.NumChannels:]
	}
	return len(samples), true
}

func (q *speakerStreamer) Err() error { return nil }

package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/osa030/walkbox/internal/app/audio"
	"github.com/osa030/walkbox/internal/app/control"
	"github.com/osa030/walkbox/internal/app/notify"
	"github.com/osa030/walkbox/internal/domain/catalog"
)

// HTTPConfig holds HTTP sink settings.
type HTTPConfig struct {
	Addr         string `yaml:"addr" mapstructure:"addr" default:":8090" validate:"required"`
	FrameBuffer  int    `yaml:"frame_buffer" mapstructure:"frame_buffer" default:"64" validate:"gte=1,lte=1024"`
	ClientBuffer int    `yaml:"client_buffer" mapstructure:"client_buffer" default:"64" validate:"gte=1,lte=1024"`
}

// Deps are the player surfaces the HTTP sink exposes to receivers.
type Deps struct {
	Board    *control.StatusBoard
	Notifier *notify.Manager
	Catalog  *catalog.Catalog
}

// HTTPSink streams PCM over HTTP and accepts transport commands from
// the attached receiver. A ticker-paced pump drains the frame channel
// at real-time rate, which is what throttles the producing backend.
type HTTPSink struct {
	config     *HTTPConfig
	deviceName string
	deps       Deps

	handlerMu sync.RWMutex
	handler   func(Command)

	registry *receiverRegistry
	frames   chan []int16
	server   *http.Server

	closeOnce sync.Once
	done      chan struct{}
}

// NewHTTP creates an HTTP sink from decoded settings.
func NewHTTP(deviceName string, settings map[string]any, deps Deps) (*HTTPSink, error) {
	var config HTTPConfig
	if err := mapstructure.Decode(settings, &config); err != nil {
		return nil, errors.Wrap(err, "failed to decode settings")
	}
	if err := defaults.Set(&config); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}
	if err := validator.New().Struct(config); err != nil {
		return nil, errors.Wrap(err, "validation failed")
	}

	return &HTTPSink{
		config:     &config,
		deviceName: deviceName,
		deps:       deps,
		registry:   newReceiverRegistry(),
		frames:     make(chan []int16, config.FrameBuffer),
		done:       make(chan struct{}),
	}, nil
}

// Start binds the listener and begins serving. Serving continues in the
// background until ctx is cancelled or Close is called.
func (s *HTTPSink) Start(ctx context.Context) error {
	s.server = &http.Server{
		Handler: h2c.NewHandler(s.routes(), &http2.Server{}),
	}

	ln, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return errors.Wrapf(err, "listening on %s", s.config.Addr)
	}

	go s.pump()
	go func() {
		if err := s.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			zlog.Error().Msgf("sink: server error: %v", err)
		}
	}()
	go func() {
		select {
		case <-ctx.Done():
			_ = s.Close()
		case <-s.done:
		}
	}()

	zlog.Info().Msgf("sink: serving: addr=%s device=%s", ln.Addr(), s.deviceName)
	return nil
}

// routes builds the HTTP mux.
func (s *HTTPSink) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/stream", s.handleStream)
	mux.HandleFunc("/control", s.handleControl)
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/tracks", s.handleTracks)
	mux.HandleFunc("/events", s.handleEvents)
	return mux
}

// IsConnected reports whether at least one receiver is streaming.
func (s *HTTPSink) IsConnected() bool {
	return s.registry.count() > 0
}

// SetCommandHandler registers the callback for receiver commands.
func (s *HTTPSink) SetCommandHandler(handler func(Command)) {
	s.handlerMu.Lock()
	defer s.handlerMu.Unlock()
	s.handler = handler
}

// WriteFrame queues one PCM frame for broadcast. Blocks at most about
// one frame duration when the transport is saturated, then drops.
func (s *HTTPSink) WriteFrame(pcm []int16) error {
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
		zlog.Debug().Msg("sink: frame dropped, transport saturated")
		return nil
	}
}

// Close shuts the server down and detaches all receivers.
func (s *HTTPSink) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		s.registry.closeAll()
		if s.server != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			err = s.server.Shutdown(ctx)
		}
	})
	return err
}

// pump drains the frame channel at real-time rate and fans frames out
// to attached receivers. With no receivers frames are discarded.
func (s *HTTPSink) pump() {
	ticker := time.NewTicker(frameDuration())
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			select {
			case frame := <-s.frames:
				s.registry.broadcast(frame)
			default:
			}
		}
	}
}

func (s *HTTPSink) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "audio/wav")
	w.Header().Set("Cache-Control", "no-cache, no-store")
	w.Header().Set("Connection", "close")
	w.Header().Set("ICY-Name", s.deviceName)

	if _, err := w.Write(streamWAVHeader(audio.SampleRate, audio.NumChannels)); err != nil {
		return
	}
	flusher.Flush()

	rc := s.registry.join(r.RemoteAddr, s.config.ClientBuffer)
	defer s.registry.leave(rc.id)
	zlog.Info().Msgf("sink: receiver connected: remote=%s total=%d", r.RemoteAddr, s.registry.count())
	defer zlog.Info().Msgf("sink: receiver disconnected: remote=%s", r.RemoteAddr)

	for {
		select {
		case <-r.Context().Done():
			return
		case <-rc.done:
			return
		case frame := <-rc.frames:
			if _, err := w.Write(pcmBytes(frame)); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func (s *HTTPSink) handleControl(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 64))
	if err != nil {
		http.Error(w, "read error", http.StatusBadRequest)
		return
	}
	cmd, err := ParseCommand(string(body))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.handlerMu.RLock()
	handler := s.handler
	s.handlerMu.RUnlock()
	if handler == nil {
		http.Error(w, "player not ready", http.StatusServiceUnavailable)
		return
	}

	zlog.Debug().Msgf("sink: received command: %s", cmd)
	handler(cmd)
	w.WriteHeader(http.StatusAccepted)
}

func (s *HTTPSink) handleStatus(w http.ResponseWriter, r *http.Request) {
	if s.deps.Board == nil {
		http.Error(w, "status unavailable", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(s.deps.Board.Get())
}

func (s *HTTPSink) handleTracks(w http.ResponseWriter, r *http.Request) {
	if s.deps.Catalog == nil {
		http.Error(w, "catalog unavailable", http.StatusServiceUnavailable)
		return
	}

	type trackInfo struct {
		Index  int    `json:"index"`
		Name   string `json:"name"`
		Size   int64  `json:"size"`
		Title  string `json:"title,omitempty"`
		Artist string `json:"artist,omitempty"`
	}

	items := make([]trackInfo, 0, s.deps.Catalog.Len())
	for i := 0; i < s.deps.Catalog.Len(); i++ {
		tr := s.deps.Catalog.At(i)
		items = append(items, trackInfo{
			Index:  i,
			Name:   tr.Name,
			Size:   tr.Size,
			Title:  tr.Title,
			Artist: tr.Artist,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(items)
}

func (s *HTTPSink) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}
	if s.deps.Notifier == nil {
		http.Error(w, "events unavailable", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	flusher.Flush()

	id, ch := s.deps.Notifier.Subscribe(32)
	defer s.deps.Notifier.Unsubscribe(id)

	for {
		select {
		case <-r.Context().Done():
			return
		case <-s.done:
			return
		case n, ok := <-ch:
			if !ok {
				return
			}
			data, err := json.Marshal(n)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()
		}
	}
}

// frameDuration returns the wall time one frame represents.
func frameDuration() time.Duration {
	return time.Duration(audio.FrameMs) * time.Millisecond
}

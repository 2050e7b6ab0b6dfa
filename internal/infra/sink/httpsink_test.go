package sink

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/walkbox/internal/app/control"
	"github.com/osa030/walkbox/internal/app/notify"
	"github.com/osa030/walkbox/internal/domain/catalog"
	"github.com/osa030/walkbox/internal/domain/track"
)

func newTestSink(t *testing.T, settings map[string]any, deps Deps) *HTTPSink {
	t.Helper()
	s, err := NewHTTP("walkbox-test", settings, deps)
	require.NoError(t, err)
	return s
}

func TestNewHTTP_Defaults(t *testing.T) {
	s := newTestSink(t, nil, Deps{})
	assert.Equal(t, ":8090", s.config.Addr)
	assert.Equal(t, 64, s.config.FrameBuffer)
	assert.Equal(t, 64, s.config.ClientBuffer)
}

func TestNewHTTP_InvalidSettings(t *testing.T) {
	_, err := NewHTTP("walkbox-test", map[string]any{"frame_buffer": 5000}, Deps{})
	assert.Error(t, err)
}

func TestHTTPSink_Control(t *testing.T) {
	s := newTestSink(t, nil, Deps{})
	server := httptest.NewServer(s.routes())
	defer server.Close()

	post := func(body string) *http.Response {
		resp, err := http.Post(server.URL+"/control", "text/plain", strings.NewReader(body))
		require.NoError(t, err)
		return resp
	}

	// No handler registered yet.
	resp := post("play")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	resp.Body.Close()

	var mu sync.Mutex
	var received []Command
	s.SetCommandHandler(func(c Command) {
		mu.Lock()
		defer mu.Unlock()
		received = append(received, c)
	})

	tests := []struct {
		name       string
		body       string
		wantStatus int
		want       Command
	}{
		{
			name:       "play",
			body:       "play",
			wantStatus: http.StatusAccepted,
			want:       CommandPlay,
		},
		{
			name:       "mixed case with whitespace",
			body:       " SEEK_FORWARD\n",
			wantStatus: http.StatusAccepted,
			want:       CommandSeekForward,
		},
		{
			name:       "unknown command",
			body:       "rewind",
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mu.Lock()
			received = nil
			mu.Unlock()

			resp := post(tt.body)
			defer resp.Body.Close()
			assert.Equal(t, tt.wantStatus, resp.StatusCode)

			mu.Lock()
			defer mu.Unlock()
			if tt.wantStatus == http.StatusAccepted {
				require.Len(t, received, 1)
				assert.Equal(t, tt.want, received[0])
			} else {
				assert.Empty(t, received)
			}
		})
	}

	t.Run("get is rejected", func(t *testing.T) {
		resp, err := http.Get(server.URL + "/control")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	})
}

func TestHTTPSink_Status(t *testing.T) {
	board := control.NewStatusBoard()
	board.Set(control.Status{
		State:       "playing",
		TrackIndex:  2,
		TrackName:   "song.wav",
		CatalogSize: 5,
		Connected:   true,
	})

	s := newTestSink(t, nil, Deps{Board: board})
	server := httptest.NewServer(s.routes())
	defer server.Close()

	resp, err := http.Get(server.URL + "/status")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var got control.Status
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, "playing", got.State)
	assert.Equal(t, 2, got.TrackIndex)
	assert.Equal(t, "song.wav", got.TrackName)
	assert.Equal(t, 5, got.CatalogSize)
	assert.True(t, got.Connected)
}

func TestHTTPSink_Status_NoBoard(t *testing.T) {
	s := newTestSink(t, nil, Deps{})
	server := httptest.NewServer(s.routes())
	defer server.Close()

	resp, err := http.Get(server.URL + "/status")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestHTTPSink_Tracks(t *testing.T) {
	first := track.New("/music/first.wav", 1000)
	second := track.New("/music/second.mp3", 2000)
	second.Title = "Second Song"
	second.Artist = "Somebody"

	s := newTestSink(t, nil, Deps{Catalog: catalog.New([]track.Track{first, second})})
	server := httptest.NewServer(s.routes())
	defer server.Close()

	resp, err := http.Get(server.URL + "/tracks")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got []struct {
		Index  int    `json:"index"`
		Name   string `json:"name"`
		Size   int64  `json:"size"`
		Title  string `json:"title"`
		Artist string `json:"artist"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	require.Len(t, got, 2)

	assert.Equal(t, 0, got[0].Index)
	assert.Equal(t, "first.wav", got[0].Name)
	assert.Equal(t, int64(1000), got[0].Size)
	assert.Empty(t, got[0].Title)

	assert.Equal(t, 1, got[1].Index)
	assert.Equal(t, "second.mp3", got[1].Name)
	assert.Equal(t, "Second Song", got[1].Title)
	assert.Equal(t, "Somebody", got[1].Artist)
}

func TestHTTPSink_Stream(t *testing.T) {
	s := newTestSink(t, nil, Deps{})
	server := httptest.NewServer(s.routes())
	defer server.Close()

	require.False(t, s.IsConnected())

	resp, err := http.Get(server.URL + "/stream")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "audio/wav", resp.Header.Get("Content-Type"))
	assert.Equal(t, "walkbox-test", resp.Header.Get("ICY-Name"))

	header := make([]byte, 44)
	_, err = io.ReadFull(resp.Body, header)
	require.NoError(t, err)
	assert.Equal(t, "RIFF", string(header[0:4]))

	assert.Eventually(t, s.IsConnected, time.Second, 5*time.Millisecond)

	frame := []int16{100, -100, 200, -200}
	s.registry.broadcast(frame)

	data := make([]byte, len(frame)*2)
	_, err = io.ReadFull(resp.Body, data)
	require.NoError(t, err)
	assert.Equal(t, pcmBytes(frame), data)

	resp.Body.Close()
	assert.Eventually(t, func() bool { return !s.IsConnected() }, time.Second, 5*time.Millisecond)
}

func TestHTTPSink_Events(t *testing.T) {
	notifier := notify.NewManager()
	defer notifier.Close()

	s := newTestSink(t, nil, Deps{Notifier: notifier})
	server := httptest.NewServer(s.routes())
	defer server.Close()

	resp, err := http.Get(server.URL + "/events")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	assert.Eventually(t, func() bool { return notifier.SubscriberCount() == 1 }, time.Second, 5*time.Millisecond)

	notifier.Publish(notify.Notification{Kind: notify.TrackStarted, TrackName: "song.wav"})

	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(line, "data: "))

	var n notify.Notification
	require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(strings.TrimSpace(line), "data: ")), &n))
	assert.Equal(t, "song.wav", n.TrackName)
	assert.Equal(t, uint64(1), n.Seq)
}

func TestHTTPSink_WriteFrame(t *testing.T) {
	s := newTestSink(t, map[string]any{"frame_buffer": 2}, Deps{})

	// Buffer absorbs frames without a receiver attached.
	require.NoError(t, s.WriteFrame([]int16{1}))
	require.NoError(t, s.WriteFrame([]int16{2}))

	// A full buffer drops the frame after a bounded wait.
	start := time.Now()
	require.NoError(t, s.WriteFrame([]int16{3}))
	assert.Less(t, time.Since(start), 500*time.Millisecond)

	require.NoError(t, s.Close())
	assert.ErrorIs(t, s.WriteFrame([]int16{4}), ErrClosed)
}

func TestHTTPSink_StartClose(t *testing.T) {
	s := newTestSink(t, map[string]any{"addr": "127.0.0.1:0"}, Deps{})

	require.NoError(t, s.Start(context.Background()))
	require.NoError(t, s.WriteFrame([]int16{1, 2}))

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	assert.ErrorIs(t, s.WriteFrame([]int16{3}), ErrClosed)
}

func TestHTTPSink_StartContextCancel(t *testing.T) {
	s := newTestSink(t, map[string]any{"addr": "127.0.0.1:0"}, Deps{})

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, s.Start(ctx))
	cancel()

	assert.Eventually(t, func() bool {
		return s.WriteFrame([]int16{1}) == ErrClosed
	}, time.Second, 5*time.Millisecond)
}

package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/walkbox/internal/domain/track"
)

// orderedFs wraps a base filesystem so directory reads return entries in
// a fixed order, standing in for storage that enumerates unsorted.
type orderedFs struct {
	afero.Fs
	order []string
}

func (o orderedFs) Open(name string) (afero.File, error) {
	f, err := o.Fs.Open(name)
	if err != nil {
		return nil, err
	}
	return orderedDir{File: f, fs: o.Fs, order: o.order}, nil
}

type orderedDir struct {
	afero.File
	fs    afero.Fs
	order []string
}

func (d orderedDir) Readdir(count int) ([]os.FileInfo, error) {
	infos := make([]os.FileInfo, 0, len(d.order))
	for _, name := range d.order {
		fi, err := d.fs.Stat(filepath.Join(d.File.Name(), name))
		if err != nil {
			return nil, err
		}
		infos = append(infos, fi)
	}
	return infos, nil
}

func newTestFs(t *testing.T, files map[string][]byte, dirs []string) afero.Fs {
	t.Helper()
	fsys := afero.NewMemMapFs()
	for _, d := range dirs {
		require.NoError(t, fsys.MkdirAll(d, 0755))
	}
	for path, data := range files {
		require.NoError(t, afero.WriteFile(fsys, path, data, 0644))
	}
	return fsys
}

func TestBuild(t *testing.T) {
	tests := []struct {
		name       string
		files      map[string][]byte
		dirs       []string
		extensions []string
		expected   []string
	}{
		{
			name: "only matching extensions kept",
			files: map[string][]byte{
				"/sd/one.wav":    []byte("a"),
				"/sd/two.mp3":    []byte("b"),
				"/sd/notes.txt":  []byte("c"),
				"/sd/cover.jpg":  []byte("d"),
				"/sd/three.wav":  []byte("e"),
				"/sd/.hidden.db": []byte("f"),
			},
			extensions: []string{".wav", ".mp3"},
			expected:   []string{"one.wav", "three.wav", "two.mp3"},
		},
		{
			name: "extension match is case-insensitive",
			files: map[string][]byte{
				"/sd/LOUD.WAV":  []byte("a"),
				"/sd/quiet.wav": []byte("b"),
				"/sd/Mid.Wav":   []byte("c"),
			},
			extensions: []string{".wav"},
			expected:   []string{"LOUD.WAV", "Mid.Wav", "quiet.wav"},
		},
		{
			name: "extensions configured without leading dot",
			files: map[string][]byte{
				"/sd/song.wav": []byte("a"),
			},
			extensions: []string{"wav"},
			expected:   []string{"song.wav"},
		},
		{
			name: "subdirectories are not descended into",
			files: map[string][]byte{
				"/sd/top.wav":          []byte("a"),
				"/sd/album/nested.wav": []byte("b"),
			},
			dirs:       []string{"/sd/album"},
			extensions: []string{".wav"},
			expected:   []string{"top.wav"},
		},
		{
			name:       "empty directory yields empty catalog",
			files:      map[string][]byte{},
			dirs:       []string{"/sd"},
			extensions: []string{".wav"},
			expected:   []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fsys := newTestFs(t, tt.files, tt.dirs)

			c, err := Build(fsys, "/sd", tt.extensions)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, c.Names())
			assert.Equal(t, len(tt.expected), c.Len())
			assert.Equal(t, len(tt.expected) == 0, c.IsEmpty())
		})
	}
}

func TestBuild_TinyFilesSkipMetadataProbe(t *testing.T) {
	// Files shorter than an ID3v1 trailer cannot carry tags; they must
	// still enumerate cleanly instead of tripping the tag reader's
	// seek-from-end.
	fsys := newTestFs(t, map[string][]byte{
		"/sd/stub.wav": make([]byte, 100),
		"/sd/full.wav": make([]byte, 4096),
	}, nil)

	c, err := Build(fsys, "/sd", []string{".wav"})
	require.NoError(t, err)
	require.Equal(t, 2, c.Len())
	tr0 := c.At(0)
	tr1 := c.At(1)
	assert.False(t, tr0.HasMetadata())
	assert.False(t, tr1.HasMetadata())
}

func TestBuild_PreservesEnumerationOrder(t *testing.T) {
	base := newTestFs(t, map[string][]byte{
		"/sd/b.wav": []byte("b"),
		"/sd/a.wav": []byte("a"),
		"/sd/c.wav": []byte("c"),
	}, nil)
	fsys := orderedFs{Fs: base, order: []string{"b.wav", "c.wav", "a.wav"}}

	c, err := Build(fsys, "/sd", []string{".wav"})
	require.NoError(t, err)
	assert.Equal(t, []string{"b.wav", "c.wav", "a.wav"}, c.Names())
}

func TestBuild_StorageUnavailable(t *testing.T) {
	fsys := afero.NewMemMapFs()

	c, err := Build(fsys, "/missing", []string{".wav"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrStorageUnavailable))
	assert.Nil(t, c)
}

func TestBuild_SizesPreserved(t *testing.T) {
	fsys := newTestFs(t, map[string][]byte{
		"/sd/a.wav": make([]byte, 100),
		"/sd/b.wav": make([]byte, 250),
	}, nil)

	c, err := Build(fsys, "/sd", []string{".wav"})
	require.NoError(t, err)
	require.Equal(t, 2, c.Len())
	assert.Equal(t, int64(350), c.TotalSize())
	assert.Equal(t, int64(100), c.At(0).Size)
	assert.Equal(t, int64(250), c.At(1).Size)
}

func TestCatalog_At(t *testing.T) {
	c := New([]track.Track{
		track.New("/sd/first.wav", 1),
		track.New("/sd/second.wav", 2),
	})

	assert.Equal(t, "first.wav", c.At(0).Name)
	assert.Equal(t, "second.wav", c.At(1).Name)
}

func TestCatalog_NewCopiesInput(t *testing.T) {
	src := []track.Track{track.New("/sd/a.wav", 1)}
	c := New(src)

	src[0].Name = "mutated"
	assert.Equal(t, "a.wav", c.At(0).Name)
}

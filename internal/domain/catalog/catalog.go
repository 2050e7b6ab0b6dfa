// Package catalog provides the ordered track catalog built from storage.
package catalog

import (
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/dhowden/tag"
	zlog "github.com/rs/zerolog/log"
	"github.com/spf13/afero"

	"github.com/osa030/walkbox/internal/domain/track"
)

// ErrStorageUnavailable indicates the storage root could not be enumerated.
var ErrStorageUnavailable = errors.New("storage unavailable")

// Catalog is an ordered, immutable collection of playable tracks.
// Positions are stable for the lifetime of the catalog; navigation
// happens by index with wraparound handled by the caller.
type Catalog struct {
	tracks []track.Track
}

// New creates a catalog from a fixed track list.
func New(tracks []track.Track) *Catalog {
	c := &Catalog{tracks: make([]track.Track, len(tracks))}
	copy(c.tracks, tracks)
	return c
}

// Build enumerates playable files directly under root and returns the
// catalog in directory order. Subdirectories are skipped, not descended
// into. Extensions are matched case-insensitively. An unreadable root
// returns ErrStorageUnavailable.
func Build(fsys afero.Fs, root string, extensions []string) (*Catalog, error) {
	allowed := make(map[string]bool, len(extensions))
	for _, ext := range extensions {
		e := strings.ToLower(ext)
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		allowed[e] = true
	}

	dir, err := fsys.Open(root)
	if err != nil {
		return nil, errors.Wrapf(ErrStorageUnavailable, "opening %s: %v", root, err)
	}
	defer dir.Close()

	// Readdir rather than afero.ReadDir: the latter sorts by name, and
	// positions must follow the order storage enumerates the files.
	entries, err := dir.Readdir(-1)
	if err != nil {
		return nil, errors.Wrapf(ErrStorageUnavailable, "reading %s: %v", root, err)
	}

	tracks := make([]track.Track, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if !allowed[ext] {
			continue
		}

		tr := track.New(filepath.Join(root, entry.Name()), entry.Size())
		probeMetadata(fsys, &tr)
		tracks = append(tracks, tr)
		zlog.Debug().Msgf("catalog: added track: name=%s size=%d", tr.Name, tr.Size)
	}

	return &Catalog{tracks: tracks}, nil
}

// id3v1TrailerSize is the fixed size of an ID3v1 tag block at the end
// of a file. The tag reader seeks that far back unconditionally, so
// shorter files cannot be probed at all.
const id3v1TrailerSize = 128

// probeMetadata reads embedded tags into the track. Most WAV files carry
// none, so failures are expected and only logged at debug level.
func probeMetadata(fsys afero.Fs, tr *track.Track) {
	if tr.Size < id3v1TrailerSize {
		zlog.Debug().Msgf("catalog: file too small for tags: file=%s size=%d", tr.Name, tr.Size)
		return
	}

	f, err := fsys.Open(tr.Path)
	if err != nil {
		zlog.Debug().Msgf("catalog: metadata probe open failed: file=%s err=%v", tr.Name, err)
		return
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		zlog.Debug().Msgf("catalog: no readable tags: file=%s", tr.Name)
		return
	}
	tr.Title = m.Title()
	tr.Artist = m.Artist()
	tr.Album = m.Album()
}

// Len returns the number of tracks.
func (c *Catalog) Len() int {
	return len(c.tracks)
}

// IsEmpty returns true if the catalog holds no tracks.
func (c *Catalog) IsEmpty() bool {
	return len(c.tracks) == 0
}

// At returns the track at position i. Panics if i is out of range,
// callers are expected to guard with Len.
func (c *Catalog) At(i int) track.Track {
	return c.tracks[i]
}

// Names returns the file names of all tracks in catalog order.
func (c *Catalog) Names() []string {
	names := make([]string, len(c.tracks))
	for i, t := range c.tracks {
		names[i] = t.Name
	}
	return names
}

// TotalSize returns the combined size in bytes of all tracks.
func (c *Catalog) TotalSize() int64 {
	var total int64
	for _, t := range c.tracks {
		total += t.Size
	}
	return total
}

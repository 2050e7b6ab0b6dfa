// Package track provides the Track domain entity.
package track

import (
	"path/filepath"
	"strings"
)

// Track represents a single audio file on the storage medium.
// Contains only information gathered during catalog enumeration.
type Track struct {
	Path   string // Absolute path on the storage filesystem
	Name   string // File name including extension
	Ext    string // Lowercased extension including the dot (".wav")
	Size   int64  // File size in bytes
	Title  string // Tag title (empty when the file carries no tags)
	Artist string // Tag artist
	Album  string // Tag album
}

// New creates a Track for the given path and size.
// Extension and name are derived from the path.
func New(path string, size int64) Track {
	name := filepath.Base(path)
	return Track{
		Path: path,
		Name: name,
		Ext:  strings.ToLower(filepath.Ext(name)),
		Size: size,
	}
}

// DisplayName returns the tag title when present, otherwise the
// file name without its extension.
func (t *Track) DisplayName() string {
	if t.Title != "" {
		return t.Title
	}
	return strings.TrimSuffix(t.Name, filepath.Ext(t.Name))
}

// HasMetadata returns true if any tag field was read from the file.
func (t *Track) HasMetadata() bool {
	return t.Title != "" || t.Artist != "" || t.Album != ""
}

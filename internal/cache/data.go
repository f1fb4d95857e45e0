package cache

import "time"

// EntryExt is appended to every cache entry name.
const EntryExt = ".js"

// DefaultDirName is the cache directory created next to the executable.
const DefaultDirName = ".vendor-cache"

// Location describes where a source reference resolves to.
type Location struct {
	source string
	path   string
	remote bool
	cached bool
}

func (l Location) Source() string {
	return l.source
}

// Path is the local file the compiler will read.
func (l Location) Path() string {
	return l.path
}

func (l Location) Remote() bool {
	return l.remote
}

// Cached reports whether a remote source already has a cache entry. It is
// always false for local sources.
func (l Location) Cached() bool {
	return l.cached
}

// Entry is one persisted download in the cache directory.
type Entry struct {
	name    string
	path    string
	size    int64
	modTime time.Time
	digest  string
}

// Name is the entry file name, <identity>.js.
func (e Entry) Name() string {
	return e.name
}

func (e Entry) Path() string {
	return e.path
}

func (e Entry) Size() int64 {
	return e.size
}

func (e Entry) ModTime() time.Time {
	return e.modTime
}

// Digest is the BLAKE3 hex digest of the entry content.
func (e Entry) Digest() string {
	return e.digest
}

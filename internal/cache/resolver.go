package cache

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rohmanhakim/vendor-bundler/internal/fetcher"
	"github.com/rohmanhakim/vendor-bundler/internal/metadata"
	"github.com/rohmanhakim/vendor-bundler/pkg/failure"
	"github.com/rohmanhakim/vendor-bundler/pkg/fileutil"
	"github.com/rohmanhakim/vendor-bundler/pkg/hashutil"
	"github.com/rohmanhakim/vendor-bundler/pkg/urlutil"
)

/*
Responsibilities
- Map a source reference to a readable local path
- Download each remote URL at most once across runs
- Name entries deterministically from the URL string

Cache Semantics
- Local references pass through untouched
- An existing entry is always a hit: no revalidation, no expiry
- Entries are written atomically, so an interrupted download never
  becomes a hit on the next run
- Entries are never deleted by the resolver
*/
type Resolver struct {
	dir          string
	fetcher      fetcher.Fetcher
	metadataSink metadata.MetadataSink
	userAgent    string
	referer      string
}

type Option func(*Resolver)

// WithUserAgent overrides the User-Agent header sent on cache misses.
func WithUserAgent(userAgent string) Option {
	return func(r *Resolver) {
		r.userAgent = userAgent
	}
}

// WithReferer overrides the Referer header sent on cache misses.
func WithReferer(referer string) Option {
	return func(r *Resolver) {
		r.referer = referer
	}
}

func NewResolver(
	dir string,
	f fetcher.Fetcher,
	metadataSink metadata.MetadataSink,
	opts ...Option,
) *Resolver {
	r := &Resolver{
		dir:          dir,
		fetcher:      f,
		metadataSink: metadataSink,
		userAgent:    fetcher.DefaultUserAgent,
		referer:      fetcher.DefaultReferer,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Resolver) Dir() string {
	return r.dir
}

// EntryPath returns the cache entry path for rawURL whether or not it exists.
func (r *Resolver) EntryPath(rawURL string) string {
	return filepath.Join(r.dir, hashutil.URLIdentity(rawURL)+EntryExt)
}

// Resolve returns a local path holding the content of ref, downloading it
// into the cache on first use.
func (r *Resolver) Resolve(ctx context.Context, ref string) (string, failure.ClassifiedError) {
	if !urlutil.IsRemote(ref) {
		return ref, nil
	}

	callerMethod := "Resolver.Resolve"

	if err := fileutil.EnsureDir(r.dir); err != nil {
		cacheErr := &CacheError{
			Message:   err.Error(),
			Retryable: false,
			Cause:     ErrCausePathError,
			Path:      r.dir,
		}
		r.recordError(callerMethod, ref, cacheErr)
		return "", cacheErr
	}

	entryPath := r.EntryPath(ref)
	if fileutil.Exists(entryPath) {
		r.metadataSink.RecordCacheHit(ref, entryPath)
		return entryPath, nil
	}

	fetchUrl, err := url.Parse(ref)
	if err != nil {
		cacheErr := &CacheError{
			Message:   err.Error(),
			Retryable: false,
			Cause:     ErrCauseInvalidURL,
		}
		r.recordError(callerMethod, ref, cacheErr)
		return "", cacheErr
	}

	result, fetchErr := r.fetcher.Fetch(ctx, fetcher.NewFetchParam(*fetchUrl, r.userAgent, r.referer))
	if fetchErr != nil {
		// already recorded by the fetcher
		return "", fetchErr
	}

	body := result.Body()
	written, writeErr := fileutil.WriteFileAtomic(entryPath, bytes.NewReader(body), 0644)
	if writeErr != nil {
		cacheErr := mapFileError(writeErr, entryPath)
		r.recordError(callerMethod, ref, cacheErr)
		return "", cacheErr
	}

	r.metadataSink.RecordArtifact(
		metadata.ArtifactCacheEntry,
		entryPath,
		[]metadata.Attribute{
			metadata.NewAttr(metadata.AttrURL, ref),
			metadata.NewAttr(metadata.AttrWritePath, entryPath),
			metadata.NewAttr(metadata.AttrBytes, strconv.FormatInt(written, 10)),
			metadata.NewAttr(metadata.AttrDigest, hashutil.BLAKE3Hex(body)),
		},
	)
	return entryPath, nil
}

// Locate reports where ref would resolve without fetching anything or
// creating the cache directory.
func (r *Resolver) Locate(ref string) Location {
	if !urlutil.IsRemote(ref) {
		return Location{
			source: ref,
			path:   ref,
		}
	}
	entryPath := r.EntryPath(ref)
	return Location{
		source: ref,
		path:   entryPath,
		remote: true,
		cached: fileutil.Exists(entryPath),
	}
}

// Entries lists the cache entries sorted by name. A cache directory that
// does not exist yet holds no entries.
func (r *Resolver) Entries() ([]Entry, failure.ClassifiedError) {
	dirEntries, err := os.ReadDir(r.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []Entry{}, nil
		}
		return nil, &CacheError{
			Message:   err.Error(),
			Retryable: false,
			Cause:     ErrCauseReadFailure,
			Path:      r.dir,
		}
	}

	entries := make([]Entry, 0, len(dirEntries))
	for _, de := range dirEntries {
		name := de.Name()
		if !de.Type().IsRegular() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, EntryExt) {
			continue
		}
		info, err := de.Info()
		if err != nil {
			// removed out-of-band while listing
			continue
		}
		entryPath := filepath.Join(r.dir, name)
		digest, err := hashutil.HashFile(entryPath, hashutil.HashAlgoBLAKE3)
		if err != nil {
			return nil, &CacheError{
				Message:   err.Error(),
				Retryable: false,
				Cause:     ErrCauseReadFailure,
				Path:      entryPath,
			}
		}
		entries = append(entries, Entry{
			name:    name,
			path:    entryPath,
			size:    info.Size(),
			modTime: info.ModTime(),
			digest:  digest,
		})
	}
	return entries, nil
}

func (r *Resolver) recordError(callerMethod string, ref string, err *CacheError) {
	r.metadataSink.RecordError(
		time.Now(),
		"cache",
		callerMethod,
		mapCacheErrorToMetadataCause(err),
		err.Error(),
		[]metadata.Attribute{
			metadata.NewAttr(metadata.AttrURL, ref),
			metadata.NewAttr(metadata.AttrWritePath, err.Path),
		},
	)
}

func mapFileError(err failure.ClassifiedError, path string) *CacheError {
	var fileErr *fileutil.FileError
	if errors.As(err, &fileErr) && fileErr.Cause == fileutil.ErrCauseDiskFull {
		return &CacheError{
			Message:   err.Error(),
			Retryable: true,
			Cause:     ErrCauseDiskFull,
			Path:      path,
		}
	}
	return &CacheError{
		Message:   err.Error(),
		Retryable: false,
		Cause:     ErrCauseWriteFailure,
		Path:      path,
	}
}

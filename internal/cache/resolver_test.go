package cache_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/rohmanhakim/vendor-bundler/internal/cache"
	"github.com/rohmanhakim/vendor-bundler/internal/fetcher"
	"github.com/rohmanhakim/vendor-bundler/internal/metadata"
	"github.com/rohmanhakim/vendor-bundler/pkg/hashutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestResolve_LocalPathPassesThrough(t *testing.T) {
	tests := []string{
		"/tmp/a.js",
		"js/app.js",
		"does/not/exist.js",
		"",
	}

	for _, ref := range tests {
		t.Run(ref, func(t *testing.T) {
			cacheDir := filepath.Join(t.TempDir(), "cache")
			f := new(fetcherMock)
			sink := &metadataSinkMock{}
			r := cache.NewResolver(cacheDir, f, sink)

			got, err := r.Resolve(context.Background(), ref)
			require.Nil(t, err)
			assert.Equal(t, ref, got)

			f.AssertNotCalled(t, "Fetch", mock.Anything, mock.Anything)
			_, statErr := os.Stat(cacheDir)
			assert.True(t, os.IsNotExist(statErr), "local sources must not touch the cache directory")
			assert.Empty(t, sink.cacheHits)
			assert.Empty(t, sink.artifactPaths)
		})
	}
}

func TestResolve_ColdCacheDownloadsAndStores(t *testing.T) {
	const src = "https://example.com/x.js"
	cacheDir := filepath.Join(t.TempDir(), "nested", ".vendor-cache")

	f := new(fetcherMock)
	f.On("Fetch", mock.Anything, fetchParamFor(t, src, fetcher.DefaultUserAgent, fetcher.DefaultReferer)).
		Return(fetchResultFor(t, src, "window.x = 1;"), nil).
		Once()

	sink := &metadataSinkMock{}
	r := cache.NewResolver(cacheDir, f, sink)

	got, err := r.Resolve(context.Background(), src)
	require.Nil(t, err)

	assert.Equal(t, filepath.Join(cacheDir, "e78d1715-1ea7-3fcb-ac5e-85ab5ef56a5b.js"), got)
	content, readErr := os.ReadFile(got)
	require.NoError(t, readErr)
	assert.Equal(t, "window.x = 1;", string(content))

	f.AssertExpectations(t)
	require.Len(t, sink.artifactPaths, 1)
	assert.Equal(t, got, sink.artifactPaths[0])
	assert.Equal(t, src, attrValue(sink.artifactAttrs[0], metadata.AttrURL))
	assert.Equal(t, "13", attrValue(sink.artifactAttrs[0], metadata.AttrBytes))
	wantDigest, hashErr := hashutil.HashBytes([]byte("window.x = 1;"), hashutil.HashAlgoBLAKE3)
	require.NoError(t, hashErr)
	assert.Equal(t, wantDigest, attrValue(sink.artifactAttrs[0], metadata.AttrDigest))
	assert.Empty(t, sink.cacheHits)
}

func TestResolve_SecondCallIsCacheHit(t *testing.T) {
	const src = "https://cdn.example.com/lib.min.js"
	cacheDir := t.TempDir()

	f := new(fetcherMock)
	f.On("Fetch", mock.Anything, mock.Anything).
		Return(fetchResultFor(t, src, "lib();"), nil).
		Once()

	sink := &metadataSinkMock{}
	r := cache.NewResolver(cacheDir, f, sink)

	first, err := r.Resolve(context.Background(), src)
	require.Nil(t, err)
	second, err := r.Resolve(context.Background(), src)
	require.Nil(t, err)

	assert.Equal(t, first, second)
	f.AssertNumberOfCalls(t, "Fetch", 1)
	assert.Equal(t, []string{first}, sink.cacheHits)
}

func TestResolve_CacheSurvivesAcrossResolvers(t *testing.T) {
	const src = "https://cdn.example.com/lib.min.js"
	cacheDir := t.TempDir()

	f := new(fetcherMock)
	f.On("Fetch", mock.Anything, mock.Anything).
		Return(fetchResultFor(t, src, "lib();"), nil).
		Once()

	_, err := cache.NewResolver(cacheDir, f, &metadata.NoopSink{}).Resolve(context.Background(), src)
	require.Nil(t, err)

	// A new process sees the entry written by the previous one.
	other := new(fetcherMock)
	got, err := cache.NewResolver(cacheDir, other, &metadata.NoopSink{}).Resolve(context.Background(), src)
	require.Nil(t, err)

	assert.Equal(t, filepath.Join(cacheDir, hashutil.URLIdentity(src)+".js"), got)
	other.AssertNotCalled(t, "Fetch", mock.Anything, mock.Anything)
}

func TestResolve_StaleEntryIsNeverRevalidated(t *testing.T) {
	const src = "https://example.com/x.js"
	cacheDir := t.TempDir()

	r := cache.NewResolver(cacheDir, new(fetcherMock), &metadata.NoopSink{})
	entry := r.EntryPath(src)
	require.NoError(t, os.WriteFile(entry, []byte("old content"), 0644))

	got, err := r.Resolve(context.Background(), src)
	require.Nil(t, err)
	assert.Equal(t, entry, got)

	content, readErr := os.ReadFile(got)
	require.NoError(t, readErr)
	assert.Equal(t, "old content", string(content))
}

func TestResolve_CustomHeaders(t *testing.T) {
	const src = "https://example.com/x.js"

	f := new(fetcherMock)
	f.On("Fetch", mock.Anything, fetchParamFor(t, src, "custom-agent/1.0", "https://intranet.example/")).
		Return(fetchResultFor(t, src, "x"), nil).
		Once()

	r := cache.NewResolver(
		t.TempDir(),
		f,
		&metadata.NoopSink{},
		cache.WithUserAgent("custom-agent/1.0"),
		cache.WithReferer("https://intranet.example/"),
	)

	_, err := r.Resolve(context.Background(), src)
	require.Nil(t, err)
	f.AssertExpectations(t)
}

func TestResolve_FetchErrorPropagatesAndLeavesNoEntry(t *testing.T) {
	const src = "https://example.com/missing.js"
	cacheDir := t.TempDir()

	fetchErr := &fetcher.FetchError{
		Message:    "404 Not Found",
		Retryable:  false,
		Cause:      fetcher.ErrCauseUnexpectedStatus,
		URL:        src,
		StatusCode: 404,
	}
	f := new(fetcherMock)
	f.On("Fetch", mock.Anything, mock.Anything).Return(fetcher.FetchResult{}, fetchErr).Once()

	r := cache.NewResolver(cacheDir, f, &metadataSinkMock{})
	got, err := r.Resolve(context.Background(), src)
	require.NotNil(t, err)
	assert.Empty(t, got)

	var gotFetchErr *fetcher.FetchError
	require.ErrorAs(t, err, &gotFetchErr)
	assert.Equal(t, 404, gotFetchErr.StatusCode)

	assert.NoFileExists(t, r.EntryPath(src))
	entries, readErr := os.ReadDir(cacheDir)
	require.NoError(t, readErr)
	assert.Empty(t, entries)
}

func TestResolve_CacheDirUnavailable(t *testing.T) {
	tmp := t.TempDir()
	blocker := filepath.Join(tmp, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("not a dir"), 0644))

	f := new(fetcherMock)
	sink := &metadataSinkMock{}
	r := cache.NewResolver(filepath.Join(blocker, "cache"), f, sink)

	_, err := r.Resolve(context.Background(), "https://example.com/x.js")
	require.NotNil(t, err)

	var cacheErr *cache.CacheError
	require.ErrorAs(t, err, &cacheErr)
	assert.Equal(t, cache.ErrCausePathError, cacheErr.Cause)
	f.AssertNotCalled(t, "Fetch", mock.Anything, mock.Anything)

	require.Len(t, sink.errorCauses, 1)
	assert.Equal(t, metadata.CauseStorageFailure, sink.errorCauses[0])
	assert.Equal(t, "cache", sink.errorPackages[0])
}

func TestResolve_InvalidURL(t *testing.T) {
	f := new(fetcherMock)
	sink := &metadataSinkMock{}
	r := cache.NewResolver(t.TempDir(), f, sink)

	_, err := r.Resolve(context.Background(), "https://exa mple.com/%zz.js")
	require.NotNil(t, err)

	var cacheErr *cache.CacheError
	require.ErrorAs(t, err, &cacheErr)
	assert.Equal(t, cache.ErrCauseInvalidURL, cacheErr.Cause)
	f.AssertNotCalled(t, "Fetch", mock.Anything, mock.Anything)
	assert.Equal(t, []metadata.ErrorCause{metadata.CauseInvalidInput}, sink.errorCauses)
}

func TestEntryPath_Deterministic(t *testing.T) {
	r := cache.NewResolver("/var/cache/vendor", new(fetcherMock), &metadata.NoopSink{})

	a := r.EntryPath("https://example.com/x.js")
	b := r.EntryPath("https://example.com/x.js")
	assert.Equal(t, a, b)
	assert.Equal(t, filepath.Join("/var/cache/vendor", "e78d1715-1ea7-3fcb-ac5e-85ab5ef56a5b.js"), a)
}

func TestEntryPath_DistinctURLs(t *testing.T) {
	r := cache.NewResolver(t.TempDir(), new(fetcherMock), &metadata.NoopSink{})

	seen := make(map[string]string)
	for i := 0; i < 500; i++ {
		src := fmt.Sprintf("https://cdn.example.com/pkg/%d/index.js", i)
		p := r.EntryPath(src)
		if prev, ok := seen[p]; ok {
			t.Fatalf("%q and %q map to the same entry %q", prev, src, p)
		}
		seen[p] = src
		assert.True(t, strings.HasSuffix(p, cache.EntryExt))
	}
}

func TestLocate(t *testing.T) {
	cacheDir := filepath.Join(t.TempDir(), "cache")
	r := cache.NewResolver(cacheDir, new(fetcherMock), &metadata.NoopSink{})

	local := r.Locate("/tmp/a.js")
	assert.Equal(t, "/tmp/a.js", local.Path())
	assert.False(t, local.Remote())
	assert.False(t, local.Cached())

	remote := r.Locate("https://example.com/x.js")
	assert.Equal(t, "https://example.com/x.js", remote.Source())
	assert.Equal(t, r.EntryPath("https://example.com/x.js"), remote.Path())
	assert.True(t, remote.Remote())
	assert.False(t, remote.Cached())

	_, statErr := os.Stat(cacheDir)
	assert.True(t, os.IsNotExist(statErr), "Locate must not create the cache directory")

	require.NoError(t, os.MkdirAll(cacheDir, 0755))
	require.NoError(t, os.WriteFile(remote.Path(), []byte("x"), 0644))
	assert.True(t, r.Locate("https://example.com/x.js").Cached())
}

func TestEntries(t *testing.T) {
	cacheDir := t.TempDir()
	r := cache.NewResolver(cacheDir, new(fetcherMock), &metadata.NoopSink{})

	b := r.EntryPath("https://example.com/b.js")
	a := r.EntryPath("https://example.com/a.js")
	require.NoError(t, os.WriteFile(a, []byte("aaaa"), 0644))
	require.NoError(t, os.WriteFile(b, []byte("bb"), 0644))
	// in-flight temp file, unrelated file and a directory are ignored
	require.NoError(t, os.WriteFile(filepath.Join(cacheDir, "."+filepath.Base(a)+".tmp-123"), []byte("partial"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(cacheDir, "notes.txt"), []byte("n"), 0644))
	require.NoError(t, os.Mkdir(filepath.Join(cacheDir, "sub.js"), 0755))

	entries, err := r.Entries()
	require.Nil(t, err)
	require.Len(t, entries, 2)

	byPath := map[string]cache.Entry{}
	names := []string{}
	for _, e := range entries {
		byPath[e.Path()] = e
		names = append(names, e.Name())
	}
	assert.IsNonDecreasing(t, names)

	assert.Equal(t, int64(4), byPath[a].Size())
	assert.Equal(t, int64(2), byPath[b].Size())
	wantDigest, _ := hashutil.HashBytes([]byte("aaaa"), hashutil.HashAlgoBLAKE3)
	assert.Equal(t, wantDigest, byPath[a].Digest())
	assert.False(t, byPath[a].ModTime().IsZero())
}

func TestEntries_MissingDirectory(t *testing.T) {
	r := cache.NewResolver(filepath.Join(t.TempDir(), "absent"), new(fetcherMock), &metadata.NoopSink{})

	entries, err := r.Entries()
	require.Nil(t, err)
	assert.Empty(t, entries)
}

func TestResolve_WithHTTPFetcher_OneRequestPerURL(t *testing.T) {
	var hits atomic.Int32
	var gotUA, gotReferer string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		gotUA = r.Header.Get("User-Agent")
		gotReferer = r.Header.Get("Referer")
		w.Write([]byte("served " + r.URL.Path))
	}))
	defer server.Close()

	cacheDir := filepath.Join(t.TempDir(), ".vendor-cache")
	r := cache.NewResolver(cacheDir, fetcher.NewHTTPFetcher(&metadata.NoopSink{}, server.Client()), &metadata.NoopSink{})

	src := server.URL + "/x.js"
	first, err := r.Resolve(context.Background(), src)
	require.Nil(t, err)
	second, err := r.Resolve(context.Background(), src)
	require.Nil(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), hits.Load())
	assert.Equal(t, fetcher.DefaultUserAgent, gotUA)
	assert.Equal(t, fetcher.DefaultReferer, gotReferer)

	content, readErr := os.ReadFile(first)
	require.NoError(t, readErr)
	assert.Equal(t, "served /x.js", string(content))
}

func TestResolve_WithHTTPFetcher_ServerErrorLeavesNoEntry(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("maintenance page"))
	}))
	defer server.Close()

	cacheDir := t.TempDir()
	r := cache.NewResolver(cacheDir, fetcher.NewHTTPFetcher(&metadata.NoopSink{}, nil), &metadata.NoopSink{})

	_, err := r.Resolve(context.Background(), server.URL+"/x.js")
	require.NotNil(t, err)
	assert.False(t, r.Locate(server.URL+"/x.js").Cached())
}

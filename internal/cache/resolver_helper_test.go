package cache_test

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/rohmanhakim/vendor-bundler/internal/fetcher"
	"github.com/rohmanhakim/vendor-bundler/internal/metadata"
	"github.com/rohmanhakim/vendor-bundler/pkg/failure"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// fetcherMock is a testify mock for the Fetcher
type fetcherMock struct {
	mock.Mock
}

func (f *fetcherMock) Fetch(
	ctx context.Context,
	fetchParam fetcher.FetchParam,
) (fetcher.FetchResult, failure.ClassifiedError) {
	args := f.Called(ctx, fetchParam)
	result := args.Get(0).(fetcher.FetchResult)
	var err failure.ClassifiedError
	if args.Get(1) != nil {
		err = args.Get(1).(failure.ClassifiedError)
	}
	return result, err
}

// metadataSinkMock records what the resolver reports.
type metadataSinkMock struct {
	cacheHits     []string
	artifactPaths []string
	artifactAttrs [][]metadata.Attribute
	errorCauses   []metadata.ErrorCause
	errorPackages []string
	fetchCount    int
}

func (m *metadataSinkMock) RecordError(
	observedAt time.Time,
	packageName string,
	action string,
	cause metadata.ErrorCause,
	details string,
	attrs []metadata.Attribute,
) {
	m.errorCauses = append(m.errorCauses, cause)
	m.errorPackages = append(m.errorPackages, packageName)
}

func (m *metadataSinkMock) RecordFetch(
	fetchUrl string,
	httpStatus int,
	duration time.Duration,
	sizeByte int64,
) {
	m.fetchCount++
}

func (m *metadataSinkMock) RecordCacheHit(sourceUrl string, path string) {
	m.cacheHits = append(m.cacheHits, path)
}

func (m *metadataSinkMock) RecordArtifact(kind metadata.ArtifactKind, path string, attrs []metadata.Attribute) {
	m.artifactPaths = append(m.artifactPaths, path)
	m.artifactAttrs = append(m.artifactAttrs, attrs)
}

func fetchParamFor(t *testing.T, raw string, userAgent string, referer string) fetcher.FetchParam {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return fetcher.NewFetchParam(*u, userAgent, referer)
}

func fetchResultFor(t *testing.T, raw string, body string) fetcher.FetchResult {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return fetcher.NewFetchResultForTest(*u, []byte(body), 200, map[string]string{})
}

func attrValue(attrs []metadata.Attribute, key metadata.AttributeKey) string {
	for _, a := range attrs {
		if a.Key == key {
			return a.Value
		}
	}
	return ""
}

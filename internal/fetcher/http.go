package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rohmanhakim/vendor-bundler/internal/metadata"
	"github.com/rohmanhakim/vendor-bundler/pkg/failure"
)

/*
Responsibilities
- Perform exactly one HTTP GET per call
- Apply the fixed identifying headers
- Classify failures

Fetch Semantics
- Any 2xx response is accepted, whatever its content type
- Redirects are followed by the http.Client defaults
- Nothing is retried: a failed fetch fails the run

The fetcher never inspects content; it only returns bytes and metadata.
*/
type HTTPFetcher struct {
	metadataSink metadata.MetadataSink
	httpClient   *http.Client
}

// NewHTTPFetcher builds a fetcher around client. A nil client means a plain
// http.Client with no timeout.
func NewHTTPFetcher(
	metadataSink metadata.MetadataSink,
	httpClient *http.Client,
) *HTTPFetcher {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &HTTPFetcher{
		metadataSink: metadataSink,
		httpClient:   httpClient,
	}
}

func (h *HTTPFetcher) Fetch(
	ctx context.Context,
	fetchParam FetchParam,
) (FetchResult, failure.ClassifiedError) {
	callerMethod := "HTTPFetcher.Fetch"
	startTime := time.Now()

	result, err := h.performFetch(ctx, fetchParam)
	duration := time.Since(startTime)

	var statusCode int
	var sizeByte int64
	if err != nil {
		statusCode = err.StatusCode
	} else {
		statusCode = result.Code()
		sizeByte = int64(result.SizeByte())
	}

	h.metadataSink.RecordFetch(
		fetchParam.fetchUrl.String(),
		statusCode,
		duration,
		sizeByte,
	)

	if err != nil {
		h.recordFetchError(callerMethod, fetchParam.fetchUrl, err)
		return FetchResult{}, err
	}

	return result, nil
}

func (h *HTTPFetcher) recordFetchError(callerMethod string, fetchUrl url.URL, err *FetchError) {
	attrs := []metadata.Attribute{
		metadata.NewAttr(metadata.AttrURL, fetchUrl.String()),
	}
	if err.StatusCode != 0 {
		attrs = append(attrs, metadata.NewAttr(metadata.AttrHTTPStatus, strconv.Itoa(err.StatusCode)))
	}
	h.metadataSink.RecordError(
		time.Now(),
		"fetcher",
		callerMethod,
		mapFetchErrorToMetadataCause(err),
		err.Error(),
		attrs,
	)
}

func (h *HTTPFetcher) performFetch(ctx context.Context, fetchParam FetchParam) (FetchResult, *FetchError) {
	fetchUrl := fetchParam.fetchUrl
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fetchUrl.String(), nil)
	if err != nil {
		return FetchResult{}, &FetchError{
			Message:   fmt.Sprintf("failed to create request: %v", err),
			Retryable: false,
			Cause:     ErrCauseInvalidRequest,
			URL:       fetchUrl.String(),
		}
	}

	for key, value := range requestHeaders(fetchParam.userAgent, fetchParam.referer) {
		req.Header.Set(key, value)
	}

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return FetchResult{}, &FetchError{
			Message:   fmt.Sprintf("request failed: %v", err),
			Retryable: !errors.Is(err, context.Canceled),
			Cause:     ErrCauseNetworkFailure,
			URL:       fetchUrl.String(),
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return FetchResult{}, &FetchError{
			Message:    fmt.Sprintf("%s returned %d %s", fetchUrl.String(), resp.StatusCode, http.StatusText(resp.StatusCode)),
			Retryable:  resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests,
			Cause:      ErrCauseUnexpectedStatus,
			URL:        fetchUrl.String(),
			StatusCode: resp.StatusCode,
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return FetchResult{}, &FetchError{
			Message:    fmt.Sprintf("failed to read response body: %v", err),
			Retryable:  true,
			Cause:      ErrCauseReadResponseBodyError,
			URL:        fetchUrl.String(),
			StatusCode: resp.StatusCode,
		}
	}

	responseHeaders := make(map[string]string)
	for key, values := range resp.Header {
		if len(values) > 0 {
			responseHeaders[key] = values[0]
		}
	}

	return FetchResult{
		url:  fetchUrl,
		body: body,
		meta: ResponseMeta{
			statusCode:          resp.StatusCode,
			transferredSizeByte: uint64(len(body)),
			responseHeaders:     responseHeaders,
		},
	}, nil
}

// requestHeaders returns the only headers sent with a fetch. Empty values are
// left out so the client defaults apply.
func requestHeaders(userAgent string, referer string) map[string]string {
	headers := make(map[string]string, 2)
	if userAgent != "" {
		headers["User-Agent"] = userAgent
	}
	if referer != "" {
		headers["Referer"] = referer
	}
	return headers
}

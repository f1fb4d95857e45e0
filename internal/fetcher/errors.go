package fetcher

import (
	"fmt"

	"github.com/rohmanhakim/vendor-bundler/internal/metadata"
	"github.com/rohmanhakim/vendor-bundler/pkg/failure"
)

type FetchErrorCause string

const (
	ErrCauseInvalidRequest        FetchErrorCause = "invalid request"
	ErrCauseNetworkFailure        FetchErrorCause = "network issues"
	ErrCauseUnexpectedStatus      FetchErrorCause = "unexpected status"
	ErrCauseReadResponseBodyError FetchErrorCause = "failed to read response body"
)

type FetchError struct {
	Message    string
	Retryable  bool
	Cause      FetchErrorCause
	URL        string
	StatusCode int
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetcher error: %s: %s", e.Cause, e.Message)
}

func (e *FetchError) Severity() failure.Severity {
	if e.Retryable {
		return failure.SeverityRecoverable
	}
	return failure.SeverityFatal
}

// IsRetryable reports whether rerunning the whole invocation could succeed.
// The fetcher itself never retries.
func (e *FetchError) IsRetryable() bool {
	return e.Retryable
}

// mapFetchErrorToMetadataCause maps fetcher-local error semantics
// to the canonical metadata.ErrorCause table.
//
// This mapping is observational only and MUST NOT be used
// to derive control-flow decisions.
func mapFetchErrorToMetadataCause(err *FetchError) metadata.ErrorCause {
	switch err.Cause {
	case ErrCauseNetworkFailure, ErrCauseUnexpectedStatus, ErrCauseReadResponseBodyError:
		return metadata.CauseNetworkFailure
	case ErrCauseInvalidRequest:
		return metadata.CauseInvalidInput
	default:
		return metadata.CauseUnknown
	}
}

package cache

import (
	"fmt"

	"github.com/rohmanhakim/vendor-bundler/internal/metadata"
	"github.com/rohmanhakim/vendor-bundler/pkg/failure"
)

type CacheErrorCause string

const (
	ErrCauseInvalidURL   CacheErrorCause = "invalid url"
	ErrCausePathError    CacheErrorCause = "path error"
	ErrCauseWriteFailure CacheErrorCause = "write failed"
	ErrCauseDiskFull     CacheErrorCause = "disk is full"
	ErrCauseReadFailure  CacheErrorCause = "read failed"
)

type CacheError struct {
	Message   string
	Retryable bool
	Cause     CacheErrorCause
	Path      string
}

func (e *CacheError) Error() string {
	return fmt.Sprintf("cache error: %s: %s", e.Cause, e.Message)
}

func (e *CacheError) Severity() failure.Severity {
	if e.Retryable {
		return failure.SeverityRecoverable
	}
	return failure.SeverityFatal
}

// mapCacheErrorToMetadataCause maps cache-local error semantics
// to the canonical metadata.ErrorCause table.
//
// This mapping is observational only and MUST NOT be used
// to derive control-flow decisions.
func mapCacheErrorToMetadataCause(err *CacheError) metadata.ErrorCause {
	switch err.Cause {
	case ErrCausePathError, ErrCauseWriteFailure, ErrCauseDiskFull, ErrCauseReadFailure:
		return metadata.CauseStorageFailure
	case ErrCauseInvalidURL:
		return metadata.CauseInvalidInput
	default:
		return metadata.CauseUnknown
	}
}

package compiler

import (
	"fmt"

	"github.com/rohmanhakim/vendor-bundler/pkg/failure"
)

type CompileErrorCause string

const (
	ErrCauseNotFound      CompileErrorCause = "compiler not found"
	ErrCauseStartFailure  CompileErrorCause = "compiler failed to start"
	ErrCauseNonZeroExit   CompileErrorCause = "compiler exited with non-zero status"
	ErrCauseCompileFailed CompileErrorCause = "compile failed"
	ErrCauseWriteFailure  CompileErrorCause = "output write failed"
)

type CompileError struct {
	Message  string
	Cause    CompileErrorCause
	ExitCode int
}

func (e *CompileError) Error() string {
	if e.Cause == ErrCauseNonZeroExit {
		return fmt.Sprintf("compiler error: %s (exit code %d): %s", e.Cause, e.ExitCode, e.Message)
	}
	return fmt.Sprintf("compiler error: %s: %s", e.Cause, e.Message)
}

// Severity is always fatal: rerunning the same inputs through the same
// compiler gives the same result.
func (e *CompileError) Severity() failure.Severity {
	return failure.SeverityFatal
}

package bundler_test

import (
	"time"

	"github.com/rohmanhakim/vendor-bundler/internal/metadata"
)

// errorSinkMock keeps the error events reported by the bundler.
type errorSinkMock struct {
	metadata.NoopSink
	causes   []metadata.ErrorCause
	exitCode string
}

func (m *errorSinkMock) RecordError(
	observedAt time.Time,
	packageName string,
	action string,
	cause metadata.ErrorCause,
	details string,
	attrs []metadata.Attribute,
) {
	m.causes = append(m.causes, cause)
	for _, a := range attrs {
		if a.Key == metadata.AttrExitCode {
			m.exitCode = a.Value
		}
	}
}

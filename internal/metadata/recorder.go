package metadata

import (
	"time"

	"github.com/sirupsen/logrus"
)

/*
Metadata Collected
- Fetch timings and HTTP status codes
- Cache hits and cache writes
- Compiler invocations and produced artifacts
- Classified failures

Metadata is write-only.
No component may read metadata to influence bundling decisions.
*/
type MetadataSink interface {
	RecordError(
		observedAt time.Time,
		packageName string,
		action string,
		cause ErrorCause,
		details string,
		attrs []Attribute,
	)

	RecordFetch(
		fetchUrl string,
		httpStatus int,
		duration time.Duration,
		sizeByte int64,
	)

	RecordCacheHit(sourceUrl string, path string)

	RecordArtifact(kind ArtifactKind, path string, attrs []Attribute)
}

/*
LogRecorder writes metadata events as structured log entries.
Events are emitted synchronously, in the order they are recorded.
*/
type LogRecorder struct {
	logger logrus.FieldLogger
}

func NewLogRecorder(logger logrus.FieldLogger) *LogRecorder {
	return &LogRecorder{
		logger: logger,
	}
}

func (r *LogRecorder) RecordError(
	observedAt time.Time,
	packageName string,
	action string,
	cause ErrorCause,
	details string,
	attrs []Attribute,
) {
	fields := attrFields(attrs)
	fields["package"] = packageName
	fields["action"] = action
	fields["cause"] = cause.String()
	fields["observed_at"] = observedAt.Format(time.RFC3339Nano)
	r.logger.WithFields(fields).Error(details)
}

func (r *LogRecorder) RecordFetch(
	fetchUrl string,
	httpStatus int,
	duration time.Duration,
	sizeByte int64,
) {
	entry := r.logger.WithFields(logrus.Fields{
		string(AttrURL):        fetchUrl,
		string(AttrHTTPStatus): httpStatus,
		"duration":             duration.String(),
		string(AttrBytes):      sizeByte,
	})
	// failed attempts are reported in full by RecordError
	if httpStatus < 200 || httpStatus > 299 {
		entry.Debug("Fetch failed")
		return
	}
	entry.Info("Downloading")
}

func (r *LogRecorder) RecordCacheHit(sourceUrl string, path string) {
	r.logger.WithFields(logrus.Fields{
		string(AttrURL):  sourceUrl,
		string(AttrPath): path,
	}).Info("Using cache")
}

func (r *LogRecorder) RecordArtifact(kind ArtifactKind, path string, attrs []Attribute) {
	fields := attrFields(attrs)
	fields["kind"] = string(kind)
	fields[string(AttrPath)] = path
	r.logger.WithFields(fields).Debug("artifact written")
}

func attrFields(attrs []Attribute) logrus.Fields {
	fields := logrus.Fields{}
	for _, a := range attrs {
		fields[string(a.Key)] = a.Value
	}
	return fields
}

// NoopSink, struct that implements metadata.MetadataSink but does nothing.
// Callers (or tests) decide whether to inject a LogRecorder or a NoopSink.
type NoopSink struct{}

func (n *NoopSink) RecordError(
	observedAt time.Time,
	packageName string,
	action string,
	cause ErrorCause,
	details string,
	attrs []Attribute,
) {
}

func (n *NoopSink) RecordFetch(
	fetchUrl string,
	httpStatus int,
	duration time.Duration,
	sizeByte int64,
) {
}

func (n *NoopSink) RecordCacheHit(sourceUrl string, path string) {}

func (n *NoopSink) RecordArtifact(kind ArtifactKind, path string, attrs []Attribute) {}

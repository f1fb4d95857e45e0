package metadata

/*
	ErrorCause is a closed, canonical classification used exclusively for
	observability (logging, reporting).

	Rules:
	 - ErrorCause MUST NOT influence control flow.
	 - Packages MAY map their local errors to ErrorCause,
	   but MUST NOT invent new meanings.
	 - ErrorCause does not encode severity and does not imply retryability.

If a failure does not clearly match a defined cause, CauseUnknown MUST be used.
*/
type ErrorCause int

/*
Canonical ErrorCause Table

# CauseUnknown

  - The failure does not map cleanly to any known category.

# CauseNetworkFailure

  - Transport errors, DNS failures, non-success HTTP status codes.

# CauseStorageFailure

  - The cache directory or a cache entry could not be written.

# CauseCompileFailure

  - The compiler could not be started or exited unsuccessfully.

# CauseInvalidInput

  - A source reference or an output path that cannot be used as given.
*/
const (
	CauseUnknown ErrorCause = iota
	CauseNetworkFailure
	CauseStorageFailure
	CauseCompileFailure
	CauseInvalidInput
)

func (c ErrorCause) String() string {
	switch c {
	case CauseNetworkFailure:
		return "network_failure"
	case CauseStorageFailure:
		return "storage_failure"
	case CauseCompileFailure:
		return "compile_failure"
	case CauseInvalidInput:
		return "invalid_input"
	default:
		return "unknown"
	}
}

type ArtifactKind string

const (
	// ArtifactCacheEntry is a downloaded source persisted in the cache directory.
	ArtifactCacheEntry ArtifactKind = "cache_entry"
	ArtifactBundle     ArtifactKind = "bundle"
	ArtifactSourceMap  ArtifactKind = "source_map"
)

type Attribute struct {
	Key   AttributeKey
	Value string
}

func NewAttr(key AttributeKey, val string) Attribute {
	return Attribute{
		Key:   key,
		Value: val,
	}
}

type AttributeKey string

const (
	AttrURL        AttributeKey = "url"
	AttrPath       AttributeKey = "path"
	AttrWritePath  AttributeKey = "write_path"
	AttrHTTPStatus AttributeKey = "http_status"
	AttrDigest     AttributeKey = "digest"
	AttrBytes      AttributeKey = "bytes"
	AttrMessage    AttributeKey = "message"
	AttrCommand    AttributeKey = "command"
	AttrExitCode   AttributeKey = "exit_code"
)

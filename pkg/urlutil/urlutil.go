package urlutil

import "strings"

// SchemeDelimiter separates a URL scheme from the rest of the reference.
const SchemeDelimiter = "://"

// IsRemote reports whether a source reference names a remote resource.
//
// A reference is remote when it carries a scheme delimiter anywhere in the
// string; everything else is treated as a local filesystem path. The check is
// purely lexical: no parsing, no filesystem access.
func IsRemote(ref string) bool {
	return strings.Contains(ref, SchemeDelimiter)
}

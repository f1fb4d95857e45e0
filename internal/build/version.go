package build

import "fmt"

// Set with -ldflags "-X github.com/rohmanhakim/vendor-bundler/internal/build.Version=..."
var (
	Version   = "dev"
	Commit    = "none"
	BuildTime = "unknown"
)

const Name = "vendor-bundler"

// FullVersion returns "Version+Commit" (e.g. "1.0.0+abc123"), or just the
// version when no commit was stamped in.
func FullVersion() string {
	if Commit == "" || Commit == "none" {
		return Version
	}
	return Version + "+" + Commit
}

// Describe is the line printed by the version command.
func Describe() string {
	return fmt.Sprintf("%s %s (built %s)", Name, FullVersion(), BuildTime)
}

// Package version carries the build version stamped at link time.
package version

import "fmt"

// Populated via -ldflags at release time; defaults identify a dev build.
var (
	Version = "0.1.0-dev"
	Commit  = "unknown"
)

// VersionString renders the human-readable version line.
func VersionString() string {
	return fmt.Sprintf("emberc %s (%s)", Version, Commit)
}

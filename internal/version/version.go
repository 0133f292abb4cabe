// Package version exposes the build identity of the reelrank binary.
package version

// Stamped by -ldflags on release builds; the defaults cover go run.
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

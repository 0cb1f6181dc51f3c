// Package version carries build metadata, set via ldflags in release builds:
//
//	go build -ldflags "-X git.home.luguber.info/inful/autoapi/internal/version.Version=v0.3.0"
package version

import "fmt"

// Version is the release version.
var Version = "unknown"

// BuildInfo contains additional build metadata.
var (
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// String is printed by --version.
func String() string {
	return fmt.Sprintf("autoapi %s (commit %s, built %s)", Version, GitCommit, BuildTime)
}

// Package version holds build metadata injected with -ldflags, e.g.
//
//	-X github.com/ManuGH/qemu-vmnet/internal/version.Version=v0.2.0
package version

import "fmt"

var (
	// Version is the release version.
	Version = "v0.1.0"

	// Commit is the git short hash of the build.
	Commit = "unknown"

	// Date is the build timestamp.
	Date = "unknown"
)

// String formats the build metadata for humans.
func String() string {
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, Date)
}

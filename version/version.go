// Package version carries the build metadata of the stp2stl binary.
package version

import "fmt"

// These variables are set via ldflags during build, e.g.
// -X github.com/philipparndt/stp2stl/version.Version=v1.2.0
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// GetVersion returns the version string
func GetVersion() string {
	return Version
}

// GetFullVersion returns the version with commit and build date. Development
// builds report just "dev".
func GetFullVersion() string {
	if Version == "dev" {
		return "dev"
	}
	return fmt.Sprintf("%s (commit %s, built %s)", Version, GitCommit, BuildDate)
}

// Package version handles embeding the version information in the binary
package version

import (
	"fmt"
	"runtime"
)

// version vars, set with -ldflags "-X github.com/threecommaio/bitly/version.Version=..."
var (
	Project        = "bitly"
	Version        = "v0.0.0"
	CommitHash     = "UNKNOWN"
	BuildTimestamp = "UNKNOWN"
)

// BuildVersion returns the full version of the build
func BuildVersion() string {
	return fmt.Sprintf("%s-%s (%s)", Version, CommitHash, BuildTimestamp)
}

// BuildVersionShort returns the short version of the build version
func BuildVersionShort() string {
	// major.minor.patch, includes v prefix
	return Version
}

// BuildFromCI returns true or false if built from CI
func BuildFromCI() bool {
	return CommitHash != "UNKNOWN"
}

// Info is the build information reported by the CLI and the health check
type Info struct {
	Project   string `json:"project"`
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuiltAt   string `json:"built_at"`
	GoVersion string `json:"go_version"`
}

// Get returns the build information
func Get() Info {
	return Info{
		Project:   Project,
		Version:   Version,
		Commit:    CommitHash,
		BuiltAt:   BuildTimestamp,
		GoVersion: runtime.Version(),
	}
}

// Release returns the release in the form of project@v1.0.0
func Release() string {
	// project@v1.0.0
	return fmt.Sprintf("%s@%s", Project, BuildVersionShort())
}

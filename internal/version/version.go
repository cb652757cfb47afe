// Package version holds the casctl build version.
package version

// Version is set at build time with
// -ldflags "-X github.com/hashicorp-forge/casstore/internal/version.Version=..."
var Version = "0.1.0-dev"

// GitCommit is the commit the binary was built from, if known.
var GitCommit = ""

// FullVersion returns the version including the commit, if known.
func FullVersion() string {
	if GitCommit == "" {
		return Version
	}
	return Version + " (" + GitCommit + ")"
}

// Package version carries build identity, stamped at release time via
// -ldflags "-X github.com/elvinvaliyev/karabakh-monitor/internal/version.Version=...".
package version

var (
	// Version is the release tag, "dev" for local builds.
	Version = "dev"
	// GitSHA identifies the commit the binary was built from.
	GitSHA = "unknown"
	// BuildTime is when the binary was built.
	BuildTime = "unknown"
)

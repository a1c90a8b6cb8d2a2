// Package version reports the rebuildcheck build.
package version

import "runtime/debug"

// Version is set at build time:
// go build -ldflags "-X git.home.luguber.info/inful/rebuildcheck/internal/version.Version=v1.0.0".
var Version = "unknown"

// Build metadata, also set via ldflags.
var (
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// String renders the version line printed by --version. Without ldflags
// the module version recorded by `go install` is used.
func String() string {
	v := Version
	if v == "unknown" {
		if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
			v = info.Main.Version
		}
	}
	return v + " (commit " + GitCommit + ", built " + BuildTime + ")"
}

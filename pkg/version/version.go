// Package version holds build identification for the neardup binary.
package version

import (
	"runtime/debug"
)

// Build identification. Overridden at link time with
// -ldflags "-X github.com/Sumatoshi-tech/neardup/pkg/version.Version=...".
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// shortCommitLen is the length of an abbreviated git hash.
const shortCommitLen = 12

// InitBinaryVersion fills unset fields from the module build info embedded by
// the Go toolchain, so "go install" builds still report something useful.
func InitBinaryVersion() {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}

	apply(info)
}

func apply(info *debug.BuildInfo) {
	if Version == "dev" && info.Main.Version != "" && info.Main.Version != "(devel)" {
		Version = info.Main.Version
	}

	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			if Commit == "none" {
				Commit = s.Value
				if len(Commit) > shortCommitLen {
					Commit = Commit[:shortCommitLen]
				}
			}
		case "vcs.time":
			if Date == "unknown" {
				Date = s.Value
			}
		}
	}
}

// String formats the build identification for humans.
func String() string {
	return Version + " (commit: " + Commit + ", built: " + Date + ")"
}

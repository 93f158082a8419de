// Package version holds build metadata injected at link time.
package version

import (
	"fmt"
	"runtime/debug"
)

// Version, Commit and Date are set with -ldflags "-X" by the release build.
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// InitBinaryVersion fills unset fields from the embedded build info, so
// `go install` builds still report their module version and VCS revision.
func InitBinaryVersion() {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}

	if Version == "dev" && info.Main.Version != "" && info.Main.Version != "(devel)" {
		Version = info.Main.Version
	}

	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			if Commit == "unknown" {
				Commit = setting.Value
			}
		case "vcs.time":
			if Date == "unknown" {
				Date = setting.Value
			}
		}
	}
}

// String formats the build metadata for the version command.
func String() string {
	return fmt.Sprintf("feanalyzer %s (commit: %s, built: %s)", Version, Commit, Date)
}

// Package version carries the build identity stamped into the rbcore binary.
package version

import (
	"fmt"
	"runtime/debug"
)

// Build identity, overridden with -ldflags "-X".
var (
	Version = "dev"
	Commit  = "<unknown>"
	Date    = "<unknown>"
)

const shortCommitLen = 12

// InitBinaryVersion fills unset fields from the module build info.
func InitBinaryVersion() {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}

	fillFromBuildInfo(info)
}

func fillFromBuildInfo(info *debug.BuildInfo) {
	if Version == "dev" && info.Main.Version != "" && info.Main.Version != "(devel)" {
		Version = info.Main.Version
	}

	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			if Commit == "<unknown>" {
				Commit = setting.Value[:min(len(setting.Value), shortCommitLen)]
			}
		case "vcs.time":
			if Date == "<unknown>" {
				Date = setting.Value
			}
		}
	}
}

// String formats the build identity for display.
func String() string {
	return fmt.Sprintf("rbcore %s (commit: %s, built: %s)", Version, Commit, Date)
}

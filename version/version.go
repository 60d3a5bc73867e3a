// Package version exposes the engine's build version for run audit trails.
package version

import (
	"fmt"
	"runtime/debug"
)

// Version is set at build time using -ldflags.
var Version = "dev"

// Info represents build version information.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	GoVersion string `json:"go_version"`
	Dirty     bool   `json:"dirty"`
}

// Get returns the build version, filling commit details from the embedded
// VCS metadata when available.
func Get() Info {
	info := Info{Version: Version}

	buildInfo, ok := debug.ReadBuildInfo()
	if !ok {
		return info
	}

	info.GoVersion = buildInfo.GoVersion
	for _, setting := range buildInfo.Settings {
		switch setting.Key {
		case "vcs.revision":
			info.Commit = setting.Value
			if len(info.Commit) > 7 {
				info.Commit = info.Commit[:7]
			}
		case "vcs.modified":
			info.Dirty = setting.Value == "true"
		}
	}
	return info
}

// Short returns a compact version string for log lines.
func Short() string {
	info := Get()
	switch {
	case info.Commit == "":
		return info.Version
	case info.Dirty:
		return fmt.Sprintf("%s-%s-dirty", info.Version, info.Commit)
	default:
		return fmt.Sprintf("%s-%s", info.Version, info.Commit)
	}
}

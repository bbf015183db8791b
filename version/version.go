// Package version reports the version of the prisms tools.
package version

import (
	"fmt"
	"runtime/debug"
)

// You can set the version at build time using something like:
// go build -ldflags "-X github.com/prisms-score/prisms/version.Version=$(git describe --dirty)"

var Version string

// Hash is the short VCS revision the binary was built from, with a -dirty
// suffix for modified trees, or "" when unknown.
var Hash = func() string {
	if info, ok := debug.ReadBuildInfo(); ok {
		return hashOf(info.Settings)
	}
	return ""
}()

var VersionOrHash = func() string {
	if Version != "" {
		return Version
	}
	return Hash
}()

func hashOf(settings []debug.BuildSetting) string {
	modified, revision := false, ""
	for _, setting := range settings {
		switch setting.Key {
		case "vcs.modified":
			modified = setting.Value == "true"
		case "vcs.revision":
			revision = setting.Value
		}
	}
	if len(revision) > 7 {
		revision = revision[:7]
	}
	if revision != "" && modified {
		return revision + "-dirty"
	}
	return revision
}

// String is the line printed by the -v flag of a command.
func String(program string) string {
	if VersionOrHash == "" {
		return program + " (unknown version)"
	}
	return fmt.Sprintf("%v %v", program, VersionOrHash)
}

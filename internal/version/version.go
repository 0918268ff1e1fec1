// Package version reports how the binary was built.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Set with -ldflags "-X colorseg/internal/version.Version=...".
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// String returns a one-line description of the build. When the commit was
// not injected at link time it falls back to the VCS stamp Go records.
func String() string {
	commit, built := GitCommit, BuildTime
	if commit == "unknown" || built == "unknown" {
		c, t := vcs()
		if commit == "unknown" && c != "" {
			commit = c
		}
		if built == "unknown" && t != "" {
			built = t
		}
	}
	return fmt.Sprintf("colorseg %s (commit %s, built %s, %s %s/%s)",
		Version, commit, built, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

func vcs() (revision, at string) {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "", ""
	}
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			revision = s.Value
			if len(revision) > 12 {
				revision = revision[:12]
			}
		case "vcs.time":
			at = s.Value
		}
	}
	return revision, at
}

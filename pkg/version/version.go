// Package version exposes build information for dirwatch.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Version is the release version, injected at build time:
//
//	-ldflags "-X github.com/Aman-CERP/dirwatch/pkg/version.Version=v1.2.3"
//
// Binaries built with `go install module@version` fall back to the module
// version recorded in the build info.
var Version = "dev"

var (
	// Commit is the short git commit hash.
	Commit = "unknown"

	// Date is the build date in RFC3339 format.
	Date = "unknown"

	// GoVersion is the Go version used to build the binary.
	GoVersion = runtime.Version()
)

// readBuildInfo is replaced in tests.
var readBuildInfo = debug.ReadBuildInfo

// BuildInfo is structured version information for JSON output.
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	Date      string `json:"date"`
	GoVersion string `json:"go_version"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// String returns a one-line description with all build info.
func String() string {
	info := GetInfo()
	return fmt.Sprintf("dirwatch %s (commit: %s, built: %s, go: %s, %s/%s)",
		info.Version, info.Commit, info.Date, info.GoVersion, info.OS, info.Arch)
}

// Short returns just the version string.
func Short() string {
	return GetInfo().Version
}

// GetInfo returns structured version information. Values not injected by
// ldflags are filled from the embedded module and VCS build settings.
func GetInfo() BuildInfo {
	info := BuildInfo{
		Version:   Version,
		Commit:    Commit,
		Date:      Date,
		GoVersion: GoVersion,
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}

	bi, ok := readBuildInfo()
	if !ok {
		return info
	}
	if info.Version == "dev" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		info.Version = bi.Main.Version
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if info.Commit == "unknown" && s.Value != "" {
				info.Commit = shortRevision(s.Value)
			}
		case "vcs.time":
			if info.Date == "unknown" && s.Value != "" {
				info.Date = s.Value
			}
		}
	}
	return info
}

func shortRevision(rev string) string {
	if len(rev) > 7 {
		return rev[:7]
	}
	return rev
}

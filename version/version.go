package version

import (
	"runtime"
	"runtime/debug"
)

// version set at build-time
var version = "main"

const shortHashLen = 7

// Info describes the build of the running binary
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	Timestamp string `json:"timestamp"`
	GoVersion string `json:"go_version"`
}

// Get reads the build info embedded by the go toolchain. The commit and its
// timestamp are "unknown" for builds outside a VCS checkout.
func Get() Info {
	info := Info{
		Version:   version,
		Commit:    "unknown",
		Timestamp: "unknown",
		GoVersion: runtime.Version(),
	}
	if info.Version == "" {
		info.Version = "main"
	}

	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return info
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			info.Commit = s.Value
			if len(info.Commit) > shortHashLen {
				info.Commit = info.Commit[:shortHashLen]
			}
		case "vcs.time":
			info.Timestamp = s.Value
		}
	}

	return info
}

func (i Info) String() string {
	return "Version:       " + i.Version + "\n" +
		"Git Commit:    " + i.Commit + "\n" +
		"Git Timestamp: " + i.Timestamp + "\n" +
		"Go Version:    " + i.GoVersion + "\n"
}

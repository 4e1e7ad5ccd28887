// Package version holds build information injected with -ldflags.
package version

import (
	"fmt"
	"runtime/debug"

	"github.com/scaramou4/rereminder-bot-sub000/internal/constants"
)

var (
	Version   = constants.DefaultVersion
	BuildTime = constants.DefaultBuildTime
	GitCommit = constants.DefaultGitCommit
	GoVersion = constants.DefaultGoVersion
)

// readBuildInfo is replaced in tests.
var readBuildInfo = debug.ReadBuildInfo

// SetInfo overrides the build information; empty arguments keep the current
// value. Go version and commit still unknown afterwards are taken from the
// binary's embedded build info when available (go install, go build in a
// git checkout).
func SetInfo(v, bt, gc, gv string) {
	for _, kv := range []struct {
		dst *string
		val string
	}{{&Version, v}, {&BuildTime, bt}, {&GitCommit, gc}, {&GoVersion, gv}} {
		if kv.val != "" {
			*kv.dst = kv.val
		}
	}
	fillFromBuildInfo()
}

func fillFromBuildInfo() {
	info, ok := readBuildInfo()
	if !ok {
		return
	}
	if GoVersion == constants.DefaultGoVersion && info.GoVersion != "" {
		GoVersion = info.GoVersion
	}
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			if GitCommit == constants.DefaultGitCommit && s.Value != "" {
				GitCommit = shortCommit(s.Value)
			}
		case "vcs.time":
			if BuildTime == constants.DefaultBuildTime && s.Value != "" {
				BuildTime = s.Value
			}
		}
	}
}

func shortCommit(rev string) string {
	if len(rev) > 12 {
		return rev[:12]
	}
	return rev
}

// FormatStartupMessage возвращает строку для лога при старте бота
func FormatStartupMessage() string {
	return fmt.Sprintf("⏰ Rereminder запущен\nВерсия: %s\nСборка: %s", Version, BuildTime)
}

// FormatVersion возвращает полную информацию о сборке для команды version
func FormatVersion() string {
	return fmt.Sprintf("rereminder %s\n  build: %s\n  commit: %s\n  go: %s", Version, BuildTime, GitCommit, GoVersion)
}

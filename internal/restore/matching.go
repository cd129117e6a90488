package restore

import (
	"path/filepath"
	"strings"

	"github.com/windowanchor/workspaced/pkg/types"
)

func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// documentAware is the first matching tier: the entry has a launch
// argument, executables are equal, and the live title contains the launch
// argument's file stem.
func documentAware(entry types.WorkspaceEntry, live types.LiveWindow) bool {
	if entry.LaunchArg == "" {
		return false
	}
	if !strings.EqualFold(entry.Position.ExecutablePath, live.ExecutablePath) {
		return false
	}
	return strings.Contains(strings.ToLower(live.Title), strings.ToLower(stem(entry.LaunchArg)))
}

// exeAndClass is the second matching tier.
func exeAndClass(entry types.WorkspaceEntry, live types.LiveWindow) bool {
	return strings.EqualFold(entry.Position.ExecutablePath, live.ExecutablePath) &&
		entry.Position.WindowClass == live.WindowClass
}

// exeAndTitlePrefix is the last matching tier: exe paths equal, and the
// live title starts (case-insensitive) with the first 10 bytes of the
// saved title snippet.
func exeAndTitlePrefix(entry types.WorkspaceEntry, live types.LiveWindow) bool {
	if !strings.EqualFold(entry.Position.ExecutablePath, live.ExecutablePath) {
		return false
	}
	prefix := entry.Position.TitleSnippet
	if len(prefix) > 10 {
		prefix = prefix[:10]
	}
	return strings.HasPrefix(strings.ToLower(live.Title), strings.ToLower(prefix))
}

// matchEntry tries the three tiers in order against the unconsumed live
// windows, returning the matched handle (or 0) and whether it matched. An
// entry captured with an unreadable executable path (elevation) carries an
// empty path on both sides of the exe comparison, so it still falls
// through to the class and title tiers.
func matchEntry(entry types.WorkspaceEntry, live []types.LiveWindow, consumed map[uintptr]bool) (uintptr, bool) {
	for _, tier := range []func(types.WorkspaceEntry, types.LiveWindow) bool{documentAware, exeAndClass, exeAndTitlePrefix} {
		for _, w := range live {
			if consumed[w.Handle] {
				continue
			}
			if tier(entry, w) {
				return w.Handle, true
			}
		}
	}
	return 0, false
}

// Package snapshot implements the SnapshotEngine: orchestrates per-window
// capture, file detection, smart exclusion, and progress reporting.
package snapshot

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/windowanchor/workspaced/internal/resolver"
	"github.com/windowanchor/workspaced/pkg/types"
	"go.uber.org/zap"
)

// passwordManagers is the process-name half of the smart-exclusion
// policy: windows of these are enumerated but default to unchecked in a
// save dialog.
var passwordManagers = map[string]bool{
	"keepass": true, "keepassxc": true, "1password": true, "bitwarden": true,
	"lastpass": true, "dashlane": true, "keeper": true, "roboform": true, "enpass": true,
}

var privateTitlePatterns = []string{"InPrivate", "Incognito", "Private Browsing", "Private Window"}

// codeEditorProcessNames are the Electron-based editors eligible for
// workspace-folder promotion.
var codeEditorProcessNames = map[string]bool{"code": true, "cursor": true}

// Engine implements types.SnapshotEngine.
type Engine struct {
	log         *zap.Logger
	display     types.DisplayManager
	windows     types.WindowManager
	selfPID     uint32
	jumplistDir func() string
}

func NewEngine(log *zap.Logger, display types.DisplayManager, windows types.WindowManager, selfPID uint32, jumplistDir func() string) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{log: log, display: display, windows: windows, selfPID: selfPID, jumplistDir: jumplistDir}
}

// TakeSnapshot captures the current desktop into a named snapshot:
// fingerprint and monitor list first, then one pass over the user windows
// with per-window progress reports. File detection (when saveFiles is on)
// builds the jump-list index exactly once and discards it with the
// returned resolver at the end of the pass. Windows of this process are
// skipped; when selectedWindows is non-empty only matching handles are
// recorded.
func (e *Engine) TakeSnapshot(name string, saveFiles bool, selectedWindows []uintptr, sink types.ProgressSink) (*types.WorkspaceSnapshot, error) {
	if sink == nil {
		sink = types.NopProgressSink{}
	}

	fingerprint, err := e.display.Fingerprint()
	if err != nil {
		return nil, err
	}
	monitors, err := e.display.EnumerateMonitors()
	if err != nil {
		e.log.Warn("monitor enumeration degraded", zap.Error(err))
	}

	live, err := e.windows.EnumerateWindows()
	if err != nil {
		return nil, err
	}

	selected := map[uintptr]bool{}
	for _, h := range selectedWindows {
		selected[h] = true
	}

	var fileResolver types.FileResolver
	if saveFiles {
		sink.Report(types.ProgressReport{Stage: "indexing", Message: "building jump-list index"})
		fileResolver = resolver.New(e.log, e.jumplistDir())
	}

	snap := &types.WorkspaceSnapshot{
		Name:               name,
		MonitorFingerprint: fingerprint,
		SavedAt:            time.Now().UTC(),
		SavedWithFiles:     saveFiles,
		Monitors:           monitors,
	}

	total := len(live)
	for i, w := range live {
		if w.ProcessID == e.selfPID {
			continue
		}
		if len(selectedWindows) > 0 && !selected[w.Handle] {
			continue
		}

		sink.Report(types.ProgressReport{
			Current: i + 1, Total: total,
			ProcessName: w.ProcessName, TitleSnippet: w.Title,
			Stage: "capturing",
		})

		mon, err := e.display.MonitorForWindow(w.Handle, monitors)
		if err != nil {
			e.log.Debug("monitor lookup failed", zap.Error(err))
		}
		w.Monitor = mon

		rec, err := e.windows.Capture(w.Handle, mon)
		if err != nil {
			e.log.Warn("window capture failed", zap.Uintptr("hwnd", w.Handle), zap.Error(err))
			continue
		}

		entry := types.WorkspaceEntry{
			Position:     rec,
			MonitorID:    mon.ID,
			MonitorIndex: mon.Index,
			MonitorName:  mon.FriendlyName,
			FileSource:   types.SourceNone,
		}

		if saveFiles {
			e.resolveFile(&entry, w, fileResolver)
			e.applyWorkspacePromotion(&entry, w)
		}

		if SmartExcluded(w) {
			// Still enumerated and persisted; a save dialog consults
			// SmartExcluded to default the window's checkbox to off.
			e.log.Debug("smart-excluded window captured", zap.String("process", w.ProcessName))
		}

		snap.Entries = append(snap.Entries, entry)
	}

	sink.Report(types.ProgressReport{Stage: "saving", Message: "saving…"})
	return snap, nil
}

func (e *Engine) resolveFile(entry *types.WorkspaceEntry, w types.LiveWindow, fr types.FileResolver) {
	if path, ok := fr.ExplorerFolder(w); ok {
		entry.Position.FolderPath = path
		entry.FilePath = path
		entry.FileConfidence = 95
		entry.FileSource = types.SourceExplorerFolder
		entry.LaunchArg = path
		return
	}

	path, conf, src := fr.Resolve(w)
	entry.FilePath = path
	entry.FileConfidence = conf
	entry.FileSource = src
	if conf >= 80 {
		entry.LaunchArg = path
	}
}

// applyWorkspacePromotion replaces a code editor's single-file launch
// argument with its containing directory, so the restore reopens the whole
// workspace the way the editor itself would. Directories and
// .code-workspace manifests are kept as-is.
func (e *Engine) applyWorkspacePromotion(entry *types.WorkspaceEntry, w types.LiveWindow) {
	if !codeEditorProcessNames[strings.ToLower(w.ProcessName)] {
		return
	}
	if entry.LaunchArg == "" {
		return
	}
	info, err := os.Stat(entry.LaunchArg)
	if err != nil {
		return
	}
	if info.IsDir() {
		return
	}
	if strings.EqualFold(filepath.Ext(entry.LaunchArg), ".code-workspace") {
		return
	}
	dir := filepath.Dir(entry.LaunchArg)
	entry.LaunchArg = dir
	entry.FilePath = dir
}

// SmartExcluded reports whether a save dialog should leave w unchecked by
// default: password managers by process name, private-browsing windows by
// title pattern. The window is still enumerated and capturable.
func SmartExcluded(w types.LiveWindow) bool {
	if passwordManagers[strings.ToLower(w.ProcessName)] {
		return true
	}
	for _, pat := range privateTitlePatterns {
		if strings.Contains(w.Title, pat) {
			return true
		}
	}
	return false
}

var _ types.SnapshotEngine = (*Engine)(nil)

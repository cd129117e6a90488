// Package restore implements the RestoreEngine: a five-phase
// match/launch/reposition state machine plus the context-switch
// close-and-wait variant.
package restore

import (
	"strings"
	"time"

	"github.com/windowanchor/workspaced/internal/errtag"
	"github.com/windowanchor/workspaced/pkg/types"
	"go.uber.org/zap"
)

const (
	phase3Wait         = 3 * time.Second
	phase5Wait         = 2 * time.Second
	switchPollInterval = 500 * time.Millisecond
	switchTimeout      = 120 * time.Second
)

// Engine implements types.RestoreEngine.
type Engine struct {
	log     *zap.Logger
	display types.DisplayManager
	windows types.WindowManager
	selfPID uint32

	// Process-spawning seams, overridden in tests so launch decisions can
	// be observed without spawning anything.
	spawnDocument func(types.WorkspaceEntry) error
	spawnApp      func(types.WorkspaceEntry) error
}

func NewEngine(log *zap.Logger, display types.DisplayManager, windows types.WindowManager, selfPID uint32) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{
		log:           log,
		display:       display,
		windows:       windows,
		selfPID:       selfPID,
		spawnDocument: launchDocument,
		spawnApp:      launchApp,
	}
}

// Restore runs the five-phase restore pipeline for the supplied snapshot,
// projected to monitorIDs when non-empty (nil/empty means "all monitors").
func (e *Engine) Restore(ctx types.CancelContext, snap *types.WorkspaceSnapshot, monitorIDs []string, sink types.ProgressSink) (types.RestoreResult, error) {
	if sink == nil {
		sink = types.NopProgressSink{}
	}
	entries := selectEntries(snap, monitorIDs)
	consumed := map[uintptr]bool{}
	matched := 0

	// Phase 1: match already-live windows.
	if cancelled(ctx) {
		e.log.Info("restore cancelled before any phase ran", zap.Error(errtag.ErrCancelled))
		return types.RestoreResult{Cancelled: true, Status: "Cancelled"}, nil
	}
	live, err := e.windows.EnumerateWindows()
	if err != nil {
		return types.RestoreResult{}, err
	}
	n, err := e.matchAndReposition(entries, live, consumed, sink)
	if err != nil {
		return types.RestoreResult{}, err
	}
	matched += n

	// Phase 2: open documents / launch missing apps.
	if cancelled(ctx) {
		return types.RestoreResult{Cancelled: true, Status: "Cancelled", MatchedCount: matched}, nil
	}
	launched := e.launchMissing(entries, live)

	if !launched {
		return types.RestoreResult{MatchedCount: matched, Status: statusFor(matched)}, nil
	}

	// Phase 3: wait for apps to initialize.
	if waitCancellable(ctx, phase3Wait) {
		return types.RestoreResult{Cancelled: true, Status: "Cancelled", MatchedCount: matched}, nil
	}

	// Phase 4: match + reposition newly-appeared windows.
	live, err = e.windows.EnumerateWindows()
	if err != nil {
		return types.RestoreResult{}, err
	}
	n, err = e.matchAndReposition(entries, live, consumed, sink)
	if err != nil {
		return types.RestoreResult{}, err
	}
	matched += n

	// Phase 5: wait for slow IDEs/Office, then a final match pass.
	if waitCancellable(ctx, phase5Wait) {
		return types.RestoreResult{Cancelled: true, Status: "Cancelled", MatchedCount: matched}, nil
	}
	live, err = e.windows.EnumerateWindows()
	if err != nil {
		return types.RestoreResult{}, err
	}
	n, err = e.matchAndReposition(entries, live, consumed, sink)
	if err != nil {
		return types.RestoreResult{}, err
	}
	matched += n

	return types.RestoreResult{MatchedCount: matched, Status: statusFor(matched)}, nil
}

func statusFor(matched int) string {
	if matched == 0 {
		return "No windows matched"
	}
	return "Restored"
}

// matchAndReposition performs one matching pass: every entry not yet
// restored is tried against the live set; on a match it is repositioned
// and added to the monotone restored set (never repositioned again, and
// its matched handle never reused within this pass or any later one).
func (e *Engine) matchAndReposition(entries []*types.WorkspaceEntry, live []types.LiveWindow, consumed map[uintptr]bool, sink types.ProgressSink) (int, error) {
	if sink == nil {
		sink = types.NopProgressSink{}
	}
	matched := 0
	for _, entry := range entries {
		if entry.WasRestored {
			continue
		}
		hwnd, ok := matchEntry(*entry, live, consumed)
		if !ok {
			continue
		}
		consumed[hwnd] = true

		if err := e.windows.Restore(hwnd, entry.Position); err != nil {
			e.log.Warn("reposition failed", zap.Error(err))
			continue
		}
		entry.WasRestored = true
		matched++
		sink.Report(types.ProgressReport{
			Stage:       "restoring",
			ProcessName: entry.Position.ProcessName,
			Message:     "repositioned",
		})
	}
	return matched, nil
}

// launchMissing implements Phase 2's launch rules, including the
// "pending doc for same exe" deferral. Returns whether anything was
// launched.
func (e *Engine) launchMissing(entries []*types.WorkspaceEntry, live []types.LiveWindow) bool {
	pendingDocExe := map[string]bool{}
	for _, entry := range entries {
		if entry.WasRestored || entry.LaunchArg == "" || entry.Position.ExecutablePath == "" {
			continue
		}
		pendingDocExe[strings.ToLower(entry.Position.ExecutablePath)] = true
	}

	launchedAny := false

	// Document entries launched in snapshot order first. Entries whose
	// executable path was unreadable at capture time (elevation) stay in
	// the snapshot but are never launched.
	for _, entry := range entries {
		if entry.WasRestored || entry.LaunchArg == "" || entry.Position.ExecutablePath == "" {
			continue
		}
		if err := e.spawnDocument(*entry); err != nil {
			e.log.Warn("document launch failed", zap.String("path", entry.LaunchArg), zap.Error(err))
			continue
		}
		launchedAny = true
	}

	// Plain-app entries: skip if exe already running (by live window or
	// process table), or if a document entry for the same exe is
	// pending.
	for _, entry := range entries {
		if entry.WasRestored || entry.LaunchArg != "" {
			continue
		}
		exe := strings.ToLower(entry.Position.ExecutablePath)
		if exe == "" {
			continue
		}
		if pendingDocExe[exe] {
			continue
		}
		if liveHasExe(live, entry.Position.ExecutablePath) || isProcessRunning(entry.Position.ExecutablePath) {
			continue
		}
		if err := e.spawnApp(*entry); err != nil {
			e.log.Warn("application launch failed", zap.String("exe", entry.Position.ExecutablePath), zap.Error(err))
			continue
		}
		launchedAny = true
	}

	return launchedAny
}

func liveHasExe(live []types.LiveWindow, exe string) bool {
	for _, w := range live {
		if strings.EqualFold(w.ExecutablePath, exe) {
			return true
		}
	}
	return false
}

func selectEntries(snap *types.WorkspaceSnapshot, monitorIDs []string) []*types.WorkspaceEntry {
	var filter map[string]bool
	if len(monitorIDs) > 0 {
		filter = make(map[string]bool, len(monitorIDs))
		for _, id := range monitorIDs {
			filter[id] = true
		}
	}
	out := make([]*types.WorkspaceEntry, 0, len(snap.Entries))
	for i := range snap.Entries {
		e := &snap.Entries[i]
		if filter != nil && !filter[e.MonitorID] {
			continue
		}
		out = append(out, e)
	}
	return out
}

func cancelled(ctx types.CancelContext) bool {
	if ctx == nil {
		return false
	}
	select {
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

// waitCancellable sleeps d unless ctx is cancelled first, returning
// whether it was cancelled.
func waitCancellable(ctx types.CancelContext, d time.Duration) bool {
	if ctx == nil {
		time.Sleep(d)
		return false
	}
	select {
	case <-time.After(d):
		return false
	case <-ctx.Done():
		return true
	}
}

var _ types.RestoreEngine = (*Engine)(nil)

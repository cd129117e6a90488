package restore

import (
	"time"

	"github.com/windowanchor/workspaced/pkg/types"
)

// SwitchWorkspace is the stronger variant of Restore: it first closes
// every non-self window, polls for the live-window count to reach zero,
// and only then runs the normal five-phase restore. If the desktop is
// still non-empty at timeout (typically a window holding an unanswered
// save dialog), the switch aborts and no restore is performed.
func (e *Engine) SwitchWorkspace(ctx types.CancelContext, snap *types.WorkspaceSnapshot, sink types.ProgressSink) (types.RestoreResult, error) {
	if sink == nil {
		sink = types.NopProgressSink{}
	}

	if _, err := e.windows.CloseGracefully(0, e.selfPID); err != nil {
		return types.RestoreResult{}, err
	}

	lastCount := -1
	var elapsed time.Duration

	for {
		live, err := e.windows.EnumerateWindows()
		if err != nil {
			return types.RestoreResult{}, err
		}
		count := countExcluding(live, e.selfPID)
		if count != lastCount {
			sink.Report(types.ProgressReport{Stage: "closing", Message: "waiting for windows to close", Current: count})
			lastCount = count
		}
		if count == 0 {
			break
		}
		if elapsed >= switchTimeout {
			return types.RestoreResult{TimedOut: true, Status: "Switch Cancelled"}, nil
		}
		if cancelled(ctx) {
			return types.RestoreResult{Cancelled: true, Status: "Cancelled"}, nil
		}
		if waitCancellable(ctx, switchPollInterval) {
			return types.RestoreResult{Cancelled: true, Status: "Cancelled"}, nil
		}
		elapsed += switchPollInterval
	}

	return e.Restore(ctx, snap, nil, sink)
}

func countExcluding(live []types.LiveWindow, excludePID uint32) int {
	n := 0
	for _, w := range live {
		if w.ProcessID != excludePID {
			n++
		}
	}
	return n
}

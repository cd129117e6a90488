package restore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/windowanchor/workspaced/pkg/types"
)

type fakeWindowManager struct {
	live     []types.LiveWindow
	restored map[uintptr]types.WindowRecord
	closeN   int
}

func (f *fakeWindowManager) EnumerateWindows() ([]types.LiveWindow, error) { return f.live, nil }
func (f *fakeWindowManager) Capture(hwnd uintptr, m types.Monitor) (types.WindowRecord, error) {
	return types.WindowRecord{}, nil
}
func (f *fakeWindowManager) Restore(hwnd uintptr, rec types.WindowRecord) error {
	if f.restored == nil {
		f.restored = map[uintptr]types.WindowRecord{}
	}
	f.restored[hwnd] = rec
	return nil
}
func (f *fakeWindowManager) CloseGracefully(_ uintptr, excludePID uint32) (int, error) {
	f.closeN++
	return len(f.live), nil
}

// A document entry and a plain-app entry sharing winword.exe: only the
// document entry may launch in this pass, otherwise DDE would route the
// document into the bare instance and consume its window slot.
func TestLaunchMissingDefersPlainAppForPendingDocSameExe(t *testing.T) {
	entryDoc := &types.WorkspaceEntry{
		Position:  types.WindowRecord{ExecutablePath: `C:\Office\winword.exe`},
		LaunchArg: `C:\docs\a.docx`,
	}
	entryApp := &types.WorkspaceEntry{
		Position: types.WindowRecord{ExecutablePath: `C:\Office\winword.exe`},
	}
	entries := []*types.WorkspaceEntry{entryDoc, entryApp}

	e := NewEngine(nil, nil, nil, 0)
	var docLaunches, appLaunches []string
	e.spawnDocument = func(entry types.WorkspaceEntry) error {
		docLaunches = append(docLaunches, entry.LaunchArg)
		return nil
	}
	e.spawnApp = func(entry types.WorkspaceEntry) error {
		appLaunches = append(appLaunches, entry.Position.ExecutablePath)
		return nil
	}

	launched := e.launchMissing(entries, nil)

	assert.True(t, launched)
	assert.Equal(t, []string{`C:\docs\a.docx`}, docLaunches)
	assert.Empty(t, appLaunches, "plain-app entry must be deferred while a document for the same exe is pending")
}

// Without a pending document for its exe, a plain-app entry does launch.
func TestLaunchMissingSpawnsPlainAppWhenNoDocPending(t *testing.T) {
	entryApp := &types.WorkspaceEntry{
		Position: types.WindowRecord{ExecutablePath: `C:\Tools\editor.exe`},
	}

	e := NewEngine(nil, nil, nil, 0)
	var appLaunches []string
	e.spawnDocument = func(types.WorkspaceEntry) error { return nil }
	e.spawnApp = func(entry types.WorkspaceEntry) error {
		appLaunches = append(appLaunches, entry.Position.ExecutablePath)
		return nil
	}

	launched := e.launchMissing([]*types.WorkspaceEntry{entryApp}, nil)

	assert.True(t, launched)
	assert.Equal(t, []string{`C:\Tools\editor.exe`}, appLaunches)
}

func TestSelectEntriesFiltersByMonitorID(t *testing.T) {
	snap := &types.WorkspaceSnapshot{
		Entries: []types.WorkspaceEntry{
			{MonitorID: "A"},
			{MonitorID: "B"},
		},
	}
	out := selectEntries(snap, []string{"A"})
	require.Len(t, out, 1)
	assert.Equal(t, "A", out[0].MonitorID)
}

func TestSelectEntriesEmptyFilterMeansAll(t *testing.T) {
	snap := &types.WorkspaceSnapshot{
		Entries: []types.WorkspaceEntry{{MonitorID: "A"}, {MonitorID: "B"}},
	}
	out := selectEntries(snap, nil)
	assert.Len(t, out, 2)
}

// An entry matched in pass 1 is never matched again, and a handle
// consumed once is never reused.
func TestRestoreMonotoneAcrossPasses(t *testing.T) {
	live := []types.LiveWindow{
		{Handle: 1, ExecutablePath: `C:\a\app.exe`, WindowClass: "AppWindow"},
	}
	entries := []*types.WorkspaceEntry{
		{Position: types.WindowRecord{ExecutablePath: `C:\a\app.exe`, WindowClass: "AppWindow"}},
	}
	fwm := &fakeWindowManager{live: live}
	e := NewEngine(nil, nil, fwm, 0)

	consumed := map[uintptr]bool{}
	n, err := e.matchAndReposition(entries, live, consumed, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.True(t, entries[0].WasRestored)

	// A second pass must not rematch the already-restored entry.
	n2, err := e.matchAndReposition(entries, live, consumed, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, n2)
}

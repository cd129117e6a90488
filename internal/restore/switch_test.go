package restore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/windowanchor/workspaced/pkg/types"
)

func TestCountExcludingSkipsSelf(t *testing.T) {
	live := []types.LiveWindow{{ProcessID: 1}, {ProcessID: 2}, {ProcessID: 1}}
	assert.Equal(t, 2, countExcluding(live, 1))
}

// TestSwitchWorkspaceRunsRestoreWhenDesktopAlreadyEmpty covers the
// fast path: CloseGracefully leaves zero live windows, so the poll loop
// exits immediately and SwitchWorkspace falls through to a normal restore.
func TestSwitchWorkspaceRunsRestoreWhenDesktopAlreadyEmpty(t *testing.T) {
	fwm := &fakeWindowManager{live: nil}
	e := NewEngine(nil, nil, fwm, 99)
	snap := &types.WorkspaceSnapshot{}

	res, err := e.SwitchWorkspace(context.Background(), snap, nil)
	require.NoError(t, err)
	assert.False(t, res.TimedOut)
	assert.Equal(t, 1, fwm.closeN)
}

// TestSwitchWorkspaceCancelledBeforeEmpty implements the abort branch: a
// non-empty desktop plus an already-cancelled context returns Cancelled
// without ever reaching the restore phase.
func TestSwitchWorkspaceCancelledBeforeEmpty(t *testing.T) {
	fwm := &fakeWindowManager{live: []types.LiveWindow{{ProcessID: 7}}}
	e := NewEngine(nil, nil, fwm, 99)
	snap := &types.WorkspaceSnapshot{}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := e.SwitchWorkspace(ctx, snap, nil)
	require.NoError(t, err)
	assert.True(t, res.Cancelled)
}

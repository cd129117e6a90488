package windowmgr

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/windowanchor/workspaced/pkg/types"
)

func TestEdgeDriftExceeds15DetectsSnapCorrection(t *testing.T) {
	restored := types.Rect{Left: 0, Top: 0, Right: 800, Bottom: 600}
	actual := winRect{Left: 20, Top: 0, Right: 820, Bottom: 600}
	assert.True(t, edgeDriftExceeds15(restored, actual))
}

func TestEdgeDriftExceeds15ToleratesSmallDrift(t *testing.T) {
	restored := types.Rect{Left: 0, Top: 0, Right: 800, Bottom: 600}
	actual := winRect{Left: 5, Top: 0, Right: 805, Bottom: 600}
	assert.False(t, edgeDriftExceeds15(restored, actual))
}

func TestShowCommandRoundTrip(t *testing.T) {
	for _, s := range []types.ShowCommand{types.ShowNormal, types.ShowMaximized, types.ShowMinimized} {
		wp := showCmdToWP(s)
		assert.Equal(t, s, showCommandFromWP(wp))
	}
}

func TestExeBaseNameNoExt(t *testing.T) {
	assert.Equal(t, "notepad", exeBaseNameNoExt(`C:\Windows\System32\notepad.exe`))
	assert.Equal(t, "app", exeBaseNameNoExt(`/usr/bin/app.exe`))
	assert.Empty(t, exeBaseNameNoExt(""))
}

func TestSkipClassesContainsShellSurfaces(t *testing.T) {
	assert.True(t, skipClasses["Shell_TrayWnd"])
	assert.True(t, skipClasses["Progman"])
	assert.False(t, skipClasses["Chrome_WidgetWin_1"])
}

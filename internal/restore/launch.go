package restore

import (
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"unsafe"

	"github.com/shirou/gopsutil/v3/process"
	"github.com/windowanchor/workspaced/internal/errtag"
	"github.com/windowanchor/workspaced/pkg/types"
	"golang.org/x/sys/windows"
)

var (
	shell32           = windows.NewLazyDLL("shell32.dll")
	procShellExecuteW = shell32.NewProc("ShellExecuteW")
)

const swShowNormal = 1

// browserBasenames are the browsers that accept --restore-last-session to
// reopen their previous tab set.
var browserBasenames = map[string]bool{
	"chrome": true, "msedge": true, "opera": true, "brave": true, "brave_browser": true,
}

// shellExecuteOpen launches path via the OS shell-association pathway, so
// documents honor their registered default handler.
func shellExecuteOpen(path string) error {
	verb, _ := windows.UTF16PtrFromString("open")
	target, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return err
	}
	ret, _, _ := procShellExecuteW.Call(
		0,
		uintptr(unsafe.Pointer(verb)),
		uintptr(unsafe.Pointer(target)),
		0, 0,
		swShowNormal,
	)
	// ShellExecuteW returns a value > 32 on success.
	if ret <= 32 {
		return fmt.Errorf("%w: ShellExecuteW code %d", errtag.ErrLaunchFailed, ret)
	}
	return nil
}

// launchApp directly executes exePath with args, appending
// --restore-last-session when exePath is a known browser basename and the
// entry carries no launch argument.
func launchApp(entry types.WorkspaceEntry) error {
	args := []string{}
	base := strings.ToLower(stem(entry.Position.ExecutablePath))
	if entry.LaunchArg == "" && browserBasenames[base] {
		args = append(args, "--restore-last-session")
	}
	cmd := exec.Command(entry.Position.ExecutablePath, args...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("%w: %v", errtag.ErrLaunchFailed, err)
	}
	return nil
}

// launchEditorWorkspace launches a Code/Cursor-style editor directly with
// the workspace directory as an argument, since shell association would
// route the directory to Explorer instead.
func launchEditorWorkspace(entry types.WorkspaceEntry) error {
	cmd := exec.Command(entry.Position.ExecutablePath, entry.LaunchArg)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("%w: %v", errtag.ErrLaunchFailed, err)
	}
	return nil
}

var codeEditorBasenames = map[string]bool{"code": true, "cursor": true}

// launchDocument dispatches a document-bearing entry either through
// shell-association (regular documents, honoring the default handler) or
// direct launch (Code/Cursor workspace folders).
func launchDocument(entry types.WorkspaceEntry) error {
	base := strings.ToLower(stem(entry.Position.ExecutablePath))
	if codeEditorBasenames[base] {
		return launchEditorWorkspace(entry)
	}
	return shellExecuteOpen(entry.LaunchArg)
}

// isProcessRunning uses gopsutil to check the process table for a running
// instance of exePath, independent of whether it yet has a visible
// top-level window, closing the gap where a just-launched app (splash
// screen, single-instance relaunch negotiation) would otherwise be
// double-launched.
func isProcessRunning(exePath string) bool {
	if exePath == "" {
		return false
	}
	procs, err := process.Processes()
	if err != nil {
		return false
	}
	target := strings.ToLower(filepath.Clean(exePath))
	for _, p := range procs {
		exe, err := p.Exe()
		if err != nil {
			continue
		}
		if strings.ToLower(filepath.Clean(exe)) == target {
			return true
		}
	}
	return false
}

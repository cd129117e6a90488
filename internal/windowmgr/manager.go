// Package windowmgr enumerates, captures, and restores top-level windows.
package windowmgr

import (
	"fmt"
	"strings"
	"syscall"
	"unsafe"

	"github.com/windowanchor/workspaced/internal/errtag"
	"github.com/windowanchor/workspaced/pkg/types"
	"go.uber.org/zap"
	"golang.org/x/sys/windows"
)

var (
	user32   = windows.NewLazyDLL("user32.dll")
	kernel32 = windows.NewLazyDLL("kernel32.dll")

	procEnumWindows              = user32.NewProc("EnumWindows")
	procGetWindowTextW           = user32.NewProc("GetWindowTextW")
	procGetWindowTextLengthW     = user32.NewProc("GetWindowTextLengthW")
	procGetClassNameW            = user32.NewProc("GetClassNameW")
	procGetWindowRect            = user32.NewProc("GetWindowRect")
	procGetWindowThreadProcessId = user32.NewProc("GetWindowThreadProcessId")
	procIsWindowVisible          = user32.NewProc("IsWindowVisible")
	procGetWindow                = user32.NewProc("GetWindow")
	procGetWindowPlacement       = user32.NewProc("GetWindowPlacement")
	procSetWindowPlacement       = user32.NewProc("SetWindowPlacement")
	procShowWindow               = user32.NewProc("ShowWindow")
	procPostMessageW             = user32.NewProc("PostMessageW")
	procGetDpiForWindow          = user32.NewProc("GetDpiForWindow")

	procOpenProcess               = kernel32.NewProc("OpenProcess")
	procCloseHandle               = kernel32.NewProc("CloseHandle")
	procQueryFullProcessImageName = kernel32.NewProc("QueryFullProcessImageNameW")
)

const (
	swShowNormal = 1
	swMaximize   = 3
	swMinimize   = 6

	gwOwner = 4

	processQueryLimitedInformation = 0x1000

	wmClose = 0x0010

	fallbackDPI = 96
)

// skipClasses is the class-name skip set from the filtering rule; a
// window belonging to any of these is never a user window.
var skipClasses = map[string]bool{
	"Shell_TrayWnd":                       true,
	"DV2ControlHost":                      true,
	"MsgrIMEWindowClass":                  true,
	"SysShadow":                           true,
	"Button":                              true,
	"Windows.UI.Core.CoreWindow":          true,
	"Progman":                             true,
	"WorkerW":                             true,
	"NotifyIconOverflowWindow":            true,
	"TrayClockWClass":                     true,
	"MSTaskListWClass":                    true,
	"MSTaskSwWClass":                      true,
	"ReBarWindow32":                       true,
	"TopLevelWindowForOverflowXamlIsland": true,
}

type winRect struct {
	Left, Top, Right, Bottom int32
}

type point struct{ X, Y int32 }

type windowPlacement struct {
	Length           uint32
	Flags            uint32
	ShowCmd          uint32
	PtMinPosition    point
	PtMaxPosition    point
	RcNormalPosition winRect
}

// Manager implements types.WindowManager against raw Win32 window APIs.
type Manager struct {
	log     *zap.Logger
	selfPID uint32
}

func NewManager(log *zap.Logger, selfPID uint32) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{log: log, selfPID: selfPID}
}

// EnumerateWindows returns every visible, unowned, non-shell-chrome
// top-level window with a non-blank title and a bounding rectangle of at
// least 100x100 pixels.
func (m *Manager) EnumerateWindows() ([]types.LiveWindow, error) {
	var out []types.LiveWindow
	cb := syscall.NewCallback(func(hwnd, _lparam uintptr) uintptr {
		if lw, ok := m.describeIfIncluded(hwnd); ok {
			out = append(out, lw)
		}
		return 1
	})
	ret, _, _ := procEnumWindows.Call(cb, 0)
	if ret == 0 {
		return nil, fmt.Errorf("EnumWindows failed")
	}
	return out, nil
}

func (m *Manager) describeIfIncluded(hwnd uintptr) (types.LiveWindow, bool) {
	visible, _, _ := procIsWindowVisible.Call(hwnd)
	if visible == 0 {
		return types.LiveWindow{}, false
	}
	owner, _, _ := procGetWindow.Call(hwnd, gwOwner)
	if owner != 0 {
		return types.LiveWindow{}, false
	}

	class := getClassName(hwnd)
	if skipClasses[class] {
		return types.LiveWindow{}, false
	}

	title := getWindowText(hwnd)
	if strings.TrimSpace(title) == "" {
		return types.LiveWindow{}, false
	}

	var r winRect
	procGetWindowRect.Call(hwnd, uintptr(unsafe.Pointer(&r)))
	if (r.Right-r.Left) < 100 || (r.Bottom-r.Top) < 100 {
		return types.LiveWindow{}, false
	}

	var pid uint32
	procGetWindowThreadProcessId.Call(hwnd, uintptr(unsafe.Pointer(&pid)))

	exePath := queryProcessImagePath(pid)
	processName := exeBaseNameNoExt(exePath)

	return types.LiveWindow{
		Handle:         hwnd,
		ExecutablePath: exePath,
		ProcessName:    processName,
		ProcessID:      pid,
		WindowClass:    class,
		Title:          title,
	}, true
}

// Capture reads placement and DPI for one window. Windows-snap
// arrangements can leave the normal-position rectangle stale, so a NORMAL
// window whose actual rectangle drifts more than 15px on any edge has its
// restored rectangle replaced with the actual one; 15 sits above the
// typical 7-14px DWM shadow drift and well below real snap offsets. The
// title is truncated to 200 bytes.
func (m *Manager) Capture(hwnd uintptr, monitor types.Monitor) (types.WindowRecord, error) {
	var wp windowPlacement
	wp.Length = uint32(unsafe.Sizeof(wp))
	ret, _, _ := procGetWindowPlacement.Call(hwnd, uintptr(unsafe.Pointer(&wp)))
	if ret == 0 {
		return types.WindowRecord{}, fmt.Errorf("GetWindowPlacement failed")
	}

	show := showCommandFromWP(wp.ShowCmd)
	restored := types.Rect{
		Left: wp.RcNormalPosition.Left, Top: wp.RcNormalPosition.Top,
		Right: wp.RcNormalPosition.Right, Bottom: wp.RcNormalPosition.Bottom,
	}

	if show == types.ShowNormal {
		var actual winRect
		procGetWindowRect.Call(hwnd, uintptr(unsafe.Pointer(&actual)))
		if edgeDriftExceeds15(restored, actual) {
			restored = types.Rect{Left: actual.Left, Top: actual.Top, Right: actual.Right, Bottom: actual.Bottom}
		}
	}

	dpi := getDpiForWindow(hwnd)

	var pid uint32
	procGetWindowThreadProcessId.Call(hwnd, uintptr(unsafe.Pointer(&pid)))
	exePath := queryProcessImagePath(pid)
	if exePath == "" {
		// Usually an elevated process; the record keeps an empty path and
		// matching falls back to class + title.
		m.log.Debug("window captured without executable path",
			zap.Uint32("pid", pid), zap.Error(errtag.ErrProcessPathInaccessible))
	}

	title := getWindowText(hwnd)
	if len(title) > 200 {
		title = title[:200]
	}

	return types.WindowRecord{
		ExecutablePath: exePath,
		ProcessName:    exeBaseNameNoExt(exePath),
		WindowClass:    getClassName(hwnd),
		TitleSnippet:   title,
		ShowCmd:        show,
		Rect:           restored,
		DPI:            dpi,
	}, nil
}

func edgeDriftExceeds15(restored types.Rect, actual winRect) bool {
	diff := func(a, b int32) int32 {
		if a > b {
			return a - b
		}
		return b - a
	}
	return diff(restored.Left, actual.Left) > 15 ||
		diff(restored.Top, actual.Top) > 15 ||
		diff(restored.Right, actual.Right) > 15 ||
		diff(restored.Bottom, actual.Bottom) > 15
}

// Restore preserves the window's existing placement flag bits, overwrites
// the show-command and the DPI-scaled restored rectangle, and writes the
// placement back. MAXIMIZED needs an extra explicit ShowWindow call;
// SetWindowPlacement alone is unreliable across monitor DPI changes.
func (m *Manager) Restore(hwnd uintptr, rec types.WindowRecord) error {
	var wp windowPlacement
	wp.Length = uint32(unsafe.Sizeof(wp))
	ret, _, _ := procGetWindowPlacement.Call(hwnd, uintptr(unsafe.Pointer(&wp)))
	if ret == 0 {
		return fmt.Errorf("GetWindowPlacement failed")
	}

	currentDPI := getDpiForWindow(hwnd)
	scaled := types.ScaleCoords(rec.Rect, rec.DPI, currentDPI)
	wp.RcNormalPosition = winRect{Left: scaled.Left, Top: scaled.Top, Right: scaled.Right, Bottom: scaled.Bottom}
	wp.ShowCmd = showCmdToWP(rec.ShowCmd)

	ret, _, _ = procSetWindowPlacement.Call(hwnd, uintptr(unsafe.Pointer(&wp)))
	if ret == 0 {
		return fmt.Errorf("SetWindowPlacement failed")
	}

	if rec.ShowCmd == types.ShowMaximized {
		procShowWindow.Call(hwnd, swMaximize)
	}
	return nil
}

// CloseGracefully posts WM_CLOSE to every included window except those
// belonging to excludePID (normally the calling process itself). The
// count returned is advisory only: a window may show a save-confirmation
// dialog that indefinitely extends its lifetime.
func (m *Manager) CloseGracefully(_hwnd uintptr, excludePID uint32) (int, error) {
	windows, err := m.EnumerateWindows()
	if err != nil {
		return 0, err
	}
	count := 0
	for _, w := range windows {
		if w.ProcessID == excludePID {
			continue
		}
		procPostMessageW.Call(w.Handle, wmClose, 0, 0)
		count++
	}
	return count, nil
}

// CountUserWindows returns the live user-window count, excluding windows
// that belong to excludePID.
func (m *Manager) CountUserWindows(excludePID uint32) (int, error) {
	windows, err := m.EnumerateWindows()
	if err != nil {
		return 0, err
	}
	n := 0
	for _, w := range windows {
		if w.ProcessID != excludePID {
			n++
		}
	}
	return n, nil
}

func getDpiForWindow(hwnd uintptr) int {
	if procGetDpiForWindow.Find() != nil {
		return fallbackDPI
	}
	dpi, _, _ := procGetDpiForWindow.Call(hwnd)
	if dpi == 0 {
		return fallbackDPI
	}
	return int(dpi)
}

func showCommandFromWP(cmd uint32) types.ShowCommand {
	switch cmd {
	case swMaximize:
		return types.ShowMaximized
	case swMinimize:
		return types.ShowMinimized
	default:
		return types.ShowNormal
	}
}

func showCmdToWP(s types.ShowCommand) uint32 {
	switch s {
	case types.ShowMaximized:
		return swMaximize
	case types.ShowMinimized:
		return swMinimize
	default:
		return swShowNormal
	}
}

func getWindowText(hwnd uintptr) string {
	length, _, _ := procGetWindowTextLengthW.Call(hwnd)
	if length == 0 {
		return ""
	}
	buf := make([]uint16, length+1)
	procGetWindowTextW.Call(hwnd, uintptr(unsafe.Pointer(&buf[0])), uintptr(len(buf)))
	return syscall.UTF16ToString(buf)
}

func getClassName(hwnd uintptr) string {
	buf := make([]uint16, 256)
	procGetClassNameW.Call(hwnd, uintptr(unsafe.Pointer(&buf[0])), uintptr(len(buf)))
	return syscall.UTF16ToString(buf)
}

func queryProcessImagePath(pid uint32) string {
	if pid == 0 {
		return ""
	}
	handle, _, _ := procOpenProcess.Call(processQueryLimitedInformation, 0, uintptr(pid))
	if handle == 0 {
		return ""
	}
	defer procCloseHandle.Call(handle)

	buf := make([]uint16, 1024)
	size := uint32(len(buf))
	ret, _, _ := procQueryFullProcessImageName.Call(
		handle, 0, uintptr(unsafe.Pointer(&buf[0])), uintptr(unsafe.Pointer(&size)),
	)
	if ret == 0 {
		// ProcessPathInaccessible: empty path, caller falls back to
		// class + title matching.
		return ""
	}
	return syscall.UTF16ToString(buf[:size])
}

func exeBaseNameNoExt(path string) string {
	if path == "" {
		return ""
	}
	base := path
	if i := strings.LastIndexAny(path, `\/`); i >= 0 {
		base = path[i+1:]
	}
	if i := strings.LastIndex(base, "."); i >= 0 {
		base = base[:i]
	}
	return base
}

var _ types.WindowManager = (*Manager)(nil)

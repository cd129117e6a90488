package display

import (
	"crypto/sha256"
	"fmt"
	"sort"
	"strings"
	"syscall"
	"unsafe"

	"github.com/windowanchor/workspaced/internal/errtag"
	"github.com/windowanchor/workspaced/pkg/types"
	"go.uber.org/zap"
	"golang.org/x/sys/windows"
)

var (
	user32 = windows.NewLazyDLL("user32.dll")

	procGetDisplayConfigBufferSizes = user32.NewProc("GetDisplayConfigBufferSizes")
	procQueryDisplayConfig          = user32.NewProc("QueryDisplayConfig")
	procDisplayConfigGetDeviceInfo  = user32.NewProc("DisplayConfigGetDeviceInfo")
	procEnumDisplayMonitors         = user32.NewProc("EnumDisplayMonitors")
	procGetMonitorInfoW             = user32.NewProc("GetMonitorInfoW")
	procMonitorFromWindow           = user32.NewProc("MonitorFromWindow")
)

const (
	monitorDefaultToNearest = 2
	cchDeviceName           = 32
)

type rect struct {
	Left, Top, Right, Bottom int32
}

// monitorInfoEx mirrors MONITORINFOEXW.
type monitorInfoEx struct {
	CbSize    uint32
	RcMonitor rect
	RcWork    rect
	DwFlags   uint32
	SzDevice  [cchDeviceName]uint16
}

// gdiMonitor is the geometry-sweep half of monitor enumeration, keyed by
// OS device name (e.g. \\.\DISPLAY1).
type gdiMonitor struct {
	handle     uintptr
	deviceName string
	rectPx     types.Rect
	isPrimary  bool
}

// Manager implements types.DisplayManager against the Win32 CCD and GDI
// monitor APIs.
type Manager struct {
	log *zap.Logger
}

func NewManager(log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{log: log}
}

// Fingerprint derives the topology identifier for the currently connected
// display set: per-monitor EDID identity strings, sorted, joined, and
// hashed. It is invariant under resolution or refresh-rate changes but
// changes with the physical monitor set. Errors are returned in-band as
// sentinel strings that can never collide with a real fingerprint.
func (m *Manager) Fingerprint() (string, error) {
	ids, err := m.monitorIdentityStrings()
	if err != nil {
		return err.Error(), nil
	}
	if len(ids) == 0 {
		return "no_monitors", nil
	}
	return hashIdentities(ids), nil
}

// hashIdentities sorts before joining so the same monitor set in a
// different enumeration order still hashes identically. The fixed 8-digit
// width keeps user-visible abbreviated prefixes unambiguous.
func hashIdentities(ids []string) string {
	sorted := make([]string, len(ids))
	copy(sorted, ids)
	sort.Strings(sorted)
	joined := strings.Join(sorted, "|")
	sum := sha256.Sum256([]byte(joined))
	return fmt.Sprintf("%x", sum[:4])
}

// monitorIdentityStrings returns the raw per-monitor fingerprint
// components, unsorted, or a sentinel error.
func (m *Manager) monitorIdentityStrings() ([]string, error) {
	paths, err := queryActivePaths()
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		name, err := targetDeviceName(p.TargetInfo.AdapterID, p.TargetInfo.ID)
		if err != nil {
			m.log.Debug("DisplayConfigGetDeviceInfo failed", zap.Error(err))
			continue
		}
		out = append(out, identityString(name))
	}
	return out, nil
}

// identityString formats one monitor's stable identity: EDID manufacturer,
// product code, and connector instance when the EDID ids are valid, else a
// noedid: fallback keyed by the monitor device path.
func identityString(name *displayConfigTargetDeviceName) string {
	if name.EdidManufactureID != 0 && (name.Flags&flagEdidIDsValid) != 0 {
		return fmt.Sprintf("%04X:%04X:%d",
			name.EdidManufactureID, name.EdidProductCodeID, name.ConnectorInstance)
	}
	return "noedid:" + utf16ToString(name.MonitorDevicePath[:])
}

// sentinelErr is an in-band fingerprint value: Error() is the exact string
// a caller stores in place of a hash, while Unwrap keeps the failure kind
// reachable through errors.Is.
type sentinelErr struct {
	msg  string
	kind error
}

func (e sentinelErr) Error() string { return e.msg }
func (e sentinelErr) Unwrap() error { return e.kind }

func queryActivePaths() ([]displayConfigPathInfo, error) {
	var numPaths, numModes uint32
	ret, _, _ := procGetDisplayConfigBufferSizes.Call(
		uintptr(queryOnlyActivePaths),
		uintptr(unsafe.Pointer(&numPaths)),
		uintptr(unsafe.Pointer(&numModes)),
	)
	if ret != errorSuccess {
		return nil, sentinelErr{"error_buffer_size", errtag.ErrBufferQuery}
	}
	if numPaths == 0 {
		return nil, sentinelErr{msg: "no_monitors"}
	}

	paths := make([]displayConfigPathInfo, numPaths)
	modes := make([]displayConfigModeInfo, numModes)
	ret, _, _ = procQueryDisplayConfig.Call(
		uintptr(queryOnlyActivePaths),
		uintptr(unsafe.Pointer(&numPaths)),
		uintptr(unsafe.Pointer(&paths[0])),
		uintptr(unsafe.Pointer(&numModes)),
		uintptr(unsafe.Pointer(&modes[0])),
		0,
	)
	if ret != errorSuccess {
		return nil, sentinelErr{"error_query_config", errtag.ErrConfigQuery}
	}
	return paths[:numPaths], nil
}

func targetDeviceName(adapter luid, targetID uint32) (*displayConfigTargetDeviceName, error) {
	var name displayConfigTargetDeviceName
	name.Header.InfoType = deviceInfoTypeGetTargetName
	name.Header.Size = uint32(unsafe.Sizeof(name))
	name.Header.AdapterID = adapter
	name.Header.ID = targetID

	ret, _, _ := procDisplayConfigGetDeviceInfo.Call(uintptr(unsafe.Pointer(&name)))
	if int32(ret) != errorSuccess {
		return nil, fmt.Errorf("DisplayConfigGetDeviceInfo failed: %d", int32(ret))
	}
	return &name, nil
}

// sourceDeviceName reads the GDI device name of a path's source, which is
// what GetMonitorInfoW reports on the geometry side.
func sourceDeviceName(adapter luid, sourceID uint32) (string, error) {
	var name displayConfigSourceDeviceName
	name.Header.InfoType = deviceInfoTypeGetSourceName
	name.Header.Size = uint32(unsafe.Sizeof(name))
	name.Header.AdapterID = adapter
	name.Header.ID = sourceID

	ret, _, _ := procDisplayConfigGetDeviceInfo.Call(uintptr(unsafe.Pointer(&name)))
	if int32(ret) != errorSuccess {
		return "", fmt.Errorf("DisplayConfigGetDeviceInfo failed: %d", int32(ret))
	}
	return utf16ToString(name.ViewGdiDeviceName[:]), nil
}

// EnumerateMonitors combines a GDI geometry sweep keyed by device name
// with a CCD walk for EDID identity and friendly name; the source-side GDI
// device name links the two. Falls back to GDI-only monitors
// (id = "gdi:<device-name>", friendly name "Monitor N") when the CCD walk
// fails. Output is sorted primary first, then by left edge ascending, with
// indices reassigned after the sort.
func (m *Manager) EnumerateMonitors() ([]types.Monitor, error) {
	gdiMonitors, err := enumGDIMonitors()
	if err != nil {
		return nil, fmt.Errorf("EnumDisplayMonitors: %w", err)
	}
	if len(gdiMonitors) == 0 {
		return nil, sentinelErr{msg: "no_monitors"}
	}

	idByDevice := map[string]string{}
	friendlyByDevice := map[string]string{}

	paths, ccdErr := queryActivePaths()
	if ccdErr == nil {
		for _, p := range paths {
			device, err := sourceDeviceName(p.SourceInfo.AdapterID, p.SourceInfo.ID)
			if err != nil {
				continue
			}
			name, err := targetDeviceName(p.TargetInfo.AdapterID, p.TargetInfo.ID)
			if err != nil {
				continue
			}
			key := strings.ToLower(device)
			idByDevice[key] = identityString(name)
			friendlyByDevice[key] = utf16ToString(name.MonitorFriendlyDeviceName[:])
		}
	} else {
		m.log.Debug("CCD query unavailable, degrading to GDI-only monitor list", zap.Error(ccdErr))
	}

	monitors := make([]types.Monitor, 0, len(gdiMonitors))
	leftOf := make(map[string]int32, len(gdiMonitors))
	for i, g := range gdiMonitors {
		key := strings.ToLower(g.deviceName)
		id, friendly := idByDevice[key], friendlyByDevice[key]
		if id == "" {
			id = "gdi:" + g.deviceName
		}
		if friendly == "" {
			friendly = fmt.Sprintf("Monitor %d", i+1)
		}
		leftOf[g.deviceName] = g.rectPx.Left
		monitors = append(monitors, types.Monitor{
			ID:           id,
			FriendlyName: friendly,
			DeviceName:   g.deviceName,
			WidthPixels:  g.rectPx.Width(),
			HeightPixels: g.rectPx.Height(),
			IsPrimary:    g.isPrimary,
		})
	}

	sort.SliceStable(monitors, func(i, j int) bool {
		if monitors[i].IsPrimary != monitors[j].IsPrimary {
			return monitors[i].IsPrimary
		}
		return leftOf[monitors[i].DeviceName] < leftOf[monitors[j].DeviceName]
	})
	for i := range monitors {
		monitors[i].Index = i
	}
	return monitors, nil
}

func enumGDIMonitors() ([]gdiMonitor, error) {
	var result []gdiMonitor
	cb := syscall.NewCallback(func(hMonitor, _hdcMonitor uintptr, _lprcMonitor uintptr, _lParam uintptr) uintptr {
		var mi monitorInfoEx
		mi.CbSize = uint32(unsafe.Sizeof(mi))
		ret, _, _ := procGetMonitorInfoW.Call(hMonitor, uintptr(unsafe.Pointer(&mi)))
		if ret == 0 {
			return 1
		}
		result = append(result, gdiMonitor{
			handle:     hMonitor,
			deviceName: utf16ToString(mi.SzDevice[:]),
			rectPx: types.Rect{
				Left: mi.RcMonitor.Left, Top: mi.RcMonitor.Top,
				Right: mi.RcMonitor.Right, Bottom: mi.RcMonitor.Bottom,
			},
			isPrimary: mi.DwFlags&1 != 0,
		})
		return 1
	})
	ret, _, _ := procEnumDisplayMonitors.Call(0, 0, cb, 0)
	if ret == 0 {
		return nil, fmt.Errorf("EnumDisplayMonitors returned FALSE")
	}
	return result, nil
}

// MonitorForWindow asks the OS for hwnd's nearest monitor and matches it
// back into the supplied slice by device-name equality (case-insensitive).
// On no match it returns a synthetic "gdi:" id, which still compares equal
// to monitors produced by the GDI-only fallback path.
func (m *Manager) MonitorForWindow(hwnd uintptr, monitors []types.Monitor) (types.Monitor, error) {
	hMonitor, _, _ := procMonitorFromWindow.Call(hwnd, uintptr(monitorDefaultToNearest))
	if hMonitor == 0 {
		return types.Monitor{}, fmt.Errorf("MonitorFromWindow returned NULL")
	}
	var mi monitorInfoEx
	mi.CbSize = uint32(unsafe.Sizeof(mi))
	ret, _, _ := procGetMonitorInfoW.Call(hMonitor, uintptr(unsafe.Pointer(&mi)))
	if ret == 0 {
		return types.Monitor{}, fmt.Errorf("GetMonitorInfoW failed")
	}
	deviceName := utf16ToString(mi.SzDevice[:])
	for _, mon := range monitors {
		if strings.EqualFold(mon.DeviceName, deviceName) {
			return mon, nil
		}
	}
	return types.Monitor{
		ID:           "gdi:" + deviceName,
		FriendlyName: deviceName,
		DeviceName:   deviceName,
	}, nil
}

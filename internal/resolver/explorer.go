package resolver

import (
	"fmt"
	"runtime"

	"github.com/go-ole/go-ole"
	"github.com/go-ole/go-ole/oleutil"
	"go.uber.org/zap"
)

// explorerAutomation drives the Shell.Application COM object to read the
// folder path an open Explorer window is currently showing.
type explorerAutomation struct {
	log *zap.Logger
}

func newExplorerAutomation(log *zap.Logger) *explorerAutomation {
	if log == nil {
		log = zap.NewNop()
	}
	return &explorerAutomation{log: log}
}

// folderForWindow walks Shell.Application's Windows() collection looking
// for the entry whose HWND matches hwnd, returning its Folder.Self.Path.
func (e *explorerAutomation) folderForWindow(hwnd uintptr) (string, bool) {
	var result string
	err := e.withShell(func(shell *ole.IDispatch) error {
		windowsVar, err := oleutil.CallMethod(shell, "Windows")
		if err != nil {
			return fmt.Errorf("Shell.Application.Windows: %w", err)
		}
		defer windowsVar.Clear()
		windows := windowsVar.ToIDispatch()
		if windows == nil {
			return fmt.Errorf("Windows() returned no dispatch")
		}
		defer windows.Release()

		countVar, err := oleutil.GetProperty(windows, "Count")
		if err != nil {
			return fmt.Errorf("Windows.Count: %w", err)
		}
		count := int(countVar.Val)
		countVar.Clear()

		for i := 0; i < count; i++ {
			itemVar, err := oleutil.CallMethod(windows, "Item", i)
			if err != nil {
				continue
			}
			item := itemVar.ToIDispatch()
			if item == nil {
				itemVar.Clear()
				continue
			}

			hwndVar, err := oleutil.GetProperty(item, "HWND")
			if err == nil && uintptr(hwndVar.Val) == hwnd {
				hwndVar.Clear()
				path, ok := e.folderPath(item)
				item.Release()
				itemVar.Clear()
				if ok {
					result = path
					return nil
				}
				continue
			}
			if err == nil {
				hwndVar.Clear()
			}
			item.Release()
			itemVar.Clear()
		}
		return fmt.Errorf("no matching Explorer window")
	})
	if err != nil {
		e.log.Debug("Explorer fast path unavailable", zap.Error(err))
		return "", false
	}
	return result, true
}

// folderPath walks item.Document.Folder.Self.Path, the automation chain an
// Explorer window exposes for the folder it is currently showing.
func (e *explorerAutomation) folderPath(item *ole.IDispatch) (string, bool) {
	docVar, err := oleutil.GetProperty(item, "Document")
	if err != nil {
		return "", false
	}
	defer docVar.Clear()
	doc := docVar.ToIDispatch()
	if doc == nil {
		return "", false
	}
	defer doc.Release()

	folderVar, err := oleutil.GetProperty(doc, "Folder")
	if err != nil {
		return "", false
	}
	defer folderVar.Clear()
	folder := folderVar.ToIDispatch()
	if folder == nil {
		return "", false
	}
	defer folder.Release()

	selfVar, err := oleutil.GetProperty(folder, "Self")
	if err != nil {
		return "", false
	}
	defer selfVar.Clear()
	self := selfVar.ToIDispatch()
	if self == nil {
		return "", false
	}
	defer self.Release()

	pathVar, err := oleutil.GetProperty(self, "Path")
	if err != nil {
		return "", false
	}
	defer pathVar.Clear()
	return pathVar.ToString(), true
}

func (e *explorerAutomation) withShell(action func(shell *ole.IDispatch) error) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if err := ole.CoInitializeEx(0, ole.COINIT_APARTMENTTHREADED); err != nil {
		return fmt.Errorf("CoInitializeEx: %w", err)
	}
	defer ole.CoUninitialize()

	unknown, err := oleutil.CreateObject("Shell.Application")
	if err != nil {
		return fmt.Errorf("CreateObject(Shell.Application): %w", err)
	}
	defer unknown.Release()

	shell, err := unknown.QueryInterface(ole.IID_IDispatch)
	if err != nil {
		return fmt.Errorf("QueryInterface(IID_IDispatch): %w", err)
	}
	defer shell.Release()

	return action(shell)
}

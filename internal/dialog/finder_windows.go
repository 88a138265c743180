//go:build windows

package dialog

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	user32             = windows.NewLazySystemDLL("user32.dll")
	procGetWindowTextW = user32.NewProc("GetWindowTextW")
	procPostMessageW   = user32.NewProc("PostMessageW")
)

const (
	wmCommand = 0x0111
	idOK      = 1
)

// EnumWindows callbacks are a limited resource, so one is created for the
// process and its output is guarded by enumMu.
var (
	enumMu      sync.Mutex
	enumHandles []windows.HWND
	enumProc    = windows.NewCallback(func(hwnd windows.HWND, _ uintptr) uintptr {
		enumHandles = append(enumHandles, hwnd)
		return 1
	})
)

// WindowsFinder scans the desktop's top-level windows. When process is set,
// only windows owned by an executable of that name are considered.
type WindowsFinder struct {
	process string

	mu    sync.Mutex
	names map[uint32]string
}

func NewFinder(process string) Finder {
	return &WindowsFinder{process: process, names: make(map[uint32]string)}
}

func (f *WindowsFinder) Find(sig Signature) (Window, bool, error) {
	handles, err := topLevelWindows()
	if err != nil {
		return Window{}, false, err
	}
	for _, h := range handles {
		if !windows.IsWindowVisible(h) {
			continue
		}
		w := Window{Handle: uintptr(h), Class: className(h), Title: windowText(h)}
		if !sig.Matches(w) {
			continue
		}
		var pid uint32
		if _, err := windows.GetWindowThreadProcessId(h, &pid); err != nil {
			continue
		}
		w.PID = pid
		if f.process != "" && !strings.EqualFold(f.imageName(pid), f.process) {
			continue
		}
		return w, true, nil
	}
	return Window{}, false, nil
}

// Dismiss posts IDOK, the same as pressing the dialog's default button.
func (f *WindowsFinder) Dismiss(w Window) error {
	r, _, err := procPostMessageW.Call(w.Handle, wmCommand, idOK, 0)
	if r == 0 {
		return fmt.Errorf("post WM_COMMAND to %q: %w", w.Title, err)
	}
	return nil
}

func (f *WindowsFinder) imageName(pid uint32) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if name, ok := f.names[pid]; ok {
		return name
	}
	h, err := windows.OpenProcess(windows.PROCESS_QUERY_LIMITED_INFORMATION, false, pid)
	if err != nil {
		return ""
	}
	defer windows.CloseHandle(h)

	buf := make([]uint16, windows.MAX_PATH)
	size := uint32(len(buf))
	if err := windows.QueryFullProcessImageName(h, 0, &buf[0], &size); err != nil {
		return ""
	}
	name := filepath.Base(windows.UTF16ToString(buf[:size]))
	f.names[pid] = name
	return name
}

func topLevelWindows() ([]windows.HWND, error) {
	enumMu.Lock()
	defer enumMu.Unlock()
	enumHandles = enumHandles[:0]
	if err := windows.EnumWindows(enumProc, nil); err != nil {
		return nil, fmt.Errorf("enum windows: %w", err)
	}
	out := make([]windows.HWND, len(enumHandles))
	copy(out, enumHandles)
	return out, nil
}

func className(h windows.HWND) string {
	buf := make([]uint16, 256)
	n, err := windows.GetClassName(h, &buf[0], int32(len(buf)))
	if err != nil {
		return ""
	}
	return windows.UTF16ToString(buf[:n])
}

func windowText(h windows.HWND) string {
	buf := make([]uint16, 512)
	n, _, _ := procGetWindowTextW.Call(uintptr(h), uintptr(unsafe.Pointer(&buf[0])), uintptr(len(buf)))
	return windows.UTF16ToString(buf[:n])
}

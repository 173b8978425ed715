//go:build windows

package window

import (
	"context"
	"errors"
	"sync"
	"time"
	"unsafe"

	"golang.org/x/sys/windows"
)

const (
	gwlStyle      = -16
	wsMinimizeBox = 0x00020000
	swMinimize    = 6
	gwOwner       = 4
	wmNull        = 0x0000
	wmSysCommand  = 0x0112
	scMinimize    = 0xF020
	smtoBlock     = 0x0001
	smtoAbortHung = 0x0002
)

var (
	moduser32               = windows.NewLazySystemDLL("user32.dll")
	procShowWindow          = moduser32.NewProc("ShowWindow")
	procIsIconic            = moduser32.NewProc("IsIconic")
	procGetWindow           = moduser32.NewProc("GetWindow")
	procPostMessageW        = moduser32.NewProc("PostMessageW")
	procSendMessageTimeoutW = moduser32.NewProc("SendMessageTimeoutW")
	procGetWindowLong       = moduser32.NewProc(getWindowLongName())
)

func getWindowLongName() string {
	if unsafe.Sizeof(uintptr(0)) == 8 {
		return "GetWindowLongPtrW"
	}
	return "GetWindowLongW"
}

// EnumWindows is synchronous, so one callback serves every enumeration.
var (
	enumMu      sync.Mutex
	enumVisit   func(windows.HWND) bool
	enumStopped bool
	enumProc    = windows.NewCallback(func(hwnd windows.HWND, _ uintptr) uintptr {
		if enumVisit(hwnd) {
			return 1
		}
		enumStopped = true
		return 0
	})
)

func enumWindows(visit func(windows.HWND) bool) error {
	enumMu.Lock()
	defer enumMu.Unlock()

	enumVisit = visit
	enumStopped = false
	defer func() { enumVisit = nil }()

	if err := windows.EnumWindows(enumProc, nil); err != nil && !enumStopped {
		return err
	}
	return nil
}

// Win32 is the desktop window surface.
type Win32 struct{}

// NewWin32 returns the Win32 window surface.
func NewWin32() *Win32 {
	return &Win32{}
}

func (Win32) VisibleWindows(context.Context) ([]Handle, error) {
	var handles []Handle
	err := enumWindows(func(hwnd windows.HWND) bool {
		if windows.IsWindowVisible(hwnd) {
			handles = append(handles, Handle(hwnd))
		}
		return true
	})
	return handles, err
}

// MainWindow picks the first visible, unowned top-level window of pid.
func (Win32) MainWindow(_ context.Context, pid int) (Handle, error) {
	var found Handle
	err := enumWindows(func(hwnd windows.HWND) bool {
		var owner uint32
		if _, err := windows.GetWindowThreadProcessId(hwnd, &owner); err != nil || int(owner) != pid {
			return true
		}
		if !windows.IsWindowVisible(hwnd) || ownerOf(hwnd) != 0 {
			return true
		}
		found = Handle(hwnd)
		return false
	})
	return found, err
}

func ownerOf(hwnd windows.HWND) Handle {
	r, _, _ := procGetWindow.Call(uintptr(hwnd), gwOwner)
	return Handle(r)
}

func (Win32) Inspect(_ context.Context, h Handle) (Info, error) {
	hwnd := windows.HWND(h)
	if !windows.IsWindow(hwnd) {
		return Info{}, errors.New("window no longer exists")
	}

	buf := make([]uint16, 256)
	n, err := windows.GetClassName(hwnd, &buf[0], int32(len(buf)))
	if err != nil {
		return Info{}, err
	}

	style, _, _ := procGetWindowLong.Call(uintptr(hwnd), uintptr(gwlStyleArg()))
	return Info{
		Class:       windows.UTF16ToString(buf[:n]),
		Visible:     windows.IsWindowVisible(hwnd),
		MinimizeBox: style&wsMinimizeBox != 0,
		Owner:       ownerOf(hwnd),
	}, nil
}

// gwlStyleArg sign-extends GWL_STYLE to pointer width.
func gwlStyleArg() uintptr {
	idx := int32(gwlStyle)
	return uintptr(idx)
}

func (Win32) Exists(_ context.Context, h Handle) bool {
	return windows.IsWindow(windows.HWND(h))
}

func (Win32) Iconic(_ context.Context, h Handle) bool {
	r, _, _ := procIsIconic.Call(uintptr(h))
	return r != 0
}

func (Win32) Minimize(_ context.Context, h Handle) error {
	// ShowWindow returns the previous visibility, not success.
	procShowWindow.Call(uintptr(h), swMinimize)
	return nil
}

func (Win32) PostMinimize(_ context.Context, h Handle) error {
	r, _, err := procPostMessageW.Call(uintptr(h), wmSysCommand, scMinimize, 0)
	if r == 0 {
		return err
	}
	return nil
}

func (Win32) Responsive(_ context.Context, h Handle, timeout time.Duration) bool {
	var result uintptr
	r, _, _ := procSendMessageTimeoutW.Call(
		uintptr(h),
		wmNull,
		0,
		0,
		smtoBlock|smtoAbortHung,
		uintptr(timeout.Milliseconds()),
		uintptr(unsafe.Pointer(&result)),
	)
	return r != 0
}

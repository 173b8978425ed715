//go:build windows

package launch

import (
	"context"
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"
)

const (
	seeMaskNoCloseProcess = 0x00000040
	seeMaskNoAsync        = 0x00000100
	seeMaskFlagNoUI       = 0x00000400

	swShowNormal = 1
	stillActive  = 259
)

var (
	modshell32          = windows.NewLazySystemDLL("shell32.dll")
	procShellExecuteExW = modshell32.NewProc("ShellExecuteExW")
)

type shellExecuteInfo struct {
	cbSize       uint32
	fMask        uint32
	hwnd         windows.HWND
	lpVerb       *uint16
	lpFile       *uint16
	lpParameters *uint16
	lpDirectory  *uint16
	nShow        int32
	hInstApp     windows.Handle
	lpIDList     uintptr
	lpClass      *uint16
	hkeyClass    windows.Handle
	dwHotKey     uint32
	hIcon        windows.Handle
	hProcess     windows.Handle
}

// ShellLauncher starts targets through the shell so documents and shortcuts
// open with their associated program.
type ShellLauncher struct{}

// NewLauncher returns the platform launcher.
func NewLauncher() Launcher {
	return ShellLauncher{}
}

func (ShellLauncher) Launch(_ context.Context, req Request) (Process, error) {
	file, err := windows.UTF16PtrFromString(req.Path)
	if err != nil {
		return nil, err
	}
	info := shellExecuteInfo{
		fMask:  seeMaskNoCloseProcess | seeMaskNoAsync | seeMaskFlagNoUI,
		lpFile: file,
		nShow:  swShowNormal,
	}
	info.cbSize = uint32(unsafe.Sizeof(info))
	if req.Args != "" {
		if info.lpParameters, err = windows.UTF16PtrFromString(req.Args); err != nil {
			return nil, err
		}
	}
	if req.Dir != "" {
		if info.lpDirectory, err = windows.UTF16PtrFromString(req.Dir); err != nil {
			return nil, err
		}
	}
	if req.StartMinimized {
		info.nShow = windows.SW_SHOWMINNOACTIVE
	}

	r, _, callErr := procShellExecuteExW.Call(uintptr(unsafe.Pointer(&info)))
	if r == 0 {
		return nil, fmt.Errorf("start %s: %w", req.Path, callErr)
	}
	// Documents handed to an already running program yield no process.
	if info.hProcess == 0 {
		return nil, nil
	}
	pid, _ := windows.GetProcessId(info.hProcess)
	return &shellProcess{handle: info.hProcess, pid: int(pid)}, nil
}

type shellProcess struct {
	handle windows.Handle
	pid    int
}

func (p *shellProcess) PID() int {
	return p.pid
}

func (p *shellProcess) Exited() bool {
	if p.handle == 0 {
		return true
	}
	var code uint32
	if err := windows.GetExitCodeProcess(p.handle, &code); err != nil {
		return true
	}
	return code != stillActive
}

func (p *shellProcess) Release() error {
	if p.handle == 0 {
		return nil
	}
	err := windows.CloseHandle(p.handle)
	p.handle = 0
	return err
}

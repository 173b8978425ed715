//go:build windows

package power

import (
	"context"
	"fmt"
	"unsafe"

	"github.com/google/uuid"
	"golang.org/x/sys/windows"
)

const (
	accessScheme    = 16
	errorNoMoreItem = 259
)

var (
	modpowrprof               = windows.NewLazySystemDLL("powrprof.dll")
	procPowerSetActiveScheme  = modpowrprof.NewProc("PowerSetActiveScheme")
	procPowerGetActiveScheme  = modpowrprof.NewProc("PowerGetActiveScheme")
	procPowerEnumerate        = modpowrprof.NewProc("PowerEnumerate")
	procPowerReadFriendlyName = modpowrprof.NewProc("PowerReadFriendlyName")
)

// PowrProf manages Windows power schemes.
type PowrProf struct{}

// NewPowrProf returns the Windows power switcher.
func NewPowrProf() *PowrProf {
	return &PowrProf{}
}

func toGUID(id uuid.UUID) windows.GUID {
	// uuid is big-endian; GUID's first three fields are little-endian values.
	return windows.GUID{
		Data1: uint32(id[0])<<24 | uint32(id[1])<<16 | uint32(id[2])<<8 | uint32(id[3]),
		Data2: uint16(id[4])<<8 | uint16(id[5]),
		Data3: uint16(id[6])<<8 | uint16(id[7]),
		Data4: [8]byte(id[8:16]),
	}
}

func fromGUID(g windows.GUID) uuid.UUID {
	var id uuid.UUID
	id[0], id[1], id[2], id[3] = byte(g.Data1>>24), byte(g.Data1>>16), byte(g.Data1>>8), byte(g.Data1)
	id[4], id[5] = byte(g.Data2>>8), byte(g.Data2)
	id[6], id[7] = byte(g.Data3>>8), byte(g.Data3)
	copy(id[8:], g.Data4[:])
	return id
}

func (PowrProf) Activate(_ context.Context, id uuid.UUID) error {
	guid := toGUID(id)
	r, _, _ := procPowerSetActiveScheme.Call(0, uintptr(unsafe.Pointer(&guid)))
	if r != 0 {
		return fmt.Errorf("PowerSetActiveScheme %s: %w", id, windows.Errno(r))
	}
	return nil
}

func (PowrProf) Plans(_ context.Context) ([]Plan, error) {
	active, _ := activeScheme()

	var plans []Plan
	for index := uint32(0); ; index++ {
		var guid windows.GUID
		size := uint32(unsafe.Sizeof(guid))
		r, _, _ := procPowerEnumerate.Call(0, 0, 0, accessScheme, uintptr(index), uintptr(unsafe.Pointer(&guid)), uintptr(unsafe.Pointer(&size)))
		if r == errorNoMoreItem {
			break
		}
		if r != 0 {
			return nil, fmt.Errorf("PowerEnumerate: %w", windows.Errno(r))
		}
		id := fromGUID(guid)
		plans = append(plans, Plan{ID: id, Name: friendlyName(&guid), Active: id == active})
	}
	return plans, nil
}

func activeScheme() (uuid.UUID, error) {
	var guid *windows.GUID
	r, _, _ := procPowerGetActiveScheme.Call(0, uintptr(unsafe.Pointer(&guid)))
	if r != 0 {
		return uuid.Nil, windows.Errno(r)
	}
	defer windows.LocalFree(windows.Handle(unsafe.Pointer(guid)))
	return fromGUID(*guid), nil
}

func friendlyName(guid *windows.GUID) string {
	var size uint32
	procPowerReadFriendlyName.Call(0, uintptr(unsafe.Pointer(guid)), 0, 0, 0, uintptr(unsafe.Pointer(&size)))
	if size == 0 {
		return guid.String()
	}
	buf := make([]uint16, (size+1)/2)
	r, _, _ := procPowerReadFriendlyName.Call(0, uintptr(unsafe.Pointer(guid)), 0, 0, uintptr(unsafe.Pointer(&buf[0])), uintptr(unsafe.Pointer(&size)))
	if r != 0 {
		return guid.String()
	}
	return windows.UTF16ToString(buf)
}

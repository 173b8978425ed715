//go:build windows

package audio

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"
)

// MMDevice API surface. Vtable slots count IUnknown's three methods.
const (
	clsctxAll = 0x17
	stgmRead  = 0

	deviceStateActive     = 0x1
	deviceStateDisabled   = 0x2
	deviceStateNotPresent = 0x4
	deviceStateUnplugged  = 0x8
	deviceStateAll        = 0xF

	vtLPWStr = 31

	slotRelease = 2

	slotEnumAudioEndpoints      = 3
	slotGetDefaultAudioEndpoint = 4
	slotGetDevice               = 5

	slotCollectionGetCount = 3
	slotCollectionItem     = 4

	slotDeviceActivate          = 3
	slotDeviceOpenPropertyStore = 4
	slotDeviceGetID             = 5
	slotDeviceGetState          = 6

	slotPropertyStoreGetValue = 5

	slotSetMasterVolumeLevelScalar = 7

	slotPolicySetDefaultEndpoint    = 13
	slotPolicySetEndpointVisibility = 14
)

var (
	clsidMMDeviceEnumerator = mustGUID("{BCDE0395-E52F-467C-8E3D-C4579291692E}")
	iidIMMDeviceEnumerator  = mustGUID("{A95664D2-9614-4F35-A746-DE8DB63617E6}")
	iidIAudioEndpointVolume = mustGUID("{5CDF2C82-841E-4546-9722-0CF74078229A}")
	clsidPolicyConfig       = mustGUID("{870AF99C-171D-4F9E-AF0D-E63DF40C2BC9}")
	iidIPolicyConfig        = mustGUID("{F8679F50-850A-41CF-9C72-430F290290C8}")

	pkeyDeviceFriendlyName = propertyKey{fmtid: mustGUID("{A45C254E-DF1C-4EFD-8020-67D146A850E0}"), pid: 14}
	pkeyDeviceInstanceID   = propertyKey{fmtid: mustGUID("{78C34FC8-104A-4ACA-9EA4-524D52996E57}"), pid: 256}

	modole32             = windows.NewLazySystemDLL("ole32.dll")
	procCoCreateInstance = modole32.NewProc("CoCreateInstance")
	procPropVariantClear = modole32.NewProc("PropVariantClear")
)

func mustGUID(s string) windows.GUID {
	guid, err := windows.GUIDFromString(s)
	if err != nil {
		panic(err)
	}
	return guid
}

type propertyKey struct {
	fmtid windows.GUID
	pid   uint32
}

type propVariant struct {
	vt        uint16
	reserved1 uint16
	reserved2 uint16
	reserved3 uint16
	val       unsafe.Pointer
	pad       uintptr
}

type comObject struct {
	ptr unsafe.Pointer
}

func (o comObject) call(slot int, args ...uintptr) uintptr {
	vtbl := *(*unsafe.Pointer)(o.ptr)
	fn := *(*uintptr)(unsafe.Add(vtbl, uintptr(slot)*unsafe.Sizeof(uintptr(0))))
	hr, _, _ := syscall.SyscallN(fn, append([]uintptr{uintptr(o.ptr)}, args...)...)
	return hr
}

func (o comObject) release() {
	if o.ptr != nil {
		o.call(slotRelease)
	}
}

func hresult(op string, hr uintptr) error {
	if int32(hr) < 0 {
		return fmt.Errorf("%s: HRESULT 0x%08X", op, uint32(hr))
	}
	return nil
}

func coCreate(clsid, iid *windows.GUID) (comObject, error) {
	var out unsafe.Pointer
	hr, _, _ := procCoCreateInstance.Call(
		uintptr(unsafe.Pointer(clsid)),
		0,
		clsctxAll,
		uintptr(unsafe.Pointer(iid)),
		uintptr(unsafe.Pointer(&out)),
	)
	if err := hresult("CoCreateInstance "+clsid.String(), hr); err != nil {
		return comObject{}, err
	}
	return comObject{ptr: out}, nil
}

// comWorker runs every COM call on one OS thread that owns the apartment.
type comWorker struct {
	jobs chan func()
	quit chan struct{}
}

func startCOMWorker() (*comWorker, error) {
	w := &comWorker{jobs: make(chan func()), quit: make(chan struct{})}
	ready := make(chan error, 1)
	go w.loop(ready)
	if err := <-ready; err != nil {
		return nil, err
	}
	return w, nil
}

func (w *comWorker) loop(ready chan<- error) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if err := windows.CoInitializeEx(0, windows.COINIT_MULTITHREADED); err != nil {
		ready <- fmt.Errorf("initialize COM: %w", err)
		return
	}
	defer windows.CoUninitialize()
	ready <- nil

	for {
		select {
		case job := <-w.jobs:
			job()
		case <-w.quit:
			return
		}
	}
}

func (w *comWorker) do(ctx context.Context, fn func() error) error {
	result := make(chan error, 1)
	select {
	case w.jobs <- func() { result <- fn() }:
	case <-ctx.Done():
		return ctx.Err()
	}
	return <-result
}

func (w *comWorker) stop() {
	close(w.quit)
}

// oneShot runs fn on a fresh COM thread with a device enumerator.
func oneShot(ctx context.Context, fn func(enum comObject) error) error {
	worker, err := startCOMWorker()
	if err != nil {
		return err
	}
	defer worker.stop()

	return worker.do(ctx, func() error {
		enum, err := coCreate(&clsidMMDeviceEnumerator, &iidIMMDeviceEnumerator)
		if err != nil {
			return err
		}
		defer enum.release()
		return fn(enum)
	})
}

// CoreAudioBackend drives the Windows MMDevice API.
type CoreAudioBackend struct{}

// NewCoreAudioBackend returns the Windows audio backend.
func NewCoreAudioBackend() *CoreAudioBackend {
	return &CoreAudioBackend{}
}

func dataFlow(flow Flow) uintptr {
	if flow == FlowRecording {
		return 1 // eCapture
	}
	return 0 // eRender
}

// Devices enumerates endpoints of flow in every state.
func (b *CoreAudioBackend) Devices(ctx context.Context, flow Flow) ([]DeviceInfo, error) {
	var devices []DeviceInfo
	err := oneShot(ctx, func(enum comObject) error {
		var collPtr unsafe.Pointer
		hr := enum.call(slotEnumAudioEndpoints, dataFlow(flow), deviceStateAll, uintptr(unsafe.Pointer(&collPtr)))
		if err := hresult("EnumAudioEndpoints", hr); err != nil {
			return err
		}
		collection := comObject{ptr: collPtr}
		defer collection.release()

		var count uint32
		if err := hresult("GetCount", collection.call(slotCollectionGetCount, uintptr(unsafe.Pointer(&count)))); err != nil {
			return err
		}

		devices = make([]DeviceInfo, 0, count)
		for i := uint32(0); i < count; i++ {
			var devPtr unsafe.Pointer
			if err := hresult("Item", collection.call(slotCollectionItem, uintptr(i), uintptr(unsafe.Pointer(&devPtr)))); err != nil {
				continue
			}
			device := comObject{ptr: devPtr}
			info, err := describeEndpoint(device, flow)
			device.release()
			if err != nil {
				continue
			}
			devices = append(devices, info)
		}
		return nil
	})
	return devices, err
}

func describeEndpoint(device comObject, flow Flow) (DeviceInfo, error) {
	var idPtr *uint16
	if err := hresult("GetId", device.call(slotDeviceGetID, uintptr(unsafe.Pointer(&idPtr)))); err != nil {
		return DeviceInfo{}, err
	}
	id := windows.UTF16PtrToString(idPtr)
	windows.CoTaskMemFree(unsafe.Pointer(idPtr))

	var state uint32
	if err := hresult("GetState", device.call(slotDeviceGetState, uintptr(unsafe.Pointer(&state)))); err != nil {
		return DeviceInfo{}, err
	}

	info := DeviceInfo{ID: id, State: endpointState(state), Flow: flow}

	var storePtr unsafe.Pointer
	if hresult("OpenPropertyStore", device.call(slotDeviceOpenPropertyStore, stgmRead, uintptr(unsafe.Pointer(&storePtr)))) == nil {
		store := comObject{ptr: storePtr}
		info.FriendlyName = stringProperty(store, &pkeyDeviceFriendlyName)
		info.InstanceID = stringProperty(store, &pkeyDeviceInstanceID)
		store.release()
	}
	return info, nil
}

func stringProperty(store comObject, key *propertyKey) string {
	var value propVariant
	hr := store.call(slotPropertyStoreGetValue, uintptr(unsafe.Pointer(key)), uintptr(unsafe.Pointer(&value)))
	if hresult("GetValue", hr) != nil {
		return ""
	}
	defer procPropVariantClear.Call(uintptr(unsafe.Pointer(&value)))
	if value.vt != vtLPWStr || value.val == nil {
		return ""
	}
	return windows.UTF16PtrToString((*uint16)(value.val))
}

func endpointState(state uint32) State {
	switch {
	case state&deviceStateActive != 0:
		return StateActive
	case state&deviceStateDisabled != 0:
		return StateDisabled
	case state&deviceStateUnplugged != 0:
		return StateUnplugged
	case state&deviceStateNotPresent != 0:
		return StateNotPresent
	default:
		return StateUnknown
	}
}

// SetDeviceVolume sets the master scalar of one endpoint.
func (b *CoreAudioBackend) SetDeviceVolume(ctx context.Context, deviceID string, scalar float32) error {
	id, err := windows.UTF16PtrFromString(deviceID)
	if err != nil {
		return err
	}
	return oneShot(ctx, func(enum comObject) error {
		var devPtr unsafe.Pointer
		if err := hresult("GetDevice", enum.call(slotGetDevice, uintptr(unsafe.Pointer(id)), uintptr(unsafe.Pointer(&devPtr)))); err != nil {
			return err
		}
		device := comObject{ptr: devPtr}
		defer device.release()
		return setMasterScalar(device, scalar)
	})
}

// SetDefaultVolume sets the master scalar of the multimedia default endpoint.
func (b *CoreAudioBackend) SetDefaultVolume(ctx context.Context, flow Flow, scalar float32) error {
	return oneShot(ctx, func(enum comObject) error {
		var devPtr unsafe.Pointer
		hr := enum.call(slotGetDefaultAudioEndpoint, dataFlow(flow), uintptr(RoleMultimedia), uintptr(unsafe.Pointer(&devPtr)))
		if err := hresult("GetDefaultAudioEndpoint", hr); err != nil {
			return err
		}
		device := comObject{ptr: devPtr}
		defer device.release()
		return setMasterScalar(device, scalar)
	})
}

func setMasterScalar(device comObject, scalar float32) error {
	var volPtr unsafe.Pointer
	hr := device.call(slotDeviceActivate, uintptr(unsafe.Pointer(&iidIAudioEndpointVolume)), clsctxAll, 0, uintptr(unsafe.Pointer(&volPtr)))
	if err := hresult("Activate IAudioEndpointVolume", hr); err != nil {
		return err
	}
	volume := comObject{ptr: volPtr}
	defer volume.release()

	scalar = float32(math.Min(math.Max(float64(scalar), 0), 1))
	return hresult("SetMasterVolumeLevelScalar", volume.call(slotSetMasterVolumeLevelScalar, uintptr(math.Float32bits(scalar)), 0))
}

// NewPolicyClient creates the undocumented policy-config object on a
// dedicated COM thread that lives until Close.
func (b *CoreAudioBackend) NewPolicyClient(ctx context.Context) (PolicyClient, error) {
	worker, err := startCOMWorker()
	if err != nil {
		return nil, err
	}

	client := &corePolicy{worker: worker}
	err = worker.do(ctx, func() error {
		obj, err := coCreate(&clsidPolicyConfig, &iidIPolicyConfig)
		if err != nil {
			return err
		}
		client.config = obj
		return nil
	})
	if err != nil {
		worker.stop()
		return nil, fmt.Errorf("create policy config client: %w", err)
	}
	return client, nil
}

type corePolicy struct {
	worker *comWorker
	config comObject
}

var errPolicyClosed = errors.New("policy config client is closed")

func (p *corePolicy) SetDefaultEndpoint(ctx context.Context, deviceID string, role Role) error {
	if p.worker == nil {
		return errPolicyClosed
	}
	id, err := windows.UTF16PtrFromString(deviceID)
	if err != nil {
		return err
	}
	return p.worker.do(ctx, func() error {
		hr := p.config.call(slotPolicySetDefaultEndpoint, uintptr(unsafe.Pointer(id)), uintptr(role))
		return hresult("SetDefaultEndpoint "+role.String(), hr)
	})
}

func (p *corePolicy) SetEndpointVisibility(ctx context.Context, deviceID string, visible bool) error {
	if p.worker == nil {
		return errPolicyClosed
	}
	id, err := windows.UTF16PtrFromString(deviceID)
	if err != nil {
		return err
	}
	var flag uintptr
	if visible {
		flag = 1
	}
	return p.worker.do(ctx, func() error {
		return hresult("SetEndpointVisibility", p.config.call(slotPolicySetEndpointVisibility, uintptr(unsafe.Pointer(id)), flag))
	})
}

func (p *corePolicy) Close() error {
	if p.worker == nil {
		return nil
	}
	_ = p.worker.do(context.Background(), func() error {
		p.config.release()
		return nil
	})
	p.worker.stop()
	p.worker = nil
	return nil
}

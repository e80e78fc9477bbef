// Package gpu is the GPU Buffer Set & Shader Orchestrator: it owns the
// headless wgpu device and the named buffer set, and schedules the four
// compute passes (Count, Prefix Sum, Re-Pack, Integration) each tick.
package gpu

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
)

// Logger is the minimal logging surface this package needs. It is satisfied
// structurally by wrach.Logger — no import of the root package is required,
// which would otherwise create an import cycle.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

// Device is a headless wgpu instance/adapter/device/queue bundle: no
// surface, no swapchain. The windowing layer is out of scope for this core,
// so unlike the teacher's createGpuState there is nothing here to bind to a
// window handle.
type Device struct {
	Instance *wgpu.Instance
	Adapter  *wgpu.Adapter
	Device   *wgpu.Device
	Queue    *wgpu.Queue
}

// NewHeadlessDevice requests a high-performance adapter and device with no
// compatible surface, then releases the instance (the device and queue hold
// their own references, matching the teacher's createGpuState lifecycle).
func NewHeadlessDevice(label string) (*Device, error) {
	instance := wgpu.CreateInstance(nil)
	defer instance.Release()

	adapter, err := instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		PowerPreference: wgpu.PowerPreferenceHighPerformance,
	})
	if err != nil {
		return nil, fmt.Errorf("wrach/gpu: request adapter: %w", err)
	}

	device, err := adapter.RequestDevice(&wgpu.DeviceDescriptor{
		Label:            label,
		RequiredFeatures: nil,
		RequiredLimits:   nil,
	})
	if err != nil {
		return nil, fmt.Errorf("wrach/gpu: request device: %w", err)
	}

	return &Device{
		Adapter: adapter,
		Device:  device,
		Queue:   device.GetQueue(),
	}, nil
}

// Release frees the adapter and device. It does not release Instance, which
// is already released by the time NewHeadlessDevice returns.
func (d *Device) Release() {
	if d == nil {
		return
	}
	if d.Device != nil {
		d.Device.Release()
	}
	if d.Adapter != nil {
		d.Adapter.Release()
	}
}

package vulkan

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/spaghettifunk/vkguard/engine/core"
)

type DeviceOptions struct {
	Policy AdapterPolicy
	// Extensions must all be supported by the adapter.
	Extensions []string
	// OptionalExtensions are enabled when the adapter advertises them.
	OptionalExtensions []string
	Features           Features
}

// Device is a logical device bound to one adapter. It owns its queues and one
// command pool per queue family in use. The native device is destroyed after
// Release once every child created from it has been released.
type Device struct {
	refCount
	instance   *Instance
	driver     Driver
	adapter    *Adapter
	handle     Handle
	families   QueueFamilies
	graphics   *Queue
	transfer   *Queue
	pools      []*CommandPool
	extensions []string
	features   Features
	locks      *LockPool

	deviceLocalIndex uint32
	hostVisibleIndex uint32
}

// NewDevice selects an adapter with opts.Policy and creates a device on it.
func NewDevice(instance *Instance, opts DeviceOptions) (*Device, error) {
	adapters, err := instance.Adapters()
	if err != nil {
		return nil, err
	}
	adapter, err := opts.Policy.Select(adapters)
	if err != nil {
		return nil, err
	}
	return CreateDevice(instance, adapter, opts)
}

// CreateDevice creates a device on a given adapter. Either everything is
// created or nothing is left behind.
func CreateDevice(instance *Instance, adapter *Adapter, opts DeviceOptions) (*Device, error) {
	if instance.Destroyed() {
		return nil, core.ErrReleased
	}
	info := adapter.info
	driver := instance.driver

	core.LogInfo("Creating logical device...")

	families, err := SelectQueueFamilies(info.QueueFamilies)
	if err != nil {
		core.LogError("Adapter '%s' has no graphics queue family.", info.Name)
		return nil, err
	}
	core.LogDebug("Graphics Family Index: %d", families.Graphics)
	if families.HasTransfer {
		core.LogDebug("Transfer Family Index: %d", families.Transfer)
	} else {
		core.LogDebug("No dedicated transfer family, transfers use the graphics queue.")
	}

	extensions := make([]string, 0, len(opts.Extensions)+len(opts.OptionalExtensions))
	for _, ext := range opts.Extensions {
		if !adapter.SupportsExtension(ext) {
			core.LogError("Required extension not found: '%s'.", ext)
			return nil, errors.Wrap(core.ErrExtensionNotPresent, ext)
		}
		extensions = append(extensions, ext)
	}
	for _, ext := range opts.OptionalExtensions {
		if adapter.SupportsExtension(ext) && !contains(extensions, ext) {
			core.LogInfo("Adding optional extension '%s'.", ext)
			extensions = append(extensions, ext)
		}
	}

	features := opts.Features
	if missing := info.Features.Missing(features); len(missing) > 0 {
		core.LogWarn("Device does not support %s, disabling.", strings.Join(missing, ", "))
		features = Features{
			SamplerAnisotropy: features.SamplerAnisotropy && info.Features.SamplerAnisotropy,
			FillModeNonSolid:  features.FillModeNonSolid && info.Features.FillModeNonSolid,
			WideLines:         features.WideLines && info.Features.WideLines,
		}
	}

	queues := make([]DeviceQueueInfo, 0, 2)
	for _, f := range families.Distinct() {
		queues = append(queues, DeviceQueueInfo{Family: f, Count: 1})
	}

	var guard cleanup
	defer guard.unwind()

	handle, res := driver.CreateDevice(DeviceInfo{
		Adapter:    adapter.handle,
		Queues:     queues,
		Extensions: extensions,
		Features:   features,
	})
	if err := check("vkCreateDevice", res); err != nil {
		return nil, err
	}
	guard.push(func() { driver.DestroyDevice(handle) })
	core.LogInfo("Logical device created.")

	d := &Device{
		instance:   instance,
		driver:     driver,
		adapter:    adapter,
		handle:     handle,
		families:   families,
		extensions: extensions,
		features:   features,
		locks:      NewLockPool(),
	}

	var ok bool
	if d.deviceLocalIndex, ok = FindMemoryType(info.MemoryTypes, MemoryDeviceLocal); !ok {
		core.LogError("Unable to find a device-local memory type.")
		return nil, errors.Wrap(core.ErrMemoryTypeNotFound, "device local")
	}
	if d.hostVisibleIndex, ok = FindMemoryType(info.MemoryTypes, MemoryHostVisible); !ok {
		core.LogError("Unable to find a host-visible memory type.")
		return nil, errors.Wrap(core.ErrMemoryTypeNotFound, "host visible")
	}

	for _, family := range families.Distinct() {
		d.locks.SetQueueFamily(family)
		q := &Queue{device: d, handle: driver.GetQueue(handle, family, 0), family: family}
		if family == families.Graphics {
			d.graphics = q
		} else {
			d.transfer = q
		}

		pool, res := driver.CreateCommandPool(handle, family)
		if err := check("vkCreateCommandPool", res); err != nil {
			return nil, err
		}
		guard.push(func() { driver.DestroyCommandPool(handle, pool) })
		d.pools = append(d.pools, &CommandPool{device: d, handle: pool, family: family})
	}
	core.LogInfo("Queues obtained.")
	core.LogInfo("%d command pool(s) created.", len(d.pools))

	guard.commit()
	instance.retain()
	d.init(d.destroy)

	logAdapter(info)
	return d, nil
}

func (d *Device) Handle() Handle {
	return d.handle
}

func (d *Device) Driver() Driver {
	return d.driver
}

func (d *Device) Instance() *Instance {
	return d.instance
}

func (d *Device) Adapter() *Adapter {
	return d.adapter
}

func (d *Device) QueueFamilies() QueueFamilies {
	return d.families
}

func (d *Device) Extensions() []string {
	return d.extensions
}

func (d *Device) Features() Features {
	return d.features
}

// Locks exposes the device's lock pool for callers that share queues across
// goroutines.
func (d *Device) Locks() *LockPool {
	return d.locks
}

func (d *Device) GraphicsQueue() *Queue {
	return d.graphics
}

// TransferQueue returns the dedicated transfer queue, or the graphics queue.
func (d *Device) TransferQueue() *Queue {
	if d.transfer != nil {
		return d.transfer
	}
	return d.graphics
}

func (d *Device) HasDedicatedTransfer() bool {
	return d.transfer != nil
}

// CommandPool returns the pool created for family, or nil.
func (d *Device) CommandPool(family uint32) *CommandPool {
	for _, p := range d.pools {
		if p.family == family {
			return p
		}
	}
	return nil
}

func (d *Device) CommandPools() []*CommandPool {
	return d.pools
}

// MemoryIndex returns the memory type cached for DeviceLocal or HostVisible.
// Other property sets are looked up in the adapter's memory-type list.
func (d *Device) MemoryIndex(prop MemoryPropertyFlags) (uint32, error) {
	switch prop {
	case MemoryDeviceLocal:
		return d.deviceLocalIndex, nil
	case MemoryHostVisible:
		return d.hostVisibleIndex, nil
	}
	if idx, ok := FindMemoryType(d.adapter.info.MemoryTypes, prop); ok {
		return idx, nil
	}
	return 0, core.ErrMemoryTypeNotFound
}

func (d *Device) WaitIdle() error {
	return check("vkDeviceWaitIdle", d.driver.DeviceWaitIdle(d.handle))
}

// Release drops the creator's reference.
func (d *Device) Release() {
	d.release()
}

func (d *Device) destroy() {
	if res := d.driver.DeviceWaitIdle(d.handle); res != Success {
		core.LogWarn("vkDeviceWaitIdle before destroy returned %s", ResultString(res, false))
	}
	core.LogInfo("Destroying command pools...")
	for i := len(d.pools) - 1; i >= 0; i-- {
		d.driver.DestroyCommandPool(d.handle, d.pools[i].handle)
	}
	d.pools = nil

	core.LogInfo("Destroying logical device...")
	d.driver.DestroyDevice(d.handle)
	d.instance.release()
}

// destroyChild waits for the device to go idle and runs fn under group's lock.
func (d *Device) destroyChild(group LockGroup, fn func()) {
	_ = d.locks.SafeCall(group, func() error {
		if res := d.driver.DeviceWaitIdle(d.handle); res != Success {
			core.LogWarn("vkDeviceWaitIdle before destroy returned %s", ResultString(res, false))
		}
		fn()
		return nil
	})
}

// own wraps a freshly created device child.
func (d *Device) own(label string, group LockGroup, h Handle, destroy func(device, h Handle)) *Owned[*Device] {
	return newOwned(label, d, h, func(h Handle) {
		d.destroyChild(group, func() { destroy(d.handle, h) })
	})
}

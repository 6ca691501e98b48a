package vulkan

import (
	"github.com/pkg/errors"
	"github.com/spaghettifunk/vkguard/engine/core"
)

// Adapter is a physical device. Its description is captured once at
// enumeration and never changes.
type Adapter struct {
	handle Handle
	info   AdapterInfo
}

func (a *Adapter) Handle() Handle {
	return a.handle
}

func (a *Adapter) Info() AdapterInfo {
	return a.info
}

func (a *Adapter) Name() string {
	return a.info.Name
}

func (a *Adapter) SupportsExtension(name string) bool {
	return contains(a.info.Extensions, name)
}

// Adapters enumerates the physical devices visible to the instance.
func (i *Instance) Adapters() ([]*Adapter, error) {
	handles, res := i.driver.EnumerateAdapters(i.handle)
	if err := check("vkEnumeratePhysicalDevices", res, Incomplete); err != nil {
		return nil, err
	}
	adapters := make([]*Adapter, 0, len(handles))
	for _, h := range handles {
		adapters = append(adapters, &Adapter{handle: h, info: i.driver.DescribeAdapter(h)})
	}
	return adapters, nil
}

type AdapterPolicy int

const (
	// FirstAdapter takes the first enumerated adapter.
	FirstAdapter AdapterPolicy = iota
	// PreferDiscrete takes the first discrete GPU, falling back to the first adapter.
	PreferDiscrete
)

func ParseAdapterPolicy(s string) (AdapterPolicy, error) {
	switch s {
	case "", "first":
		return FirstAdapter, nil
	case "discrete":
		return PreferDiscrete, nil
	default:
		return FirstAdapter, errors.Errorf("unknown adapter policy %q", s)
	}
}

func (p AdapterPolicy) String() string {
	if p == PreferDiscrete {
		return "discrete"
	}
	return "first"
}

func (p AdapterPolicy) Select(adapters []*Adapter) (*Adapter, error) {
	if len(adapters) == 0 {
		core.LogError("No devices which support Vulkan were found.")
		return nil, core.ErrNoAdapter
	}
	if p == PreferDiscrete {
		for _, a := range adapters {
			if a.info.Type == AdapterDiscreteGPU {
				return a, nil
			}
		}
		core.LogInfo("No discrete GPU found, using '%s'.", adapters[0].info.Name)
	}
	return adapters[0], nil
}

// QueueFamilies is the result of queue-family selection.
type QueueFamilies struct {
	Graphics uint32
	Transfer uint32
	// HasTransfer is false when no family other than Graphics can transfer.
	HasTransfer bool
}

// Distinct lists the families a device has to create queues for.
func (q QueueFamilies) Distinct() []uint32 {
	if q.HasTransfer {
		return []uint32{q.Graphics, q.Transfer}
	}
	return []uint32{q.Graphics}
}

// TransferFamily returns the dedicated transfer family, or the graphics family.
func (q QueueFamilies) TransferFamily() uint32 {
	if q.HasTransfer {
		return q.Transfer
	}
	return q.Graphics
}

// SelectQueueFamilies picks the first graphics family and the lowest-indexed
// other family with transfer support.
func SelectQueueFamilies(families []QueueFamilyProperties) (QueueFamilies, error) {
	var out QueueFamilies
	found := false
	for i, f := range families {
		if f.Flags&QueueGraphics != 0 && f.QueueCount > 0 {
			out.Graphics = uint32(i)
			found = true
			break
		}
	}
	if !found {
		return QueueFamilies{}, core.ErrNoGraphicsQueue
	}
	for i, f := range families {
		if uint32(i) != out.Graphics && f.Flags&QueueTransfer != 0 && f.QueueCount > 0 {
			out.Transfer = uint32(i)
			out.HasTransfer = true
			break
		}
	}
	return out, nil
}

// FindMemoryType returns the lowest index whose flags intersect want.
func FindMemoryType(types []MemoryType, want MemoryPropertyFlags) (uint32, bool) {
	for i, t := range types {
		if t.Flags&want != 0 {
			return uint32(i), true
		}
	}
	return 0, false
}

func logAdapter(info AdapterInfo) {
	core.LogInfo("Selected device: '%s'.", info.Name)
	core.LogInfo("GPU type is %s.", info.Type)
	core.LogInfo("GPU Driver version: %d.%d.%d",
		info.DriverVersion.Major(), info.DriverVersion.Minor(), info.DriverVersion.Patch())
	core.LogInfo("Vulkan API version: %d.%d.%d",
		info.APIVersion.Major(), info.APIVersion.Minor(), info.APIVersion.Patch())
	for _, heap := range info.MemoryHeaps {
		gib := float64(heap.Size) / 1024.0 / 1024.0 / 1024.0
		if heap.DeviceLocal {
			core.LogInfo("Local GPU memory: %.2f GiB", gib)
		} else {
			core.LogInfo("Shared System memory: %.2f GiB", gib)
		}
	}
}

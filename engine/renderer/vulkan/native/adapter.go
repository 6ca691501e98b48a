package native

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/vkguard/engine/renderer/vulkan"
)

func (d *vkDriver) EnumerateAdapters(instance vulkan.Handle) ([]vulkan.Handle, vulkan.Result) {
	inst := get[vk.Instance](d, instance)
	var count uint32
	if res := vk.EnumeratePhysicalDevices(inst, &count, nil); res != vk.Success {
		return nil, result(res)
	}
	devices := make([]vk.PhysicalDevice, count)
	if res := vk.EnumeratePhysicalDevices(inst, &count, devices); res != vk.Success {
		return nil, result(res)
	}
	handles := make([]vulkan.Handle, 0, count)
	for _, pd := range devices[:count] {
		handles = append(handles, d.intern(pd))
	}
	return handles, vulkan.Success
}

func (d *vkDriver) DescribeAdapter(adapter vulkan.Handle) vulkan.AdapterInfo {
	pd := get[vk.PhysicalDevice](d, adapter)

	var properties vk.PhysicalDeviceProperties
	vk.GetPhysicalDeviceProperties(pd, &properties)
	properties.Deref()
	properties.Limits.Deref()

	var features vk.PhysicalDeviceFeatures
	vk.GetPhysicalDeviceFeatures(pd, &features)
	features.Deref()

	var memory vk.PhysicalDeviceMemoryProperties
	vk.GetPhysicalDeviceMemoryProperties(pd, &memory)
	memory.Deref()

	info := vulkan.AdapterInfo{
		Name:          cString(properties.DeviceName[:]),
		Type:          adapterType(properties.DeviceType),
		APIVersion:    vulkan.Version(properties.ApiVersion),
		DriverVersion: vulkan.Version(properties.DriverVersion),
		Features: vulkan.Features{
			SamplerAnisotropy: features.SamplerAnisotropy == vk.True,
			FillModeNonSolid:  features.FillModeNonSolid == vk.True,
			WideLines:         features.WideLines == vk.True,
		},
		Limits: vulkan.Limits{
			MaxImageDimension2D:             properties.Limits.MaxImageDimension2D,
			MaxMemoryAllocationCount:        properties.Limits.MaxMemoryAllocationCount,
			MinUniformBufferOffsetAlignment: uint64(properties.Limits.MinUniformBufferOffsetAlignment),
			NonCoherentAtomSize:             uint64(properties.Limits.NonCoherentAtomSize),
		},
	}

	for i := uint32(0); i < memory.MemoryTypeCount; i++ {
		mt := memory.MemoryTypes[i]
		mt.Deref()
		info.MemoryTypes = append(info.MemoryTypes, vulkan.MemoryType{
			Flags:     vulkan.MemoryPropertyFlags(mt.PropertyFlags),
			HeapIndex: mt.HeapIndex,
		})
	}
	for i := uint32(0); i < memory.MemoryHeapCount; i++ {
		heap := memory.MemoryHeaps[i]
		heap.Deref()
		info.MemoryHeaps = append(info.MemoryHeaps, vulkan.MemoryHeap{
			Size:        uint64(heap.Size),
			DeviceLocal: heap.Flags&vk.MemoryHeapFlags(vk.MemoryHeapDeviceLocalBit) != 0,
		})
	}

	var queueFamilyCount uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(pd, &queueFamilyCount, nil)
	families := make([]vk.QueueFamilyProperties, queueFamilyCount)
	vk.GetPhysicalDeviceQueueFamilyProperties(pd, &queueFamilyCount, families)
	for i := range families {
		families[i].Deref()
		info.QueueFamilies = append(info.QueueFamilies, vulkan.QueueFamilyProperties{
			Flags:      vulkan.QueueFlags(families[i].QueueFlags),
			QueueCount: families[i].QueueCount,
		})
	}

	var extensionCount uint32
	vk.EnumerateDeviceExtensionProperties(pd, "", &extensionCount, nil)
	extensions := make([]vk.ExtensionProperties, extensionCount)
	vk.EnumerateDeviceExtensionProperties(pd, "", &extensionCount, extensions)
	for i := range extensions {
		extensions[i].Deref()
		info.Extensions = append(info.Extensions, cString(extensions[i].ExtensionName[:]))
	}
	return info
}

func adapterType(t vk.PhysicalDeviceType) vulkan.AdapterType {
	switch t {
	case vk.PhysicalDeviceTypeIntegratedGpu:
		return vulkan.AdapterIntegratedGPU
	case vk.PhysicalDeviceTypeDiscreteGpu:
		return vulkan.AdapterDiscreteGPU
	case vk.PhysicalDeviceTypeVirtualGpu:
		return vulkan.AdapterVirtualGPU
	case vk.PhysicalDeviceTypeCpu:
		return vulkan.AdapterCPU
	default:
		return vulkan.AdapterOther
	}
}

func (d *vkDriver) SurfaceSupport(adapter vulkan.Handle, family uint32, surface vulkan.Handle) (bool, vulkan.Result) {
	var supported vk.Bool32
	res := vk.GetPhysicalDeviceSurfaceSupport(get[vk.PhysicalDevice](d, adapter), family, get[vk.Surface](d, surface), &supported)
	return supported == vk.True, result(res)
}

func (d *vkDriver) SurfaceCapabilities(adapter, surface vulkan.Handle) (vulkan.SurfaceCapabilities, vulkan.Result) {
	pd := get[vk.PhysicalDevice](d, adapter)
	s := get[vk.Surface](d, surface)

	var caps vk.SurfaceCapabilities
	if res := vk.GetPhysicalDeviceSurfaceCapabilities(pd, s, &caps); res != vk.Success {
		return vulkan.SurfaceCapabilities{}, result(res)
	}
	caps.Deref()
	caps.CurrentExtent.Deref()
	caps.MinImageExtent.Deref()
	caps.MaxImageExtent.Deref()

	out := vulkan.SurfaceCapabilities{
		MinImageCount:    caps.MinImageCount,
		MaxImageCount:    caps.MaxImageCount,
		CurrentExtent:    vulkan.Extent2D{Width: caps.CurrentExtent.Width, Height: caps.CurrentExtent.Height},
		MinImageExtent:   vulkan.Extent2D{Width: caps.MinImageExtent.Width, Height: caps.MinImageExtent.Height},
		MaxImageExtent:   vulkan.Extent2D{Width: caps.MaxImageExtent.Width, Height: caps.MaxImageExtent.Height},
		CurrentTransform: uint32(caps.CurrentTransform),
	}

	var formatCount uint32
	if res := vk.GetPhysicalDeviceSurfaceFormats(pd, s, &formatCount, nil); res != vk.Success {
		return vulkan.SurfaceCapabilities{}, result(res)
	}
	formats := make([]vk.SurfaceFormat, formatCount)
	if res := vk.GetPhysicalDeviceSurfaceFormats(pd, s, &formatCount, formats); res != vk.Success {
		return vulkan.SurfaceCapabilities{}, result(res)
	}
	for i := range formats {
		formats[i].Deref()
		out.Formats = append(out.Formats, vulkan.SurfaceFormat{
			Format:     vulkan.Format(formats[i].Format),
			ColorSpace: vulkan.ColorSpace(formats[i].ColorSpace),
		})
	}

	var modeCount uint32
	if res := vk.GetPhysicalDeviceSurfacePresentModes(pd, s, &modeCount, nil); res != vk.Success {
		return vulkan.SurfaceCapabilities{}, result(res)
	}
	modes := make([]vk.PresentMode, modeCount)
	if res := vk.GetPhysicalDeviceSurfacePresentModes(pd, s, &modeCount, modes); res != vk.Success {
		return vulkan.SurfaceCapabilities{}, result(res)
	}
	for _, m := range modes {
		out.PresentModes = append(out.PresentModes, vulkan.PresentMode(m))
	}
	return out, vulkan.Success
}

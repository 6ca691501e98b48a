package native

import (
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/vkguard/engine/renderer/vulkan"
)

func (d *vkDriver) CreateDevice(info vulkan.DeviceInfo) (vulkan.Handle, vulkan.Result) {
	queueCreateInfos := make([]vk.DeviceQueueCreateInfo, len(info.Queues))
	for i, q := range info.Queues {
		priorities := make([]float32, q.Count)
		for j := range priorities {
			priorities[j] = 1.0
		}
		queueCreateInfos[i] = vk.DeviceQueueCreateInfo{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: q.Family,
			QueueCount:       q.Count,
			PQueuePriorities: priorities,
		}
	}

	deviceFeatures := []vk.PhysicalDeviceFeatures{{
		SamplerAnisotropy: bool32(info.Features.SamplerAnisotropy),
		FillModeNonSolid:  bool32(info.Features.FillModeNonSolid),
		WideLines:         bool32(info.Features.WideLines),
	}}

	deviceCreateInfo := vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(queueCreateInfos)),
		PQueueCreateInfos:       queueCreateInfos,
		PEnabledFeatures:        deviceFeatures,
		EnabledExtensionCount:   uint32(len(info.Extensions)),
		PpEnabledExtensionNames: safeStrings(info.Extensions),
	}

	var device vk.Device
	if res := vk.CreateDevice(get[vk.PhysicalDevice](d, info.Adapter), &deviceCreateInfo, nil, &device); res != vk.Success {
		return vulkan.NullHandle, result(res)
	}
	return d.put(device), vulkan.Success
}

func (d *vkDriver) DestroyDevice(device vulkan.Handle) {
	dev, ok := d.take(device).(vk.Device)
	if !ok {
		return
	}
	d.mu.Lock()
	for h, obj := range d.objects {
		if q, ok := obj.(queueObject); ok && q.device == dev {
			delete(d.objects, h)
		}
	}
	d.mu.Unlock()
	vk.DestroyDevice(dev, nil)
}

func (d *vkDriver) DeviceWaitIdle(device vulkan.Handle) vulkan.Result {
	return result(vk.DeviceWaitIdle(get[vk.Device](d, device)))
}

type queueObject struct {
	device vk.Device
	queue  vk.Queue
}

func (d *vkDriver) GetQueue(device vulkan.Handle, family, index uint32) vulkan.Handle {
	dev := get[vk.Device](d, device)
	var queue vk.Queue
	vk.GetDeviceQueue(dev, family, index, &queue)
	return d.intern(queueObject{device: dev, queue: queue})
}

func (d *vkDriver) QueueWaitIdle(queue vulkan.Handle) vulkan.Result {
	return result(vk.QueueWaitIdle(get[queueObject](d, queue).queue))
}

func (d *vkDriver) CreateCommandPool(device vulkan.Handle, family uint32) (vulkan.Handle, vulkan.Result) {
	poolCreateInfo := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: family,
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
	}
	var pool vk.CommandPool
	if res := vk.CreateCommandPool(get[vk.Device](d, device), &poolCreateInfo, nil, &pool); res != vk.Success {
		return vulkan.NullHandle, result(res)
	}
	return d.put(pool), vulkan.Success
}

func (d *vkDriver) DestroyCommandPool(device, pool vulkan.Handle) {
	if p, ok := d.take(pool).(vk.CommandPool); ok {
		vk.DestroyCommandPool(get[vk.Device](d, device), p, nil)
	}
}

func (d *vkDriver) AllocateCommandBuffers(device, pool vulkan.Handle, count uint32) ([]vulkan.Handle, vulkan.Result) {
	allocateInfo := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        get[vk.CommandPool](d, pool),
		Level:              vk.CommandBufferLevelPrimary,
		CommandBufferCount: count,
	}
	buffers := make([]vk.CommandBuffer, count)
	if res := vk.AllocateCommandBuffers(get[vk.Device](d, device), &allocateInfo, buffers); res != vk.Success {
		return nil, result(res)
	}
	handles := make([]vulkan.Handle, count)
	for i, b := range buffers {
		handles[i] = d.put(b)
	}
	return handles, vulkan.Success
}

func (d *vkDriver) FreeCommandBuffers(device, pool vulkan.Handle, buffers []vulkan.Handle) {
	native := make([]vk.CommandBuffer, 0, len(buffers))
	for _, h := range buffers {
		if b, ok := d.take(h).(vk.CommandBuffer); ok {
			native = append(native, b)
		}
	}
	if len(native) == 0 {
		return
	}
	vk.FreeCommandBuffers(get[vk.Device](d, device), get[vk.CommandPool](d, pool), uint32(len(native)), native)
}

func (d *vkDriver) ResetCommandBuffer(buffer vulkan.Handle) vulkan.Result {
	return result(vk.ResetCommandBuffer(get[vk.CommandBuffer](d, buffer), 0))
}

func (d *vkDriver) QueueSubmit(queue vulkan.Handle, submits []vulkan.SubmitInfo, fence vulkan.Handle) vulkan.Result {
	infos := make([]vk.SubmitInfo, len(submits))
	for i, s := range submits {
		waitStages := make([]vk.PipelineStageFlags, len(s.WaitStages))
		for j, st := range s.WaitStages {
			waitStages[j] = vk.PipelineStageFlags(st)
		}
		infos[i] = vk.SubmitInfo{
			SType:                vk.StructureTypeSubmitInfo,
			WaitSemaphoreCount:   uint32(len(s.WaitSemaphores)),
			PWaitSemaphores:      getAll[vk.Semaphore](d, s.WaitSemaphores),
			PWaitDstStageMask:    waitStages,
			CommandBufferCount:   uint32(len(s.CommandBuffers)),
			PCommandBuffers:      getAll[vk.CommandBuffer](d, s.CommandBuffers),
			SignalSemaphoreCount: uint32(len(s.SignalSemaphores)),
			PSignalSemaphores:    getAll[vk.Semaphore](d, s.SignalSemaphores),
		}
	}
	return result(vk.QueueSubmit(get[queueObject](d, queue).queue, uint32(len(infos)), infos, get[vk.Fence](d, fence)))
}

func (d *vkDriver) CreateSemaphore(device vulkan.Handle) (vulkan.Handle, vulkan.Result) {
	semaphoreCreateInfo := vk.SemaphoreCreateInfo{
		SType: vk.StructureTypeSemaphoreCreateInfo,
	}
	var semaphore vk.Semaphore
	if res := vk.CreateSemaphore(get[vk.Device](d, device), &semaphoreCreateInfo, nil, &semaphore); res != vk.Success {
		return vulkan.NullHandle, result(res)
	}
	return d.put(semaphore), vulkan.Success
}

func (d *vkDriver) DestroySemaphore(device, semaphore vulkan.Handle) {
	if s, ok := d.take(semaphore).(vk.Semaphore); ok {
		vk.DestroySemaphore(get[vk.Device](d, device), s, nil)
	}
}

func (d *vkDriver) CreateFence(device vulkan.Handle, signaled bool) (vulkan.Handle, vulkan.Result) {
	fenceCreateInfo := vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
	}
	if signaled {
		fenceCreateInfo.Flags = vk.FenceCreateFlags(vk.FenceCreateSignaledBit)
	}
	var fence vk.Fence
	if res := vk.CreateFence(get[vk.Device](d, device), &fenceCreateInfo, nil, &fence); res != vk.Success {
		return vulkan.NullHandle, result(res)
	}
	return d.put(fence), vulkan.Success
}

func (d *vkDriver) DestroyFence(device, fence vulkan.Handle) {
	if f, ok := d.take(fence).(vk.Fence); ok {
		vk.DestroyFence(get[vk.Device](d, device), f, nil)
	}
}

func (d *vkDriver) WaitForFence(device, fence vulkan.Handle, timeout uint64) vulkan.Result {
	return result(vk.WaitForFences(get[vk.Device](d, device), 1, []vk.Fence{get[vk.Fence](d, fence)}, vk.True, timeout))
}

func (d *vkDriver) FenceStatus(device, fence vulkan.Handle) vulkan.Result {
	return result(vk.GetFenceStatus(get[vk.Device](d, device), get[vk.Fence](d, fence)))
}

func (d *vkDriver) ResetFence(device, fence vulkan.Handle) vulkan.Result {
	return result(vk.ResetFences(get[vk.Device](d, device), 1, []vk.Fence{get[vk.Fence](d, fence)}))
}

func (d *vkDriver) CreateBuffer(device vulkan.Handle, info vulkan.BufferInfo) (vulkan.Handle, vulkan.Result) {
	bufferCreateInfo := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        vk.DeviceSize(info.Size),
		Usage:       vk.BufferUsageFlags(info.Usage),
		SharingMode: vk.SharingModeExclusive,
	}
	var buffer vk.Buffer
	if res := vk.CreateBuffer(get[vk.Device](d, device), &bufferCreateInfo, nil, &buffer); res != vk.Success {
		return vulkan.NullHandle, result(res)
	}
	return d.put(buffer), vulkan.Success
}

func (d *vkDriver) DestroyBuffer(device, buffer vulkan.Handle) {
	if b, ok := d.take(buffer).(vk.Buffer); ok {
		vk.DestroyBuffer(get[vk.Device](d, device), b, nil)
	}
}

func (d *vkDriver) BufferMemoryRequirements(device, buffer vulkan.Handle) vulkan.MemoryRequirements {
	var requirements vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(get[vk.Device](d, device), get[vk.Buffer](d, buffer), &requirements)
	requirements.Deref()
	return vulkan.MemoryRequirements{
		Size:           uint64(requirements.Size),
		Alignment:      uint64(requirements.Alignment),
		MemoryTypeBits: requirements.MemoryTypeBits,
	}
}

func (d *vkDriver) AllocateMemory(device vulkan.Handle, size uint64, typeIndex uint32) (vulkan.Handle, vulkan.Result) {
	allocateInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  vk.DeviceSize(size),
		MemoryTypeIndex: typeIndex,
	}
	var memory vk.DeviceMemory
	if res := vk.AllocateMemory(get[vk.Device](d, device), &allocateInfo, nil, &memory); res != vk.Success {
		return vulkan.NullHandle, result(res)
	}
	return d.put(memory), vulkan.Success
}

func (d *vkDriver) FreeMemory(device, memory vulkan.Handle) {
	if m, ok := d.take(memory).(vk.DeviceMemory); ok {
		vk.FreeMemory(get[vk.Device](d, device), m, nil)
	}
}

func (d *vkDriver) BindBufferMemory(device, buffer, memory vulkan.Handle, offset uint64) vulkan.Result {
	return result(vk.BindBufferMemory(get[vk.Device](d, device), get[vk.Buffer](d, buffer), get[vk.DeviceMemory](d, memory), vk.DeviceSize(offset)))
}

func (d *vkDriver) WriteMemory(device, memory vulkan.Handle, offset uint64, data []byte, flush *vulkan.MemoryRange) vulkan.Result {
	dev := get[vk.Device](d, device)
	mem := get[vk.DeviceMemory](d, memory)
	mapped := vulkan.MemoryRange{Offset: offset, Size: uint64(len(data))}
	if flush != nil {
		mapped = *flush
	}
	var pData unsafe.Pointer
	if res := vk.MapMemory(dev, mem, vk.DeviceSize(mapped.Offset), vk.DeviceSize(mapped.Size), 0, &pData); res != vk.Success {
		return result(res)
	}
	defer vk.UnmapMemory(dev, mem)

	if n := vk.Memcopy(unsafe.Add(pData, offset-mapped.Offset), data); n != len(data) {
		return vulkan.ErrorMemoryMapFailed
	}
	if flush == nil {
		return vulkan.Success
	}
	ranges := []vk.MappedMemoryRange{{
		SType:  vk.StructureTypeMappedMemoryRange,
		Memory: mem,
		Offset: vk.DeviceSize(flush.Offset),
		Size:   vk.DeviceSize(flush.Size),
	}}
	return result(vk.FlushMappedMemoryRanges(dev, 1, ranges))
}

package vulkan

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/pkg/errors"
)

// Object kinds tracked by the NullDriver.
const (
	KindInstance      = "instance"
	KindDebugCallback = "debug callback"
	KindSurface       = "surface"
	KindAdapter       = "adapter"
	KindDevice        = "device"
	KindQueue         = "queue"
	KindCommandPool   = "command pool"
	KindCommandBuffer = "command buffer"
	KindSemaphore     = "semaphore"
	KindFence         = "fence"
	KindBuffer        = "buffer"
	KindMemory        = "memory"
	KindSwapchain     = "swapchain"
	KindImage         = "image"
	KindImageView     = "image view"
	KindRenderPass    = "render pass"
	KindFramebuffer   = "framebuffer"
	KindShaderModule  = "shader module"
	KindPipeline      = "pipeline"
)

// NullAdapter describes one simulated physical device.
type NullAdapter struct {
	Info    AdapterInfo
	Surface SurfaceCapabilities
	// PresentFamilies lists the families that can present. Nil means all.
	PresentFamilies []uint32
}

// DefaultNullAdapter is a discrete GPU with a graphics family, a dedicated
// transfer family and separate device-local and host-visible memory.
func DefaultNullAdapter() NullAdapter {
	return NullAdapter{
		Info: AdapterInfo{
			Name:          "vkguard null adapter",
			Type:          AdapterDiscreteGPU,
			APIVersion:    MakeVersion(1, 3, 0),
			DriverVersion: MakeVersion(0, 1, 0),
			QueueFamilies: []QueueFamilyProperties{
				{Flags: QueueGraphics | QueueCompute | QueueTransfer, QueueCount: 1},
				{Flags: QueueTransfer, QueueCount: 1},
			},
			MemoryTypes: []MemoryType{
				{Flags: MemoryDeviceLocal, HeapIndex: 0},
				{Flags: MemoryHostVisible | MemoryHostCoherent, HeapIndex: 1},
			},
			MemoryHeaps: []MemoryHeap{
				{Size: 4 << 30, DeviceLocal: true},
				{Size: 8 << 30},
			},
			Features: Features{SamplerAnisotropy: true, FillModeNonSolid: true, WideLines: true},
			Limits: Limits{
				MaxImageDimension2D:             16384,
				MaxMemoryAllocationCount:        4096,
				MinUniformBufferOffsetAlignment: 256,
				NonCoherentAtomSize:             64,
			},
			Extensions: []string{"VK_KHR_swapchain"},
		},
		Surface: SurfaceCapabilities{
			MinImageCount:  2,
			MaxImageCount:  8,
			CurrentExtent:  Extent2D{Width: math.MaxUint32, Height: math.MaxUint32},
			MinImageExtent: Extent2D{Width: 1, Height: 1},
			MaxImageExtent: Extent2D{Width: 16384, Height: 16384},
			Formats: []SurfaceFormat{
				{Format: FormatB8G8R8A8Unorm, ColorSpace: ColorSpaceSrgbNonlinear},
				{Format: FormatB8G8R8A8Srgb, ColorSpace: ColorSpaceSrgbNonlinear},
			},
			PresentModes: []PresentMode{PresentModeMailbox, PresentModeFifo, PresentModeImmediate},
		},
	}
}

type nullObject struct {
	kind   string
	parent Handle

	// adapter
	adapter *NullAdapter
	// fence
	signaled bool
	// memory
	data []byte
	// buffer
	size uint64
	// swapchain
	surface   Handle
	images    []Handle
	nextImage uint32
	// command buffer
	cmds []Command
	// debug callback
	callback DebugCallback
}

// NullDriver is an in-memory Driver. Work submitted to a queue completes
// immediately unless the driver is stalled. It records the order in which
// objects are destroyed and flags destruction of objects that still have
// live children.
type NullDriver struct {
	mu                 sync.Mutex
	next               Handle
	objects            map[Handle]*nullObject
	adapters           []Handle
	layers             []string
	instanceExtensions []string
	failures           map[string]Result
	destroyed          []string
	violations         []string
	stalled            bool
	pending            []Handle
	submits            int
	presents           int
	flushes            []MemoryRange
}

func NewNullDriver(adapters ...NullAdapter) *NullDriver {
	d := &NullDriver{
		objects: make(map[Handle]*nullObject),
		layers:  []string{validationLayer},
		instanceExtensions: []string{
			"VK_KHR_surface",
			"VK_EXT_debug_report",
			"VK_KHR_portability_enumeration",
			"VK_KHR_get_physical_device_properties2",
			"VK_KHR_xcb_surface",
			"VK_KHR_xlib_surface",
			"VK_KHR_wayland_surface",
			"VK_KHR_win32_surface",
			"VK_EXT_metal_surface",
		},
		failures: make(map[string]Result),
	}
	for i := range adapters {
		a := adapters[i]
		d.adapters = append(d.adapters, d.add(&nullObject{kind: KindAdapter, adapter: &a}))
	}
	return d
}

func (d *NullDriver) Name() string {
	return "null"
}

// SetLayers replaces the instance layers the driver reports.
func (d *NullDriver) SetLayers(layers ...string) {
	d.mu.Lock()
	d.layers = layers
	d.mu.Unlock()
}

// SetInstanceExtensions replaces the instance extensions the driver reports.
func (d *NullDriver) SetInstanceExtensions(exts ...string) {
	d.mu.Lock()
	d.instanceExtensions = exts
	d.mu.Unlock()
}

// FailNext makes the next call to the named Driver method return r.
func (d *NullDriver) FailNext(call string, r Result) {
	d.mu.Lock()
	d.failures[call] = r
	d.mu.Unlock()
}

// Stall keeps submitted work pending until Complete or an idle wait.
func (d *NullDriver) Stall(stalled bool) {
	d.mu.Lock()
	d.stalled = stalled
	d.mu.Unlock()
}

// Complete finishes all pending work.
func (d *NullDriver) Complete() {
	d.mu.Lock()
	d.completeLocked()
	d.mu.Unlock()
}

// SetSurfaceExtent changes the current extent every adapter reports, as a
// window resize would.
func (d *NullDriver) SetSurfaceExtent(width, height uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, h := range d.adapters {
		d.objects[h].adapter.Surface.CurrentExtent = Extent2D{Width: width, Height: height}
	}
}

// Emit delivers a diagnostic to every registered debug callback.
func (d *NullDriver) Emit(flags DebugReportFlags, layerPrefix string, code int32, message string) {
	d.mu.Lock()
	var cbs []DebugCallback
	for _, o := range d.objects {
		if o.kind == KindDebugCallback {
			cbs = append(cbs, o.callback)
		}
	}
	d.mu.Unlock()
	for _, cb := range cbs {
		cb(flags, layerPrefix, code, message)
	}
}

// Live counts live objects of kind. An empty kind counts every object except
// adapters, queues and swapchain images, which are not created by the caller.
func (d *NullDriver) Live(kind string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, o := range d.objects {
		if kind == "" {
			if o.kind != KindAdapter && o.kind != KindQueue && o.kind != KindImage {
				n++
			}
		} else if o.kind == kind {
			n++
		}
	}
	return n
}

// Destroyed returns the kinds of destroyed objects in destruction order.
func (d *NullDriver) Destroyed() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.destroyed...)
}

// Violations lists objects destroyed while something still depended on them.
func (d *NullDriver) Violations() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.violations...)
}

// Recorded returns the commands last recorded into buffer.
func (d *NullDriver) Recorded(buffer Handle) []Command {
	d.mu.Lock()
	defer d.mu.Unlock()
	if o, ok := d.objects[buffer]; ok {
		return append([]Command(nil), o.cmds...)
	}
	return nil
}

// Memory returns a copy of the bytes of a memory allocation.
func (d *NullDriver) Memory(memory Handle) []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	if o, ok := d.objects[memory]; ok {
		return append([]byte(nil), o.data...)
	}
	return nil
}

// Submits and Presents count successful queue submissions and presentations.
func (d *NullDriver) Submits() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.submits
}

func (d *NullDriver) Presents() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.presents
}

func (d *NullDriver) add(o *nullObject) Handle {
	d.next++
	d.objects[d.next] = o
	return d.next
}

func (d *NullDriver) fail(call string) (Result, bool) {
	r, ok := d.failures[call]
	if ok {
		delete(d.failures, call)
	}
	return r, ok
}

func (d *NullDriver) create(call, kind string, parent Handle) (Handle, Result) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if r, ok := d.fail(call); ok {
		return NullHandle, r
	}
	if _, ok := d.objects[parent]; !ok {
		return NullHandle, ErrorInitializationFailed
	}
	return d.add(&nullObject{kind: kind, parent: parent}), Success
}

func (d *NullDriver) destroy(kind string, h Handle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.destroyLocked(kind, h)
}

func (d *NullDriver) destroyLocked(kind string, h Handle) {
	o, ok := d.objects[h]
	if !ok || o.kind != kind {
		d.violations = append(d.violations, fmt.Sprintf("destroy of unknown %s %d", kind, h))
		return
	}
	var children []string
	for _, c := range d.objects {
		if c.parent == h || (c.kind == KindSwapchain && c.surface == h) {
			children = append(children, c.kind)
		}
	}
	if len(children) > 0 {
		sort.Strings(children)
		d.violations = append(d.violations, fmt.Sprintf("%s destroyed with live children %v", kind, children))
	}
	delete(d.objects, h)
	d.destroyed = append(d.destroyed, kind)
}

func (d *NullDriver) completeLocked() {
	for _, f := range d.pending {
		if o, ok := d.objects[f]; ok {
			o.signaled = true
		}
	}
	d.pending = nil
}

func (d *NullDriver) AvailableLayers() ([]string, Result) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if r, ok := d.fail("AvailableLayers"); ok {
		return nil, r
	}
	return append([]string(nil), d.layers...), Success
}

func (d *NullDriver) AvailableInstanceExtensions() ([]string, Result) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if r, ok := d.fail("AvailableInstanceExtensions"); ok {
		return nil, r
	}
	return append([]string(nil), d.instanceExtensions...), Success
}

func (d *NullDriver) CreateInstance(info InstanceInfo) (Handle, Result) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if r, ok := d.fail("CreateInstance"); ok {
		return NullHandle, r
	}
	for _, l := range info.Layers {
		if !contains(d.layers, l) {
			return NullHandle, ErrorLayerNotPresent
		}
	}
	for _, e := range info.Extensions {
		if !contains(d.instanceExtensions, e) {
			return NullHandle, ErrorExtensionNotPresent
		}
	}
	return d.add(&nullObject{kind: KindInstance}), Success
}

func (d *NullDriver) DestroyInstance(instance Handle) {
	d.destroy(KindInstance, instance)
}

func (d *NullDriver) CreateDebugCallback(instance Handle, flags DebugReportFlags, cb DebugCallback) (Handle, Result) {
	h, res := d.create("CreateDebugCallback", KindDebugCallback, instance)
	if res == Success {
		d.mu.Lock()
		d.objects[h].callback = cb
		d.mu.Unlock()
	}
	return h, res
}

func (d *NullDriver) DestroyDebugCallback(instance, callback Handle) {
	d.destroy(KindDebugCallback, callback)
}

func (d *NullDriver) CreateSurface(instance Handle, target interface{}) (Handle, error) {
	if target == nil {
		return NullHandle, errors.New("null driver: no surface target")
	}
	h, res := d.create("CreateSurface", KindSurface, instance)
	if res != Success {
		return NullHandle, errors.Errorf("null driver: create surface: %s", ResultString(res, false))
	}
	return h, nil
}

func (d *NullDriver) DestroySurface(instance, surface Handle) {
	d.destroy(KindSurface, surface)
}

func (d *NullDriver) EnumerateAdapters(instance Handle) ([]Handle, Result) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if r, ok := d.fail("EnumerateAdapters"); ok {
		return nil, r
	}
	return append([]Handle(nil), d.adapters...), Success
}

func (d *NullDriver) DescribeAdapter(adapter Handle) AdapterInfo {
	d.mu.Lock()
	defer d.mu.Unlock()
	if o, ok := d.objects[adapter]; ok && o.adapter != nil {
		return o.adapter.Info
	}
	return AdapterInfo{}
}

func (d *NullDriver) SurfaceSupport(adapter Handle, family uint32, surface Handle) (bool, Result) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if r, ok := d.fail("SurfaceSupport"); ok {
		return false, r
	}
	o, ok := d.objects[adapter]
	if !ok || o.adapter == nil {
		return false, ErrorInitializationFailed
	}
	if _, ok := d.objects[surface]; !ok {
		return false, ErrorSurfaceLost
	}
	if int(family) >= len(o.adapter.Info.QueueFamilies) {
		return false, Success
	}
	if o.adapter.PresentFamilies == nil {
		return true, Success
	}
	for _, f := range o.adapter.PresentFamilies {
		if f == family {
			return true, Success
		}
	}
	return false, Success
}

func (d *NullDriver) SurfaceCapabilities(adapter, surface Handle) (SurfaceCapabilities, Result) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if r, ok := d.fail("SurfaceCapabilities"); ok {
		return SurfaceCapabilities{}, r
	}
	o, ok := d.objects[adapter]
	if !ok || o.adapter == nil {
		return SurfaceCapabilities{}, ErrorInitializationFailed
	}
	if _, ok := d.objects[surface]; !ok {
		return SurfaceCapabilities{}, ErrorSurfaceLost
	}
	caps := o.adapter.Surface
	caps.Formats = append([]SurfaceFormat(nil), caps.Formats...)
	caps.PresentModes = append([]PresentMode(nil), caps.PresentModes...)
	return caps, Success
}

func (d *NullDriver) CreateDevice(info DeviceInfo) (Handle, Result) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if r, ok := d.fail("CreateDevice"); ok {
		return NullHandle, r
	}
	o, ok := d.objects[info.Adapter]
	if !ok || o.adapter == nil {
		return NullHandle, ErrorInitializationFailed
	}
	for _, e := range info.Extensions {
		if !contains(o.adapter.Info.Extensions, e) {
			return NullHandle, ErrorExtensionNotPresent
		}
	}
	if len(o.adapter.Info.Features.Missing(info.Features)) > 0 {
		return NullHandle, ErrorFeatureNotPresent
	}
	dev := d.add(&nullObject{kind: KindDevice})
	for _, q := range info.Queues {
		if int(q.Family) >= len(o.adapter.Info.QueueFamilies) {
			delete(d.objects, dev)
			return NullHandle, ErrorInitializationFailed
		}
	}
	return dev, Success
}

func (d *NullDriver) DestroyDevice(device Handle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for h, o := range d.objects {
		if o.kind == KindQueue && o.parent == device {
			delete(d.objects, h)
		}
	}
	d.destroyLocked(KindDevice, device)
}

func (d *NullDriver) DeviceWaitIdle(device Handle) Result {
	d.mu.Lock()
	defer d.mu.Unlock()
	if r, ok := d.fail("DeviceWaitIdle"); ok {
		return r
	}
	d.completeLocked()
	return Success
}

func (d *NullDriver) GetQueue(device Handle, family, index uint32) Handle {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.add(&nullObject{kind: KindQueue, parent: device, size: uint64(family)})
}

func (d *NullDriver) QueueWaitIdle(queue Handle) Result {
	return d.DeviceWaitIdle(NullHandle)
}

func (d *NullDriver) CreateCommandPool(device Handle, family uint32) (Handle, Result) {
	return d.create("CreateCommandPool", KindCommandPool, device)
}

func (d *NullDriver) DestroyCommandPool(device, pool Handle) {
	d.destroy(KindCommandPool, pool)
}

func (d *NullDriver) AllocateCommandBuffers(device, pool Handle, count uint32) ([]Handle, Result) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if r, ok := d.fail("AllocateCommandBuffers"); ok {
		return nil, r
	}
	if _, ok := d.objects[pool]; !ok {
		return nil, ErrorInitializationFailed
	}
	out := make([]Handle, count)
	for i := range out {
		out[i] = d.add(&nullObject{kind: KindCommandBuffer, parent: pool})
	}
	return out, Success
}

func (d *NullDriver) FreeCommandBuffers(device, pool Handle, buffers []Handle) {
	for _, b := range buffers {
		d.destroy(KindCommandBuffer, b)
	}
}

func (d *NullDriver) RecordCommandBuffer(buffer Handle, usage CommandBufferUsage, cmds []Command) Result {
	d.mu.Lock()
	defer d.mu.Unlock()
	if r, ok := d.fail("RecordCommandBuffer"); ok {
		return r
	}
	o, ok := d.objects[buffer]
	if !ok || o.kind != KindCommandBuffer {
		return ErrorInitializationFailed
	}
	o.cmds = append([]Command(nil), cmds...)
	return Success
}

func (d *NullDriver) ResetCommandBuffer(buffer Handle) Result {
	d.mu.Lock()
	defer d.mu.Unlock()
	if r, ok := d.fail("ResetCommandBuffer"); ok {
		return r
	}
	if o, ok := d.objects[buffer]; ok {
		o.cmds = nil
	}
	return Success
}

func (d *NullDriver) QueueSubmit(queue Handle, submits []SubmitInfo, fence Handle) Result {
	d.mu.Lock()
	defer d.mu.Unlock()
	if r, ok := d.fail("QueueSubmit"); ok {
		return r
	}
	for _, s := range submits {
		for _, cb := range s.CommandBuffers {
			if _, ok := d.objects[cb]; !ok {
				return ErrorDeviceLost
			}
		}
	}
	d.submits++
	if fence != NullHandle {
		if d.stalled {
			d.pending = append(d.pending, fence)
		} else if o, ok := d.objects[fence]; ok {
			o.signaled = true
		}
	}
	return Success
}

func (d *NullDriver) CreateSemaphore(device Handle) (Handle, Result) {
	return d.create("CreateSemaphore", KindSemaphore, device)
}

func (d *NullDriver) DestroySemaphore(device, semaphore Handle) {
	d.destroy(KindSemaphore, semaphore)
}

func (d *NullDriver) CreateFence(device Handle, signaled bool) (Handle, Result) {
	h, res := d.create("CreateFence", KindFence, device)
	if res == Success {
		d.mu.Lock()
		d.objects[h].signaled = signaled
		d.mu.Unlock()
	}
	return h, res
}

func (d *NullDriver) DestroyFence(device, fence Handle) {
	d.destroy(KindFence, fence)
}

func (d *NullDriver) WaitForFence(device, fence Handle, timeout uint64) Result {
	d.mu.Lock()
	defer d.mu.Unlock()
	if r, ok := d.fail("WaitForFence"); ok {
		return r
	}
	o, ok := d.objects[fence]
	if !ok {
		return ErrorDeviceLost
	}
	if !o.signaled && timeout == InfiniteTimeout {
		d.completeLocked()
	}
	if o.signaled {
		return Success
	}
	return Timeout
}

func (d *NullDriver) FenceStatus(device, fence Handle) Result {
	d.mu.Lock()
	defer d.mu.Unlock()
	o, ok := d.objects[fence]
	if !ok {
		return ErrorDeviceLost
	}
	if o.signaled {
		return Success
	}
	return NotReady
}

func (d *NullDriver) ResetFence(device, fence Handle) Result {
	d.mu.Lock()
	defer d.mu.Unlock()
	if r, ok := d.fail("ResetFence"); ok {
		return r
	}
	if o, ok := d.objects[fence]; ok {
		o.signaled = false
	}
	return Success
}

func (d *NullDriver) CreateBuffer(device Handle, info BufferInfo) (Handle, Result) {
	h, res := d.create("CreateBuffer", KindBuffer, device)
	if res == Success {
		d.mu.Lock()
		d.objects[h].size = info.Size
		d.mu.Unlock()
	}
	return h, res
}

func (d *NullDriver) DestroyBuffer(device, buffer Handle) {
	d.destroy(KindBuffer, buffer)
}

func (d *NullDriver) BufferMemoryRequirements(device, buffer Handle) MemoryRequirements {
	d.mu.Lock()
	defer d.mu.Unlock()
	var size uint64
	if o, ok := d.objects[buffer]; ok {
		size = o.size
	}
	return MemoryRequirements{Size: alignUp(size, 256), Alignment: 256, MemoryTypeBits: math.MaxUint32}
}

func (d *NullDriver) AllocateMemory(device Handle, size uint64, typeIndex uint32) (Handle, Result) {
	h, res := d.create("AllocateMemory", KindMemory, device)
	if res == Success {
		d.mu.Lock()
		d.objects[h].data = make([]byte, size)
		d.mu.Unlock()
	}
	return h, res
}

func (d *NullDriver) FreeMemory(device, memory Handle) {
	d.destroy(KindMemory, memory)
}

func (d *NullDriver) BindBufferMemory(device, buffer, memory Handle, offset uint64) Result {
	d.mu.Lock()
	defer d.mu.Unlock()
	if r, ok := d.fail("BindBufferMemory"); ok {
		return r
	}
	b, ok := d.objects[buffer]
	m, ok2 := d.objects[memory]
	if !ok || !ok2 {
		return ErrorInitializationFailed
	}
	if offset+b.size > uint64(len(m.data)) {
		return ErrorOutOfDeviceMemory
	}
	return Success
}

func (d *NullDriver) WriteMemory(device, memory Handle, offset uint64, data []byte, flush *MemoryRange) Result {
	d.mu.Lock()
	defer d.mu.Unlock()
	if r, ok := d.fail("WriteMemory"); ok {
		return r
	}
	m, ok := d.objects[memory]
	if !ok || offset+uint64(len(data)) > uint64(len(m.data)) {
		return ErrorMemoryMapFailed
	}
	if flush != nil {
		if flush.Offset > offset || flush.Offset+flush.Size < offset+uint64(len(data)) || flush.Offset+flush.Size > uint64(len(m.data)) {
			d.violations = append(d.violations, fmt.Sprintf("flush range %+v does not cover a %d-byte write at %d", *flush, len(data), offset))
		}
		d.flushes = append(d.flushes, *flush)
	}
	copy(m.data[offset:], data)
	return Success
}

// Flushes lists the ranges flushed after writes to non-coherent memory.
func (d *NullDriver) Flushes() []MemoryRange {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]MemoryRange(nil), d.flushes...)
}

func (d *NullDriver) CreateSwapchain(device Handle, info SwapchainInfo) (Handle, Result) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if r, ok := d.fail("CreateSwapchain"); ok {
		return NullHandle, r
	}
	if _, ok := d.objects[device]; !ok {
		return NullHandle, ErrorInitializationFailed
	}
	if _, ok := d.objects[info.Surface]; !ok {
		return NullHandle, ErrorSurfaceLost
	}
	sc := &nullObject{kind: KindSwapchain, parent: device, surface: info.Surface}
	h := d.add(sc)
	for i := uint32(0); i < info.MinImageCount; i++ {
		sc.images = append(sc.images, d.add(&nullObject{kind: KindImage, parent: h}))
	}
	return h, Success
}

func (d *NullDriver) DestroySwapchain(device, swapchain Handle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if o, ok := d.objects[swapchain]; ok {
		for _, img := range o.images {
			delete(d.objects, img)
		}
	}
	d.destroyLocked(KindSwapchain, swapchain)
}

func (d *NullDriver) SwapchainImages(device, swapchain Handle) ([]Handle, Result) {
	d.mu.Lock()
	defer d.mu.Unlock()
	o, ok := d.objects[swapchain]
	if !ok {
		return nil, ErrorInitializationFailed
	}
	return append([]Handle(nil), o.images...), Success
}

func (d *NullDriver) CreateImageView(device, image Handle, format Format, rng ImageSubresourceRange) (Handle, Result) {
	return d.create("CreateImageView", KindImageView, device)
}

func (d *NullDriver) DestroyImageView(device, view Handle) {
	d.destroy(KindImageView, view)
}

func (d *NullDriver) AcquireNextImage(device, swapchain Handle, timeout uint64, semaphore, fence Handle) (uint32, Result) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if r, ok := d.fail("AcquireNextImage"); ok {
		return 0, r
	}
	o, ok := d.objects[swapchain]
	if !ok || len(o.images) == 0 {
		return 0, ErrorOutOfDate
	}
	idx := o.nextImage
	o.nextImage = (o.nextImage + 1) % uint32(len(o.images))
	if fence != NullHandle {
		if f, ok := d.objects[fence]; ok {
			f.signaled = true
		}
	}
	return idx, Success
}

func (d *NullDriver) QueuePresent(queue Handle, info PresentInfo) Result {
	d.mu.Lock()
	defer d.mu.Unlock()
	if r, ok := d.fail("QueuePresent"); ok {
		return r
	}
	o, ok := d.objects[info.Swapchain]
	if !ok {
		return ErrorOutOfDate
	}
	if int(info.ImageIndex) >= len(o.images) {
		return ErrorUnknown
	}
	d.presents++
	return Success
}

func (d *NullDriver) CreateRenderPass(device Handle, info RenderPassInfo) (Handle, Result) {
	return d.create("CreateRenderPass", KindRenderPass, device)
}

func (d *NullDriver) DestroyRenderPass(device, pass Handle) {
	d.destroy(KindRenderPass, pass)
}

func (d *NullDriver) CreateFramebuffer(device Handle, info FramebufferInfo) (Handle, Result) {
	return d.create("CreateFramebuffer", KindFramebuffer, device)
}

func (d *NullDriver) DestroyFramebuffer(device, framebuffer Handle) {
	d.destroy(KindFramebuffer, framebuffer)
}

func (d *NullDriver) CreateShaderModule(device Handle, code []uint32) (Handle, Result) {
	return d.create("CreateShaderModule", KindShaderModule, device)
}

func (d *NullDriver) DestroyShaderModule(device, module Handle) {
	d.destroy(KindShaderModule, module)
}

func (d *NullDriver) CreateGraphicsPipeline(device Handle, info PipelineInfo) (Handle, Result) {
	return d.create("CreateGraphicsPipeline", KindPipeline, device)
}

func (d *NullDriver) DestroyPipeline(device, pipeline Handle) {
	d.destroy(KindPipeline, pipeline)
}

package vulkan

import (
	"sort"
	"sync"
	"unsafe"

	"github.com/pkg/errors"
)

// Driver is the native graphics API as seen by the safety layer. Every
// method maps onto one or a few native calls; objects cross the boundary as
// opaque handles and status codes are returned verbatim.
//
// Implementations are not required to be safe for concurrent use. The
// wrappers in this package serialize the calls that need it.
type Driver interface {
	Name() string

	AvailableLayers() ([]string, Result)
	AvailableInstanceExtensions() ([]string, Result)
	CreateInstance(info InstanceInfo) (Handle, Result)
	DestroyInstance(instance Handle)
	CreateDebugCallback(instance Handle, flags DebugReportFlags, cb DebugCallback) (Handle, Result)
	DestroyDebugCallback(instance, callback Handle)

	// CreateSurface turns a window's surface target into a presentable surface.
	CreateSurface(instance Handle, target interface{}) (Handle, error)
	DestroySurface(instance, surface Handle)

	EnumerateAdapters(instance Handle) ([]Handle, Result)
	DescribeAdapter(adapter Handle) AdapterInfo
	SurfaceSupport(adapter Handle, family uint32, surface Handle) (bool, Result)
	SurfaceCapabilities(adapter, surface Handle) (SurfaceCapabilities, Result)

	CreateDevice(info DeviceInfo) (Handle, Result)
	DestroyDevice(device Handle)
	DeviceWaitIdle(device Handle) Result
	GetQueue(device Handle, family, index uint32) Handle
	QueueWaitIdle(queue Handle) Result

	CreateCommandPool(device Handle, family uint32) (Handle, Result)
	DestroyCommandPool(device, pool Handle)
	AllocateCommandBuffers(device, pool Handle, count uint32) ([]Handle, Result)
	FreeCommandBuffers(device, pool Handle, buffers []Handle)
	// RecordCommandBuffer begins the buffer, records cmds in order and ends it.
	RecordCommandBuffer(buffer Handle, usage CommandBufferUsage, cmds []Command) Result
	ResetCommandBuffer(buffer Handle) Result
	QueueSubmit(queue Handle, submits []SubmitInfo, fence Handle) Result

	CreateSemaphore(device Handle) (Handle, Result)
	DestroySemaphore(device, semaphore Handle)
	CreateFence(device Handle, signaled bool) (Handle, Result)
	DestroyFence(device, fence Handle)
	WaitForFence(device, fence Handle, timeout uint64) Result
	// FenceStatus returns Success when signaled and NotReady otherwise.
	FenceStatus(device, fence Handle) Result
	ResetFence(device, fence Handle) Result

	CreateBuffer(device Handle, info BufferInfo) (Handle, Result)
	DestroyBuffer(device, buffer Handle)
	BufferMemoryRequirements(device, buffer Handle) MemoryRequirements
	AllocateMemory(device Handle, size uint64, typeIndex uint32) (Handle, Result)
	FreeMemory(device, memory Handle)
	BindBufferMemory(device, buffer, memory Handle, offset uint64) Result
	// WriteMemory maps host-visible memory, copies data at offset and unmaps.
	// A non-nil flush range is mapped along with the write and flushed before
	// unmapping; it covers the write and is aligned to the adapter's
	// non-coherent atom size.
	WriteMemory(device, memory Handle, offset uint64, data []byte, flush *MemoryRange) Result

	CreateSwapchain(device Handle, info SwapchainInfo) (Handle, Result)
	DestroySwapchain(device, swapchain Handle)
	SwapchainImages(device, swapchain Handle) ([]Handle, Result)
	CreateImageView(device, image Handle, format Format, rng ImageSubresourceRange) (Handle, Result)
	DestroyImageView(device, view Handle)
	AcquireNextImage(device, swapchain Handle, timeout uint64, semaphore, fence Handle) (uint32, Result)
	QueuePresent(queue Handle, info PresentInfo) Result

	CreateRenderPass(device Handle, info RenderPassInfo) (Handle, Result)
	DestroyRenderPass(device, pass Handle)
	CreateFramebuffer(device Handle, info FramebufferInfo) (Handle, Result)
	DestroyFramebuffer(device, framebuffer Handle)

	CreateShaderModule(device Handle, code []uint32) (Handle, Result)
	DestroyShaderModule(device, module Handle)
	CreateGraphicsPipeline(device Handle, info PipelineInfo) (Handle, Result)
	DestroyPipeline(device, pipeline Handle)
}

type DebugReportFlags uint32

const (
	DebugReportInformation        DebugReportFlags = 0x1
	DebugReportWarning            DebugReportFlags = 0x2
	DebugReportPerformanceWarning DebugReportFlags = 0x4
	DebugReportError              DebugReportFlags = 0x8
	DebugReportDebug              DebugReportFlags = 0x10
)

// DebugCallback receives driver diagnostics. It runs on whatever thread the
// driver reports from.
type DebugCallback func(flags DebugReportFlags, layerPrefix string, code int32, message string)

type InstanceInfo struct {
	ApplicationName    string
	ApplicationVersion Version
	EngineName         string
	EngineVersion      Version
	APIVersion         Version
	Extensions         []string
	Layers             []string
	// Enumerate portability (non-conformant) implementations such as MoltenVK.
	Portability bool
}

type DeviceQueueInfo struct {
	Family uint32
	Count  uint32
}

type DeviceInfo struct {
	Adapter    Handle
	Queues     []DeviceQueueInfo
	Extensions []string
	Features   Features
}

type BufferInfo struct {
	Size  uint64
	Usage BufferUsage
}

type MemoryRange struct {
	Offset uint64
	Size   uint64
}

type SwapchainInfo struct {
	Surface       Handle
	MinImageCount uint32
	Format        SurfaceFormat
	Extent        Extent2D
	PresentMode   PresentMode
	PreTransform  uint32
	OldSwapchain  Handle
}

type RenderPassInfo struct {
	ColorFormat Format
	// Clear the color attachment on load instead of preserving it.
	Clear       bool
	FinalLayout ImageLayout
}

type FramebufferInfo struct {
	RenderPass  Handle
	Attachments []Handle
	Extent      Extent2D
}

type VertexAttribute struct {
	Location uint32
	Format   Format
	Offset   uint32
}

// PipelineInfo describes a minimal graphics pipeline: one vertex binding,
// triangle lists, no descriptors and dynamic viewport and scissor.
type PipelineInfo struct {
	RenderPass     Handle
	VertexShader   Handle
	FragmentShader Handle
	VertexEntry    string
	FragmentEntry  string
	VertexStride   uint32
	Attributes     []VertexAttribute
}

type SubmitInfo struct {
	WaitSemaphores   []Handle
	WaitStages       []PipelineStage
	CommandBuffers   []Handle
	SignalSemaphores []Handle
}

type PresentInfo struct {
	WaitSemaphores []Handle
	Swapchain      Handle
	ImageIndex     uint32
}

// Command is one recorded instruction. The set of commands is closed.
type Command interface {
	command()
}

type BindPipelineCmd struct {
	Pipeline Handle
}

type BindVertexBuffersCmd struct {
	FirstBinding uint32
	Buffers      []Handle
	Offsets      []uint64
}

type DrawCmd struct {
	VertexCount   uint32
	InstanceCount uint32
	FirstVertex   uint32
	FirstInstance uint32
}

type BufferCopy struct {
	SrcOffset uint64
	DstOffset uint64
	Size      uint64
}

type CopyBufferCmd struct {
	Src     Handle
	Dst     Handle
	Regions []BufferCopy
}

type MemoryBarrierInfo struct {
	SrcAccess AccessFlags
	DstAccess AccessFlags
}

type BufferBarrierInfo struct {
	SrcAccess AccessFlags
	DstAccess AccessFlags
	SrcFamily uint32
	DstFamily uint32
	Buffer    Handle
	Offset    uint64
	Size      uint64
}

type ImageBarrierInfo struct {
	SrcAccess AccessFlags
	DstAccess AccessFlags
	OldLayout ImageLayout
	NewLayout ImageLayout
	SrcFamily uint32
	DstFamily uint32
	Image     Handle
	Range     ImageSubresourceRange
}

type PipelineBarrierCmd struct {
	SrcStage PipelineStage
	DstStage PipelineStage
	ByRegion bool
	Memory   []MemoryBarrierInfo
	Buffers  []BufferBarrierInfo
	Images   []ImageBarrierInfo
}

type BeginRenderPassCmd struct {
	RenderPass  Handle
	Framebuffer Handle
	Area        Rect2D
	Clear       []ClearColor
}

type EndRenderPassCmd struct{}

type SetViewportCmd struct {
	Viewports []Viewport
}

type SetScissorCmd struct {
	Scissors []Rect2D
}

func (BindPipelineCmd) command()      {}
func (BindVertexBuffersCmd) command() {}
func (DrawCmd) command()              {}
func (CopyBufferCmd) command()        {}
func (PipelineBarrierCmd) command()   {}
func (BeginRenderPassCmd) command()   {}
func (EndRenderPassCmd) command()     {}
func (SetViewportCmd) command()       {}
func (SetScissorCmd) command()        {}

// DriverOptions carries what a driver needs to load the native library.
type DriverOptions struct {
	// ProcAddr is the loader's vkGetInstanceProcAddr, usually supplied by the
	// window system. Drivers fall back to their default loader when nil.
	ProcAddr unsafe.Pointer
}

type DriverFactory func(opts DriverOptions) (Driver, error)

var (
	driversMu sync.RWMutex
	drivers   = map[string]DriverFactory{
		"null": func(DriverOptions) (Driver, error) {
			return NewNullDriver(DefaultNullAdapter()), nil
		},
	}
)

// RegisterDriver makes a driver available by name. It panics on duplicates,
// like database/sql.
func RegisterDriver(name string, factory DriverFactory) {
	driversMu.Lock()
	defer driversMu.Unlock()
	if factory == nil {
		panic("vulkan: RegisterDriver factory is nil")
	}
	if _, dup := drivers[name]; dup {
		panic("vulkan: RegisterDriver called twice for driver " + name)
	}
	drivers[name] = factory
}

func Drivers() []string {
	driversMu.RLock()
	defer driversMu.RUnlock()
	names := make([]string, 0, len(drivers))
	for n := range drivers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func OpenDriver(name string, opts DriverOptions) (Driver, error) {
	driversMu.RLock()
	factory, ok := drivers[name]
	driversMu.RUnlock()
	if !ok {
		return nil, errors.Errorf("vulkan: unknown driver %q (forgotten import?)", name)
	}
	d, err := factory(opts)
	if err != nil {
		return nil, errors.Wrapf(err, "open driver %s", name)
	}
	return d, nil
}

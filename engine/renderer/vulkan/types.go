package vulkan

// Handle is an opaque reference to a native object, issued by a Driver.
type Handle uint64

const NullHandle Handle = 0

// Flag values below match the driver ABI bit for bit, so drivers convert them
// with a plain cast.

type QueueFlags uint32

const (
	QueueGraphics      QueueFlags = 0x1
	QueueCompute       QueueFlags = 0x2
	QueueTransfer      QueueFlags = 0x4
	QueueSparseBinding QueueFlags = 0x8
)

type MemoryPropertyFlags uint32

const (
	MemoryDeviceLocal     MemoryPropertyFlags = 0x1
	MemoryHostVisible     MemoryPropertyFlags = 0x2
	MemoryHostCoherent    MemoryPropertyFlags = 0x4
	MemoryHostCached      MemoryPropertyFlags = 0x8
	MemoryLazilyAllocated MemoryPropertyFlags = 0x10
)

type BufferUsage uint32

const (
	BufferUsageTransferSrc BufferUsage = 0x1
	BufferUsageTransferDst BufferUsage = 0x2
	BufferUsageUniform     BufferUsage = 0x10
	BufferUsageStorage     BufferUsage = 0x20
	BufferUsageIndex       BufferUsage = 0x40
	BufferUsageVertex      BufferUsage = 0x80
	BufferUsageIndirect    BufferUsage = 0x100
)

type PipelineStage uint32

const (
	StageTopOfPipe             PipelineStage = 0x1
	StageDrawIndirect          PipelineStage = 0x2
	StageVertexInput           PipelineStage = 0x4
	StageVertexShader          PipelineStage = 0x8
	StageFragmentShader        PipelineStage = 0x80
	StageEarlyFragmentTests    PipelineStage = 0x100
	StageLateFragmentTests     PipelineStage = 0x200
	StageColorAttachmentOutput PipelineStage = 0x400
	StageComputeShader         PipelineStage = 0x800
	StageTransfer              PipelineStage = 0x1000
	StageBottomOfPipe          PipelineStage = 0x2000
	StageHost                  PipelineStage = 0x4000
	StageAllGraphics           PipelineStage = 0x8000
	StageAllCommands           PipelineStage = 0x10000
)

type AccessFlags uint32

const (
	AccessIndirectCommandRead  AccessFlags = 0x1
	AccessIndexRead            AccessFlags = 0x2
	AccessVertexAttributeRead  AccessFlags = 0x4
	AccessUniformRead          AccessFlags = 0x8
	AccessShaderRead           AccessFlags = 0x20
	AccessShaderWrite          AccessFlags = 0x40
	AccessColorAttachmentRead  AccessFlags = 0x80
	AccessColorAttachmentWrite AccessFlags = 0x100
	AccessTransferRead         AccessFlags = 0x800
	AccessTransferWrite        AccessFlags = 0x1000
	AccessHostRead             AccessFlags = 0x2000
	AccessHostWrite            AccessFlags = 0x4000
	AccessMemoryRead           AccessFlags = 0x8000
	AccessMemoryWrite          AccessFlags = 0x10000
)

type ImageLayout int32

const (
	LayoutUndefined              ImageLayout = 0
	LayoutGeneral                ImageLayout = 1
	LayoutColorAttachmentOptimal ImageLayout = 2
	LayoutShaderReadOnlyOptimal  ImageLayout = 5
	LayoutTransferSrcOptimal     ImageLayout = 6
	LayoutTransferDstOptimal     ImageLayout = 7
	LayoutPresentSrc             ImageLayout = 1000001002
)

type ImageAspect uint32

const (
	AspectColor ImageAspect = 0x1
	AspectDepth ImageAspect = 0x2
)

type Format int32

const (
	FormatUndefined          Format = 0
	FormatR8G8B8A8Unorm      Format = 37
	FormatR8G8B8A8Srgb       Format = 43
	FormatB8G8R8A8Unorm      Format = 44
	FormatB8G8R8A8Srgb       Format = 50
	FormatA8B8G8R8SrgbPack32 Format = 57
	FormatR32G32Sfloat       Format = 103
	FormatR32G32B32Sfloat    Format = 106
	FormatD32Sfloat          Format = 126
)

type ColorSpace int32

const ColorSpaceSrgbNonlinear ColorSpace = 0

type PresentMode int32

const (
	PresentModeImmediate   PresentMode = 0
	PresentModeMailbox     PresentMode = 1
	PresentModeFifo        PresentMode = 2
	PresentModeFifoRelaxed PresentMode = 3
)

func (p PresentMode) String() string {
	switch p {
	case PresentModeImmediate:
		return "immediate"
	case PresentModeMailbox:
		return "mailbox"
	case PresentModeFifo:
		return "fifo"
	case PresentModeFifoRelaxed:
		return "fifo-relaxed"
	default:
		return "unknown"
	}
}

type CommandBufferUsage uint32

const (
	UsageOneTimeSubmit      CommandBufferUsage = 0x1
	UsageRenderPassContinue CommandBufferUsage = 0x2
	UsageSimultaneousUse    CommandBufferUsage = 0x4
)

type AdapterType int32

const (
	AdapterOther AdapterType = iota
	AdapterIntegratedGPU
	AdapterDiscreteGPU
	AdapterVirtualGPU
	AdapterCPU
)

func (t AdapterType) String() string {
	switch t {
	case AdapterIntegratedGPU:
		return "Integrated"
	case AdapterDiscreteGPU:
		return "Discrete"
	case AdapterVirtualGPU:
		return "Virtual"
	case AdapterCPU:
		return "CPU"
	default:
		return "Unknown"
	}
}

const (
	QueueFamilyIgnored uint32 = ^uint32(0)
	WholeSize          uint64 = ^uint64(0)
	// Passed as the timeout of blocking driver calls to wait without bound.
	InfiniteTimeout uint64 = ^uint64(0)
)

type Extent2D struct {
	Width  uint32
	Height uint32
}

type Offset2D struct {
	X int32
	Y int32
}

type Rect2D struct {
	Offset Offset2D
	Extent Extent2D
}

type Viewport struct {
	X, Y, Width, Height float32
	MinDepth, MaxDepth  float32
}

type ClearColor [4]float32

type QueueFamilyProperties struct {
	Flags      QueueFlags
	QueueCount uint32
}

type MemoryType struct {
	Flags     MemoryPropertyFlags
	HeapIndex uint32
}

type MemoryHeap struct {
	Size        uint64
	DeviceLocal bool
}

type Features struct {
	SamplerAnisotropy bool
	FillModeNonSolid  bool
	WideLines         bool
}

// Missing lists the features requested in want that f does not provide.
func (f Features) Missing(want Features) []string {
	var missing []string
	if want.SamplerAnisotropy && !f.SamplerAnisotropy {
		missing = append(missing, "samplerAnisotropy")
	}
	if want.FillModeNonSolid && !f.FillModeNonSolid {
		missing = append(missing, "fillModeNonSolid")
	}
	if want.WideLines && !f.WideLines {
		missing = append(missing, "wideLines")
	}
	return missing
}

type Limits struct {
	MaxImageDimension2D             uint32
	MaxMemoryAllocationCount        uint32
	MinUniformBufferOffsetAlignment uint64
	NonCoherentAtomSize             uint64
}

type Version uint32

func MakeVersion(major, minor, patch uint32) Version {
	return Version(major<<22 | minor<<12 | patch)
}

func (v Version) Major() uint32 { return uint32(v) >> 22 }
func (v Version) Minor() uint32 { return (uint32(v) >> 12) & 0x3ff }
func (v Version) Patch() uint32 { return uint32(v) & 0xfff }

// AdapterInfo is an immutable snapshot of one physical device.
type AdapterInfo struct {
	Name          string
	Type          AdapterType
	APIVersion    Version
	DriverVersion Version
	QueueFamilies []QueueFamilyProperties
	MemoryTypes   []MemoryType
	MemoryHeaps   []MemoryHeap
	Features      Features
	Limits        Limits
	Extensions    []string
}

type SurfaceFormat struct {
	Format     Format
	ColorSpace ColorSpace
}

// SurfaceCapabilities is the result of one capability query against a surface.
type SurfaceCapabilities struct {
	MinImageCount    uint32
	MaxImageCount    uint32
	CurrentExtent    Extent2D
	MinImageExtent   Extent2D
	MaxImageExtent   Extent2D
	CurrentTransform uint32
	Formats          []SurfaceFormat
	PresentModes     []PresentMode
}

type MemoryRequirements struct {
	Size           uint64
	Alignment      uint64
	MemoryTypeBits uint32
}

type ImageSubresourceRange struct {
	Aspect         ImageAspect
	BaseMipLevel   uint32
	LevelCount     uint32
	BaseArrayLayer uint32
	LayerCount     uint32
}

// ColorRange covers the single mip level and layer of a color image.
var ColorRange = ImageSubresourceRange{Aspect: AspectColor, LevelCount: 1, LayerCount: 1}

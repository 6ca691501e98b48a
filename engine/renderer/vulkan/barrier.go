package vulkan

type MemoryBarrier struct {
	SrcAccess AccessFlags
	DstAccess AccessFlags
}

// BufferBarrier orders access to a range of a buffer. When SrcFamily equals
// DstFamily no ownership transfer takes place.
type BufferBarrier struct {
	Buffer    *Buffer
	Offset    uint64
	// Size 0 covers the rest of the buffer.
	Size      uint64
	SrcAccess AccessFlags
	DstAccess AccessFlags
	SrcFamily uint32
	DstFamily uint32
}

type ImageBarrier struct {
	Image     Handle
	Range     ImageSubresourceRange
	SrcAccess AccessFlags
	DstAccess AccessFlags
	OldLayout ImageLayout
	NewLayout ImageLayout
	SrcFamily uint32
	DstFamily uint32
}

// HoldBufferOwnership builds a barrier that keeps the buffer on its current
// queue family.
func HoldBufferOwnership(buffer *Buffer, offset, size uint64, src, dst AccessFlags) BufferBarrier {
	return BufferBarrier{
		Buffer:    buffer,
		Offset:    offset,
		Size:      size,
		SrcAccess: src,
		DstAccess: dst,
	}
}

// HoldImageOwnership builds a layout transition that keeps the image on its
// current queue family.
func HoldImageOwnership(image Handle, rng ImageSubresourceRange, src, dst AccessFlags, oldLayout, newLayout ImageLayout) ImageBarrier {
	return ImageBarrier{
		Image:     image,
		Range:     rng,
		SrcAccess: src,
		DstAccess: dst,
		OldLayout: oldLayout,
		NewLayout: newLayout,
	}
}

func encodeFamilies(src, dst uint32) (uint32, uint32) {
	if src == dst {
		return QueueFamilyIgnored, QueueFamilyIgnored
	}
	return src, dst
}

func (b MemoryBarrier) Encode() MemoryBarrierInfo {
	return MemoryBarrierInfo{SrcAccess: b.SrcAccess, DstAccess: b.DstAccess}
}

func (b BufferBarrier) Encode() BufferBarrierInfo {
	src, dst := encodeFamilies(b.SrcFamily, b.DstFamily)
	size := b.Size
	if size == 0 {
		size = WholeSize
	}
	return BufferBarrierInfo{
		SrcAccess: b.SrcAccess,
		DstAccess: b.DstAccess,
		SrcFamily: src,
		DstFamily: dst,
		Buffer:    b.Buffer.Handle(),
		Offset:    b.Offset,
		Size:      size,
	}
}

func (b ImageBarrier) Encode() ImageBarrierInfo {
	src, dst := encodeFamilies(b.SrcFamily, b.DstFamily)
	return ImageBarrierInfo{
		SrcAccess: b.SrcAccess,
		DstAccess: b.DstAccess,
		OldLayout: b.OldLayout,
		NewLayout: b.NewLayout,
		SrcFamily: src,
		DstFamily: dst,
		Image:     b.Image,
		Range:     b.Range,
	}
}

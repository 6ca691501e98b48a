package vulkan

import (
	"github.com/pkg/errors"
	"github.com/spaghettifunk/vkguard/engine/core"
)

// Buffer is a native buffer bound to its own memory allocation. Both are
// released together.
type Buffer struct {
	owned       *Owned[*Device]
	memory      Handle
	size        uint64
	usage       BufferUsage
	memoryType  uint32
	hostVisible bool
	// allocSize and atom are set for host-visible memory that is not coherent.
	allocSize uint64
	atom      uint64
}

// CreateBuffer creates a buffer of size bytes in memory with properties prop.
func (d *Device) CreateBuffer(size uint64, usage BufferUsage, prop MemoryPropertyFlags) (*Buffer, error) {
	if d.Destroyed() {
		return nil, core.ErrReleased
	}
	if size == 0 {
		return nil, errors.New("create buffer: size is zero")
	}
	drv := d.driver

	var guard cleanup
	defer guard.unwind()

	h, res := drv.CreateBuffer(d.handle, BufferInfo{Size: size, Usage: usage})
	if err := check("vkCreateBuffer", res); err != nil {
		return nil, err
	}
	guard.push(func() { drv.DestroyBuffer(d.handle, h) })

	reqs := drv.BufferMemoryRequirements(d.handle, h)
	typeIndex, err := d.memoryTypeFor(reqs, prop)
	if err != nil {
		core.LogError("Unable to find a suitable memory type for the buffer.")
		return nil, err
	}

	mem, res := drv.AllocateMemory(d.handle, reqs.Size, typeIndex)
	if err := check("vkAllocateMemory", res); err != nil {
		return nil, err
	}
	guard.push(func() { drv.FreeMemory(d.handle, mem) })

	if err := check("vkBindBufferMemory", drv.BindBufferMemory(d.handle, h, mem, 0)); err != nil {
		return nil, err
	}
	guard.commit()

	b := &Buffer{
		memory:      mem,
		size:        size,
		usage:       usage,
		memoryType:  typeIndex,
		hostVisible: prop&MemoryHostVisible != 0,
	}
	if b.hostVisible && d.adapter.info.MemoryTypes[typeIndex].Flags&MemoryHostCoherent == 0 {
		b.allocSize = reqs.Size
		b.atom = max(d.adapter.info.Limits.NonCoherentAtomSize, 1)
	}
	b.owned = d.own("buffer", BufferManagement, h, func(device, h Handle) {
		drv.DestroyBuffer(device, h)
		drv.FreeMemory(device, mem)
	})
	return b, nil
}

// memoryTypeFor prefers the cached type for prop and falls back to the first
// type the buffer accepts that has prop.
func (d *Device) memoryTypeFor(reqs MemoryRequirements, prop MemoryPropertyFlags) (uint32, error) {
	idx, err := d.MemoryIndex(prop)
	if err == nil && (reqs.MemoryTypeBits == 0 || reqs.MemoryTypeBits&(1<<idx) != 0) {
		return idx, nil
	}
	for i, t := range d.adapter.info.MemoryTypes {
		if reqs.MemoryTypeBits&(1<<uint(i)) != 0 && t.Flags&prop == prop {
			return uint32(i), nil
		}
	}
	return 0, core.ErrMemoryTypeNotFound
}

func (b *Buffer) Handle() Handle {
	if b == nil {
		return NullHandle
	}
	return b.owned.Handle()
}

func (b *Buffer) Size() uint64 {
	return b.size
}

func (b *Buffer) Usage() BufferUsage {
	return b.usage
}

// Memory is the allocation the buffer is bound to.
func (b *Buffer) Memory() Handle {
	return b.memory
}

func (b *Buffer) MemoryType() uint32 {
	return b.memoryType
}

// Write copies data into a host-visible buffer at offset.
func (b *Buffer) Write(offset uint64, data []byte) error {
	if b.owned.Released() {
		return core.ErrReleased
	}
	if !b.hostVisible {
		return errors.Wrap(core.ErrInvalidState, "write: buffer is not host visible")
	}
	if offset+uint64(len(data)) > b.size {
		return errors.Errorf("write: %d bytes at offset %d overflow a %d-byte buffer", len(data), offset, b.size)
	}
	d := b.owned.Parent()
	return check("vkMapMemory", d.driver.WriteMemory(d.handle, b.memory, offset, data, b.flushRange(offset, uint64(len(data)))))
}

// flushRange widens a write to whole non-coherent atoms, clipped to the end of
// the allocation. It is nil for coherent memory.
func (b *Buffer) flushRange(offset, size uint64) *MemoryRange {
	if b.atom == 0 || size == 0 {
		return nil
	}
	start := offset / b.atom * b.atom
	end := (offset + size + b.atom - 1) / b.atom * b.atom
	if end > b.allocSize {
		end = b.allocSize
	}
	return &MemoryRange{Offset: start, Size: end - start}
}

func (b *Buffer) Release() {
	b.owned.Release()
}

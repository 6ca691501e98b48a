package vulkan

import (
	"math/bits"

	"github.com/pkg/errors"
	"github.com/spaghettifunk/vkguard/engine/core"
)

const DefaultAlignment uint64 = 16

// Content names a block of bytes that will live in a shared buffer.
type Content struct {
	Name  string
	Size  uint64
	Usage BufferUsage
}

type Region struct {
	Name   string
	Offset uint64
	Size   uint64
	Usage  BufferUsage
}

// Layout places contents back to back in one buffer.
type Layout struct {
	Alignment uint64
	Regions   []Region
	// Total is the aligned end of the last region.
	Total uint64
	Usage BufferUsage
}

// Preallocate computes aligned, non-overlapping offsets for contents in the
// order given. An alignment of 0 selects DefaultAlignment.
func Preallocate(alignment uint64, contents ...Content) (*Layout, error) {
	if alignment == 0 {
		alignment = DefaultAlignment
	}
	if !isPowerOfTwo(alignment) {
		return nil, errors.Errorf("preallocate: alignment %d is not a power of two", alignment)
	}

	l := &Layout{Alignment: alignment, Regions: make([]Region, 0, len(contents))}
	seen := make(map[string]struct{}, len(contents))
	var offset uint64
	for _, c := range contents {
		if _, dup := seen[c.Name]; dup {
			return nil, errors.Errorf("preallocate: duplicate content %q", c.Name)
		}
		seen[c.Name] = struct{}{}

		start, ok := alignUpChecked(offset, alignment)
		if !ok {
			return nil, errors.Errorf("preallocate: content %q does not fit in 64 bits", c.Name)
		}
		end, carry := bits.Add64(start, c.Size, 0)
		if carry != 0 {
			return nil, errors.Errorf("preallocate: content %q does not fit in 64 bits", c.Name)
		}
		l.Regions = append(l.Regions, Region{Name: c.Name, Offset: start, Size: c.Size, Usage: c.Usage})
		l.Usage |= c.Usage
		offset = end
	}
	total, ok := alignUpChecked(offset, alignment)
	if !ok {
		return nil, errors.New("preallocate: aligned total does not fit in 64 bits")
	}
	l.Total = total
	return l, nil
}

func alignUpChecked(v, alignment uint64) (uint64, bool) {
	sum, carry := bits.Add64(v, alignment-1, 0)
	if carry != 0 {
		return 0, false
	}
	return sum &^ (alignment - 1), true
}

func (l *Layout) Region(name string) (Region, bool) {
	for _, r := range l.Regions {
		if r.Name == name {
			return r, true
		}
	}
	return Region{}, false
}

// BufferPair is a device-local buffer and a host-visible staging buffer of
// the same size, laid out by a Layout.
type BufferPair struct {
	layout  *Layout
	device  *Buffer
	staging *Buffer
}

// Instantiate creates the buffer pair on d.
func (l *Layout) Instantiate(d *Device) (*BufferPair, error) {
	if l.Total == 0 {
		return nil, errors.New("instantiate: layout is empty")
	}
	dev, err := d.CreateBuffer(l.Total, l.Usage|BufferUsageTransferDst, MemoryDeviceLocal)
	if err != nil {
		return nil, err
	}
	staging, err := d.CreateBuffer(l.Total, BufferUsageTransferSrc, MemoryHostVisible)
	if err != nil {
		dev.Release()
		return nil, err
	}
	core.LogDebug("Preallocated %d bytes for %d regions.", l.Total, len(l.Regions))
	return &BufferPair{layout: l, device: dev, staging: staging}, nil
}

func (p *BufferPair) Layout() *Layout {
	return p.layout
}

func (p *BufferPair) Device() *Buffer {
	return p.device
}

func (p *BufferPair) Staging() *Buffer {
	return p.staging
}

// Offset returns where name starts in both buffers.
func (p *BufferPair) Offset(name string) (uint64, error) {
	r, ok := p.layout.Region(name)
	if !ok {
		return 0, errors.Errorf("unknown region %q", name)
	}
	return r.Offset, nil
}

// Stage writes data into the staging copy of region name.
func (p *BufferPair) Stage(name string, data []byte) error {
	r, ok := p.layout.Region(name)
	if !ok {
		return errors.Errorf("stage: unknown region %q", name)
	}
	if uint64(len(data)) > r.Size {
		return errors.Errorf("stage: %d bytes do not fit region %q of %d bytes", len(data), name, r.Size)
	}
	return p.staging.Write(r.Offset, data)
}

// RecordUpload records the staging to device copy, followed by a barrier that
// makes the transfer visible to dstAccess at dstStage.
func (p *BufferPair) RecordUpload(cb *CommandBuffer, dstStage PipelineStage, dstAccess AccessFlags) *CommandBuffer {
	total := p.layout.Total
	return cb.
		CopyBuffer(p.staging, p.device, BufferCopy{Size: total}).
		PipelineBarrier(StageTransfer, dstStage, false, nil,
			[]BufferBarrier{HoldBufferOwnership(p.device, 0, total, AccessTransferWrite, dstAccess)},
			nil)
}

func (p *BufferPair) Release() {
	p.staging.Release()
	p.device.Release()
}

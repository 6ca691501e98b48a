package vulkan

import (
	"bytes"
	"math"
	"testing"
)

func TestPreallocate(t *testing.T) {
	l, err := Preallocate(4,
		Content{Name: "a", Size: 17, Usage: BufferUsageVertex},
		Content{Name: "b", Size: 3, Usage: BufferUsageIndex},
		Content{Name: "c", Size: 32, Usage: BufferUsageUniform},
	)
	if err != nil {
		t.Fatalf("Preallocate: %v", err)
	}
	wantOffsets := map[string]uint64{"a": 0, "b": 20, "c": 24}
	for name, want := range wantOffsets {
		r, ok := l.Region(name)
		if !ok {
			t.Fatalf("region %q missing", name)
		}
		if r.Offset != want {
			t.Errorf("%s offset = %d, want %d", name, r.Offset, want)
		}
		if r.Offset%l.Alignment != 0 {
			t.Errorf("%s offset %d is not aligned", name, r.Offset)
		}
	}
	if l.Total != 56 {
		t.Errorf("total = %d, want 56", l.Total)
	}
	if want := BufferUsageVertex | BufferUsageIndex | BufferUsageUniform; l.Usage != want {
		t.Errorf("usage = %#x, want %#x", l.Usage, want)
	}

	for i := 1; i < len(l.Regions); i++ {
		prev, cur := l.Regions[i-1], l.Regions[i]
		if prev.Offset+prev.Size > cur.Offset {
			t.Errorf("%s overlaps %s", prev.Name, cur.Name)
		}
	}
}

func TestPreallocateDefaults(t *testing.T) {
	l, err := Preallocate(0, Content{Name: "x", Size: 1}, Content{Name: "y", Size: 1})
	if err != nil {
		t.Fatalf("Preallocate: %v", err)
	}
	if l.Alignment != DefaultAlignment {
		t.Errorf("alignment = %d", l.Alignment)
	}
	if r, _ := l.Region("y"); r.Offset != 16 {
		t.Errorf("y offset = %d, want 16", r.Offset)
	}
	if _, ok := l.Region("z"); ok {
		t.Error("found a region that was never laid out")
	}

	empty, err := Preallocate(8)
	if err != nil || empty.Total != 0 {
		t.Errorf("empty layout = %+v, %v", empty, err)
	}
}

func TestPreallocateErrors(t *testing.T) {
	if _, err := Preallocate(12, Content{Name: "a", Size: 4}); err == nil {
		t.Error("accepted a non power of two alignment")
	}
	if _, err := Preallocate(4, Content{Name: "a", Size: 4}, Content{Name: "a", Size: 8}); err == nil {
		t.Error("accepted duplicate content names")
	}
	if l, err := Preallocate(4, Content{Name: "a", Size: math.MaxUint64 - 2}, Content{Name: "b", Size: 8}); err == nil {
		t.Errorf("sizes past 64 bits wrapped around: %+v", l)
	}
	if l, err := Preallocate(16, Content{Name: "a", Size: math.MaxUint64 - 3}); err == nil {
		t.Errorf("aligned total wrapped around: %+v", l)
	}
}

func TestBufferPairUpload(t *testing.T) {
	drv := NewNullDriver(DefaultNullAdapter())
	_, dev := newTestDevice(t, drv)

	l, err := Preallocate(16,
		Content{Name: "vertices", Size: 24, Usage: BufferUsageVertex},
		Content{Name: "indices", Size: 6, Usage: BufferUsageIndex},
	)
	if err != nil {
		t.Fatalf("Preallocate: %v", err)
	}
	pair, err := l.Instantiate(dev)
	if err != nil {
		t.Fatalf("Instantiate: %v", err)
	}
	defer pair.Release()

	if pair.Device().Usage()&BufferUsageTransferDst == 0 {
		t.Error("device buffer cannot receive transfers")
	}
	if pair.Staging().Usage() != BufferUsageTransferSrc {
		t.Errorf("staging usage = %#x", pair.Staging().Usage())
	}
	if pair.Device().MemoryType() != 0 || pair.Staging().MemoryType() != 1 {
		t.Errorf("memory types = %d, %d", pair.Device().MemoryType(), pair.Staging().MemoryType())
	}

	indices := []byte{0, 0, 1, 0, 2, 0}
	if err := pair.Stage("indices", indices); err != nil {
		t.Fatalf("Stage: %v", err)
	}
	off, err := pair.Offset("indices")
	if err != nil {
		t.Fatalf("Offset: %v", err)
	}
	mem := drv.Memory(pair.Staging().memory)
	if !bytes.Equal(mem[off:off+uint64(len(indices))], indices) {
		t.Errorf("staged bytes = %v", mem[off:off+uint64(len(indices))])
	}
	if err := pair.Stage("indices", make([]byte, 7)); err == nil {
		t.Error("staged more bytes than the region holds")
	}
	if err := pair.Stage("normals", nil); err == nil {
		t.Error("staged into an unknown region")
	}
	if err := pair.Device().Write(0, indices); err == nil {
		t.Error("wrote into device-local memory")
	}

	cb := beginBuffer(t, dev, dev.TransferQueue().Family())
	pair.RecordUpload(cb, StageVertexInput, AccessVertexAttributeRead|AccessIndexRead)
	if err := cb.End(); err != nil {
		t.Fatalf("End: %v", err)
	}
	cmds := drv.Recorded(cb.Handle())
	if len(cmds) != 2 {
		t.Fatalf("recorded %d commands, want 2", len(cmds))
	}
	cp, ok := cmds[0].(CopyBufferCmd)
	if !ok || cp.Src != pair.Staging().Handle() || cp.Dst != pair.Device().Handle() || cp.Regions[0].Size != l.Total {
		t.Errorf("copy = %+v", cmds[0])
	}
	barrier, ok := cmds[1].(PipelineBarrierCmd)
	if !ok || len(barrier.Buffers) != 1 {
		t.Fatalf("barrier = %+v", cmds[1])
	}
	b := barrier.Buffers[0]
	if barrier.SrcStage != StageTransfer || barrier.DstStage != StageVertexInput {
		t.Errorf("stages = %#x -> %#x", barrier.SrcStage, barrier.DstStage)
	}
	if b.SrcAccess != AccessTransferWrite || b.SrcFamily != QueueFamilyIgnored || b.DstFamily != QueueFamilyIgnored {
		t.Errorf("buffer barrier = %+v", b)
	}
	if err := dev.TransferQueue().SubmitAndWait(cb); err != nil {
		t.Fatalf("SubmitAndWait: %v", err)
	}
}

func TestInstantiateEmptyLayout(t *testing.T) {
	drv := NewNullDriver(DefaultNullAdapter())
	_, dev := newTestDevice(t, drv)

	l, _ := Preallocate(0)
	if _, err := l.Instantiate(dev); err == nil {
		t.Fatal("instantiated an empty layout")
	}
}

func TestInstantiateFailureLeavesNothing(t *testing.T) {
	drv := NewNullDriver(DefaultNullAdapter())
	_, dev := newTestDevice(t, drv)

	l, err := Preallocate(0, Content{Name: "v", Size: 64, Usage: BufferUsageVertex})
	if err != nil {
		t.Fatalf("Preallocate: %v", err)
	}
	drv.FailNext("BindBufferMemory", ErrorOutOfDeviceMemory)
	if _, err := l.Instantiate(dev); err == nil {
		t.Fatal("Instantiate succeeded")
	}
	if n := drv.Live(KindBuffer) + drv.Live(KindMemory); n != 0 {
		t.Errorf("%d objects left behind", n)
	}
}

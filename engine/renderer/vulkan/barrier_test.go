package vulkan

import "testing"

func TestHoldBufferOwnership(t *testing.T) {
	b := HoldBufferOwnership(nil, 64, 0, AccessTransferWrite, AccessVertexAttributeRead)
	got := b.Encode()
	want := BufferBarrierInfo{
		SrcAccess: AccessTransferWrite,
		DstAccess: AccessVertexAttributeRead,
		SrcFamily: QueueFamilyIgnored,
		DstFamily: QueueFamilyIgnored,
		Offset:    64,
		Size:      WholeSize,
	}
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestHoldImageOwnership(t *testing.T) {
	b := HoldImageOwnership(42, ColorRange, 0, AccessColorAttachmentWrite, LayoutUndefined, LayoutColorAttachmentOptimal)
	got := b.Encode()
	if got.SrcFamily != QueueFamilyIgnored || got.DstFamily != QueueFamilyIgnored {
		t.Errorf("families = %d, %d", got.SrcFamily, got.DstFamily)
	}
	if got.Image != 42 || got.OldLayout != LayoutUndefined || got.NewLayout != LayoutColorAttachmentOptimal {
		t.Errorf("got %+v", got)
	}
	if got.Range != ColorRange {
		t.Errorf("range = %+v", got.Range)
	}
}

func TestBarrierFamilies(t *testing.T) {
	tests := []struct {
		src, dst         uint32
		wantSrc, wantDst uint32
	}{
		{0, 0, QueueFamilyIgnored, QueueFamilyIgnored},
		{2, 2, QueueFamilyIgnored, QueueFamilyIgnored},
		{1, 0, 1, 0},
		{0, 1, 0, 1},
	}
	for _, tt := range tests {
		b := BufferBarrier{SrcFamily: tt.src, DstFamily: tt.dst, Size: 16}
		got := b.Encode()
		if got.SrcFamily != tt.wantSrc || got.DstFamily != tt.wantDst {
			t.Errorf("%d->%d encoded as %d->%d", tt.src, tt.dst, got.SrcFamily, got.DstFamily)
		}
		if got.Size != 16 {
			t.Errorf("size = %d, want 16", got.Size)
		}

		img := ImageBarrier{SrcFamily: tt.src, DstFamily: tt.dst}.Encode()
		if img.SrcFamily != tt.wantSrc || img.DstFamily != tt.wantDst {
			t.Errorf("image %d->%d encoded as %d->%d", tt.src, tt.dst, img.SrcFamily, img.DstFamily)
		}
	}
}

func TestPipelineBarrierRecording(t *testing.T) {
	drv := NewNullDriver(DefaultNullAdapter())
	_, dev := newTestDevice(t, drv)

	cb := beginBuffer(t, dev, dev.GraphicsQueue().Family())
	cb.PipelineBarrier(StageTopOfPipe, StageColorAttachmentOutput, true,
		[]MemoryBarrier{{SrcAccess: AccessHostWrite, DstAccess: AccessShaderRead}},
		nil,
		[]ImageBarrier{HoldImageOwnership(7, ColorRange, 0, AccessColorAttachmentWrite, LayoutUndefined, LayoutColorAttachmentOptimal)},
	)
	cmds := cb.Commands()
	if len(cmds) != 1 {
		t.Fatalf("recorded %d commands", len(cmds))
	}
	pb := cmds[0].(PipelineBarrierCmd)
	if !pb.ByRegion || len(pb.Memory) != 1 || len(pb.Buffers) != 0 || len(pb.Images) != 1 {
		t.Errorf("barrier = %+v", pb)
	}
}

package vulkan

import (
	"math"
	"testing"

	"github.com/pkg/errors"
	"github.com/spaghettifunk/vkguard/engine/core"
)

func TestChooseSurfaceFormat(t *testing.T) {
	tests := []struct {
		name    string
		formats []SurfaceFormat
		want    Format
		wantErr bool
	}{
		{"bgra srgb", []SurfaceFormat{{Format: FormatB8G8R8A8Unorm}, {Format: FormatB8G8R8A8Srgb}}, FormatB8G8R8A8Srgb, false},
		{"first srgb wins", []SurfaceFormat{{Format: FormatR8G8B8A8Srgb}, {Format: FormatB8G8R8A8Srgb}}, FormatR8G8B8A8Srgb, false},
		{"packed abgr", []SurfaceFormat{{Format: FormatA8B8G8R8SrgbPack32}}, FormatA8B8G8R8SrgbPack32, false},
		{"unorm only", []SurfaceFormat{{Format: FormatB8G8R8A8Unorm}, {Format: FormatR8G8B8A8Unorm}}, 0, true},
		{"none", nil, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ChooseSurfaceFormat(tt.formats)
			if tt.wantErr {
				if !errors.Is(err, core.ErrUnsupportedFormat) {
					t.Fatalf("err = %v, want ErrUnsupportedFormat", err)
				}
				return
			}
			if err != nil || got.Format != tt.want {
				t.Errorf("got %v, %v; want %v", got.Format, err, tt.want)
			}
		})
	}
}

func TestChoosePresentMode(t *testing.T) {
	tests := []struct {
		modes   []PresentMode
		want    PresentMode
		wantErr bool
	}{
		{[]PresentMode{PresentModeMailbox, PresentModeFifo}, PresentModeFifo, false},
		{[]PresentMode{PresentModeImmediate, PresentModeMailbox}, PresentModeMailbox, false},
		{[]PresentMode{PresentModeImmediate, PresentModeFifoRelaxed}, 0, true},
		{nil, 0, true},
	}
	for _, tt := range tests {
		got, err := ChoosePresentMode(tt.modes)
		if tt.wantErr {
			if !errors.Is(err, core.ErrUnsupportedPresentMode) {
				t.Errorf("%v: err = %v, want ErrUnsupportedPresentMode", tt.modes, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("%v: got %s, %v; want %s", tt.modes, got, err, tt.want)
		}
	}
}

func TestChooseExtent(t *testing.T) {
	caps := SurfaceCapabilities{
		CurrentExtent:  Extent2D{Width: math.MaxUint32, Height: math.MaxUint32},
		MinImageExtent: Extent2D{Width: 64, Height: 64},
		MaxImageExtent: Extent2D{Width: 1920, Height: 1080},
	}
	if got := ChooseExtent(caps, 800, 600); got != (Extent2D{Width: 800, Height: 600}) {
		t.Errorf("unconstrained: %+v", got)
	}
	if got := ChooseExtent(caps, 4000, 10); got != (Extent2D{Width: 1920, Height: 64}) {
		t.Errorf("clamped: %+v", got)
	}
	caps.CurrentExtent = Extent2D{Width: 1024, Height: 768}
	if got := ChooseExtent(caps, 800, 600); got != caps.CurrentExtent {
		t.Errorf("fixed: %+v", got)
	}
}

func TestChooseImageCount(t *testing.T) {
	tests := []struct {
		min, max, want uint32
	}{
		{1, 0, 2},
		{1, 8, 2},
		{3, 8, 3},
		{2, 2, 2},
		{1, 1, 1},
		{4, 0, 4},
	}
	for _, tt := range tests {
		got := ChooseImageCount(SurfaceCapabilities{MinImageCount: tt.min, MaxImageCount: tt.max})
		if got != tt.want {
			t.Errorf("min %d max %d: got %d, want %d", tt.min, tt.max, got, tt.want)
		}
	}
}

func newTestSwapchain(t *testing.T, drv *NullDriver) (*Device, *Swapchain) {
	t.Helper()
	inst, dev := newTestDevice(t, drv)
	surface := newTestSurface(t, inst)
	sc, err := NewSwapchain(dev, surface, 800, 600)
	if err != nil {
		t.Fatalf("NewSwapchain: %v", err)
	}
	t.Cleanup(sc.Release)
	return dev, sc
}

func TestSwapchainMinimumImages(t *testing.T) {
	a := DefaultNullAdapter()
	a.Surface.MinImageCount = 1
	a.Surface.MaxImageCount = 0
	drv := NewNullDriver(a)
	dev, sc := newTestSwapchain(t, drv)

	if sc.ImageCount() < 2 {
		t.Fatalf("image count = %d, want at least 2", sc.ImageCount())
	}
	if sc.Format().Format != FormatB8G8R8A8Srgb {
		t.Errorf("format = %d", sc.Format().Format)
	}
	if sc.PresentMode() != PresentModeFifo {
		t.Errorf("present mode = %s", sc.PresentMode())
	}
	if sc.Extent() != (Extent2D{Width: 800, Height: 600}) {
		t.Errorf("extent = %+v", sc.Extent())
	}
	if drv.Live(KindImageView) != sc.ImageCount() {
		t.Errorf("views = %d, want %d", drv.Live(KindImageView), sc.ImageCount())
	}

	available, err := dev.CreateQueueFence()
	if err != nil {
		t.Fatalf("CreateQueueFence: %v", err)
	}
	defer available.Release()
	for i := 0; i < 2*sc.ImageCount(); i++ {
		idx, err := sc.AcquireNextTargetIndex(available)
		if err != nil {
			t.Fatalf("acquire %d: %v", i, err)
		}
		if int(idx) >= sc.ImageCount() {
			t.Fatalf("acquired index %d of %d images", idx, sc.ImageCount())
		}
		if err := sc.Present(idx, available); err != nil {
			t.Fatalf("present %d: %v", i, err)
		}
	}
	if drv.Presents() != 2*sc.ImageCount() {
		t.Errorf("presents = %d", drv.Presents())
	}
}

func TestSwapchainUnsupportedSurface(t *testing.T) {
	a := DefaultNullAdapter()
	a.PresentFamilies = []uint32{1}
	drv := NewNullDriver(a)
	inst, dev := newTestDevice(t, drv)
	surface := newTestSurface(t, inst)

	if _, err := NewSwapchain(dev, surface, 800, 600); !errors.Is(err, core.ErrSurfaceNotSupported) {
		t.Fatalf("err = %v, want ErrSurfaceNotSupported", err)
	}
	if surface.Refs() != 1 {
		t.Errorf("surface refs = %d, want 1", surface.Refs())
	}
}

func TestSwapchainNoSrgbFormat(t *testing.T) {
	a := DefaultNullAdapter()
	a.Surface.Formats = []SurfaceFormat{{Format: FormatB8G8R8A8Unorm}}
	drv := NewNullDriver(a)
	inst, dev := newTestDevice(t, drv)
	surface := newTestSurface(t, inst)

	if _, err := NewSwapchain(dev, surface, 800, 600); !errors.Is(err, core.ErrUnsupportedFormat) {
		t.Fatalf("err = %v, want ErrUnsupportedFormat", err)
	}
	if drv.Live(KindSwapchain) != 0 {
		t.Error("swapchain created despite failed negotiation")
	}
}

func TestSwapchainViewFailureLeavesNothing(t *testing.T) {
	drv := NewNullDriver(DefaultNullAdapter())
	inst, dev := newTestDevice(t, drv)
	surface := newTestSurface(t, inst)

	drv.FailNext("CreateImageView", ErrorOutOfHostMemory)
	if _, err := NewSwapchain(dev, surface, 800, 600); err == nil {
		t.Fatal("NewSwapchain succeeded")
	}
	if n := drv.Live(KindSwapchain) + drv.Live(KindImageView); n != 0 {
		t.Errorf("%d objects left behind", n)
	}
}

func TestPresentOutOfDate(t *testing.T) {
	for _, res := range []Result{ErrorOutOfDate, Suboptimal} {
		t.Run(ResultString(res, false), func(t *testing.T) {
			drv := NewNullDriver(DefaultNullAdapter())
			_, sc := newTestSwapchain(t, drv)

			idx, err := sc.AcquireNextTargetIndex(nil)
			if err != nil {
				t.Fatalf("acquire: %v", err)
			}
			drv.FailNext("QueuePresent", res)
			err = sc.Present(idx, nil)
			if !errors.Is(err, core.ErrSwapchainOutOfDate) {
				t.Fatalf("err = %v, want ErrSwapchainOutOfDate", err)
			}
			de, ok := core.IsDeviceError(err)
			if !ok || de.Code != int32(res) {
				t.Errorf("device error = %+v", de)
			}
		})
	}

	t.Run("device lost", func(t *testing.T) {
		drv := NewNullDriver(DefaultNullAdapter())
		_, sc := newTestSwapchain(t, drv)
		drv.FailNext("QueuePresent", ErrorDeviceLost)
		err := sc.Present(0, nil)
		if err == nil || errors.Is(err, core.ErrSwapchainOutOfDate) {
			t.Fatalf("err = %v, want a non-recoverable device error", err)
		}
	})
}

func TestAcquireSuboptimal(t *testing.T) {
	drv := NewNullDriver(DefaultNullAdapter())
	_, sc := newTestSwapchain(t, drv)

	drv.FailNext("AcquireNextImage", Suboptimal)
	if _, err := sc.AcquireNextTargetIndex(nil); err != nil {
		t.Fatalf("suboptimal acquire: %v", err)
	}
	drv.FailNext("AcquireNextImage", ErrorOutOfDate)
	if _, err := sc.AcquireNextTargetIndex(nil); !errors.Is(err, core.ErrSwapchainOutOfDate) {
		t.Fatalf("out of date acquire: err = %v", err)
	}
}

func TestSwapchainRecreate(t *testing.T) {
	drv := NewNullDriver(DefaultNullAdapter())
	_, sc := newTestSwapchain(t, drv)
	old := sc.Handle()

	drv.SetSurfaceExtent(1280, 720)
	if err := sc.Recreate(1, 1); err != nil {
		t.Fatalf("Recreate: %v", err)
	}
	if sc.Handle() == old {
		t.Error("swapchain handle did not change")
	}
	if sc.Extent() != (Extent2D{Width: 1280, Height: 720}) {
		t.Errorf("extent = %+v, want the surface's current extent", sc.Extent())
	}
	if drv.Live(KindSwapchain) != 1 {
		t.Errorf("live swapchains = %d, want 1", drv.Live(KindSwapchain))
	}
	if drv.Live(KindImageView) != sc.ImageCount() {
		t.Errorf("live views = %d, want %d", drv.Live(KindImageView), sc.ImageCount())
	}
	if v := drv.Violations(); len(v) != 0 {
		t.Errorf("violations: %v", v)
	}

	drv.SetSurfaceExtent(0, 0)
	if err := sc.Recreate(0, 0); !errors.Is(err, core.ErrInvalidState) {
		t.Errorf("minimized recreate: err = %v", err)
	}
	if sc.Extent() != (Extent2D{Width: 1280, Height: 720}) {
		t.Error("failed recreate replaced the swapchain")
	}
}

func TestSwapchainFramebuffers(t *testing.T) {
	drv := NewNullDriver(DefaultNullAdapter())
	dev, sc := newTestSwapchain(t, drv)

	rp, err := dev.CreateRenderPass(sc.Format().Format, ClearColor{0, 0, 0.2, 1})
	if err != nil {
		t.Fatalf("CreateRenderPass: %v", err)
	}
	defer rp.Release()

	fbs, err := SwapchainFramebuffers(dev, rp, sc)
	if err != nil {
		t.Fatalf("SwapchainFramebuffers: %v", err)
	}
	if len(fbs) != sc.ImageCount() {
		t.Fatalf("framebuffers = %d, want %d", len(fbs), sc.ImageCount())
	}

	cb := beginBuffer(t, dev, dev.GraphicsQueue().Family())
	rp.Begin(cb, fbs[0])
	rp.End(cb)
	if err := cb.End(); err != nil {
		t.Fatalf("End: %v", err)
	}
	cmds := drv.Recorded(cb.Handle())
	if len(cmds) != 2 {
		t.Fatalf("recorded %d commands", len(cmds))
	}
	begin, ok := cmds[0].(BeginRenderPassCmd)
	if !ok || begin.Area.Extent != sc.Extent() || len(begin.Clear) != 1 {
		t.Errorf("begin render pass = %+v", cmds[0])
	}

	for _, fb := range fbs {
		fb.Release()
	}

	drv.FailNext("CreateFramebuffer", ErrorOutOfHostMemory)
	if _, err := SwapchainFramebuffers(dev, rp, sc); err == nil {
		t.Fatal("SwapchainFramebuffers succeeded")
	}
	if drv.Live(KindFramebuffer) != 0 {
		t.Error("framebuffers leaked after failure")
	}
}

package vulkan

import (
	"math"
	"sync"

	"github.com/pkg/errors"
	"github.com/spaghettifunk/vkguard/engine/core"
)

// sRGB formats with 8-bit channels that a swapchain may target, in no order.
var srgbFormats = []Format{FormatB8G8R8A8Srgb, FormatR8G8B8A8Srgb, FormatA8B8G8R8SrgbPack32}

// ChooseSurfaceFormat returns the first advertised 32-bit sRGB format.
func ChooseSurfaceFormat(formats []SurfaceFormat) (SurfaceFormat, error) {
	for _, f := range formats {
		for _, want := range srgbFormats {
			if f.Format == want {
				return f, nil
			}
		}
	}
	return SurfaceFormat{}, core.ErrUnsupportedFormat
}

// ChoosePresentMode prefers FIFO and falls back to mailbox.
func ChoosePresentMode(modes []PresentMode) (PresentMode, error) {
	mailbox := false
	for _, m := range modes {
		if m == PresentModeFifo {
			return m, nil
		}
		if m == PresentModeMailbox {
			mailbox = true
		}
	}
	if mailbox {
		return PresentModeMailbox, nil
	}
	return 0, core.ErrUnsupportedPresentMode
}

// ChooseExtent uses the surface's current extent when it has one, otherwise
// the requested size clamped to what the surface allows.
func ChooseExtent(caps SurfaceCapabilities, width, height uint32) Extent2D {
	if caps.CurrentExtent.Width != math.MaxUint32 {
		return caps.CurrentExtent
	}
	return Extent2D{
		Width:  clamp(width, caps.MinImageExtent.Width, caps.MaxImageExtent.Width),
		Height: clamp(height, caps.MinImageExtent.Height, caps.MaxImageExtent.Height),
	}
}

// ChooseImageCount asks for at least two images, within the surface's limit.
func ChooseImageCount(caps SurfaceCapabilities) uint32 {
	count := max(caps.MinImageCount, 2)
	if caps.MaxImageCount > 0 && count > caps.MaxImageCount {
		count = caps.MaxImageCount
	}
	return count
}

// Swapchain is the set of presentable images of a surface plus one color
// view per image. It keeps both its device and its surface alive.
type Swapchain struct {
	device  *Device
	surface *Surface

	owned       *Owned[*Device]
	caps        SurfaceCapabilities
	format      SurfaceFormat
	presentMode PresentMode
	extent      Extent2D
	images      []Handle
	views       []*Owned[*Device]
	releaseOnce sync.Once
}

// NewSwapchain negotiates format, present mode, extent and image count from
// a single capability snapshot and creates the swapchain.
func NewSwapchain(device *Device, surface *Surface, width, height uint32) (*Swapchain, error) {
	adapter := device.adapter
	ok, err := surface.CanPresent(adapter, device.families.Graphics)
	if err != nil {
		return nil, err
	}
	if !ok {
		core.LogError("Surface cannot present on queue family %d of '%s'.", device.families.Graphics, adapter.info.Name)
		return nil, core.ErrSurfaceNotSupported
	}

	sc := &Swapchain{device: device, surface: surface}
	if err := sc.build(width, height, NullHandle); err != nil {
		return nil, err
	}
	surface.retain()
	core.LogInfo("Swapchain created successfully.")
	return sc, nil
}

func (sc *Swapchain) build(width, height uint32, old Handle) error {
	d := sc.device
	caps, err := sc.surface.Capabilities(d.adapter)
	if err != nil {
		return err
	}
	format, err := ChooseSurfaceFormat(caps.Formats)
	if err != nil {
		core.LogError("No sRGB surface format among %d advertised formats.", len(caps.Formats))
		return err
	}
	mode, err := ChoosePresentMode(caps.PresentModes)
	if err != nil {
		core.LogError("Neither FIFO nor mailbox presentation is available.")
		return err
	}
	extent := ChooseExtent(caps, width, height)
	if extent.Width == 0 || extent.Height == 0 {
		return errors.Wrap(core.ErrInvalidState, "swapchain extent is zero")
	}

	var guard cleanup
	defer guard.unwind()

	h, res := d.driver.CreateSwapchain(d.handle, SwapchainInfo{
		Surface:       sc.surface.Handle(),
		MinImageCount: ChooseImageCount(caps),
		Format:        format,
		Extent:        extent,
		PresentMode:   mode,
		PreTransform:  caps.CurrentTransform,
		OldSwapchain:  old,
	})
	if err := check("vkCreateSwapchainKHR", res); err != nil {
		return err
	}
	owned := d.own("swapchain", SwapchainManagement, h, d.driver.DestroySwapchain)
	guard.push(owned.Release)

	images, res := d.driver.SwapchainImages(d.handle, h)
	if err := check("vkGetSwapchainImagesKHR", res, Incomplete); err != nil {
		return err
	}

	views := make([]*Owned[*Device], 0, len(images))
	for _, img := range images {
		v, res := d.driver.CreateImageView(d.handle, img, format.Format, ColorRange)
		if err := check("vkCreateImageView", res); err != nil {
			return err
		}
		view := d.own("image view", ImageManagement, v, d.driver.DestroyImageView)
		guard.push(view.Release)
		views = append(views, view)
	}
	guard.commit()

	sc.owned = owned
	sc.caps = caps
	sc.format = format
	sc.presentMode = mode
	sc.extent = extent
	sc.images = images
	sc.views = views
	core.LogDebug("Swapchain: %d images, %dx%d, %s", len(images), extent.Width, extent.Height, mode)
	return nil
}

// Recreate rebuilds the swapchain and its views from a fresh capability
// snapshot. Callers must not hold views or framebuffers of the old images.
func (sc *Swapchain) Recreate(width, height uint32) error {
	if sc.owned == nil || sc.owned.Released() {
		return core.ErrReleased
	}
	oldOwned, oldViews := sc.owned, sc.views
	if err := sc.build(width, height, oldOwned.Handle()); err != nil {
		return err
	}
	for _, v := range oldViews {
		v.Release()
	}
	oldOwned.Release()
	core.LogInfo("Swapchain recreated: %dx%d.", sc.extent.Width, sc.extent.Height)
	return nil
}

// AcquireNextTargetIndex blocks until an image is available and returns its
// index. signal is signaled once the image can be rendered to. A suboptimal
// swapchain still yields an image.
func (sc *Swapchain) AcquireNextTargetIndex(signal *QueueFence) (uint32, error) {
	if sc.owned.Released() {
		return 0, core.ErrReleased
	}
	d := sc.device
	idx, res := d.driver.AcquireNextImage(d.handle, sc.owned.Handle(), InfiniteTimeout, signal.Handle(), NullHandle)
	if err := check("vkAcquireNextImageKHR", res, Suboptimal); err != nil {
		return 0, err
	}
	if int(idx) >= len(sc.images) {
		return 0, errors.Wrapf(core.ErrInvalidState, "acquired image %d of %d", idx, len(sc.images))
	}
	return idx, nil
}

// Present queues image index for presentation after wait is signaled. Any
// result other than success is returned as a *core.DeviceError; out-of-date
// and suboptimal results also match core.ErrSwapchainOutOfDate.
func (sc *Swapchain) Present(index uint32, wait *QueueFence) error {
	if sc.owned.Released() {
		return core.ErrReleased
	}
	info := PresentInfo{Swapchain: sc.owned.Handle(), ImageIndex: index}
	if wait != nil {
		info.WaitSemaphores = []Handle{wait.Handle()}
	}
	res := sc.device.driver.QueuePresent(sc.device.graphics.handle, info)
	if res == Success {
		return nil
	}
	err := &core.DeviceError{Op: "vkQueuePresentKHR", Code: int32(res), Name: ResultString(res, false)}
	if !errors.Is(err, core.ErrSwapchainOutOfDate) {
		core.LogError("%s", err)
	}
	return err
}

func (sc *Swapchain) Handle() Handle {
	return sc.owned.Handle()
}

func (sc *Swapchain) Capabilities() SurfaceCapabilities {
	return sc.caps
}

func (sc *Swapchain) Format() SurfaceFormat {
	return sc.format
}

func (sc *Swapchain) PresentMode() PresentMode {
	return sc.presentMode
}

func (sc *Swapchain) Extent() Extent2D {
	return sc.extent
}

func (sc *Swapchain) ImageCount() int {
	return len(sc.images)
}

func (sc *Swapchain) Image(i int) Handle {
	return sc.images[i]
}

func (sc *Swapchain) View(i int) Handle {
	return sc.views[i].Handle()
}

// Release destroys the views and the swapchain, then lets go of the surface.
func (sc *Swapchain) Release() {
	sc.releaseOnce.Do(func() {
		for _, v := range sc.views {
			v.Release()
		}
		sc.owned.Release()
		sc.surface.release()
	})
}

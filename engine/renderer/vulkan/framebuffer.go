package vulkan

import (
	"github.com/spaghettifunk/vkguard/engine/core"
)

type Framebuffer struct {
	owned  *Owned[*Device]
	extent Extent2D
}

func (d *Device) CreateFramebuffer(rp *RenderPass, attachments []Handle, extent Extent2D) (*Framebuffer, error) {
	if d.Destroyed() {
		return nil, core.ErrReleased
	}
	h, res := d.driver.CreateFramebuffer(d.handle, FramebufferInfo{
		RenderPass:  rp.Handle(),
		Attachments: append([]Handle(nil), attachments...),
		Extent:      extent,
	})
	if err := check("vkCreateFramebuffer", res); err != nil {
		return nil, err
	}
	return &Framebuffer{
		owned:  d.own("framebuffer", FramebufferManagement, h, d.driver.DestroyFramebuffer),
		extent: extent,
	}, nil
}

// SwapchainFramebuffers creates one framebuffer per swapchain image view.
func SwapchainFramebuffers(d *Device, rp *RenderPass, sc *Swapchain) ([]*Framebuffer, error) {
	fbs := make([]*Framebuffer, 0, sc.ImageCount())
	for i := 0; i < sc.ImageCount(); i++ {
		fb, err := d.CreateFramebuffer(rp, []Handle{sc.View(i)}, sc.Extent())
		if err != nil {
			core.LogError("failed to execute framebuffer create function")
			for _, f := range fbs {
				f.Release()
			}
			return nil, err
		}
		fbs = append(fbs, fb)
	}
	return fbs, nil
}

func (fb *Framebuffer) Handle() Handle {
	if fb == nil {
		return NullHandle
	}
	return fb.owned.Handle()
}

func (fb *Framebuffer) Extent() Extent2D {
	return fb.extent
}

func (fb *Framebuffer) Release() {
	fb.owned.Release()
}

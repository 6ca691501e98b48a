package vulkan

import (
	"github.com/spaghettifunk/vkguard/engine/core"
)

// RenderPass has a single color attachment that ends up ready for
// presentation.
type RenderPass struct {
	owned  *Owned[*Device]
	format Format
	clear  ClearColor
}

func (d *Device) CreateRenderPass(format Format, clear ClearColor) (*RenderPass, error) {
	if d.Destroyed() {
		return nil, core.ErrReleased
	}
	h, res := d.driver.CreateRenderPass(d.handle, RenderPassInfo{
		ColorFormat: format,
		Clear:       true,
		FinalLayout: LayoutPresentSrc,
	})
	if err := check("vkCreateRenderPass", res); err != nil {
		return nil, err
	}
	core.LogDebug("Renderpass created.")
	return &RenderPass{
		owned:  d.own("render pass", RenderpassManagement, h, d.driver.DestroyRenderPass),
		format: format,
		clear:  clear,
	}, nil
}

func (rp *RenderPass) Handle() Handle {
	if rp == nil {
		return NullHandle
	}
	return rp.owned.Handle()
}

func (rp *RenderPass) Format() Format {
	return rp.format
}

// Begin records the start of the pass on cb, clearing to the pass's color.
func (rp *RenderPass) Begin(cb *CommandBuffer, fb *Framebuffer) *CommandBuffer {
	return cb.BeginRenderPass(rp, fb, Rect2D{Extent: fb.Extent()}, rp.clear)
}

func (rp *RenderPass) End(cb *CommandBuffer) *CommandBuffer {
	return cb.EndRenderPass()
}

func (rp *RenderPass) Release() {
	rp.owned.Release()
}

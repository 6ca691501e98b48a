package native

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/vkguard/engine/core"
	"github.com/spaghettifunk/vkguard/engine/renderer/vulkan"
)

func (d *vkDriver) RecordCommandBuffer(buffer vulkan.Handle, usage vulkan.CommandBufferUsage, cmds []vulkan.Command) vulkan.Result {
	cb := get[vk.CommandBuffer](d, buffer)
	beginInfo := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: vk.CommandBufferUsageFlags(usage),
	}
	if res := vk.BeginCommandBuffer(cb, &beginInfo); res != vk.Success {
		return result(res)
	}
	for _, cmd := range cmds {
		d.record(cb, cmd)
	}
	return result(vk.EndCommandBuffer(cb))
}

func (d *vkDriver) record(cb vk.CommandBuffer, cmd vulkan.Command) {
	switch c := cmd.(type) {
	case vulkan.BindPipelineCmd:
		vk.CmdBindPipeline(cb, vk.PipelineBindPointGraphics, get[pipelineObject](d, c.Pipeline).handle)
	case vulkan.BindVertexBuffersCmd:
		offsets := make([]vk.DeviceSize, len(c.Offsets))
		for i, o := range c.Offsets {
			offsets[i] = vk.DeviceSize(o)
		}
		vk.CmdBindVertexBuffers(cb, c.FirstBinding, uint32(len(c.Buffers)), getAll[vk.Buffer](d, c.Buffers), offsets)
	case vulkan.DrawCmd:
		vk.CmdDraw(cb, c.VertexCount, c.InstanceCount, c.FirstVertex, c.FirstInstance)
	case vulkan.CopyBufferCmd:
		regions := make([]vk.BufferCopy, len(c.Regions))
		for i, r := range c.Regions {
			regions[i] = vk.BufferCopy{
				SrcOffset: vk.DeviceSize(r.SrcOffset),
				DstOffset: vk.DeviceSize(r.DstOffset),
				Size:      vk.DeviceSize(r.Size),
			}
		}
		vk.CmdCopyBuffer(cb, get[vk.Buffer](d, c.Src), get[vk.Buffer](d, c.Dst), uint32(len(regions)), regions)
	case vulkan.PipelineBarrierCmd:
		d.recordBarrier(cb, c)
	case vulkan.BeginRenderPassCmd:
		clearValues := make([]vk.ClearValue, len(c.Clear))
		for i, color := range c.Clear {
			clearValues[i].SetColor(color[:])
		}
		renderPassInfo := vk.RenderPassBeginInfo{
			SType:       vk.StructureTypeRenderPassBeginInfo,
			RenderPass:  get[vk.RenderPass](d, c.RenderPass),
			Framebuffer: get[vk.Framebuffer](d, c.Framebuffer),
			RenderArea: vk.Rect2D{
				Offset: vk.Offset2D{X: c.Area.Offset.X, Y: c.Area.Offset.Y},
				Extent: vk.Extent2D{Width: c.Area.Extent.Width, Height: c.Area.Extent.Height},
			},
			ClearValueCount: uint32(len(clearValues)),
			PClearValues:    clearValues,
		}
		vk.CmdBeginRenderPass(cb, &renderPassInfo, vk.SubpassContentsInline)
	case vulkan.EndRenderPassCmd:
		vk.CmdEndRenderPass(cb)
	case vulkan.SetViewportCmd:
		viewports := make([]vk.Viewport, len(c.Viewports))
		for i, v := range c.Viewports {
			viewports[i] = vk.Viewport{
				X:        v.X,
				Y:        v.Y,
				Width:    v.Width,
				Height:   v.Height,
				MinDepth: v.MinDepth,
				MaxDepth: v.MaxDepth,
			}
		}
		vk.CmdSetViewport(cb, 0, uint32(len(viewports)), viewports)
	case vulkan.SetScissorCmd:
		vk.CmdSetScissor(cb, 0, uint32(len(c.Scissors)), rects(c.Scissors))
	default:
		core.LogWarn("vulkan: skipping unknown command %T", cmd)
	}
}

func (d *vkDriver) recordBarrier(cb vk.CommandBuffer, c vulkan.PipelineBarrierCmd) {
	memoryBarriers := make([]vk.MemoryBarrier, len(c.Memory))
	for i, b := range c.Memory {
		memoryBarriers[i] = vk.MemoryBarrier{
			SType:         vk.StructureTypeMemoryBarrier,
			SrcAccessMask: vk.AccessFlags(b.SrcAccess),
			DstAccessMask: vk.AccessFlags(b.DstAccess),
		}
	}
	bufferBarriers := make([]vk.BufferMemoryBarrier, len(c.Buffers))
	for i, b := range c.Buffers {
		bufferBarriers[i] = vk.BufferMemoryBarrier{
			SType:               vk.StructureTypeBufferMemoryBarrier,
			SrcAccessMask:       vk.AccessFlags(b.SrcAccess),
			DstAccessMask:       vk.AccessFlags(b.DstAccess),
			SrcQueueFamilyIndex: b.SrcFamily,
			DstQueueFamilyIndex: b.DstFamily,
			Buffer:              get[vk.Buffer](d, b.Buffer),
			Offset:              vk.DeviceSize(b.Offset),
			Size:                vk.DeviceSize(b.Size),
		}
	}
	imageBarriers := make([]vk.ImageMemoryBarrier, len(c.Images))
	for i, b := range c.Images {
		imageBarriers[i] = vk.ImageMemoryBarrier{
			SType:               vk.StructureTypeImageMemoryBarrier,
			SrcAccessMask:       vk.AccessFlags(b.SrcAccess),
			DstAccessMask:       vk.AccessFlags(b.DstAccess),
			OldLayout:           vk.ImageLayout(b.OldLayout),
			NewLayout:           vk.ImageLayout(b.NewLayout),
			SrcQueueFamilyIndex: b.SrcFamily,
			DstQueueFamilyIndex: b.DstFamily,
			Image:               get[vk.Image](d, b.Image),
			SubresourceRange:    subresourceRange(b.Range),
		}
	}
	var dependency vk.DependencyFlags
	if c.ByRegion {
		dependency = vk.DependencyFlags(vk.DependencyByRegionBit)
	}
	vk.CmdPipelineBarrier(cb,
		vk.PipelineStageFlags(c.SrcStage), vk.PipelineStageFlags(c.DstStage),
		dependency,
		uint32(len(memoryBarriers)), memoryBarriers,
		uint32(len(bufferBarriers)), bufferBarriers,
		uint32(len(imageBarriers)), imageBarriers,
	)
}

func rects(in []vulkan.Rect2D) []vk.Rect2D {
	out := make([]vk.Rect2D, len(in))
	for i, r := range in {
		out[i] = vk.Rect2D{
			Offset: vk.Offset2D{X: r.Offset.X, Y: r.Offset.Y},
			Extent: vk.Extent2D{Width: r.Extent.Width, Height: r.Extent.Height},
		}
	}
	return out
}

func subresourceRange(r vulkan.ImageSubresourceRange) vk.ImageSubresourceRange {
	return vk.ImageSubresourceRange{
		AspectMask:     vk.ImageAspectFlags(r.Aspect),
		BaseMipLevel:   r.BaseMipLevel,
		LevelCount:     r.LevelCount,
		BaseArrayLayer: r.BaseArrayLayer,
		LayerCount:     r.LayerCount,
	}
}

package native

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/vkguard/engine/renderer/vulkan"
)

func (d *vkDriver) CreateSwapchain(device vulkan.Handle, info vulkan.SwapchainInfo) (vulkan.Handle, vulkan.Result) {
	swapchainCreateInfo := vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          get[vk.Surface](d, info.Surface),
		MinImageCount:    info.MinImageCount,
		ImageFormat:      vk.Format(info.Format.Format),
		ImageColorSpace:  vk.ColorSpace(info.Format.ColorSpace),
		ImageExtent:      vk.Extent2D{Width: info.Extent.Width, Height: info.Extent.Height},
		ImageArrayLayers: 1,
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
		// Presentation runs on the graphics queue, so images are never shared.
		ImageSharingMode: vk.SharingModeExclusive,
		PreTransform:     vk.SurfaceTransformFlagBits(info.PreTransform),
		CompositeAlpha:   vk.CompositeAlphaOpaqueBit,
		PresentMode:      vk.PresentMode(info.PresentMode),
		Clipped:          vk.True,
		OldSwapchain:     get[swapchainObject](d, info.OldSwapchain).handle,
	}

	var swapchain vk.Swapchain
	if res := vk.CreateSwapchain(get[vk.Device](d, device), &swapchainCreateInfo, nil, &swapchain); res != vk.Success {
		return vulkan.NullHandle, result(res)
	}
	return d.put(swapchainObject{handle: swapchain}), vulkan.Success
}

func (d *vkDriver) DestroySwapchain(device, swapchain vulkan.Handle) {
	obj, ok := d.take(swapchain).(swapchainObject)
	if !ok {
		return
	}
	for _, img := range obj.images {
		d.take(img)
	}
	vk.DestroySwapchain(get[vk.Device](d, device), obj.handle, nil)
}

func (d *vkDriver) SwapchainImages(device, swapchain vulkan.Handle) ([]vulkan.Handle, vulkan.Result) {
	obj := get[swapchainObject](d, swapchain)
	if obj.images != nil {
		return append([]vulkan.Handle(nil), obj.images...), vulkan.Success
	}

	dev := get[vk.Device](d, device)
	var count uint32
	if res := vk.GetSwapchainImages(dev, obj.handle, &count, nil); res != vk.Success {
		return nil, result(res)
	}
	images := make([]vk.Image, count)
	if res := vk.GetSwapchainImages(dev, obj.handle, &count, images); res != vk.Success {
		return nil, result(res)
	}
	obj.images = make([]vulkan.Handle, count)
	for i, img := range images[:count] {
		obj.images[i] = d.put(img)
	}

	d.mu.Lock()
	d.objects[swapchain] = obj
	d.mu.Unlock()
	return append([]vulkan.Handle(nil), obj.images...), vulkan.Success
}

func (d *vkDriver) CreateImageView(device, image vulkan.Handle, format vulkan.Format, rng vulkan.ImageSubresourceRange) (vulkan.Handle, vulkan.Result) {
	viewInfo := vk.ImageViewCreateInfo{
		SType:            vk.StructureTypeImageViewCreateInfo,
		Image:            get[vk.Image](d, image),
		ViewType:         vk.ImageViewType2d,
		Format:           vk.Format(format),
		SubresourceRange: subresourceRange(rng),
	}
	var view vk.ImageView
	if res := vk.CreateImageView(get[vk.Device](d, device), &viewInfo, nil, &view); res != vk.Success {
		return vulkan.NullHandle, result(res)
	}
	return d.put(view), vulkan.Success
}

func (d *vkDriver) DestroyImageView(device, view vulkan.Handle) {
	if v, ok := d.take(view).(vk.ImageView); ok {
		vk.DestroyImageView(get[vk.Device](d, device), v, nil)
	}
}

func (d *vkDriver) AcquireNextImage(device, swapchain vulkan.Handle, timeout uint64, semaphore, fence vulkan.Handle) (uint32, vulkan.Result) {
	var imageIndex uint32
	res := vk.AcquireNextImage(
		get[vk.Device](d, device),
		get[swapchainObject](d, swapchain).handle,
		timeout,
		get[vk.Semaphore](d, semaphore),
		get[vk.Fence](d, fence),
		&imageIndex,
	)
	return imageIndex, result(res)
}

func (d *vkDriver) QueuePresent(queue vulkan.Handle, info vulkan.PresentInfo) vulkan.Result {
	presentInfo := vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: uint32(len(info.WaitSemaphores)),
		PWaitSemaphores:    getAll[vk.Semaphore](d, info.WaitSemaphores),
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{get[swapchainObject](d, info.Swapchain).handle},
		PImageIndices:      []uint32{info.ImageIndex},
	}
	return result(vk.QueuePresent(get[queueObject](d, queue).queue, &presentInfo))
}

func (d *vkDriver) CreateRenderPass(device vulkan.Handle, info vulkan.RenderPassInfo) (vulkan.Handle, vulkan.Result) {
	loadOp := vk.AttachmentLoadOpLoad
	if info.Clear {
		loadOp = vk.AttachmentLoadOpClear
	}
	colorAttachment := vk.AttachmentDescription{
		Format:         vk.Format(info.ColorFormat),
		Samples:        vk.SampleCount1Bit,
		LoadOp:         loadOp,
		StoreOp:        vk.AttachmentStoreOpStore,
		StencilLoadOp:  vk.AttachmentLoadOpDontCare,
		StencilStoreOp: vk.AttachmentStoreOpDontCare,
		InitialLayout:  vk.ImageLayoutUndefined,
		FinalLayout:    vk.ImageLayout(info.FinalLayout),
	}
	if !info.Clear {
		colorAttachment.InitialLayout = vk.ImageLayout(info.FinalLayout)
	}

	subpass := vk.SubpassDescription{
		PipelineBindPoint:    vk.PipelineBindPointGraphics,
		ColorAttachmentCount: 1,
		PColorAttachments: []vk.AttachmentReference{{
			Attachment: 0,
			Layout:     vk.ImageLayoutColorAttachmentOptimal,
		}},
	}

	dependency := vk.SubpassDependency{
		SrcSubpass:    vk.SubpassExternal,
		DstSubpass:    0,
		SrcStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		SrcAccessMask: 0,
		DstStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		DstAccessMask: vk.AccessFlags(vk.AccessColorAttachmentReadBit) | vk.AccessFlags(vk.AccessColorAttachmentWriteBit),
	}

	renderpassCreateInfo := vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: 1,
		PAttachments:    []vk.AttachmentDescription{colorAttachment},
		SubpassCount:    1,
		PSubpasses:      []vk.SubpassDescription{subpass},
		DependencyCount: 1,
		PDependencies:   []vk.SubpassDependency{dependency},
	}

	var pass vk.RenderPass
	if res := vk.CreateRenderPass(get[vk.Device](d, device), &renderpassCreateInfo, nil, &pass); res != vk.Success {
		return vulkan.NullHandle, result(res)
	}
	return d.put(pass), vulkan.Success
}

func (d *vkDriver) DestroyRenderPass(device, pass vulkan.Handle) {
	if p, ok := d.take(pass).(vk.RenderPass); ok {
		vk.DestroyRenderPass(get[vk.Device](d, device), p, nil)
	}
}

func (d *vkDriver) CreateFramebuffer(device vulkan.Handle, info vulkan.FramebufferInfo) (vulkan.Handle, vulkan.Result) {
	framebufferCreateInfo := vk.FramebufferCreateInfo{
		SType:           vk.StructureTypeFramebufferCreateInfo,
		RenderPass:      get[vk.RenderPass](d, info.RenderPass),
		AttachmentCount: uint32(len(info.Attachments)),
		PAttachments:    getAll[vk.ImageView](d, info.Attachments),
		Width:           info.Extent.Width,
		Height:          info.Extent.Height,
		Layers:          1,
	}
	var framebuffer vk.Framebuffer
	if res := vk.CreateFramebuffer(get[vk.Device](d, device), &framebufferCreateInfo, nil, &framebuffer); res != vk.Success {
		return vulkan.NullHandle, result(res)
	}
	return d.put(framebuffer), vulkan.Success
}

func (d *vkDriver) DestroyFramebuffer(device, framebuffer vulkan.Handle) {
	if f, ok := d.take(framebuffer).(vk.Framebuffer); ok {
		vk.DestroyFramebuffer(get[vk.Device](d, device), f, nil)
	}
}

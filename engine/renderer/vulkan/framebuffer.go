package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/vkframe/engine/core"
	"github.com/spaghettifunk/vkframe/engine/renderer/present"
)

type VulkanFramebuffer struct {
	Handle      vk.Framebuffer
	Attachments []vk.ImageView
	Width       uint32
	Height      uint32
}

func FramebufferCreate(context *VulkanContext, renderpass vk.RenderPass, width, height uint32, attachments []vk.ImageView) (*VulkanFramebuffer, error) {
	outFramebuffer := &VulkanFramebuffer{
		Attachments: append([]vk.ImageView(nil), attachments...),
		Width:       width,
		Height:      height,
	}

	framebufferCreateInfo := vk.FramebufferCreateInfo{
		SType:           vk.StructureTypeFramebufferCreateInfo,
		RenderPass:      renderpass,
		AttachmentCount: uint32(len(outFramebuffer.Attachments)),
		PAttachments:    outFramebuffer.Attachments,
		Width:           width,
		Height:          height,
		Layers:          1,
	}

	var pFramebuffer vk.Framebuffer
	if res := vk.CreateFramebuffer(context.Device.LogicalDevice, &framebufferCreateInfo, context.Allocator, &pFramebuffer); res != vk.Success {
		err := fmt.Errorf("vkCreateFramebuffer failed with %s", VulkanResultString(res, true))
		core.LogError(err.Error())
		return nil, err
	}
	outFramebuffer.Handle = pFramebuffer
	return outFramebuffer, nil
}

func (vfb *VulkanFramebuffer) Destroy(context *VulkanContext) {
	if vfb.Handle != vk.NullFramebuffer {
		vk.DestroyFramebuffer(context.Device.LogicalDevice, vfb.Handle, context.Allocator)
		vfb.Handle = vk.NullFramebuffer
	}
	vfb.Attachments = nil
}

func (d *Driver) CreateFramebuffer(pass present.RenderPass, extent present.Extent2D, attachments ...present.ImageView) (present.Framebuffer, error) {
	rp, ok := d.renderPasses.get(present.Handle(pass))
	if !ok {
		return 0, fmt.Errorf("framebuffer: unknown render pass %d", pass)
	}
	views := make([]vk.ImageView, len(attachments))
	for i, a := range attachments {
		view, ok := d.imageViews.get(present.Handle(a))
		if !ok {
			return 0, fmt.Errorf("framebuffer: unknown image view %d", a)
		}
		views[i] = view
	}

	fb, err := FramebufferCreate(d.context, rp.Handle, extent.Width, extent.Height, views)
	if err != nil {
		return 0, err
	}
	return present.Framebuffer(d.framebuffers.add(fb)), nil
}

func (d *Driver) DestroyFramebuffer(f present.Framebuffer) {
	if fb, ok := d.framebuffers.take(present.Handle(f)); ok {
		fb.Destroy(d.context)
	}
}

package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/vkframe/engine/core"
	"github.com/spaghettifunk/vkframe/engine/renderer/present"
)

type VulkanSwapchain struct {
	Handle      vk.Swapchain
	ImageFormat vk.SurfaceFormat
	Extent      vk.Extent2D

	// handles of the images owned by the swapchain, filled on first query
	Images []present.Image
}

// sharingMode is concurrent when graphics and present live in different
// queue families.
func sharingMode(families present.QueueFamilies) (vk.SharingMode, []uint32) {
	if families.Shared() {
		return vk.SharingModeExclusive, nil
	}
	return vk.SharingModeConcurrent, []uint32{families.Graphics, families.Present}
}

func (d *Driver) CreateSwapchain(info present.SwapchainInfo) (present.Swapchain, error) {
	swapchain := &VulkanSwapchain{
		ImageFormat: vk.SurfaceFormat{
			Format:     vk.Format(info.Format.Format),
			ColorSpace: vk.ColorSpace(info.Format.ColorSpace),
		},
		Extent: vk.Extent2D{Width: info.Extent.Width, Height: info.Extent.Height},
	}

	mode, indices := sharingMode(info.Families)
	swapchainCreateInfo := vk.SwapchainCreateInfo{
		SType:                 vk.StructureTypeSwapchainCreateInfo,
		Surface:               d.context.Surface,
		MinImageCount:         info.MinImageCount,
		ImageFormat:           swapchain.ImageFormat.Format,
		ImageColorSpace:       swapchain.ImageFormat.ColorSpace,
		ImageExtent:           swapchain.Extent,
		ImageArrayLayers:      1,
		ImageUsage:            vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
		ImageSharingMode:      mode,
		QueueFamilyIndexCount: uint32(len(indices)),
		PQueueFamilyIndices:   indices,
		PreTransform:          vk.SurfaceTransformFlagBits(info.PreTransform),
		CompositeAlpha:        vk.CompositeAlphaOpaqueBit,
		PresentMode:           vk.PresentMode(info.PresentMode),
		Clipped:               vk.True,
		OldSwapchain:          vk.NullSwapchain,
	}

	var swapchainHandle vk.Swapchain
	if res := vk.CreateSwapchain(d.device(), &swapchainCreateInfo, d.context.Allocator, &swapchainHandle); res != vk.Success {
		err := fmt.Errorf("vkCreateSwapchainKHR failed with %s", VulkanResultString(res, true))
		core.LogError(err.Error())
		return 0, err
	}
	swapchain.Handle = swapchainHandle
	return present.Swapchain(d.swapchains.add(swapchain)), nil
}

func (d *Driver) DestroySwapchain(s present.Swapchain) {
	swapchain, ok := d.swapchains.take(present.Handle(s))
	if !ok {
		return
	}
	// The images are owned by the swapchain and go away with it.
	for _, img := range swapchain.Images {
		d.images.take(present.Handle(img))
	}
	vk.DestroySwapchain(d.device(), swapchain.Handle, d.context.Allocator)
}

func (d *Driver) SwapchainImages(s present.Swapchain) ([]present.Image, error) {
	swapchain, ok := d.swapchains.get(present.Handle(s))
	if !ok {
		return nil, fmt.Errorf("unknown swapchain %d", s)
	}
	if swapchain.Images != nil {
		return swapchain.Images, nil
	}

	var imageCount uint32
	if res := vk.GetSwapchainImages(d.device(), swapchain.Handle, &imageCount, nil); res != vk.Success {
		return nil, fmt.Errorf("vkGetSwapchainImagesKHR failed with %s", VulkanResultString(res, false))
	}
	images := make([]vk.Image, imageCount)
	if res := vk.GetSwapchainImages(d.device(), swapchain.Handle, &imageCount, images); res != vk.Success {
		return nil, fmt.Errorf("vkGetSwapchainImagesKHR failed with %s", VulkanResultString(res, false))
	}

	swapchain.Images = make([]present.Image, imageCount)
	for i, img := range images {
		swapchain.Images[i] = present.Image(d.images.add(img))
	}
	return swapchain.Images, nil
}

func (d *Driver) CreateImageView(image present.Image, format present.Format) (present.ImageView, error) {
	img, ok := d.images.get(present.Handle(image))
	if !ok {
		return 0, fmt.Errorf("unknown image %d", image)
	}
	view, err := createImageView(d.context, img, vk.Format(format), vk.ImageAspectFlags(vk.ImageAspectColorBit), 1)
	if err != nil {
		return 0, err
	}
	return present.ImageView(d.imageViews.add(view)), nil
}

func (d *Driver) DestroyImageView(v present.ImageView) {
	if view, ok := d.imageViews.take(present.Handle(v)); ok {
		vk.DestroyImageView(d.device(), view, d.context.Allocator)
	}
}

func (d *Driver) AcquireNextImage(s present.Swapchain, timeout uint64, signal present.Semaphore) (uint32, present.Result) {
	swapchain, ok := d.swapchains.get(present.Handle(s))
	if !ok {
		core.LogError("acquire from unknown swapchain %d", s)
		return 0, present.Unknown
	}
	semaphore, ok := d.semaphores.get(present.Handle(signal))
	if !ok {
		core.LogError("acquire signals unknown semaphore %d", signal)
		return 0, present.Unknown
	}

	var imageIndex uint32
	res := vk.AcquireNextImage(d.device(), swapchain.Handle, timeout, semaphore, vk.NullFence, &imageIndex)
	return imageIndex, toResult(res)
}

func (d *Driver) QueuePresent(q present.Queue, info present.PresentInfo) present.Result {
	queue, ok := d.queues.get(present.Handle(q))
	if !ok {
		core.LogError("present on unknown queue %d", q)
		return present.Unknown
	}
	swapchain, ok := d.swapchains.get(present.Handle(info.Swapchain))
	if !ok {
		core.LogError("present of unknown swapchain %d", info.Swapchain)
		return present.Unknown
	}

	// Return the image to the swapchain for presentation.
	waits, err := resolve(d.semaphores, info.WaitSemaphores)
	if err != nil {
		core.LogError("present wait semaphores: %s", err)
		return present.Unknown
	}
	presentInfo := vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: uint32(len(waits)),
		PWaitSemaphores:    waits,
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{swapchain.Handle},
		PImageIndices:      []uint32{info.ImageIndex},
	}
	return toResult(vk.QueuePresent(queue, &presentInfo))
}

package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/vkframe/engine/core"
	"github.com/spaghettifunk/vkframe/engine/math"
	"github.com/spaghettifunk/vkframe/engine/renderer/present"
)

const textureFormat = vk.FormatR8g8b8a8Srgb

// canBlit reports whether format supports linear filtered blits, which mip
// chain generation needs.
func (d *Driver) canBlit(format vk.Format) bool {
	var properties vk.FormatProperties
	vk.GetPhysicalDeviceFormatProperties(d.context.Device.PhysicalDevice, format, &properties)
	properties.Deref()
	need := vk.FormatFeatureFlags(vk.FormatFeatureSampledImageFilterLinearBit)
	return properties.OptimalTilingFeatures&need == need
}

// CreateTexture uploads tightly packed RGBA8 pixels, generates the mip chain
// and creates the sampler.
func (d *Driver) CreateTexture(runner OneShotRunner, width, height uint32, pixels []byte) (present.Texture, error) {
	if width == 0 || height == 0 {
		return present.Texture{}, fmt.Errorf("texture has no area: %dx%d", width, height)
	}
	if want := int(width) * int(height) * 4; len(pixels) != want {
		return present.Texture{}, fmt.Errorf("texture %dx%d needs %d bytes, got %d", width, height, want, len(pixels))
	}

	mipLevels := math.MipLevels(width, height)
	if !d.canBlit(textureFormat) {
		core.LogWarn("texture format does not support linear blits, skipping mip generation")
		mipLevels = 1
	}

	staging, err := BufferCreate(d.context, uint64(len(pixels)),
		vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit))
	if err != nil {
		return present.Texture{}, err
	}
	defer staging.Destroy(d.context)
	if res := staging.LoadData(d.context, 0, pixels); res != vk.Success {
		return present.Texture{}, fmt.Errorf("texture staging write failed with %s", VulkanResultString(res, false))
	}

	img, err := ImageCreate(d.context, imageConfig{
		Width:  width,
		Height: height,
		Format: textureFormat,
		Tiling: vk.ImageTilingOptimal,
		Usage: vk.ImageUsageFlags(vk.ImageUsageTransferSrcBit) |
			vk.ImageUsageFlags(vk.ImageUsageTransferDstBit) |
			vk.ImageUsageFlags(vk.ImageUsageSampledBit),
		MemoryFlags: vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit),
		MipLevels:   mipLevels,
		Aspect:      vk.ImageAspectFlags(vk.ImageAspectColorBit),
		CreateView:  true,
	})
	if err != nil {
		return present.Texture{}, err
	}

	err = runner.OneShot(func(cb present.CommandBuffer) error {
		vcb, err := d.commandBuffer(cb)
		if err != nil {
			return err
		}
		return recordTextureUpload(vcb.Handle, staging.Handle, img)
	})
	if err != nil {
		img.ImageDestroy(d.context)
		return present.Texture{}, fmt.Errorf("texture upload: %w", err)
	}

	sampler, err := d.createSampler(mipLevels)
	if err != nil {
		img.ImageDestroy(d.context)
		return present.Texture{}, err
	}

	core.LogDebug("texture %dx%d uploaded with %d mip levels", width, height, mipLevels)
	view := d.imageViews.add(img.View)
	d.ownedImages.add(img)
	return present.Texture{
		View:    present.ImageView(view),
		Sampler: present.Sampler(d.samplers.add(sampler)),
	}, nil
}

// recordTextureUpload copies the staging buffer into mip 0 and blits each
// level from the previous one. Every level ends shader readable.
func recordTextureUpload(cb vk.CommandBuffer, staging vk.Buffer, img *VulkanImage) error {
	if err := cmdTransitionLayout(cb, img.Handle, vk.ImageLayoutUndefined, vk.ImageLayoutTransferDstOptimal, 0, img.MipLevels); err != nil {
		return err
	}

	vk.CmdCopyBufferToImage(cb, staging, img.Handle, vk.ImageLayoutTransferDstOptimal, 1, []vk.BufferImageCopy{{
		BufferOffset: 0,
		ImageSubresource: vk.ImageSubresourceLayers{
			AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
			MipLevel:       0,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
		ImageOffset: vk.Offset3D{X: 0, Y: 0, Z: 0},
		ImageExtent: vk.Extent3D{Width: img.Width, Height: img.Height, Depth: 1},
	}})

	w, h := int32(img.Width), int32(img.Height)
	for level := uint32(1); level < img.MipLevels; level++ {
		if err := cmdTransitionLayout(cb, img.Handle, vk.ImageLayoutTransferDstOptimal, vk.ImageLayoutTransferSrcOptimal, level-1, 1); err != nil {
			return err
		}
		nw, nh := math.HalveDimension(w), math.HalveDimension(h)
		blit := vk.ImageBlit{
			SrcSubresource: vk.ImageSubresourceLayers{
				AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
				MipLevel:   level - 1,
				LayerCount: 1,
			},
			SrcOffsets: [2]vk.Offset3D{{X: 0, Y: 0, Z: 0}, {X: w, Y: h, Z: 1}},
			DstSubresource: vk.ImageSubresourceLayers{
				AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
				MipLevel:   level,
				LayerCount: 1,
			},
			DstOffsets: [2]vk.Offset3D{{X: 0, Y: 0, Z: 0}, {X: nw, Y: nh, Z: 1}},
		}
		vk.CmdBlitImage(cb,
			img.Handle, vk.ImageLayoutTransferSrcOptimal,
			img.Handle, vk.ImageLayoutTransferDstOptimal,
			1, []vk.ImageBlit{blit}, vk.FilterLinear)

		if err := cmdTransitionLayout(cb, img.Handle, vk.ImageLayoutTransferSrcOptimal, vk.ImageLayoutShaderReadOnlyOptimal, level-1, 1); err != nil {
			return err
		}
		w, h = nw, nh
	}

	// The last level was only ever a blit destination.
	return cmdTransitionLayout(cb, img.Handle, vk.ImageLayoutTransferDstOptimal, vk.ImageLayoutShaderReadOnlyOptimal, img.MipLevels-1, 1)
}

func (d *Driver) createSampler(mipLevels uint32) (vk.Sampler, error) {
	props := d.context.Device.Properties
	props.Limits.Deref()
	anisotropy := d.context.Device.Features.SamplerAnisotropy == vk.True

	samplerInfo := vk.SamplerCreateInfo{
		SType:                   vk.StructureTypeSamplerCreateInfo,
		MagFilter:               vk.FilterLinear,
		MinFilter:               vk.FilterLinear,
		AddressModeU:            vk.SamplerAddressModeRepeat,
		AddressModeV:            vk.SamplerAddressModeRepeat,
		AddressModeW:            vk.SamplerAddressModeRepeat,
		AnisotropyEnable:        vk.False,
		MaxAnisotropy:           1,
		BorderColor:             vk.BorderColorIntOpaqueBlack,
		UnnormalizedCoordinates: vk.False,
		CompareEnable:           vk.False,
		CompareOp:               vk.CompareOpAlways,
		MipmapMode:              vk.SamplerMipmapModeLinear,
		MipLodBias:              0,
		MinLod:                  0,
		MaxLod:                  float32(mipLevels),
	}
	if anisotropy {
		samplerInfo.AnisotropyEnable = vk.True
		samplerInfo.MaxAnisotropy = math.Clamp(props.Limits.MaxSamplerAnisotropy, 1, 16)
	}

	var sampler vk.Sampler
	if res := vk.CreateSampler(d.device(), &samplerInfo, d.context.Allocator, &sampler); res != vk.Success {
		err := fmt.Errorf("vkCreateSampler failed with %s", VulkanResultString(res, true))
		core.LogError(err.Error())
		return vk.NullSampler, err
	}
	return sampler, nil
}

// DestroyTexture releases the sampler and the image behind the view.
func (d *Driver) DestroyTexture(t present.Texture) {
	if sampler, ok := d.samplers.take(present.Handle(t.Sampler)); ok {
		vk.DestroySampler(d.device(), sampler, d.context.Allocator)
	}
	view, ok := d.imageViews.take(present.Handle(t.View))
	if !ok {
		return
	}
	for h, img := range d.ownedImages.items {
		if img.View == view {
			d.ownedImages.take(h)
			img.ImageDestroy(d.context)
			return
		}
	}
}

package vulkan

import (
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/vkframe/engine/renderer/present"
	"github.com/stretchr/testify/assert"
)

func TestSelectQueueFamilies(t *testing.T) {
	tests := []struct {
		name     string
		families []queueFamilyCaps
		want     present.QueueFamilies
		ok       bool
	}{
		{
			name:     "shared family wins over earlier split ones",
			families: []queueFamilyCaps{{Graphics: true}, {Present: true}, {Graphics: true, Present: true}},
			want:     present.QueueFamilies{Graphics: 2, Present: 2},
			ok:       true,
		},
		{
			name:     "split families",
			families: []queueFamilyCaps{{Present: true}, {Graphics: true}, {Graphics: true}},
			want:     present.QueueFamilies{Graphics: 1, Present: 0},
			ok:       true,
		},
		{
			name:     "no present support",
			families: []queueFamilyCaps{{Graphics: true}, {}},
		},
		{
			name: "no families",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := selectQueueFamilies(tt.families)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestHasExtensions(t *testing.T) {
	available := []string{"VK_KHR_swapchain", "VK_KHR_portability_subset"}

	missing, ok := hasExtensions(available, []string{"VK_KHR_swapchain"})
	assert.True(t, ok)
	assert.Empty(t, missing)

	missing, ok = hasExtensions(available, []string{"VK_KHR_swapchain", "VK_EXT_mesh_shader"})
	assert.False(t, ok)
	assert.Equal(t, "VK_EXT_mesh_shader", missing)

	_, ok = hasExtensions(nil, nil)
	assert.True(t, ok)
}

func TestAppendMissing(t *testing.T) {
	list := appendMissing([]string{"VK_KHR_surface"}, "VK_KHR_surface", "VK_EXT_debug_report")
	assert.Equal(t, []string{"VK_KHR_surface", "VK_EXT_debug_report"}, list)
}

func TestToSurfaceSupport(t *testing.T) {
	info := &VulkanSwapchainSupportInfo{
		Capabilities: vk.SurfaceCapabilities{
			MinImageCount:  2,
			MaxImageCount:  0,
			CurrentExtent:  vk.Extent2D{Width: 0xFFFFFFFF, Height: 0xFFFFFFFF},
			MinImageExtent: vk.Extent2D{Width: 1, Height: 1},
			MaxImageExtent: vk.Extent2D{Width: 4096, Height: 4096},
		},
		Formats: []vk.SurfaceFormat{
			{Format: vk.FormatB8g8r8a8Srgb, ColorSpace: vk.ColorSpaceSrgbNonlinear},
		},
		PresentModes: []vk.PresentMode{vk.PresentModeFifo, vk.PresentModeMailbox},
	}

	got := toSurfaceSupport(info)
	assert.Equal(t, uint32(2), got.Capabilities.MinImageCount)
	assert.Zero(t, got.Capabilities.MaxImageCount)
	assert.Equal(t, present.Extent2D{Width: 0xFFFFFFFF, Height: 0xFFFFFFFF}, got.Capabilities.CurrentExtent)
	assert.Equal(t, present.Extent2D{Width: 4096, Height: 4096}, got.Capabilities.MaxImageExtent)
	assert.Equal(t, []present.SurfaceFormat{{Format: present.FormatB8G8R8A8Srgb, ColorSpace: present.ColorSpaceSrgbNonlinear}}, got.Formats)
	assert.Equal(t, []present.PresentMode{present.PresentModeFifo, present.PresentModeMailbox}, got.PresentModes)
}

func TestSharingMode(t *testing.T) {
	mode, indices := sharingMode(present.QueueFamilies{Graphics: 0, Present: 0})
	assert.Equal(t, vk.SharingModeExclusive, mode)
	assert.Empty(t, indices)

	mode, indices = sharingMode(present.QueueFamilies{Graphics: 0, Present: 2})
	assert.Equal(t, vk.SharingModeConcurrent, mode)
	assert.Equal(t, []uint32{0, 2}, indices)
}

package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/vkframe/engine/core"
	"github.com/spaghettifunk/vkframe/engine/renderer/present"
)

const (
	uniformBinding uint32 = 0
	samplerBinding uint32 = 1
)

// VulkanDescriptorPool remembers the sets allocated from it; they are freed
// together with the pool.
type VulkanDescriptorPool struct {
	Handle vk.DescriptorPool
	Sets   []present.DescriptorSet
}

// CreateDescriptorSetLayout builds the one layout every generation uses:
// the per-image transform uniform for the vertex stage and the texture
// sampler for the fragment stage.
func (d *Driver) CreateDescriptorSetLayout() (present.DescriptorSetLayout, error) {
	bindings := []vk.DescriptorSetLayoutBinding{
		{
			Binding:         uniformBinding,
			DescriptorType:  vk.DescriptorTypeUniformBuffer,
			DescriptorCount: 1,
			StageFlags:      vk.ShaderStageFlags(vk.ShaderStageVertexBit),
		},
		{
			Binding:         samplerBinding,
			DescriptorType:  vk.DescriptorTypeCombinedImageSampler,
			DescriptorCount: 1,
			StageFlags:      vk.ShaderStageFlags(vk.ShaderStageFragmentBit),
		},
	}
	layoutInfo := vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uint32(len(bindings)),
		PBindings:    bindings,
	}

	var layout vk.DescriptorSetLayout
	if res := vk.CreateDescriptorSetLayout(d.device(), &layoutInfo, d.context.Allocator, &layout); res != vk.Success {
		err := fmt.Errorf("vkCreateDescriptorSetLayout failed with %s", VulkanResultString(res, true))
		core.LogError(err.Error())
		return 0, err
	}
	return present.DescriptorSetLayout(d.setLayouts.add(layout)), nil
}

func (d *Driver) DestroyDescriptorSetLayout(l present.DescriptorSetLayout) {
	if layout, ok := d.setLayouts.take(present.Handle(l)); ok {
		vk.DestroyDescriptorSetLayout(d.device(), layout, d.context.Allocator)
	}
}

func (d *Driver) CreateDescriptorPool(count uint32) (present.DescriptorPool, error) {
	poolSizes := []vk.DescriptorPoolSize{
		{Type: vk.DescriptorTypeUniformBuffer, DescriptorCount: count},
		{Type: vk.DescriptorTypeCombinedImageSampler, DescriptorCount: count},
	}
	poolInfo := vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		PoolSizeCount: uint32(len(poolSizes)),
		PPoolSizes:    poolSizes,
		MaxSets:       count,
	}

	var pool vk.DescriptorPool
	if res := vk.CreateDescriptorPool(d.device(), &poolInfo, d.context.Allocator, &pool); res != vk.Success {
		err := fmt.Errorf("vkCreateDescriptorPool failed with %s", VulkanResultString(res, true))
		core.LogError(err.Error())
		return 0, err
	}
	return present.DescriptorPool(d.descriptorPools.add(&VulkanDescriptorPool{Handle: pool})), nil
}

func (d *Driver) DestroyDescriptorPool(p present.DescriptorPool) {
	pool, ok := d.descriptorPools.take(present.Handle(p))
	if !ok {
		return
	}
	for _, set := range pool.Sets {
		d.descriptorSets.take(present.Handle(set))
	}
	vk.DestroyDescriptorPool(d.device(), pool.Handle, d.context.Allocator)
}

func (d *Driver) AllocateDescriptorSets(p present.DescriptorPool, l present.DescriptorSetLayout, count uint32) ([]present.DescriptorSet, error) {
	pool, ok := d.descriptorPools.get(present.Handle(p))
	if !ok {
		return nil, fmt.Errorf("unknown descriptor pool %d", p)
	}
	layout, ok := d.setLayouts.get(present.Handle(l))
	if !ok {
		return nil, fmt.Errorf("unknown descriptor set layout %d", l)
	}

	out := make([]present.DescriptorSet, 0, count)
	for i := uint32(0); i < count; i++ {
		var set vk.DescriptorSet
		allocateInfo := vk.DescriptorSetAllocateInfo{
			SType:              vk.StructureTypeDescriptorSetAllocateInfo,
			DescriptorPool:     pool.Handle,
			DescriptorSetCount: 1,
			PSetLayouts:        []vk.DescriptorSetLayout{layout},
		}
		if res := vk.AllocateDescriptorSets(d.device(), &allocateInfo, &set); res != vk.Success {
			// Sets already handed out are released with the pool.
			return nil, fmt.Errorf("vkAllocateDescriptorSets failed on set %d with %s", i, VulkanResultString(res, false))
		}
		h := present.DescriptorSet(d.descriptorSets.add(set))
		pool.Sets = append(pool.Sets, h)
		out = append(out, h)
	}
	return out, nil
}

func (d *Driver) UpdateDescriptorSet(s present.DescriptorSet, uniform present.Buffer, size uint64, texture present.Texture) {
	set, ok := d.descriptorSets.get(present.Handle(s))
	if !ok {
		core.LogError("update of unknown descriptor set %d", s)
		return
	}
	buffer, ok := d.buffers.get(present.Handle(uniform))
	if !ok {
		core.LogError("descriptor set %d: unknown uniform buffer %d", s, uniform)
		return
	}
	view, _ := d.imageViews.get(present.Handle(texture.View))
	sampler, _ := d.samplers.get(present.Handle(texture.Sampler))

	writes := []vk.WriteDescriptorSet{
		{
			SType:           vk.StructureTypeWriteDescriptorSet,
			DstSet:          set,
			DstBinding:      uniformBinding,
			DstArrayElement: 0,
			DescriptorType:  vk.DescriptorTypeUniformBuffer,
			DescriptorCount: 1,
			PBufferInfo: []vk.DescriptorBufferInfo{{
				Buffer: buffer.Handle,
				Offset: 0,
				Range:  vk.DeviceSize(size),
			}},
		},
		{
			SType:           vk.StructureTypeWriteDescriptorSet,
			DstSet:          set,
			DstBinding:      samplerBinding,
			DstArrayElement: 0,
			DescriptorType:  vk.DescriptorTypeCombinedImageSampler,
			DescriptorCount: 1,
			PImageInfo: []vk.DescriptorImageInfo{{
				ImageLayout: vk.ImageLayoutShaderReadOnlyOptimal,
				ImageView:   view,
				Sampler:     sampler,
			}},
		},
	}
	vk.UpdateDescriptorSets(d.device(), uint32(len(writes)), writes, 0, nil)
}

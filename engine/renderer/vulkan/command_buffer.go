package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/vkframe/engine/core"
	"github.com/spaghettifunk/vkframe/engine/renderer/present"
)

type VulkanCommandBufferState int

const (
	COMMAND_BUFFER_STATE_READY VulkanCommandBufferState = iota
	COMMAND_BUFFER_STATE_RECORDING
	COMMAND_BUFFER_STATE_IN_RENDER_PASS
	COMMAND_BUFFER_STATE_RECORDING_ENDED
	COMMAND_BUFFER_STATE_SUBMITTED
	COMMAND_BUFFER_STATE_NOT_ALLOCATED
)

func (s VulkanCommandBufferState) String() string {
	switch s {
	case COMMAND_BUFFER_STATE_READY:
		return "ready"
	case COMMAND_BUFFER_STATE_RECORDING:
		return "recording"
	case COMMAND_BUFFER_STATE_IN_RENDER_PASS:
		return "in render pass"
	case COMMAND_BUFFER_STATE_RECORDING_ENDED:
		return "recording ended"
	case COMMAND_BUFFER_STATE_SUBMITTED:
		return "submitted"
	}
	return "not allocated"
}

type VulkanCommandBuffer struct {
	Handle vk.CommandBuffer
	// Command buffer state.
	State VulkanCommandBufferState
}

// AllocateVulkanCommandBuffers allocates count primary buffers from pool.
func AllocateVulkanCommandBuffers(context *VulkanContext, pool vk.CommandPool, count uint32) ([]*VulkanCommandBuffer, error) {
	allocateInfo := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        pool,
		CommandBufferCount: count,
		Level:              vk.CommandBufferLevelPrimary,
	}

	handles := make([]vk.CommandBuffer, count)
	if res := vk.AllocateCommandBuffers(context.Device.LogicalDevice, &allocateInfo, handles); res != vk.Success {
		err := fmt.Errorf("vkAllocateCommandBuffers failed with %s", VulkanResultString(res, true))
		core.LogError(err.Error())
		return nil, err
	}

	out := make([]*VulkanCommandBuffer, count)
	for i, h := range handles {
		out[i] = &VulkanCommandBuffer{Handle: h, State: COMMAND_BUFFER_STATE_READY}
	}
	return out, nil
}

func (v *VulkanCommandBuffer) Free(context *VulkanContext, pool vk.CommandPool) {
	vk.FreeCommandBuffers(context.Device.LogicalDevice, pool, 1, []vk.CommandBuffer{v.Handle})
	v.Handle = nil
	v.State = COMMAND_BUFFER_STATE_NOT_ALLOCATED
}

func (v *VulkanCommandBuffer) Begin(isSingleUse, isRenderpassContinue, isSimultaneousUse bool) vk.Result {
	beginInfo := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: 0,
	}
	if isSingleUse {
		beginInfo.Flags |= vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit)
	}
	if isRenderpassContinue {
		beginInfo.Flags |= vk.CommandBufferUsageFlags(vk.CommandBufferUsageRenderPassContinueBit)
	}
	if isSimultaneousUse {
		beginInfo.Flags |= vk.CommandBufferUsageFlags(vk.CommandBufferUsageSimultaneousUseBit)
	}

	res := vk.BeginCommandBuffer(v.Handle, &beginInfo)
	if res != vk.Success {
		core.LogError("vkBeginCommandBuffer failed with %s", VulkanResultString(res, true))
		return res
	}
	v.State = COMMAND_BUFFER_STATE_RECORDING
	return vk.Success
}

func (v *VulkanCommandBuffer) End() vk.Result {
	res := vk.EndCommandBuffer(v.Handle)
	if res != vk.Success {
		core.LogError("vkEndCommandBuffer failed with %s", VulkanResultString(res, true))
		return res
	}
	v.State = COMMAND_BUFFER_STATE_RECORDING_ENDED
	return vk.Success
}

func (v *VulkanCommandBuffer) UpdateSubmitted() {
	v.State = COMMAND_BUFFER_STATE_SUBMITTED
}

func (d *Driver) commandBuffer(cb present.CommandBuffer) (*VulkanCommandBuffer, error) {
	vcb, ok := d.commandBuffers.get(present.Handle(cb))
	if !ok {
		return nil, fmt.Errorf("unknown command buffer %d", cb)
	}
	return vcb, nil
}

// recording returns the buffer only while it accepts commands.
func (d *Driver) recording(cb present.CommandBuffer, op string) *VulkanCommandBuffer {
	vcb, err := d.commandBuffer(cb)
	if err != nil {
		core.LogError("%s: %s", op, err)
		return nil
	}
	if vcb.State != COMMAND_BUFFER_STATE_RECORDING && vcb.State != COMMAND_BUFFER_STATE_IN_RENDER_PASS {
		core.LogError("%s: command buffer %d is %s", op, cb, vcb.State)
		return nil
	}
	return vcb
}

func (d *Driver) AllocateCommandBuffers(count uint32) ([]present.CommandBuffer, error) {
	buffers, err := AllocateVulkanCommandBuffers(d.context, d.context.Device.GraphicsCommandPool, count)
	if err != nil {
		return nil, err
	}
	out := make([]present.CommandBuffer, len(buffers))
	for i, b := range buffers {
		out[i] = present.CommandBuffer(d.commandBuffers.add(b))
	}
	return out, nil
}

func (d *Driver) FreeCommandBuffers(cbs []present.CommandBuffer) {
	for _, cb := range cbs {
		if vcb, ok := d.commandBuffers.take(present.Handle(cb)); ok {
			vcb.Free(d.context, d.context.Device.GraphicsCommandPool)
		}
	}
}

func (d *Driver) BeginCommandBuffer(cb present.CommandBuffer, oneShot bool) present.Result {
	vcb, err := d.commandBuffer(cb)
	if err != nil {
		core.LogError(err.Error())
		return present.Unknown
	}
	return toResult(vcb.Begin(oneShot, false, false))
}

func (d *Driver) EndCommandBuffer(cb present.CommandBuffer) present.Result {
	vcb, err := d.commandBuffer(cb)
	if err != nil {
		core.LogError(err.Error())
		return present.Unknown
	}
	return toResult(vcb.End())
}

func (d *Driver) CmdBindPipeline(cb present.CommandBuffer, pipeline present.PipelineHandle) {
	vcb := d.recording(cb, "bind pipeline")
	p, ok := d.pipelines.get(present.Handle(pipeline))
	if vcb == nil || !ok {
		return
	}
	p.Bind(vcb, vk.PipelineBindPointGraphics)
}

func (d *Driver) CmdBindVertexBuffer(cb present.CommandBuffer, buffer present.Buffer) {
	vcb := d.recording(cb, "bind vertex buffer")
	b, ok := d.buffers.get(present.Handle(buffer))
	if vcb == nil || !ok {
		return
	}
	vk.CmdBindVertexBuffers(vcb.Handle, 0, 1, []vk.Buffer{b.Handle}, []vk.DeviceSize{0})
}

func (d *Driver) CmdBindIndexBuffer(cb present.CommandBuffer, buffer present.Buffer) {
	vcb := d.recording(cb, "bind index buffer")
	b, ok := d.buffers.get(present.Handle(buffer))
	if vcb == nil || !ok {
		return
	}
	vk.CmdBindIndexBuffer(vcb.Handle, b.Handle, 0, vk.IndexTypeUint32)
}

func (d *Driver) CmdBindDescriptorSet(cb present.CommandBuffer, layout present.PipelineLayout, set present.DescriptorSet) {
	vcb := d.recording(cb, "bind descriptor set")
	l, lok := d.pipelineLayouts.get(present.Handle(layout))
	s, sok := d.descriptorSets.get(present.Handle(set))
	if vcb == nil || !lok || !sok {
		return
	}
	vk.CmdBindDescriptorSets(vcb.Handle, vk.PipelineBindPointGraphics, l, 0, 1, []vk.DescriptorSet{s}, 0, nil)
}

func (d *Driver) CmdDrawIndexed(cb present.CommandBuffer, indexCount uint32) {
	vcb := d.recording(cb, "draw indexed")
	if vcb == nil {
		return
	}
	vk.CmdDrawIndexed(vcb.Handle, indexCount, 1, 0, 0, 0)
}

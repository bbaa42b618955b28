package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/vkframe/engine/core"
	"github.com/spaghettifunk/vkframe/engine/renderer/present"
)

var _ present.Device = (*Driver)(nil)

func (d *Driver) device() vk.Device {
	return d.context.Device.LogicalDevice
}

func (d *Driver) CreateSemaphore() (present.Semaphore, error) {
	semaphoreCreateInfo := vk.SemaphoreCreateInfo{
		SType: vk.StructureTypeSemaphoreCreateInfo,
	}
	var semaphore vk.Semaphore
	if res := vk.CreateSemaphore(d.device(), &semaphoreCreateInfo, d.context.Allocator, &semaphore); res != vk.Success {
		return 0, fmt.Errorf("vkCreateSemaphore failed with %s", VulkanResultString(res, false))
	}
	return present.Semaphore(d.semaphores.add(semaphore)), nil
}

func (d *Driver) DestroySemaphore(s present.Semaphore) {
	if semaphore, ok := d.semaphores.take(present.Handle(s)); ok {
		vk.DestroySemaphore(d.device(), semaphore, d.context.Allocator)
	}
}

func (d *Driver) CreateFence(signaled bool) (present.Fence, error) {
	fence, err := NewFence(d.context, signaled)
	if err != nil {
		return 0, err
	}
	return present.Fence(d.fences.add(fence)), nil
}

func (d *Driver) DestroyFence(f present.Fence) {
	if fence, ok := d.fences.take(present.Handle(f)); ok {
		fence.FenceDestroy(d.context)
	}
}

func (d *Driver) WaitForFence(f present.Fence, timeout uint64) present.Result {
	fence, ok := d.fences.get(present.Handle(f))
	if !ok {
		core.LogError("wait on unknown fence %d", f)
		return present.Unknown
	}
	return toResult(fence.FenceWait(d.context, timeout))
}

func (d *Driver) ResetFence(f present.Fence) present.Result {
	fence, ok := d.fences.get(present.Handle(f))
	if !ok {
		core.LogError("reset of unknown fence %d", f)
		return present.Unknown
	}
	return toResult(fence.FenceReset(d.context))
}

func (d *Driver) QuerySurfaceSupport() (present.SurfaceSupport, error) {
	info, err := DeviceQuerySwapchainSupport(d.context.Device.PhysicalDevice, d.context.Surface)
	if err != nil {
		return present.SurfaceSupport{}, err
	}
	return toSurfaceSupport(info), nil
}

func (d *Driver) DepthFormat() (present.Format, error) {
	format, err := DeviceDetectDepthFormat(d.context.Device)
	return present.Format(format), err
}

func (d *Driver) QueueSubmit(q present.Queue, info present.SubmitInfo, f present.Fence) present.Result {
	queue, ok := d.queues.get(present.Handle(q))
	if !ok {
		core.LogError("submit to unknown queue %d", q)
		return present.Unknown
	}

	waits, err := resolve(d.semaphores, info.WaitSemaphores)
	if err != nil {
		core.LogError("submit wait semaphores: %s", err)
		return present.Unknown
	}
	if len(info.WaitStages) != len(waits) {
		core.LogError("submit has %d wait stages for %d semaphores", len(info.WaitStages), len(waits))
		return present.Unknown
	}
	signals, err := resolve(d.semaphores, info.SignalSemaphores)
	if err != nil {
		core.LogError("submit signal semaphores: %s", err)
		return present.Unknown
	}
	cbs, err := resolve(d.commandBuffers, info.CommandBuffers)
	if err != nil {
		core.LogError("submit command buffers: %s", err)
		return present.Unknown
	}
	cbHandles := make([]vk.CommandBuffer, len(cbs))
	for i, cb := range cbs {
		cbHandles[i] = cb.Handle
	}

	fence := vk.NullFence
	if f != present.Fence(present.NullHandle) {
		vf, ok := d.fences.get(present.Handle(f))
		if !ok {
			core.LogError("submit signals unknown fence %d", f)
			return present.Unknown
		}
		fence = vf.Handle
	}

	submitInfo := vk.SubmitInfo{
		SType:                vk.StructureTypeSubmitInfo,
		WaitSemaphoreCount:   uint32(len(waits)),
		PWaitSemaphores:      waits,
		PWaitDstStageMask:    toStageMasks(info.WaitStages),
		CommandBufferCount:   uint32(len(cbHandles)),
		PCommandBuffers:      cbHandles,
		SignalSemaphoreCount: uint32(len(signals)),
		PSignalSemaphores:    signals,
	}

	res := vk.QueueSubmit(queue, 1, []vk.SubmitInfo{submitInfo}, fence)
	if res != vk.Success {
		core.LogError("vkQueueSubmit failed with %s", VulkanResultString(res, true))
		return toResult(res)
	}
	for _, cb := range cbs {
		cb.UpdateSubmitted()
	}
	return present.Success
}

func (d *Driver) QueueWaitIdle(q present.Queue) present.Result {
	queue, ok := d.queues.get(present.Handle(q))
	if !ok {
		return present.Unknown
	}
	return toResult(vk.QueueWaitIdle(queue))
}

func (d *Driver) WaitIdle() present.Result {
	return toResult(vk.DeviceWaitIdle(d.device()))
}

func toStageMasks(stages []present.PipelineStage) []vk.PipelineStageFlags {
	if len(stages) == 0 {
		return nil
	}
	out := make([]vk.PipelineStageFlags, len(stages))
	for i, s := range stages {
		out[i] = vk.PipelineStageFlags(s)
	}
	return out
}

package present

import (
	"fmt"

	"github.com/spaghettifunk/vkframe/engine/core"
)

type RecorderDeps struct {
	Device CommandDevice
	// Queue receives one-shot submissions.
	Queue      Queue
	ClearColor [4]float32
}

// CommandRecorder records the static per-image draw buffers and runs
// synchronous one-shot command buffers for setup work.
type CommandRecorder struct {
	deps RecorderDeps
}

func NewCommandRecorder(deps RecorderDeps) *CommandRecorder {
	return &CommandRecorder{deps: deps}
}

// RecordAll records one complete draw of geometry into every command buffer
// of gen. Buffers are rerecorded from scratch, never patched.
func (r *CommandRecorder) RecordAll(gen *Generation, geometry Geometry) error {
	if gen == nil {
		return ErrNoGeneration
	}
	for i := range gen.CommandBuffers {
		if err := r.record(gen, i, geometry); err != nil {
			err = fmt.Errorf("%w: image %d: %w", ErrCommandRecordingFailed, i, err)
			core.LogError(err.Error())
			return err
		}
	}
	core.LogDebug("recorded %d draw command buffers for generation %d", len(gen.CommandBuffers), gen.Serial)
	return nil
}

func (r *CommandRecorder) record(gen *Generation, i int, geometry Geometry) error {
	dev := r.deps.Device
	cb := gen.CommandBuffers[i]

	if res := dev.BeginCommandBuffer(cb, false); res != Success {
		return fatal("begin command buffer", res)
	}
	dev.CmdBeginRenderPass(cb, RenderPassBegin{
		RenderPass:   gen.Pipeline.RenderPass,
		Framebuffer:  gen.Framebuffers[i],
		Extent:       gen.Extent,
		ClearColor:   r.deps.ClearColor,
		ClearDepth:   1.0,
		ClearStencil: 0,
	})
	dev.CmdBindPipeline(cb, gen.Pipeline.Handle)
	dev.CmdBindVertexBuffer(cb, geometry.VertexBuffer)
	dev.CmdBindIndexBuffer(cb, geometry.IndexBuffer)
	dev.CmdBindDescriptorSet(cb, gen.Pipeline.Layout, gen.DescriptorSets[i])
	dev.CmdDrawIndexed(cb, geometry.IndexCount)
	dev.CmdEndRenderPass(cb)
	if res := dev.EndCommandBuffer(cb); res != Success {
		return fatal("end command buffer", res)
	}
	return nil
}

// BeginOneShot allocates a primary command buffer and begins it for a single
// submission.
func (r *CommandRecorder) BeginOneShot() (CommandBuffer, error) {
	cbs, err := r.deps.Device.AllocateCommandBuffers(1)
	if err != nil {
		return CommandBuffer(NullHandle), fmt.Errorf("failed to allocate one-shot command buffer: %w", err)
	}
	cb := cbs[0]
	if res := r.deps.Device.BeginCommandBuffer(cb, true); res != Success {
		r.deps.Device.FreeCommandBuffers(cbs)
		return CommandBuffer(NullHandle), fatal("begin one-shot command buffer", res)
	}
	return cb, nil
}

// EndOneShot ends cb, submits it, blocks until the queue drains and frees
// it. Never call it on the per-frame path.
func (r *CommandRecorder) EndOneShot(cb CommandBuffer) error {
	dev := r.deps.Device
	defer dev.FreeCommandBuffers([]CommandBuffer{cb})

	if res := dev.EndCommandBuffer(cb); res != Success {
		return fatal("end one-shot command buffer", res)
	}
	info := SubmitInfo{CommandBuffers: []CommandBuffer{cb}}
	if res := dev.QueueSubmit(r.deps.Queue, info, Fence(NullHandle)); res != Success {
		return fatal("one-shot queue submit", res)
	}
	if res := dev.QueueWaitIdle(r.deps.Queue); res != Success {
		return fatal("one-shot queue wait idle", res)
	}
	return nil
}

// OneShot records fn into a one-shot buffer and runs it to completion.
func (r *CommandRecorder) OneShot(fn func(cb CommandBuffer) error) error {
	cb, err := r.BeginOneShot()
	if err != nil {
		return err
	}
	if err := fn(cb); err != nil {
		r.deps.Device.EndCommandBuffer(cb)
		r.deps.Device.FreeCommandBuffers([]CommandBuffer{cb})
		return err
	}
	return r.EndOneShot(cb)
}

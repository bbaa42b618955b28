package present

import (
	"fmt"

	"github.com/spaghettifunk/vkframe/engine/core"
)

type FrameState int

const (
	StateIdle FrameState = iota
	StateWaiting
	StateAcquiring
	StateRecorded
	StateSubmitting
	StatePresenting
)

func (s FrameState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateWaiting:
		return "waiting"
	case StateAcquiring:
		return "acquiring"
	case StateRecorded:
		return "recorded"
	case StateSubmitting:
		return "submitting"
	case StatePresenting:
		return "presenting"
	}
	return "unknown"
}

// FrameStatus tells the host loop what DrawFrame did.
type FrameStatus int

const (
	// FramePresented means the frame was submitted and queued for display.
	FramePresented FrameStatus = iota
	// FrameSkipped means acquire found the swapchain out of date. Nothing was
	// submitted and the swapchain has been rebuilt.
	FrameSkipped
	// FrameRecreated means the frame was presented and the swapchain was
	// rebuilt right after.
	FrameRecreated
)

func (s FrameStatus) String() string {
	switch s {
	case FramePresented:
		return "presented"
	case FrameSkipped:
		return "skipped"
	case FrameRecreated:
		return "recreated"
	}
	return "unknown"
}

type SchedulerDeps struct {
	Device     Device
	Swapchains *SwapchainManager
	Recorder   *CommandRecorder
	Sync       *SyncObjectPool

	GraphicsQueue Queue
	PresentQueue  Queue

	Geometry   Geometry
	Transforms TransformSource
	// Resize may be nil when the host never signals resizes.
	Resize ResizeSignal
}

// FrameScheduler drives one displayed frame per DrawFrame call. It is not
// safe for concurrent use.
type FrameScheduler struct {
	deps SchedulerDeps

	inFlight     ImageInFlightMap
	currentFrame int
	state        FrameState
	frames       uint64
}

// NewFrameScheduler records the draw buffers of the live generation.
func NewFrameScheduler(deps SchedulerDeps) (*FrameScheduler, error) {
	if deps.Sync.Len() != MaxFramesInFlight {
		return nil, fmt.Errorf("frame scheduler needs %d frame slots, got %d", MaxFramesInFlight, deps.Sync.Len())
	}
	gen := deps.Swapchains.Current()
	if gen == nil {
		return nil, ErrNoGeneration
	}
	s := &FrameScheduler{deps: deps}
	if err := deps.Recorder.RecordAll(gen, deps.Geometry); err != nil {
		return nil, err
	}
	s.inFlight.Reset(gen.ImageCount())
	return s, nil
}

func (s *FrameScheduler) CurrentFrame() int {
	return s.currentFrame
}

func (s *FrameScheduler) State() FrameState {
	return s.state
}

// Frames counts presented frames.
func (s *FrameScheduler) Frames() uint64 {
	return s.frames
}

func (s *FrameScheduler) InFlight() *ImageInFlightMap {
	return &s.inFlight
}

// DrawFrame renders and presents one frame. A returned error is either
// ErrWindowClosing, raised while a minimized window waits to be restored,
// or fatal; *FatalError carries the offending device result.
func (s *FrameScheduler) DrawFrame(deltaTime float64) (FrameStatus, error) {
	defer func() { s.state = StateIdle }()
	dev := s.deps.Device
	slot := s.deps.Sync.Slot(s.currentFrame)

	s.state = StateWaiting
	if r := dev.WaitForFence(slot.InFlight, WaitForever); classifyStrict(r) != outcomeOK {
		return FramePresented, fatal("wait for in-flight fence", r)
	}

	s.state = StateAcquiring
	gen := s.deps.Swapchains.Current()
	if gen == nil {
		return FrameSkipped, ErrNoGeneration
	}
	imageIndex, r := dev.AcquireNextImage(gen.Swapchain, WaitForever, slot.ImageAvailable)
	recreateAfter := false
	switch classifyAcquire(r) {
	case outcomeRecreate:
		core.LogDebug("acquire reported %s, recreating swapchain", r)
		if err := s.Recreate(); err != nil {
			return FrameSkipped, err
		}
		return FrameSkipped, nil
	case outcomeSuboptimal:
		recreateAfter = true
	case outcomeFatal:
		return FramePresented, fatal("acquire next image", r)
	}

	// The command buffer for imageIndex was recorded against gen.
	s.state = StateRecorded
	blob := s.deps.Transforms.Transform(gen.Extent, deltaTime)
	if r := dev.WriteBuffer(gen.UniformBuffers[imageIndex], blob); r != Success {
		return FramePresented, fatal("update uniform buffer", r)
	}

	// An image can still be owned by the other slot's submission when there
	// are more images than frames in flight.
	if prior := s.inFlight.Get(imageIndex); prior != Fence(NullHandle) && prior != slot.InFlight {
		if r := dev.WaitForFence(prior, WaitForever); classifyStrict(r) != outcomeOK {
			return FramePresented, fatal("wait for image fence", r)
		}
	}
	s.inFlight.Set(imageIndex, slot.InFlight)

	s.state = StateSubmitting
	if r := dev.ResetFence(slot.InFlight); classifyStrict(r) != outcomeOK {
		return FramePresented, fatal("reset in-flight fence", r)
	}
	submit := SubmitInfo{
		WaitSemaphores:   []Semaphore{slot.ImageAvailable},
		WaitStages:       []PipelineStage{StageColorAttachmentOutput},
		CommandBuffers:   []CommandBuffer{gen.CommandBuffers[imageIndex]},
		SignalSemaphores: []Semaphore{slot.RenderFinished},
	}
	if r := dev.QueueSubmit(s.deps.GraphicsQueue, submit, slot.InFlight); classifyStrict(r) != outcomeOK {
		return FramePresented, fatal("queue submit", r)
	}

	s.state = StatePresenting
	r = dev.QueuePresent(s.deps.PresentQueue, PresentInfo{
		WaitSemaphores: []Semaphore{slot.RenderFinished},
		Swapchain:      gen.Swapchain,
		ImageIndex:     imageIndex,
	})
	switch classifyPresent(r) {
	case outcomeRecreate:
		recreateAfter = true
	case outcomeFatal:
		return FramePresented, fatal("queue present", r)
	}
	s.frames++

	status := FramePresented
	if s.deps.Resize != nil && s.deps.Resize.Pending() {
		s.deps.Resize.Clear()
		recreateAfter = true
	}
	if recreateAfter {
		core.LogDebug("recreating swapchain after present (%s)", r)
		status = FrameRecreated
		if err := s.Recreate(); err != nil {
			return status, err
		}
	}

	s.currentFrame = (s.currentFrame + 1) % MaxFramesInFlight
	return status, nil
}

// Recreate rebuilds the swapchain generation, rerecords its draw buffers
// and clears the image fence map. The live generation is released before
// the new one is built.
func (s *FrameScheduler) Recreate() error {
	if err := s.deps.Swapchains.Recreate(); err != nil {
		return err
	}
	gen := s.deps.Swapchains.Current()
	if err := s.deps.Recorder.RecordAll(gen, s.deps.Geometry); err != nil {
		return err
	}
	s.inFlight.Reset(gen.ImageCount())
	return nil
}

// ReloadPipeline rebuilds only the pipeline of the live generation and
// rerecords the draw buffers. When the new pipeline cannot be built the
// error wraps ErrPipelineRebuildFailed and the previous pipeline keeps
// drawing.
func (s *FrameScheduler) ReloadPipeline() error {
	if err := s.deps.Swapchains.RebuildPipeline(); err != nil {
		return err
	}
	gen := s.deps.Swapchains.Current()
	if err := s.deps.Recorder.RecordAll(gen, s.deps.Geometry); err != nil {
		return err
	}
	s.inFlight.Reset(gen.ImageCount())
	return nil
}

// Shutdown idles the device and releases the sync objects and the live
// generation, in that order.
func (s *FrameScheduler) Shutdown() error {
	r := s.deps.Device.WaitIdle()
	s.deps.Sync.Destroy()
	s.deps.Swapchains.Destroy()
	s.inFlight.Reset(0)
	if r != Success {
		return fatal("device wait idle", r)
	}
	return nil
}

package present

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameIndexCycles(t *testing.T) {
	h := newHarness(t, 3)

	var seq []int
	for i := 0; i < 5; i++ {
		assert.Equal(t, FramePresented, h.draw(t))
		seq = append(seq, h.scheduler.CurrentFrame())
	}
	assert.Equal(t, []int{1, 0, 1, 0, 1}, seq)
	assert.Equal(t, 5, h.dev.count("submit"))
	assert.Equal(t, 5, h.dev.count("present"))
	assert.Equal(t, uint64(5), h.scheduler.Frames())
	assert.Zero(t, h.swapchains.Recreations())
	assert.Equal(t, StateIdle, h.scheduler.State())
}

func TestDrawFrameSubmitsWithSlotObjects(t *testing.T) {
	h := newHarness(t, 3)
	gen := h.swapchains.Current()
	h.draw(t)

	slot := h.sync.Slot(0)
	require.Len(t, h.dev.submits, 1)
	submit := h.dev.submits[0]
	assert.Equal(t, []Semaphore{slot.ImageAvailable}, submit.WaitSemaphores)
	assert.Equal(t, []PipelineStage{StageColorAttachmentOutput}, submit.WaitStages)
	assert.Equal(t, []Semaphore{slot.RenderFinished}, submit.SignalSemaphores)
	assert.Equal(t, []CommandBuffer{gen.CommandBuffers[0]}, submit.CommandBuffers)

	require.Len(t, h.dev.presents, 1)
	assert.Equal(t, []Semaphore{slot.RenderFinished}, h.dev.presents[0].WaitSemaphores)
	assert.Equal(t, gen.Swapchain, h.dev.presents[0].Swapchain)
	assert.Equal(t, uint32(0), h.dev.presents[0].ImageIndex)

	// uniform of the acquired image was updated before the submit
	assert.Equal(t, []byte{1, byte(800 % 256), byte(600 % 256)}, h.dev.writes[gen.UniformBuffers[0]])
	assert.Equal(t, []string{"wait fence", "acquire", "write uniform", "reset fence", "submit", "present"}, h.dev.calls)
}

func TestImageFenceGuardWaitsOnOtherSlot(t *testing.T) {
	h := newHarness(t, 3)
	for i := 0; i < 3; i++ {
		h.draw(t)
	}
	h.dev.resetCalls()

	// frame 4 runs on slot 1 and acquires image 0, last used by slot 0
	h.draw(t)
	require.Len(t, h.dev.fenceWaits, 2)
	assert.Equal(t, h.sync.Slot(1).InFlight, h.dev.fenceWaits[0])
	assert.Equal(t, h.sync.Slot(0).InFlight, h.dev.fenceWaits[1])
	assert.Equal(t, h.sync.Slot(1).InFlight, h.scheduler.InFlight().Get(0))
}

func TestImageFenceGuardSkipsOwnSlot(t *testing.T) {
	// with as many images as slots every image always returns to its slot
	h := newHarness(t, 2)
	for i := 0; i < 4; i++ {
		h.draw(t)
	}
	assert.Len(t, h.dev.fenceWaits, 4)
}

func TestAcquireOutOfDateSkipsFrame(t *testing.T) {
	h := newHarness(t, 3)
	h.draw(t)
	h.draw(t)
	before := h.scheduler.CurrentFrame()
	oldGen := h.swapchains.Current()
	h.dev.resetCalls()

	h.dev.acquireResults = []Result{OutOfDate}
	status, err := h.scheduler.DrawFrame(0.016)
	require.NoError(t, err)
	assert.Equal(t, FrameSkipped, status)

	assert.Zero(t, h.dev.count("submit"))
	assert.Zero(t, h.dev.count("present"))
	assert.Zero(t, h.dev.count("reset fence"), "the slot fence must stay signaled")
	assert.Equal(t, before, h.scheduler.CurrentFrame())
	assert.Equal(t, 1, h.swapchains.Recreations())
	assert.NotSame(t, oldGen, h.swapchains.Current())
	assert.Equal(t, h.swapchains.Current().ImageCount(), h.scheduler.InFlight().Len())
	assert.True(t, h.scheduler.InFlight().Cleared())

	// the next frame proceeds normally against the new generation
	assert.Equal(t, FramePresented, h.draw(t))
	assert.Equal(t, 1, h.swapchains.Recreations())
	assert.Equal(t, (before+1)%MaxFramesInFlight, h.scheduler.CurrentFrame())
	assert.Equal(t, h.swapchains.Current().CommandBuffers[0], h.dev.submits[0].CommandBuffers[0])
}

func TestAcquireSuboptimalPresentsThenRecreates(t *testing.T) {
	h := newHarness(t, 3)
	h.dev.acquireResults = []Result{Suboptimal}

	status := h.draw(t)
	assert.Equal(t, FrameRecreated, status)
	assert.Equal(t, 1, h.dev.count("submit"))
	assert.Equal(t, 1, h.dev.count("present"))
	assert.Equal(t, 1, h.swapchains.Recreations())
	assert.Equal(t, 1, h.scheduler.CurrentFrame())
}

func TestPresentSuboptimalOnFrameSeven(t *testing.T) {
	h := newHarness(t, 3)
	for i := 0; i < 6; i++ {
		require.Equal(t, FramePresented, h.draw(t))
	}
	h.dev.resetCalls()
	h.dev.presentResults = []Result{Suboptimal}

	status := h.draw(t)
	assert.Equal(t, FrameRecreated, status)
	assert.Equal(t, 1, h.dev.count("submit"), "frame 7 is still submitted")
	assert.Equal(t, 1, h.dev.count("present"), "frame 7 is still presented")
	assert.Equal(t, 1, h.swapchains.Recreations())
	assert.Equal(t, 1, h.scheduler.CurrentFrame())

	// present happens before the teardown
	var presentAt, idleAt int
	for i, c := range h.dev.calls {
		switch c {
		case "present":
			presentAt = i
		case "wait idle":
			idleAt = i
		}
	}
	assert.Less(t, presentAt, idleAt)

	assert.Equal(t, FramePresented, h.draw(t))
	assert.Equal(t, 1, h.swapchains.Recreations())
}

func TestPresentOutOfDateRecreates(t *testing.T) {
	h := newHarness(t, 3)
	h.dev.presentResults = []Result{OutOfDate}
	assert.Equal(t, FrameRecreated, h.draw(t))
	assert.Equal(t, 1, h.swapchains.Recreations())
}

func TestResizeFlagTriggersRecreateAndClears(t *testing.T) {
	h := newHarness(t, 3)
	h.resize.pending = true
	h.window.width, h.window.height = 1920, 1080

	assert.Equal(t, FrameRecreated, h.draw(t))
	assert.False(t, h.resize.pending)
	assert.Equal(t, 1, h.resize.clears)
	assert.Equal(t, Extent2D{Width: 1920, Height: 1080}, h.swapchains.Current().Extent)

	assert.Equal(t, FramePresented, h.draw(t))
	assert.Equal(t, 1, h.swapchains.Recreations())
}

func TestResizeWhileMinimizedBlocksUntilRestored(t *testing.T) {
	h := newHarness(t, 3)
	h.resize.pending = true
	h.window.width, h.window.height = 0, 0
	h.window.pending = [][2]int{{0, 0}, {640, 480}}
	h.dev.extents = nil

	assert.Equal(t, FrameRecreated, h.draw(t))
	assert.Equal(t, 2, h.window.waits)
	for _, e := range h.dev.extents {
		assert.False(t, e.IsZero())
	}
	assert.Equal(t, Extent2D{Width: 640, Height: 480}, h.swapchains.Current().Extent)
}

func TestDrawFrameFatalResults(t *testing.T) {
	cases := map[string]func(d *fakeDevice){
		"acquire":       func(d *fakeDevice) { d.acquireResults = []Result{DeviceLost} },
		"queue submit":  func(d *fakeDevice) { d.submitResults = []Result{OutOfDeviceMemory} },
		"queue present": func(d *fakeDevice) { d.presentResults = []Result{SurfaceLost} },
	}
	for op, inject := range cases {
		t.Run(op, func(t *testing.T) {
			h := newHarness(t, 3)
			inject(h.dev)

			_, err := h.scheduler.DrawFrame(0.016)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrFrameFatal)
			var fe *FatalError
			require.ErrorAs(t, err, &fe)
			assert.Contains(t, fe.Op, op)
			assert.Equal(t, 0, h.scheduler.CurrentFrame())
			assert.Zero(t, h.swapchains.Recreations())
		})
	}
}

func TestFenceWaitTimeoutIsFatal(t *testing.T) {
	h := newHarness(t, 3)
	h.dev.fences[h.sync.Slot(0).InFlight] = false

	_, err := h.scheduler.DrawFrame(0.016)
	var fe *FatalError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, Timeout, fe.Result)
	assert.Zero(t, h.dev.count("acquire"))
}

func TestRecreateResetsInFlightMap(t *testing.T) {
	h := newHarness(t, 3)
	for i := 0; i < 3; i++ {
		h.draw(t)
	}
	require.False(t, h.scheduler.InFlight().Cleared())

	h.dev.imageCount = 4
	require.NoError(t, h.scheduler.Recreate())
	assert.Equal(t, 4, h.scheduler.InFlight().Len())
	assert.True(t, h.scheduler.InFlight().Cleared())
	requireGenerationConsistent(t, h.swapchains.Current())
	assert.Equal(t, 4, h.swapchains.Current().ImageCount())
}

func TestManyResizesLeakFree(t *testing.T) {
	h := newHarness(t, 3)
	baseline := h.dev.liveCount("")
	for i := 0; i < 10; i++ {
		h.resize.pending = true
		h.window.width = 800 + 10*i
		h.draw(t)
		h.draw(t)
		assert.Equal(t, baseline, h.dev.liveCount(""))
	}
	assert.Equal(t, 10, h.swapchains.Recreations())
}

func TestShutdownReleasesEverything(t *testing.T) {
	h := newHarness(t, 3)
	h.draw(t)
	h.dev.resetCalls()

	require.NoError(t, h.scheduler.Shutdown())
	assert.Equal(t, "wait idle", h.dev.calls[0])
	assert.Zero(t, h.dev.liveCount(""), "leaked: %v", h.dev.liveKinds())

	// sync objects go before the generation
	firstSemaphore, firstSwapchain := -1, -1
	for i, c := range h.dev.calls {
		if c == "destroy semaphore" && firstSemaphore < 0 {
			firstSemaphore = i
		}
		if c == "destroy swapchain" {
			firstSwapchain = i
		}
	}
	assert.Less(t, firstSemaphore, firstSwapchain)
}

func TestSchedulerRequiresGeneration(t *testing.T) {
	dev := newFakeDevice(3)
	window := &fakeWindow{width: 800, height: 600}
	pool, err := NewSyncObjectPool(dev, MaxFramesInFlight)
	require.NoError(t, err)

	_, err = NewFrameScheduler(SchedulerDeps{
		Device:     dev,
		Swapchains: newSwapchainManager(dev, window, &fakePipelines{dev: dev}),
		Recorder:   NewCommandRecorder(RecorderDeps{Device: dev}),
		Sync:       pool,
	})
	assert.ErrorIs(t, err, ErrNoGeneration)
}

func TestDrawFrameWindowClosingWhileMinimized(t *testing.T) {
	h := newHarness(t, 3)
	h.resize.pending = true
	h.window.width, h.window.height = 0, 0
	h.window.closing = true

	status, err := h.scheduler.DrawFrame(0.016)
	assert.Equal(t, FrameRecreated, status)
	assert.ErrorIs(t, err, ErrWindowClosing)
	assert.NotErrorIs(t, err, ErrFrameFatal)
	require.NoError(t, h.scheduler.Shutdown())
	assert.Zero(t, h.dev.liveCount(""))
}

func TestReloadPipelineSwapsPipelineAndFramebuffers(t *testing.T) {
	h := newHarness(t, 3)
	h.draw(t)
	gen := h.swapchains.Current()
	oldPipeline := gen.Pipeline
	oldFramebuffers := append([]Framebuffer(nil), gen.Framebuffers...)
	baseline := h.dev.liveCount("")

	require.NoError(t, h.scheduler.ReloadPipeline())
	assert.Same(t, gen, h.swapchains.Current())
	assert.NotEqual(t, oldPipeline, gen.Pipeline)
	assert.NotEqual(t, oldFramebuffers, gen.Framebuffers)
	assert.Equal(t, baseline, h.dev.liveCount(""))
	assert.Equal(t, 1, h.dev.liveCount("pipeline"))
	assert.Zero(t, h.swapchains.Recreations())
	requireGenerationConsistent(t, gen)

	for _, cb := range gen.CommandBuffers {
		assert.Contains(t, h.dev.commands[cb], fmt.Sprintf("bind pipeline %d", gen.Pipeline.Handle))
	}
	assert.Equal(t, FramePresented, h.draw(t))
}

func TestReloadPipelineFailureKeepsLiveGeneration(t *testing.T) {
	h := newHarness(t, 3)
	h.draw(t)
	gen := h.swapchains.Current()
	pipeline := gen.Pipeline
	framebuffers := append([]Framebuffer(nil), gen.Framebuffers...)
	baseline := h.dev.liveCount("")
	h.dev.resetCalls()

	h.pipelines.fail = true
	err := h.scheduler.ReloadPipeline()
	require.ErrorIs(t, err, ErrPipelineRebuildFailed)
	assert.NotErrorIs(t, err, ErrFrameFatal)

	require.NotNil(t, h.swapchains.Current())
	assert.Same(t, gen, h.swapchains.Current())
	assert.Equal(t, pipeline, gen.Pipeline)
	assert.Equal(t, framebuffers, gen.Framebuffers)
	assert.Equal(t, baseline, h.dev.liveCount(""))
	assert.Zero(t, h.dev.count("wait idle"))

	// the old pipeline keeps drawing
	assert.Equal(t, FramePresented, h.draw(t))

	h.pipelines.fail = false
	require.NoError(t, h.scheduler.ReloadPipeline())
	assert.Equal(t, FramePresented, h.draw(t))
}

func TestReloadPipelineFramebufferFailureUnwinds(t *testing.T) {
	h := newHarness(t, 3)
	gen := h.swapchains.Current()
	pipeline := gen.Pipeline
	baseline := h.dev.liveCount("")

	h.dev.failures["framebuffer"] = h.dev.created["framebuffer"] + 2
	err := h.scheduler.ReloadPipeline()
	require.ErrorIs(t, err, ErrPipelineRebuildFailed)
	assert.Contains(t, err.Error(), "framebuffer 1")
	assert.Equal(t, pipeline, gen.Pipeline)
	assert.Equal(t, baseline, h.dev.liveCount(""))
	assert.Equal(t, 1, h.dev.liveCount("pipeline"))
	assert.Equal(t, FramePresented, h.draw(t))
}

func TestReloadPipelineWithoutGeneration(t *testing.T) {
	h := newHarness(t, 3)
	require.NoError(t, h.scheduler.Shutdown())
	assert.ErrorIs(t, h.scheduler.ReloadPipeline(), ErrNoGeneration)
}

package present

import (
	"testing"

	"github.com/stretchr/testify/require"
)

var testGeometry = Geometry{VertexBuffer: Buffer(9001), IndexBuffer: Buffer(9002), IndexCount: 36}

type harness struct {
	dev        *fakeDevice
	window     *fakeWindow
	resize     *fakeResize
	pipelines  *fakePipelines
	transforms *fakeTransforms
	swapchains *SwapchainManager
	recorder   *CommandRecorder
	sync       *SyncObjectPool
	scheduler  *FrameScheduler
}

func newSwapchainManager(dev *fakeDevice, window *fakeWindow, pipelines *fakePipelines) *SwapchainManager {
	return NewSwapchainManager(SwapchainDeps{
		Device:              dev,
		Window:              window,
		Pipelines:           pipelines,
		Families:            QueueFamilies{Graphics: 0, Present: 0},
		DescriptorSetLayout: DescriptorSetLayout(7),
		Texture:             Texture{View: ImageView(8), Sampler: Sampler(9)},
		UniformSize:         192,
		PreferLowLatency:    true,
	})
}

// newHarness wires a scheduler over a fake device whose swapchains have
// imageCount images.
func newHarness(t *testing.T, imageCount int) *harness {
	t.Helper()
	h := &harness{
		dev:        newFakeDevice(imageCount),
		window:     &fakeWindow{width: 800, height: 600},
		resize:     &fakeResize{},
		transforms: &fakeTransforms{},
	}
	h.pipelines = &fakePipelines{dev: h.dev}
	h.swapchains = newSwapchainManager(h.dev, h.window, h.pipelines)
	require.NoError(t, h.swapchains.Create())

	h.recorder = NewCommandRecorder(RecorderDeps{
		Device:     h.dev,
		Queue:      Queue(1),
		ClearColor: [4]float32{0, 0, 0, 1},
	})

	var err error
	h.sync, err = NewSyncObjectPool(h.dev, MaxFramesInFlight)
	require.NoError(t, err)

	h.scheduler, err = NewFrameScheduler(SchedulerDeps{
		Device:        h.dev,
		Swapchains:    h.swapchains,
		Recorder:      h.recorder,
		Sync:          h.sync,
		GraphicsQueue: Queue(1),
		PresentQueue:  Queue(2),
		Geometry:      testGeometry,
		Transforms:    h.transforms,
		Resize:        h.resize,
	})
	require.NoError(t, err)
	h.dev.resetCalls()
	return h
}

func (h *harness) draw(t *testing.T) FrameStatus {
	t.Helper()
	status, err := h.scheduler.DrawFrame(1.0 / 60.0)
	require.NoError(t, err)
	return status
}

func requireGenerationConsistent(t *testing.T, gen *Generation) {
	t.Helper()
	require.NotNil(t, gen)
	n := gen.ImageCount()
	require.Positive(t, n)
	require.Len(t, gen.ImageViews, n)
	require.Len(t, gen.Framebuffers, n)
	require.Len(t, gen.UniformBuffers, n)
	require.Len(t, gen.DescriptorSets, n)
	require.Len(t, gen.CommandBuffers, n)
}

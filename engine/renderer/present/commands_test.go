package present

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordAllDrawsEveryImage(t *testing.T) {
	h := newHarness(t, 3)
	gen := h.swapchains.Current()

	for i, cb := range gen.CommandBuffers {
		want := []string{
			"begin oneShot=false",
			fmt.Sprintf("begin pass %d fb=%d 800x600 clear=[0 0 0 1] depth=1 stencil=0", gen.Pipeline.RenderPass, gen.Framebuffers[i]),
			fmt.Sprintf("bind pipeline %d", gen.Pipeline.Handle),
			"bind vertex 9001",
			"bind index 9002",
			fmt.Sprintf("bind set %d layout=%d", gen.DescriptorSets[i], gen.Pipeline.Layout),
			"draw indexed 36",
			"end pass",
			"end",
		}
		assert.Equal(t, want, h.dev.commands[cb], "command buffer %d", i)
	}
}

func TestRecordAllTwiceIsEquivalent(t *testing.T) {
	h := newHarness(t, 3)
	gen := h.swapchains.Current()

	first := map[CommandBuffer][]string{}
	for _, cb := range gen.CommandBuffers {
		first[cb] = append([]string(nil), h.dev.commands[cb]...)
	}
	require.NoError(t, h.recorder.RecordAll(gen, testGeometry))
	for _, cb := range gen.CommandBuffers {
		assert.Equal(t, first[cb], h.dev.commands[cb])
	}
}

func TestRecordAllWithoutGeneration(t *testing.T) {
	r := NewCommandRecorder(RecorderDeps{Device: newFakeDevice(2)})
	assert.ErrorIs(t, r.RecordAll(nil, testGeometry), ErrNoGeneration)
}

func TestOneShotProtocol(t *testing.T) {
	dev := newFakeDevice(2)
	r := NewCommandRecorder(RecorderDeps{Device: dev, Queue: Queue(5)})

	var recorded CommandBuffer
	err := r.OneShot(func(cb CommandBuffer) error {
		recorded = cb
		dev.cmd(cb, "copy")
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"create command buffer",
		"submit",
		"queue wait idle",
		"destroy command buffer",
	}, dev.calls)
	require.Len(t, dev.submits, 1)
	assert.Equal(t, []CommandBuffer{recorded}, dev.submits[0].CommandBuffers)
	assert.Empty(t, dev.submits[0].WaitSemaphores)
	assert.Zero(t, dev.liveCount("command buffer"))
}

func TestOneShotFreesOnRecordError(t *testing.T) {
	dev := newFakeDevice(2)
	r := NewCommandRecorder(RecorderDeps{Device: dev, Queue: Queue(5)})

	boom := errors.New("boom")
	err := r.OneShot(func(cb CommandBuffer) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.Zero(t, dev.count("submit"))
	assert.Zero(t, dev.liveCount("command buffer"))
}

func TestOneShotSubmitFailureIsFatal(t *testing.T) {
	dev := newFakeDevice(2)
	dev.submitResults = []Result{DeviceLost}
	r := NewCommandRecorder(RecorderDeps{Device: dev, Queue: Queue(5)})

	cb, err := r.BeginOneShot()
	require.NoError(t, err)
	err = r.EndOneShot(cb)

	var fe *FatalError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, DeviceLost, fe.Result)
	assert.ErrorIs(t, err, ErrFrameFatal)
	assert.Zero(t, dev.liveCount("command buffer"))
}

package present

import (
	"fmt"

	"github.com/spaghettifunk/vkframe/engine/core"
)

// MaxFramesInFlight bounds how many frames may have outstanding GPU work.
const MaxFramesInFlight = 2

// FrameSlot is one rotating set of per-frame synchronization objects.
type FrameSlot struct {
	ImageAvailable Semaphore
	RenderFinished Semaphore
	InFlight       Fence
}

// SyncObjectPool owns the frame slots. Slots are created once and outlive
// every swapchain generation.
type SyncObjectPool struct {
	device SyncDevice
	slots  []FrameSlot
}

// NewSyncObjectPool creates count slots. Fences start signaled so the first
// wait on each slot returns immediately.
func NewSyncObjectPool(device SyncDevice, count int) (*SyncObjectPool, error) {
	if count <= 0 {
		return nil, fmt.Errorf("%w: slot count must be positive, got %d", ErrSyncObjectCreationFailed, count)
	}
	p := &SyncObjectPool{
		device: device,
		slots:  make([]FrameSlot, 0, count),
	}
	for i := 0; i < count; i++ {
		slot, err := p.createSlot()
		if err != nil {
			p.Destroy()
			err = fmt.Errorf("%w: frame slot %d: %w", ErrSyncObjectCreationFailed, i, err)
			core.LogError(err.Error())
			return nil, err
		}
		p.slots = append(p.slots, slot)
	}
	core.LogDebug("created %d frame slots", count)
	return p, nil
}

func (p *SyncObjectPool) createSlot() (FrameSlot, error) {
	var slot FrameSlot
	var err error
	if slot.ImageAvailable, err = p.device.CreateSemaphore(); err != nil {
		return slot, fmt.Errorf("image available semaphore: %w", err)
	}
	if slot.RenderFinished, err = p.device.CreateSemaphore(); err != nil {
		p.device.DestroySemaphore(slot.ImageAvailable)
		return slot, fmt.Errorf("render finished semaphore: %w", err)
	}
	if slot.InFlight, err = p.device.CreateFence(true); err != nil {
		p.device.DestroySemaphore(slot.RenderFinished)
		p.device.DestroySemaphore(slot.ImageAvailable)
		return slot, fmt.Errorf("in-flight fence: %w", err)
	}
	return slot, nil
}

func (p *SyncObjectPool) Len() int {
	return len(p.slots)
}

func (p *SyncObjectPool) Slot(i int) FrameSlot {
	return p.slots[i]
}

// Destroy releases every slot. The device must be idle.
func (p *SyncObjectPool) Destroy() {
	for i := range p.slots {
		p.device.DestroySemaphore(p.slots[i].ImageAvailable)
		p.device.DestroySemaphore(p.slots[i].RenderFinished)
		p.device.DestroyFence(p.slots[i].InFlight)
	}
	p.slots = nil
}

package present

// ImageInFlightMap remembers, per swapchain image, the fence of the frame
// slot that last submitted work rendering to it.
type ImageInFlightMap struct {
	fences []Fence
}

// Reset clears the map and sizes it for a generation with count images.
func (m *ImageInFlightMap) Reset(count int) {
	m.fences = make([]Fence, count)
}

func (m *ImageInFlightMap) Len() int {
	return len(m.fences)
}

// Get returns the fence guarding image, or the null fence.
func (m *ImageInFlightMap) Get(image uint32) Fence {
	return m.fences[image]
}

func (m *ImageInFlightMap) Set(image uint32, fence Fence) {
	m.fences[image] = fence
}

// Cleared reports whether no image is guarded by a fence.
func (m *ImageInFlightMap) Cleared() bool {
	for _, f := range m.fences {
		if f != Fence(NullHandle) {
			return false
		}
	}
	return true
}

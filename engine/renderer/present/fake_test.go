package present

import (
	"errors"
	"fmt"
	"sort"
)

var errInjected = errors.New("injected failure")

// fakeDevice is an in-memory Device. Submitted work completes immediately.
type fakeDevice struct {
	next Handle
	live map[string]map[Handle]bool

	support     SurfaceSupport
	depthFormat Format
	imageCount  int
	images      map[Swapchain][]Image

	// failures maps an object kind to the 1-based creation that fails.
	failures map[string]int
	created  map[string]int

	acquireResults []Result
	presentResults []Result
	submitResults  []Result
	nextImage      uint32

	fences map[Fence]bool

	calls      []string
	commands   map[CommandBuffer][]string
	submits    []SubmitInfo
	presents   []PresentInfo
	fenceWaits []Fence
	writes     map[Buffer][]byte
	infos      []SwapchainInfo
	extents    []Extent2D
}

func newFakeDevice(imageCount int) *fakeDevice {
	return &fakeDevice{
		live:        map[string]map[Handle]bool{},
		depthFormat: FormatD32Sfloat,
		imageCount:  imageCount,
		images:      map[Swapchain][]Image{},
		failures:    map[string]int{},
		created:     map[string]int{},
		fences:      map[Fence]bool{},
		commands:    map[CommandBuffer][]string{},
		writes:      map[Buffer][]byte{},
		support: SurfaceSupport{
			Capabilities: SurfaceCapabilities{
				MinImageCount:  uint32(imageCount - 1),
				MaxImageCount:  8,
				CurrentExtent:  Extent2D{Width: extentFromWindow, Height: extentFromWindow},
				MinImageExtent: Extent2D{Width: 1, Height: 1},
				MaxImageExtent: Extent2D{Width: 4096, Height: 4096},
			},
			Formats: []SurfaceFormat{
				{Format: FormatB8G8R8A8Unorm, ColorSpace: ColorSpaceSrgbNonlinear},
				{Format: FormatB8G8R8A8Srgb, ColorSpace: ColorSpaceSrgbNonlinear},
			},
			PresentModes: []PresentMode{PresentModeFifo, PresentModeMailbox},
		},
	}
}

func (d *fakeDevice) create(kind string) (Handle, error) {
	d.created[kind]++
	if n, ok := d.failures[kind]; ok && n == d.created[kind] {
		return NullHandle, fmt.Errorf("%s: %w", kind, errInjected)
	}
	d.next++
	if d.live[kind] == nil {
		d.live[kind] = map[Handle]bool{}
	}
	d.live[kind][d.next] = true
	d.calls = append(d.calls, "create "+kind)
	return d.next, nil
}

func (d *fakeDevice) destroy(kind string, h Handle) {
	if h == NullHandle {
		return
	}
	if !d.live[kind][h] {
		panic(fmt.Sprintf("destroy of unknown or dead %s %d", kind, h))
	}
	delete(d.live[kind], h)
	d.calls = append(d.calls, "destroy "+kind)
}

// liveCount is the number of live objects of kind, or of all kinds when
// kind is empty.
func (d *fakeDevice) liveCount(kind string) int {
	if kind != "" {
		return len(d.live[kind])
	}
	n := 0
	for _, m := range d.live {
		n += len(m)
	}
	return n
}

func (d *fakeDevice) liveKinds() []string {
	var kinds []string
	for k, m := range d.live {
		if len(m) > 0 {
			kinds = append(kinds, k)
		}
	}
	sort.Strings(kinds)
	return kinds
}

func (d *fakeDevice) count(call string) int {
	n := 0
	for _, c := range d.calls {
		if c == call {
			n++
		}
	}
	return n
}

func (d *fakeDevice) resetCalls() {
	d.calls = nil
	d.submits = nil
	d.presents = nil
	d.fenceWaits = nil
}

func pop(results *[]Result) Result {
	if len(*results) == 0 {
		return Success
	}
	r := (*results)[0]
	*results = (*results)[1:]
	return r
}

func (d *fakeDevice) CreateSemaphore() (Semaphore, error) {
	h, err := d.create("semaphore")
	return Semaphore(h), err
}

func (d *fakeDevice) DestroySemaphore(s Semaphore) { d.destroy("semaphore", Handle(s)) }

func (d *fakeDevice) CreateFence(signaled bool) (Fence, error) {
	h, err := d.create("fence")
	if err == nil {
		d.fences[Fence(h)] = signaled
	}
	return Fence(h), err
}

func (d *fakeDevice) DestroyFence(f Fence) {
	d.destroy("fence", Handle(f))
	delete(d.fences, f)
}

func (d *fakeDevice) WaitForFence(f Fence, timeout uint64) Result {
	d.calls = append(d.calls, "wait fence")
	d.fenceWaits = append(d.fenceWaits, f)
	if !d.fences[f] {
		// nothing will ever signal it
		return Timeout
	}
	return Success
}

func (d *fakeDevice) ResetFence(f Fence) Result {
	d.calls = append(d.calls, "reset fence")
	d.fences[f] = false
	return Success
}

func (d *fakeDevice) QuerySurfaceSupport() (SurfaceSupport, error) {
	return d.support, nil
}

func (d *fakeDevice) DepthFormat() (Format, error) {
	return d.depthFormat, nil
}

func (d *fakeDevice) CreateSwapchain(info SwapchainInfo) (Swapchain, error) {
	d.infos = append(d.infos, info)
	d.extents = append(d.extents, info.Extent)
	h, err := d.create("swapchain")
	if err != nil {
		return Swapchain(NullHandle), err
	}
	images := make([]Image, d.imageCount)
	for i := range images {
		d.next++
		images[i] = Image(d.next)
	}
	d.images[Swapchain(h)] = images
	d.nextImage = 0
	return Swapchain(h), nil
}

func (d *fakeDevice) DestroySwapchain(s Swapchain) {
	d.destroy("swapchain", Handle(s))
	delete(d.images, s)
}

func (d *fakeDevice) SwapchainImages(s Swapchain) ([]Image, error) {
	return d.images[s], nil
}

func (d *fakeDevice) CreateImageView(image Image, format Format) (ImageView, error) {
	h, err := d.create("image view")
	return ImageView(h), err
}

func (d *fakeDevice) DestroyImageView(v ImageView) { d.destroy("image view", Handle(v)) }

func (d *fakeDevice) CreateDepthAttachment(extent Extent2D, format Format) (DepthAttachment, error) {
	d.extents = append(d.extents, extent)
	h, err := d.create("depth")
	return DepthAttachment{Image: Image(h), View: ImageView(h)}, err
}

func (d *fakeDevice) DestroyDepthAttachment(a DepthAttachment) { d.destroy("depth", Handle(a.Image)) }

func (d *fakeDevice) CreateFramebuffer(pass RenderPass, extent Extent2D, attachments ...ImageView) (Framebuffer, error) {
	d.extents = append(d.extents, extent)
	h, err := d.create("framebuffer")
	return Framebuffer(h), err
}

func (d *fakeDevice) DestroyFramebuffer(f Framebuffer) { d.destroy("framebuffer", Handle(f)) }

func (d *fakeDevice) CreateUniformBuffer(size uint64) (Buffer, error) {
	h, err := d.create("uniform buffer")
	return Buffer(h), err
}

func (d *fakeDevice) DestroyBuffer(b Buffer) { d.destroy("uniform buffer", Handle(b)) }

func (d *fakeDevice) WriteBuffer(b Buffer, data []byte) Result {
	d.calls = append(d.calls, "write uniform")
	d.writes[b] = append([]byte(nil), data...)
	return Success
}

func (d *fakeDevice) CreateDescriptorPool(count uint32) (DescriptorPool, error) {
	h, err := d.create("descriptor pool")
	return DescriptorPool(h), err
}

func (d *fakeDevice) DestroyDescriptorPool(p DescriptorPool) { d.destroy("descriptor pool", Handle(p)) }

func (d *fakeDevice) AllocateDescriptorSets(pool DescriptorPool, layout DescriptorSetLayout, count uint32) ([]DescriptorSet, error) {
	d.created["descriptor sets"]++
	if n, ok := d.failures["descriptor sets"]; ok && n == d.created["descriptor sets"] {
		return nil, errInjected
	}
	sets := make([]DescriptorSet, count)
	for i := range sets {
		d.next++
		sets[i] = DescriptorSet(d.next)
	}
	return sets, nil
}

func (d *fakeDevice) UpdateDescriptorSet(set DescriptorSet, uniform Buffer, size uint64, texture Texture) {
	d.calls = append(d.calls, "update descriptor set")
}

func (d *fakeDevice) AllocateCommandBuffers(count uint32) ([]CommandBuffer, error) {
	cbs := make([]CommandBuffer, 0, count)
	for i := uint32(0); i < count; i++ {
		h, err := d.create("command buffer")
		if err != nil {
			d.FreeCommandBuffers(cbs)
			return nil, err
		}
		cbs = append(cbs, CommandBuffer(h))
	}
	return cbs, nil
}

func (d *fakeDevice) FreeCommandBuffers(cbs []CommandBuffer) {
	for _, cb := range cbs {
		d.destroy("command buffer", Handle(cb))
		delete(d.commands, cb)
	}
}

func (d *fakeDevice) cmd(cb CommandBuffer, format string, args ...interface{}) {
	d.commands[cb] = append(d.commands[cb], fmt.Sprintf(format, args...))
}

func (d *fakeDevice) BeginCommandBuffer(cb CommandBuffer, oneShot bool) Result {
	d.commands[cb] = nil
	d.cmd(cb, "begin oneShot=%t", oneShot)
	return Success
}

func (d *fakeDevice) EndCommandBuffer(cb CommandBuffer) Result {
	d.cmd(cb, "end")
	return Success
}

func (d *fakeDevice) CmdBeginRenderPass(cb CommandBuffer, b RenderPassBegin) {
	d.cmd(cb, "begin pass %d fb=%d %dx%d clear=%v depth=%v stencil=%d",
		b.RenderPass, b.Framebuffer, b.Extent.Width, b.Extent.Height, b.ClearColor, b.ClearDepth, b.ClearStencil)
}

func (d *fakeDevice) CmdBindPipeline(cb CommandBuffer, p PipelineHandle) {
	d.cmd(cb, "bind pipeline %d", p)
}

func (d *fakeDevice) CmdBindVertexBuffer(cb CommandBuffer, b Buffer) {
	d.cmd(cb, "bind vertex %d", b)
}

func (d *fakeDevice) CmdBindIndexBuffer(cb CommandBuffer, b Buffer) {
	d.cmd(cb, "bind index %d", b)
}

func (d *fakeDevice) CmdBindDescriptorSet(cb CommandBuffer, layout PipelineLayout, set DescriptorSet) {
	d.cmd(cb, "bind set %d layout=%d", set, layout)
}

func (d *fakeDevice) CmdDrawIndexed(cb CommandBuffer, count uint32) {
	d.cmd(cb, "draw indexed %d", count)
}

func (d *fakeDevice) CmdEndRenderPass(cb CommandBuffer) {
	d.cmd(cb, "end pass")
}

func (d *fakeDevice) QueueSubmit(q Queue, info SubmitInfo, fence Fence) Result {
	d.calls = append(d.calls, "submit")
	if r := pop(&d.submitResults); r != Success {
		return r
	}
	d.submits = append(d.submits, info)
	if fence != Fence(NullHandle) {
		d.fences[fence] = true
	}
	return Success
}

func (d *fakeDevice) QueueWaitIdle(q Queue) Result {
	d.calls = append(d.calls, "queue wait idle")
	return Success
}

func (d *fakeDevice) AcquireNextImage(s Swapchain, timeout uint64, signal Semaphore) (uint32, Result) {
	d.calls = append(d.calls, "acquire")
	r := pop(&d.acquireResults)
	if r != Success && r != Suboptimal {
		return 0, r
	}
	idx := d.nextImage
	d.nextImage = (d.nextImage + 1) % uint32(len(d.images[s]))
	return idx, r
}

func (d *fakeDevice) QueuePresent(q Queue, info PresentInfo) Result {
	d.calls = append(d.calls, "present")
	d.presents = append(d.presents, info)
	return pop(&d.presentResults)
}

func (d *fakeDevice) WaitIdle() Result {
	d.calls = append(d.calls, "wait idle")
	return Success
}

// fakePipelines hands out render pass, layout and pipeline triples.
type fakePipelines struct {
	dev  *fakeDevice
	fail bool
}

func (p *fakePipelines) CreatePipeline(colorFormat, depthFormat Format, extent Extent2D) (Pipeline, error) {
	if p.fail {
		return Pipeline{}, errInjected
	}
	h, err := p.dev.create("pipeline")
	if err != nil {
		return Pipeline{}, err
	}
	return Pipeline{RenderPass: RenderPass(h), Layout: PipelineLayout(h), Handle: PipelineHandle(h)}, nil
}

func (p *fakePipelines) DestroyPipeline(pl Pipeline) {
	p.dev.destroy("pipeline", Handle(pl.Handle))
}

// fakeWindow returns scripted framebuffer sizes, one per WaitEvents call.
type fakeWindow struct {
	width, height int
	pending       [][2]int
	waits         int
	closing       bool
}

func (w *fakeWindow) FramebufferSize() (int, int) {
	return w.width, w.height
}

func (w *fakeWindow) WaitEvents() {
	w.waits++
	if len(w.pending) > 0 {
		w.width, w.height = w.pending[0][0], w.pending[0][1]
		w.pending = w.pending[1:]
	}
}

func (w *fakeWindow) ShouldClose() bool {
	return w.closing
}

type fakeResize struct {
	pending bool
	clears  int
}

func (r *fakeResize) Pending() bool { return r.pending }

func (r *fakeResize) Clear() {
	r.pending = false
	r.clears++
}

type fakeTransforms struct {
	calls int
}

func (t *fakeTransforms) Transform(extent Extent2D, deltaTime float64) []byte {
	t.calls++
	return []byte{byte(t.calls), byte(extent.Width), byte(extent.Height)}
}

package present

import (
	"fmt"

	"github.com/spaghettifunk/vkframe/engine/core"
	"github.com/spaghettifunk/vkframe/engine/math"
)

// extentFromWindow in CurrentExtent.Width means the surface size follows
// the swapchain extent.
const extentFromWindow = ^uint32(0)

// Generation is the set of resources tied to one negotiated surface extent
// and format. Every per-image slice has ImageCount entries.
type Generation struct {
	Serial      uint64
	Swapchain   Swapchain
	Format      SurfaceFormat
	PresentMode PresentMode
	Extent      Extent2D
	DepthFormat Format

	Images         []Image
	ImageViews     []ImageView
	Depth          DepthAttachment
	Pipeline       Pipeline
	Framebuffers   []Framebuffer
	UniformBuffers []Buffer
	DescriptorPool DescriptorPool
	DescriptorSets []DescriptorSet
	CommandBuffers []CommandBuffer
}

func (g *Generation) ImageCount() int {
	return len(g.Images)
}

type SwapchainDeps struct {
	Device    SwapchainDevice
	Window    Window
	Pipelines PipelineProvider
	Families  QueueFamilies

	DescriptorSetLayout DescriptorSetLayout
	Texture             Texture
	UniformSize         uint64

	// PreferLowLatency selects MAILBOX when the surface offers it.
	PreferLowLatency bool
}

// SwapchainManager owns the live Generation and rebuilds it when the
// surface changes.
type SwapchainManager struct {
	deps        SwapchainDeps
	current     *Generation
	serial      uint64
	recreations int
}

func NewSwapchainManager(deps SwapchainDeps) *SwapchainManager {
	return &SwapchainManager{deps: deps}
}

// Current returns the live generation, nil before Create or after Destroy.
func (m *SwapchainManager) Current() *Generation {
	return m.current
}

func (m *SwapchainManager) Recreations() int {
	return m.recreations
}

func (m *SwapchainManager) QuerySupport() (SurfaceSupport, error) {
	support, err := m.deps.Device.QuerySurfaceSupport()
	if err != nil {
		return SurfaceSupport{}, fmt.Errorf("failed to query surface support: %w", err)
	}
	if len(support.Formats) == 0 || len(support.PresentModes) == 0 {
		return SurfaceSupport{}, fmt.Errorf("%w: %d formats, %d present modes",
			ErrUnsupportedSurface, len(support.Formats), len(support.PresentModes))
	}
	return support, nil
}

var preferredFormats = []Format{
	FormatB8G8R8A8Srgb,
	FormatR8G8B8A8Srgb,
	FormatB8G8R8A8Unorm,
	FormatR8G8B8A8Unorm,
}

// ChooseFormat picks an 8 bit BGRA/RGBA format in the sRGB non-linear color
// space and falls back to the first entry. formats must not be empty.
func ChooseFormat(formats []SurfaceFormat) SurfaceFormat {
	// A single UNDEFINED entry means the surface has no preference.
	if len(formats) == 1 && formats[0].Format == FormatUndefined {
		return SurfaceFormat{Format: FormatB8G8R8A8Srgb, ColorSpace: ColorSpaceSrgbNonlinear}
	}
	for _, want := range preferredFormats {
		for _, f := range formats {
			if f.Format == want && f.ColorSpace == ColorSpaceSrgbNonlinear {
				return f
			}
		}
	}
	return formats[0]
}

// ChoosePresentMode returns MAILBOX when offered and wanted, otherwise FIFO,
// which every surface supports.
func ChoosePresentMode(modes []PresentMode, preferLowLatency bool) PresentMode {
	if preferLowLatency {
		for _, m := range modes {
			if m == PresentModeMailbox {
				return m
			}
		}
	}
	return PresentModeFifo
}

func ChooseExtent(caps SurfaceCapabilities, framebufferWidth, framebufferHeight int) Extent2D {
	if caps.CurrentExtent.Width != extentFromWindow {
		return caps.CurrentExtent
	}
	w := uint32(max(framebufferWidth, 0))
	h := uint32(max(framebufferHeight, 0))
	return Extent2D{
		Width:  math.Clamp(w, caps.MinImageExtent.Width, caps.MaxImageExtent.Width),
		Height: math.Clamp(h, caps.MinImageExtent.Height, caps.MaxImageExtent.Height),
	}
}

// ChooseImageCount asks for one image more than the minimum so the driver
// never stalls the CPU on acquire.
func ChooseImageCount(caps SurfaceCapabilities) uint32 {
	count := caps.MinImageCount + 1
	if caps.MaxImageCount > 0 && count > caps.MaxImageCount {
		count = caps.MaxImageCount
	}
	return count
}

// Create builds a complete generation. On failure everything allocated so
// far is released and no generation is left behind.
func (m *SwapchainManager) Create() error {
	if m.current != nil {
		return fmt.Errorf("%w: generation %d is still live", ErrSwapchainCreationFailed, m.current.Serial)
	}

	support, err := m.QuerySupport()
	if err != nil {
		return err
	}
	fbWidth, fbHeight := m.deps.Window.FramebufferSize()
	extent := ChooseExtent(support.Capabilities, fbWidth, fbHeight)
	if extent.IsZero() {
		return fmt.Errorf("%w: degenerate extent %dx%d", ErrSwapchainCreationFailed, extent.Width, extent.Height)
	}
	depthFormat, err := m.deps.Device.DepthFormat()
	if err != nil {
		return fmt.Errorf("%w: depth format: %w", ErrSwapchainCreationFailed, err)
	}

	gen, err := m.build(support, extent, depthFormat)
	if err != nil {
		core.LogError(err.Error())
		return err
	}

	m.serial++
	gen.Serial = m.serial
	m.current = gen
	core.LogInfo("swapchain generation %d created: %d images %dx%d format=%d present=%s",
		gen.Serial, gen.ImageCount(), extent.Width, extent.Height, gen.Format.Format, gen.PresentMode)
	return nil
}

func (m *SwapchainManager) build(support SurfaceSupport, extent Extent2D, depthFormat Format) (*Generation, error) {
	dev := m.deps.Device
	var undo cleanupStack
	fail := func(what string, err error) (*Generation, error) {
		undo.run()
		return nil, fmt.Errorf("%w: %s: %w", ErrSwapchainCreationFailed, what, err)
	}

	gen := &Generation{
		Format:      ChooseFormat(support.Formats),
		PresentMode: ChoosePresentMode(support.PresentModes, m.deps.PreferLowLatency),
		Extent:      extent,
		DepthFormat: depthFormat,
	}

	sc, err := dev.CreateSwapchain(SwapchainInfo{
		MinImageCount: ChooseImageCount(support.Capabilities),
		Format:        gen.Format,
		Extent:        extent,
		PresentMode:   gen.PresentMode,
		PreTransform:  support.Capabilities.CurrentTransform,
		Families:      m.deps.Families,
	})
	if err != nil {
		return fail("swapchain", err)
	}
	gen.Swapchain = sc
	undo.push(func() { dev.DestroySwapchain(sc) })

	images, err := dev.SwapchainImages(sc)
	if err != nil {
		return fail("swapchain images", err)
	}
	if len(images) == 0 {
		return fail("swapchain images", fmt.Errorf("driver returned no images"))
	}
	gen.Images = images
	count := uint32(len(images))

	gen.ImageViews = make([]ImageView, 0, count)
	for i, img := range images {
		view, err := dev.CreateImageView(img, gen.Format.Format)
		if err != nil {
			return fail(fmt.Sprintf("image view %d", i), err)
		}
		gen.ImageViews = append(gen.ImageViews, view)
		undo.push(func() { dev.DestroyImageView(view) })
	}

	depth, err := dev.CreateDepthAttachment(extent, depthFormat)
	if err != nil {
		return fail("depth attachment", err)
	}
	gen.Depth = depth
	undo.push(func() { dev.DestroyDepthAttachment(depth) })

	pipeline, err := m.deps.Pipelines.CreatePipeline(gen.Format.Format, depthFormat, extent)
	if err != nil {
		return fail("graphics pipeline", err)
	}
	gen.Pipeline = pipeline
	undo.push(func() { m.deps.Pipelines.DestroyPipeline(pipeline) })

	gen.Framebuffers = make([]Framebuffer, 0, count)
	for i, view := range gen.ImageViews {
		fb, err := dev.CreateFramebuffer(pipeline.RenderPass, extent, view, depth.View)
		if err != nil {
			return fail(fmt.Sprintf("framebuffer %d", i), err)
		}
		gen.Framebuffers = append(gen.Framebuffers, fb)
		undo.push(func() { dev.DestroyFramebuffer(fb) })
	}

	gen.UniformBuffers = make([]Buffer, 0, count)
	for i := uint32(0); i < count; i++ {
		buf, err := dev.CreateUniformBuffer(m.deps.UniformSize)
		if err != nil {
			return fail(fmt.Sprintf("uniform buffer %d", i), err)
		}
		gen.UniformBuffers = append(gen.UniformBuffers, buf)
		undo.push(func() { dev.DestroyBuffer(buf) })
	}

	pool, err := dev.CreateDescriptorPool(count)
	if err != nil {
		return fail("descriptor pool", err)
	}
	gen.DescriptorPool = pool
	undo.push(func() { dev.DestroyDescriptorPool(pool) })

	// Sets return to the pool when it is destroyed.
	sets, err := dev.AllocateDescriptorSets(pool, m.deps.DescriptorSetLayout, count)
	if err != nil {
		return fail("descriptor sets", err)
	}
	if len(sets) != int(count) {
		return fail("descriptor sets", fmt.Errorf("got %d sets for %d images", len(sets), count))
	}
	for i, set := range sets {
		dev.UpdateDescriptorSet(set, gen.UniformBuffers[i], m.deps.UniformSize, m.deps.Texture)
	}
	gen.DescriptorSets = sets

	cbs, err := dev.AllocateCommandBuffers(count)
	if err != nil {
		return fail("command buffers", err)
	}
	if len(cbs) != int(count) {
		dev.FreeCommandBuffers(cbs)
		return fail("command buffers", fmt.Errorf("got %d buffers for %d images", len(cbs), count))
	}
	gen.CommandBuffers = cbs

	return gen, nil
}

// Destroy tears the live generation down. The device must be idle with
// respect to its resources. Calling it with no live generation is a no-op.
func (m *SwapchainManager) Destroy() {
	gen := m.current
	if gen == nil {
		return
	}
	dev := m.deps.Device

	for _, fb := range gen.Framebuffers {
		dev.DestroyFramebuffer(fb)
	}
	dev.FreeCommandBuffers(gen.CommandBuffers)
	dev.DestroyDepthAttachment(gen.Depth)
	m.deps.Pipelines.DestroyPipeline(gen.Pipeline)
	for _, view := range gen.ImageViews {
		dev.DestroyImageView(view)
	}
	for _, buf := range gen.UniformBuffers {
		dev.DestroyBuffer(buf)
	}
	dev.DestroyDescriptorPool(gen.DescriptorPool)
	dev.DestroySwapchain(gen.Swapchain)

	m.current = nil
	core.LogDebug("swapchain generation %d destroyed", gen.Serial)
}

// Recreate waits until the window has a drawable size, idles the device and
// swaps the live generation for a new one. If the window closes while
// minimized it returns ErrWindowClosing with the live generation untouched.
func (m *SwapchainManager) Recreate() error {
	w, h := m.deps.Window.FramebufferSize()
	for w <= 0 || h <= 0 {
		if m.deps.Window.ShouldClose() {
			return ErrWindowClosing
		}
		m.deps.Window.WaitEvents()
		w, h = m.deps.Window.FramebufferSize()
	}

	if r := m.deps.Device.WaitIdle(); r != Success {
		return fatal("device wait idle", r)
	}
	m.Destroy()
	if err := m.Create(); err != nil {
		return err
	}
	m.recreations++
	core.LogInfo("swapchain recreated (%d so far)", m.recreations)
	return nil
}

// RebuildPipeline swaps the pipeline and framebuffers of the live generation
// for freshly built ones. The replacements are built before anything is
// released, so on failure the live generation is left exactly as it was and
// the error wraps ErrPipelineRebuildFailed.
func (m *SwapchainManager) RebuildPipeline() error {
	gen := m.current
	if gen == nil {
		return ErrNoGeneration
	}
	dev := m.deps.Device
	var undo cleanupStack
	fail := func(what string, err error) error {
		undo.run()
		err = fmt.Errorf("%w: %s: %w", ErrPipelineRebuildFailed, what, err)
		core.LogError(err.Error())
		return err
	}

	pipeline, err := m.deps.Pipelines.CreatePipeline(gen.Format.Format, gen.DepthFormat, gen.Extent)
	if err != nil {
		return fail("graphics pipeline", err)
	}
	undo.push(func() { m.deps.Pipelines.DestroyPipeline(pipeline) })

	framebuffers := make([]Framebuffer, 0, len(gen.ImageViews))
	for i, view := range gen.ImageViews {
		fb, err := dev.CreateFramebuffer(pipeline.RenderPass, gen.Extent, view, gen.Depth.View)
		if err != nil {
			return fail(fmt.Sprintf("framebuffer %d", i), err)
		}
		framebuffers = append(framebuffers, fb)
		undo.push(func() { dev.DestroyFramebuffer(fb) })
	}

	if r := dev.WaitIdle(); r != Success {
		undo.run()
		return fatal("device wait idle", r)
	}
	for _, fb := range gen.Framebuffers {
		dev.DestroyFramebuffer(fb)
	}
	m.deps.Pipelines.DestroyPipeline(gen.Pipeline)
	gen.Pipeline = pipeline
	gen.Framebuffers = framebuffers
	core.LogInfo("swapchain generation %d pipeline rebuilt", gen.Serial)
	return nil
}

// cleanupStack runs the registered release functions in reverse order.
type cleanupStack []func()

func (s *cleanupStack) push(fn func()) {
	*s = append(*s, fn)
}

func (s *cleanupStack) run() {
	for i := len(*s) - 1; i >= 0; i-- {
		(*s)[i]()
	}
	*s = nil
}

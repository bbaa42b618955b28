package present

// Handle is an opaque non-dispatchable object reference owned by a Device.
// The zero value is the null handle.
type Handle uint64

const NullHandle Handle = 0

type (
	Fence               Handle
	Semaphore           Handle
	Swapchain           Handle
	Image               Handle
	ImageView           Handle
	Framebuffer         Handle
	Buffer              Handle
	DescriptorPool      Handle
	DescriptorSet       Handle
	DescriptorSetLayout Handle
	CommandBuffer       Handle
	Queue               Handle
	RenderPass          Handle
	PipelineLayout      Handle
	PipelineHandle      Handle
	Sampler             Handle
)

// Format values are the VkFormat enumerants.
type Format uint32

const (
	FormatUndefined       Format = 0
	FormatR8G8B8A8Unorm   Format = 37
	FormatR8G8B8A8Srgb    Format = 43
	FormatB8G8R8A8Unorm   Format = 44
	FormatB8G8R8A8Srgb    Format = 50
	FormatR32G32Sfloat    Format = 103
	FormatR32G32B32Sfloat Format = 106
	FormatD32Sfloat       Format = 126
	FormatD24UnormS8Uint  Format = 129
	FormatD32SfloatS8Uint Format = 130
)

// ColorSpace values are the VkColorSpaceKHR enumerants.
type ColorSpace uint32

const ColorSpaceSrgbNonlinear ColorSpace = 0

// PresentMode values are the VkPresentModeKHR enumerants.
type PresentMode uint32

const (
	PresentModeImmediate   PresentMode = 0
	PresentModeMailbox     PresentMode = 1
	PresentModeFifo        PresentMode = 2
	PresentModeFifoRelaxed PresentMode = 3
)

func (m PresentMode) String() string {
	switch m {
	case PresentModeImmediate:
		return "IMMEDIATE"
	case PresentModeMailbox:
		return "MAILBOX"
	case PresentModeFifo:
		return "FIFO"
	case PresentModeFifoRelaxed:
		return "FIFO_RELAXED"
	}
	return "UNKNOWN"
}

// PipelineStage values are VkPipelineStageFlagBits.
type PipelineStage uint32

const StageColorAttachmentOutput PipelineStage = 0x00000400

// WaitForever is the fence and acquire timeout used on the frame path.
const WaitForever uint64 = ^uint64(0)

type Extent2D struct {
	Width  uint32
	Height uint32
}

func (e Extent2D) IsZero() bool {
	return e.Width == 0 || e.Height == 0
}

type SurfaceCapabilities struct {
	MinImageCount    uint32
	MaxImageCount    uint32 // 0 means no upper bound
	CurrentExtent    Extent2D
	MinImageExtent   Extent2D
	MaxImageExtent   Extent2D
	CurrentTransform uint32
}

type SurfaceFormat struct {
	Format     Format
	ColorSpace ColorSpace
}

type SurfaceSupport struct {
	Capabilities SurfaceCapabilities
	Formats      []SurfaceFormat
	PresentModes []PresentMode
}

type QueueFamilies struct {
	Graphics uint32
	Present  uint32
}

// Shared reports whether a single family serves both graphics and present.
func (q QueueFamilies) Shared() bool {
	return q.Graphics == q.Present
}

type SwapchainInfo struct {
	MinImageCount uint32
	Format        SurfaceFormat
	Extent        Extent2D
	PresentMode   PresentMode
	PreTransform  uint32
	Families      QueueFamilies
}

// DepthAttachment is a depth image with its memory and view.
type DepthAttachment struct {
	Image Image
	View  ImageView
}

// Pipeline groups the objects a graphics pipeline provider hands out for
// one swapchain generation.
type Pipeline struct {
	RenderPass RenderPass
	Layout     PipelineLayout
	Handle     PipelineHandle
}

type Texture struct {
	View    ImageView
	Sampler Sampler
}

type Geometry struct {
	VertexBuffer Buffer
	IndexBuffer  Buffer
	IndexCount   uint32
}

type SubmitInfo struct {
	WaitSemaphores   []Semaphore
	WaitStages       []PipelineStage
	CommandBuffers   []CommandBuffer
	SignalSemaphores []Semaphore
}

type PresentInfo struct {
	WaitSemaphores []Semaphore
	Swapchain      Swapchain
	ImageIndex     uint32
}

type RenderPassBegin struct {
	RenderPass   RenderPass
	Framebuffer  Framebuffer
	Extent       Extent2D
	ClearColor   [4]float32
	ClearDepth   float32
	ClearStencil uint32
}

type SyncDevice interface {
	CreateSemaphore() (Semaphore, error)
	DestroySemaphore(Semaphore)
	CreateFence(signaled bool) (Fence, error)
	DestroyFence(Fence)
	WaitForFence(fence Fence, timeout uint64) Result
	ResetFence(fence Fence) Result
}

type SurfaceDevice interface {
	QuerySurfaceSupport() (SurfaceSupport, error)
	DepthFormat() (Format, error)
}

// ResourceDevice creates and destroys everything whose size or count
// depends on the swapchain.
type ResourceDevice interface {
	CreateSwapchain(info SwapchainInfo) (Swapchain, error)
	DestroySwapchain(Swapchain)
	SwapchainImages(Swapchain) ([]Image, error)
	CreateImageView(image Image, format Format) (ImageView, error)
	DestroyImageView(ImageView)
	CreateDepthAttachment(extent Extent2D, format Format) (DepthAttachment, error)
	DestroyDepthAttachment(DepthAttachment)
	CreateFramebuffer(pass RenderPass, extent Extent2D, attachments ...ImageView) (Framebuffer, error)
	DestroyFramebuffer(Framebuffer)
	CreateUniformBuffer(size uint64) (Buffer, error)
	DestroyBuffer(Buffer)
	WriteBuffer(buffer Buffer, data []byte) Result
	CreateDescriptorPool(count uint32) (DescriptorPool, error)
	DestroyDescriptorPool(DescriptorPool)
	AllocateDescriptorSets(pool DescriptorPool, layout DescriptorSetLayout, count uint32) ([]DescriptorSet, error)
	UpdateDescriptorSet(set DescriptorSet, uniform Buffer, size uint64, texture Texture)
}

type CommandPoolDevice interface {
	AllocateCommandBuffers(count uint32) ([]CommandBuffer, error)
	FreeCommandBuffers([]CommandBuffer)
}

type RecordingDevice interface {
	BeginCommandBuffer(cb CommandBuffer, oneShot bool) Result
	EndCommandBuffer(cb CommandBuffer) Result
	CmdBeginRenderPass(cb CommandBuffer, begin RenderPassBegin)
	CmdBindPipeline(cb CommandBuffer, pipeline PipelineHandle)
	CmdBindVertexBuffer(cb CommandBuffer, buffer Buffer)
	CmdBindIndexBuffer(cb CommandBuffer, buffer Buffer)
	CmdBindDescriptorSet(cb CommandBuffer, layout PipelineLayout, set DescriptorSet)
	CmdDrawIndexed(cb CommandBuffer, indexCount uint32)
	CmdEndRenderPass(cb CommandBuffer)
}

type QueueDevice interface {
	QueueSubmit(queue Queue, info SubmitInfo, fence Fence) Result
	QueueWaitIdle(queue Queue) Result
	AcquireNextImage(swapchain Swapchain, timeout uint64, signal Semaphore) (uint32, Result)
	QueuePresent(queue Queue, info PresentInfo) Result
	WaitIdle() Result
}

// SwapchainDevice is what a SwapchainManager needs from the device.
type SwapchainDevice interface {
	SurfaceDevice
	ResourceDevice
	CommandPoolDevice
	WaitIdle() Result
}

// CommandDevice is what a CommandRecorder needs from the device.
type CommandDevice interface {
	CommandPoolDevice
	RecordingDevice
	QueueSubmit(queue Queue, info SubmitInfo, fence Fence) Result
	QueueWaitIdle(queue Queue) Result
}

type Device interface {
	SyncDevice
	SwapchainDevice
	CommandDevice
	QueueDevice
}

// PipelineProvider builds the render pass and graphics pipeline for a
// swapchain generation. The objects it returns belong to that generation.
type PipelineProvider interface {
	CreatePipeline(colorFormat, depthFormat Format, extent Extent2D) (Pipeline, error)
	DestroyPipeline(Pipeline)
}

type Window interface {
	FramebufferSize() (int, int)
	WaitEvents()
	ShouldClose() bool
}

// ResizeSignal is set by the window system and cleared by the frame loop
// once it has acted on it.
type ResizeSignal interface {
	Pending() bool
	Clear()
}

// TransformSource produces the uniform blob for one frame.
type TransformSource interface {
	Transform(extent Extent2D, deltaTime float64) []byte
}

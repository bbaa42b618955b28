package vulkan

import (
	"fmt"
	"runtime"
	"unsafe"

	"github.com/go-gl/glfw/v3.3/glfw"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/vkframe/engine/core"
	"github.com/spaghettifunk/vkframe/engine/renderer/present"
)

const validationLayerName = "VK_LAYER_KHRONOS_validation"

// SurfaceSource is the window side of instance and surface creation.
type SurfaceSource interface {
	GetRequiredExtensionNames() []string
	CreateSurface(instance interface{}) (uintptr, error)
}

type Options struct {
	ApplicationName string
	Validation      bool
}

// Driver implements present.Device on top of a Vulkan logical device. It
// is single threaded: every call must come from the render loop goroutine.
type Driver struct {
	context *VulkanContext
	debug   bool

	next            uint64
	fences          *registry[*VulkanFence]
	semaphores      *registry[vk.Semaphore]
	swapchains      *registry[*VulkanSwapchain]
	images          *registry[vk.Image]
	imageViews      *registry[vk.ImageView]
	ownedImages     *registry[*VulkanImage]
	framebuffers    *registry[*VulkanFramebuffer]
	buffers         *registry[*VulkanBuffer]
	descriptorPools *registry[*VulkanDescriptorPool]
	descriptorSets  *registry[vk.DescriptorSet]
	setLayouts      *registry[vk.DescriptorSetLayout]
	commandBuffers  *registry[*VulkanCommandBuffer]
	queues          *registry[vk.Queue]
	renderPasses    *registry[*VulkanRenderpass]
	pipelineLayouts *registry[vk.PipelineLayout]
	pipelines       *registry[*VulkanPipeline]
	samplers        *registry[vk.Sampler]

	graphicsQueue present.Queue
	presentQueue  present.Queue
	families      present.QueueFamilies
}

func newDriver(context *VulkanContext) *Driver {
	d := &Driver{context: context}
	d.fences = newRegistry[*VulkanFence](&d.next)
	d.semaphores = newRegistry[vk.Semaphore](&d.next)
	d.swapchains = newRegistry[*VulkanSwapchain](&d.next)
	d.images = newRegistry[vk.Image](&d.next)
	d.imageViews = newRegistry[vk.ImageView](&d.next)
	d.ownedImages = newRegistry[*VulkanImage](&d.next)
	d.framebuffers = newRegistry[*VulkanFramebuffer](&d.next)
	d.buffers = newRegistry[*VulkanBuffer](&d.next)
	d.descriptorPools = newRegistry[*VulkanDescriptorPool](&d.next)
	d.descriptorSets = newRegistry[vk.DescriptorSet](&d.next)
	d.setLayouts = newRegistry[vk.DescriptorSetLayout](&d.next)
	d.commandBuffers = newRegistry[*VulkanCommandBuffer](&d.next)
	d.queues = newRegistry[vk.Queue](&d.next)
	d.renderPasses = newRegistry[*VulkanRenderpass](&d.next)
	d.pipelineLayouts = newRegistry[vk.PipelineLayout](&d.next)
	d.pipelines = newRegistry[*VulkanPipeline](&d.next)
	d.samplers = newRegistry[vk.Sampler](&d.next)
	return d
}

// NewDriver creates the instance, the optional debug callback, the window
// surface and the logical device.
func NewDriver(window SurfaceSource, opts Options) (*Driver, error) {
	procAddr := glfw.GetVulkanGetInstanceProcAddress()
	if procAddr == nil {
		err := fmt.Errorf("GetInstanceProcAddress is nil")
		core.LogError(err.Error())
		return nil, err
	}
	vk.SetGetInstanceProcAddr(procAddr)

	if err := vk.Init(); err != nil {
		err = fmt.Errorf("failed to initialize vk: %w", err)
		core.LogError(err.Error())
		return nil, err
	}

	// TODO: custom allocator.
	d := newDriver(&VulkanContext{Allocator: nil, Device: &VulkanDevice{}})
	d.debug = opts.Validation

	if err := d.createInstance(window, opts.ApplicationName); err != nil {
		return nil, err
	}

	if d.debug {
		if err := d.createDebugCallback(); err != nil {
			d.Shutdown()
			return nil, err
		}
	}

	// Surface
	core.LogDebug("Creating Vulkan surface...")
	surface, err := window.CreateSurface(d.context.Instance)
	if err != nil {
		core.LogError(err.Error())
		d.Shutdown()
		return nil, err
	}
	d.context.Surface = vk.SurfaceFromPointer(surface)
	core.LogDebug("Vulkan surface created.")

	if err := DeviceCreate(d.context); err != nil {
		d.Shutdown()
		return nil, err
	}

	d.families = present.QueueFamilies{
		Graphics: d.context.Device.GraphicsQueueIndex,
		Present:  d.context.Device.PresentQueueIndex,
	}
	d.graphicsQueue = present.Queue(d.queues.add(d.context.Device.GraphicsQueue))
	d.presentQueue = present.Queue(d.queues.add(d.context.Device.PresentQueue))

	core.LogInfo("Vulkan driver initialized successfully.")
	return d, nil
}

func (d *Driver) createInstance(window SurfaceSource, appName string) error {
	appInfo := &vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		ApiVersion:         uint32(vk.MakeVersion(1, 1, 0)),
		ApplicationVersion: uint32(vk.MakeVersion(1, 0, 0)),
		PApplicationName:   VulkanSafeString(appName),
		PEngineName:        VulkanSafeString("vkframe"),
	}

	createInfo := vk.InstanceCreateInfo{
		SType:            vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo: appInfo,
	}

	// Obtain a list of required extensions
	requiredExtensions := []string{vk.KhrSurfaceExtensionName}
	requiredExtensions = appendMissing(requiredExtensions, window.GetRequiredExtensionNames()...)
	if runtime.GOOS == "darwin" {
		requiredExtensions = appendMissing(requiredExtensions,
			"VK_KHR_portability_enumeration",
			"VK_KHR_get_physical_device_properties2",
		)
		// VK_INSTANCE_CREATE_ENUMERATE_PORTABILITY_BIT_KHR
		createInfo.Flags |= 1
	}
	if d.debug {
		requiredExtensions = appendMissing(requiredExtensions, vk.ExtDebugReportExtensionName)
	}
	core.LogDebug("Required extensions: %v", requiredExtensions)

	createInfo.EnabledExtensionCount = uint32(len(requiredExtensions))
	createInfo.PpEnabledExtensionNames = VulkanSafeStrings(requiredExtensions)

	// Validation layers should only be enabled on non-release builds.
	var layers []string
	if d.debug {
		core.LogInfo("Validation layers enabled. Enumerating...")
		available, err := instanceLayerNames()
		if err != nil {
			core.LogError(err.Error())
			return err
		}
		if missing, ok := hasExtensions(available, []string{validationLayerName}); !ok {
			err := fmt.Errorf("required validation layer is missing: %s", missing)
			core.LogError(err.Error())
			return err
		}
		core.LogInfo("All required validation layers are present.")
		layers = []string{validationLayerName}
	}
	createInfo.EnabledLayerCount = uint32(len(layers))
	createInfo.PpEnabledLayerNames = VulkanSafeStrings(layers)

	var instance vk.Instance
	if res := vk.CreateInstance(&createInfo, d.context.Allocator, &instance); res != vk.Success {
		err := fmt.Errorf("failed in creating the Vulkan Instance with error `%s`", VulkanResultString(res, true))
		core.LogError(err.Error())
		return err
	}
	d.context.Instance = instance
	if err := vk.InitInstance(d.context.Instance); err != nil {
		core.LogError(err.Error())
		return err
	}

	core.LogInfo("Vulkan Instance created.")
	return nil
}

func (d *Driver) createDebugCallback() error {
	core.LogDebug("Creating Vulkan debugger...")
	debugCreateInfo := vk.DebugReportCallbackCreateInfo{
		SType:       vk.StructureTypeDebugReportCallbackCreateInfo,
		Flags:       vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit | vk.DebugReportPerformanceWarningBit),
		PfnCallback: dbgCallbackFunc,
	}

	var dbg vk.DebugReportCallback
	if err := vk.Error(vk.CreateDebugReportCallback(d.context.Instance, &debugCreateInfo, nil, &dbg)); err != nil {
		err = fmt.Errorf("vk.CreateDebugReportCallback failed with %w", err)
		core.LogError(err.Error())
		return err
	}
	d.context.debugCallback = dbg
	core.LogDebug("Vulkan debugger created.")
	return nil
}

func instanceLayerNames() ([]string, error) {
	var count uint32
	if res := vk.EnumerateInstanceLayerProperties(&count, nil); res != vk.Success {
		return nil, fmt.Errorf("vkEnumerateInstanceLayerProperties failed with %s", VulkanResultString(res, false))
	}
	layers := make([]vk.LayerProperties, count)
	if res := vk.EnumerateInstanceLayerProperties(&count, layers); res != vk.Success {
		return nil, fmt.Errorf("vkEnumerateInstanceLayerProperties failed with %s", VulkanResultString(res, false))
	}
	names := make([]string, 0, count)
	for i := range layers {
		layers[i].Deref()
		names = append(names, cString(layers[i].LayerName[:]))
	}
	return names, nil
}

func appendMissing(list []string, names ...string) []string {
	for _, name := range names {
		if _, ok := hasExtensions(list, []string{name}); !ok {
			list = append(list, name)
		}
	}
	return list
}

// Shutdown destroys the device, surface and instance. Everything created
// through the Driver must have been destroyed first; leftovers are logged.
func (d *Driver) Shutdown() {
	if d.context.Device.LogicalDevice != nil {
		vk.DeviceWaitIdle(d.context.Device.LogicalDevice)
	}
	for kind, n := range d.Live() {
		if n > 0 {
			core.LogWarn("%d %s still alive at shutdown", n, kind)
		}
	}

	DeviceDestroy(d.context)

	if d.context.Surface != vk.NullSurface {
		core.LogDebug("Destroying Vulkan surface...")
		vk.DestroySurface(d.context.Instance, d.context.Surface, d.context.Allocator)
		d.context.Surface = vk.NullSurface
	}
	if d.context.debugCallback != vk.NullDebugReportCallback {
		core.LogDebug("Destroying Vulkan debugger...")
		vk.DestroyDebugReportCallback(d.context.Instance, d.context.debugCallback, d.context.Allocator)
		d.context.debugCallback = vk.NullDebugReportCallback
	}
	if d.context.Instance != nil {
		core.LogDebug("Destroying Vulkan instance...")
		vk.DestroyInstance(d.context.Instance, d.context.Allocator)
		d.context.Instance = nil
	}
}

// Live reports how many objects of each kind the Driver still owns. Queues
// belong to the device and are not counted.
func (d *Driver) Live() map[string]int {
	return map[string]int{
		"fences":                 d.fences.len(),
		"semaphores":             d.semaphores.len(),
		"swapchains":             d.swapchains.len(),
		"image views":            d.imageViews.len(),
		"images":                 d.ownedImages.len(),
		"framebuffers":           d.framebuffers.len(),
		"buffers":                d.buffers.len(),
		"descriptor pools":       d.descriptorPools.len(),
		"descriptor set layouts": d.setLayouts.len(),
		"command buffers":        d.commandBuffers.len(),
		"render passes":          d.renderPasses.len(),
		"pipeline layouts":       d.pipelineLayouts.len(),
		"pipelines":              d.pipelines.len(),
		"samplers":               d.samplers.len(),
	}
}

func (d *Driver) GraphicsQueue() present.Queue {
	return d.graphicsQueue
}

func (d *Driver) PresentQueue() present.Queue {
	return d.presentQueue
}

func (d *Driver) QueueFamilies() present.QueueFamilies {
	return d.families
}

func dbgCallbackFunc(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType, object uint64, location uint64, messageCode int32, pLayerPrefix string, pMessage string, pUserData unsafe.Pointer) vk.Bool32 {
	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		core.LogError("ERROR: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportWarningBit) != 0:
		core.LogWarn("WARNING: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportPerformanceWarningBit) != 0:
		core.LogWarn("PERFORMANCE WARNING: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportDebugBit) != 0:
		core.LogDebug("DEBUG: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	default:
		core.LogInfo("INFORMATION: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	}
	return vk.Bool32(vk.False)
}

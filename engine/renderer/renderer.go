package renderer

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/vkframe/engine/assets"
	"github.com/spaghettifunk/vkframe/engine/core"
	"github.com/spaghettifunk/vkframe/engine/platform"
	"github.com/spaghettifunk/vkframe/engine/renderer/components"
	"github.com/spaghettifunk/vkframe/engine/renderer/present"
	"github.com/spaghettifunk/vkframe/engine/renderer/vulkan"
)

// Renderer owns the Vulkan driver and the frame loop that draws the
// textured cube.
type Renderer struct {
	driver     *vulkan.Driver
	setLayout  present.DescriptorSetLayout
	geometry   present.Geometry
	texture    present.Texture
	pipelines  *vulkan.GraphicsPipelines
	swapchains *present.SwapchainManager
	scheduler  *present.FrameScheduler
	camera     *components.Camera
}

// cubeLayout matches assets.Vertex.
var cubeLayout = vulkan.VertexLayout{
	Stride: assets.VertexStride,
	Attributes: []vulkan.VertexAttribute{
		{Location: 0, Format: present.FormatR32G32B32Sfloat, Offset: assets.VertexPosOffset},
		{Location: 1, Format: present.FormatR32G32B32Sfloat, Offset: assets.VertexColorOffset},
		{Location: 2, Format: present.FormatR32G32Sfloat, Offset: assets.VertexUVOffset},
	},
}

// New brings the renderer up in dependency order. On failure everything
// created so far is released again.
func New(p *platform.Platform, cfg *core.Config) (r *Renderer, err error) {
	var undo []func()
	defer func() {
		if err != nil {
			for i := len(undo) - 1; i >= 0; i-- {
				undo[i]()
			}
		}
	}()

	driver, err := vulkan.NewDriver(p, vulkan.Options{
		ApplicationName: cfg.Application.Name,
		Validation:      cfg.Renderer.Validation,
	})
	if err != nil {
		return nil, err
	}
	undo = append(undo, driver.Shutdown)

	setLayout, err := driver.CreateDescriptorSetLayout()
	if err != nil {
		return nil, err
	}
	undo = append(undo, func() { driver.DestroyDescriptorSetLayout(setLayout) })

	recorder := present.NewCommandRecorder(present.RecorderDeps{
		Device:     driver,
		Queue:      driver.GraphicsQueue(),
		ClearColor: cfg.Renderer.ClearColor,
	})

	cube := assets.Cube()
	geometry, err := driver.UploadGeometry(recorder, cube.VertexBytes(), cube.Indices)
	if err != nil {
		return nil, fmt.Errorf("upload cube: %w", err)
	}
	undo = append(undo, func() { driver.DestroyGeometry(geometry) })

	pixels, err := assets.LoadTexture(cfg.Assets.Texture)
	if err != nil {
		core.LogWarn("%s, falling back to the checkerboard", err)
		pixels = assets.Checkerboard(256, 8)
	}
	texture, err := driver.CreateTexture(recorder, pixels.Width, pixels.Height, pixels.Pixels)
	if err != nil {
		return nil, fmt.Errorf("upload texture: %w", err)
	}
	undo = append(undo, func() { driver.DestroyTexture(texture) })

	pipelines, err := vulkan.NewGraphicsPipelines(driver, setLayout, vulkan.PipelineOptions{
		ShaderDir:      cfg.Assets.ShaderDir,
		VertexShader:   cfg.Assets.VertexShader,
		FragmentShader: cfg.Assets.FragmentShader,
		Layout:         cubeLayout,
		CullMode:       vulkan.FaceCullModeBack,
		Wireframe:      cfg.Renderer.Wireframe,
	})
	if err != nil {
		return nil, fmt.Errorf("load shaders: %w", err)
	}

	swapchains := present.NewSwapchainManager(present.SwapchainDeps{
		Device:              driver,
		Window:              p,
		Pipelines:           pipelines,
		Families:            driver.QueueFamilies(),
		DescriptorSetLayout: setLayout,
		Texture:             texture,
		UniformSize:         components.UniformSize,
		PreferLowLatency:    cfg.Renderer.PreferLowLatency,
	})
	if err := swapchains.Create(); err != nil {
		return nil, err
	}
	undo = append(undo, swapchains.Destroy)

	sync, err := present.NewSyncObjectPool(driver, present.MaxFramesInFlight)
	if err != nil {
		return nil, err
	}
	undo = append(undo, sync.Destroy)

	camera := components.NewCamera()
	camera.SetPosition(mgl32.Vec3{0, 0, 2.5})

	scheduler, err := present.NewFrameScheduler(present.SchedulerDeps{
		Device:        driver,
		Swapchains:    swapchains,
		Recorder:      recorder,
		Sync:          sync,
		GraphicsQueue: driver.GraphicsQueue(),
		PresentQueue:  driver.PresentQueue(),
		Geometry:      geometry,
		Transforms:    components.NewSpinningModel(camera),
		Resize:        p,
	})
	if err != nil {
		return nil, err
	}

	core.LogInfo("renderer ready, shaders from %s", filepath.Clean(cfg.Assets.ShaderDir))
	return &Renderer{
		driver:     driver,
		setLayout:  setLayout,
		geometry:   geometry,
		texture:    texture,
		pipelines:  pipelines,
		swapchains: swapchains,
		scheduler:  scheduler,
		camera:     camera,
	}, nil
}

func (r *Renderer) DrawFrame(deltaTime float64) (present.FrameStatus, error) {
	return r.scheduler.DrawFrame(deltaTime)
}

// ReloadShaders reads the shaders again and rebuilds the pipeline. Shaders
// that fail to load or compile are reported and the previous pipeline keeps
// drawing; only a fatal device error is returned.
func (r *Renderer) ReloadShaders() error {
	core.LogInfo("reloading shaders")
	if err := r.pipelines.Reload(); err != nil {
		core.LogWarn("shader reload skipped: %s", err)
		return nil
	}
	err := r.scheduler.ReloadPipeline()
	if errors.Is(err, present.ErrPipelineRebuildFailed) {
		r.pipelines.Revert()
		core.LogWarn("shader reload rejected, keeping the previous pipeline")
		return nil
	}
	return err
}

func (r *Renderer) Camera() *components.Camera {
	return r.camera
}

// Frames is the number of presented frames and Recreations the number of
// swapchain rebuilds so far.
func (r *Renderer) Stats() (frames uint64, recreations int) {
	return r.scheduler.Frames(), r.swapchains.Recreations()
}

func (r *Renderer) Shutdown() error {
	err := r.scheduler.Shutdown()
	r.driver.DestroyGeometry(r.geometry)
	r.driver.DestroyTexture(r.texture)
	r.driver.DestroyDescriptorSetLayout(r.setLayout)
	r.driver.Shutdown()
	return err
}

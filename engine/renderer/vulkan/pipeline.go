package vulkan

import (
	"fmt"
	"path/filepath"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/vkframe/engine/core"
	"github.com/spaghettifunk/vkframe/engine/renderer/present"
)

type FaceCullMode int

const (
	FaceCullModeNone FaceCullMode = iota
	FaceCullModeFront
	FaceCullModeBack
	FaceCullModeFrontAndBack
)

// VulkanPipeline holds a Vulkan pipeline and its layout.
type VulkanPipeline struct {
	Handle         vk.Pipeline
	PipelineLayout vk.PipelineLayout
}

type VulkanPipelineConfig struct {
	Renderpass           *VulkanRenderpass
	Stride               uint32
	Attributes           []vk.VertexInputAttributeDescription
	DescriptorSetLayouts []vk.DescriptorSetLayout
	Stages               []vk.PipelineShaderStageCreateInfo
	// Viewport and scissor are baked in; a new extent means a new pipeline.
	Viewport    vk.Viewport
	Scissor     vk.Rect2D
	CullMode    FaceCullMode
	IsWireframe bool
	DepthTest   bool
}

func cullModeFlags(mode FaceCullMode) vk.CullModeFlags {
	switch mode {
	case FaceCullModeNone:
		return vk.CullModeFlags(vk.CullModeNone)
	case FaceCullModeFront:
		return vk.CullModeFlags(vk.CullModeFrontBit)
	case FaceCullModeFrontAndBack:
		return vk.CullModeFlags(vk.CullModeFrontAndBack)
	}
	return vk.CullModeFlags(vk.CullModeBackBit)
}

func NewGraphicsPipeline(context *VulkanContext, config *VulkanPipelineConfig) (*VulkanPipeline, error) {
	outPipeline := &VulkanPipeline{}

	viewportState := vk.PipelineViewportStateCreateInfo{
		SType:         vk.StructureTypePipelineViewportStateCreateInfo,
		ViewportCount: 1,
		PViewports:    []vk.Viewport{config.Viewport},
		ScissorCount:  1,
		PScissors:     []vk.Rect2D{config.Scissor},
	}

	rasterizerCreateInfo := vk.PipelineRasterizationStateCreateInfo{
		SType:                   vk.StructureTypePipelineRasterizationStateCreateInfo,
		DepthClampEnable:        vk.False,
		RasterizerDiscardEnable: vk.False,
		PolygonMode:             vk.PolygonModeFill,
		LineWidth:               1.0,
		CullMode:                cullModeFlags(config.CullMode),
		FrontFace:               vk.FrontFaceCounterClockwise,
		DepthBiasEnable:         vk.False,
	}
	if config.IsWireframe {
		rasterizerCreateInfo.PolygonMode = vk.PolygonModeLine
	}

	multisamplingCreateInfo := vk.PipelineMultisampleStateCreateInfo{
		SType:                 vk.StructureTypePipelineMultisampleStateCreateInfo,
		SampleShadingEnable:   vk.False,
		RasterizationSamples:  vk.SampleCount1Bit,
		MinSampleShading:      1.0,
		AlphaToCoverageEnable: vk.False,
		AlphaToOneEnable:      vk.False,
	}

	depthStencil := vk.PipelineDepthStencilStateCreateInfo{
		SType:             vk.StructureTypePipelineDepthStencilStateCreateInfo,
		DepthTestEnable:   vk.False,
		DepthWriteEnable:  vk.False,
		StencilTestEnable: vk.False,
	}
	if config.DepthTest {
		depthStencil.DepthTestEnable = vk.True
		depthStencil.DepthWriteEnable = vk.True
		depthStencil.DepthCompareOp = vk.CompareOpLess
		depthStencil.DepthBoundsTestEnable = vk.False
	}

	colorBlendAttachmentState := vk.PipelineColorBlendAttachmentState{
		BlendEnable:         vk.True,
		SrcColorBlendFactor: vk.BlendFactorSrcAlpha,
		DstColorBlendFactor: vk.BlendFactorOneMinusSrcAlpha,
		ColorBlendOp:        vk.BlendOpAdd,
		SrcAlphaBlendFactor: vk.BlendFactorSrcAlpha,
		DstAlphaBlendFactor: vk.BlendFactorOneMinusSrcAlpha,
		AlphaBlendOp:        vk.BlendOpAdd,
		ColorWriteMask: vk.ColorComponentFlags(vk.ColorComponentRBit) | vk.ColorComponentFlags(vk.ColorComponentGBit) |
			vk.ColorComponentFlags(vk.ColorComponentBBit) | vk.ColorComponentFlags(vk.ColorComponentABit),
	}

	colorBlendStateCreateInfo := vk.PipelineColorBlendStateCreateInfo{
		SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
		LogicOpEnable:   vk.False,
		LogicOp:         vk.LogicOpCopy,
		AttachmentCount: 1,
		PAttachments:    []vk.PipelineColorBlendAttachmentState{colorBlendAttachmentState},
	}

	bindingDescription := vk.VertexInputBindingDescription{
		Binding:   0,
		Stride:    config.Stride,
		InputRate: vk.VertexInputRateVertex,
	}

	vertexInputInfo := vk.PipelineVertexInputStateCreateInfo{
		SType:                           vk.StructureTypePipelineVertexInputStateCreateInfo,
		VertexBindingDescriptionCount:   1,
		PVertexBindingDescriptions:      []vk.VertexInputBindingDescription{bindingDescription},
		VertexAttributeDescriptionCount: uint32(len(config.Attributes)),
		PVertexAttributeDescriptions:    config.Attributes,
	}

	inputAssembly := vk.PipelineInputAssemblyStateCreateInfo{
		SType:                  vk.StructureTypePipelineInputAssemblyStateCreateInfo,
		Topology:               vk.PrimitiveTopologyTriangleList,
		PrimitiveRestartEnable: vk.False,
	}

	pipelineLayoutCreateInfo := vk.PipelineLayoutCreateInfo{
		SType:          vk.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount: uint32(len(config.DescriptorSetLayouts)),
		PSetLayouts:    config.DescriptorSetLayouts,
	}

	var pPipelineLayout vk.PipelineLayout
	if res := vk.CreatePipelineLayout(context.Device.LogicalDevice, &pipelineLayoutCreateInfo, context.Allocator, &pPipelineLayout); !VulkanResultIsSuccess(res) {
		err := fmt.Errorf("vkCreatePipelineLayout failed with %s", VulkanResultString(res, true))
		core.LogError(err.Error())
		return nil, err
	}
	outPipeline.PipelineLayout = pPipelineLayout

	pipelineCreateInfo := vk.GraphicsPipelineCreateInfo{
		SType:               vk.StructureTypeGraphicsPipelineCreateInfo,
		StageCount:          uint32(len(config.Stages)),
		PStages:             config.Stages,
		PVertexInputState:   &vertexInputInfo,
		PInputAssemblyState: &inputAssembly,
		PViewportState:      &viewportState,
		PRasterizationState: &rasterizerCreateInfo,
		PMultisampleState:   &multisamplingCreateInfo,
		PDepthStencilState:  &depthStencil,
		PColorBlendState:    &colorBlendStateCreateInfo,
		Layout:              outPipeline.PipelineLayout,
		RenderPass:          config.Renderpass.Handle,
		Subpass:             0,
		BasePipelineHandle:  vk.NullPipeline,
		BasePipelineIndex:   -1,
	}

	pPipelines := make([]vk.Pipeline, 1)
	if res := vk.CreateGraphicsPipelines(context.Device.LogicalDevice, vk.NullPipelineCache, 1,
		[]vk.GraphicsPipelineCreateInfo{pipelineCreateInfo}, context.Allocator, pPipelines); !VulkanResultIsSuccess(res) {
		err := fmt.Errorf("vkCreateGraphicsPipelines failed with %s", VulkanResultString(res, true))
		core.LogError(err.Error())
		outPipeline.Destroy(context)
		return nil, err
	}
	outPipeline.Handle = pPipelines[0]

	core.LogDebug("graphics pipeline created for %dx%d", config.Scissor.Extent.Width, config.Scissor.Extent.Height)
	return outPipeline, nil
}

func (pipeline *VulkanPipeline) Destroy(context *VulkanContext) {
	if pipeline.Handle != vk.NullPipeline {
		vk.DestroyPipeline(context.Device.LogicalDevice, pipeline.Handle, context.Allocator)
		pipeline.Handle = vk.NullPipeline
	}
	if pipeline.PipelineLayout != vk.NullPipelineLayout {
		vk.DestroyPipelineLayout(context.Device.LogicalDevice, pipeline.PipelineLayout, context.Allocator)
		pipeline.PipelineLayout = vk.NullPipelineLayout
	}
}

func (pipeline *VulkanPipeline) Bind(commandBuffer *VulkanCommandBuffer, bindPoint vk.PipelineBindPoint) {
	vk.CmdBindPipeline(commandBuffer.Handle, bindPoint, pipeline.Handle)
}

type VertexAttribute struct {
	Location uint32
	Format   present.Format
	Offset   uint32
}

// VertexLayout describes the single interleaved vertex binding.
type VertexLayout struct {
	Stride     uint32
	Attributes []VertexAttribute
}

func (l VertexLayout) descriptions() []vk.VertexInputAttributeDescription {
	out := make([]vk.VertexInputAttributeDescription, len(l.Attributes))
	for i, a := range l.Attributes {
		out[i] = vk.VertexInputAttributeDescription{
			Location: a.Location,
			Binding:  0,
			Format:   vk.Format(a.Format),
			Offset:   a.Offset,
		}
	}
	return out
}

type PipelineOptions struct {
	ShaderDir      string
	VertexShader   string
	FragmentShader string
	Layout         VertexLayout
	CullMode       FaceCullMode
	Wireframe      bool
}

// shaderSources is one validated pair of compiled shaders.
type shaderSources struct {
	vertex   []uint32
	fragment []uint32
}

func readShaderSources(opts PipelineOptions) (*shaderSources, error) {
	vertex, err := LoadSPIRV(filepath.Join(opts.ShaderDir, opts.VertexShader))
	if err != nil {
		return nil, err
	}
	fragment, err := LoadSPIRV(filepath.Join(opts.ShaderDir, opts.FragmentShader))
	if err != nil {
		return nil, err
	}
	return &shaderSources{vertex: vertex, fragment: fragment}, nil
}

// GraphicsPipelines builds the render pass and pipeline of each swapchain
// generation from the shaders read at construction or by the last Reload.
type GraphicsPipelines struct {
	driver    *Driver
	setLayout present.DescriptorSetLayout
	opts      PipelineOptions

	sources  *shaderSources
	previous *shaderSources
}

var _ present.PipelineProvider = (*GraphicsPipelines)(nil)

func NewGraphicsPipelines(driver *Driver, setLayout present.DescriptorSetLayout, opts PipelineOptions) (*GraphicsPipelines, error) {
	if opts.Wireframe && driver.context.Device.Features.FillModeNonSolid != vk.True {
		core.LogWarn("device cannot rasterize lines, wireframe disabled")
		opts.Wireframe = false
	}
	sources, err := readShaderSources(opts)
	if err != nil {
		return nil, err
	}
	return &GraphicsPipelines{driver: driver, setLayout: setLayout, opts: opts, sources: sources}, nil
}

// Reload reads the shaders from disk again. When either file is missing or
// not valid SPIR-V the shaders in use are kept and the error is returned.
func (g *GraphicsPipelines) Reload() error {
	sources, err := readShaderSources(g.opts)
	if err != nil {
		return err
	}
	g.previous, g.sources = g.sources, sources
	return nil
}

// Revert goes back to the shaders in use before the last Reload.
func (g *GraphicsPipelines) Revert() {
	if g.previous != nil {
		g.sources, g.previous = g.previous, nil
	}
}

func (g *GraphicsPipelines) loadStages() ([]*VulkanShaderStage, error) {
	sources := []struct {
		code  []uint32
		stage vk.ShaderStageFlagBits
	}{
		{g.sources.vertex, vk.ShaderStageVertexBit},
		{g.sources.fragment, vk.ShaderStageFragmentBit},
	}

	stages := make([]*VulkanShaderStage, 0, len(sources))
	for _, src := range sources {
		stage, err := NewShaderStage(g.driver.context, src.code, src.stage)
		if err != nil {
			destroyStages(g.driver.context, stages)
			return nil, err
		}
		stages = append(stages, stage)
	}
	return stages, nil
}

func destroyStages(context *VulkanContext, stages []*VulkanShaderStage) {
	for _, s := range stages {
		s.Destroy(context)
	}
}

func (g *GraphicsPipelines) CreatePipeline(colorFormat, depthFormat present.Format, extent present.Extent2D) (present.Pipeline, error) {
	d := g.driver
	setLayout, ok := d.setLayouts.get(present.Handle(g.setLayout))
	if !ok {
		return present.Pipeline{}, fmt.Errorf("pipeline: unknown descriptor set layout %d", g.setLayout)
	}

	stages, err := g.loadStages()
	if err != nil {
		return present.Pipeline{}, err
	}
	// Modules are only needed while the pipeline is compiled.
	defer destroyStages(d.context, stages)

	pass, err := RenderpassCreate(d.context, vk.Format(colorFormat), vk.Format(depthFormat))
	if err != nil {
		return present.Pipeline{}, err
	}

	stageInfos := make([]vk.PipelineShaderStageCreateInfo, len(stages))
	for i, s := range stages {
		stageInfos[i] = s.ShaderStageCreateInfo
	}

	pipeline, err := NewGraphicsPipeline(d.context, &VulkanPipelineConfig{
		Renderpass:           pass,
		Stride:               g.opts.Layout.Stride,
		Attributes:           g.opts.Layout.descriptions(),
		DescriptorSetLayouts: []vk.DescriptorSetLayout{setLayout},
		Stages:               stageInfos,
		Viewport: vk.Viewport{
			X:        0,
			Y:        0,
			Width:    float32(extent.Width),
			Height:   float32(extent.Height),
			MinDepth: 0,
			MaxDepth: 1,
		},
		Scissor: vk.Rect2D{
			Offset: vk.Offset2D{X: 0, Y: 0},
			Extent: vk.Extent2D{Width: extent.Width, Height: extent.Height},
		},
		CullMode:    g.opts.CullMode,
		IsWireframe: g.opts.Wireframe,
		DepthTest:   true,
	})
	if err != nil {
		pass.RenderpassDestroy(d.context)
		return present.Pipeline{}, err
	}

	return present.Pipeline{
		RenderPass: present.RenderPass(d.renderPasses.add(pass)),
		Layout:     present.PipelineLayout(d.pipelineLayouts.add(pipeline.PipelineLayout)),
		Handle:     present.PipelineHandle(d.pipelines.add(pipeline)),
	}, nil
}

func (g *GraphicsPipelines) DestroyPipeline(p present.Pipeline) {
	d := g.driver
	// The layout is owned by the pipeline object and destroyed with it.
	d.pipelineLayouts.take(present.Handle(p.Layout))
	if pipeline, ok := d.pipelines.take(present.Handle(p.Handle)); ok {
		pipeline.Destroy(d.context)
	}
	if pass, ok := d.renderPasses.take(present.Handle(p.RenderPass)); ok {
		pass.RenderpassDestroy(d.context)
	}
}

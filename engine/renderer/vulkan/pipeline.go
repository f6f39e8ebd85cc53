package vulkan

import (
	"fmt"
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/google/uuid"

	"github.com/Kobazaaa/Ashen/engine/core"
)

// VulkanPipeline holds a graphics pipeline and its layout.
type VulkanPipeline struct {
	Handle         vk.Pipeline
	PipelineLayout vk.PipelineLayout
	Name           string
	// ColorFormats are the dynamic rendering color attachment formats the pipeline was built for.
	ColorFormats []vk.Format
	DepthFormat  vk.Format

	device Device
}

func (p *VulkanPipeline) Bind(cmd vk.CommandBuffer) {
	p.device.CmdBindPipeline(cmd, p.Handle)
}

func (p *VulkanPipeline) Destroy() {
	if p.device == nil {
		return
	}
	if p.Handle != vk.NullPipeline {
		p.device.DestroyPipeline(p.Handle)
		p.Handle = vk.NullPipeline
	}
	if p.PipelineLayout != nil {
		p.device.DestroyPipelineLayout(p.PipelineLayout)
		p.PipelineLayout = nil
	}
}

type shaderSource struct {
	path  string
	stage vk.ShaderStageFlagBits
}

// PipelineBuilder assembles graphics pipelines for dynamic rendering. Push constant ranges,
// descriptor layouts and shader stages are cleared after every Build; the remaining state
// carries over so related pipelines can share it.
type PipelineBuilder struct {
	device Device

	pushRanges []vk.PushConstantRange
	setLayouts []vk.DescriptorSetLayout
	shaders    []shaderSource

	vertexBindings   []vk.VertexInputBindingDescription
	vertexAttributes []vk.VertexInputAttributeDescription

	topology     vk.PrimitiveTopology
	cullMode     vk.CullModeFlags
	frontFace    vk.FrontFace
	polygonMode  vk.PolygonMode
	depthTest    bool
	depthWrite   bool
	depthCompare vk.CompareOp

	blendAttachments []vk.PipelineColorBlendAttachmentState
	dynamicStates    []vk.DynamicState

	colorFormats []vk.Format
	depthFormat  vk.Format
}

func NewPipelineBuilder(device Device) *PipelineBuilder {
	return &PipelineBuilder{
		device:       device,
		topology:     vk.PrimitiveTopologyTriangleList,
		cullMode:     vk.CullModeFlags(vk.CullModeBackBit),
		frontFace:    vk.FrontFaceClockwise,
		polygonMode:  vk.PolygonModeFill,
		depthCompare: vk.CompareOpLess,
		depthFormat:  vk.FormatUndefined,
	}
}

func (pb *PipelineBuilder) SetVertexBindings(bindings []vk.VertexInputBindingDescription) *PipelineBuilder {
	pb.vertexBindings = bindings
	return pb
}

func (pb *PipelineBuilder) SetVertexAttributes(attributes []vk.VertexInputAttributeDescription) *PipelineBuilder {
	pb.vertexAttributes = attributes
	return pb
}

// PushConstantRangeBuilder configures one push constant range of a PipelineBuilder.
type PushConstantRangeBuilder struct {
	builder *PipelineBuilder
	push    vk.PushConstantRange
}

func (pb *PipelineBuilder) AddPushConstantRange() *PushConstantRangeBuilder {
	return &PushConstantRangeBuilder{builder: pb}
}

func (rb *PushConstantRangeBuilder) SetSize(size uint32) *PushConstantRangeBuilder {
	rb.push.Size = size
	return rb
}

func (rb *PushConstantRangeBuilder) SetOffset(offset uint32) *PushConstantRangeBuilder {
	rb.push.Offset = offset
	return rb
}

func (rb *PushConstantRangeBuilder) SetStageFlags(stages vk.ShaderStageFlags) *PushConstantRangeBuilder {
	rb.push.StageFlags = stages
	return rb
}

func (rb *PushConstantRangeBuilder) EndRange() *PipelineBuilder {
	rb.builder.pushRanges = append(rb.builder.pushRanges, rb.push)
	return rb.builder
}

func (pb *PipelineBuilder) AddDescriptorSet(set *VulkanDescriptorSet) *PipelineBuilder {
	return pb.AddDescriptorLayout(set.Layout)
}

func (pb *PipelineBuilder) AddDescriptorLayout(layout vk.DescriptorSetLayout) *PipelineBuilder {
	pb.setLayouts = append(pb.setLayouts, layout)
	return pb
}

func (pb *PipelineBuilder) SetVertexShader(path string) *PipelineBuilder {
	pb.shaders = append(pb.shaders, shaderSource{path: path, stage: vk.ShaderStageVertexBit})
	return pb
}

func (pb *PipelineBuilder) SetFragmentShader(path string) *PipelineBuilder {
	pb.shaders = append(pb.shaders, shaderSource{path: path, stage: vk.ShaderStageFragmentBit})
	return pb
}

func (pb *PipelineBuilder) SetPrimitiveTopology(topology vk.PrimitiveTopology) *PipelineBuilder {
	pb.topology = topology
	return pb
}

func (pb *PipelineBuilder) SetCullMode(mode vk.CullModeFlags) *PipelineBuilder {
	pb.cullMode = mode
	return pb
}

func (pb *PipelineBuilder) SetFrontFace(face vk.FrontFace) *PipelineBuilder {
	pb.frontFace = face
	return pb
}

func (pb *PipelineBuilder) SetPolygonMode(mode vk.PolygonMode) *PipelineBuilder {
	pb.polygonMode = mode
	return pb
}

func (pb *PipelineBuilder) SetDepthTest(test, write bool, compare vk.CompareOp) *PipelineBuilder {
	pb.depthTest = test
	pb.depthWrite = write
	pb.depthCompare = compare
	return pb
}

// AddBlendAttachment appends the blend state of the next color attachment. A disabled
// attachment writes all four channels unblended.
func (pb *PipelineBuilder) AddBlendAttachment(enable bool, src, dst vk.BlendFactor, op vk.BlendOp) *PipelineBuilder {
	state := opaqueBlendAttachment()
	if enable {
		state.BlendEnable = vk.True
		state.SrcColorBlendFactor = src
		state.DstColorBlendFactor = dst
		state.ColorBlendOp = op
		state.SrcAlphaBlendFactor = src
		state.DstAlphaBlendFactor = dst
		state.AlphaBlendOp = op
	}
	pb.blendAttachments = append(pb.blendAttachments, state)
	return pb
}

func (pb *PipelineBuilder) ClearBlendAttachments() *PipelineBuilder {
	pb.blendAttachments = nil
	return pb
}

func (pb *PipelineBuilder) AddDynamicState(state vk.DynamicState) *PipelineBuilder {
	for _, s := range pb.dynamicStates {
		if s == state {
			return pb
		}
	}
	pb.dynamicStates = append(pb.dynamicStates, state)
	return pb
}

// SetupDynamicRendering sets the attachment formats the pipeline renders into.
// Pass vk.FormatUndefined as depthFormat for color-only pipelines.
func (pb *PipelineBuilder) SetupDynamicRendering(colorFormats []vk.Format, depthFormat vk.Format) *PipelineBuilder {
	pb.colorFormats = append([]vk.Format(nil), colorFormats...)
	pb.depthFormat = depthFormat
	return pb
}

func opaqueBlendAttachment() vk.PipelineColorBlendAttachmentState {
	return vk.PipelineColorBlendAttachmentState{
		BlendEnable:         vk.False,
		SrcColorBlendFactor: vk.BlendFactorOne,
		DstColorBlendFactor: vk.BlendFactorZero,
		ColorBlendOp:        vk.BlendOpAdd,
		SrcAlphaBlendFactor: vk.BlendFactorOne,
		DstAlphaBlendFactor: vk.BlendFactorZero,
		AlphaBlendOp:        vk.BlendOpAdd,
		ColorWriteMask: vk.ColorComponentFlags(vk.ColorComponentRBit) | vk.ColorComponentFlags(vk.ColorComponentGBit) |
			vk.ColorComponentFlags(vk.ColorComponentBBit) | vk.ColorComponentFlags(vk.ColorComponentABit),
	}
}

func (pb *PipelineBuilder) reset() {
	pb.pushRanges = nil
	pb.setLayouts = nil
	pb.shaders = nil
}

// Build creates the layout, the shader modules, then the pipeline, and destroys the modules.
func (pb *PipelineBuilder) Build(pipeline *VulkanPipeline) error {
	defer pb.reset()

	*pipeline = VulkanPipeline{
		Name:         "pipeline-" + uuid.NewString(),
		ColorFormats: append([]vk.Format(nil), pb.colorFormats...),
		DepthFormat:  pb.depthFormat,
		device:       pb.device,
	}

	// Pipeline layout
	layout, err := pb.device.CreatePipelineLayout(&vk.PipelineLayoutCreateInfo{
		SType:                  vk.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount:         uint32(len(pb.setLayouts)),
		PSetLayouts:            pb.setLayouts,
		PushConstantRangeCount: uint32(len(pb.pushRanges)),
		PPushConstantRanges:    pb.pushRanges,
	})
	if err != nil {
		core.LogError("vkCreatePipelineLayout for %s: %s", pipeline.Name, err)
		return err
	}
	pipeline.PipelineLayout = layout

	// Shader stages
	stages := make([]vk.PipelineShaderStageCreateInfo, 0, len(pb.shaders))
	modules := make([]vk.ShaderModule, 0, len(pb.shaders))
	defer func() {
		for _, module := range modules {
			pb.device.DestroyShaderModule(module)
		}
	}()
	for _, source := range pb.shaders {
		stage, err := NewShaderModule(pb.device, source.path, source.stage)
		if err != nil {
			pipeline.Destroy()
			return err
		}
		modules = append(modules, stage.Handle)
		stages = append(stages, stage.ShaderStageCreateInfo)
	}

	// Vertex input
	vertexInputInfo := vk.PipelineVertexInputStateCreateInfo{
		SType:                           vk.StructureTypePipelineVertexInputStateCreateInfo,
		VertexBindingDescriptionCount:   uint32(len(pb.vertexBindings)),
		PVertexBindingDescriptions:      pb.vertexBindings,
		VertexAttributeDescriptionCount: uint32(len(pb.vertexAttributes)),
		PVertexAttributeDescriptions:    pb.vertexAttributes,
	}

	// Input assembly
	inputAssembly := vk.PipelineInputAssemblyStateCreateInfo{
		SType:                  vk.StructureTypePipelineInputAssemblyStateCreateInfo,
		Topology:               pb.topology,
		PrimitiveRestartEnable: vk.False,
	}

	// Viewport and scissor are dynamic; only the counts matter.
	viewportState := vk.PipelineViewportStateCreateInfo{
		SType:         vk.StructureTypePipelineViewportStateCreateInfo,
		ViewportCount: 1,
		ScissorCount:  1,
	}

	// Rasterizer
	rasterizerCreateInfo := vk.PipelineRasterizationStateCreateInfo{
		SType:                   vk.StructureTypePipelineRasterizationStateCreateInfo,
		DepthClampEnable:        vk.False,
		RasterizerDiscardEnable: vk.False,
		PolygonMode:             pb.polygonMode,
		LineWidth:               1.0,
		CullMode:                pb.cullMode,
		FrontFace:               pb.frontFace,
		DepthBiasEnable:         vk.False,
	}

	// Multisampling.
	multisamplingCreateInfo := vk.PipelineMultisampleStateCreateInfo{
		SType:                vk.StructureTypePipelineMultisampleStateCreateInfo,
		SampleShadingEnable:  vk.False,
		RasterizationSamples: vk.SampleCount1Bit,
		MinSampleShading:     1.0,
	}

	// Depth and stencil testing.
	depthStencil := vk.PipelineDepthStencilStateCreateInfo{
		SType:             vk.StructureTypePipelineDepthStencilStateCreateInfo,
		DepthTestEnable:   vk.False,
		DepthWriteEnable:  vk.False,
		DepthCompareOp:    pb.depthCompare,
		StencilTestEnable: vk.False,
	}
	if pb.depthTest {
		depthStencil.DepthTestEnable = vk.True
	}
	if pb.depthWrite {
		depthStencil.DepthWriteEnable = vk.True
	}

	blendAttachments := pb.blendAttachments
	for len(blendAttachments) < len(pb.colorFormats) {
		blendAttachments = append(blendAttachments, opaqueBlendAttachment())
	}
	if len(blendAttachments) > len(pb.colorFormats) {
		blendAttachments = blendAttachments[:len(pb.colorFormats)]
	}
	colorBlendStateCreateInfo := vk.PipelineColorBlendStateCreateInfo{
		SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
		LogicOpEnable:   vk.False,
		LogicOp:         vk.LogicOpCopy,
		AttachmentCount: uint32(len(blendAttachments)),
		PAttachments:    blendAttachments,
	}

	// Dynamic state
	dynamicStateCreateInfo := vk.PipelineDynamicStateCreateInfo{
		SType:             vk.StructureTypePipelineDynamicStateCreateInfo,
		DynamicStateCount: uint32(len(pb.dynamicStates)),
		PDynamicStates:    pb.dynamicStates,
	}

	renderingInfo := vk.PipelineRenderingCreateInfo{
		SType:                   vk.StructureTypePipelineRenderingCreateInfo,
		ColorAttachmentCount:    uint32(len(pb.colorFormats)),
		PColorAttachmentFormats: pb.colorFormats,
		DepthAttachmentFormat:   pb.depthFormat,
		StencilAttachmentFormat: vk.FormatUndefined,
	}
	if HasStencilComponent(pb.depthFormat) {
		renderingInfo.StencilAttachmentFormat = pb.depthFormat
	}
	renderingRef, _ := renderingInfo.PassRef()
	defer renderingInfo.Free()

	pipelineCreateInfo := vk.GraphicsPipelineCreateInfo{
		SType:               vk.StructureTypeGraphicsPipelineCreateInfo,
		PNext:               unsafe.Pointer(renderingRef),
		StageCount:          uint32(len(stages)),
		PStages:             stages,
		PVertexInputState:   &vertexInputInfo,
		PInputAssemblyState: &inputAssembly,
		PViewportState:      &viewportState,
		PRasterizationState: &rasterizerCreateInfo,
		PMultisampleState:   &multisamplingCreateInfo,
		PDepthStencilState:  &depthStencil,
		PColorBlendState:    &colorBlendStateCreateInfo,
		PDynamicState:       &dynamicStateCreateInfo,
		Layout:              pipeline.PipelineLayout,
		BasePipelineHandle:  vk.NullPipeline,
		BasePipelineIndex:   -1,
	}

	handle, err := pb.device.CreateGraphicsPipeline(&pipelineCreateInfo)
	if err != nil {
		pipeline.Destroy()
		err = fmt.Errorf("%s: %w", pipeline.Name, err)
		core.LogError(err.Error())
		return err
	}
	pipeline.Handle = handle

	core.LogDebug("Graphics pipeline %s created!", pipeline.Name)
	return nil
}

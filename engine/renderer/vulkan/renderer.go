package vulkan

import (
	"fmt"
	"path/filepath"

	vk "github.com/goki/vulkan"

	"github.com/Kobazaaa/Ashen/engine/core"
	"github.com/Kobazaaa/Ashen/engine/renderer/metadata"
)

// HDRFormat is the color format of the offscreen target ground and sky render into when
// HDR is enabled.
const HDRFormat = vk.FormatR16g16b16a16Sfloat

// scatterPass identifies one pair of scattering pipelines.
type scatterPass int

const (
	passSky scatterPass = iota
	passGround
	passSpace
	passCount
)

var passNames = [passCount]string{"Sky", "Ground", "Space"}

// Each pass has one pipeline for a camera outside the atmosphere and one for a camera inside it.
const (
	fromSpace = iota
	fromAtmosphere
	variantCount
)

var variantNames = [variantCount]string{"FromSpace", "FromAtmosphere"}

func shaderName(pass scatterPass, variant int) string {
	return passNames[pass] + variantNames[variant]
}

const postProcessShader = "PostProcess"

// frameSlot is what one in-flight frame owns.
type frameSlot struct {
	imageAvailable vk.Semaphore
	renderFinished vk.Semaphore
	inFlight       *VulkanFence
}

// ResizeListener is called after the swapchain was rebuilt with its new extent.
type ResizeListener func(width, height uint32)

// Renderer records and submits the atmosphere frame. Per-image resources (command buffers,
// depth and HDR targets, uniform buffers, descriptor sets) have one entry per swapchain image
// and are used by the frame slot of the same index.
type Renderer struct {
	context *GraphicsContext
	window  Window
	config  core.RendererConfig

	framesInFlight uint32
	currentFrame   uint32
	slots          []frameSlot
	commandBuffers []*VulkanCommandBuffer

	depthFormat vk.Format
	depthImages []VulkanImage
	hdrImages   []VulkanImage
	hdrEnabled  bool

	skyVS    *UniformBufferGroup[metadata.SkyVS]
	skyFS    *UniformBufferGroup[metadata.SkyFS]
	groundVS *UniformBufferGroup[metadata.GroundVS]
	groundFS *UniformBufferGroup[metadata.GroundFS]
	spaceVS  *UniformBufferGroup[metadata.SpaceVS]
	spaceFS  *UniformBufferGroup[metadata.SpaceFS]
	exposure *UniformBufferGroup[metadata.Exposure]

	descriptorPool vk.DescriptorPool
	sampler        vk.Sampler
	passSets       [passCount][]VulkanDescriptorSet
	postSets       []VulkanDescriptorSet

	pipelines    [passCount][variantCount]VulkanPipeline
	postPipeline VulkanPipeline

	groundMesh *Mesh
	skyMesh    *Mesh

	resizePending   bool
	resizeListeners []ResizeListener
}

// NewRenderer sets up every resource the frame needs on top of context. skyRadius is the
// radius of the sky dome, normally the outer radius of the atmosphere.
func NewRenderer(context *GraphicsContext, window Window, config core.RendererConfig, skyRadius float32) (*Renderer, error) {
	if config.FramesInFlight == 0 {
		return nil, fmt.Errorf("frames in flight must be at least 1")
	}
	r := &Renderer{
		context:    context,
		window:     window,
		config:     config,
		hdrEnabled: config.HDR,
	}

	depthFormat, err := FindSupportedFormat(context.Device,
		[]vk.Format{vk.FormatD32Sfloat, vk.FormatD32SfloatS8Uint, vk.FormatD24UnormS8Uint},
		vk.ImageTilingOptimal,
		vk.FormatFeatureFlags(vk.FormatFeatureDepthStencilAttachmentBit))
	if err != nil {
		core.LogError("no depth format available: %s", err)
		return nil, err
	}
	r.depthFormat = depthFormat

	r.groundMesh, err = NewMesh(context, metadata.GroundPlaneGeometry())
	if err != nil {
		return nil, err
	}
	r.skyMesh, err = NewMesh(context, metadata.SkyDomeGeometry(skyRadius, metadata.SkyDomeLatitudeSegments, metadata.SkyDomeLongitudeSegments))
	if err != nil {
		r.groundMesh.Destroy()
		return nil, err
	}

	if err := r.createSampler(); err != nil {
		r.Destroy()
		return nil, err
	}
	if err := r.createImageResources(); err != nil {
		r.Destroy()
		return nil, err
	}
	if err := r.createPipelines(); err != nil {
		r.Destroy()
		return nil, err
	}
	if err := r.createSyncObjects(); err != nil {
		r.Destroy()
		return nil, err
	}

	core.LogInfo("Vulkan renderer initialized: %d images, %d frames in flight, HDR %t.",
		context.ImageCount(), r.framesInFlight, r.hdrEnabled)
	return r, nil
}

// AddResizeListener registers fn to be told about every new swapchain extent.
func (r *Renderer) AddResizeListener(fn ResizeListener) {
	r.resizeListeners = append(r.resizeListeners, fn)
}

func (r *Renderer) FramesInFlight() uint32 { return r.framesInFlight }
func (r *Renderer) CurrentFrame() uint32   { return r.currentFrame }
func (r *Renderer) HDREnabled() bool       { return r.hdrEnabled }

// PipelineCount is the number of live graphics pipelines.
func (r *Renderer) PipelineCount() int {
	count := 0
	for pass := range r.pipelines {
		for variant := range r.pipelines[pass] {
			if r.pipelines[pass][variant].Handle != vk.NullPipeline {
				count++
			}
		}
	}
	if r.postPipeline.Handle != vk.NullPipeline {
		count++
	}
	return count
}

// perImageLengths reports the length of every per-image vector, keyed by resource kind.
func (r *Renderer) perImageLengths() map[string]int {
	lengths := map[string]int{
		"command_buffers": len(r.commandBuffers),
		"depth_images":    len(r.depthImages),
		"hdr_images":      len(r.hdrImages),
		"post_sets":       len(r.postSets),
	}
	for pass, sets := range r.passSets {
		lengths[passNames[pass]+"_sets"] = len(sets)
		vertex, fragment := r.passUniforms(scatterPass(pass))
		lengths[passNames[pass]+"_vs"] = vertex.Len()
		lengths[passNames[pass]+"_fs"] = fragment.Len()
	}
	lengths["exposure"] = r.exposure.Len()
	return lengths
}

func (r *Renderer) passUniforms(pass scatterPass) (vertex, fragment uniformGroup) {
	switch pass {
	case passSky:
		return r.skyVS, r.skyFS
	case passGround:
		return r.groundVS, r.groundFS
	default:
		return r.spaceVS, r.spaceFS
	}
}

// colorFormat is the attachment format the scattering pipelines render into.
func (r *Renderer) colorFormat() vk.Format {
	if r.hdrEnabled {
		return HDRFormat
	}
	return r.context.SwapchainFormat()
}

func (r *Renderer) createSampler() error {
	sampler, err := r.context.Device.CreateSampler(&vk.SamplerCreateInfo{
		SType:        vk.StructureTypeSamplerCreateInfo,
		MagFilter:    vk.FilterLinear,
		MinFilter:    vk.FilterLinear,
		MipmapMode:   vk.SamplerMipmapModeLinear,
		AddressModeU: vk.SamplerAddressModeClampToEdge,
		AddressModeV: vk.SamplerAddressModeClampToEdge,
		AddressModeW: vk.SamplerAddressModeClampToEdge,
		MaxLod:       1.0,
		BorderColor:  vk.BorderColorFloatOpaqueBlack,
	})
	if err != nil {
		core.LogError("failed to create HDR sampler: %s", err)
		return err
	}
	r.sampler = sampler
	return nil
}

// createImageResources builds everything sized by the swapchain image count.
func (r *Renderer) createImageResources() error {
	imageCount := r.context.ImageCount()
	r.framesInFlight = r.config.FramesInFlight
	if r.framesInFlight > imageCount {
		core.LogWarn("%d frames in flight requested but the swapchain has %d images, clamping.", r.framesInFlight, imageCount)
		r.framesInFlight = imageCount
	}

	var err error
	if r.commandBuffers, err = AllocateCommandBuffers(r.context.Device, r.context.CommandPool(), imageCount); err != nil {
		return err
	}
	if err := r.createAttachments(); err != nil {
		return err
	}
	if err := r.createUniforms(imageCount); err != nil {
		return err
	}
	return r.createDescriptors(imageCount)
}

func (r *Renderer) destroyImageResources() {
	if r.commandBuffers != nil {
		FreeCommandBuffers(r.context.Device, r.context.CommandPool(), r.commandBuffers)
		r.commandBuffers = nil
	}
	r.destroyAttachments()
	r.destroyDescriptors()
	r.destroyUniforms()
}

// createAttachments builds one depth image and one HDR target per swapchain image at the
// current extent.
func (r *Renderer) createAttachments() error {
	extent := r.context.GetSwapchainExtent()
	imageCount := r.context.ImageCount()

	depthBuilder := NewImageBuilder(r.context).
		SetWidth(extent.Width).
		SetHeight(extent.Height).
		SetFormat(r.depthFormat).
		SetUsageFlags(vk.ImageUsageFlags(vk.ImageUsageDepthStencilAttachmentBit)).
		SetAspectFlags(aspectForFormat(r.depthFormat))
	r.depthImages = make([]VulkanImage, imageCount)
	for i := range r.depthImages {
		if err := depthBuilder.Build(&r.depthImages[i]); err != nil {
			core.LogError("failed to create depth image %d: %s", i, err)
			return err
		}
	}

	hdrBuilder := NewImageBuilder(r.context).
		SetWidth(extent.Width).
		SetHeight(extent.Height).
		SetFormat(HDRFormat).
		SetUsageFlags(vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit | vk.ImageUsageSampledBit))
	r.hdrImages = make([]VulkanImage, imageCount)
	for i := range r.hdrImages {
		if err := hdrBuilder.Build(&r.hdrImages[i]); err != nil {
			core.LogError("failed to create HDR target %d: %s", i, err)
			return err
		}
	}
	core.LogDebug("Depth and HDR attachments created at %dx%d.", extent.Width, extent.Height)
	return nil
}

func (r *Renderer) destroyAttachments() {
	for i := range r.depthImages {
		r.depthImages[i].Destroy()
	}
	for i := range r.hdrImages {
		r.hdrImages[i].Destroy()
	}
	r.depthImages = nil
	r.hdrImages = nil
}

func (r *Renderer) createUniforms(imageCount uint32) error {
	var err error
	if r.skyVS, err = NewUniformBufferGroup[metadata.SkyVS](r.context, imageCount); err != nil {
		return err
	}
	if r.skyFS, err = NewUniformBufferGroup[metadata.SkyFS](r.context, imageCount); err != nil {
		return err
	}
	if r.groundVS, err = NewUniformBufferGroup[metadata.GroundVS](r.context, imageCount); err != nil {
		return err
	}
	if r.groundFS, err = NewUniformBufferGroup[metadata.GroundFS](r.context, imageCount); err != nil {
		return err
	}
	if r.spaceVS, err = NewUniformBufferGroup[metadata.SpaceVS](r.context, imageCount); err != nil {
		return err
	}
	if r.spaceFS, err = NewUniformBufferGroup[metadata.SpaceFS](r.context, imageCount); err != nil {
		return err
	}
	if r.exposure, err = NewUniformBufferGroup[metadata.Exposure](r.context, imageCount); err != nil {
		return err
	}
	return nil
}

func (r *Renderer) destroyUniforms() {
	for _, group := range []uniformGroup{r.skyVS, r.skyFS, r.groundVS, r.groundFS, r.spaceVS, r.spaceFS, r.exposure} {
		group.Destroy()
	}
}

// createDescriptors builds the pool and one set per image for every scattering pass and for
// the post process pass, then writes all of them.
func (r *Renderer) createDescriptors(imageCount uint32) error {
	pool, err := NewDescriptorPoolBuilder(r.context.Device).
		AddPoolSize(vk.DescriptorTypeUniformBuffer, imageCount*uint32(passCount)*2+imageCount).
		AddPoolSize(vk.DescriptorTypeCombinedImageSampler, imageCount).
		SetMaxSets(imageCount * (uint32(passCount) + 1)).
		Build()
	if err != nil {
		return err
	}
	r.descriptorPool = pool

	allocator := NewDescriptorSetAllocator(r.context)
	for pass := range r.passSets {
		r.passSets[pass] = make([]VulkanDescriptorSet, imageCount)
		for i := range r.passSets[pass] {
			err := allocator.
				NewLayoutBinding().
				SetType(vk.DescriptorTypeUniformBuffer).
				SetShaderStages(vk.ShaderStageFlags(vk.ShaderStageVertexBit)).
				EndLayoutBinding().
				NewLayoutBinding().
				SetType(vk.DescriptorTypeUniformBuffer).
				SetShaderStages(vk.ShaderStageFlags(vk.ShaderStageFragmentBit)).
				EndLayoutBinding().
				Allocate(pool, &r.passSets[pass][i])
			if err != nil {
				return fmt.Errorf("allocate %s set %d: %w", passNames[pass], i, err)
			}
		}
	}
	r.postSets = make([]VulkanDescriptorSet, imageCount)
	for i := range r.postSets {
		err := allocator.
			NewLayoutBinding().
			SetType(vk.DescriptorTypeUniformBuffer).
			SetShaderStages(vk.ShaderStageFlags(vk.ShaderStageFragmentBit)).
			EndLayoutBinding().
			NewLayoutBinding().
			SetType(vk.DescriptorTypeCombinedImageSampler).
			SetShaderStages(vk.ShaderStageFlags(vk.ShaderStageFragmentBit)).
			EndLayoutBinding().
			Allocate(pool, &r.postSets[i])
		if err != nil {
			return fmt.Errorf("allocate post process set %d: %w", i, err)
		}
	}

	writer := NewDescriptorSetWriter(r.context.Device)
	for pass := range r.passSets {
		vertex, fragment := r.passUniforms(scatterPass(pass))
		for i := range r.passSets[pass] {
			writer.
				AddBufferInfo(vertex.Buffer(i), 0, vertex.Size()).
				WriteBuffers(&r.passSets[pass][i], 0, WholeBinding).
				AddBufferInfo(fragment.Buffer(i), 0, fragment.Size()).
				WriteBuffers(&r.passSets[pass][i], 1, WholeBinding)
		}
	}
	for i := range r.postSets {
		writer.
			AddBufferInfo(r.exposure.Buffer(i), 0, r.exposure.Size()).
			WriteBuffers(&r.postSets[i], 0, WholeBinding)
	}
	if err := writer.Execute(); err != nil {
		return err
	}
	return r.writePostImageBindings()
}

// writePostImageBindings points every post process set at the HDR target of its image.
func (r *Renderer) writePostImageBindings() error {
	writer := NewDescriptorSetWriter(r.context.Device)
	for i := range r.postSets {
		writer.
			AddImageInfo(r.hdrImages[i].View, r.sampler, vk.ImageLayoutShaderReadOnlyOptimal).
			WriteImages(&r.postSets[i], 1, WholeBinding)
	}
	return writer.Execute()
}

func (r *Renderer) destroyDescriptors() {
	for pass := range r.passSets {
		for i := range r.passSets[pass] {
			r.passSets[pass][i].Destroy()
		}
		r.passSets[pass] = nil
	}
	for i := range r.postSets {
		r.postSets[i].Destroy()
	}
	r.postSets = nil
	if r.descriptorPool != nil {
		r.context.Device.DestroyDescriptorPool(r.descriptorPool)
		r.descriptorPool = nil
	}
}

// newScatterBuilder returns a builder carrying the state every scattering pipeline shares.
func (r *Renderer) newScatterBuilder() *PipelineBuilder {
	return NewPipelineBuilder(r.context.Device).
		SetVertexBindings(VertexBindingDescriptions()).
		SetVertexAttributes(VertexAttributeDescriptions()).
		SetCullMode(vk.CullModeFlags(vk.CullModeNone)).
		SetFrontFace(vk.FrontFaceClockwise).
		SetDepthTest(true, true, vk.CompareOpLess).
		AddDynamicState(vk.DynamicStateViewport).
		AddDynamicState(vk.DynamicStateScissor).
		SetupDynamicRendering([]vk.Format{r.colorFormat()}, r.depthFormat)
}

func (r *Renderer) buildScatterPipeline(builder *PipelineBuilder, pass scatterPass, variant int, target *VulkanPipeline) error {
	name := shaderName(pass, variant)
	err := builder.
		AddPushConstantRange().
		SetSize(uint32(cameraPushSize)).
		SetStageFlags(vk.ShaderStageFlags(vk.ShaderStageVertexBit)).
		EndRange().
		AddDescriptorSet(&r.passSets[pass][0]).
		SetVertexShader(ShaderPath(r.config.ShaderDir, name, "vert")).
		SetFragmentShader(ShaderPath(r.config.ShaderDir, name, "frag")).
		Build(target)
	if err != nil {
		return fmt.Errorf("build %s pipeline: %w", name, err)
	}
	core.LogDebug("Pipeline %s built as %s.", name, target.Name)
	return nil
}

func (r *Renderer) buildPostPipeline() error {
	err := NewPipelineBuilder(r.context.Device).
		SetCullMode(vk.CullModeFlags(vk.CullModeNone)).
		SetDepthTest(false, false, vk.CompareOpAlways).
		AddDynamicState(vk.DynamicStateViewport).
		AddDynamicState(vk.DynamicStateScissor).
		SetupDynamicRendering([]vk.Format{r.context.SwapchainFormat()}, vk.FormatUndefined).
		AddDescriptorSet(&r.postSets[0]).
		SetVertexShader(ShaderPath(r.config.ShaderDir, postProcessShader, "vert")).
		SetFragmentShader(ShaderPath(r.config.ShaderDir, postProcessShader, "frag")).
		Build(&r.postPipeline)
	if err != nil {
		return fmt.Errorf("build %s pipeline: %w", postProcessShader, err)
	}
	return nil
}

func (r *Renderer) createPipelines() error {
	builder := r.newScatterBuilder()
	for pass := scatterPass(0); pass < passCount; pass++ {
		for variant := 0; variant < variantCount; variant++ {
			if err := r.buildScatterPipeline(builder, pass, variant, &r.pipelines[pass][variant]); err != nil {
				return err
			}
		}
	}
	if err := r.buildPostPipeline(); err != nil {
		return err
	}
	core.LogInfo("Vulkan pipelines created from %s.", filepath.Clean(r.config.ShaderDir))
	return nil
}

func (r *Renderer) destroyPipelines() {
	for pass := range r.pipelines {
		for variant := range r.pipelines[pass] {
			r.pipelines[pass][variant].Destroy()
		}
	}
	r.postPipeline.Destroy()
}

// RebuildPipelines recreates every pipeline from the shader files on disk.
func (r *Renderer) RebuildPipelines() error {
	if err := r.context.Device.WaitIdle(); err != nil {
		return err
	}
	r.destroyPipelines()
	if err := r.createPipelines(); err != nil {
		core.LogError("pipeline rebuild failed: %s", err)
		return err
	}
	core.LogInfo("Pipelines rebuilt.")
	return nil
}

func (r *Renderer) createSyncObjects() error {
	r.slots = make([]frameSlot, r.framesInFlight)
	for i := range r.slots {
		slot := &r.slots[i]
		var err error
		if slot.imageAvailable, err = r.context.Device.CreateSemaphore(); err != nil {
			core.LogError("failed to create image available semaphore: %s", err)
			return err
		}
		if slot.renderFinished, err = r.context.Device.CreateSemaphore(); err != nil {
			core.LogError("failed to create render finished semaphore: %s", err)
			return err
		}
		// Created signaled so the first wait on each slot returns immediately.
		if slot.inFlight, err = NewFence(r.context.Device, true); err != nil {
			return err
		}
	}
	r.currentFrame = 0
	return nil
}

func (r *Renderer) destroySyncObjects() {
	for i := range r.slots {
		slot := &r.slots[i]
		if slot.imageAvailable != vk.NullSemaphore {
			r.context.Device.DestroySemaphore(slot.imageAvailable)
		}
		if slot.renderFinished != vk.NullSemaphore {
			r.context.Device.DestroySemaphore(slot.renderFinished)
		}
		if slot.inFlight != nil {
			slot.inFlight.Destroy()
		}
	}
	r.slots = nil
}

// Destroy waits for the device and releases everything the renderer created.
func (r *Renderer) Destroy() {
	if err := r.context.Device.WaitIdle(); err != nil {
		core.LogWarn("device wait idle before renderer shutdown: %s", err)
	}
	r.destroySyncObjects()
	r.destroyPipelines()
	r.destroyImageResources()
	if r.sampler != vk.NullSampler {
		r.context.Device.DestroySampler(r.sampler)
		r.sampler = vk.NullSampler
	}
	if r.skyMesh != nil {
		r.skyMesh.Destroy()
		r.skyMesh = nil
	}
	if r.groundMesh != nil {
		r.groundMesh.Destroy()
		r.groundMesh = nil
	}
	core.LogInfo("Vulkan renderer destroyed.")
}

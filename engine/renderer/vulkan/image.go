package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/google/uuid"

	"github.com/Kobazaaa/Ashen/engine/core"
)

// VulkanImage is an image with its memory and a single view. Layout tracks the layout
// the image is in after the last recorded transition.
type VulkanImage struct {
	Handle vk.Image
	Memory vk.DeviceMemory
	View   vk.ImageView
	Width  uint32
	Height uint32
	Format vk.Format
	Aspect vk.ImageAspectFlags
	Layout vk.ImageLayout
	Name   string

	device Device
}

func HasDepthComponent(format vk.Format) bool {
	switch format {
	case vk.FormatD16Unorm, vk.FormatX8D24UnormPack32, vk.FormatD32Sfloat,
		vk.FormatD16UnormS8Uint, vk.FormatD24UnormS8Uint, vk.FormatD32SfloatS8Uint:
		return true
	}
	return false
}

func HasStencilComponent(format vk.Format) bool {
	switch format {
	case vk.FormatS8Uint, vk.FormatD16UnormS8Uint, vk.FormatD24UnormS8Uint, vk.FormatD32SfloatS8Uint:
		return true
	}
	return false
}

// aspectForFormat derives the aspect mask of a whole-image barrier from the format.
func aspectForFormat(format vk.Format) vk.ImageAspectFlags {
	if !HasDepthComponent(format) && !HasStencilComponent(format) {
		return vk.ImageAspectFlags(vk.ImageAspectColorBit)
	}
	var aspect vk.ImageAspectFlags
	if HasDepthComponent(format) {
		aspect |= vk.ImageAspectFlags(vk.ImageAspectDepthBit)
	}
	if HasStencilComponent(format) {
		aspect |= vk.ImageAspectFlags(vk.ImageAspectStencilBit)
	}
	return aspect
}

// FindSupportedFormat returns the first candidate whose features for tiling include every bit in features.
func FindSupportedFormat(device Device, candidates []vk.Format, tiling vk.ImageTiling, features vk.FormatFeatureFlags) (vk.Format, error) {
	for _, candidate := range candidates {
		props := device.FormatProperties(candidate)
		switch {
		case tiling == vk.ImageTilingLinear && props.LinearTilingFeatures&features == features:
			return candidate, nil
		case tiling == vk.ImageTilingOptimal && props.OptimalTilingFeatures&features == features:
			return candidate, nil
		}
	}
	return vk.FormatUndefined, core.ErrNoSupportedFormat
}

type layoutAccess struct {
	access vk.AccessFlags
	stage  vk.PipelineStageFlags
}

// accessForLayout maps a layout to the access mask and stage that use an image in it.
func accessForLayout(layout vk.ImageLayout) layoutAccess {
	switch layout {
	case vk.ImageLayoutTransferDstOptimal:
		return layoutAccess{vk.AccessFlags(vk.AccessTransferWriteBit), vk.PipelineStageFlags(vk.PipelineStageTransferBit)}
	case vk.ImageLayoutTransferSrcOptimal:
		return layoutAccess{vk.AccessFlags(vk.AccessTransferReadBit), vk.PipelineStageFlags(vk.PipelineStageTransferBit)}
	case vk.ImageLayoutShaderReadOnlyOptimal:
		return layoutAccess{vk.AccessFlags(vk.AccessShaderReadBit), vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit)}
	case vk.ImageLayoutColorAttachmentOptimal:
		return layoutAccess{
			vk.AccessFlags(vk.AccessColorAttachmentReadBit | vk.AccessColorAttachmentWriteBit),
			vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		}
	case vk.ImageLayoutDepthStencilAttachmentOptimal:
		return layoutAccess{
			vk.AccessFlags(vk.AccessDepthStencilAttachmentReadBit | vk.AccessDepthStencilAttachmentWriteBit),
			vk.PipelineStageFlags(vk.PipelineStageEarlyFragmentTestsBit | vk.PipelineStageLateFragmentTestsBit),
		}
	case vk.ImageLayoutPresentSrc:
		return layoutAccess{0, vk.PipelineStageFlags(vk.PipelineStageBottomOfPipeBit)}
	default:
		return layoutAccess{0, vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit)}
	}
}

// imageBarrier builds a whole-image transition of one mip level and layer.
func imageBarrier(image vk.Image, aspect vk.ImageAspectFlags, oldLayout, newLayout vk.ImageLayout, srcAccess, dstAccess vk.AccessFlags) vk.ImageMemoryBarrier {
	return vk.ImageMemoryBarrier{
		SType:               vk.StructureTypeImageMemoryBarrier,
		SrcAccessMask:       srcAccess,
		DstAccessMask:       dstAccess,
		OldLayout:           oldLayout,
		NewLayout:           newLayout,
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Image:               image,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask: aspect,
			LevelCount: 1,
			LayerCount: 1,
		},
	}
}

// TransitionLayout records a barrier moving the image from its tracked layout to newLayout.
func (img *VulkanImage) TransitionLayout(cmd vk.CommandBuffer, newLayout vk.ImageLayout) {
	src := accessForLayout(img.Layout)
	dst := accessForLayout(newLayout)
	barrier := imageBarrier(img.Handle, aspectForFormat(img.Format), img.Layout, newLayout, src.access, dst.access)
	img.device.CmdPipelineBarrier(cmd, src.stage, dst.stage, []vk.ImageMemoryBarrier{barrier})
	img.Layout = newLayout
}

func (img *VulkanImage) Destroy() {
	if img.device == nil {
		return
	}
	if img.View != vk.NullImageView {
		img.device.DestroyImageView(img.View)
		img.View = vk.NullImageView
	}
	if img.Handle != nil {
		img.device.DestroyImage(img.Handle)
		img.Handle = nil
	}
	if img.Memory != vk.NullDeviceMemory {
		img.device.FreeMemory(img.Memory)
		img.Memory = vk.NullDeviceMemory
	}
}

// ImageBuilder collects 2D image parameters. Settings persist across Build calls; the
// initial data is cleared after each one.
type ImageBuilder struct {
	context *GraphicsContext

	width       uint32
	height      uint32
	format      vk.Format
	tiling      vk.ImageTiling
	usage       vk.ImageUsageFlags
	aspect      vk.ImageAspectFlags
	viewType    vk.ImageViewType
	memoryFlags vk.MemoryPropertyFlags
	initialData []byte
	finalLayout vk.ImageLayout
}

func NewImageBuilder(context *GraphicsContext) *ImageBuilder {
	return &ImageBuilder{
		context:     context,
		format:      vk.FormatR8g8b8a8Unorm,
		tiling:      vk.ImageTilingOptimal,
		aspect:      vk.ImageAspectFlags(vk.ImageAspectColorBit),
		viewType:    vk.ImageViewType2d,
		memoryFlags: deviceLocalFlags,
	}
}

func (ib *ImageBuilder) SetWidth(width uint32) *ImageBuilder {
	ib.width = width
	return ib
}

func (ib *ImageBuilder) SetHeight(height uint32) *ImageBuilder {
	ib.height = height
	return ib
}

func (ib *ImageBuilder) SetFormat(format vk.Format) *ImageBuilder {
	ib.format = format
	return ib
}

func (ib *ImageBuilder) SetTiling(tiling vk.ImageTiling) *ImageBuilder {
	ib.tiling = tiling
	return ib
}

func (ib *ImageBuilder) SetUsageFlags(usage vk.ImageUsageFlags) *ImageBuilder {
	ib.usage = usage
	return ib
}

func (ib *ImageBuilder) SetAspectFlags(aspect vk.ImageAspectFlags) *ImageBuilder {
	ib.aspect = aspect
	return ib
}

func (ib *ImageBuilder) SetViewType(viewType vk.ImageViewType) *ImageBuilder {
	ib.viewType = viewType
	return ib
}

func (ib *ImageBuilder) SetMemoryProperties(flags vk.MemoryPropertyFlags) *ImageBuilder {
	ib.memoryFlags = flags
	return ib
}

// InitialData uploads data after creation and leaves the image in finalLayout.
func (ib *ImageBuilder) InitialData(data []byte, finalLayout vk.ImageLayout) *ImageBuilder {
	ib.initialData = data
	ib.finalLayout = finalLayout
	return ib
}

func (ib *ImageBuilder) Build(image *VulkanImage) error {
	defer func() {
		ib.initialData = nil
		ib.finalLayout = vk.ImageLayoutUndefined
	}()

	if ib.width == 0 || ib.height == 0 {
		return fmt.Errorf("image %dx%d: %w", ib.width, ib.height, core.ErrZeroExtent)
	}
	device := ib.context.Device

	usage := ib.usage
	if len(ib.initialData) > 0 {
		usage |= vk.ImageUsageFlags(vk.ImageUsageTransferDstBit)
	}

	*image = VulkanImage{
		Width:  ib.width,
		Height: ib.height,
		Format: ib.format,
		Aspect: ib.aspect,
		Layout: vk.ImageLayoutUndefined,
		Name:   "image-" + uuid.NewString(),
		device: device,
	}

	handle, err := device.CreateImage(&vk.ImageCreateInfo{
		SType:     vk.StructureTypeImageCreateInfo,
		ImageType: vk.ImageType2d,
		Format:    ib.format,
		Extent: vk.Extent3D{
			Width:  ib.width,
			Height: ib.height,
			Depth:  1,
		},
		MipLevels:     1,
		ArrayLayers:   1,
		Samples:       vk.SampleCount1Bit,
		Tiling:        ib.tiling,
		Usage:         usage,
		SharingMode:   vk.SharingModeExclusive,
		InitialLayout: vk.ImageLayoutUndefined,
	})
	if err != nil {
		core.LogError("failed to create %s: %s", image.Name, err)
		return err
	}
	image.Handle = handle

	memory, err := allocateFor(device, device.ImageMemoryRequirements(handle), ib.memoryFlags)
	if err != nil {
		core.LogError("failed to allocate memory for %s: %s", image.Name, err)
		image.Destroy()
		return err
	}
	image.Memory = memory
	if err := device.BindImageMemory(handle, memory); err != nil {
		image.Destroy()
		return err
	}

	if err := image.createView(ib.viewType); err != nil {
		core.LogError("failed to create view for %s: %s", image.Name, err)
		image.Destroy()
		return err
	}

	if len(ib.initialData) > 0 {
		if err := ib.upload(image); err != nil {
			core.LogError("failed to upload %s: %s", image.Name, err)
			image.Destroy()
			return err
		}
	}
	core.LogDebug("Built %s (%dx%d, format %d).", image.Name, image.Width, image.Height, image.Format)
	return nil
}

func (img *VulkanImage) createView(viewType vk.ImageViewType) error {
	view, err := img.device.CreateImageView(&vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    img.Handle,
		ViewType: viewType,
		Format:   img.Format,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask: img.Aspect,
			LevelCount: 1,
			LayerCount: 1,
		},
	})
	if err != nil {
		return err
	}
	img.View = view
	return nil
}

func (ib *ImageBuilder) upload(image *VulkanImage) error {
	device := ib.context.Device
	staging, err := newStagingBuffer(device, ib.initialData)
	if err != nil {
		return err
	}
	defer staging.Destroy()

	cb, err := BeginSingleUse(device, ib.context.CommandPool())
	if err != nil {
		return err
	}
	image.TransitionLayout(cb.Handle, vk.ImageLayoutTransferDstOptimal)
	device.CmdCopyBufferToImage(cb.Handle, staging.Handle, image.Handle, vk.ImageLayoutTransferDstOptimal, []vk.BufferImageCopy{{
		ImageSubresource: vk.ImageSubresourceLayers{
			AspectMask: image.Aspect,
			LayerCount: 1,
		},
		ImageExtent: vk.Extent3D{
			Width:  image.Width,
			Height: image.Height,
			Depth:  1,
		},
	}})
	if ib.finalLayout != vk.ImageLayoutUndefined {
		image.TransitionLayout(cb.Handle, ib.finalLayout)
	}
	return cb.EndSingleUse(device, ib.context.CommandPool(), ib.context.GraphicsQueue())
}

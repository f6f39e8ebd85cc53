package vulkan

import (
	"math"

	vk "github.com/goki/vulkan"

	"github.com/Kobazaaa/Ashen/engine/core"
)

type VulkanSwapchain struct {
	Handle      vk.Swapchain
	ImageFormat vk.SurfaceFormat
	PresentMode vk.PresentMode
	Extent      vk.Extent2D
	Images      []vk.Image
	Views       []vk.ImageView
}

func (vs *VulkanSwapchain) ImageCount() uint32 {
	return uint32(len(vs.Images))
}

// chooseSurfaceFormat prefers B8G8R8A8_SRGB with the sRGB non-linear color space.
func chooseSurfaceFormat(formats []vk.SurfaceFormat) vk.SurfaceFormat {
	for _, format := range formats {
		if format.Format == vk.FormatB8g8r8a8Srgb && format.ColorSpace == vk.ColorSpaceSrgbNonlinear {
			return format
		}
	}
	return formats[0]
}

// choosePresentMode prefers MAILBOX and falls back to FIFO, which is always available.
func choosePresentMode(modes []vk.PresentMode) vk.PresentMode {
	for _, mode := range modes {
		if mode == vk.PresentModeMailbox {
			return mode
		}
	}
	return vk.PresentModeFifo
}

// chooseExtent uses the surface's current extent when it is fixed, otherwise the requested
// one, clamped to the surface limits.
func chooseExtent(caps vk.SurfaceCapabilities, requested vk.Extent2D) vk.Extent2D {
	if caps.CurrentExtent.Width != math.MaxUint32 {
		return caps.CurrentExtent
	}
	min := caps.MinImageExtent
	max := caps.MaxImageExtent
	return vk.Extent2D{
		Width:  MathClamp(requested.Width, min.Width, max.Width),
		Height: MathClamp(requested.Height, min.Height, max.Height),
	}
}

// chooseImageCount asks for one image more than the minimum, bounded by the maximum when there is one.
func chooseImageCount(caps vk.SurfaceCapabilities) uint32 {
	imageCount := caps.MinImageCount + 1
	if caps.MaxImageCount > 0 && imageCount > caps.MaxImageCount {
		imageCount = caps.MaxImageCount
	}
	return imageCount
}

func createSwapchain(device Device, requested vk.Extent2D) (*VulkanSwapchain, error) {
	caps, err := device.SurfaceCapabilities()
	if err != nil {
		return nil, err
	}
	formats, err := device.SurfaceFormats()
	if err != nil {
		return nil, err
	}
	if len(formats) == 0 {
		return nil, core.ErrNoSupportedFormat
	}
	modes, err := device.SurfacePresentModes()
	if err != nil {
		return nil, err
	}

	swapchain := &VulkanSwapchain{
		ImageFormat: chooseSurfaceFormat(formats),
		PresentMode: choosePresentMode(modes),
		Extent:      chooseExtent(caps, requested),
	}
	if swapchain.Extent.Width == 0 || swapchain.Extent.Height == 0 {
		return nil, core.ErrZeroExtent
	}

	swapchainCreateInfo := vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		MinImageCount:    chooseImageCount(caps),
		ImageFormat:      swapchain.ImageFormat.Format,
		ImageColorSpace:  swapchain.ImageFormat.ColorSpace,
		ImageExtent:      swapchain.Extent,
		ImageArrayLayers: 1,
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
		PreTransform:     caps.CurrentTransform,
		CompositeAlpha:   vk.CompositeAlphaOpaqueBit,
		PresentMode:      swapchain.PresentMode,
		Clipped:          vk.True,
	}

	// Setup the queue family indices
	if device.GraphicsFamily() != device.PresentFamily() {
		swapchainCreateInfo.ImageSharingMode = vk.SharingModeConcurrent
		swapchainCreateInfo.QueueFamilyIndexCount = 2
		swapchainCreateInfo.PQueueFamilyIndices = []uint32{device.GraphicsFamily(), device.PresentFamily()}
	} else {
		swapchainCreateInfo.ImageSharingMode = vk.SharingModeExclusive
	}

	handle, err := device.CreateSwapchain(&swapchainCreateInfo)
	if err != nil {
		core.LogError("failed to create swapchain: %s", err)
		return nil, err
	}
	swapchain.Handle = handle

	images, err := device.SwapchainImages(handle)
	if err != nil {
		swapchain.destroy(device)
		return nil, err
	}
	swapchain.Images = images

	// Views
	swapchain.Views = make([]vk.ImageView, 0, len(images))
	for _, image := range images {
		view, err := device.CreateImageView(&vk.ImageViewCreateInfo{
			SType:    vk.StructureTypeImageViewCreateInfo,
			Image:    image,
			ViewType: vk.ImageViewType2d,
			Format:   swapchain.ImageFormat.Format,
			SubresourceRange: vk.ImageSubresourceRange{
				AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
				BaseMipLevel:   0,
				LevelCount:     1,
				BaseArrayLayer: 0,
				LayerCount:     1,
			},
		})
		if err != nil {
			core.LogError("failed to create swapchain image view: %s", err)
			swapchain.destroy(device)
			return nil, err
		}
		swapchain.Views = append(swapchain.Views, view)
	}

	core.LogInfo("Swapchain created: %d images, %dx%d.", len(images), swapchain.Extent.Width, swapchain.Extent.Height)
	return swapchain, nil
}

// destroy releases the views and the swapchain. The images belong to the swapchain and go with it.
func (vs *VulkanSwapchain) destroy(device Device) {
	for _, view := range vs.Views {
		device.DestroyImageView(view)
	}
	vs.Views = nil
	vs.Images = nil
	if vs.Handle != vk.NullSwapchain {
		device.DestroySwapchain(vs.Handle)
		vs.Handle = vk.NullSwapchain
	}
}

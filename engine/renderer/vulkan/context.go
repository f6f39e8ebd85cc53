package vulkan

import (
	"fmt"
	"math"

	vk "github.com/goki/vulkan"

	"github.com/Kobazaaa/Ashen/engine/core"
)

// Window is what the renderer needs from the windowing layer.
type Window interface {
	FramebufferSize() (width, height int)
	// IsOutdated reports whether the window was resized since the last ResetOutdated.
	IsOutdated() bool
	ResetOutdated()
	PollEvents()
}

type PresentResult int

const (
	PresentOK PresentResult = iota
	PresentOutOfDate
	PresentError
)

func (r PresentResult) String() string {
	switch r {
	case PresentOK:
		return "OK"
	case PresentOutOfDate:
		return "OUT_OF_DATE"
	default:
		return "ERROR"
	}
}

// GraphicsContext owns the device, the swapchain, the command pool and the descriptor set
// layout cache. The swapchain is the only part that is rebuilt during its lifetime.
type GraphicsContext struct {
	Device Device

	swapchain   *VulkanSwapchain
	commandPool vk.CommandPool
	layoutCache *LayoutCache
}

func NewGraphicsContext(device Device, extent vk.Extent2D) (*GraphicsContext, error) {
	gc := &GraphicsContext{
		Device:      device,
		layoutCache: NewLayoutCache(device),
	}

	pool, err := device.CreateCommandPool(device.GraphicsFamily(), vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit))
	if err != nil {
		core.LogError("failed to create graphics command pool: %s", err)
		return nil, err
	}
	gc.commandPool = pool
	core.LogInfo("Graphics command pool created.")

	swapchain, err := createSwapchain(device, extent)
	if err != nil {
		device.DestroyCommandPool(pool)
		return nil, fmt.Errorf("initial swapchain: %w", err)
	}
	gc.swapchain = swapchain
	return gc, nil
}

// AcquireFrameImage asks for the next presentable image and signals signal once it is ready.
func (gc *GraphicsContext) AcquireFrameImage(signal vk.Semaphore) (uint32, vk.Result) {
	return gc.Device.AcquireNextImage(gc.swapchain.Handle, math.MaxUint64, signal)
}

// Present queues image index for presentation after waitSignal. A stale or suboptimal
// surface is reported as PresentOutOfDate with no error.
func (gc *GraphicsContext) Present(index uint32, waitSignal vk.Semaphore) (PresentResult, error) {
	presentInfo := vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{waitSignal},
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{gc.swapchain.Handle},
		PImageIndices:      []uint32{index},
	}
	result := gc.Device.QueuePresent(gc.Device.PresentQueue(), &presentInfo)
	switch {
	case result == vk.Success:
		return PresentOK, nil
	case IsSwapchainStale(result):
		return PresentOutOfDate, nil
	default:
		return PresentError, checkResult("vkQueuePresentKHR", result)
	}
}

// RebuildSwapchain destroys the swapchain and its views and creates them again at extent.
// Device, queues and command pool are untouched.
func (gc *GraphicsContext) RebuildSwapchain(extent vk.Extent2D) error {
	if extent.Width == 0 || extent.Height == 0 {
		return core.ErrZeroExtent
	}
	if gc.swapchain != nil {
		gc.swapchain.destroy(gc.Device)
	}
	swapchain, err := createSwapchain(gc.Device, extent)
	if err != nil {
		gc.swapchain = &VulkanSwapchain{}
		return fmt.Errorf("rebuild swapchain at %dx%d: %w", extent.Width, extent.Height, err)
	}
	gc.swapchain = swapchain
	return nil
}

func (gc *GraphicsContext) GetSwapchainExtent() vk.Extent2D { return gc.swapchain.Extent }
func (gc *GraphicsContext) SwapchainFormat() vk.Format      { return gc.swapchain.ImageFormat.Format }
func (gc *GraphicsContext) SwapchainImages() []vk.Image     { return gc.swapchain.Images }
func (gc *GraphicsContext) SwapchainViews() []vk.ImageView  { return gc.swapchain.Views }
func (gc *GraphicsContext) ImageCount() uint32              { return gc.swapchain.ImageCount() }
func (gc *GraphicsContext) CommandPool() vk.CommandPool     { return gc.commandPool }
func (gc *GraphicsContext) GraphicsQueue() vk.Queue         { return gc.Device.GraphicsQueue() }
func (gc *GraphicsContext) PresentQueue() vk.Queue          { return gc.Device.PresentQueue() }
func (gc *GraphicsContext) LayoutCache() *LayoutCache       { return gc.layoutCache }

func (gc *GraphicsContext) Destroy() {
	if gc.swapchain != nil {
		gc.swapchain.destroy(gc.Device)
		gc.swapchain = nil
	}
	gc.layoutCache.Destroy()
	if gc.commandPool != nil {
		core.LogInfo("Destroying command pools...")
		gc.Device.DestroyCommandPool(gc.commandPool)
		gc.commandPool = nil
	}
}

package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/Kobazaaa/Ashen/engine/core"
)

// OnResize rebuilds the swapchain and everything that depends on it. While the window has a
// zero sized framebuffer (minimized) it keeps pumping window events and waits.
func (r *Renderer) OnResize() error {
	if err := r.context.Device.WaitIdle(); err != nil {
		core.LogError("device wait idle before resize: %s", err)
		return err
	}

	width, height := r.window.FramebufferSize()
	for width == 0 || height == 0 {
		r.window.PollEvents()
		width, height = r.window.FramebufferSize()
	}

	oldCount := r.context.ImageCount()
	oldFormat := r.context.SwapchainFormat()
	if err := r.context.RebuildSwapchain(vk.Extent2D{Width: uint32(width), Height: uint32(height)}); err != nil {
		core.LogError(err.Error())
		return err
	}
	extent := r.context.GetSwapchainExtent()
	// The rebuild already covers any resize the window reported so far.
	r.window.ResetOutdated()

	if r.context.ImageCount() != oldCount {
		core.LogInfo("Swapchain image count changed from %d to %d.", oldCount, r.context.ImageCount())
		r.destroyPipelines()
		r.destroyImageResources()
		if err := r.createImageResources(); err != nil {
			return fmt.Errorf("recreate per-image resources: %w", err)
		}
		if err := r.createPipelines(); err != nil {
			return err
		}
	} else {
		r.destroyAttachments()
		if err := r.createAttachments(); err != nil {
			return err
		}
		if err := r.writePostImageBindings(); err != nil {
			return err
		}
		if r.context.SwapchainFormat() != oldFormat {
			core.LogInfo("Swapchain format changed, rebuilding pipelines.")
			r.destroyPipelines()
			if err := r.createPipelines(); err != nil {
				return err
			}
		}
	}

	r.destroySyncObjects()
	if err := r.createSyncObjects(); err != nil {
		return err
	}

	for _, listener := range r.resizeListeners {
		listener(extent.Width, extent.Height)
	}
	core.LogInfo("Swapchain rebuilt at %dx%d.", extent.Width, extent.Height)
	return nil
}

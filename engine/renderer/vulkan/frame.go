package vulkan

import (
	"math"
	"unsafe"

	vk "github.com/goki/vulkan"

	"github.com/Kobazaaa/Ashen/engine/core"
	"github.com/Kobazaaa/Ashen/engine/renderer/metadata"
)

const cameraPushSize = unsafe.Sizeof(metadata.CameraMatricesPC{})

var clearColor = [4]float32{0.1, 0.2, 0.3, 1.0}

// DrawFrame runs one WAIT_FENCE, ACQUIRE, RECORD, SUBMIT, PRESENT, ADVANCE cycle. A stale
// swapchain on acquire drops the frame and rebuilds; on present the rebuild happens after the
// frame has been handed over.
func (r *Renderer) DrawFrame(frame *metadata.FrameData) error {
	slot := &r.slots[r.currentFrame]
	if err := slot.inFlight.Wait(math.MaxUint64); err != nil {
		return err
	}

	imageIndex, result := r.context.AcquireFrameImage(slot.imageAvailable)
	if IsSwapchainStale(result) {
		core.LogDebug("Acquire returned %s, rebuilding swapchain.", VulkanResultString(result))
		return r.OnResize()
	}
	if err := checkResult("vkAcquireNextImageKHR", result); err != nil {
		core.LogError(err.Error())
		return err
	}

	// Reset only after a successful acquire; every early return above leaves the fence signaled.
	if err := slot.inFlight.Reset(); err != nil {
		return err
	}

	frameIndex := int(r.currentFrame)
	if err := r.updateUniforms(frameIndex, frame); err != nil {
		return err
	}

	cb := r.commandBuffers[frameIndex]
	if err := cb.Reset(r.context.Device); err != nil {
		return err
	}
	if err := cb.Begin(r.context.Device, false, false); err != nil {
		return err
	}
	r.record(cb.Handle, frameIndex, imageIndex, frame)
	if err := cb.End(r.context.Device); err != nil {
		return err
	}

	submitInfo := vk.SubmitInfo{
		SType:                vk.StructureTypeSubmitInfo,
		WaitSemaphoreCount:   1,
		PWaitSemaphores:      []vk.Semaphore{slot.imageAvailable},
		PWaitDstStageMask:    []vk.PipelineStageFlags{vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)},
		CommandBufferCount:   1,
		PCommandBuffers:      []vk.CommandBuffer{cb.Handle},
		SignalSemaphoreCount: 1,
		PSignalSemaphores:    []vk.Semaphore{slot.renderFinished},
	}
	if err := r.context.Device.QueueSubmit(r.context.GraphicsQueue(), []vk.SubmitInfo{submitInfo}, slot.inFlight.Handle); err != nil {
		core.LogError("vkQueueSubmit failed: %s", err)
		return err
	}
	cb.UpdateSubmitted()

	presentResult, err := r.context.Present(imageIndex, slot.renderFinished)
	if err != nil {
		return err
	}
	if presentResult == PresentOutOfDate || r.window.IsOutdated() {
		r.resizePending = true
	}

	r.currentFrame = (r.currentFrame + 1) % r.framesInFlight

	if r.resizePending {
		r.resizePending = false
		return r.OnResize()
	}
	return nil
}

func (r *Renderer) updateUniforms(index int, frame *metadata.FrameData) error {
	updates := []func() error{
		func() error { return r.skyVS.Update(index, &frame.SkyVS) },
		func() error { return r.skyFS.Update(index, &frame.SkyFS) },
		func() error { return r.groundVS.Update(index, &frame.GroundVS) },
		func() error { return r.groundFS.Update(index, &frame.GroundFS) },
		func() error { return r.spaceVS.Update(index, &frame.SpaceVS) },
		func() error { return r.spaceFS.Update(index, &frame.SpaceFS) },
		func() error { return r.exposure.Update(index, &frame.Exposure) },
	}
	for _, update := range updates {
		if err := update(); err != nil {
			core.LogError("uniform update for image %d: %s", index, err)
			return err
		}
	}
	return nil
}

// variantFor picks the FromSpace pipelines for a camera on or outside the outer radius.
func variantFor(frame *metadata.FrameData) int {
	if frame.CameraPosition.Len() >= frame.SkyVS.OuterRadius {
		return fromSpace
	}
	return fromAtmosphere
}

func (r *Renderer) record(cmd vk.CommandBuffer, frameIndex int, imageIndex uint32, frame *metadata.FrameData) {
	device := r.context.Device
	extent := r.context.GetSwapchainExtent()
	swapchainImage := r.context.SwapchainImages()[imageIndex]
	swapchainView := r.context.SwapchainViews()[imageIndex]

	// Every image is treated as coming from UNDEFINED; its previous contents are not needed.
	device.CmdPipelineBarrier(cmd,
		vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit),
		vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		[]vk.ImageMemoryBarrier{imageBarrier(swapchainImage, vk.ImageAspectFlags(vk.ImageAspectColorBit),
			vk.ImageLayoutUndefined, vk.ImageLayoutColorAttachmentOptimal,
			0, vk.AccessFlags(vk.AccessColorAttachmentWriteBit))})

	depth := &r.depthImages[frameIndex]
	depth.Layout = vk.ImageLayoutUndefined
	depth.TransitionLayout(cmd, vk.ImageLayoutDepthStencilAttachmentOptimal)

	target := swapchainView
	var hdr *VulkanImage
	if r.hdrEnabled {
		hdr = &r.hdrImages[frameIndex]
		hdr.Layout = vk.ImageLayoutUndefined
		hdr.TransitionLayout(cmd, vk.ImageLayoutColorAttachmentOptimal)
		target = hdr.View
	}

	var colorClear, depthClear vk.ClearValue
	colorClear.SetColor(clearColor[:])
	depthClear.SetDepthStencil(1.0, 0)

	renderArea := vk.Rect2D{Extent: extent}
	device.CmdBeginRendering(cmd, vk.RenderingInfo{
		SType:                vk.StructureTypeRenderingInfo,
		RenderArea:           renderArea,
		LayerCount:           1,
		ColorAttachmentCount: 1,
		PColorAttachments: []vk.RenderingAttachmentInfo{{
			SType:       vk.StructureTypeRenderingAttachmentInfo,
			ImageView:   target,
			ImageLayout: vk.ImageLayoutColorAttachmentOptimal,
			LoadOp:      vk.AttachmentLoadOpClear,
			StoreOp:     vk.AttachmentStoreOpStore,
			ClearValue:  colorClear,
		}},
		PDepthAttachment: []vk.RenderingAttachmentInfo{{
			SType:       vk.StructureTypeRenderingAttachmentInfo,
			ImageView:   depth.View,
			ImageLayout: vk.ImageLayoutDepthStencilAttachmentOptimal,
			LoadOp:      vk.AttachmentLoadOpClear,
			StoreOp:     vk.AttachmentStoreOpDontCare,
			ClearValue:  depthClear,
		}},
	})

	variant := variantFor(frame)
	r.drawPass(cmd, passGround, variant, r.groundMesh, frameIndex, extent, &frame.Camera)
	r.drawPass(cmd, passSky, variant, r.skyMesh, frameIndex, extent, &frame.Camera)

	device.CmdEndRendering(cmd)

	if hdr != nil {
		hdr.TransitionLayout(cmd, vk.ImageLayoutShaderReadOnlyOptimal)
		r.drawPostProcess(cmd, frameIndex, swapchainView, extent)
	}

	device.CmdPipelineBarrier(cmd,
		vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		vk.PipelineStageFlags(vk.PipelineStageBottomOfPipeBit),
		[]vk.ImageMemoryBarrier{imageBarrier(swapchainImage, vk.ImageAspectFlags(vk.ImageAspectColorBit),
			vk.ImageLayoutColorAttachmentOptimal, vk.ImageLayoutPresentSrc,
			vk.AccessFlags(vk.AccessColorAttachmentWriteBit), 0)})
}

func (r *Renderer) setViewport(cmd vk.CommandBuffer, extent vk.Extent2D) {
	r.context.Device.CmdSetViewport(cmd, vk.Viewport{
		Width:    float32(extent.Width),
		Height:   float32(extent.Height),
		MinDepth: 0.0,
		MaxDepth: 1.0,
	})
	r.context.Device.CmdSetScissor(cmd, vk.Rect2D{Extent: extent})
}

func (r *Renderer) drawPass(cmd vk.CommandBuffer, pass scatterPass, variant int, mesh *Mesh, frameIndex int, extent vk.Extent2D, camera *metadata.CameraMatricesPC) {
	device := r.context.Device
	pipeline := &r.pipelines[pass][variant]

	pipeline.Bind(cmd)
	r.setViewport(cmd, extent)
	mesh.Bind(cmd)
	device.CmdPushConstants(cmd, pipeline.PipelineLayout, vk.ShaderStageFlags(vk.ShaderStageVertexBit), 0, bytesOf(camera))
	device.CmdBindDescriptorSets(cmd, pipeline.PipelineLayout, []vk.DescriptorSet{r.passSets[pass][frameIndex].Handle})
	mesh.Draw(cmd)
}

// drawPostProcess tone maps the HDR target into the swapchain image with a full-screen triangle.
func (r *Renderer) drawPostProcess(cmd vk.CommandBuffer, frameIndex int, target vk.ImageView, extent vk.Extent2D) {
	device := r.context.Device
	device.CmdBeginRendering(cmd, vk.RenderingInfo{
		SType:                vk.StructureTypeRenderingInfo,
		RenderArea:           vk.Rect2D{Extent: extent},
		LayerCount:           1,
		ColorAttachmentCount: 1,
		PColorAttachments: []vk.RenderingAttachmentInfo{{
			SType:       vk.StructureTypeRenderingAttachmentInfo,
			ImageView:   target,
			ImageLayout: vk.ImageLayoutColorAttachmentOptimal,
			LoadOp:      vk.AttachmentLoadOpDontCare,
			StoreOp:     vk.AttachmentStoreOpStore,
		}},
	})
	r.postPipeline.Bind(cmd)
	r.setViewport(cmd, extent)
	device.CmdBindDescriptorSets(cmd, r.postPipeline.PipelineLayout, []vk.DescriptorSet{r.postSets[frameIndex].Handle})
	device.CmdDraw(cmd, 3, 1)
	device.CmdEndRendering(cmd)
}

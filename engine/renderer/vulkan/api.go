package vulkan

import (
	vk "github.com/goki/vulkan"
)

// Device is the part of the Vulkan device API the renderer drives. *VulkanDevice
// forwards every call to the driver; tests plug in a fake that records calls.
type Device interface {
	// Queues
	GraphicsQueue() vk.Queue
	PresentQueue() vk.Queue
	GraphicsFamily() uint32
	PresentFamily() uint32
	WaitIdle() error
	QueueSubmit(queue vk.Queue, submits []vk.SubmitInfo, fence vk.Fence) error
	QueueWaitIdle(queue vk.Queue) error

	// Surface and swapchain
	SurfaceCapabilities() (vk.SurfaceCapabilities, error)
	SurfaceFormats() ([]vk.SurfaceFormat, error)
	SurfacePresentModes() ([]vk.PresentMode, error)
	CreateSwapchain(info *vk.SwapchainCreateInfo) (vk.Swapchain, error)
	DestroySwapchain(swapchain vk.Swapchain)
	SwapchainImages(swapchain vk.Swapchain) ([]vk.Image, error)
	AcquireNextImage(swapchain vk.Swapchain, timeout uint64, semaphore vk.Semaphore) (uint32, vk.Result)
	QueuePresent(queue vk.Queue, info *vk.PresentInfo) vk.Result

	// Synchronization
	CreateSemaphore() (vk.Semaphore, error)
	DestroySemaphore(semaphore vk.Semaphore)
	CreateFence(signaled bool) (vk.Fence, error)
	DestroyFence(fence vk.Fence)
	WaitForFence(fence vk.Fence, timeout uint64) vk.Result
	ResetFence(fence vk.Fence) error

	// Command buffers
	CreateCommandPool(family uint32, flags vk.CommandPoolCreateFlags) (vk.CommandPool, error)
	DestroyCommandPool(pool vk.CommandPool)
	AllocateCommandBuffers(pool vk.CommandPool, count uint32) ([]vk.CommandBuffer, error)
	FreeCommandBuffers(pool vk.CommandPool, buffers []vk.CommandBuffer)
	BeginCommandBuffer(cmd vk.CommandBuffer, flags vk.CommandBufferUsageFlags) error
	EndCommandBuffer(cmd vk.CommandBuffer) error
	ResetCommandBuffer(cmd vk.CommandBuffer) error

	// Memory
	MemoryTypes() []vk.MemoryType
	FormatProperties(format vk.Format) vk.FormatProperties
	AllocateMemory(size vk.DeviceSize, typeIndex uint32) (vk.DeviceMemory, error)
	FreeMemory(memory vk.DeviceMemory)
	WriteMemory(memory vk.DeviceMemory, offset vk.DeviceSize, data []byte) error

	// Buffers, images and samplers
	CreateBuffer(info *vk.BufferCreateInfo) (vk.Buffer, error)
	DestroyBuffer(buffer vk.Buffer)
	BufferMemoryRequirements(buffer vk.Buffer) vk.MemoryRequirements
	BindBufferMemory(buffer vk.Buffer, memory vk.DeviceMemory) error
	CreateImage(info *vk.ImageCreateInfo) (vk.Image, error)
	DestroyImage(image vk.Image)
	ImageMemoryRequirements(image vk.Image) vk.MemoryRequirements
	BindImageMemory(image vk.Image, memory vk.DeviceMemory) error
	CreateImageView(info *vk.ImageViewCreateInfo) (vk.ImageView, error)
	DestroyImageView(view vk.ImageView)
	CreateSampler(info *vk.SamplerCreateInfo) (vk.Sampler, error)
	DestroySampler(sampler vk.Sampler)

	// Descriptors
	CreateDescriptorPool(info *vk.DescriptorPoolCreateInfo) (vk.DescriptorPool, error)
	DestroyDescriptorPool(pool vk.DescriptorPool)
	CreateDescriptorSetLayout(info *vk.DescriptorSetLayoutCreateInfo) (vk.DescriptorSetLayout, error)
	DestroyDescriptorSetLayout(layout vk.DescriptorSetLayout)
	AllocateDescriptorSet(pool vk.DescriptorPool, layout vk.DescriptorSetLayout) (vk.DescriptorSet, error)
	UpdateDescriptorSets(writes []vk.WriteDescriptorSet)

	// Pipelines
	CreateShaderModule(code []byte) (vk.ShaderModule, error)
	DestroyShaderModule(module vk.ShaderModule)
	CreatePipelineLayout(info *vk.PipelineLayoutCreateInfo) (vk.PipelineLayout, error)
	DestroyPipelineLayout(layout vk.PipelineLayout)
	CreateGraphicsPipeline(info *vk.GraphicsPipelineCreateInfo) (vk.Pipeline, error)
	DestroyPipeline(pipeline vk.Pipeline)

	// Command recording
	CmdPipelineBarrier(cmd vk.CommandBuffer, src, dst vk.PipelineStageFlags, barriers []vk.ImageMemoryBarrier)
	CmdBeginRendering(cmd vk.CommandBuffer, info vk.RenderingInfo)
	CmdEndRendering(cmd vk.CommandBuffer)
	CmdBindPipeline(cmd vk.CommandBuffer, pipeline vk.Pipeline)
	CmdSetViewport(cmd vk.CommandBuffer, viewport vk.Viewport)
	CmdSetScissor(cmd vk.CommandBuffer, scissor vk.Rect2D)
	CmdBindDescriptorSets(cmd vk.CommandBuffer, layout vk.PipelineLayout, sets []vk.DescriptorSet)
	CmdPushConstants(cmd vk.CommandBuffer, layout vk.PipelineLayout, stages vk.ShaderStageFlags, offset uint32, data []byte)
	CmdBindVertexBuffers(cmd vk.CommandBuffer, buffers []vk.Buffer, offsets []vk.DeviceSize)
	CmdBindIndexBuffer(cmd vk.CommandBuffer, buffer vk.Buffer, indexType vk.IndexType)
	CmdDraw(cmd vk.CommandBuffer, vertexCount, instanceCount uint32)
	CmdDrawIndexed(cmd vk.CommandBuffer, indexCount, instanceCount uint32)
	CmdCopyBuffer(cmd vk.CommandBuffer, src, dst vk.Buffer, regions []vk.BufferCopy)
	CmdCopyBufferToImage(cmd vk.CommandBuffer, src vk.Buffer, dst vk.Image, layout vk.ImageLayout, regions []vk.BufferImageCopy)
}

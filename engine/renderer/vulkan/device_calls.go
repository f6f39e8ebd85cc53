package vulkan

import (
	"unsafe"

	vk "github.com/goki/vulkan"
)

var _ Device = (*VulkanDevice)(nil)

func (d *VulkanDevice) GraphicsQueue() vk.Queue { return d.graphicsQueue }
func (d *VulkanDevice) PresentQueue() vk.Queue  { return d.presentQueue }
func (d *VulkanDevice) GraphicsFamily() uint32  { return d.GraphicsQueueIndex }
func (d *VulkanDevice) PresentFamily() uint32   { return d.PresentQueueIndex }

func (d *VulkanDevice) WaitIdle() error {
	return checkResult("vkDeviceWaitIdle", vk.DeviceWaitIdle(d.LogicalDevice))
}

func (d *VulkanDevice) QueueSubmit(queue vk.Queue, submits []vk.SubmitInfo, fence vk.Fence) error {
	return checkResult("vkQueueSubmit", vk.QueueSubmit(queue, uint32(len(submits)), submits, fence))
}

func (d *VulkanDevice) QueueWaitIdle(queue vk.Queue) error {
	return checkResult("vkQueueWaitIdle", vk.QueueWaitIdle(queue))
}

func (d *VulkanDevice) SurfaceCapabilities() (vk.SurfaceCapabilities, error) {
	var caps vk.SurfaceCapabilities
	if err := checkResult("vkGetPhysicalDeviceSurfaceCapabilitiesKHR", vk.GetPhysicalDeviceSurfaceCapabilities(d.PhysicalDevice, d.Surface, &caps)); err != nil {
		return caps, err
	}
	caps.Deref()
	caps.CurrentExtent.Deref()
	caps.MinImageExtent.Deref()
	caps.MaxImageExtent.Deref()
	return caps, nil
}

func (d *VulkanDevice) SurfaceFormats() ([]vk.SurfaceFormat, error) {
	var count uint32
	if err := checkResult("vkGetPhysicalDeviceSurfaceFormatsKHR", vk.GetPhysicalDeviceSurfaceFormats(d.PhysicalDevice, d.Surface, &count, nil)); err != nil {
		return nil, err
	}
	formats := make([]vk.SurfaceFormat, count)
	if err := checkResult("vkGetPhysicalDeviceSurfaceFormatsKHR", vk.GetPhysicalDeviceSurfaceFormats(d.PhysicalDevice, d.Surface, &count, formats)); err != nil {
		return nil, err
	}
	for i := range formats {
		formats[i].Deref()
	}
	return formats, nil
}

func (d *VulkanDevice) SurfacePresentModes() ([]vk.PresentMode, error) {
	var count uint32
	if err := checkResult("vkGetPhysicalDeviceSurfacePresentModesKHR", vk.GetPhysicalDeviceSurfacePresentModes(d.PhysicalDevice, d.Surface, &count, nil)); err != nil {
		return nil, err
	}
	modes := make([]vk.PresentMode, count)
	if err := checkResult("vkGetPhysicalDeviceSurfacePresentModesKHR", vk.GetPhysicalDeviceSurfacePresentModes(d.PhysicalDevice, d.Surface, &count, modes)); err != nil {
		return nil, err
	}
	return modes, nil
}

func (d *VulkanDevice) CreateSwapchain(info *vk.SwapchainCreateInfo) (vk.Swapchain, error) {
	var swapchain vk.Swapchain
	info.Surface = d.Surface
	err := checkResult("vkCreateSwapchainKHR", vk.CreateSwapchain(d.LogicalDevice, info, d.Allocator, &swapchain))
	return swapchain, err
}

func (d *VulkanDevice) DestroySwapchain(swapchain vk.Swapchain) {
	vk.DestroySwapchain(d.LogicalDevice, swapchain, d.Allocator)
}

func (d *VulkanDevice) SwapchainImages(swapchain vk.Swapchain) ([]vk.Image, error) {
	var count uint32
	if err := checkResult("vkGetSwapchainImagesKHR", vk.GetSwapchainImages(d.LogicalDevice, swapchain, &count, nil)); err != nil {
		return nil, err
	}
	images := make([]vk.Image, count)
	if err := checkResult("vkGetSwapchainImagesKHR", vk.GetSwapchainImages(d.LogicalDevice, swapchain, &count, images)); err != nil {
		return nil, err
	}
	return images, nil
}

func (d *VulkanDevice) AcquireNextImage(swapchain vk.Swapchain, timeout uint64, semaphore vk.Semaphore) (uint32, vk.Result) {
	var index uint32
	result := vk.AcquireNextImage(d.LogicalDevice, swapchain, timeout, semaphore, vk.NullFence, &index)
	return index, result
}

func (d *VulkanDevice) QueuePresent(queue vk.Queue, info *vk.PresentInfo) vk.Result {
	return vk.QueuePresent(queue, info)
}

func (d *VulkanDevice) CreateSemaphore() (vk.Semaphore, error) {
	var semaphore vk.Semaphore
	info := vk.SemaphoreCreateInfo{SType: vk.StructureTypeSemaphoreCreateInfo}
	err := checkResult("vkCreateSemaphore", vk.CreateSemaphore(d.LogicalDevice, &info, d.Allocator, &semaphore))
	return semaphore, err
}

func (d *VulkanDevice) DestroySemaphore(semaphore vk.Semaphore) {
	vk.DestroySemaphore(d.LogicalDevice, semaphore, d.Allocator)
}

func (d *VulkanDevice) CreateFence(signaled bool) (vk.Fence, error) {
	info := vk.FenceCreateInfo{SType: vk.StructureTypeFenceCreateInfo}
	if signaled {
		info.Flags = vk.FenceCreateFlags(vk.FenceCreateSignaledBit)
	}
	var fence vk.Fence
	err := checkResult("vkCreateFence", vk.CreateFence(d.LogicalDevice, &info, d.Allocator, &fence))
	return fence, err
}

func (d *VulkanDevice) DestroyFence(fence vk.Fence) {
	vk.DestroyFence(d.LogicalDevice, fence, d.Allocator)
}

func (d *VulkanDevice) WaitForFence(fence vk.Fence, timeout uint64) vk.Result {
	return vk.WaitForFences(d.LogicalDevice, 1, []vk.Fence{fence}, vk.True, timeout)
}

func (d *VulkanDevice) ResetFence(fence vk.Fence) error {
	return checkResult("vkResetFences", vk.ResetFences(d.LogicalDevice, 1, []vk.Fence{fence}))
}

func (d *VulkanDevice) CreateCommandPool(family uint32, flags vk.CommandPoolCreateFlags) (vk.CommandPool, error) {
	info := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: family,
		Flags:            flags,
	}
	var pool vk.CommandPool
	err := checkResult("vkCreateCommandPool", vk.CreateCommandPool(d.LogicalDevice, &info, d.Allocator, &pool))
	return pool, err
}

func (d *VulkanDevice) DestroyCommandPool(pool vk.CommandPool) {
	vk.DestroyCommandPool(d.LogicalDevice, pool, d.Allocator)
}

func (d *VulkanDevice) AllocateCommandBuffers(pool vk.CommandPool, count uint32) ([]vk.CommandBuffer, error) {
	info := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        pool,
		Level:              vk.CommandBufferLevelPrimary,
		CommandBufferCount: count,
	}
	buffers := make([]vk.CommandBuffer, count)
	if err := checkResult("vkAllocateCommandBuffers", vk.AllocateCommandBuffers(d.LogicalDevice, &info, buffers)); err != nil {
		return nil, err
	}
	return buffers, nil
}

func (d *VulkanDevice) FreeCommandBuffers(pool vk.CommandPool, buffers []vk.CommandBuffer) {
	if len(buffers) == 0 {
		return
	}
	vk.FreeCommandBuffers(d.LogicalDevice, pool, uint32(len(buffers)), buffers)
}

func (d *VulkanDevice) BeginCommandBuffer(cmd vk.CommandBuffer, flags vk.CommandBufferUsageFlags) error {
	info := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: flags,
	}
	return checkResult("vkBeginCommandBuffer", vk.BeginCommandBuffer(cmd, &info))
}

func (d *VulkanDevice) EndCommandBuffer(cmd vk.CommandBuffer) error {
	return checkResult("vkEndCommandBuffer", vk.EndCommandBuffer(cmd))
}

func (d *VulkanDevice) ResetCommandBuffer(cmd vk.CommandBuffer) error {
	return checkResult("vkResetCommandBuffer", vk.ResetCommandBuffer(cmd, 0))
}

func (d *VulkanDevice) MemoryTypes() []vk.MemoryType { return d.memoryTypes }

func (d *VulkanDevice) FormatProperties(format vk.Format) vk.FormatProperties {
	var props vk.FormatProperties
	vk.GetPhysicalDeviceFormatProperties(d.PhysicalDevice, format, &props)
	props.Deref()
	return props
}

func (d *VulkanDevice) AllocateMemory(size vk.DeviceSize, typeIndex uint32) (vk.DeviceMemory, error) {
	info := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  size,
		MemoryTypeIndex: typeIndex,
	}
	var memory vk.DeviceMemory
	err := checkResult("vkAllocateMemory", vk.AllocateMemory(d.LogicalDevice, &info, d.Allocator, &memory))
	return memory, err
}

func (d *VulkanDevice) FreeMemory(memory vk.DeviceMemory) {
	vk.FreeMemory(d.LogicalDevice, memory, d.Allocator)
}

func (d *VulkanDevice) WriteMemory(memory vk.DeviceMemory, offset vk.DeviceSize, data []byte) error {
	var mapped unsafe.Pointer
	if err := checkResult("vkMapMemory", vk.MapMemory(d.LogicalDevice, memory, offset, vk.DeviceSize(len(data)), 0, &mapped)); err != nil {
		return err
	}
	vk.Memcopy(mapped, data)
	vk.UnmapMemory(d.LogicalDevice, memory)
	return nil
}

func (d *VulkanDevice) CreateBuffer(info *vk.BufferCreateInfo) (vk.Buffer, error) {
	var buffer vk.Buffer
	err := checkResult("vkCreateBuffer", vk.CreateBuffer(d.LogicalDevice, info, d.Allocator, &buffer))
	return buffer, err
}

func (d *VulkanDevice) DestroyBuffer(buffer vk.Buffer) {
	vk.DestroyBuffer(d.LogicalDevice, buffer, d.Allocator)
}

func (d *VulkanDevice) BufferMemoryRequirements(buffer vk.Buffer) vk.MemoryRequirements {
	var reqs vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(d.LogicalDevice, buffer, &reqs)
	reqs.Deref()
	return reqs
}

func (d *VulkanDevice) BindBufferMemory(buffer vk.Buffer, memory vk.DeviceMemory) error {
	return checkResult("vkBindBufferMemory", vk.BindBufferMemory(d.LogicalDevice, buffer, memory, 0))
}

func (d *VulkanDevice) CreateImage(info *vk.ImageCreateInfo) (vk.Image, error) {
	var image vk.Image
	err := checkResult("vkCreateImage", vk.CreateImage(d.LogicalDevice, info, d.Allocator, &image))
	return image, err
}

func (d *VulkanDevice) DestroyImage(image vk.Image) {
	vk.DestroyImage(d.LogicalDevice, image, d.Allocator)
}

func (d *VulkanDevice) ImageMemoryRequirements(image vk.Image) vk.MemoryRequirements {
	var reqs vk.MemoryRequirements
	vk.GetImageMemoryRequirements(d.LogicalDevice, image, &reqs)
	reqs.Deref()
	return reqs
}

func (d *VulkanDevice) BindImageMemory(image vk.Image, memory vk.DeviceMemory) error {
	return checkResult("vkBindImageMemory", vk.BindImageMemory(d.LogicalDevice, image, memory, 0))
}

func (d *VulkanDevice) CreateImageView(info *vk.ImageViewCreateInfo) (vk.ImageView, error) {
	var view vk.ImageView
	err := checkResult("vkCreateImageView", vk.CreateImageView(d.LogicalDevice, info, d.Allocator, &view))
	return view, err
}

func (d *VulkanDevice) DestroyImageView(view vk.ImageView) {
	vk.DestroyImageView(d.LogicalDevice, view, d.Allocator)
}

func (d *VulkanDevice) CreateSampler(info *vk.SamplerCreateInfo) (vk.Sampler, error) {
	var sampler vk.Sampler
	err := checkResult("vkCreateSampler", vk.CreateSampler(d.LogicalDevice, info, d.Allocator, &sampler))
	return sampler, err
}

func (d *VulkanDevice) DestroySampler(sampler vk.Sampler) {
	vk.DestroySampler(d.LogicalDevice, sampler, d.Allocator)
}

func (d *VulkanDevice) CreateDescriptorPool(info *vk.DescriptorPoolCreateInfo) (vk.DescriptorPool, error) {
	var pool vk.DescriptorPool
	err := checkResult("vkCreateDescriptorPool", vk.CreateDescriptorPool(d.LogicalDevice, info, d.Allocator, &pool))
	return pool, err
}

func (d *VulkanDevice) DestroyDescriptorPool(pool vk.DescriptorPool) {
	vk.DestroyDescriptorPool(d.LogicalDevice, pool, d.Allocator)
}

func (d *VulkanDevice) CreateDescriptorSetLayout(info *vk.DescriptorSetLayoutCreateInfo) (vk.DescriptorSetLayout, error) {
	var layout vk.DescriptorSetLayout
	err := checkResult("vkCreateDescriptorSetLayout", vk.CreateDescriptorSetLayout(d.LogicalDevice, info, d.Allocator, &layout))
	return layout, err
}

func (d *VulkanDevice) DestroyDescriptorSetLayout(layout vk.DescriptorSetLayout) {
	vk.DestroyDescriptorSetLayout(d.LogicalDevice, layout, d.Allocator)
}

func (d *VulkanDevice) AllocateDescriptorSet(pool vk.DescriptorPool, layout vk.DescriptorSetLayout) (vk.DescriptorSet, error) {
	info := vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     pool,
		DescriptorSetCount: 1,
		PSetLayouts:        []vk.DescriptorSetLayout{layout},
	}
	var set vk.DescriptorSet
	err := checkResult("vkAllocateDescriptorSets", vk.AllocateDescriptorSets(d.LogicalDevice, &info, &set))
	return set, err
}

func (d *VulkanDevice) UpdateDescriptorSets(writes []vk.WriteDescriptorSet) {
	if len(writes) == 0 {
		return
	}
	vk.UpdateDescriptorSets(d.LogicalDevice, uint32(len(writes)), writes, 0, nil)
}

func (d *VulkanDevice) CreateShaderModule(code []byte) (vk.ShaderModule, error) {
	info := vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint64(len(code)),
		PCode:    sliceUint32(code),
	}
	var module vk.ShaderModule
	err := checkResult("vkCreateShaderModule", vk.CreateShaderModule(d.LogicalDevice, &info, d.Allocator, &module))
	return module, err
}

func (d *VulkanDevice) DestroyShaderModule(module vk.ShaderModule) {
	vk.DestroyShaderModule(d.LogicalDevice, module, d.Allocator)
}

func (d *VulkanDevice) CreatePipelineLayout(info *vk.PipelineLayoutCreateInfo) (vk.PipelineLayout, error) {
	var layout vk.PipelineLayout
	err := checkResult("vkCreatePipelineLayout", vk.CreatePipelineLayout(d.LogicalDevice, info, d.Allocator, &layout))
	return layout, err
}

func (d *VulkanDevice) DestroyPipelineLayout(layout vk.PipelineLayout) {
	vk.DestroyPipelineLayout(d.LogicalDevice, layout, d.Allocator)
}

func (d *VulkanDevice) CreateGraphicsPipeline(info *vk.GraphicsPipelineCreateInfo) (vk.Pipeline, error) {
	pipelines := make([]vk.Pipeline, 1)
	err := checkResult("vkCreateGraphicsPipelines", vk.CreateGraphicsPipelines(d.LogicalDevice, vk.PipelineCache(vk.NullHandle), 1, []vk.GraphicsPipelineCreateInfo{*info}, d.Allocator, pipelines))
	return pipelines[0], err
}

func (d *VulkanDevice) DestroyPipeline(pipeline vk.Pipeline) {
	vk.DestroyPipeline(d.LogicalDevice, pipeline, d.Allocator)
}

func (d *VulkanDevice) CmdPipelineBarrier(cmd vk.CommandBuffer, src, dst vk.PipelineStageFlags, barriers []vk.ImageMemoryBarrier) {
	vk.CmdPipelineBarrier(cmd, src, dst, 0, 0, nil, 0, nil, uint32(len(barriers)), barriers)
}

func (d *VulkanDevice) CmdBeginRendering(cmd vk.CommandBuffer, info vk.RenderingInfo) {
	cmdBeginRendering(cmd, &info)
}

func (d *VulkanDevice) CmdEndRendering(cmd vk.CommandBuffer) {
	cmdEndRendering(cmd)
}

func (d *VulkanDevice) CmdBindPipeline(cmd vk.CommandBuffer, pipeline vk.Pipeline) {
	vk.CmdBindPipeline(cmd, vk.PipelineBindPointGraphics, pipeline)
}

func (d *VulkanDevice) CmdSetViewport(cmd vk.CommandBuffer, viewport vk.Viewport) {
	vk.CmdSetViewport(cmd, 0, 1, []vk.Viewport{viewport})
}

func (d *VulkanDevice) CmdSetScissor(cmd vk.CommandBuffer, scissor vk.Rect2D) {
	vk.CmdSetScissor(cmd, 0, 1, []vk.Rect2D{scissor})
}

func (d *VulkanDevice) CmdBindDescriptorSets(cmd vk.CommandBuffer, layout vk.PipelineLayout, sets []vk.DescriptorSet) {
	vk.CmdBindDescriptorSets(cmd, vk.PipelineBindPointGraphics, layout, 0, uint32(len(sets)), sets, 0, nil)
}

func (d *VulkanDevice) CmdPushConstants(cmd vk.CommandBuffer, layout vk.PipelineLayout, stages vk.ShaderStageFlags, offset uint32, data []byte) {
	if len(data) == 0 {
		return
	}
	vk.CmdPushConstants(cmd, layout, stages, offset, uint32(len(data)), unsafe.Pointer(&data[0]))
}

func (d *VulkanDevice) CmdBindVertexBuffers(cmd vk.CommandBuffer, buffers []vk.Buffer, offsets []vk.DeviceSize) {
	vk.CmdBindVertexBuffers(cmd, 0, uint32(len(buffers)), buffers, offsets)
}

func (d *VulkanDevice) CmdBindIndexBuffer(cmd vk.CommandBuffer, buffer vk.Buffer, indexType vk.IndexType) {
	vk.CmdBindIndexBuffer(cmd, buffer, 0, indexType)
}

func (d *VulkanDevice) CmdDraw(cmd vk.CommandBuffer, vertexCount, instanceCount uint32) {
	vk.CmdDraw(cmd, vertexCount, instanceCount, 0, 0)
}

func (d *VulkanDevice) CmdDrawIndexed(cmd vk.CommandBuffer, indexCount, instanceCount uint32) {
	vk.CmdDrawIndexed(cmd, indexCount, instanceCount, 0, 0, 0)
}

func (d *VulkanDevice) CmdCopyBuffer(cmd vk.CommandBuffer, src, dst vk.Buffer, regions []vk.BufferCopy) {
	vk.CmdCopyBuffer(cmd, src, dst, uint32(len(regions)), regions)
}

func (d *VulkanDevice) CmdCopyBufferToImage(cmd vk.CommandBuffer, src vk.Buffer, dst vk.Image, layout vk.ImageLayout, regions []vk.BufferImageCopy) {
	vk.CmdCopyBufferToImage(cmd, src, dst, layout, uint32(len(regions)), regions)
}

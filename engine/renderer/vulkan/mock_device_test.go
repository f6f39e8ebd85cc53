package vulkan

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/stretchr/testify/require"
)

type acquireStep struct {
	index  uint32
	result vk.Result
}

// mockDevice hands out fake handles and records the calls the renderer makes.
type mockDevice struct {
	arena []byte
	next  int

	graphicsQueue vk.Queue
	presentQueue  vk.Queue
	graphicsIdx   uint32
	presentIdx    uint32

	memoryTypes  []vk.MemoryType
	caps         vk.SurfaceCapabilities
	formats      []vk.SurfaceFormat
	presentModes []vk.PresentMode
	depthFormats map[vk.Format]bool

	// Scripted acquire and present results, consumed in order. When empty, acquire hands out
	// images round robin and present succeeds.
	acquireScript []acquireStep
	presentScript []vk.Result
	nextImage     uint32

	swapchainInfos []vk.SwapchainCreateInfo
	swapchainCount map[vk.Swapchain]uint32
	liveSwapchains int

	fences        map[vk.Fence]bool
	pending       map[vk.CommandBuffer]vk.Fence
	fenceWaits    []vk.Fence
	fenceResets   []vk.Fence
	semaphores    int
	liveFences    int
	liveSemaphore int

	liveBuffers     int
	liveImages      int
	liveViews       int
	liveMemory      int
	liveLayouts     int
	livePipelines   int
	liveModules     int
	createdLayouts  int
	createdBuffers  int
	createdModules  int
	createdPipeline int
	liveCmdBuffers  int
	liveSamplers    int
	livePools       int

	memory      map[vk.DeviceMemory][]byte
	bufferSizes map[vk.Buffer]vk.DeviceSize

	descriptorUpdates [][]vk.WriteDescriptorSet
	submits           int
	submitFences      []vk.Fence
	queueWaitIdles    int
	waitIdles         int
	presents          int

	draws         int
	indexedDraws  int
	bufferCopies  int
	imageCopies   int
	barriers      int
	renderings    int
	depthTargets  []int
	pushConstants int

	failShaderModule bool
}

func newMockDevice() *mockDevice {
	m := &mockDevice{
		arena: make([]byte, 1<<20),
		memoryTypes: []vk.MemoryType{
			{PropertyFlags: vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit)},
			{PropertyFlags: vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCoherentBit)},
		},
		caps: vk.SurfaceCapabilities{
			MinImageCount:  2,
			MaxImageCount:  3,
			CurrentExtent:  vk.Extent2D{Width: math.MaxUint32, Height: math.MaxUint32},
			MinImageExtent: vk.Extent2D{Width: 1, Height: 1},
			MaxImageExtent: vk.Extent2D{Width: 4096, Height: 4096},
		},
		formats:        []vk.SurfaceFormat{{Format: vk.FormatB8g8r8a8Srgb, ColorSpace: vk.ColorSpaceSrgbNonlinear}},
		presentModes:   []vk.PresentMode{vk.PresentModeFifo},
		depthFormats:   map[vk.Format]bool{vk.FormatD32Sfloat: true},
		swapchainCount: map[vk.Swapchain]uint32{},
		fences:         map[vk.Fence]bool{},
		pending:        map[vk.CommandBuffer]vk.Fence{},
		memory:         map[vk.DeviceMemory][]byte{},
		bufferSizes:    map[vk.Buffer]vk.DeviceSize{},
	}
	m.graphicsQueue = vk.Queue(m.handle())
	m.presentQueue = m.graphicsQueue
	return m
}

var _ Device = (*mockDevice)(nil)

// handleID makes a handle comparable by testify; the C handle types cannot be
// formatted or deep compared.
func handleID(h unsafe.Pointer) uintptr { return uintptr(h) }

func fenceIDs(fences []vk.Fence) []uintptr {
	ids := make([]uintptr, len(fences))
	for i, fence := range fences {
		ids[i] = handleID(unsafe.Pointer(fence))
	}
	return ids
}

func (m *mockDevice) handle() unsafe.Pointer {
	if m.next >= len(m.arena) {
		panic("mock device ran out of handles")
	}
	p := unsafe.Pointer(&m.arena[m.next])
	m.next++
	return p
}

// Queues

func (m *mockDevice) GraphicsQueue() vk.Queue { return m.graphicsQueue }
func (m *mockDevice) PresentQueue() vk.Queue  { return m.presentQueue }
func (m *mockDevice) GraphicsFamily() uint32  { return m.graphicsIdx }
func (m *mockDevice) PresentFamily() uint32   { return m.presentIdx }

func (m *mockDevice) WaitIdle() error {
	m.waitIdles++
	clear(m.pending)
	return nil
}

func (m *mockDevice) QueueSubmit(queue vk.Queue, submits []vk.SubmitInfo, fence vk.Fence) error {
	m.submits++
	m.submitFences = append(m.submitFences, fence)
	if fence != vk.NullFence {
		m.fences[fence] = true
		for _, submit := range submits {
			for _, cmd := range submit.PCommandBuffers {
				m.pending[cmd] = fence
			}
		}
	}
	return nil
}

func (m *mockDevice) QueueWaitIdle(queue vk.Queue) error {
	m.queueWaitIdles++
	return nil
}

// Surface and swapchain

func (m *mockDevice) SurfaceCapabilities() (vk.SurfaceCapabilities, error) { return m.caps, nil }
func (m *mockDevice) SurfaceFormats() ([]vk.SurfaceFormat, error)          { return m.formats, nil }
func (m *mockDevice) SurfacePresentModes() ([]vk.PresentMode, error)       { return m.presentModes, nil }

func (m *mockDevice) CreateSwapchain(info *vk.SwapchainCreateInfo) (vk.Swapchain, error) {
	m.swapchainInfos = append(m.swapchainInfos, *info)
	handle := vk.Swapchain(m.handle())
	m.swapchainCount[handle] = info.MinImageCount
	m.liveSwapchains++
	m.nextImage = 0
	return handle, nil
}

func (m *mockDevice) DestroySwapchain(swapchain vk.Swapchain) {
	delete(m.swapchainCount, swapchain)
	m.liveSwapchains--
}

func (m *mockDevice) SwapchainImages(swapchain vk.Swapchain) ([]vk.Image, error) {
	images := make([]vk.Image, m.swapchainCount[swapchain])
	for i := range images {
		images[i] = vk.Image(m.handle())
	}
	return images, nil
}

func (m *mockDevice) AcquireNextImage(swapchain vk.Swapchain, timeout uint64, semaphore vk.Semaphore) (uint32, vk.Result) {
	if len(m.acquireScript) > 0 {
		step := m.acquireScript[0]
		m.acquireScript = m.acquireScript[1:]
		return step.index, step.result
	}
	count := m.swapchainCount[swapchain]
	index := m.nextImage % count
	m.nextImage++
	return index, vk.Success
}

func (m *mockDevice) QueuePresent(queue vk.Queue, info *vk.PresentInfo) vk.Result {
	m.presents++
	if len(m.presentScript) > 0 {
		result := m.presentScript[0]
		m.presentScript = m.presentScript[1:]
		return result
	}
	return vk.Success
}

// Synchronization

func (m *mockDevice) CreateSemaphore() (vk.Semaphore, error) {
	m.semaphores++
	m.liveSemaphore++
	return vk.Semaphore(m.handle()), nil
}

func (m *mockDevice) DestroySemaphore(semaphore vk.Semaphore) { m.liveSemaphore-- }

func (m *mockDevice) CreateFence(signaled bool) (vk.Fence, error) {
	fence := vk.Fence(m.handle())
	m.fences[fence] = signaled
	m.liveFences++
	return fence, nil
}

func (m *mockDevice) DestroyFence(fence vk.Fence) {
	delete(m.fences, fence)
	m.liveFences--
}

func (m *mockDevice) WaitForFence(fence vk.Fence, timeout uint64) vk.Result {
	m.fenceWaits = append(m.fenceWaits, fence)
	if !m.fences[fence] {
		return vk.Timeout
	}
	for cmd, owner := range m.pending {
		if owner == fence {
			delete(m.pending, cmd)
		}
	}
	return vk.Success
}

func (m *mockDevice) ResetFence(fence vk.Fence) error {
	m.fenceResets = append(m.fenceResets, fence)
	m.fences[fence] = false
	return nil
}

// Command buffers

func (m *mockDevice) CreateCommandPool(family uint32, flags vk.CommandPoolCreateFlags) (vk.CommandPool, error) {
	return vk.CommandPool(m.handle()), nil
}

func (m *mockDevice) DestroyCommandPool(pool vk.CommandPool) {}

func (m *mockDevice) AllocateCommandBuffers(pool vk.CommandPool, count uint32) ([]vk.CommandBuffer, error) {
	buffers := make([]vk.CommandBuffer, count)
	for i := range buffers {
		buffers[i] = vk.CommandBuffer(m.handle())
	}
	m.liveCmdBuffers += int(count)
	return buffers, nil
}

func (m *mockDevice) FreeCommandBuffers(pool vk.CommandPool, buffers []vk.CommandBuffer) {
	m.liveCmdBuffers -= len(buffers)
	for _, cmd := range buffers {
		delete(m.pending, cmd)
	}
}

func (m *mockDevice) BeginCommandBuffer(cmd vk.CommandBuffer, flags vk.CommandBufferUsageFlags) error {
	return nil
}

func (m *mockDevice) EndCommandBuffer(cmd vk.CommandBuffer) error { return nil }

// ResetCommandBuffer fails for a buffer whose last submission has not been waited on.
func (m *mockDevice) ResetCommandBuffer(cmd vk.CommandBuffer) error {
	if _, ok := m.pending[cmd]; ok {
		return errors.New("command buffer reset while its fence is pending")
	}
	return nil
}

// Memory

func (m *mockDevice) MemoryTypes() []vk.MemoryType { return m.memoryTypes }

func (m *mockDevice) FormatProperties(format vk.Format) vk.FormatProperties {
	if m.depthFormats[format] {
		return vk.FormatProperties{OptimalTilingFeatures: vk.FormatFeatureFlags(vk.FormatFeatureDepthStencilAttachmentBit)}
	}
	return vk.FormatProperties{}
}

func (m *mockDevice) AllocateMemory(size vk.DeviceSize, typeIndex uint32) (vk.DeviceMemory, error) {
	memory := vk.DeviceMemory(m.handle())
	m.memory[memory] = make([]byte, size)
	m.liveMemory++
	return memory, nil
}

func (m *mockDevice) FreeMemory(memory vk.DeviceMemory) {
	delete(m.memory, memory)
	m.liveMemory--
}

func (m *mockDevice) WriteMemory(memory vk.DeviceMemory, offset vk.DeviceSize, data []byte) error {
	dst, ok := m.memory[memory]
	if !ok {
		return errors.New("write to unknown memory")
	}
	copy(dst[offset:], data)
	return nil
}

// Buffers, images and samplers

func (m *mockDevice) CreateBuffer(info *vk.BufferCreateInfo) (vk.Buffer, error) {
	m.liveBuffers++
	m.createdBuffers++
	buffer := vk.Buffer(m.handle())
	m.bufferSizes[buffer] = info.Size
	return buffer, nil
}

func (m *mockDevice) DestroyBuffer(buffer vk.Buffer) {
	delete(m.bufferSizes, buffer)
	m.liveBuffers--
}

func (m *mockDevice) BufferMemoryRequirements(buffer vk.Buffer) vk.MemoryRequirements {
	return vk.MemoryRequirements{Size: m.bufferSizes[buffer], MemoryTypeBits: 0b11}
}

func (m *mockDevice) BindBufferMemory(buffer vk.Buffer, memory vk.DeviceMemory) error { return nil }

func (m *mockDevice) CreateImage(info *vk.ImageCreateInfo) (vk.Image, error) {
	m.liveImages++
	return vk.Image(m.handle()), nil
}

func (m *mockDevice) DestroyImage(image vk.Image) { m.liveImages-- }

func (m *mockDevice) ImageMemoryRequirements(image vk.Image) vk.MemoryRequirements {
	return vk.MemoryRequirements{Size: 1024, MemoryTypeBits: 0b11}
}

func (m *mockDevice) BindImageMemory(image vk.Image, memory vk.DeviceMemory) error { return nil }

func (m *mockDevice) CreateImageView(info *vk.ImageViewCreateInfo) (vk.ImageView, error) {
	m.liveViews++
	return vk.ImageView(m.handle()), nil
}

func (m *mockDevice) DestroyImageView(view vk.ImageView) { m.liveViews-- }

func (m *mockDevice) CreateSampler(info *vk.SamplerCreateInfo) (vk.Sampler, error) {
	m.liveSamplers++
	return vk.Sampler(m.handle()), nil
}

func (m *mockDevice) DestroySampler(sampler vk.Sampler) { m.liveSamplers-- }

// Descriptors

func (m *mockDevice) CreateDescriptorPool(info *vk.DescriptorPoolCreateInfo) (vk.DescriptorPool, error) {
	m.livePools++
	return vk.DescriptorPool(m.handle()), nil
}

func (m *mockDevice) DestroyDescriptorPool(pool vk.DescriptorPool) { m.livePools-- }

func (m *mockDevice) CreateDescriptorSetLayout(info *vk.DescriptorSetLayoutCreateInfo) (vk.DescriptorSetLayout, error) {
	m.createdLayouts++
	m.liveLayouts++
	return vk.DescriptorSetLayout(m.handle()), nil
}

func (m *mockDevice) DestroyDescriptorSetLayout(layout vk.DescriptorSetLayout) { m.liveLayouts-- }

func (m *mockDevice) AllocateDescriptorSet(pool vk.DescriptorPool, layout vk.DescriptorSetLayout) (vk.DescriptorSet, error) {
	return vk.DescriptorSet(m.handle()), nil
}

func (m *mockDevice) UpdateDescriptorSets(writes []vk.WriteDescriptorSet) {
	m.descriptorUpdates = append(m.descriptorUpdates, writes)
}

// Pipelines

func (m *mockDevice) CreateShaderModule(code []byte) (vk.ShaderModule, error) {
	if m.failShaderModule {
		return vk.NullShaderModule, errors.New("bad module")
	}
	m.createdModules++
	m.liveModules++
	return vk.ShaderModule(m.handle()), nil
}

func (m *mockDevice) DestroyShaderModule(module vk.ShaderModule) { m.liveModules-- }

func (m *mockDevice) CreatePipelineLayout(info *vk.PipelineLayoutCreateInfo) (vk.PipelineLayout, error) {
	return vk.PipelineLayout(m.handle()), nil
}

func (m *mockDevice) DestroyPipelineLayout(layout vk.PipelineLayout) {}

func (m *mockDevice) CreateGraphicsPipeline(info *vk.GraphicsPipelineCreateInfo) (vk.Pipeline, error) {
	m.createdPipeline++
	m.livePipelines++
	return vk.Pipeline(m.handle()), nil
}

func (m *mockDevice) DestroyPipeline(pipeline vk.Pipeline) { m.livePipelines-- }

// Command recording

func (m *mockDevice) CmdPipelineBarrier(cmd vk.CommandBuffer, src, dst vk.PipelineStageFlags, barriers []vk.ImageMemoryBarrier) {
	m.barriers += len(barriers)
}

func (m *mockDevice) CmdBeginRendering(cmd vk.CommandBuffer, info vk.RenderingInfo) {
	m.renderings++
	m.depthTargets = append(m.depthTargets, len(info.PDepthAttachment))
}

func (m *mockDevice) CmdEndRendering(cmd vk.CommandBuffer)                       {}
func (m *mockDevice) CmdBindPipeline(cmd vk.CommandBuffer, pipeline vk.Pipeline) {}
func (m *mockDevice) CmdSetViewport(cmd vk.CommandBuffer, viewport vk.Viewport)  {}
func (m *mockDevice) CmdSetScissor(cmd vk.CommandBuffer, scissor vk.Rect2D)      {}

func (m *mockDevice) CmdBindDescriptorSets(cmd vk.CommandBuffer, layout vk.PipelineLayout, sets []vk.DescriptorSet) {
}

func (m *mockDevice) CmdPushConstants(cmd vk.CommandBuffer, layout vk.PipelineLayout, stages vk.ShaderStageFlags, offset uint32, data []byte) {
	m.pushConstants++
}

func (m *mockDevice) CmdBindVertexBuffers(cmd vk.CommandBuffer, buffers []vk.Buffer, offsets []vk.DeviceSize) {
}

func (m *mockDevice) CmdBindIndexBuffer(cmd vk.CommandBuffer, buffer vk.Buffer, indexType vk.IndexType) {
}

func (m *mockDevice) CmdDraw(cmd vk.CommandBuffer, vertexCount, instanceCount uint32) { m.draws++ }

func (m *mockDevice) CmdDrawIndexed(cmd vk.CommandBuffer, indexCount, instanceCount uint32) {
	m.indexedDraws++
}

func (m *mockDevice) CmdCopyBuffer(cmd vk.CommandBuffer, src, dst vk.Buffer, regions []vk.BufferCopy) {
	m.bufferCopies++
}

func (m *mockDevice) CmdCopyBufferToImage(cmd vk.CommandBuffer, src vk.Buffer, dst vk.Image, layout vk.ImageLayout, regions []vk.BufferImageCopy) {
	m.imageCopies++
}

// mockWindow reports the framebuffer sizes in sizes one PollEvents at a time, then keeps
// returning the last one.
type mockWindow struct {
	sizes    [][2]int
	polls    int
	outdated bool
	resets   int
}

func (w *mockWindow) FramebufferSize() (int, int) {
	i := w.polls
	if i >= len(w.sizes) {
		i = len(w.sizes) - 1
	}
	return w.sizes[i][0], w.sizes[i][1]
}

func (w *mockWindow) IsOutdated() bool { return w.outdated }
func (w *mockWindow) PollEvents()      { w.polls++ }

func (w *mockWindow) ResetOutdated() {
	w.outdated = false
	w.resets++
}

// writeShaders puts a dummy SPIR-V file for every stage the renderer loads into a temp dir.
func writeShaders(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	names := []string{postProcessShader}
	for pass := scatterPass(0); pass < passCount; pass++ {
		for variant := 0; variant < variantCount; variant++ {
			names = append(names, shaderName(pass, variant))
		}
	}
	for _, name := range names {
		for _, stage := range []string{"vert", "frag"} {
			require.NoError(t, os.WriteFile(filepath.Join(dir, name+"."+stage+".spv"), []byte{0x03, 0x02, 0x23, 0x07}, 0o644))
		}
	}
	return dir
}

func newTestContext(t *testing.T, device *mockDevice, width, height uint32) *GraphicsContext {
	t.Helper()
	ctx, err := NewGraphicsContext(device, vk.Extent2D{Width: width, Height: height})
	require.NoError(t, err)
	return ctx
}

package vulkan

import (
	"unsafe"

	vk "github.com/goki/vulkan"
)

// uniformGroup is the type-erased view of a UniformBufferGroup used when binding descriptors.
type uniformGroup interface {
	Buffer(index int) *VulkanBuffer
	Size() vk.DeviceSize
	Len() int
	Destroy()
}

// UniformBufferGroup holds one persistently host-visible uniform buffer of T per swapchain image.
type UniformBufferGroup[T any] struct {
	buffers []VulkanBuffer
}

func NewUniformBufferGroup[T any](context *GraphicsContext, count uint32) (*UniformBufferGroup[T], error) {
	var zero T
	g := &UniformBufferGroup[T]{buffers: make([]VulkanBuffer, count)}
	allocator := NewBufferAllocator(context).
		SetUsage(vk.BufferUsageFlags(vk.BufferUsageUniformBufferBit)).
		HostAccess(true)
	for i := range g.buffers {
		if err := allocator.SetSize(vk.DeviceSize(unsafe.Sizeof(zero))).Allocate(&g.buffers[i]); err != nil {
			g.Destroy()
			return nil, err
		}
	}
	return g, nil
}

// Update overwrites the buffer of image index with value.
func (g *UniformBufferGroup[T]) Update(index int, value *T) error {
	return g.buffers[index].MapData(0, bytesOf(value))
}

func (g *UniformBufferGroup[T]) Buffer(index int) *VulkanBuffer { return &g.buffers[index] }

func (g *UniformBufferGroup[T]) Len() int {
	if g == nil {
		return 0
	}
	return len(g.buffers)
}

func (g *UniformBufferGroup[T]) Size() vk.DeviceSize {
	var zero T
	return vk.DeviceSize(unsafe.Sizeof(zero))
}

func (g *UniformBufferGroup[T]) Destroy() {
	if g == nil {
		return
	}
	for i := range g.buffers {
		g.buffers[i].Destroy()
	}
	g.buffers = nil
}

package vulkan

import (
	"unsafe"

	vk "github.com/goki/vulkan"

	"github.com/Kobazaaa/Ashen/engine/core"
	"github.com/Kobazaaa/Ashen/engine/renderer/metadata"
)

// VertexBindingDescriptions describes the single interleaved vertex stream of metadata.Vertex.
func VertexBindingDescriptions() []vk.VertexInputBindingDescription {
	return []vk.VertexInputBindingDescription{{
		Binding:   0,
		Stride:    uint32(unsafe.Sizeof(metadata.Vertex{})),
		InputRate: vk.VertexInputRateVertex,
	}}
}

func VertexAttributeDescriptions() []vk.VertexInputAttributeDescription {
	return []vk.VertexInputAttributeDescription{
		{
			Location: 0,
			Binding:  0,
			Format:   vk.FormatR32g32b32Sfloat,
			Offset:   uint32(unsafe.Offsetof(metadata.Vertex{}.Position)),
		},
		{
			Location: 1,
			Binding:  0,
			Format:   vk.FormatR32g32b32Sfloat,
			Offset:   uint32(unsafe.Offsetof(metadata.Vertex{}.Color)),
		},
	}
}

// Mesh is an immutable pair of device-local vertex and index buffers.
type Mesh struct {
	Name         string
	VertexBuffer VulkanBuffer
	IndexBuffer  VulkanBuffer
	IndexCount   uint32

	device Device
}

func NewMesh(context *GraphicsContext, geometry *metadata.Geometry) (*Mesh, error) {
	m := &Mesh{
		Name:       geometry.Name,
		IndexCount: uint32(len(geometry.Indices)),
		device:     context.Device,
	}
	allocator := NewBufferAllocator(context)

	if err := allocator.
		SetSize(0).
		SetUsage(vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit)).
		HostAccess(false).
		AddInitialData(bytesOfSlice(geometry.Vertices)).
		Allocate(&m.VertexBuffer); err != nil {
		core.LogError("failed to create vertex buffer for mesh %s: %s", m.Name, err)
		return nil, err
	}
	if err := allocator.
		SetSize(0).
		SetUsage(vk.BufferUsageFlags(vk.BufferUsageIndexBufferBit)).
		AddInitialData(bytesOfSlice(geometry.Indices)).
		Allocate(&m.IndexBuffer); err != nil {
		core.LogError("failed to create index buffer for mesh %s: %s", m.Name, err)
		m.VertexBuffer.Destroy()
		return nil, err
	}
	core.LogDebug("Mesh %s uploaded: %d vertices, %d indices.", m.Name, len(geometry.Vertices), m.IndexCount)
	return m, nil
}

func (m *Mesh) Bind(cmd vk.CommandBuffer) {
	m.device.CmdBindVertexBuffers(cmd, []vk.Buffer{m.VertexBuffer.Handle}, []vk.DeviceSize{0})
	m.device.CmdBindIndexBuffer(cmd, m.IndexBuffer.Handle, vk.IndexTypeUint32)
}

func (m *Mesh) Draw(cmd vk.CommandBuffer) {
	m.device.CmdDrawIndexed(cmd, m.IndexCount, 1)
}

func (m *Mesh) Destroy() {
	m.IndexBuffer.Destroy()
	m.VertexBuffer.Destroy()
}

package vulkan

import (
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStagedBufferUpload(t *testing.T) {
	device := newMockDevice()
	ctx := newTestContext(t, device, 640, 480)
	data := []byte{1, 2, 3, 4, 5, 6, 7, 8}

	var buffer VulkanBuffer
	err := NewBufferAllocator(ctx).
		SetUsage(vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit)).
		AddInitialData(data).
		Allocate(&buffer)
	require.NoError(t, err)

	assert.Equal(t, vk.DeviceSize(len(data)), buffer.Size)
	assert.NotZero(t, buffer.Usage&vk.BufferUsageFlags(vk.BufferUsageTransferDstBit))
	assert.Equal(t, 1, device.bufferCopies)
	assert.Equal(t, 1, device.submits)
	assert.Equal(t, 1, device.queueWaitIdles)
	// Staging buffer and the one-shot command buffer are gone again.
	assert.Equal(t, 1, device.liveBuffers)
	assert.Equal(t, 1, device.liveMemory)
	assert.Equal(t, 0, device.liveCmdBuffers)
	assert.Error(t, buffer.MapData(0, data), "device local buffers cannot be mapped")

	buffer.Destroy()
	assert.Equal(t, 0, device.liveBuffers)
	assert.Equal(t, 0, device.liveMemory)
}

func TestHostVisibleBufferWritesDirectly(t *testing.T) {
	device := newMockDevice()
	ctx := newTestContext(t, device, 640, 480)

	var buffer VulkanBuffer
	err := NewBufferAllocator(ctx).
		SetUsage(vk.BufferUsageFlags(vk.BufferUsageUniformBufferBit)).
		HostAccess(true).
		AddInitialData([]byte{9, 8, 7, 6}).
		Allocate(&buffer)
	require.NoError(t, err)
	defer buffer.Destroy()

	assert.Zero(t, device.bufferCopies)
	assert.Zero(t, device.submits)
	assert.Equal(t, []byte{9, 8, 7, 6}, device.memory[buffer.Memory][:4])

	require.NoError(t, buffer.MapData(2, []byte{1, 1}))
	assert.Equal(t, []byte{9, 8, 1, 1}, device.memory[buffer.Memory][:4])
	assert.Error(t, buffer.MapData(3, []byte{1, 1}))
}

func TestBufferAllocatorRejectsZeroSize(t *testing.T) {
	ctx := newTestContext(t, newMockDevice(), 640, 480)
	var buffer VulkanBuffer
	assert.Error(t, NewBufferAllocator(ctx).Allocate(&buffer))
}

func TestUniformBufferGroup(t *testing.T) {
	device := newMockDevice()
	ctx := newTestContext(t, device, 640, 480)

	type payload struct {
		A float32
		B [3]float32
	}
	group, err := NewUniformBufferGroup[payload](ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, group.Len())
	assert.Equal(t, vk.DeviceSize(16), group.Size())

	require.NoError(t, group.Update(1, &payload{A: 1}))
	assert.Equal(t, []byte{0, 0, 0x80, 0x3f}, device.memory[group.Buffer(1).Memory][:4])

	group.Destroy()
	assert.Zero(t, group.Len())
	assert.Zero(t, device.liveBuffers)
}

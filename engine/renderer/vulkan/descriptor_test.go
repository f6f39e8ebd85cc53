package vulkan

import (
	"testing"
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func allocateTestSet(t *testing.T, ctx *GraphicsContext, pool vk.DescriptorPool, imageCount uint32) *VulkanDescriptorSet {
	t.Helper()
	var set VulkanDescriptorSet
	err := NewDescriptorSetAllocator(ctx).
		NewLayoutBinding().
		SetShaderStages(vk.ShaderStageFlags(vk.ShaderStageVertexBit)).
		EndLayoutBinding().
		NewLayoutBinding().
		SetType(vk.DescriptorTypeCombinedImageSampler).
		SetCount(imageCount).
		SetShaderStages(vk.ShaderStageFlags(vk.ShaderStageFragmentBit)).
		EndLayoutBinding().
		Allocate(pool, &set)
	require.NoError(t, err)
	return &set
}

func TestDescriptorSetAllocatorSharesLayouts(t *testing.T) {
	device := newMockDevice()
	ctx := newTestContext(t, device, 640, 480)
	pool, err := NewDescriptorPoolBuilder(device).
		AddPoolSize(vk.DescriptorTypeUniformBuffer, 4).
		AddPoolSize(vk.DescriptorTypeCombinedImageSampler, 8).
		SetMaxSets(4).
		Build()
	require.NoError(t, err)

	a := allocateTestSet(t, ctx, pool, 2)
	b := allocateTestSet(t, ctx, pool, 2)
	c := allocateTestSet(t, ctx, pool, 3)

	assert.Equal(t, handleID(unsafe.Pointer(a.Layout)), handleID(unsafe.Pointer(b.Layout)))
	assert.NotEqual(t, handleID(unsafe.Pointer(a.Layout)), handleID(unsafe.Pointer(c.Layout)))
	assert.Equal(t, "0:0:6:1:1|0:1:1:2:16|", a.Signature)
	assert.Equal(t, 2, ctx.LayoutCache().Len())

	a.Destroy()
	assert.Equal(t, 1, ctx.LayoutCache().RefCount(b.Signature))
	b.Destroy()
	c.Destroy()
	assert.Zero(t, device.liveLayouts)

	// Destroying twice gives nothing back a second time.
	a.Destroy()
	assert.Zero(t, device.liveLayouts)
}

func TestDescriptorSetWriterFlushesOnce(t *testing.T) {
	device := newMockDevice()
	ctx := newTestContext(t, device, 640, 480)
	pool, err := NewDescriptorPoolBuilder(device).AddPoolSize(vk.DescriptorTypeUniformBuffer, 4).SetMaxSets(2).Build()
	require.NoError(t, err)

	set := allocateTestSet(t, ctx, pool, 2)
	var ubo VulkanBuffer
	require.NoError(t, NewBufferAllocator(ctx).SetSize(64).HostAccess(true).
		SetUsage(vk.BufferUsageFlags(vk.BufferUsageUniformBufferBit)).Allocate(&ubo))

	writer := NewDescriptorSetWriter(device)
	err = writer.
		AddBufferInfo(&ubo, 0, 64).
		WriteBuffers(set, 0, WholeBinding).
		AddImageInfo(nil, nil, vk.ImageLayoutShaderReadOnlyOptimal).
		AddImageInfo(nil, nil, vk.ImageLayoutShaderReadOnlyOptimal).
		WriteImages(set, 1, WholeBinding).
		Execute()
	require.NoError(t, err)

	require.Len(t, device.descriptorUpdates, 1)
	writes := device.descriptorUpdates[0]
	require.Len(t, writes, 2)
	assert.Equal(t, vk.DescriptorTypeUniformBuffer, writes[0].DescriptorType)
	assert.Equal(t, uint32(1), writes[0].DescriptorCount)
	assert.Len(t, writes[0].PBufferInfo, 1)
	assert.Equal(t, vk.DescriptorTypeCombinedImageSampler, writes[1].DescriptorType)
	assert.Equal(t, uint32(2), writes[1].DescriptorCount)
	assert.Len(t, writes[1].PImageInfo, 2)

	// The accumulation lists were cleared, so an empty flush writes nothing.
	require.NoError(t, writer.Execute())
	assert.Empty(t, device.descriptorUpdates[1])
}

func TestDescriptorSetWriterRejectsShortInfoLists(t *testing.T) {
	device := newMockDevice()
	ctx := newTestContext(t, device, 640, 480)
	pool, err := NewDescriptorPoolBuilder(device).AddPoolSize(vk.DescriptorTypeUniformBuffer, 4).SetMaxSets(2).Build()
	require.NoError(t, err)
	set := allocateTestSet(t, ctx, pool, 3)

	err = NewDescriptorSetWriter(device).
		AddImageInfo(nil, nil, vk.ImageLayoutShaderReadOnlyOptimal).
		WriteImages(set, 1, WholeBinding).
		Execute()
	assert.Error(t, err)

	err = NewDescriptorSetWriter(device).
		AddImageInfo(nil, nil, vk.ImageLayoutShaderReadOnlyOptimal).
		WriteImages(set, 7, 1).
		Execute()
	assert.Error(t, err)
	assert.Empty(t, device.descriptorUpdates)
}

package vulkan

import (
	"testing"
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func uboBinding(binding uint32, stage vk.ShaderStageFlagBits) vk.DescriptorSetLayoutBinding {
	return vk.DescriptorSetLayoutBinding{
		Binding:         binding,
		DescriptorType:  vk.DescriptorTypeUniformBuffer,
		DescriptorCount: 1,
		StageFlags:      vk.ShaderStageFlags(stage),
	}
}

func TestLayoutSignature(t *testing.T) {
	bindings := []vk.DescriptorSetLayoutBinding{
		uboBinding(0, vk.ShaderStageVertexBit),
		{Binding: 1, DescriptorType: vk.DescriptorTypeCombinedImageSampler, DescriptorCount: 4, StageFlags: vk.ShaderStageFlags(vk.ShaderStageFragmentBit)},
	}
	flags := []vk.DescriptorBindingFlags{0, vk.DescriptorBindingFlags(vk.DescriptorBindingPartiallyBoundBit)}

	assert.Equal(t, "0:0:6:1:1|4:1:1:4:16|", LayoutSignature(bindings, flags))
	assert.Equal(t, "0:0:6:1:1|0:1:1:4:16|", LayoutSignature(bindings, nil))
}

func TestLayoutCacheDeduplicates(t *testing.T) {
	device := newMockDevice()
	cache := NewLayoutCache(device)
	bindings := []vk.DescriptorSetLayoutBinding{uboBinding(0, vk.ShaderStageVertexBit)}

	first, sig, err := cache.Acquire(bindings, nil)
	require.NoError(t, err)
	second, sig2, err := cache.Acquire(bindings, nil)
	require.NoError(t, err)

	assert.Equal(t, handleID(unsafe.Pointer(first)), handleID(unsafe.Pointer(second)))
	assert.Equal(t, sig, sig2)
	assert.Equal(t, 1, device.createdLayouts)
	assert.Equal(t, 2, cache.RefCount(sig))
}

func TestLayoutCacheDistinguishesShapes(t *testing.T) {
	device := newMockDevice()
	cache := NewLayoutCache(device)

	variants := [][]vk.DescriptorSetLayoutBinding{
		{uboBinding(0, vk.ShaderStageVertexBit)},
		{uboBinding(0, vk.ShaderStageFragmentBit)},
		{uboBinding(1, vk.ShaderStageVertexBit)},
		{uboBinding(0, vk.ShaderStageVertexBit), uboBinding(1, vk.ShaderStageFragmentBit)},
	}
	layouts := map[vk.DescriptorSetLayout]bool{}
	for _, bindings := range variants {
		layout, _, err := cache.Acquire(bindings, nil)
		require.NoError(t, err)
		layouts[layout] = true
	}
	_, _, err := cache.Acquire(variants[0], []vk.DescriptorBindingFlags{vk.DescriptorBindingFlags(vk.DescriptorBindingPartiallyBoundBit)})
	require.NoError(t, err)

	assert.Len(t, layouts, len(variants))
	assert.Equal(t, 5, cache.Len())
	assert.Equal(t, 5, device.createdLayouts)
	assert.IsIncreasing(t, cache.Keys())
}

func TestLayoutCacheReleaseDestroysOnLastReference(t *testing.T) {
	device := newMockDevice()
	cache := NewLayoutCache(device)
	bindings := []vk.DescriptorSetLayoutBinding{uboBinding(0, vk.ShaderStageVertexBit)}

	_, sig, err := cache.Acquire(bindings, nil)
	require.NoError(t, err)
	_, _, err = cache.Acquire(bindings, nil)
	require.NoError(t, err)

	cache.Release(sig)
	assert.Equal(t, 1, device.liveLayouts)
	assert.Equal(t, 1, cache.RefCount(sig))

	cache.Release(sig)
	assert.Equal(t, 0, device.liveLayouts)
	assert.Zero(t, cache.Len())

	// A stray release must not destroy anything twice.
	cache.Release(sig)
	assert.Equal(t, 0, device.liveLayouts)

	_, _, err = cache.Acquire(bindings, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, device.createdLayouts)
	cache.Destroy()
	assert.Equal(t, 0, device.liveLayouts)
}

package vulkan

import (
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kobazaaa/Ashen/engine/core"
)

func TestAspectFollowsFormat(t *testing.T) {
	assert.Equal(t, vk.ImageAspectFlags(vk.ImageAspectColorBit), aspectForFormat(vk.FormatR8g8b8a8Unorm))
	assert.Equal(t, vk.ImageAspectFlags(vk.ImageAspectDepthBit), aspectForFormat(vk.FormatD32Sfloat))
	assert.Equal(t, vk.ImageAspectFlags(vk.ImageAspectDepthBit|vk.ImageAspectStencilBit), aspectForFormat(vk.FormatD24UnormS8Uint))
	assert.True(t, HasStencilComponent(vk.FormatD32SfloatS8Uint))
	assert.False(t, HasStencilComponent(vk.FormatD32Sfloat))
}

func TestFindSupportedFormat(t *testing.T) {
	device := newMockDevice()
	device.depthFormats = map[vk.Format]bool{vk.FormatD24UnormS8Uint: true}
	depth := vk.FormatFeatureFlags(vk.FormatFeatureDepthStencilAttachmentBit)

	format, err := FindSupportedFormat(device, []vk.Format{vk.FormatD32Sfloat, vk.FormatD24UnormS8Uint}, vk.ImageTilingOptimal, depth)
	require.NoError(t, err)
	assert.Equal(t, vk.FormatD24UnormS8Uint, format)

	_, err = FindSupportedFormat(device, []vk.Format{vk.FormatD24UnormS8Uint}, vk.ImageTilingLinear, depth)
	assert.ErrorIs(t, err, core.ErrNoSupportedFormat)
}

func TestImageUploadTransitionsAroundCopy(t *testing.T) {
	device := newMockDevice()
	ctx := newTestContext(t, device, 640, 480)

	var image VulkanImage
	err := NewImageBuilder(ctx).
		SetWidth(2).
		SetHeight(2).
		SetUsageFlags(vk.ImageUsageFlags(vk.ImageUsageSampledBit)).
		InitialData(make([]byte, 16), vk.ImageLayoutShaderReadOnlyOptimal).
		Build(&image)
	require.NoError(t, err)

	assert.Equal(t, 1, device.imageCopies)
	assert.Equal(t, 2, device.barriers)
	assert.Equal(t, 1, device.queueWaitIdles)
	assert.Equal(t, vk.ImageLayoutShaderReadOnlyOptimal, image.Layout)
	assert.Zero(t, device.liveCmdBuffers)

	image.Destroy()
	assert.Zero(t, device.liveImages)
}

func TestImageBuilderRejectsZeroExtent(t *testing.T) {
	ctx := newTestContext(t, newMockDevice(), 640, 480)
	var image VulkanImage
	err := NewImageBuilder(ctx).SetWidth(0).SetHeight(4).Build(&image)
	assert.ErrorIs(t, err, core.ErrZeroExtent)
}

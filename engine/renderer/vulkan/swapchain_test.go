package vulkan

import (
	"math"
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kobazaaa/Ashen/engine/core"
)

func TestChooseSurfaceFormat(t *testing.T) {
	preferred := vk.SurfaceFormat{Format: vk.FormatB8g8r8a8Srgb, ColorSpace: vk.ColorSpaceSrgbNonlinear}
	other := vk.SurfaceFormat{Format: vk.FormatR8g8b8a8Unorm, ColorSpace: vk.ColorSpaceSrgbNonlinear}

	assert.Equal(t, preferred, chooseSurfaceFormat([]vk.SurfaceFormat{other, preferred}))
	assert.Equal(t, other, chooseSurfaceFormat([]vk.SurfaceFormat{other}))
}

func TestChoosePresentMode(t *testing.T) {
	assert.Equal(t, vk.PresentModeMailbox, choosePresentMode([]vk.PresentMode{vk.PresentModeFifo, vk.PresentModeMailbox}))
	assert.Equal(t, vk.PresentModeFifo, choosePresentMode([]vk.PresentMode{vk.PresentModeImmediate, vk.PresentModeFifo}))
	assert.Equal(t, vk.PresentModeFifo, choosePresentMode(nil))
}

func TestChooseExtent(t *testing.T) {
	caps := vk.SurfaceCapabilities{
		CurrentExtent:  vk.Extent2D{Width: math.MaxUint32, Height: math.MaxUint32},
		MinImageExtent: vk.Extent2D{Width: 64, Height: 64},
		MaxImageExtent: vk.Extent2D{Width: 1920, Height: 1080},
	}
	assert.Equal(t, vk.Extent2D{Width: 800, Height: 600}, chooseExtent(caps, vk.Extent2D{Width: 800, Height: 600}))
	assert.Equal(t, vk.Extent2D{Width: 1920, Height: 64}, chooseExtent(caps, vk.Extent2D{Width: 4000, Height: 10}))

	caps.CurrentExtent = vk.Extent2D{Width: 1024, Height: 768}
	assert.Equal(t, caps.CurrentExtent, chooseExtent(caps, vk.Extent2D{Width: 800, Height: 600}))
}

func TestChooseImageCount(t *testing.T) {
	assert.Equal(t, uint32(3), chooseImageCount(vk.SurfaceCapabilities{MinImageCount: 2, MaxImageCount: 8}))
	assert.Equal(t, uint32(2), chooseImageCount(vk.SurfaceCapabilities{MinImageCount: 2, MaxImageCount: 2}))
	assert.Equal(t, uint32(4), chooseImageCount(vk.SurfaceCapabilities{MinImageCount: 3}))
}

func TestRebuildSwapchainRoundTrip(t *testing.T) {
	device := newMockDevice()
	ctx := newTestContext(t, device, 1280, 720)
	assert.Equal(t, vk.Extent2D{Width: 1280, Height: 720}, ctx.GetSwapchainExtent())
	assert.Equal(t, uint32(3), ctx.ImageCount())
	assert.Len(t, ctx.SwapchainViews(), 3)
	assert.Equal(t, vk.FormatB8g8r8a8Srgb, ctx.SwapchainFormat())

	require.NoError(t, ctx.RebuildSwapchain(vk.Extent2D{Width: 800, Height: 600}))
	assert.Equal(t, vk.Extent2D{Width: 800, Height: 600}, ctx.GetSwapchainExtent())

	require.NoError(t, ctx.RebuildSwapchain(vk.Extent2D{Width: 9000, Height: 600}))
	assert.Equal(t, vk.Extent2D{Width: 4096, Height: 600}, ctx.GetSwapchainExtent())

	// Only the swapchain and its views were replaced.
	assert.Equal(t, 1, device.liveSwapchains)
	assert.Equal(t, 3, device.liveViews)
	assert.Len(t, device.swapchainInfos, 3)
	assert.Equal(t, vk.SharingModeExclusive, device.swapchainInfos[2].ImageSharingMode)
}

func TestRebuildSwapchainRejectsZeroExtent(t *testing.T) {
	device := newMockDevice()
	ctx := newTestContext(t, device, 1280, 720)

	err := ctx.RebuildSwapchain(vk.Extent2D{Width: 0, Height: 720})
	assert.ErrorIs(t, err, core.ErrZeroExtent)
	assert.Len(t, device.swapchainInfos, 1)
	assert.Equal(t, vk.Extent2D{Width: 1280, Height: 720}, ctx.GetSwapchainExtent())
}

func TestSwapchainSharesImagesAcrossFamilies(t *testing.T) {
	device := newMockDevice()
	device.presentIdx = 1
	newTestContext(t, device, 640, 480)

	info := device.swapchainInfos[0]
	assert.Equal(t, vk.SharingModeConcurrent, info.ImageSharingMode)
	assert.Equal(t, []uint32{0, 1}, info.PQueueFamilyIndices)
}

func TestPresentResults(t *testing.T) {
	device := newMockDevice()
	ctx := newTestContext(t, device, 640, 480)
	device.presentScript = []vk.Result{vk.Success, vk.Suboptimal, vk.ErrorOutOfDate, vk.ErrorDeviceLost}

	for _, want := range []PresentResult{PresentOK, PresentOutOfDate, PresentOutOfDate} {
		got, err := ctx.Present(0, nil)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	got, err := ctx.Present(0, nil)
	assert.Error(t, err)
	assert.Equal(t, PresentError, got)
	assert.Equal(t, "ERROR", got.String())
}

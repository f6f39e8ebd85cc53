package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/Kobazaaa/Ashen/engine/core"
)

type VulkanFence struct {
	Handle     vk.Fence
	IsSignaled bool

	device Device
}

func NewFence(device Device, createSignaled bool) (*VulkanFence, error) {
	handle, err := device.CreateFence(createSignaled)
	if err != nil {
		core.LogError("failed to create fence: %s", err)
		return nil, err
	}
	return &VulkanFence{
		Handle:     handle,
		IsSignaled: createSignaled,
		device:     device,
	}, nil
}

func (vf *VulkanFence) Destroy() {
	if vf.Handle != vk.NullFence {
		vf.device.DestroyFence(vf.Handle)
		vf.Handle = vk.NullFence
	}
	vf.IsSignaled = false
}

// Wait blocks until the fence is signaled by the device. The driver is always asked,
// since a submission made after the last observed signal re-arms the fence.
func (vf *VulkanFence) Wait(timeoutNs uint64) error {
	result := vf.device.WaitForFence(vf.Handle, timeoutNs)
	switch result {
	case vk.Success:
		vf.IsSignaled = true
		return nil
	case vk.Timeout:
		core.LogWarn("vk_fence_wait - Timed out")
	case vk.ErrorDeviceLost:
		core.LogError("vk_fence_wait - VK_ERROR_DEVICE_LOST.")
	default:
		core.LogError("vk_fence_wait - %s", VulkanResultString(result))
	}
	return fmt.Errorf("fence wait failed with %s", VulkanResultString(result))
}

// Reset returns the fence to the unsignaled state so it can guard the next submission.
func (vf *VulkanFence) Reset() error {
	if err := vf.device.ResetFence(vf.Handle); err != nil {
		core.LogError(err.Error())
		return err
	}
	vf.IsSignaled = false
	return nil
}

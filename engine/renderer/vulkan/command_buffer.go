package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/Kobazaaa/Ashen/engine/core"
)

type VulkanCommandBufferState int

const (
	COMMAND_BUFFER_STATE_READY VulkanCommandBufferState = iota
	COMMAND_BUFFER_STATE_RECORDING
	COMMAND_BUFFER_STATE_RECORDING_ENDED
	COMMAND_BUFFER_STATE_SUBMITTED
	COMMAND_BUFFER_STATE_NOT_ALLOCATED
)

func (s VulkanCommandBufferState) String() string {
	switch s {
	case COMMAND_BUFFER_STATE_READY:
		return "READY"
	case COMMAND_BUFFER_STATE_RECORDING:
		return "RECORDING"
	case COMMAND_BUFFER_STATE_RECORDING_ENDED:
		return "RECORDING_ENDED"
	case COMMAND_BUFFER_STATE_SUBMITTED:
		return "SUBMITTED"
	case COMMAND_BUFFER_STATE_NOT_ALLOCATED:
		return "NOT_ALLOCATED"
	}
	return "UNKNOWN"
}

type VulkanCommandBuffer struct {
	Handle vk.CommandBuffer
	// Command buffer state.
	State VulkanCommandBufferState
}

// AllocateCommandBuffers allocates count primary command buffers from pool.
func AllocateCommandBuffers(device Device, pool vk.CommandPool, count uint32) ([]*VulkanCommandBuffer, error) {
	handles, err := device.AllocateCommandBuffers(pool, count)
	if err != nil {
		core.LogError("failed to allocate command buffers: %s", err)
		return nil, err
	}
	buffers := make([]*VulkanCommandBuffer, len(handles))
	for i, handle := range handles {
		buffers[i] = &VulkanCommandBuffer{
			Handle: handle,
			State:  COMMAND_BUFFER_STATE_READY,
		}
	}
	return buffers, nil
}

// FreeCommandBuffers returns every buffer to pool in one call.
func FreeCommandBuffers(device Device, pool vk.CommandPool, buffers []*VulkanCommandBuffer) {
	handles := make([]vk.CommandBuffer, 0, len(buffers))
	for _, cb := range buffers {
		if cb.Handle == nil {
			continue
		}
		handles = append(handles, cb.Handle)
		cb.Handle = nil
		cb.State = COMMAND_BUFFER_STATE_NOT_ALLOCATED
	}
	device.FreeCommandBuffers(pool, handles)
}

func (v *VulkanCommandBuffer) expect(op string, states ...VulkanCommandBufferState) error {
	for _, state := range states {
		if v.State == state {
			return nil
		}
	}
	err := fmt.Errorf("command buffer %s in state %s", op, v.State)
	core.LogError(err.Error())
	return err
}

// Begin starts recording. The buffer must be freshly allocated or reset.
func (v *VulkanCommandBuffer) Begin(device Device, isSingleUse, isSimultaneousUse bool) error {
	if err := v.expect("begin", COMMAND_BUFFER_STATE_READY); err != nil {
		return err
	}
	var flags vk.CommandBufferUsageFlags
	if isSingleUse {
		flags |= vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit)
	}
	if isSimultaneousUse {
		flags |= vk.CommandBufferUsageFlags(vk.CommandBufferUsageSimultaneousUseBit)
	}
	if err := device.BeginCommandBuffer(v.Handle, flags); err != nil {
		core.LogError(err.Error())
		return err
	}
	v.State = COMMAND_BUFFER_STATE_RECORDING
	return nil
}

func (v *VulkanCommandBuffer) End(device Device) error {
	if err := v.expect("end", COMMAND_BUFFER_STATE_RECORDING); err != nil {
		return err
	}
	if err := device.EndCommandBuffer(v.Handle); err != nil {
		core.LogError(err.Error())
		return err
	}
	v.State = COMMAND_BUFFER_STATE_RECORDING_ENDED
	return nil
}

func (v *VulkanCommandBuffer) Reset(device Device) error {
	if err := v.expect("reset", COMMAND_BUFFER_STATE_READY, COMMAND_BUFFER_STATE_RECORDING,
		COMMAND_BUFFER_STATE_RECORDING_ENDED, COMMAND_BUFFER_STATE_SUBMITTED); err != nil {
		return err
	}
	if err := device.ResetCommandBuffer(v.Handle); err != nil {
		core.LogError(err.Error())
		return err
	}
	v.State = COMMAND_BUFFER_STATE_READY
	return nil
}

func (v *VulkanCommandBuffer) UpdateSubmitted() {
	v.State = COMMAND_BUFFER_STATE_SUBMITTED
}

// BeginSingleUse allocates a command buffer from pool and starts recording a one-time submission.
func BeginSingleUse(device Device, pool vk.CommandPool) (*VulkanCommandBuffer, error) {
	buffers, err := AllocateCommandBuffers(device, pool, 1)
	if err != nil {
		return nil, err
	}
	cb := buffers[0]
	if err := cb.Begin(device, true, false); err != nil {
		FreeCommandBuffers(device, pool, buffers)
		return nil, err
	}
	return cb, nil
}

// EndSingleUse ends recording, submits to queue, blocks until the queue is idle and frees the buffer.
// Only setup and resize paths may use it.
func (v *VulkanCommandBuffer) EndSingleUse(device Device, pool vk.CommandPool, queue vk.Queue) error {
	defer FreeCommandBuffers(device, pool, []*VulkanCommandBuffer{v})

	if err := v.End(device); err != nil {
		return err
	}
	submitInfo := vk.SubmitInfo{
		SType:              vk.StructureTypeSubmitInfo,
		CommandBufferCount: 1,
		PCommandBuffers:    []vk.CommandBuffer{v.Handle},
	}
	if err := device.QueueSubmit(queue, []vk.SubmitInfo{submitInfo}, vk.NullFence); err != nil {
		core.LogError(err.Error())
		return err
	}
	v.UpdateSubmitted()
	if err := device.QueueWaitIdle(queue); err != nil {
		core.LogError(err.Error())
		return err
	}
	return nil
}

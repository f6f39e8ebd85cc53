package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/google/uuid"

	"github.com/Kobazaaa/Ashen/engine/core"
)

const (
	hostAccessFlags  = vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCoherentBit)
	deviceLocalFlags = vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit)
)

// VulkanBuffer is a buffer handle with its bound memory. It is owned by whoever allocated
// it and must be released with Destroy.
type VulkanBuffer struct {
	Handle vk.Buffer
	Memory vk.DeviceMemory
	Size   vk.DeviceSize
	Usage  vk.BufferUsageFlags
	Name   string

	hostVisible bool
	device      Device
}

// MapData copies data into the buffer memory at offset. Only host-visible buffers can be written.
func (b *VulkanBuffer) MapData(offset vk.DeviceSize, data []byte) error {
	if !b.hostVisible {
		return fmt.Errorf("%s is not host visible", b.Name)
	}
	if offset+vk.DeviceSize(len(data)) > b.Size {
		return fmt.Errorf("write of %d bytes at %d overflows %s (%d bytes)", len(data), offset, b.Name, b.Size)
	}
	return b.device.WriteMemory(b.Memory, offset, data)
}

func (b *VulkanBuffer) Destroy() {
	if b.device == nil {
		return
	}
	if b.Handle != vk.NullBuffer {
		b.device.DestroyBuffer(b.Handle)
		b.Handle = vk.NullBuffer
	}
	if b.Memory != vk.NullDeviceMemory {
		b.device.FreeMemory(b.Memory)
		b.Memory = vk.NullDeviceMemory
	}
}

// BufferAllocator collects buffer parameters and creates buffers from them. A buffer with
// initial data that is not host accessible is filled through a staging buffer.
type BufferAllocator struct {
	context *GraphicsContext

	size        vk.DeviceSize
	usage       vk.BufferUsageFlags
	sharing     vk.SharingMode
	hostAccess  bool
	initialData []byte
}

func NewBufferAllocator(context *GraphicsContext) *BufferAllocator {
	return &BufferAllocator{
		context: context,
		sharing: vk.SharingModeExclusive,
	}
}

func (ba *BufferAllocator) SetSize(size vk.DeviceSize) *BufferAllocator {
	ba.size = size
	return ba
}

func (ba *BufferAllocator) SetUsage(usage vk.BufferUsageFlags) *BufferAllocator {
	ba.usage = usage
	return ba
}

func (ba *BufferAllocator) SetSharingMode(mode vk.SharingMode) *BufferAllocator {
	ba.sharing = mode
	return ba
}

func (ba *BufferAllocator) HostAccess(enabled bool) *BufferAllocator {
	ba.hostAccess = enabled
	return ba
}

// AddInitialData sets the bytes uploaded right after creation. A zero size is replaced by len(data).
func (ba *BufferAllocator) AddInitialData(data []byte) *BufferAllocator {
	ba.initialData = data
	if ba.size == 0 {
		ba.size = vk.DeviceSize(len(data))
	}
	return ba
}

// Allocate creates the buffer described so far into buffer and resets the initial data.
func (ba *BufferAllocator) Allocate(buffer *VulkanBuffer) error {
	defer func() { ba.initialData = nil }()

	if ba.size == 0 {
		return fmt.Errorf("buffer allocation with zero size")
	}
	device := ba.context.Device
	staged := len(ba.initialData) > 0 && !ba.hostAccess

	usage := ba.usage
	properties := deviceLocalFlags
	if ba.hostAccess {
		properties = hostAccessFlags
	}
	if staged {
		usage |= vk.BufferUsageFlags(vk.BufferUsageTransferDstBit)
	}

	*buffer = VulkanBuffer{
		Size:        ba.size,
		Usage:       usage,
		Name:        "buffer-" + uuid.NewString(),
		hostVisible: ba.hostAccess,
		device:      device,
	}
	if err := createBuffer(device, buffer, ba.sharing, properties); err != nil {
		core.LogError("failed to allocate %s: %s", buffer.Name, err)
		return err
	}

	switch {
	case len(ba.initialData) == 0:
	case ba.hostAccess:
		if err := buffer.MapData(0, ba.initialData); err != nil {
			buffer.Destroy()
			return err
		}
	default:
		if err := ba.stageInto(buffer); err != nil {
			core.LogError("failed to upload %s: %s", buffer.Name, err)
			buffer.Destroy()
			return err
		}
	}
	core.LogDebug("Allocated %s (%d bytes).", buffer.Name, buffer.Size)
	return nil
}

func (ba *BufferAllocator) stageInto(dst *VulkanBuffer) error {
	staging, err := newStagingBuffer(ba.context.Device, ba.initialData)
	if err != nil {
		return err
	}
	defer staging.Destroy()

	cb, err := BeginSingleUse(ba.context.Device, ba.context.CommandPool())
	if err != nil {
		return err
	}
	ba.context.Device.CmdCopyBuffer(cb.Handle, staging.Handle, dst.Handle, []vk.BufferCopy{{Size: staging.Size}})
	return cb.EndSingleUse(ba.context.Device, ba.context.CommandPool(), ba.context.GraphicsQueue())
}

func newStagingBuffer(device Device, data []byte) (*VulkanBuffer, error) {
	staging := &VulkanBuffer{
		Size:        vk.DeviceSize(len(data)),
		Usage:       vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit),
		Name:        "staging-" + uuid.NewString(),
		hostVisible: true,
		device:      device,
	}
	if err := createBuffer(device, staging, vk.SharingModeExclusive, hostAccessFlags); err != nil {
		return nil, err
	}
	if err := staging.MapData(0, data); err != nil {
		staging.Destroy()
		return nil, err
	}
	return staging, nil
}

func createBuffer(device Device, buffer *VulkanBuffer, sharing vk.SharingMode, properties vk.MemoryPropertyFlags) error {
	handle, err := device.CreateBuffer(&vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        buffer.Size,
		Usage:       buffer.Usage,
		SharingMode: sharing,
	})
	if err != nil {
		return err
	}
	buffer.Handle = handle

	memory, err := allocateFor(device, device.BufferMemoryRequirements(handle), properties)
	if err != nil {
		buffer.Destroy()
		return err
	}
	buffer.Memory = memory
	if err := device.BindBufferMemory(handle, memory); err != nil {
		buffer.Destroy()
		return err
	}
	return nil
}

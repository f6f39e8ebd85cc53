package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/Kobazaaa/Ashen/engine/core"
)

// FindMemoryIndex returns the first memory type whose bit is set in typeFilter and whose
// property flags contain every requested flag.
func FindMemoryIndex(types []vk.MemoryType, typeFilter uint32, propertyFlags vk.MemoryPropertyFlags) (uint32, error) {
	for i := range types {
		if i >= 32 {
			break
		}
		// Check each memory type to see if its bit is set to 1.
		if typeFilter&(1<<uint(i)) != 0 && types[i].PropertyFlags&propertyFlags == propertyFlags {
			return uint32(i), nil
		}
	}
	core.LogWarn("Unable to find suitable memory type!")
	return 0, fmt.Errorf("filter %#x with flags %#x: %w", typeFilter, uint32(propertyFlags), core.ErrNoMemoryType)
}

// allocateFor allocates and returns memory that satisfies reqs with the given properties.
func allocateFor(device Device, reqs vk.MemoryRequirements, properties vk.MemoryPropertyFlags) (vk.DeviceMemory, error) {
	index, err := FindMemoryIndex(device.MemoryTypes(), reqs.MemoryTypeBits, properties)
	if err != nil {
		return vk.NullDeviceMemory, err
	}
	return device.AllocateMemory(reqs.Size, index)
}

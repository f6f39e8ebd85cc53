package vulkan

import (
	"fmt"
	"slices"
	"strings"
	"sync"
	"unsafe"

	vk "github.com/goki/vulkan"
	"golang.org/x/exp/maps"

	"github.com/Kobazaaa/Ashen/engine/core"
)

type cachedLayout struct {
	layout vk.DescriptorSetLayout
	refs   int
}

// LayoutCache deduplicates descriptor set layouts by the shape of their bindings and
// keeps a reference count per layout. A layout is destroyed when its last user releases it.
type LayoutCache struct {
	mu      sync.Mutex
	device  Device
	entries map[string]*cachedLayout
}

func NewLayoutCache(device Device) *LayoutCache {
	return &LayoutCache{
		device:  device,
		entries: make(map[string]*cachedLayout),
	}
}

// LayoutSignature concatenates flags:binding:type:count:stage| for every binding in order.
// flags may be shorter than bindings; missing entries count as zero.
func LayoutSignature(bindings []vk.DescriptorSetLayoutBinding, flags []vk.DescriptorBindingFlags) string {
	var sb strings.Builder
	for i, b := range bindings {
		var f vk.DescriptorBindingFlags
		if i < len(flags) {
			f = flags[i]
		}
		fmt.Fprintf(&sb, "%d:%d:%d:%d:%d|", uint32(f), b.Binding, int32(b.DescriptorType), b.DescriptorCount, uint32(b.StageFlags))
	}
	return sb.String()
}

// Acquire returns the layout for the given bindings, creating it on first use, and takes a reference.
func (c *LayoutCache) Acquire(bindings []vk.DescriptorSetLayoutBinding, flags []vk.DescriptorBindingFlags) (vk.DescriptorSetLayout, string, error) {
	signature := LayoutSignature(bindings, flags)

	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, ok := c.entries[signature]; ok {
		entry.refs++
		return entry.layout, signature, nil
	}

	info := vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uint32(len(bindings)),
		PBindings:    bindings,
	}
	if anyFlags(flags) {
		padded := make([]vk.DescriptorBindingFlags, len(bindings))
		copy(padded, flags)
		flagsInfo := vk.DescriptorSetLayoutBindingFlagsCreateInfo{
			SType:         vk.StructureTypeDescriptorSetLayoutBindingFlagsCreateInfo,
			BindingCount:  uint32(len(padded)),
			PBindingFlags: padded,
		}
		ref, _ := flagsInfo.PassRef()
		defer flagsInfo.Free()
		info.PNext = unsafe.Pointer(ref)
	}

	layout, err := c.device.CreateDescriptorSetLayout(&info)
	if err != nil {
		core.LogError("failed to create descriptor set layout %q: %s", signature, err)
		return nil, "", err
	}
	c.entries[signature] = &cachedLayout{layout: layout, refs: 1}
	core.LogDebug("Created descriptor set layout %q.", signature)
	return layout, signature, nil
}

// Release drops one reference to the layout with the given signature.
func (c *LayoutCache) Release(signature string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[signature]
	if !ok {
		core.LogWarn("Release of unknown descriptor set layout %q.", signature)
		return
	}
	entry.refs--
	if entry.refs > 0 {
		return
	}
	c.device.DestroyDescriptorSetLayout(entry.layout)
	delete(c.entries, signature)
	core.LogDebug("Destroyed descriptor set layout %q.", signature)
}

// RefCount returns the number of live references to signature, zero when it is not cached.
func (c *LayoutCache) RefCount(signature string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if entry, ok := c.entries[signature]; ok {
		return entry.refs
	}
	return 0
}

// Keys returns the cached signatures in sorted order.
func (c *LayoutCache) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	keys := maps.Keys(c.entries)
	slices.Sort(keys)
	return keys
}

func (c *LayoutCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Destroy releases every layout still held, regardless of its count.
func (c *LayoutCache) Destroy() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for signature, entry := range c.entries {
		if entry.refs > 0 {
			core.LogWarn("Descriptor set layout %q destroyed with %d live references.", signature, entry.refs)
		}
		c.device.DestroyDescriptorSetLayout(entry.layout)
	}
	clear(c.entries)
}

func anyFlags(flags []vk.DescriptorBindingFlags) bool {
	for _, f := range flags {
		if f != 0 {
			return true
		}
	}
	return false
}

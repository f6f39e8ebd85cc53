package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/Kobazaaa/Ashen/engine/core"
)

// WholeBinding as a write count means "the number of descriptors the binding declares".
const WholeBinding = ^uint32(0)

// DescriptorPoolBuilder accumulates pool sizes for a single descriptor pool.
type DescriptorPoolBuilder struct {
	device  Device
	sizes   []vk.DescriptorPoolSize
	maxSets uint32
	flags   vk.DescriptorPoolCreateFlags
}

func NewDescriptorPoolBuilder(device Device) *DescriptorPoolBuilder {
	return &DescriptorPoolBuilder{device: device}
}

func (pb *DescriptorPoolBuilder) AddPoolSize(descriptorType vk.DescriptorType, count uint32) *DescriptorPoolBuilder {
	pb.sizes = append(pb.sizes, vk.DescriptorPoolSize{Type: descriptorType, DescriptorCount: count})
	return pb
}

func (pb *DescriptorPoolBuilder) SetMaxSets(count uint32) *DescriptorPoolBuilder {
	pb.maxSets = count
	return pb
}

func (pb *DescriptorPoolBuilder) SetFlags(flags vk.DescriptorPoolCreateFlags) *DescriptorPoolBuilder {
	pb.flags = flags
	return pb
}

func (pb *DescriptorPoolBuilder) AddFlags(flags vk.DescriptorPoolCreateFlags) *DescriptorPoolBuilder {
	pb.flags |= flags
	return pb
}

func (pb *DescriptorPoolBuilder) Build() (vk.DescriptorPool, error) {
	pool, err := pb.device.CreateDescriptorPool(&vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		Flags:         pb.flags,
		MaxSets:       pb.maxSets,
		PoolSizeCount: uint32(len(pb.sizes)),
		PPoolSizes:    pb.sizes,
	})
	if err != nil {
		core.LogError("failed to create descriptor pool: %s", err)
		return nil, err
	}
	pb.sizes = nil
	return pool, nil
}

// VulkanDescriptorSet is a set allocated against a cached layout. Destroy gives the
// layout reference back to the cache; the set itself returns to the pool with it.
type VulkanDescriptorSet struct {
	Handle    vk.DescriptorSet
	Layout    vk.DescriptorSetLayout
	Signature string
	Bindings  []vk.DescriptorSetLayoutBinding

	cache *LayoutCache
}

func (ds *VulkanDescriptorSet) Destroy() {
	if ds.cache == nil {
		return
	}
	ds.cache.Release(ds.Signature)
	ds.cache = nil
	ds.Handle = nil
	ds.Layout = nil
}

func (ds *VulkanDescriptorSet) bindingCount(binding uint32) (uint32, bool) {
	for _, b := range ds.Bindings {
		if b.Binding == binding {
			return b.DescriptorCount, true
		}
	}
	return 0, false
}

// DescriptorSetAllocator collects layout bindings and allocates descriptor sets with
// them. The binding list is cleared after every Allocate.
type DescriptorSetAllocator struct {
	device Device
	cache  *LayoutCache

	bindings []vk.DescriptorSetLayoutBinding
	flags    []vk.DescriptorBindingFlags
}

func NewDescriptorSetAllocator(context *GraphicsContext) *DescriptorSetAllocator {
	return &DescriptorSetAllocator{
		device: context.Device,
		cache:  context.LayoutCache(),
	}
}

// LayoutBinding configures one binding. Bindings are numbered in the order they are started.
type LayoutBinding struct {
	allocator *DescriptorSetAllocator
	binding   vk.DescriptorSetLayoutBinding
	flags     vk.DescriptorBindingFlags
}

func (da *DescriptorSetAllocator) NewLayoutBinding() *LayoutBinding {
	return &LayoutBinding{
		allocator: da,
		binding: vk.DescriptorSetLayoutBinding{
			Binding:         uint32(len(da.bindings)),
			DescriptorType:  vk.DescriptorTypeUniformBuffer,
			DescriptorCount: 1,
		},
	}
}

func (lb *LayoutBinding) SetType(descriptorType vk.DescriptorType) *LayoutBinding {
	lb.binding.DescriptorType = descriptorType
	return lb
}

func (lb *LayoutBinding) SetCount(count uint32) *LayoutBinding {
	lb.binding.DescriptorCount = count
	return lb
}

func (lb *LayoutBinding) SetShaderStages(stages vk.ShaderStageFlags) *LayoutBinding {
	lb.binding.StageFlags = stages
	return lb
}

func (lb *LayoutBinding) SetBindingFlags(flags vk.DescriptorBindingFlags) *LayoutBinding {
	lb.flags = flags
	return lb
}

func (lb *LayoutBinding) AddBindingFlags(flags vk.DescriptorBindingFlags) *LayoutBinding {
	lb.flags |= flags
	return lb
}

func (lb *LayoutBinding) EndLayoutBinding() *DescriptorSetAllocator {
	da := lb.allocator
	da.bindings = append(da.bindings, lb.binding)
	da.flags = append(da.flags, lb.flags)
	return da
}

// Allocate resolves the layout through the cache and allocates set from pool.
func (da *DescriptorSetAllocator) Allocate(pool vk.DescriptorPool, set *VulkanDescriptorSet) error {
	bindings := da.bindings
	flags := da.flags
	da.bindings = nil
	da.flags = nil

	layout, signature, err := da.cache.Acquire(bindings, flags)
	if err != nil {
		return err
	}
	handle, err := da.device.AllocateDescriptorSet(pool, layout)
	if err != nil {
		da.cache.Release(signature)
		core.LogError("failed to allocate descriptor set %q: %s", signature, err)
		return err
	}
	*set = VulkanDescriptorSet{
		Handle:    handle,
		Layout:    layout,
		Signature: signature,
		Bindings:  bindings,
		cache:     da.cache,
	}
	return nil
}

type pendingWrite struct {
	set        *VulkanDescriptorSet
	binding    uint32
	kind       vk.DescriptorType
	first      int
	count      uint32
	imageWrite bool
}

// DescriptorSetWriter batches buffer and image writes and flushes them in one update.
type DescriptorSetWriter struct {
	device Device

	bufferInfos []vk.DescriptorBufferInfo
	imageInfos  []vk.DescriptorImageInfo
	writes      []pendingWrite

	nextBuffer int
	nextImage  int
}

func NewDescriptorSetWriter(device Device) *DescriptorSetWriter {
	return &DescriptorSetWriter{device: device}
}

func (w *DescriptorSetWriter) AddBufferInfo(buffer *VulkanBuffer, offset, size vk.DeviceSize) *DescriptorSetWriter {
	w.bufferInfos = append(w.bufferInfos, vk.DescriptorBufferInfo{
		Buffer: buffer.Handle,
		Offset: offset,
		Range:  size,
	})
	return w
}

func (w *DescriptorSetWriter) AddImageInfo(view vk.ImageView, sampler vk.Sampler, layout vk.ImageLayout) *DescriptorSetWriter {
	w.imageInfos = append(w.imageInfos, vk.DescriptorImageInfo{
		Sampler:     sampler,
		ImageView:   view,
		ImageLayout: layout,
	})
	return w
}

// WriteBuffers consumes the next count buffer infos for binding of set.
func (w *DescriptorSetWriter) WriteBuffers(set *VulkanDescriptorSet, binding, count uint32) *DescriptorSetWriter {
	w.writes = append(w.writes, w.pending(set, binding, count, false))
	return w
}

// WriteImages consumes the next count image infos for binding of set.
func (w *DescriptorSetWriter) WriteImages(set *VulkanDescriptorSet, binding, count uint32) *DescriptorSetWriter {
	w.writes = append(w.writes, w.pending(set, binding, count, true))
	return w
}

func (w *DescriptorSetWriter) pending(set *VulkanDescriptorSet, binding, count uint32, image bool) pendingWrite {
	kind := vk.DescriptorTypeUniformBuffer
	for _, b := range set.Bindings {
		if b.Binding == binding {
			kind = b.DescriptorType
		}
	}
	if count == WholeBinding {
		count, _ = set.bindingCount(binding)
	}
	p := pendingWrite{set: set, binding: binding, kind: kind, count: count, imageWrite: image}
	if image {
		p.first = w.nextImage
		w.nextImage += int(count)
	} else {
		p.first = w.nextBuffer
		w.nextBuffer += int(count)
	}
	return p
}

// Execute applies every queued write in one update call and clears the writer.
func (w *DescriptorSetWriter) Execute() error {
	defer w.clear()

	writes := make([]vk.WriteDescriptorSet, 0, len(w.writes))
	for _, p := range w.writes {
		if _, ok := p.set.bindingCount(p.binding); !ok {
			return fmt.Errorf("descriptor set %q has no binding %d", p.set.Signature, p.binding)
		}
		write := vk.WriteDescriptorSet{
			SType:           vk.StructureTypeWriteDescriptorSet,
			DstSet:          p.set.Handle,
			DstBinding:      p.binding,
			DescriptorCount: p.count,
			DescriptorType:  p.kind,
		}
		end := p.first + int(p.count)
		if p.imageWrite {
			if end > len(w.imageInfos) {
				return fmt.Errorf("binding %d wants %d image infos, %d queued", p.binding, p.count, len(w.imageInfos)-p.first)
			}
			write.PImageInfo = w.imageInfos[p.first:end]
		} else {
			if end > len(w.bufferInfos) {
				return fmt.Errorf("binding %d wants %d buffer infos, %d queued", p.binding, p.count, len(w.bufferInfos)-p.first)
			}
			write.PBufferInfo = w.bufferInfos[p.first:end]
		}
		writes = append(writes, write)
	}
	w.device.UpdateDescriptorSets(writes)
	return nil
}

func (w *DescriptorSetWriter) clear() {
	w.bufferInfos = nil
	w.imageInfos = nil
	w.writes = nil
	w.nextBuffer = 0
	w.nextImage = 0
}

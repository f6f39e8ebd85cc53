package vulkan

import (
	"fmt"
	"unsafe"

	vk "github.com/goki/vulkan"

	"github.com/Kobazaaa/Ashen/engine/core"
)

// VulkanDevice owns the instance, surface, physical and logical device of the
// renderer. It implements Device by forwarding to the Vulkan loader.
type VulkanDevice struct {
	Instance       vk.Instance
	Surface        vk.Surface
	PhysicalDevice vk.PhysicalDevice
	LogicalDevice  vk.Device
	Allocator      *vk.AllocationCallbacks

	GraphicsQueueIndex uint32
	PresentQueueIndex  uint32

	graphicsQueue vk.Queue
	presentQueue  vk.Queue

	Properties  vk.PhysicalDeviceProperties
	memoryTypes []vk.MemoryType

	debugCallback vk.DebugReportCallback
}

type physicalDeviceRequirements struct {
	Graphics             bool
	Present              bool
	DeviceExtensionNames []string
}

type queueFamilyInfo struct {
	GraphicsFamilyIndex uint32
	PresentFamilyIndex  uint32
}

// NewVulkanDevice brings up everything needed before a swapchain can exist. The
// logical device is created with synchronization2 and dynamic rendering enabled;
// validation is only turned on when requested and available.
func NewVulkanDevice(source SurfaceSource, appName string, validation bool) (*VulkanDevice, error) {
	instance, debugCallback, err := createInstance(source, appName, validation)
	if err != nil {
		return nil, err
	}
	d := &VulkanDevice{
		Instance:      instance,
		debugCallback: debugCallback,
	}

	surface, err := source.CreateSurface(instance)
	if err != nil {
		core.LogError("Vulkan surface creation failed: %s", err)
		d.Destroy()
		return nil, err
	}
	d.Surface = surface
	core.LogInfo("Vulkan surface created.")

	if err := d.selectPhysicalDevice(); err != nil {
		d.Destroy()
		return nil, err
	}
	if err := d.createLogicalDevice(); err != nil {
		d.Destroy()
		return nil, err
	}
	if err := loadDynamicRendering(source.VulkanProcAddr(), d.Instance, d.LogicalDevice); err != nil {
		core.LogError("dynamic rendering unavailable: %s", err)
		d.Destroy()
		return nil, err
	}
	return d, nil
}

func (d *VulkanDevice) selectPhysicalDevice() error {
	var physicalDeviceCount uint32
	if err := checkResult("vkEnumeratePhysicalDevices", vk.EnumeratePhysicalDevices(d.Instance, &physicalDeviceCount, nil)); err != nil {
		return err
	}
	if physicalDeviceCount == 0 {
		core.LogError("No devices which support Vulkan were found.")
		return core.ErrNoSuitableDevice
	}
	physicalDevices := make([]vk.PhysicalDevice, physicalDeviceCount)
	if err := checkResult("vkEnumeratePhysicalDevices", vk.EnumeratePhysicalDevices(d.Instance, &physicalDeviceCount, physicalDevices)); err != nil {
		return err
	}

	requirements := physicalDeviceRequirements{
		Graphics:             true,
		Present:              true,
		DeviceExtensionNames: []string{vk.KhrSwapchainExtensionName},
	}

	for _, candidate := range physicalDevices {
		var properties vk.PhysicalDeviceProperties
		vk.GetPhysicalDeviceProperties(candidate, &properties)
		properties.Deref()

		queueInfo, ok := d.meetsRequirements(candidate, &properties, &requirements)
		if !ok {
			continue
		}

		var memory vk.PhysicalDeviceMemoryProperties
		vk.GetPhysicalDeviceMemoryProperties(candidate, &memory)
		memory.Deref()

		name := vk.ToString(properties.DeviceName[:])
		core.LogInfo("Selected device: '%s'.", name)
		switch properties.DeviceType {
		case vk.PhysicalDeviceTypeIntegratedGpu:
			core.LogInfo("GPU type is Integrated.")
		case vk.PhysicalDeviceTypeDiscreteGpu:
			core.LogInfo("GPU type is Discrete.")
		case vk.PhysicalDeviceTypeVirtualGpu:
			core.LogInfo("GPU type is Virtual.")
		case vk.PhysicalDeviceTypeCpu:
			core.LogInfo("GPU type is CPU.")
		default:
			core.LogInfo("GPU type is Unknown.")
		}
		core.LogInfo(
			"Vulkan API version: %d.%d.%d",
			vk.Version.Major(vk.Version(properties.ApiVersion)),
			vk.Version.Minor(vk.Version(properties.ApiVersion)),
			vk.Version.Patch(vk.Version(properties.ApiVersion)),
		)

		d.memoryTypes = make([]vk.MemoryType, memory.MemoryTypeCount)
		for i := range d.memoryTypes {
			memory.MemoryTypes[i].Deref()
			d.memoryTypes[i] = memory.MemoryTypes[i]
		}
		for j := 0; j < int(memory.MemoryHeapCount); j++ {
			memory.MemoryHeaps[j].Deref()
			sizeGib := float64(memory.MemoryHeaps[j].Size) / 1024.0 / 1024.0 / 1024.0
			if vk.MemoryHeapFlags(memory.MemoryHeaps[j].Flags)&vk.MemoryHeapFlags(vk.MemoryHeapDeviceLocalBit) != 0 {
				core.LogInfo("Local GPU memory: %.2f GiB", sizeGib)
			} else {
				core.LogInfo("Shared System memory: %.2f GiB", sizeGib)
			}
		}

		d.PhysicalDevice = candidate
		d.GraphicsQueueIndex = queueInfo.GraphicsFamilyIndex
		d.PresentQueueIndex = queueInfo.PresentFamilyIndex
		d.Properties = properties
		return nil
	}

	core.LogError("No physical devices were found which meet the requirements.")
	return core.ErrNoSuitableDevice
}

func (d *VulkanDevice) meetsRequirements(device vk.PhysicalDevice, properties *vk.PhysicalDeviceProperties, requirements *physicalDeviceRequirements) (queueFamilyInfo, bool) {
	name := vk.ToString(properties.DeviceName[:])

	var queueFamilyCount uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(device, &queueFamilyCount, nil)
	queueFamilies := make([]vk.QueueFamilyProperties, queueFamilyCount)
	vk.GetPhysicalDeviceQueueFamilyProperties(device, &queueFamilyCount, queueFamilies)

	flags := make([]vk.QueueFlags, queueFamilyCount)
	present := make([]bool, queueFamilyCount)
	for i := range queueFamilies {
		queueFamilies[i].Deref()
		flags[i] = queueFamilies[i].QueueFlags
		var supportsPresent vk.Bool32
		if res := vk.GetPhysicalDeviceSurfaceSupport(device, uint32(i), d.Surface, &supportsPresent); res != vk.Success {
			return queueFamilyInfo{}, false
		}
		present[i] = supportsPresent == vk.True
	}

	queueInfo, ok := pickQueueFamilies(flags, present)
	if !ok && (requirements.Graphics || requirements.Present) {
		core.LogInfo("Device '%s' lacks a graphics or present queue, skipping.", name)
		return queueFamilyInfo{}, false
	}
	core.LogDebug("Graphics Family Index: %d", queueInfo.GraphicsFamilyIndex)
	core.LogDebug("Present Family Index:  %d", queueInfo.PresentFamilyIndex)

	var formatCount, presentModeCount uint32
	vk.GetPhysicalDeviceSurfaceFormats(device, d.Surface, &formatCount, nil)
	vk.GetPhysicalDeviceSurfacePresentModes(device, d.Surface, &presentModeCount, nil)
	if formatCount < 1 || presentModeCount < 1 {
		core.LogInfo("Required swapchain support not present on '%s', skipping device.", name)
		return queueFamilyInfo{}, false
	}

	var extensionCount uint32
	if res := vk.EnumerateDeviceExtensionProperties(device, "", &extensionCount, nil); res != vk.Success {
		return queueFamilyInfo{}, false
	}
	available := make([]vk.ExtensionProperties, extensionCount)
	if res := vk.EnumerateDeviceExtensionProperties(device, "", &extensionCount, available); res != vk.Success {
		return queueFamilyInfo{}, false
	}
	names := make([]string, len(available))
	for i := range available {
		available[i].Deref()
		names[i] = vk.ToString(available[i].ExtensionName[:])
	}
	if missing := missingExtensions(requirements.DeviceExtensionNames, names); len(missing) > 0 {
		core.LogInfo("Required extensions not found on '%s': %v, skipping device.", name, missing)
		return queueFamilyInfo{}, false
	}
	return queueInfo, true
}

// pickQueueFamilies returns the first graphics family and a present family,
// preferring one that is also the graphics family.
func pickQueueFamilies(flags []vk.QueueFlags, present []bool) (queueFamilyInfo, bool) {
	info := queueFamilyInfo{}
	graphicsFound, presentFound := false, false
	for i := range flags {
		if !graphicsFound && flags[i]&vk.QueueFlags(vk.QueueGraphicsBit) != 0 {
			info.GraphicsFamilyIndex = uint32(i)
			graphicsFound = true
			if present[i] {
				info.PresentFamilyIndex = uint32(i)
				presentFound = true
			}
		}
	}
	if !presentFound {
		for i := range present {
			if present[i] {
				info.PresentFamilyIndex = uint32(i)
				presentFound = true
				break
			}
		}
	}
	return info, graphicsFound && presentFound
}

func missingExtensions(required, available []string) []string {
	set := make(map[string]struct{}, len(available))
	for _, name := range available {
		set[name] = struct{}{}
	}
	missing := []string{}
	for _, name := range required {
		if _, ok := set[name]; !ok {
			missing = append(missing, name)
		}
	}
	return missing
}

func (d *VulkanDevice) createLogicalDevice() error {
	core.LogInfo("Creating logical device...")

	indices := []uint32{d.GraphicsQueueIndex}
	// NOTE: Do not create additional queues for shared indices.
	if d.PresentQueueIndex != d.GraphicsQueueIndex {
		indices = append(indices, d.PresentQueueIndex)
	}
	queueCreateInfos := make([]vk.DeviceQueueCreateInfo, len(indices))
	for i, index := range indices {
		queueCreateInfos[i] = vk.DeviceQueueCreateInfo{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: index,
			QueueCount:       1,
			PQueuePriorities: []float32{1.0},
		}
	}

	extensionNames := []string{vk.KhrSwapchainExtensionName}
	var count uint32
	if res := vk.EnumerateDeviceExtensionProperties(d.PhysicalDevice, "", &count, nil); res == vk.Success && count > 0 {
		available := make([]vk.ExtensionProperties, count)
		vk.EnumerateDeviceExtensionProperties(d.PhysicalDevice, "", &count, available)
		for i := range available {
			available[i].Deref()
			if vk.ToString(available[i].ExtensionName[:]) == "VK_KHR_portability_subset" {
				core.LogInfo("Adding required extension 'VK_KHR_portability_subset'.")
				extensionNames = append(extensionNames, "VK_KHR_portability_subset")
				break
			}
		}
	}

	deviceCreateInfo := &vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(queueCreateInfos)),
		PQueueCreateInfos:       queueCreateInfos,
		EnabledExtensionCount:   uint32(len(extensionNames)),
		PpEnabledExtensionNames: VulkanSafeStrings(extensionNames),
	}

	sync2 := vk.PhysicalDeviceSynchronization2Features{
		SType:            vk.StructureTypePhysicalDeviceSynchronization2Features,
		Synchronization2: vk.True,
	}
	deviceCreateInfo.PNext = unsafe.Pointer(&sync2)
	dynamicRendering := vk.PhysicalDeviceDynamicRenderingFeatures{
		SType:            vk.StructureTypePhysicalDeviceDynamicRenderingFeatures,
		DynamicRendering: vk.True,
	}
	sync2.PNext = unsafe.Pointer(&dynamicRendering)

	var device vk.Device
	if err := checkResult("vkCreateDevice", vk.CreateDevice(d.PhysicalDevice, deviceCreateInfo, d.Allocator, &device)); err != nil {
		core.LogError(err.Error())
		return err
	}
	d.LogicalDevice = device
	core.LogInfo("Logical device created.")

	var graphics, present vk.Queue
	vk.GetDeviceQueue(d.LogicalDevice, d.GraphicsQueueIndex, 0, &graphics)
	vk.GetDeviceQueue(d.LogicalDevice, d.PresentQueueIndex, 0, &present)
	d.graphicsQueue = graphics
	d.presentQueue = present
	core.LogInfo("Queues obtained.")
	return nil
}

// Destroy tears down the logical device, surface, debugger and instance in that order.
// It is safe on a partially constructed device.
func (d *VulkanDevice) Destroy() {
	d.graphicsQueue = nil
	d.presentQueue = nil

	if d.LogicalDevice != nil {
		core.LogInfo("Destroying logical device...")
		vk.DestroyDevice(d.LogicalDevice, d.Allocator)
		d.LogicalDevice = nil
	}
	d.PhysicalDevice = nil

	if d.Surface != vk.NullSurface {
		vk.DestroySurface(d.Instance, d.Surface, d.Allocator)
		d.Surface = vk.NullSurface
	}
	if d.debugCallback != vk.NullDebugReportCallback {
		core.LogDebug("Destroying Vulkan debugger...")
		vk.DestroyDebugReportCallback(d.Instance, d.debugCallback, d.Allocator)
		d.debugCallback = vk.NullDebugReportCallback
	}
	if d.Instance != nil {
		core.LogInfo("Destroying Vulkan instance...")
		vk.DestroyInstance(d.Instance, d.Allocator)
		d.Instance = nil
	}
}

func (d *VulkanDevice) String() string {
	return fmt.Sprintf("VulkanDevice(%s)", vk.ToString(d.Properties.DeviceName[:]))
}

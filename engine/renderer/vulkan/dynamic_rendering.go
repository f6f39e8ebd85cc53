package vulkan

/*
#include <stddef.h>

typedef void (*ashenVoidFunction)(void);
typedef ashenVoidFunction (*ashenGetInstanceProcAddr)(void* instance, const char* name);
typedef ashenVoidFunction (*ashenGetDeviceProcAddr)(void* device, const char* name);
typedef void (*ashenCmdBeginRenderingFn)(void* commandBuffer, const void* renderingInfo);
typedef void (*ashenCmdEndRenderingFn)(void* commandBuffer);

static ashenCmdBeginRenderingFn ashenBeginRendering = NULL;
static ashenCmdEndRenderingFn ashenEndRendering = NULL;

static ashenVoidFunction ashenDeviceProc(ashenGetDeviceProcAddr getDeviceProc, void* device, const char* core, const char* khr) {
	ashenVoidFunction fn = getDeviceProc(device, core);
	if (fn == NULL) {
		fn = getDeviceProc(device, khr);
	}
	return fn;
}

static int ashenLoadDynamicRendering(void* getInstanceProc, void* instance, void* device) {
	ashenGetDeviceProcAddr getDeviceProc = (ashenGetDeviceProcAddr)((ashenGetInstanceProcAddr)getInstanceProc)(instance, "vkGetDeviceProcAddr");
	if (getDeviceProc == NULL) {
		return 0;
	}
	ashenBeginRendering = (ashenCmdBeginRenderingFn)ashenDeviceProc(getDeviceProc, device, "vkCmdBeginRendering", "vkCmdBeginRenderingKHR");
	ashenEndRendering = (ashenCmdEndRenderingFn)ashenDeviceProc(getDeviceProc, device, "vkCmdEndRendering", "vkCmdEndRenderingKHR");
	return ashenBeginRendering != NULL && ashenEndRendering != NULL;
}

static void ashenCmdBeginRendering(void* commandBuffer, const void* renderingInfo) {
	ashenBeginRendering(commandBuffer, renderingInfo);
}

static void ashenCmdEndRendering(void* commandBuffer) {
	ashenEndRendering(commandBuffer);
}
*/
import "C"

import (
	"errors"
	"unsafe"

	vk "github.com/goki/vulkan"
)

// The binding ships the VkRenderingInfo types but not the 1.3 commands, so the
// two entry points are resolved from the device once it exists.

func loadDynamicRendering(getInstanceProcAddr unsafe.Pointer, instance vk.Instance, device vk.Device) error {
	if getInstanceProcAddr == nil {
		return errors.New("vkGetInstanceProcAddr is nil")
	}
	if C.ashenLoadDynamicRendering(getInstanceProcAddr, unsafe.Pointer(instance), unsafe.Pointer(device)) == 0 {
		return errors.New("vkCmdBeginRendering/vkCmdEndRendering not exposed by the device")
	}
	return nil
}

func cmdBeginRendering(cmd vk.CommandBuffer, info *vk.RenderingInfo) {
	ref, _ := info.PassRef()
	defer info.Free()
	C.ashenCmdBeginRendering(unsafe.Pointer(cmd), unsafe.Pointer(ref))
}

func cmdEndRendering(cmd vk.CommandBuffer) {
	C.ashenCmdEndRendering(unsafe.Pointer(cmd))
}

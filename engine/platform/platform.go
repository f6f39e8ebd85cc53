package platform

import (
	"fmt"
	"runtime"
	"unsafe"

	"github.com/go-gl/glfw/v3.3/glfw"
	vk "github.com/goki/vulkan"

	"github.com/Kobazaaa/Ashen/engine/core"
)

func init() {
	// GLFW event handling must run on the main OS thread
	runtime.LockOSThread()
}

var specialKeys = map[glfw.Key]core.KeyCode{
	glfw.KeyTab:        core.KEY_TAB,
	glfw.KeyEnter:      core.KEY_ENTER,
	glfw.KeyEscape:     core.KEY_ESCAPE,
	glfw.KeySpace:      core.KEY_SPACE,
	glfw.KeyLeftShift:  core.KEY_LSHIFT,
	glfw.KeyRightShift: core.KEY_RSHIFT,
}

var mouseButtons = map[glfw.MouseButton]core.Button{
	glfw.MouseButtonLeft:   core.BUTTON_LEFT,
	glfw.MouseButtonRight:  core.BUTTON_RIGHT,
	glfw.MouseButtonMiddle: core.BUTTON_MIDDLE,
}

// Window is a GLFW window without a client API. It feeds the input state from
// its callbacks and hands Vulkan what it needs to create a surface.
type Window struct {
	handle   *glfw.Window
	input    *core.InputState
	outdated bool
}

func NewWindow(config core.WindowConfig, input *core.InputState) (*Window, error) {
	if err := glfw.Init(); err != nil {
		core.LogError("failed to initialize glfw: %s", err)
		return nil, err
	}
	if !glfw.VulkanSupported() {
		glfw.Terminate()
		return nil, fmt.Errorf("glfw reports no Vulkan loader")
	}

	glfw.WindowHint(glfw.Resizable, glfw.True)
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI) // Required for Vulkan.

	handle, err := glfw.CreateWindow(int(config.Width), int(config.Height), config.Title, nil, nil)
	if err != nil {
		core.LogError("failed to create window: %s", err)
		glfw.Terminate()
		return nil, err
	}

	w := &Window{handle: handle, input: input}
	handle.SetKeyCallback(w.keyCallback)
	handle.SetMouseButtonCallback(w.mouseButtonCallback)
	handle.SetCursorPosCallback(w.cursorPosCallback)
	handle.SetFramebufferSizeCallback(w.framebufferSizeCallback)

	core.LogInfo("window created (%dx%d)", config.Width, config.Height)
	return w, nil
}

func (w *Window) Destroy() {
	if w.handle != nil {
		w.handle.Destroy()
		w.handle = nil
	}
	glfw.Terminate()
}

func (w *Window) ShouldClose() bool { return w.handle.ShouldClose() }
func (w *Window) Close()            { w.handle.SetShouldClose(true) }
func (w *Window) PollEvents()       { glfw.PollEvents() }
func (w *Window) IsOutdated() bool  { return w.outdated }
func (w *Window) ResetOutdated()    { w.outdated = false }

func (w *Window) FramebufferSize() (int, int) {
	return w.handle.GetFramebufferSize()
}

// AspectRatio of the framebuffer, 1 while minimized.
func (w *Window) AspectRatio() float32 {
	width, height := w.FramebufferSize()
	if width == 0 || height == 0 {
		return 1
	}
	return float32(width) / float32(height)
}

func (w *Window) VulkanProcAddr() unsafe.Pointer {
	return glfw.GetVulkanGetInstanceProcAddress()
}

func (w *Window) RequiredInstanceExtensions() []string {
	return w.handle.GetRequiredInstanceExtensions()
}

func (w *Window) CreateSurface(instance vk.Instance) (vk.Surface, error) {
	surface, err := w.handle.CreateWindowSurface(instance, nil)
	if err != nil {
		return vk.NullSurface, err
	}
	return vk.SurfaceFromPointer(surface), nil
}

func (w *Window) keyCallback(_ *glfw.Window, key glfw.Key, _ int, action glfw.Action, _ glfw.ModifierKey) {
	if action == glfw.Repeat {
		return
	}
	code, ok := translateKey(key)
	if !ok {
		return
	}
	w.input.ProcessKey(code, action == glfw.Press)
}

func (w *Window) mouseButtonCallback(_ *glfw.Window, button glfw.MouseButton, action glfw.Action, _ glfw.ModifierKey) {
	if b, ok := mouseButtons[button]; ok {
		w.input.ProcessButton(b, action == glfw.Press)
	}
}

func (w *Window) cursorPosCallback(_ *glfw.Window, x, y float64) {
	w.input.ProcessMouseMove(x, y)
}

func (w *Window) framebufferSizeCallback(_ *glfw.Window, width, height int) {
	core.LogDebug("framebuffer resized to %dx%d", width, height)
	w.outdated = true
}

// translateKey maps a GLFW key onto the engine key codes. Letters share their
// ASCII value in both.
func translateKey(key glfw.Key) (core.KeyCode, bool) {
	if key >= glfw.KeyA && key <= glfw.KeyZ {
		return core.KeyCode(key), true
	}
	code, ok := specialKeys[key]
	return code, ok
}

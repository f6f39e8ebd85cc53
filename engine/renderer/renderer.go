package renderer

import (
	"github.com/Kobazaaa/Ashen/engine/core"
	"github.com/Kobazaaa/Ashen/engine/renderer/components"
	"github.com/Kobazaaa/Ashen/engine/renderer/metadata"
)

// Frontend turns camera movement and scattering settings into per frame
// payloads for the backend. It owns the backend and destroys it on Shutdown.
type Frontend struct {
	backend    RendererBackend
	scattering *metadata.Scattering
	camera     *components.Camera
	frames     uint64
}

func NewFrontend(backend RendererBackend, scattering *metadata.Scattering, camera *components.Camera) *Frontend {
	f := &Frontend{
		backend:    backend,
		scattering: scattering,
		camera:     camera,
	}
	backend.AddResizeListener(func(width, height uint32) {
		camera.SetAspect(width, height)
		core.LogDebug("camera aspect updated to %dx%d", width, height)
	})
	return f
}

func (f *Frontend) Camera() *components.Camera { return f.camera }
func (f *Frontend) FrameCount() uint64         { return f.frames }

// BuildFrame snapshots the camera into a frame payload.
func (f *Frontend) BuildFrame() *metadata.FrameData {
	return f.scattering.Frame(f.camera.GetView(), f.camera.GetProjection(), f.camera.GetPosition())
}

// DrawFrame advances the camera by deltaTime seconds and submits one frame.
func (f *Frontend) DrawFrame(input components.Input, deltaTime float64) error {
	f.camera.Update(input, float32(deltaTime))
	if err := f.backend.DrawFrame(f.BuildFrame()); err != nil {
		return err
	}
	f.frames++
	return nil
}

func (f *Frontend) ToggleHDR() error {
	if err := f.backend.ToggleHDR(); err != nil {
		return err
	}
	core.LogInfo("HDR %s", onOff(f.backend.HDREnabled()))
	return nil
}

// ReloadShaders rebuilds every pipeline from the shader files on disk.
func (f *Frontend) ReloadShaders() error {
	core.LogInfo("reloading shaders")
	return f.backend.RebuildPipelines()
}

func (f *Frontend) Shutdown() {
	f.backend.Destroy()
}

func onOff(enabled bool) string {
	if enabled {
		return "on"
	}
	return "off"
}

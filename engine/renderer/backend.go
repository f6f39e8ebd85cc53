package renderer

import (
	"github.com/Kobazaaa/Ashen/engine/renderer/metadata"
	"github.com/Kobazaaa/Ashen/engine/renderer/vulkan"
)

// RendererBackend is the part of the GPU renderer the frontend drives once per
// frame. *vulkan.Renderer implements it.
type RendererBackend interface {
	DrawFrame(frame *metadata.FrameData) error
	ToggleHDR() error
	HDREnabled() bool
	RebuildPipelines() error
	AddResizeListener(fn vulkan.ResizeListener)
	Destroy()
}

var _ RendererBackend = (*vulkan.Renderer)(nil)

package renderer

import (
	"errors"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kobazaaa/Ashen/engine/core"
	"github.com/Kobazaaa/Ashen/engine/renderer/components"
	"github.com/Kobazaaa/Ashen/engine/renderer/metadata"
	"github.com/Kobazaaa/Ashen/engine/renderer/vulkan"
)

type fakeBackend struct {
	frames    []*metadata.FrameData
	drawErr   error
	hdr       bool
	rebuilds  int
	listeners []vulkan.ResizeListener
	destroyed bool
}

func (b *fakeBackend) DrawFrame(frame *metadata.FrameData) error {
	if b.drawErr != nil {
		return b.drawErr
	}
	b.frames = append(b.frames, frame)
	return nil
}

func (b *fakeBackend) ToggleHDR() error {
	b.hdr = !b.hdr
	return nil
}

func (b *fakeBackend) HDREnabled() bool { return b.hdr }
func (b *fakeBackend) Destroy()         { b.destroyed = true }

func (b *fakeBackend) RebuildPipelines() error {
	b.rebuilds++
	return nil
}

func (b *fakeBackend) AddResizeListener(fn vulkan.ResizeListener) {
	b.listeners = append(b.listeners, fn)
}

func newFrontend(t *testing.T) (*Frontend, *fakeBackend) {
	t.Helper()
	cfg := core.DefaultConfig()
	backend := &fakeBackend{}
	scattering := metadata.NewScattering(cfg.Scattering, cfg.Renderer.Exposure)
	camera := components.NewCamera(cfg.Camera, 16.0/9.0)
	return NewFrontend(backend, scattering, camera), backend
}

func TestFrontendDrawFrame(t *testing.T) {
	f, backend := newFrontend(t)
	input := core.NewInputState()
	input.ProcessKey(core.KEY_E, true)

	require.NoError(t, f.DrawFrame(input, 0.5))
	require.Len(t, backend.frames, 1)
	assert.Equal(t, uint64(1), f.FrameCount())

	frame := backend.frames[0]
	for i, want := range (mgl32.Vec3{0, 0.5, 0}) {
		assert.InDelta(t, want, frame.CameraPosition[i], 1e-6)
	}
	assert.Equal(t, f.Camera().GetView(), frame.Camera.View)
	assert.Equal(t, f.Camera().GetProjection(), frame.Camera.Proj)
}

func TestFrontendDrawFailure(t *testing.T) {
	f, backend := newFrontend(t)
	backend.drawErr = errors.New("device lost")

	assert.ErrorIs(t, f.DrawFrame(core.NewInputState(), 0.016), backend.drawErr)
	assert.Zero(t, f.FrameCount())
}

func TestFrontendResizeUpdatesAspect(t *testing.T) {
	f, backend := newFrontend(t)
	require.Len(t, backend.listeners, 1)

	backend.listeners[0](1000, 500)
	assert.InDelta(t, 2, f.Camera().Aspect, 1e-6)
}

func TestFrontendCommands(t *testing.T) {
	f, backend := newFrontend(t)

	require.NoError(t, f.ToggleHDR())
	assert.True(t, backend.hdr)
	require.NoError(t, f.ReloadShaders())
	assert.Equal(t, 1, backend.rebuilds)

	f.Shutdown()
	assert.True(t, backend.destroyed)
}

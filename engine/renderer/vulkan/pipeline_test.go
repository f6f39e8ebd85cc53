package vulkan

import (
	"os"
	"path/filepath"
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kobazaaa/Ashen/engine/core"
)

func TestShaderPath(t *testing.T) {
	assert.Equal(t, filepath.Join("shaders", "SkyFromSpace.vert.spv"), ShaderPath("shaders", "SkyFromSpace", "vert"))
}

func TestLoadShaderCode(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadShaderCode(filepath.Join(dir, "missing.vert.spv"))
	assert.ErrorIs(t, err, core.ErrShaderNotFound)

	odd := filepath.Join(dir, "odd.vert.spv")
	require.NoError(t, os.WriteFile(odd, []byte{1, 2, 3}, 0o644))
	_, err = LoadShaderCode(odd)
	assert.Error(t, err)

	good := filepath.Join(dir, "good.vert.spv")
	require.NoError(t, os.WriteFile(good, []byte{1, 2, 3, 4, 5, 6, 7, 8}, 0o644))
	code, err := LoadShaderCode(good)
	require.NoError(t, err)
	assert.Len(t, code, 8)
}

func TestPipelineBuildDiscardsModulesAndResets(t *testing.T) {
	device := newMockDevice()
	dir := writeShaders(t)

	builder := NewPipelineBuilder(device).
		SetVertexBindings(VertexBindingDescriptions()).
		SetVertexAttributes(VertexAttributeDescriptions()).
		AddDynamicState(vk.DynamicStateViewport).
		AddDynamicState(vk.DynamicStateViewport).
		SetupDynamicRendering([]vk.Format{vk.FormatB8g8r8a8Srgb}, vk.FormatD32Sfloat)

	var first VulkanPipeline
	err := builder.
		AddPushConstantRange().SetSize(128).SetStageFlags(vk.ShaderStageFlags(vk.ShaderStageVertexBit)).EndRange().
		SetVertexShader(ShaderPath(dir, "SkyFromSpace", "vert")).
		SetFragmentShader(ShaderPath(dir, "SkyFromSpace", "frag")).
		Build(&first)
	require.NoError(t, err)

	assert.Equal(t, 2, device.createdModules)
	assert.Zero(t, device.liveModules)
	assert.Equal(t, 1, device.livePipelines)
	assert.Equal(t, []vk.Format{vk.FormatB8g8r8a8Srgb}, first.ColorFormats)
	assert.Equal(t, vk.FormatD32Sfloat, first.DepthFormat)
	assert.Len(t, builder.dynamicStates, 1)

	// Shader stages, push ranges and layouts do not carry over; fixed state does.
	assert.Empty(t, builder.shaders)
	assert.Empty(t, builder.pushRanges)
	assert.Empty(t, builder.setLayouts)
	assert.Len(t, builder.vertexAttributes, 2)

	var second VulkanPipeline
	require.NoError(t, builder.Build(&second))
	assert.Equal(t, 2, device.createdModules)
	assert.Equal(t, 2, device.livePipelines)
	assert.NotEqual(t, first.Name, second.Name)

	first.Destroy()
	second.Destroy()
	assert.Zero(t, device.livePipelines)
}

func TestPipelineBuildFailsOnMissingShader(t *testing.T) {
	device := newMockDevice()
	dir := writeShaders(t)

	var pipeline VulkanPipeline
	err := NewPipelineBuilder(device).
		SetVertexShader(ShaderPath(dir, "SkyFromSpace", "vert")).
		SetFragmentShader(ShaderPath(dir, "Nope", "frag")).
		Build(&pipeline)
	assert.ErrorIs(t, err, core.ErrShaderNotFound)
	assert.Zero(t, device.liveModules, "the vertex module is released on failure")
	assert.Zero(t, device.livePipelines)
	assert.True(t, pipeline.PipelineLayout == vk.NullPipelineLayout)
}

func TestPipelineBuildFailsOnBadModule(t *testing.T) {
	device := newMockDevice()
	device.failShaderModule = true
	dir := writeShaders(t)

	var pipeline VulkanPipeline
	err := NewPipelineBuilder(device).
		SetVertexShader(ShaderPath(dir, "PostProcess", "vert")).
		Build(&pipeline)
	assert.Error(t, err)
	assert.Zero(t, device.livePipelines)
}

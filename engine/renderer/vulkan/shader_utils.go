package vulkan

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	vk "github.com/goki/vulkan"

	"github.com/Kobazaaa/Ashen/engine/core"
)

// VulkanShaderStage is a created shader module and the stage info that references it.
type VulkanShaderStage struct {
	Handle                vk.ShaderModule
	ShaderStageCreateInfo vk.PipelineShaderStageCreateInfo
}

// ShaderPath returns <dir>/<name>.<stage>.spv, where stage is "vert" or "frag".
func ShaderPath(dir, name, stage string) string {
	return filepath.Join(dir, fmt.Sprintf("%s.%s.spv", name, stage))
}

// LoadShaderCode reads a SPIR-V file and checks that it is word aligned.
func LoadShaderCode(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", path, core.ErrShaderNotFound)
		}
		return nil, err
	}
	if len(data) == 0 || len(data)%4 != 0 {
		return nil, fmt.Errorf("%s is not valid SPIR-V (%d bytes)", path, len(data))
	}
	return data, nil
}

func NewShaderModule(device Device, path string, stage vk.ShaderStageFlagBits) (*VulkanShaderStage, error) {
	code, err := LoadShaderCode(path)
	if err != nil {
		core.LogError("unable to read shader module: %s", err)
		return nil, err
	}
	module, err := device.CreateShaderModule(code)
	if err != nil {
		core.LogError("unable to create shader module %s: %s", path, err)
		return nil, err
	}
	return &VulkanShaderStage{
		Handle: module,
		ShaderStageCreateInfo: vk.PipelineShaderStageCreateInfo{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  stage,
			Module: module,
			PName:  VulkanSafeString("main"),
		},
	}, nil
}

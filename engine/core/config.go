package core

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/pelletier/go-toml/v2"
)

type WindowConfig struct {
	Title  string `toml:"title"`
	Width  uint32 `toml:"width"`
	Height uint32 `toml:"height"`
}

type RendererConfig struct {
	// Number of frames the CPU may record ahead of the GPU. Must be at least 1.
	FramesInFlight uint32 `toml:"frames_in_flight"`
	// Render ground and sky into a floating point target and tone map it.
	HDR      bool    `toml:"hdr"`
	Exposure float32 `toml:"exposure"`
	// Directory holding the compiled <Name>.vert.spv / <Name>.frag.spv files.
	ShaderDir  string `toml:"shader_dir"`
	Validation bool   `toml:"validation"`
	HotReload  bool   `toml:"hot_reload"`
}

type ScatteringConfig struct {
	InnerRadius  float32    `toml:"inner_radius"`
	OuterRadius  float32    `toml:"outer_radius"`
	Kr           float32    `toml:"kr"`
	Km           float32    `toml:"km"`
	ESun         float32    `toml:"esun"`
	G            float32    `toml:"g"`
	ScaleDepth   float32    `toml:"scale_depth"`
	Samples      float32    `toml:"samples"`
	Wavelength   [3]float32 `toml:"wavelength"`
	SunDirection [3]float32 `toml:"sun_direction"`
	GroundAlbedo float32    `toml:"ground_albedo"`
}

type CameraConfig struct {
	Position    [3]float32 `toml:"position"`
	Speed       float32    `toml:"speed"`
	Sensitivity float32    `toml:"sensitivity"`
	Fov         float32    `toml:"fov"`
	Near        float32    `toml:"near"`
	Far         float32    `toml:"far"`
}

type LogConfig struct {
	Level string `toml:"level"`
}

type Config struct {
	Window     WindowConfig     `toml:"window"`
	Renderer   RendererConfig   `toml:"renderer"`
	Scattering ScatteringConfig `toml:"scattering"`
	Camera     CameraConfig     `toml:"camera"`
	Log        LogConfig        `toml:"log"`
}

func DefaultConfig() *Config {
	return &Config{
		Window: WindowConfig{
			Title:  "Ashen",
			Width:  1280,
			Height: 720,
		},
		Renderer: RendererConfig{
			FramesInFlight: 2,
			HDR:            false,
			Exposure:       2.0,
			ShaderDir:      "shaders",
			Validation:     true,
			HotReload:      false,
		},
		Scattering: ScatteringConfig{
			InnerRadius:  10.0,
			OuterRadius:  10.25,
			Kr:           0.0025,
			Km:           0.0010,
			ESun:         20.0,
			G:            -0.990,
			ScaleDepth:   0.25,
			Samples:      2,
			Wavelength:   [3]float32{0.650, 0.570, 0.475},
			SunDirection: [3]float32{0.0, 0.3, 1.0},
			GroundAlbedo: 1.0,
		},
		Camera: CameraConfig{
			Speed:       1.0,
			Sensitivity: 0.1,
			Fov:         60.0,
			Near:        0.001,
			Far:         10000.0,
		},
		Log: LogConfig{
			Level: "debug",
		},
	}
}

// LoadConfig reads a TOML file on top of the defaults. A missing file is not an
// error, the defaults are returned as they are.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			LogWarn("config file %s not found, using defaults", path)
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Window.Width == 0 || c.Window.Height == 0 {
		return fmt.Errorf("invalid window size %dx%d", c.Window.Width, c.Window.Height)
	}
	if c.Renderer.FramesInFlight < 1 {
		return fmt.Errorf("frames_in_flight must be at least 1, got %d", c.Renderer.FramesInFlight)
	}
	if c.Scattering.OuterRadius <= c.Scattering.InnerRadius {
		return fmt.Errorf("outer_radius (%f) must be larger than inner_radius (%f)", c.Scattering.OuterRadius, c.Scattering.InnerRadius)
	}
	for i, w := range c.Scattering.Wavelength {
		if w <= 0 {
			return fmt.Errorf("wavelength[%d] must be positive, got %f", i, w)
		}
	}
	return nil
}

// Encode renders the configuration back to TOML.
func (c *Config) Encode() ([]byte, error) {
	return toml.Marshal(c)
}

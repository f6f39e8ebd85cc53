package metadata

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Kobazaaa/Ashen/engine/core"
)

/**
 * @brief The push constant block shared by every scattering pipeline.
 */
type CameraMatricesPC struct {
	View mgl32.Mat4
	Proj mgl32.Mat4
}

/**
 * @brief The vertex stage parameters of the scattering shaders, laid out for std140.
 */
type ScatteringVS struct {
	CameraPos           mgl32.Vec3
	CameraHeight        float32
	LightDir            mgl32.Vec3
	CameraHeight2       float32
	InvWavelength       mgl32.Vec3
	OuterRadius         float32
	OuterRadius2        float32
	InnerRadius         float32
	InnerRadius2        float32
	KrESun              float32
	KmESun              float32
	Kr4PI               float32
	Km4PI               float32
	Scale               float32
	ScaleDepth          float32
	ScaleOverScaleDepth float32
	Samples             int32
	SamplesF            float32
}

type SkyVS struct {
	ScatteringVS
}

/** @brief The Mie phase parameters of the sky fragment stage. */
type SkyFS struct {
	LightDir mgl32.Vec3
	G        float32
	G2       float32
	Exposure float32
	_        [2]float32
}

type GroundVS struct {
	ScatteringVS
}

type GroundFS struct {
	Albedo   mgl32.Vec3
	Exposure float32
}

type SpaceVS struct {
	ScatteringVS
}

type SpaceFS struct {
	Exposure float32
	_        [3]float32
}

/** @brief The tone mapping parameters of the post process pass. */
type Exposure struct {
	Exposure float32
	_        [3]float32
}

/**
 * @brief Everything the renderer needs to draw one frame.
 */
type FrameData struct {
	Camera         CameraMatricesPC
	CameraPosition mgl32.Vec3

	SkyVS    SkyVS
	SkyFS    SkyFS
	GroundVS GroundVS
	GroundFS GroundFS
	SpaceVS  SpaceVS
	SpaceFS  SpaceFS
	Exposure Exposure
}

/**
 * @brief Scattering derives the per frame uniform payloads from the configured
 * atmosphere and the camera.
 */
type Scattering struct {
	config        core.ScatteringConfig
	invWavelength mgl32.Vec3
	lightDir      mgl32.Vec3
	exposure      float32
}

func NewScattering(config core.ScatteringConfig, exposure float32) *Scattering {
	s := &Scattering{
		config:   config,
		exposure: exposure,
	}
	for i, w := range config.Wavelength {
		s.invWavelength[i] = 1 / float32(math.Pow(float64(w), 4))
	}
	s.lightDir = mgl32.Vec3(config.SunDirection).Normalize()
	return s
}

/** @brief Whether a camera at pos is outside the atmosphere shell. */
func (s *Scattering) FromSpace(pos mgl32.Vec3) bool {
	return pos.Len() >= s.config.OuterRadius
}

func (s *Scattering) SetExposure(exposure float32) {
	s.exposure = exposure
}

func (s *Scattering) OuterRadius() float32 { return s.config.OuterRadius }

func (s *Scattering) vertexParams(cameraPos mgl32.Vec3) ScatteringVS {
	c := s.config
	height := cameraPos.Len()
	scale := 1 / (c.OuterRadius - c.InnerRadius)
	return ScatteringVS{
		CameraPos:           cameraPos,
		CameraHeight:        height,
		LightDir:            s.lightDir,
		CameraHeight2:       height * height,
		InvWavelength:       s.invWavelength,
		OuterRadius:         c.OuterRadius,
		OuterRadius2:        c.OuterRadius * c.OuterRadius,
		InnerRadius:         c.InnerRadius,
		InnerRadius2:        c.InnerRadius * c.InnerRadius,
		KrESun:              c.Kr * c.ESun,
		KmESun:              c.Km * c.ESun,
		Kr4PI:               c.Kr * 4 * math.Pi,
		Km4PI:               c.Km * 4 * math.Pi,
		Scale:               scale,
		ScaleDepth:          c.ScaleDepth,
		ScaleOverScaleDepth: scale / c.ScaleDepth,
		Samples:             int32(c.Samples),
		SamplesF:            c.Samples,
	}
}

/**
 * @brief Frame builds the payloads for a camera with the given matrices and position.
 */
func (s *Scattering) Frame(view, proj mgl32.Mat4, cameraPos mgl32.Vec3) *FrameData {
	vs := s.vertexParams(cameraPos)
	albedo := s.config.GroundAlbedo
	return &FrameData{
		Camera:         CameraMatricesPC{View: view, Proj: proj},
		CameraPosition: cameraPos,
		SkyVS:          SkyVS{vs},
		SkyFS: SkyFS{
			LightDir: s.lightDir,
			G:        s.config.G,
			G2:       s.config.G * s.config.G,
			Exposure: s.exposure,
		},
		GroundVS: GroundVS{vs},
		GroundFS: GroundFS{Albedo: mgl32.Vec3{albedo, albedo, albedo}, Exposure: s.exposure},
		SpaceVS:  SpaceVS{vs},
		SpaceFS:  SpaceFS{Exposure: s.exposure},
		Exposure: Exposure{Exposure: s.exposure},
	}
}

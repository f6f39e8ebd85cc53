package metadata

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

/** @brief The half extent of the ground plane. */
const GroundPlaneExtent float32 = 1000

/** @brief The height of the ground plane. */
const GroundPlaneHeight float32 = -1

/** @brief Latitude and longitude segment counts of the sky dome. */
const (
	SkyDomeLatitudeSegments  = 50
	SkyDomeLongitudeSegments = 100
)

/**
 * @brief A vertex as consumed by every scattering shader:
 * location 0 is the position, location 1 the color.
 */
type Vertex struct {
	Position mgl32.Vec3
	Color    mgl32.Vec3
}

/**
 * @brief CPU side geometry, uploaded once into a mesh.
 */
type Geometry struct {
	/** @brief The geometry name, used in log lines. */
	Name string
	/** @brief An array of Vertices. */
	Vertices []Vertex
	/** @brief An array of Indices. */
	Indices []uint32
}

/**
 * @brief A flat square of two triangles centered under the origin.
 */
func GroundPlaneGeometry() *Geometry {
	e := GroundPlaneExtent
	y := GroundPlaneHeight
	color := mgl32.Vec3{0.5, 0.5, 0.5}
	return &Geometry{
		Name: "ground",
		Vertices: []Vertex{
			{Position: mgl32.Vec3{-e, y, -e}, Color: color},
			{Position: mgl32.Vec3{e, y, -e}, Color: color},
			{Position: mgl32.Vec3{e, y, e}, Color: color},
			{Position: mgl32.Vec3{-e, y, e}, Color: color},
		},
		Indices: []uint32{0, 1, 2, 0, 2, 3},
	}
}

/**
 * @brief The upper hemisphere of a sphere of the given radius. Latitude runs from
 * the zenith (theta = 0) to the horizon (theta = pi/2).
 */
func SkyDomeGeometry(radius float32, latitudeSegments, longitudeSegments int) *Geometry {
	g := &Geometry{Name: "skydome"}
	color := mgl32.Vec3{1, 1, 1}

	for lat := 0; lat <= latitudeSegments; lat++ {
		theta := math.Pi / 2 * float64(lat) / float64(latitudeSegments)
		sinTheta, cosTheta := math.Sincos(theta)
		for lon := 0; lon <= longitudeSegments; lon++ {
			phi := 2 * math.Pi * float64(lon) / float64(longitudeSegments)
			sinPhi, cosPhi := math.Sincos(phi)
			g.Vertices = append(g.Vertices, Vertex{
				Position: mgl32.Vec3{
					radius * float32(cosPhi*sinTheta),
					radius * float32(cosTheta),
					radius * float32(sinPhi*sinTheta),
				},
				Color: color,
			})
		}
	}

	stride := uint32(longitudeSegments + 1)
	for lat := 0; lat < latitudeSegments; lat++ {
		for lon := 0; lon < longitudeSegments; lon++ {
			current := uint32(lat)*stride + uint32(lon)
			next := current + stride
			g.Indices = append(g.Indices,
				current, next, current+1,
				current+1, next, next+1,
			)
		}
	}
	return g
}

package metadata

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroundPlaneGeometry(t *testing.T) {
	g := GroundPlaneGeometry()
	require.Len(t, g.Vertices, 4)
	assert.Equal(t, []uint32{0, 1, 2, 0, 2, 3}, g.Indices)
	for _, v := range g.Vertices {
		assert.Equal(t, GroundPlaneHeight, v.Position.Y())
		assert.Equal(t, GroundPlaneExtent, mgl32.Abs(v.Position.X()))
		assert.Equal(t, GroundPlaneExtent, mgl32.Abs(v.Position.Z()))
		assert.Equal(t, mgl32.Vec3{0.5, 0.5, 0.5}, v.Color)
	}
}

func TestSkyDomeGeometry(t *testing.T) {
	const radius = 10.25
	g := SkyDomeGeometry(radius, SkyDomeLatitudeSegments, SkyDomeLongitudeSegments)

	assert.Len(t, g.Vertices, (SkyDomeLatitudeSegments+1)*(SkyDomeLongitudeSegments+1))
	assert.Len(t, g.Indices, SkyDomeLatitudeSegments*SkyDomeLongitudeSegments*6)

	for _, v := range g.Vertices {
		assert.InDelta(t, radius, v.Position.Len(), 1e-3)
		assert.GreaterOrEqual(t, v.Position.Y(), float32(-1e-4), "only the upper hemisphere")
	}
	assert.InDelta(t, radius, g.Vertices[0].Position.Y(), 1e-4, "first ring is the zenith")

	last := uint32(len(g.Vertices))
	for _, index := range g.Indices {
		assert.Less(t, index, last)
	}
}

func TestSkyDomeSmallestDome(t *testing.T) {
	g := SkyDomeGeometry(1, 1, 3)
	assert.Len(t, g.Vertices, 8)
	assert.Equal(t, []uint32{
		0, 4, 1, 1, 4, 5,
		1, 5, 2, 2, 5, 6,
		2, 6, 3, 3, 6, 7,
	}, g.Indices)
}

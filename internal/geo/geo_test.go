package geo

import (
	"testing"

	"github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"
)

func square(x0, y0, x1, y1 float64) *geom.Polygon {
	return geom.NewPolygon(geom.XY).MustSetCoords([][]geom.Coord{{
		{x0, y0}, {x0, y1}, {x1, y1}, {x1, y0}, {x0, y0},
	}})
}

func TestPolygonExtent_Polygon(t *testing.T) {
	ext, err := PolygonExtent(square(10, 20, 40, 80))
	require.NoError(t, err)
	assert.Equal(t, Extent{MinX: 10, MinY: 20, MaxX: 40, MaxY: 80}, ext)
	assert.Equal(t, 30.0, ext.Width())
	assert.Equal(t, 60.0, ext.Height())
}

func TestPolygonExtent_MultiPolygonUnionsParts(t *testing.T) {
	mp := geom.NewMultiPolygon(geom.XY)
	require.NoError(t, mp.Push(square(0, 0, 10, 10)))
	require.NoError(t, mp.Push(square(50, -5, 60, 5)))

	ext, err := PolygonExtent(mp)
	require.NoError(t, err)
	assert.Equal(t, Extent{MinX: 0, MinY: -5, MaxX: 60, MaxY: 10}, ext)
}

func TestPolygonExtent_Unsupported(t *testing.T) {
	_, err := PolygonExtent(geom.NewPointFlat(geom.XY, []float64{1, 2}))
	assert.Error(t, err)

	_, err = PolygonExtent(nil)
	assert.Error(t, err)
}

func TestFromShape_SingleRing(t *testing.T) {
	poly := &shp.Polygon{
		NumParts: 1,
		Parts:    []int32{0},
		Points: []shp.Point{
			{X: 0, Y: 0}, {X: 0, Y: 10}, {X: 10, Y: 10}, {X: 10, Y: 0}, {X: 0, Y: 0},
		},
	}
	mp, err := FromShape(poly)
	require.NoError(t, err)
	assert.Equal(t, 1, mp.NumPolygons())
	assert.Equal(t, 1, mp.Polygon(0).NumLinearRings())
}

func TestFromShape_HoleAndSecondPart(t *testing.T) {
	poly := &shp.Polygon{
		NumParts: 3,
		Parts:    []int32{0, 5, 10},
		Points: []shp.Point{
			// Outer ring, clockwise.
			{X: 0, Y: 0}, {X: 0, Y: 10}, {X: 10, Y: 10}, {X: 10, Y: 0}, {X: 0, Y: 0},
			// Hole, counter-clockwise.
			{X: 2, Y: 2}, {X: 4, Y: 2}, {X: 4, Y: 4}, {X: 2, Y: 4}, {X: 2, Y: 2},
			// Second outer ring, clockwise.
			{X: 20, Y: 0}, {X: 20, Y: 5}, {X: 25, Y: 5}, {X: 25, Y: 0}, {X: 20, Y: 0},
		},
	}
	mp, err := FromShape(poly)
	require.NoError(t, err)
	require.Equal(t, 2, mp.NumPolygons())
	assert.Equal(t, 2, mp.Polygon(0).NumLinearRings())
	assert.Equal(t, 1, mp.Polygon(1).NumLinearRings())
}

func TestFromShape_Invalid(t *testing.T) {
	_, err := FromShape(&shp.Point{X: 1, Y: 1})
	assert.Error(t, err)

	_, err = FromShape(&shp.Polygon{})
	assert.Error(t, err)
}

func TestToShape_Orientation(t *testing.T) {
	// Counter-clockwise exterior with a clockwise hole; both get flipped.
	p := geom.NewPolygon(geom.XY).MustSetCoords([][]geom.Coord{
		{{0, 0}, {10, 0}, {10, 10}, {0, 10}, {0, 0}},
		{{2, 2}, {2, 4}, {4, 4}, {4, 2}, {2, 2}},
	})

	shape, err := ToShape(p)
	require.NoError(t, err)
	require.Equal(t, int32(2), shape.NumParts)

	outer := flatPoints(shape.Points[shape.Parts[0]:shape.Parts[1]])
	hole := flatPoints(shape.Points[shape.Parts[1]:])
	assert.False(t, xy.IsRingCounterClockwise(geom.XY, outer))
	assert.True(t, xy.IsRingCounterClockwise(geom.XY, hole))
}

func TestShapeRoundTrip(t *testing.T) {
	mp := geom.NewMultiPolygon(geom.XY)
	require.NoError(t, mp.Push(square(0, 0, 30, 30)))
	require.NoError(t, mp.Push(square(100, 100, 130, 160)))

	shape, err := ToShape(mp)
	require.NoError(t, err)

	back, err := FromShape(shape)
	require.NoError(t, err)
	assert.Equal(t, 2, back.NumPolygons())

	ext, err := PolygonExtent(back)
	require.NoError(t, err)
	assert.Equal(t, Extent{MinX: 0, MinY: 0, MaxX: 130, MaxY: 160}, ext)
}

func flatPoints(pts []shp.Point) []float64 {
	out := make([]float64, 0, len(pts)*2)
	for _, p := range pts {
		out = append(out, p.X, p.Y)
	}
	return out
}

// Package geo converts tile geometries between shapefile and go-geom form
// and derives the bounding extents the raster windows are cut from.
package geo

import (
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
)

// Extent is an axis-aligned bounding box in map units.
type Extent struct {
	MinX, MinY, MaxX, MaxY float64
}

// Width returns MaxX - MinX.
func (e Extent) Width() float64 { return e.MaxX - e.MinX }

// Height returns MaxY - MinY.
func (e Extent) Height() float64 { return e.MaxY - e.MinY }

// Polygons flattens a Polygon or MultiPolygon into its polygons.
func Polygons(g geom.T) ([]*geom.Polygon, error) {
	switch v := g.(type) {
	case *geom.Polygon:
		return []*geom.Polygon{v}, nil
	case *geom.MultiPolygon:
		out := make([]*geom.Polygon, 0, v.NumPolygons())
		for i := 0; i < v.NumPolygons(); i++ {
			out = append(out, v.Polygon(i))
		}
		return out, nil
	case nil:
		return nil, eris.New("geo: nil geometry")
	default:
		return nil, eris.Errorf("geo: unsupported geometry %T", g)
	}
}

// PolygonExtent returns the union of the vertex extents of every part of
// g. g must be a Polygon or MultiPolygon.
func PolygonExtent(g geom.T) (Extent, error) {
	if _, err := Polygons(g); err != nil {
		return Extent{}, err
	}
	b := g.Bounds()
	if b.IsEmpty() {
		return Extent{}, eris.New("geo: geometry has no vertices")
	}
	return Extent{MinX: b.Min(0), MinY: b.Min(1), MaxX: b.Max(0), MaxY: b.Max(1)}, nil
}

package geo

import (
	"slices"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"
	"go.uber.org/zap"
)

// FromShape converts a shapefile polygon to a geom.MultiPolygon. Clockwise
// rings start a new polygon; counter-clockwise rings are holes of the
// polygon before them, following the shapefile ring convention.
func FromShape(shape shp.Shape) (*geom.MultiPolygon, error) {
	p, ok := shape.(*shp.Polygon)
	if !ok {
		return nil, eris.Errorf("geo: unsupported shape %T", shape)
	}
	if p.NumParts == 0 || len(p.Points) == 0 {
		return nil, eris.New("geo: empty polygon")
	}

	mp := geom.NewMultiPolygon(geom.XY)
	var current *geom.Polygon

	flush := func() {
		if current == nil {
			return
		}
		if err := mp.Push(current); err != nil {
			zap.L().Debug("geo: skipping malformed polygon part", zap.Error(err))
		}
		current = nil
	}

	for i := int32(0); i < p.NumParts; i++ {
		start := p.Parts[i]
		end := int32(len(p.Points))
		if i+1 < p.NumParts {
			end = p.Parts[i+1]
		}
		if end-start < 4 {
			zap.L().Debug("geo: skipping degenerate ring", zap.Int32("part", i))
			continue
		}

		flat := make([]float64, 0, (end-start)*2)
		for j := start; j < end; j++ {
			flat = append(flat, p.Points[j].X, p.Points[j].Y)
		}
		ring := geom.NewLinearRingFlat(geom.XY, flat)

		hole := xy.IsRingCounterClockwise(geom.XY, flat)
		if hole && current != nil {
			if err := current.Push(ring); err != nil {
				zap.L().Debug("geo: skipping malformed hole", zap.Int32("part", i), zap.Error(err))
			}
			continue
		}

		flush()
		current = geom.NewPolygon(geom.XY)
		if err := current.Push(ring); err != nil {
			zap.L().Debug("geo: skipping malformed ring", zap.Int32("part", i), zap.Error(err))
			current = nil
		}
	}
	flush()

	if mp.NumPolygons() == 0 {
		return nil, eris.New("geo: polygon has no valid rings")
	}
	return mp, nil
}

// ToShape converts a Polygon or MultiPolygon to a shapefile polygon with
// clockwise exterior rings and counter-clockwise holes.
func ToShape(g geom.T) (*shp.Polygon, error) {
	polys, err := Polygons(g)
	if err != nil {
		return nil, err
	}

	var parts [][]shp.Point
	for _, p := range polys {
		for r := 0; r < p.NumLinearRings(); r++ {
			ring := p.LinearRing(r)
			flat := ring.FlatCoords()
			stride := ring.Stride()

			pts := make([]shp.Point, 0, len(flat)/stride)
			for i := 0; i+1 < len(flat); i += stride {
				pts = append(pts, shp.Point{X: flat[i], Y: flat[i+1]})
			}

			ccw := xy.IsRingCounterClockwise(ring.Layout(), flat)
			wantCCW := r > 0
			if ccw != wantCCW {
				slices.Reverse(pts)
			}
			parts = append(parts, pts)
		}
	}
	if len(parts) == 0 {
		return nil, eris.New("geo: geometry has no rings")
	}

	poly := shp.Polygon(*shp.NewPolyLine(parts))
	return &poly, nil
}

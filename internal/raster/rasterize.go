package raster

import (
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"

	"github.com/sells-group/vhr-sample/internal/geo"
)

// Mask is a burned polygon footprint over a window: 1 inside, 0 outside.
type Mask struct {
	Rect
	Bits []uint8
}

// Inside reports whether absolute pixel (row, col) was burned.
func (m *Mask) Inside(row, col int) bool {
	if !m.Contains(row, col) {
		return false
	}
	return m.Bits[(row-m.YOff)*m.XCount+(col-m.XOff)] == 1
}

// Count returns the number of burned pixels.
func (m *Mask) Count() int {
	n := 0
	for _, b := range m.Bits {
		n += int(b)
	}
	return n
}

// Rasterize burns g over window r: a pixel is inside when its centre lies
// in an exterior ring of some part of g and in none of that part's holes.
func Rasterize(g geom.T, t Transform, r Rect) (*Mask, error) {
	polys, err := geo.Polygons(g)
	if err != nil {
		return nil, err
	}

	type part struct {
		layout geom.Layout
		ext    geo.Extent
		outer  []float64
		holes  [][]float64
	}
	parts := make([]part, 0, len(polys))
	for _, p := range polys {
		if p.NumLinearRings() == 0 {
			continue
		}
		ext, err := geo.PolygonExtent(p)
		if err != nil {
			continue
		}
		pt := part{layout: p.Layout(), ext: ext, outer: p.LinearRing(0).FlatCoords()}
		for i := 1; i < p.NumLinearRings(); i++ {
			pt.holes = append(pt.holes, p.LinearRing(i).FlatCoords())
		}
		parts = append(parts, pt)
	}

	m := &Mask{Rect: r, Bits: make([]uint8, r.Size())}
	for row := r.YOff; row < r.YOff+r.YCount; row++ {
		for col := r.XOff; col < r.XOff+r.XCount; col++ {
			x, y := t.PixelToMap(float64(col)+0.5, float64(row)+0.5)
			c := geom.Coord{x, y}
			for _, pt := range parts {
				if x < pt.ext.MinX || x > pt.ext.MaxX || y < pt.ext.MinY || y > pt.ext.MaxY {
					continue
				}
				if !xy.IsPointInRing(pt.layout, c, pt.outer) {
					continue
				}
				inHole := false
				for _, h := range pt.holes {
					if xy.IsPointInRing(pt.layout, c, h) {
						inHole = true
						break
					}
				}
				if !inHole {
					m.Bits[(row-r.YOff)*r.XCount+(col-r.XOff)] = 1
					break
				}
			}
		}
	}
	return m, nil
}

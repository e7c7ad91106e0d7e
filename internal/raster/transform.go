// Package raster provides the raster collaborator of the sampling design:
// affine transforms, windowed reads, polygon rasterization and the TIFF
// store.
package raster

import (
	"math"

	"github.com/twpayne/go-geom"

	"github.com/sells-group/vhr-sample/internal/geo"
)

// Transform is a six-parameter affine geotransform in GDAL order:
//
//	x = OriginX + col*PixelWidth + row*RowRotation
//	y = OriginY + col*ColRotation + row*PixelHeight
//
// PixelHeight is negative for north-up rasters.
type Transform struct {
	OriginX     float64 `json:"origin_x" yaml:"origin_x"`
	PixelWidth  float64 `json:"pixel_width" yaml:"pixel_width"`
	RowRotation float64 `json:"row_rotation" yaml:"row_rotation"`
	OriginY     float64 `json:"origin_y" yaml:"origin_y"`
	ColRotation float64 `json:"col_rotation" yaml:"col_rotation"`
	PixelHeight float64 `json:"pixel_height" yaml:"pixel_height"`
}

// NorthUp builds a transform without rotation.
func NorthUp(originX, originY, pixelWidth, pixelHeight float64) Transform {
	return Transform{OriginX: originX, PixelWidth: pixelWidth, OriginY: originY, PixelHeight: pixelHeight}
}

// FromGDAL converts a GDAL geotransform array.
func FromGDAL(gt [6]float64) Transform {
	return Transform{
		OriginX: gt[0], PixelWidth: gt[1], RowRotation: gt[2],
		OriginY: gt[3], ColRotation: gt[4], PixelHeight: gt[5],
	}
}

// GDAL returns the transform as a GDAL geotransform array.
func (t Transform) GDAL() [6]float64 {
	return [6]float64{t.OriginX, t.PixelWidth, t.RowRotation, t.OriginY, t.ColRotation, t.PixelHeight}
}

// PixelToMap maps fractional pixel coordinates to map coordinates.
func (t Transform) PixelToMap(col, row float64) (x, y float64) {
	x = t.OriginX + col*t.PixelWidth + row*t.RowRotation
	y = t.OriginY + col*t.ColRotation + row*t.PixelHeight
	return x, y
}

// PixelArea returns the ground area of one pixel in squared map units.
func (t Transform) PixelArea() float64 {
	return math.Abs(t.PixelWidth*t.PixelHeight - t.RowRotation*t.ColRotation)
}

// WindowFor returns the pixel window covering ext. Offsets truncate toward
// zero and counts include the partial trailing pixel, matching how tile
// footprints have always been cut from the map. The window is not clipped.
func (t Transform) WindowFor(ext geo.Extent) Rect {
	pw := math.Abs(t.PixelWidth)
	ph := math.Abs(t.PixelHeight)
	return Rect{
		XOff:   int((ext.MinX - t.OriginX) / pw),
		YOff:   int((t.OriginY - ext.MaxY) / ph),
		XCount: int(ext.Width()/pw) + 1,
		YCount: int(ext.Height()/ph) + 1,
	}
}

// PixelSquare returns the footprint of pixel (row, col) as a closed polygon
// in map coordinates. The ring is counter-clockwise whatever the sign of the
// pixel height.
func (t Transform) PixelSquare(row, col int) *geom.Polygon {
	corners := [][2]float64{{0, 0}, {1, 0}, {1, 1}, {0, 1}, {0, 0}}
	if t.Determinant() < 0 {
		corners = [][2]float64{{0, 0}, {0, 1}, {1, 1}, {1, 0}, {0, 0}}
	}
	ring := make([]geom.Coord, 0, len(corners))
	for _, c := range corners {
		x, y := t.PixelToMap(float64(col)+c[0], float64(row)+c[1])
		ring = append(ring, geom.Coord{x, y})
	}
	return geom.NewPolygon(geom.XY).MustSetCoords([][]geom.Coord{ring})
}

// Determinant of the pixel-to-map mapping. It is negative for north-up
// rasters, whose rows run down the map.
func (t Transform) Determinant() float64 {
	return t.PixelWidth*t.PixelHeight - t.RowRotation*t.ColRotation
}

// Rect is a pixel window: XCount columns by YCount rows starting at
// (XOff, YOff).
type Rect struct {
	XOff   int `json:"xoff"`
	YOff   int `json:"yoff"`
	XCount int `json:"xcount"`
	YCount int `json:"ycount"`
}

// Empty reports whether the window covers no pixels.
func (r Rect) Empty() bool { return r.XCount <= 0 || r.YCount <= 0 }

// Size returns the number of pixels in the window.
func (r Rect) Size() int {
	if r.Empty() {
		return 0
	}
	return r.XCount * r.YCount
}

// Contains reports whether absolute pixel (row, col) lies in the window.
func (r Rect) Contains(row, col int) bool {
	return col >= r.XOff && col < r.XOff+r.XCount && row >= r.YOff && row < r.YOff+r.YCount
}

// Clip intersects the window with a cols x rows raster.
func (r Rect) Clip(cols, rows int) Rect {
	x0, y0 := max(r.XOff, 0), max(r.YOff, 0)
	x1, y1 := min(r.XOff+r.XCount, cols), min(r.YOff+r.YCount, rows)
	if x1 <= x0 || y1 <= y0 {
		return Rect{XOff: x0, YOff: y0}
	}
	return Rect{XOff: x0, YOff: y0, XCount: x1 - x0, YCount: y1 - y0}
}

// Shrink removes margin pixels from every side.
func (r Rect) Shrink(margin int) Rect {
	return Rect{
		XOff:   r.XOff + margin,
		YOff:   r.YOff + margin,
		XCount: r.XCount - 2*margin,
		YCount: r.YCount - 2*margin,
	}
}

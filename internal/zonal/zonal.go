// Package zonal computes per-polygon pixel statistics over a raster window.
package zonal

import (
	"slices"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"

	"github.com/sells-group/vhr-sample/internal/geo"
	"github.com/sells-group/vhr-sample/internal/raster"
	"github.com/sells-group/vhr-sample/internal/sampling"
)

// Options controls a zonal query.
type Options struct {
	// TileID is carried into EmptyIntersectionError.
	TileID int
	// NoData values are excluded from Valid, Matched and PerClass.
	NoData []int
	// Filter restricts Matched to these values. Empty means every valid
	// pixel matches.
	Filter []int
	// PixelArea overrides the area of one pixel. Zero derives it from the
	// raster transform.
	PixelArea float64
	// AllowEmpty returns zero counts instead of an error when every
	// footprint pixel is no-data.
	AllowEmpty bool
}

// Stats is the result of one zonal query.
type Stats struct {
	Total      int         // footprint pixels inside the raster
	Valid      int         // footprint pixels not in NoData
	Matched    int         // valid pixels passing Filter
	PerClass   map[int]int // valid pixel count per value
	Area       float64     // Matched * pixel area
	Proportion float64     // Matched / Total
	Window     raster.Rect
}

// Masked is a raster window with the burned polygon footprint over it.
type Masked struct {
	Window *raster.Window
	Mask   *raster.Mask
}

// Rect returns the clipped pixel window.
func (m *Masked) Rect() raster.Rect { return m.Window.Rect }

// Each calls fn for every footprint pixel in row-major order.
func (m *Masked) Each(fn func(row, col int, v int32)) {
	r := m.Window.Rect
	for row := r.YOff; row < r.YOff+r.YCount; row++ {
		for col := r.XOff; col < r.XOff+r.XCount; col++ {
			if m.Mask.Inside(row, col) {
				fn(row, col, m.Window.At(row, col))
			}
		}
	}
}

// Footprint reads the window covering g from band 1 of h and burns g over
// it. Only the window is read. It fails with *sampling.EmptyIntersectionError
// when no pixel centre of g falls inside the raster.
func Footprint(g geom.T, h raster.Handle, tileID int) (*Masked, error) {
	ext, err := geo.PolygonExtent(g)
	if err != nil {
		return nil, eris.Wrapf(err, "zonal: tile %d", tileID)
	}

	t := h.Transform()
	cols, rows := h.Size()
	r := t.WindowFor(ext).Clip(cols, rows)
	if r.Empty() {
		return nil, &sampling.EmptyIntersectionError{TileID: tileID, Reason: "outside raster extent"}
	}

	mask, err := raster.Rasterize(g, t, r)
	if err != nil {
		return nil, eris.Wrapf(err, "zonal: rasterize tile %d", tileID)
	}
	if mask.Count() == 0 {
		return nil, &sampling.EmptyIntersectionError{TileID: tileID, Reason: "footprint covers no pixel centre"}
	}

	w, err := raster.ReadRect(h, r)
	if err != nil {
		return nil, eris.Wrapf(err, "zonal: read window for tile %d", tileID)
	}
	return &Masked{Window: w, Mask: mask}, nil
}

// Compute counts the pixels of h under g. A footprint made only of no-data
// is reported as *sampling.EmptyIntersectionError unless opts.AllowEmpty is
// set.
func Compute(g geom.T, h raster.Handle, opts Options) (*Stats, error) {
	m, err := Footprint(g, h, opts.TileID)
	if err != nil {
		return nil, err
	}

	st := &Stats{PerClass: make(map[int]int), Window: m.Rect()}
	m.Each(func(_, _ int, v int32) {
		st.Total++
		c := int(v)
		if slices.Contains(opts.NoData, c) {
			return
		}
		st.Valid++
		st.PerClass[c]++
		if len(opts.Filter) == 0 || slices.Contains(opts.Filter, c) {
			st.Matched++
		}
	})
	if st.Valid == 0 && !opts.AllowEmpty {
		return nil, &sampling.EmptyIntersectionError{TileID: opts.TileID, Reason: "all pixels are no-data"}
	}

	area := opts.PixelArea
	if area == 0 {
		area = h.Transform().PixelArea()
	}
	st.Area = float64(st.Matched) * area
	st.Proportion = float64(st.Matched) / float64(st.Total)
	return st, nil
}

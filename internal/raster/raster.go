package raster

import (
	"github.com/rotisserie/eris"
)

// Handle is an open single- or multi-band raster.
type Handle interface {
	Transform() Transform
	Projection() string
	// Size returns the raster width (columns) and height (rows).
	Size() (cols, rows int)
	// ReadWindow reads xcount x ycount pixels of band (1-based) starting at
	// (xoff, yoff). The window must lie inside the raster.
	ReadWindow(band, xoff, yoff, xcount, ycount int) (*Window, error)
}

// Store opens rasters by path.
type Store interface {
	Open(path string) (Handle, error)
}

// Window is a block of pixel values read from a band, row-major.
type Window struct {
	Rect
	Data []int32
}

// At returns the value at absolute pixel (row, col). The pixel must lie in
// the window.
func (w *Window) At(row, col int) int32 {
	return w.Data[(row-w.YOff)*w.XCount+(col-w.XOff)]
}

// Grid is an in-memory single-band raster of integer class values.
type Grid struct {
	cols, rows int
	transform  Transform
	projection string
	data       []int32
}

// NewGrid wraps row-major data. len(data) must equal cols*rows.
func NewGrid(cols, rows int, t Transform, projection string, data []int32) (*Grid, error) {
	if cols <= 0 || rows <= 0 {
		return nil, eris.Errorf("raster: invalid grid size %dx%d", cols, rows)
	}
	if len(data) != cols*rows {
		return nil, eris.Errorf("raster: grid data has %d values, want %d", len(data), cols*rows)
	}
	return &Grid{cols: cols, rows: rows, transform: t, projection: projection, data: data}, nil
}

// NewFilledGrid returns a grid with every pixel set to v.
func NewFilledGrid(cols, rows int, t Transform, projection string, v int32) (*Grid, error) {
	data := make([]int32, cols*rows)
	if v != 0 {
		for i := range data {
			data[i] = v
		}
	}
	return NewGrid(cols, rows, t, projection, data)
}

// Transform implements Handle.
func (g *Grid) Transform() Transform { return g.transform }

// Projection implements Handle.
func (g *Grid) Projection() string { return g.projection }

// Size implements Handle.
func (g *Grid) Size() (int, int) { return g.cols, g.rows }

// Value returns the pixel at (row, col).
func (g *Grid) Value(row, col int) int32 { return g.data[row*g.cols+col] }

// Set writes the pixel at (row, col).
func (g *Grid) Set(row, col int, v int32) { g.data[row*g.cols+col] = v }

// Data exposes the row-major backing slice.
func (g *Grid) Data() []int32 { return g.data }

// ReadWindow implements Handle. Grids carry one band.
func (g *Grid) ReadWindow(band, xoff, yoff, xcount, ycount int) (*Window, error) {
	if band != 1 {
		return nil, eris.Errorf("raster: band %d out of range (1 band)", band)
	}
	r := Rect{XOff: xoff, YOff: yoff, XCount: xcount, YCount: ycount}
	if r.Empty() || xoff < 0 || yoff < 0 || xoff+xcount > g.cols || yoff+ycount > g.rows {
		return nil, eris.Errorf("raster: window %+v outside %dx%d raster", r, g.cols, g.rows)
	}
	w := &Window{Rect: r, Data: make([]int32, 0, xcount*ycount)}
	for row := yoff; row < yoff+ycount; row++ {
		start := row*g.cols + xoff
		w.Data = append(w.Data, g.data[start:start+xcount]...)
	}
	return w, nil
}

// ReadRect reads r from band 1 of h.
func ReadRect(h Handle, r Rect) (*Window, error) {
	return h.ReadWindow(1, r.XOff, r.YOff, r.XCount, r.YCount)
}

package raster

import (
	"bufio"
	"image"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/image/tiff"
)

// worldFileExts are the sidecar extensions searched, in order, for the
// affine transform of a TIFF.
var worldFileExts = []string{".tfw", ".tifw", ".wld"}

// TIFFStore opens single-band 8- or 16-bit TIFF rasters. The geotransform
// comes from an ESRI world file next to the image and the projection from a
// .prj sidecar when present.
type TIFFStore struct{}

// Open implements Store. The whole band is decoded into memory.
func (TIFFStore) Open(path string) (Handle, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "raster: open %s", path)
	}
	defer func() { _ = f.Close() }()

	img, err := tiff.Decode(bufio.NewReader(f))
	if err != nil {
		return nil, eris.Wrapf(err, "raster: decode %s", path)
	}

	t, err := readWorldFile(path)
	if err != nil {
		return nil, err
	}
	proj := readProjection(path)

	b := img.Bounds()
	cols, rows := b.Dx(), b.Dy()
	data := make([]int32, cols*rows)

	switch m := img.(type) {
	case *image.Gray:
		for y := 0; y < rows; y++ {
			for x := 0; x < cols; x++ {
				data[y*cols+x] = int32(m.GrayAt(b.Min.X+x, b.Min.Y+y).Y)
			}
		}
	case *image.Gray16:
		for y := 0; y < rows; y++ {
			for x := 0; x < cols; x++ {
				data[y*cols+x] = int32(m.Gray16At(b.Min.X+x, b.Min.Y+y).Y)
			}
		}
	case *image.Paletted:
		for y := 0; y < rows; y++ {
			for x := 0; x < cols; x++ {
				data[y*cols+x] = int32(m.ColorIndexAt(b.Min.X+x, b.Min.Y+y))
			}
		}
	default:
		return nil, eris.Errorf("raster: %s: unsupported pixel layout %T, want single-band integer", path, img)
	}

	zap.L().Debug("raster: opened tiff",
		zap.String("path", path),
		zap.Int("cols", cols),
		zap.Int("rows", rows),
	)
	return NewGrid(cols, rows, t, proj, data)
}

// WriteTIFF encodes g as a deflate-compressed TIFF with world file and, when
// the grid has a projection, a .prj sidecar. Values must fit in 0..65535;
// grids whose values all fit in a byte are written as 8-bit.
func WriteTIFF(path string, g *Grid) error {
	cols, rows := g.Size()
	wide := false
	for _, v := range g.Data() {
		if v < 0 || v > 0xffff {
			return eris.Errorf("raster: value %d cannot be stored in an unsigned 16-bit tiff", v)
		}
		if v > 0xff {
			wide = true
		}
	}

	var img image.Image
	rect := image.Rect(0, 0, cols, rows)
	if wide {
		m := image.NewGray16(rect)
		for i, v := range g.Data() {
			m.Pix[2*i] = uint8(v >> 8)
			m.Pix[2*i+1] = uint8(v)
		}
		img = m
	} else {
		m := image.NewGray(rect)
		for i, v := range g.Data() {
			m.Pix[i] = uint8(v)
		}
		img = m
	}

	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "raster: create %s", path)
	}
	w := bufio.NewWriter(f)
	if err := tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate, Predictor: true}); err != nil {
		_ = f.Close()
		return eris.Wrapf(err, "raster: encode %s", path)
	}
	if err := w.Flush(); err != nil {
		_ = f.Close()
		return eris.Wrapf(err, "raster: flush %s", path)
	}
	if err := f.Close(); err != nil {
		return eris.Wrapf(err, "raster: close %s", path)
	}

	if err := WriteWorldFile(sidecar(path, ".tfw"), g.Transform()); err != nil {
		return err
	}
	if g.Projection() != "" {
		if err := os.WriteFile(sidecar(path, ".prj"), []byte(g.Projection()), 0o644); err != nil {
			return eris.Wrapf(err, "raster: write projection for %s", path)
		}
	}
	return nil
}

// WriteWorldFile writes t in ESRI world file order (A, D, B, E, C, F) where
// C and F locate the centre of the upper-left pixel.
func WriteWorldFile(path string, t Transform) error {
	cx, cy := t.PixelToMap(0.5, 0.5)
	vals := []float64{t.PixelWidth, t.ColRotation, t.RowRotation, t.PixelHeight, cx, cy}
	var sb strings.Builder
	for _, v := range vals {
		sb.WriteString(strconv.FormatFloat(v, 'f', -1, 64))
		sb.WriteByte('\n')
	}
	if err := os.WriteFile(path, []byte(sb.String()), 0o644); err != nil {
		return eris.Wrapf(err, "raster: write world file %s", path)
	}
	return nil
}

// ParseWorldFile parses the six lines of a world file.
func ParseWorldFile(content string) (Transform, error) {
	fields := strings.Fields(content)
	if len(fields) != 6 {
		return Transform{}, eris.Errorf("raster: world file has %d values, want 6", len(fields))
	}
	var v [6]float64
	for i, f := range fields {
		x, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return Transform{}, eris.Wrapf(err, "raster: world file value %d", i+1)
		}
		v[i] = x
	}
	a, d, b, e, c, f := v[0], v[1], v[2], v[3], v[4], v[5]
	return Transform{
		OriginX:     c - a/2 - b/2,
		PixelWidth:  a,
		RowRotation: b,
		OriginY:     f - d/2 - e/2,
		ColRotation: d,
		PixelHeight: e,
	}, nil
}

func readWorldFile(path string) (Transform, error) {
	for _, ext := range worldFileExts {
		b, err := os.ReadFile(sidecar(path, ext))
		if err != nil {
			continue
		}
		return ParseWorldFile(string(b))
	}
	return Transform{}, eris.Errorf("raster: no world file (%s) found for %s",
		strings.Join(worldFileExts, ", "), path)
}

func readProjection(path string) string {
	b, err := os.ReadFile(sidecar(path, ".prj"))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(b))
}

func sidecar(path, ext string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ext
}

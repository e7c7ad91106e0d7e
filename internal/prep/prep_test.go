package prep

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/sells-group/vhr-sample/internal/model"
	"github.com/sells-group/vhr-sample/internal/progress"
	"github.com/sells-group/vhr-sample/internal/raster"
	"github.com/sells-group/vhr-sample/internal/sampling"
)

func observe(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zapcore.InfoLevel)
	t.Cleanup(zap.ReplaceGlobals(zap.New(core)))
	return logs
}

func square(x0, y0, x1, y1 float64) *geom.Polygon {
	return geom.NewPolygon(geom.XY).MustSetCoords([][]geom.Coord{{
		{x0, y0}, {x0, y1}, {x1, y1}, {x1, y0}, {x0, y0},
	}})
}

func grid(t *testing.T, data []int32) *raster.Grid {
	t.Helper()
	g, err := raster.NewGrid(8, 2, raster.NorthUp(0, 60, 30, -30), "", data)
	require.NoError(t, err)
	return g
}

// Tiles A..D each cover a 2x2 block of the 8x2 rasters; E misses them.
func fixture(t *testing.T) (tiles []*model.Tile, change, landCover *raster.Grid) {
	t.Helper()
	tiles = []*model.Tile{
		{ID: 10, Geometry: square(0, 0, 60, 60), Attrs: map[string]string{"name": "A"}},
		{Geometry: square(60, 0, 120, 60)},
		{Geometry: square(120, 0, 180, 60)},
		{Geometry: square(180, 0, 240, 60)},
		{Geometry: square(1000, 0, 1060, 60)},
	}
	change = grid(t, []int32{
		1, 1, 0, 0, 1, 0, 2, 2,
		1, 0, 0, 0, 0, 0, 2, 2,
	})
	landCover = grid(t, []int32{
		1, 1, 1, 1, 1, 0, 0, 0,
		1, 1, 1, 1, 0, 0, 0, 0,
	})
	return tiles, change, landCover
}

func TestRun_WithLandCover(t *testing.T) {
	logs := observe(t)
	tiles, change, lc := fixture(t)

	var pcts []int
	res, err := Run(context.Background(), tiles, change, lc, Options{
		ChangeNoData:       []int{0, 255},
		LandCoverNoData:    []int{0, 255},
		LandCoverThreshold: DefaultLandCoverThreshold,
		PixelArea:          900,
		Workers:            3,
		Progress:           progress.Func(func(p int) { pcts = append(pcts, p) }),
	})
	require.NoError(t, err)

	assert.Equal(t, 4, res.Assigned)
	require.Len(t, res.Tiles, 2)

	a, b := res.Tiles[0], res.Tiles[1]
	assert.Equal(t, 10, a.ID)
	assert.Equal(t, "A", a.Attrs["name"])
	assert.True(t, a.Measured)
	assert.Equal(t, 3, a.ChangePixels)
	assert.Equal(t, 4, a.FootprintPixels)
	assert.InDelta(t, 2700.0, a.ChangeArea, 1e-9)
	assert.InDelta(t, 0.75, a.ChangeProportion, 1e-12)
	assert.Equal(t, map[int]int{1: 3}, a.ClassPixelCounts)

	assert.Equal(t, 11, b.ID)
	assert.True(t, b.Measured)
	assert.Zero(t, b.ChangePixels)
	assert.Equal(t, 4, b.FootprintPixels)

	assert.Equal(t, []Skip{
		{TileID: 12, Reason: "land cover proportion below threshold"},
		{TileID: 13, Reason: "all pixels are no-data"},
		{TileID: 14, Reason: "outside raster extent"},
	}, res.Skipped)
	assert.Equal(t, 3, logs.FilterMessage("skipping tile").Len())
	assert.Equal(t, []int{20, 40, 60, 80, 100}, pcts)
}

func TestRun_ChangeOnly(t *testing.T) {
	observe(t)
	tiles, change, _ := fixture(t)

	res, err := Run(context.Background(), tiles[:4], change, nil, Options{
		ChangeNoData:  []int{0, 255},
		ChangeClasses: []int{1},
		PixelArea:     900,
	})
	require.NoError(t, err)
	require.Len(t, res.Tiles, 4)
	assert.Empty(t, res.Skipped)

	got := make([]int, len(res.Tiles))
	for i, tl := range res.Tiles {
		got[i] = tl.ChangePixels
	}
	assert.Equal(t, []int{3, 0, 1, 0}, got)
	assert.Equal(t, map[int]int{2: 4}, res.Tiles[3].ClassPixelCounts)
}

func TestRun_InvalidThreshold(t *testing.T) {
	tiles, change, _ := fixture(t)
	_, err := Run(context.Background(), tiles, change, nil, Options{LandCoverThreshold: 1.5})
	assert.True(t, errors.Is(err, sampling.ErrConfiguration))
}

func TestRun_Cancelled(t *testing.T) {
	observe(t)
	tiles, change, _ := fixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Run(ctx, tiles, change, nil, Options{Workers: 2})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRun_BadGeometry(t *testing.T) {
	observe(t)
	_, change, _ := fixture(t)
	tiles := []*model.Tile{{ID: 1, Geometry: geom.NewPointFlat(geom.XY, []float64{1, 1})}}

	_, err := Run(context.Background(), tiles, change, nil, Options{})
	require.Error(t, err)
	assert.False(t, sampling.IsSkippable(err))
}

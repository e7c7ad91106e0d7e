// Package prep measures every tile of the sampling frame against the change
// map so that stage 1 can rank them.
package prep

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/vhr-sample/internal/model"
	"github.com/sells-group/vhr-sample/internal/progress"
	"github.com/sells-group/vhr-sample/internal/raster"
	"github.com/sells-group/vhr-sample/internal/sampling"
	"github.com/sells-group/vhr-sample/internal/zonal"
)

// DefaultLandCoverThreshold is the minimum in-study-area share of a tile.
const DefaultLandCoverThreshold = 0.4

// Options configures a prep pass.
type Options struct {
	// ChangeNoData values of the change map do not count as change.
	ChangeNoData []int
	// ChangeClasses restricts change pixels to these values. Empty counts
	// every value outside ChangeNoData.
	ChangeClasses []int
	// LandCoverNoData values of the land-cover map lie outside the study
	// area.
	LandCoverNoData []int
	// LandCoverThreshold is the share of a tile that must lie inside the
	// study area. Only applied when a land-cover map is given.
	LandCoverThreshold float64
	PixelArea          float64
	Workers            int
	Progress           progress.Reporter
}

// Skip records a tile left out of the prepared frame.
type Skip struct {
	TileID int
	Reason string
}

// Result holds the measured tiles, in input order, and the skipped ones.
type Result struct {
	Tiles    []*model.Tile
	Skipped  []Skip
	Assigned int // tiles that received a new SampID
}

// Run computes change statistics for every tile. landCover may be nil.
// Tiles that miss the change map, or whose land-cover footprint is all
// no-data or below the threshold, are skipped with a warning. All workers
// finish before Run returns.
func Run(ctx context.Context, tiles []*model.Tile, change, landCover raster.Handle, opts Options) (*Result, error) {
	log := zap.L().With(zap.String("component", "prep"))

	if opts.LandCoverThreshold < 0 || opts.LandCoverThreshold > 1 {
		return nil, sampling.NewConfigurationError("land cover threshold", "%g is outside [0, 1]", opts.LandCoverThreshold)
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = 1
	}

	assigned := model.AssignIDs(tiles)
	if assigned > 0 {
		log.Info("assigned sample ids", zap.Int("count", assigned))
	}

	skips := make([]string, len(tiles))
	counter := progress.NewCounter(len(tiles), opts.Progress)
	var measured atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, t := range tiles {
		g.Go(func() error {
			defer counter.Step()
			if err := gctx.Err(); err != nil {
				return err
			}

			reason, err := measure(t, change, landCover, opts)
			if err != nil {
				return err
			}
			if reason != "" {
				skips[i] = reason
				log.Warn("skipping tile", zap.Int("tile_id", t.ID), zap.String("reason", reason))
				return nil
			}
			measured.Add(1)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "prep: measure tiles")
	}

	res := &Result{Assigned: assigned}
	for i, t := range tiles {
		if skips[i] != "" {
			res.Skipped = append(res.Skipped, Skip{TileID: t.ID, Reason: skips[i]})
			continue
		}
		res.Tiles = append(res.Tiles, t)
	}

	log.Info("prep complete",
		zap.Int("tiles", len(tiles)),
		zap.Int64("measured", measured.Load()),
		zap.Int("skipped", len(res.Skipped)),
	)
	return res, nil
}

// measure fills the zonal fields of t. A non-empty reason means the tile is
// skipped; errors abort the pass.
func measure(t *model.Tile, change, landCover raster.Handle, opts Options) (string, error) {
	if landCover != nil {
		lc, err := zonal.Compute(t.Geometry, landCover, zonal.Options{
			TileID: t.ID,
			NoData: opts.LandCoverNoData,
		})
		if err != nil {
			return skipReason(err)
		}
		if lc.Proportion < opts.LandCoverThreshold {
			return "land cover proportion below threshold", nil
		}
	}

	// A tile without change stays in the frame with zero change.
	st, err := zonal.Compute(t.Geometry, change, zonal.Options{
		TileID:     t.ID,
		NoData:     opts.ChangeNoData,
		Filter:     opts.ChangeClasses,
		PixelArea:  opts.PixelArea,
		AllowEmpty: true,
	})
	if err != nil {
		return skipReason(err)
	}

	t.ClassPixelCounts = st.PerClass
	t.FootprintPixels = st.Total
	t.ChangePixels = st.Matched
	t.ChangeArea = st.Area
	t.ChangeProportion = st.Proportion
	t.Measured = true
	return "", nil
}

func skipReason(err error) (string, error) {
	var ei *sampling.EmptyIntersectionError
	if errors.As(err, &ei) {
		return ei.Reason, nil
	}
	return "", err
}

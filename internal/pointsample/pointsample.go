// Package pointsample implements the second sampling stage: pixels are drawn
// from the tiles selected in stage 1, either uniformly per tile or stratified
// by map class across all selected tiles.
package pointsample

import (
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/sells-group/vhr-sample/internal/model"
	"github.com/sells-group/vhr-sample/internal/raster"
	"github.com/sells-group/vhr-sample/internal/sampling"
	"github.com/sells-group/vhr-sample/internal/zonal"
)

// DefaultMargin is the edge buffer, in pixels, kept clear on every side of a
// tile window in random mode.
const DefaultMargin = 25

// DefaultMask lists class values never sampled in stratified mode.
var DefaultMask = []int{0, 255}

// Options configures stage 2.
type Options struct {
	// Margin pixels are removed from each side of a tile window before
	// random draws. 0 keeps the whole window; callers wanting the usual
	// buffer pass DefaultMargin.
	Margin int
	// Mask values are excluded from the classes of a stratified draw. A nil
	// Mask means DefaultMask; an empty one masks nothing.
	Mask []int
}

// Sampler draws stage-2 sample points with an injected random source.
type Sampler struct {
	src  sampling.RandomSource
	opts Options
}

// New returns a Sampler drawing from src.
func New(src sampling.RandomSource, opts Options) *Sampler {
	if opts.Mask == nil {
		opts.Mask = DefaultMask
	}
	return &Sampler{src: src, opts: opts}
}

// SampleRandom draws size pixels from each selected tile. Columns and rows
// are drawn independently without replacement over the buffered tile window
// and paired in draw order, so one pixel can appear twice across pairs.
// π2 is size over the buffered window area. Tiles that miss the raster are
// skipped with a warning.
func (s *Sampler) SampleRandom(tiles []*model.Tile, h raster.Handle, size int) ([]*model.SamplePoint, error) {
	log := zap.L().With(zap.String("component", "pointsample"), zap.String("mode", string(model.ModeRandom)))

	if size < 0 {
		return nil, sampling.NewConfigurationError("size", "sample size %d is negative", size)
	}

	var points []*model.SamplePoint
	for _, t := range model.SelectedTiles(tiles) {
		m, err := zonal.Footprint(t.Geometry, h, t.ID)
		if err != nil {
			if sampling.IsSkippable(err) {
				log.Warn("skipping tile", zap.Int("tile_id", t.ID), zap.Error(err))
				continue
			}
			return nil, err
		}

		r := m.Rect().Shrink(s.opts.Margin)
		if r.Empty() || r.XCount < size || r.YCount < size {
			return nil, &sampling.InsufficientPopulationError{
				Scope:      fmt.Sprintf("tile %d buffered window", t.ID),
				Requested:  size,
				Population: max(0, min(r.XCount, r.YCount)),
			}
		}

		cols, err := s.src.Choose(r.XCount, size)
		if err != nil {
			return nil, err
		}
		rows, err := s.src.Choose(r.YCount, size)
		if err != nil {
			return nil, err
		}

		pop := r.Size()
		pi2 := float64(size) / float64(pop)
		for i := range size {
			row, col := r.YOff+rows[i], r.XOff+cols[i]
			id := t.ID
			points = append(points, &model.SamplePoint{
				ID:             len(points) + 1,
				TileID:         &id,
				Row:            row,
				Col:            col,
				ClassValue:     int(m.Window.At(row, col)),
				InclusionProb2: pi2,
				PopulationSize: pop,
			})
		}
		log.Debug("sampled tile", zap.Int("tile_id", t.ID), zap.Int("points", size), zap.Int("population", pop))
	}
	return points, nil
}

// SampleStratified draws allocation[i] pixels of the i-th class, in
// ascending class order, from the merged footprint of all selected tiles.
// Pixels covered by several tiles count once. A class allocation larger than
// its population is clamped with a warning and π2 is computed from the
// clamped count.
func (s *Sampler) SampleStratified(tiles []*model.Tile, h raster.Handle, allocation []int) ([]*model.SamplePoint, []model.ClassSummary, error) {
	log := zap.L().With(zap.String("component", "pointsample"), zap.String("mode", string(model.ModeStratified)))

	for _, n := range allocation {
		if n < 0 {
			return nil, nil, sampling.NewConfigurationError("allocation", "negative class allocation %d", n)
		}
	}

	pixels, err := s.mergedFootprint(tiles, h)
	if err != nil {
		return nil, nil, err
	}

	classes := make([]int, 0)
	byClass := make(map[int][]pixel)
	for _, p := range pixels {
		c := int(p.value)
		if slices.Contains(s.opts.Mask, c) {
			continue
		}
		if _, ok := byClass[c]; !ok {
			classes = append(classes, c)
		}
		byClass[c] = append(byClass[c], p)
	}
	slices.Sort(classes)

	if len(classes) != len(allocation) {
		return nil, nil, &sampling.ClassAllocationMismatchError{Classes: classes, Allocations: allocation}
	}

	var points []*model.SamplePoint
	summaries := make([]model.ClassSummary, 0, len(classes))
	for i, c := range classes {
		pop := byClass[c]
		sum := model.ClassSummary{Class: c, Requested: allocation[i], Population: len(pop)}

		n := allocation[i]
		if n > len(pop) {
			log.Warn("class allocation larger than population, reducing to population",
				zap.Int("class", c),
				zap.Int("requested", n),
				zap.Int("population", len(pop)),
			)
			n = len(pop)
			sum.Clamped = true
		}
		sum.Drawn = n
		if n > 0 {
			sum.InclusionProb2 = float64(n) / float64(len(pop))
		}

		drawn, err := sampling.ChooseFrom(s.src, pop, n)
		if err != nil {
			return nil, nil, err
		}
		for _, p := range drawn {
			points = append(points, &model.SamplePoint{
				ID:             len(points) + 1,
				Row:            p.row,
				Col:            p.col,
				ClassValue:     c,
				InclusionProb2: sum.InclusionProb2,
				PopulationSize: len(pop),
			})
		}
		summaries = append(summaries, sum)
		log.Debug("sampled class", zap.Int("class", c), zap.Int("points", n), zap.Int("population", len(pop)))
	}
	return points, summaries, nil
}

type pixel struct {
	row, col int
	value    int32
}

// mergedFootprint collects the pixels under every selected tile in
// row-major order, each pixel once.
func (s *Sampler) mergedFootprint(tiles []*model.Tile, h raster.Handle) ([]pixel, error) {
	log := zap.L().With(zap.String("component", "pointsample"))
	cols, _ := h.Size()

	seen := make(map[int]int32)
	for _, t := range model.SelectedTiles(tiles) {
		m, err := zonal.Footprint(t.Geometry, h, t.ID)
		if err != nil {
			if sampling.IsSkippable(err) {
				log.Warn("skipping tile", zap.Int("tile_id", t.ID), zap.Error(err))
				continue
			}
			return nil, err
		}
		m.Each(func(row, col int, v int32) {
			seen[row*cols+col] = v
		})
	}
	if len(seen) == 0 {
		return nil, &sampling.EmptyIntersectionError{Reason: "no selected tile overlaps the raster"}
	}

	keys := make([]int, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	out := make([]pixel, len(keys))
	for i, k := range keys {
		out[i] = pixel{row: k / cols, col: k % cols, value: seen[k]}
	}
	return out, nil
}

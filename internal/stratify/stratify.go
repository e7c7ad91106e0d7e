// Package stratify implements the first sampling stage: tiles are split into
// a high-change and a low-change stratum by their share of total change and
// a fixed number of tiles is drawn from each.
package stratify

import (
	"cmp"
	"slices"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/sells-group/vhr-sample/internal/model"
	"github.com/sells-group/vhr-sample/internal/sampling"
)

// DefaultThreshold is the cumulative change share that closes stratum 1.
const DefaultThreshold = 0.5

// Options configures stage 1.
type Options struct {
	Method    sampling.Method
	Size      int
	Threshold float64
	// Specified is the explicit [n1, n2] pair for MethodSpecified.
	Specified []int
}

// Validate rejects options before any tile is touched.
func (o Options) Validate() error {
	if o.Size < 0 {
		return sampling.NewConfigurationError("size", "sample size %d is negative", o.Size)
	}
	if o.Threshold <= 0 || o.Threshold > 1 {
		return sampling.NewConfigurationError("threshold", "%g is outside (0, 1]", o.Threshold)
	}
	switch o.Method {
	case sampling.MethodNeyman, sampling.MethodEqual:
	case sampling.MethodSpecified:
		if _, err := sampling.SpecifiedAllocation(o.Size, o.Specified); err != nil {
			return err
		}
	default:
		return sampling.NewConfigurationError("allocation method", "unknown method %q", o.Method)
	}
	return nil
}

// Result describes a completed stage-1 design. Strata hold tiles in rank
// order (descending change share); selections are in draw order.
type Result struct {
	Stratum1  []*model.Tile
	Stratum2  []*model.Tile
	Selected1 []*model.Tile
	Selected2 []*model.Tile
	// Shares holds each tile's share of total change, in input order.
	Shares     []float64
	Allocation sampling.Allocation
	StdDev1    float64
	StdDev2    float64
	// Boundary is the rank index of the first stratum-2 tile.
	Boundary int
	// NeymanFallback is set when Neyman allocation was undefined and
	// proportional allocation was used instead.
	NeymanFallback bool
}

// InclusionProb1 returns n_h / N_h for stratum h, or 0 for an empty stratum.
func (r *Result) InclusionProb1(stratum int) float64 {
	sel, pop := r.Selected1, r.Stratum1
	if stratum == model.StratumLow {
		sel, pop = r.Selected2, r.Stratum2
	}
	if len(pop) == 0 {
		return 0
	}
	return float64(len(sel)) / float64(len(pop))
}

// Stratifier runs stage 1 with an injected random source.
type Stratifier struct {
	src  sampling.RandomSource
	opts Options
}

// New returns a Stratifier drawing from src.
func New(src sampling.RandomSource, opts Options) *Stratifier {
	return &Stratifier{src: src, opts: opts}
}

// Stratify ranks tiles by change share, splits them at the threshold,
// allocates the sample and draws it. Every tile gets its Stratum,
// StratumPopulation, InclusionProb1, ChangeShare and Selected fields set.
func (s *Stratifier) Stratify(tiles []*model.Tile) (*Result, error) {
	log := zap.L().With(zap.String("component", "stratify"))

	if err := s.opts.Validate(); err != nil {
		return nil, err
	}
	if len(tiles) == 0 {
		return nil, sampling.NewConfigurationError("tiles", "no tiles to stratify")
	}

	var total float64
	for _, t := range tiles {
		if !t.Measured {
			return nil, sampling.NewConfigurationError("tiles", "tile %d has no change statistics", t.ID)
		}
		total += t.ChangeArea
	}
	if total <= 0 {
		return nil, sampling.NewConfigurationError("tiles", "total change area is zero")
	}

	shares := make([]float64, len(tiles))
	for i, t := range tiles {
		shares[i] = t.ChangeArea / total
		t.ChangeShare = shares[i]
	}

	rank := make([]int, len(tiles))
	for i := range rank {
		rank[i] = i
	}
	slices.SortStableFunc(rank, func(a, b int) int { return cmp.Compare(shares[b], shares[a]) })

	ranked := make([]float64, len(rank))
	for i, idx := range rank {
		ranked[i] = shares[idx]
	}
	cum := floats.CumSum(make([]float64, len(ranked)), ranked)

	boundary := len(cum)
	for i, c := range cum {
		if c >= s.opts.Threshold {
			boundary = i
			break
		}
	}

	res := &Result{Shares: shares, Boundary: boundary}
	for i, idx := range rank {
		if i < boundary {
			res.Stratum1 = append(res.Stratum1, tiles[idx])
		} else {
			res.Stratum2 = append(res.Stratum2, tiles[idx])
		}
	}
	res.StdDev1 = shareStdDev(res.Stratum1)
	res.StdDev2 = shareStdDev(res.Stratum2)

	alloc, err := s.allocate(res)
	if err != nil {
		return nil, err
	}
	res.Allocation = alloc
	if res.NeymanFallback {
		log.Warn("neyman allocation undefined, both strata have zero spread; allocating by population",
			zap.Int("n1", alloc.N1), zap.Int("n2", alloc.N2))
	}

	res.Selected1, err = draw(s.src, "stratum 1", res.Stratum1, alloc.N1)
	if err != nil {
		return nil, err
	}
	res.Selected2, err = draw(s.src, "stratum 2", res.Stratum2, alloc.N2)
	if err != nil {
		return nil, err
	}

	mark(res.Stratum1, model.StratumHigh, res.InclusionProb1(model.StratumHigh))
	mark(res.Stratum2, model.StratumLow, res.InclusionProb1(model.StratumLow))
	for _, t := range res.Selected1 {
		t.Selected = true
	}
	for _, t := range res.Selected2 {
		t.Selected = true
	}

	log.Info("stage 1 complete",
		zap.String("method", string(s.opts.Method)),
		zap.Int("stratum1", len(res.Stratum1)),
		zap.Int("stratum2", len(res.Stratum2)),
		zap.Int("n1", alloc.N1),
		zap.Int("n2", alloc.N2),
		zap.Float64("sd1", res.StdDev1),
		zap.Float64("sd2", res.StdDev2),
	)
	return res, nil
}

func (s *Stratifier) allocate(res *Result) (sampling.Allocation, error) {
	n := s.opts.Size
	switch s.opts.Method {
	case sampling.MethodEqual:
		return sampling.EqualAllocation(n), nil
	case sampling.MethodSpecified:
		return sampling.SpecifiedAllocation(n, s.opts.Specified)
	default:
		alloc, fellBack := sampling.NeymanAllocation(n, len(res.Stratum1), res.StdDev1, len(res.Stratum2), res.StdDev2)
		res.NeymanFallback = fellBack
		return alloc, nil
	}
}

// shareStdDev is the population standard deviation of the stratum's change
// shares in percent.
func shareStdDev(tiles []*model.Tile) float64 {
	if len(tiles) == 0 {
		return 0
	}
	x := make([]float64, len(tiles))
	for i, t := range tiles {
		x[i] = t.ChangeShare
	}
	return stat.PopStdDev(x, nil) * 100
}

func draw(src sampling.RandomSource, scope string, pop []*model.Tile, k int) ([]*model.Tile, error) {
	if k > len(pop) {
		return nil, &sampling.InsufficientPopulationError{Scope: scope, Requested: k, Population: len(pop)}
	}
	return sampling.ChooseFrom(src, pop, k)
}

func mark(tiles []*model.Tile, stratum int, pi float64) {
	for _, t := range tiles {
		t.Stratum = stratum
		t.StratumPopulation = len(tiles)
		t.InclusionProb1 = pi
		t.Selected = false
	}
}

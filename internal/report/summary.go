// Package report renders design summaries and class counts as YAML and
// XLSX documents for the analyst.
package report

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/vhr-sample/internal/design"
	"github.com/sells-group/vhr-sample/internal/model"
	"github.com/sells-group/vhr-sample/internal/sampling"
	"github.com/sells-group/vhr-sample/internal/stratify"
)

// Summary documents one design run.
type Summary struct {
	RunID  string         `yaml:"run_id,omitempty"`
	Seed   uint64         `yaml:"seed"`
	Stage1 *Stage1Summary `yaml:"stage1,omitempty"`
	Stage2 *Stage2Summary `yaml:"stage2,omitempty"`
}

// Stage1Summary describes the tile strata and their allocation.
type Stage1Summary struct {
	Method         string              `yaml:"method,omitempty"`
	Size           int                 `yaml:"size"`
	Threshold      float64             `yaml:"threshold,omitempty"`
	Allocation     sampling.Allocation `yaml:"allocation"`
	Strata         []StratumSummary    `yaml:"strata"`
	NeymanFallback bool                `yaml:"neyman_fallback,omitempty"`
}

// StratumSummary is one stage-1 stratum.
type StratumSummary struct {
	Stratum        int     `yaml:"stratum"`
	Population     int     `yaml:"population"`
	Selected       int     `yaml:"selected"`
	InclusionProb1 float64 `yaml:"inclusion_prob_1"`
	StdDev         float64 `yaml:"std_dev,omitempty"` // spread of change share, in percent
}

// Stage2Summary describes the point sample.
type Stage2Summary struct {
	Mode         model.SampleMode     `yaml:"mode"`
	Points       int                  `yaml:"points"`
	Tiles        int                  `yaml:"tiles,omitempty"`
	MinInclusion float64              `yaml:"min_inclusion"`
	MaxInclusion float64              `yaml:"max_inclusion"`
	Classes      []model.ClassSummary `yaml:"classes,omitempty"`
}

// Stage1FromResult summarizes a stage-1 run as it happened.
func Stage1FromResult(cfg design.Stage1Config, res *stratify.Result) *Stage1Summary {
	return &Stage1Summary{
		Method:     string(cfg.Method),
		Size:       res.Allocation.Total(),
		Threshold:  cfg.Threshold,
		Allocation: res.Allocation,
		Strata: []StratumSummary{
			{
				Stratum:        model.StratumHigh,
				Population:     len(res.Stratum1),
				Selected:       len(res.Selected1),
				InclusionProb1: res.InclusionProb1(model.StratumHigh),
				StdDev:         res.StdDev1,
			},
			{
				Stratum:        model.StratumLow,
				Population:     len(res.Stratum2),
				Selected:       len(res.Selected2),
				InclusionProb1: res.InclusionProb1(model.StratumLow),
				StdDev:         res.StdDev2,
			},
		},
		NeymanFallback: res.NeymanFallback,
	}
}

// Stage1FromTiles rebuilds the stage-1 summary from stratified tiles, as
// read back from a strata layer. It returns nil when no tile carries a
// stratum.
func Stage1FromTiles(tiles []*model.Tile) *Stage1Summary {
	byStratum := map[int]*StratumSummary{
		model.StratumHigh: {Stratum: model.StratumHigh},
		model.StratumLow:  {Stratum: model.StratumLow},
	}
	found := false
	for _, t := range tiles {
		s, ok := byStratum[t.Stratum]
		if !ok {
			continue
		}
		found = true
		s.Population++
		if t.Selected {
			s.Selected++
		}
		s.InclusionProb1 = t.InclusionProb1
	}
	if !found {
		return nil
	}

	high, low := byStratum[model.StratumHigh], byStratum[model.StratumLow]
	return &Stage1Summary{
		Size:       high.Selected + low.Selected,
		Allocation: sampling.Allocation{N1: high.Selected, N2: low.Selected},
		Strata:     []StratumSummary{*high, *low},
	}
}

// Stage2FromSample summarizes a composed stage-2 sample.
func Stage2FromSample(s *design.Sample) *Stage2Summary {
	out := &Stage2Summary{Mode: s.Mode, Points: len(s.Points), Classes: s.Classes}
	tiles := make(map[int]struct{})
	for i, p := range s.Points {
		if i == 0 || p.FinalInclusionProb < out.MinInclusion {
			out.MinInclusion = p.FinalInclusionProb
		}
		out.MaxInclusion = max(out.MaxInclusion, p.FinalInclusionProb)
		if p.TileID != nil {
			tiles[*p.TileID] = struct{}{}
		}
	}
	out.Tiles = len(tiles)
	return out
}

// WriteYAML writes the summary to path.
func WriteYAML(path string, s *Summary) error {
	b, err := yaml.Marshal(s)
	if err != nil {
		return eris.Wrap(err, "report: marshal summary")
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return eris.Wrapf(err, "report: write %s", path)
	}
	return nil
}

// ReadYAML loads a summary written by WriteYAML.
func ReadYAML(path string) (*Summary, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "report: read %s", path)
	}
	var s Summary
	if err := yaml.Unmarshal(b, &s); err != nil {
		return nil, eris.Wrapf(err, "report: parse %s", path)
	}
	return &s, nil
}

package model

import "github.com/twpayne/go-geom"

// Stratum identifiers assigned by stage-1 stratification.
const (
	StratumUnassigned = 0
	StratumHigh       = 1 // tiles holding the most concentrated share of change
	StratumLow        = 2
)

// Tile is one polygon feature of the first-stage sampling frame.
type Tile struct {
	ID int `json:"id"`
	// HasID is set when ID was read from the frame, which makes 0 a valid
	// identifier.
	HasID    bool   `json:"-"`
	Geometry geom.T `json:"-"`

	// Zonal statistics against the change raster.
	ClassPixelCounts map[int]int `json:"class_pixel_counts,omitempty"`
	FootprintPixels  int         `json:"footprint_pixels"`
	ChangePixels     int         `json:"change_pixels"`
	ChangeArea       float64     `json:"change_area"`
	ChangeProportion float64     `json:"change_proportion"`
	Measured         bool        `json:"measured"`

	// Stage-1 design.
	ChangeShare       float64 `json:"change_share"`
	Stratum           int     `json:"stratum"`
	Selected          bool    `json:"selected"`
	StratumPopulation int     `json:"stratum_population"`
	InclusionProb1    float64 `json:"inclusion_prob_1"`

	// Attrs holds input attributes copied to output unmodified.
	Attrs map[string]string `json:"attrs,omitempty"`
}

// Stage1 returns the stage-1 design record for the tile. The boolean is
// false until stratification has run.
func (t *Tile) Stage1() (Stage1Info, bool) {
	if t.Stratum == StratumUnassigned {
		return Stage1Info{}, false
	}
	return Stage1Info{
		TileID:            t.ID,
		Stratum:           t.Stratum,
		InclusionProb1:    t.InclusionProb1,
		StratumPopulation: t.StratumPopulation,
	}, true
}

// SelectedTiles filters tiles to those drawn into the stage-1 sample,
// preserving order.
func SelectedTiles(tiles []*Tile) []*Tile {
	out := make([]*Tile, 0, len(tiles))
	for _, t := range tiles {
		if t.Selected {
			out = append(out, t)
		}
	}
	return out
}

// Stage1Info is the stage-1 design information carried onto sample points.
type Stage1Info struct {
	TileID            int     `json:"tile_id"`
	Stratum           int     `json:"stratum"`
	InclusionProb1    float64 `json:"inclusion_prob_1"`
	StratumPopulation int     `json:"stratum_population"`
}

// Identified reports whether the tile carries an identifier.
func (t *Tile) Identified() bool {
	return t.HasID || t.ID > 0
}

// AssignIDs gives every unidentified tile the next unused ID, continuing
// from the largest existing one. Existing IDs, including 0, are never
// changed.
func AssignIDs(tiles []*Tile) int {
	next := 0
	for _, t := range tiles {
		if t.Identified() {
			next = max(next, t.ID)
		}
	}
	assigned := 0
	for _, t := range tiles {
		if t.Identified() {
			continue
		}
		next++
		t.ID = next
		t.HasID = true
		assigned++
	}
	return assigned
}

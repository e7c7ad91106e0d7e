// Package inclusion composes the two-stage inclusion probabilities of sample
// points.
package inclusion

import (
	"github.com/rotisserie/eris"

	"github.com/sells-group/vhr-sample/internal/model"
)

// Tracker indexes the stage-1 design of a tile set by tile ID.
type Tracker struct {
	byTile map[int]model.Stage1Info
}

// NewTracker records the stage-1 information of every stratified tile.
func NewTracker(tiles []*model.Tile) *Tracker {
	t := &Tracker{byTile: make(map[int]model.Stage1Info, len(tiles))}
	for _, tile := range tiles {
		if info, ok := tile.Stage1(); ok {
			t.byTile[tile.ID] = info
		}
	}
	return t
}

// Lookup returns the stage-1 information of a tile.
func (t *Tracker) Lookup(tileID int) (model.Stage1Info, bool) {
	info, ok := t.byTile[tileID]
	return info, ok
}

// Compose sets the final inclusion probability of p. Points drawn from a
// known tile get that tile's stage-1 record and π1 × π2. Points without a
// tile, as drawn in stratified mode, keep π2 alone.
func (t *Tracker) Compose(p *model.SamplePoint) error {
	if p.TileID == nil {
		p.Stage1 = nil
		p.FinalInclusionProb = p.InclusionProb2
		return nil
	}
	info, ok := t.byTile[*p.TileID]
	if !ok {
		return eris.Errorf("inclusion: point %d references tile %d without a stage-1 design", p.ID, *p.TileID)
	}
	p.Stage1 = &info
	p.FinalInclusionProb = info.InclusionProb1 * p.InclusionProb2
	return nil
}

// ComposeAll applies Compose to every point.
func (t *Tracker) ComposeAll(points []*model.SamplePoint) error {
	for _, p := range points {
		if err := t.Compose(p); err != nil {
			return err
		}
	}
	return nil
}

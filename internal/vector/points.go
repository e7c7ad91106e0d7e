package vector

import (
	"github.com/sells-group/vhr-sample/internal/model"
	"github.com/sells-group/vhr-sample/internal/raster"
)

// Point output column names.
const (
	PointID        = "ID"
	PointTile      = "Tile"
	PointStrata1   = "Strata1"
	PointStrata    = "Strata"
	PointReference = "Reference"
	PointTotalPix  = "TotalPix"
	PointInclu1    = "Inclu_1"
	PointInclu2    = "Inclu_2"
	PointInclusion = "Inclu_Fin"
	PointTilePop   = "TilePop"
)

// PointFields is the sample point schema. Reference is left blank for the
// interpreter to fill in.
var PointFields = []model.FieldDef{
	{Name: PointID, Kind: model.FieldNumber, Size: 10},
	{Name: PointTile, Kind: model.FieldNumber, Size: 10},
	{Name: PointStrata1, Kind: model.FieldNumber, Size: 4},
	{Name: PointStrata, Kind: model.FieldNumber, Size: 6},
	{Name: PointReference, Kind: model.FieldNumber, Size: 6},
	{Name: PointTotalPix, Kind: model.FieldNumber, Size: 12},
	{Name: PointInclu1, Kind: model.FieldFloat, Size: 18, Precision: 12},
	{Name: PointInclu2, Kind: model.FieldFloat, Size: 18, Precision: 12},
	{Name: PointInclusion, Kind: model.FieldFloat, Size: 18, Precision: 12},
	{Name: PointTilePop, Kind: model.FieldNumber, Size: 10},
}

// SavePoints writes each point as the square footprint of its pixel under
// t. Points without a tile leave Tile blank. Points without stage-1
// information get 0 in Strata1, Inclu_1 and TilePop.
func SavePoints(path string, points []*model.SamplePoint, t raster.Transform, projection string) error {
	records := make([]record, 0, len(points))
	for _, p := range points {
		var tile any
		if p.TileID != nil {
			tile = *p.TileID
		}
		var strata1, tilePop int
		if p.Stage1 != nil {
			strata1 = p.Stage1.Stratum
			tilePop = p.Stage1.StratumPopulation
		}
		records = append(records, record{
			geometry: t.PixelSquare(p.Row, p.Col),
			values: map[string]any{
				PointID:        p.ID,
				PointTile:      tile,
				PointStrata1:   strata1,
				PointStrata:    p.ClassValue,
				PointTotalPix:  p.PopulationSize,
				PointInclu1:    p.InclusionProb1(),
				PointInclu2:    p.InclusionProb2,
				PointInclusion: p.FinalInclusionProb,
				PointTilePop:   tilePop,
			},
		})
	}
	return write(path, PointFields, records, projection)
}

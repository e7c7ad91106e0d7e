// Package vector reads the tile sampling frame from shapefiles and writes
// tiles and sample points back out as shapefiles or GeoJSON.
package vector

import (
	"math"
	"strconv"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/vhr-sample/internal/geo"
	"github.com/sells-group/vhr-sample/internal/model"
)

// Layer is a loaded tile layer.
type Layer struct {
	// Schema lists every input attribute column in file order.
	Schema     *model.Schema
	Tiles      []*model.Tile
	Projection string
}

// Columns selects the computed column groups written by SaveTiles.
type Columns uint8

const (
	ColumnsPrep   Columns = 1 << iota // area, proportion, ch_pix, noch_pix
	ColumnsStrata                     // strata, percent, selection, pop_stage1, inclu_1
)

// PrepFields are the columns written after the zonal pass.
var PrepFields = []model.FieldDef{
	{Name: model.FieldArea, Kind: model.FieldNumber, Size: 12},
	{Name: model.FieldProportion, Kind: model.FieldFloat, Size: 18, Precision: 10},
	{Name: model.FieldChangePix, Kind: model.FieldNumber, Size: 10},
	{Name: model.FieldNoChange, Kind: model.FieldNumber, Size: 10},
}

// StrataFields are the columns written after stage 1.
var StrataFields = []model.FieldDef{
	{Name: model.FieldStrata, Kind: model.FieldNumber, Size: 4},
	{Name: model.FieldPercent, Kind: model.FieldFloat, Size: 18, Precision: 10},
	{Name: model.FieldSelection, Kind: model.FieldNumber, Size: 4},
	{Name: model.FieldPopStage1, Kind: model.FieldNumber, Size: 10},
	{Name: model.FieldInclu1, Kind: model.FieldFloat, Size: 18, Precision: 10},
}

var sampleIDField = model.FieldDef{Name: model.FieldSampleID, Kind: model.FieldNumber, Size: 10}

// LoadTiles reads a polygon shapefile. Known columns (SampID and the prep
// and strata columns) are parsed into the typed tile fields; every other
// column is kept verbatim in Tile.Attrs. A blank or missing SampID leaves the
// tile unidentified; a SampID of 0 is kept.
// Records without a usable polygon are skipped.
func LoadTiles(path string) (*Layer, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "vector: open shapefile %s", path)
	}
	defer func() { _ = reader.Close() }()

	fields := reader.Fields()
	defs := make([]model.FieldDef, len(fields))
	for i, f := range fields {
		defs[i] = model.FieldDef{
			Name:      strings.TrimRight(f.String(), "\x00"),
			Kind:      model.FieldKind(f.Fieldtype),
			Size:      f.Size,
			Precision: f.Precision,
		}
	}
	layer := &Layer{Schema: model.NewSchema(defs), Projection: readProjection(path)}

	var skipped int
	for reader.Next() {
		n, shape := reader.Shape()
		if shape == nil {
			skipped++
			continue
		}
		g, err := geo.FromShape(shape)
		if err != nil {
			zap.L().Debug("vector: skipping record", zap.Int("record", n), zap.Error(err))
			skipped++
			continue
		}

		t := &model.Tile{Geometry: g}
		var chPix, nochPix int
		for i, d := range defs {
			val := strings.TrimSpace(strings.TrimRight(reader.Attribute(i), "\x00"))
			if !model.IsReserved(d.Name) {
				if t.Attrs == nil {
					t.Attrs = make(map[string]string, len(defs))
				}
				t.Attrs[d.Name] = val
				continue
			}
			if val == "" {
				continue
			}
			if err := setReserved(t, d.Name, val, &chPix, &nochPix); err != nil {
				return nil, eris.Wrapf(err, "vector: %s record %d", path, n)
			}
		}
		if t.Measured {
			t.ChangePixels = chPix
			t.FootprintPixels = chPix + nochPix
		}
		layer.Tiles = append(layer.Tiles, t)
	}

	if skipped > 0 {
		zap.L().Warn("vector: skipped records without polygon geometry",
			zap.String("path", path),
			zap.Int("skipped", skipped),
		)
	}
	return layer, nil
}

func setReserved(t *model.Tile, name, val string, chPix, nochPix *int) error {
	num := func() (float64, error) {
		v, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return 0, eris.Wrapf(err, "field %s", name)
		}
		return v, nil
	}
	v, err := num()
	if err != nil {
		return err
	}

	switch strings.ToLower(name) {
	case strings.ToLower(model.FieldSampleID):
		t.ID = int(v)
		t.HasID = true
	case model.FieldArea:
		t.ChangeArea = v
		t.Measured = true
	case model.FieldProportion:
		t.ChangeProportion = v
	case model.FieldChangePix:
		*chPix = int(v)
	case model.FieldNoChange:
		*nochPix = int(v)
	case model.FieldStrata:
		t.Stratum = int(v)
	case model.FieldPercent:
		t.ChangeShare = v / 100
	case model.FieldSelection:
		t.Selected = v == 1
	case model.FieldPopStage1:
		t.StratumPopulation = int(v)
	case model.FieldInclu1:
		t.InclusionProb1 = v
	}
	return nil
}

// SaveTiles writes tiles as polygons with the layer's pass-through columns,
// SampID (blank for unidentified tiles) and the requested computed columns.
// The output format follows the file extension (.shp or .geojson).
func SaveTiles(path string, layer *Layer, tiles []*model.Tile, cols Columns) error {
	var fields []model.FieldDef
	if layer != nil && layer.Schema != nil {
		fields = append(fields, layer.Schema.Passthrough()...)
	}
	fields = append(fields, sampleIDField)
	if cols&ColumnsPrep != 0 {
		fields = append(fields, PrepFields...)
	}
	if cols&ColumnsStrata != 0 {
		fields = append(fields, StrataFields...)
	}

	records := make([]record, 0, len(tiles))
	for _, t := range tiles {
		vals := make(map[string]any, len(fields))
		for k, v := range t.Attrs {
			vals[k] = v
		}
		if t.Identified() {
			vals[model.FieldSampleID] = t.ID
		}
		if cols&ColumnsPrep != 0 {
			vals[model.FieldArea] = int(math.Round(t.ChangeArea))
			vals[model.FieldProportion] = t.ChangeProportion
			vals[model.FieldChangePix] = t.ChangePixels
			vals[model.FieldNoChange] = t.FootprintPixels - t.ChangePixels
		}
		if cols&ColumnsStrata != 0 {
			vals[model.FieldStrata] = t.Stratum
			vals[model.FieldPercent] = t.ChangeShare * 100
			vals[model.FieldSelection] = boolInt(t.Selected)
			vals[model.FieldPopStage1] = t.StratumPopulation
			vals[model.FieldInclu1] = t.InclusionProb1
		}
		records = append(records, record{geometry: t.Geometry, values: vals})
	}

	projection := ""
	if layer != nil {
		projection = layer.Projection
	}
	return write(path, fields, records, projection)
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

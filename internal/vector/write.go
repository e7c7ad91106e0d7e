package vector

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"

	"github.com/sells-group/vhr-sample/internal/geo"
	"github.com/sells-group/vhr-sample/internal/model"
)

// record is one output feature: a polygon and its values keyed by field
// name. Missing values are left blank.
type record struct {
	geometry geom.T
	values   map[string]any
}

// IsGeoJSON reports whether path names a GeoJSON output.
func IsGeoJSON(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".geojson", ".json":
		return true
	}
	return false
}

func write(path string, fields []model.FieldDef, records []record, projection string) error {
	if IsGeoJSON(path) {
		return writeGeoJSON(path, fields, records)
	}
	return writeShapefile(path, fields, records, projection)
}

func writeShapefile(path string, fields []model.FieldDef, records []record, projection string) error {
	shpFields := make([]shp.Field, len(fields))
	for i, f := range fields {
		switch f.Kind {
		case model.FieldNumber:
			shpFields[i] = shp.NumberField(f.Name, f.Size)
		case model.FieldFloat:
			shpFields[i] = shp.FloatField(f.Name, f.Size, f.Precision)
		case model.FieldDate:
			shpFields[i] = shp.DateField(f.Name)
		default:
			shpFields[i] = shp.StringField(f.Name, f.Size)
		}
	}

	w, err := shp.Create(path, shp.POLYGON)
	if err != nil {
		return eris.Wrapf(err, "vector: create shapefile %s", path)
	}
	err = writeShapes(w, shpFields, fields, records)
	w.Close()

	// go-shp drops the dot before the dbf extension.
	base := shapefileBase(path)
	if err != nil {
		_ = os.Remove(base + "dbf")
		return eris.Wrapf(err, "vector: write %s", path)
	}
	if err := os.Rename(base+"dbf", base+".dbf"); err != nil {
		return eris.Wrapf(err, "vector: rename attribute table for %s", path)
	}

	if projection != "" {
		if err := os.WriteFile(base+".prj", []byte(projection), 0o644); err != nil {
			return eris.Wrapf(err, "vector: write projection for %s", path)
		}
	}
	zap.L().Debug("vector: wrote shapefile", zap.String("path", path), zap.Int("features", len(records)))
	return nil
}

func writeShapes(w *shp.Writer, shpFields []shp.Field, fields []model.FieldDef, records []record) error {
	if err := w.SetFields(shpFields); err != nil {
		return eris.Wrap(err, "set fields")
	}
	for n, r := range records {
		poly, err := geo.ToShape(r.geometry)
		if err != nil {
			return eris.Wrapf(err, "feature %d", n)
		}
		row := int(w.Write(poly))
		for i, f := range fields {
			v, ok := r.values[f.Name]
			if !ok || v == nil {
				continue
			}
			if err := w.WriteAttribute(row, i, v); err != nil {
				return eris.Wrapf(err, "feature %d field %s", n, f.Name)
			}
		}
	}
	return nil
}

// shapefileBase is the path shp.Create builds its sidecar names from.
func shapefileBase(path string) string {
	if strings.HasSuffix(strings.ToLower(path), ".shp") {
		return path[:len(path)-len(".shp")]
	}
	return path
}

func writeGeoJSON(path string, fields []model.FieldDef, records []record) error {
	fc := &geojson.FeatureCollection{Features: make([]*geojson.Feature, 0, len(records))}
	for _, r := range records {
		props := make(map[string]any, len(fields))
		for _, f := range fields {
			props[f.Name] = r.values[f.Name]
		}
		fc.Features = append(fc.Features, &geojson.Feature{Geometry: r.geometry, Properties: props})
	}

	b, err := json.Marshal(fc)
	if err != nil {
		return eris.Wrapf(err, "vector: encode geojson %s", path)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return eris.Wrapf(err, "vector: write %s", path)
	}
	zap.L().Debug("vector: wrote geojson", zap.String("path", path), zap.Int("features", len(records)))
	return nil
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

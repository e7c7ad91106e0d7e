package raster

import (
	"slices"

	"github.com/rotisserie/eris"

	"github.com/sells-group/vhr-sample/internal/progress"
)

// ComposeOptions maps a change map and a land-cover map onto final strata.
type ComposeOptions struct {
	ChangeNoData    int   // change map value meaning "no change"
	LandCoverNoData int   // land-cover value meaning outside the study area
	InForest        int   // land-cover class treated as forest
	OutForest       int   // strata value for stable forest
	OutNonForest    int   // strata value for stable non-forest
	InOther         []int // change classes folded into OutOther
	OutOther        int
	Progress        progress.Reporter
}

// ComposeStrata builds the final strata map. InOther change classes become
// OutOther; otherwise land-cover no-data becomes ChangeNoData, change classes
// keep their change-map value and unchanged pixels become stable forest or
// non-forest by land cover. Both rasters must share dimensions.
func ComposeStrata(change, landCover Handle, opts ComposeOptions) (*Grid, error) {
	cols, rows := change.Size()
	lcCols, lcRows := landCover.Size()
	if cols != lcCols || rows != lcRows {
		return nil, eris.Errorf("raster: land cover %dx%d and change map %dx%d must be aligned",
			lcCols, lcRows, cols, rows)
	}

	out, err := NewFilledGrid(cols, rows, change.Transform(), change.Projection(), 0)
	if err != nil {
		return nil, err
	}

	counter := progress.NewCounter(rows, opts.Progress)
	for row := 0; row < rows; row++ {
		cm, err := change.ReadWindow(1, 0, row, cols, 1)
		if err != nil {
			return nil, eris.Wrapf(err, "raster: read change row %d", row)
		}
		lc, err := landCover.ReadWindow(1, 0, row, cols, 1)
		if err != nil {
			return nil, eris.Wrapf(err, "raster: read land cover row %d", row)
		}

		for col := 0; col < cols; col++ {
			c, l := int(cm.Data[col]), int(lc.Data[col])
			var v int
			switch {
			case slices.Contains(opts.InOther, c):
				v = opts.OutOther
			case l == opts.LandCoverNoData:
				v = opts.ChangeNoData
			case c != opts.ChangeNoData:
				v = c
			case l == opts.InForest:
				v = opts.OutForest
			default:
				v = opts.OutNonForest
			}
			out.Set(row, col, int32(v))
		}
		counter.Step()
	}
	return out, nil
}

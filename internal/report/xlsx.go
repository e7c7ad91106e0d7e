package report

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/vhr-sample/internal/raster"
)

// Sheet names used in the generated workbooks.
const (
	SheetClassCount = "Class count"
	SheetStage1     = "Stage 1"
	SheetStage2     = "Stage 2"
)

// WriteClassCounts writes per-class pixel counts with their percentage of
// all counted pixels.
func WriteClassCounts(path string, counts []raster.ClassCount) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet(SheetClassCount)
	if err != nil {
		return eris.Wrap(err, "xlsx: add sheet")
	}
	header(sheet, "Class", "Pixels", "Percent")

	total := 0
	for _, c := range counts {
		row := sheet.AddRow()
		row.AddCell().SetInt(c.Class)
		row.AddCell().SetInt(c.Pixels)
		row.AddCell().SetFloat(c.Percent * 100)
		total += c.Pixels
	}
	row := sheet.AddRow()
	row.AddCell().SetString("Total")
	row.AddCell().SetInt(total)

	return save(f, path)
}

// WriteSummary writes the design summary as one sheet per stage.
func WriteSummary(path string, s *Summary) error {
	f := xlsx.NewFile()

	if s.Stage1 != nil {
		sheet, err := f.AddSheet(SheetStage1)
		if err != nil {
			return eris.Wrap(err, "xlsx: add sheet")
		}
		header(sheet, "Stratum", "Population", "Selected", "Inclusion probability", "Std dev (%)")
		for _, st := range s.Stage1.Strata {
			row := sheet.AddRow()
			row.AddCell().SetInt(st.Stratum)
			row.AddCell().SetInt(st.Population)
			row.AddCell().SetInt(st.Selected)
			row.AddCell().SetFloat(st.InclusionProb1)
			row.AddCell().SetFloat(st.StdDev)
		}
		note(sheet, "Seed", fmt.Sprint(s.Seed))
		if s.Stage1.Method != "" {
			note(sheet, "Method", s.Stage1.Method)
		}
		if s.Stage1.NeymanFallback {
			note(sheet, "Note", "neyman allocation undefined, allocated by population")
		}
	}

	if s.Stage2 != nil {
		sheet, err := f.AddSheet(SheetStage2)
		if err != nil {
			return eris.Wrap(err, "xlsx: add sheet")
		}
		header(sheet, "Class", "Requested", "Drawn", "Population", "Inclusion probability", "Clamped")
		for _, c := range s.Stage2.Classes {
			row := sheet.AddRow()
			row.AddCell().SetInt(c.Class)
			row.AddCell().SetInt(c.Requested)
			row.AddCell().SetInt(c.Drawn)
			row.AddCell().SetInt(c.Population)
			row.AddCell().SetFloat(c.InclusionProb2)
			row.AddCell().SetBool(c.Clamped)
		}
		note(sheet, "Mode", string(s.Stage2.Mode))
		note(sheet, "Points", fmt.Sprint(s.Stage2.Points))
	}

	if len(f.Sheets) == 0 {
		return eris.New("xlsx: summary has no stages")
	}
	return save(f, path)
}

func header(sheet *xlsx.Sheet, names ...string) {
	row := sheet.AddRow()
	for _, n := range names {
		row.AddCell().SetString(n)
	}
}

func note(sheet *xlsx.Sheet, key, value string) {
	row := sheet.AddRow()
	row.AddCell().SetString(key)
	row.AddCell().SetString(value)
}

func save(f *xlsx.File, path string) error {
	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "xlsx: save %s", path)
	}
	return nil
}

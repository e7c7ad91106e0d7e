package raster

import (
	"slices"
)

// ClassCount is the pixel tally of one class value.
type ClassCount struct {
	Class   int     `json:"class" yaml:"class"`
	Pixels  int     `json:"pixels" yaml:"pixels"`
	Percent float64 `json:"percent" yaml:"percent"` // share of counted pixels, 0..1
}

// CountClasses tallies band 1 of h by value, ignoring values in noData.
// Results are ordered by class value.
func CountClasses(h Handle, noData []int) ([]ClassCount, error) {
	cols, rows := h.Size()
	counts := make(map[int]int)
	total := 0

	// Row strips keep memory bounded on large rasters.
	const strip = 256
	for y := 0; y < rows; y += strip {
		n := min(strip, rows-y)
		w, err := h.ReadWindow(1, 0, y, cols, n)
		if err != nil {
			return nil, err
		}
		for _, v := range w.Data {
			c := int(v)
			if slices.Contains(noData, c) {
				continue
			}
			counts[c]++
			total++
		}
	}

	out := make([]ClassCount, 0, len(counts))
	for c, n := range counts {
		out = append(out, ClassCount{Class: c, Pixels: n, Percent: float64(n) / float64(total)})
	}
	slices.SortFunc(out, func(a, b ClassCount) int { return a.Class - b.Class })
	return out, nil
}

package sampling

import (
	"math"
	"strconv"
	"strings"
)

// Method selects how a total sample size is split between the two stage-1
// strata.
type Method string

const (
	MethodNeyman    Method = "neyman"
	MethodEqual     Method = "equal"
	MethodSpecified Method = "specified"
)

// ParseMethod normalises a user supplied allocation method name.
func ParseMethod(s string) (Method, error) {
	switch m := Method(strings.ToLower(strings.TrimSpace(s))); m {
	case MethodNeyman, MethodEqual, MethodSpecified:
		return m, nil
	default:
		return "", NewConfigurationError("allocation method", "unknown method %q", s)
	}
}

// Allocation is the per-stratum sample size pair.
type Allocation struct {
	N1 int `json:"n1" yaml:"n1"`
	N2 int `json:"n2" yaml:"n2"`
}

// Total returns N1 + N2.
func (a Allocation) Total() int { return a.N1 + a.N2 }

// Neyman returns round(n * pop * sd / (pop*sd + otherPop*otherSD)). The
// boolean is false when both strata have zero weight and the formula is
// undefined.
func Neyman(n, pop int, sd float64, otherPop int, otherSD float64) (int, bool) {
	denom := float64(pop)*sd + float64(otherPop)*otherSD
	if denom == 0 || math.IsNaN(denom) {
		return 0, false
	}
	return int(math.Round(float64(n) * float64(pop) * sd / denom)), true
}

// NeymanAllocation applies Neyman to both strata symmetrically. When the
// standard deviations are both zero it falls back to allocation proportional
// to stratum population; fellBack reports that case.
func NeymanAllocation(n, pop1 int, sd1 float64, pop2 int, sd2 float64) (alloc Allocation, fellBack bool) {
	n1, ok1 := Neyman(n, pop1, sd1, pop2, sd2)
	n2, ok2 := Neyman(n, pop2, sd2, pop1, sd1)
	if ok1 && ok2 {
		return Allocation{N1: n1, N2: n2}, false
	}
	total := pop1 + pop2
	if total == 0 {
		return Allocation{}, true
	}
	n1 = int(math.Round(float64(n) * float64(pop1) / float64(total)))
	return Allocation{N1: n1, N2: n - n1}, true
}

// EqualAllocation splits n in half with integer division. An odd remainder
// is dropped.
func EqualAllocation(n int) Allocation {
	return Allocation{N1: n / 2, N2: n / 2}
}

// SpecifiedAllocation validates an explicit [n1, n2] pair against n.
func SpecifiedAllocation(n int, counts []int) (Allocation, error) {
	if len(counts) != 2 {
		return Allocation{}, NewConfigurationError("allocation", "specified allocation needs 2 values, got %d", len(counts))
	}
	if counts[0] < 0 || counts[1] < 0 {
		return Allocation{}, NewConfigurationError("allocation", "negative stratum size in %v", counts)
	}
	if counts[0]+counts[1] != n {
		return Allocation{}, NewConfigurationError("allocation", "allocation %v sums to %d, sample size is %d",
			counts, counts[0]+counts[1], n)
	}
	return Allocation{N1: counts[0], N2: counts[1]}, nil
}

// ParseIntList parses integers separated by semicolons, commas or spaces,
// the list format used for no-data values, strata values and allocations.
func ParseIntList(field, s string) ([]int, error) {
	parts := strings.FieldsFunc(s, func(r rune) bool {
		return r == ';' || r == ',' || r == ' ' || r == '\t'
	})
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, NewConfigurationError(field, "%q is not an integer", p)
		}
		out = append(out, v)
	}
	return out, nil
}

// ValidateCounts checks that a per-class allocation is non-negative and sums
// to size.
func ValidateCounts(size int, counts []int) error {
	if len(counts) == 0 {
		return NewConfigurationError("allocation", "at least one class allocation is required")
	}
	sum := 0
	for _, c := range counts {
		if c < 0 {
			return NewConfigurationError("allocation", "negative class allocation %d", c)
		}
		sum += c
	}
	if sum != size {
		return NewConfigurationError("allocation", "class allocations sum to %d, sample size is %d", sum, size)
	}
	return nil
}

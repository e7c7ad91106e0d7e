package sampling

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEqualAllocation(t *testing.T) {
	tests := []struct {
		n    int
		want Allocation
	}{
		{100, Allocation{N1: 50, N2: 50}},
		// Odd remainder is dropped: 101 yields 100 units in total.
		{101, Allocation{N1: 50, N2: 50}},
		{1, Allocation{N1: 0, N2: 0}},
		{0, Allocation{}},
	}
	for _, tt := range tests {
		got := EqualAllocation(tt.n)
		assert.Equal(t, tt.want, got, "n=%d", tt.n)
	}
	assert.Equal(t, 100, EqualAllocation(101).Total())
}

func TestNeymanAllocation_EqualStrata(t *testing.T) {
	alloc, fellBack := NeymanAllocation(100, 20, 3.5, 20, 3.5)
	assert.False(t, fellBack)
	assert.Equal(t, Allocation{N1: 50, N2: 50}, alloc)
}

func TestNeymanAllocation_Weighted(t *testing.T) {
	// 10*4 = 40 against 30*2 = 60.
	alloc, fellBack := NeymanAllocation(50, 10, 4, 30, 2)
	assert.False(t, fellBack)
	assert.Equal(t, 20, alloc.N1)
	assert.Equal(t, 30, alloc.N2)
}

func TestNeymanAllocation_ZeroDeviationFallsBack(t *testing.T) {
	alloc, fellBack := NeymanAllocation(10, 3, 0, 7, 0)
	assert.True(t, fellBack)
	assert.Equal(t, Allocation{N1: 3, N2: 7}, alloc)
}

func TestNeyman_RoundsHalfAwayFromZero(t *testing.T) {
	n, ok := Neyman(5, 1, 1, 1, 1)
	require.True(t, ok)
	assert.Equal(t, 3, n)
}

func TestSpecifiedAllocation(t *testing.T) {
	alloc, err := SpecifiedAllocation(100, []int{75, 25})
	require.NoError(t, err)
	assert.Equal(t, Allocation{N1: 75, N2: 25}, alloc)

	_, err = SpecifiedAllocation(100, []int{75, 20})
	assert.ErrorIs(t, err, ErrConfiguration)

	_, err = SpecifiedAllocation(100, []int{100})
	var cfgErr *ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "allocation", cfgErr.Field)
}

func TestParseMethod(t *testing.T) {
	m, err := ParseMethod(" Neyman ")
	require.NoError(t, err)
	assert.Equal(t, MethodNeyman, m)

	_, err = ParseMethod("proportional")
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestParseIntList(t *testing.T) {
	got, err := ParseIntList("ndv", "0; 255")
	require.NoError(t, err)
	assert.Equal(t, []int{0, 255}, got)

	got, err = ParseIntList("allocation", "20,60, 20 100")
	require.NoError(t, err)
	assert.Equal(t, []int{20, 60, 20, 100}, got)

	_, err = ParseIntList("ndv", "0;abc")
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestValidateCounts(t *testing.T) {
	assert.NoError(t, ValidateCounts(50, []int{30, 20}))
	assert.ErrorIs(t, ValidateCounts(60, []int{30, 20}), ErrConfiguration)
	assert.ErrorIs(t, ValidateCounts(10, []int{-5, 15}), ErrConfiguration)
	assert.ErrorIs(t, ValidateCounts(0, nil), ErrConfiguration)
}

func TestSource_ChooseDistinct(t *testing.T) {
	src := NewSource(42)
	idx, err := src.Choose(100, 40)
	require.NoError(t, err)
	require.Len(t, idx, 40)

	seen := make(map[int]bool)
	for _, i := range idx {
		assert.GreaterOrEqual(t, i, 0)
		assert.Less(t, i, 100)
		assert.False(t, seen[i], "index %d drawn twice", i)
		seen[i] = true
	}
}

func TestSource_Deterministic(t *testing.T) {
	a, err := NewSource(7).Choose(1000, 25)
	require.NoError(t, err)
	b, err := NewSource(7).Choose(1000, 25)
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Equal(t, uint64(7), NewSource(7).Seed())
}

func TestSource_FullPopulation(t *testing.T) {
	idx, err := NewSource(1).Choose(5, 5)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int{0, 1, 2, 3, 4}, idx)
}

func TestSource_Insufficient(t *testing.T) {
	_, err := NewSource(1).Choose(3, 5)
	var popErr *InsufficientPopulationError
	require.True(t, errors.As(err, &popErr))
	assert.Equal(t, 5, popErr.Requested)
	assert.Equal(t, 3, popErr.Population)
	assert.ErrorIs(t, err, ErrInsufficientPopulation)
}

func TestSource_ZeroDraw(t *testing.T) {
	idx, err := NewSource(1).Choose(0, 0)
	require.NoError(t, err)
	assert.Empty(t, idx)
}

func TestChooseFrom(t *testing.T) {
	pop := []string{"a", "b", "c", "d"}
	got, err := ChooseFrom(NewSource(3), pop, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.NotEqual(t, got[0], got[1])
	for _, g := range got {
		assert.Contains(t, pop, g)
	}
}

func TestIsSkippable(t *testing.T) {
	assert.True(t, IsSkippable(&EmptyIntersectionError{TileID: 1, Reason: "outside raster"}))
	assert.False(t, IsSkippable(&InsufficientPopulationError{}))
	assert.False(t, IsSkippable(nil))
}

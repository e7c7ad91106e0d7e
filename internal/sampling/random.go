package sampling

import (
	"math/rand/v2"
	"time"

	"gonum.org/v1/gonum/stat/sampleuv"
)

// RandomSource draws uniformly without replacement.
type RandomSource interface {
	// Choose returns k distinct indices from [0, n) in draw order.
	Choose(n, k int) ([]int, error)
	// Seed returns the seed the source was created with.
	Seed() uint64
}

// Source is the process-wide generator used by both sampling stages. It is
// not safe for concurrent use; the core draws sequentially.
type Source struct {
	seed uint64
	rng  *rand.Rand
}

// NewSource returns a PCG-backed source. Identical seeds reproduce identical
// draws.
func NewSource(seed uint64) *Source {
	return &Source{seed: seed, rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// NewClockSource seeds from the wall clock. The seed is available via Seed
// so that a run can be reproduced.
func NewClockSource() *Source {
	return NewSource(uint64(time.Now().UnixNano()))
}

// Seed implements RandomSource.
func (s *Source) Seed() uint64 { return s.seed }

// Choose implements RandomSource.
func (s *Source) Choose(n, k int) ([]int, error) {
	if n < 0 || k < 0 {
		return nil, NewConfigurationError("draw", "negative draw %d of %d", k, n)
	}
	if k > n {
		return nil, &InsufficientPopulationError{Scope: "draw", Requested: k, Population: n}
	}
	idx := make([]int, k)
	if k == 0 {
		return idx, nil
	}
	sampleuv.WithoutReplacement(idx, n, s.rng)
	return idx, nil
}

// ChooseFrom draws k distinct members of population.
func ChooseFrom[T any](src RandomSource, population []T, k int) ([]T, error) {
	idx, err := src.Choose(len(population), k)
	if err != nil {
		return nil, err
	}
	out := make([]T, len(idx))
	for i, j := range idx {
		out[i] = population[j]
	}
	return out, nil
}

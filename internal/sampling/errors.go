package sampling

import (
	"errors"
	"fmt"
)

// Sentinels for errors.Is checks against the typed errors below.
var (
	ErrEmptyIntersection       = errors.New("sampling: empty intersection")
	ErrInsufficientPopulation  = errors.New("sampling: insufficient population")
	ErrClassAllocationMismatch = errors.New("sampling: class allocation mismatch")
	ErrConfiguration           = errors.New("sampling: invalid configuration")
)

// EmptyIntersectionError reports a zonal query with no usable pixels: the
// footprint lies outside the raster or every pixel in it is no-data. Callers
// skip the tile rather than failing the batch.
type EmptyIntersectionError struct {
	TileID int
	Reason string
}

func (e *EmptyIntersectionError) Error() string {
	return fmt.Sprintf("sampling: tile %d has no usable pixels: %s", e.TileID, e.Reason)
}

func (e *EmptyIntersectionError) Unwrap() error { return ErrEmptyIntersection }

// InsufficientPopulationError reports a draw larger than its population where
// no clamp policy applies (stage 1 and random point sampling).
type InsufficientPopulationError struct {
	Scope      string
	Requested  int
	Population int
}

func (e *InsufficientPopulationError) Error() string {
	return fmt.Sprintf("sampling: %s requests %d units from a population of %d",
		e.Scope, e.Requested, e.Population)
}

func (e *InsufficientPopulationError) Unwrap() error { return ErrInsufficientPopulation }

// ClassAllocationMismatchError reports a per-class allocation whose length
// does not match the classes present in the sampled region.
type ClassAllocationMismatchError struct {
	Classes     []int
	Allocations []int
}

func (e *ClassAllocationMismatchError) Error() string {
	return fmt.Sprintf("sampling: %d allocations given for %d classes %v",
		len(e.Allocations), len(e.Classes), e.Classes)
}

func (e *ClassAllocationMismatchError) Unwrap() error { return ErrClassAllocationMismatch }

// ConfigurationError reports parameters that are rejected before any
// sampling begins.
type ConfigurationError struct {
	Field  string
	Detail string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("sampling: invalid %s: %s", e.Field, e.Detail)
}

func (e *ConfigurationError) Unwrap() error { return ErrConfiguration }

// NewConfigurationError builds a ConfigurationError with a formatted detail.
func NewConfigurationError(field, format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Field: field, Detail: fmt.Sprintf(format, args...)}
}

// IsSkippable reports whether err only disqualifies a single tile and the
// batch can continue.
func IsSkippable(err error) bool {
	return errors.Is(err, ErrEmptyIntersection)
}

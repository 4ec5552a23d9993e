package bands

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Ratio divides numerator by denominator, flooring the denominator at
// RatioFloor. The result is not clamped.
func Ratio(numerator, denominator float64) float64 {
	return RatioWithFloor(numerator, denominator, RatioFloor)
}

// RatioWithFloor divides numerator by max(denominator, floor). A quotient too
// large for a float64 saturates at ±math.MaxFloat64.
func RatioWithFloor(numerator, denominator, floor float64) float64 {
	return Saturate(Finite(numerator) / math.Max(Finite(denominator), floor))
}

// ADR is the Alpha-to-Delta ratio.
func ADR(alpha, delta float64) float64 { return Ratio(alpha, delta) }

// TAR is the Theta-to-Alpha ratio.
func TAR(theta, alpha float64) float64 { return Ratio(theta, alpha) }

// Range is a closed [Min, Max] interval used to normalise gauge needles.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Span returns Max-Min, or 1 when the range is empty or inverted.
func (r Range) Span() float64 {
	if s := Saturate(r.Max - r.Min); s > 0 {
		return s
	}
	return 1
}

// Normalize maps v into [0, 1] relative to the range.
func (r Range) Normalize(v float64) float64 {
	return Clamp(Saturate(Finite(v)-r.Min)/r.Span(), 0, 1)
}

const (
	minRangeEpsilon      = 0.001
	rangeEpsilonFraction = 0.05
)

// SubjectRange returns the min/max of a subject's metric values. Non-finite
// values count as 0. A degenerate range (all values equal, or no values) is
// widened by max(0.001, 5% of the magnitude) on each side so normalisation
// never divides by zero.
func SubjectRange(values []float64) Range {
	if len(values) == 0 {
		return Range{Min: -minRangeEpsilon, Max: minRangeEpsilon}
	}

	clean := make([]float64, len(values))
	for i, v := range values {
		clean[i] = Finite(v)
	}

	lo, hi := floats.Min(clean), floats.Max(clean)
	if hi > lo {
		return Range{Min: lo, Max: hi}
	}

	eps := math.Max(minRangeEpsilon, rangeEpsilonFraction*math.Abs(lo))
	return Range{Min: lo - eps, Max: hi + eps}
}

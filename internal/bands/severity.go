// Package bands derives clinical-style indicators from instantaneous EEG
// band-power readings: a 0..1 severity score, Alpha/Delta and Theta/Alpha
// ratios, gauge classification, a trend alert over the aperiodic slope and a
// hemispheric symmetry class.
//
// Every function in this package is pure. Non-finite inputs are coerced to 0
// before use so malformed data degrades to neutral values instead of errors.
package bands

import "math"

// Severity thresholds. Band powers beyond these points start contributing to
// the directional abnormality signals.
const (
	alphaNormal = 9.0
	thetaNormal = 5.5
	deltaNormal = 3.5
)

// Severity weights and gains. These are part of the scoring contract and are
// not configurable.
const (
	weightAlphaLow  = 0.15
	weightThetaHigh = 0.30
	weightDeltaHigh = 0.30
	weightTAR       = 0.15
	weightDAR       = 0.10

	suppressionBonus = 0.2
	severityGain     = 1.4

	intensityExponent = 0.7
	intensityGain     = 1.1
)

// RatioFloor is the minimum denominator used by Ratio.
const RatioFloor = 0.1

// Finite returns v, or 0 when v is NaN or infinite.
func Finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// Saturate returns v with infinities pulled in to ±math.MaxFloat64 and NaN
// replaced by 0.
func Saturate(v float64) float64 {
	switch {
	case math.IsNaN(v):
		return 0
	case math.IsInf(v, 1):
		return math.MaxFloat64
	case math.IsInf(v, -1):
		return -math.MaxFloat64
	}
	return v
}

// Clamp limits v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Severity scores a reading from its alpha, theta and delta band powers.
// The result is always in [0, 1].
func Severity(alpha, theta, delta float64) float64 {
	alpha, theta, delta = Finite(alpha), Finite(theta), Finite(delta)

	alphaLow := Clamp((alphaNormal-alpha)/alphaNormal, 0, 1)
	thetaHigh := Clamp((theta-thetaNormal)/thetaNormal, 0, 1)
	deltaHigh := Clamp((delta-deltaNormal)/deltaNormal, 0, 1)

	safeAlpha := math.Max(alpha, RatioFloor)
	tarNorm := Clamp((theta/safeAlpha-0.4)/1.2, 0, 1)
	darNorm := Clamp((delta/safeAlpha-0.2)/1.0, 0, 1)

	severity := weightAlphaLow*alphaLow +
		weightThetaHigh*thetaHigh +
		weightDeltaHigh*deltaHigh +
		weightTAR*tarNorm +
		weightDAR*darNorm

	// Alpha suppressed below both slow bands at once.
	if alpha < theta && alpha < delta {
		severity += suppressionBonus
	}

	return Clamp(severity*severityGain, 0, 1)
}

// VisualIntensity re-gains a severity so mid-range values register visually
// as more than linearly partial.
func VisualIntensity(severity float64) float64 {
	s := Clamp(Finite(severity), 0, 1)
	return Clamp(math.Pow(s, intensityExponent)*intensityGain, 0, 1)
}

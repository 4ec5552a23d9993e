package bands

import (
	"math"
	"testing"
)

const tolerance = 1e-9

func approxEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func TestSeverity_KnownValues(t *testing.T) {
	tests := []struct {
		name                string
		alpha, theta, delta float64
		want                float64
	}{
		// alphaLow=1 only: 0.15 * 1.4
		{"all zero baseline", 0, 0, 0, 0.21},
		// tarNorm=0.0833, darNorm=0.1: (0.0125+0.01)*1.4
		{"healthy profile", 10, 5, 3, 0.0315},
		{"alpha suppressed saturates", 2, 8, 6, 1.0},
		{"huge values saturate", 0, 100, 100, 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Severity(tt.alpha, tt.theta, tt.delta)
			if !approxEqual(got, tt.want, 1e-9) {
				t.Errorf("Severity(%v, %v, %v) = %.12f, want %.12f", tt.alpha, tt.theta, tt.delta, got, tt.want)
			}
		})
	}
}

func TestSeverity_AlphaSuppressionBonus(t *testing.T) {
	// theta and delta sit exactly at their thresholds so only ratios, alphaLow
	// and the bonus contribute.
	withBonus := Severity(5.0, 5.5, 5.4)
	withoutBonus := Severity(5.5, 5.5, 5.4)

	// Dropping alpha by 0.5 moves alphaLow, tar and dar by small amounts; the
	// bonus alone is worth 0.2 * 1.4.
	if withBonus-withoutBonus < 0.2*1.4 {
		t.Errorf("expected suppression bonus to add at least 0.28, got delta %f", withBonus-withoutBonus)
	}
}

func TestSeverity_NonFiniteInputsTreatedAsZero(t *testing.T) {
	base := Severity(0, 0, 0)
	inputs := [][3]float64{
		{math.NaN(), 0, 0},
		{0, math.NaN(), math.NaN()},
		{math.Inf(1), math.Inf(-1), 0},
	}
	for _, in := range inputs {
		if got := Severity(in[0], in[1], in[2]); !approxEqual(got, base, tolerance) {
			t.Errorf("Severity(%v) = %f, want baseline %f", in, got, base)
		}
	}
}

func TestSeverity_Deterministic(t *testing.T) {
	first := Severity(6.2, 7.1, 4.4)
	for i := 0; i < 100; i++ {
		if got := Severity(6.2, 7.1, 4.4); got != first {
			t.Fatalf("call %d returned %v, first call returned %v", i, got, first)
		}
	}
}

func TestSeverity_Bounded(t *testing.T) {
	for alpha := 0.0; alpha <= 20; alpha += 0.5 {
		for theta := 0.0; theta <= 20; theta += 0.5 {
			for delta := 0.0; delta <= 20; delta += 0.5 {
				s := Severity(alpha, theta, delta)
				if s < 0 || s > 1 {
					t.Fatalf("Severity(%v, %v, %v) = %v out of [0,1]", alpha, theta, delta, s)
				}
			}
		}
	}
}

func TestSeverity_MonotoneInAlpha(t *testing.T) {
	profiles := [][2]float64{{0, 0}, {3, 2}, {5.5, 3.5}, {8, 6}, {12, 1}, {1, 12}}
	for _, p := range profiles {
		theta, delta := p[0], p[1]
		prev := Severity(9, theta, delta)
		for alpha := 8.9; alpha >= 0; alpha -= 0.1 {
			s := Severity(alpha, theta, delta)
			if s < prev-tolerance {
				t.Errorf("theta=%v delta=%v: severity decreased from %f to %f at alpha=%.1f", theta, delta, prev, s, alpha)
			}
			prev = s
		}
	}
}

func TestVisualIntensity(t *testing.T) {
	tests := []struct {
		severity float64
		want     float64
	}{
		{0, 0},
		{0.5, math.Pow(0.5, 0.7) * 1.1},
		{0.21, math.Pow(0.21, 0.7) * 1.1},
		{1, 1},
		{2, 1},
		{-1, 0},
		{math.NaN(), 0},
	}
	for _, tt := range tests {
		if got := VisualIntensity(tt.severity); !approxEqual(got, tt.want, tolerance) {
			t.Errorf("VisualIntensity(%v) = %v, want %v", tt.severity, got, tt.want)
		}
	}
}

func TestVisualIntensity_BoostsMidRange(t *testing.T) {
	for _, s := range []float64{0.2, 0.4, 0.6, 0.8} {
		if VisualIntensity(s) <= s {
			t.Errorf("VisualIntensity(%v) = %v, expected re-gain above linear", s, VisualIntensity(s))
		}
	}
}

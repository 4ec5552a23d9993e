package eeg

import (
	"fmt"
	"math"
	"math/rand"
)

// SyntheticConfig controls the synthetic dataset generator.
type SyntheticConfig struct {
	Subjects int   // number of subjects
	Trials   int   // trials per subject
	Seed     int64 // rand seed; the same seed yields the same dataset
	Extended bool  // include aperiodic slope and BSI columns
}

// DefaultSyntheticConfig returns a small extended demo dataset.
func DefaultSyntheticConfig() SyntheticConfig {
	return SyntheticConfig{
		Subjects: 4,
		Trials:   12,
		Seed:     1,
		Extended: true,
	}
}

// Synthetic generates a deterministic dataset for demos and tests. Each
// subject drifts from a healthy profile (high alpha, low slow-wave power)
// towards an abnormal one at its own rate, with jitter on every band.
func Synthetic(cfg SyntheticConfig) *Dataset {
	if cfg.Subjects <= 0 || cfg.Trials <= 0 {
		return &Dataset{HasSlope: cfg.Extended, HasBSI: cfg.Extended}
	}
	rng := rand.New(rand.NewSource(cfg.Seed))

	samples := make([]TrialSample, 0, cfg.Subjects*cfg.Trials)
	for s := 0; s < cfg.Subjects; s++ {
		subject := fmt.Sprintf("S%02d", s+1)
		// Later subjects deteriorate further.
		drift := float64(s+1) / float64(cfg.Subjects)
		side := 1.0
		if rng.Intn(2) == 0 {
			side = -1
		}

		for tr := 0; tr < cfg.Trials; tr++ {
			progress := 0.0
			if cfg.Trials > 1 {
				progress = float64(tr) / float64(cfg.Trials-1)
			}
			p := drift * progress

			sample := TrialSample{
				Subject:    subject,
				TrialIndex: tr + 1,
				Alpha:      jitter(rng, 11-7*p, 0.6),
				Beta:       jitter(rng, 6-2*p, 0.4),
				Theta:      jitter(rng, 4+5*p, 0.5),
				Delta:      jitter(rng, 2.5+5*p, 0.5),
				Slope:      math.NaN(),
				BSI:        math.NaN(),
			}
			if cfg.Extended {
				sample.Slope = -1.2 - 1.1*p + rng.NormFloat64()*0.05
				sample.BSI = side * (0.02 + 0.4*p + rng.Float64()*0.03)
			}
			samples = append(samples, sample)
		}
	}

	return Group(samples, cfg.Extended, cfg.Extended)
}

func jitter(rng *rand.Rand, mean, sd float64) float64 {
	return math.Max(0, mean+rng.NormFloat64()*sd)
}

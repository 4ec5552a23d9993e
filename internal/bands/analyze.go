package bands

// Input is an instantaneous band-power reading. Slope and BSI are optional and
// only present in extended datasets.
type Input struct {
	Alpha float64
	Beta  float64
	Theta float64
	Delta float64
	Slope *float64
	BSI   *float64
}

// Ratios holds the two clinical ratio metrics.
type Ratios struct {
	ADR float64 `json:"adr"`
	TAR float64 `json:"tar"`
}

// Analysis is the full set of indicators derived from one Input.
type Analysis struct {
	Severity   float64     `json:"severity"`
	Intensity  float64     `json:"intensity"`
	Ratios     Ratios      `json:"ratios"`
	TrendAlert *AlertLevel `json:"trend_alert,omitempty"`
	TrendDelta *float64    `json:"trend_change,omitempty"`
	Symmetry   *Symmetry   `json:"symmetry,omitempty"`
}

// Analyze computes severity and ratios for in. When in carries a slope the
// trend alert is computed over slopes ending at current; when it carries a
// BSI the symmetry class is included.
func Analyze(in Input, slopes []float64, current, window int) Analysis {
	sev := Severity(in.Alpha, in.Theta, in.Delta)
	a := Analysis{
		Severity:  sev,
		Intensity: VisualIntensity(sev),
		Ratios: Ratios{
			ADR: ADR(in.Alpha, in.Delta),
			TAR: TAR(in.Theta, in.Alpha),
		},
	}

	if in.Slope != nil {
		change := TrendChange(slopes, current, window)
		level := TrendAlert(slopes, current, window)
		a.TrendAlert = &level
		a.TrendDelta = &change
	}
	if in.BSI != nil {
		sym := ClassifySymmetry(*in.BSI)
		a.Symmetry = &sym
	}
	return a
}

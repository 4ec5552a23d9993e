// Package report summarises a dataset per subject and renders the summary
// as Markdown, terminal output or PNG curves.
package report

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/eeg.report/internal/bands"
	"github.com/banshee-data/eeg.report/internal/eeg"
	"github.com/banshee-data/eeg.report/internal/playback"
)

// SubjectSummary condenses one subject's trials.
type SubjectSummary struct {
	Subject          string           `json:"subject"`
	Trials           int              `json:"trials"`
	MeanSeverity     float64          `json:"mean_severity"`
	MaxSeverity      float64          `json:"max_severity"`
	PeakTrial        int              `json:"peak_trial"`
	MeanADR          float64          `json:"mean_adr"`
	MeanTAR          float64          `json:"mean_tar"`
	FinalAlert       bands.AlertLevel `json:"final_alert,omitempty"`
	PeakAlert        bands.AlertLevel `json:"peak_alert,omitempty"`
	AsymmetricTrials int              `json:"asymmetric_trials"`
}

// TrialPoint is the analysis of one trial sample, used for plotting.
type TrialPoint struct {
	TrialIndex int            `json:"trial"`
	Analysis   bands.Analysis `json:"analysis"`
}

// Evaluate analyses every trial of the subject at position pos, exactly as
// playback would show it at the start of each trial.
func Evaluate(ds *eeg.Dataset, pos, window int) []TrialPoint {
	series, ok := ds.Series(pos)
	if !ok {
		return nil
	}
	slopes := playback.SlopeHistory(series)
	points := make([]TrialPoint, 0, series.Len())
	for i, t := range series.Trials {
		r, _ := playback.Sample(playback.Cursor{SubjectPosition: pos, TrialPosition: i}, ds)
		in := bands.Input{
			Alpha: r.Alpha, Beta: r.Beta, Theta: r.Theta, Delta: r.Delta,
			Slope: r.Slope, BSI: r.BSI,
		}
		points = append(points, TrialPoint{
			TrialIndex: t.TrialIndex,
			Analysis:   bands.Analyze(in, slopes, i, window),
		})
	}
	return points
}

// Summarize returns one summary per subject in dataset order.
func Summarize(ds *eeg.Dataset, window int) []SubjectSummary {
	out := make([]SubjectSummary, 0, ds.SubjectCount())
	for pos := 0; pos < ds.SubjectCount(); pos++ {
		series, _ := ds.Series(pos)
		out = append(out, summarizePoints(series.Subject, Evaluate(ds, pos, window)))
	}
	return out
}

func summarizePoints(subject string, points []TrialPoint) SubjectSummary {
	s := SubjectSummary{Subject: subject, Trials: len(points)}
	if len(points) == 0 {
		return s
	}

	sev := make([]float64, len(points))
	adr := make([]float64, len(points))
	tar := make([]float64, len(points))
	for i, p := range points {
		sev[i] = p.Analysis.Severity
		adr[i] = p.Analysis.Ratios.ADR
		tar[i] = p.Analysis.Ratios.TAR

		if a := p.Analysis.TrendAlert; a != nil {
			if s.PeakAlert == "" || a.Severe(s.PeakAlert) {
				s.PeakAlert = *a
			}
			s.FinalAlert = *a
		}
		if sym := p.Analysis.Symmetry; sym != nil && sym.Class != bands.Symmetric {
			s.AsymmetricTrials++
		}
	}

	s.MeanSeverity = stat.Mean(sev, nil)
	s.MaxSeverity = floats.Max(sev)
	s.PeakTrial = points[floats.MaxIdx(sev)].TrialIndex
	s.MeanADR = stat.Mean(adr, nil)
	s.MeanTAR = stat.Mean(tar, nil)
	return s
}

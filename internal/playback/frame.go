package playback

import (
	"time"

	"github.com/banshee-data/eeg.report/internal/bands"
	"github.com/banshee-data/eeg.report/internal/eeg"
)

// Frame is everything a renderer needs for one instant of playback.
// Renderers never see raw trial samples.
type Frame struct {
	Seq       uint64    `json:"seq"`
	Timestamp time.Time `json:"timestamp"`
	Ready     bool      `json:"ready"`
	State     State     `json:"state"`

	Subject         string  `json:"subject,omitempty"`
	SubjectPosition int     `json:"subject_position"`
	SubjectCount    int     `json:"subject_count"`
	TrialIndex      int     `json:"trial_index"`
	TrialPosition   int     `json:"trial_position"`
	TrialCount      int     `json:"trial_count"`
	Fraction        float64 `json:"fraction"`

	Reading  eeg.Reading        `json:"reading"`
	Analysis bands.Analysis     `json:"analysis"`
	ADR      bands.GaugeReading `json:"adr"`
	TAR      bands.GaugeReading `json:"tar"`

	// Slopes holds the aperiodic slope of each trial up to the current one.
	Slopes  []float64 `json:"slopes,omitempty"`
	BandMax float64   `json:"band_max"`
}

// Progress returns the overall position within the current subject in [0,1].
func (f Frame) Progress() float64 {
	if f.TrialCount <= 1 {
		if f.State == Finished {
			return 1
		}
		return 0
	}
	return bands.Clamp((float64(f.TrialPosition)+f.Fraction)/float64(f.TrialCount-1), 0, 1)
}

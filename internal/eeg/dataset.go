// Package eeg holds the per-subject, per-trial band-power data model: trial
// samples grouped into subject series, loaded wholesale from delimited files.
package eeg

import (
	"math"
	"sort"
)

// TrialSample is one measurement epoch for one subject. Absent or
// unparseable values are NaN; consumers coerce them to 0.
type TrialSample struct {
	Subject    string  `json:"subject"`
	TrialIndex int     `json:"trial"`
	Alpha      float64 `json:"alpha"`
	Beta       float64 `json:"beta"`
	Theta      float64 `json:"theta"`
	Delta      float64 `json:"delta"`
	Slope      float64 `json:"aperiodic_slope"`
	BSI        float64 `json:"bsi"`
}

// SubjectSeries is the trial sequence of one subject, sorted by TrialIndex.
// It is never mutated once the dataset has been built.
type SubjectSeries struct {
	Subject string
	Trials  []TrialSample
}

// Len returns the number of trials.
func (s SubjectSeries) Len() int { return len(s.Trials) }

// LastIndex returns the position of the final trial.
func (s SubjectSeries) LastIndex() int { return len(s.Trials) - 1 }

// Dataset is an ordered list of subject series in first-seen order. HasSlope
// and HasBSI record whether the source carried the extended columns.
type Dataset struct {
	Subjects []SubjectSeries
	HasSlope bool
	HasBSI   bool
}

// Group builds a Dataset from loose samples. Subjects keep the order in which
// they were first seen; each series is stably sorted by TrialIndex.
func Group(samples []TrialSample, hasSlope, hasBSI bool) *Dataset {
	ds := &Dataset{HasSlope: hasSlope, HasBSI: hasBSI}
	index := make(map[string]int)

	for _, s := range samples {
		pos, ok := index[s.Subject]
		if !ok {
			pos = len(ds.Subjects)
			index[s.Subject] = pos
			ds.Subjects = append(ds.Subjects, SubjectSeries{Subject: s.Subject})
		}
		ds.Subjects[pos].Trials = append(ds.Subjects[pos].Trials, s)
	}

	for i := range ds.Subjects {
		trials := ds.Subjects[i].Trials
		sort.SliceStable(trials, func(a, b int) bool {
			return trials[a].TrialIndex < trials[b].TrialIndex
		})
	}
	return ds
}

// Ready reports whether the dataset has at least one subject to play.
func (d *Dataset) Ready() bool {
	return d != nil && len(d.Subjects) > 0
}

// SubjectCount returns the number of subjects, 0 for a nil dataset.
func (d *Dataset) SubjectCount() int {
	if d == nil {
		return 0
	}
	return len(d.Subjects)
}

// TrialCount returns the total number of trials across all subjects.
func (d *Dataset) TrialCount() int {
	if d == nil {
		return 0
	}
	n := 0
	for _, s := range d.Subjects {
		n += len(s.Trials)
	}
	return n
}

// Series returns the subject at position i.
func (d *Dataset) Series(i int) (SubjectSeries, bool) {
	if d == nil || i < 0 || i >= len(d.Subjects) {
		return SubjectSeries{}, false
	}
	return d.Subjects[i], true
}

// BandMax returns the largest finite band power in the dataset, used to scale
// radial charts. It is at least 1.
func (d *Dataset) BandMax() float64 {
	max := 1.0
	if d == nil {
		return max
	}
	for _, s := range d.Subjects {
		for _, t := range s.Trials {
			for _, v := range []float64{t.Alpha, t.Beta, t.Theta, t.Delta} {
				if !math.IsNaN(v) && !math.IsInf(v, 0) && v > max {
					max = v
				}
			}
		}
	}
	return max
}

package eeg

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func TestSynthetic_Deterministic(t *testing.T) {
	cfg := DefaultSyntheticConfig()
	a := Synthetic(cfg)
	b := Synthetic(cfg)
	if diff := cmp.Diff(a, b, cmpopts.EquateNaNs()); diff != "" {
		t.Errorf("same seed produced different datasets (-a +b):\n%s", diff)
	}

	cfg.Seed = 2
	c := Synthetic(cfg)
	if cmp.Equal(a, c, cmpopts.EquateNaNs()) {
		t.Error("different seeds produced identical datasets")
	}
}

func TestSynthetic_Shape(t *testing.T) {
	ds := Synthetic(SyntheticConfig{Subjects: 3, Trials: 5, Seed: 7, Extended: true})
	if ds.SubjectCount() != 3 || ds.TrialCount() != 15 {
		t.Fatalf("got %d subjects / %d trials, want 3 / 15", ds.SubjectCount(), ds.TrialCount())
	}
	if ds.Subjects[0].Subject != "S01" || ds.Subjects[2].Subject != "S03" {
		t.Errorf("unexpected subject ids %q..%q", ds.Subjects[0].Subject, ds.Subjects[2].Subject)
	}
	for _, s := range ds.Subjects {
		for i, tr := range s.Trials {
			if tr.TrialIndex != i+1 {
				t.Errorf("%s trial %d has index %d", s.Subject, i, tr.TrialIndex)
			}
			if tr.Alpha < 0 || tr.Beta < 0 || tr.Theta < 0 || tr.Delta < 0 {
				t.Errorf("%s trial %d has negative band power", s.Subject, i)
			}
			if math.IsNaN(tr.Slope) || math.IsNaN(tr.BSI) {
				t.Errorf("%s trial %d missing extended columns", s.Subject, i)
			}
		}
	}
}

func TestSynthetic_BasicOmitsExtendedColumns(t *testing.T) {
	ds := Synthetic(SyntheticConfig{Subjects: 1, Trials: 2, Seed: 1})
	if ds.HasSlope || ds.HasBSI {
		t.Error("basic dataset should not advertise extended columns")
	}
	for _, tr := range ds.Subjects[0].Trials {
		if !math.IsNaN(tr.Slope) || !math.IsNaN(tr.BSI) {
			t.Errorf("trial %d carries extended values", tr.TrialIndex)
		}
	}
}

func TestSynthetic_EmptyConfig(t *testing.T) {
	if Synthetic(SyntheticConfig{}).Ready() {
		t.Error("zero config should produce an empty dataset")
	}
}

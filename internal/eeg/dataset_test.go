package eeg

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestGroup_StableWithinEqualTrialIndex(t *testing.T) {
	samples := []TrialSample{
		{Subject: "A", TrialIndex: 2, Alpha: 1},
		{Subject: "A", TrialIndex: 1, Alpha: 2},
		{Subject: "A", TrialIndex: 2, Alpha: 3},
	}
	ds := Group(samples, false, false)

	var got []float64
	for _, tr := range ds.Subjects[0].Trials {
		got = append(got, tr.Alpha)
	}
	if diff := cmp.Diff([]float64{2, 1, 3}, got); diff != "" {
		t.Errorf("trial order mismatch (-want +got):\n%s", diff)
	}
}

func TestDataset_NilSafe(t *testing.T) {
	var ds *Dataset
	if ds.Ready() {
		t.Error("nil dataset should not be ready")
	}
	if ds.SubjectCount() != 0 || ds.TrialCount() != 0 {
		t.Error("nil dataset should have no subjects or trials")
	}
	if _, ok := ds.Series(0); ok {
		t.Error("Series on nil dataset should fail")
	}
	if ds.BandMax() != 1 {
		t.Errorf("BandMax() = %v, want 1", ds.BandMax())
	}
}

func TestDataset_Series(t *testing.T) {
	ds := Group([]TrialSample{{Subject: "A", TrialIndex: 1}, {Subject: "B", TrialIndex: 1}}, false, false)
	s, ok := ds.Series(1)
	if !ok || s.Subject != "B" {
		t.Errorf("Series(1) = %v, %v; want B", s.Subject, ok)
	}
	if _, ok := ds.Series(2); ok {
		t.Error("Series(2) should be out of range")
	}
	if _, ok := ds.Series(-1); ok {
		t.Error("Series(-1) should be out of range")
	}
	if s.Len() != 1 || s.LastIndex() != 0 {
		t.Errorf("Len/LastIndex = %d/%d", s.Len(), s.LastIndex())
	}
}

func TestDataset_BandMaxIgnoresNonFinite(t *testing.T) {
	ds := Group([]TrialSample{
		{Subject: "A", TrialIndex: 1, Alpha: 4, Beta: math.Inf(1), Theta: math.NaN(), Delta: 12.5},
		{Subject: "B", TrialIndex: 1, Alpha: 0.2},
	}, false, false)
	if got := ds.BandMax(); got != 12.5 {
		t.Errorf("BandMax() = %v, want 12.5", got)
	}
}

// Package testutil provides shared test fixtures.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/banshee-data/eeg.report/internal/eeg"
)

// TwoSubjectsCSV is a small dataset in the on-disk column layout. The last
// row has no subject and is discarded on load.
const TwoSubjectsCSV = `subject_number,trial_number,Alpha,Beta,Theta,Delta,Aperiodic_Slope,BSI
S1,1,10,5,3,2,-1.0,0.05
S1,2,8,5,4,3,-1.2,0.2
S2,1,3,2,9,8,-2.0,-0.4
,3,1,1,1,1,,
`

// TwoSubjectsSamples returns the kept rows of TwoSubjectsCSV.
func TwoSubjectsSamples() []eeg.TrialSample {
	return []eeg.TrialSample{
		{Subject: "S1", TrialIndex: 1, Alpha: 10, Beta: 5, Theta: 3, Delta: 2, Slope: -1, BSI: 0.05},
		{Subject: "S1", TrialIndex: 2, Alpha: 8, Beta: 5, Theta: 4, Delta: 3, Slope: -1.2, BSI: 0.2},
		{Subject: "S2", TrialIndex: 1, Alpha: 3, Beta: 2, Theta: 9, Delta: 8, Slope: -2, BSI: -0.4},
	}
}

// TwoSubjects returns TwoSubjectsSamples grouped into a dataset: S1 with
// two trials and S2 with one.
func TwoSubjects() *eeg.Dataset {
	return eeg.Group(TwoSubjectsSamples(), true, true)
}

// WriteFile writes content to name inside a fresh temp directory and
// returns the full path.
func WriteFile(t testing.TB, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

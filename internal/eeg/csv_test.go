package eeg

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const basicCSV = `subject_number,trial_number,alpha,beta,theta,delta
S2,2,8,5,4,3
S1,1,10,6,4,2
S2,1,9,5,3,2
S1,3,7,5,6,4
S1,2,9,6,5,3
`

func TestLoadCSV_GroupsFirstSeenAndSortsTrials(t *testing.T) {
	ds, stats, err := LoadCSV(strings.NewReader(basicCSV))
	require.NoError(t, err)

	assert.Equal(t, LoadStats{Rows: 5, Kept: 5, Discarded: 0}, stats)
	require.Equal(t, 2, ds.SubjectCount())
	assert.Equal(t, "S2", ds.Subjects[0].Subject)
	assert.Equal(t, "S1", ds.Subjects[1].Subject)

	var got []int
	for _, tr := range ds.Subjects[1].Trials {
		got = append(got, tr.TrialIndex)
	}
	assert.Equal(t, []int{1, 2, 3}, got)
	assert.Equal(t, 5, ds.TrialCount())
	assert.False(t, ds.HasSlope)
	assert.False(t, ds.HasBSI)
	assert.True(t, math.IsNaN(ds.Subjects[0].Trials[0].Slope))
}

func TestLoadCSV_HeaderCaseInsensitive(t *testing.T) {
	input := "\ufeffSubject_Number, Trial_Number ,ALPHA,Beta,THETA,delta,Aperiodic_Slope,BSI\n" +
		"A,1,1,2,3,4,-1.5,0.1\n"
	ds, _, err := LoadCSV(strings.NewReader(input))
	require.NoError(t, err)

	require.Equal(t, 1, ds.SubjectCount())
	assert.True(t, ds.HasSlope)
	assert.True(t, ds.HasBSI)
	tr := ds.Subjects[0].Trials[0]
	assert.Equal(t, 1.0, tr.Alpha)
	assert.Equal(t, 4.0, tr.Delta)
	assert.Equal(t, -1.5, tr.Slope)
	assert.Equal(t, 0.1, tr.BSI)
}

func TestLoadCSV_UnparseableNumbersBecomeNaN(t *testing.T) {
	input := "subject_number,trial_number,alpha,beta,theta,delta\n" +
		"A,1,abc,,3,NaN\n"
	ds, stats, err := LoadCSV(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Kept)

	tr := ds.Subjects[0].Trials[0]
	assert.True(t, math.IsNaN(tr.Alpha))
	assert.True(t, math.IsNaN(tr.Beta))
	assert.Equal(t, 3.0, tr.Theta)
	assert.True(t, math.IsNaN(tr.Delta))
}

func TestLoadCSV_DiscardsRowsWithoutIdentity(t *testing.T) {
	input := "subject_number,trial_number,alpha,beta,theta,delta\n" +
		",1,1,1,1,1\n" +
		"A,,1,1,1,1\n" +
		"A,x,1,1,1,1\n" +
		"A,2.0,1,1,1,1\n" +
		"A,1\n"
	ds, stats, err := LoadCSV(strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, LoadStats{Rows: 5, Kept: 2, Discarded: 3}, stats)
	require.Equal(t, 1, ds.SubjectCount())
	require.Len(t, ds.Subjects[0].Trials, 2)
	assert.Equal(t, 1, ds.Subjects[0].Trials[0].TrialIndex)
	assert.Equal(t, 2, ds.Subjects[0].Trials[1].TrialIndex)
	// Short row: missing band columns read as NaN.
	assert.True(t, math.IsNaN(ds.Subjects[0].Trials[0].Alpha))
}

func TestLoadCSV_DiscardsTrialNumbersOutOfRange(t *testing.T) {
	input := "subject_number,trial_number,alpha,beta,theta,delta\n" +
		"A,1e30,1,1,1,1\n" +
		"A,-1e30,1,1,1,1\n" +
		"A,9.3e18,1,1,1,1\n" +
		"A,99999999999999999999,1,1,1,1\n" +
		"A,3e2,1,1,1,1\n"
	ds, stats, err := LoadCSV(strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, LoadStats{Rows: 5, Kept: 1, Discarded: 4}, stats)
	require.Equal(t, 1, ds.SubjectCount())
	assert.Equal(t, 300, ds.Subjects[0].Trials[0].TrialIndex)
}

func TestLoadCSV_Errors(t *testing.T) {
	_, _, err := LoadCSV(strings.NewReader(""))
	assert.ErrorIs(t, err, ErrNoHeader)

	_, _, err = LoadCSV(strings.NewReader("subject_number,trial_number,alpha,beta,theta\n"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingColumn))
	assert.Contains(t, err.Error(), ColDelta)
}

func TestLoadCSV_HeaderOnlyIsEmptyDataset(t *testing.T) {
	ds, stats, err := LoadCSV(strings.NewReader("subject_number,trial_number,alpha,beta,theta,delta\n"))
	require.NoError(t, err)
	assert.False(t, ds.Ready())
	assert.Equal(t, 0, stats.Rows)
}

func TestLoadCSVFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bands.csv")
	require.NoError(t, os.WriteFile(path, []byte(basicCSV), 0o644))

	ds, _, err := LoadCSVFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, ds.SubjectCount())

	_, _, err = LoadCSVFile(filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}

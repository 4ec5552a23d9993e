package eeg

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

// Column names recognised in the header, compared case-insensitively.
const (
	ColSubject = "subject_number"
	ColTrial   = "trial_number"
	ColAlpha   = "alpha"
	ColBeta    = "beta"
	ColTheta   = "theta"
	ColDelta   = "delta"
	ColSlope   = "aperiodic_slope"
	ColBSI     = "bsi"
)

var requiredColumns = []string{ColSubject, ColTrial, ColAlpha, ColBeta, ColTheta, ColDelta}

var (
	// ErrNoHeader is returned for an empty input.
	ErrNoHeader = errors.New("csv has no header row")
	// ErrMissingColumn is returned when a required column is absent.
	ErrMissingColumn = errors.New("csv missing required column")
)

// LoadStats describes what happened to the rows of a load.
type LoadStats struct {
	Rows      int `json:"rows"`
	Kept      int `json:"kept"`
	Discarded int `json:"discarded"`
}

// LoadCSV parses a headered delimited file into a Dataset. Numeric columns
// are parsed permissively: anything unparseable becomes NaN. Rows without a
// subject or a parseable trial number are discarded.
func LoadCSV(r io.Reader) (*Dataset, LoadStats, error) {
	var stats LoadStats

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, stats, ErrNoHeader
	}
	if err != nil {
		return nil, stats, fmt.Errorf("failed to read csv header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		if _, dup := cols[name]; !dup {
			cols[name] = i
		}
	}
	for _, name := range requiredColumns {
		if _, ok := cols[name]; !ok {
			return nil, stats, fmt.Errorf("%w: %s", ErrMissingColumn, name)
		}
	}
	_, hasSlope := cols[ColSlope]
	_, hasBSI := cols[ColBSI]

	field := func(rec []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	var samples []TrialSample
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, stats, fmt.Errorf("failed to read csv row %d: %w", stats.Rows+1, err)
		}
		stats.Rows++

		subject := field(rec, ColSubject)
		trial, ok := parseTrial(field(rec, ColTrial))
		if subject == "" || !ok {
			stats.Discarded++
			continue
		}

		samples = append(samples, TrialSample{
			Subject:    subject,
			TrialIndex: trial,
			Alpha:      parseNumber(field(rec, ColAlpha)),
			Beta:       parseNumber(field(rec, ColBeta)),
			Theta:      parseNumber(field(rec, ColTheta)),
			Delta:      parseNumber(field(rec, ColDelta)),
			Slope:      parseNumber(field(rec, ColSlope)),
			BSI:        parseNumber(field(rec, ColBSI)),
		})
		stats.Kept++
	}

	return Group(samples, hasSlope, hasBSI), stats, nil
}

// LoadCSVFile opens path and parses it with LoadCSV.
func LoadCSVFile(path string) (*Dataset, LoadStats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, LoadStats{}, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	ds, stats, err := LoadCSV(f)
	if err != nil {
		return nil, stats, fmt.Errorf("%s: %w", path, err)
	}
	return ds, stats, nil
}

func parseNumber(s string) float64 {
	if s == "" {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

func parseTrial(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n, true
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	// float64(math.MaxInt) rounds up to 2^63, so the upper bound is exclusive.
	r := math.Round(v)
	if r < math.MinInt || r >= math.MaxInt {
		return 0, false
	}
	return int(r), true
}

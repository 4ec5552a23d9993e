package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/banshee-data/eeg.report/internal/db"
	"github.com/banshee-data/eeg.report/internal/eeg"
)

// errNoSource is returned when none of --csv, --dataset or --synthetic is
// given.
var errNoSource = errors.New("one of --csv, --dataset or --synthetic is required")

// sourceFlags selects where a dataset comes from.
type sourceFlags struct {
	csv       string
	dataset   string
	synthetic bool
	subjects  int
	trials    int
	seed      int64
}

func (s *sourceFlags) register(cmd *cobra.Command, withDataset bool) {
	f := cmd.Flags()
	f.StringVar(&s.csv, "csv", "", "Load trials from a CSV file")
	if withDataset {
		f.StringVar(&s.dataset, "dataset", "", "Load a dataset stored in the database by ID")
	}
	def := eeg.DefaultSyntheticConfig()
	f.BoolVar(&s.synthetic, "synthetic", false, "Generate a synthetic demo dataset")
	f.IntVar(&s.subjects, "subjects", def.Subjects, "Synthetic dataset: number of subjects")
	f.IntVar(&s.trials, "trials", def.Trials, "Synthetic dataset: trials per subject")
	f.Int64Var(&s.seed, "seed", def.Seed, "Synthetic dataset: random seed")
}

func (s *sourceFlags) validate() error {
	n := 0
	for _, set := range []bool{s.csv != "", s.dataset != "", s.synthetic} {
		if set {
			n++
		}
	}
	switch n {
	case 0:
		return errNoSource
	case 1:
		return nil
	default:
		return errors.New("--csv, --dataset and --synthetic are mutually exclusive")
	}
}

// load resolves the dataset and a human-readable name for it. database is
// only used for --dataset.
func (s *sourceFlags) load(ctx context.Context, database *db.DB) (*eeg.Dataset, string, error) {
	if err := s.validate(); err != nil {
		return nil, "", err
	}

	switch {
	case s.csv != "":
		ds, stats, err := eeg.LoadCSVFile(s.csv)
		if err != nil {
			return nil, "", err
		}
		zap.L().Info("loaded CSV",
			zap.String("path", s.csv),
			zap.Int("rows", stats.Rows),
			zap.Int("kept", stats.Kept),
			zap.Int("discarded", stats.Discarded))
		return ds, filepath.Base(s.csv), nil

	case s.dataset != "":
		if database == nil {
			return nil, "", errors.New("--dataset needs a database")
		}
		ds, info, err := database.LoadDataset(ctx, s.dataset)
		if err != nil {
			return nil, "", err
		}
		return ds, info.Name, nil

	default:
		ds := eeg.Synthetic(eeg.SyntheticConfig{
			Subjects: s.subjects,
			Trials:   s.trials,
			Seed:     s.seed,
			Extended: true,
		})
		return ds, fmt.Sprintf("synthetic (seed %d)", s.seed), nil
	}
}

// loadSource is load for commands that do not otherwise keep the database
// open.
func (a *app) loadSource(ctx context.Context, s *sourceFlags) (*eeg.Dataset, string, error) {
	if s.dataset == "" {
		return s.load(ctx, nil)
	}
	database, err := a.openDB()
	if err != nil {
		return nil, "", err
	}
	defer database.Close()
	return s.load(ctx, database)
}

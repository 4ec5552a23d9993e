package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/banshee-data/eeg.report/internal/eeg"
	"github.com/banshee-data/eeg.report/internal/report"
)

func newImportCmd(a *app) *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "import <csv>",
		Short: "Store a CSV dataset and its subject summaries in the database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			ds, stats, err := eeg.LoadCSVFile(path)
			if err != nil {
				return err
			}
			if name == "" {
				name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
			}

			database, err := a.openDB()
			if err != nil {
				return err
			}
			defer database.Close()

			ctx := cmd.Context()
			info, err := database.SaveDataset(ctx, name, path, ds)
			if err != nil {
				return err
			}
			if err := database.SaveSummaries(ctx, info.ID, report.Summarize(ds, a.cfg.GetTrendWindow())); err != nil {
				return err
			}
			a.logger.Info("dataset imported",
				zap.String("id", info.ID),
				zap.Int("rows", stats.Rows),
				zap.Int("discarded", stats.Discarded))

			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%d subjects\t%d trials\t%d rows discarded\n",
				info.ID, info.Name, info.SubjectCount, info.TrialCount, stats.Discarded)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Dataset name (default: file name)")
	return cmd
}

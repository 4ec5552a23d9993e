package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/banshee-data/eeg.report/internal/fsutil"
	"github.com/banshee-data/eeg.report/internal/report"
)

type reportOptions struct {
	source sourceFlags
	plots  string
	save   bool
	format string
	width  int
}

func newReportCmd(a *app) *cobra.Command {
	o := &reportOptions{}
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Summarise every subject of a dataset",
		Long: `report evaluates every trial of every subject and prints a per-subject
summary: mean and peak severity, mean ratios, trend alerts and asymmetric
trial counts.

Formats: terminal (rendered Markdown), markdown, json.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReport(cmd, a, o)
		},
	}
	o.source.register(cmd, true)
	f := cmd.Flags()
	f.StringVar(&o.plots, "plots", "", "Write one PNG severity plot per subject into this directory")
	f.BoolVar(&o.save, "save", false, "Store the summaries with the dataset (requires --dataset)")
	f.StringVar(&o.format, "format", "terminal", "Output format: terminal, markdown or json")
	f.IntVar(&o.width, "width", 100, "Terminal word-wrap width")
	return cmd
}

func runReport(cmd *cobra.Command, a *app, o *reportOptions) error {
	if o.save && o.source.dataset == "" {
		return errors.New("--save requires --dataset")
	}
	switch o.format {
	case "terminal", "markdown", "json":
	default:
		return fmt.Errorf("unknown format %q", o.format)
	}

	ctx := cmd.Context()
	ds, name, err := a.loadSource(ctx, &o.source)
	if err != nil {
		return err
	}
	window := a.cfg.GetTrendWindow()
	sums := report.Summarize(ds, window)

	if o.save {
		database, err := a.openDB()
		if err != nil {
			return err
		}
		defer database.Close()
		if err := database.SaveSummaries(ctx, o.source.dataset, sums); err != nil {
			return err
		}
	}

	if o.plots != "" {
		paths, err := report.PlotAll(fsutil.OSFileSystem{}, ds, window, o.plots)
		if err != nil {
			return err
		}
		for _, p := range paths {
			fmt.Fprintln(cmd.ErrOrStderr(), "wrote", p)
		}
	}

	out := cmd.OutOrStdout()
	switch o.format {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(sums)
	case "markdown":
		_, err := fmt.Fprint(out, report.Markdown(name, sums))
		return err
	default:
		rendered, err := report.RenderTerminal(report.Markdown(name, sums), o.width)
		if err != nil {
			return err
		}
		_, err = fmt.Fprint(out, rendered)
		return err
	}
}

// Command eegreport plays back EEG band-power datasets with live severity
// scoring, serves the dashboard over HTTP and gRPC, and writes session
// reports.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/banshee-data/eeg.report/internal/config"
	"github.com/banshee-data/eeg.report/internal/db"
	"github.com/banshee-data/eeg.report/internal/monitoring"
	"github.com/banshee-data/eeg.report/internal/version"
)

// app holds the global flags shared by every subcommand.
type app struct {
	verbose    bool
	configPath string
	dbPath     string
	logFile    string

	cfg    *config.DashboardConfig
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "eegreport",
		Short: "EEG band-power playback and severity reports",
		Long: `eegreport loads per-trial EEG band powers (Alpha, Beta, Theta, Delta and
optionally the aperiodic slope and brain symmetry index), plays them back
subject by subject with a live severity score, and renders dashboards and
per-subject reports.

The severity score is a heuristic and not a validated diagnostic metric.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	pf := root.PersistentFlags()
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "Enable debug logging")
	pf.StringVarP(&a.configPath, "config", "c", "", "Dashboard config file (.json, .yaml or .yml)")
	pf.StringVar(&a.dbPath, "db", "", "SQLite database path (overrides config)")
	pf.StringVar(&a.logFile, "log-file", "", "Write logs to this file instead of stderr")

	root.AddCommand(
		newServeCmd(a),
		newTUICmd(a),
		newImportCmd(a),
		newDatasetsCmd(a),
		newReportCmd(a),
		newControlCmd(a),
		newMigrateCmd(a),
		newVersionCmd(),
	)
	return root
}

// init builds the logger and loads the config file.
func (a *app) init() error {
	logger, err := monitoring.NewLogger(monitoring.Options{
		Verbose:    a.verbose,
		Console:    true,
		OutputPath: a.logFile,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	a.logger = logger
	monitoring.Use(logger)

	a.cfg = config.EmptyDashboardConfig()
	if a.configPath != "" {
		cfg, err := config.LoadDashboardConfig(a.configPath)
		if err != nil {
			return err
		}
		a.cfg = cfg
		logger.Debug("loaded config", zap.String("path", a.configPath))
	}
	return nil
}

func (a *app) databasePath() string {
	if a.dbPath != "" {
		return a.dbPath
	}
	return a.cfg.GetDatabase()
}

// openDB opens the configured database and applies pending migrations.
func (a *app) openDB() (*db.DB, error) {
	path := a.databasePath()
	database, err := db.NewDB(path)
	if err != nil {
		return nil, fmt.Errorf("database %s: %w", path, err)
	}
	return database, nil
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

package main

import (
	"github.com/spf13/cobra"

	"github.com/banshee-data/eeg.report/internal/monitoring"
	"github.com/banshee-data/eeg.report/internal/tui"
)

func newTUICmd(a *app) *cobra.Command {
	var source sourceFlags
	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Play a dataset back in the terminal",
		Long: `tui plays a dataset back in a full-screen terminal dashboard.

Keys: space play/pause, r reset subject, ←/p previous subject,
→/n next subject, q quit.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, name, err := a.loadSource(cmd.Context(), &source)
			if err != nil {
				return err
			}
			if a.logFile == "" {
				// The terminal belongs to the dashboard.
				monitoring.Use(nil)
			}

			player := newPlayer(a)
			player.Load(ds)

			ctx, stop := signalContext(cmd.Context())
			defer stop()
			return tui.Run(ctx, player, name, a.cfg.GetFrameInterval())
		},
	}
	source.register(cmd, true)
	return cmd
}

package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/banshee-data/eeg.report/internal/playback"
	"github.com/banshee-data/eeg.report/internal/visualiser"
)

func newControlCmd(a *app) *cobra.Command {
	var (
		addr    string
		timeout time.Duration
	)
	valid := []string{"status", "stream"}
	for _, c := range playback.Commands {
		valid = append(valid, string(c))
	}

	cmd := &cobra.Command{
		Use:       "control <" + strings.Join(valid, "|") + ">",
		Short:     "Control a running server over gRPC",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: valid,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = a.cfg.GetGRPCListen()
			}
			client, conn, err := visualiser.Dial(addr)
			if err != nil {
				return err
			}
			defer conn.Close()

			ctx, stop := signalContext(cmd.Context())
			defer stop()
			return runControl(ctx, client, args[0], timeout, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "gRPC server address (default: config grpc_listen)")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "Deadline for unary calls")
	return cmd
}

func runControl(ctx context.Context, client *visualiser.Client, action string, timeout time.Duration, out io.Writer) error {
	if action == "stream" {
		err := client.Stream(ctx, func(f playback.Frame) error {
			_, err := fmt.Fprintln(out, formatFrame(f))
			return err
		})
		if ctx.Err() != nil {
			return nil
		}
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var (
		f   playback.Frame
		err error
	)
	if action == "status" {
		f, err = client.Status(ctx)
	} else {
		cmd, perr := playback.ParseCommand(action)
		if perr != nil {
			return perr
		}
		f, err = client.Do(ctx, cmd)
	}
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, formatFrame(f))
	return err
}

// formatFrame renders f as a single status line.
func formatFrame(f playback.Frame) string {
	if !f.Ready {
		return fmt.Sprintf("#%d %s: no data loaded", f.Seq, f.State)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "#%d %-8s subject %s (%d/%d) trial %d (%d/%d) %3.0f%%  severity %.2f  ADR %.2f [%s]  TAR %.2f [%s]",
		f.Seq, f.State, f.Subject, f.SubjectPosition+1, f.SubjectCount,
		f.TrialIndex, f.TrialPosition+1, f.TrialCount, f.Fraction*100,
		f.Analysis.Severity, f.ADR.Value, f.ADR.Bucket, f.TAR.Value, f.TAR.Bucket)
	if a := f.Analysis.TrendAlert; a != nil {
		fmt.Fprintf(&b, "  trend %s", *a)
	}
	if s := f.Analysis.Symmetry; s != nil {
		fmt.Fprintf(&b, "  BSI %+.2f %s", s.BSI, s.Class)
	}
	return b.String()
}

package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/banshee-data/eeg.report/internal/api"
	"github.com/banshee-data/eeg.report/internal/dashboard"
	"github.com/banshee-data/eeg.report/internal/eeg"
	"github.com/banshee-data/eeg.report/internal/playback"
	"github.com/banshee-data/eeg.report/internal/timeutil"
	"github.com/banshee-data/eeg.report/internal/visualiser"
)

type serveOptions struct {
	source     sourceFlags
	watch      bool
	listen     string
	grpcListen string
	noGRPC     bool
}

func newServeCmd(a *app) *cobra.Command {
	o := &serveOptions{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Play a dataset back and serve the dashboard over HTTP and gRPC",
		Long: `serve plays a dataset back in real time and exposes it over HTTP
(JSON API, Server-Sent Events, echarts dashboard, live page) and gRPC
(playback control and frame stream).

Without a source flag the server starts with no data; a stored dataset can
be loaded later with POST /api/datasets/load?id=<id>.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("listen") {
				a.cfg.Listen = &o.listen
			}
			if cmd.Flags().Changed("grpc-listen") {
				a.cfg.GRPCListen = &o.grpcListen
			}
			return runServe(cmd.Context(), a, o)
		},
	}
	o.source.register(cmd, true)
	f := cmd.Flags()
	f.BoolVar(&o.watch, "watch", false, "Reload the CSV file whenever it changes (requires --csv)")
	f.StringVar(&o.listen, "listen", "", "HTTP listen address (overrides config)")
	f.StringVar(&o.grpcListen, "grpc-listen", "", "gRPC listen address (overrides config)")
	f.BoolVar(&o.noGRPC, "no-grpc", false, "Do not start the gRPC server")
	return cmd
}

func newPlayer(a *app) *playback.Player {
	return playback.NewPlayer(playback.Options{
		TrendWindow: a.cfg.GetTrendWindow(),
		ADRGauge:    a.cfg.GetADRGauge(),
		TARGauge:    a.cfg.GetTARGauge(),
	})
}

func runServe(parent context.Context, a *app, o *serveOptions) error {
	if o.watch && o.source.csv == "" {
		return errors.New("--watch requires --csv")
	}
	ctx, stop := signalContext(parent)
	defer stop()
	logger := a.logger

	database, err := a.openDB()
	if err != nil {
		return err
	}
	defer database.Close()

	sched := playback.NewScheduler(newPlayer(a), timeutil.RealClock{}, a.cfg.GetFrameInterval())
	pub := visualiser.NewPublisher(visualiser.DefaultConfig())
	sched.OnFrame(pub.Publish)
	pub.Start()
	defer pub.Stop()
	sched.Start(ctx)
	defer sched.Stop()

	dashOpts := dashboard.DefaultOptions()
	dashOpts.Panels = a.cfg.GetPanels()
	srv := api.NewServer(sched, pub, database, api.Options{
		TrendWindow: a.cfg.GetTrendWindow(),
		Dashboard:   dashOpts,
	})

	switch err := o.source.validate(); {
	case errors.Is(err, errNoSource):
		logger.Info("starting without data")
	case err != nil:
		return err
	default:
		ds, name, err := o.source.load(ctx, database)
		if err != nil {
			return err
		}
		if err := sched.Load(ctx, ds); err != nil {
			return fmt.Errorf("failed to load dataset: %w", err)
		}
		srv.SetSource(name)
		logger.Info("dataset loaded",
			zap.String("source", name),
			zap.Int("subjects", ds.SubjectCount()),
			zap.Int("trials", ds.TrialCount()))
	}

	mux := srv.ServeMux()
	if err := database.AttachAdminRoutes(mux); err != nil {
		return err
	}

	var lis net.Listener
	if !o.noGRPC {
		lis, err = net.Listen("tcp", a.cfg.GetGRPCListen())
		if err != nil {
			return fmt.Errorf("failed to listen for gRPC on %s: %w", a.cfg.GetGRPCListen(), err)
		}
	}

	var watcher *eeg.Watcher
	if o.watch {
		watcher, err = eeg.NewWatcher(o.source.csv, func(ds *eeg.Dataset, stats eeg.LoadStats) {
			if err := sched.Load(ctx, ds); err != nil {
				logger.Warn("reload rejected", zap.Error(err))
				return
			}
			logger.Info("dataset reloaded",
				zap.String("path", o.source.csv),
				zap.Int("kept", stats.Kept),
				zap.Int("discarded", stats.Discarded))
		})
		if err == nil {
			err = watcher.Start(ctx)
		}
		if err != nil {
			if lis != nil {
				lis.Close()
			}
			return err
		}
		defer watcher.Stop()
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return serveHTTP(gctx, logger, a.cfg.GetListen(), api.LoggingMiddleware(mux))
	})

	if lis != nil {
		g.Go(func() error {
			return visualiser.Serve(gctx, lis, visualiser.NewServer(sched, pub))
		})
	}

	g.Go(func() error {
		select {
		case <-gctx.Done():
		case <-sched.Done():
			if ctx.Err() == nil {
				return errors.New("playback scheduler stopped unexpectedly")
			}
		}
		return nil
	})

	err = g.Wait()
	logger.Info("graceful shutdown complete")
	return err
}

// serveHTTP runs an HTTP server on addr until ctx is cancelled.
func serveHTTP(ctx context.Context, logger *zap.Logger, addr string, h http.Handler) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("failed to start server: %w", err)
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}
	logger.Info("shutting down HTTP server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP server shutdown error", zap.Error(err))
		if err := server.Close(); err != nil {
			logger.Warn("HTTP server force close error", zap.Error(err))
		}
	}
	logger.Info("HTTP server routine stopped")
	return nil
}

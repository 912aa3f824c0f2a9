// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/policy-feed/internal/ingest"
	"github.com/pdiddy/policy-feed/internal/schedule"
	"github.com/pdiddy/policy-feed/internal/trigger"
)

const shutdownTimeout = 30 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Collect on a schedule and accept on-demand triggers over HTTP",
	Long: `Serve runs a collection every schedule.interval and starts an HTTP server
on schedule.listen_addr:

  POST /collect   start a run (409 when one is already running)
  GET  /status    current and last run
  GET  /healthz   liveness

At most one run is active at a time; scheduled ticks that land on an
active run are skipped.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (overrides schedule.listen_addr)")
	serveCmd.Flags().Duration("interval", 0, "collection interval (overrides schedule.interval)")
	serveCmd.Flags().Bool("run-on-start", false, "collect once immediately")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		cfg.Schedule.ListenAddr = addr
	}
	if iv, _ := cmd.Flags().GetDuration("interval"); iv > 0 {
		cfg.Schedule.Interval = iv
	}
	if cmd.Flags().Changed("run-on-start") {
		cfg.Schedule.RunOnStart, _ = cmd.Flags().GetBool("run-on-start")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := openApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	orch, err := a.orchestrator(cfg, logger)
	if err != nil {
		return err
	}

	ticker, err := schedule.NewTicker(cfg.Schedule.Interval, cfg.Schedule.RunOnStart)
	if err != nil {
		return err
	}
	ticker.Start(ctx, func(ctx context.Context, at time.Time) {
		run, err := orch.Run(ctx)
		if errors.Is(err, ingest.ErrRunInProgress) {
			logger.Info("scheduled run skipped, another run is active", "tick", at)
			return
		}
		logger.Info("scheduled run finished", "status", run.Status, "stored", run.TotalProcessed(), "errors", len(run.Errors))
	})
	logger.Info("scheduler started", "interval", cfg.Schedule.Interval, "run_on_start", cfg.Schedule.RunOnStart)

	srv := trigger.NewServer(ctx, cfg.Schedule.ListenAddr, orch, logger)
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()

	select {
	case err = <-errc:
	case <-ctx.Done():
	}
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if serr := srv.Shutdown(shutdownCtx); serr != nil {
		logger.Warn("trigger server shutdown", "error", serr)
	}
	ticker.Stop()
	waitIdle(shutdownCtx, orch)
	return err
}

// waitIdle blocks until no run is active or ctx ends.
func waitIdle(ctx context.Context, orch *ingest.Orchestrator) {
	t := time.NewTicker(200 * time.Millisecond)
	defer t.Stop()
	for orch.Status().Running {
		select {
		case <-ctx.Done():
			logger.Warn("run still active at shutdown")
			return
		case <-t.C:
		}
	}
}

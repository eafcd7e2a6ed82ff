package main

import (
	"context"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/dshills/onboard/internal/catalog"
	"github.com/dshills/onboard/internal/govern"
	"github.com/dshills/onboard/internal/plan"
	"github.com/dshills/onboard/internal/resolve"
	"github.com/dshills/onboard/internal/upstream"
)

// runFlags holds the flags for the run command.
type runFlags struct {
	roster   string
	interval time.Duration
	listen   string
}

func newRunCmd(flags *rootFlags) *cobra.Command {
	var rf runFlags
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Continuously sync every volunteer in a roster file",
		Long:  "Run re-syncs each roster volunteer on an interval, hot-reloads catalog overrides when the overrides file changes, and serves Prometheus metrics.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if rf.roster == "" {
				return codeError(3, "--roster is required")
			}
			if rf.interval <= 0 {
				return codeError(3, "--interval must be positive, got %s", rf.interval)
			}
			return runLoop(flags, rf)
		},
	}
	f := cmd.Flags()
	f.StringVar(&rf.roster, "roster", "", "YAML roster of volunteers to keep in sync")
	f.DurationVar(&rf.interval, "interval", 5*time.Minute, "Time between sync passes")
	f.StringVar(&rf.listen, "listen", ":9464", "Address for the /metrics endpoint")
	return cmd
}

func runLoop(flags *rootFlags, rf runFlags) error {
	logger := newLogger(flags.verbose)

	cat, err := loadCatalog(flags, logger)
	if err != nil {
		return codeError(3, "loading catalog: %s", err)
	}

	reg := prometheus.NewRegistry()
	metrics := govern.NewMetrics(reg)
	client, gov, err := newUpstreamClient(logger, metrics)
	if err != nil {
		return codeError(3, "%s", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if flags.overrides != "" {
		go func() {
			if err := cat.Watch(ctx, flags.overrides); err != nil && ctx.Err() == nil {
				logger.Error("catalog watcher stopped", "error", err)
			}
		}()
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: rf.listen, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server failed", "error", err)
		}
	}()
	defer srv.Close()

	logger.Info("sync loop started", "roster", rf.roster, "interval", rf.interval, "listen", rf.listen)

	ticker := time.NewTicker(rf.interval)
	defer ticker.Stop()

	// First pass immediately, then on every tick.
	syncRoster(ctx, logger, cat, client, gov, rf.roster)
	for {
		select {
		case <-ctx.Done():
			logger.Info("sync loop stopping")
			return nil
		case <-ticker.C:
			syncRoster(ctx, logger, cat, client, gov, rf.roster)
		}
	}
}

// syncRoster runs one full pass over the roster. The roster file is re-read
// every pass so edits take effect without a restart. A failure for one
// volunteer never blocks the rest.
func syncRoster(ctx context.Context, logger *slog.Logger, cat *catalog.Catalog, client *upstream.Client, gov *govern.Governor, rosterPath string) {
	roster, err := loadRoster(rosterPath)
	if err != nil {
		logger.Error("roster load failed, skipping pass", "error", err)
		return
	}

	start := time.Now()
	var failed int
	for _, entry := range roster.Volunteers {
		if ctx.Err() != nil {
			return
		}
		steps := resolve.RequiredSteps(cat, entry.Active, entry.Completed)
		growth := resolve.RequiredGrowth(cat, entry.Active)
		fields := plan.Build(steps, growth)
		if len(fields) == 0 {
			continue
		}
		if err := plan.Apply(ctx, client, logger, entry.PersonID, fields); err != nil {
			failed++
		}
	}

	budget := gov.Stats()
	logger.Info("sync pass complete",
		"volunteers", len(roster.Volunteers),
		"failed", failed,
		"elapsed", time.Since(start).Round(time.Millisecond),
		"calls", budget.TotalCalls,
		"rate_limit_errors", budget.RateLimitErrors)
}

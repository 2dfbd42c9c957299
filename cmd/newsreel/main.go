package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"newsreel/internal/app"
	"newsreel/internal/config"
	"newsreel/internal/logging"
	"newsreel/internal/usecase"
)

func main() {
	schedule := flag.Bool("schedule", false, "run daily at the configured time instead of once")
	dryRun := flag.Bool("dry-run", false, "execute the full pipeline but withhold renderer dispatch")
	limit := flag.Int("limit", 0, "override the number of items rendered per run")
	stats := flag.Bool("stats", false, "print cumulative run statistics and exit")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	logger := logging.New(cfg.Logging.Level)

	application, err := app.New(cfg, logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		os.Exit(1)
	}

	switch {
	case *stats:
		totals, err := application.Totals(ctx)
		if err != nil {
			logger.Error("read statistics", "error", err)
			os.Exit(1)
		}
		out, _ := json.MarshalIndent(totals, "", "  ")
		fmt.Println(string(out))

	case *schedule:
		if err := application.RunScheduled(ctx); err != nil {
			logger.Error("scheduler stopped", "error", err)
			os.Exit(1)
		}

	default:
		rec, err := application.RunOnce(ctx, usecase.RunOptions{DryRun: *dryRun, MaxItems: *limit})
		if err != nil {
			logger.Error("run failed", "run_id", rec.RunID, "error", err)
			os.Exit(1)
		}
		logger.Info("run complete",
			"run_id", rec.RunID,
			"scraped", rec.ItemsScraped,
			"accepted", rec.ItemsAccepted,
			"rendered", rec.ItemsRendered)
	}
}

// Package main is the entry point for the trending sweeper.
//
// The sweeper recalculates trending scores outside the API process. By
// default it runs a single sweep cycle and exits, which suits cron and
// one-off operational runs; with -loop it runs the periodic sweep until
// interrupted.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/echolabs/echofeed/internal/config"
	"github.com/echolabs/echofeed/internal/db"
	"github.com/echolabs/echofeed/internal/jobs"
	"github.com/echolabs/echofeed/internal/middleware"
	"github.com/echolabs/echofeed/internal/store"
	"github.com/echolabs/echofeed/internal/trending"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	loop := flag.Bool("loop", false, "run the periodic sweep until interrupted")
	batchSize := flag.Int("batch-size", 0, "posts per checkpointed batch (default from config)")
	maxPosts := flag.Int("max-posts", 0, "cap on posts per sweep (default from config)")
	help := flag.Bool("help", false, "display help message")
	flag.Parse()

	if *help {
		fmt.Println("echofeed Trending Sweeper")
		fmt.Println()
		fmt.Println("Usage: sweeper [options]")
		fmt.Println()
		fmt.Println("Options:")
		flag.PrintDefaults()
		os.Exit(0)
	}

	cfg, errs := config.Load(*configPath)
	if len(errs) > 0 {
		for _, err := range errs {
			fmt.Fprintln(os.Stderr, "config error:", err)
		}
		os.Exit(1)
	}

	logger := middleware.NewLogger(cfg.Env)
	slog.SetDefault(logger)

	ctx := context.Background()

	conn, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func() { _ = conn.Close() }()

	interactions := store.NewPostgresStore(conn, logger)
	scores := trending.NewPostgresScoreStore(conn)
	scorer := trending.NewScorer(interactions, scores, trending.BatchFormula{}, logger)

	sweep := trending.NewSweepJob(trending.SweepJobConfig{
		Interval:   cfg.SweepInterval,
		BatchSize:  cfg.SweepBatchSize,
		MaxPosts:   cfg.SweepMaxPosts,
		Rate:       float64(cfg.SweepRate),
		Logger:     logger,
		JobMetrics: jobs.NewMetrics(),
	}, interactions, scorer)

	if !*loop {
		result := sweep.SweepWith(ctx, *batchSize, *maxPosts)
		logger.Info("sweep complete",
			"processed", result.Processed,
			"updated", result.Updated,
			"failed", result.Failed)
		if result.Failed > 0 {
			os.Exit(1)
		}
		return
	}

	if err := sweep.Start(ctx); err != nil {
		logger.Error("failed to start sweep loop", "error", err)
		os.Exit(1)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("stopping sweeper...")
	sweep.Stop()
	logger.Info("sweeper stopped")
}

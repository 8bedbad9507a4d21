// Package main is the entry point for the echofeed API server.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/echolabs/echofeed/internal/affinity"
	"github.com/echolabs/echofeed/internal/api"
	"github.com/echolabs/echofeed/internal/cache"
	"github.com/echolabs/echofeed/internal/config"
	"github.com/echolabs/echofeed/internal/db"
	"github.com/echolabs/echofeed/internal/feed"
	"github.com/echolabs/echofeed/internal/health"
	"github.com/echolabs/echofeed/internal/jobs"
	"github.com/echolabs/echofeed/internal/middleware"
	"github.com/echolabs/echofeed/internal/ranking"
	"github.com/echolabs/echofeed/internal/search"
	"github.com/echolabs/echofeed/internal/store"
	"github.com/echolabs/echofeed/internal/tracing"
	"github.com/echolabs/echofeed/internal/trending"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	help := flag.Bool("help", false, "display help message")
	flag.Parse()

	if *help {
		fmt.Println("echofeed API Server")
		fmt.Println()
		fmt.Println("Usage: api [options]")
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

	summaryAttrs := make([]any, 0, 16)
	for key, value := range cfg.LogSummary() {
		summaryAttrs = append(summaryAttrs, key, value)
	}
	logger.Info("configuration loaded", summaryAttrs...)

	ctx := context.Background()

	// Database
	conn, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func() { _ = conn.Close() }()
	interactions := store.NewPostgresStore(conn, logger)

	// Redis result cache (optional; nil disables caching)
	var resultCache cache.Cache
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Error("invalid redis URL", "error", err)
			os.Exit(1)
		}
		redisClient = redis.NewClient(opts)
		defer func() { _ = redisClient.Close() }()
		resultCache = cache.NewRedisCache(redisClient)
	} else {
		logger.Info("redis not configured, result caching disabled")
	}

	// Metrics registry
	registry := prometheus.NewRegistry()
	httpMetrics := middleware.NewMetrics()
	searchMetrics := search.NewMetrics()
	jobMetrics := jobs.NewMetrics()
	for name, reg := range map[string]interface {
		Register(prometheus.Registerer) error
	}{
		"http":   httpMetrics,
		"search": searchMetrics,
		"jobs":   jobMetrics,
	} {
		if err := reg.Register(registry); err != nil {
			logger.Error("failed to register metrics", "collector", name, "error", err)
			os.Exit(1)
		}
	}

	// Tracing (enabled via OTEL_ENABLED=true)
	tracerProvider, err := tracing.NewProvider(tracing.Config{
		ServiceName:  "echofeed-api",
		Enabled:      os.Getenv("OTEL_ENABLED") == "true",
		Environment:  cfg.Env,
		ExporterType: os.Getenv("OTEL_EXPORTER_TYPE"),
		OTLPEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		SamplingRate: tracingSamplingRate(),
		InsecureMode: cfg.Env != "production",
	})
	if err != nil {
		logger.Error("failed to initialize tracing", "error", err)
		os.Exit(1)
	}

	// Ranking core
	userBudget := ranking.Budget{Timeout: cfg.UserQueryTimeout}
	adminBudget := ranking.Budget{Timeout: cfg.AdminQueryTimeout}
	weights, err := ranking.LoadCalibration(cfg.CalibrationPath)
	if err != nil {
		// LoadCalibration degrades to defaults; the warning is already logged.
		logger.Warn("using default ranking weights", "path", cfg.CalibrationPath)
	}

	scores := trending.NewPostgresScoreStore(conn)
	prefs := affinity.NewPostgresPreferenceStore(conn)
	graphs := affinity.NewPostgresGraphStore(conn)

	model := affinity.NewModel(interactions, prefs, graphs, logger)
	assembler := feed.NewAssembler(interactions, scores, model, weights, userBudget, logger)
	scorer := trending.NewScorer(interactions, scores, trending.BatchFormula{}, logger)
	ranker := search.NewRanker(search.RankerConfig{
		Source:   interactions,
		Cache:    resultCache,
		QueryLog: search.NewPostgresQueryLog(conn),
		Budget:   userBudget,
		Logger:   logger,
		Metrics:  searchMetrics,
		CacheTTL: cfg.SearchCacheTTL,
	})

	// Background trending sweep
	sweep := trending.NewSweepJob(trending.SweepJobConfig{
		Interval:   cfg.SweepInterval,
		BatchSize:  cfg.SweepBatchSize,
		MaxPosts:   cfg.SweepMaxPosts,
		Rate:       float64(cfg.SweepRate),
		Logger:     logger,
		JobMetrics: jobMetrics,
	}, interactions, scorer)
	if err := sweep.Start(ctx); err != nil {
		logger.Error("failed to start trending sweep", "error", err)
		os.Exit(1)
	}
	defer sweep.Stop()

	// Health checkers
	healthConfig := api.HealthHandlersConfig{DBChecker: health.NewDBChecker(conn)}
	if redisClient != nil {
		healthConfig.RedisChecker = health.NewRedisChecker(redisClient)
	}

	mux := api.NewRouter(api.RouterConfig{
		Feed:        api.NewFeedHandlers(assembler, cfg.PersonalizationEnabled),
		Search:      api.NewSearchHandlers(ranker),
		Suggestions: api.NewSuggestionHandlers(model),
		Posts:       api.NewPostHandlers(interactions, scorer),
		Admin:       api.NewAdminHandlers(sweep, adminBudget),
		Health:      api.NewHealthHandlers(healthConfig),
		Metrics:     promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	})

	// Middleware chain, outermost first:
	// RequestID -> Tracing -> HTTPMetrics -> Identity -> RateLimit -> Logging
	handler := middleware.Logging(logger)(mux)
	handler = rateLimit(handler, httpMetrics)
	handler = middleware.Identity(handler)
	handler = middleware.HTTPMetrics(httpMetrics)(handler)
	handler = middleware.Tracing("echofeed-api")(handler)
	handler = middleware.RequestID(handler)

	server := &http.Server{
		Addr:         ":" + strconv.Itoa(cfg.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("starting server", "port", cfg.Port, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}
	if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to flush traces", "error", err)
	}

	logger.Info("server stopped")
}

// rateLimit applies per-route rate limits: search and admin routes get
// tighter windows than the global default.
func rateLimit(next http.Handler, metrics *middleware.Metrics) http.Handler {
	// Each limiter gets its own store: fixed-window buckets are keyed by
	// client only, so sharing one store would conflate the windows.
	keyFunc := middleware.UserKeyFunc()

	globalLimited := middleware.RateLimiter(middleware.NewInMemoryRateLimitStore(), middleware.DefaultGlobalLimit(), keyFunc, metrics)(next)
	searchLimited := middleware.RateLimiter(middleware.NewInMemoryRateLimitStore(), middleware.DefaultSearchLimit(), keyFunc, metrics)(next)
	adminLimited := middleware.RateLimiter(middleware.NewInMemoryRateLimitStore(), middleware.DefaultAdminLimit(), keyFunc, metrics)(next)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/search"):
			searchLimited.ServeHTTP(w, r)
		case strings.HasPrefix(r.URL.Path, "/admin/"):
			adminLimited.ServeHTTP(w, r)
		default:
			globalLimited.ServeHTTP(w, r)
		}
	})
}

// tracingSamplingRate reads OTEL_SAMPLING_RATE, defaulting to sampling
// every trace.
func tracingSamplingRate() float64 {
	raw := os.Getenv("OTEL_SAMPLING_RATE")
	if raw == "" {
		return 1.0
	}
	rate, err := strconv.ParseFloat(raw, 64)
	if err != nil || rate < 0 || rate > 1 {
		return 1.0
	}
	return rate
}

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"bilancio/internal/analyzer"
	"bilancio/internal/backend"
	"bilancio/internal/cache"
	"bilancio/internal/categorizer"
	"bilancio/internal/cli"
	apphttp "bilancio/internal/http"
	"bilancio/internal/log"
	"bilancio/internal/middleware/ratelimit"
	"bilancio/internal/resolver"
	"bilancio/internal/services"
)

const (
	shutdownTimeout = 30 * time.Second
	cleanupInterval = 5 * time.Minute
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()
	cfg := cli.LoadAndValidateConfig(logger)

	result, err := backend.NewFactory(logger).Create(cfg)
	if err != nil {
		logger.Error("backend initialization failed", log.FieldError, err.Error())
		os.Exit(1)
	}

	snapCache := cache.New(result.Provider, result.BudgetID, logger)

	// Warm the initial snapshot. Failure is non-fatal: the server starts
	// cold and the first request or the refresh loop fetches it.
	warmCtx, warmCancel := context.WithTimeout(context.Background(), cfg.ProviderTimeout+5*time.Second)
	snap, err := snapCache.Get(warmCtx, cfg.MaxStaleness)
	warmCancel()
	if err != nil {
		logger.Warn("initial snapshot fetch failed, starting cold",
			log.FieldBudgetID, result.BudgetID,
			log.FieldError, err.Error())
	}

	cat := categorizer.New(categorizer.Config{
		MinConfidence: cfg.MinConfidence,
		HalfLife:      cfg.SuggestHalfLife,
	}, logger)
	if snap != nil {
		learned := cat.SeedFromSnapshot(snap)
		logger.Info("categorizer seeded from history", log.FieldCount, learned)
	}

	res := resolver.New(resolver.Config{SimilarityThreshold: cfg.SimilarityThreshold}, logger)

	svc := services.New(snapCache, result.Provider, res, cat, result.BudgetID, services.Config{
		MaxStaleness: cfg.MaxStaleness,
		Trend: analyzer.TrendConfig{
			TrailingMonths:    cfg.TrailingMonths,
			AnomalyMultiplier: cfg.AnomalyMultiplier,
		},
	}, logger)

	cacheManager := cache.NewManager(logger)
	cacheManager.Register(svc.MonthCache())
	cacheManager.StartCleanup(cleanupInterval)

	processor := services.NewRefreshProcessor(snapCache, services.RefreshConfig{
		Interval:     cfg.RefreshInterval,
		MaxStaleness: cfg.MaxStaleness,
	}, logger)
	if err := processor.Start(context.Background()); err != nil {
		logger.Error("refresh processor start failed", log.FieldError, err.Error())
		os.Exit(1)
	}

	srv := apphttp.New(":"+cfg.Port, svc, logger,
		apphttp.WithRateLimit(ratelimit.Config{RequestsPerMinute: cfg.RequestsPerMinute}))

	ctx, done := cli.GracefulShutdown(logger, shutdownTimeout, func(shutdownCtx context.Context) {
		if err := processor.Stop(shutdownCtx); err != nil {
			logger.Error("refresh processor stop failed", log.FieldError, err.Error())
		}
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown failed", log.FieldError, err.Error())
		}
		cacheManager.Stop()
		if result.Cleanup != nil {
			if err := result.Cleanup(); err != nil {
				logger.Error("backend cleanup failed", log.FieldError, err.Error())
			}
		}
	})

	logger.Info("bilancio starting",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		log.FieldBudgetID, result.BudgetID)
	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server error", log.FieldError, err.Error())
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
}

package main

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/i4ops/vmwatch/internal/adapter/api"
	"github.com/i4ops/vmwatch/internal/adapter/api/handler"
	"github.com/i4ops/vmwatch/internal/adapter/collector"
	"github.com/i4ops/vmwatch/internal/adapter/detect"
	"github.com/i4ops/vmwatch/internal/adapter/metrics"
	"github.com/i4ops/vmwatch/internal/adapter/repository/postgres"
	redisrepo "github.com/i4ops/vmwatch/internal/adapter/repository/redis"
	"github.com/i4ops/vmwatch/internal/domain"
	"github.com/i4ops/vmwatch/internal/pkg/config"
	"github.com/i4ops/vmwatch/internal/pkg/logger"
	"github.com/i4ops/vmwatch/internal/usecase"

	_ "github.com/lib/pq" // Keep for postgres driver
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	log := logger.New(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(log)

	m := metrics.NewScanMetrics()

	// --- Admin and Metrics Server ---
	adminMux := http.NewServeMux()
	adminMux.Handle("/metrics", promhttp.Handler())

	adminServer := &http.Server{
		Addr:    cfg.AdminServerAddr,
		Handler: adminMux,
	}

	go func() {
		log.Info("starting admin & metrics server", "addr", adminServer.Addr)
		if err := adminServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("admin & metrics server failed", "error", err)
		}
	}()

	// --- Graceful Shutdown Context ---
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Database Connection ---
	db, err := sql.Open("postgres", cfg.PostgresURL)
	if err != nil {
		log.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		log.Error("failed to ping postgres", "error", err)
		os.Exit(1)
	}

	eventRepo := postgres.NewEventRepository(db, log)

	// --- Report Cache (optional) ---
	var cache domain.ReportCache
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Warn("could not connect to redis, analysis reports will not be cached", "error", err)
		} else {
			cache = redisrepo.NewReportCache(redisClient, cfg.ReportCacheTTL, log)
		}
	}

	// --- Detection Pipeline and Scan Trigger ---
	detector := detect.NewDetector()
	analyzer := usecase.NewAnalyzer()

	var scanner handler.ScanRunner
	if coll := buildCollector(cfg, log); coll != nil {
		processor := usecase.NewProcessVMUseCase(coll, eventRepo, detector, cache, m, log)
		scanner = usecase.NewScanUseCase(coll, processor, m, log, cfg.ScanWorkers)
	}

	// --- API Server ---
	router := api.NewRouter(log, eventRepo, cache, detector, analyzer, scanner)
	apiServer := &http.Server{
		Addr:         cfg.APIServerAddr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("starting api server", "addr", apiServer.Addr)
		if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("api server failed", "error", err)
			stop()
		}
	}()

	// --- Wait for shutdown signal ---
	<-ctx.Done()
	log.Info("shutting down servers...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	if err := adminServer.Shutdown(shutdownCtx); err != nil {
		log.Error("admin server shutdown failed", "error", err)
	}
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		log.Error("api server shutdown failed", "error", err)
	}

	log.Info("servers shut down gracefully")
}

// buildCollector picks SSH or local collection based on configuration.
// Returns nil when no log base path is configured, which disables the
// process-logs trigger.
func buildCollector(cfg *config.Config, log *slog.Logger) domain.LogCollector {
	if cfg.LogBasePath == "" {
		return nil
	}
	if cfg.LogHost != "" {
		return collector.NewSSH(cfg.LogHost, cfg.SSHUser, cfg.LogBasePath, cfg.TailLines, cfg.SSHTimeout, cfg.CollectPerSec, log)
	}
	return collector.NewLocal(cfg.LogBasePath, cfg.TailLines, log)
}

package main

import (
	"bufio"
	"context"
	"database/sql"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/i4ops/vmwatch/internal/adapter/collector"
	"github.com/i4ops/vmwatch/internal/adapter/detect"
	"github.com/i4ops/vmwatch/internal/adapter/metrics"
	"github.com/i4ops/vmwatch/internal/adapter/repository/postgres"
	redisrepo "github.com/i4ops/vmwatch/internal/adapter/repository/redis"
	"github.com/i4ops/vmwatch/internal/domain"
	"github.com/i4ops/vmwatch/internal/pkg/config"
	"github.com/i4ops/vmwatch/internal/pkg/logger"
	"github.com/i4ops/vmwatch/internal/usecase"

	_ "github.com/lib/pq"
)

func main() {
	once := flag.Bool("once", false, "run a single scan and exit")
	file := flag.String("file", "", "process one pre-formatted log file instead of scanning VMs")
	vmName := flag.String("vm", "manual", "VM name to attribute events to in -file mode")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	log := logger.New(cfg.LogLevel, cfg.LogFormat)
	log.Info("starting scanner worker")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stopChan := make(chan os.Signal, 1)
	signal.Notify(stopChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-stopChan
		log.Info("shutdown signal received, stopping scanner...")
		cancel()
	}()

	db, err := sql.Open("postgres", cfg.PostgresURL)
	if err != nil {
		log.Error("failed to open postgres connection", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		log.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	log.Info("connected to postgres")

	eventRepo := postgres.NewEventRepository(db, log)

	var cache domain.ReportCache
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Warn("could not connect to redis, proceeding without report cache", "error", err)
		} else {
			cache = redisrepo.NewReportCache(redisClient, cfg.ReportCacheTTL, log)
		}
	}

	m := metrics.NewScanMetrics()
	detector := detect.NewDetector()

	var coll domain.LogCollector
	if cfg.LogHost != "" {
		coll = collector.NewSSH(cfg.LogHost, cfg.SSHUser, cfg.LogBasePath, cfg.TailLines, cfg.SSHTimeout, cfg.CollectPerSec, log)
	} else {
		coll = collector.NewLocal(cfg.LogBasePath, cfg.TailLines, log)
	}

	processor := usecase.NewProcessVMUseCase(coll, eventRepo, detector, cache, m, log)

	if *file != "" {
		if err := processFile(ctx, processor, *file, *vmName, log); err != nil {
			log.Error("file processing failed", "file", *file, "error", err)
			os.Exit(1)
		}
		return
	}

	scanner := usecase.NewScanUseCase(coll, processor, m, log, cfg.ScanWorkers)
	analyzer := usecase.NewAnalyzer()

	runScan(ctx, scanner, analyzer, eventRepo, cache, log)
	if *once {
		return
	}

	ticker := time.NewTicker(cfg.ScanInterval)
	defer ticker.Stop()

	log.Info("scanner worker started", "interval", cfg.ScanInterval, "workers", cfg.ScanWorkers)

Loop:
	for {
		select {
		case <-ticker.C:
			runScan(ctx, scanner, analyzer, eventRepo, cache, log)
		case <-ctx.Done():
			log.Info("context cancelled, shutting down scan loop")
			break Loop
		}
	}

	log.Info("scanner worker shut down gracefully")
}

// runScan performs one full scan run, then refreshes the threat-analysis
// report over the last day of stored events.
func runScan(
	ctx context.Context,
	scanner *usecase.ScanUseCase,
	analyzer *usecase.Analyzer,
	repo domain.EventRepository,
	cache domain.ReportCache,
	log *slog.Logger,
) {
	report, err := scanner.Run(ctx)
	if err != nil {
		log.Error("scan run failed", "error", err)
		return
	}
	log.Info("scan run completed",
		"run_id", report.RunID,
		"vms_scanned", report.VMsScanned,
		"events_found", report.EventsFound,
		"events_saved", report.EventsSaved,
		"duration", report.Duration,
	)

	stored, _, err := repo.Query(ctx, domain.EventFilter{Since: time.Now().Add(-24 * time.Hour)}, 1, 1000)
	if err != nil {
		log.Error("failed to load events for analysis", "error", err)
		return
	}

	events := make([]domain.SecurityEvent, 0, len(stored))
	for _, se := range stored {
		events = append(events, domain.SecurityEvent{
			VMName:    se.VMName,
			Timestamp: se.Timestamp,
			Source:    se.Source,
			Message:   se.Message,
			Severity:  se.Severity,
			Rule:      se.Rule,
			Metadata:  se.Metadata,
		})
	}

	analysis := analyzer.Analyze(events)
	for _, threat := range analysis.Threats {
		log.Warn("threat detected", "threat", threat)
	}
	for _, rec := range analysis.Recommendations {
		log.Info("recommendation", "recommendation", rec)
	}

	if cache != nil {
		if err := cache.PutReport(ctx, analysis); err != nil {
			log.Warn("failed to cache analysis report", "error", err)
		}
	}
}

// processFile runs every line of one already-formatted log file through
// the detection pipeline, for ad-hoc and backfill runs.
func processFile(ctx context.Context, processor *usecase.ProcessVMUseCase, path, vmName string, log *slog.Logger) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return err
	}

	result := processor.ProcessLines(ctx, vmName, lines)
	log.Info("file processed",
		"file", path,
		"lines", len(lines),
		"events_found", result.EventsFound,
		"events_saved", result.EventsSaved,
	)
	return nil
}

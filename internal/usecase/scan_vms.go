package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/i4ops/vmwatch/internal/adapter/metrics"
	"github.com/i4ops/vmwatch/internal/domain"
)

// ScanUseCase discovers VM log directories and processes them with a
// bounded pool of workers. One VM's failure never aborts the run.
type ScanUseCase struct {
	collector domain.LogCollector
	processor *ProcessVMUseCase
	metrics   *metrics.ScanMetrics
	logger    *slog.Logger
	workers   int
}

// NewScanUseCase creates a new ScanUseCase. Metrics may be nil.
func NewScanUseCase(coll domain.LogCollector, processor *ProcessVMUseCase, m *metrics.ScanMetrics, logger *slog.Logger, workers int) *ScanUseCase {
	if workers < 1 {
		workers = 1
	}
	return &ScanUseCase{
		collector: coll,
		processor: processor,
		metrics:   m,
		logger:    logger,
		workers:   workers,
	}
}

// Run executes one full scan across all discovered VMs and returns the
// aggregated report. VM results are sorted by name so reports are
// reproducible regardless of worker scheduling.
func (uc *ScanUseCase) Run(ctx context.Context) (*domain.ScanReport, error) {
	started := time.Now()

	vms, err := uc.collector.DiscoverVMs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to discover VMs: %w", err)
	}

	report := &domain.ScanReport{
		RunID:     uuid.NewString(),
		StartedAt: started.UTC(),
		TotalVMs:  len(vms),
	}

	if len(vms) == 0 {
		uc.logger.Warn("no VM log directories found")
		report.Duration = time.Since(started)
		return report, nil
	}

	uc.logger.Info("starting scan run", "run_id", report.RunID, "vms", len(vms), "workers", uc.workers)

	jobs := make(chan string)
	results := make(chan domain.VMScanResult)

	var wg sync.WaitGroup
	for i := 0; i < uc.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for vm := range jobs {
				results <- uc.processor.ProcessVM(ctx, vm)
			}
		}()
	}

	go func() {
		for _, vm := range vms {
			jobs <- vm
		}
		close(jobs)
		wg.Wait()
		close(results)
	}()

	for res := range results {
		report.VMResults = append(report.VMResults, res)
		report.VMsScanned++
		report.EventsFound += res.EventsFound
		report.EventsSaved += res.EventsSaved
		uc.logger.Info("processed VM", "vm", res.VMName, "events_found", res.EventsFound, "events_saved", res.EventsSaved, "errors", len(res.Errors))
	}

	sort.Slice(report.VMResults, func(i, j int) bool {
		return report.VMResults[i].VMName < report.VMResults[j].VMName
	})

	report.Duration = time.Since(started)
	if uc.metrics != nil {
		uc.metrics.ScanDuration.Observe(report.Duration.Seconds())
	}

	uc.logger.Info("scan run completed",
		"run_id", report.RunID,
		"vms_scanned", report.VMsScanned,
		"events_found", report.EventsFound,
		"events_saved", report.EventsSaved,
		"duration", report.Duration,
	)
	return report, nil
}

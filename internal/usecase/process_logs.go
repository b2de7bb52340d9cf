package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/i4ops/vmwatch/internal/adapter/collector"
	"github.com/i4ops/vmwatch/internal/adapter/detect"
	"github.com/i4ops/vmwatch/internal/adapter/metrics"
	"github.com/i4ops/vmwatch/internal/domain"
)

// ProcessVMUseCase runs one VM's log sources through the detection pipeline
// and persists whatever matches. A failing source or a failing save never
// aborts the rest of the VM's processing.
type ProcessVMUseCase struct {
	collector domain.LogCollector
	repo      domain.EventRepository
	detector  *detect.Detector
	cache     domain.ReportCache
	metrics   *metrics.ScanMetrics
	logger    *slog.Logger
	now       func() time.Time
}

// NewProcessVMUseCase creates a new ProcessVMUseCase. The report cache and
// metrics are optional and may be nil.
func NewProcessVMUseCase(
	coll domain.LogCollector,
	repo domain.EventRepository,
	detector *detect.Detector,
	cache domain.ReportCache,
	m *metrics.ScanMetrics,
	logger *slog.Logger,
) *ProcessVMUseCase {
	return &ProcessVMUseCase{
		collector: coll,
		repo:      repo,
		detector:  detector,
		cache:     cache,
		metrics:   m,
		logger:    logger,
		now:       time.Now,
	}
}

// ProcessVM collects and processes every log source of one VM. Collection
// failures are recorded in the result and processing continues with the
// next source.
func (uc *ProcessVMUseCase) ProcessVM(ctx context.Context, vmName string) domain.VMScanResult {
	start := time.Now()
	result := domain.VMScanResult{
		VMName:     vmName,
		BySeverity: make(map[domain.Severity]int),
		ByRule:     make(map[domain.Rule]int),
	}

	for _, source := range domain.LogSources {
		lines, err := uc.collector.Collect(ctx, vmName, source)
		if err != nil {
			uc.logger.Warn("log collection failed, skipping source", "vm", vmName, "source", source, "error", err)
			result.Errors = append(result.Errors, fmt.Sprintf("collecting %s: %v", source, err))
			if uc.metrics != nil {
				uc.metrics.VMFailures.Inc()
			}
			continue
		}

		srcStats := domain.SourceScanStats{Source: source}
		for _, line := range lines {
			if strings.TrimSpace(line) == "" {
				continue
			}
			formatted := collector.FormatLine(uc.now(), vmName, source, line)
			uc.processLine(ctx, formatted, &srcStats, &result)
		}
		result.Sources = append(result.Sources, srcStats)
	}

	result.Duration = time.Since(start)
	return result
}

// ProcessLines feeds lines already in the 4-field wire format through the
// pipeline, for callers that read a pre-formatted log file directly.
func (uc *ProcessVMUseCase) ProcessLines(ctx context.Context, name string, lines []string) domain.VMScanResult {
	start := time.Now()
	result := domain.VMScanResult{
		VMName:     name,
		BySeverity: make(map[domain.Severity]int),
		ByRule:     make(map[domain.Rule]int),
	}

	srcStats := domain.SourceScanStats{Source: name}
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		uc.processLine(ctx, line, &srcStats, &result)
	}
	result.Sources = append(result.Sources, srcStats)

	result.Duration = time.Since(start)
	return result
}

func (uc *ProcessVMUseCase) processLine(ctx context.Context, line string, srcStats *domain.SourceScanStats, result *domain.VMScanResult) {
	srcStats.LinesProcessed++
	if uc.metrics != nil {
		uc.metrics.LinesProcessed.Inc()
	}

	event, ok := uc.detector.Detect(line)
	if !ok {
		return
	}

	srcStats.EventsFound++
	result.EventsFound++
	result.BySeverity[event.Severity]++
	result.ByRule[event.Rule]++
	if uc.metrics != nil {
		uc.metrics.EventsFound.WithLabelValues(string(event.Rule), string(event.Severity)).Inc()
	}

	if event.Severity == domain.SeverityCritical {
		uc.logger.Error("critical security event",
			"vm", event.VMName, "rule", event.Rule, "message", truncate(event.Message, 200))
		if uc.cache != nil {
			if err := uc.cache.PushCritical(ctx, *event); err != nil {
				uc.logger.Warn("failed to push critical event to cache", "error", err)
			}
		}
	}

	if err := uc.repo.Save(ctx, *event); err != nil {
		uc.logger.Error("failed to save security event", "vm", event.VMName, "rule", event.Rule, "error", err)
		if uc.metrics != nil {
			uc.metrics.SaveFailures.Inc()
		}
		return
	}

	srcStats.EventsSaved++
	result.EventsSaved++
	if uc.metrics != nil {
		uc.metrics.EventsSaved.Inc()
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

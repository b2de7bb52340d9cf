package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/i4ops/vmwatch/internal/adapter/detect"
	"github.com/i4ops/vmwatch/internal/domain"
	"github.com/i4ops/vmwatch/internal/usecase"
)

const backgroundScanTimeout = 15 * time.Minute

// ScanRunner triggers a full scan run; satisfied by usecase.ScanUseCase.
type ScanRunner interface {
	Run(ctx context.Context) (*domain.ScanReport, error)
}

// ScanHandler serves scan triggering, line-parsing debugging and the
// threat-analysis endpoint.
type ScanHandler struct {
	scanner  ScanRunner
	detector *detect.Detector
	analyzer *usecase.Analyzer
	repo     domain.EventRepository
	cache    domain.ReportCache
	logger   *slog.Logger
}

// NewScanHandler creates a new ScanHandler. The scanner and cache may be
// nil when the API runs without log collection or Redis.
func NewScanHandler(
	scanner ScanRunner,
	detector *detect.Detector,
	analyzer *usecase.Analyzer,
	repo domain.EventRepository,
	cache domain.ReportCache,
	logger *slog.Logger,
) *ScanHandler {
	return &ScanHandler{
		scanner:  scanner,
		detector: detector,
		analyzer: analyzer,
		repo:     repo,
		cache:    cache,
		logger:   logger,
	}
}

// TriggerScan handles POST /api/security-events/process-logs. The scan
// runs in the background; the request returns immediately.
func (h *ScanHandler) TriggerScan(w http.ResponseWriter, r *http.Request) {
	if h.scanner == nil {
		writeError(w, http.StatusServiceUnavailable, "log collection is not configured")
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), backgroundScanTimeout)
		defer cancel()

		report, err := h.scanner.Run(ctx)
		if err != nil {
			h.logger.Error("background scan failed", "error", err)
			return
		}
		h.logger.Info("background scan completed",
			"run_id", report.RunID, "events_found", report.EventsFound, "events_saved", report.EventsSaved)
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "processing"})
}

type testParsingRequest struct {
	LogLine string `json:"log_line"`
}

type testParsingResponse struct {
	Success bool                  `json:"success"`
	Message string                `json:"message,omitempty"`
	Event   *domain.SecurityEvent `json:"event,omitempty"`
}

// TestParsing handles POST /api/security-events/test-parsing: classify one
// line and echo the result, for debugging pattern coverage.
func (h *ScanHandler) TestParsing(w http.ResponseWriter, r *http.Request) {
	var req testParsingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.LogLine == "" {
		writeError(w, http.StatusBadRequest, "log_line is required")
		return
	}

	event, ok := h.detector.Detect(req.LogLine)
	if !ok {
		writeJSON(w, http.StatusOK, testParsingResponse{Success: false, Message: "no security patterns matched"})
		return
	}
	writeJSON(w, http.StatusOK, testParsingResponse{Success: true, Event: event})
}

// Analysis handles GET /api/security-events/analysis: threat analysis over
// the last 24 hours of stored events, served from cache when fresh.
func (h *ScanHandler) Analysis(w http.ResponseWriter, r *http.Request) {
	if h.cache != nil {
		report, err := h.cache.GetReport(r.Context())
		if err == nil && report != nil {
			writeJSON(w, http.StatusOK, report)
			return
		}
	}

	filter := domain.EventFilter{Since: time.Now().Add(-24 * time.Hour)}
	stored, _, err := h.repo.Query(r.Context(), filter, 1, 1000)
	if err != nil {
		h.logger.Error("failed to load events for analysis", "error", err)
		writeError(w, http.StatusInternalServerError, "analysis failed")
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

	report := h.analyzer.Analyze(events)
	if h.cache != nil {
		if err := h.cache.PutReport(r.Context(), report); err != nil {
			h.logger.Warn("failed to cache analysis report", "error", err)
		}
	}
	writeJSON(w, http.StatusOK, report)
}

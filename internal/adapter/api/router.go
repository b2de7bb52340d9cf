package api

import (
	"log/slog"
	"net/http"

	"github.com/i4ops/vmwatch/internal/adapter/api/handler"
	"github.com/i4ops/vmwatch/internal/adapter/api/middleware"
	"github.com/i4ops/vmwatch/internal/adapter/detect"
	"github.com/i4ops/vmwatch/internal/domain"
	"github.com/i4ops/vmwatch/internal/usecase"
)

// NewRouter creates and configures the HTTP router for the security-event API.
// Path patterns (e.g. "/{id}") require Go 1.22+.
func NewRouter(
	logger *slog.Logger,
	repo domain.EventRepository,
	cache domain.ReportCache,
	detector *detect.Detector,
	analyzer *usecase.Analyzer,
	scanner handler.ScanRunner,
) http.Handler {
	mux := http.NewServeMux()

	eventsHandler := handler.NewEventsHandler(repo, logger)
	scanHandler := handler.NewScanHandler(scanner, detector, analyzer, repo, cache, logger)

	// Event queries
	mux.HandleFunc("GET /api/security-events", eventsHandler.List)
	mux.HandleFunc("GET /api/security-events/stats", eventsHandler.Stats)
	mux.HandleFunc("GET /api/security-events/critical", eventsHandler.Critical)
	mux.HandleFunc("GET /api/security-events/{id}", eventsHandler.Get)

	// Event lifecycle
	mux.HandleFunc("PUT /api/security-events/acknowledge", eventsHandler.Acknowledge)
	mux.HandleFunc("DELETE /api/security-events/cleanup-duplicates", eventsHandler.CleanupDuplicates)

	// Scanning and analysis
	mux.HandleFunc("POST /api/security-events/process-logs", scanHandler.TriggerScan)
	mux.HandleFunc("POST /api/security-events/test-parsing", scanHandler.TestParsing)
	mux.HandleFunc("GET /api/security-events/analysis", scanHandler.Analysis)

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	return middleware.Logging(logger)(mux)
}

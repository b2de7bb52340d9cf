package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/goccy/go-json"

	"github.com/i4ops/vmwatch/internal/domain"
)

const (
	defaultPageLimit = 50
	maxPageLimit     = 100
	maxRecentLimit   = 50
)

// EventsHandler serves the stored-event query surface.
type EventsHandler struct {
	repo   domain.EventRepository
	logger *slog.Logger
}

// NewEventsHandler creates a new EventsHandler.
func NewEventsHandler(repo domain.EventRepository, logger *slog.Logger) *EventsHandler {
	return &EventsHandler{repo: repo, logger: logger}
}

type listResponse struct {
	Data       []domain.StoredEvent `json:"data"`
	Total      int64                `json:"total"`
	Page       int                  `json:"page"`
	Limit      int                  `json:"limit"`
	TotalPages int64                `json:"total_pages"`
}

// List handles GET /api/security-events with pagination and filtering.
func (h *EventsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	page := intParam(q.Get("page"), 1)
	limit := intParam(q.Get("limit"), defaultPageLimit)
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > maxPageLimit {
		limit = defaultPageLimit
	}

	var filter domain.EventFilter
	if v := q.Get("vm_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid vm_id")
			return
		}
		filter.VMID = id
	}
	if v := q.Get("severity"); v != "" {
		severity, err := domain.ParseSeverity(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		filter.Severity = severity
	}
	if v := q.Get("rule"); v != "" {
		rule, err := domain.ParseRule(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		filter.Rule = rule
	}
	if v := q.Get("since"); v != "" {
		ts, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "since must be RFC 3339")
			return
		}
		filter.Since = ts
	}
	if v := q.Get("until"); v != "" {
		ts, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "until must be RFC 3339")
			return
		}
		filter.Until = ts
	}
	if v := q.Get("acknowledged"); v != "" {
		acked, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid acknowledged flag")
			return
		}
		filter.Acknowledged = &acked
	}

	events, total, err := h.repo.Query(r.Context(), filter, page, limit)
	if err != nil {
		h.logger.Error("failed to query events", "error", err)
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	if events == nil {
		events = []domain.StoredEvent{}
	}

	writeJSON(w, http.StatusOK, listResponse{
		Data:       events,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: (total + int64(limit) - 1) / int64(limit),
	})
}

// Stats handles GET /api/security-events/stats.
func (h *EventsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	since := time.Now().AddDate(0, 0, -7)
	if v := r.URL.Query().Get("since"); v != "" {
		ts, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "since must be RFC 3339")
			return
		}
		since = ts
	}

	stats, err := h.repo.Stats(r.Context(), since)
	if err != nil {
		h.logger.Error("failed to aggregate stats", "error", err)
		writeError(w, http.StatusInternalServerError, "stats failed")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// Critical handles GET /api/security-events/critical.
func (h *EventsHandler) Critical(w http.ResponseWriter, r *http.Request) {
	limit := intParam(r.URL.Query().Get("limit"), 10)
	if limit < 1 || limit > maxRecentLimit {
		limit = 10
	}

	events, err := h.repo.Recent(r.Context(), limit)
	if err != nil {
		h.logger.Error("failed to query recent events", "error", err)
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	if events == nil {
		events = []domain.StoredEvent{}
	}
	writeJSON(w, http.StatusOK, events)
}

// Get handles GET /api/security-events/{id}.
func (h *EventsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid event id")
		return
	}

	event, err := h.repo.Get(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to load event", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	if event == nil {
		writeError(w, http.StatusNotFound, "security event not found")
		return
	}
	writeJSON(w, http.StatusOK, event)
}

type acknowledgeRequest struct {
	IDs []int64 `json:"ids"`
}

type acknowledgeResponse struct {
	Acknowledged int64 `json:"acknowledged"`
	Requested    int   `json:"requested"`
}

// Acknowledge handles PUT /api/security-events/acknowledge.
func (h *EventsHandler) Acknowledge(w http.ResponseWriter, r *http.Request) {
	var req acknowledgeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.IDs) == 0 {
		writeError(w, http.StatusBadRequest, "no event ids provided")
		return
	}

	count, err := h.repo.Acknowledge(r.Context(), req.IDs)
	if err != nil {
		h.logger.Error("failed to acknowledge events", "error", err)
		writeError(w, http.StatusInternalServerError, "acknowledge failed")
		return
	}
	writeJSON(w, http.StatusOK, acknowledgeResponse{Acknowledged: count, Requested: len(req.IDs)})
}

// CleanupDuplicates handles DELETE /api/security-events/cleanup-duplicates.
func (h *EventsHandler) CleanupDuplicates(w http.ResponseWriter, r *http.Request) {
	deleted, err := h.repo.CleanupDuplicates(r.Context())
	if err != nil {
		h.logger.Error("failed to clean up duplicates", "error", err)
		writeError(w, http.StatusInternalServerError, "cleanup failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"deleted": deleted})
}

func intParam(value string, fallback int) int {
	if value == "" {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return n
}

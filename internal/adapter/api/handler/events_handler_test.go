package handler

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/i4ops/vmwatch/internal/domain"
	"github.com/i4ops/vmwatch/internal/domain/mocks"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestEventsHandler_List(t *testing.T) {
	stored := []domain.StoredEvent{
		{ID: 1, VMName: "u2-vm30000", Severity: domain.SeverityHigh, Rule: domain.RuleBruteForce},
		{ID: 2, VMName: "u2-vm30001", Severity: domain.SeverityCritical, Rule: domain.RuleEgress},
	}

	tests := []struct {
		name           string
		query          string
		repo           *mocks.MockEventRepository
		expectedStatus int
		expectedTotal  int64
		expectedPage   int
	}{
		{
			name:           "Default Pagination",
			query:          "",
			repo:           &mocks.MockEventRepository{QueryResult: stored, QueryTotal: 2},
			expectedStatus: http.StatusOK,
			expectedTotal:  2,
			expectedPage:   1,
		},
		{
			name:           "Explicit Page",
			query:          "?page=3&limit=10",
			repo:           &mocks.MockEventRepository{QueryTotal: 45},
			expectedStatus: http.StatusOK,
			expectedTotal:  45,
			expectedPage:   3,
		},
		{
			name:           "Valid Filters",
			query:          "?severity=high&rule=brute_force&vm_id=7&acknowledged=false&since=2024-01-01T00:00:00Z",
			repo:           &mocks.MockEventRepository{QueryResult: stored[:1], QueryTotal: 1},
			expectedStatus: http.StatusOK,
			expectedTotal:  1,
			expectedPage:   1,
		},
		{
			name:           "Invalid Severity",
			query:          "?severity=urgent",
			repo:           &mocks.MockEventRepository{},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "Invalid Rule",
			query:          "?rule=port_scan",
			repo:           &mocks.MockEventRepository{},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "Invalid VM ID",
			query:          "?vm_id=abc",
			repo:           &mocks.MockEventRepository{},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "Invalid Since",
			query:          "?since=yesterday",
			repo:           &mocks.MockEventRepository{},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "Query Error",
			query:          "",
			repo:           &mocks.MockEventRepository{QueryErr: errors.New("db down")},
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewEventsHandler(tt.repo, discardLogger())
			req := httptest.NewRequest(http.MethodGet, "/api/security-events"+tt.query, nil)
			rr := httptest.NewRecorder()

			h.List(rr, req)

			if rr.Code != tt.expectedStatus {
				t.Fatalf("status = %d, want %d (body %q)", rr.Code, tt.expectedStatus, rr.Body.String())
			}
			if tt.expectedStatus != http.StatusOK {
				return
			}

			var resp listResponse
			if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if resp.Total != tt.expectedTotal {
				t.Errorf("total = %d, want %d", resp.Total, tt.expectedTotal)
			}
			if resp.Page != tt.expectedPage {
				t.Errorf("page = %d, want %d", resp.Page, tt.expectedPage)
			}
			if resp.Data == nil {
				t.Error("data should never be null")
			}
		})
	}
}

func TestEventsHandler_List_ClampsPagination(t *testing.T) {
	repo := &mocks.MockEventRepository{QueryTotal: 0}
	h := NewEventsHandler(repo, discardLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/security-events?page=-5&limit=9999", nil)
	rr := httptest.NewRecorder()
	h.List(rr, req)

	var resp listResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Page != 1 {
		t.Errorf("page = %d, want 1", resp.Page)
	}
	if resp.Limit != defaultPageLimit {
		t.Errorf("limit = %d, want %d", resp.Limit, defaultPageLimit)
	}
}

func TestEventsHandler_Stats(t *testing.T) {
	repo := &mocks.MockEventRepository{
		StatsResult: &domain.EventStats{Total: 12, Critical: 2, High: 4, Medium: 5, Low: 1},
	}
	h := NewEventsHandler(repo, discardLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/security-events/stats", nil)
	rr := httptest.NewRecorder()
	h.Stats(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	var stats domain.EventStats
	if err := json.Unmarshal(rr.Body.Bytes(), &stats); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if stats.Total != 12 || stats.Critical != 2 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestEventsHandler_Stats_InvalidSince(t *testing.T) {
	h := NewEventsHandler(&mocks.MockEventRepository{}, discardLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/security-events/stats?since=lastweek", nil)
	rr := httptest.NewRecorder()
	h.Stats(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
}

func TestEventsHandler_Critical(t *testing.T) {
	repo := &mocks.MockEventRepository{
		RecentResult: []domain.StoredEvent{{ID: 9, Severity: domain.SeverityCritical}},
	}
	h := NewEventsHandler(repo, discardLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/security-events/critical?limit=5", nil)
	rr := httptest.NewRecorder()
	h.Critical(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	var events []domain.StoredEvent
	if err := json.Unmarshal(rr.Body.Bytes(), &events); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(events) != 1 || events[0].ID != 9 {
		t.Errorf("unexpected events: %+v", events)
	}
}

func TestEventsHandler_Get(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name           string
		id             string
		repo           *mocks.MockEventRepository
		expectedStatus int
	}{
		{
			name:           "Found",
			id:             "42",
			repo:           &mocks.MockEventRepository{GetResult: &domain.StoredEvent{ID: 42, Timestamp: now}},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "Not Found",
			id:             "42",
			repo:           &mocks.MockEventRepository{},
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "Invalid ID",
			id:             "forty-two",
			repo:           &mocks.MockEventRepository{},
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewEventsHandler(tt.repo, discardLogger())
			req := httptest.NewRequest(http.MethodGet, "/api/security-events/"+tt.id, nil)
			req.SetPathValue("id", tt.id)
			rr := httptest.NewRecorder()

			h.Get(rr, req)

			if rr.Code != tt.expectedStatus {
				t.Errorf("status = %d, want %d", rr.Code, tt.expectedStatus)
			}
		})
	}
}

func TestEventsHandler_Acknowledge(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		repo           *mocks.MockEventRepository
		expectedStatus int
		expectedAcked  int64
	}{
		{
			name:           "Valid Request",
			body:           `{"ids": [1, 2, 3]}`,
			repo:           &mocks.MockEventRepository{},
			expectedStatus: http.StatusOK,
			expectedAcked:  3,
		},
		{
			name:           "Partial Acknowledge",
			body:           `{"ids": [1, 2, 3]}`,
			repo:           &mocks.MockEventRepository{AckCount: 2},
			expectedStatus: http.StatusOK,
			expectedAcked:  2,
		},
		{
			name:           "Empty IDs",
			body:           `{"ids": []}`,
			repo:           &mocks.MockEventRepository{},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "Bad JSON",
			body:           `{"ids": [1`,
			repo:           &mocks.MockEventRepository{},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "Repository Error",
			body:           `{"ids": [1]}`,
			repo:           &mocks.MockEventRepository{AckErr: errors.New("db down")},
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewEventsHandler(tt.repo, discardLogger())
			req := httptest.NewRequest(http.MethodPut, "/api/security-events/acknowledge", bytes.NewBufferString(tt.body))
			rr := httptest.NewRecorder()

			h.Acknowledge(rr, req)

			if rr.Code != tt.expectedStatus {
				t.Fatalf("status = %d, want %d", rr.Code, tt.expectedStatus)
			}
			if tt.expectedStatus != http.StatusOK {
				return
			}

			var resp acknowledgeResponse
			if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if resp.Acknowledged != tt.expectedAcked {
				t.Errorf("acknowledged = %d, want %d", resp.Acknowledged, tt.expectedAcked)
			}
		})
	}
}

func TestEventsHandler_CleanupDuplicates(t *testing.T) {
	repo := &mocks.MockEventRepository{CleanedUp: 7}
	h := NewEventsHandler(repo, discardLogger())

	req := httptest.NewRequest(http.MethodDelete, "/api/security-events/cleanup-duplicates", nil)
	rr := httptest.NewRecorder()
	h.CleanupDuplicates(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	var resp map[string]int64
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp["deleted"] != 7 {
		t.Errorf("deleted = %d, want 7", resp["deleted"])
	}
}

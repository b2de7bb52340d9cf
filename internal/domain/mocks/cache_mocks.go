package mocks

import (
	"context"
	"sync"

	"github.com/i4ops/vmwatch/internal/domain"
)

// MockReportCache is a mock implementation of domain.ReportCache.
type MockReportCache struct {
	mu             sync.Mutex
	StoredReport   *domain.AnalysisReport
	PushedCritical []domain.SecurityEvent
	PutErr         error
	GetErr         error
	PushErr        error
}

func (m *MockReportCache) PutReport(ctx context.Context, report *domain.AnalysisReport) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PutErr != nil {
		return m.PutErr
	}
	m.StoredReport = report
	return nil
}

func (m *MockReportCache) GetReport(ctx context.Context) (*domain.AnalysisReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	return m.StoredReport, nil
}

func (m *MockReportCache) PushCritical(ctx context.Context, event domain.SecurityEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PushErr != nil {
		return m.PushErr
	}
	m.PushedCritical = append(m.PushedCritical, event)
	return nil
}

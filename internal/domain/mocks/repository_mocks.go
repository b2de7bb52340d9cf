package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/i4ops/vmwatch/internal/domain"
)

// MockEventRepository is a mock implementation of domain.EventRepository for testing.
type MockEventRepository struct {
	mu           sync.Mutex
	VMIDs        map[string]int64
	SavedEvents  []domain.SecurityEvent
	QueryResult  []domain.StoredEvent
	QueryTotal   int64
	RecentResult []domain.StoredEvent
	GetResult    *domain.StoredEvent
	StatsResult  *domain.EventStats
	AckedIDs     []int64
	AckCount     int64
	CleanedUp    int64

	EnsureVMErr error
	SaveErr     error
	QueryErr    error
	StatsErr    error
	AckErr      error
	CleanupErr  error
}

func (m *MockEventRepository) EnsureVM(ctx context.Context, name string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.EnsureVMErr != nil {
		return 0, m.EnsureVMErr
	}
	if m.VMIDs == nil {
		m.VMIDs = make(map[string]int64)
	}
	if id, ok := m.VMIDs[name]; ok {
		return id, nil
	}
	id := int64(len(m.VMIDs) + 1)
	m.VMIDs[name] = id
	return id, nil
}

func (m *MockEventRepository) Save(ctx context.Context, event domain.SecurityEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.SavedEvents = append(m.SavedEvents, event)
	return nil
}

func (m *MockEventRepository) Query(ctx context.Context, filter domain.EventFilter, page, limit int) ([]domain.StoredEvent, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.QueryErr != nil {
		return nil, 0, m.QueryErr
	}
	return m.QueryResult, m.QueryTotal, nil
}

func (m *MockEventRepository) Recent(ctx context.Context, limit int) ([]domain.StoredEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.QueryErr != nil {
		return nil, m.QueryErr
	}
	return m.RecentResult, nil
}

func (m *MockEventRepository) Get(ctx context.Context, id int64) (*domain.StoredEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.QueryErr != nil {
		return nil, m.QueryErr
	}
	return m.GetResult, nil
}

func (m *MockEventRepository) Stats(ctx context.Context, since time.Time) (*domain.EventStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.StatsErr != nil {
		return nil, m.StatsErr
	}
	if m.StatsResult != nil {
		return m.StatsResult, nil
	}
	return &domain.EventStats{}, nil
}

func (m *MockEventRepository) Acknowledge(ctx context.Context, ids []int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.AckErr != nil {
		return 0, m.AckErr
	}
	m.AckedIDs = append(m.AckedIDs, ids...)
	if m.AckCount != 0 {
		return m.AckCount, nil
	}
	return int64(len(ids)), nil
}

func (m *MockEventRepository) CleanupDuplicates(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CleanupErr != nil {
		return 0, m.CleanupErr
	}
	return m.CleanedUp, nil
}

// MockLogCollector is a mock implementation of domain.LogCollector.
// Lines maps "vm/source" to the raw lines Collect should return.
type MockLogCollector struct {
	mu          sync.Mutex
	VMs         []string
	Lines       map[string][]string
	DiscoverErr error
	CollectErr  map[string]error
	Collected   []string
}

func (m *MockLogCollector) DiscoverVMs(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.DiscoverErr != nil {
		return nil, m.DiscoverErr
	}
	return m.VMs, nil
}

func (m *MockLogCollector) Collect(ctx context.Context, vmName, source string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := vmName + "/" + source
	m.Collected = append(m.Collected, key)
	if err, ok := m.CollectErr[key]; ok {
		return nil, err
	}
	return m.Lines[key], nil
}

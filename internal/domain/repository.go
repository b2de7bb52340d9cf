package domain

import (
	"context"
	"time"
)

// EventRepository is the persistence contract consumed by the processing
// pipeline and the query API. Implementations must make EnsureVM safe under
// concurrent callers racing to register the same VM name.
type EventRepository interface {
	// EnsureVM resolves a VM name to its stable identity, creating the row
	// if it does not exist yet (idempotent create-or-get).
	EnsureVM(ctx context.Context, name string) (int64, error)

	// Save persists one classified event. Duplicate inserts are tolerated;
	// deduplication is a maintenance concern, not an insert-time one.
	Save(ctx context.Context, event SecurityEvent) error

	// Query returns a page of stored events matching the filter, newest
	// first, along with the total match count.
	Query(ctx context.Context, filter EventFilter, page, limit int) ([]StoredEvent, int64, error)

	// Recent returns the most recent events at or above high severity.
	Recent(ctx context.Context, limit int) ([]StoredEvent, error)

	// Get returns a single stored event by id.
	Get(ctx context.Context, id int64) (*StoredEvent, error)

	// Stats aggregates events since the given time.
	Stats(ctx context.Context, since time.Time) (*EventStats, error)

	// Acknowledge marks the given events as acknowledged and returns how
	// many rows were actually updated (already-acked rows are skipped).
	Acknowledge(ctx context.Context, ids []int64) (int64, error)

	// CleanupDuplicates removes rows sharing (vm_id, source, message,
	// timestamp), keeping the lowest id, and returns the number deleted.
	CleanupDuplicates(ctx context.Context) (int64, error)
}

// LogCollector retrieves raw log lines for the scanner. Implementations
// treat a missing VM directory or log file as an empty result, not an error.
type LogCollector interface {
	// DiscoverVMs lists the VM names that currently have a log directory.
	DiscoverVMs(ctx context.Context) ([]string, error)

	// Collect returns the most recent lines (about the last 1000) of one
	// log source for one VM.
	Collect(ctx context.Context, vmName, source string) ([]string, error)
}

// ReportCache stores the latest threat analysis so dashboard polls do not
// re-run aggregation queries. Implementations degrade to a cache miss when
// the backing store is unavailable.
type ReportCache interface {
	PutReport(ctx context.Context, report *AnalysisReport) error
	GetReport(ctx context.Context) (*AnalysisReport, error)
	PushCritical(ctx context.Context, event SecurityEvent) error
}

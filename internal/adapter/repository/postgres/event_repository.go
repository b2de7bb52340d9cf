package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/lib/pq"

	"github.com/i4ops/vmwatch/internal/domain"
)

// EventRepository implements domain.EventRepository on PostgreSQL. VM
// identity lookups are fronted by an in-memory cache; the database remains
// the source of truth and the upsert keeps concurrent registration of the
// same VM name idempotent.
type EventRepository struct {
	db      *sql.DB
	logger  *slog.Logger
	mu      sync.RWMutex
	vmCache map[string]int64
}

// NewEventRepository creates a new PostgreSQL event repository.
func NewEventRepository(db *sql.DB, logger *slog.Logger) *EventRepository {
	return &EventRepository{
		db:      db,
		logger:  logger.With("component", "postgres_repository"),
		vmCache: make(map[string]int64),
	}
}

// EnsureVM resolves a VM name to its id, inserting the row if needed.
// Two callers racing on the same new name both land on the same id: the
// upsert conflicts on the unique name and returns the existing row.
func (r *EventRepository) EnsureVM(ctx context.Context, name string) (int64, error) {
	r.mu.RLock()
	id, found := r.vmCache[name]
	r.mu.RUnlock()
	if found {
		return id, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Another goroutine may have resolved the name while we waited.
	if id, found = r.vmCache[name]; found {
		return id, nil
	}

	query := `
		INSERT INTO vms (name, created_at, updated_at)
		VALUES ($1, NOW(), NOW())
		ON CONFLICT (name) DO UPDATE SET updated_at = NOW()
		RETURNING id`
	if err := r.db.QueryRowContext(ctx, query, name).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to ensure VM %q: %w", name, err)
	}

	r.vmCache[name] = id
	r.logger.Debug("resolved VM identity", "name", name, "id", id)
	return id, nil
}

// Save persists one classified event. Duplicate rows are allowed; see
// CleanupDuplicates.
func (r *EventRepository) Save(ctx context.Context, event domain.SecurityEvent) error {
	vmID, err := r.EnsureVM(ctx, event.VMName)
	if err != nil {
		return err
	}

	metadata, err := json.Marshal(event.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal event metadata: %w", err)
	}

	query := `
		INSERT INTO security_events (vm_id, timestamp, source, message, severity, rule, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())`
	_, err = r.db.ExecContext(ctx, query,
		vmID, event.Timestamp, event.Source, event.Message,
		string(event.Severity), string(event.Rule), metadata)
	if err != nil {
		return fmt.Errorf("failed to insert security event: %w", err)
	}
	return nil
}

const eventColumns = `
	se.id, se.vm_id, vm.name, se.timestamp, se.source, se.message,
	se.severity, se.rule, se.metadata, se.ack_at, se.created_at`

// Query returns a page of stored events matching the filter, newest first.
func (r *EventRepository) Query(ctx context.Context, filter domain.EventFilter, page, limit int) ([]domain.StoredEvent, int64, error) {
	where, args := buildWhere(filter)

	var total int64
	countQuery := `SELECT COUNT(*) FROM security_events se` + where
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count security events: %w", err)
	}

	if page < 1 {
		page = 1
	}
	offset := (page - 1) * limit

	query := `
		SELECT` + eventColumns + `
		FROM security_events se
		JOIN vms vm ON se.vm_id = vm.id` + where + fmt.Sprintf(`
		ORDER BY se.timestamp DESC
		LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query security events: %w", err)
	}
	defer rows.Close()

	events, err := scanEvents(rows)
	if err != nil {
		return nil, 0, err
	}
	return events, total, nil
}

// Recent returns the newest critical and high severity events.
func (r *EventRepository) Recent(ctx context.Context, limit int) ([]domain.StoredEvent, error) {
	query := `
		SELECT` + eventColumns + `
		FROM security_events se
		JOIN vms vm ON se.vm_id = vm.id
		WHERE se.severity IN ('critical', 'high')
		ORDER BY se.timestamp DESC
		LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent events: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// Get returns one stored event, or nil when the id is unknown.
func (r *EventRepository) Get(ctx context.Context, id int64) (*domain.StoredEvent, error) {
	query := `
		SELECT` + eventColumns + `
		FROM security_events se
		JOIN vms vm ON se.vm_id = vm.id
		WHERE se.id = $1`

	rows, err := r.db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query security event %d: %w", id, err)
	}
	defer rows.Close()

	events, err := scanEvents(rows)
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, nil
	}
	return &events[0], nil
}

// Stats aggregates events since the given time.
func (r *EventRepository) Stats(ctx context.Context, since time.Time) (*domain.EventStats, error) {
	query := `
		SELECT
			COUNT(*),
			COUNT(CASE WHEN severity = 'critical' THEN 1 END),
			COUNT(CASE WHEN severity = 'high' THEN 1 END),
			COUNT(CASE WHEN severity = 'medium' THEN 1 END),
			COUNT(CASE WHEN severity = 'low' THEN 1 END),
			COUNT(CASE WHEN timestamp >= $2 THEN 1 END),
			COUNT(CASE WHEN ack_at IS NOT NULL THEN 1 END),
			COUNT(CASE WHEN ack_at IS NULL THEN 1 END)
		FROM security_events
		WHERE timestamp >= $1`

	stats := &domain.EventStats{}
	err := r.db.QueryRowContext(ctx, query, since, time.Now().Add(-24*time.Hour)).Scan(
		&stats.Total, &stats.Critical, &stats.High, &stats.Medium, &stats.Low,
		&stats.Last24h, &stats.Acknowledged, &stats.Unacknowledged)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate event stats: %w", err)
	}
	return stats, nil
}

// Acknowledge marks the given events as acknowledged, skipping rows that
// already carry an ack timestamp.
func (r *EventRepository) Acknowledge(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	result, err := r.db.ExecContext(ctx,
		`UPDATE security_events SET ack_at = NOW() WHERE id = ANY($1) AND ack_at IS NULL`,
		pq.Array(ids))
	if err != nil {
		return 0, fmt.Errorf("failed to acknowledge events: %w", err)
	}
	return result.RowsAffected()
}

// CleanupDuplicates removes rows sharing (vm_id, source, message,
// timestamp), keeping the lowest id of each group.
func (r *EventRepository) CleanupDuplicates(ctx context.Context) (int64, error) {
	query := `
		DELETE FROM security_events se1
		WHERE EXISTS (
			SELECT 1 FROM security_events se2
			WHERE se2.vm_id = se1.vm_id
			AND se2.source = se1.source
			AND se2.message = se1.message
			AND se2.timestamp = se1.timestamp
			AND se2.id < se1.id
		)`

	result, err := r.db.ExecContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("failed to clean up duplicate events: %w", err)
	}
	return result.RowsAffected()
}

func buildWhere(filter domain.EventFilter) (string, []interface{}) {
	var conditions []string
	var args []interface{}

	add := func(clause string, value interface{}) {
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf(clause, len(args)))
	}

	if filter.VMID != 0 {
		add("se.vm_id = $%d", filter.VMID)
	}
	if filter.Severity != "" {
		add("se.severity = $%d", string(filter.Severity))
	}
	if filter.Rule != "" {
		add("se.rule = $%d", string(filter.Rule))
	}
	if !filter.Since.IsZero() {
		add("se.timestamp >= $%d", filter.Since)
	}
	if !filter.Until.IsZero() {
		add("se.timestamp <= $%d", filter.Until)
	}
	if filter.Acknowledged != nil {
		if *filter.Acknowledged {
			conditions = append(conditions, "se.ack_at IS NOT NULL")
		} else {
			conditions = append(conditions, "se.ack_at IS NULL")
		}
	}

	if len(conditions) == 0 {
		return "", nil
	}
	where := "\n\t\tWHERE " + conditions[0]
	for _, c := range conditions[1:] {
		where += " AND " + c
	}
	return where, args
}

func scanEvents(rows *sql.Rows) ([]domain.StoredEvent, error) {
	var events []domain.StoredEvent
	for rows.Next() {
		var (
			event    domain.StoredEvent
			severity string
			rule     string
			metadata []byte
			ackAt    sql.NullTime
		)
		if err := rows.Scan(&event.ID, &event.VMID, &event.VMName, &event.Timestamp,
			&event.Source, &event.Message, &severity, &rule, &metadata, &ackAt, &event.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan security event: %w", err)
		}

		sev, err := domain.ParseSeverity(severity)
		if err != nil {
			return nil, err
		}
		event.Severity = sev

		r, err := domain.ParseRule(rule)
		if err != nil {
			return nil, err
		}
		event.Rule = r

		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &event.Metadata); err != nil {
				return nil, fmt.Errorf("failed to unmarshal event metadata: %w", err)
			}
		}
		if ackAt.Valid {
			t := ackAt.Time
			event.AckAt = &t
		}

		events = append(events, event)
	}
	return events, rows.Err()
}

package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"github.com/i4ops/vmwatch/internal/domain"
)

const (
	reportKey       = "vmwatch:analysis_report"
	criticalListKey = "vmwatch:recent_critical"
	criticalListCap = 100
)

// ReportCache implements domain.ReportCache on Redis. It holds the latest
// threat-analysis report under a TTL and keeps a capped list of recent
// critical events for dashboards.
type ReportCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewReportCache creates a new Redis-backed report cache.
func NewReportCache(client *redis.Client, ttl time.Duration, logger *slog.Logger) *ReportCache {
	return &ReportCache{
		client: client,
		ttl:    ttl,
		logger: logger.With("component", "redis_report_cache"),
	}
}

// PutReport stores the latest analysis report.
func (c *ReportCache) PutReport(ctx context.Context, report *domain.AnalysisReport) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal analysis report: %w", err)
	}
	if err := c.client.Set(ctx, reportKey, payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache analysis report: %w", err)
	}
	return nil
}

// GetReport returns the cached report, or nil on a miss. Redis being
// unavailable is treated as a miss so callers fall through to a fresh
// analysis.
func (c *ReportCache) GetReport(ctx context.Context) (*domain.AnalysisReport, error) {
	payload, err := c.client.Get(ctx, reportKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		c.logger.Warn("report cache unavailable, treating as miss", "error", err)
		return nil, nil
	}

	var report domain.AnalysisReport
	if err := json.Unmarshal(payload, &report); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached report: %w", err)
	}
	return &report, nil
}

// PushCritical prepends a critical event to the recent-critical list and
// trims it to its cap.
func (c *ReportCache) PushCritical(ctx context.Context, event domain.SecurityEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal critical event: %w", err)
	}

	pipe := c.client.Pipeline()
	pipe.LPush(ctx, criticalListKey, payload)
	pipe.LTrim(ctx, criticalListKey, 0, criticalListCap-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to push critical event: %w", err)
	}
	return nil
}

// RecentCritical returns the most recently pushed critical events.
func (c *ReportCache) RecentCritical(ctx context.Context, limit int) ([]domain.SecurityEvent, error) {
	payloads, err := c.client.LRange(ctx, criticalListKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read recent critical events: %w", err)
	}

	events := make([]domain.SecurityEvent, 0, len(payloads))
	for _, payload := range payloads {
		var event domain.SecurityEvent
		if err := json.Unmarshal([]byte(payload), &event); err != nil {
			c.logger.Warn("skipping malformed cached event", "error", err)
			continue
		}
		events = append(events, event)
	}
	return events, nil
}

package reportport

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"gitlab.com/testhub.net/internal/core/ports/primary"
	"gitlab.com/testhub.net/internal/core/ports/secondary"
	"gitlab.com/testhub.net/internal/domain"
)

var _ secondary.ReportPublisher = (*ReportPublisher)(nil)

const (
	reportKeyPrefix  = "testhub:report:"
	reportExpiration = 24 * time.Hour
)

// ReportEvent is what subscribers receive when a run finishes.
type ReportEvent struct {
	ReportID   uuid.UUID            `json:"report_id"`
	SuiteID    uuid.UUID            `json:"suite_id"`
	SuiteName  string               `json:"suite_name"`
	Status     domain.ReportStatus  `json:"status"`
	Summary    domain.ReportSummary `json:"summary"`
	Error      string               `json:"error,omitempty"`
	StartedAt  time.Time            `json:"started_at"`
	FinishedAt *time.Time           `json:"finished_at,omitempty"`
}

func NewReportEvent(report *domain.TestReport) ReportEvent {
	return ReportEvent{
		ReportID:   report.ID,
		SuiteID:    report.SuiteID,
		SuiteName:  report.SuiteName,
		Status:     report.Status,
		Summary:    report.Summary,
		Error:      report.Error,
		StartedAt:  report.StartedAt,
		FinishedAt: report.FinishedAt,
	}
}

// ReportPublisher publishes report events on a channel and keeps the latest
// event per report for a day.
type ReportPublisher struct {
	redisClient *redis.Client
	channel     string
	logger      primary.Logger
}

func NewReportPublisher(redisClient *redis.Client, channel string, logger primary.Logger) *ReportPublisher {
	return &ReportPublisher{
		redisClient: redisClient,
		channel:     channel,
		logger:      logger,
	}
}

func (r *ReportPublisher) PublishReport(ctx context.Context, report *domain.TestReport) error {
	eventJSON, err := json.Marshal(NewReportEvent(report))
	if err != nil {
		r.logger.Error("Failed to marshal report event", "error", err)
		return fmt.Errorf("failed to marshal report event: %w", err)
	}

	reportKey := fmt.Sprintf("%s%s", reportKeyPrefix, report.ID)
	if err := r.redisClient.Set(ctx, reportKey, eventJSON, reportExpiration).Err(); err != nil {
		r.logger.Error("Failed to save report event", "reportId", report.ID, "error", err)
		return fmt.Errorf("failed to save report event: %w", err)
	}

	if err := r.redisClient.Publish(ctx, r.channel, eventJSON).Err(); err != nil {
		r.logger.Error("Failed to publish report event", "reportId", report.ID, "error", err)
		return fmt.Errorf("failed to publish report event: %w", err)
	}
	return nil
}

// RecentEvents returns the cached events, most recently finished first.
func (r *ReportPublisher) RecentEvents(ctx context.Context) ([]*ReportEvent, error) {
	var cursor uint64
	var reportKeys []string
	for {
		keys, next, err := r.redisClient.Scan(ctx, cursor, reportKeyPrefix+"*", 100).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to scan report keys: %w", err)
		}
		reportKeys = append(reportKeys, keys...)
		cursor = next
		if cursor == 0 {
			break
		}
	}

	events := make([]*ReportEvent, 0, len(reportKeys))
	if len(reportKeys) == 0 {
		return events, nil
	}

	data, err := r.redisClient.MGet(ctx, reportKeys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve report events: %w", err)
	}
	for _, item := range data {
		raw, ok := item.(string)
		if !ok {
			continue
		}
		var event ReportEvent
		if err := json.Unmarshal([]byte(raw), &event); err != nil {
			r.logger.Warn("Skipping unreadable report event", "error", err)
			continue
		}
		events = append(events, &event)
	}
	sortEvents(events)
	return events, nil
}

// Subscribe calls fn for every event published until ctx is done.
func (r *ReportPublisher) Subscribe(ctx context.Context, fn func(ReportEvent)) error {
	sub := r.redisClient.Subscribe(ctx, r.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", r.channel, err)
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var event ReportEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				r.logger.Warn("Skipping unreadable report event", "error", err)
				continue
			}
			fn(event)
		}
	}
}

func sortEvents(events []*ReportEvent) {
	finished := func(e *ReportEvent) time.Time {
		if e.FinishedAt != nil {
			return *e.FinishedAt
		}
		return e.StartedAt
	}
	sort.Slice(events, func(i, j int) bool {
		return finished(events[i]).After(finished(events[j]))
	})
}

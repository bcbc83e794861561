package secondary

import (
	"context"

	"gitlab.com/testhub.net/internal/domain"
)

// ReportPublisher notifies subscribers about report state changes.
type ReportPublisher interface {
	PublishReport(ctx context.Context, report *domain.TestReport) error
}

// ReportArchiver stores terminal reports outside the entity store.
type ReportArchiver interface {
	ArchiveReport(ctx context.Context, report *domain.TestReport) error
}

// ExecutionMetrics records run outcomes.
type ExecutionMetrics interface {
	ReportFinished(report *domain.TestReport)
}

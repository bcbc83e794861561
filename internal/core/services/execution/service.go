package execution

import (
	"context"

	"github.com/google/uuid"

	"gitlab.com/testhub.net/internal/core/ports/secondary"
	"gitlab.com/testhub.net/internal/domain"
)

// IExecutionService starts suite runs and serves their reports
type IExecutionService interface {
	// ExecuteSuite snapshots the suite into a new report, queues the run and
	// returns without waiting for it
	ExecuteSuite(ctx context.Context, suiteID uuid.UUID) (*domain.TestReport, error)

	// ListReports lists reports newest first
	ListReports(ctx context.Context, filter secondary.ReportFilter) ([]*domain.TestReport, error)

	GetReport(ctx context.Context, reportID uuid.UUID) (*domain.TestReport, error)

	// FailAbandonedReports marks every unfinished report FAILED and returns
	// how many it changed
	FailAbandonedReports(ctx context.Context) (int, error)
}

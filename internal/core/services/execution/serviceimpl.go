package execution

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"gitlab.com/testhub.net/internal/core/ports/primary"
	"gitlab.com/testhub.net/internal/core/ports/secondary"
	"gitlab.com/testhub.net/internal/domain"
	"gitlab.com/testhub.net/internal/static/errs"
)

var _ IExecutionService = (*ExecutionService)(nil)

// ErrRunAbandoned is the error of a report whose run ended with the process.
var ErrRunAbandoned = errors.New("execution abandoned: the service stopped before the run finished")

// ExecutionService tracks suite runs. A report is written RUNNING at request
// time, filled in as outcomes arrive and closed exactly once.
type ExecutionService struct {
	store     secondary.Store
	queue     secondary.RunQueue
	executor  secondary.Executor
	publisher secondary.ReportPublisher
	archiver  secondary.ReportArchiver
	metrics   secondary.ExecutionMetrics
	logger    primary.Logger
	clock     func() time.Time
}

// Option configures an ExecutionService
type Option func(*ExecutionService)

func WithPublisher(publisher secondary.ReportPublisher) Option {
	return func(s *ExecutionService) {
		s.publisher = publisher
	}
}

func WithArchiver(archiver secondary.ReportArchiver) Option {
	return func(s *ExecutionService) {
		s.archiver = archiver
	}
}

func WithMetrics(metrics secondary.ExecutionMetrics) Option {
	return func(s *ExecutionService) {
		s.metrics = metrics
	}
}

func WithClock(clock func() time.Time) Option {
	return func(s *ExecutionService) {
		s.clock = clock
	}
}

// NewExecutionService creates a new execution service
func NewExecutionService(
	store secondary.Store,
	queue secondary.RunQueue,
	executor secondary.Executor,
	logger primary.Logger,
	options ...Option,
) *ExecutionService {
	s := &ExecutionService{
		store:    store,
		queue:    queue,
		executor: executor,
		logger:   logger,
		clock:    time.Now,
	}
	for _, option := range options {
		option(s)
	}
	return s
}

func (s *ExecutionService) now() time.Time {
	return s.clock().UTC()
}

func (s *ExecutionService) ExecuteSuite(ctx context.Context, suiteID uuid.UUID) (*domain.TestReport, error) {
	// The report is stored already RUNNING so that a failed request never
	// leaves a PENDING row behind.
	var report *domain.TestReport
	err := s.store.InTx(ctx, func(tx secondary.Tx) error {
		suite, err := tx.GetSuite(ctx, suiteID)
		if err != nil {
			return err
		}
		if suite == nil {
			return fmt.Errorf("test suite %s: %w", suiteID, errs.NotFound)
		}
		report = domain.NewTestReport(suite, s.now())
		if err := report.Transition(domain.ReportStatusRunning, s.now()); err != nil {
			return err
		}
		return tx.InsertReport(ctx, report)
	})
	if err != nil {
		s.logger.Error("Failed to create report", "suiteId", suiteID, "error", err)
		return nil, fmt.Errorf("failed to execute suite: %w", err)
	}

	reportID := report.ID
	if err := s.queue.Submit(reportID, func(runCtx context.Context) {
		s.run(runCtx, reportID)
	}); err != nil {
		s.logger.Warn("Execution rejected", "reportId", reportID, "error", err)
		_ = s.finish(context.WithoutCancel(ctx), report, fmt.Errorf("execution could not be queued: %w", err))
		return report.Clone(), nil
	}

	s.logger.Info("Suite execution queued", "suiteId", suiteID, "reportId", reportID, "cases", len(report.CaseIDs))
	return report.Clone(), nil
}

// run loads the snapshot, hands the cases to the executor and records every
// outcome until the executor returns.
func (s *ExecutionService) run(ctx context.Context, reportID uuid.UUID) {
	// Writes after the run must land even if the run context is cancelled.
	persistCtx := context.WithoutCancel(ctx)

	report, cases, err := s.loadRun(persistCtx, reportID)
	if err != nil {
		s.logger.Error("Failed to load execution", "reportId", reportID, "error", err)
		if report != nil {
			_ = s.finish(persistCtx, report, err)
		}
		return
	}

	outcomes := make(chan domain.CaseOutcome)
	runErr := make(chan error, 1)
	go func() {
		runErr <- s.executor.Execute(ctx, cases, outcomes)
		close(outcomes)
	}()

	for outcome := range outcomes {
		if err := report.RecordOutcome(outcome); err != nil {
			s.logger.Warn("Discarding outcome", "reportId", reportID, "index", outcome.Index, "error", err)
			continue
		}
		if err := s.saveReport(persistCtx, report); err != nil {
			s.logger.Error("Failed to save outcome", "reportId", reportID, "index", outcome.Index, "error", err)
		}
	}

	err = <-runErr
	if err == nil && !report.Reported() {
		report.Summarize()
		err = fmt.Errorf("%d of %d test cases did not report an outcome", report.Summary.Pending, report.Summary.Total)
	}
	_ = s.finish(persistCtx, report, err)
}

// loadRun reads the report and the cases of its snapshot. A case deleted since
// the snapshot was taken fails the run.
func (s *ExecutionService) loadRun(ctx context.Context, reportID uuid.UUID) (*domain.TestReport, []*domain.TestCase, error) {
	var (
		report *domain.TestReport
		cases  []*domain.TestCase
	)
	err := s.store.View(ctx, func(tx secondary.Tx) error {
		var err error
		report, err = tx.GetReport(ctx, reportID)
		if err != nil {
			return err
		}
		if report == nil {
			return fmt.Errorf("test report %s: %w", reportID, errs.NotFound)
		}

		cases = make([]*domain.TestCase, len(report.CaseIDs))
		for i, id := range report.CaseIDs {
			c, err := tx.GetTestCase(ctx, id)
			if err != nil {
				return err
			}
			if c == nil {
				return fmt.Errorf("test case %s no longer exists: %w", id, errs.NotFound)
			}
			cases[i] = c
		}
		return nil
	})
	return report, cases, err
}

// finish moves the report to its terminal state and notifies the optional
// collaborators. Their failures are logged and never touch the report.
func (s *ExecutionService) finish(ctx context.Context, report *domain.TestReport, runErr error) error {
	next := domain.ReportStatusCompleted
	if runErr != nil {
		next = domain.ReportStatusFailed
		report.Error = runErr.Error()
	}
	if err := report.Transition(next, s.now()); err != nil {
		s.logger.Error("Invalid report transition", "reportId", report.ID, "error", err)
		return err
	}
	if err := s.saveReport(ctx, report); err != nil {
		return err
	}

	s.logger.Info("Suite execution finished",
		"reportId", report.ID,
		"status", report.Status,
		"passed", report.Summary.Passed,
		"failed", report.Summary.Failed,
		"errored", report.Summary.Errored)

	if s.metrics != nil {
		s.metrics.ReportFinished(report)
	}
	if s.publisher != nil {
		if err := s.publisher.PublishReport(ctx, report); err != nil {
			s.logger.Warn("Failed to publish report", "reportId", report.ID, "error", err)
		}
	}
	if s.archiver != nil {
		if err := s.archiver.ArchiveReport(ctx, report); err != nil {
			s.logger.Warn("Failed to archive report", "reportId", report.ID, "error", err)
		}
	}
	return nil
}

// FailAbandonedReports fails every report still PENDING or RUNNING. Call it
// before the engine starts: at that point no run of this process is in flight,
// so any such report belongs to a run that died with an earlier process.
func (s *ExecutionService) FailAbandonedReports(ctx context.Context) (int, error) {
	var reports []*domain.TestReport
	err := s.store.View(ctx, func(tx secondary.Tx) error {
		var err error
		reports, err = tx.ListReports(ctx, secondary.ReportFilter{
			Statuses: []domain.ReportStatus{domain.ReportStatusPending, domain.ReportStatusRunning},
		})
		return err
	})
	if err != nil {
		s.logger.Error("Failed to list unfinished reports", "error", err)
		return 0, fmt.Errorf("failed to list unfinished reports: %w", err)
	}

	failed := 0
	for _, report := range reports {
		err := s.finish(ctx, report, ErrRunAbandoned)
		if errors.Is(err, errs.ReportTerminated) {
			continue
		}
		if err != nil {
			return failed, fmt.Errorf("failed to fail abandoned report %s: %w", report.ID, err)
		}
		failed++
	}
	if failed > 0 {
		s.logger.Warn("Failed abandoned reports", "count", failed)
	}
	return failed, nil
}

func (s *ExecutionService) saveReport(ctx context.Context, report *domain.TestReport) error {
	err := s.store.InTx(ctx, func(tx secondary.Tx) error {
		return tx.UpdateReport(ctx, report)
	})
	if err != nil {
		s.logger.Error("Failed to save report", "reportId", report.ID, "status", report.Status, "error", err)
		return fmt.Errorf("failed to save report: %w", err)
	}
	return nil
}

func (s *ExecutionService) ListReports(ctx context.Context, filter secondary.ReportFilter) ([]*domain.TestReport, error) {
	if filter.Limit < 0 || filter.Offset < 0 {
		return nil, fmt.Errorf("skip and limit must not be negative: %w", errs.InvalidArgument)
	}

	var reports []*domain.TestReport
	err := s.store.View(ctx, func(tx secondary.Tx) error {
		var err error
		reports, err = tx.ListReports(ctx, filter)
		return err
	})
	if err != nil {
		s.logger.Error("Failed to list reports", "error", err)
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	return reports, nil
}

func (s *ExecutionService) GetReport(ctx context.Context, reportID uuid.UUID) (*domain.TestReport, error) {
	var report *domain.TestReport
	err := s.store.View(ctx, func(tx secondary.Tx) error {
		var err error
		report, err = tx.GetReport(ctx, reportID)
		return err
	})
	if err != nil {
		s.logger.Error("Failed to get report", "reportId", reportID, "error", err)
		return nil, fmt.Errorf("failed to get report: %w", err)
	}
	if report == nil {
		return nil, fmt.Errorf("test report %s: %w", reportID, errs.NotFound)
	}
	return report, nil
}

package secondary

import (
	"context"

	"github.com/google/uuid"

	"gitlab.com/testhub.net/internal/domain"
)

// Store is the entity store. Every write goes through InTx so that either all
// of a unit of work becomes visible or none of it does.
type Store interface {
	// InTx runs fn in a read-write transaction. A non-nil error from fn rolls
	// the transaction back.
	InTx(ctx context.Context, fn func(tx Tx) error) error

	// View runs fn against a consistent read-only view.
	View(ctx context.Context, fn func(tx Tx) error) error

	Close() error
}

// ReportFilter narrows ListReports.
type ReportFilter struct {
	SuiteID *uuid.UUID
	// Statuses keeps reports in any of the listed states. Empty keeps all.
	Statuses []domain.ReportStatus
	Limit    int
	Offset   int
}

// Tx is the set of operations available inside a transaction. Getters return
// (nil, nil) when the row does not exist. Insert* assign a fresh id and the
// timestamps on the passed entity.
type Tx interface {
	// LockModule takes a row lock on the module for the rest of the transaction.
	LockModule(ctx context.Context, moduleID uuid.UUID) error
	InsertModule(ctx context.Context, module *domain.Module) error
	GetModule(ctx context.Context, moduleID uuid.UUID) (*domain.Module, error)
	ListModules(ctx context.Context) ([]*domain.Module, error)
	ListChildModules(ctx context.Context, parentID uuid.UUID) ([]*domain.Module, error)
	UpdateModule(ctx context.Context, module *domain.Module) error
	DeleteModule(ctx context.Context, moduleID uuid.UUID) error

	InsertTestCase(ctx context.Context, testCase *domain.TestCase) error
	GetTestCase(ctx context.Context, caseID uuid.UUID) (*domain.TestCase, error)
	// ListTestCases returns the cases of a module ordered by sequence index.
	ListTestCases(ctx context.Context, moduleID uuid.UUID) ([]*domain.TestCase, error)
	// ListAllTestCases pages over every case ordered by module then sequence index.
	ListAllTestCases(ctx context.Context, offset, limit int) ([]*domain.TestCase, error)
	CountTestCases(ctx context.Context, moduleID uuid.UUID) (int, error)
	UpdateTestCase(ctx context.Context, testCase *domain.TestCase) error
	DeleteTestCase(ctx context.Context, caseID uuid.UUID) error
	// SetSequence assigns sequence_index = position for every id of the module.
	SetSequence(ctx context.Context, moduleID uuid.UUID, orderedIDs []uuid.UUID) error

	LockSuite(ctx context.Context, suiteID uuid.UUID) error
	InsertSuite(ctx context.Context, suite *domain.TestSuite) error
	GetSuite(ctx context.Context, suiteID uuid.UUID) (*domain.TestSuite, error)
	ListSuites(ctx context.Context) ([]*domain.TestSuite, error)
	UpdateSuite(ctx context.Context, suite *domain.TestSuite) error
	DeleteSuite(ctx context.Context, suiteID uuid.UUID) error
	// RemoveCaseFromSuites drops the case from every suite list and returns the
	// ids of the suites that changed.
	RemoveCaseFromSuites(ctx context.Context, caseID uuid.UUID) ([]uuid.UUID, error)

	InsertReport(ctx context.Context, report *domain.TestReport) error
	GetReport(ctx context.Context, reportID uuid.UUID) (*domain.TestReport, error)
	ListReports(ctx context.Context, filter ReportFilter) ([]*domain.TestReport, error)
	// UpdateReport persists report; it fails with errs.ReportTerminated when the
	// stored copy is already terminal.
	UpdateReport(ctx context.Context, report *domain.TestReport) error
}

package testcase

import (
	"context"

	"github.com/google/uuid"

	"gitlab.com/testhub.net/internal/domain"
)

// ITestCaseService manages test cases and their order inside a module
type ITestCaseService interface {
	// ListTestCases lists a module's cases in order, or every case when moduleID is nil
	ListTestCases(ctx context.Context, moduleID *uuid.UUID, offset, limit int) ([]*domain.TestCase, error)

	GetTestCase(ctx context.Context, caseID uuid.UUID) (*domain.TestCase, error)

	// CreateTestCase appends a case to the end of its module
	CreateTestCase(ctx context.Context, testCase *domain.TestCase) (*domain.TestCase, error)

	// UpdateTestCase applies a partial update. Changing the module moves the
	// case to the end of the target module.
	UpdateTestCase(ctx context.Context, caseID uuid.UUID, patch domain.TestCasePatch) (*domain.TestCase, error)

	// DeleteTestCase removes a case, compacts its module and drops it from every suite
	DeleteTestCase(ctx context.Context, caseID uuid.UUID) error

	// BatchDeleteTestCases deletes several cases and reports a result per id, in request order
	BatchDeleteTestCases(ctx context.Context, caseIDs []uuid.UUID) ([]domain.BatchItemResult, error)

	// CopyTestCase duplicates a case as a new entity at the end of the same module
	CopyTestCase(ctx context.Context, caseID uuid.UUID) (*domain.TestCase, error)

	// ReorderTestCases sets the order of a module's cases. orderedIDs must be
	// a permutation of exactly the module's case ids.
	ReorderTestCases(ctx context.Context, moduleID uuid.UUID, orderedIDs []uuid.UUID) ([]*domain.TestCase, error)
}

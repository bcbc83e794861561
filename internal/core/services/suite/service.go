package suite

import (
	"context"

	"github.com/google/uuid"

	"gitlab.com/testhub.net/internal/domain"
)

// ISuiteService manages test suites and their case references
type ISuiteService interface {
	ListSuites(ctx context.Context) ([]*domain.TestSuite, error)

	GetSuite(ctx context.Context, suiteID uuid.UUID) (*domain.TestSuite, error)

	// CreateSuite creates a suite, empty or with an initial list of existing cases
	CreateSuite(ctx context.Context, name string, description *string, caseIDs []uuid.UUID) (*domain.TestSuite, error)

	// UpdateSuite applies a partial update; a supplied case list replaces the old one
	UpdateSuite(ctx context.Context, suiteID uuid.UUID, patch domain.SuitePatch) (*domain.TestSuite, error)

	// AddCases appends references to the end of the suite
	AddCases(ctx context.Context, suiteID uuid.UUID, caseIDs []uuid.UUID) (*domain.TestSuite, error)

	// RemoveCases drops references, keeping the order of the rest
	RemoveCases(ctx context.Context, suiteID uuid.UUID, caseIDs []uuid.UUID) (*domain.TestSuite, error)

	// DeleteSuite deletes the suite. Its cases and reports are left alone.
	DeleteSuite(ctx context.Context, suiteID uuid.UUID) error
}

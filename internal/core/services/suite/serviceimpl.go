package suite

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"gitlab.com/testhub.net/internal/core/ports/primary"
	"gitlab.com/testhub.net/internal/core/ports/secondary"
	"gitlab.com/testhub.net/internal/domain"
	"gitlab.com/testhub.net/internal/static/errs"
)

var _ ISuiteService = (*SuiteService)(nil)

// SuiteService implements ISuiteService. Mutations of one suite are
// serialised on the suite's lock.
type SuiteService struct {
	store  secondary.Store
	locker secondary.Locker
	logger primary.Logger
}

// NewSuiteService creates a new suite service
func NewSuiteService(store secondary.Store, locker secondary.Locker, logger primary.Logger) *SuiteService {
	return &SuiteService{
		store:  store,
		locker: locker,
		logger: logger,
	}
}

func (s *SuiteService) ListSuites(ctx context.Context) ([]*domain.TestSuite, error) {
	var suites []*domain.TestSuite
	err := s.store.View(ctx, func(tx secondary.Tx) error {
		var err error
		suites, err = tx.ListSuites(ctx)
		return err
	})
	if err != nil {
		s.logger.Error("Failed to list suites", "error", err)
		return nil, fmt.Errorf("failed to list suites: %w", err)
	}
	return suites, nil
}

func (s *SuiteService) GetSuite(ctx context.Context, suiteID uuid.UUID) (*domain.TestSuite, error) {
	var suite *domain.TestSuite
	err := s.store.View(ctx, func(tx secondary.Tx) error {
		var err error
		suite, err = tx.GetSuite(ctx, suiteID)
		return err
	})
	if err != nil {
		s.logger.Error("Failed to get suite", "suiteId", suiteID, "error", err)
		return nil, fmt.Errorf("failed to get suite: %w", err)
	}
	if suite == nil {
		return nil, fmt.Errorf("test suite %s: %w", suiteID, errs.NotFound)
	}
	return suite, nil
}

func (s *SuiteService) CreateSuite(ctx context.Context, name string, description *string, caseIDs []uuid.UUID) (*domain.TestSuite, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("suite name is required: %w", errs.InvalidArgument)
	}
	if err := checkDuplicates(caseIDs); err != nil {
		return nil, err
	}

	suite := &domain.TestSuite{
		Name:        name,
		Description: description,
		CaseIDs:     append([]uuid.UUID{}, caseIDs...),
	}
	err := s.store.InTx(ctx, func(tx secondary.Tx) error {
		if err := checkCasesExist(ctx, tx, suite.CaseIDs); err != nil {
			return err
		}
		return tx.InsertSuite(ctx, suite)
	})
	if err != nil {
		s.logger.Error("Failed to create suite", "name", name, "error", err)
		return nil, fmt.Errorf("failed to create suite: %w", err)
	}

	s.logger.Info("Suite created", "suiteId", suite.ID, "cases", len(suite.CaseIDs))
	return suite, nil
}

func (s *SuiteService) UpdateSuite(ctx context.Context, suiteID uuid.UUID, patch domain.SuitePatch) (*domain.TestSuite, error) {
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		return nil, fmt.Errorf("suite name can not be empty: %w", errs.InvalidArgument)
	}
	if err := checkDuplicates(patch.CaseIDs); err != nil {
		return nil, err
	}

	return s.mutate(ctx, suiteID, "update", func(tx secondary.Tx, suite *domain.TestSuite) error {
		patch.Apply(suite)
		if patch.CaseIDs != nil {
			return checkCasesExist(ctx, tx, suite.CaseIDs)
		}
		return nil
	})
}

func (s *SuiteService) AddCases(ctx context.Context, suiteID uuid.UUID, caseIDs []uuid.UUID) (*domain.TestSuite, error) {
	if err := checkDuplicates(caseIDs); err != nil {
		return nil, err
	}

	return s.mutate(ctx, suiteID, "add cases to", func(tx secondary.Tx, suite *domain.TestSuite) error {
		for _, id := range caseIDs {
			if suite.Contains(id) {
				return fmt.Errorf("test case %s is already in suite %s: %w", id, suiteID, errs.Conflict)
			}
		}
		if err := checkCasesExist(ctx, tx, caseIDs); err != nil {
			return err
		}
		suite.CaseIDs = append(suite.CaseIDs, caseIDs...)
		return nil
	})
}

func (s *SuiteService) RemoveCases(ctx context.Context, suiteID uuid.UUID, caseIDs []uuid.UUID) (*domain.TestSuite, error) {
	return s.mutate(ctx, suiteID, "remove cases from", func(_ secondary.Tx, suite *domain.TestSuite) error {
		for _, id := range caseIDs {
			if !suite.RemoveCase(id) {
				return fmt.Errorf("test case %s is not in suite %s: %w", id, suiteID, errs.NotFound)
			}
		}
		return nil
	})
}

// mutate loads the suite under its lock, lets change edit it and saves it.
func (s *SuiteService) mutate(ctx context.Context, suiteID uuid.UUID, action string, change func(tx secondary.Tx, suite *domain.TestSuite) error) (*domain.TestSuite, error) {
	unlock, err := s.locker.Lock(ctx, secondary.SuiteKey(suiteID))
	if err != nil {
		return nil, fmt.Errorf("failed to lock suite: %w", err)
	}
	defer unlock()

	var suite *domain.TestSuite
	err = s.store.InTx(ctx, func(tx secondary.Tx) error {
		if err := tx.LockSuite(ctx, suiteID); err != nil {
			return err
		}
		var err error
		suite, err = tx.GetSuite(ctx, suiteID)
		if err != nil {
			return err
		}
		if suite == nil {
			return fmt.Errorf("test suite %s: %w", suiteID, errs.NotFound)
		}
		if err := change(tx, suite); err != nil {
			return err
		}
		return tx.UpdateSuite(ctx, suite)
	})
	if err != nil {
		s.logger.Error("Failed to "+action+" suite", "suiteId", suiteID, "error", err)
		return nil, fmt.Errorf("failed to %s suite: %w", action, err)
	}
	return suite, nil
}

func (s *SuiteService) DeleteSuite(ctx context.Context, suiteID uuid.UUID) error {
	unlock, err := s.locker.Lock(ctx, secondary.SuiteKey(suiteID))
	if err != nil {
		return fmt.Errorf("failed to lock suite: %w", err)
	}
	defer unlock()

	err = s.store.InTx(ctx, func(tx secondary.Tx) error {
		return tx.DeleteSuite(ctx, suiteID)
	})
	if err != nil {
		s.logger.Error("Failed to delete suite", "suiteId", suiteID, "error", err)
		return fmt.Errorf("failed to delete suite: %w", err)
	}

	s.logger.Info("Suite deleted", "suiteId", suiteID)
	return nil
}

func checkDuplicates(caseIDs []uuid.UUID) error {
	seen := make(map[uuid.UUID]bool, len(caseIDs))
	for _, id := range caseIDs {
		if seen[id] {
			return fmt.Errorf("test case %s listed twice: %w", id, errs.InvalidArgument)
		}
		seen[id] = true
	}
	return nil
}

func checkCasesExist(ctx context.Context, tx secondary.Tx, caseIDs []uuid.UUID) error {
	for _, id := range caseIDs {
		c, err := tx.GetTestCase(ctx, id)
		if err != nil {
			return err
		}
		if c == nil {
			return fmt.Errorf("test case %s: %w", id, errs.NotFound)
		}
	}
	return nil
}

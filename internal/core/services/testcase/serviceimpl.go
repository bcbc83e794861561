package testcase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"gitlab.com/testhub.net/internal/core/ports/primary"
	"gitlab.com/testhub.net/internal/core/ports/secondary"
	"gitlab.com/testhub.net/internal/domain"
	"gitlab.com/testhub.net/internal/static/errs"
)

var _ ITestCaseService = (*TestCaseService)(nil)

const (
	defaultContentType = "application/json"
	lockAttempts       = 3
)

var allowedMethods = map[string]bool{
	http.MethodGet:     true,
	http.MethodPost:    true,
	http.MethodPut:     true,
	http.MethodPatch:   true,
	http.MethodDelete:  true,
	http.MethodHead:    true,
	http.MethodOptions: true,
}

// errMoved is returned when a case changed module between the unlocked read
// and the locked one.
var errMoved = errors.New("test case moved to another module")

// TestCaseService implements ITestCaseService. Every operation that changes a
// module's ordering holds that module's lock for its whole transaction.
type TestCaseService struct {
	store       secondary.Store
	locker      secondary.Locker
	logger      primary.Logger
	strictBatch bool
}

// Option configures a TestCaseService
type Option func(*TestCaseService)

// WithStrictBatch makes BatchDeleteTestCases all-or-nothing.
func WithStrictBatch(strict bool) Option {
	return func(s *TestCaseService) {
		s.strictBatch = strict
	}
}

// NewTestCaseService creates a new test case service
func NewTestCaseService(store secondary.Store, locker secondary.Locker, logger primary.Logger, options ...Option) *TestCaseService {
	s := &TestCaseService{
		store:  store,
		locker: locker,
		logger: logger,
	}
	for _, option := range options {
		option(s)
	}
	return s
}

func (s *TestCaseService) ListTestCases(ctx context.Context, moduleID *uuid.UUID, offset, limit int) ([]*domain.TestCase, error) {
	if offset < 0 || limit < 0 {
		return nil, fmt.Errorf("skip and limit must not be negative: %w", errs.InvalidArgument)
	}

	var cases []*domain.TestCase
	err := s.store.View(ctx, func(tx secondary.Tx) error {
		if moduleID == nil {
			var err error
			cases, err = tx.ListAllTestCases(ctx, offset, limit)
			return err
		}

		module, err := tx.GetModule(ctx, *moduleID)
		if err != nil {
			return err
		}
		if module == nil {
			return fmt.Errorf("module %s: %w", *moduleID, errs.NotFound)
		}
		cases, err = tx.ListTestCases(ctx, *moduleID)
		if err != nil {
			return err
		}
		cases = window(cases, offset, limit)
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to list test cases", "error", err)
		return nil, fmt.Errorf("failed to list test cases: %w", err)
	}
	return cases, nil
}

func (s *TestCaseService) GetTestCase(ctx context.Context, caseID uuid.UUID) (*domain.TestCase, error) {
	testCase, err := s.getTestCase(ctx, caseID)
	if err != nil {
		return nil, err
	}
	if testCase == nil {
		return nil, fmt.Errorf("test case %s: %w", caseID, errs.NotFound)
	}
	return testCase, nil
}

func (s *TestCaseService) getTestCase(ctx context.Context, caseID uuid.UUID) (*domain.TestCase, error) {
	var testCase *domain.TestCase
	err := s.store.View(ctx, func(tx secondary.Tx) error {
		var err error
		testCase, err = tx.GetTestCase(ctx, caseID)
		return err
	})
	if err != nil {
		s.logger.Error("Failed to get test case", "caseId", caseID, "error", err)
		return nil, fmt.Errorf("failed to get test case: %w", err)
	}
	return testCase, nil
}

func (s *TestCaseService) CreateTestCase(ctx context.Context, testCase *domain.TestCase) (*domain.TestCase, error) {
	if err := normalize(testCase); err != nil {
		return nil, err
	}
	created := testCase.Clone()

	unlock, err := s.locker.Lock(ctx, secondary.ModuleKey(created.ModuleID))
	if err != nil {
		return nil, fmt.Errorf("failed to lock module: %w", err)
	}
	defer unlock()

	err = s.store.InTx(ctx, func(tx secondary.Tx) error {
		if err := tx.LockModule(ctx, created.ModuleID); err != nil {
			return err
		}
		return appendToModule(ctx, tx, created)
	})
	if err != nil {
		s.logger.Error("Failed to create test case", "moduleId", created.ModuleID, "error", err)
		return nil, fmt.Errorf("failed to create test case: %w", err)
	}

	s.logger.Info("Test case created", "caseId", created.ID, "moduleId", created.ModuleID, "sequenceIndex", created.SequenceIndex)
	return created, nil
}

// appendToModule inserts testCase at index = current count of its module.
func appendToModule(ctx context.Context, tx secondary.Tx, testCase *domain.TestCase) error {
	count, err := tx.CountTestCases(ctx, testCase.ModuleID)
	if err != nil {
		return err
	}
	testCase.SequenceIndex = count
	return tx.InsertTestCase(ctx, testCase)
}

// compact rewrites the module's indices to 0..n-1 keeping the current order.
func compact(ctx context.Context, tx secondary.Tx, moduleID uuid.UUID) error {
	cases, err := tx.ListTestCases(ctx, moduleID)
	if err != nil {
		return err
	}
	ids := make([]uuid.UUID, len(cases))
	dense := true
	for i, c := range cases {
		ids[i] = c.ID
		if c.SequenceIndex != i {
			dense = false
		}
	}
	if dense {
		return nil
	}
	return tx.SetSequence(ctx, moduleID, ids)
}

func (s *TestCaseService) UpdateTestCase(ctx context.Context, caseID uuid.UUID, patch domain.TestCasePatch) (*domain.TestCase, error) {
	if err := validatePatch(&patch); err != nil {
		return nil, err
	}

	var updated *domain.TestCase
	err := s.withCaseLocked(ctx, caseID,
		func(current *domain.TestCase) []string {
			keys := []string{secondary.ModuleKey(current.ModuleID)}
			if patch.ModuleID != nil {
				keys = append(keys, secondary.ModuleKey(*patch.ModuleID))
			}
			return keys
		},
		func(tx secondary.Tx, current *domain.TestCase) error {
			updated = current.Clone()
			patch.Apply(updated)

			if patch.ModuleID == nil || *patch.ModuleID == current.ModuleID {
				return tx.UpdateTestCase(ctx, updated)
			}

			// Move: append to the target, then close the gap in the source.
			source, target := current.ModuleID, *patch.ModuleID
			if err := lockModules(ctx, tx, source, target); err != nil {
				return err
			}
			count, err := tx.CountTestCases(ctx, target)
			if err != nil {
				return err
			}
			updated.ModuleID = target
			updated.SequenceIndex = count
			if err := tx.UpdateTestCase(ctx, updated); err != nil {
				return err
			}
			return compact(ctx, tx, source)
		})
	if err != nil {
		s.logger.Error("Failed to update test case", "caseId", caseID, "error", err)
		return nil, fmt.Errorf("failed to update test case: %w", err)
	}
	return updated, nil
}

// lockModules takes store row locks in id order, matching the Locker order.
func lockModules(ctx context.Context, tx secondary.Tx, ids ...uuid.UUID) error {
	keys := make([]string, len(ids))
	byKey := make(map[string]uuid.UUID, len(ids))
	for i, id := range ids {
		keys[i] = id.String()
		byKey[keys[i]] = id
	}
	for _, key := range sortedUnique(keys) {
		if err := tx.LockModule(ctx, byKey[key]); err != nil {
			return err
		}
	}
	return nil
}

func (s *TestCaseService) DeleteTestCase(ctx context.Context, caseID uuid.UUID) error {
	var moduleID uuid.UUID
	err := s.withCaseLocked(ctx, caseID,
		func(current *domain.TestCase) []string {
			return append(s.referencingSuiteKeys(ctx, caseID), secondary.ModuleKey(current.ModuleID))
		},
		func(tx secondary.Tx, current *domain.TestCase) error {
			moduleID = current.ModuleID
			if err := tx.LockModule(ctx, moduleID); err != nil {
				return err
			}
			if err := deleteAndDetach(ctx, tx, caseID); err != nil {
				return err
			}
			return compact(ctx, tx, moduleID)
		})
	if err != nil {
		s.logger.Error("Failed to delete test case", "caseId", caseID, "error", err)
		return fmt.Errorf("failed to delete test case: %w", err)
	}

	s.logger.Info("Test case deleted", "caseId", caseID, "moduleId", moduleID)
	return nil
}

// deleteAndDetach removes the case from every suite list, then the case itself.
func deleteAndDetach(ctx context.Context, tx secondary.Tx, caseID uuid.UUID) error {
	if _, err := tx.RemoveCaseFromSuites(ctx, caseID); err != nil {
		return err
	}
	return tx.DeleteTestCase(ctx, caseID)
}

// referencingSuiteKeys returns the lock keys of the suites currently holding
// caseID. The store keeps the references consistent on its own; the keys
// only serialise against suite mutations already in flight.
func (s *TestCaseService) referencingSuiteKeys(ctx context.Context, caseIDs ...uuid.UUID) []string {
	wanted := make(map[uuid.UUID]bool, len(caseIDs))
	for _, id := range caseIDs {
		wanted[id] = true
	}

	keys := make([]string, 0)
	err := s.store.View(ctx, func(tx secondary.Tx) error {
		suites, err := tx.ListSuites(ctx)
		if err != nil {
			return err
		}
		for _, suite := range suites {
			for _, id := range suite.CaseIDs {
				if wanted[id] {
					keys = append(keys, secondary.SuiteKey(suite.ID))
					break
				}
			}
		}
		return nil
	})
	if err != nil {
		s.logger.Warn("Failed to look up referencing suites", "error", err)
	}
	return keys
}

func (s *TestCaseService) CopyTestCase(ctx context.Context, caseID uuid.UUID) (*domain.TestCase, error) {
	var copied *domain.TestCase
	err := s.withCaseLocked(ctx, caseID,
		func(current *domain.TestCase) []string {
			return []string{secondary.ModuleKey(current.ModuleID)}
		},
		func(tx secondary.Tx, current *domain.TestCase) error {
			if err := tx.LockModule(ctx, current.ModuleID); err != nil {
				return err
			}
			copied = current.CopyAsNew()
			return appendToModule(ctx, tx, copied)
		})
	if err != nil {
		s.logger.Error("Failed to copy test case", "caseId", caseID, "error", err)
		return nil, fmt.Errorf("failed to copy test case: %w", err)
	}

	s.logger.Info("Test case copied", "sourceId", caseID, "caseId", copied.ID)
	return copied, nil
}

func (s *TestCaseService) ReorderTestCases(ctx context.Context, moduleID uuid.UUID, orderedIDs []uuid.UUID) ([]*domain.TestCase, error) {
	requested := make(map[uuid.UUID]bool, len(orderedIDs))
	for _, id := range orderedIDs {
		if requested[id] {
			return nil, fmt.Errorf("test case %s listed twice: %w", id, errs.InvalidArgument)
		}
		requested[id] = true
	}

	unlock, err := s.locker.Lock(ctx, secondary.ModuleKey(moduleID))
	if err != nil {
		return nil, fmt.Errorf("failed to lock module: %w", err)
	}
	defer unlock()

	var cases []*domain.TestCase
	err = s.store.InTx(ctx, func(tx secondary.Tx) error {
		if err := tx.LockModule(ctx, moduleID); err != nil {
			return err
		}
		current, err := tx.ListTestCases(ctx, moduleID)
		if err != nil {
			return err
		}

		if len(current) != len(orderedIDs) {
			return fmt.Errorf("module %s has %d test cases, got %d ids: %w",
				moduleID, len(current), len(orderedIDs), errs.InvalidArgument)
		}
		for _, c := range current {
			if !requested[c.ID] {
				return fmt.Errorf("test case %s is missing from the order: %w", c.ID, errs.InvalidArgument)
			}
		}

		if err := tx.SetSequence(ctx, moduleID, orderedIDs); err != nil {
			return err
		}
		cases, err = tx.ListTestCases(ctx, moduleID)
		return err
	})
	if err != nil {
		s.logger.Error("Failed to reorder test cases", "moduleId", moduleID, "error", err)
		return nil, fmt.Errorf("failed to reorder test cases: %w", err)
	}

	s.logger.Info("Test cases reordered", "moduleId", moduleID, "count", len(cases))
	return cases, nil
}

// withCaseLocked reads the case, takes the locks named by keys and runs step
// in one transaction against the locked copy. It retries when the case
// moves to another module before the locks are held.
func (s *TestCaseService) withCaseLocked(
	ctx context.Context,
	caseID uuid.UUID,
	keys func(current *domain.TestCase) []string,
	step func(tx secondary.Tx, current *domain.TestCase) error,
) error {
	for attempt := 0; attempt < lockAttempts; attempt++ {
		observed, err := s.getTestCase(ctx, caseID)
		if err != nil {
			return err
		}
		if observed == nil {
			return fmt.Errorf("test case %s: %w", caseID, errs.NotFound)
		}

		unlock, err := secondary.LockAll(ctx, s.locker, keys(observed)...)
		if err != nil {
			return err
		}
		err = s.store.InTx(ctx, func(tx secondary.Tx) error {
			current, err := tx.GetTestCase(ctx, caseID)
			if err != nil {
				return err
			}
			if current == nil {
				return fmt.Errorf("test case %s: %w", caseID, errs.NotFound)
			}
			if current.ModuleID != observed.ModuleID {
				return errMoved
			}
			return step(tx, current)
		})
		unlock()

		if !errors.Is(err, errMoved) {
			return err
		}
		s.logger.Debug("Test case moved while locking, retrying", "caseId", caseID, "attempt", attempt)
	}
	return fmt.Errorf("test case %s kept moving: %w", caseID, errs.Conflict)
}

// normalize validates a new case and fills defaults.
func normalize(testCase *domain.TestCase) error {
	if testCase.ModuleID == uuid.Nil {
		return fmt.Errorf("module_id is required: %w", errs.InvalidArgument)
	}
	testCase.Title = strings.TrimSpace(testCase.Title)
	if testCase.Title == "" {
		return fmt.Errorf("title is required: %w", errs.InvalidArgument)
	}
	if strings.TrimSpace(testCase.URL) == "" {
		return fmt.Errorf("url is required: %w", errs.InvalidArgument)
	}
	if testCase.Method == "" {
		testCase.Method = http.MethodGet
	}
	testCase.Method = strings.ToUpper(testCase.Method)
	if !allowedMethods[testCase.Method] {
		return fmt.Errorf("unsupported method %q: %w", testCase.Method, errs.InvalidArgument)
	}
	if testCase.ContentType == "" {
		testCase.ContentType = defaultContentType
	}
	return validateAssertions(testCase.Assertions)
}

func validatePatch(patch *domain.TestCasePatch) error {
	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			return fmt.Errorf("title can not be empty: %w", errs.InvalidArgument)
		}
		patch.Title = &title
	}
	if patch.URL != nil && strings.TrimSpace(*patch.URL) == "" {
		return fmt.Errorf("url can not be empty: %w", errs.InvalidArgument)
	}
	if patch.Method != nil {
		method := strings.ToUpper(*patch.Method)
		if !allowedMethods[method] {
			return fmt.Errorf("unsupported method %q: %w", *patch.Method, errs.InvalidArgument)
		}
		patch.Method = &method
	}
	if patch.ModuleID != nil && *patch.ModuleID == uuid.Nil {
		return fmt.Errorf("module_id can not be empty: %w", errs.InvalidArgument)
	}
	return validateAssertions(patch.Assertions)
}

func validateAssertions(assertions []domain.Assertion) error {
	for i, a := range assertions {
		if a.Check != "status_code" && a.Check != "json" && !strings.HasPrefix(a.Check, "json.") {
			return fmt.Errorf("assertion %d: unknown check %q: %w", i, a.Check, errs.InvalidArgument)
		}
		switch a.Comparator {
		case domain.ComparatorEquals, domain.ComparatorContains, domain.ComparatorJSONEquals:
		default:
			return fmt.Errorf("assertion %d: unknown comparator %q: %w", i, a.Comparator, errs.InvalidArgument)
		}
	}
	return nil
}

func window(cases []*domain.TestCase, offset, limit int) []*domain.TestCase {
	if offset >= len(cases) {
		return []*domain.TestCase{}
	}
	cases = cases[offset:]
	if limit > 0 && limit < len(cases) {
		cases = cases[:limit]
	}
	return cases
}

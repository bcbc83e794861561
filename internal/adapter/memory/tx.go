package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"gitlab.com/testhub.net/internal/core/ports/secondary"
	"gitlab.com/testhub.net/internal/domain"
	"gitlab.com/testhub.net/internal/static/errs"
)

var _ secondary.Tx = (*memTx)(nil)

type memTx struct {
	st       *state
	store    *Store
	readOnly bool
}

func (t *memTx) writable() error {
	if t.readOnly {
		return errReadOnly
	}
	return nil
}

func (t *memTx) LockModule(_ context.Context, moduleID uuid.UUID) error {
	if _, ok := t.st.modules[moduleID]; !ok {
		return fmt.Errorf("module %s: %w", moduleID, errs.NotFound)
	}
	return nil
}

func (t *memTx) InsertModule(_ context.Context, module *domain.Module) error {
	if err := t.writable(); err != nil {
		return err
	}
	if module.ParentID != nil {
		if _, ok := t.st.modules[*module.ParentID]; !ok {
			return fmt.Errorf("parent module %s: %w", *module.ParentID, errs.NotFound)
		}
	}
	now := t.st.stamp(t.store.clock)
	module.ID = newID()
	module.CreatedAt = now
	module.UpdatedAt = now
	t.st.modules[module.ID] = module.Clone()
	return nil
}

func (t *memTx) GetModule(_ context.Context, moduleID uuid.UUID) (*domain.Module, error) {
	m, ok := t.st.modules[moduleID]
	if !ok {
		return nil, nil
	}
	return m.Clone(), nil
}

func (t *memTx) ListModules(_ context.Context) ([]*domain.Module, error) {
	modules := make([]*domain.Module, 0, len(t.st.modules))
	for _, m := range t.st.modules {
		modules = append(modules, m.Clone())
	}
	sort.Slice(modules, func(i, j int) bool {
		return modules[i].CreatedAt.Before(modules[j].CreatedAt)
	})
	return modules, nil
}

func (t *memTx) ListChildModules(ctx context.Context, parentID uuid.UUID) ([]*domain.Module, error) {
	all, _ := t.ListModules(ctx)
	children := make([]*domain.Module, 0)
	for _, m := range all {
		if m.ParentID != nil && *m.ParentID == parentID {
			children = append(children, m)
		}
	}
	return children, nil
}

func (t *memTx) UpdateModule(_ context.Context, module *domain.Module) error {
	if err := t.writable(); err != nil {
		return err
	}
	stored, ok := t.st.modules[module.ID]
	if !ok {
		return fmt.Errorf("module %s: %w", module.ID, errs.NotFound)
	}
	if module.ParentID != nil {
		if _, ok := t.st.modules[*module.ParentID]; !ok {
			return fmt.Errorf("parent module %s: %w", *module.ParentID, errs.NotFound)
		}
	}
	next := module.Clone()
	next.CreatedAt = stored.CreatedAt
	next.UpdatedAt = t.st.stamp(t.store.clock)
	module.UpdatedAt = next.UpdatedAt
	t.st.modules[module.ID] = next
	return nil
}

func (t *memTx) DeleteModule(_ context.Context, moduleID uuid.UUID) error {
	if err := t.writable(); err != nil {
		return err
	}
	if _, ok := t.st.modules[moduleID]; !ok {
		return fmt.Errorf("module %s: %w", moduleID, errs.NotFound)
	}
	for _, c := range t.st.cases {
		if c.ModuleID == moduleID {
			return fmt.Errorf("module %s still owns test cases: %w", moduleID, errs.Conflict)
		}
	}
	for _, m := range t.st.modules {
		if m.ParentID != nil && *m.ParentID == moduleID {
			return fmt.Errorf("module %s still has child modules: %w", moduleID, errs.Conflict)
		}
	}
	delete(t.st.modules, moduleID)
	return nil
}

func (t *memTx) InsertTestCase(_ context.Context, testCase *domain.TestCase) error {
	if err := t.writable(); err != nil {
		return err
	}
	if _, ok := t.st.modules[testCase.ModuleID]; !ok {
		return fmt.Errorf("module %s: %w", testCase.ModuleID, errs.NotFound)
	}
	now := t.st.stamp(t.store.clock)
	testCase.ID = newID()
	testCase.CreatedAt = now
	testCase.UpdatedAt = now
	t.st.cases[testCase.ID] = testCase.Clone()
	return nil
}

func (t *memTx) GetTestCase(_ context.Context, caseID uuid.UUID) (*domain.TestCase, error) {
	c, ok := t.st.cases[caseID]
	if !ok {
		return nil, nil
	}
	return c.Clone(), nil
}

func (t *memTx) ListTestCases(_ context.Context, moduleID uuid.UUID) ([]*domain.TestCase, error) {
	cases := make([]*domain.TestCase, 0)
	for _, c := range t.st.cases {
		if c.ModuleID == moduleID {
			cases = append(cases, c.Clone())
		}
	}
	sort.Slice(cases, func(i, j int) bool {
		return cases[i].SequenceIndex < cases[j].SequenceIndex
	})
	return cases, nil
}

func (t *memTx) ListAllTestCases(_ context.Context, offset, limit int) ([]*domain.TestCase, error) {
	cases := make([]*domain.TestCase, 0, len(t.st.cases))
	for _, c := range t.st.cases {
		cases = append(cases, c.Clone())
	}
	sort.Slice(cases, func(i, j int) bool {
		mi, mj := cases[i].ModuleID.String(), cases[j].ModuleID.String()
		if mi != mj {
			return mi < mj
		}
		return cases[i].SequenceIndex < cases[j].SequenceIndex
	})
	return page(cases, offset, limit), nil
}

func (t *memTx) CountTestCases(_ context.Context, moduleID uuid.UUID) (int, error) {
	n := 0
	for _, c := range t.st.cases {
		if c.ModuleID == moduleID {
			n++
		}
	}
	return n, nil
}

func (t *memTx) UpdateTestCase(_ context.Context, testCase *domain.TestCase) error {
	if err := t.writable(); err != nil {
		return err
	}
	stored, ok := t.st.cases[testCase.ID]
	if !ok {
		return fmt.Errorf("test case %s: %w", testCase.ID, errs.NotFound)
	}
	if _, ok := t.st.modules[testCase.ModuleID]; !ok {
		return fmt.Errorf("module %s: %w", testCase.ModuleID, errs.NotFound)
	}
	next := testCase.Clone()
	next.CreatedAt = stored.CreatedAt
	next.UpdatedAt = t.st.stamp(t.store.clock)
	testCase.UpdatedAt = next.UpdatedAt
	t.st.cases[testCase.ID] = next
	return nil
}

func (t *memTx) DeleteTestCase(_ context.Context, caseID uuid.UUID) error {
	if err := t.writable(); err != nil {
		return err
	}
	if _, ok := t.st.cases[caseID]; !ok {
		return fmt.Errorf("test case %s: %w", caseID, errs.NotFound)
	}
	delete(t.st.cases, caseID)
	return nil
}

func (t *memTx) SetSequence(_ context.Context, moduleID uuid.UUID, orderedIDs []uuid.UUID) error {
	if err := t.writable(); err != nil {
		return err
	}
	updated := make(map[uuid.UUID]*domain.TestCase, len(orderedIDs))
	for i, id := range orderedIDs {
		c, ok := t.st.cases[id]
		if !ok || c.ModuleID != moduleID {
			return fmt.Errorf("test case %s is not in module %s: %w", id, moduleID, errs.InvalidArgument)
		}
		if c.SequenceIndex == i {
			continue
		}
		next := c.Clone()
		next.SequenceIndex = i
		updated[id] = next
	}
	for id, c := range updated {
		t.st.cases[id] = c
	}
	return nil
}

func (t *memTx) LockSuite(_ context.Context, suiteID uuid.UUID) error {
	if _, ok := t.st.suites[suiteID]; !ok {
		return fmt.Errorf("test suite %s: %w", suiteID, errs.NotFound)
	}
	return nil
}

func (t *memTx) checkCases(ids []uuid.UUID) error {
	for _, id := range ids {
		if _, ok := t.st.cases[id]; !ok {
			return fmt.Errorf("test case %s: %w", id, errs.NotFound)
		}
	}
	return nil
}

func (t *memTx) InsertSuite(_ context.Context, suite *domain.TestSuite) error {
	if err := t.writable(); err != nil {
		return err
	}
	if err := t.checkCases(suite.CaseIDs); err != nil {
		return err
	}
	now := t.st.stamp(t.store.clock)
	suite.ID = newID()
	suite.CreatedAt = now
	suite.UpdatedAt = now
	t.st.suites[suite.ID] = suite.Clone()
	return nil
}

func (t *memTx) GetSuite(_ context.Context, suiteID uuid.UUID) (*domain.TestSuite, error) {
	s, ok := t.st.suites[suiteID]
	if !ok {
		return nil, nil
	}
	return s.Clone(), nil
}

func (t *memTx) ListSuites(_ context.Context) ([]*domain.TestSuite, error) {
	suites := make([]*domain.TestSuite, 0, len(t.st.suites))
	for _, s := range t.st.suites {
		suites = append(suites, s.Clone())
	}
	sort.Slice(suites, func(i, j int) bool {
		return suites[i].CreatedAt.Before(suites[j].CreatedAt)
	})
	return suites, nil
}

func (t *memTx) UpdateSuite(_ context.Context, suite *domain.TestSuite) error {
	if err := t.writable(); err != nil {
		return err
	}
	stored, ok := t.st.suites[suite.ID]
	if !ok {
		return fmt.Errorf("test suite %s: %w", suite.ID, errs.NotFound)
	}
	if err := t.checkCases(suite.CaseIDs); err != nil {
		return err
	}
	next := suite.Clone()
	next.CreatedAt = stored.CreatedAt
	next.UpdatedAt = t.st.stamp(t.store.clock)
	suite.UpdatedAt = next.UpdatedAt
	t.st.suites[suite.ID] = next
	return nil
}

func (t *memTx) DeleteSuite(_ context.Context, suiteID uuid.UUID) error {
	if err := t.writable(); err != nil {
		return err
	}
	if _, ok := t.st.suites[suiteID]; !ok {
		return fmt.Errorf("test suite %s: %w", suiteID, errs.NotFound)
	}
	delete(t.st.suites, suiteID)
	return nil
}

func (t *memTx) RemoveCaseFromSuites(_ context.Context, caseID uuid.UUID) ([]uuid.UUID, error) {
	if err := t.writable(); err != nil {
		return nil, err
	}
	changed := make([]uuid.UUID, 0)
	for id, s := range t.st.suites {
		if !s.Contains(caseID) {
			continue
		}
		next := s.Clone()
		next.RemoveCase(caseID)
		next.UpdatedAt = t.st.stamp(t.store.clock)
		t.st.suites[id] = next
		changed = append(changed, id)
	}
	return changed, nil
}

func (t *memTx) InsertReport(_ context.Context, report *domain.TestReport) error {
	if err := t.writable(); err != nil {
		return err
	}
	report.ID = newID()
	t.st.reports[report.ID] = report.Clone()
	return nil
}

func (t *memTx) GetReport(_ context.Context, reportID uuid.UUID) (*domain.TestReport, error) {
	r, ok := t.st.reports[reportID]
	if !ok {
		return nil, nil
	}
	return r.Clone(), nil
}

func (t *memTx) ListReports(_ context.Context, filter secondary.ReportFilter) ([]*domain.TestReport, error) {
	reports := make([]*domain.TestReport, 0)
	for _, r := range t.st.reports {
		if filter.SuiteID != nil && r.SuiteID != *filter.SuiteID {
			continue
		}
		if len(filter.Statuses) > 0 && !hasStatus(filter.Statuses, r.Status) {
			continue
		}
		reports = append(reports, r.Clone())
	}
	sort.Slice(reports, func(i, j int) bool {
		if reports[i].StartedAt.Equal(reports[j].StartedAt) {
			return reports[i].ID.String() > reports[j].ID.String()
		}
		return reports[i].StartedAt.After(reports[j].StartedAt)
	})
	return page(reports, filter.Offset, filter.Limit), nil
}

func (t *memTx) UpdateReport(_ context.Context, report *domain.TestReport) error {
	if err := t.writable(); err != nil {
		return err
	}
	stored, ok := t.st.reports[report.ID]
	if !ok {
		return fmt.Errorf("test report %s: %w", report.ID, errs.NotFound)
	}
	if stored.Status.IsTerminal() {
		return fmt.Errorf("test report %s: %w", report.ID, errs.ReportTerminated)
	}
	t.st.reports[report.ID] = report.Clone()
	return nil
}

func hasStatus(statuses []domain.ReportStatus, status domain.ReportStatus) bool {
	for _, st := range statuses {
		if st == status {
			return true
		}
	}
	return false
}

func page[T any](items []T, offset, limit int) []T {
	if offset >= len(items) {
		return items[:0]
	}
	if offset > 0 {
		items = items[offset:]
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

package sqlstore

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"gitlab.com/testhub.net/internal/domain"
	"gitlab.com/testhub.net/internal/static/errs"
	querybuilder "gitlab.com/testhub.net/internal/utils"
)

func suiteColumns() []string {
	tbl := domain.GetTestSuiteTable()
	return []string{tbl.ID, tbl.Name, tbl.Description, tbl.CreatedAt, tbl.UpdatedAt}
}

func (t *sqlTx) LockSuite(ctx context.Context, suiteID uuid.UUID) error {
	tbl := domain.GetTestSuiteTable()
	return t.lockRow(ctx, tbl.TableName(), tbl.ID, suiteID, "test suite")
}

// checkCases fails with NotFound naming the first id that has no test case.
func (t *sqlTx) checkCases(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	tbl := domain.GetTestCaseTable()
	query, args, err := sqlx.In(
		fmt.Sprintf("SELECT %s FROM %s WHERE %s IN (?)", tbl.ID, t.table(tbl.TableName()), tbl.ID), ids)
	if err != nil {
		return fmt.Errorf("failed to expand case ids: %w", err)
	}
	var found []uuid.UUID
	if err := t.selectRows(ctx, &found, query, args...); err != nil {
		return t.store.failed("look up test cases", err)
	}
	known := make(map[uuid.UUID]struct{}, len(found))
	for _, id := range found {
		known[id] = struct{}{}
	}
	for _, id := range ids {
		if _, ok := known[id]; !ok {
			return fmt.Errorf("test case %s: %w", id, errs.NotFound)
		}
	}
	return nil
}

func (t *sqlTx) writeMembers(ctx context.Context, suiteID uuid.UUID, caseIDs []uuid.UUID) error {
	tbl := domain.GetSuiteCaseTable()
	query, args := t.qb().Delete(tbl.TableName()).Where(tbl.SuiteID+" = ?", suiteID).Build()
	if _, err := t.exec(ctx, query, args...); err != nil {
		return t.store.failed("clear suite members", err)
	}
	if len(caseIDs) == 0 {
		return nil
	}

	qb := t.qb().Insert(tbl.SuiteID, tbl.TestCaseID, tbl.Position).Into(tbl.TableName())
	for i, id := range caseIDs {
		qb = qb.Values(suiteID, id, i)
	}
	query, args = qb.Build()
	if _, err := t.exec(ctx, query, args...); err != nil {
		return t.store.failed("write suite members", err)
	}
	return nil
}

func (t *sqlTx) InsertSuite(ctx context.Context, suite *domain.TestSuite) error {
	if err := t.checkCases(ctx, suite.CaseIDs); err != nil {
		return err
	}

	now := t.store.stamp()
	id := newID()
	tbl := domain.GetTestSuiteTable()
	query, args := t.qb().
		Insert(suiteColumns()...).
		Into(tbl.TableName()).
		Values(id, suite.Name, toNullString(suite.Description), now, now).
		Build()
	if _, err := t.exec(ctx, query, args...); err != nil {
		return t.store.failed("insert test suite", err)
	}
	if err := t.writeMembers(ctx, id, suite.CaseIDs); err != nil {
		return err
	}

	suite.ID = id
	suite.CreatedAt = now
	suite.UpdatedAt = now
	return nil
}

// members loads the ordered case list of one suite, or of every suite when
// suiteID is nil. Only rows that still point at a test case are returned.
func (t *sqlTx) members(ctx context.Context, suiteID *uuid.UUID) (map[uuid.UUID][]uuid.UUID, error) {
	tbl := domain.GetSuiteCaseTable()
	caseTbl := domain.GetTestCaseTable()
	qb := t.qb().
		Select("m."+tbl.SuiteID+" AS "+tbl.SuiteID, "m."+tbl.TestCaseID+" AS "+tbl.TestCaseID, "m."+tbl.Position+" AS "+tbl.Position).
		FromAs(tbl.TableName(), "m").
		Join(querybuilder.JoinTypeInner, caseTbl.TableName(), "c", "c."+caseTbl.ID+" = m."+tbl.TestCaseID)
	if suiteID != nil {
		qb = qb.Where("m."+tbl.SuiteID+" = ?", *suiteID)
	}
	query, args := qb.OrderBy("m."+tbl.SuiteID, true).OrderBy("m."+tbl.Position, true).Build()

	var rows []suiteCaseRow
	if err := t.selectRows(ctx, &rows, query, args...); err != nil {
		return nil, t.store.failed("list suite members", err)
	}
	out := make(map[uuid.UUID][]uuid.UUID)
	for _, row := range rows {
		out[row.SuiteID] = append(out[row.SuiteID], row.TestCaseID)
	}
	return out, nil
}

func (t *sqlTx) GetSuite(ctx context.Context, suiteID uuid.UUID) (*domain.TestSuite, error) {
	tbl := domain.GetTestSuiteTable()
	query, args := t.qb().
		Select(suiteColumns()...).
		From(tbl.TableName()).
		Where(tbl.ID+" = ?", suiteID).
		Build()

	var row suiteRow
	found, err := t.get(ctx, &row, query, args...)
	if err != nil {
		return nil, t.store.failed("get test suite", err)
	}
	if !found {
		return nil, nil
	}

	members, err := t.members(ctx, &suiteID)
	if err != nil {
		return nil, err
	}
	suite := row.toDomain()
	suite.CaseIDs = append(suite.CaseIDs, members[suiteID]...)
	return suite, nil
}

func (t *sqlTx) ListSuites(ctx context.Context) ([]*domain.TestSuite, error) {
	tbl := domain.GetTestSuiteTable()
	query, args := t.qb().
		Select(suiteColumns()...).
		From(tbl.TableName()).
		OrderBy(tbl.CreatedAt, true).
		OrderBy(tbl.ID, true).
		Build()

	var rows []suiteRow
	if err := t.selectRows(ctx, &rows, query, args...); err != nil {
		return nil, t.store.failed("list test suites", err)
	}
	members, err := t.members(ctx, nil)
	if err != nil {
		return nil, err
	}

	suites := make([]*domain.TestSuite, 0, len(rows))
	for _, row := range rows {
		suite := row.toDomain()
		suite.CaseIDs = append(suite.CaseIDs, members[row.ID]...)
		suites = append(suites, suite)
	}
	return suites, nil
}

func (t *sqlTx) UpdateSuite(ctx context.Context, suite *domain.TestSuite) error {
	tbl := domain.GetTestSuiteTable()
	found, err := t.exists(ctx, tbl.TableName(), tbl.ID, suite.ID)
	if err != nil {
		return t.store.failed("look up test suite", err)
	}
	if !found {
		return fmt.Errorf("test suite %s: %w", suite.ID, errs.NotFound)
	}
	if err := t.checkCases(ctx, suite.CaseIDs); err != nil {
		return err
	}

	now := t.store.stamp()
	query, args := t.qb().
		Update(tbl.TableName(), querybuilder.UpdateData{
			tbl.Name:        suite.Name,
			tbl.Description: toNullString(suite.Description),
			tbl.UpdatedAt:   now,
		}).
		Where(tbl.ID+" = ?", suite.ID).
		Build()
	if _, err := t.exec(ctx, query, args...); err != nil {
		return t.store.failed("update test suite", err)
	}
	if err := t.writeMembers(ctx, suite.ID, suite.CaseIDs); err != nil {
		return err
	}
	suite.UpdatedAt = now
	return nil
}

func (t *sqlTx) DeleteSuite(ctx context.Context, suiteID uuid.UUID) error {
	tbl := domain.GetTestSuiteTable()
	memberTbl := domain.GetSuiteCaseTable()
	query, args := t.qb().Delete(memberTbl.TableName()).Where(memberTbl.SuiteID+" = ?", suiteID).Build()
	if _, err := t.exec(ctx, query, args...); err != nil {
		return t.store.failed("delete suite members", err)
	}

	query, args = t.qb().Delete(tbl.TableName()).Where(tbl.ID+" = ?", suiteID).Build()
	res, err := t.exec(ctx, query, args...)
	if err != nil {
		return t.store.failed("delete test suite", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("test suite %s: %w", suiteID, errs.NotFound)
	}
	return nil
}

func (t *sqlTx) RemoveCaseFromSuites(ctx context.Context, caseID uuid.UUID) ([]uuid.UUID, error) {
	if t.readOnly {
		return nil, errReadOnly
	}
	memberTbl := domain.GetSuiteCaseTable()
	query, args := t.qb().
		Select(memberTbl.SuiteID).
		From(memberTbl.TableName()).
		Where(memberTbl.TestCaseID+" = ?", caseID).
		OrderBy(memberTbl.SuiteID, true).
		Build()
	var changed []uuid.UUID
	if err := t.selectRows(ctx, &changed, query, args...); err != nil {
		return nil, t.store.failed("find suites referencing test case", err)
	}
	if len(changed) == 0 {
		return []uuid.UUID{}, nil
	}

	query, args = t.qb().Delete(memberTbl.TableName()).Where(memberTbl.TestCaseID+" = ?", caseID).Build()
	if _, err := t.exec(ctx, query, args...); err != nil {
		return nil, t.store.failed("detach test case from suites", err)
	}

	tbl := domain.GetTestSuiteTable()
	for _, suiteID := range changed {
		query, args := t.qb().
			Update(tbl.TableName(), querybuilder.UpdateData{tbl.UpdatedAt: t.store.stamp()}).
			Where(tbl.ID+" = ?", suiteID).
			Build()
		if _, err := t.exec(ctx, query, args...); err != nil {
			return nil, t.store.failed("touch test suite", err)
		}
	}
	return changed, nil
}

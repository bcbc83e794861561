package sqlstore

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"gitlab.com/testhub.net/internal/domain"
	"gitlab.com/testhub.net/internal/static/errs"
	querybuilder "gitlab.com/testhub.net/internal/utils"
)

func caseColumns() []string {
	tbl := domain.GetTestCaseTable()
	return []string{
		tbl.ID, tbl.ModuleID, tbl.Title, tbl.Description, tbl.Method, tbl.URL, tbl.ContentType,
		tbl.Headers, tbl.Body, tbl.ExtractRules, tbl.Assertions, tbl.SequenceIndex,
		tbl.CreatedAt, tbl.UpdatedAt,
	}
}

// caseDocuments encodes the JSON columns of a test case.
type caseDocuments struct {
	headers, body, extractRules, assertions interface{}
}

func encodeCase(c *domain.TestCase) (caseDocuments, error) {
	var (
		docs caseDocuments
		err  error
	)
	if docs.headers, err = marshalColumn(c.Headers, len(c.Headers) == 0); err != nil {
		return docs, fmt.Errorf("failed to encode headers: %w", err)
	}
	if docs.extractRules, err = marshalColumn(c.ExtractRules, len(c.ExtractRules) == 0); err != nil {
		return docs, fmt.Errorf("failed to encode extract rules: %w", err)
	}
	if docs.assertions, err = marshalColumn(c.Assertions, len(c.Assertions) == 0); err != nil {
		return docs, fmt.Errorf("failed to encode assertions: %w", err)
	}
	if len(c.Body) > 0 {
		docs.body = string(c.Body)
	}
	return docs, nil
}

func (t *sqlTx) InsertTestCase(ctx context.Context, testCase *domain.TestCase) error {
	if err := t.requireModule(ctx, testCase.ModuleID, "module"); err != nil {
		return err
	}
	docs, err := encodeCase(testCase)
	if err != nil {
		return err
	}

	now := t.store.stamp()
	id := newID()
	tbl := domain.GetTestCaseTable()
	query, args := t.qb().
		Insert(caseColumns()...).
		Into(tbl.TableName()).
		Values(
			id, testCase.ModuleID, testCase.Title, toNullString(testCase.Description),
			testCase.Method, testCase.URL, testCase.ContentType,
			docs.headers, docs.body, docs.extractRules, docs.assertions,
			testCase.SequenceIndex, now, now,
		).
		Build()
	if _, err := t.exec(ctx, query, args...); err != nil {
		return t.store.failed("insert test case", err)
	}

	testCase.ID = id
	testCase.CreatedAt = now
	testCase.UpdatedAt = now
	return nil
}

func (t *sqlTx) GetTestCase(ctx context.Context, caseID uuid.UUID) (*domain.TestCase, error) {
	tbl := domain.GetTestCaseTable()
	query, args := t.qb().
		Select(caseColumns()...).
		From(tbl.TableName()).
		Where(tbl.ID+" = ?", caseID).
		Build()

	var row caseRow
	found, err := t.get(ctx, &row, query, args...)
	if err != nil {
		return nil, t.store.failed("get test case", err)
	}
	if !found {
		return nil, nil
	}
	return row.toDomain()
}

func (t *sqlTx) listCases(ctx context.Context, qb querybuilder.QueryBuilder) ([]*domain.TestCase, error) {
	query, args := qb.Build()
	var rows []caseRow
	if err := t.selectRows(ctx, &rows, query, args...); err != nil {
		return nil, t.store.failed("list test cases", err)
	}
	cases := make([]*domain.TestCase, 0, len(rows))
	for _, row := range rows {
		c, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		cases = append(cases, c)
	}
	return cases, nil
}

func (t *sqlTx) ListTestCases(ctx context.Context, moduleID uuid.UUID) ([]*domain.TestCase, error) {
	tbl := domain.GetTestCaseTable()
	return t.listCases(ctx, t.qb().
		Select(caseColumns()...).
		From(tbl.TableName()).
		Where(tbl.ModuleID+" = ?", moduleID).
		OrderBy(tbl.SequenceIndex, true))
}

func (t *sqlTx) ListAllTestCases(ctx context.Context, offset, limit int) ([]*domain.TestCase, error) {
	tbl := domain.GetTestCaseTable()
	return t.listCases(ctx, t.qb().
		Select(caseColumns()...).
		From(tbl.TableName()).
		OrderBy(tbl.ModuleID, true).
		OrderBy(tbl.SequenceIndex, true).
		Limit(limit).
		Offset(offset))
}

func (t *sqlTx) CountTestCases(ctx context.Context, moduleID uuid.UUID) (int, error) {
	tbl := domain.GetTestCaseTable()
	n, err := t.count(ctx, tbl.TableName(), tbl.ModuleID, moduleID)
	if err != nil {
		return 0, t.store.failed("count test cases", err)
	}
	return n, nil
}

func (t *sqlTx) UpdateTestCase(ctx context.Context, testCase *domain.TestCase) error {
	tbl := domain.GetTestCaseTable()
	found, err := t.exists(ctx, tbl.TableName(), tbl.ID, testCase.ID)
	if err != nil {
		return t.store.failed("look up test case", err)
	}
	if !found {
		return fmt.Errorf("test case %s: %w", testCase.ID, errs.NotFound)
	}
	if err := t.requireModule(ctx, testCase.ModuleID, "module"); err != nil {
		return err
	}
	docs, err := encodeCase(testCase)
	if err != nil {
		return err
	}

	now := t.store.stamp()
	query, args := t.qb().
		Update(tbl.TableName(), querybuilder.UpdateData{
			tbl.ModuleID:      testCase.ModuleID,
			tbl.Title:         testCase.Title,
			tbl.Description:   toNullString(testCase.Description),
			tbl.Method:        testCase.Method,
			tbl.URL:           testCase.URL,
			tbl.ContentType:   testCase.ContentType,
			tbl.Headers:       docs.headers,
			tbl.Body:          docs.body,
			tbl.ExtractRules:  docs.extractRules,
			tbl.Assertions:    docs.assertions,
			tbl.SequenceIndex: testCase.SequenceIndex,
			tbl.UpdatedAt:     now,
		}).
		Where(tbl.ID+" = ?", testCase.ID).
		Build()
	if _, err := t.exec(ctx, query, args...); err != nil {
		return t.store.failed("update test case", err)
	}
	testCase.UpdatedAt = now
	return nil
}

func (t *sqlTx) DeleteTestCase(ctx context.Context, caseID uuid.UUID) error {
	tbl := domain.GetTestCaseTable()
	query, args := t.qb().Delete(tbl.TableName()).Where(tbl.ID+" = ?", caseID).Build()
	res, err := t.exec(ctx, query, args...)
	if err != nil {
		return t.store.failed("delete test case", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("test case %s: %w", caseID, errs.NotFound)
	}
	return nil
}

// SetSequence rewrites the positions in two passes. The first parks every
// listed case on a negative index, the second flips them to their final
// values, so UNIQUE(module_id, sequence_index) holds after every statement.
func (t *sqlTx) SetSequence(ctx context.Context, moduleID uuid.UUID, orderedIDs []uuid.UUID) error {
	tbl := domain.GetTestCaseTable()
	for i, id := range orderedIDs {
		query, args := t.qb().
			Update(tbl.TableName(), querybuilder.UpdateData{tbl.SequenceIndex: -(i + 1)}).
			Where(tbl.ID+" = ?", id).
			And(tbl.ModuleID+" = ?", moduleID).
			Build()
		res, err := t.exec(ctx, query, args...)
		if err != nil {
			return t.store.failed("park test case sequence", err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return fmt.Errorf("test case %s is not in module %s: %w", id, moduleID, errs.InvalidArgument)
		}
	}

	query := fmt.Sprintf("UPDATE %s SET %s = -%s - 1 WHERE %s = ? AND %s < 0",
		t.table(tbl.TableName()), tbl.SequenceIndex, tbl.SequenceIndex, tbl.ModuleID, tbl.SequenceIndex)
	if _, err := t.exec(ctx, query, moduleID); err != nil {
		return t.store.failed("apply test case sequence", err)
	}
	return nil
}

// table qualifies a table name for hand written statements.
func (t *sqlTx) table(name string) string {
	if t.store.schema == "" {
		return name
	}
	return t.store.schema + "." + name
}

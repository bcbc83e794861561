package sqlstore

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"gitlab.com/testhub.net/internal/core/ports/secondary"
	"gitlab.com/testhub.net/internal/domain"
	"gitlab.com/testhub.net/internal/static/errs"
	querybuilder "gitlab.com/testhub.net/internal/utils"
)

func reportColumns() []string {
	tbl := domain.GetTestReportTable()
	return []string{
		tbl.ID, tbl.SuiteID, tbl.SuiteName, tbl.CaseIDs, tbl.Status, tbl.StartedAt,
		tbl.FinishedAt, tbl.Results, tbl.Summary, tbl.Error,
	}
}

type reportDocuments struct {
	caseIDs, results, summary interface{}
}

func encodeReport(r *domain.TestReport) (reportDocuments, error) {
	var (
		docs reportDocuments
		err  error
	)
	caseIDs := r.CaseIDs
	if caseIDs == nil {
		caseIDs = []uuid.UUID{}
	}
	results := r.Results
	if results == nil {
		results = []domain.CaseResult{}
	}
	if docs.caseIDs, err = marshalColumn(caseIDs, false); err != nil {
		return docs, fmt.Errorf("failed to encode case ids: %w", err)
	}
	if docs.results, err = marshalColumn(results, false); err != nil {
		return docs, fmt.Errorf("failed to encode results: %w", err)
	}
	if docs.summary, err = marshalColumn(r.Summary, false); err != nil {
		return docs, fmt.Errorf("failed to encode summary: %w", err)
	}
	return docs, nil
}

func finishedAt(r *domain.TestReport) interface{} {
	if r.FinishedAt == nil {
		return nil
	}
	return r.FinishedAt.UTC()
}

func errorMessage(r *domain.TestReport) interface{} {
	if r.Error == "" {
		return nil
	}
	return r.Error
}

func (t *sqlTx) InsertReport(ctx context.Context, report *domain.TestReport) error {
	docs, err := encodeReport(report)
	if err != nil {
		return err
	}

	id := newID()
	tbl := domain.GetTestReportTable()
	query, args := t.qb().
		Insert(reportColumns()...).
		Into(tbl.TableName()).
		Values(
			id, report.SuiteID, report.SuiteName, docs.caseIDs, string(report.Status),
			report.StartedAt.UTC(), finishedAt(report), docs.results, docs.summary, errorMessage(report),
		).
		Build()
	if _, err := t.exec(ctx, query, args...); err != nil {
		return t.store.failed("insert test report", err)
	}
	report.ID = id
	return nil
}

func (t *sqlTx) GetReport(ctx context.Context, reportID uuid.UUID) (*domain.TestReport, error) {
	tbl := domain.GetTestReportTable()
	query, args := t.qb().
		Select(reportColumns()...).
		From(tbl.TableName()).
		Where(tbl.ID+" = ?", reportID).
		Build()

	var row reportRow
	found, err := t.get(ctx, &row, query, args...)
	if err != nil {
		return nil, t.store.failed("get test report", err)
	}
	if !found {
		return nil, nil
	}
	return row.toDomain()
}

func (t *sqlTx) ListReports(ctx context.Context, filter secondary.ReportFilter) ([]*domain.TestReport, error) {
	tbl := domain.GetTestReportTable()
	qb := t.qb().Select(reportColumns()...).From(tbl.TableName())
	if filter.SuiteID != nil {
		qb = qb.Where(tbl.SuiteID+" = ?", *filter.SuiteID)
	}
	if len(filter.Statuses) > 0 {
		qb = qb.AndGroup(func(group querybuilder.QueryBuilder) {
			group.Where(tbl.Status+" = ?", string(filter.Statuses[0]))
			for _, status := range filter.Statuses[1:] {
				group.Or(tbl.Status+" = ?", string(status))
			}
		})
	}
	query, args := qb.
		OrderBy(tbl.StartedAt, false).
		OrderBy(tbl.ID, false).
		Limit(filter.Limit).
		Offset(filter.Offset).
		Build()

	var rows []reportRow
	if err := t.selectRows(ctx, &rows, query, args...); err != nil {
		return nil, t.store.failed("list test reports", err)
	}
	reports := make([]*domain.TestReport, 0, len(rows))
	for _, row := range rows {
		r, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		reports = append(reports, r)
	}
	return reports, nil
}

func (t *sqlTx) UpdateReport(ctx context.Context, report *domain.TestReport) error {
	if t.readOnly {
		return errReadOnly
	}
	tbl := domain.GetTestReportTable()
	qb := t.qb().Select(tbl.Status).From(tbl.TableName()).Where(tbl.ID+" = ?", report.ID)
	if t.store.dialect.rowLocks {
		qb = qb.ForUpdate()
	}
	query, args := qb.Build()

	var status string
	found, err := t.get(ctx, &status, query, args...)
	if err != nil {
		return t.store.failed("lock test report", err)
	}
	if !found {
		return fmt.Errorf("test report %s: %w", report.ID, errs.NotFound)
	}
	if domain.ReportStatus(status).IsTerminal() {
		return fmt.Errorf("test report %s: %w", report.ID, errs.ReportTerminated)
	}

	docs, err := encodeReport(report)
	if err != nil {
		return err
	}
	query, args = t.qb().
		Update(tbl.TableName(), querybuilder.UpdateData{
			tbl.SuiteName:  report.SuiteName,
			tbl.CaseIDs:    docs.caseIDs,
			tbl.Status:     string(report.Status),
			tbl.StartedAt:  report.StartedAt.UTC(),
			tbl.FinishedAt: finishedAt(report),
			tbl.Results:    docs.results,
			tbl.Summary:    docs.summary,
			tbl.Error:      errorMessage(report),
		}).
		Where(tbl.ID+" = ?", report.ID).
		Build()
	if _, err := t.exec(ctx, query, args...); err != nil {
		return t.store.failed("update test report", err)
	}
	return nil
}

package sqlstore

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"gitlab.com/testhub.net/internal/domain"
)

type moduleRow struct {
	ID          uuid.UUID      `db:"id"`
	Name        string         `db:"name"`
	Description sql.NullString `db:"description"`
	ParentID    uuid.NullUUID  `db:"parent_id"`
	CreatedAt   time.Time      `db:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at"`
}

func (r moduleRow) toDomain() *domain.Module {
	m := &domain.Module{
		ID:          r.ID,
		Name:        r.Name,
		Description: fromNullString(r.Description),
		CreatedAt:   r.CreatedAt.UTC(),
		UpdatedAt:   r.UpdatedAt.UTC(),
	}
	if r.ParentID.Valid {
		parent := r.ParentID.UUID
		m.ParentID = &parent
	}
	return m
}

type caseRow struct {
	ID            uuid.UUID      `db:"id"`
	ModuleID      uuid.UUID      `db:"module_id"`
	Title         string         `db:"title"`
	Description   sql.NullString `db:"description"`
	Method        string         `db:"method"`
	URL           string         `db:"url"`
	ContentType   string         `db:"content_type"`
	Headers       []byte         `db:"headers"`
	Body          sql.NullString `db:"body"`
	ExtractRules  []byte         `db:"extract_rules"`
	Assertions    []byte         `db:"assertions"`
	SequenceIndex int            `db:"sequence_index"`
	CreatedAt     time.Time      `db:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at"`
}

func (r caseRow) toDomain() (*domain.TestCase, error) {
	c := &domain.TestCase{
		ID:            r.ID,
		ModuleID:      r.ModuleID,
		Title:         r.Title,
		Description:   fromNullString(r.Description),
		Method:        r.Method,
		URL:           r.URL,
		ContentType:   r.ContentType,
		SequenceIndex: r.SequenceIndex,
		CreatedAt:     r.CreatedAt.UTC(),
		UpdatedAt:     r.UpdatedAt.UTC(),
	}
	if r.Body.Valid {
		c.Body = json.RawMessage(r.Body.String)
	}
	if err := unmarshalColumn(r.Headers, &c.Headers); err != nil {
		return nil, fmt.Errorf("test case %s headers: %w", r.ID, err)
	}
	if err := unmarshalColumn(r.ExtractRules, &c.ExtractRules); err != nil {
		return nil, fmt.Errorf("test case %s extract rules: %w", r.ID, err)
	}
	if err := unmarshalColumn(r.Assertions, &c.Assertions); err != nil {
		return nil, fmt.Errorf("test case %s assertions: %w", r.ID, err)
	}
	return c, nil
}

type suiteRow struct {
	ID          uuid.UUID      `db:"id"`
	Name        string         `db:"name"`
	Description sql.NullString `db:"description"`
	CreatedAt   time.Time      `db:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at"`
}

func (r suiteRow) toDomain() *domain.TestSuite {
	return &domain.TestSuite{
		ID:          r.ID,
		Name:        r.Name,
		Description: fromNullString(r.Description),
		CaseIDs:     []uuid.UUID{},
		CreatedAt:   r.CreatedAt.UTC(),
		UpdatedAt:   r.UpdatedAt.UTC(),
	}
}

type suiteCaseRow struct {
	SuiteID    uuid.UUID `db:"suite_id"`
	TestCaseID uuid.UUID `db:"test_case_id"`
	Position   int       `db:"position"`
}

type reportRow struct {
	ID         uuid.UUID      `db:"id"`
	SuiteID    uuid.UUID      `db:"suite_id"`
	SuiteName  string         `db:"suite_name"`
	CaseIDs    []byte         `db:"case_ids"`
	Status     string         `db:"status"`
	StartedAt  time.Time      `db:"started_at"`
	FinishedAt sql.NullTime   `db:"finished_at"`
	Results    []byte         `db:"results"`
	Summary    []byte         `db:"summary"`
	Error      sql.NullString `db:"error_message"`
}

func (r reportRow) toDomain() (*domain.TestReport, error) {
	report := &domain.TestReport{
		ID:        r.ID,
		SuiteID:   r.SuiteID,
		SuiteName: r.SuiteName,
		Status:    domain.ReportStatus(r.Status),
		StartedAt: r.StartedAt.UTC(),
		Error:     r.Error.String,
	}
	if r.FinishedAt.Valid {
		finished := r.FinishedAt.Time.UTC()
		report.FinishedAt = &finished
	}
	if err := unmarshalColumn(r.CaseIDs, &report.CaseIDs); err != nil {
		return nil, fmt.Errorf("test report %s case ids: %w", r.ID, err)
	}
	if err := unmarshalColumn(r.Results, &report.Results); err != nil {
		return nil, fmt.Errorf("test report %s results: %w", r.ID, err)
	}
	if err := unmarshalColumn(r.Summary, &report.Summary); err != nil {
		return nil, fmt.Errorf("test report %s summary: %w", r.ID, err)
	}
	if report.CaseIDs == nil {
		report.CaseIDs = []uuid.UUID{}
	}
	if report.Results == nil {
		report.Results = []domain.CaseResult{}
	}
	return report, nil
}

func unmarshalColumn(raw []byte, dest any) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, dest)
}

// marshalColumn encodes v as a JSON string. Strings rather than bytes keep
// lib/pq from sending the value as bytea. Empty values become NULL.
func marshalColumn(v any, empty bool) (any, error) {
	if empty {
		return nil, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

func fromNullString(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}

func toNullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func toNullUUID(id *uuid.UUID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *id, Valid: true}
}

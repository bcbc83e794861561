package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"gitlab.com/testhub.net/internal/static/errs"
)

// ReportStatus is the lifecycle state of one suite execution.
type ReportStatus string

const (
	ReportStatusPending   ReportStatus = "PENDING"
	ReportStatusRunning   ReportStatus = "RUNNING"
	ReportStatusCompleted ReportStatus = "COMPLETED"
	ReportStatusFailed    ReportStatus = "FAILED"
)

// IsTerminal reports whether no further transition is allowed.
func (s ReportStatus) IsTerminal() bool {
	return s == ReportStatusCompleted || s == ReportStatusFailed
}

// CanTransitionTo encodes PENDING -> RUNNING -> {COMPLETED, FAILED}.
// A pending run may also fail before it ever starts.
func (s ReportStatus) CanTransitionTo(next ReportStatus) bool {
	switch s {
	case ReportStatusPending:
		return next == ReportStatusRunning || next == ReportStatusFailed
	case ReportStatusRunning:
		return next == ReportStatusCompleted || next == ReportStatusFailed
	default:
		return false
	}
}

// CaseStatus is the outcome of one test case inside a report.
type CaseStatus string

const (
	CaseStatusPending CaseStatus = "PENDING"
	CaseStatusPassed  CaseStatus = "PASSED"
	CaseStatusFailed  CaseStatus = "FAILED"
	CaseStatusError   CaseStatus = "ERROR"
)

type AssertionResult struct {
	Check      string `json:"check"`
	Comparator string `json:"comparator"`
	Expect     any    `json:"expect"`
	Actual     any    `json:"actual"`
	Passed     bool   `json:"passed"`
	Message    string `json:"message,omitempty"`
}

// CaseResult is one entry of a report's results, positioned like the case in
// the suite snapshot.
type CaseResult struct {
	TestCaseID uuid.UUID  `json:"test_case_id"`
	Title      string     `json:"title,omitempty"`
	Status     CaseStatus `json:"status"`
	Method     string     `json:"method,omitempty"`
	URL        string     `json:"url,omitempty"`
	// Request side as sent, after variable expansion.
	RequestHeaders map[string]string `json:"request_headers,omitempty"`
	RequestBody    string            `json:"request_body,omitempty"`

	StatusCode      int               `json:"status_code,omitempty"`
	ResponseHeaders map[string]string `json:"response_headers,omitempty"`
	DurationMs      int64             `json:"duration_ms"`
	StartedAt       *time.Time        `json:"started_at,omitempty"`
	Response        string            `json:"response,omitempty"`
	Error           string            `json:"error,omitempty"`
	Assertions      []AssertionResult `json:"assertions,omitempty"`
}

// CaseOutcome is what an executor reports for the case at Index of the plan.
type CaseOutcome struct {
	Index  int
	Result CaseResult
}

type ReportSummary struct {
	Total   int `json:"total"`
	Passed  int `json:"passed"`
	Failed  int `json:"failed"`
	Errored int `json:"errored"`
	Pending int `json:"pending"`
}

// TestReport records one execution of a suite. CaseIDs and SuiteName are a
// snapshot taken when the execution was requested.
type TestReport struct {
	ID         uuid.UUID     `json:"id"`
	SuiteID    uuid.UUID     `json:"suite_id"`
	SuiteName  string        `json:"suite_name"`
	CaseIDs    []uuid.UUID   `json:"case_ids"`
	Status     ReportStatus  `json:"status"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt *time.Time    `json:"finished_at,omitempty"`
	Results    []CaseResult  `json:"results"`
	Summary    ReportSummary `json:"summary"`
	Error      string        `json:"error,omitempty"`
}

// NewTestReport snapshots suite into a PENDING report with one pending result
// per referenced case.
func NewTestReport(suite *TestSuite, now time.Time) *TestReport {
	caseIDs := append([]uuid.UUID{}, suite.CaseIDs...)
	results := make([]CaseResult, len(caseIDs))
	for i, id := range caseIDs {
		results[i] = CaseResult{TestCaseID: id, Status: CaseStatusPending}
	}
	r := &TestReport{
		SuiteID:   suite.ID,
		SuiteName: suite.Name,
		CaseIDs:   caseIDs,
		Status:    ReportStatusPending,
		StartedAt: now,
		Results:   results,
	}
	r.Summarize()
	return r
}

// Transition moves the report to next, stamping FinishedAt on terminal states.
func (r *TestReport) Transition(next ReportStatus, now time.Time) error {
	if !r.Status.CanTransitionTo(next) {
		return fmt.Errorf("report %s: %s -> %s: %w", r.ID, r.Status, next, errs.Conflict)
	}
	r.Status = next
	if next.IsTerminal() {
		finished := now
		r.FinishedAt = &finished
		r.Summarize()
	}
	return nil
}

// RecordOutcome stores the result of one case. Only a running report accepts outcomes.
func (r *TestReport) RecordOutcome(o CaseOutcome) error {
	if r.Status != ReportStatusRunning {
		return fmt.Errorf("report %s is %s: %w", r.ID, r.Status, errs.Conflict)
	}
	if o.Index < 0 || o.Index >= len(r.Results) {
		return fmt.Errorf("outcome index %d out of range [0,%d): %w", o.Index, len(r.Results), errs.InvalidArgument)
	}
	if o.Result.TestCaseID != uuid.Nil && o.Result.TestCaseID != r.CaseIDs[o.Index] {
		return fmt.Errorf("outcome for %s does not match case %s at index %d: %w",
			o.Result.TestCaseID, r.CaseIDs[o.Index], o.Index, errs.InvalidArgument)
	}
	res := o.Result
	res.TestCaseID = r.CaseIDs[o.Index]
	r.Results[o.Index] = res
	r.Summarize()
	return nil
}

// Reported reports whether every case has a non-pending result.
func (r *TestReport) Reported() bool {
	for _, res := range r.Results {
		if res.Status == CaseStatusPending {
			return false
		}
	}
	return true
}

func (r *TestReport) Summarize() {
	s := ReportSummary{Total: len(r.Results)}
	for _, res := range r.Results {
		switch res.Status {
		case CaseStatusPassed:
			s.Passed++
		case CaseStatusFailed:
			s.Failed++
		case CaseStatusError:
			s.Errored++
		default:
			s.Pending++
		}
	}
	r.Summary = s
}

func (r *TestReport) Clone() *TestReport {
	if r == nil {
		return nil
	}
	cp := *r
	cp.CaseIDs = append([]uuid.UUID{}, r.CaseIDs...)
	if r.FinishedAt != nil {
		f := *r.FinishedAt
		cp.FinishedAt = &f
	}
	cp.Results = make([]CaseResult, len(r.Results))
	for i, res := range r.Results {
		res.Assertions = append([]AssertionResult(nil), res.Assertions...)
		res.RequestHeaders = cloneHeaders(res.RequestHeaders)
		res.ResponseHeaders = cloneHeaders(res.ResponseHeaders)
		if res.StartedAt != nil {
			t := *res.StartedAt
			res.StartedAt = &t
		}
		cp.Results[i] = res
	}
	return &cp
}

func cloneHeaders(h map[string]string) map[string]string {
	if h == nil {
		return nil
	}
	out := make(map[string]string, len(h))
	for k, v := range h {
		out[k] = v
	}
	return out
}

type TestReportTable struct {
	ID         string
	SuiteID    string
	SuiteName  string
	CaseIDs    string
	Status     string
	StartedAt  string
	FinishedAt string
	Results    string
	Summary    string
	Error      string
}

func GetTestReportTable() TestReportTable {
	return TestReportTable{
		ID:         "id",
		SuiteID:    "suite_id",
		SuiteName:  "suite_name",
		CaseIDs:    "case_ids",
		Status:     "status",
		StartedAt:  "started_at",
		FinishedAt: "finished_at",
		Results:    "results",
		Summary:    "summary",
		Error:      "error_message",
	}
}

func (TestReportTable) TableName() string {
	return "test_reports"
}

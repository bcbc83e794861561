package domain

import (
	"time"

	"github.com/google/uuid"
)

// TestSuite is a named, ordered list of test case references.
type TestSuite struct {
	ID          uuid.UUID   `json:"id"`
	Name        string      `json:"name"`
	Description *string     `json:"description,omitempty"`
	CaseIDs     []uuid.UUID `json:"case_ids"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

func (s *TestSuite) Clone() *TestSuite {
	if s == nil {
		return nil
	}
	cp := *s
	if s.Description != nil {
		d := *s.Description
		cp.Description = &d
	}
	cp.CaseIDs = append([]uuid.UUID{}, s.CaseIDs...)
	return &cp
}

// RemoveCase drops every reference to caseID and reports whether the list changed.
// The remaining members keep their relative order.
func (s *TestSuite) RemoveCase(caseID uuid.UUID) bool {
	kept := s.CaseIDs[:0]
	removed := false
	for _, id := range s.CaseIDs {
		if id == caseID {
			removed = true
			continue
		}
		kept = append(kept, id)
	}
	s.CaseIDs = kept
	return removed
}

// Contains reports whether caseID is referenced by the suite.
func (s *TestSuite) Contains(caseID uuid.UUID) bool {
	for _, id := range s.CaseIDs {
		if id == caseID {
			return true
		}
	}
	return false
}

type TestSuiteTable struct {
	ID          string
	Name        string
	Description string
	CreatedAt   string
	UpdatedAt   string
}

func GetTestSuiteTable() TestSuiteTable {
	return TestSuiteTable{
		ID:          "id",
		Name:        "name",
		Description: "description",
		CreatedAt:   "created_at",
		UpdatedAt:   "updated_at",
	}
}

func (TestSuiteTable) TableName() string {
	return "test_suites"
}

type SuiteCaseTable struct {
	SuiteID    string
	TestCaseID string
	Position   string
}

func GetSuiteCaseTable() SuiteCaseTable {
	return SuiteCaseTable{
		SuiteID:    "suite_id",
		TestCaseID: "test_case_id",
		Position:   "position",
	}
}

func (SuiteCaseTable) TableName() string {
	return "test_suite_cases"
}

package testcases

import (
	"encoding/json"

	"github.com/google/uuid"

	"gitlab.com/testhub.net/internal/domain"
)

type CreateTestCaseRequest struct {
	ModuleID     uuid.UUID          `json:"module_id"`
	Title        string             `json:"title"`
	Description  *string            `json:"description"`
	Method       string             `json:"method"`
	URL          string             `json:"url"`
	ContentType  string             `json:"content_type"`
	Headers      map[string]string  `json:"headers"`
	Body         json.RawMessage    `json:"body"`
	ExtractRules map[string]string  `json:"extract_rules"`
	Assertions   []domain.Assertion `json:"assertions"`
}

func (r CreateTestCaseRequest) TestCase() *domain.TestCase {
	return &domain.TestCase{
		ModuleID:     r.ModuleID,
		Title:        r.Title,
		Description:  r.Description,
		Method:       r.Method,
		URL:          r.URL,
		ContentType:  r.ContentType,
		Headers:      r.Headers,
		Body:         r.Body,
		ExtractRules: r.ExtractRules,
		Assertions:   r.Assertions,
	}
}

// UpdateTestCaseRequest is a partial update; absent keys stay unchanged.
type UpdateTestCaseRequest struct {
	ModuleID     *uuid.UUID         `json:"module_id"`
	Title        *string            `json:"title"`
	Description  *string            `json:"description"`
	Method       *string            `json:"method"`
	URL          *string            `json:"url"`
	ContentType  *string            `json:"content_type"`
	Headers      map[string]string  `json:"headers"`
	Body         json.RawMessage    `json:"body"`
	ExtractRules map[string]string  `json:"extract_rules"`
	Assertions   []domain.Assertion `json:"assertions"`
}

func (r UpdateTestCaseRequest) Patch() domain.TestCasePatch {
	return domain.TestCasePatch{
		ModuleID:     r.ModuleID,
		Title:        r.Title,
		Description:  r.Description,
		Method:       r.Method,
		URL:          r.URL,
		ContentType:  r.ContentType,
		Headers:      r.Headers,
		Body:         r.Body,
		ExtractRules: r.ExtractRules,
		Assertions:   r.Assertions,
	}
}

type BatchDeleteRequest struct {
	IDs []uuid.UUID `json:"ids"`
}

type BatchDeleteResponse struct {
	Results []domain.BatchItemResult `json:"results"`
	Deleted int                      `json:"deleted"`
}

type ReorderRequest struct {
	OrderedIDs []uuid.UUID `json:"ordered_ids"`
}

package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Assertion comparators understood by the executor.
const (
	ComparatorEquals     = "equals"
	ComparatorContains   = "contains"
	ComparatorJSONEquals = "json_equals"
)

// Assertion checks one aspect of a response.
// Check is "status_code", "json" or "json.<path>".
type Assertion struct {
	Check      string `json:"check" yaml:"check"`
	Comparator string `json:"comparator" yaml:"comparator"`
	Expect     any    `json:"expect" yaml:"expect"`
}

// TestCase is a single HTTP API test definition. SequenceIndex is its dense
// zero-based rank inside the owning module.
type TestCase struct {
	ID            uuid.UUID         `json:"id"`
	ModuleID      uuid.UUID         `json:"module_id"`
	Title         string            `json:"title"`
	Description   *string           `json:"description,omitempty"`
	Method        string            `json:"method"`
	URL           string            `json:"url"`
	ContentType   string            `json:"content_type"`
	Headers       map[string]string `json:"headers,omitempty"`
	Body          json.RawMessage   `json:"body,omitempty"`
	ExtractRules  map[string]string `json:"extract_rules,omitempty"`
	Assertions    []Assertion       `json:"assertions,omitempty"`
	SequenceIndex int               `json:"sequence_index"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

// Clone returns a deep copy of c.
func (c *TestCase) Clone() *TestCase {
	if c == nil {
		return nil
	}
	cp := *c
	if c.Description != nil {
		d := *c.Description
		cp.Description = &d
	}
	if c.Headers != nil {
		cp.Headers = make(map[string]string, len(c.Headers))
		for k, v := range c.Headers {
			cp.Headers[k] = v
		}
	}
	if c.Body != nil {
		cp.Body = append(json.RawMessage(nil), c.Body...)
	}
	if c.ExtractRules != nil {
		cp.ExtractRules = make(map[string]string, len(c.ExtractRules))
		for k, v := range c.ExtractRules {
			cp.ExtractRules[k] = v
		}
	}
	if c.Assertions != nil {
		cp.Assertions = append([]Assertion(nil), c.Assertions...)
	}
	return &cp
}

// CopyAsNew duplicates the field data of c into a fresh, unsaved test case.
// Identity, timestamps and position are left for the store to assign.
func (c *TestCase) CopyAsNew() *TestCase {
	cp := c.Clone()
	cp.ID = uuid.Nil
	cp.SequenceIndex = 0
	cp.CreatedAt = time.Time{}
	cp.UpdatedAt = time.Time{}
	return cp
}

type TestCaseTable struct {
	ID            string
	ModuleID      string
	Title         string
	Description   string
	Method        string
	URL           string
	ContentType   string
	Headers       string
	Body          string
	ExtractRules  string
	Assertions    string
	SequenceIndex string
	CreatedAt     string
	UpdatedAt     string
}

func GetTestCaseTable() TestCaseTable {
	return TestCaseTable{
		ID:            "id",
		ModuleID:      "module_id",
		Title:         "title",
		Description:   "description",
		Method:        "method",
		URL:           "url",
		ContentType:   "content_type",
		Headers:       "headers",
		Body:          "body",
		ExtractRules:  "extract_rules",
		Assertions:    "assertions",
		SequenceIndex: "sequence_index",
		CreatedAt:     "created_at",
		UpdatedAt:     "updated_at",
	}
}

func (TestCaseTable) TableName() string {
	return "test_cases"
}

// BatchItemStatus is the per-id outcome of a batch mutation.
type BatchItemStatus string

const (
	BatchItemDeleted  BatchItemStatus = "DELETED"
	BatchItemNotFound BatchItemStatus = "NOT_FOUND"
	BatchItemConflict BatchItemStatus = "CONFLICT"
)

// BatchItemResult reports what happened to one id of a batch request.
type BatchItemResult struct {
	ID      uuid.UUID       `json:"id"`
	Status  BatchItemStatus `json:"status"`
	Message string          `json:"message,omitempty"`
}

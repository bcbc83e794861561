package domain

import (
	"encoding/json"

	"github.com/google/uuid"
)

// ModulePatch carries the fields of a partial module update. Nil means unchanged.
type ModulePatch struct {
	Name         *string
	Description  *string
	ParentID     *uuid.UUID
	DetachParent bool
}

func (p ModulePatch) Apply(m *Module) {
	if p.Name != nil {
		m.Name = *p.Name
	}
	if p.Description != nil {
		d := *p.Description
		m.Description = &d
	}
	if p.DetachParent {
		m.ParentID = nil
	} else if p.ParentID != nil {
		id := *p.ParentID
		m.ParentID = &id
	}
}

// TestCasePatch carries the fields of a partial test case update. A non-nil
// ModuleID moves the case to the end of that module.
type TestCasePatch struct {
	ModuleID     *uuid.UUID
	Title        *string
	Description  *string
	Method       *string
	URL          *string
	ContentType  *string
	Headers      map[string]string
	Body         json.RawMessage
	ExtractRules map[string]string
	Assertions   []Assertion
}

// Apply copies the supplied fields onto c. ModuleID is left to the caller.
func (p TestCasePatch) Apply(c *TestCase) {
	if p.Title != nil {
		c.Title = *p.Title
	}
	if p.Description != nil {
		d := *p.Description
		c.Description = &d
	}
	if p.Method != nil {
		c.Method = *p.Method
	}
	if p.URL != nil {
		c.URL = *p.URL
	}
	if p.ContentType != nil {
		c.ContentType = *p.ContentType
	}
	if p.Headers != nil {
		c.Headers = p.Headers
	}
	if p.Body != nil {
		c.Body = p.Body
	}
	if p.ExtractRules != nil {
		c.ExtractRules = p.ExtractRules
	}
	if p.Assertions != nil {
		c.Assertions = p.Assertions
	}
}

// SuitePatch carries the fields of a partial suite update. A non-nil CaseIDs
// replaces the whole list.
type SuitePatch struct {
	Name        *string
	Description *string
	CaseIDs     []uuid.UUID
}

func (p SuitePatch) Apply(s *TestSuite) {
	if p.Name != nil {
		s.Name = *p.Name
	}
	if p.Description != nil {
		d := *p.Description
		s.Description = &d
	}
	if p.CaseIDs != nil {
		s.CaseIDs = append([]uuid.UUID{}, p.CaseIDs...)
	}
}

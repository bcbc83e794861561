// Package fixtures loads modules, test cases and suites from a YAML document.
//
//	modules:
//	  - name: auth
//	    cases:
//	      - title: login
//	        method: POST
//	        url: "{{base_url}}/login"
//	        body: {user: bob}
//	        extract_rules: {token: $.data.token}
//	        assertions:
//	          - {check: status_code, comparator: equals, expect: 200}
//	    children:
//	      - name: sessions
//	suites:
//	  - name: smoke
//	    cases:
//	      - {module: auth, case: login}
package fixtures

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"gitlab.com/testhub.net/internal/core/ports/primary"
	"gitlab.com/testhub.net/internal/core/services/module"
	"gitlab.com/testhub.net/internal/core/services/suite"
	"gitlab.com/testhub.net/internal/core/services/testcase"
	"gitlab.com/testhub.net/internal/domain"
	"gitlab.com/testhub.net/internal/static/errs"
)

type Document struct {
	Modules []Module `yaml:"modules"`
	Suites  []Suite  `yaml:"suites"`
}

type Module struct {
	Name        string   `yaml:"name"`
	Description *string  `yaml:"description"`
	Cases       []Case   `yaml:"cases"`
	Children    []Module `yaml:"children"`
}

type Case struct {
	Title        string             `yaml:"title"`
	Description  *string            `yaml:"description"`
	Method       string             `yaml:"method"`
	URL          string             `yaml:"url"`
	ContentType  string             `yaml:"content_type"`
	Headers      map[string]string  `yaml:"headers"`
	Body         interface{}        `yaml:"body"`
	ExtractRules map[string]string  `yaml:"extract_rules"`
	Assertions   []domain.Assertion `yaml:"assertions"`
}

type Suite struct {
	Name        string    `yaml:"name"`
	Description *string   `yaml:"description"`
	Cases       []CaseRef `yaml:"cases"`
}

// CaseRef names a case by module name and case title.
type CaseRef struct {
	Module string `yaml:"module"`
	Case   string `yaml:"case"`
}

type Summary struct {
	Modules int
	Cases   int
	Suites  int
}

func Parse(r io.Reader) (*Document, error) {
	var doc Document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return &doc, nil
		}
		return nil, fmt.Errorf("failed to parse fixtures: %w", err)
	}
	return &doc, nil
}

type Loader struct {
	modules   module.IModuleService
	testCases testcase.ITestCaseService
	suites    suite.ISuiteService
	logger    primary.Logger
}

func NewLoader(modules module.IModuleService, testCases testcase.ITestCaseService, suites suite.ISuiteService, logger primary.Logger) *Loader {
	return &Loader{
		modules:   modules,
		testCases: testCases,
		suites:    suites,
		logger:    logger,
	}
}

// Load creates everything in doc through the services, so ordering and
// validation rules apply as they do for API calls. Loading stops at the first
// error; entities created before it are kept.
func (l *Loader) Load(ctx context.Context, doc *Document) (Summary, error) {
	var summary Summary
	cases := make(map[CaseRef]uuid.UUID)

	for _, m := range doc.Modules {
		if err := l.loadModule(ctx, m, nil, cases, &summary); err != nil {
			return summary, err
		}
	}

	for _, s := range doc.Suites {
		ids := make([]uuid.UUID, 0, len(s.Cases))
		for _, ref := range s.Cases {
			id, ok := cases[ref]
			if !ok {
				return summary, fmt.Errorf("suite %q references unknown case %q in module %q: %w", s.Name, ref.Case, ref.Module, errs.InvalidArgument)
			}
			ids = append(ids, id)
		}
		created, err := l.suites.CreateSuite(ctx, s.Name, s.Description, ids)
		if err != nil {
			l.logger.Error("Failed to import suite", "suite", s.Name, "error", err)
			return summary, fmt.Errorf("failed to import suite %q: %w", s.Name, err)
		}
		l.logger.Debug("Suite imported", "suiteId", created.ID, "cases", len(ids))
		summary.Suites++
	}
	return summary, nil
}

func (l *Loader) loadModule(ctx context.Context, m Module, parentID *uuid.UUID, cases map[CaseRef]uuid.UUID, summary *Summary) error {
	created, err := l.modules.CreateModule(ctx, m.Name, m.Description, parentID)
	if err != nil {
		l.logger.Error("Failed to import module", "module", m.Name, "error", err)
		return fmt.Errorf("failed to import module %q: %w", m.Name, err)
	}
	summary.Modules++

	for _, c := range m.Cases {
		tc, err := c.testCase(created.ID)
		if err != nil {
			return fmt.Errorf("case %q of module %q: %w", c.Title, m.Name, err)
		}
		saved, err := l.testCases.CreateTestCase(ctx, tc)
		if err != nil {
			l.logger.Error("Failed to import test case", "module", m.Name, "title", c.Title, "error", err)
			return fmt.Errorf("failed to import case %q of module %q: %w", c.Title, m.Name, err)
		}
		ref := CaseRef{Module: m.Name, Case: c.Title}
		if _, dup := cases[ref]; dup {
			l.logger.Warn("Case reference is ambiguous, suites will use the last one", "module", m.Name, "title", c.Title)
		}
		cases[ref] = saved.ID
		summary.Cases++
	}

	for _, child := range m.Children {
		if err := l.loadModule(ctx, child, &created.ID, cases, summary); err != nil {
			return err
		}
	}
	return nil
}

func (c Case) testCase(moduleID uuid.UUID) (*domain.TestCase, error) {
	tc := &domain.TestCase{
		ModuleID:     moduleID,
		Title:        c.Title,
		Description:  c.Description,
		Method:       c.Method,
		URL:          c.URL,
		ContentType:  c.ContentType,
		Headers:      c.Headers,
		ExtractRules: c.ExtractRules,
		Assertions:   c.Assertions,
	}
	if c.Body != nil {
		raw, err := json.Marshal(c.Body)
		if err != nil {
			return nil, fmt.Errorf("body is not representable as JSON: %w", errs.InvalidArgument)
		}
		tc.Body = raw
	}
	return tc, nil
}

// Package httprunner executes HTTP API test cases. Cases of one run are sent
// in order so that values extracted from a response can feed later requests.
package httprunner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"gitlab.com/testhub.net/internal/config"
	"gitlab.com/testhub.net/internal/core/ports/primary"
	"gitlab.com/testhub.net/internal/core/ports/secondary"
	"gitlab.com/testhub.net/internal/domain"
)

var _ secondary.Executor = (*Runner)(nil)

// Responses are kept in the report up to this size.
const maxResponseBytes = 64 << 10

type Runner struct {
	client    *http.Client
	variables Variables
	timeout   time.Duration
	logger    primary.Logger
	clock     func() time.Time
}

// Option configures a Runner
type Option func(*Runner)

// WithHTTPClient replaces the default client.
func WithHTTPClient(client *http.Client) Option {
	return func(r *Runner) {
		r.client = client
	}
}

func NewRunner(cfg *config.ExecutionConfig, logger primary.Logger, options ...Option) *Runner {
	r := &Runner{
		client:    &http.Client{},
		variables: Variables(cfg.Variables).clone(),
		timeout:   cfg.RequestTimeout,
		logger:    logger,
		clock:     time.Now,
	}
	for _, option := range options {
		option(r)
	}
	return r
}

// Execute runs cases one after another. Only a cancelled context stops the
// run early; individual request failures become ERROR results.
func (r *Runner) Execute(ctx context.Context, cases []*domain.TestCase, outcomes chan<- domain.CaseOutcome) error {
	vars := r.variables.clone()
	for i, c := range cases {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("run interrupted before case %d: %w", i, err)
		}

		result := r.runCase(ctx, c, vars)
		select {
		case outcomes <- domain.CaseOutcome{Index: i, Result: result}:
		case <-ctx.Done():
			return fmt.Errorf("run interrupted at case %d: %w", i, ctx.Err())
		}
	}
	return nil
}

func (r *Runner) runCase(ctx context.Context, c *domain.TestCase, vars Variables) domain.CaseResult {
	started := r.clock().UTC()
	result := domain.CaseResult{
		TestCaseID: c.ID,
		Title:      c.Title,
		Method:     c.Method,
		URL:        vars.Expand(c.URL),
		StartedAt:  &started,
	}

	req, payload, err := r.buildRequest(ctx, c, result.URL, vars)
	if err != nil {
		result.Status = domain.CaseStatusError
		result.Error = err.Error()
		return result
	}
	result.RequestHeaders = flattenHeader(req.Header)
	result.RequestBody = truncate([]byte(payload))

	if r.timeout > 0 {
		reqCtx, cancel := context.WithTimeout(req.Context(), r.timeout)
		defer cancel()
		req = req.WithContext(reqCtx)
	}

	resp, err := r.client.Do(req)
	result.DurationMs = time.Since(started).Milliseconds()
	if err != nil {
		r.logger.Warn("Test case request failed", "caseId", c.ID, "url", result.URL, "error", err)
		result.Status = domain.CaseStatusError
		result.Error = err.Error()
		return result
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	result.DurationMs = time.Since(started).Milliseconds()
	result.StatusCode = resp.StatusCode
	result.ResponseHeaders = flattenHeader(resp.Header)
	if err != nil {
		result.Status = domain.CaseStatusError
		result.Error = fmt.Sprintf("failed to read response: %v", err)
		return result
	}
	result.Response = truncate(body)

	isJSON := gjson.ValidBytes(body) && len(bytes.TrimSpace(body)) > 0
	if isJSON {
		r.extract(c, body, vars)
	}

	result.Status = domain.CaseStatusPassed
	for _, a := range c.Assertions {
		ar := evaluate(a, resp.StatusCode, body, isJSON)
		result.Assertions = append(result.Assertions, ar)
		if !ar.Passed {
			result.Status = domain.CaseStatusFailed
		}
	}
	return result
}

// buildRequest returns the request and the encoded body it carries.
func (r *Runner) buildRequest(ctx context.Context, c *domain.TestCase, target string, vars Variables) (*http.Request, string, error) {
	headers := vars.ExpandHeaders(c.Headers)
	contentType := c.ContentType
	for k, v := range headers {
		if strings.EqualFold(k, "Content-Type") {
			contentType = v
		}
	}

	var (
		payload io.Reader
		encoded string
	)
	if len(c.Body) > 0 && string(c.Body) != "null" {
		var err error
		if encoded, err = encodeBody(c.Body, contentType, vars); err != nil {
			return nil, "", err
		}
		payload = strings.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, c.Method, target, payload)
	if err != nil {
		return nil, "", fmt.Errorf("failed to build request: %w", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	if payload != nil && req.Header.Get("Content-Type") == "" && contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	return req, encoded, nil
}

// encodeBody expands variables in the stored body and encodes it as JSON for
// JSON content types and as a form otherwise.
func encodeBody(raw json.RawMessage, contentType string, vars Variables) (string, error) {
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return "", fmt.Errorf("stored body is not valid JSON: %w", err)
	}
	expanded := vars.ExpandValue(decoded)

	if strings.Contains(strings.ToLower(contentType), "json") {
		out, err := json.Marshal(expanded)
		if err != nil {
			return "", fmt.Errorf("failed to encode body: %w", err)
		}
		return string(out), nil
	}

	switch v := expanded.(type) {
	case string:
		return v, nil
	case map[string]any:
		form := url.Values{}
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			form.Set(k, scalarString(v[k]))
		}
		return form.Encode(), nil
	default:
		return scalarString(v), nil
	}
}

func scalarString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case nil:
		return ""
	case map[string]any, []any:
		out, _ := json.Marshal(t)
		return string(out)
	default:
		return fmt.Sprint(t)
	}
}

// extract stores the first match of every rule in vars. Rules that match
// nothing leave the variable untouched.
func (r *Runner) extract(c *domain.TestCase, body []byte, vars Variables) {
	for name, path := range c.ExtractRules {
		res := gjson.GetBytes(body, toGJSONPath(path))
		if !res.Exists() {
			r.logger.Warn("Extraction matched nothing", "caseId", c.ID, "variable", name, "path", path)
			continue
		}
		vars[name] = res.String()
		r.logger.Debug("Variable extracted", "caseId", c.ID, "variable", name)
	}
}

// flattenHeader joins repeated values with ", ".
func flattenHeader(h http.Header) map[string]string {
	if len(h) == 0 {
		return nil
	}
	out := make(map[string]string, len(h))
	for k, v := range h {
		out[k] = strings.Join(v, ", ")
	}
	return out
}

func truncate(body []byte) string {
	if len(body) <= maxResponseBytes {
		return string(body)
	}
	return string(body[:maxResponseBytes])
}

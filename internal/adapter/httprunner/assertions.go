package httprunner

import (
	"encoding/json"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"

	"gitlab.com/testhub.net/internal/domain"
)

var bracketIndex = regexp.MustCompile(`\[(\d+)\]`)

// toGJSONPath accepts both "$.data.items[0].id" and "data.items.0.id".
func toGJSONPath(path string) string {
	path = strings.TrimSpace(path)
	path = strings.TrimPrefix(path, "$")
	path = bracketIndex.ReplaceAllString(path, ".$1")
	return strings.TrimPrefix(path, ".")
}

// lookup evaluates path on a JSON document. ok is false when nothing matched.
func lookup(body []byte, path string) (any, bool) {
	res := gjson.GetBytes(body, toGJSONPath(path))
	if !res.Exists() {
		return nil, false
	}
	return res.Value(), true
}

// evaluate checks one assertion against the response.
func evaluate(a domain.Assertion, statusCode int, body []byte, isJSON bool) domain.AssertionResult {
	result := domain.AssertionResult{
		Check:      a.Check,
		Comparator: a.Comparator,
		Expect:     a.Expect,
	}

	switch {
	case a.Check == "status_code":
		result.Actual = statusCode
	case a.Check == "json":
		if !isJSON {
			result.Message = "response is not valid JSON"
			return result
		}
		var doc any
		_ = json.Unmarshal(body, &doc)
		result.Actual = doc
	case strings.HasPrefix(a.Check, "json."):
		if !isJSON {
			result.Message = "response is not valid JSON"
			return result
		}
		path := strings.TrimPrefix(a.Check, "json.")
		actual, ok := lookup(body, path)
		if !ok {
			result.Message = fmt.Sprintf("path %q not found in response", path)
			return result
		}
		result.Actual = actual
	default:
		result.Message = fmt.Sprintf("unknown check %q", a.Check)
		return result
	}

	expect, actual := normalize(a.Expect), normalize(result.Actual)
	switch a.Comparator {
	case domain.ComparatorEquals:
		result.Passed = reflect.DeepEqual(actual, expect) || looseEqual(actual, expect)
	case domain.ComparatorJSONEquals:
		result.Passed = reflect.DeepEqual(actual, expect)
	case domain.ComparatorContains:
		result.Passed = contains(actual, expect)
	default:
		result.Message = fmt.Sprintf("unknown comparator %q", a.Comparator)
		return result
	}

	if !result.Passed {
		result.Message = fmt.Sprintf("actual value %v does not satisfy %s %v", result.Actual, a.Comparator, a.Expect)
	}
	return result
}

// normalize maps any value onto the types encoding/json decodes into, so
// that 200 and 200.0 compare equal.
func normalize(v any) any {
	raw, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return v
	}
	return out
}

// looseEqual lets scalar assertions written as strings match numbers and
// booleans, e.g. expect "200" against status 200.
func looseEqual(actual, expect any) bool {
	if isComposite(actual) || isComposite(expect) {
		return false
	}
	return fmt.Sprint(actual) == fmt.Sprint(expect)
}

func isComposite(v any) bool {
	switch v.(type) {
	case map[string]any, []any:
		return true
	}
	return false
}

// contains is a recursive subset match: every key of an expected object must
// be present and contained, every expected list item must be contained in
// some actual item, scalars must be equal. A string also contains any of its
// substrings.
func contains(actual, expect any) bool {
	switch e := expect.(type) {
	case map[string]any:
		a, ok := actual.(map[string]any)
		if !ok {
			return false
		}
		for k, ev := range e {
			av, ok := a[k]
			if !ok || !contains(av, ev) {
				return false
			}
		}
		return true
	case []any:
		a, ok := actual.([]any)
		if !ok {
			return false
		}
		for _, ev := range e {
			found := false
			for _, av := range a {
				if contains(av, ev) {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		}
		return true
	case string:
		if s, ok := actual.(string); ok {
			return strings.Contains(s, e)
		}
		return false
	default:
		return reflect.DeepEqual(actual, expect)
	}
}

package httprunner

import (
	"regexp"
	"strings"
)

var (
	// "{{base}}/path": a variable at the very start followed by the rest of a url.
	leadingVar = regexp.MustCompile(`^\{\{(\w+)\}\}(.+)$`)
	anyVar     = regexp.MustCompile(`\{\{(\w+?)\}\}`)
)

// Variables is the run-scoped substitution table. Values extracted from one
// response are visible to every later case of the same run.
type Variables map[string]string

func (v Variables) clone() Variables {
	cp := make(Variables, len(v))
	for k, val := range v {
		cp[k] = val
	}
	return cp
}

// Expand substitutes {{name}} placeholders. Unknown names are left as they
// are. A string that starts with a known variable and continues with a path,
// or whose leading variable is a url, is joined with exactly one slash.
func (v Variables) Expand(s string) string {
	if m := leadingVar.FindStringSubmatch(s); m != nil {
		if base, ok := v[m[1]]; ok && (looksLikePath(m[2]) || strings.Contains(base, "://")) {
			return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(v.Expand(m[2]), "/")
		}
	}
	return anyVar.ReplaceAllStringFunc(s, func(match string) string {
		name := match[2 : len(match)-2]
		if val, ok := v[name]; ok {
			return val
		}
		return match
	})
}

func looksLikePath(rest string) bool {
	return strings.HasPrefix(rest, "/") || strings.HasPrefix(rest, "?")
}

// ExpandValue walks decoded JSON and expands every string in it.
func (v Variables) ExpandValue(value any) any {
	switch t := value.(type) {
	case string:
		return v.Expand(t)
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[k] = v.ExpandValue(item)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = v.ExpandValue(item)
		}
		return out
	default:
		return value
	}
}

func (v Variables) ExpandHeaders(headers map[string]string) map[string]string {
	out := make(map[string]string, len(headers))
	for k, val := range headers {
		out[k] = v.Expand(val)
	}
	return out
}

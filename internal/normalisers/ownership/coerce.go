package ownership

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Coerce applies rules to a tree rooted inside the document element and
// returns a new tree. The input is not modified. Empty strings are
// replaced by nil after coercion.
func Coerce(tree Tree, rules []FieldRule) (Tree, error) {
	out, err := coerceNode(tree, "", rules, KindDefault)
	if err != nil {
		return nil, err
	}
	m, _ := dropEmpty(out).(Tree)
	return m, nil
}

func coerceValue(v any, path string, rules []FieldRule) (any, error) {
	kind := KindOf(rules, path)

	if list, ok := v.([]any); ok {
		out := make([]any, 0, len(list))
		for _, item := range list {
			c, err := coerceNode(item, path, rules, kind)
			if err != nil {
				return nil, err
			}
			out = append(out, c)
		}
		return out, nil
	}

	c, err := coerceNode(v, path, rules, kind)
	if err != nil {
		return nil, err
	}
	if kind == KindArray {
		return []any{c}, nil
	}
	return c, nil
}

func coerceNode(v any, path string, rules []FieldRule, kind FieldKind) (any, error) {
	switch t := v.(type) {
	case Tree:
		out := make(Tree, len(t))
		for key, child := range t {
			c, err := coerceValue(child, joinPath(path, key), rules)
			if err != nil {
				return nil, err
			}
			out[key] = c
		}
		return out, nil

	case string:
		return coerceScalar(t, path, kind)

	default:
		return v, nil
	}
}

func coerceScalar(s, path string, kind FieldKind) (any, error) {
	s = strings.TrimSpace(s)
	switch kind {
	case KindDate:
		if s == "" {
			return s, nil
		}
		d, err := ParseDate(s)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return d, nil

	case KindBool:
		return ParseBool(s), nil

	case KindFloat:
		if s == "" {
			return s, nil
		}
		f, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
		if err != nil {
			return nil, fmt.Errorf("%s: invalid number %q", path, s)
		}
		return f, nil

	default:
		return s, nil
	}
}

// ParseDate reads a day-precision date. Trailing time or zone designators
// are ignored, so "2024-01-05-05:00" is 5 January 2024 UTC.
func ParseDate(s string) (time.Time, error) {
	if len(s) < len(time.DateOnly) {
		return time.Time{}, fmt.Errorf("invalid date %q", s)
	}
	d, err := time.Parse(time.DateOnly, s[:len(time.DateOnly)])
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q", s)
	}
	return d, nil
}

// ParseBool implements the form's truth test: "1" or "true" in any case.
func ParseBool(s string) bool {
	s = strings.TrimSpace(s)
	return s == "1" || strings.EqualFold(s, "true")
}

// dropEmpty replaces every empty-string leaf with nil.
func dropEmpty(v any) any {
	switch t := v.(type) {
	case Tree:
		for key, child := range t {
			t[key] = dropEmpty(child)
		}
		return t
	case []any:
		for i, item := range t {
			t[i] = dropEmpty(item)
		}
		return t
	case string:
		if t == "" {
			return nil
		}
		return t
	default:
		return v
	}
}

func joinPath(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}

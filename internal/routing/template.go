package routing

import (
	"fmt"
	"strings"
)

// segment is one compiled template segment.
type segment struct {
	literal string
	param   string
}

// template is a compiled path template.
type template struct {
	raw      string
	segments []segment
	literals int
}

func parseTemplate(raw string) (*template, error) {
	if !strings.HasPrefix(raw, "/") {
		return nil, fmt.Errorf("template %q must start with /", raw)
	}

	t := &template{raw: raw}
	seen := make(map[string]bool)

	for _, part := range splitPath(raw) {
		if strings.HasPrefix(part, "{") && strings.HasSuffix(part, "}") {
			name := part[1 : len(part)-1]
			if name == "" {
				return nil, fmt.Errorf("template %q has an empty placeholder", raw)
			}
			if seen[name] {
				return nil, fmt.Errorf("template %q repeats placeholder %q", raw, name)
			}
			seen[name] = true
			t.segments = append(t.segments, segment{param: name})
			continue
		}
		if strings.ContainsAny(part, "{}") {
			return nil, fmt.Errorf("template %q has a partial placeholder in %q", raw, part)
		}
		t.segments = append(t.segments, segment{literal: part})
		t.literals += len(part) + 1
	}

	return t, nil
}

// match reports whether path matches and returns the captured values.
func (t *template) match(path string) (map[string]string, bool) {
	parts := splitPath(path)
	params := make(map[string]string)

	for i, seg := range t.segments {
		if i >= len(parts) {
			return nil, false
		}
		if seg.param == "" {
			if !strings.EqualFold(seg.literal, parts[i]) {
				return nil, false
			}
			continue
		}
		if i == len(t.segments)-1 {
			params[seg.param] = strings.Join(parts[i:], "/")
			return params, true
		}
		params[seg.param] = parts[i]
	}

	if len(parts) != len(t.segments) {
		return nil, false
	}
	return params, true
}

// expand substitutes params into the template.
func (t *template) expand(params map[string]string) string {
	var b strings.Builder
	for _, seg := range t.segments {
		b.WriteByte('/')
		if seg.param == "" {
			b.WriteString(seg.literal)
			continue
		}
		b.WriteString(params[seg.param])
	}
	if b.Len() == 0 {
		return "/"
	}
	return b.String()
}

func (t *template) params() []string {
	var names []string
	for _, seg := range t.segments {
		if seg.param != "" {
			names = append(names, seg.param)
		}
	}
	return names
}

func splitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

package supervisor

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownPlaceholder is returned by Render when the template names a field
// the item does not carry.
var ErrUnknownPlaceholder = errors.New("unknown template placeholder")

type segment struct {
	text        string
	placeholder bool
}

// Template is a parsed command template. Placeholders are written {name};
// {{ and }} produce literal braces.
type Template struct {
	raw      string
	segments []segment
}

// ParseTemplate validates the template syntax.
func ParseTemplate(raw string) (*Template, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, errors.New("command template is empty")
	}
	var (
		segments []segment
		literal  strings.Builder
	)
	flush := func() {
		if literal.Len() > 0 {
			segments = append(segments, segment{text: literal.String()})
			literal.Reset()
		}
	}
	for i := 0; i < len(raw); i++ {
		switch c := raw[i]; c {
		case '{':
			if i+1 < len(raw) && raw[i+1] == '{' {
				literal.WriteByte('{')
				i++
				continue
			}
			end := strings.IndexByte(raw[i+1:], '}')
			if end < 0 {
				return nil, fmt.Errorf("command template: unclosed '{' at offset %d", i)
			}
			name := raw[i+1 : i+1+end]
			if name == "" {
				return nil, fmt.Errorf("command template: empty placeholder at offset %d", i)
			}
			if strings.ContainsAny(name, "{ \t") {
				return nil, fmt.Errorf("command template: invalid placeholder %q", name)
			}
			flush()
			segments = append(segments, segment{text: name, placeholder: true})
			i += end + 1
		case '}':
			if i+1 < len(raw) && raw[i+1] == '}' {
				literal.WriteByte('}')
				i++
				continue
			}
			return nil, fmt.Errorf("command template: single '}' at offset %d", i)
		default:
			literal.WriteByte(c)
		}
	}
	flush()
	return &Template{raw: raw, segments: segments}, nil
}

// String returns the template as written.
func (t *Template) String() string { return t.raw }

// Placeholders lists the referenced field names in order of first use.
func (t *Template) Placeholders() []string {
	seen := make(map[string]struct{})
	var names []string
	for _, seg := range t.segments {
		if !seg.placeholder {
			continue
		}
		if _, ok := seen[seg.text]; ok {
			continue
		}
		seen[seg.text] = struct{}{}
		names = append(names, seg.text)
	}
	return names
}

// Program returns the executable named by the template when it is a literal,
// so it can be checked before any job runs.
func (t *Template) Program() (string, bool) {
	if len(t.segments) == 0 || t.segments[0].placeholder {
		return "", false
	}
	head := strings.TrimLeft(t.segments[0].text, " \t")
	fields := strings.Fields(head)
	if len(fields) == 0 {
		return "", false
	}
	if len(t.segments) > 1 && !strings.ContainsAny(head, " \t") {
		// Literal prefix glued to a placeholder, e.g. "bin/{tool}".
		return "", false
	}
	return fields[0], true
}

// Render substitutes params verbatim and splits the result on whitespace.
func (t *Template) Render(params map[string]string) ([]string, error) {
	var b strings.Builder
	for _, seg := range t.segments {
		if !seg.placeholder {
			b.WriteString(seg.text)
			continue
		}
		value, ok := params[seg.text]
		if !ok {
			return nil, fmt.Errorf("%w: {%s}", ErrUnknownPlaceholder, seg.text)
		}
		b.WriteString(value)
	}
	argv := strings.Fields(b.String())
	if len(argv) == 0 {
		return nil, errors.New("rendered command is empty")
	}
	return argv, nil
}

// Package uritemplate resolves parameterized chunk addresses.
//
// Templates use printf-style named placeholders:
//
//	export_%(chunk_number)02d.json
//	s3/%(project_id)s/%(job_id)s/%(timestamp)s-%(chunk_number)d.jl
//
// The integer verb accepts an optional zero-pad width. Placeholder names
// are validated against an allow-list at compile time so a typo fails
// before any sink is opened.
package uritemplate

import (
	"fmt"
	"strings"
)

// segment is one compiled piece of a template: either a literal or a
// placeholder with its fmt directive.
type segment struct {
	literal string
	name    string // empty for literals
	format  string // fmt directive, e.g. "%02d" or "%s"
	integer bool
}

// Template is a compiled address template. Resolve is pure: identical
// parameters produce identical output.
type Template struct {
	raw      string
	segments []segment
}

// Compile parses template and validates every placeholder name against
// allowed. Malformed syntax and unrecognized names fail here.
func Compile(template string, allowed []string) (*Template, error) {
	if template == "" {
		return nil, &Error{Kind: ErrBadSyntax, Template: template, Detail: "empty template"}
	}

	allowedSet := make(map[string]bool, len(allowed))
	for _, name := range allowed {
		allowedSet[name] = true
	}

	var segments []segment
	var literal strings.Builder

	flushLiteral := func() {
		if literal.Len() > 0 {
			segments = append(segments, segment{literal: literal.String()})
			literal.Reset()
		}
	}

	for i := 0; i < len(template); {
		c := template[i]
		if c != '%' {
			literal.WriteByte(c)
			i++
			continue
		}

		// "%%" is a literal percent
		if i+1 < len(template) && template[i+1] == '%' {
			literal.WriteByte('%')
			i += 2
			continue
		}

		seg, next, err := parsePlaceholder(template, i)
		if err != nil {
			return nil, err
		}
		if !allowedSet[seg.name] {
			return nil, &Error{
				Kind:     ErrUnknownPlaceholder,
				Template: template,
				Detail:   seg.name,
			}
		}
		flushLiteral()
		segments = append(segments, seg)
		i = next
	}
	flushLiteral()

	return &Template{raw: template, segments: segments}, nil
}

// parsePlaceholder parses "%(name)[0][width]verb" starting at the '%'
// at offset i. Returns the segment and the offset past the verb.
func parsePlaceholder(template string, i int) (segment, int, error) {
	badSyntax := func(detail string) (segment, int, error) {
		return segment{}, 0, &Error{Kind: ErrBadSyntax, Template: template, Detail: detail}
	}

	j := i + 1
	if j >= len(template) || template[j] != '(' {
		return badSyntax(fmt.Sprintf("stray %% at offset %d", i))
	}
	j++

	nameStart := j
	for j < len(template) && template[j] != ')' {
		j++
	}
	if j >= len(template) {
		return badSyntax("unterminated placeholder")
	}
	name := template[nameStart:j]
	if name == "" {
		return badSyntax("empty placeholder name")
	}
	j++

	// Optional zero-pad flag and width, then a one-byte verb.
	flagStart := j
	for j < len(template) && template[j] >= '0' && template[j] <= '9' {
		j++
	}
	width := template[flagStart:j]

	if j >= len(template) {
		return badSyntax(fmt.Sprintf("placeholder %q has no verb", name))
	}
	verb := template[j]
	j++

	switch verb {
	case 'd':
		return segment{name: name, format: "%" + width + "d", integer: true}, j, nil
	case 's':
		if width != "" {
			return badSyntax(fmt.Sprintf("placeholder %q: width is only valid with the d verb", name))
		}
		return segment{name: name, format: "%s", integer: false}, j, nil
	default:
		return badSyntax(fmt.Sprintf("placeholder %q has unsupported verb %q", name, string(verb)))
	}
}

// Names returns the placeholder names referenced by the template, in
// order of first appearance.
func (t *Template) Names() []string {
	seen := make(map[string]bool)
	var names []string
	for _, seg := range t.segments {
		if seg.name != "" && !seen[seg.name] {
			seen[seg.name] = true
			names = append(names, seg.name)
		}
	}
	return names
}

// String returns the raw template text.
func (t *Template) String() string { return t.raw }

// Resolve renders the template against params. Every referenced
// placeholder must be present in params; the integer verb requires an
// integer value.
func (t *Template) Resolve(params map[string]any) (string, error) {
	var b strings.Builder
	for _, seg := range t.segments {
		if seg.name == "" {
			b.WriteString(seg.literal)
			continue
		}

		value, ok := params[seg.name]
		if !ok {
			return "", &Error{Kind: ErrMissingParam, Template: t.raw, Detail: seg.name}
		}

		if seg.integer {
			n, ok := asInt64(value)
			if !ok {
				return "", &Error{
					Kind:     ErrMissingParam,
					Template: t.raw,
					Detail:   fmt.Sprintf("%s: %T is not an integer", seg.name, value),
				}
			}
			fmt.Fprintf(&b, seg.format, n)
			continue
		}

		fmt.Fprintf(&b, seg.format, fmt.Sprintf("%v", value))
	}
	return b.String(), nil
}

func asInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		return int64(n), true
	default:
		return 0, false
	}
}

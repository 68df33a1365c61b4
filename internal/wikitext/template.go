// Package wikitext extracts embedded key/value template blocks from raw wiki
// markup. It is not a full markup parser: it only understands the
// {{Name|key=value|...}} convention, nested braces and piped links, which is
// all the extraction engine needs.
package wikitext

import (
	"strconv"
	"strings"
)

// Template is one embedded template block, flattened to a key→value map.
// Positional parameters are keyed "1", "2", ...
type Template struct {
	Name   string
	Params map[string]string
}

// Is reports whether the template carries the given name, ignoring case, as
// the source markup does.
func (t Template) Is(name string) bool {
	return strings.EqualFold(t.Name, name)
}

// Get returns the named parameter value, trimmed.
func (t Template) Get(key string) string {
	return t.Params[key]
}

// ParseTemplates returns every top-level template block found in the text.
// Malformed blocks (unterminated braces) are ignored; extraction degrades to
// whatever parsed cleanly.
func ParseTemplates(text string) []Template {
	var result []Template

	for offset := 0; offset < len(text); {
		start := strings.Index(text[offset:], "{{")
		if start < 0 {
			break
		}
		start += offset

		end, ok := matchBraces(text, start)
		if !ok {
			break
		}

		body := text[start+2 : end-2]
		if template, ok := parseBody(body); ok {
			result = append(result, template)
		}
		offset = end
	}

	return result
}

// FirstTemplate returns the first template with the given name, or nil.
// The name match ignores case.
func FirstTemplate(text, name string) *Template {
	for _, template := range ParseTemplates(text) {
		if template.Is(name) {
			return &template
		}
	}
	return nil
}

// matchBraces returns the index just past the "}}" closing the "{{" at start.
func matchBraces(text string, start int) (int, bool) {
	depth := 0
	for i := start; i < len(text)-1; i++ {
		switch text[i : i+2] {
		case "{{":
			depth++
			i++
		case "}}":
			depth--
			i++
			if depth == 0 {
				return i + 1, true
			}
		}
	}
	return 0, false
}

func parseBody(body string) (Template, bool) {
	parts := splitTop(body)
	if len(parts) == 0 {
		return Template{}, false
	}

	name := strings.TrimSpace(parts[0])
	if name == "" {
		return Template{}, false
	}

	template := Template{Name: name, Params: make(map[string]string, len(parts)-1)}
	positional := 0
	for _, part := range parts[1:] {
		key, value, found := strings.Cut(part, "=")
		if found && isParamKey(key) {
			template.Params[strings.TrimSpace(key)] = strings.TrimSpace(value)
			continue
		}
		positional++
		template.Params[strconv.Itoa(positional)] = strings.TrimSpace(part)
	}

	return template, true
}

// isParamKey guards against treating "=" inside positional values (links,
// html attributes) as a parameter separator.
func isParamKey(key string) bool {
	trimmed := strings.TrimSpace(key)
	if trimmed == "" {
		return false
	}
	return !strings.ContainsAny(trimmed, "[]{}<>|")
}

// splitTop splits the template body on pipes at brace/bracket depth zero.
func splitTop(body string) []string {
	var parts []string
	depth := 0
	last := 0

	for i := 0; i < len(body); i++ {
		switch {
		case i < len(body)-1 && (body[i:i+2] == "{{" || body[i:i+2] == "[["):
			depth++
			i++
		case i < len(body)-1 && (body[i:i+2] == "}}" || body[i:i+2] == "]]"):
			depth--
			i++
		case body[i] == '|' && depth == 0:
			parts = append(parts, body[last:i])
			last = i + 1
		}
	}
	parts = append(parts, body[last:])

	return parts
}

// Package templating finds {{field}} placeholders in request templates and
// resolves them into concrete requests.
package templating

import (
	"regexp"
	"strings"

	"reqsender/internal/model"
)

// placeholderPattern matches {{name}} where name has no braces
var placeholderPattern = regexp.MustCompile(`\{\{([^{}]+)\}\}`)

// ExtractFields returns the distinct field names used by a template, in
// first-occurrence order across URL, then headers, then body.
func ExtractFields(t model.RequestTemplate) []string {
	return ExtractText(t.URL, t.HeadersText(), t.BodyText())
}

// ExtractText returns the distinct placeholder names found in texts
func ExtractText(texts ...string) []string {
	fields := []string{}
	seen := make(map[string]bool)

	for _, text := range texts {
		for _, m := range placeholderPattern.FindAllStringSubmatch(text, -1) {
			name := strings.TrimSpace(m[1])
			if name == "" || seen[name] {
				continue
			}
			seen[name] = true
			fields = append(fields, name)
		}
	}
	return fields
}

// HasFields reports whether a template needs user input before dispatch
func HasFields(t model.RequestTemplate) bool {
	return len(ExtractFields(t)) > 0
}

// MissingFields returns the template fields that have no entry in values
func MissingFields(t model.RequestTemplate, values map[string]string) []string {
	var missing []string
	for _, f := range ExtractFields(t) {
		if _, ok := values[f]; !ok {
			missing = append(missing, f)
		}
	}
	return missing
}

// replacePlaceholders swaps every {{name}} with a value in values for
// encode(value). Unknown names are left intact. Each placeholder is
// replaced once, so values containing braces are never expanded again.
func replacePlaceholders(s string, values map[string]string, encode func(string) string) string {
	if len(values) == 0 || !strings.Contains(s, "{{") {
		return s
	}
	return placeholderPattern.ReplaceAllStringFunc(s, func(match string) string {
		name := strings.TrimSpace(match[2 : len(match)-2])
		v, ok := values[name]
		if !ok {
			return match
		}
		if encode != nil {
			return encode(v)
		}
		return v
	})
}

package templating

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"reqsender/internal/model"
)

// ErrHeadersJSON is returned when headers are not a JSON object after substitution
var ErrHeadersJSON = model.ErrHeadersJSON

// SelectedTextKey wraps selected text sent without a target field
const SelectedTextKey = "selectedText"

// Substitute resolves the placeholders of t with values and returns the
// concrete request. URL values are percent-encoded; header and body
// values are inserted verbatim. Placeholders without a value stay intact.
func Substitute(t model.RequestTemplate, values map[string]string) (model.ConcreteRequest, error) {
	req := model.ConcreteRequest{
		Name:        t.Name,
		Method:      strings.ToUpper(strings.TrimSpace(t.Method)),
		URL:         replacePlaceholders(t.URL, values, encodeURIComponent),
		ContentType: t.ContentType,
	}

	headers, err := substituteHeaders(t, values)
	if err != nil {
		return req, err
	}
	req.Headers = headers

	req.Body, req.BodyIsJSON, req.Degraded = substituteBody(t, values)
	return req, nil
}

// SubstituteSelection resolves a template from a single selected text.
// With a field name only that field is replaced and other placeholders
// are left as they are. Without one, JSON templates send the body as-is
// when it is valid JSON and {"selectedText": text} otherwise, while other
// content types send the selected text as the whole body.
func SubstituteSelection(t model.RequestTemplate, selected, field string) (model.ConcreteRequest, error) {
	if field != "" {
		return Substitute(t, map[string]string{field: selected})
	}

	req, err := Substitute(t, nil)
	if err != nil {
		return req, err
	}

	if !t.IsJSON() {
		req.Body = selected
		req.BodyIsJSON = false
		req.Degraded = false
		return req, nil
	}

	if req.Body == "" || !req.BodyIsJSON {
		wrapped, err := json.Marshal(map[string]string{SelectedTextKey: selected})
		if err != nil {
			return req, err
		}
		req.Body = string(wrapped)
		req.BodyIsJSON = true
		req.Degraded = false
	}
	return req, nil
}

func substituteHeaders(t model.RequestTemplate, values map[string]string) (map[string]string, error) {
	text := strings.TrimSpace(t.HeadersText())
	headers := make(map[string]string)
	if text == "" {
		return headers, nil
	}

	var resolved string
	if json.Valid([]byte(text)) {
		out, err := rewriteJSON(text, func(s string) string {
			return replacePlaceholders(s, values, nil)
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrHeadersJSON, err)
		}
		resolved = out
	} else {
		// placeholders outside of strings; substitute textually and re-parse
		resolved = replacePlaceholders(text, values, nil)
	}

	var raw map[string]interface{}
	if err := json.Unmarshal([]byte(resolved), &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrHeadersJSON, err)
	}

	for k, v := range raw {
		switch val := v.(type) {
		case nil:
			continue
		case string:
			headers[k] = val
		default:
			b, _ := json.Marshal(val)
			headers[k] = string(b)
		}
	}
	return headers, nil
}

// substituteBody returns the body text, whether it is a JSON document,
// and whether a JSON body had to fall back to plain text.
func substituteBody(t model.RequestTemplate, values map[string]string) (string, bool, bool) {
	text := t.BodyText()
	if text == "" {
		return "", false, false
	}

	if !t.IsJSON() {
		return replacePlaceholders(text, values, nil), false, false
	}

	if json.Valid([]byte(text)) {
		out, err := rewriteJSON(text, func(s string) string {
			return replacePlaceholders(s, values, nil)
		})
		if err == nil {
			return out, true, false
		}
	}

	replaced := replacePlaceholders(text, values, nil)
	if json.Valid([]byte(replaced)) {
		return replaced, true, false
	}
	return replaced, false, true
}

// encodeURIComponent escapes s for use inside a URL, spaces as %20
func encodeURIComponent(s string) string {
	return uriComponentReplacer.Replace(url.QueryEscape(s))
}

// uriComponentReplacer undoes QueryEscape where encodeURIComponent differs
var uriComponentReplacer = strings.NewReplacer(
	"+", "%20",
	"%21", "!",
	"%27", "'",
	"%28", "(",
	"%29", ")",
	"%2A", "*",
)

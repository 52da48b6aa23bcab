package model

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Supported HTTP methods for request templates
var Methods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"}

// ContentTypeJSON triggers JSON-aware substitution and serialization
const ContentTypeJSON = "application/json"

// RequestTemplate is a saved, reusable HTTP request definition.
//
// Headers and Body are kept as raw JSON so both stored shapes survive a
// round trip: Headers is either an object or a JSON string holding an
// object, Body is either a string or any JSON value.
type RequestTemplate struct {
	ID          string          `json:"id" validate:"required"`
	Name        string          `json:"name" validate:"required"`
	URL         string          `json:"url" validate:"required"`
	Method      string          `json:"method,omitempty" validate:"omitempty,oneof=GET POST PUT PATCH DELETE HEAD OPTIONS"`
	Headers     json.RawMessage `json:"headers,omitempty"`
	Body        json.RawMessage `json:"body,omitempty"`
	ContentType string          `json:"contentType,omitempty"`
}

// IsJSON reports whether the template body is JSON-typed
func (t *RequestTemplate) IsJSON() bool {
	return IsJSONContentType(t.ContentType)
}

// HeadersText returns the headers in string form: a JSON string is
// unquoted, an object is returned as compact JSON, null or absent is "".
func (t *RequestTemplate) HeadersText() string {
	return rawText(t.Headers)
}

// BodyText returns the body in string form using the same rules as HeadersText
func (t *RequestTemplate) BodyText() string {
	return rawText(t.Body)
}

// HeadersAreString reports whether headers were stored as a serialized JSON string
func (t *RequestTemplate) HeadersAreString() bool {
	return isJSONString(t.Headers)
}

// SetBodyText stores s as a JSON string body
func (t *RequestTemplate) SetBodyText(s string) {
	if s == "" {
		t.Body = nil
		return
	}
	t.Body, _ = json.Marshal(s)
}

// SetHeaders stores a header map as a JSON object
func (t *RequestTemplate) SetHeaders(h map[string]string) {
	if len(h) == 0 {
		t.Headers = nil
		return
	}
	t.Headers, _ = json.Marshal(h)
}

// Clone returns a deep copy so callers can edit without touching the original
func (t RequestTemplate) Clone() RequestTemplate {
	c := t
	c.Headers = append(json.RawMessage(nil), t.Headers...)
	c.Body = append(json.RawMessage(nil), t.Body...)
	return c
}

// IsJSONContentType reports whether ct is application/json, ignoring parameters
func IsJSONContentType(ct string) bool {
	mt := strings.TrimSpace(strings.ToLower(strings.SplitN(ct, ";", 2)[0]))
	return mt == ContentTypeJSON
}

// IsBodylessMethod reports whether method never carries a transmitted body
func IsBodylessMethod(method string) bool {
	m := strings.ToUpper(method)
	return m == "GET" || m == "HEAD"
}

func isJSONString(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '"'
}

func rawText(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return ""
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err == nil {
			return s
		}
		return string(trimmed)
	}
	var compact bytes.Buffer
	if err := json.Compact(&compact, trimmed); err != nil {
		return string(trimmed)
	}
	return compact.String()
}

// ConcreteRequest is a template after placeholder substitution, ready to dispatch
type ConcreteRequest struct {
	Name        string            `json:"name"`
	Method      string            `json:"method"`
	URL         string            `json:"url"`
	Headers     map[string]string `json:"headers"`
	Body        string            `json:"body,omitempty"`
	ContentType string            `json:"contentType,omitempty"`

	// BodyIsJSON is set when Body holds a valid JSON document
	BodyIsJSON bool `json:"-"`
	// Degraded is set when a JSON body failed to re-parse after
	// substitution and is sent as plain text instead
	Degraded bool `json:"degraded,omitempty"`
}

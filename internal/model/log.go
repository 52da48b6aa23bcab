package model

import (
	"encoding/json"
	"time"
)

// DispatchResult is the normalized outcome of one dispatch
type DispatchResult struct {
	Success         bool              `json:"success"`
	Status          int               `json:"status"`
	StatusText      string            `json:"statusText"`
	Response        json.RawMessage   `json:"response,omitempty"`
	ResponseHeaders map[string]string `json:"responseHeaders"`
	Error           string            `json:"error,omitempty"`
	DurationMs      int64             `json:"durationMs"`
	Degraded        bool              `json:"degraded,omitempty"`
	// URL is the address actually requested, including query parameters
	// taken from a GET/HEAD body
	URL string `json:"url,omitempty"`
}

// ResponseText returns the response as display text. JSON string
// responses are unquoted, parsed JSON is returned as-is.
func (r *DispatchResult) ResponseText() string {
	return rawText(r.Response)
}

// ResponseIsJSON reports whether the response was parsed as a JSON document
func (r *DispatchResult) ResponseIsJSON() bool {
	return len(r.Response) > 0 && !isJSONString(r.Response)
}

// SetTextResponse stores s as a plain text response
func (r *DispatchResult) SetTextResponse(s string) {
	r.Response, _ = json.Marshal(s)
}

// RequestSnapshot is a copy of the dispatched request stored with a log entry
type RequestSnapshot struct {
	Name    string            `json:"name"`
	URL     string            `json:"url"`
	Method  string            `json:"method"`
	Headers map[string]string `json:"headers"`
	Body    string            `json:"body,omitempty"`
}

// LogEntry is an immutable record of one dispatch attempt
type LogEntry struct {
	ID        string          `json:"id"`
	Timestamp time.Time       `json:"timestamp"`
	Request   RequestSnapshot `json:"request"`
	Result    DispatchResult  `json:"result"`
}

// Snapshot copies a concrete request into a log snapshot
func Snapshot(req ConcreteRequest) RequestSnapshot {
	headers := make(map[string]string, len(req.Headers))
	for k, v := range req.Headers {
		headers[k] = v
	}
	snap := RequestSnapshot{
		Name:    req.Name,
		URL:     req.URL,
		Method:  req.Method,
		Headers: headers,
	}
	if !IsBodylessMethod(req.Method) {
		snap.Body = req.Body
	}
	return snap
}

package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"reqsender/internal/logger"
	"reqsender/internal/model"
)

// ImportSummary counts what an import stored
type ImportSummary struct {
	Templates int  `json:"templates"`
	Skipped   int  `json:"skipped"`
	Logs      int  `json:"logs"`
	Language  bool `json:"language"`
}

// legacyLog covers every log shape the extensions ever persisted
type legacyLog struct {
	ID        string          `json:"id"`
	Timestamp string          `json:"timestamp"`
	Request   json.RawMessage `json:"request"`
	Result    json.RawMessage `json:"result"`

	URL             string            `json:"url"`
	Method          string            `json:"method"`
	Headers         json.RawMessage   `json:"headers"`
	RequestHeaders  json.RawMessage   `json:"requestHeaders"`
	Body            json.RawMessage   `json:"body"`
	Status          int               `json:"status"`
	StatusText      string            `json:"statusText"`
	Success         bool              `json:"success"`
	Response        json.RawMessage   `json:"response"`
	ResponseHeaders map[string]string `json:"responseHeaders"`
	Error           string            `json:"error"`

	RequestDetails *struct {
		Headers json.RawMessage `json:"headers"`
	} `json:"requestDetails"`
	Webhook *struct {
		Name    string          `json:"name"`
		URL     string          `json:"url"`
		Method  string          `json:"method"`
		Headers json.RawMessage `json:"headers"`
	} `json:"webhook"`
}

// Import reads a browser storage export and stores its templates, logs and
// language preference. Templates keep their ids; logs are appended oldest
// first so the newest entry ends up at the head.
func Import(store Store, r io.Reader, profile model.Profile) (ImportSummary, error) {
	var summary ImportSummary

	var data blob
	if err := json.NewDecoder(r).Decode(&data); err != nil {
		return summary, fmt.Errorf("failed to parse storage export: %w", err)
	}

	templatesRaw := firstKey(data, profile.TemplatesKey, model.RequestProfile.TemplatesKey, model.WebhookProfile.TemplatesKey)
	if templatesRaw != nil {
		var templates []model.RequestTemplate
		if err := json.Unmarshal(templatesRaw, &templates); err != nil {
			return summary, fmt.Errorf("failed to parse templates: %w", err)
		}
		for _, t := range templates {
			if t.ID == "" {
				t.ID = uuid.New().String()
			}
			if t.Method == "" {
				t.Method = profile.DefaultMethod
			}
			if err := t.Validate(); err != nil {
				logger.Warn("Skipping template %q: %v", t.Name, err)
				summary.Skipped++
				continue
			}
			if err := store.SaveTemplate(t); err != nil {
				return summary, err
			}
			summary.Templates++
		}
	}

	logsRaw := firstKey(data, profile.LogsKey, model.RequestProfile.LogsKey, model.WebhookProfile.LogsKey)
	if logsRaw != nil {
		var logs []legacyLog
		if err := json.Unmarshal(logsRaw, &logs); err != nil {
			return summary, fmt.Errorf("failed to parse logs: %w", err)
		}
		for i := len(logs) - 1; i >= 0; i-- {
			if err := store.AppendLog(logs[i].toEntry()); err != nil {
				return summary, err
			}
			summary.Logs++
		}
	}

	if raw, ok := data[model.LanguageKey]; ok {
		var lang string
		if json.Unmarshal(raw, &lang) == nil && lang != "" {
			if err := store.SetSetting(model.LanguageKey, lang); err != nil {
				return summary, err
			}
			summary.Language = true
		}
	}

	return summary, nil
}

func firstKey(data blob, keys ...string) json.RawMessage {
	for _, key := range keys {
		if raw, ok := data[key]; ok && string(raw) != "null" {
			return raw
		}
	}
	return nil
}

// toEntry maps a stored log onto the canonical entry
func (l legacyLog) toEntry() model.LogEntry {
	entry := model.LogEntry{ID: l.ID}
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if ts, err := time.Parse(time.RFC3339Nano, l.Timestamp); err == nil {
		entry.Timestamp = ts
	}

	// Already canonical
	if len(l.Result) > 0 && bytes.HasPrefix(bytes.TrimSpace(l.Request), []byte("{")) {
		var snap model.RequestSnapshot
		var result model.DispatchResult
		if json.Unmarshal(l.Request, &snap) == nil && json.Unmarshal(l.Result, &result) == nil {
			entry.Request = snap
			entry.Result = result
			return entry
		}
	}

	var name string
	json.Unmarshal(l.Request, &name)

	snap := model.RequestSnapshot{
		Name:   name,
		URL:    l.URL,
		Method: l.Method,
	}
	headers := l.Headers
	if l.RequestDetails != nil && len(l.RequestDetails.Headers) > 0 {
		headers = l.RequestDetails.Headers
	} else if len(l.RequestHeaders) > 0 {
		headers = l.RequestHeaders
	}
	if l.Webhook != nil {
		if snap.Name == "" {
			snap.Name = l.Webhook.Name
		}
		if snap.URL == "" {
			snap.URL = l.Webhook.URL
		}
		if snap.Method == "" {
			snap.Method = l.Webhook.Method
		}
		if len(headers) == 0 {
			headers = l.Webhook.Headers
		}
	}
	snap.Headers = legacyHeaders(headers)
	if !model.IsBodylessMethod(snap.Method) {
		snap.Body = legacyText(l.Body)
	}

	result := model.DispatchResult{
		Success:         l.Success,
		Status:          l.Status,
		StatusText:      l.StatusText,
		ResponseHeaders: l.ResponseHeaders,
		Error:           l.Error,
	}
	if result.ResponseHeaders == nil {
		result.ResponseHeaders = map[string]string{}
	}
	if len(l.Response) > 0 && string(l.Response) != "null" {
		result.Response = l.Response
	}
	if !result.Success && result.Error == "" && result.Status > 0 {
		result.Error = fmt.Sprintf("%d %s", result.Status, result.StatusText)
	}

	entry.Request = snap
	entry.Result = result
	return entry
}

// legacyHeaders accepts an object or a serialized JSON object
func legacyHeaders(raw json.RawMessage) map[string]string {
	headers := map[string]string{}
	text := legacyText(raw)
	if text == "" {
		return headers
	}

	var values map[string]any
	if err := json.Unmarshal([]byte(text), &values); err != nil {
		return headers
	}
	for k, v := range values {
		switch val := v.(type) {
		case nil:
		case string:
			headers[k] = val
		default:
			b, _ := json.Marshal(val)
			headers[k] = string(b)
		}
	}
	return headers
}

// legacyText unquotes a JSON string and compacts anything else
func legacyText(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	var buf bytes.Buffer
	if json.Compact(&buf, raw) != nil {
		return string(raw)
	}
	return buf.String()
}

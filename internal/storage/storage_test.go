package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"reqsender/internal/model"
)

func openBackends(t *testing.T, opts Options) map[string]Store {
	t.Helper()
	stores := map[string]Store{}
	for _, backend := range []string{BackendSQLite, BackendJSON} {
		o := opts
		o.DataDir = t.TempDir()
		s, err := Open(backend, o)
		if err != nil {
			t.Fatalf("open %s: %v", backend, err)
		}
		t.Cleanup(func() { s.Close() })
		stores[backend] = s
	}
	return stores
}

func template(id, name string) model.RequestTemplate {
	return model.RequestTemplate{
		ID:          id,
		Name:        name,
		URL:         "https://api.example.com/" + id,
		Method:      "POST",
		Headers:     json.RawMessage(`{"X-Key":"{{key}}"}`),
		Body:        json.RawMessage(`{"id":"{{id}}"}`),
		ContentType: model.ContentTypeJSON,
	}
}

func logEntry(i int) model.LogEntry {
	return model.LogEntry{
		ID:        fmt.Sprintf("log-%d", i),
		Timestamp: time.Date(2024, 1, 1, 0, 0, i, 0, time.UTC),
		Request: model.RequestSnapshot{
			Name:    "hook",
			URL:     "https://api.example.com",
			Method:  "POST",
			Headers: map[string]string{"Content-Type": "application/json"},
			Body:    `{"n":1}`,
		},
		Result: model.DispatchResult{
			Success:         true,
			Status:          200,
			StatusText:      "OK",
			Response:        json.RawMessage(`{"ok":true}`),
			ResponseHeaders: map[string]string{"X-Trace": "abc"},
			DurationMs:      12,
		},
	}
}

func TestTemplateCRUD(t *testing.T) {
	for backend, s := range openBackends(t, Options{Profile: model.RequestProfile}) {
		t.Run(backend, func(t *testing.T) {
			if err := s.SaveTemplate(template("a", "first")); err != nil {
				t.Fatal(err)
			}
			if err := s.SaveTemplate(template("b", "second")); err != nil {
				t.Fatal(err)
			}

			updated := template("a", "renamed")
			if err := s.SaveTemplate(updated); err != nil {
				t.Fatal(err)
			}

			list, err := s.ListTemplates()
			if err != nil {
				t.Fatal(err)
			}
			if len(list) != 2 || list[0].Name != "renamed" || list[1].Name != "second" {
				t.Fatalf("unexpected list %+v", list)
			}
			if string(list[0].Headers) != `{"X-Key":"{{key}}"}` {
				t.Fatalf("headers = %s", list[0].Headers)
			}

			got, err := s.GetTemplate("b")
			if err != nil || got == nil || got.Name != "second" {
				t.Fatalf("GetTemplate = %+v, %v", got, err)
			}
			if missing, err := s.GetTemplate("zzz"); err != nil || missing != nil {
				t.Fatalf("missing template = %+v, %v", missing, err)
			}

			for _, ref := range []string{"b", "second", "2"} {
				found, err := s.FindTemplate(ref)
				if err != nil || found == nil || found.ID != "b" {
					t.Fatalf("FindTemplate(%q) = %+v, %v", ref, found, err)
				}
			}

			if err := s.DeleteTemplate("a"); err != nil {
				t.Fatal(err)
			}
			if err := s.DeleteTemplate("a"); !errors.Is(err, ErrTemplateNotFound) {
				t.Fatalf("second delete error = %v", err)
			}
			list, _ = s.ListTemplates()
			if len(list) != 1 || list[0].ID != "b" {
				t.Fatalf("after delete %+v", list)
			}
		})
	}
}

func TestTemplateWithoutID(t *testing.T) {
	for backend, s := range openBackends(t, Options{Profile: model.RequestProfile}) {
		if err := s.SaveTemplate(template("", "x")); err == nil {
			t.Errorf("%s: expected error for empty id", backend)
		}
	}
}

func TestTemplateChangeNotification(t *testing.T) {
	for backend, s := range openBackends(t, Options{Profile: model.WebhookProfile}) {
		t.Run(backend, func(t *testing.T) {
			var keys []string
			unsubscribe := s.Subscribe(func(key string) { keys = append(keys, key) })

			s.SaveTemplate(template("a", "first"))
			s.DeleteTemplate("a")
			s.SetSetting(model.LanguageKey, "zh_CN")
			unsubscribe()
			s.SaveTemplate(template("b", "second"))

			want := []string{"webhooks", "webhooks", "language"}
			if strings.Join(keys, ",") != strings.Join(want, ",") {
				t.Fatalf("notifications = %v, want %v", keys, want)
			}
		})
	}
}

func TestLogCapAndOrder(t *testing.T) {
	for backend, s := range openBackends(t, Options{Profile: model.WebhookProfile}) {
		t.Run(backend, func(t *testing.T) {
			limit := model.WebhookProfile.MaxLogs
			for i := 0; i < limit+7; i++ {
				if err := s.AppendLog(logEntry(i)); err != nil {
					t.Fatal(err)
				}
			}

			logs, err := s.LoadLogs()
			if err != nil {
				t.Fatal(err)
			}
			if len(logs) != limit {
				t.Fatalf("len = %d, want %d", len(logs), limit)
			}
			if logs[0].ID != fmt.Sprintf("log-%d", limit+6) || logs[limit-1].ID != "log-7" {
				t.Fatalf("order: first %s last %s", logs[0].ID, logs[limit-1].ID)
			}

			first := logs[0]
			if !first.Timestamp.Equal(logEntry(limit + 6).Timestamp) {
				t.Fatalf("timestamp = %v", first.Timestamp)
			}
			if first.Result.ResponseHeaders["X-Trace"] != "abc" || string(first.Result.Response) != `{"ok":true}` {
				t.Fatalf("result = %+v", first.Result)
			}
			if first.Request.Headers["Content-Type"] != "application/json" || first.Request.Body != `{"n":1}` {
				t.Fatalf("snapshot = %+v", first.Request)
			}
		})
	}
}

func TestLogCapOverride(t *testing.T) {
	for backend, s := range openBackends(t, Options{Profile: model.RequestProfile, MaxLogs: 3}) {
		for i := 0; i < 5; i++ {
			s.AppendLog(logEntry(i))
		}
		logs, _ := s.LoadLogs()
		if len(logs) != 3 || logs[0].ID != "log-4" {
			t.Errorf("%s: logs = %d, head %s", backend, len(logs), logs[0].ID)
		}
	}
}

func TestConcurrentAppendsLoseNothing(t *testing.T) {
	for backend, s := range openBackends(t, Options{Profile: model.RequestProfile}) {
		t.Run(backend, func(t *testing.T) {
			var wg sync.WaitGroup
			for i := 0; i < 20; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					if err := s.AppendLog(logEntry(i)); err != nil {
						t.Error(err)
					}
				}(i)
			}
			wg.Wait()

			logs, _ := s.LoadLogs()
			if len(logs) != 20 {
				t.Fatalf("len = %d, want 20", len(logs))
			}
		})
	}
}

func TestGetAndClearLogs(t *testing.T) {
	for backend, s := range openBackends(t, Options{Profile: model.RequestProfile}) {
		t.Run(backend, func(t *testing.T) {
			s.AppendLog(logEntry(1))

			got, err := s.GetLog("log-1")
			if err != nil || got == nil || got.Result.Status != 200 {
				t.Fatalf("GetLog = %+v, %v", got, err)
			}
			if missing, _ := s.GetLog("nope"); missing != nil {
				t.Fatalf("expected nil for unknown id")
			}

			if err := s.ClearLogs(); err != nil {
				t.Fatal(err)
			}
			logs, _ := s.LoadLogs()
			if len(logs) != 0 {
				t.Fatalf("logs not cleared: %d", len(logs))
			}
		})
	}
}

func TestDeletingTemplateKeepsLogs(t *testing.T) {
	for backend, s := range openBackends(t, Options{Profile: model.RequestProfile}) {
		s.SaveTemplate(template("a", "hook"))
		s.AppendLog(logEntry(1))
		s.DeleteTemplate("a")

		logs, _ := s.LoadLogs()
		if len(logs) != 1 || logs[0].Request.Name != "hook" {
			t.Errorf("%s: logs = %+v", backend, logs)
		}
	}
}

func TestSettings(t *testing.T) {
	for backend, s := range openBackends(t, Options{Profile: model.RequestProfile}) {
		if _, ok, err := s.GetSetting(model.LanguageKey); ok || err != nil {
			t.Errorf("%s: unexpected setting ok=%v err=%v", backend, ok, err)
		}
		s.SetSetting(model.LanguageKey, "en")
		s.SetSetting(model.LanguageKey, "zh_CN")
		if v, ok, _ := s.GetSetting(model.LanguageKey); !ok || v != "zh_CN" {
			t.Errorf("%s: language = %q", backend, v)
		}
	}
}

func TestJSONBlobShape(t *testing.T) {
	dir := t.TempDir()
	s, err := NewJSONStorage(Options{DataDir: dir, Profile: model.WebhookProfile})
	if err != nil {
		t.Fatal(err)
	}
	s.SaveTemplate(template("a", "hook"))
	s.AppendLog(logEntry(1))
	s.SetSetting(model.LanguageKey, "en")

	raw, err := os.ReadFile(filepath.Join(dir, JSONFileName(model.WebhookProfile)))
	if err != nil {
		t.Fatal(err)
	}
	var data map[string]json.RawMessage
	if err := json.Unmarshal(raw, &data); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"webhooks", "requestLogs", "language"} {
		if _, ok := data[key]; !ok {
			t.Errorf("blob missing key %q: %s", key, raw)
		}
	}
}

const legacyExport = `{
  "language": "zh_CN",
  "requests": [
    {"id": "1700000000000", "name": "Echo", "url": "https://api.example.com/{{id}}", "method": "post",
     "headers": "{\"X-Key\":\"abc\"}", "body": {"id": "{{id}}"}, "contentType": "application/json"},
    {"id": "1700000000001", "name": "", "url": "https://broken"}
  ],
  "logs": [
    {"id": "n", "timestamp": "2024-03-01T10:00:00.000Z", "request": "Echo", "url": "https://api.example.com/2",
     "method": "POST", "headers": {"X-Key": "abc"}, "body": {"id": "2"}, "status": 500, "success": false,
     "statusText": "Internal Server Error", "response": "boom", "responseHeaders": {"X-A": "1"}},
    {"id": "o", "timestamp": "2024-03-01T09:00:00.000Z", "webhook": {"name": "Old", "url": "https://old.example.com", "method": "GET"},
     "body": null, "status": 0, "success": false, "error": "Failed to fetch"}
  ]
}`

func TestImportLegacyExport(t *testing.T) {
	for backend, s := range openBackends(t, Options{Profile: model.RequestProfile}) {
		t.Run(backend, func(t *testing.T) {
			summary, err := Import(s, strings.NewReader(legacyExport), model.RequestProfile)
			if err != nil {
				t.Fatal(err)
			}
			if summary.Templates != 1 || summary.Skipped != 1 || summary.Logs != 2 || !summary.Language {
				t.Fatalf("summary = %+v", summary)
			}

			tmpl, _ := s.GetTemplate("1700000000000")
			if tmpl == nil || tmpl.Method != "POST" || !tmpl.HeadersAreString() {
				t.Fatalf("template = %+v", tmpl)
			}

			logs, _ := s.LoadLogs()
			if len(logs) != 2 || logs[0].ID != "n" || logs[1].ID != "o" {
				t.Fatalf("logs = %+v", logs)
			}

			newest := logs[0]
			if newest.Request.Name != "Echo" || newest.Request.Body != `{"id":"2"}` || newest.Request.Headers["X-Key"] != "abc" {
				t.Fatalf("snapshot = %+v", newest.Request)
			}
			if newest.Result.Error != "500 Internal Server Error" || newest.Result.ResponseText() != "boom" {
				t.Fatalf("result = %+v", newest.Result)
			}

			oldest := logs[1]
			if oldest.Request.Name != "Old" || oldest.Request.URL != "https://old.example.com" || oldest.Request.Method != "GET" {
				t.Fatalf("webhook fallback = %+v", oldest.Request)
			}
			if oldest.Result.Error != "Failed to fetch" {
				t.Fatalf("error = %q", oldest.Result.Error)
			}

			if lang, _, _ := s.GetSetting(model.LanguageKey); lang != "zh_CN" {
				t.Fatalf("language = %q", lang)
			}
		})
	}
}

func TestSQLiteImportsBlobOnFirstOpen(t *testing.T) {
	dir := t.TempDir()
	blobPath := filepath.Join(dir, JSONFileName(model.RequestProfile))
	if err := os.WriteFile(blobPath, []byte(legacyExport), 0600); err != nil {
		t.Fatal(err)
	}

	s, err := NewStorage(Options{DataDir: dir, Profile: model.RequestProfile})
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	templates, _ := s.ListTemplates()
	if len(templates) != 1 {
		t.Fatalf("templates = %+v", templates)
	}
	if _, err := os.Stat(blobPath + ".migrated"); err != nil {
		t.Fatalf("blob not renamed: %v", err)
	}
}

func TestOpenUnknownBackend(t *testing.T) {
	if _, err := Open("redis", Options{DataDir: t.TempDir()}); err == nil {
		t.Fatal("expected error")
	}
}

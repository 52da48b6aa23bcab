package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"reqsender/internal/model"
)

// JSONFileName returns the blob file used for a variant
func JSONFileName(profile model.Profile) string {
	return fmt.Sprintf("reqsender-%s.json", profile.Name)
}

// JSONStorage keeps everything in one key/value blob, shaped like the
// browser's extension storage export
type JSONStorage struct {
	notifier

	path string
	opts Options

	// mu guards the read-modify-write cycle of the blob
	mu sync.Mutex
}

// NewJSONStorage creates a new JSON storage instance
func NewJSONStorage(opts Options) (*JSONStorage, error) {
	if opts.DataDir == "" {
		return nil, fmt.Errorf("data directory is required")
	}
	if err := os.MkdirAll(opts.DataDir, secureDirMode); err != nil {
		return nil, err
	}

	return &JSONStorage{
		path: filepath.Join(opts.DataDir, JSONFileName(opts.Profile)),
		opts: opts,
	}, nil
}

// Close is a no-op; every write is flushed immediately
func (s *JSONStorage) Close() error {
	return nil
}

type blob map[string]json.RawMessage

func (s *JSONStorage) load() (blob, error) {
	data := blob{}

	raw, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return data, nil
		}
		return nil, err
	}

	if len(raw) == 0 {
		return data, nil
	}
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", s.path, err)
	}
	return data, nil
}

// save writes the blob through a temp file so readers never see a partial write
func (s *JSONStorage) save(data blob) error {
	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return err
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, secureFileMode); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

func (s *JSONStorage) templates(data blob) ([]model.RequestTemplate, error) {
	templates := []model.RequestTemplate{}
	if raw, ok := data[s.opts.Profile.TemplatesKey]; ok && string(raw) != "null" {
		if err := json.Unmarshal(raw, &templates); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", s.opts.Profile.TemplatesKey, err)
		}
	}
	return templates, nil
}

func (s *JSONStorage) logs(data blob) ([]model.LogEntry, error) {
	logs := []model.LogEntry{}
	if raw, ok := data[s.opts.Profile.LogsKey]; ok && string(raw) != "null" {
		if err := json.Unmarshal(raw, &logs); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", s.opts.Profile.LogsKey, err)
		}
	}
	return logs, nil
}

func (s *JSONStorage) put(data blob, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	data[key] = raw
	return nil
}

// =============================================================================
// Template Operations
// =============================================================================

// ListTemplates returns every template in display order
func (s *JSONStorage) ListTemplates() ([]model.RequestTemplate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.load()
	if err != nil {
		return nil, err
	}
	return s.templates(data)
}

// GetTemplate gets a template by id, nil when it does not exist
func (s *JSONStorage) GetTemplate(id string) (*model.RequestTemplate, error) {
	templates, err := s.ListTemplates()
	if err != nil {
		return nil, err
	}
	for _, t := range templates {
		if t.ID == id {
			return &t, nil
		}
	}
	return nil, nil
}

// FindTemplate resolves an id, name or 1-based list index
func (s *JSONStorage) FindTemplate(ref string) (*model.RequestTemplate, error) {
	templates, err := s.ListTemplates()
	if err != nil {
		return nil, err
	}
	return findTemplate(templates, ref), nil
}

// SaveTemplate replaces a template in place or appends it to the list
func (s *JSONStorage) SaveTemplate(t model.RequestTemplate) error {
	if t.ID == "" {
		return fmt.Errorf("template id is required")
	}

	err := s.updateTemplates(func(templates []model.RequestTemplate) ([]model.RequestTemplate, error) {
		for i := range templates {
			if templates[i].ID == t.ID {
				templates[i] = t
				return templates, nil
			}
		}
		return append(templates, t), nil
	})
	if err != nil {
		return err
	}

	s.publish(s.opts.Profile.TemplatesKey)
	return nil
}

// DeleteTemplate deletes a template by id
func (s *JSONStorage) DeleteTemplate(id string) error {
	err := s.updateTemplates(func(templates []model.RequestTemplate) ([]model.RequestTemplate, error) {
		for i := range templates {
			if templates[i].ID == id {
				return append(templates[:i], templates[i+1:]...), nil
			}
		}
		return nil, ErrTemplateNotFound
	})
	if err != nil {
		return err
	}

	s.publish(s.opts.Profile.TemplatesKey)
	return nil
}

func (s *JSONStorage) updateTemplates(fn func([]model.RequestTemplate) ([]model.RequestTemplate, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.load()
	if err != nil {
		return err
	}
	templates, err := s.templates(data)
	if err != nil {
		return err
	}
	templates, err = fn(templates)
	if err != nil {
		return err
	}
	if err := s.put(data, s.opts.Profile.TemplatesKey, templates); err != nil {
		return err
	}
	return s.save(data)
}

// =============================================================================
// Log Operations
// =============================================================================

// AppendLog prepends entry (most recent first) and trims the log to the cap
func (s *JSONStorage) AppendLog(entry model.LogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.load()
	if err != nil {
		return err
	}
	logs, err := s.logs(data)
	if err != nil {
		return err
	}

	logs = append([]model.LogEntry{entry}, logs...)
	if max := s.opts.maxLogs(); len(logs) > max {
		logs = logs[:max]
	}

	if err := s.put(data, s.opts.Profile.LogsKey, logs); err != nil {
		return err
	}
	return s.save(data)
}

// LoadLogs returns the log, newest first
func (s *JSONStorage) LoadLogs() ([]model.LogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.load()
	if err != nil {
		return nil, err
	}
	return s.logs(data)
}

// GetLog gets a specific log entry by id
func (s *JSONStorage) GetLog(id string) (*model.LogEntry, error) {
	logs, err := s.LoadLogs()
	if err != nil {
		return nil, err
	}
	for _, entry := range logs {
		if entry.ID == id {
			return &entry, nil
		}
	}
	return nil, nil
}

// ClearLogs clears the whole log
func (s *JSONStorage) ClearLogs() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.load()
	if err != nil {
		return err
	}
	if err := s.put(data, s.opts.Profile.LogsKey, []model.LogEntry{}); err != nil {
		return err
	}
	return s.save(data)
}

// =============================================================================
// Settings
// =============================================================================

// GetSetting gets a string setting by key
func (s *JSONStorage) GetSetting(key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.load()
	if err != nil {
		return "", false, err
	}
	raw, ok := data[key]
	if !ok {
		return "", false, nil
	}

	var value string
	if err := json.Unmarshal(raw, &value); err != nil {
		return "", false, fmt.Errorf("setting %s is not a string", key)
	}
	return value, true, nil
}

// SetSetting creates or updates a string setting
func (s *JSONStorage) SetSetting(key, value string) error {
	s.mu.Lock()
	data, err := s.load()
	if err == nil {
		if err = s.put(data, key, value); err == nil {
			err = s.save(data)
		}
	}
	s.mu.Unlock()
	if err != nil {
		return err
	}

	s.publish(key)
	return nil
}

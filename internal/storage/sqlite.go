package storage

import (
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/golang-migrate/migrate/v4"
	sqlitemigrate "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"reqsender/internal/logger"
	"reqsender/internal/model"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// parseJSONHeaders safely parses JSON headers, returning an empty map on error
func parseJSONHeaders(jsonStr string) (map[string]string, error) {
	if jsonStr == "" {
		return make(map[string]string), nil
	}

	var headers map[string]string
	if err := json.Unmarshal([]byte(jsonStr), &headers); err != nil {
		return make(map[string]string), fmt.Errorf("failed to parse headers JSON: %w", err)
	}

	if headers == nil {
		headers = make(map[string]string)
	}
	return headers, nil
}

// ensureSecureFile creates a file with secure permissions if it doesn't exist,
// or verifies/fixes permissions if it does exist. This prevents a TOCTOU race
// condition where the file could be created with insecure default permissions.
func ensureSecureFile(path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, secureFileMode)
		if err != nil {
			return fmt.Errorf("failed to create secure file: %w", err)
		}
		f.Close()
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to stat file: %w", err)
	}

	if info.Mode().Perm() != secureFileMode {
		if err := os.Chmod(path, secureFileMode); err != nil {
			return fmt.Errorf("failed to set secure permissions: %w", err)
		}
	}
	return nil
}

// DBFileName returns the database file used for a variant
func DBFileName(profile model.Profile) string {
	return fmt.Sprintf("reqsender-%s.db", profile.Name)
}

// SQLiteStorage handles SQLite database persistence
type SQLiteStorage struct {
	notifier

	db      *sql.DB
	dataDir string
	opts    Options

	// mu serializes writers so that log appends never lose entries
	mu sync.Mutex
}

// NewStorage creates a new SQLite storage instance
func NewStorage(opts Options) (*SQLiteStorage, error) {
	if opts.DataDir == "" {
		return nil, fmt.Errorf("data directory is required")
	}
	if err := os.MkdirAll(opts.DataDir, secureDirMode); err != nil {
		return nil, err
	}

	dbPath := filepath.Join(opts.DataDir, DBFileName(opts.Profile))
	if err := ensureSecureFile(dbPath); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dbPath+"?_time_format=sqlite")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	s := &SQLiteStorage{db: db, dataDir: opts.DataDir, opts: opts}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	// Import a chrome.storage export left in the data directory
	if err := s.migrateFromJSON(); err != nil {
		logger.Warn("Skipping JSON import: %v", err)
	}

	return s, nil
}

// migrate applies the embedded schema migrations
func (s *SQLiteStorage) migrate() error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to load migrations: %w", err)
	}

	driver, err := sqlitemigrate.WithInstance(s.db, &sqlitemigrate.Config{})
	if err != nil {
		return fmt.Errorf("failed to initialize migrations: %w", err)
	}

	// The migrate instance shares s.db, so it is not closed here
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("failed to initialize migrations: %w", err)
	}

	logger.Debug("Applying database migrations...")
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}

// Close closes the database connection
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// =============================================================================
// Template Operations
// =============================================================================

const templateColumns = `id, name, url, method, headers, body, content_type`

func scanTemplate(scan func(dest ...any) error) (model.RequestTemplate, error) {
	var t model.RequestTemplate
	var headers, body string
	if err := scan(&t.ID, &t.Name, &t.URL, &t.Method, &headers, &body, &t.ContentType); err != nil {
		return t, err
	}
	if headers != "" {
		t.Headers = json.RawMessage(headers)
	}
	if body != "" {
		t.Body = json.RawMessage(body)
	}
	return t, nil
}

// ListTemplates returns every template in display order
func (s *SQLiteStorage) ListTemplates() ([]model.RequestTemplate, error) {
	rows, err := s.db.Query(`SELECT ` + templateColumns + ` FROM templates ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("querying templates: %w", err)
	}
	defer rows.Close()

	templates := []model.RequestTemplate{}
	for rows.Next() {
		t, err := scanTemplate(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scanning template row: %w", err)
		}
		templates = append(templates, t)
	}
	return templates, rows.Err()
}

// GetTemplate gets a template by id, nil when it does not exist
func (s *SQLiteStorage) GetTemplate(id string) (*model.RequestTemplate, error) {
	row := s.db.QueryRow(`SELECT `+templateColumns+` FROM templates WHERE id = ?`, id)
	t, err := scanTemplate(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// FindTemplate resolves an id, name or 1-based list index
func (s *SQLiteStorage) FindTemplate(ref string) (*model.RequestTemplate, error) {
	templates, err := s.ListTemplates()
	if err != nil {
		return nil, err
	}
	return findTemplate(templates, ref), nil
}

// SaveTemplate replaces a template in place or appends it to the list
func (s *SQLiteStorage) SaveTemplate(t model.RequestTemplate) error {
	if t.ID == "" {
		return fmt.Errorf("template id is required")
	}

	s.mu.Lock()
	err := s.saveTemplate(t)
	s.mu.Unlock()
	if err != nil {
		return err
	}

	s.publish(s.opts.Profile.TemplatesKey)
	return nil
}

func (s *SQLiteStorage) saveTemplate(t model.RequestTemplate) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now()
	result, err := tx.Exec(`
		UPDATE templates
		SET name = ?, url = ?, method = ?, headers = ?, body = ?, content_type = ?, updated_at = ?
		WHERE id = ?`,
		t.Name, t.URL, t.Method, string(t.Headers), string(t.Body), t.ContentType, now, t.ID)
	if err != nil {
		return err
	}

	if n, _ := result.RowsAffected(); n == 0 {
		var maxPos sql.NullInt64
		if err := tx.QueryRow("SELECT MAX(position) FROM templates").Scan(&maxPos); err != nil {
			return err
		}
		nextPos := int64(0)
		if maxPos.Valid {
			nextPos = maxPos.Int64 + 1
		}

		_, err = tx.Exec(`
			INSERT INTO templates (id, position, name, url, method, headers, body, content_type, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			t.ID, nextPos, t.Name, t.URL, t.Method, string(t.Headers), string(t.Body), t.ContentType, now, now)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// DeleteTemplate deletes a template by id
func (s *SQLiteStorage) DeleteTemplate(id string) error {
	s.mu.Lock()
	result, err := s.db.Exec("DELETE FROM templates WHERE id = ?", id)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrTemplateNotFound
	}

	s.publish(s.opts.Profile.TemplatesKey)
	return nil
}

// =============================================================================
// Log Operations
// =============================================================================

const logColumns = `id, timestamp, name, url, method, headers, body,
	success, status, status_text, response, response_headers, error, degraded, duration_ms`

func scanLog(scan func(dest ...any) error) (model.LogEntry, error) {
	var entry model.LogEntry
	var headersJSON, response, respHeadersJSON string

	err := scan(
		&entry.ID, &entry.Timestamp, &entry.Request.Name, &entry.Request.URL, &entry.Request.Method,
		&headersJSON, &entry.Request.Body,
		&entry.Result.Success, &entry.Result.Status, &entry.Result.StatusText,
		&response, &respHeadersJSON, &entry.Result.Error, &entry.Result.Degraded, &entry.Result.DurationMs,
	)
	if err != nil {
		return entry, err
	}

	// Parse headers JSON (errors are logged but don't fail the operation)
	entry.Request.Headers, err = parseJSONHeaders(headersJSON)
	if err != nil {
		logger.Warn("Log %s: %v", entry.ID, err)
	}
	entry.Result.ResponseHeaders, err = parseJSONHeaders(respHeadersJSON)
	if err != nil {
		logger.Warn("Log %s: %v", entry.ID, err)
	}
	if response != "" {
		entry.Result.Response = json.RawMessage(response)
	}
	return entry, nil
}

// AppendLog inserts entry at the head of the log and trims it to the cap
func (s *SQLiteStorage) AppendLog(entry model.LogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := insertLog(tx, entry); err != nil {
		return err
	}

	_, err = tx.Exec(`
		DELETE FROM logs
		WHERE seq NOT IN (
			SELECT seq FROM logs ORDER BY seq DESC LIMIT ?
		)`, s.opts.maxLogs())
	if err != nil {
		return err
	}

	return tx.Commit()
}

func insertLog(tx *sql.Tx, entry model.LogEntry) error {
	headersJSON, _ := json.Marshal(entry.Request.Headers)
	respHeadersJSON, _ := json.Marshal(entry.Result.ResponseHeaders)
	if entry.Request.Headers == nil {
		headersJSON = []byte("{}")
	}
	if entry.Result.ResponseHeaders == nil {
		respHeadersJSON = []byte("{}")
	}

	_, err := tx.Exec(`
		INSERT OR REPLACE INTO logs (
			id, timestamp, name, url, method, headers, body,
			success, status, status_text, response, response_headers, error, degraded, duration_ms
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.Timestamp.UTC(), entry.Request.Name, entry.Request.URL, entry.Request.Method,
		string(headersJSON), entry.Request.Body,
		entry.Result.Success, entry.Result.Status, entry.Result.StatusText,
		string(entry.Result.Response), string(respHeadersJSON), entry.Result.Error,
		entry.Result.Degraded, entry.Result.DurationMs,
	)
	return err
}

// LoadLogs returns the log, newest first
func (s *SQLiteStorage) LoadLogs() ([]model.LogEntry, error) {
	rows, err := s.db.Query(`SELECT `+logColumns+` FROM logs ORDER BY seq DESC LIMIT ?`, s.opts.maxLogs())
	if err != nil {
		return nil, fmt.Errorf("querying logs: %w", err)
	}
	defer rows.Close()

	entries := []model.LogEntry{}
	for rows.Next() {
		entry, err := scanLog(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scanning log row: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// GetLog gets a specific log entry by id
func (s *SQLiteStorage) GetLog(id string) (*model.LogEntry, error) {
	row := s.db.QueryRow(`SELECT `+logColumns+` FROM logs WHERE id = ?`, id)
	entry, err := scanLog(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// ClearLogs clears the whole log
func (s *SQLiteStorage) ClearLogs() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec("DELETE FROM logs")
	return err
}

// =============================================================================
// Settings
// =============================================================================

// GetSetting gets a setting value by key
func (s *SQLiteStorage) GetSetting(key string) (string, bool, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM settings WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// SetSetting creates or updates a setting
func (s *SQLiteStorage) SetSetting(key, value string) error {
	s.mu.Lock()
	_, err := s.db.Exec(`
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value)
	s.mu.Unlock()
	if err != nil {
		return err
	}

	s.publish(key)
	return nil
}

// =============================================================================
// Migration from JSON
// =============================================================================

// migrateFromJSON imports the variant's JSON blob into an empty database
func (s *SQLiteStorage) migrateFromJSON() error {
	var count int
	s.db.QueryRow("SELECT COUNT(*) FROM templates").Scan(&count)
	if count > 0 {
		return nil
	}
	s.db.QueryRow("SELECT COUNT(*) FROM logs").Scan(&count)
	if count > 0 {
		return nil
	}

	blobPath := filepath.Join(s.dataDir, JSONFileName(s.opts.Profile))
	f, err := os.Open(blobPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	summary, err := Import(s, f, s.opts.Profile)
	f.Close()
	if err != nil {
		return err
	}

	logger.Info("Imported %d templates and %d log entries from %s", summary.Templates, summary.Logs, blobPath)
	return os.Rename(blobPath, blobPath+".migrated")
}

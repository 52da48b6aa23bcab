package storage

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"reqsender/internal/model"
)

// ErrTemplateNotFound is returned when a template id does not exist
var ErrTemplateNotFound = errors.New("template not found")

const (
	BackendSQLite = "sqlite"
	BackendJSON   = "json"

	// Secure file permissions - owner read/write only
	secureFileMode = 0600 // -rw-------
	secureDirMode  = 0700 // drwx------
)

// Store persists request templates, the dispatch log and settings.
// Every mutation is serialized; template mutations publish the profile's
// templates key to subscribers.
type Store interface {
	ListTemplates() ([]model.RequestTemplate, error)
	GetTemplate(id string) (*model.RequestTemplate, error)
	FindTemplate(ref string) (*model.RequestTemplate, error)
	SaveTemplate(t model.RequestTemplate) error
	DeleteTemplate(id string) error

	AppendLog(entry model.LogEntry) error
	LoadLogs() ([]model.LogEntry, error)
	GetLog(id string) (*model.LogEntry, error)
	ClearLogs() error

	GetSetting(key string) (string, bool, error)
	SetSetting(key, value string) error

	Subscribe(fn func(key string)) (unsubscribe func())
	Close() error
}

// Options configures a store
type Options struct {
	DataDir string
	Profile model.Profile
	// MaxLogs overrides the profile's log cap when positive
	MaxLogs int
}

func (o Options) maxLogs() int {
	if o.MaxLogs > 0 {
		return o.MaxLogs
	}
	if o.Profile.MaxLogs > 0 {
		return o.Profile.MaxLogs
	}
	return model.RequestProfile.MaxLogs
}

// Open opens the store for the given backend
func Open(backend string, opts Options) (Store, error) {
	switch strings.ToLower(backend) {
	case "", BackendSQLite:
		return NewStorage(opts)
	case BackendJSON:
		return NewJSONStorage(opts)
	}
	return nil, fmt.Errorf("unknown storage backend %q", backend)
}

// findTemplate resolves ref as an id, then an exact name, then a 1-based index
func findTemplate(templates []model.RequestTemplate, ref string) *model.RequestTemplate {
	for i := range templates {
		if templates[i].ID == ref {
			return &templates[i]
		}
	}
	for i := range templates {
		if templates[i].Name == ref {
			return &templates[i]
		}
	}
	if index, err := strconv.Atoi(ref); err == nil && index > 0 && index <= len(templates) {
		return &templates[index-1]
	}
	return nil
}

// notifier fans out change notifications to subscribers
type notifier struct {
	mu   sync.Mutex
	next int
	subs map[int]func(key string)
}

func (n *notifier) Subscribe(fn func(key string)) func() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.subs == nil {
		n.subs = make(map[int]func(key string))
	}
	id := n.next
	n.next++
	n.subs[id] = fn
	return func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		delete(n.subs, id)
	}
}

func (n *notifier) publish(key string) {
	n.mu.Lock()
	subs := make([]func(string), 0, len(n.subs))
	for _, fn := range n.subs {
		subs = append(subs, fn)
	}
	n.mu.Unlock()

	for _, fn := range subs {
		fn(key)
	}
}

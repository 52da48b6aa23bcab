// Package menu maintains the selection context menu: one root item, one
// entry per template, and one sub-entry per placeholder field.
package menu

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"reqsender/internal/logger"
	"reqsender/internal/model"
	"reqsender/internal/templating"
)

// ErrUnknownItem is returned when a clicked id is not a leaf of the current menu
var ErrUnknownItem = errors.New("unknown menu item")

// Item is one context menu entry
type Item struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Children []Item `json:"children,omitempty"`
}

// TemplateSource lists templates and reports changes
type TemplateSource interface {
	ListTemplates() ([]model.RequestTemplate, error)
	GetTemplate(id string) (*model.RequestTemplate, error)
	Subscribe(fn func(key string)) (unsubscribe func())
}

// SelectionSender dispatches a template with selected text
type SelectionSender interface {
	SendSelection(ctx context.Context, t model.RequestTemplate, selected, field string) (model.LogEntry, error)
}

// target is what a leaf item sends: a template, optionally one field of it
type target struct {
	templateID string
	field      string
}

// Binder builds the menu from the template store and routes clicks
type Binder struct {
	store   TemplateSource
	sender  SelectionSender
	profile model.Profile

	// rebuildMu spans listing templates and installing the result, so
	// the last rebuild to finish always reflects the latest list
	rebuildMu sync.Mutex

	mu      sync.RWMutex
	title   string
	root    Item
	targets map[string]target

	unsubscribe func()
}

// NewBinder creates a binder; title labels the root item
func NewBinder(store TemplateSource, sender SelectionSender, profile model.Profile, title string) *Binder {
	return &Binder{
		store:   store,
		sender:  sender,
		profile: profile,
		title:   title,
		targets: map[string]target{},
	}
}

// Start builds the menu and rebuilds it whenever the template list changes
func (b *Binder) Start() error {
	if err := b.Rebuild(); err != nil {
		return err
	}
	b.unsubscribe = b.store.Subscribe(func(key string) {
		if key != b.profile.TemplatesKey {
			return
		}
		if err := b.Rebuild(); err != nil {
			logger.Error("Failed to rebuild context menu: %v", err)
		}
	})
	return nil
}

// Close stops listening for template changes
func (b *Binder) Close() {
	if b.unsubscribe != nil {
		b.unsubscribe()
		b.unsubscribe = nil
	}
}

// RootID is the id of the root menu item
func (b *Binder) RootID() string {
	return b.profile.TemplateField + "-sender"
}

// SetTitle relabels the root item; it takes effect on the next Rebuild
func (b *Binder) SetTitle(title string) {
	b.mu.Lock()
	b.title = title
	b.mu.Unlock()
}

// Rebuild replaces the menu with one built from the current templates
func (b *Binder) Rebuild() error {
	b.rebuildMu.Lock()
	defer b.rebuildMu.Unlock()

	templates, err := b.store.ListTemplates()
	if err != nil {
		return err
	}

	b.mu.RLock()
	title := b.title
	b.mu.RUnlock()

	root := Item{ID: b.RootID(), Title: title}
	targets := make(map[string]target)

	for _, t := range templates {
		itemID := fmt.Sprintf("%s-%s", b.profile.TemplateField, t.ID)
		if _, dup := targets[itemID]; dup {
			logger.Warn("Skipping duplicate template id %s in context menu", t.ID)
			continue
		}

		item := Item{ID: itemID, Title: t.Name}
		fields := templating.ExtractFields(t)
		if len(fields) == 0 {
			targets[itemID] = target{templateID: t.ID}
		} else {
			for _, field := range fields {
				childID := itemID + "#" + field
				item.Children = append(item.Children, Item{ID: childID, Title: field})
				targets[childID] = target{templateID: t.ID, field: field}
			}
			// the parent of a submenu is not clickable, but reserve its id
			targets[itemID] = target{}
		}
		root.Children = append(root.Children, item)
	}

	b.mu.Lock()
	b.root = root
	b.targets = targets
	b.mu.Unlock()

	logger.Debug("Context menu rebuilt with %d templates", len(root.Children))
	return nil
}

// Tree returns the current menu
func (b *Binder) Tree() Item {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.root
}

// Resolve maps a leaf item id to its template id and field
func (b *Binder) Resolve(id string) (templateID, field string, err error) {
	b.mu.RLock()
	tgt, ok := b.targets[id]
	b.mu.RUnlock()
	if !ok || tgt.templateID == "" {
		return "", "", fmt.Errorf("%w: %s", ErrUnknownItem, id)
	}
	return tgt.templateID, tgt.field, nil
}

// Click sends the template behind item id with the selected text
func (b *Binder) Click(ctx context.Context, id, selection string) (model.LogEntry, error) {
	templateID, field, err := b.Resolve(id)
	if err != nil {
		return model.LogEntry{}, err
	}

	t, err := b.store.GetTemplate(templateID)
	if err != nil {
		return model.LogEntry{}, err
	}
	if t == nil {
		return model.LogEntry{}, fmt.Errorf("%w: template %s no longer exists", ErrUnknownItem, templateID)
	}

	return b.sender.SendSelection(ctx, *t, selection, field)
}

// Package workspace owns the note/folder hierarchy: creation, renaming,
// content updates, cycle-safe deletion and snapshot (de)serialization.
package workspace

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/starford/sowilo/internal/apperr"
	"github.com/starford/sowilo/internal/models"
)

// EmptyNoteContent is the document a new note starts with.
const EmptyNoteContent = `{"type":"doc","content":[{"type":"paragraph"}]}`

const welcomeContent = `{"type":"doc","content":[{"type":"paragraph","content":[{"type":"text","text":"Welcome to your note editor! Try typing some notes with special syntax like #tags, [[wiki links]], or <<cross links>>."}]}]}`

// Workspace is the in-memory application state. All methods are safe for
// concurrent use; returned items are copies.
type Workspace struct {
	logger *slog.Logger
	now    func() time.Time
	newID  func() string

	mu        sync.RWMutex
	items     map[string]*models.Item
	order     []string // insertion order of items
	rootItems []string
	selected  string
}

// Option configures a Workspace.
type Option func(*Workspace)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(w *Workspace) { w.now = now }
}

// WithIDGenerator overrides item ID generation.
func WithIDGenerator(fn func() string) Option {
	return func(w *Workspace) { w.newID = fn }
}

// New returns a workspace holding the initial Welcome note.
func New(logger *slog.Logger, opts ...Option) *Workspace {
	if logger == nil {
		logger = slog.Default()
	}
	w := &Workspace{
		logger: logger,
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(w)
	}
	w.reset()
	return w
}

func (w *Workspace) reset() {
	w.items = make(map[string]*models.Item)
	w.order = nil
	w.rootItems = nil
	now := w.now().UTC()
	welcome := &models.Item{
		ID:        w.newID(),
		Title:     "Welcome",
		Type:      models.ItemNote,
		Content:   welcomeContent,
		CreatedAt: now,
		UpdatedAt: now,
	}
	w.insert(welcome)
	w.selected = welcome.ID
}

// insert adds item and links it under its parent or the root. Caller holds mu.
func (w *Workspace) insert(item *models.Item) {
	w.items[item.ID] = item
	w.order = append(w.order, item.ID)
	if p := item.Parent(); p != "" {
		parent := w.items[p]
		parent.Children = append(parent.Children, item.ID)
		parent.UpdatedAt = item.CreatedAt
		return
	}
	w.rootItems = append(w.rootItems, item.ID)
}

func (w *Workspace) checkParent(parentID string) (*string, error) {
	if parentID == "" {
		return nil, nil
	}
	parent, ok := w.items[parentID]
	if !ok {
		return nil, fmt.Errorf("workspace: parent %s: %w", parentID, apperr.ErrNotFound)
	}
	if !parent.IsFolder() {
		return nil, fmt.Errorf("workspace: parent %s is not a folder: %w", parentID, apperr.ErrInvalid)
	}
	return &parentID, nil
}

// CreateNote adds a note under parentID ("" for the root) and selects it.
// An empty content string uses EmptyNoteContent.
func (w *Workspace) CreateNote(title, parentID, content string) (*models.Item, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, fmt.Errorf("workspace: create note: empty title: %w", apperr.ErrInvalid)
	}
	if content == "" {
		content = EmptyNoteContent
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	parent, err := w.checkParent(parentID)
	if err != nil {
		return nil, err
	}
	now := w.now().UTC()
	item := &models.Item{
		ID:        w.newID(),
		Title:     title,
		Type:      models.ItemNote,
		ParentID:  parent,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}
	w.insert(item)
	w.selected = item.ID
	return item.Clone(), nil
}

// CreateFolder adds an empty folder under parentID ("" for the root).
func (w *Workspace) CreateFolder(title, parentID string) (*models.Item, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, fmt.Errorf("workspace: create folder: empty title: %w", apperr.ErrInvalid)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	parent, err := w.checkParent(parentID)
	if err != nil {
		return nil, err
	}
	now := w.now().UTC()
	item := &models.Item{
		ID:        w.newID(),
		Title:     title,
		Type:      models.ItemFolder,
		ParentID:  parent,
		Children:  []string{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	w.insert(item)
	return item.Clone(), nil
}

// Get returns a copy of the item.
func (w *Workspace) Get(id string) (*models.Item, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	item, ok := w.items[id]
	if !ok {
		return nil, fmt.Errorf("workspace: item %s: %w", id, apperr.ErrNotFound)
	}
	return item.Clone(), nil
}

// Rename changes an item's title.
func (w *Workspace) Rename(id, title string) (*models.Item, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, fmt.Errorf("workspace: rename: empty title: %w", apperr.ErrInvalid)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	item, ok := w.items[id]
	if !ok {
		return nil, fmt.Errorf("workspace: rename %s: %w", id, apperr.ErrNotFound)
	}
	item.Title = title
	item.UpdatedAt = w.now().UTC()
	return item.Clone(), nil
}

// UpdateContent replaces a note's serialized document.
func (w *Workspace) UpdateContent(id, content string) (*models.Item, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	item, ok := w.items[id]
	if !ok {
		return nil, fmt.Errorf("workspace: update %s: %w", id, apperr.ErrNotFound)
	}
	if !item.IsNote() {
		return nil, fmt.Errorf("workspace: update %s: not a note: %w", id, apperr.ErrInvalid)
	}
	item.Content = content
	item.UpdatedAt = w.now().UTC()
	return item.Clone(), nil
}

// Select marks a note as the current one.
func (w *Workspace) Select(id string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	item, ok := w.items[id]
	if !ok {
		return fmt.Errorf("workspace: select %s: %w", id, apperr.ErrNotFound)
	}
	if !item.IsNote() {
		return fmt.Errorf("workspace: select %s: not a note: %w", id, apperr.ErrInvalid)
	}
	w.selected = id
	return nil
}

// Selected returns the selected note id, or "".
func (w *Workspace) Selected() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.selected
}

// Delete removes an item and, for folders, every descendant. It returns the
// removed ids. A cycle in the hierarchy is logged and the walk stops at the
// repeated item; everything found before it is still removed.
func (w *Workspace) Delete(id string) ([]string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	item, ok := w.items[id]
	if !ok {
		return nil, fmt.Errorf("workspace: delete %s: %w", id, apperr.ErrNotFound)
	}

	var removed []string
	w.collect(id, make(map[string]bool), &removed)

	gone := make(map[string]bool, len(removed))
	for _, rid := range removed {
		gone[rid] = true
		delete(w.items, rid)
	}
	w.order = without(w.order, gone)
	w.rootItems = without(w.rootItems, gone)

	if p := item.Parent(); p != "" {
		if parent, ok := w.items[p]; ok && parent.IsFolder() {
			parent.Children = without(parent.Children, gone)
			parent.UpdatedAt = w.now().UTC()
		}
	}
	if gone[w.selected] {
		w.selected = ""
	}
	return removed, nil
}

func (w *Workspace) collect(id string, visited map[string]bool, out *[]string) {
	if visited[id] {
		w.logger.Warn("workspace: cycle in item hierarchy", slog.String("id", id))
		return
	}
	visited[id] = true
	item, ok := w.items[id]
	if !ok {
		return
	}
	*out = append(*out, id)
	if !item.IsFolder() {
		return
	}
	for _, child := range w.childIDs(item) {
		w.collect(child, visited, out)
	}
}

// childIDs lists a folder's children plus any item naming it as parent
// without being listed, without duplicates.
func (w *Workspace) childIDs(folder *models.Item) []string {
	seen := make(map[string]bool, len(folder.Children))
	var ids []string
	for _, c := range folder.Children {
		if !seen[c] {
			seen[c] = true
			ids = append(ids, c)
		}
	}
	for _, oid := range w.order {
		if it := w.items[oid]; it != nil && it.Parent() == folder.ID && !seen[oid] {
			seen[oid] = true
			ids = append(ids, oid)
		}
	}
	return ids
}

// Children returns the items directly under parentID ("" for the root),
// folders first, then by title.
func (w *Workspace) Children(parentID string) ([]*models.Item, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	ids := w.rootItems
	if parentID != "" {
		parent, ok := w.items[parentID]
		if !ok {
			return nil, fmt.Errorf("workspace: children of %s: %w", parentID, apperr.ErrNotFound)
		}
		if !parent.IsFolder() {
			return []*models.Item{}, nil
		}
		ids = parent.Children
	}

	out := make([]*models.Item, 0, len(ids))
	for _, id := range ids {
		if item, ok := w.items[id]; ok {
			out = append(out, item.Clone())
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Type != out[j].Type {
			return out[i].IsFolder()
		}
		return strings.ToLower(out[i].Title) < strings.ToLower(out[j].Title)
	})
	return out, nil
}

// Notes returns every note in insertion order.
func (w *Workspace) Notes() []*models.Item {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]*models.Item, 0, len(w.order))
	for _, id := range w.order {
		if item := w.items[id]; item != nil && item.IsNote() {
			out = append(out, item.Clone())
		}
	}
	return out
}

// FindNoteByTitle returns the id of the first note with exactly title.
func (w *Workspace) FindNoteByTitle(title string) (string, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	for _, id := range w.order {
		if item := w.items[id]; item != nil && item.IsNote() && item.Title == title {
			return id, true
		}
	}
	return "", false
}

func without(ids []string, gone map[string]bool) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if !gone[id] {
			out = append(out, id)
		}
	}
	return out
}

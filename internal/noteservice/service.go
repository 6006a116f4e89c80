// Package noteservice coordinates the workspace, the connection session,
// the graph index, the attribute store and event publication.
package noteservice

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/starford/sowilo/internal/apperr"
	"github.com/starford/sowilo/internal/attrstore"
	"github.com/starford/sowilo/internal/checksum"
	"github.com/starford/sowilo/internal/connections"
	"github.com/starford/sowilo/internal/crosslink"
	"github.com/starford/sowilo/internal/document"
	"github.com/starford/sowilo/internal/index"
	"github.com/starford/sowilo/internal/models"
	"github.com/starford/sowilo/internal/sse"
	"github.com/starford/sowilo/internal/syntax"
	"github.com/starford/sowilo/internal/workspace"
)

// Events is the publication side the service needs.
type Events interface {
	Publish(sse.Event)
	PublishNoteEvent(kind, id string)
	Navigate(noteID string)
}

// Scheduler queues a debounced durable write.
type Scheduler interface {
	Schedule()
}

// NoteDetail is the full representation of a note.
type NoteDetail struct {
	ID          string                  `json:"id"`
	Title       string                  `json:"title"`
	ParentID    *string                 `json:"parentId"`
	Content     string                  `json:"content"`
	Checksum    string                  `json:"checksum"`
	Connections connections.Connections `json:"connections"`
	CreatedAt   time.Time               `json:"createdAt"`
	UpdatedAt   time.Time               `json:"updatedAt"`
}

// NoteListItem is a lightweight item in a list response.
type NoteListItem struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	ParentID  *string   `json:"parentId"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Service coordinates the note workspace and everything derived from it.
type Service struct {
	ws         *workspace.Workspace
	attrs      *attrstore.Store
	db         index.GraphIndex
	session    *connections.Session
	recognizer *syntax.Recognizer
	events     Events
	notesSave  Scheduler
	attrsSave  Scheduler
	reload     *reloader
	onNotes    func(int)
	logger     *slog.Logger
	now        func() time.Time

	indexMu sync.Mutex // orders index writes against the workspace state
}

// Option configures a Service.
type Option func(*Service)

// WithEvents sets the event publisher.
func WithEvents(e Events) Option { return func(s *Service) { s.events = e } }

// WithPersistence sets the debounced writers for notes and attributes.
func WithPersistence(notes, attrs Scheduler) Option {
	return func(s *Service) { s.notesSave, s.attrsSave = notes, attrs }
}

// WithRecognizer sets the marker recognizer.
func WithRecognizer(r *syntax.Recognizer) Option { return func(s *Service) { s.recognizer = r } }

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option { return func(s *Service) { s.logger = l } }

// WithNoteCounter is called with the note count after every structural change.
func WithNoteCounter(fn func(int)) Option { return func(s *Service) { s.onNotes = fn } }

// WithClock overrides the time source used for typed attribute defaults.
func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

// NewService creates a note service.
func NewService(ws *workspace.Workspace, attrs *attrstore.Store, db index.GraphIndex, session *connections.Session, opts ...Option) *Service {
	s := &Service{
		ws:         ws,
		attrs:      attrs,
		db:         db,
		session:    session,
		recognizer: syntax.New(),
		logger:     slog.Default(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Rebuild brings the index and the connection cache in line with the
// workspace. It runs at startup and after an external snapshot reload.
func (s *Service) Rebuild(_ context.Context) error {
	notes := s.ws.Notes()
	if _, err := index.Sync(s.db, notes, s.logger); err != nil {
		return fmt.Errorf("noteservice: rebuild: %w", err)
	}
	for _, n := range notes {
		s.session.Update(n.ID, []byte(n.Content))
	}
	s.countNotes()
	return nil
}

// Ready reports whether the service can serve requests.
func (s *Service) Ready(_ context.Context) error {
	return s.db.Ping()
}

// ListNotes returns every note in creation order.
func (s *Service) ListNotes(_ context.Context) []NoteListItem {
	notes := s.ws.Notes()
	out := make([]NoteListItem, len(notes))
	for i, n := range notes {
		out[i] = NoteListItem{
			ID:        n.ID,
			Title:     n.Title,
			ParentID:  n.ParentID,
			Checksum:  checksum.String(n.Content),
			UpdatedAt: n.UpdatedAt,
		}
	}
	return out
}

// GetNote returns a note with its current connections.
func (s *Service) GetNote(_ context.Context, id string) (*NoteDetail, error) {
	item, err := s.note(id)
	if err != nil {
		return nil, err
	}
	return s.detail(item), nil
}

// CreateNote adds a note and indexes it.
func (s *Service) CreateNote(_ context.Context, title, parentID, content string) (*NoteDetail, error) {
	item, err := s.ws.CreateNote(title, parentID, content)
	if err != nil {
		return nil, err
	}
	item, err = s.syncCrosslinks(item)
	if err != nil {
		return nil, err
	}
	s.refresh(item)
	s.publish("created", item.ID)
	s.countNotes()
	s.schedule(s.notesSave)
	return s.detail(item), nil
}

// CreateFolder adds a folder.
func (s *Service) CreateFolder(_ context.Context, title, parentID string) (*models.Item, error) {
	item, err := s.ws.CreateFolder(title, parentID)
	if err != nil {
		return nil, err
	}
	s.schedule(s.notesSave)
	return item, nil
}

// UpdateNote replaces a note's content. A non-empty ifMatch must equal the
// checksum of the current content. Cross-links naming a known note title
// are rewritten to that note's id before storing.
func (s *Service) UpdateNote(_ context.Context, id, content, ifMatch string) (*NoteDetail, error) {
	existing, err := s.note(id)
	if err != nil {
		return nil, err
	}
	if ifMatch != "" && ifMatch != checksum.String(existing.Content) {
		return nil, fmt.Errorf("noteservice: update %s: %w", id, apperr.ErrConflict)
	}
	item, err := s.ws.UpdateContent(id, content)
	if err != nil {
		return nil, err
	}
	item, err = s.syncCrosslinks(item)
	if err != nil {
		return nil, err
	}
	s.refresh(item)
	s.publish("updated", id)
	s.schedule(s.notesSave)
	return s.detail(item), nil
}

// RenameItem changes the title of a note or folder. Cross-link references
// spelled with the old title stop resolving to the note.
func (s *Service) RenameItem(_ context.Context, id, title string) (*models.Item, error) {
	item, err := s.ws.Rename(id, title)
	if err != nil {
		return nil, err
	}
	if item.IsNote() {
		s.refresh(item)
		s.publish("renamed", id)
	}
	s.schedule(s.notesSave)
	return item, nil
}

// DeleteItem removes an item and its descendants and returns the removed ids.
func (s *Service) DeleteItem(_ context.Context, id string) ([]string, error) {
	removed, err := s.ws.Delete(id)
	if err != nil {
		return nil, err
	}
	for _, rid := range removed {
		s.session.Forget(rid)
		if err := s.db.DeleteNote(rid); err != nil {
			s.logger.Warn("noteservice: unindex failed", slog.String("id", rid), slog.String("error", err.Error()))
		}
		s.publish("deleted", rid)
	}
	s.countNotes()
	s.schedule(s.notesSave)
	return removed, nil
}

// Tree returns the children of parentID ("" for the root).
func (s *Service) Tree(_ context.Context, parentID string) ([]*models.Item, error) {
	return s.ws.Children(parentID)
}

// Connections returns the cached connections of a note, extracting on a miss.
func (s *Service) Connections(_ context.Context, id string) (connections.Connections, error) {
	item, err := s.note(id)
	if err != nil {
		return connections.Connections{}, err
	}
	return s.connectionsOf(item), nil
}

// Crosslinks returns the notes whose content references id's title with
// a <<Title>> cross-link.
func (s *Service) Crosslinks(_ context.Context, id string) ([]connections.CrossLink, error) {
	if _, err := s.note(id); err != nil {
		return nil, err
	}
	notes := s.ws.Notes()
	corpus := make([]crosslink.Note, len(notes))
	for i, n := range notes {
		corpus[i] = crosslink.Note{ID: n.ID, Title: n.Title, Content: n.Content}
	}
	return crosslink.Resolve(id, corpus), nil
}

// Navigate resolves target (a note id, or a title for a cross-link not yet
// synchronized), selects the note and publishes a navigation event.
func (s *Service) Navigate(_ context.Context, target string) (string, error) {
	id := target
	if _, err := s.ws.Get(id); err != nil {
		found, ok := s.ws.FindNoteByTitle(target)
		if !ok {
			return "", fmt.Errorf("noteservice: navigate %q: %w", target, apperr.ErrNotFound)
		}
		id = found
	}
	if err := s.ws.Select(id); err != nil {
		return "", err
	}
	if s.events != nil {
		s.events.Navigate(id)
	}
	s.schedule(s.notesSave)
	return id, nil
}

// NotesByTag returns notes carrying tag.
func (s *Service) NotesByTag(_ context.Context, tag string) ([]index.NoteRow, error) {
	return s.db.NotesByTag(tag)
}

// Backlinks returns ids of notes linking to id by cross-link or wiki-link.
func (s *Service) Backlinks(_ context.Context, id string) ([]string, error) {
	item, err := s.note(id)
	if err != nil {
		return nil, err
	}
	return s.db.Backlinks(item.ID, item.Title)
}

// Graph returns all nodes and links for graph visualization.
func (s *Service) Graph(_ context.Context) ([]index.GraphNode, []index.GraphLink, error) {
	return s.db.Graph()
}

func (s *Service) note(id string) (*models.Item, error) {
	item, err := s.ws.Get(id)
	if err != nil {
		return nil, err
	}
	if !item.IsNote() {
		return nil, fmt.Errorf("noteservice: %s is not a note: %w", id, apperr.ErrNotFound)
	}
	return item, nil
}

// syncCrosslinks rewrites provisional cross-link targets to note ids.
func (s *Service) syncCrosslinks(item *models.Item) (*models.Item, error) {
	doc, err := document.Parse([]byte(item.Content))
	if err != nil {
		return item, nil
	}
	synced, changed := crosslink.SyncIDs(doc, s.ws.FindNoteByTitle)
	if !changed {
		return item, nil
	}
	data, err := json.Marshal(synced)
	if err != nil {
		return nil, fmt.Errorf("noteservice: encode synced content: %w", err)
	}
	return s.ws.UpdateContent(item.ID, string(data))
}

// refresh recomputes connections and the index row for a note.
// A refresh overtaken by a newer write to the same note leaves the index row
// to that write.
func (s *Service) refresh(item *models.Item) {
	c, _ := s.session.Update(item.ID, []byte(item.Content))

	s.indexMu.Lock()
	defer s.indexMu.Unlock()
	current, err := s.ws.Get(item.ID)
	if err != nil || current.Content != item.Content || current.Title != item.Title {
		return
	}
	if err := index.IndexNote(s.db, item, c); err != nil {
		s.logger.Warn("noteservice: index failed", slog.String("id", item.ID), slog.String("error", err.Error()))
	}
}

func (s *Service) connectionsOf(item *models.Item) connections.Connections {
	c, _ := s.session.Update(item.ID, []byte(item.Content))
	return c
}

func (s *Service) detail(item *models.Item) *NoteDetail {
	return &NoteDetail{
		ID:          item.ID,
		Title:       item.Title,
		ParentID:    item.ParentID,
		Content:     item.Content,
		Checksum:    checksum.String(item.Content),
		Connections: s.connectionsOf(item),
		CreatedAt:   item.CreatedAt,
		UpdatedAt:   item.UpdatedAt,
	}
}

func (s *Service) publish(kind, id string) {
	if s.events != nil {
		s.events.PublishNoteEvent(kind, id)
	}
}

func (s *Service) schedule(sch Scheduler) {
	if sch != nil {
		sch.Schedule()
	}
}

func (s *Service) countNotes() {
	if s.onNotes != nil {
		s.onNotes(len(s.ws.Notes()))
	}
}

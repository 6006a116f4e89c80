package workspace

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/starford/sowilo/internal/models"
)

// entry is one [id, item] pair of the persisted items array.
type entry struct {
	ID   string
	Item *models.Item
}

func (e entry) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]any{e.ID, e.Item})
}

func (e *entry) UnmarshalJSON(data []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return fmt.Errorf("item entry has %d elements, want 2", len(pair))
	}
	if err := json.Unmarshal(pair[0], &e.ID); err != nil {
		return err
	}
	e.Item = new(models.Item)
	return json.Unmarshal(pair[1], e.Item)
}

// snapshot is the persisted layout of the workspace.
type snapshot struct {
	Items          []entry  `json:"items"`
	RootItems      []string `json:"rootItems"`
	SelectedNoteID *string  `json:"selectedNoteId"`
}

// MarshalJSON encodes the workspace as
// {"items":[[id,item],...],"rootItems":[...],"selectedNoteId":id|null}.
func (w *Workspace) MarshalJSON() ([]byte, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	s := snapshot{
		Items:     make([]entry, 0, len(w.order)),
		RootItems: append([]string{}, w.rootItems...),
	}
	for _, id := range w.order {
		s.Items = append(s.Items, entry{ID: id, Item: w.items[id]})
	}
	if w.selected != "" {
		sel := w.selected
		s.SelectedNoteID = &sel
	}
	return json.Marshal(s)
}

// Replace loads a persisted snapshot, replacing the current state.
// On a decode error the current state is left unchanged.
func (w *Workspace) Replace(data []byte) error {
	var s snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("workspace: decode snapshot: %w", err)
	}

	items := make(map[string]*models.Item, len(s.Items))
	order := make([]string, 0, len(s.Items))
	for _, e := range s.Items {
		if e.Item == nil || e.ID == "" {
			continue
		}
		if _, dup := items[e.ID]; dup {
			continue
		}
		e.Item.ID = e.ID
		if e.Item.IsFolder() && e.Item.Children == nil {
			e.Item.Children = []string{}
		}
		items[e.ID] = e.Item
		order = append(order, e.ID)
	}
	roots := make([]string, 0, len(s.RootItems))
	for _, id := range s.RootItems {
		if _, ok := items[id]; ok {
			roots = append(roots, id)
		}
	}
	selected := ""
	if s.SelectedNoteID != nil {
		if it, ok := items[*s.SelectedNoteID]; ok && it.IsNote() {
			selected = it.ID
		}
	}

	w.mu.Lock()
	w.items, w.order, w.rootItems, w.selected = items, order, roots, selected
	w.mu.Unlock()
	return nil
}

// Restore loads data when present; a missing or malformed snapshot is
// logged and the initial state is kept.
func (w *Workspace) Restore(data []byte) {
	if len(data) == 0 {
		return
	}
	if err := w.Replace(data); err != nil {
		w.logger.Error("workspace: restore failed, starting from initial state", slog.String("error", err.Error()))
		w.mu.Lock()
		w.reset()
		w.mu.Unlock()
	}
}

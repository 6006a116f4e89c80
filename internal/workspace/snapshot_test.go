package workspace

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"slices"
	"strings"
	"testing"
)

func TestSnapshot_Format(t *testing.T) {
	w := newTestWorkspace(t, &bytes.Buffer{})
	folder, _ := w.CreateFolder("F", "")
	_, _ = w.CreateNote("N", folder.ID, "")

	data, err := json.Marshal(w)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var raw struct {
		Items          [][]json.RawMessage `json:"items"`
		RootItems      []string            `json:"rootItems"`
		SelectedNoteID *string             `json:"selectedNoteId"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if len(raw.Items) != 3 {
		t.Fatalf("items = %d, want 3", len(raw.Items))
	}
	for i, pair := range raw.Items {
		if len(pair) != 2 {
			t.Fatalf("items[%d] has %d elements, want [id, item]", i, len(pair))
		}
	}

	var first map[string]any
	if err := json.Unmarshal(raw.Items[0][1], &first); err != nil {
		t.Fatalf("item: %v", err)
	}
	if first["createdAt"] != "2024-01-02T03:04:05Z" {
		t.Errorf("createdAt = %v", first["createdAt"])
	}
	if first["parentId"] != nil {
		t.Errorf("parentId = %v, want null", first["parentId"])
	}
	if !slices.Equal(raw.RootItems, []string{"id-1", "id-2"}) {
		t.Errorf("rootItems = %v", raw.RootItems)
	}
	if raw.SelectedNoteID == nil || *raw.SelectedNoteID != "id-3" {
		t.Errorf("selectedNoteId = %v", raw.SelectedNoteID)
	}
}

func TestSnapshot_RoundTrip(t *testing.T) {
	w := newTestWorkspace(t, &bytes.Buffer{})
	folder, _ := w.CreateFolder("F", "")
	note, _ := w.CreateNote("N", folder.ID, `{"type":"doc"}`)

	data, err := json.Marshal(w)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	other := New(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))
	if err := other.Replace(data); err != nil {
		t.Fatalf("Replace: %v", err)
	}

	got, err := other.Get(note.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Content != `{"type":"doc"}` || got.Parent() != folder.ID {
		t.Errorf("restored note = %+v", got)
	}
	if other.Selected() != note.ID {
		t.Errorf("selected = %q", other.Selected())
	}
	if n := len(other.Notes()); n != 2 {
		t.Errorf("notes = %d, want 2", n)
	}
}

func TestSnapshot_NoSelection(t *testing.T) {
	w := newTestWorkspace(t, &bytes.Buffer{})
	_, _ = w.Delete(w.Selected())
	data, err := json.Marshal(w)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if !strings.Contains(string(data), `"selectedNoteId":null`) {
		t.Errorf("snapshot = %s", data)
	}
}

func TestRestore_MalformedFallsBackToInitialState(t *testing.T) {
	var logs bytes.Buffer
	w := newTestWorkspace(t, &logs)
	_, _ = w.CreateNote("Extra", "", "")

	w.Restore([]byte(`{"items": "nope"`))

	notes := w.Notes()
	if len(notes) != 1 || notes[0].Title != "Welcome" {
		t.Errorf("notes = %+v, want only the welcome note", notes)
	}
	if !strings.Contains(logs.String(), "restore failed") {
		t.Errorf("failure not logged: %q", logs.String())
	}
}

func TestReplace_DropsDanglingReferences(t *testing.T) {
	w := newTestWorkspace(t, &bytes.Buffer{})
	data := []byte(`{"items":[["a",{"id":"a","title":"A","type":"note","parentId":null,"content":"{}","createdAt":"2024-01-01T00:00:00Z","updatedAt":"2024-01-01T00:00:00Z"}]],
		"rootItems":["a","ghost"],"selectedNoteId":"ghost"}`)
	if err := w.Replace(data); err != nil {
		t.Fatalf("Replace: %v", err)
	}

	roots, err := w.Children("")
	if err != nil {
		t.Fatalf("Children: %v", err)
	}
	if len(roots) != 1 {
		t.Errorf("roots = %+v, want only a", roots)
	}
	if w.Selected() != "" {
		t.Errorf("selected = %q, want cleared", w.Selected())
	}
}

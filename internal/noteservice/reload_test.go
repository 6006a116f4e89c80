package noteservice

import (
	"context"
	"encoding/json"
	"reflect"
	"slices"
	"testing"

	"github.com/starford/sowilo/internal/attrstore"
	"github.com/starford/sowilo/internal/connections"
	"github.com/starford/sowilo/internal/persist"
	"github.com/starford/sowilo/internal/sse"
	"github.com/starford/sowilo/internal/storage"
	"github.com/starford/sowilo/internal/testutil"
)

func newReloadFixture(t *testing.T) (*Service, storage.Provider, *persist.Writer, *fakeEvents) {
	t.Helper()
	_, store := testutil.TestStore(t)
	writer := persist.NewWriter(store)
	events := &fakeEvents{}
	svc := NewService(
		testutil.TestWorkspace(t), attrstore.New(), testutil.TestDB(t),
		connections.NewSession(nil, testutil.QuietLogger()),
		WithEvents(events),
		WithReload(store, writer),
		WithLogger(testutil.QuietLogger()),
	)
	if err := svc.Rebuild(context.Background()); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
	return svc, store, writer, events
}

func titles(items []NoteListItem) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Title
	}
	return out
}

func TestReload_ExternalNotesSnapshot(t *testing.T) {
	svc, store, _, events := newReloadFixture(t)
	ctx := context.Background()

	external := testutil.TestWorkspace(t)
	if _, err := external.CreateNote("External", "", doc(`{"type":"tag","attrs":{"tag":"ext"}}`)); err != nil {
		t.Fatalf("CreateNote: %v", err)
	}
	data, err := json.Marshal(external)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if err := store.Write(storage.KeyNotes, data); err != nil {
		t.Fatalf("Write: %v", err)
	}

	svc.Reload(ctx, storage.KeyNotes)

	if got := titles(svc.ListNotes(ctx)); !slices.Equal(got, []string{"Welcome", "External"}) {
		t.Errorf("notes = %v", got)
	}
	rows, err := svc.NotesByTag(ctx, "ext")
	if err != nil {
		t.Fatalf("NotesByTag: %v", err)
	}
	if len(rows) != 1 {
		t.Errorf("rows = %+v, want the external note", rows)
	}
	if len(events.events) == 0 || events.events[len(events.events)-1].Type != sse.TypeGraphUpdated {
		t.Errorf("events = %+v, want graph.updated last", events.events)
	}
}

func TestReload_IgnoresOwnWrites(t *testing.T) {
	svc, _, writer, _ := newReloadFixture(t)
	ctx := context.Background()

	other := testutil.TestWorkspace(t)
	if _, err := other.CreateNote("Own", "", ""); err != nil {
		t.Fatalf("CreateNote: %v", err)
	}
	if err := writer.SaveJSON(storage.KeyNotes, other); err != nil {
		t.Fatalf("SaveJSON: %v", err)
	}

	svc.Reload(ctx, storage.KeyNotes)
	if got := titles(svc.ListNotes(ctx)); !slices.Equal(got, []string{"Welcome"}) {
		t.Errorf("own write was reloaded: %v", got)
	}
}

func TestReload_Attributes(t *testing.T) {
	svc, store, _, _ := newReloadFixture(t)
	ctx := context.Background()
	if err := store.Write(storage.KeyEntityAttributes, []byte(`{"Person:Alice":{"age":30}}`)); err != nil {
		t.Fatalf("Write: %v", err)
	}

	svc.Reload(ctx, storage.KeyEntityAttributes)

	got, err := svc.EntityAttributes(ctx, "Person:Alice")
	if err != nil {
		t.Fatalf("EntityAttributes: %v", err)
	}
	if !reflect.DeepEqual(got, map[string]any{"age": 30.0}) {
		t.Errorf("got %v", got)
	}
}

func TestReload_MalformedSnapshotKeepsState(t *testing.T) {
	svc, store, _, _ := newReloadFixture(t)
	ctx := context.Background()
	if err := store.Write(storage.KeyNotes, []byte(`{"items":`)); err != nil {
		t.Fatalf("Write: %v", err)
	}

	svc.Reload(ctx, storage.KeyNotes)
	if got := titles(svc.ListNotes(ctx)); !slices.Equal(got, []string{"Welcome"}) {
		t.Errorf("notes = %v", got)
	}
}

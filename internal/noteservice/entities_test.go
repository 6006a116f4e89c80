package noteservice

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"testing"

	"github.com/starford/sowilo/internal/apperr"
	"github.com/starford/sowilo/internal/attrstore"
	"github.com/starford/sowilo/internal/document"
	"github.com/starford/sowilo/internal/sse"
)

func marshal(n *document.Node) (string, error) {
	b, err := json.Marshal(n)
	return string(b), err
}

const entityInline = `{"type":"entity","attrs":{"kind":"Person","label":"Alice","attributes":{"age":30}}},` +
	`{"type":"entity","attrs":{"kind":"Place","label":"Oslo"}},` +
	`{"type":"entity","attrs":{"kind":"Person","label":"Alice","attributes":{"age":31,"role":"lead"}}},` +
	`{"type":"entity","attrs":{"kind":"Person","label":"Bob"}}`

func TestNoteEntities_GroupedAndMerged(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	n := mustCreate(t, f, "People", "", doc(entityInline))

	if _, err := f.svc.SetEntityAttributes(ctx, "Person:Alice", map[string]any{"age": "40"}, map[string]string{"age": "Number"}); err != nil {
		t.Fatalf("SetEntityAttributes: %v", err)
	}

	groups, err := f.svc.NoteEntities(ctx, n.ID, "")
	if err != nil {
		t.Fatalf("NoteEntities: %v", err)
	}
	if len(groups) != 2 || groups[0].Kind != "Person" || groups[1].Kind != "Place" {
		t.Fatalf("groups = %+v, want Person then Place", groups)
	}
	if len(groups[0].Entities) != 2 {
		t.Fatalf("people = %+v, want Alice and Bob", groups[0].Entities)
	}

	alice := groups[0].Entities[0]
	if alice.Key != "Person:Alice" {
		t.Errorf("key = %q", alice.Key)
	}
	if want := map[string]any{"age": 40.0, "role": "lead"}; !reflect.DeepEqual(alice.Attributes, want) {
		t.Errorf("attributes = %v, want %v", alice.Attributes, want)
	}
	if alice.Types["age"] != attrstore.TypeNumber {
		t.Errorf("age type = %q", alice.Types["age"])
	}
	if !alice.Overridden {
		t.Error("Alice should be marked overridden")
	}
	if groups[0].Entities[1].Overridden {
		t.Error("Bob should not be marked overridden")
	}

	groups, err = f.svc.NoteEntities(ctx, n.ID, "osl")
	if err != nil {
		t.Fatalf("NoteEntities: %v", err)
	}
	if len(groups) != 1 || groups[0].Entities[0].Label != "Oslo" {
		t.Errorf("filtered groups = %+v", groups)
	}
}

func TestSetEntityAttributes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	stored, err := f.svc.SetEntityAttributes(ctx, "Person:Alice",
		map[string]any{"site": "https://example.com", "tags": "a, b"},
		map[string]string{"site": "URL", "tags": "List"})
	if err != nil {
		t.Fatalf("SetEntityAttributes: %v", err)
	}
	if !reflect.DeepEqual(stored["tags"], []any{"a", "b"}) {
		t.Errorf("tags = %#v", stored["tags"])
	}
	if f.attrs.n != 1 {
		t.Errorf("attribute saves = %d, want 1", f.attrs.n)
	}
	if len(f.events.events) != 1 || f.events.events[0].Type != sse.TypeEntityUpdated {
		t.Errorf("events = %+v, want one entity.updated", f.events.events)
	}

	got, err := f.svc.EntityAttributes(ctx, "Person:Alice")
	if err != nil {
		t.Fatalf("EntityAttributes: %v", err)
	}
	if !reflect.DeepEqual(got, stored) {
		t.Errorf("got %v, want %v", got, stored)
	}

	_, err = f.svc.SetEntityAttributes(ctx, "Person:Alice", map[string]any{"site": "not a url"}, map[string]string{"site": "URL"})
	if !errors.Is(err, apperr.ErrInvalid) {
		t.Errorf("bad url: err = %v, want ErrInvalid", err)
	}
	if _, err := f.svc.EntityAttributes(ctx, "no-colon"); !errors.Is(err, apperr.ErrInvalid) {
		t.Errorf("bad key: err = %v, want ErrInvalid", err)
	}
}

func TestEntityAttributes_IndependentOfMentions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if _, err := f.svc.SetEntityAttributes(ctx, "Person:Nobody", map[string]any{"x": 1.0}, nil); err != nil {
		t.Fatalf("SetEntityAttributes: %v", err)
	}

	got, err := f.svc.EntityAttributes(ctx, "Person:Nobody")
	if err != nil {
		t.Fatalf("EntityAttributes: %v", err)
	}
	if !reflect.DeepEqual(got, map[string]any{"x": 1.0}) {
		t.Errorf("got %v", got)
	}

	ents, err := f.svc.ListEntities(ctx, "")
	if err != nil {
		t.Fatalf("ListEntities: %v", err)
	}
	if len(ents) != 0 {
		t.Errorf("entities = %+v, want none", ents)
	}
}

func TestNewAttributeValue(t *testing.T) {
	f := newFixture(t)
	if v := f.svc.NewAttributeValue("Number"); v != 0.0 {
		t.Errorf("Number default = %#v", v)
	}
	if v := f.svc.NewAttributeValue("bogus"); v != "" {
		t.Errorf("unknown type default = %#v", v)
	}
}

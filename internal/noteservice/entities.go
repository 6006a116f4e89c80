package noteservice

import (
	"context"
	"fmt"
	"strings"

	"github.com/starford/sowilo/internal/apperr"
	"github.com/starford/sowilo/internal/attrstore"
	"github.com/starford/sowilo/internal/index"
	"github.com/starford/sowilo/internal/sse"
)

// EntityView is one distinct entity of a note as shown by the entity manager.
type EntityView struct {
	Kind       string                         `json:"kind"`
	Label      string                         `json:"label"`
	Key        string                         `json:"key"`
	Attributes map[string]any                 `json:"attributes"`
	Types      map[string]attrstore.ValueType `json:"types"`
	Overridden bool                           `json:"overridden"`
}

// EntityGroup holds the entities of one kind.
type EntityGroup struct {
	Kind     string       `json:"kind"`
	Entities []EntityView `json:"entities"`
}

// NoteEntities groups the distinct entities of a note by kind, in order of
// first appearance. Parsed attributes of the latest occurrence are merged
// with the stored overrides. query filters case-insensitively on kind or label.
func (s *Service) NoteEntities(ctx context.Context, id, query string) ([]EntityGroup, error) {
	c, err := s.Connections(ctx, id)
	if err != nil {
		return nil, err
	}
	q := strings.ToLower(strings.TrimSpace(query))

	defaults := make(map[string]map[string]any)
	var keys []string
	kinds := make(map[string]string)
	for _, e := range c.Entities {
		key := attrstore.Key(e.Kind, e.Label)
		if _, seen := defaults[key]; !seen {
			keys = append(keys, key)
			kinds[key] = e.Kind
		}
		defaults[key] = e.Attributes
	}

	groups := []EntityGroup{}
	byKind := make(map[string]int)
	for _, key := range keys {
		kind := kinds[key]
		label := strings.TrimPrefix(key, kind+":")
		if q != "" && !strings.Contains(strings.ToLower(kind), q) && !strings.Contains(strings.ToLower(label), q) {
			continue
		}
		overrides := s.attrs.Get(key)
		merged := attrstore.Merge(defaults[key], overrides)
		types := make(map[string]attrstore.ValueType, len(merged))
		for k, v := range merged {
			types[k] = attrstore.InferType(v)
		}
		view := EntityView{
			Kind:       kind,
			Label:      label,
			Key:        key,
			Attributes: merged,
			Types:      types,
			Overridden: len(overrides) > 0,
		}
		i, ok := byKind[kind]
		if !ok {
			i = len(groups)
			byKind[kind] = i
			groups = append(groups, EntityGroup{Kind: kind})
		}
		groups[i].Entities = append(groups[i].Entities, view)
	}
	return groups, nil
}

// EntityAttributes returns the stored overrides for an entity key.
func (s *Service) EntityAttributes(_ context.Context, key string) (map[string]any, error) {
	if err := checkKey(key); err != nil {
		return nil, err
	}
	return s.attrs.Get(key), nil
}

// SetEntityAttributes replaces the overrides for key. Values whose name has
// a declared type are coerced to it first; the stored map is returned.
func (s *Service) SetEntityAttributes(_ context.Context, key string, attrs map[string]any, types map[string]string) (map[string]any, error) {
	if err := checkKey(key); err != nil {
		return nil, err
	}
	declared := make(map[string]attrstore.ValueType, len(types))
	for k, t := range types {
		declared[k] = attrstore.ParseValueType(t)
	}
	coerced, err := attrstore.CoerceAll(attrs, declared)
	if err != nil {
		return nil, fmt.Errorf("noteservice: set attributes %s: %w", key, err)
	}
	s.attrs.Set(key, coerced)
	stored := s.attrs.Get(key)
	if s.events != nil {
		s.events.Publish(sse.Event{Type: sse.TypeEntityUpdated, Data: sse.EntityPayload{Key: key, Attributes: stored}})
	}
	s.schedule(s.attrsSave)
	return stored, nil
}

// NewAttributeValue returns the initial value for a new attribute of the named type.
func (s *Service) NewAttributeValue(typeName string) any {
	return attrstore.DefaultValue(attrstore.ParseValueType(typeName), s.now())
}

// ListEntities returns every indexed entity, optionally filtered.
func (s *Service) ListEntities(_ context.Context, query string) ([]index.EntitySummary, error) {
	return s.db.Entities(query)
}

func checkKey(key string) error {
	kind, label, ok := strings.Cut(key, ":")
	if !ok || kind == "" || label == "" {
		return fmt.Errorf("noteservice: entity key %q: %w", key, apperr.ErrInvalid)
	}
	return nil
}

// Package attrstore holds user-edited attribute overrides for entities,
// keyed by "kind:label". Values are untyped; the typed-value convention in
// value.go applies only at the edit/display boundary.
package attrstore

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"
)

// Key builds the store key for an entity.
func Key(kind, label string) string {
	return kind + ":" + label
}

// Store maps entity keys to attribute maps. Entries are never removed
// when an entity disappears from note content.
type Store struct {
	mu      sync.RWMutex
	entries map[string]map[string]any
}

// New returns an empty store.
func New() *Store {
	return &Store{entries: make(map[string]map[string]any)}
}

// Get returns a copy of the attributes stored under key, or an empty map.
func (s *Store) Get(key string) map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyAttrs(s.entries[key])
}

// Set replaces the attributes stored under key.
func (s *Store) Set(key string, attrs map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.entries == nil {
		s.entries = make(map[string]map[string]any)
	}
	s.entries[key] = copyAttrs(attrs)
}

// Keys returns all stored keys in sorted order.
func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.entries))
	for k := range s.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Snapshot returns a copy of the whole table.
func (s *Store) Snapshot() map[string]map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]map[string]any, len(s.entries))
	for k, v := range s.entries {
		out[k] = copyAttrs(v)
	}
	return out
}

// Load replaces the whole table.
func (s *Store) Load(table map[string]map[string]any) {
	entries := make(map[string]map[string]any, len(table))
	for k, v := range table {
		entries[k] = copyAttrs(v)
	}
	s.mu.Lock()
	s.entries = entries
	s.mu.Unlock()
}

// MarshalJSON encodes the table as a flat object keyed by "kind:label".
func (s *Store) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Snapshot())
}

// UnmarshalJSON replaces the table from a flat JSON object.
func (s *Store) UnmarshalJSON(data []byte) error {
	var table map[string]map[string]any
	if err := json.Unmarshal(data, &table); err != nil {
		return fmt.Errorf("attrstore: decode: %w", err)
	}
	s.Load(table)
	return nil
}

// Merge overlays overrides on defaults. Neither input is modified.
func Merge(defaults, overrides map[string]any) map[string]any {
	out := make(map[string]any, len(defaults)+len(overrides))
	for k, v := range defaults {
		out[k] = v
	}
	for k, v := range overrides {
		out[k] = v
	}
	return out
}

// copyAttrs copies one level deep; values are treated as immutable.
func copyAttrs(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Package connections extracts tags, mentions, links, entities, triples and
// cross-links from a document tree.
package connections

import (
	"log/slog"

	"github.com/starford/sowilo/internal/document"
)

// Entity is a typed, labeled concept. (Kind, Label) is its identity.
type Entity struct {
	Kind       string         `json:"kind"`
	Label      string         `json:"label"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// EntityRef is one end of a triple.
type EntityRef struct {
	Kind  string         `json:"kind"`
	Label string         `json:"label"`
	Attrs map[string]any `json:"attrs,omitempty"`
}

// Triple is a directed subject-predicate-object relationship.
type Triple struct {
	Subject   EntityRef `json:"subject"`
	Predicate string    `json:"predicate"`
	Object    EntityRef `json:"object"`
}

// CrossLink references another note by id with a display label.
type CrossLink struct {
	NoteID string `json:"noteId"`
	Label  string `json:"label"`
}

// Connections is the extraction result for one document snapshot.
type Connections struct {
	Tags       []string    `json:"tags"`
	Mentions   []string    `json:"mentions"`
	Links      []string    `json:"links"`
	Entities   []Entity    `json:"entities"`
	Triples    []Triple    `json:"triples"`
	Backlinks  []string    `json:"backlinks"`
	Crosslinks []CrossLink `json:"crosslinks"`
}

// Empty returns a record whose fields are all non-nil empty slices.
func Empty() Connections {
	return Connections{
		Tags:       []string{},
		Mentions:   []string{},
		Links:      []string{},
		Entities:   []Entity{},
		Triples:    []Triple{},
		Backlinks:  []string{},
		Crosslinks: []CrossLink{},
	}
}

// Extract walks doc depth-first in pre-order, starting at the root's
// children, and collects every marker it finds. Missing or malformed
// attributes are skipped. doc is never modified.
func Extract(doc *document.Node) Connections {
	c := Empty()
	if doc == nil {
		return c
	}
	doc.Walk(func(n *document.Node) bool {
		c.visit(n)
		return true
	})
	return c
}

// ExtractContent decodes serialized document content and extracts it.
// Unparseable content is logged and yields the empty record.
func ExtractContent(content []byte, logger *slog.Logger) Connections {
	doc, err := document.Parse(content)
	if err != nil {
		if logger != nil {
			logger.Warn("connections: malformed document content", slog.String("error", err.Error()))
		}
		return Empty()
	}
	return Extract(doc)
}

func (c *Connections) visit(n *document.Node) {
	switch n.Type {
	case document.TypeTag:
		if tag, ok := n.StringAttr("tag"); ok {
			c.Tags = append(c.Tags, tag)
		}
	case document.TypeWikilink:
		if target, ok := n.StringAttr("target"); ok {
			c.Links = append(c.Links, target)
		}
	case document.TypeEntity:
		kind, okKind := n.StringAttr("kind")
		label, okLabel := n.StringAttr("label")
		if okKind && okLabel {
			c.Entities = append(c.Entities, Entity{
				Kind:       kind,
				Label:      label,
				Attributes: objectAttr(n.Attrs, "attributes"),
			})
		}
	case document.TypeTriple:
		subject, okS := refAttr(n.Attrs, "subject")
		predicate, okP := n.StringAttr("predicate")
		object, okO := refAttr(n.Attrs, "object")
		if okS && okP && okO {
			c.Triples = append(c.Triples, Triple{Subject: subject, Predicate: predicate, Object: object})
		}
	case document.TypeCrosslink:
		if noteID, ok := n.StringAttr("noteId"); ok {
			label, ok := n.StringAttr("label")
			if !ok {
				label = noteID
			}
			c.Backlinks = append(c.Backlinks, noteID)
			c.Crosslinks = append(c.Crosslinks, CrossLink{NoteID: noteID, Label: label})
		}
	}

	for _, m := range n.Marks {
		if m.Type != document.MarkMention {
			continue
		}
		if id, ok := m.StringAttr("id"); ok {
			c.Mentions = append(c.Mentions, id)
		}
	}
}

func objectAttr(attrs map[string]any, key string) map[string]any {
	if attrs == nil {
		return nil
	}
	m, _ := attrs[key].(map[string]any)
	return m
}

// refAttr decodes a triple endpoint. An endpoint is present when it is an
// object; its kind and label are read leniently.
func refAttr(attrs map[string]any, key string) (EntityRef, bool) {
	m := objectAttr(attrs, key)
	if m == nil {
		return EntityRef{}, false
	}
	ref := EntityRef{Attrs: objectAttr(m, "attrs")}
	ref.Kind, _ = m["kind"].(string)
	ref.Label, _ = m["label"].(string)
	return ref, true
}

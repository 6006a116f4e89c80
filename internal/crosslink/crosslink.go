// Package crosslink discovers cross-note backlinks and resolves provisional
// crosslink targets to note IDs.
package crosslink

import (
	"strings"

	"github.com/starford/sowilo/internal/connections"
	"github.com/starford/sowilo/internal/document"
)

// Note is the minimal view of a note the resolver needs.
type Note struct {
	ID      string
	Title   string
	Content string
}

// Marker returns the literal cross-link form referencing title.
func Marker(title string) string {
	return "<<" + title + ">>"
}

// Resolve returns the notes whose raw content contains <<Title>> for the
// current title of noteID, labeled with the referencing note's title.
// The match is a literal substring scan keyed by title, so renaming the
// target drops every reference still spelled with the old title.
func Resolve(noteID string, notes []Note) []connections.CrossLink {
	out := []connections.CrossLink{}

	var title string
	found := false
	for _, n := range notes {
		if n.ID == noteID {
			title, found = n.Title, true
			break
		}
	}
	if !found || title == "" {
		return out
	}

	needle := Marker(title)
	for _, n := range notes {
		if n.ID == noteID {
			continue
		}
		if strings.Contains(n.Content, needle) {
			out = append(out, connections.CrossLink{NoteID: n.ID, Label: n.Title})
		}
	}
	return out
}

// SyncIDs returns a copy of doc in which every crosslink whose noteId is a
// title known to lookup carries the real note ID instead. Labels are kept.
// The second return value reports whether anything was rewritten.
func SyncIDs(doc *document.Node, lookup func(title string) (string, bool)) (*document.Node, bool) {
	out := doc.Clone()
	if out == nil || lookup == nil {
		return out, false
	}
	changed := false
	out.Walk(func(n *document.Node) bool {
		if n.Type != document.TypeCrosslink {
			return true
		}
		ref, ok := n.StringAttr("noteId")
		if !ok {
			return true
		}
		id, ok := lookup(ref)
		if !ok || id == ref {
			return true
		}
		if _, hasLabel := n.StringAttr("label"); !hasLabel {
			n.Attrs["label"] = ref
		}
		n.Attrs["noteId"] = id
		changed = true
		return true
	})
	return out, changed
}

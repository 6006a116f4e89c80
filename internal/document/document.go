// Package document defines the plain, editor-independent document tree that
// the connection extractor walks.
package document

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Node types produced by the marker recognizer.
const (
	TypeDoc       = "doc"
	TypeParagraph = "paragraph"
	TypeText      = "text"
	TypeTag       = "tag"
	TypeWikilink  = "wikilink"
	TypeEntity    = "entity"
	TypeTriple    = "triple"
	TypeCrosslink = "crosslink"
)

// MarkMention is the mark type attached to @mention text spans.
const MarkMention = "mention"

// Node is one vertex of a document tree. Text is only set on text leaves.
type Node struct {
	Type    string         `json:"type"`
	Attrs   map[string]any `json:"attrs,omitempty"`
	Marks   []Mark         `json:"marks,omitempty"`
	Content []*Node        `json:"content,omitempty"`
	Text    string         `json:"text,omitempty"`
}

// Mark is an inline annotation attached to a leaf node.
type Mark struct {
	Type  string         `json:"type"`
	Attrs map[string]any `json:"attrs,omitempty"`
}

// Parse decodes a JSON document tree.
func Parse(data []byte) (*Node, error) {
	var n Node
	if err := json.Unmarshal(data, &n); err != nil {
		return nil, fmt.Errorf("document: decode: %w", err)
	}
	return &n, nil
}

// NewDoc wraps inline nodes into a doc with a single paragraph.
func NewDoc(inline ...*Node) *Node {
	p := &Node{Type: TypeParagraph}
	if len(inline) > 0 {
		p.Content = inline
	}
	return &Node{Type: TypeDoc, Content: []*Node{p}}
}

// NewText returns a text leaf.
func NewText(text string, marks ...Mark) *Node {
	n := &Node{Type: TypeText, Text: text}
	if len(marks) > 0 {
		n.Marks = marks
	}
	return n
}

// StringAttr returns the attribute as a string. Missing, non-string and empty
// values all report ok=false.
func (n *Node) StringAttr(key string) (string, bool) {
	if n == nil {
		return "", false
	}
	return stringValue(n.Attrs, key)
}

// StringAttr returns the mark attribute as a non-empty string.
func (m Mark) StringAttr(key string) (string, bool) {
	return stringValue(m.Attrs, key)
}

func stringValue(attrs map[string]any, key string) (string, bool) {
	if attrs == nil {
		return "", false
	}
	s, ok := attrs[key].(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

// Walk visits every descendant of n in depth-first pre-order, starting with
// the children of n. Returning false from fn skips the node's subtree.
func (n *Node) Walk(fn func(*Node) bool) {
	if n == nil {
		return
	}
	for _, child := range n.Content {
		if child == nil {
			continue
		}
		if fn(child) {
			child.Walk(fn)
		}
	}
}

// Clone returns a deep copy of the tree.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	out := &Node{
		Type:  n.Type,
		Attrs: cloneMap(n.Attrs),
		Text:  n.Text,
	}
	if n.Marks != nil {
		out.Marks = make([]Mark, len(n.Marks))
		for i, m := range n.Marks {
			out.Marks[i] = Mark{Type: m.Type, Attrs: cloneMap(m.Attrs)}
		}
	}
	if n.Content != nil {
		out.Content = make([]*Node, len(n.Content))
		for i, c := range n.Content {
			out.Content[i] = c.Clone()
		}
	}
	return out
}

// PlainText concatenates every text leaf under n.
func (n *Node) PlainText() string {
	var b strings.Builder
	n.Walk(func(c *Node) bool {
		if c.Type == TypeText {
			b.WriteString(c.Text)
		}
		return true
	})
	return b.String()
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneMap(t)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}

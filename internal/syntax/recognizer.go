package syntax

import (
	"github.com/starford/sowilo/internal/document"
)

// Schema lists the node and mark types a host document supports. Markers
// whose type is missing are left as plain text.
type Schema struct {
	nodes map[string]struct{}
	marks map[string]struct{}
}

// NewSchema builds a schema from node and mark type names.
func NewSchema(nodes, marks []string) Schema {
	s := Schema{
		nodes: make(map[string]struct{}, len(nodes)),
		marks: make(map[string]struct{}, len(marks)),
	}
	for _, n := range nodes {
		s.nodes[n] = struct{}{}
	}
	for _, m := range marks {
		s.marks[m] = struct{}{}
	}
	return s
}

// DefaultSchema supports every marker type.
func DefaultSchema() Schema {
	return NewSchema(
		[]string{
			document.TypeTriple, document.TypeEntity, document.TypeTag,
			document.TypeWikilink, document.TypeCrosslink,
		},
		[]string{document.MarkMention},
	)
}

// Supports reports whether the schema can represent markers of kind k.
func (s Schema) Supports(k Kind) bool {
	if k == KindMention {
		_, ok := s.marks[document.MarkMention]
		return ok
	}
	_, ok := s.nodes[string(k)]
	return ok
}

// Match is a live-typing recognition: bytes [Start, End) of the input,
// including the trailing delimiter, are replaced by Node.
type Match struct {
	Kind  Kind
	Start int
	End   int
	Node  *document.Node
}

// Recognizer applies the marker rules under a schema.
type Recognizer struct {
	schema  Schema
	observe func(Kind)
}

// Option configures a Recognizer.
type Option func(*Recognizer)

// WithSchema restricts recognition to the given schema.
func WithSchema(s Schema) Option {
	return func(r *Recognizer) { r.schema = s }
}

// WithObserver registers a callback invoked once per recognized marker.
func WithObserver(fn func(Kind)) Option {
	return func(r *Recognizer) { r.observe = fn }
}

// New returns a Recognizer using DefaultSchema unless overridden.
func New(opts ...Option) *Recognizer {
	r := &Recognizer{schema: DefaultSchema()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Recognizer) record(k Kind) {
	if r.observe != nil {
		r.observe(k)
	}
}

// MatchInput checks the text before the cursor, whose last rune was just
// typed. A marker completed by that whitespace rune is reported; the
// whitespace is part of the replaced range and does not survive in Node.
func (r *Recognizer) MatchInput(text string) (Match, bool) {
	for _, ru := range rules {
		if !r.schema.Supports(ru.kind) {
			continue
		}
		idx := ru.input.FindStringSubmatchIndex(text)
		if idx == nil {
			continue
		}
		r.record(ru.kind)
		return Match{
			Kind:  ru.kind,
			Start: idx[0],
			End:   idx[1],
			Node:  ru.build(groups(text, idx)),
		}, true
	}
	return Match{}, false
}

type segment struct {
	text string
	node *document.Node // nil while the text is unclaimed
}

// Paste converts pasted text into inline nodes. Every non-overlapping
// occurrence is converted. Node rules run in precedence order and each only
// sees text that no earlier rule claimed; mention marks are applied last to
// whatever text is left, so a mention never hides a link around it.
func (r *Recognizer) Paste(text string) []*document.Node {
	segs := []segment{{text: text}}
	for _, ru := range rules {
		if ru.kind == KindMention || !r.schema.Supports(ru.kind) {
			continue
		}
		segs = r.applyPaste(ru, segs)
	}
	if r.schema.Supports(KindMention) {
		segs = r.applyPaste(mentionRule, segs)
	}

	out := make([]*document.Node, 0, len(segs))
	for _, s := range segs {
		switch {
		case s.node != nil:
			out = append(out, s.node)
		case s.text != "":
			out = append(out, document.NewText(s.text))
		}
	}
	return out
}

func (r *Recognizer) applyPaste(ru rule, segs []segment) []segment {
	out := make([]segment, 0, len(segs))
	for _, s := range segs {
		if s.node != nil {
			out = append(out, s)
			continue
		}
		matches := ru.paste.FindAllStringSubmatchIndex(s.text, -1)
		if len(matches) == 0 {
			out = append(out, s)
			continue
		}
		pos := 0
		for _, idx := range matches {
			if idx[0] > pos {
				out = append(out, segment{text: s.text[pos:idx[0]]})
			}
			out = append(out, segment{text: s.text[idx[0]:idx[1]], node: ru.build(groups(s.text, idx))})
			r.record(ru.kind)
			pos = idx[1]
		}
		if pos < len(s.text) {
			out = append(out, segment{text: s.text[pos:]})
		}
	}
	return out
}

// RecognizeDocument returns a copy of doc where every text leaf has been run
// through paste recognition. Marks already present on a leaf are kept on the
// text and mention spans it produces. The input tree is not modified.
func (r *Recognizer) RecognizeDocument(doc *document.Node) *document.Node {
	out := doc.Clone()
	r.recognizeChildren(out)
	return out
}

func (r *Recognizer) recognizeChildren(n *document.Node) {
	if n == nil || len(n.Content) == 0 {
		return
	}
	children := make([]*document.Node, 0, len(n.Content))
	for _, c := range n.Content {
		if c == nil {
			continue
		}
		if c.Type != document.TypeText {
			r.recognizeChildren(c)
			children = append(children, c)
			continue
		}
		for _, p := range r.Paste(c.Text) {
			if p.Type == document.TypeText && len(c.Marks) > 0 {
				p.Marks = mergeMarks(c.Marks, p.Marks)
			}
			children = append(children, p)
		}
	}
	n.Content = children
}

// mergeMarks keeps the leaf's existing marks and adds recognized ones of a
// type the leaf does not already carry.
func mergeMarks(existing, recognized []document.Mark) []document.Mark {
	out := append([]document.Mark{}, existing...)
	for _, m := range recognized {
		dup := false
		for _, e := range existing {
			if e.Type == m.Type {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, m)
		}
	}
	return out
}

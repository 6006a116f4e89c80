// Package syntax recognizes the inline marker grammar (triples, entities,
// tags, mentions, wiki-links and cross-links) in typed or pasted text and
// turns matches into document nodes and marks.
package syntax

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/starford/sowilo/internal/document"
)

// Kind names a marker category.
type Kind string

const (
	KindTriple    Kind = "triple"
	KindEntity    Kind = "entity"
	KindTag       Kind = "tag"
	KindMention   Kind = "mention"
	KindWikilink  Kind = "wikilink"
	KindCrosslink Kind = "crosslink"
)

// Kinds lists every marker kind in precedence order.
var Kinds = []Kind{KindTriple, KindEntity, KindTag, KindMention, KindWikilink, KindCrosslink}

// Fragments shared by the live-typing and paste patterns. Entity kinds are
// word characters; labels run to the closing bracket; an optional |{json}
// suffix carries attributes.
const (
	entityPat    = `\[([A-Za-z0-9_]+)\|([^\]]+?)(?:\|(\{.*?\}))?\]`
	triplePat    = entityPat + `\s*\(([A-Za-z0-9_]+)\)\s*` + entityPat
	tagPat       = `#([a-zA-Z0-9_]+)`
	mentionPat   = `@([a-zA-Z0-9_]+)`
	wikilinkPat  = `\[\[\s*([^\]\s|][^\]|]*?)\s*(?:\|[^\]]*)?\]\]`
	crosslinkPat = `<<\s*([^>\s|][^>|]*?)\s*(?:\|[^>]*?)?>>`
)

type rule struct {
	kind  Kind
	input *regexp.Regexp // must end the text, completed by one whitespace rune
	paste *regexp.Regexp // anywhere, global
	build func(groups []string) *document.Node
}

var mentionRule = rule{kind: KindMention, input: inputRe(mentionPat), paste: regexp.MustCompile(mentionPat), build: buildMention}

// rules is ordered most specific first: a triple's bracket groups must not be
// claimed as two entities, and entities must win over tags inside labels.
var rules = []rule{
	{kind: KindTriple, input: inputRe(triplePat), paste: regexp.MustCompile(triplePat), build: buildTriple},
	{kind: KindEntity, input: inputRe(entityPat), paste: regexp.MustCompile(entityPat), build: buildEntity},
	{kind: KindTag, input: inputRe(tagPat), paste: regexp.MustCompile(tagPat), build: buildTag},
	mentionRule,
	{kind: KindWikilink, input: inputRe(wikilinkPat), paste: regexp.MustCompile(wikilinkPat), build: buildWikilink},
	{kind: KindCrosslink, input: inputRe(crosslinkPat), paste: regexp.MustCompile(crosslinkPat), build: buildCrosslink},
}

func inputRe(pat string) *regexp.Regexp {
	return regexp.MustCompile(pat + `\s$`)
}

func buildTriple(g []string) *document.Node {
	return &document.Node{
		Type: document.TypeTriple,
		Attrs: map[string]any{
			"subject":   entityRef(g[1], g[2], g[3]),
			"predicate": g[4],
			"object":    entityRef(g[5], g[6], g[7]),
		},
	}
}

func entityRef(kind, label, rawAttrs string) map[string]any {
	ref := map[string]any{"kind": kind, "label": label}
	if attrs := parseAttrs(rawAttrs); attrs != nil {
		ref["attrs"] = attrs
	}
	return ref
}

func buildEntity(g []string) *document.Node {
	attrs := map[string]any{"kind": g[1], "label": g[2]}
	if parsed := parseAttrs(g[3]); parsed != nil {
		attrs["attributes"] = parsed
	}
	return &document.Node{Type: document.TypeEntity, Attrs: attrs}
}

func buildTag(g []string) *document.Node {
	return &document.Node{Type: document.TypeTag, Attrs: map[string]any{"tag": g[1]}}
}

// buildMention keeps the matched text and annotates it instead of replacing it.
func buildMention(g []string) *document.Node {
	return document.NewText("@"+g[1], document.Mark{
		Type:  document.MarkMention,
		Attrs: map[string]any{"id": g[1]},
	})
}

func buildWikilink(g []string) *document.Node {
	return &document.Node{Type: document.TypeWikilink, Attrs: map[string]any{"target": g[1]}}
}

// buildCrosslink stores the title as a provisional noteId; crosslink.SyncIDs
// later rewrites it to the real identifier once the target note is known.
func buildCrosslink(g []string) *document.Node {
	title := strings.TrimSpace(g[1])
	return &document.Node{
		Type:  document.TypeCrosslink,
		Attrs: map[string]any{"noteId": title, "label": title},
	}
}

// parseAttrs decodes an inline |{...} suffix. Anything that is not a JSON
// object degrades to "no attributes".
func parseAttrs(raw string) map[string]any {
	if raw == "" {
		return nil
	}
	var out map[string]any
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil
	}
	return out
}

// groups expands a submatch index slice into strings; unmatched optional
// groups become "".
func groups(s string, idx []int) []string {
	out := make([]string, len(idx)/2)
	for i := range out {
		lo, hi := idx[2*i], idx[2*i+1]
		if lo >= 0 {
			out[i] = s[lo:hi]
		}
	}
	return out
}

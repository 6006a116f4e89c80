package syntax

import (
	"reflect"
	"slices"
	"testing"

	"github.com/starford/sowilo/internal/document"
)

func types(nodes []*document.Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.Type
	}
	return out
}

func TestMatchInput_Tag(t *testing.T) {
	r := New()
	m, ok := r.MatchInput("hello #golang ")
	if !ok {
		t.Fatal("expected a match")
	}
	if m.Kind != KindTag {
		t.Errorf("kind = %q, want tag", m.Kind)
	}
	if m.Start != 6 || m.End != 14 {
		t.Errorf("range = [%d,%d), want [6,14)", m.Start, m.End)
	}
	if m.Node.Type != document.TypeTag || m.Node.Attrs["tag"] != "golang" {
		t.Errorf("node = %+v", m.Node)
	}
}

func TestMatchInput_RequiresTrailingWhitespace(t *testing.T) {
	r := New()
	if _, ok := r.MatchInput("hello #golang"); ok {
		t.Error("tag without trailing space should not match")
	}
	if _, ok := r.MatchInput("[[Page]]"); ok {
		t.Error("wikilink without trailing space should not match")
	}
}

func TestMatchInput_TripleBeatsEntity(t *testing.T) {
	r := New()
	m, ok := r.MatchInput("[Person|Alice](knows)[Person|Bob] ")
	if !ok {
		t.Fatal("expected a match")
	}
	if m.Kind != KindTriple || m.Start != 0 {
		t.Fatalf("kind = %q start = %d, want triple at 0", m.Kind, m.Start)
	}

	subject := m.Node.Attrs["subject"].(map[string]any)
	object := m.Node.Attrs["object"].(map[string]any)
	if subject["kind"] != "Person" || subject["label"] != "Alice" {
		t.Errorf("subject = %v", subject)
	}
	if m.Node.Attrs["predicate"] != "knows" {
		t.Errorf("predicate = %v", m.Node.Attrs["predicate"])
	}
	if object["label"] != "Bob" {
		t.Errorf("object = %v", object)
	}
	if _, ok := subject["attrs"]; ok {
		t.Error("subject without suffix should have no attrs")
	}
}

func TestMatchInput_TripleWithAttrs(t *testing.T) {
	r := New()
	m, ok := r.MatchInput(`[Person|Alice|{"age":30}] (knows) [Person|Bob] `)
	if !ok || m.Kind != KindTriple {
		t.Fatalf("match = %+v ok = %v, want triple", m, ok)
	}
	subject := m.Node.Attrs["subject"].(map[string]any)
	if subject["label"] != "Alice" {
		t.Errorf("label = %v", subject["label"])
	}
	if !reflect.DeepEqual(subject["attrs"], map[string]any{"age": 30.0}) {
		t.Errorf("attrs = %v", subject["attrs"])
	}
}

func TestMatchInput_EntityWithAttrs(t *testing.T) {
	r := New()
	m, ok := r.MatchInput(`met [Person|Alice|{"age":30}] `)
	if !ok || m.Kind != KindEntity {
		t.Fatalf("match = %+v ok = %v, want entity", m, ok)
	}
	if m.Start != 4 {
		t.Errorf("start = %d, want 4", m.Start)
	}
	if m.Node.Attrs["kind"] != "Person" || m.Node.Attrs["label"] != "Alice" {
		t.Errorf("attrs = %v", m.Node.Attrs)
	}
	if !reflect.DeepEqual(m.Node.Attrs["attributes"], map[string]any{"age": 30.0}) {
		t.Errorf("attributes = %v", m.Node.Attrs["attributes"])
	}
}

func TestMatchInput_MalformedAttrsStillRecognized(t *testing.T) {
	r := New()
	m, ok := r.MatchInput(`[Person|Alice|{not json}] `)
	if !ok || m.Kind != KindEntity {
		t.Fatalf("match = %+v ok = %v, want entity", m, ok)
	}
	if m.Node.Attrs["label"] != "Alice" {
		t.Errorf("label = %v", m.Node.Attrs["label"])
	}
	if _, ok := m.Node.Attrs["attributes"]; ok {
		t.Error("malformed suffix should yield no attributes")
	}
}

func TestMatchInput_MentionKeepsText(t *testing.T) {
	r := New()
	m, ok := r.MatchInput("hi @bob ")
	if !ok || m.Kind != KindMention {
		t.Fatalf("match = %+v ok = %v, want mention", m, ok)
	}
	if m.Start != 3 || m.End != 8 {
		t.Errorf("range = [%d,%d), want [3,8)", m.Start, m.End)
	}
	if m.Node.Type != document.TypeText || m.Node.Text != "@bob" {
		t.Errorf("node = %+v", m.Node)
	}
	if len(m.Node.Marks) != 1 {
		t.Fatalf("marks = %v, want one", m.Node.Marks)
	}
	if m.Node.Marks[0].Type != document.MarkMention || m.Node.Marks[0].Attrs["id"] != "bob" {
		t.Errorf("mark = %+v", m.Node.Marks[0])
	}
}

func TestMatchInput_WikilinkDisplaySegmentDropped(t *testing.T) {
	r := New()
	m, ok := r.MatchInput("[[ My Page | shown ]] ")
	if !ok || m.Kind != KindWikilink {
		t.Fatalf("match = %+v ok = %v, want wikilink", m, ok)
	}
	if m.Node.Attrs["target"] != "My Page" {
		t.Errorf("target = %q", m.Node.Attrs["target"])
	}
}

func TestMatchInput_Crosslink(t *testing.T) {
	r := New()
	m, ok := r.MatchInput("see <<Project X|alias>> ")
	if !ok || m.Kind != KindCrosslink {
		t.Fatalf("match = %+v ok = %v, want crosslink", m, ok)
	}
	if m.Node.Attrs["noteId"] != "Project X" || m.Node.Attrs["label"] != "Project X" {
		t.Errorf("attrs = %v", m.Node.Attrs)
	}
}

func TestMatchInput_MissingSchemaTypeIsNoop(t *testing.T) {
	r := New(WithSchema(NewSchema([]string{document.TypeEntity}, nil)))
	if _, ok := r.MatchInput("#go "); ok {
		t.Error("tag matched without schema support")
	}
	if _, ok := r.MatchInput("@bob "); ok {
		t.Error("mention matched without schema support")
	}
	m, ok := r.MatchInput("[Place|Oslo] ")
	if !ok || m.Kind != KindEntity {
		t.Errorf("match = %+v ok = %v, want entity", m, ok)
	}
}

func TestPaste_AllKindsInPrecedenceOrder(t *testing.T) {
	r := New()
	nodes := r.Paste("[Person|Alice](knows)[Person|Bob] and #tag @carol [[Page]] <<Other>>")

	want := []string{
		document.TypeTriple, document.TypeText, document.TypeTag, document.TypeText,
		document.TypeText, document.TypeText, document.TypeWikilink, document.TypeText,
		document.TypeCrosslink,
	}
	if got := types(nodes); !slices.Equal(got, want) {
		t.Fatalf("types = %v, want %v", got, want)
	}
	if nodes[1].Text != " and " {
		t.Errorf("nodes[1] = %q", nodes[1].Text)
	}
	if nodes[4].Text != "@carol" || nodes[4].Marks[0].Type != document.MarkMention {
		t.Errorf("nodes[4] = %+v", nodes[4])
	}
	if nodes[8].Attrs["noteId"] != "Other" {
		t.Errorf("crosslink noteId = %v", nodes[8].Attrs["noteId"])
	}
}

func TestPaste_MentionInsideWikilink(t *testing.T) {
	r := New()
	nodes := r.Paste("see [[Meet @bob]] now")

	want := []string{document.TypeText, document.TypeWikilink, document.TypeText}
	if got := types(nodes); !slices.Equal(got, want) {
		t.Fatalf("types = %v, want %v", got, want)
	}
	if nodes[1].Attrs["target"] != "Meet @bob" {
		t.Errorf("target = %q, want %q", nodes[1].Attrs["target"], "Meet @bob")
	}
	for _, n := range nodes {
		if len(n.Marks) > 0 {
			t.Errorf("unexpected marks on %q: %v", n.Text, n.Marks)
		}
	}
}

func TestPaste_MentionInsideCrosslink(t *testing.T) {
	r := New()
	nodes := r.Paste("<<Call @ann>> and @ann")

	want := []string{document.TypeCrosslink, document.TypeText, document.TypeText}
	if got := types(nodes); !slices.Equal(got, want) {
		t.Fatalf("types = %v, want %v", got, want)
	}
	if nodes[0].Attrs["noteId"] != "Call @ann" {
		t.Errorf("noteId = %q", nodes[0].Attrs["noteId"])
	}
	if nodes[2].Text != "@ann" || len(nodes[2].Marks) != 1 || nodes[2].Marks[0].Attrs["id"] != "ann" {
		t.Errorf("mention outside the link = %+v", nodes[2])
	}
}

func TestPaste_EntityClaimsHashInLabel(t *testing.T) {
	r := New()
	nodes := r.Paste("learn [Lang|C#sharp] today")
	if len(nodes) != 3 {
		t.Fatalf("len = %d, want 3", len(nodes))
	}
	if nodes[1].Type != document.TypeEntity || nodes[1].Attrs["label"] != "C#sharp" {
		t.Errorf("nodes[1] = %+v", nodes[1])
	}
}

func TestPaste_GlobalMatches(t *testing.T) {
	r := New()
	var tags []any
	for _, n := range r.Paste("#a #b #c") {
		if n.Type == document.TypeTag {
			tags = append(tags, n.Attrs["tag"])
		}
	}
	if !reflect.DeepEqual(tags, []any{"a", "b", "c"}) {
		t.Errorf("tags = %v", tags)
	}
}

func TestPaste_UnsupportedSchemaLeavesText(t *testing.T) {
	r := New(WithSchema(NewSchema(nil, nil)))
	nodes := r.Paste("#a @b [[c]]")
	if len(nodes) != 1 || nodes[0].Text != "#a @b [[c]]" {
		t.Errorf("nodes = %+v", nodes)
	}
}

func TestPaste_MalformedAttrs(t *testing.T) {
	r := New()
	nodes := r.Paste(`[Person|Alice|{"age":}]`)
	if len(nodes) != 1 || nodes[0].Type != document.TypeEntity {
		t.Fatalf("nodes = %+v", nodes)
	}
	if _, ok := nodes[0].Attrs["attributes"]; ok {
		t.Error("malformed suffix should yield no attributes")
	}
}

func TestObserverCountsMarkers(t *testing.T) {
	counts := map[Kind]int{}
	r := New(WithObserver(func(k Kind) { counts[k]++ }))
	r.Paste("#a #b @c")
	r.MatchInput("[[x]] ")
	if counts[KindTag] != 2 || counts[KindMention] != 1 || counts[KindWikilink] != 1 {
		t.Errorf("counts = %v", counts)
	}
}

func TestRecognizeDocument_DoesNotMutateInput(t *testing.T) {
	r := New()
	doc := document.NewDoc(document.NewText("plan #launch with @dana"))
	out := r.RecognizeDocument(doc)

	if len(doc.Content[0].Content) != 1 || doc.Content[0].Content[0].Text != "plan #launch with @dana" {
		t.Fatalf("input changed: %+v", doc.Content[0].Content)
	}
	para := out.Content[0].Content
	if len(para) != 4 {
		t.Fatalf("len = %d, want 4", len(para))
	}
	if para[1].Type != document.TypeTag {
		t.Errorf("para[1] = %q, want tag", para[1].Type)
	}
	if para[3].Text != "@dana" {
		t.Errorf("para[3] = %q", para[3].Text)
	}
}

func TestRecognizeDocument_KeepsExistingMentionLeaves(t *testing.T) {
	r := New()
	leaf := document.NewText("@dana", document.Mark{Type: document.MarkMention, Attrs: map[string]any{"id": "user-7"}})
	out := r.RecognizeDocument(document.NewDoc(leaf))

	para := out.Content[0].Content
	if len(para) != 1 || len(para[0].Marks) != 1 {
		t.Fatalf("para = %+v", para)
	}
	if para[0].Marks[0].Attrs["id"] != "user-7" {
		t.Errorf("mention id = %v, want the existing user-7", para[0].Marks[0].Attrs["id"])
	}
}

func TestRecognizeDocument_LinkAcrossMentionLeaf(t *testing.T) {
	r := New()
	leaf := document.NewText("[[Meet @bob]]", document.Mark{Type: document.MarkMention, Attrs: map[string]any{"id": "bob"}})
	out := r.RecognizeDocument(document.NewDoc(leaf))

	para := out.Content[0].Content
	if len(para) != 1 || para[0].Type != document.TypeWikilink {
		t.Fatalf("para = %+v, want one wikilink", para)
	}
	if para[0].Attrs["target"] != "Meet @bob" {
		t.Errorf("target = %q", para[0].Attrs["target"])
	}
}

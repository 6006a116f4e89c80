package document

import (
	"slices"
	"testing"
)

func TestParse_TreeShape(t *testing.T) {
	raw := `{"type":"doc","content":[{"type":"paragraph","content":[
		{"type":"text","text":"hi ","marks":[{"type":"mention","attrs":{"id":"alice"}}]},
		{"type":"tag","attrs":{"tag":"go"}}
	]}]}`

	doc, err := Parse([]byte(raw))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(doc.Content) != 1 || len(doc.Content[0].Content) != 2 {
		t.Fatalf("unexpected shape: %+v", doc)
	}

	para := doc.Content[0]
	if para.Content[0].Text != "hi " {
		t.Errorf("text = %q", para.Content[0].Text)
	}
	if para.Content[0].Marks[0].Type != MarkMention {
		t.Errorf("mark = %q", para.Content[0].Marks[0].Type)
	}
	if tag, ok := para.Content[1].StringAttr("tag"); !ok || tag != "go" {
		t.Errorf("tag = %q ok = %v", tag, ok)
	}
}

func TestParse_Malformed(t *testing.T) {
	if _, err := Parse([]byte(`{"type":"doc","content":[`)); err == nil {
		t.Error("expected error for truncated document")
	}
}

func TestStringAttr_NonStringIsAbsent(t *testing.T) {
	n := &Node{Type: TypeTag, Attrs: map[string]any{"tag": 42.0, "empty": ""}}
	for _, key := range []string{"tag", "empty", "missing"} {
		if _, ok := n.StringAttr(key); ok {
			t.Errorf("StringAttr(%q) reported present", key)
		}
	}

	var nilNode *Node
	if _, ok := nilNode.StringAttr("tag"); ok {
		t.Error("nil node reported an attribute")
	}
}

func TestWalk_PreOrder(t *testing.T) {
	doc := &Node{Type: TypeDoc, Content: []*Node{
		{Type: "a", Content: []*Node{{Type: "a1"}, {Type: "a2"}}},
		nil,
		{Type: "b"},
	}}
	var seen []string
	doc.Walk(func(n *Node) bool {
		seen = append(seen, n.Type)
		return true
	})
	if want := []string{"a", "a1", "a2", "b"}; !slices.Equal(seen, want) {
		t.Errorf("visited %v, want %v", seen, want)
	}
}

func TestClone_IsDeep(t *testing.T) {
	orig := NewDoc(&Node{
		Type:  TypeEntity,
		Attrs: map[string]any{"kind": "Person", "attributes": map[string]any{"age": 30.0}},
	})
	cp := orig.Clone()
	cp.Content[0].Content[0].Attrs["attributes"].(map[string]any)["age"] = 31.0
	cp.Content[0].Content[0].Attrs["kind"] = "Place"

	attrs := orig.Content[0].Content[0].Attrs
	if attrs["kind"] != "Person" {
		t.Errorf("kind = %v", attrs["kind"])
	}
	if age := attrs["attributes"].(map[string]any)["age"]; age != 30.0 {
		t.Errorf("age = %v", age)
	}
}

func TestPlainText(t *testing.T) {
	doc := NewDoc(NewText("see "), &Node{Type: TypeTag, Attrs: map[string]any{"tag": "x"}}, NewText("now"))
	if got := doc.PlainText(); got != "see now" {
		t.Errorf("PlainText = %q", got)
	}
}

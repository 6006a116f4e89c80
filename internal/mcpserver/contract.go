package mcpserver

// SyntaxContract describes the inline marker syntax and the document format
// that LLM consumers should use when writing note content.
const SyntaxContract = `# Sowilo Marker Syntax Contract

Note content is a JSON document tree:
` + "`" + `{"type":"doc","content":[{"type":"paragraph","content":[...inline nodes...]}]}` + "`" + `.
Plain text is written as ` + "`" + `{"type":"text","text":"..."}` + "`" + ` leaves. Markers typed
as plain text can be converted to nodes with the ` + "`" + `recognize_markers` + "`" + ` tool.

## Markers (highest precedence first)

| Marker     | Typed form                                   | Node |
|------------|----------------------------------------------|------|
| Triple     | ` + "`" + `[Kind|Label](predicate)[Kind|Label]` + "`" + `          | ` + "`" + `triple` + "`" + ` with subject, predicate, object |
| Entity     | ` + "`" + `[Kind|Label]` + "`" + ` or ` + "`" + `[Kind|Label|{"key":"value"}]` + "`" + ` | ` + "`" + `entity` + "`" + ` with kind, label, attributes |
| Tag        | ` + "`" + `#name` + "`" + `                                        | ` + "`" + `tag` + "`" + ` with tag |
| Mention    | ` + "`" + `@name` + "`" + `                                        | text carrying a ` + "`" + `mention` + "`" + ` mark with id |
| Wiki-link  | ` + "`" + `[[Target]]` + "`" + ` or ` + "`" + `[[Target|shown]]` + "`" + `             | ` + "`" + `wikilink` + "`" + ` with target |
| Cross-link | ` + "`" + `<<Note title>>` + "`" + `                               | ` + "`" + `crosslink` + "`" + ` with noteId, label |

## Rules

1. Each marker is recognized when followed by whitespace while typing, and
   anywhere in pasted text.
2. Earlier rows win: text claimed by a triple is never re-read as an entity or tag.
3. Entity attributes must be a JSON object. Malformed JSON keeps the entity
   but drops its attributes.
4. A cross-link names a note by title. The server rewrites it to the note id
   once a note with that title exists. Renaming the target breaks references
   that still spell the old title.
5. Entities are identified by ` + "`" + `Kind:Label` + "`" + `. Attribute overrides set with
   ` + "`" + `set_entity_attributes` + "`" + ` apply to every mention of that key.

## Example

` + "```" + `json
{"type":"doc","content":[{"type":"paragraph","content":[
  {"type":"text","text":"Kickoff with "},
  {"type":"text","text":"@dana","marks":[{"type":"mention","attrs":{"id":"dana"}}]},
  {"type":"tag","attrs":{"tag":"launch"}},
  {"type":"triple","attrs":{
    "subject":{"kind":"Person","label":"Dana"},
    "predicate":"owns",
    "object":{"kind":"Project","label":"Apollo"}}},
  {"type":"crosslink","attrs":{"noteId":"Roadmap","label":"Roadmap"}}
]}]}
` + "```" + `
`

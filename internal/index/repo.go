package index

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/starford/sowilo/internal/attrstore"
	"github.com/starford/sowilo/internal/connections"
)

// Link types stored in the links table.
const (
	LinkWiki  = "wikilink"
	LinkCross = "crosslink"
)

// Graph node types.
const (
	NodeNote   = "note"
	NodeEntity = "entity"
)

// NoteRow represents a row in the notes table.
type NoteRow struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}

// EntitySummary aggregates the occurrences of one entity across notes.
type EntitySummary struct {
	Kind        string   `json:"kind"`
	Label       string   `json:"label"`
	Key         string   `json:"key"`
	Occurrences int      `json:"occurrences"`
	NoteIDs     []string `json:"noteIds"`
}

// GraphNode is a note or an entity.
type GraphNode struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Type  string `json:"type"`
}

// GraphLink is a directed edge. Type is a link type or a triple predicate.
type GraphLink struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Type   string `json:"type"`
}

// UpsertConnections replaces a note row and everything extracted from it
// within one transaction.
func (db *DB) UpsertConnections(n NoteRow, c connections.Connections) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	_, err = tx.Exec(`
		INSERT INTO notes (id, title, checksum, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title      = excluded.title,
			checksum   = excluded.checksum,
			updated_at = excluded.updated_at
	`, n.ID, n.Title, n.Checksum, n.UpdatedAt)
	if err != nil {
		return fmt.Errorf("index: upsert note: %w", err)
	}

	if err := clearConnections(tx, n.ID); err != nil {
		return err
	}

	for i, tag := range c.Tags {
		if _, err := tx.Exec(`INSERT INTO tags (note_id, pos, tag) VALUES (?, ?, ?)`, n.ID, i, tag); err != nil {
			return fmt.Errorf("index: insert tag: %w", err)
		}
	}
	for i, m := range c.Mentions {
		if _, err := tx.Exec(`INSERT INTO mentions (note_id, pos, mention) VALUES (?, ?, ?)`, n.ID, i, m); err != nil {
			return fmt.Errorf("index: insert mention: %w", err)
		}
	}

	linkStmt, err := tx.Prepare(`INSERT INTO links (source, pos, target, label, type) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("index: prepare link insert: %w", err)
	}
	defer linkStmt.Close()
	for i, target := range c.Links {
		if _, err := linkStmt.Exec(n.ID, i, target, target, LinkWiki); err != nil {
			return fmt.Errorf("index: insert link: %w", err)
		}
	}
	for i, cl := range c.Crosslinks {
		if _, err := linkStmt.Exec(n.ID, i, cl.NoteID, cl.Label, LinkCross); err != nil {
			return fmt.Errorf("index: insert crosslink: %w", err)
		}
	}

	for i, e := range c.Entities {
		attrs, err := json.Marshal(e.Attributes)
		if err != nil || e.Attributes == nil {
			attrs = []byte("{}")
		}
		if _, err := tx.Exec(`INSERT INTO entities (note_id, pos, kind, label, attributes) VALUES (?, ?, ?, ?, ?)`,
			n.ID, i, e.Kind, e.Label, string(attrs)); err != nil {
			return fmt.Errorf("index: insert entity: %w", err)
		}
	}
	for i, tr := range c.Triples {
		if _, err := tx.Exec(`
			INSERT INTO triples (note_id, pos, subject_kind, subject_label, predicate, object_kind, object_label)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			n.ID, i, tr.Subject.Kind, tr.Subject.Label, tr.Predicate, tr.Object.Kind, tr.Object.Label); err != nil {
			return fmt.Errorf("index: insert triple: %w", err)
		}
	}

	return tx.Commit()
}

func clearConnections(tx *sql.Tx, id string) error {
	for _, q := range []string{
		`DELETE FROM tags WHERE note_id = ?`,
		`DELETE FROM mentions WHERE note_id = ?`,
		`DELETE FROM links WHERE source = ?`,
		`DELETE FROM entities WHERE note_id = ?`,
		`DELETE FROM triples WHERE note_id = ?`,
	} {
		if _, err := tx.Exec(q, id); err != nil {
			return fmt.Errorf("index: clear connections: %w", err)
		}
	}
	return nil
}

// DeleteNote removes a note and everything extracted from it.
func (db *DB) DeleteNote(id string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := clearConnections(tx, id); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM notes WHERE id = ?`, id); err != nil {
		return fmt.Errorf("index: delete note: %w", err)
	}
	return tx.Commit()
}

// GetChecksum returns the stored checksum for a note, or empty string if not found.
func (db *DB) GetChecksum(id string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM notes WHERE id = ?`, id).Scan(&cs)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("index: get checksum: %w", err)
	}
	return cs, nil
}

// AllChecksums returns id → checksum for every indexed note.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT id, checksum FROM notes`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var id, cs string
		if err := rows.Scan(&id, &cs); err != nil {
			return nil, err
		}
		out[id] = cs
	}
	return out, rows.Err()
}

// NotesByTag returns the notes carrying tag, ordered by title.
func (db *DB) NotesByTag(tag string) ([]NoteRow, error) {
	rows, err := db.conn.Query(`
		SELECT DISTINCT n.id, n.title, n.checksum, n.updated_at
		FROM notes n JOIN tags t ON t.note_id = n.id
		WHERE t.tag = ?
		ORDER BY n.title, n.id`, tag)
	if err != nil {
		return nil, fmt.Errorf("index: notes by tag: %w", err)
	}
	defer rows.Close()

	out := []NoteRow{}
	for rows.Next() {
		var r NoteRow
		if err := rows.Scan(&r.ID, &r.Title, &r.Checksum, &r.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Backlinks returns the ids of notes that reference noteID through a
// resolved cross-link, or title through a wiki-link or unresolved cross-link.
func (db *DB) Backlinks(noteID, title string) ([]string, error) {
	rows, err := db.conn.Query(`
		SELECT DISTINCT source FROM links
		WHERE source <> ?
		  AND ((type = ? AND target IN (?, ?)) OR (type = ? AND target = ?))
		ORDER BY source`,
		noteID, LinkCross, noteID, title, LinkWiki, title)
	if err != nil {
		return nil, fmt.Errorf("index: backlinks: %w", err)
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Entities lists every entity in the corpus. A non-empty query keeps only
// entities whose kind or label contains it, case-insensitively.
func (db *DB) Entities(query string) ([]EntitySummary, error) {
	rows, err := db.conn.Query(`
		SELECT kind, label, note_id FROM entities
		ORDER BY kind, label, note_id`)
	if err != nil {
		return nil, fmt.Errorf("index: entities: %w", err)
	}
	defer rows.Close()

	q := strings.ToLower(query)
	out := []EntitySummary{}
	byKey := map[string]int{}
	for rows.Next() {
		var kind, label, noteID string
		if err := rows.Scan(&kind, &label, &noteID); err != nil {
			return nil, err
		}
		if q != "" && !strings.Contains(strings.ToLower(kind), q) && !strings.Contains(strings.ToLower(label), q) {
			continue
		}
		key := attrstore.Key(kind, label)
		i, ok := byKey[key]
		if !ok {
			i = len(out)
			byKey[key] = i
			out = append(out, EntitySummary{Kind: kind, Label: label, Key: key, NoteIDs: []string{}})
		}
		s := &out[i]
		s.Occurrences++
		if n := len(s.NoteIDs); n == 0 || s.NoteIDs[n-1] != noteID {
			s.NoteIDs = append(s.NoteIDs, noteID)
		}
	}
	return out, rows.Err()
}

// Graph returns notes and entities as nodes, and cross-links, wiki-links
// and triples as edges. Wiki-links are resolved by title; links to unknown
// notes are omitted.
func (db *DB) Graph() ([]GraphNode, []GraphLink, error) {
	nodes := []GraphNode{}
	links := []GraphLink{}

	rows, err := db.conn.Query(`SELECT id, title FROM notes ORDER BY title, id`)
	if err != nil {
		return nil, nil, fmt.Errorf("index: graph nodes: %w", err)
	}
	for rows.Next() {
		var n GraphNode
		if err := rows.Scan(&n.ID, &n.Label); err != nil {
			rows.Close()
			return nil, nil, err
		}
		n.Type = NodeNote
		nodes = append(nodes, n)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	rows, err = db.conn.Query(`
		SELECT DISTINCT l.source, n.id, l.type
		FROM links l JOIN notes n
		  ON (l.type = ? AND n.id = l.target)
		  OR (l.type = ? AND n.title = l.target)
		  OR (l.type = ? AND n.title = l.target AND NOT EXISTS (SELECT 1 FROM notes x WHERE x.id = l.target))
		ORDER BY l.source, n.id, l.type`, LinkCross, LinkWiki, LinkCross)
	if err != nil {
		return nil, nil, fmt.Errorf("index: graph links: %w", err)
	}
	for rows.Next() {
		var l GraphLink
		if err := rows.Scan(&l.Source, &l.Target, &l.Type); err != nil {
			rows.Close()
			return nil, nil, err
		}
		links = append(links, l)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	rows, err = db.conn.Query(`
		SELECT DISTINCT subject_kind, subject_label, predicate, object_kind, object_label
		FROM triples ORDER BY subject_kind, subject_label, predicate, object_kind, object_label`)
	if err != nil {
		return nil, nil, fmt.Errorf("index: graph triples: %w", err)
	}
	defer rows.Close()

	seen := map[string]bool{}
	addEntity := func(kind, label string) string {
		key := attrstore.Key(kind, label)
		if !seen[key] {
			seen[key] = true
			nodes = append(nodes, GraphNode{ID: key, Label: label, Type: NodeEntity})
		}
		return key
	}
	for rows.Next() {
		var subjKind, subjLabel, pred, objKind, objLabel string
		if err := rows.Scan(&subjKind, &subjLabel, &pred, &objKind, &objLabel); err != nil {
			return nil, nil, err
		}
		links = append(links, GraphLink{
			Source: addEntity(subjKind, subjLabel),
			Target: addEntity(objKind, objLabel),
			Type:   pred,
		})
	}
	return nodes, links, rows.Err()
}

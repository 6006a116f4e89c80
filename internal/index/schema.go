// Package index maintains a SQLite view of the connection graph extracted
// from every note: tags, wiki-links, cross-links, mentions, entities and
// triples. It is derived state and can always be rebuilt from the notes.
package index

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS notes (
	id         TEXT PRIMARY KEY,
	title      TEXT NOT NULL DEFAULT '',
	checksum   TEXT NOT NULL DEFAULT '',
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS tags (
	note_id TEXT NOT NULL REFERENCES notes(id) ON DELETE CASCADE,
	pos     INTEGER NOT NULL,
	tag     TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_tags_tag ON tags(tag);

CREATE TABLE IF NOT EXISTS links (
	source TEXT NOT NULL REFERENCES notes(id) ON DELETE CASCADE,
	pos    INTEGER NOT NULL,
	target TEXT NOT NULL,
	label  TEXT NOT NULL DEFAULT '',
	type   TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_links_source ON links(source);
CREATE INDEX IF NOT EXISTS idx_links_target ON links(target);

CREATE TABLE IF NOT EXISTS mentions (
	note_id TEXT NOT NULL REFERENCES notes(id) ON DELETE CASCADE,
	pos     INTEGER NOT NULL,
	mention TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS entities (
	note_id    TEXT NOT NULL REFERENCES notes(id) ON DELETE CASCADE,
	pos        INTEGER NOT NULL,
	kind       TEXT NOT NULL,
	label      TEXT NOT NULL,
	attributes TEXT NOT NULL DEFAULT '{}'
);
CREATE INDEX IF NOT EXISTS idx_entities_key ON entities(kind, label);

CREATE TABLE IF NOT EXISTS triples (
	note_id       TEXT NOT NULL REFERENCES notes(id) ON DELETE CASCADE,
	pos           INTEGER NOT NULL,
	subject_kind  TEXT NOT NULL,
	subject_label TEXT NOT NULL,
	predicate     TEXT NOT NULL,
	object_kind   TEXT NOT NULL,
	object_label  TEXT NOT NULL
);
`

// DB wraps a sql.DB with index-specific operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("index: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: apply schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping reports whether the database is reachable.
func (db *DB) Ping() error {
	return db.conn.Ping()
}

package index

import "github.com/starford/sowilo/internal/connections"

// GraphIndex defines the interface for connection-graph operations.
// Consumers should depend on this interface rather than the concrete *DB type
// to facilitate testing with mocks.
type GraphIndex interface {
	UpsertConnections(n NoteRow, c connections.Connections) error
	DeleteNote(id string) error
	GetChecksum(id string) (string, error)
	AllChecksums() (map[string]string, error)
	NotesByTag(tag string) ([]NoteRow, error)
	Backlinks(noteID, title string) ([]string, error)
	Entities(query string) ([]EntitySummary, error)
	Graph() ([]GraphNode, []GraphLink, error)
	Ping() error
	Close() error
}

// Verify *DB satisfies GraphIndex at compile time.
var _ GraphIndex = (*DB)(nil)

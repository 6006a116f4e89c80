// Package testutil provides shared test helpers for data directories,
// index databases and workspaces.
package testutil

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/starford/sowilo/internal/index"
	"github.com/starford/sowilo/internal/storage"
	"github.com/starford/sowilo/internal/workspace"
)

// FixedTime is the clock used by TestWorkspace.
var FixedTime = time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "sowilo-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := index.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestStore creates a temporary data directory with a storage.Provider.
func TestStore(t *testing.T) (string, storage.Provider) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, store
}

// TestWorkspace returns a workspace with sequential ids (id-1, id-2, ...)
// and a fixed clock.
func TestWorkspace(t *testing.T) *workspace.Workspace {
	t.Helper()
	n := 0
	return workspace.New(QuietLogger(),
		workspace.WithClock(func() time.Time { return FixedTime }),
		workspace.WithIDGenerator(func() string { n++; return fmt.Sprintf("id-%d", n) }),
	)
}

// QuietLogger discards all log output.
func QuietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

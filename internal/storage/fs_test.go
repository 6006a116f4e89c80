package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/sowilo/internal/apperr"
	"github.com/starford/sowilo/internal/checksum"
)

func tempStore(t *testing.T) *FS {
	t.Helper()
	fs, err := NewFS(t.TempDir())
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return fs
}

func TestWriteAndRead(t *testing.T) {
	s := tempStore(t)
	content := []byte(`{"items":[]}`)
	if err := s.Write(KeyNotes, content); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read(KeyNotes)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("content mismatch: got %q", got)
	}
}

func TestReadMissingIsNotFound(t *testing.T) {
	s := tempStore(t)
	_, err := s.Read(KeyEntityAttributes)
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestDelete(t *testing.T) {
	s := tempStore(t)
	_ = s.Write("del.json", []byte("{}"))
	if err := s.Delete("del.json"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Read("del.json"); err == nil {
		t.Error("expected error reading deleted blob")
	}
	if err := s.Delete("del.json"); err != nil {
		t.Errorf("second Delete: %v", err)
	}
}

func TestList(t *testing.T) {
	s := tempStore(t)
	_ = s.Write("a.json", []byte("{}"))
	_ = s.Write("b.json", []byte("[]"))
	_ = os.WriteFile(filepath.Join(s.Root(), "readme.txt"), []byte("not json"), 0o644)

	items, err := s.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("len = %d, want 2", len(items))
	}
	for _, it := range items {
		if it.Key == "a.json" && it.Checksum != checksum.String("{}") {
			t.Errorf("checksum for a.json = %s", it.Checksum)
		}
	}
}

func TestTraversalBlocked(t *testing.T) {
	s := tempStore(t)

	cases := []string{
		"../../etc/passwd",
		"../outside.json",
		"/etc/shadow",
		"nested/notes.json",
		"",
	}
	for _, p := range cases {
		if _, err := s.Read(p); err == nil {
			t.Errorf("expected error for key %q", p)
		}
		if err := s.Write(p, []byte("x")); !errors.Is(err, apperr.ErrInvalid) {
			t.Errorf("write to %q: err = %v, want ErrInvalid", p, err)
		}
	}
}

func TestAtomicWriteNoLeftovers(t *testing.T) {
	s := tempStore(t)
	_ = s.Write(KeyNotes, []byte("original"))

	if err := s.Write(KeyNotes, []byte("updated")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, _ := s.Read(KeyNotes)
	if string(got) != "updated" {
		t.Errorf("expected updated content, got %q", got)
	}

	matches, _ := filepath.Glob(filepath.Join(s.root, ".sowilo-tmp-*"))
	if len(matches) != 0 {
		t.Errorf("leftover temp files: %v", matches)
	}
}

func TestNewFS_CreatesMissingDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")
	if _, err := NewFS(dir); err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		t.Errorf("data dir not created: %v", err)
	}
}

func TestNewFS_FileNotDir(t *testing.T) {
	f, _ := os.CreateTemp("", "sowilo-test-*")
	_ = f.Close()
	defer os.Remove(f.Name())
	_, err := NewFS(f.Name())
	if err == nil {
		t.Error("expected error when root is a file")
	}
}

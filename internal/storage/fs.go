package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/starford/sowilo/internal/apperr"
	"github.com/starford/sowilo/internal/checksum"
	"github.com/starford/sowilo/internal/models"
)

const tmpPattern = ".sowilo-tmp-*"

// FS implements Provider backed by a directory on the local file system.
type FS struct {
	root string // absolute path to the data directory
}

// NewFS creates a provider rooted at dir, creating it when missing.
func NewFS(dir string) (*FS, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("storage: create root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage: root is not a directory: %s", abs)
	}
	return &FS{root: abs}, nil
}

// Root returns the absolute data directory.
func (f *FS) Root() string { return f.root }

// Path returns the absolute file path backing key.
func (f *FS) Path(key string) (string, error) { return f.safePath(key) }

// safePath resolves key against the root and rejects anything that
// escapes it or names a nested path.
func (f *FS) safePath(key string) (string, error) {
	if key == "" {
		return "", fmt.Errorf("storage: empty key: %w", apperr.ErrInvalid)
	}
	cleaned := filepath.Clean(key)
	if filepath.IsAbs(cleaned) || strings.ContainsRune(cleaned, os.PathSeparator) || cleaned == ".." {
		return "", fmt.Errorf("storage: key escapes data dir: %s: %w", key, apperr.ErrInvalid)
	}
	return filepath.Join(f.root, cleaned), nil
}

// List returns metadata for every .json blob in the data directory.
func (f *FS) List() ([]models.BlobMetadata, error) {
	entries, err := os.ReadDir(f.root)
	if err != nil {
		return nil, fmt.Errorf("storage: list: %w", err)
	}
	var out []models.BlobMetadata
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, fmt.Errorf("storage: list: %w", err)
		}
		data, err := os.ReadFile(filepath.Join(f.root, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("storage: list: %w", err)
		}
		out = append(out, models.BlobMetadata{
			Key:       e.Name(),
			Checksum:  checksum.Sum(data),
			UpdatedAt: info.ModTime(),
		})
	}
	return out, nil
}

// Read returns the bytes stored under key. A missing key yields an error
// wrapping apperr.ErrNotFound.
func (f *FS) Read(key string) ([]byte, error) {
	abs, err := f.safePath(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("storage: read %s: %w", key, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("storage: read %s: %w", key, err)
	}
	return data, nil
}

// Write atomically writes content: tmp file → fsync → rename.
func (f *FS) Write(key string, content []byte) error {
	abs, err := f.safePath(key)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(f.root, tmpPattern)
	if err != nil {
		return fmt.Errorf("storage: create temp: %w", err)
	}
	tmpName := tmp.Name()

	// Clean up on any failure path.
	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("storage: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("storage: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("storage: close temp: %w", err)
	}
	if err := os.Rename(tmpName, abs); err != nil {
		return fmt.Errorf("storage: rename: %w", err)
	}
	success = true
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (f *FS) Delete(key string) error {
	abs, err := f.safePath(key)
	if err != nil {
		return err
	}
	if err := os.Remove(abs); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("storage: delete %s: %w", key, err)
	}
	return nil
}

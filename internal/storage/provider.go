// Package storage defines the durable key/blob abstraction behind the
// workspace snapshot and the entity attribute table.
package storage

import "github.com/starford/sowilo/internal/models"

// Well-known keys.
const (
	KeyNotes            = "notes.json"
	KeyEntityAttributes = "entity-attributes.json"
)

// Provider is the interface for blob operations.
type Provider interface {
	// List returns metadata for every .json blob.
	List() ([]models.BlobMetadata, error)
	// Read returns the raw bytes stored under key.
	Read(key string) ([]byte, error)
	// Write atomically replaces the bytes stored under key.
	Write(key string, content []byte) error
	// Delete removes key.
	Delete(key string) error
}

// Package models defines the domain types shared across Sowilo services.
package models

import "time"

// ItemType distinguishes notes from folders in the hierarchy.
type ItemType string

const (
	ItemNote   ItemType = "note"
	ItemFolder ItemType = "folder"
)

// Item is a node of the note/folder hierarchy. Content is set for notes,
// Children for folders.
type Item struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Type      ItemType  `json:"type"`
	ParentID  *string   `json:"parentId"`
	Content   string    `json:"content,omitempty"`
	Children  []string  `json:"children,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// IsNote reports whether the item is a note.
func (i *Item) IsNote() bool { return i.Type == ItemNote }

// IsFolder reports whether the item is a folder.
func (i *Item) IsFolder() bool { return i.Type == ItemFolder }

// Parent returns the parent id, or "" for root items.
func (i *Item) Parent() string {
	if i.ParentID == nil {
		return ""
	}
	return *i.ParentID
}

// Clone returns a copy that shares no slices with i.
func (i *Item) Clone() *Item {
	out := *i
	if i.ParentID != nil {
		p := *i.ParentID
		out.ParentID = &p
	}
	if i.Children != nil {
		out.Children = append([]string(nil), i.Children...)
	}
	return &out
}

// BlobMetadata is a lightweight description of a stored blob.
type BlobMetadata struct {
	Key       string    `json:"key"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}
